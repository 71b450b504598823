package ai_test

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	lua "github.com/yuin/gopher-lua"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
	"pgregory.net/rapid"

	"github.com/cory-johannsen/melee/internal/game/ai"
	"github.com/cory-johannsen/melee/internal/game/dice"
	"github.com/cory-johannsen/melee/internal/game/fault"
	"github.com/cory-johannsen/melee/internal/game/grapple"
	"github.com/cory-johannsen/melee/internal/game/move"
)

type fixedSource float64

func (f fixedSource) Intn(n int) int   { return int(float64(f) * float64(n)) }
func (f fixedSource) Float64() float64 { return float64(f) }

type stubCaller struct {
	ret   lua.LValue
	err   error
	calls int
}

func (s *stubCaller) CallHook(_ dice.Source, scope, hook string, args ...lua.LValue) (lua.LValue, error) {
	s.calls++
	return s.ret, s.err
}

func actor(id string) *ai.ActorState {
	return &ai.ActorState{
		ID:           id,
		Stamina:      10,
		Weapons:      map[string]struct{}{"sword": {}},
		Natural:      map[string]struct{}{"fist": {}},
		MainHandFree: true,
		OffHandFree:  true,
	}
}

func situation() *ai.Situation {
	return &ai.Situation{
		Tick:     1,
		Actor:    actor("a"),
		Opponent: actor("b"),
		Grapple:  grapple.Free,
		GrappleLegal: map[grapple.Transition]bool{
			grapple.Initiate: true,
		},
	}
}

func profile(t *testing.T, yaml string) *ai.Profile {
	t.Helper()
	ps, err := ai.ParseProfiles([]byte(yaml))
	require.NoError(t, err)
	require.Len(t, ps, 1)
	return ps[0]
}

var (
	slash     = &move.Attack{ID: "slash", Type: move.Standard, Weapon: "sword", Intentions: move.IntentWound, Weight: 1}
	punch     = &move.Attack{ID: "punch", Type: move.Standard, Natural: true, Weapon: "fist", Intentions: move.IntentPain, Weight: 1}
	spar      = &move.Attack{ID: "spar", Type: move.Standard, Natural: true, Weapon: "fist", Intentions: move.IntentTraining, Weight: 1}
	clinch    = &move.Attack{ID: "clinch", Type: move.GrappleInitiate, Natural: true, Intentions: move.IntentGrapple, Weight: 1}
	breakFree = &move.Attack{ID: "break", Type: move.GrappleBreak, Natural: true, Weight: 1}
	finisher  = &move.Attack{ID: "finish", Type: move.CoupDeGrace, Weapon: "sword", Intentions: move.IntentKill, Weight: 1}
	lunge     = &move.Attack{ID: "lunge", Type: move.Charge, Weapon: "sword", Intentions: move.IntentWound, StaminaCost: 4, Weight: 1}
	standUp   = &move.Attack{ID: "stand", Type: move.Rise, Natural: true, Weight: 1}
	volley    = &move.Attack{ID: "volley", Type: move.RangedFire, Ranged: "bow", Weapon: "bow", Intentions: move.IntentWound, Weight: 1}
)

func ids(cands []ai.Candidate) []string {
	out := make([]string, 0, len(cands))
	for _, c := range cands {
		out = append(out, c.Attack.ID)
	}
	return out
}

func TestParseProfiles_Defaults(t *testing.T) {
	p := profile(t, "- id: brawler\n")
	assert.Equal(t, ai.PursuitHold, p.Pursuit)
	assert.Equal(t, ai.ModeMixed, p.Mode)
	assert.Equal(t, ai.RespondIgnore, p.GrappleResponse)
	assert.Equal(t, 1.0, p.WeaponWeight)
	assert.True(t, p.AllowsDefense(move.DefenseDodge))
	assert.True(t, p.AllowsDefense(move.DefenseParry))
	assert.True(t, p.AllowsDefense(move.DefenseBlock))
}

func TestParseProfiles_Rejects(t *testing.T) {
	for name, doc := range map[string]string{
		"unknown field":   "- id: x\n  bogus: 1\n",
		"missing id":      "- pursuit: hold\n",
		"bad pursuit":     "- id: x\n  pursuit: flee\n",
		"negative weight": "- id: x\n  weapon_weight: -1\n",
		"bad defense":     "- id: x\n  defenses: [duck]\n",
	} {
		t.Run(name, func(t *testing.T) {
			_, err := ai.ParseProfiles([]byte(doc))
			require.Error(t, err)
			assert.True(t, errors.Is(err, fault.ErrConfig))
		})
	}
}

func TestRegistry_Duplicate(t *testing.T) {
	r := ai.NewRegistry()
	p := profile(t, "- id: brawler\n")
	require.NoError(t, r.Register(p))
	err := r.Register(p)
	assert.True(t, errors.Is(err, fault.ErrConfig))
	got, ok := r.Profile("brawler")
	require.True(t, ok)
	assert.Same(t, p, got)
	assert.Equal(t, []string{"brawler"}, r.IDs())
}

func TestSituation_Legal(t *testing.T) {
	sit := situation()
	assert.True(t, sit.Legal(slash))
	assert.False(t, sit.Legal(finisher), "opponent must be down")
	sit.Opponent.Prone = true
	assert.True(t, sit.Legal(finisher))

	assert.False(t, sit.Legal(volley), "no ranged weapon")
	assert.False(t, sit.Legal(breakFree), "not held")

	sit.Actor.Stamina = 3
	assert.False(t, sit.Legal(lunge))
}

func TestSituation_PinnedActorCannotUseWeapons(t *testing.T) {
	sit := situation()
	sit.Grapple = grapple.LimbLocked
	sit.GrappleLegal = map[grapple.Transition]bool{grapple.Breakout: true}
	assert.True(t, sit.Held())
	assert.False(t, sit.Legal(slash))
	assert.True(t, sit.Legal(punch))
	assert.True(t, sit.Legal(breakFree))
}

func TestEligible_ForbiddenIntentionsExcluded(t *testing.T) {
	s := ai.NewSelector(nil, zap.NewNop())
	p := profile(t, "- id: sparring\n  forbidden: [wound, kill]\n")
	got := s.Eligible(p, situation(), []*move.Attack{slash, punch, spar}, nil)
	assert.ElementsMatch(t, []string{"punch", "spar"}, ids(got))
}

func TestEligible_WeightsCombine(t *testing.T) {
	s := ai.NewSelector(nil, zap.NewNop())
	p := profile(t, `
- id: boxer
  weapon_weight: 0.5
  natural_weight: 3
  auxiliary_weight: 0
  preferred: [pain]
`)
	got := s.Eligible(p, situation(), []*move.Attack{slash, punch, clinch}, nil)
	require.Len(t, got, 2)
	weights := map[string]float64{}
	for _, c := range got {
		weights[c.Attack.ID] = c.Weight
	}
	assert.Equal(t, 0.5, weights["slash"])
	assert.Equal(t, 6.0, weights["punch"])
	_, ok := weights["clinch"]
	assert.False(t, ok, "zero auxiliary weight omits non-striking moves")
}

func TestEligible_MinimumStamina(t *testing.T) {
	s := ai.NewSelector(nil, zap.NewNop())
	p := profile(t, "- id: careful\n  minimum_stamina: 7\n")
	got := s.Eligible(p, situation(), []*move.Attack{slash, lunge}, nil)
	assert.Equal(t, []string{"slash"}, ids(got))
}

func TestEligible_RiseOnlyWhileProne(t *testing.T) {
	s := ai.NewSelector(nil, zap.NewNop())
	p := profile(t, "- id: brawler\n  auxiliary_weight: 0\n")
	sit := situation()
	got := s.Eligible(p, sit, []*move.Attack{slash, standUp}, nil)
	assert.Equal(t, []string{"slash"}, ids(got))

	sit.Actor.Prone = true
	got = s.Eligible(p, sit, []*move.Attack{slash, standUp}, nil)
	require.Equal(t, []string{"slash", "stand"}, ids(got))
	assert.Greater(t, got[1].Weight, got[0].Weight, "standing up is favoured")

	sit.Grapple = grapple.LimbLocked
	got = s.Eligible(p, sit, []*move.Attack{standUp}, nil)
	assert.Empty(t, got, "a pinned actor cannot stand")
}

func TestEligible_WithdrawNeverCloses(t *testing.T) {
	s := ai.NewSelector(nil, zap.NewNop())
	p := profile(t, "- id: skirmisher\n  pursuit: withdraw\n")
	got := s.Eligible(p, situation(), []*move.Attack{slash, lunge, clinch}, nil)
	assert.Equal(t, []string{"slash"}, ids(got))
}

func TestEligible_HeldActorPrefersBreakout(t *testing.T) {
	s := ai.NewSelector(nil, zap.NewNop())
	p := profile(t, "- id: wrestler\n  grapple_response: breakout\n")
	sit := situation()
	sit.Grapple = grapple.Grappled
	sit.GrappleLegal = map[grapple.Transition]bool{grapple.Breakout: true}
	got := s.Eligible(p, sit, []*move.Attack{slash, punch, breakFree}, nil)
	assert.Equal(t, []string{"break"}, ids(got))

	// No legal response move leaves the actor unrestricted.
	sit.GrappleLegal = nil
	got = s.Eligible(p, sit, []*move.Attack{slash, punch, breakFree}, nil)
	assert.ElementsMatch(t, []string{"slash", "punch"}, ids(got))
}

func TestEligible_HookVeto(t *testing.T) {
	caller := &stubCaller{ret: lua.LFalse}
	s := ai.NewSelector(caller, zap.NewNop())
	p := profile(t, "- id: scripted\n  eligibility_hook: allow_move\n")
	got := s.Eligible(p, situation(), []*move.Attack{slash, punch}, nil)
	assert.Empty(t, got)
	assert.Equal(t, 2, caller.calls)
}

func TestEligible_HookErrorAllowsAndWarns(t *testing.T) {
	core, logs := observer.New(zap.WarnLevel)
	caller := &stubCaller{err: errors.New("boom")}
	s := ai.NewSelector(caller, zap.New(core))
	p := profile(t, "- id: scripted\n  eligibility_hook: allow_move\n")
	got := s.Eligible(p, situation(), []*move.Attack{slash}, nil)
	assert.Equal(t, []string{"slash"}, ids(got))
	assert.Equal(t, 1, logs.FilterMessage("eligibility hook failed").Len())
}

func TestSelect_NoLegalMove(t *testing.T) {
	s := ai.NewSelector(nil, zap.NewNop())
	p := profile(t, "- id: pacifist\n  forbidden: [wound, pain, training]\n")
	_, err := s.Select(p, situation(), []*move.Attack{slash, punch, spar}, fixedSource(0.3))
	assert.ErrorIs(t, err, fault.ErrNoLegalMove)
}

func TestSelect_DrawsByWeight(t *testing.T) {
	s := ai.NewSelector(nil, zap.NewNop())
	p := profile(t, "- id: mixed\n  weapon_weight: 1\n  natural_weight: 3\n")
	moves := []*move.Attack{slash, punch}
	got, err := s.Select(p, situation(), moves, fixedSource(0.1))
	require.NoError(t, err)
	assert.Equal(t, "slash", got.ID)
	got, err = s.Select(p, situation(), moves, fixedSource(0.5))
	require.NoError(t, err)
	assert.Equal(t, "punch", got.ID)
}

func TestSelect_AlwaysLegalAndPermitted(t *testing.T) {
	s := ai.NewSelector(nil, zap.NewNop())
	moves := []*move.Attack{slash, punch, spar, clinch, breakFree, finisher, lunge, volley}
	rapid.Check(t, func(rt *rapid.T) {
		forbidden := move.Intention(rapid.IntRange(0, int(move.IntentMask)).Draw(rt, "forbidden")) & move.IntentMask
		p := &ai.Profile{
			ID: "r", WeaponWeight: 1, NaturalWeight: 1, AuxiliaryWeight: 1,
			Pursuit: ai.PursuitHold, Mode: ai.ModeMixed, GrappleResponse: ai.RespondIgnore,
			Forbidden: forbidden,
		}
		sit := situation()
		sit.Actor.Stamina = rapid.Float64Range(0, 10).Draw(rt, "stamina")
		sit.Opponent.Prone = rapid.Bool().Draw(rt, "prone")
		got, err := s.Select(p, sit, moves, dice.NewSeededSource(rapid.Uint64().Draw(rt, "seed")))
		if err != nil {
			assert.ErrorIs(rt, err, fault.ErrNoLegalMove)
			return
		}
		assert.True(rt, sit.Legal(got))
		assert.False(rt, got.Intentions.Any(forbidden))
	})
}
