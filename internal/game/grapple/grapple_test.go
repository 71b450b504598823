package grapple_test

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"pgregory.net/rapid"

	"github.com/cory-johannsen/melee/internal/game/dice"
	"github.com/cory-johannsen/melee/internal/game/fault"
	"github.com/cory-johannsen/melee/internal/game/grapple"
	"github.com/cory-johannsen/melee/internal/game/move"
)

// constRoll always rolls the same d100 and counts draws.
type constRoll struct {
	roll  int
	draws int
}

func (c *constRoll) Intn(n int) int {
	c.draws++
	return (c.roll - 1) % n
}

func (c *constRoll) Float64() float64 { return 0.5 }

func skill(v float64) grapple.SkillFunc { return func(string) float64 { return v } }

func req(actor, opponent string, tr grapple.Transition) grapple.Request {
	return grapple.Request{
		Actor: actor, Opponent: opponent, Transition: tr,
		ActorSkills: skill(50), OpponentSkills: skill(50),
	}
}

func attempt(t *testing.T, reg *grapple.Registry, src dice.Source, r grapple.Request) grapple.Result {
	t.Helper()
	res, err := reg.Attempt(context.Background(), dice.NewLoggedRoller(src, zap.NewNop()), r)
	require.NoError(t, err)
	return res
}

func TestBreakoutFromFree_IsIllegal(t *testing.T) {
	reg := grapple.NewRegistry(nil)
	src := &constRoll{roll: 100}
	_, err := reg.Attempt(context.Background(), dice.NewLoggedRoller(src, zap.NewNop()), req("a", "b", grapple.Breakout))
	require.Error(t, err)
	assert.True(t, errors.Is(err, fault.ErrIllegalTransition))
	var ite *fault.IllegalTransitionError
	require.True(t, errors.As(err, &ite))
	assert.Equal(t, string(grapple.Free), ite.State)
	assert.Zero(t, src.draws, "an illegal transition rolls nothing")
	assert.Equal(t, 0, reg.Len())
}

func TestInitiate_CreatesClinchAndRejectsDuplicate(t *testing.T) {
	reg := grapple.NewRegistry(nil)
	win := &constRoll{roll: 100}
	res := attempt(t, reg, win, req("a", "b", grapple.Initiate))
	assert.True(t, res.Success)
	assert.Equal(t, grapple.Clinched, res.To)
	assert.Equal(t, "a", res.Grappler)
	assert.Equal(t, grapple.Clinched, reg.StateBetween("b", "a"))

	for _, r := range []grapple.Request{req("a", "b", grapple.Initiate), req("b", "a", grapple.Initiate)} {
		_, err := reg.Attempt(context.Background(), dice.NewLoggedRoller(win, zap.NewNop()), r)
		assert.ErrorIs(t, err, fault.ErrIllegalTransition)
	}
	assert.Equal(t, 1, reg.Len())
}

func TestFailedCheck_MutatesNothing(t *testing.T) {
	reg := grapple.NewRegistry(nil)
	res := attempt(t, reg, &constRoll{roll: 1}, req("a", "b", grapple.Initiate))
	assert.False(t, res.Success)
	assert.Equal(t, 0, reg.Len())

	attempt(t, reg, &constRoll{roll: 100}, req("a", "b", grapple.Initiate))
	res = attempt(t, reg, &constRoll{roll: 1}, req("a", "b", grapple.Extend))
	assert.False(t, res.Success)
	assert.Equal(t, grapple.Clinched, reg.StateBetween("a", "b"))
}

func TestFullHold_ExtendToStrangle(t *testing.T) {
	reg := grapple.NewRegistry(nil)
	win := &constRoll{roll: 100}
	attempt(t, reg, win, req("a", "b", grapple.Initiate))
	assert.Equal(t, grapple.Grappled, attempt(t, reg, win, req("a", "b", grapple.Extend)).To)

	lock := req("a", "b", grapple.Extend)
	lock.Limb = "left_arm"
	assert.Equal(t, grapple.LimbLocked, attempt(t, reg, win, lock).To)
	m, ok := reg.Get("a", "b")
	require.True(t, ok)
	assert.Equal(t, "left_arm", m.Limb())

	_, err := reg.Attempt(context.Background(), dice.NewLoggedRoller(win, zap.NewNop()), req("a", "b", grapple.Extend))
	assert.ErrorIs(t, err, fault.ErrIllegalTransition, "no extension beyond a limb lock")

	assert.Equal(t, grapple.Strangling, attempt(t, reg, win, req("a", "b", grapple.Strangle)).To)
	assert.Equal(t, []*grapple.Machine{m}, reg.HeldBy("b"))
}

func TestWrench_BreaksLockedLimb(t *testing.T) {
	reg := grapple.NewRegistry(nil)
	win := &constRoll{roll: 100}
	attempt(t, reg, win, req("a", "b", grapple.Initiate))
	attempt(t, reg, win, req("a", "b", grapple.Extend))
	attempt(t, reg, win, req("a", "b", grapple.Extend))
	res := attempt(t, reg, win, req("a", "b", grapple.Wrench))
	assert.Equal(t, grapple.Broken, res.To)
}

func TestStrangle_RepeatsThenLoosens(t *testing.T) {
	reg := grapple.NewRegistry(nil)
	win := &constRoll{roll: 100}
	attempt(t, reg, win, req("a", "b", grapple.Initiate))
	attempt(t, reg, win, req("a", "b", grapple.Extend))
	lock := req("a", "b", grapple.Extend)
	lock.Limb = "neck"
	attempt(t, reg, win, lock)
	attempt(t, reg, win, req("a", "b", grapple.Strangle))

	res := attempt(t, reg, win, req("a", "b", grapple.Strangle))
	assert.True(t, res.Success, "a strangle can be held")
	assert.Equal(t, grapple.Strangling, res.From)
	assert.Equal(t, grapple.Strangling, res.To)

	res = attempt(t, reg, &constRoll{roll: 1}, req("a", "b", grapple.Loosen))
	assert.True(t, res.Success)
	assert.Equal(t, grapple.LimbLocked, res.To)
	m, ok := reg.Get("a", "b")
	require.True(t, ok)
	assert.Equal(t, "neck", m.Limb())

	res = attempt(t, reg, &constRoll{roll: 1}, req("a", "b", grapple.Loosen))
	assert.Equal(t, grapple.Grappled, res.To)
	assert.Empty(t, m.Limb())
}

func TestWrench_BrokenLimbCanBeLetGo(t *testing.T) {
	reg := grapple.NewRegistry(nil)
	win := &constRoll{roll: 100}
	attempt(t, reg, win, req("a", "b", grapple.Initiate))
	attempt(t, reg, win, req("a", "b", grapple.Extend))
	lock := req("a", "b", grapple.Extend)
	lock.Limb = "left_arm"
	attempt(t, reg, win, lock)
	require.Equal(t, grapple.Broken, attempt(t, reg, win, req("a", "b", grapple.Wrench)).To)

	for _, tr := range []grapple.Transition{grapple.Wrench, grapple.Strangle, grapple.Extend} {
		assert.ErrorIs(t, reg.Legal(req("a", "b", tr)), fault.ErrIllegalTransition, "%s from broken", tr)
	}
	require.NoError(t, reg.Legal(req("a", "b", grapple.Loosen)))
	res := attempt(t, reg, &constRoll{roll: 1}, req("a", "b", grapple.Loosen))
	assert.Equal(t, grapple.Grappled, res.To)

	// the freed grappler may work toward a fresh lock
	lock.Limb = "right_arm"
	assert.Equal(t, grapple.LimbLocked, attempt(t, reg, win, lock).To)
	m, _ := reg.Get("a", "b")
	assert.Equal(t, "right_arm", m.Limb())
}

func TestLoosen_ReturnsToClinch(t *testing.T) {
	reg := grapple.NewRegistry(nil)
	attempt(t, reg, &constRoll{roll: 100}, req("a", "b", grapple.Initiate))
	attempt(t, reg, &constRoll{roll: 100}, req("a", "b", grapple.Extend))
	res := attempt(t, reg, &constRoll{roll: 1}, req("a", "b", grapple.Loosen))
	assert.True(t, res.Success, "loosening is automatic")
	assert.Equal(t, grapple.Clinched, res.To)
}

func TestCounter_SwapsRoles(t *testing.T) {
	reg := grapple.NewRegistry(nil)
	win := &constRoll{roll: 100}
	attempt(t, reg, win, req("a", "b", grapple.Initiate))
	attempt(t, reg, win, req("a", "b", grapple.Extend))

	_, err := reg.Attempt(context.Background(), dice.NewLoggedRoller(win, zap.NewNop()), req("a", "b", grapple.Counter))
	assert.ErrorIs(t, err, fault.ErrIllegalTransition, "only the held actor may counter")

	res := attempt(t, reg, win, req("b", "a", grapple.Counter))
	assert.True(t, res.Success)
	assert.Equal(t, grapple.Grappled, res.To)
	assert.Equal(t, "b", res.Grappler)
	assert.Equal(t, "a", res.Target)
	assert.Empty(t, reg.HeldBy("b"))
}

func TestBreakout_DestroysGrapple(t *testing.T) {
	reg := grapple.NewRegistry(nil)
	win := &constRoll{roll: 100}
	attempt(t, reg, win, req("a", "b", grapple.Initiate))
	res := attempt(t, reg, win, req("b", "a", grapple.Breakout))
	assert.True(t, res.Success)
	assert.Equal(t, grapple.Free, res.To)
	assert.Equal(t, 0, reg.Len())
	// a fresh clinch may now be initiated
	attempt(t, reg, win, req("b", "a", grapple.Initiate))
	assert.Equal(t, 1, reg.Len())
}

func TestRelease(t *testing.T) {
	reg := grapple.NewRegistry(nil)
	win := &constRoll{roll: 100}
	attempt(t, reg, win, req("a", "b", grapple.Initiate))
	attempt(t, reg, win, req("c", "a", grapple.Initiate))
	attempt(t, reg, win, req("c", "d", grapple.Initiate))
	reg.Release("a")
	assert.Equal(t, 1, reg.Len())
	_, ok := reg.Get("c", "d")
	assert.True(t, ok)
}

func TestTransitionFor(t *testing.T) {
	tr, ok := grapple.TransitionFor(move.GrappleBreak)
	assert.True(t, ok)
	assert.Equal(t, grapple.Breakout, tr)
	_, ok = grapple.TransitionFor(move.Standard)
	assert.False(t, ok)
}

func TestRegistry_InvariantsUnderRandomSequences(t *testing.T) {
	actors := []string{"a", "b", "c"}
	rapid.Check(t, func(rt *rapid.T) {
		reg := grapple.NewRegistry(nil)
		roller := dice.NewLoggedRoller(dice.NewSeededSource(rapid.Uint64().Draw(rt, "seed")), zap.NewNop())
		steps := rapid.IntRange(1, 40).Draw(rt, "steps")
		for i := 0; i < steps; i++ {
			actor := rapid.SampledFrom(actors).Draw(rt, "actor")
			opp := rapid.SampledFrom(actors).Draw(rt, "opponent")
			tr := rapid.SampledFrom(grapple.Transitions).Draw(rt, "transition")
			before := reg.StateBetween(actor, opp)
			beforeLen := reg.Len()
			res, err := reg.Attempt(context.Background(), roller, req(actor, opp, tr))
			if err != nil {
				assert.ErrorIs(rt, err, fault.ErrIllegalTransition)
				assert.Equal(rt, before, reg.StateBetween(actor, opp))
				assert.Equal(rt, beforeLen, reg.Len())
				continue
			}
			if !res.Success {
				assert.Equal(rt, before, reg.StateBetween(actor, opp))
			}
			assert.LessOrEqual(rt, reg.Len(), 3, "at most one grapple per unordered pair")
		}
	})
}
