package move_test

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"pgregory.net/rapid"

	"github.com/cory-johannsen/melee/internal/game/damage"
	"github.com/cory-johannsen/melee/internal/game/dice"
	"github.com/cory-johannsen/melee/internal/game/fault"
	"github.com/cory-johannsen/melee/internal/game/move"
)

// rolls returns d100 results in order, then repeats the last.
type rolls struct {
	seq []int
	i   int
}

func (r *rolls) Intn(n int) int {
	v := r.seq[min(r.i, len(r.seq)-1)]
	r.i++
	return (v - 1) % n
}

func (r *rolls) Float64() float64 { return 0.5 }

func roller(seq ...int) *dice.Roller {
	return dice.NewLoggedRoller(&rolls{seq: seq}, zap.NewNop())
}

func TestDifficulty_TargetAndStaging(t *testing.T) {
	assert.Equal(t, 50.0, move.Normal.Target())
	assert.Equal(t, 0.0, move.Automatic.Target())
	assert.Equal(t, 100.0, move.Impossible.Target())
	assert.Equal(t, move.Hard, move.Normal.StageUp())
	assert.Equal(t, move.Easy, move.Normal.StageDown())
	assert.Equal(t, move.Impossible, move.Impossible.StageUp())
	assert.Equal(t, move.Automatic, move.Automatic.StageDown())

	rapid.Check(t, func(rt *rapid.T) {
		d := move.Difficulty(rapid.IntRange(0, 10).Draw(rt, "d"))
		steps := rapid.IntRange(-30, 30).Draw(rt, "steps")
		assert.True(rt, d.Stage(steps).Valid())
	})
}

func TestParseDifficulty(t *testing.T) {
	d, err := move.ParseDifficulty("very_hard")
	require.NoError(t, err)
	assert.Equal(t, move.VeryHard, d)
	_, err = move.ParseDifficulty("brutal")
	assert.Error(t, err)
}

func TestOutcomeFor_Bands(t *testing.T) {
	cases := []struct {
		margin float64
		want   move.Outcome
	}{
		{-100, move.MajorFail},
		{-40, move.MajorFail},
		{-39.9, move.Fail},
		{-0.1, move.Fail},
		{0, move.Marginal},
		{14.9, move.Marginal},
		{15, move.Pass},
		{39.9, move.Pass},
		{40, move.MajorPass},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.want, move.OutcomeFor(tc.margin), "margin %v", tc.margin)
	}
	rapid.Check(t, func(rt *rapid.T) {
		a := rapid.Float64Range(-200, 200).Draw(rt, "a")
		b := rapid.Float64Range(-200, 200).Draw(rt, "b")
		if a > b {
			a, b = b, a
		}
		assert.LessOrEqual(rt, move.OutcomeFor(a), move.OutcomeFor(b))
	})
}

func TestResolveCheck_Margin(t *testing.T) {
	c := move.ResolveCheck(roller(40), "test", 60, move.UnopposedSkill, move.Normal, move.Modifiers{})
	assert.Equal(t, 40, c.Roll.Roll)
	assert.Equal(t, 0.0, c.Margin)
	assert.Equal(t, move.Marginal, c.Outcome)

	staged := move.ResolveCheck(roller(40), "test", 60, move.UnopposedSkill, move.Normal, move.Modifiers{Steps: 1, Flat: 5})
	assert.Equal(t, move.Hard, staged.Difficulty)
	assert.Equal(t, -15.0, staged.Margin)
	assert.Equal(t, move.Fail, staged.Outcome)
}

func TestResolveCheck_Extremes(t *testing.T) {
	auto := move.ResolveCheck(roller(1), "auto", 0, 90, move.Automatic, move.Modifiers{})
	assert.Equal(t, move.Pass, auto.Outcome)

	never := move.ResolveCheck(roller(100), "never", 500, 0, move.Impossible, move.Modifiers{})
	assert.Equal(t, move.MajorFail, never.Outcome)
}

func sword() *move.Attack {
	return &move.Attack{
		ID:                 "thrust",
		AttackerDifficulty: move.Normal,
		DodgeDifficulty:    move.Normal,
		ParryDifficulty:    move.Hard,
		BlockDifficulty:    move.Impossible,
		RecoverySuccess:    move.Easy,
		RecoveryFailure:    move.Hard,
		Delay:              1,
	}
}

func TestResolveAttack_MajorPassWithoutDefense(t *testing.T) {
	res := move.ResolveAttack(roller(100), sword(), 100, nil, move.Modifiers{})
	assert.True(t, res.Hit)
	assert.Equal(t, move.MajorPass, res.Outcome)
	assert.Equal(t, 100.0, res.Degree)
	assert.Nil(t, res.Defense)
	assert.Equal(t, move.DefenseNone, res.DefenseKind)
}

func TestResolveAttack_FailedAttackNeverRollsDefense(t *testing.T) {
	src := &rolls{seq: []int{10, 100}}
	res := move.ResolveAttack(dice.NewLoggedRoller(src, zap.NewNop()), sword(), 50, []move.DefenseOption{{Kind: move.DefenseDodge, Skill: 50}}, move.Modifiers{})
	assert.False(t, res.Hit)
	assert.False(t, res.Defended)
	assert.Nil(t, res.Defense)
	assert.Equal(t, 1, src.i)
}

func TestResolveAttack_DefenseOutcomes(t *testing.T) {
	dodge := []move.DefenseOption{{Kind: move.DefenseDodge, Skill: 50}}

	// attack margin 20 (Pass); defense margin 45 (MajorPass) beats it.
	beaten := move.ResolveAttack(roller(70, 95), sword(), 50, dodge, move.Modifiers{})
	assert.False(t, beaten.Hit)
	assert.True(t, beaten.Defended)
	assert.Equal(t, move.DefenseDodge, beaten.DefenseKind)

	// defense margin 5 discounts the degree to 15.
	discounted := move.ResolveAttack(roller(70, 55), sword(), 50, dodge, move.Modifiers{})
	assert.True(t, discounted.Hit)
	assert.Equal(t, 15.0, discounted.Degree)
	assert.Equal(t, move.Pass, discounted.Outcome)

	// equal outcomes favour the attacker but never below Marginal.
	tied := move.ResolveAttack(roller(70, 80), sword(), 50, dodge, move.Modifiers{})
	assert.True(t, tied.Hit)
	assert.Equal(t, -10.0, tied.Degree)
	assert.Equal(t, move.Marginal, tied.Outcome)

	// a failed defense does not discount.
	failed := move.ResolveAttack(roller(70, 20), sword(), 50, dodge, move.Modifiers{})
	assert.Equal(t, 20.0, failed.Degree)
	assert.Equal(t, move.Pass, failed.Outcome)
}

func TestBestDefense(t *testing.T) {
	atk := sword()
	opts := []move.DefenseOption{
		{Kind: move.DefenseBlock, Skill: 200},
		{Kind: move.DefenseParry, Skill: 58},
		{Kind: move.DefenseDodge, Skill: 55},
	}
	got, ok := move.BestDefense(atk, opts)
	require.True(t, ok)
	assert.Equal(t, move.DefenseDodge, got.Kind, "block is impossible; parry 58-60 < dodge 55-50")

	_, ok = move.BestDefense(atk, []move.DefenseOption{{Kind: move.DefenseBlock, Skill: 99}})
	assert.False(t, ok)
}

func TestRecoveryTicks(t *testing.T) {
	atk := sword()
	assert.Equal(t, 1+2, move.RecoveryTicks(atk, move.Pass))
	assert.Equal(t, 1+3, move.RecoveryTicks(atk, move.Fail))
}

func TestIntentions(t *testing.T) {
	in, err := move.ParseIntentions([]string{"Wound", "training", "trip"})
	require.NoError(t, err)
	assert.True(t, in.Has(move.IntentTraining|move.IntentTrip))
	assert.False(t, in.Any(move.IntentKill))
	assert.Equal(t, 3, in.Count())
	assert.Equal(t, "wound|trip|training", in.String())
	assert.NoError(t, in.Validate())
	assert.Error(t, move.Intention(1<<31).Validate())
	_, err = move.ParseIntention("maim")
	assert.Error(t, err)
}

func TestMoveType_Classification(t *testing.T) {
	assert.True(t, move.Strangle.IsGrapple())
	assert.True(t, move.Strangle.Strikes())
	assert.False(t, move.GrappleInitiate.Strikes())
	assert.True(t, move.RangedFire.IsRanged())
	assert.False(t, move.RangedAim.Strikes())
	assert.False(t, move.Rise.Strikes())
	assert.False(t, move.Rise.IsRanged())
	rise, err := move.ParseMoveType("rise")
	require.NoError(t, err)
	assert.Equal(t, move.Rise, rise)
	mt, err := move.ParseMoveType("Coup-de-Grace")
	require.NoError(t, err)
	assert.Equal(t, move.CoupDeGrace, mt)
	assert.True(t, mt.RequiresOpponentDown())
}

func TestGeometry(t *testing.T) {
	assert.True(t, move.AlignLeft.Matches(move.AlignAny))
	assert.False(t, move.AlignLeft.Matches(move.AlignRight))
	assert.True(t, move.OrientHigh.Matches(move.OrientHigh))
	assert.False(t, move.OrientHigh.Matches(move.OrientLow))
	assert.True(t, move.HandBoth.Satisfied(true, true))
	assert.False(t, move.HandBoth.Satisfied(true, false))
	a, err := move.ParseAlignment("center")
	require.NoError(t, err)
	assert.Equal(t, move.AlignCentre, a)
}

const catalogYAML = `
formulas:
  sword_cut: "strength * 0.5 + degree / 10"
attacks:
  - id: cut
    verb: cuts
    weapon: sword
    type: standard
    intentions: [wound]
    alignment: left
    orientation: high
    handedness: main
    attacker_difficulty: normal
    dodge_difficulty: normal
    parry_difficulty: easy
    block_difficulty: hard
    recovery_success: easy
    recovery_failure: hard
    stamina_cost: 2
    skill: blades
    damage_type: slashing
    damage: {formula: sword_cut}
    pain: "degree / 20"
  - id: spar
    verb: taps
    weapon: sword
    type: standard
    intentions: [training]
    damage_type: slashing
    damage: {formula: sword_cut}
    weight: 0.5
`

func TestCatalog_LoadDocument(t *testing.T) {
	doc, err := move.ParseDocument([]byte(catalogYAML))
	require.NoError(t, err)
	c := move.NewCatalog()
	require.NoError(t, c.Load(doc))
	assert.Equal(t, 2, c.Len())

	cut, ok := c.Attack("cut")
	require.True(t, ok)
	shared, _ := c.Formula("sword_cut")
	assert.Same(t, shared, cut.Damage)
	assert.Equal(t, "degree / 20", cut.Pain.Source())
	assert.Nil(t, cut.Stun)
	assert.Equal(t, damage.Slashing, cut.DamageType)
	assert.Equal(t, move.AlignLeft, cut.Alignment)
	assert.Equal(t, move.Easy, cut.ParryDifficulty)
	assert.Equal(t, move.DefaultWeight, cut.Weight)

	spar, _ := c.Attack("spar")
	assert.True(t, spar.IsTraining())
	assert.Equal(t, 0.5, spar.Weight)

	training := c.Filter(func(a *move.Attack) bool { return a.IsTraining() })
	assert.Len(t, training, 1)
	assert.Equal(t, []string{"sword_cut"}, c.FormulaIDs())
}

func TestCatalog_LoadIsAtomic(t *testing.T) {
	c := move.NewCatalog()
	doc := &move.Document{
		Formulas: map[string]string{"ok": "degree"},
		Attacks: []move.AttackDef{
			{ID: "good", Verb: "hits", Damage: move.FormulaRef{Ref: "ok"}},
			{ID: "bad", Verb: "hits", Damage: move.FormulaRef{Ref: "missing"}},
		},
	}
	err := c.Load(doc)
	require.Error(t, err)
	assert.True(t, errors.Is(err, fault.ErrConfig))
	assert.Equal(t, 0, c.Len())
	_, ok := c.Formula("ok")
	assert.False(t, ok)
}

func TestAttackDef_CompileRejects(t *testing.T) {
	cases := map[string]move.AttackDef{
		"no id":            {Verb: "hits", Damage: move.FormulaRef{Expr: "1"}},
		"no damage":        {ID: "a", Verb: "hits"},
		"unbound variable": {ID: "a", Verb: "hits", Damage: move.FormulaRef{Expr: "luck * 2"}},
		"both ref forms":   {ID: "a", Verb: "hits", Damage: move.FormulaRef{Ref: "x", Expr: "1"}},
		"bad intention":    {ID: "a", Verb: "hits", Damage: move.FormulaRef{Expr: "1"}, Intentions: move.Intention(1 << 30)},
		"ranged sans prof": {ID: "a", Verb: "shoots", Type: move.RangedFire, Damage: move.FormulaRef{Expr: "1"}},
		"negative stamina": {ID: "a", Verb: "hits", Damage: move.FormulaRef{Expr: "1"}, StaminaCost: -1},
	}
	for name, def := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := def.Compile(nil)
			require.Error(t, err)
			assert.ErrorIs(t, err, fault.ErrConfig)
		})
	}
}

func TestCatalog_RejectsDuplicates(t *testing.T) {
	c := move.NewCatalog()
	require.NoError(t, c.AddFormula("f", "1"))
	assert.ErrorIs(t, c.AddFormula("f", "2"), fault.ErrConfig)
	def := &move.AttackDef{ID: "a", Verb: "hits", Damage: move.FormulaRef{Expr: "1"}}
	require.NoError(t, c.AddAttack(def))
	assert.ErrorIs(t, c.AddAttack(def), fault.ErrConfig)
}
