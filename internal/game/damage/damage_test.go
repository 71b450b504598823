package damage_test

import (
	"errors"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
	"pgregory.net/rapid"

	"github.com/cory-johannsen/melee/internal/game/damage"
	"github.com/cory-johannsen/melee/internal/game/dice"
	"github.com/cory-johannsen/melee/internal/game/fault"
	"github.com/cory-johannsen/melee/internal/game/formula"
)

func halving(id string) *damage.Layer {
	l := &damage.Layer{ID: id, Name: id}
	l.Absorb.SetDefault(damage.ComponentDamage, formula.MustParse("damage * 0.5"))
	return l
}

func newPipeline() *damage.Pipeline {
	return damage.NewPipeline(damage.NoWear, zap.NewNop())
}

func TestParseType_IgnoresCaseAndSeparators(t *testing.T) {
	for _, s := range []string{"ArmourPiercing", "armour_piercing", "ARMOUR-PIERCING", "armour piercing"} {
		got, err := damage.ParseType(s)
		require.NoError(t, err, s)
		assert.Equal(t, damage.ArmourPiercing, got)
	}
	_, err := damage.ParseType("radiant")
	assert.Error(t, err)
}

func TestType_Classification(t *testing.T) {
	assert.Len(t, damage.AllTypes(), 23)
	for _, ty := range damage.AllTypes() {
		assert.Equal(t, ty == damage.Hypoxia || ty == damage.Cellular, ty.BypassesArmour(), ty.String())
	}
	assert.False(t, damage.NonLethalFallback.Lethal())
	assert.True(t, damage.Slashing.Lethal())
}

func TestSeverityFor_Monotonic(t *testing.T) {
	rapid.Check(t, func(rt *rapid.T) {
		a := rapid.Float64Range(-10, 100).Draw(rt, "a")
		b := rapid.Float64Range(-10, 100).Draw(rt, "b")
		if a > b {
			a, b = b, a
		}
		assert.LessOrEqual(rt, damage.SeverityFor(a), damage.SeverityFor(b))
	})
	assert.Equal(t, damage.SeverityNone, damage.SeverityFor(0))
	assert.Equal(t, damage.SeveritySmall, damage.SeverityFor(5))
	assert.Equal(t, damage.SeverityHorrifying, damage.SeverityFor(500))
}

func TestResolve_NoLayers_TerminalIsRaw(t *testing.T) {
	ev := damage.NewEvent(damage.Slashing, damage.Amounts{Damage: 8, Pain: 3, Stun: 1}, 0, 0)
	res := newPipeline().Resolve(ev, nil, 5, dice.NewSeededSource(1))
	assert.Equal(t, ev.Amounts, res.Terminal)
	assert.Empty(t, res.Layers)
}

func TestResolve_AbsorbHalvesDamage(t *testing.T) {
	ev := damage.NewEvent(damage.Slashing, damage.Amounts{Damage: 10, Pain: 4}, 0, 0)
	res := newPipeline().Resolve(ev, []*damage.Layer{halving("plate"), halving("flesh")}, 5, dice.NewSeededSource(1))
	assert.InDelta(t, 2.5, res.Terminal.Damage, 1e-9)
	assert.InDelta(t, 4, res.Terminal.Pain, 1e-9, "unconfigured components pass through")
	require.Len(t, res.Layers, 2)
	assert.InDelta(t, 5, res.Layers[0].Out.Damage, 1e-9)
}

func TestResolve_EveryKindResolves(t *testing.T) {
	outer := halving("outer")
	outer.Dissipate.Set(damage.ComponentDamage, damage.Burning, formula.MustParse("damage - thermal"))
	outer.Material.Thermal = 2
	stack := []*damage.Layer{outer, {ID: "bare", Name: "bare"}}
	p := newPipeline()
	for _, ty := range damage.AllTypes() {
		for _, c := range []damage.Component{damage.ComponentDamage, damage.ComponentPain, damage.ComponentStun} {
			assert.NotNil(t, outer.Dissipate.For(c, ty))
			assert.NotNil(t, outer.Absorb.For(c, ty))
		}
		ev := damage.NewEvent(ty, damage.Amounts{Damage: 12, Pain: 6, Stun: 2}, 0.3, 0)
		var res damage.Result
		require.NotPanics(t, func() { res = p.Resolve(ev, stack, 5, dice.NewSeededSource(7)) }, ty.String())
		assert.False(t, math.IsNaN(res.Terminal.Damage), ty.String())
		assert.Greater(t, res.Terminal.Damage, 0.0, ty.String())
	}
}

func TestResolve_BypassKindsReachTerminusUnmodified(t *testing.T) {
	rapid.Check(t, func(rt *rapid.T) {
		ty := rapid.SampledFrom([]damage.Type{damage.Hypoxia, damage.Cellular}).Draw(rt, "type")
		n := rapid.IntRange(0, 5).Draw(rt, "layers")
		var stack []*damage.Layer
		for i := 0; i < n; i++ {
			l := halving("l")
			l.MinimumPenetrationDegree = rapid.IntRange(0, 10).Draw(rt, "minpen")
			if rapid.Bool().Draw(rt, "zero") {
				l.Zero = map[damage.Type]struct{}{ty: {}}
			}
			l.Dissipate.SetDefault(damage.ComponentDamage, formula.MustParse("damage - 100"))
			stack = append(stack, l)
		}
		raw := damage.Amounts{
			Damage: rapid.Float64Range(0, 50).Draw(rt, "damage"),
			Pain:   rapid.Float64Range(0, 50).Draw(rt, "pain"),
			Stun:   rapid.Float64Range(0, 50).Draw(rt, "stun"),
		}
		res := newPipeline().Resolve(damage.NewEvent(ty, raw, 0, 0), stack, 5, dice.NewSeededSource(1))
		assert.Equal(rt, raw, res.Terminal)
		for _, o := range res.Layers {
			assert.True(rt, o.Bypassed)
		}
	})
}

func TestResolve_IdempotentUnderSameSeed(t *testing.T) {
	l := &damage.Layer{ID: "mail", Name: "mail"}
	l.Absorb.SetDefault(damage.ComponentDamage, formula.MustParse("damage * rand(0.2, 0.9)"))
	l.Absorb.SetDefault(damage.ComponentPain, formula.MustParse("pain - dice(1, 4)"))
	stack := []*damage.Layer{l, halving("flesh")}
	p := newPipeline()
	rapid.Check(t, func(rt *rapid.T) {
		seed := rapid.Uint64().Draw(rt, "seed")
		ev := damage.NewEvent(damage.Piercing, damage.Amounts{Damage: 20, Pain: 10}, 0, 0)
		a := p.Resolve(ev, stack, 5, dice.NewSeededSource(seed))
		b := p.Resolve(ev, stack, 5, dice.NewSeededSource(seed))
		assert.Equal(rt, a, b)
	})
}

func TestResolve_ZeroSetTerminatesAtLayer(t *testing.T) {
	mid := halving("mid")
	mid.Zero = map[damage.Type]struct{}{damage.ArmourPiercing: {}}
	stack := []*damage.Layer{halving("outer"), mid, halving("inner")}
	ev := damage.NewEvent(damage.ArmourPiercing, damage.Amounts{Damage: 10, Pain: 5, Stun: 5}, 0, 10)

	res := newPipeline().Resolve(ev, stack, 5, dice.NewSeededSource(1))

	assert.Equal(t, damage.Amounts{}, res.Terminal)
	require.Len(t, res.Layers, 2, "no outcome recorded for layers inside the zeroing layer")
	assert.True(t, res.Layers[1].Zeroed)
	assert.Equal(t, "mid", res.Layers[1].LayerID)
}

func TestResolve_DissipateToZeroTerminates(t *testing.T) {
	l := &damage.Layer{ID: "shield", Name: "shield"}
	l.Dissipate.SetDefault(damage.ComponentDamage, formula.MustParse("damage - 50"))
	l.Dissipate.SetDefault(damage.ComponentPain, formula.MustParse("0"))
	l.Dissipate.SetDefault(damage.ComponentStun, formula.MustParse("-1"))
	res := newPipeline().Resolve(
		damage.NewEvent(damage.Crushing, damage.Amounts{Damage: 10, Pain: 5, Stun: 5}, 0, 0),
		[]*damage.Layer{l, halving("inner")}, 5, dice.NewSeededSource(1))
	assert.Equal(t, damage.Amounts{}, res.Terminal)
	require.Len(t, res.Layers, 1)
	assert.True(t, res.Layers[0].Zeroed)
}

func TestResolve_TransformAppliesBelowSeverityThreshold(t *testing.T) {
	outer := halving("padding")
	outer.Transforms = []damage.Transform{{From: damage.Slashing, To: damage.Crushing, MaxSeverity: damage.SeverityModerate}}
	p := newPipeline()

	light := p.Resolve(damage.NewEvent(damage.Slashing, damage.Amounts{Damage: 5}, 0, 0), []*damage.Layer{outer}, 5, dice.NewSeededSource(1))
	assert.Equal(t, damage.Slashing, light.RawType)
	assert.Equal(t, damage.Crushing, light.FinalType)

	heavy := p.Resolve(damage.NewEvent(damage.Slashing, damage.Amounts{Damage: 30}, 0, 0), []*damage.Layer{outer}, 5, dice.NewSeededSource(1))
	assert.Equal(t, damage.Slashing, heavy.FinalType)
}

func TestResolve_PenetrationBelowRequirementIsStopped(t *testing.T) {
	outer := halving("outer")
	inner := halving("inner")
	inner.BaseDifficultyDegrees = 1
	inner.StackedDifficultyDegrees = 2
	stack := []*damage.Layer{outer, inner}
	p := damage.NewPipeline(damage.ProportionalWear{Factor: 0.1}, zap.NewNop())

	// inner sits at depth 1: requirement is 1 + 2*1 = 3.
	stopped := p.Resolve(damage.NewEvent(damage.Piercing, damage.Amounts{Damage: 20}, 0, 2), stack, 5, dice.NewSeededSource(1))
	assert.Equal(t, damage.Amounts{}, stopped.Terminal)
	require.Len(t, stopped.Layers, 2)
	assert.True(t, stopped.Layers[1].Stopped)
	assert.InDelta(t, 1.0, stopped.Layers[1].Wear, 1e-9)
	assert.InDelta(t, 3.0, stopped.TotalWear(), 1e-9)

	through := p.Resolve(damage.NewEvent(damage.Piercing, damage.Amounts{Damage: 20}, 0, 3), stack, 5, dice.NewSeededSource(1))
	assert.InDelta(t, 5, through.Terminal.Damage, 1e-9)
}

func TestResolve_FormulaFaultSubstitutesZeroAndLogs(t *testing.T) {
	core, logs := observer.New(zapcore.WarnLevel)
	l := &damage.Layer{ID: "brittle", Name: "brittle"}
	l.Absorb.SetDefault(damage.ComponentDamage, formula.MustParse("damage / (quality - quality) + 1"))
	p := damage.NewPipeline(damage.NoWear, zap.New(core))

	res := p.Resolve(damage.NewEvent(damage.Chopping, damage.Amounts{Damage: 10}, 0, 0), []*damage.Layer{l}, 5, dice.NewSeededSource(1))

	assert.InDelta(t, 1, res.Terminal.Damage, 1e-9)
	assert.Equal(t, 1, logs.Len())
}

func TestProportionalWear_NeverNegative(t *testing.T) {
	rapid.Check(t, func(rt *rapid.T) {
		w := damage.ProportionalWear{Factor: rapid.Float64Range(-1, 1).Draw(rt, "factor")}
		got := w.Wear(nil, nil, damage.Slashing, damage.Amounts{Damage: rapid.Float64Range(0, 100).Draw(rt, "d")}, 5)
		assert.GreaterOrEqual(rt, got, 0.0)
	})
}

const leatherYAML = `
id: leather_jerkin
name: Leather Jerkin
covers: [torso, left_arm, right_arm]
layers:
  - id: leather
    name: boiled leather
    minimum_penetration_degree: 0
    base_difficulty_degrees: 0
    stacked_difficulty_degrees: 1
    material: {density: 0.9, organic: 1, strength: 3}
    transforms:
      - {from: slashing, to: crushing, max_severity: minor}
    zero: [sonic]
    dissipate:
      damage:
        "*": "damage - strength * quality / 11"
    absorb:
      damage:
        piercing: "damage * 0.8"
        "*": "damage * 0.6"
      pain:
        "*": "pain * 0.9"
`

func TestParseArmour(t *testing.T) {
	a, err := damage.ParseArmour([]byte(leatherYAML))
	require.NoError(t, err)
	assert.Equal(t, "leather_jerkin", a.ID)
	assert.True(t, a.CoversLocation("torso"))
	assert.False(t, a.CoversLocation("head"))
	require.Len(t, a.Layers, 1)
	l := a.Layers[0]
	assert.True(t, l.ZeroesOut(damage.Sonic))
	assert.Equal(t, "damage * 0.8", l.Absorb.For(damage.ComponentDamage, damage.Piercing).Source())
	assert.Equal(t, "damage * 0.6", l.Absorb.For(damage.ComponentDamage, damage.Bite).Source())
	assert.Equal(t, "stun", l.Absorb.For(damage.ComponentStun, damage.Bite).Source())
	to, ok := l.TransformFor(damage.Slashing, damage.SeverityMinor)
	assert.True(t, ok)
	assert.Equal(t, damage.Crushing, to)
}

func TestParseArmour_Rejects(t *testing.T) {
	cases := map[string]string{
		"unknown field":    "id: x\nname: x\nbogus: 1\nlayers: [{id: a, name: a}]\n",
		"no layers":        "id: x\nname: x\n",
		"bad expression":   "id: x\nlayers: [{id: a, name: a, absorb: {damage: {'*': 'damage *'}}}]\n",
		"unbound variable": "id: x\nlayers: [{id: a, name: a, absorb: {damage: {'*': 'damage * luck'}}}]\n",
		"unknown type":     "id: x\nlayers: [{id: a, name: a, zero: [radiant]}]\n",
		"negative degree":  "id: x\nlayers: [{id: a, name: a, minimum_penetration_degree: -1}]\n",
	}
	for name, doc := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := damage.ParseArmour([]byte(doc))
			require.Error(t, err)
			assert.True(t, errors.Is(err, fault.ErrConfig))
		})
	}
}
