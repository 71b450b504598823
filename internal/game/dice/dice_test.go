package dice_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"pgregory.net/rapid"

	"github.com/cory-johannsen/melee/internal/game/dice"
)

// TestPercentile_Margin verifies the postcondition: Margin() == Roll + Bonus - Target.
func TestPercentile_Margin(t *testing.T) {
	p := dice.Percentile{Roll: 57, Bonus: 45, Target: 100}
	assert.Equal(t, 102.0, p.Total())
	assert.Equal(t, 2.0, p.Margin())
	assert.Equal(t, "d100 57 +45.0 vs 100.0 = +2.0", p.String())
}

func TestCryptoSource_Intn_InRange(t *testing.T) {
	src := dice.NewCryptoSource()
	for i := 0; i < 1000; i++ {
		v := src.Intn(6)
		assert.GreaterOrEqual(t, v, 0)
		assert.Less(t, v, 6)
	}
}

func TestCryptoSource_Float64_InRange(t *testing.T) {
	src := dice.NewCryptoSource()
	for i := 0; i < 1000; i++ {
		v := src.Float64()
		assert.GreaterOrEqual(t, v, 0.0)
		assert.Less(t, v, 1.0)
	}
}

func TestCryptoSource_Intn_PanicsOnZero(t *testing.T) {
	src := dice.NewCryptoSource()
	assert.Panics(t, func() { src.Intn(0) })
}

func TestSeededSource_SameSeedSameStream(t *testing.T) {
	rapid.Check(t, func(rt *rapid.T) {
		seed := rapid.Uint64().Draw(rt, "seed")
		a := dice.NewSeededSource(seed)
		b := dice.NewSeededSource(seed)
		for i := 0; i < 20; i++ {
			require.Equal(rt, a.Intn(100), b.Intn(100))
			require.Equal(rt, a.Float64(), b.Float64())
		}
	})
}

func TestDeriveSeed_Deterministic(t *testing.T) {
	a := dice.DeriveSeed(42, "actor-1", "7")
	b := dice.DeriveSeed(42, "actor-1", "7")
	c := dice.DeriveSeed(42, "actor-2", "7")
	assert.Equal(t, a, b)
	assert.NotEqual(t, a, c)
	// Key boundaries matter: ("ab","c") must not collide with ("a","bc").
	assert.NotEqual(t, dice.DeriveSeed(1, "ab", "c"), dice.DeriveSeed(1, "a", "bc"))
}

func TestRoller_Percentile_InRange(t *testing.T) {
	r := dice.NewLoggedRoller(dice.NewSeededSource(1), zap.NewNop())
	for i := 0; i < 500; i++ {
		p := r.Percentile("test", 10, 50)
		assert.GreaterOrEqual(t, p.Roll, 1)
		assert.LessOrEqual(t, p.Roll, 100)
	}
}

func TestUniform_Property(t *testing.T) {
	rapid.Check(t, func(rt *rapid.T) {
		lo := rapid.Float64Range(-100, 100).Draw(rt, "lo")
		width := rapid.Float64Range(0.001, 100).Draw(rt, "width")
		v := dice.Uniform(dice.NewSeededSource(rapid.Uint64().Draw(rt, "seed")), lo, lo+width)
		assert.GreaterOrEqual(rt, v, lo)
		assert.Less(rt, v, lo+width)
	})
}

func TestUniform_DegenerateRange(t *testing.T) {
	assert.Equal(t, 5.0, dice.Uniform(dice.NewSeededSource(1), 5, 5))
	assert.Equal(t, 5.0, dice.Uniform(dice.NewSeededSource(1), 5, 1))
}

func TestWeightedIndex(t *testing.T) {
	src := dice.NewSeededSource(3)
	assert.Equal(t, -1, dice.WeightedIndex(src, nil))
	assert.Equal(t, -1, dice.WeightedIndex(src, []float64{0, -1}))
	for i := 0; i < 100; i++ {
		assert.Equal(t, 1, dice.WeightedIndex(src, []float64{0, 3, 0}))
	}
	counts := make([]int, 2)
	for i := 0; i < 2000; i++ {
		counts[dice.WeightedIndex(src, []float64{1, 3})]++
	}
	assert.Greater(t, counts[1], counts[0])
}
