package damage

import "github.com/cory-johannsen/melee/internal/game/dice"

// WearPolicy decides how much a layer degrades when it absorbs a strike.
// The returned wear is recorded in the LayerOutcome; the engine accumulates
// it on the wearer's equipment. src is the resolving strike's RNG handle; a
// policy that draws randomness must draw it from src.
type WearPolicy interface {
	Wear(src dice.Source, layer *Layer, t Type, preAbsorb Amounts, quality float64) float64
}

// WearFunc adapts a function into a WearPolicy.
type WearFunc func(src dice.Source, layer *Layer, t Type, preAbsorb Amounts, quality float64) float64

// Wear implements WearPolicy.
func (f WearFunc) Wear(src dice.Source, layer *Layer, t Type, preAbsorb Amounts, quality float64) float64 {
	return f(src, layer, t, preAbsorb, quality)
}

// ProportionalWear wears a layer by Factor times the pre-absorb damage.
type ProportionalWear struct {
	Factor float64
}

// Wear implements WearPolicy.
//
// Postcondition: returns >= 0.
func (p ProportionalWear) Wear(_ dice.Source, _ *Layer, _ Type, preAbsorb Amounts, _ float64) float64 {
	w := p.Factor * preAbsorb.Damage
	if w < 0 {
		return 0
	}
	return w
}

// NoWear never degrades layers.
var NoWear WearPolicy = WearFunc(func(dice.Source, *Layer, Type, Amounts, float64) float64 { return 0 })
