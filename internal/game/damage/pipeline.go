package damage

import (
	"go.uber.org/zap"

	"github.com/cory-johannsen/melee/internal/game/dice"
	"github.com/cory-johannsen/melee/internal/game/formula"
)

// LayerOutcome records what one layer did to a strike.
type LayerOutcome struct {
	LayerID        string  `json:"layer_id"`
	Index          int     `json:"index"`
	Type           Type    `json:"type"`
	In             Amounts `json:"in"`
	AfterDissipate Amounts `json:"after_dissipate"`
	Out            Amounts `json:"out"`
	Wear           float64 `json:"wear"`
	// Zeroed is set when the layer's zero-set or its dissipation reduced the
	// strike to nothing.
	Zeroed bool `json:"zeroed,omitempty"`
	// Stopped is set when the strike's penetration degree did not breach the
	// layer.
	Stopped  bool `json:"stopped,omitempty"`
	Bypassed bool `json:"bypassed,omitempty"`
}

// Result is the outcome of resolving one Event through a layer stack.
type Result struct {
	// Terminal is the residual reaching the body location beneath the stack.
	Terminal Amounts `json:"terminal"`
	// RawType is the event's type before any transform; FinalType after.
	RawType   Type           `json:"raw_type"`
	FinalType Type           `json:"final_type"`
	Layers    []LayerOutcome `json:"layers"`
}

// TotalWear sums the wear recorded across every layer.
func (r Result) TotalWear() float64 {
	var w float64
	for _, o := range r.Layers {
		w += o.Wear
	}
	return w
}

// Pipeline resolves strikes through ordered protective layers.
//
// A Pipeline holds no per-strike state and is safe for concurrent use so long
// as its WearPolicy is.
type Pipeline struct {
	wear   WearPolicy
	logger *zap.Logger
}

// NewPipeline creates a Pipeline.
//
// Precondition: logger must not be nil. A nil wear policy is replaced with
// NoWear.
func NewPipeline(wear WearPolicy, logger *zap.Logger) *Pipeline {
	if logger == nil {
		panic("damage.NewPipeline: logger must not be nil")
	}
	if wear == nil {
		wear = NoWear
	}
	return &Pipeline{wear: wear, logger: logger}
}

// Resolve passes ev through layers, outermost first, and returns the terminal
// residual together with a per-layer trace.
//
// Precondition: layers are ordered outermost first; src is the resolution's
// RNG handle.
// Postcondition: every Terminal component is >= 0. Kinds that bypass armour
// reach the terminus unmodified. Identical inputs and an identically seeded
// src yield an identical Result. Formula faults are substituted with 0 and
// logged; Resolve never returns an error.
func (p *Pipeline) Resolve(ev Event, layers []*Layer, quality float64, src dice.Source) Result {
	res := Result{RawType: ev.Type, FinalType: ev.Type}

	if ev.Type.BypassesArmour() {
		for i, l := range layers {
			res.Layers = append(res.Layers, LayerOutcome{
				LayerID:        l.ID,
				Index:          i,
				Type:           ev.Type,
				In:             ev.Amounts,
				AfterDissipate: ev.Amounts,
				Out:            ev.Amounts,
				Bypassed:       true,
			})
		}
		res.Terminal = ev.Amounts
		return res
	}

	if len(layers) > 0 {
		if to, ok := layers[0].TransformFor(ev.Type, ev.Severity); ok {
			p.logger.Debug("damage type transformed",
				zap.Stringer("from", ev.Type),
				zap.Stringer("to", to),
				zap.Stringer("severity", ev.Severity),
				zap.String("layer", layers[0].ID),
			)
			ev.Type = to
			res.FinalType = to
		}
	}

	cur := ev.Amounts.floor()
	for i, l := range layers {
		out := LayerOutcome{LayerID: l.ID, Index: i, Type: ev.Type, In: cur}

		if l.ZeroesOut(ev.Type) {
			out.Zeroed = true
			res.Layers = append(res.Layers, out)
			return res
		}

		dissipated := p.apply(&l.Dissipate, l, ev, cur, quality, src)
		out.AfterDissipate = dissipated
		if dissipated.Zero() {
			out.Zeroed = true
			res.Layers = append(res.Layers, out)
			return res
		}

		out.Wear = p.wear.Wear(src, l, ev.Type, dissipated, quality)

		if ev.Penetration < l.PenetrationRequirement(i) {
			out.Stopped = true
			res.Layers = append(res.Layers, out)
			return res
		}

		cur = p.apply(&l.Absorb, l, ev, dissipated, quality, src)
		out.Out = cur
		res.Layers = append(res.Layers, out)
		if cur.Zero() {
			return res
		}
	}
	res.Terminal = cur
	return res
}

// apply evaluates one expression set for every component of in.
//
// Postcondition: every component of the result is >= 0.
func (p *Pipeline) apply(set *ExpressionSet, l *Layer, ev Event, in Amounts, quality float64, src dice.Source) Amounts {
	vars := l.bindings(ev, in, quality)
	var out Amounts
	for _, c := range components {
		v := formula.Safe(set.For(c, ev.Type), vars, src, 0, p.logger)
		switch c {
		case ComponentDamage:
			out.Damage = v
		case ComponentPain:
			out.Pain = v
		case ComponentStun:
			out.Stun = v
		}
	}
	return out.floor()
}
