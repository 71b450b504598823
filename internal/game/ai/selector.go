package ai

import (
	lua "github.com/yuin/gopher-lua"
	"go.uber.org/zap"

	"github.com/cory-johannsen/melee/internal/game/dice"
	"github.com/cory-johannsen/melee/internal/game/fault"
	"github.com/cory-johannsen/melee/internal/game/move"
)

// ScriptCaller evaluates strategy eligibility hooks.
type ScriptCaller interface {
	// CallHook calls a named Lua function in the given scope's VM.
	// Returns (LNil, nil) if the function is not defined.
	// engine.dice inside the hook draws from src.
	CallHook(src dice.Source, scope, hook string, args ...lua.LValue) (lua.LValue, error)
}

// HookScope is the script scope eligibility hooks are resolved in.
const HookScope = "strategy"

// PreferredFactor multiplies the weight of a move carrying a preferred
// intention or matching the preferred hand.
const PreferredFactor = 2.0

// Candidate is an eligible move with its final selection weight.
type Candidate struct {
	Attack *move.Attack
	Weight float64
}

// Selector picks moves for actors. It holds no per-actor state and is safe
// for concurrent use when its ScriptCaller is.
type Selector struct {
	caller ScriptCaller
	logger *zap.Logger
}

// NewSelector creates a Selector. caller may be nil when no profile uses an
// eligibility hook.
//
// Precondition: logger must not be nil.
func NewSelector(caller ScriptCaller, logger *zap.Logger) *Selector {
	if logger == nil {
		panic("ai.NewSelector: logger must not be nil")
	}
	return &Selector{caller: caller, logger: logger}
}

// Eligible returns every move in moves that is legal in sit and permitted by
// p, with its selection weight. Moves weighted to zero are omitted. src is
// handed to the eligibility hook.
//
// Precondition: p and sit must not be nil.
func (s *Selector) Eligible(p *Profile, sit *Situation, moves []*move.Attack, src dice.Source) []Candidate {
	var out []Candidate
	held := sit.Held()
	respondWith := s.grappleResponses(p, sit, moves)
	for _, atk := range moves {
		if !sit.Legal(atk) || !s.permitted(p, sit, atk) {
			continue
		}
		if held && respondWith != nil && !respondWith[atk.Type] {
			continue
		}
		w := atk.Weight * s.classWeight(p, atk)
		if atk.Intentions.Any(p.Preferred) {
			w *= PreferredFactor
		}
		if p.PreferredHand != move.HandAny && atk.Handedness == p.PreferredHand {
			w *= PreferredFactor
		}
		switch {
		case atk.Type == move.Rise:
			w *= PreferredFactor
		case p.Pursuit == PursuitPursue && atk.Type == move.Charge:
			w *= PreferredFactor
		case p.Pursuit == PursuitWithdraw && atk.Type == move.RangedAim:
			w *= PreferredFactor
		}
		if w <= 0 {
			continue
		}
		if !s.hookAllows(p, sit, atk, src) {
			continue
		}
		out = append(out, Candidate{Attack: atk, Weight: w})
	}
	return out
}

// Select draws one eligible move by weight.
//
// Postcondition: returns fault.ErrNoLegalMove when nothing is eligible.
func (s *Selector) Select(p *Profile, sit *Situation, moves []*move.Attack, src dice.Source) (*move.Attack, error) {
	cands := s.Eligible(p, sit, moves, src)
	weights := make([]float64, len(cands))
	for i, c := range cands {
		weights[i] = c.Weight
	}
	i := dice.WeightedIndex(src, weights)
	if i < 0 {
		s.logger.Debug("no legal move",
			zap.String("actor", sit.Actor.ID),
			zap.String("strategy", p.ID),
			zap.Int64("tick", sit.Tick),
		)
		return nil, fault.ErrNoLegalMove
	}
	return cands[i].Attack, nil
}

// permitted applies the profile's hard filters.
func (s *Selector) permitted(p *Profile, sit *Situation, atk *move.Attack) bool {
	if atk.Intentions.Any(p.Forbidden) {
		return false
	}
	if atk.StaminaCost > 0 && sit.Actor.Stamina-atk.StaminaCost < p.MinimumStamina {
		return false
	}
	switch p.Mode {
	case ModeMelee:
		if atk.Type.IsRanged() {
			return false
		}
	case ModeRanged:
		if !atk.Type.IsRanged() && !atk.Type.IsGrapple() && atk.Type != move.Rise && sit.Ranged != nil {
			return false
		}
	}
	if p.Pursuit == PursuitWithdraw && (atk.Type == move.Charge || atk.Type == move.Clinch || atk.Type == move.GrappleInitiate) {
		return false
	}
	if atk.Type == move.RangedFire && sit.Ranged != nil && sit.Ranged.Aim < p.MinimumAim && sit.Ranged.CanAim {
		return false
	}
	return true
}

// grappleResponses returns the move types a held actor restricts itself to,
// or nil for no restriction. A response with no legal move falls back to no
// restriction.
func (s *Selector) grappleResponses(p *Profile, sit *Situation, moves []*move.Attack) map[move.MoveType]bool {
	if !sit.Held() {
		return nil
	}
	var want map[move.MoveType]bool
	switch p.GrappleResponse {
	case RespondBreakout:
		want = map[move.MoveType]bool{move.GrappleBreak: true}
	case RespondCounter:
		want = map[move.MoveType]bool{move.GrappleCounter: true, move.GrappleBreak: true}
	case RespondStrike:
		want = make(map[move.MoveType]bool)
		for _, atk := range moves {
			if atk.Type.Strikes() && !atk.Type.IsGrapple() {
				want[atk.Type] = true
			}
		}
	default:
		return nil
	}
	for _, atk := range moves {
		if want[atk.Type] && sit.Legal(atk) && s.permitted(p, sit, atk) {
			return want
		}
	}
	return nil
}

func (s *Selector) classWeight(p *Profile, atk *move.Attack) float64 {
	switch {
	case atk.Type == move.Rise:
		return 1
	case !atk.Type.Strikes():
		return p.AuxiliaryWeight
	case atk.Natural:
		return p.NaturalWeight
	default:
		return p.WeaponWeight
	}
}

// hookAllows consults the profile's eligibility hook. A missing caller, an
// undefined hook, or a script error allows the move.
func (s *Selector) hookAllows(p *Profile, sit *Situation, atk *move.Attack, src dice.Source) bool {
	if p.EligibilityHook == "" || s.caller == nil {
		return true
	}
	ret, err := s.caller.CallHook(src, HookScope, p.EligibilityHook,
		lua.LString(sit.Actor.ID),
		lua.LString(sit.Opponent.ID),
		lua.LString(atk.ID),
		lua.LString(atk.Type.String()),
		lua.LNumber(sit.Actor.Stamina),
		lua.LNumber(sit.Tick),
	)
	if err != nil {
		s.logger.Warn("eligibility hook failed",
			zap.String("strategy", p.ID),
			zap.String("hook", p.EligibilityHook),
			zap.Error(err),
		)
		return true
	}
	return ret != lua.LFalse
}
