package grapple

import (
	"context"
	"fmt"
	"sync"

	"github.com/cory-johannsen/melee/internal/game/dice"
	"github.com/cory-johannsen/melee/internal/game/fault"
	"github.com/cory-johannsen/melee/internal/game/move"
)

// Pairing is the skill matchup and difficulty of one transition's check. An
// empty OpponentSkill makes the check unopposed.
type Pairing struct {
	ActorSkill    string          `yaml:"actor_skill"`
	OpponentSkill string          `yaml:"opponent_skill"`
	Difficulty    move.Difficulty `yaml:"difficulty"`
}

// Rules holds the pairing for every transition.
type Rules map[Transition]Pairing

// DefaultRules returns the standard pairings. Breakout is staged by the depth
// of the hold it escapes.
func DefaultRules() Rules {
	return Rules{
		Initiate: {ActorSkill: "grapple", OpponentSkill: "grapple", Difficulty: move.Normal},
		Extend:   {ActorSkill: "grapple", OpponentSkill: "grapple", Difficulty: move.Hard},
		Loosen:   {ActorSkill: "grapple", Difficulty: move.Automatic},
		Breakout: {ActorSkill: "grapple", OpponentSkill: "grapple", Difficulty: move.VeryEasy},
		Counter:  {ActorSkill: "grapple", OpponentSkill: "grapple", Difficulty: move.Hard},
		Strangle: {ActorSkill: "strength", OpponentSkill: "endurance", Difficulty: move.Hard},
		Wrench:   {ActorSkill: "strength", OpponentSkill: "strength", Difficulty: move.VeryHard},
	}
}

// SkillFunc returns an actor's rating for a named skill.
type SkillFunc func(name string) float64

// Request is one attempted transition.
type Request struct {
	Actor          string
	Opponent       string
	Transition     Transition
	ActorSkills    SkillFunc
	OpponentSkills SkillFunc
	// Limb is the limb targeted by an Extend into LimbLocked.
	Limb      string
	Modifiers move.Modifiers
}

// Result records an attempted transition.
type Result struct {
	Transition Transition `json:"transition"`
	From       State      `json:"from"`
	To         State      `json:"to"`
	Check      move.Check `json:"check"`
	Success    bool       `json:"success"`
	Grappler   string     `json:"grappler"`
	Target     string     `json:"target"`
}

type pairKey struct{ a, b string }

func keyFor(x, y string) pairKey {
	if x > y {
		x, y = y, x
	}
	return pairKey{x, y}
}

// Registry owns every live grapple.
//
// Invariant: at most one Machine exists per unordered pair of actors.
// All methods are safe for concurrent use.
type Registry struct {
	mu       sync.Mutex
	rules    Rules
	machines map[pairKey]*Machine
}

// NewRegistry returns an empty Registry using rules. A nil rules uses
// DefaultRules.
func NewRegistry(rules Rules) *Registry {
	if rules == nil {
		rules = DefaultRules()
	}
	return &Registry{rules: rules, machines: make(map[pairKey]*Machine)}
}

// Get returns the grapple between a and b in either role.
func (r *Registry) Get(a, b string) (*Machine, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	m, ok := r.machines[keyFor(a, b)]
	return m, ok
}

// StateBetween returns the grapple state between a and b, Free if none.
func (r *Registry) StateBetween(a, b string) State {
	if m, ok := r.Get(a, b); ok {
		return m.State()
	}
	return Free
}

// HeldBy returns every grapple in which id is the target.
func (r *Registry) HeldBy(id string) []*Machine {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*Machine
	for _, m := range r.machines {
		if m.target == id {
			out = append(out, m)
		}
	}
	return out
}

// Len returns the number of live grapples.
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.machines)
}

// Release destroys every grapple involving id.
func (r *Registry) Release(id string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for k, m := range r.machines {
		if m.Involves(id) {
			delete(r.machines, k)
		}
	}
}

// Legal reports whether req.Actor may attempt req.Transition against
// req.Opponent from the current state. It rolls nothing.
func (r *Registry) Legal(req Request) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	_, err := r.legalLocked(req)
	return err
}

func (r *Registry) legalLocked(req Request) (*Machine, error) {
	if req.Actor == req.Opponent {
		return nil, fault.IllegalTransition("grapple", string(Free), string(req.Transition))
	}
	if _, ok := r.rules[req.Transition]; !ok {
		return nil, fmt.Errorf("grapple: unknown transition %q", req.Transition)
	}
	m, exists := r.machines[keyFor(req.Actor, req.Opponent)]
	if req.Transition == Initiate {
		if exists {
			return nil, fault.IllegalTransition("grapple", string(m.State()), string(req.Transition))
		}
		return nil, nil
	}
	if !exists {
		return nil, fault.IllegalTransition("grapple", string(Free), string(req.Transition))
	}
	wantActor := m.grappler
	if req.Transition.ByVictim() {
		wantActor = m.target
	}
	if req.Actor != wantActor || !m.can(req.Transition) {
		return nil, fault.IllegalTransition("grapple", string(m.State()), string(req.Transition))
	}
	return m, nil
}

// Attempt checks legality, rolls the transition's opposed check, and applies
// the transition on success.
//
// Precondition: roller must be non-nil; req.ActorSkills must be non-nil.
// Postcondition: returns a *fault.IllegalTransitionError without rolling or
// mutating anything when the transition is not legal. A failed check leaves
// state unchanged. Counter swaps grappler and target. Breakout destroys the
// grapple. Strangle may be repeated while Strangling. Loosen steps one level
// back out of any hold, so a Broken limb is let go into Grappled.
func (r *Registry) Attempt(ctx context.Context, roller *dice.Roller, req Request) (Result, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	m, err := r.legalLocked(req)
	if err != nil {
		return Result{}, err
	}
	res := Result{Transition: req.Transition, From: Free, To: Free}
	if m != nil {
		res.From, res.To = m.State(), m.State()
		res.Grappler, res.Target = m.grappler, m.target
	}

	p := r.rules[req.Transition]
	diff := p.Difficulty
	if req.Transition == Breakout {
		diff = diff.Stage(res.From.Depth() - 1)
	}
	actorSkill := req.ActorSkills(p.ActorSkill)
	opponentSkill := move.UnopposedSkill
	if p.OpponentSkill != "" && req.OpponentSkills != nil {
		opponentSkill = req.OpponentSkills(p.OpponentSkill)
	}
	res.Check = move.ResolveCheck(roller, "grapple:"+string(req.Transition), actorSkill, opponentSkill, diff, req.Modifiers)
	if !res.Check.Outcome.Success() {
		return res, nil
	}

	switch req.Transition {
	case Initiate:
		m = newMachine(req.Actor, req.Opponent)
		r.machines[keyFor(req.Actor, req.Opponent)] = m
	case Breakout:
		if err := m.fire(ctx, req.Transition); err != nil {
			return res, err
		}
		delete(r.machines, keyFor(req.Actor, req.Opponent))
		res.Success = true
		res.To = Free
		return res, nil
	default:
		if err := m.fire(ctx, req.Transition); err != nil {
			return res, err
		}
		switch {
		case req.Transition == Counter:
			m.grappler, m.target = m.target, m.grappler
			m.limb = ""
		case m.State() == LimbLocked && req.Transition == Extend:
			m.limb = req.Limb
		case m.State().Depth() < LimbLocked.Depth():
			m.limb = ""
		}
	}
	res.Success = true
	res.To = m.State()
	res.Grappler, res.Target = m.grappler, m.target
	return res, nil
}
