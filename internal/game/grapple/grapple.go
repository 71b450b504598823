// Package grapple implements the nested grapple state machine that exists
// between two actors while one holds the other.
//
// Every transition is an opposed check. A transition that is not legal from
// the current state is rejected before any roll, so nothing is mutated.
package grapple

import (
	"context"
	"errors"
	"fmt"

	"github.com/looplab/fsm"

	"github.com/cory-johannsen/melee/internal/game/move"
)

// State is a grapple state.
type State string

const (
	Free       State = "free"
	Clinched   State = "clinched"
	Grappled   State = "grappled"
	LimbLocked State = "limb_locked"
	Strangling State = "strangling"
	Broken     State = "broken"
)

// Depth orders the holding states; Free is 0.
func (s State) Depth() int {
	switch s {
	case Clinched:
		return 1
	case Grappled:
		return 2
	case LimbLocked, Broken:
		return 3
	case Strangling:
		return 4
	default:
		return 0
	}
}

// Transition names a grapple event.
type Transition string

const (
	Initiate Transition = "initiate"
	Extend   Transition = "extend"
	Loosen   Transition = "loosen"
	Breakout Transition = "breakout"
	Counter  Transition = "counter"
	Strangle Transition = "strangle"
	Wrench   Transition = "wrench"
)

// Transitions lists every transition.
var Transitions = []Transition{Initiate, Extend, Loosen, Breakout, Counter, Strangle, Wrench}

// ByVictim reports whether the held actor, not the grappler, attempts t.
func (t Transition) ByVictim() bool { return t == Breakout || t == Counter }

// TransitionFor maps a grapple move type onto its transition.
func TransitionFor(t move.MoveType) (Transition, bool) {
	switch t {
	case move.Clinch, move.GrappleInitiate:
		return Initiate, true
	case move.GrappleExtend:
		return Extend, true
	case move.GrappleLoosen:
		return Loosen, true
	case move.GrappleBreak:
		return Breakout, true
	case move.GrappleCounter:
		return Counter, true
	case move.Strangle:
		return Strangle, true
	case move.Wrench:
		return Wrench, true
	}
	return "", false
}

var holding = []string{string(Clinched), string(Grappled), string(LimbLocked), string(Strangling), string(Broken)}

func events() fsm.Events {
	return fsm.Events{
		{Name: string(Extend), Src: []string{string(Clinched)}, Dst: string(Grappled)},
		{Name: string(Extend), Src: []string{string(Grappled)}, Dst: string(LimbLocked)},
		{Name: string(Loosen), Src: []string{string(Grappled)}, Dst: string(Clinched)},
		{Name: string(Loosen), Src: []string{string(LimbLocked), string(Broken)}, Dst: string(Grappled)},
		{Name: string(Loosen), Src: []string{string(Strangling)}, Dst: string(LimbLocked)},
		{Name: string(Breakout), Src: holding, Dst: string(Free)},
		{Name: string(Counter), Src: []string{string(Clinched), string(Grappled), string(LimbLocked)}, Dst: string(Grappled)},
		{Name: string(Strangle), Src: []string{string(LimbLocked), string(Strangling)}, Dst: string(Strangling)},
		{Name: string(Wrench), Src: []string{string(LimbLocked)}, Dst: string(Broken)},
	}
}

// Machine is the grapple between one grappler and one target. It is created
// Clinched by a successful Initiate and destroyed by Breakout or by the end
// of combat.
type Machine struct {
	grappler string
	target   string
	limb     string
	fsm      *fsm.FSM
}

func newMachine(grappler, target string) *Machine {
	return &Machine{
		grappler: grappler,
		target:   target,
		fsm:      fsm.NewFSM(string(Clinched), events(), fsm.Callbacks{}),
	}
}

// State returns the current state.
func (m *Machine) State() State { return State(m.fsm.Current()) }

// Grappler returns the holding actor's ID.
func (m *Machine) Grappler() string { return m.grappler }

// Target returns the held actor's ID.
func (m *Machine) Target() string { return m.target }

// Limb returns the locked limb while LimbLocked, Strangling or Broken. It is
// cleared when the hold loosens back to Grappled.
func (m *Machine) Limb() string { return m.limb }

// Involves reports whether id is either party.
func (m *Machine) Involves(id string) bool { return m.grappler == id || m.target == id }

// can reports whether t is legal from the current state.
func (m *Machine) can(t Transition) bool { return m.fsm.Can(string(t)) }

// fire performs t. A transition whose destination equals the current state
// is not an error.
func (m *Machine) fire(ctx context.Context, t Transition) error {
	err := m.fsm.Event(ctx, string(t))
	var noop fsm.NoTransitionError
	if errors.As(err, &noop) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("grapple %s: %w", t, err)
	}
	return nil
}
