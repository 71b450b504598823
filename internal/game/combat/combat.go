// Package combat resolves one combat move at a time for an ordered pair of
// actors: move selection, the opposed check, the damage pipeline and the
// secondary effects a move's intentions trigger.
package combat

import (
	"context"
	"errors"
	"fmt"

	"github.com/looplab/fsm"

	"github.com/cory-johannsen/melee/internal/game/fault"
)

// Phase is a state of the per-pair move cycle.
type Phase string

const (
	Idle         Phase = "idle"
	Selecting    Phase = "selecting"
	Checking     Phase = "checking"
	ResolvedHit  Phase = "resolved_hit"
	ResolvedMiss Phase = "resolved_miss"
	Recovering   Phase = "recovering"
)

const (
	evSelect  = "select"
	evCheck   = "check"
	evHit     = "hit"
	evMiss    = "miss"
	evRecover = "recover"
	evReady   = "ready"
	evCancel  = "cancel"
)

// Cycle drives one actor's resolution cycle against one opponent:
// Idle -> Selecting -> Checking -> ResolvedHit|ResolvedMiss -> Recovering -> Idle.
// A cycle has no terminal state.
//
// Invariant: a Cycle is only touched while its actor's lock is held.
type Cycle struct {
	actor    string
	opponent string
	fsm      *fsm.FSM
}

func newCycle(actor, opponent string) *Cycle {
	return &Cycle{
		actor:    actor,
		opponent: opponent,
		fsm: fsm.NewFSM(string(Idle), fsm.Events{
			{Name: evSelect, Src: []string{string(Idle)}, Dst: string(Selecting)},
			{Name: evCheck, Src: []string{string(Selecting)}, Dst: string(Checking)},
			{Name: evHit, Src: []string{string(Checking)}, Dst: string(ResolvedHit)},
			{Name: evMiss, Src: []string{string(Checking)}, Dst: string(ResolvedMiss)},
			{Name: evRecover, Src: []string{string(ResolvedHit), string(ResolvedMiss)}, Dst: string(Recovering)},
			{Name: evReady, Src: []string{string(Recovering)}, Dst: string(Idle)},
			{Name: evCancel, Src: []string{string(Selecting)}, Dst: string(Idle)},
		}, fsm.Callbacks{}),
	}
}

// Phase returns the current phase.
func (c *Cycle) Phase() Phase { return Phase(c.fsm.Current()) }

// Actor returns the acting actor's ID.
func (c *Cycle) Actor() string { return c.actor }

// Opponent returns the opponent's ID.
func (c *Cycle) Opponent() string { return c.opponent }

func (c *Cycle) fire(ctx context.Context, event string) error {
	if !c.fsm.Can(event) {
		return fault.IllegalTransition("combat", c.fsm.Current(), event)
	}
	if err := c.fsm.Event(ctx, event); err != nil {
		var noop fsm.NoTransitionError
		if errors.As(err, &noop) {
			return nil
		}
		return fmt.Errorf("combat %s: %w", event, err)
	}
	return nil
}

// cancel returns a Selecting cycle to Idle. A cycle past Selecting cannot be
// cancelled.
func (c *Cycle) cancel(ctx context.Context) error {
	return c.fire(ctx, evCancel)
}

type pairKey struct{ actor, opponent string }
