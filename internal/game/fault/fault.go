// Package fault defines the error taxonomy shared by the combat engine.
//
// ConfigError is fatal at load time. IllegalTransition and NoLegalMove are
// routine, non-fatal outcomes of a single tick.
package fault

import (
	"errors"
	"fmt"
)

// ErrIllegalTransition is matched by every IllegalTransitionError.
var ErrIllegalTransition = errors.New("illegal state transition")

// ErrNoLegalMove is returned when the strategy selector finds no eligible move.
// The actor forfeits the tick.
var ErrNoLegalMove = errors.New("no legal move")

// ErrConfig is matched by every ConfigError.
var ErrConfig = errors.New("invalid configuration")

// ConfigError reports a malformed or incomplete entity discovered at load time.
type ConfigError struct {
	Kind string // entity kind, e.g. "layer", "attack", "strategy"
	ID   string // entity ID, may be empty when the ID itself is missing
	Err  error
}

// Error implements error.
func (e *ConfigError) Error() string {
	if e.ID == "" {
		return fmt.Sprintf("%s: %v", e.Kind, e.Err)
	}
	return fmt.Sprintf("%s %q: %v", e.Kind, e.ID, e.Err)
}

// Unwrap returns the underlying cause.
func (e *ConfigError) Unwrap() error { return e.Err }

// Is reports whether target is ErrConfig.
func (e *ConfigError) Is(target error) bool { return target == ErrConfig }

// NewConfigError wraps err as a ConfigError for the given entity.
func NewConfigError(kind, id string, err error) *ConfigError {
	return &ConfigError{Kind: kind, ID: id, Err: err}
}

// IllegalTransitionError reports a rejected state machine transition. No
// state was mutated.
type IllegalTransitionError struct {
	Machine string // "grapple", "ranged", "move"
	State   string
	Event   string
}

// Error implements error.
func (e *IllegalTransitionError) Error() string {
	return fmt.Sprintf("%s: event %q is not valid from state %q", e.Machine, e.Event, e.State)
}

// Is reports whether target is ErrIllegalTransition.
func (e *IllegalTransitionError) Is(target error) bool { return target == ErrIllegalTransition }

// IllegalTransition constructs an IllegalTransitionError.
func IllegalTransition(machine, state, event string) error {
	return &IllegalTransitionError{Machine: machine, State: state, Event: event}
}
