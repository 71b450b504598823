package ranged

import (
	"context"
	"errors"
	"fmt"

	"github.com/looplab/fsm"

	"github.com/cory-johannsen/melee/internal/game/fault"
)

// State is a ranged weapon's staging state.
type State string

const (
	Empty     State = "empty"
	Loading   State = "loading"
	Loaded    State = "loaded"
	Ready     State = "ready"
	Fired     State = "fired"
	Chambered State = "chambered"
)

const (
	evLoad       = "load"
	evFinishLoad = "finish_load"
	evReady      = "ready"
	evFire       = "fire"
	evChamber    = "chamber"
	evRunDry     = "run_dry"
	evUnload     = "unload"
)

// ErrBusy is returned when the weapon is still completing a previous stage.
var ErrBusy = errors.New("ranged: weapon is busy")

// ErrExhausted is returned when the actor lacks the stamina for a stage.
var ErrExhausted = errors.New("ranged: insufficient stamina")

// Stamina is the actor-owned pool ranged stages draw from.
type Stamina interface {
	Stamina() float64
	SpendStamina(cost float64)
}

// Shot reports the result of pulling the trigger.
type Shot struct {
	// Click is set when the weapon was Empty: no round fired.
	Click bool `json:"click"`
	// Aim is the aim value the shot was taken with.
	Aim float64 `json:"aim"`
	// Remaining is the number of rounds left after the shot.
	Remaining int   `json:"remaining"`
	After     State `json:"after"`
}

// Weapon is one actor's instance of a ranged weapon.
//
// Invariant: 0 <= Aim() <= 1 and 0 <= Rounds() <= profile capacity.
// A Weapon is not safe for concurrent use; the owning actor's lock guards it.
type Weapon struct {
	profile   *Profile
	fsm       *fsm.FSM
	rounds    int
	aim       float64
	busyUntil int64
}

// NewWeapon returns an Empty weapon.
//
// Precondition: profile must not be nil.
func NewWeapon(profile *Profile) *Weapon {
	if profile == nil {
		panic("ranged.NewWeapon: profile must not be nil")
	}
	return &Weapon{
		profile: profile,
		fsm: fsm.NewFSM(string(Empty), fsm.Events{
			{Name: evLoad, Src: []string{string(Empty), string(Chambered)}, Dst: string(Loading)},
			{Name: evFinishLoad, Src: []string{string(Loading)}, Dst: string(Loaded)},
			{Name: evReady, Src: []string{string(Loaded), string(Chambered)}, Dst: string(Ready)},
			{Name: evFire, Src: []string{string(Ready)}, Dst: string(Fired)},
			{Name: evChamber, Src: []string{string(Fired)}, Dst: string(Chambered)},
			{Name: evRunDry, Src: []string{string(Fired)}, Dst: string(Empty)},
			{Name: evUnload, Src: []string{string(Loaded), string(Ready), string(Chambered)}, Dst: string(Empty)},
		}, fsm.Callbacks{}),
	}
}

// Profile returns the weapon's profile.
func (w *Weapon) Profile() *Profile { return w.profile }

// State returns the current staging state.
func (w *Weapon) State() State { return State(w.fsm.Current()) }

// Aim returns the accumulated aim in [0, 1].
func (w *Weapon) Aim() float64 { return w.aim }

// Rounds returns the rounds in the weapon.
func (w *Weapon) Rounds() int { return w.rounds }

// BusyUntil returns the first tick at which the weapon accepts a new stage.
func (w *Weapon) BusyUntil() int64 { return w.busyUntil }

// Tick completes a load whose delay has elapsed.
//
// Postcondition: a Loading weapon whose delay has elapsed is Loaded.
func (w *Weapon) Tick(ctx context.Context, now int64) error {
	if w.State() != Loading || now < w.busyUntil {
		return nil
	}
	w.rounds = min(w.profile.Capacity, w.rounds+w.profile.roundsPerLoad())
	return w.event(ctx, evFinishLoad)
}

// CanLoad reports whether Load would be accepted at now.
func (w *Weapon) CanLoad(now int64, s Stamina) bool {
	return w.gate(evLoad, now, s, w.profile.LoadStamina) == nil && w.rounds < w.profile.Capacity
}

// CanReady reports whether Ready would be accepted at now.
func (w *Weapon) CanReady(now int64, s Stamina) bool {
	return w.gate(evReady, now, s, w.profile.ReadyStamina) == nil
}

// CanFire reports whether Fire would discharge a round at now.
func (w *Weapon) CanFire(now int64, s Stamina) bool {
	return w.gate(evFire, now, s, w.profile.StaminaPerShot) == nil
}

// CanAim reports whether TakeAim would raise aim at now.
func (w *Weapon) CanAim(now int64) bool {
	return w.State() == Ready && now >= w.busyUntil && w.aim < 1
}

// CanUnload reports whether Unload would be accepted at now.
func (w *Weapon) CanUnload(now int64) bool {
	return w.fsm.Can(evUnload) && now >= w.busyUntil
}

// Load begins loading. The weapon becomes Loaded on the first Tick at or
// after now + LoadDelay.
func (w *Weapon) Load(ctx context.Context, now int64, s Stamina) error {
	if err := w.gate(evLoad, now, s, w.profile.LoadStamina); err != nil {
		return err
	}
	if w.rounds >= w.profile.Capacity {
		return fault.IllegalTransition("ranged", string(w.State()), evLoad)
	}
	if err := w.event(ctx, evLoad); err != nil {
		return err
	}
	spend(s, w.profile.LoadStamina)
	w.busyUntil = now + int64(w.profile.LoadDelay)
	return w.Tick(ctx, now)
}

// Ready brings a Loaded or Chambered weapon to bear.
func (w *Weapon) Ready(ctx context.Context, now int64, s Stamina) error {
	if err := w.gate(evReady, now, s, w.profile.ReadyStamina); err != nil {
		return err
	}
	if err := w.event(ctx, evReady); err != nil {
		return err
	}
	spend(s, w.profile.ReadyStamina)
	w.busyUntil = now + int64(w.profile.ReadyDelay)
	return nil
}

// TakeAim increases aim by the profile's increment while Ready.
//
// Postcondition: Aim() stays within [0, 1].
func (w *Weapon) TakeAim(now int64) error {
	if w.State() != Ready {
		return fault.IllegalTransition("ranged", string(w.State()), "aim")
	}
	if now < w.busyUntil {
		return ErrBusy
	}
	w.aim = clampAim(w.aim + w.profile.AimIncrement)
	return nil
}

// Fire discharges the chambered round. Firing an Empty weapon is a click: no
// state changes, no stamina is spent, and Shot.Click is set.
//
// Postcondition: after a discharge the weapon is Chambered if rounds remain,
// otherwise Empty; aim is reduced by AimBonusLostPerShot and stays in [0, 1].
func (w *Weapon) Fire(ctx context.Context, now int64, s Stamina) (Shot, error) {
	if w.State() == Empty {
		return Shot{Click: true, Aim: w.aim, After: Empty}, nil
	}
	if err := w.gate(evFire, now, s, w.profile.StaminaPerShot); err != nil {
		return Shot{}, err
	}
	if err := w.event(ctx, evFire); err != nil {
		return Shot{}, err
	}
	spend(s, w.profile.StaminaPerShot)
	shot := Shot{Aim: w.aim}
	w.rounds--
	w.aim = clampAim(w.aim - w.profile.AimBonusLostPerShot)
	w.busyUntil = now + int64(w.profile.FireDelay)
	next := evChamber
	if w.rounds <= 0 {
		w.rounds = 0
		next = evRunDry
	}
	if err := w.event(ctx, next); err != nil {
		return Shot{}, err
	}
	shot.Remaining = w.rounds
	shot.After = w.State()
	return shot, nil
}

// Unload removes every round and resets aim.
func (w *Weapon) Unload(ctx context.Context, now int64) error {
	if !w.fsm.Can(evUnload) {
		return fault.IllegalTransition("ranged", string(w.State()), evUnload)
	}
	if now < w.busyUntil {
		return ErrBusy
	}
	if err := w.event(ctx, evUnload); err != nil {
		return err
	}
	w.rounds = 0
	w.aim = 0
	return nil
}

// gate checks state legality, the stage delay, and stamina, in that order.
func (w *Weapon) gate(event string, now int64, s Stamina, cost float64) error {
	if !w.fsm.Can(event) {
		return fault.IllegalTransition("ranged", string(w.State()), event)
	}
	if now < w.busyUntil {
		return ErrBusy
	}
	if s != nil && s.Stamina() < cost {
		return fmt.Errorf("%w: need %.1f, have %.1f", ErrExhausted, cost, s.Stamina())
	}
	return nil
}

func (w *Weapon) event(ctx context.Context, name string) error {
	if err := w.fsm.Event(ctx, name); err != nil {
		return fmt.Errorf("ranged %s: %w", name, err)
	}
	return nil
}

func spend(s Stamina, cost float64) {
	if s != nil && cost > 0 {
		s.SpendStamina(cost)
	}
}

func clampAim(v float64) float64 {
	switch {
	case v < 0:
		return 0
	case v > 1:
		return 1
	default:
		return v
	}
}
