package ai

import (
	"github.com/cory-johannsen/melee/internal/game/grapple"
	"github.com/cory-johannsen/melee/internal/game/move"
	"github.com/cory-johannsen/melee/internal/game/ranged"
)

// ActorState captures one combatant's selection-relevant state.
type ActorState struct {
	ID      string
	Stamina float64
	// Weapons are the wielded weapon classes; Natural the usable natural
	// weapons (fist, bite, kick).
	Weapons      map[string]struct{}
	Natural      map[string]struct{}
	MainHandFree bool
	OffHandFree  bool
	Prone        bool
}

// HasWeapon reports whether class is wielded.
func (a *ActorState) HasWeapon(class string) bool {
	_, ok := a.Weapons[class]
	return ok
}

// HasNatural reports whether the natural weapon part is usable.
func (a *ActorState) HasNatural(part string) bool {
	_, ok := a.Natural[part]
	return ok
}

// WeaponState captures the actor's ranged weapon, if any.
type WeaponState struct {
	Profile   string
	State     ranged.State
	Aim       float64
	CanLoad   bool
	CanReady  bool
	CanAim    bool
	CanFire   bool
	CanUnload bool
}

// Situation is the snapshot passed to the selector for one actor and one
// opponent on one tick.
//
// Invariant: Actor and Opponent must not be nil.
type Situation struct {
	Tick     int64
	Actor    *ActorState
	Opponent *ActorState
	Range    float64
	// Grapple is the state between actor and opponent; Free when none.
	Grapple grapple.State
	// Grappler is set when the actor is the holding party.
	Grappler bool
	// GrappleLegal lists the transitions the actor may currently attempt.
	GrappleLegal map[grapple.Transition]bool
	Ranged       *WeaponState
}

// Engaged reports whether the actor and opponent are grappling.
func (s *Situation) Engaged() bool { return s.Grapple != grapple.Free && s.Grapple != "" }

// Held reports whether the actor is being held by the opponent.
func (s *Situation) Held() bool { return s.Engaged() && !s.Grappler }

// pinned reports whether the actor is held at a depth that prevents weapon
// use.
func (s *Situation) pinned() bool { return s.Held() && s.Grapple.Depth() >= grapple.LimbLocked.Depth() }

// Legal reports whether atk can physically be performed right now,
// independent of any strategy.
func (s *Situation) Legal(atk *move.Attack) bool {
	a := s.Actor
	if a.Stamina < atk.StaminaCost {
		return false
	}
	if atk.Type == move.Rise {
		return a.Prone && !s.pinned()
	}
	if atk.Natural {
		if atk.Weapon != "" && !a.HasNatural(atk.Weapon) {
			return false
		}
	} else {
		if s.pinned() {
			return false
		}
		if atk.Weapon != "" && !a.HasWeapon(atk.Weapon) {
			return false
		}
		if !atk.Handedness.Satisfied(a.MainHandFree, a.OffHandFree) {
			return false
		}
	}
	if atk.Type.RequiresOpponentDown() && !s.Opponent.Prone {
		return false
	}
	if tr, ok := grapple.TransitionFor(atk.Type); ok {
		return s.GrappleLegal[tr]
	}
	if atk.Type.IsRanged() {
		return s.rangedLegal(atk)
	}
	return true
}

func (s *Situation) rangedLegal(atk *move.Attack) bool {
	w := s.Ranged
	if w == nil || w.Profile != atk.Ranged || s.Engaged() {
		return false
	}
	switch atk.Type {
	case move.RangedLoad:
		return w.CanLoad
	case move.RangedReady:
		return w.CanReady
	case move.RangedAim:
		return w.CanAim
	case move.RangedFire:
		return w.CanFire
	case move.RangedUnload:
		return w.CanUnload
	}
	return false
}
