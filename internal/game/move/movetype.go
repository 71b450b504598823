package move

import (
	"fmt"

	"gopkg.in/yaml.v3"
)

// MoveType classifies how a move is executed and which sub-machine, if any,
// it drives.
type MoveType int

const (
	Standard MoveType = iota
	Clinch
	CoupDeGrace
	Staggering
	Unbalancing
	WardFree
	Downed
	Feint
	Charge
	Riposte
	Sweep
	Shove
	Disarming
	GrappleInitiate
	GrappleExtend
	GrappleLoosen
	GrappleBreak
	GrappleCounter
	Strangle
	Wrench
	RangedFire
	RangedAim
	RangedLoad
	RangedReady
	RangedUnload
	Rise

	numMoveTypes
)

var moveTypeNames = [numMoveTypes]string{
	"standard", "clinch", "coup_de_grace", "staggering", "unbalancing",
	"ward_free", "downed", "feint", "charge", "riposte", "sweep", "shove",
	"disarming", "grapple_initiate", "grapple_extend", "grapple_loosen",
	"grapple_break", "grapple_counter", "strangle", "wrench", "ranged_fire",
	"ranged_aim", "ranged_load", "ranged_ready", "ranged_unload", "rise",
}

// String returns the canonical snake_case name.
func (t MoveType) String() string {
	if t < 0 || t >= numMoveTypes {
		return fmt.Sprintf("MoveType(%d)", int(t))
	}
	return moveTypeNames[t]
}

// Valid reports whether t is a defined move type.
func (t MoveType) Valid() bool { return t >= 0 && t < numMoveTypes }

// IsGrapple reports whether t drives the grapple machine.
func (t MoveType) IsGrapple() bool {
	switch t {
	case Clinch, GrappleInitiate, GrappleExtend, GrappleLoosen, GrappleBreak, GrappleCounter, Strangle, Wrench:
		return true
	}
	return false
}

// IsRanged reports whether t drives a ranged weapon.
func (t MoveType) IsRanged() bool {
	return t >= RangedFire && t <= RangedUnload
}

// Strikes reports whether a successful move of this type produces a damage
// event. Weapon-handling moves and grapple repositioning do not.
func (t MoveType) Strikes() bool {
	switch t {
	case RangedAim, RangedLoad, RangedReady, RangedUnload, Rise,
		GrappleInitiate, GrappleExtend, GrappleLoosen, GrappleBreak, GrappleCounter, Clinch:
		return false
	}
	return true
}

// RequiresOpponentDown reports whether the move is only legal against a prone
// or incapacitated target.
func (t MoveType) RequiresOpponentDown() bool {
	return t == CoupDeGrace || t == Downed
}

// ParseMoveType parses a move type name ignoring case and separators.
func ParseMoveType(s string) (MoveType, error) {
	n := normalize(s)
	for i, name := range moveTypeNames {
		if normalize(name) == n {
			return MoveType(i), nil
		}
	}
	return 0, fmt.Errorf("unknown move type %q", s)
}

// UnmarshalYAML decodes a move type from its name.
func (t *MoveType) UnmarshalYAML(value *yaml.Node) error {
	var s string
	if err := value.Decode(&s); err != nil {
		return err
	}
	parsed, err := ParseMoveType(s)
	if err != nil {
		return err
	}
	*t = parsed
	return nil
}
