package move

import (
	"errors"
	"fmt"

	"gopkg.in/yaml.v3"

	"github.com/cory-johannsen/melee/internal/game/damage"
	"github.com/cory-johannsen/melee/internal/game/fault"
	"github.com/cory-johannsen/melee/internal/game/formula"
)

// DamageVariables is the closed set of names a move's damage, pain or stun
// formula may reference. "trait" is the prefix of "trait:<id>" lookups.
var DamageVariables = map[string]struct{}{
	"degree":   {},
	"outcome":  {},
	"skill":    {},
	"strength": {},
	"stamina":  {},
	"weight":   {},
	"trait":    {},
}

// Attack is a compiled move definition, weapon-borne or natural. Attacks are
// immutable once loaded and may share Formula values.
type Attack struct {
	ID      string
	Verb    string
	Natural bool
	// Weapon is the weapon class, or the body part for natural attacks, that
	// must be available to perform the move.
	Weapon string
	// Ranged names the RangedWeaponProfile for ranged moves.
	Ranged string

	Type        MoveType
	Intentions  Intention
	Alignment   Alignment
	Orientation Orientation
	Handedness  Handedness

	AttackerDifficulty Difficulty
	DodgeDifficulty    Difficulty
	ParryDifficulty    Difficulty
	BlockDifficulty    Difficulty
	RecoverySuccess    Difficulty
	RecoveryFailure    Difficulty

	StaminaCost float64
	// Speed is relative; faster moves are preferred by nimble strategies.
	Speed float64
	// Delay is the number of ticks the move adds to recovery.
	Delay int
	// Skill names the actor skill rolled for the attacker check.
	Skill string

	DamageType  damage.Type
	Damage      *formula.Formula
	Pain        *formula.Formula
	Stun        *formula.Formula
	Penetration int
	Angle       float64

	// Weight scales the probability of choosing this move among equally
	// eligible ones.
	Weight float64
}

// DefenseDifficulty returns the difficulty of defending against a with kind.
func (a *Attack) DefenseDifficulty(kind DefenseKind) Difficulty {
	switch kind {
	case DefenseDodge:
		return a.DodgeDifficulty
	case DefenseParry:
		return a.ParryDifficulty
	case DefenseBlock:
		return a.BlockDifficulty
	default:
		return Impossible
	}
}

// IsTraining reports whether the move is tagged Training.
func (a *Attack) IsTraining() bool { return a.Intentions.Has(IntentTraining) }

// FormulaRef is either a reference to a named shared formula or an inline
// expression. A bare YAML scalar is an inline expression.
type FormulaRef struct {
	Ref  string `yaml:"formula"`
	Expr string `yaml:"expr"`
}

// Empty reports whether neither field is set.
func (r FormulaRef) Empty() bool { return r.Ref == "" && r.Expr == "" }

// UnmarshalYAML accepts a scalar expression or a {formula|expr} mapping.
func (r *FormulaRef) UnmarshalYAML(value *yaml.Node) error {
	if value.Kind == yaml.ScalarNode {
		r.Expr = value.Value
		return nil
	}
	type plain FormulaRef
	var p plain
	if err := value.Decode(&p); err != nil {
		return err
	}
	*r = FormulaRef(p)
	return nil
}

// FormulaLookup resolves a named shared formula.
type FormulaLookup func(id string) (*formula.Formula, bool)

// Resolve returns the compiled formula for r, or nil when r is empty.
func (r FormulaRef) Resolve(lookup FormulaLookup) (*formula.Formula, error) {
	switch {
	case r.Empty():
		return nil, nil
	case r.Ref != "" && r.Expr != "":
		return nil, errors.New("formula and expr are mutually exclusive")
	case r.Ref != "":
		if lookup == nil {
			return nil, fmt.Errorf("formula %q referenced but no formula library is loaded", r.Ref)
		}
		f, ok := lookup(r.Ref)
		if !ok {
			return nil, fmt.Errorf("unknown formula %q", r.Ref)
		}
		return f, nil
	default:
		return formula.Parse(r.Expr)
	}
}

// AttackDef is the named-field configuration form of an Attack, as read from
// YAML or from catalog rows. Difficulties left unset are Automatic.
type AttackDef struct {
	ID                 string      `yaml:"id"`
	Verb               string      `yaml:"verb"`
	Natural            bool        `yaml:"natural"`
	Weapon             string      `yaml:"weapon"`
	Ranged             string      `yaml:"ranged"`
	Type               MoveType    `yaml:"type"`
	Intentions         Intention   `yaml:"intentions"`
	Alignment          Alignment   `yaml:"alignment"`
	Orientation        Orientation `yaml:"orientation"`
	Handedness         Handedness  `yaml:"handedness"`
	AttackerDifficulty Difficulty  `yaml:"attacker_difficulty"`
	DodgeDifficulty    Difficulty  `yaml:"dodge_difficulty"`
	ParryDifficulty    Difficulty  `yaml:"parry_difficulty"`
	BlockDifficulty    Difficulty  `yaml:"block_difficulty"`
	RecoverySuccess    Difficulty  `yaml:"recovery_success"`
	RecoveryFailure    Difficulty  `yaml:"recovery_failure"`
	StaminaCost        float64     `yaml:"stamina_cost"`
	Speed              float64     `yaml:"speed"`
	Delay              int         `yaml:"delay"`
	Skill              string      `yaml:"skill"`
	DamageType         damage.Type `yaml:"damage_type"`
	Damage             FormulaRef  `yaml:"damage"`
	Pain               FormulaRef  `yaml:"pain"`
	Stun               FormulaRef  `yaml:"stun"`
	Penetration        int         `yaml:"penetration"`
	Angle              float64     `yaml:"angle"`
	Weight             *float64    `yaml:"weight"`
}

// DefaultWeight is used when a definition leaves weight unset.
const DefaultWeight = 1.0

// Compile validates d and resolves its formulas.
//
// Postcondition: Returns an immutable Attack, or a *fault.ConfigError listing
// every problem found.
func (d *AttackDef) Compile(lookup FormulaLookup) (*Attack, error) {
	var errs []error
	if d.ID == "" {
		errs = append(errs, errors.New("id must not be empty"))
	}
	if d.Verb == "" {
		errs = append(errs, errors.New("verb must not be empty"))
	}
	if !d.Type.Valid() {
		errs = append(errs, fmt.Errorf("invalid move type %d", int(d.Type)))
	}
	if err := d.Intentions.Validate(); err != nil {
		errs = append(errs, err)
	}
	for name, diff := range map[string]Difficulty{
		"attacker_difficulty": d.AttackerDifficulty,
		"dodge_difficulty":    d.DodgeDifficulty,
		"parry_difficulty":    d.ParryDifficulty,
		"block_difficulty":    d.BlockDifficulty,
		"recovery_success":    d.RecoverySuccess,
		"recovery_failure":    d.RecoveryFailure,
	} {
		if !diff.Valid() {
			errs = append(errs, fmt.Errorf("%s out of range", name))
		}
	}
	if d.StaminaCost < 0 {
		errs = append(errs, errors.New("stamina_cost must be >= 0"))
	}
	if d.Delay < 0 {
		errs = append(errs, errors.New("delay must be >= 0"))
	}
	if d.Penetration < 0 {
		errs = append(errs, errors.New("penetration must be >= 0"))
	}
	if !d.DamageType.Valid() {
		errs = append(errs, fmt.Errorf("invalid damage type %d", int(d.DamageType)))
	}
	if d.Type.IsRanged() && d.Ranged == "" {
		errs = append(errs, fmt.Errorf("%s move requires a ranged profile", d.Type))
	}
	weight := DefaultWeight
	if d.Weight != nil {
		weight = *d.Weight
	}
	if weight < 0 {
		errs = append(errs, errors.New("weight must be >= 0"))
	}

	a := &Attack{
		ID: d.ID, Verb: d.Verb, Natural: d.Natural, Weapon: d.Weapon, Ranged: d.Ranged,
		Type: d.Type, Intentions: d.Intentions,
		Alignment: d.Alignment, Orientation: d.Orientation, Handedness: d.Handedness,
		AttackerDifficulty: d.AttackerDifficulty,
		DodgeDifficulty:    d.DodgeDifficulty,
		ParryDifficulty:    d.ParryDifficulty,
		BlockDifficulty:    d.BlockDifficulty,
		RecoverySuccess:    d.RecoverySuccess,
		RecoveryFailure:    d.RecoveryFailure,
		StaminaCost:        d.StaminaCost,
		Speed:              d.Speed,
		Delay:              d.Delay,
		Skill:              d.Skill,
		DamageType:         d.DamageType,
		Penetration:        d.Penetration,
		Angle:              d.Angle,
		Weight:             weight,
	}
	for name, slot := range map[string]struct {
		ref FormulaRef
		dst **formula.Formula
	}{
		"damage": {d.Damage, &a.Damage},
		"pain":   {d.Pain, &a.Pain},
		"stun":   {d.Stun, &a.Stun},
	} {
		f, err := slot.ref.Resolve(lookup)
		if err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", name, err))
			continue
		}
		if f != nil {
			if err := f.ValidateBindings(DamageVariables); err != nil {
				errs = append(errs, fmt.Errorf("%s: %w", name, err))
				continue
			}
		}
		*slot.dst = f
	}
	if a.Type.Strikes() && a.Damage == nil {
		errs = append(errs, fmt.Errorf("%s move requires a damage formula", a.Type))
	}
	if len(errs) > 0 {
		return nil, fault.NewConfigError("attack", d.ID, errors.Join(errs...))
	}
	return a, nil
}
