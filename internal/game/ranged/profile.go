// Package ranged implements ranged weapon handling: the load, ready and fire
// staging machine, aim accumulation, and the ballistic formulas applied to a
// shot's check.
package ranged

import (
	"bytes"
	"errors"
	"fmt"

	"gopkg.in/yaml.v3"

	"github.com/cory-johannsen/melee/internal/game/fault"
	"github.com/cory-johannsen/melee/internal/game/formula"
	"github.com/cory-johannsen/melee/internal/game/move"
)

// BallisticVariables is the closed set of names accuracy and damage-bonus
// formulas may reference.
var BallisticVariables = map[string]struct{}{
	"range":      {},
	"aim":        {},
	"pointblank": {},
	"degree":     {},
}

// LoadType describes how much one load action puts in the weapon.
type LoadType string

const (
	// LoadSingle adds one round per load.
	LoadSingle LoadType = "single"
	// LoadMagazine fills the weapon to capacity.
	LoadMagazine LoadType = "magazine"
)

// Profile is a compiled RangedWeaponProfile. Immutable after load.
type Profile struct {
	ID           string
	FireSkill    string
	OperateSkill string
	Capacity     int
	LoadType     LoadType

	StaminaPerShot float64
	LoadStamina    float64
	ReadyStamina   float64

	LoadDelay  int
	ReadyDelay int
	FireDelay  int

	AimIncrement        float64
	AimBonusLostPerShot float64
	MaxRange            float64

	Accuracy    *formula.Formula
	DamageBonus *formula.Formula
}

// roundsPerLoad returns how many rounds one load action adds.
func (p *Profile) roundsPerLoad() int {
	if p.LoadType == LoadMagazine {
		return p.Capacity
	}
	return 1
}

// ProfileDef is the serialized form of a Profile.
type ProfileDef struct {
	ID                  string          `yaml:"id"`
	FireSkill           string          `yaml:"fire_skill"`
	OperateSkill        string          `yaml:"operate_skill"`
	Capacity            int             `yaml:"capacity"`
	LoadType            LoadType        `yaml:"load_type"`
	StaminaPerShot      float64         `yaml:"stamina_per_shot"`
	LoadStamina         float64         `yaml:"load_stamina"`
	ReadyStamina        float64         `yaml:"ready_stamina"`
	LoadDelay           int             `yaml:"load_delay"`
	ReadyDelay          int             `yaml:"ready_delay"`
	FireDelay           int             `yaml:"fire_delay"`
	AimIncrement        float64         `yaml:"aim_increment"`
	AimBonusLostPerShot float64         `yaml:"aim_bonus_lost_per_shot"`
	MaxRange            float64         `yaml:"max_range"`
	Accuracy            move.FormulaRef `yaml:"accuracy"`
	DamageBonus         move.FormulaRef `yaml:"damage_bonus"`
}

// Compile validates d and resolves its formulas against lookup, which may be
// nil when only inline expressions are used.
//
// Postcondition: Returns an immutable Profile or a *fault.ConfigError.
func (d *ProfileDef) Compile(lookup move.FormulaLookup) (*Profile, error) {
	var errs []error
	if d.ID == "" {
		errs = append(errs, errors.New("id must not be empty"))
	}
	if d.Capacity <= 0 {
		errs = append(errs, errors.New("capacity must be > 0"))
	}
	lt := d.LoadType
	if lt == "" {
		lt = LoadMagazine
	}
	if lt != LoadSingle && lt != LoadMagazine {
		errs = append(errs, fmt.Errorf("unknown load_type %q", d.LoadType))
	}
	for name, v := range map[string]float64{
		"stamina_per_shot":        d.StaminaPerShot,
		"load_stamina":            d.LoadStamina,
		"ready_stamina":           d.ReadyStamina,
		"aim_increment":           d.AimIncrement,
		"aim_bonus_lost_per_shot": d.AimBonusLostPerShot,
		"max_range":               d.MaxRange,
	} {
		if v < 0 {
			errs = append(errs, fmt.Errorf("%s must be >= 0", name))
		}
	}
	if d.LoadDelay < 0 || d.ReadyDelay < 0 || d.FireDelay < 0 {
		errs = append(errs, errors.New("delays must be >= 0"))
	}
	p := &Profile{
		ID: d.ID, FireSkill: d.FireSkill, OperateSkill: d.OperateSkill,
		Capacity: d.Capacity, LoadType: lt,
		StaminaPerShot: d.StaminaPerShot, LoadStamina: d.LoadStamina, ReadyStamina: d.ReadyStamina,
		LoadDelay: d.LoadDelay, ReadyDelay: d.ReadyDelay, FireDelay: d.FireDelay,
		AimIncrement: d.AimIncrement, AimBonusLostPerShot: d.AimBonusLostPerShot,
		MaxRange: d.MaxRange,
	}
	var err error
	if p.Accuracy, err = compileBallistic(d.Accuracy, lookup); err != nil {
		errs = append(errs, fmt.Errorf("accuracy: %w", err))
	}
	if p.DamageBonus, err = compileBallistic(d.DamageBonus, lookup); err != nil {
		errs = append(errs, fmt.Errorf("damage_bonus: %w", err))
	}
	if len(errs) > 0 {
		return nil, fault.NewConfigError("ranged", d.ID, errors.Join(errs...))
	}
	return p, nil
}

func compileBallistic(ref move.FormulaRef, lookup move.FormulaLookup) (*formula.Formula, error) {
	f, err := ref.Resolve(lookup)
	if err != nil || f == nil {
		return nil, err
	}
	if err := f.ValidateBindings(BallisticVariables); err != nil {
		return nil, err
	}
	return f, nil
}

// ParseProfiles decodes a YAML sequence of profile definitions and compiles
// each one.
//
// Postcondition: either every profile is returned or none is.
func ParseProfiles(data []byte, lookup move.FormulaLookup) ([]*Profile, error) {
	var defs []ProfileDef
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&defs); err != nil {
		return nil, fault.NewConfigError("ranged", "", fmt.Errorf("decoding: %w", err))
	}
	var (
		out  []*Profile
		errs []error
		seen = make(map[string]struct{}, len(defs))
	)
	for i := range defs {
		if _, dup := seen[defs[i].ID]; dup {
			errs = append(errs, fault.NewConfigError("ranged", defs[i].ID, errors.New("duplicate id")))
			continue
		}
		seen[defs[i].ID] = struct{}{}
		p, err := defs[i].Compile(lookup)
		if err != nil {
			errs = append(errs, err)
			continue
		}
		out = append(out, p)
	}
	if len(errs) > 0 {
		return nil, errors.Join(errs...)
	}
	return out, nil
}
