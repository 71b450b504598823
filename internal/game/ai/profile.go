// Package ai selects a combat move for an actor from its strategy profile and
// a snapshot of the tactical situation.
//
// Profiles are read-only during a combat. Per-actor state is passed into each
// selection through a Situation; nothing here holds ambient mutable state.
package ai

import (
	"bytes"
	"errors"
	"fmt"

	"gopkg.in/yaml.v3"

	"github.com/cory-johannsen/melee/internal/game/fault"
	"github.com/cory-johannsen/melee/internal/game/move"
)

// Pursuit is how eagerly a strategy closes with its opponent.
type Pursuit string

const (
	PursuitHold     Pursuit = "hold"
	PursuitPursue   Pursuit = "pursue"
	PursuitWithdraw Pursuit = "withdraw"
)

// Mode restricts a strategy to melee, ranged, or either.
type Mode string

const (
	ModeMixed  Mode = "mixed"
	ModeMelee  Mode = "melee"
	ModeRanged Mode = "ranged"
)

// GrappleResponse is what a held actor prefers to do.
type GrappleResponse string

const (
	RespondBreakout GrappleResponse = "breakout"
	RespondCounter  GrappleResponse = "counter"
	RespondStrike   GrappleResponse = "strike"
	RespondIgnore   GrappleResponse = "ignore"
)

// Profile is a compiled CombatStrategyProfile.
type Profile struct {
	ID string

	// Usage weights per move class.
	WeaponWeight    float64
	NaturalWeight   float64
	AuxiliaryWeight float64

	PreferredHand   move.Handedness
	Pursuit         Pursuit
	Mode            Mode
	Forbidden       move.Intention
	Preferred       move.Intention
	MinimumStamina  float64
	MinimumAim      float64
	GrappleResponse GrappleResponse
	Defenses        []move.DefenseKind
	// EligibilityHook names a script function consulted for every candidate
	// move; empty disables it.
	EligibilityHook string
}

// AllowsDefense reports whether the profile permits kind.
func (p *Profile) AllowsDefense(kind move.DefenseKind) bool {
	for _, k := range p.Defenses {
		if k == kind {
			return true
		}
	}
	return false
}

// ProfileDef is the serialized form of a Profile.
type ProfileDef struct {
	ID              string          `yaml:"id"`
	WeaponWeight    *float64        `yaml:"weapon_weight"`
	NaturalWeight   *float64        `yaml:"natural_weight"`
	AuxiliaryWeight *float64        `yaml:"auxiliary_weight"`
	PreferredHand   move.Handedness `yaml:"preferred_hand"`
	Pursuit         Pursuit         `yaml:"pursuit"`
	Mode            Mode            `yaml:"mode"`
	Forbidden       move.Intention  `yaml:"forbidden"`
	Preferred       move.Intention  `yaml:"preferred"`
	MinimumStamina  float64         `yaml:"minimum_stamina"`
	MinimumAim      float64         `yaml:"minimum_aim"`
	GrappleResponse GrappleResponse `yaml:"grapple_response"`
	Defenses        []string        `yaml:"defenses"`
	EligibilityHook string          `yaml:"eligibility_hook"`
}

func weightOr(p *float64) float64 {
	if p == nil {
		return 1
	}
	return *p
}

// Compile validates d and applies defaults: unit weights, hold pursuit, mixed
// mode, the ignore grapple response, and every defense allowed.
//
// Postcondition: Returns an immutable Profile or a *fault.ConfigError.
func (d *ProfileDef) Compile() (*Profile, error) {
	p := &Profile{
		ID:              d.ID,
		WeaponWeight:    weightOr(d.WeaponWeight),
		NaturalWeight:   weightOr(d.NaturalWeight),
		AuxiliaryWeight: weightOr(d.AuxiliaryWeight),
		PreferredHand:   d.PreferredHand,
		Pursuit:         d.Pursuit,
		Mode:            d.Mode,
		Forbidden:       d.Forbidden,
		Preferred:       d.Preferred,
		MinimumStamina:  d.MinimumStamina,
		MinimumAim:      d.MinimumAim,
		GrappleResponse: d.GrappleResponse,
		EligibilityHook: d.EligibilityHook,
	}
	if p.Pursuit == "" {
		p.Pursuit = PursuitHold
	}
	if p.Mode == "" {
		p.Mode = ModeMixed
	}
	if p.GrappleResponse == "" {
		p.GrappleResponse = RespondIgnore
	}

	var errs []error
	if p.ID == "" {
		errs = append(errs, errors.New("id must not be empty"))
	}
	if p.WeaponWeight < 0 || p.NaturalWeight < 0 || p.AuxiliaryWeight < 0 {
		errs = append(errs, errors.New("usage weights must be >= 0"))
	}
	switch p.Pursuit {
	case PursuitHold, PursuitPursue, PursuitWithdraw:
	default:
		errs = append(errs, fmt.Errorf("unknown pursuit %q", p.Pursuit))
	}
	switch p.Mode {
	case ModeMixed, ModeMelee, ModeRanged:
	default:
		errs = append(errs, fmt.Errorf("unknown mode %q", p.Mode))
	}
	switch p.GrappleResponse {
	case RespondBreakout, RespondCounter, RespondStrike, RespondIgnore:
	default:
		errs = append(errs, fmt.Errorf("unknown grapple_response %q", p.GrappleResponse))
	}
	if err := p.Forbidden.Validate(); err != nil {
		errs = append(errs, fmt.Errorf("forbidden: %w", err))
	}
	if err := p.Preferred.Validate(); err != nil {
		errs = append(errs, fmt.Errorf("preferred: %w", err))
	}
	if p.Forbidden.Any(p.Preferred) {
		errs = append(errs, fmt.Errorf("intentions %s are both forbidden and preferred", p.Forbidden&p.Preferred))
	}
	if p.MinimumStamina < 0 {
		errs = append(errs, errors.New("minimum_stamina must be >= 0"))
	}
	if p.MinimumAim < 0 || p.MinimumAim > 1 {
		errs = append(errs, errors.New("minimum_aim must be within [0, 1]"))
	}
	if d.Defenses == nil {
		p.Defenses = []move.DefenseKind{move.DefenseDodge, move.DefenseParry, move.DefenseBlock}
	}
	for _, name := range d.Defenses {
		switch name {
		case "dodge":
			p.Defenses = append(p.Defenses, move.DefenseDodge)
		case "parry":
			p.Defenses = append(p.Defenses, move.DefenseParry)
		case "block":
			p.Defenses = append(p.Defenses, move.DefenseBlock)
		default:
			errs = append(errs, fmt.Errorf("unknown defense %q", name))
		}
	}
	if len(errs) > 0 {
		return nil, fault.NewConfigError("strategy", d.ID, errors.Join(errs...))
	}
	return p, nil
}

// ParseProfiles decodes a YAML sequence of strategy profiles.
//
// Postcondition: either every profile is returned or none is.
func ParseProfiles(data []byte) ([]*Profile, error) {
	var defs []ProfileDef
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&defs); err != nil {
		return nil, fault.NewConfigError("strategy", "", fmt.Errorf("decoding: %w", err))
	}
	var (
		out  []*Profile
		errs []error
	)
	for i := range defs {
		p, err := defs[i].Compile()
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
