package damage

import (
	"bytes"
	"errors"
	"fmt"

	"gopkg.in/yaml.v3"

	"github.com/cory-johannsen/melee/internal/game/fault"
	"github.com/cory-johannsen/melee/internal/game/formula"
)

// DefaultKey is the expression-map key that applies to every kind without
// its own entry.
const DefaultKey = "*"

// ExpressionDef is the serialized form of an ExpressionSet: per component,
// a map from damage type name (or DefaultKey) to expression text.
type ExpressionDef struct {
	Damage map[string]string `yaml:"damage"`
	Pain   map[string]string `yaml:"pain"`
	Stun   map[string]string `yaml:"stun"`
}

// LayerDef is the serialized form of a Layer.
type LayerDef struct {
	ID                       string        `yaml:"id"`
	Name                     string        `yaml:"name"`
	MinimumPenetrationDegree int           `yaml:"minimum_penetration_degree"`
	BaseDifficultyDegrees    int           `yaml:"base_difficulty_degrees"`
	StackedDifficultyDegrees int           `yaml:"stacked_difficulty_degrees"`
	Material                 Material      `yaml:"material"`
	Transforms               []Transform   `yaml:"transforms"`
	Zero                     []Type        `yaml:"zero"`
	Dissipate                ExpressionDef `yaml:"dissipate"`
	Absorb                   ExpressionDef `yaml:"absorb"`
}

// Compile parses every expression and returns the immutable Layer.
//
// Postcondition: Returns a validated Layer, or a *fault.ConfigError wrapping
// every problem found.
func (d *LayerDef) Compile() (*Layer, error) {
	l := &Layer{
		ID:                       d.ID,
		Name:                     d.Name,
		MinimumPenetrationDegree: d.MinimumPenetrationDegree,
		BaseDifficultyDegrees:    d.BaseDifficultyDegrees,
		StackedDifficultyDegrees: d.StackedDifficultyDegrees,
		Material:                 d.Material,
		Transforms:               append([]Transform(nil), d.Transforms...),
		Zero:                     make(map[Type]struct{}, len(d.Zero)),
	}
	for _, t := range d.Zero {
		l.Zero[t] = struct{}{}
	}
	var errs []error
	if err := d.Dissipate.compileInto(&l.Dissipate); err != nil {
		errs = append(errs, fmt.Errorf("dissipate: %w", err))
	}
	if err := d.Absorb.compileInto(&l.Absorb); err != nil {
		errs = append(errs, fmt.Errorf("absorb: %w", err))
	}
	if err := l.Validate(); err != nil {
		errs = append(errs, err)
	}
	if len(errs) > 0 {
		return nil, fault.NewConfigError("layer", d.ID, errors.Join(errs...))
	}
	return l, nil
}

func (d ExpressionDef) compileInto(set *ExpressionSet) error {
	var errs []error
	for c, m := range map[Component]map[string]string{
		ComponentDamage: d.Damage,
		ComponentPain:   d.Pain,
		ComponentStun:   d.Stun,
	} {
		for key, src := range m {
			f, err := formula.Parse(src)
			if err != nil {
				errs = append(errs, fmt.Errorf("%s[%s]: %w", c, key, err))
				continue
			}
			if key == DefaultKey {
				set.SetDefault(c, f)
				continue
			}
			t, err := ParseType(key)
			if err != nil {
				errs = append(errs, fmt.Errorf("%s: %w", c, err))
				continue
			}
			set.Set(c, t, f)
		}
	}
	return errors.Join(errs...)
}

// ArmourDef is the serialized form of one armour type: the body locations it
// covers and its layers, outermost first.
type ArmourDef struct {
	ID     string     `yaml:"id"`
	Name   string     `yaml:"name"`
	Covers []string   `yaml:"covers"`
	Layers []LayerDef `yaml:"layers"`
}

// Armour is a compiled ArmourDef. Immutable after load.
type Armour struct {
	ID     string
	Name   string
	Covers map[string]struct{}
	Layers []*Layer
}

// CoversLocation reports whether the armour protects location.
func (a *Armour) CoversLocation(location string) bool {
	_, ok := a.Covers[location]
	return ok
}

// Compile validates the definition and compiles every layer.
//
// Postcondition: Returns an Armour with at least one layer, or a
// *fault.ConfigError. No partially compiled Armour is ever returned.
func (d *ArmourDef) Compile() (*Armour, error) {
	var errs []error
	if d.ID == "" {
		errs = append(errs, errors.New("id must not be empty"))
	}
	if len(d.Layers) == 0 {
		errs = append(errs, errors.New("at least one layer is required"))
	}
	a := &Armour{ID: d.ID, Name: d.Name, Covers: make(map[string]struct{}, len(d.Covers))}
	for _, loc := range d.Covers {
		a.Covers[loc] = struct{}{}
	}
	for i := range d.Layers {
		l, err := d.Layers[i].Compile()
		if err != nil {
			errs = append(errs, err)
			continue
		}
		a.Layers = append(a.Layers, l)
	}
	if len(errs) > 0 {
		return nil, fault.NewConfigError("armour", d.ID, errors.Join(errs...))
	}
	return a, nil
}

// ParseArmour decodes and compiles a single armour YAML document. Unknown
// fields are rejected.
func ParseArmour(data []byte) (*Armour, error) {
	var def ArmourDef
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&def); err != nil {
		return nil, fault.NewConfigError("armour", "", fmt.Errorf("decoding: %w", err))
	}
	return def.Compile()
}
