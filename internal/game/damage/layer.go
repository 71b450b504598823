package damage

import (
	"errors"
	"fmt"

	"github.com/cory-johannsen/melee/internal/game/formula"
)

// Component selects one of the three tracked magnitudes.
type Component int

const (
	ComponentDamage Component = iota
	ComponentPain
	ComponentStun
)

// String returns the variable name bound for the component.
func (c Component) String() string {
	switch c {
	case ComponentDamage:
		return "damage"
	case ComponentPain:
		return "pain"
	case ComponentStun:
		return "stun"
	default:
		return "unknown"
	}
}

var components = []Component{ComponentDamage, ComponentPain, ComponentStun}

// identities are the pass-through expressions used for any damage kind a
// layer does not configure.
var identities = map[Component]*formula.Formula{
	ComponentDamage: formula.MustParse("damage"),
	ComponentPain:   formula.MustParse("pain"),
	ComponentStun:   formula.MustParse("stun"),
}

// LayerVariables is the closed set of names a dissipate or absorb expression
// may reference.
var LayerVariables = map[string]struct{}{
	"damage": {}, "pain": {}, "stun": {},
	"quality": {}, "angle": {}, "severity": {}, "penetration": {},
	"density": {}, "electrical": {}, "thermal": {}, "organic": {}, "strength": {},
}

// Material holds the physical parameters bound into layer expressions.
type Material struct {
	Density    float64 `yaml:"density"`
	Electrical float64 `yaml:"electrical"`
	Thermal    float64 `yaml:"thermal"`
	Organic    float64 `yaml:"organic"`
	Strength   float64 `yaml:"strength"`
}

// Transform rewrites a damage kind into a milder one when the strike's
// severity does not exceed MaxSeverity.
type Transform struct {
	From        Type     `yaml:"from"`
	To          Type     `yaml:"to"`
	MaxSeverity Severity `yaml:"max_severity"`
}

// ExpressionSet holds per-kind expressions for each component. Default, when
// set, applies to kinds without a specific entry.
type ExpressionSet struct {
	byKind   [3]map[Type]*formula.Formula
	fallback [3]*formula.Formula
}

// Set binds f for component c and kind t.
func (s *ExpressionSet) Set(c Component, t Type, f *formula.Formula) {
	if s.byKind[c] == nil {
		s.byKind[c] = make(map[Type]*formula.Formula)
	}
	s.byKind[c][t] = f
}

// SetDefault binds f for every kind of component c without a specific entry.
func (s *ExpressionSet) SetDefault(c Component, f *formula.Formula) {
	s.fallback[c] = f
}

// For returns the expression for component c and kind t.
//
// Postcondition: never nil; unconfigured kinds resolve to the identity.
func (s *ExpressionSet) For(c Component, t Type) *formula.Formula {
	if f, ok := s.byKind[c][t]; ok && f != nil {
		return f
	}
	if s.fallback[c] != nil {
		return s.fallback[c]
	}
	return identities[c]
}

func (s *ExpressionSet) formulas() []*formula.Formula {
	var out []*formula.Formula
	for c := range s.byKind {
		for _, f := range s.byKind[c] {
			out = append(out, f)
		}
		if s.fallback[c] != nil {
			out = append(out, s.fallback[c])
		}
	}
	return out
}

// Layer is one protective covering in a stack, natural or worn. Layers are
// immutable after load.
type Layer struct {
	ID   string
	Name string
	// MinimumPenetrationDegree is the lowest event penetration that breaches
	// this layer at any depth.
	MinimumPenetrationDegree int
	// BaseDifficultyDegrees and StackedDifficultyDegrees raise the breach
	// requirement: Base + Stacked*depth, where depth counts the layers
	// already passed.
	BaseDifficultyDegrees    int
	StackedDifficultyDegrees int
	Material                 Material
	Transforms               []Transform
	Zero                     map[Type]struct{}
	Dissipate                ExpressionSet
	Absorb                   ExpressionSet
}

// ZeroesOut reports whether t is in the layer's zero-set.
func (l *Layer) ZeroesOut(t Type) bool {
	_, ok := l.Zero[t]
	return ok
}

// TransformFor returns the milder kind t becomes at severity sev, if any
// transform rule applies.
func (l *Layer) TransformFor(t Type, sev Severity) (Type, bool) {
	for _, tr := range l.Transforms {
		if tr.From == t && sev <= tr.MaxSeverity {
			return tr.To, true
		}
	}
	return t, false
}

// PenetrationRequirement returns the penetration degree needed to breach
// this layer when depth layers have already been passed.
//
// Postcondition: result >= MinimumPenetrationDegree.
func (l *Layer) PenetrationRequirement(depth int) int {
	req := l.BaseDifficultyDegrees + l.StackedDifficultyDegrees*depth
	if req < l.MinimumPenetrationDegree {
		return l.MinimumPenetrationDegree
	}
	return req
}

// Validate checks the layer's invariants.
//
// Postcondition: nil guarantees non-empty ID and Name, non-negative degrees,
// valid transform kinds, and expressions referencing only LayerVariables.
func (l *Layer) Validate() error {
	var errs []error
	if l.ID == "" {
		errs = append(errs, errors.New("id must not be empty"))
	}
	if l.Name == "" {
		errs = append(errs, errors.New("name must not be empty"))
	}
	if l.MinimumPenetrationDegree < 0 {
		errs = append(errs, errors.New("minimum_penetration_degree must be >= 0"))
	}
	if l.BaseDifficultyDegrees < 0 || l.StackedDifficultyDegrees < 0 {
		errs = append(errs, errors.New("difficulty degrees must be >= 0"))
	}
	for _, tr := range l.Transforms {
		if !tr.From.Valid() || !tr.To.Valid() {
			errs = append(errs, fmt.Errorf("transform %v->%v references an unknown damage type", tr.From, tr.To))
			continue
		}
		if tr.From == tr.To {
			errs = append(errs, fmt.Errorf("transform %v->%v must change the damage type", tr.From, tr.To))
		}
		if tr.From.BypassesArmour() {
			errs = append(errs, fmt.Errorf("transform from %v is never applied: the type bypasses armour", tr.From))
		}
	}
	for t := range l.Zero {
		if !t.Valid() {
			errs = append(errs, fmt.Errorf("zero-set contains unknown damage type %d", int(t)))
		}
	}
	for _, set := range []*ExpressionSet{&l.Dissipate, &l.Absorb} {
		for _, f := range set.formulas() {
			if err := f.ValidateBindings(LayerVariables); err != nil {
				errs = append(errs, fmt.Errorf("expression %q: %w", f.Source(), err))
			}
		}
	}
	return errors.Join(errs...)
}

// bindings returns the evaluation context for an expression on this layer.
func (l *Layer) bindings(ev Event, in Amounts, quality float64) formula.Vars {
	return formula.Vars{
		"damage":      in.Damage,
		"pain":        in.Pain,
		"stun":        in.Stun,
		"quality":     quality,
		"angle":       ev.Angle,
		"severity":    float64(ev.Severity),
		"penetration": float64(ev.Penetration),
		"density":     l.Material.Density,
		"electrical":  l.Material.Electrical,
		"thermal":     l.Material.Thermal,
		"organic":     l.Material.Organic,
		"strength":    l.Material.Strength,
	}
}
