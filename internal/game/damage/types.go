// Package damage implements the layered armour/body damage pipeline: a
// strike's Event is transformed, dissipated, and absorbed by each protective
// Layer in turn until the residual reaches the struck body location.
package damage

import (
	"fmt"
	"strings"

	"gopkg.in/yaml.v3"
)

// Type is one of the canonical damage kinds.
type Type int

const (
	Slashing Type = iota
	Chopping
	Crushing
	Piercing
	Ballistic
	Burning
	Freezing
	Chemical
	Shockwave
	Bite
	Claw
	Electrical
	Hypoxia
	Cellular
	Sonic
	Shearing
	ArmourPiercing
	Wrenching
	Shrapnel
	Necrotic
	Falling
	Eldritch
	Arcane

	numTypes
)

var typeNames = [numTypes]string{
	"Slashing", "Chopping", "Crushing", "Piercing", "Ballistic", "Burning",
	"Freezing", "Chemical", "Shockwave", "Bite", "Claw", "Electrical",
	"Hypoxia", "Cellular", "Sonic", "Shearing", "ArmourPiercing", "Wrenching",
	"Shrapnel", "Necrotic", "Falling", "Eldritch", "Arcane",
}

// AllTypes returns every damage kind in declaration order.
//
// Postcondition: len(result) == 23.
func AllTypes() []Type {
	out := make([]Type, numTypes)
	for i := range out {
		out[i] = Type(i)
	}
	return out
}

// Valid reports whether t is one of the canonical kinds.
func (t Type) Valid() bool { return t >= 0 && t < numTypes }

// String returns the canonical name.
func (t Type) String() string {
	if !t.Valid() {
		return fmt.Sprintf("Type(%d)", int(t))
	}
	return typeNames[t]
}

// BypassesArmour reports whether t ignores every protective layer. Hypoxia
// models asphyxiation and Cellular models damage below the tissue level;
// neither is stopped by physical armour.
func (t Type) BypassesArmour() bool {
	return t == Hypoxia || t == Cellular
}

// Lethal reports whether t is classified as capable of killing. Training
// moves are coerced to a non-lethal kind before entering the pipeline.
func (t Type) Lethal() bool {
	return t != Crushing && t != Wrenching
}

// NonLethalFallback is the kind training moves are coerced to.
const NonLethalFallback = Crushing

func normalizeName(s string) string {
	r := strings.NewReplacer("_", "", "-", "", " ", "")
	return strings.ToLower(r.Replace(s))
}

// ParseType parses a damage kind name. Matching ignores case, spaces,
// underscores and hyphens, so "armour_piercing" parses as ArmourPiercing.
func ParseType(s string) (Type, error) {
	n := normalizeName(s)
	for i, name := range typeNames {
		if normalizeName(name) == n {
			return Type(i), nil
		}
	}
	return 0, fmt.Errorf("unknown damage type %q", s)
}

// UnmarshalYAML decodes a damage type from its name.
func (t *Type) UnmarshalYAML(value *yaml.Node) error {
	var s string
	if err := value.Decode(&s); err != nil {
		return err
	}
	parsed, err := ParseType(s)
	if err != nil {
		return err
	}
	*t = parsed
	return nil
}

// MarshalYAML encodes a damage type as its name.
func (t Type) MarshalYAML() (any, error) { return t.String(), nil }

// Severity is the 9-tier wound severity scale.
type Severity int

const (
	SeverityNone Severity = iota
	SeveritySuperficial
	SeverityMinor
	SeveritySmall
	SeverityModerate
	SeveritySevere
	SeverityVerySevere
	SeverityGrievous
	SeverityHorrifying
)

var severityNames = []string{
	"None", "Superficial", "Minor", "Small", "Moderate", "Severe", "VerySevere", "Grievous", "Horrifying",
}

// String returns the canonical severity name.
func (s Severity) String() string {
	if s < SeverityNone || s > SeverityHorrifying {
		return fmt.Sprintf("Severity(%d)", int(s))
	}
	return severityNames[s]
}

// ParseSeverity parses a severity name, ignoring case and separators.
func ParseSeverity(s string) (Severity, error) {
	n := normalizeName(s)
	for i, name := range severityNames {
		if normalizeName(name) == n {
			return Severity(i), nil
		}
	}
	return 0, fmt.Errorf("unknown severity %q", s)
}

// UnmarshalYAML decodes a severity from its name.
func (s *Severity) UnmarshalYAML(value *yaml.Node) error {
	var str string
	if err := value.Decode(&str); err != nil {
		return err
	}
	parsed, err := ParseSeverity(str)
	if err != nil {
		return err
	}
	*s = parsed
	return nil
}

// severityCeilings are exclusive upper bounds of raw damage per tier.
var severityCeilings = []float64{0, 2, 4, 7, 12, 18, 27, 40}

// SeverityFor maps a raw damage magnitude onto the severity scale.
//
// Postcondition: monotonically non-decreasing in amount; <= 0 is SeverityNone.
func SeverityFor(amount float64) Severity {
	if amount <= 0 {
		return SeverityNone
	}
	for i := 1; i < len(severityCeilings); i++ {
		if amount < severityCeilings[i] {
			return Severity(i)
		}
	}
	return SeverityHorrifying
}
