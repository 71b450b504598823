package move

import (
	"fmt"

	"gopkg.in/yaml.v3"
)

// Alignment is the lateral line of a move.
type Alignment int

const (
	AlignAny Alignment = iota
	AlignLeft
	AlignCentre
	AlignRight
)

// Orientation is the vertical line of a move.
type Orientation int

const (
	OrientAny Orientation = iota
	OrientHigh
	OrientMiddle
	OrientLow
)

// Handedness is the hand requirement of a move.
type Handedness int

const (
	HandAny Handedness = iota
	HandMain
	HandOff
	HandBoth
)

var (
	alignmentNames   = []string{"any", "left", "centre", "right"}
	orientationNames = []string{"any", "high", "middle", "low"}
	handednessNames  = []string{"any", "main", "off", "both"}
)

func (a Alignment) String() string   { return enumName(alignmentNames, int(a), "Alignment") }
func (o Orientation) String() string { return enumName(orientationNames, int(o), "Orientation") }
func (h Handedness) String() string  { return enumName(handednessNames, int(h), "Handedness") }

// Matches reports whether a move along a can strike a location along loc.
// AlignAny on either side matches everything.
func (a Alignment) Matches(loc Alignment) bool {
	return a == AlignAny || loc == AlignAny || a == loc
}

// Matches reports whether a move along o can strike a location along loc.
func (o Orientation) Matches(loc Orientation) bool {
	return o == OrientAny || loc == OrientAny || o == loc
}

// Satisfied reports whether an actor holding weapons in the given hands can
// perform a move requiring h.
func (h Handedness) Satisfied(mainFree, offFree bool) bool {
	switch h {
	case HandMain:
		return mainFree
	case HandOff:
		return offFree
	case HandBoth:
		return mainFree && offFree
	default:
		return mainFree || offFree
	}
}

func enumName(names []string, i int, kind string) string {
	if i < 0 || i >= len(names) {
		return fmt.Sprintf("%s(%d)", kind, i)
	}
	return names[i]
}

// parseEnum resolves s against names. Empty input is the zero value.
func parseEnum(names []string, s, kind string) (int, error) {
	n := normalize(s)
	if n == "" {
		return 0, nil
	}
	if n == "center" {
		n = "centre"
	}
	for i, name := range names {
		if name == n {
			return i, nil
		}
	}
	return 0, fmt.Errorf("unknown %s %q", kind, s)
}

// UnmarshalYAML decodes an alignment name.
func (a *Alignment) UnmarshalYAML(value *yaml.Node) error {
	i, err := parseEnum(alignmentNames, value.Value, "alignment")
	*a = Alignment(i)
	return err
}

// UnmarshalYAML decodes an orientation name.
func (o *Orientation) UnmarshalYAML(value *yaml.Node) error {
	i, err := parseEnum(orientationNames, value.Value, "orientation")
	*o = Orientation(i)
	return err
}

// UnmarshalYAML decodes a handedness name.
func (h *Handedness) UnmarshalYAML(value *yaml.Node) error {
	i, err := parseEnum(handednessNames, value.Value, "handedness")
	*h = Handedness(i)
	return err
}

// ParseAlignment parses an alignment name; empty is AlignAny.
func ParseAlignment(s string) (Alignment, error) {
	i, err := parseEnum(alignmentNames, s, "alignment")
	return Alignment(i), err
}

// ParseOrientation parses an orientation name; empty is OrientAny.
func ParseOrientation(s string) (Orientation, error) {
	i, err := parseEnum(orientationNames, s, "orientation")
	return Orientation(i), err
}

// ParseHandedness parses a handedness name; empty is HandAny.
func ParseHandedness(s string) (Handedness, error) {
	i, err := parseEnum(handednessNames, s, "handedness")
	return Handedness(i), err
}
