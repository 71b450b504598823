package move

import (
	"fmt"
	"math/bits"
	"strings"

	"gopkg.in/yaml.v3"
)

// Intention is a bitset of tactical purposes carried by a move.
type Intention uint32

const (
	IntentWound Intention = 1 << iota
	IntentKill
	IntentDisarm
	IntentTrip
	IntentHinder
	IntentStun
	IntentPain
	IntentTraining
	IntentGrapple
	IntentWrench
	IntentStrangle
	IntentStagger
	IntentFeint
	IntentPin

	// IntentMask is the closed set of defined intentions.
	IntentMask = IntentPin<<1 - 1
)

// IntentNone is the empty set.
const IntentNone Intention = 0

var intentionNames = []struct {
	bit  Intention
	name string
}{
	{IntentWound, "wound"},
	{IntentKill, "kill"},
	{IntentDisarm, "disarm"},
	{IntentTrip, "trip"},
	{IntentHinder, "hinder"},
	{IntentStun, "stun"},
	{IntentPain, "pain"},
	{IntentTraining, "training"},
	{IntentGrapple, "grapple"},
	{IntentWrench, "wrench"},
	{IntentStrangle, "strangle"},
	{IntentStagger, "stagger"},
	{IntentFeint, "feint"},
	{IntentPin, "pin"},
}

// Has reports whether every bit of other is set in i.
func (i Intention) Has(other Intention) bool { return i&other == other }

// Any reports whether i and other share at least one bit.
func (i Intention) Any(other Intention) bool { return i&other != 0 }

// Count returns the number of intentions set.
func (i Intention) Count() int { return bits.OnesCount32(uint32(i)) }

// Validate reports an error if i carries bits outside IntentMask.
func (i Intention) Validate() error {
	if extra := i &^ IntentMask; extra != 0 {
		return fmt.Errorf("undefined intention bits %#x", uint32(extra))
	}
	return nil
}

// Names returns the names of the set bits in declaration order.
func (i Intention) Names() []string {
	var out []string
	for _, in := range intentionNames {
		if i&in.bit != 0 {
			out = append(out, in.name)
		}
	}
	return out
}

// String joins Names with "|".
func (i Intention) String() string {
	if i == IntentNone {
		return "none"
	}
	return strings.Join(i.Names(), "|")
}

// ParseIntention parses a single intention name.
func ParseIntention(s string) (Intention, error) {
	n := normalize(s)
	for _, in := range intentionNames {
		if in.name == n {
			return in.bit, nil
		}
	}
	return IntentNone, fmt.Errorf("unknown intention %q", s)
}

// ParseIntentions parses a list of intention names into a bitset.
func ParseIntentions(names []string) (Intention, error) {
	var out Intention
	for _, s := range names {
		in, err := ParseIntention(s)
		if err != nil {
			return IntentNone, err
		}
		out |= in
	}
	return out, nil
}

// UnmarshalYAML decodes either a sequence of names or a single name.
func (i *Intention) UnmarshalYAML(value *yaml.Node) error {
	var names []string
	if value.Kind == yaml.ScalarNode {
		names = []string{value.Value}
	} else if err := value.Decode(&names); err != nil {
		return err
	}
	parsed, err := ParseIntentions(names)
	if err != nil {
		return err
	}
	*i = parsed
	return nil
}

// MarshalYAML encodes the set as a sequence of names.
func (i Intention) MarshalYAML() (any, error) { return i.Names(), nil }
