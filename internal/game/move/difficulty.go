// Package move defines attack moves, the catalog that holds them, and the
// opposed percentile check that decides whether a move connects.
package move

import (
	"fmt"
	"strings"

	"gopkg.in/yaml.v3"
)

// Difficulty is one step on the eleven-step difficulty ladder.
type Difficulty int

const (
	Automatic Difficulty = iota
	Trivial
	ExtremelyEasy
	VeryEasy
	Easy
	Normal
	Hard
	VeryHard
	ExtremelyHard
	Insane
	Impossible
)

var difficultyNames = []string{
	"Automatic", "Trivial", "ExtremelyEasy", "VeryEasy", "Easy", "Normal",
	"Hard", "VeryHard", "ExtremelyHard", "Insane", "Impossible",
}

// StepSize is the target increase per difficulty step.
const StepSize = 10

// String returns the canonical name.
func (d Difficulty) String() string {
	if d < Automatic || d > Impossible {
		return fmt.Sprintf("Difficulty(%d)", int(d))
	}
	return difficultyNames[d]
}

// Valid reports whether d is on the ladder.
func (d Difficulty) Valid() bool { return d >= Automatic && d <= Impossible }

// Target returns the base percentile target for d: 0 at Automatic rising by
// StepSize per step, so Normal is 50.
func (d Difficulty) Target() float64 {
	return float64(d.clamp()) * StepSize
}

// Stage moves d by steps, positive harder, clamped to the ladder.
//
// Postcondition: result.Valid() is true.
func (d Difficulty) Stage(steps int) Difficulty {
	return (d + Difficulty(steps)).clamp()
}

// StageUp returns the next harder difficulty, saturating at Impossible.
func (d Difficulty) StageUp() Difficulty { return d.Stage(1) }

// StageDown returns the next easier difficulty, saturating at Automatic.
func (d Difficulty) StageDown() Difficulty { return d.Stage(-1) }

func (d Difficulty) clamp() Difficulty {
	switch {
	case d < Automatic:
		return Automatic
	case d > Impossible:
		return Impossible
	default:
		return d
	}
}

// ParseDifficulty parses a difficulty name ignoring case, spaces, hyphens
// and underscores.
func ParseDifficulty(s string) (Difficulty, error) {
	n := normalize(s)
	for i, name := range difficultyNames {
		if strings.ToLower(name) == n {
			return Difficulty(i), nil
		}
	}
	return 0, fmt.Errorf("unknown difficulty %q", s)
}

// UnmarshalYAML decodes a difficulty from its name.
func (d *Difficulty) UnmarshalYAML(value *yaml.Node) error {
	var s string
	if err := value.Decode(&s); err != nil {
		return err
	}
	parsed, err := ParseDifficulty(s)
	if err != nil {
		return err
	}
	*d = parsed
	return nil
}

// MarshalYAML encodes a difficulty as its name.
func (d Difficulty) MarshalYAML() (any, error) { return d.String(), nil }

func normalize(s string) string {
	return strings.ToLower(strings.NewReplacer("_", "", "-", "", " ", "").Replace(s))
}
