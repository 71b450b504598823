package content

import (
	"errors"
	"fmt"

	"github.com/cory-johannsen/melee/internal/game/combat"
	"github.com/cory-johannsen/melee/internal/game/damage"
	"github.com/cory-johannsen/melee/internal/game/fault"
	"github.com/cory-johannsen/melee/internal/game/move"
)

// LocationDef is the serialized form of one body location.
type LocationDef struct {
	ID          string            `yaml:"id"`
	Weight      float64           `yaml:"weight"`
	Alignment   move.Alignment    `yaml:"alignment"`
	Orientation move.Orientation  `yaml:"orientation"`
	Hand        move.Handedness   `yaml:"hand"`
	Limb        bool              `yaml:"limb"`
	Layers      []damage.LayerDef `yaml:"layers"`
}

// BodyDef is a reusable body plan shared by actors of the same kind.
type BodyDef struct {
	ID        string        `yaml:"id"`
	Locations []LocationDef `yaml:"locations"`
}

// Body is a compiled BodyDef.
type Body struct {
	ID        string
	Locations []*combat.Location
}

// Compile validates d and compiles every natural layer.
//
// Postcondition: Returns a Body with at least one location of positive
// weight, or a *fault.ConfigError.
func (d *BodyDef) Compile() (*Body, error) {
	var errs []error
	if d.ID == "" {
		errs = append(errs, errors.New("id must not be empty"))
	}
	if len(d.Locations) == 0 {
		errs = append(errs, errors.New("at least one location is required"))
	}
	b := &Body{ID: d.ID}
	seen := make(map[string]struct{}, len(d.Locations))
	total := 0.0
	for i := range d.Locations {
		ld := &d.Locations[i]
		if ld.ID == "" {
			errs = append(errs, fmt.Errorf("location %d: id must not be empty", i))
			continue
		}
		if _, dup := seen[ld.ID]; dup {
			errs = append(errs, fmt.Errorf("location %q: duplicate id", ld.ID))
			continue
		}
		seen[ld.ID] = struct{}{}
		if ld.Weight < 0 {
			errs = append(errs, fmt.Errorf("location %q: weight must be >= 0", ld.ID))
			continue
		}
		total += ld.Weight
		loc := &combat.Location{
			ID:          ld.ID,
			Weight:      ld.Weight,
			Alignment:   ld.Alignment,
			Orientation: ld.Orientation,
			Hand:        ld.Hand,
			Limb:        ld.Limb,
		}
		for j := range ld.Layers {
			l, err := ld.Layers[j].Compile()
			if err != nil {
				errs = append(errs, fmt.Errorf("location %q: %w", ld.ID, err))
				continue
			}
			loc.Layers = append(loc.Layers, l)
		}
		b.Locations = append(b.Locations, loc)
	}
	if len(d.Locations) > 0 && total <= 0 {
		errs = append(errs, errors.New("location weights must sum to > 0"))
	}
	if len(errs) > 0 {
		return nil, fault.NewConfigError("body", d.ID, errors.Join(errs...))
	}
	return b, nil
}

// instance returns per-actor copies of b's locations. Natural layers are
// immutable and shared.
func (b *Body) instance() []*combat.Location {
	out := make([]*combat.Location, len(b.Locations))
	for i, l := range b.Locations {
		cp := *l
		out[i] = &cp
	}
	return out
}
