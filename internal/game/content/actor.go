package content

import (
	"errors"
	"fmt"

	"github.com/cory-johannsen/melee/internal/game/combat"
	"github.com/cory-johannsen/melee/internal/game/fault"
)

// ActorDef is the serialized form of one combatant.
type ActorDef struct {
	ID       string             `yaml:"id"`
	Name     string             `yaml:"name"`
	Strategy string             `yaml:"strategy"`
	Body     string             `yaml:"body"`
	Armour   []string           `yaml:"armour"` // outermost first
	Skills   map[string]float64 `yaml:"skills"`
	Traits   map[int64]float64  `yaml:"traits"`
	Strength float64            `yaml:"strength"`
	Stamina  float64            `yaml:"stamina"`
	Quality  float64            `yaml:"quality"`
	Weapons  []string           `yaml:"weapons"`
	Natural  []string           `yaml:"natural"`
	Ranged   string             `yaml:"ranged"`
}

func (c *Content) validateActor(d *ActorDef) error {
	var errs []error
	if d.ID == "" {
		errs = append(errs, errors.New("id must not be empty"))
	}
	if d.Stamina < 0 {
		errs = append(errs, errors.New("stamina must be >= 0"))
	}
	if d.Quality < 0 || d.Quality > 11 {
		errs = append(errs, errors.New("quality must be within [0, 11]"))
	}
	if _, ok := c.Strategies.Profile(d.Strategy); !ok {
		errs = append(errs, fmt.Errorf("unknown strategy %q", d.Strategy))
	}
	if d.Body != "" {
		if _, ok := c.Bodies[d.Body]; !ok {
			errs = append(errs, fmt.Errorf("unknown body %q", d.Body))
		}
	}
	for _, id := range d.Armour {
		if _, ok := c.Armour[id]; !ok {
			errs = append(errs, fmt.Errorf("unknown armour %q", id))
		}
	}
	if d.Ranged != "" {
		if _, ok := c.Ranged[d.Ranged]; !ok {
			errs = append(errs, fmt.Errorf("unknown ranged profile %q", d.Ranged))
		}
	}
	if len(errs) > 0 {
		return fault.NewConfigError("actor", d.ID, errors.Join(errs...))
	}
	return nil
}

// BuildActor creates a fresh combat.Actor from d. An actor without a body
// is struck on a single unarmoured location.
//
// Postcondition: Returns a new Actor, or a *fault.ConfigError when d names
// an entity c does not hold.
func (c *Content) BuildActor(d *ActorDef) (*combat.Actor, error) {
	if err := c.validateActor(d); err != nil {
		return nil, err
	}
	strategy, _ := c.Strategies.Profile(d.Strategy)
	spec := combat.ActorSpec{
		ID:       d.ID,
		Name:     d.Name,
		Strategy: strategy,
		Skills:   make(map[string]float64, len(d.Skills)),
		Traits:   make(map[int64]float64, len(d.Traits)),
		Strength: d.Strength,
		Stamina:  d.Stamina,
		Quality:  d.Quality,
		Weapons:  append([]string(nil), d.Weapons...),
		Natural:  append([]string(nil), d.Natural...),
	}
	for k, v := range d.Skills {
		spec.Skills[k] = v
	}
	for k, v := range d.Traits {
		spec.Traits[k] = v
	}
	if d.Body != "" {
		spec.Locations = c.Bodies[d.Body].instance()
	}
	for _, id := range d.Armour {
		spec.Armour = append(spec.Armour, c.Armour[id])
	}
	if d.Ranged != "" {
		spec.Ranged = c.Ranged[d.Ranged]
	}
	return combat.NewActor(spec), nil
}
