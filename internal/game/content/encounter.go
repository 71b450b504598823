package content

import (
	"errors"
	"fmt"

	"github.com/cory-johannsen/melee/internal/game/combat"
	"github.com/cory-johannsen/melee/internal/game/fault"
)

// EngagementDef is one directed actor/opponent pairing.
type EngagementDef struct {
	Actor    string `yaml:"actor"`
	Opponent string `yaml:"opponent"`
}

// RangeDef is the starting distance between two actors.
type RangeDef struct {
	A     string  `yaml:"a"`
	B     string  `yaml:"b"`
	Range float64 `yaml:"range"`
}

// EncounterDef is the serialized form of a scheduled combat.
type EncounterDef struct {
	ID          string          `yaml:"id"`
	Engagements []EngagementDef `yaml:"engagements"`
	Ranges      []RangeDef      `yaml:"ranges"`
}

// Encounter converts d to the scheduler's form.
func (d *EncounterDef) Encounter() combat.Encounter {
	enc := combat.Encounter{ID: d.ID, Engagements: make([]combat.Engagement, len(d.Engagements))}
	for i, e := range d.Engagements {
		enc.Engagements[i] = combat.Engagement{Actor: e.Actor, Opponent: e.Opponent}
	}
	return enc
}

func (d *EncounterDef) validate(actors map[string]struct{}) error {
	var errs []error
	if d.ID == "" {
		errs = append(errs, errors.New("id must not be empty"))
	}
	if len(d.Engagements) == 0 {
		errs = append(errs, errors.New("at least one engagement is required"))
	}
	known := func(id string) {
		if _, ok := actors[id]; !ok {
			errs = append(errs, fmt.Errorf("unknown actor %q", id))
		}
	}
	for _, e := range d.Engagements {
		known(e.Actor)
		known(e.Opponent)
		if e.Actor == e.Opponent {
			errs = append(errs, fmt.Errorf("actor %q cannot engage itself", e.Actor))
		}
	}
	for _, r := range d.Ranges {
		known(r.A)
		known(r.B)
		if r.Range < 0 {
			errs = append(errs, fmt.Errorf("range between %q and %q must be >= 0", r.A, r.B))
		}
	}
	if len(errs) > 0 {
		return fault.NewConfigError("encounter", d.ID, errors.Join(errs...))
	}
	return nil
}
