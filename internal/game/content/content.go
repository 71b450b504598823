// Package content loads the YAML content that configures the combat engine:
// the move catalog, armour, ranged profiles, strategies, bodies, actors and
// encounters.
//
// Content arrives as Documents tagged with a Kind. On disk a content tree is
// a directory with one optional subdirectory per kind:
//
//	moves/       move.Document files, merged into one catalog
//	armour/      one damage.ArmourDef per file
//	ranged/      sequences of ranged.ProfileDef
//	strategies/  sequences of ai.ProfileDef
//	bodies/      sequences of BodyDef
//	actors/      sequences of ActorDef
//	encounters/  sequences of EncounterDef
//
// Loading is all-or-nothing: any malformed or dangling entity fails the load.
package content

import (
	"errors"
	"fmt"

	"github.com/cory-johannsen/melee/internal/game/ai"
	"github.com/cory-johannsen/melee/internal/game/combat"
	"github.com/cory-johannsen/melee/internal/game/damage"
	"github.com/cory-johannsen/melee/internal/game/fault"
	"github.com/cory-johannsen/melee/internal/game/move"
	"github.com/cory-johannsen/melee/internal/game/ranged"
)

// Content is a fully loaded and cross-validated content set. Immutable
// after load.
type Content struct {
	Catalog    *move.Catalog
	Armour     map[string]*damage.Armour
	Ranged     map[string]*ranged.Profile
	Strategies *ai.Registry
	Bodies     map[string]*Body
	Actors     []ActorDef
	Encounters []EncounterDef
}

// New returns an empty Content.
func New() *Content {
	return &Content{
		Catalog:    move.NewCatalog(),
		Armour:     make(map[string]*damage.Armour),
		Ranged:     make(map[string]*ranged.Profile),
		Strategies: ai.NewRegistry(),
		Bodies:     make(map[string]*Body),
	}
}

// Load reads the content tree rooted at dir.
//
// Precondition: dir must be a readable directory. Missing subdirectories are
// treated as empty.
// Postcondition: Returns a cross-validated Content, or an error joining every
// problem found.
func Load(dir string) (*Content, error) {
	docs, err := ReadDir(dir)
	if err != nil {
		return nil, err
	}
	return LoadDocuments(docs)
}

// LoadDocuments builds a Content from docs. Kinds are applied in Kinds order
// so formulas and profiles exist before anything references them; documents
// of one kind are applied in Name order.
//
// Postcondition: Returns a cross-validated Content, or an error joining every
// problem found. No partially loaded Content is returned.
func LoadDocuments(docs []Document) (*Content, error) {
	c := New()
	var errs []error
	for _, d := range docs {
		if !d.Kind.Valid() {
			errs = append(errs, fmt.Errorf("document %q: unknown kind %q", d.Name, d.Kind))
		}
	}
	for _, kind := range Kinds {
		for _, d := range byKind(docs, kind) {
			if err := c.apply(d); err != nil {
				errs = append(errs, err)
			}
		}
	}
	if len(errs) > 0 {
		return nil, errors.Join(errs...)
	}
	if err := c.Validate(); err != nil {
		return nil, err
	}
	return c, nil
}

// Validate checks every cross reference between loaded entities.
//
// Postcondition: Returns nil, or an error joining one *fault.ConfigError per
// dangling reference.
func (c *Content) Validate() error {
	var errs []error
	for _, atk := range c.Catalog.Attacks() {
		if atk.Ranged == "" {
			continue
		}
		if _, ok := c.Ranged[atk.Ranged]; !ok {
			errs = append(errs, fault.NewConfigError("attack", atk.ID, fmt.Errorf("unknown ranged profile %q", atk.Ranged)))
		}
	}
	actors := make(map[string]struct{}, len(c.Actors))
	for i := range c.Actors {
		def := &c.Actors[i]
		if _, dup := actors[def.ID]; dup {
			errs = append(errs, fault.NewConfigError("actor", def.ID, errors.New("duplicate id")))
		}
		actors[def.ID] = struct{}{}
		if err := c.validateActor(def); err != nil {
			errs = append(errs, err)
		}
	}
	encounters := make(map[string]struct{}, len(c.Encounters))
	for i := range c.Encounters {
		enc := &c.Encounters[i]
		if _, dup := encounters[enc.ID]; dup {
			errs = append(errs, fault.NewConfigError("encounter", enc.ID, errors.New("duplicate id")))
		}
		encounters[enc.ID] = struct{}{}
		if err := enc.validate(actors); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Populate builds every actor into e and registers every encounter with s.
// s may be nil when only the engine is wanted.
//
// Postcondition: on error, actors added before the failure remain in e.
func (c *Content) Populate(e *combat.Engine, s *combat.Scheduler) error {
	for i := range c.Actors {
		a, err := c.BuildActor(&c.Actors[i])
		if err != nil {
			return err
		}
		if err := e.AddActor(a); err != nil {
			return fmt.Errorf("adding actor %q: %w", a.ID, err)
		}
	}
	for i := range c.Encounters {
		enc := &c.Encounters[i]
		for _, r := range enc.Ranges {
			e.SetRange(r.A, r.B, r.Range)
		}
		if s == nil {
			continue
		}
		if err := s.Add(enc.Encounter()); err != nil {
			return fmt.Errorf("adding encounter %q: %w", enc.ID, err)
		}
	}
	return nil
}

func (c *Content) apply(d Document) error {
	var err error
	switch d.Kind {
	case KindMoves:
		err = c.applyMoves(d.Data)
	case KindArmour:
		err = c.applyArmour(d.Data)
	case KindRanged:
		err = c.applyRanged(d.Data)
	case KindStrategies:
		err = c.applyStrategies(d.Data)
	case KindBodies:
		err = c.applyBodies(d.Data)
	case KindActors:
		err = c.applyActors(d.Data)
	case KindEncounters:
		err = c.applyEncounters(d.Data)
	}
	if err != nil {
		return fmt.Errorf("%s/%s: %w", d.Kind, d.Name, err)
	}
	return nil
}

func (c *Content) applyMoves(data []byte) error {
	doc, err := move.ParseDocument(data)
	if err != nil {
		return err
	}
	return c.Catalog.Load(doc)
}

func (c *Content) applyArmour(data []byte) error {
	a, err := damage.ParseArmour(data)
	if err != nil {
		return err
	}
	if _, dup := c.Armour[a.ID]; dup {
		return fault.NewConfigError("armour", a.ID, errors.New("duplicate id"))
	}
	c.Armour[a.ID] = a
	return nil
}

func (c *Content) applyRanged(data []byte) error {
	profiles, err := ranged.ParseProfiles(data, c.Catalog.Formula)
	if err != nil {
		return err
	}
	var errs []error
	for _, p := range profiles {
		if _, dup := c.Ranged[p.ID]; dup {
			errs = append(errs, fault.NewConfigError("ranged", p.ID, errors.New("duplicate id")))
			continue
		}
		c.Ranged[p.ID] = p
	}
	return errors.Join(errs...)
}

func (c *Content) applyStrategies(data []byte) error {
	profiles, err := ai.ParseProfiles(data)
	if err != nil {
		return err
	}
	var errs []error
	for _, p := range profiles {
		if err := c.Strategies.Register(p); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func (c *Content) applyBodies(data []byte) error {
	var defs []BodyDef
	if err := decodeStrict(data, &defs); err != nil {
		return fault.NewConfigError("body", "", fmt.Errorf("decoding: %w", err))
	}
	var errs []error
	for i := range defs {
		b, err := defs[i].Compile()
		if err != nil {
			errs = append(errs, err)
			continue
		}
		if _, dup := c.Bodies[b.ID]; dup {
			errs = append(errs, fault.NewConfigError("body", b.ID, errors.New("duplicate id")))
			continue
		}
		c.Bodies[b.ID] = b
	}
	return errors.Join(errs...)
}

func (c *Content) applyActors(data []byte) error {
	var defs []ActorDef
	if err := decodeStrict(data, &defs); err != nil {
		return fault.NewConfigError("actor", "", fmt.Errorf("decoding: %w", err))
	}
	c.Actors = append(c.Actors, defs...)
	return nil
}

func (c *Content) applyEncounters(data []byte) error {
	var defs []EncounterDef
	if err := decodeStrict(data, &defs); err != nil {
		return fault.NewConfigError("encounter", "", fmt.Errorf("decoding: %w", err))
	}
	c.Encounters = append(c.Encounters, defs...)
	return nil
}
