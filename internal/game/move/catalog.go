package move

import (
	"bytes"
	"errors"
	"fmt"
	"sort"

	"gopkg.in/yaml.v3"

	"github.com/cory-johannsen/melee/internal/game/fault"
	"github.com/cory-johannsen/melee/internal/game/formula"
)

// Catalog indexes compiled attacks by ID together with the shared formula
// library they reference. A Catalog is built once at startup and is read-only
// afterwards; concurrent reads are safe.
//
// Invariant: each attack and formula ID is registered at most once.
type Catalog struct {
	formulas map[string]*formula.Formula
	attacks  map[string]*Attack
	order    []string
}

// NewCatalog returns an empty Catalog.
func NewCatalog() *Catalog {
	return &Catalog{
		formulas: make(map[string]*formula.Formula),
		attacks:  make(map[string]*Attack),
	}
}

// AddFormula parses src and stores it under id.
//
// Postcondition: returns a *fault.ConfigError on a duplicate id or a parse
// failure; the catalog is unchanged on error.
func (c *Catalog) AddFormula(id, src string) error {
	if id == "" {
		return fault.NewConfigError("formula", id, errors.New("id must not be empty"))
	}
	if _, dup := c.formulas[id]; dup {
		return fault.NewConfigError("formula", id, errors.New("duplicate id"))
	}
	f, err := formula.Parse(src)
	if err != nil {
		return fault.NewConfigError("formula", id, err)
	}
	c.formulas[id] = f
	return nil
}

// Formula returns the shared formula registered under id.
func (c *Catalog) Formula(id string) (*formula.Formula, bool) {
	f, ok := c.formulas[id]
	return f, ok
}

// AddAttack compiles def against the formula library and stores it.
//
// Postcondition: returns a *fault.ConfigError on any validation failure or a
// duplicate id; the catalog is unchanged on error.
func (c *Catalog) AddAttack(def *AttackDef) error {
	if _, dup := c.attacks[def.ID]; dup {
		return fault.NewConfigError("attack", def.ID, errors.New("duplicate id"))
	}
	a, err := def.Compile(c.Formula)
	if err != nil {
		return err
	}
	c.attacks[a.ID] = a
	c.order = append(c.order, a.ID)
	return nil
}

// Attack returns the attack registered under id.
func (c *Catalog) Attack(id string) (*Attack, bool) {
	a, ok := c.attacks[id]
	return a, ok
}

// Attacks returns every attack in registration order.
func (c *Catalog) Attacks() []*Attack {
	out := make([]*Attack, 0, len(c.order))
	for _, id := range c.order {
		out = append(out, c.attacks[id])
	}
	return out
}

// Len returns the number of attacks.
func (c *Catalog) Len() int { return len(c.attacks) }

// FormulaIDs returns the shared formula IDs, sorted.
func (c *Catalog) FormulaIDs() []string {
	out := make([]string, 0, len(c.formulas))
	for id := range c.formulas {
		out = append(out, id)
	}
	sort.Strings(out)
	return out
}

// Filter returns the attacks for which keep returns true, in registration
// order.
func (c *Catalog) Filter(keep func(*Attack) bool) []*Attack {
	var out []*Attack
	for _, id := range c.order {
		if a := c.attacks[id]; keep(a) {
			out = append(out, a)
		}
	}
	return out
}

// Document is the YAML shape of a catalog file: shared formulas and the
// attacks that reference them.
type Document struct {
	Formulas map[string]string `yaml:"formulas"`
	Attacks  []AttackDef       `yaml:"attacks"`
}

// Load adds every formula and attack in doc. Formulas are added first, in
// sorted ID order, so attacks in the same document may reference them.
//
// Postcondition: on error nothing from doc has been added.
func (c *Catalog) Load(doc *Document) error {
	staged := &Catalog{
		formulas: make(map[string]*formula.Formula, len(c.formulas)+len(doc.Formulas)),
		attacks:  make(map[string]*Attack, len(c.attacks)+len(doc.Attacks)),
		order:    append([]string(nil), c.order...),
	}
	for id, f := range c.formulas {
		staged.formulas[id] = f
	}
	for id, a := range c.attacks {
		staged.attacks[id] = a
	}

	var errs []error
	ids := make([]string, 0, len(doc.Formulas))
	for id := range doc.Formulas {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	for _, id := range ids {
		if err := staged.AddFormula(id, doc.Formulas[id]); err != nil {
			errs = append(errs, err)
		}
	}
	for i := range doc.Attacks {
		if err := staged.AddAttack(&doc.Attacks[i]); err != nil {
			errs = append(errs, err)
		}
	}
	if len(errs) > 0 {
		return errors.Join(errs...)
	}
	*c = *staged
	return nil
}

// ParseDocument decodes a catalog YAML document, rejecting unknown fields.
func ParseDocument(data []byte) (*Document, error) {
	var doc Document
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&doc); err != nil {
		return nil, fault.NewConfigError("catalog", "", fmt.Errorf("decoding: %w", err))
	}
	return &doc, nil
}
