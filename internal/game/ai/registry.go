package ai

import (
	"errors"
	"sort"

	"github.com/cory-johannsen/melee/internal/game/fault"
)

// Registry indexes strategy profiles by ID.
//
// Invariant: each profile ID is registered at most once.
type Registry struct {
	profiles map[string]*Profile
}

// NewRegistry returns an empty Registry.
func NewRegistry() *Registry {
	return &Registry{profiles: make(map[string]*Profile)}
}

// Register stores p.
//
// Precondition: p must not be nil.
// Postcondition: returns a *fault.ConfigError on ID collision.
func (r *Registry) Register(p *Profile) error {
	if _, exists := r.profiles[p.ID]; exists {
		return fault.NewConfigError("strategy", p.ID, errors.New("duplicate id"))
	}
	r.profiles[p.ID] = p
	return nil
}

// Profile returns the profile for id, or false if not registered.
func (r *Registry) Profile(id string) (*Profile, bool) {
	p, ok := r.profiles[id]
	return p, ok
}

// IDs returns every registered profile ID, sorted.
func (r *Registry) IDs() []string {
	out := make([]string, 0, len(r.profiles))
	for id := range r.profiles {
		out = append(out, id)
	}
	sort.Strings(out)
	return out
}
