package combat

import (
	"sort"
	"sync"

	"github.com/cory-johannsen/melee/internal/game/ai"
	"github.com/cory-johannsen/melee/internal/game/damage"
	"github.com/cory-johannsen/melee/internal/game/move"
	"github.com/cory-johannsen/melee/internal/game/ranged"
)

// DefaultQuality is the armour quality used when an actor sets none.
const DefaultQuality = 5.0

// Location is one body location a strike can land on.
type Location struct {
	ID          string
	Weight      float64
	Alignment   move.Alignment
	Orientation move.Orientation
	// Hand marks the location as the limb that works the main or off hand.
	Hand move.Handedness
	// Limb marks locations that can be locked and incapacitated.
	Limb bool
	// Layers are the natural layers (skin, flesh, bone), outermost first.
	Layers []*damage.Layer
}

// Wound is terminal damage recorded against a location.
type Wound struct {
	Location string         `json:"location"`
	Type     damage.Type    `json:"type"`
	Amounts  damage.Amounts `json:"amounts"`
	Tick     int64          `json:"tick"`
}

// Actor is one combatant and the sole owner of its mutable combat state.
//
// Invariant: fields below mu are only read or written while mu is held.
type Actor struct {
	ID       string
	Name     string
	Strategy *ai.Profile
	// Skills are percentile-scale ratings keyed by skill name.
	Skills map[string]float64
	// Traits are addressed from formulas as "trait:<id>".
	Traits   map[int64]float64
	Strength float64
	// Quality is the 0-11 rating of the actor's worn armour.
	Quality   float64
	Locations []*Location
	// Armour is worn outermost first.
	Armour []*damage.Armour

	mu             sync.Mutex
	stamina        float64
	weapons        map[string]struct{}
	natural        map[string]struct{}
	weapon         *ranged.Weapon
	prone          bool
	staggeredUntil int64
	busyUntil      int64
	incapacitated  map[string]struct{}
	dropped        []string
	wounds         []Wound
	totals         damage.Amounts
	wear           map[string]float64
	overrides      []string
}

// ActorSpec configures a new Actor.
type ActorSpec struct {
	ID        string
	Name      string
	Strategy  *ai.Profile
	Skills    map[string]float64
	Traits    map[int64]float64
	Strength  float64
	Stamina   float64
	Quality   float64
	Weapons   []string
	Natural   []string
	Locations []*Location
	Armour    []*damage.Armour
	Ranged    *ranged.Profile
}

// NewActor creates an Actor from spec.
//
// Precondition: spec.ID must be non-empty and spec.Strategy non-nil.
func NewActor(spec ActorSpec) *Actor {
	if spec.ID == "" {
		panic("combat.NewActor: ID must not be empty")
	}
	if spec.Strategy == nil {
		panic("combat.NewActor: Strategy must not be nil")
	}
	a := &Actor{
		ID:            spec.ID,
		Name:          spec.Name,
		Strategy:      spec.Strategy,
		Skills:        spec.Skills,
		Traits:        spec.Traits,
		Strength:      spec.Strength,
		Quality:       spec.Quality,
		Locations:     spec.Locations,
		Armour:        spec.Armour,
		stamina:       spec.Stamina,
		weapons:       make(map[string]struct{}),
		natural:       make(map[string]struct{}),
		incapacitated: make(map[string]struct{}),
		wear:          make(map[string]float64),
	}
	if a.Quality == 0 {
		a.Quality = DefaultQuality
	}
	for _, w := range spec.Weapons {
		a.weapons[w] = struct{}{}
	}
	for _, n := range spec.Natural {
		a.natural[n] = struct{}{}
	}
	if spec.Ranged != nil {
		a.weapon = ranged.NewWeapon(spec.Ranged)
	}
	return a
}

// Stamina implements ranged.Stamina. Caller must hold the actor's lock.
func (a *Actor) Stamina() float64 { return a.stamina }

// SpendStamina implements ranged.Stamina. Caller must hold the actor's lock.
func (a *Actor) SpendStamina(cost float64) {
	a.stamina = max(0, a.stamina-cost)
}

// Skill returns the named skill, 0 when untrained.
func (a *Actor) Skill(name string) float64 { return a.Skills[name] }

// Snapshot is a consistent copy of an actor's mutable state.
type Snapshot struct {
	ID             string             `json:"id"`
	Stamina        float64            `json:"stamina"`
	Prone          bool               `json:"prone"`
	StaggeredUntil int64              `json:"staggered_until"`
	BusyUntil      int64              `json:"busy_until"`
	Weapons        []string           `json:"weapons"`
	Dropped        []string           `json:"dropped,omitempty"`
	Incapacitated  []string           `json:"incapacitated,omitempty"`
	Wounds         []Wound            `json:"wounds,omitempty"`
	Totals         damage.Amounts     `json:"totals"`
	Wear           map[string]float64 `json:"wear,omitempty"`
	Aim            float64            `json:"aim"`
	Rounds         int                `json:"rounds"`
	WeaponState    ranged.State       `json:"weapon_state,omitempty"`
}

// Snapshot returns a copy of a's mutable state.
func (a *Actor) Snapshot() Snapshot {
	a.mu.Lock()
	defer a.mu.Unlock()
	s := Snapshot{
		ID:             a.ID,
		Stamina:        a.stamina,
		Prone:          a.prone,
		StaggeredUntil: a.staggeredUntil,
		BusyUntil:      a.busyUntil,
		Weapons:        sortedKeys(a.weapons),
		Dropped:        append([]string(nil), a.dropped...),
		Incapacitated:  sortedKeys(a.incapacitated),
		Wounds:         append([]Wound(nil), a.wounds...),
		Totals:         a.totals,
		Wear:           make(map[string]float64, len(a.wear)),
	}
	for k, v := range a.wear {
		s.Wear[k] = v
	}
	if a.weapon != nil {
		s.Aim = a.weapon.Aim()
		s.Rounds = a.weapon.Rounds()
		s.WeaponState = a.weapon.State()
	}
	return s
}

// Queue appends a manual override. The move is consumed at the actor's next
// selection if it is still legal then.
func (a *Actor) Queue(moveID string) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.overrides = append(a.overrides, moveID)
}

// SetProne sets or clears the prone flag.
func (a *Actor) SetProne(prone bool) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.prone = prone
}

// popOverride removes and returns the oldest queued override.
func (a *Actor) popOverride() (string, bool) {
	if len(a.overrides) == 0 {
		return "", false
	}
	id := a.overrides[0]
	a.overrides = a.overrides[1:]
	return id, true
}

func (a *Actor) handFree(h move.Handedness) bool {
	for _, loc := range a.Locations {
		if loc.Hand != h {
			continue
		}
		if _, out := a.incapacitated[loc.ID]; out {
			return false
		}
	}
	return true
}

func (a *Actor) location(id string) *Location {
	for _, loc := range a.Locations {
		if loc.ID == id {
			return loc
		}
	}
	return nil
}

// layersFor returns the stack a strike on loc passes through: covering
// armour outermost first, then loc's natural layers.
func (a *Actor) layersFor(loc *Location) []*damage.Layer {
	var out []*damage.Layer
	for _, arm := range a.Armour {
		if arm.CoversLocation(loc.ID) {
			out = append(out, arm.Layers...)
		}
	}
	return append(out, loc.Layers...)
}

func (a *Actor) state() *ai.ActorState {
	s := &ai.ActorState{
		ID:           a.ID,
		Stamina:      a.stamina,
		Weapons:      a.weapons,
		Natural:      make(map[string]struct{}, len(a.natural)),
		MainHandFree: a.handFree(move.HandMain),
		OffHandFree:  a.handFree(move.HandOff),
		Prone:        a.prone,
	}
	for n := range a.natural {
		if _, out := a.incapacitated[n]; !out {
			s.Natural[n] = struct{}{}
		}
	}
	return s
}

func (a *Actor) staggered(tick int64) bool { return tick < a.staggeredUntil }

// drop removes the first wielded weapon class in name order.
func (a *Actor) drop() (string, bool) {
	classes := sortedKeys(a.weapons)
	if len(classes) == 0 {
		return "", false
	}
	w := classes[0]
	delete(a.weapons, w)
	a.dropped = append(a.dropped, w)
	return w, true
}

func (a *Actor) wound(w Wound) {
	a.wounds = append(a.wounds, w)
	a.totals = a.totals.Add(w.Amounts)
}

func sortedKeys(m map[string]struct{}) []string {
	out := make([]string, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}
