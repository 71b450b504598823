package combat

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"sync"

	"go.uber.org/zap"

	"github.com/cory-johannsen/melee/internal/game/ai"
	"github.com/cory-johannsen/melee/internal/game/damage"
	"github.com/cory-johannsen/melee/internal/game/dice"
	"github.com/cory-johannsen/melee/internal/game/fault"
	"github.com/cory-johannsen/melee/internal/game/grapple"
	"github.com/cory-johannsen/melee/internal/game/move"
	"github.com/cory-johannsen/melee/internal/game/ranged"
)

// ErrUnknownActor is returned when an actor ID is not registered.
var ErrUnknownActor = errors.New("combat: unknown actor")

// ErrActorFault is returned when an actor's resolution panicked. The fault
// is isolated to that actor's tick.
var ErrActorFault = errors.New("combat: actor resolution fault")

// SourceFunc returns the RNG handle for one actor's move against one
// opponent on one tick.
type SourceFunc func(actor, opponent string, tick int64) dice.Source

// SeededSources derives every handle from base, the pair and the tick so a
// replay with the same base reproduces every roll regardless of scheduling.
func SeededSources(base uint64) SourceFunc {
	return func(actor, opponent string, tick int64) dice.Source {
		return dice.NewSeededSource(dice.DeriveSeed(base, actor, opponent, strconv.FormatInt(tick, 10)))
	}
}

// Option configures an Engine.
type Option func(*Engine)

// WithSink publishes every resolved EventRecord to sink.
func WithSink(sink EventSink) Option { return func(e *Engine) { e.sink = sink } }

// WithSources replaces the default seeded RNG schedule.
func WithSources(f SourceFunc) Option { return func(e *Engine) { e.sources = f } }

// WithGrapples shares an existing grapple registry.
func WithGrapples(r *grapple.Registry) Option { return func(e *Engine) { e.grapples = r } }

// Engine resolves moves between registered actors.
// All methods are safe for concurrent use; resolutions that share an actor
// serialize on that actor's lock.
type Engine struct {
	catalog  *move.Catalog
	selector *ai.Selector
	pipeline *damage.Pipeline
	grapples *grapple.Registry
	sources  SourceFunc
	sink     EventSink
	logger   *zap.Logger

	mu     sync.RWMutex
	actors map[string]*Actor
	cycles map[pairKey]*Cycle
	ranges map[pairKey]float64
}

// NewEngine creates an Engine.
//
// Precondition: catalog, selector, pipeline and logger must not be nil.
// Postcondition: RNG handles default to SeededSources(0); grapple pairings to
// grapple.DefaultRules.
func NewEngine(catalog *move.Catalog, selector *ai.Selector, pipeline *damage.Pipeline, logger *zap.Logger, opts ...Option) *Engine {
	switch {
	case catalog == nil:
		panic("combat.NewEngine: catalog must not be nil")
	case selector == nil:
		panic("combat.NewEngine: selector must not be nil")
	case pipeline == nil:
		panic("combat.NewEngine: pipeline must not be nil")
	case logger == nil:
		panic("combat.NewEngine: logger must not be nil")
	}
	e := &Engine{
		catalog:  catalog,
		selector: selector,
		pipeline: pipeline,
		logger:   logger,
		actors:   make(map[string]*Actor),
		cycles:   make(map[pairKey]*Cycle),
		ranges:   make(map[pairKey]float64),
	}
	for _, opt := range opts {
		opt(e)
	}
	if e.sources == nil {
		e.sources = SeededSources(0)
	}
	if e.grapples == nil {
		e.grapples = grapple.NewRegistry(nil)
	}
	return e
}

// AddActor registers a.
//
// Postcondition: returns an error if a.ID is already registered.
func (e *Engine) AddActor(a *Actor) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if _, exists := e.actors[a.ID]; exists {
		return fmt.Errorf("combat: actor %q already registered", a.ID)
	}
	e.actors[a.ID] = a
	return nil
}

// Actor returns the registered actor with id.
func (e *Engine) Actor(id string) (*Actor, bool) {
	e.mu.RLock()
	defer e.mu.RUnlock()
	a, ok := e.actors[id]
	return a, ok
}

// Snapshot returns a copy of the actor's state; the zero Snapshot when id is
// not registered.
func (e *Engine) Snapshot(id string) Snapshot {
	a, ok := e.Actor(id)
	if !ok {
		return Snapshot{}
	}
	return a.Snapshot()
}

// RemoveActor unregisters id, drops its cycles and releases its grapples.
func (e *Engine) RemoveActor(id string) {
	e.mu.Lock()
	delete(e.actors, id)
	for k := range e.cycles {
		if k.actor == id || k.opponent == id {
			delete(e.cycles, k)
		}
	}
	e.mu.Unlock()
	e.grapples.Release(id)
}

// Grapples returns the engine's grapple registry.
func (e *Engine) Grapples() *grapple.Registry { return e.grapples }

// SetRange records the distance between a and b. Range is symmetric.
func (e *Engine) SetRange(a, b string, r float64) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.ranges[unordered(a, b)] = r
}

// Range returns the distance between a and b, 0 when unset.
func (e *Engine) Range(a, b string) float64 {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.ranges[unordered(a, b)]
}

// Phase returns the phase of actor's cycle against opponent.
func (e *Engine) Phase(actor, opponent string) Phase {
	e.mu.RLock()
	c, ok := e.cycles[pairKey{actor, opponent}]
	e.mu.RUnlock()
	if !ok {
		return Idle
	}
	a, ok := e.Actor(actor)
	if !ok {
		return c.Phase()
	}
	a.mu.Lock()
	defer a.mu.Unlock()
	return c.Phase()
}

func unordered(a, b string) pairKey {
	if a > b {
		a, b = b, a
	}
	return pairKey{a, b}
}

func (e *Engine) cycle(actor, opponent string) *Cycle {
	k := pairKey{actor, opponent}
	e.mu.Lock()
	defer e.mu.Unlock()
	c, ok := e.cycles[k]
	if !ok {
		c = newCycle(actor, opponent)
		e.cycles[k] = c
	}
	return c
}

func (e *Engine) resetCycle(actor, opponent string) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.cycles[pairKey{actor, opponent}] = newCycle(actor, opponent)
}

// lockPair locks both actors in ID order and returns the matching unlock.
func lockPair(a, b *Actor) func() {
	first, second := a, b
	if second.ID < first.ID {
		first, second = second, first
	}
	first.mu.Lock()
	second.mu.Lock()
	return func() {
		second.mu.Unlock()
		first.mu.Unlock()
	}
}

// SelectAndResolveMove runs one cycle of actorID's move against opponentID
// on tick: select a move, resolve its check, apply damage and secondary
// effects, enter recovery and publish the record.
//
// Cancellation is honoured only until the check begins; after that the
// move's damage and effects always run to completion. An actor still
// recovering yields a KindRecovering record; one with no legal move forfeits
// the tick with a KindForfeit record. Neither is an error, and both are
// published to the sink like any other record.
//
// Postcondition: a panic during resolution is recovered, logged, and
// reported as ErrActorFault; the pair's cycle is reset to Idle.
func (e *Engine) SelectAndResolveMove(ctx context.Context, actorID, opponentID string, tick int64) (rec EventRecord, err error) {
	if actorID == opponentID {
		return EventRecord{}, fmt.Errorf("combat: actor %q cannot oppose itself", actorID)
	}
	actor, ok := e.Actor(actorID)
	if !ok {
		return EventRecord{}, fmt.Errorf("%w: %q", ErrUnknownActor, actorID)
	}
	opp, ok := e.Actor(opponentID)
	if !ok {
		return EventRecord{}, fmt.Errorf("%w: %q", ErrUnknownActor, opponentID)
	}
	cyc := e.cycle(actorID, opponentID)

	unlock := lockPair(actor, opp)
	defer unlock()
	defer func() {
		if r := recover(); r != nil {
			e.logger.Error("actor resolution fault",
				zap.String("actor", actorID),
				zap.String("opponent", opponentID),
				zap.Int64("tick", tick),
				zap.Any("panic", r),
				zap.Stack("stack"),
			)
			e.resetCycle(actorID, opponentID)
			rec, err = EventRecord{}, fmt.Errorf("%w: %v", ErrActorFault, r)
		}
	}()

	// State machine events are never cancelled; ctx is only consulted at the
	// two cancellation points before Checking.
	fctx := context.WithoutCancel(ctx)

	if tick < actor.busyUntil {
		rec = newRecord(tick, KindRecovering, actorID, opponentID)
		e.publish(ctx, rec)
		return rec, nil
	}
	if cyc.Phase() == Recovering {
		if err := cyc.fire(fctx, evReady); err != nil {
			return EventRecord{}, err
		}
	}
	if actor.weapon != nil {
		if err := actor.weapon.Tick(fctx, tick); err != nil {
			e.logger.Warn("ranged tick failed", zap.String("actor", actorID), zap.Error(err))
		}
	}

	if err := cyc.fire(fctx, evSelect); err != nil {
		return EventRecord{}, err
	}
	if err := ctx.Err(); err != nil {
		_ = cyc.cancel(fctx)
		return EventRecord{}, err
	}

	src := e.sources(actorID, opponentID, tick)
	sit := e.situation(actor, opp, tick)
	atk, override, err := e.choose(actor, sit, src)
	if err != nil {
		_ = cyc.cancel(fctx)
		if !errors.Is(err, fault.ErrNoLegalMove) {
			return EventRecord{}, err
		}
		rec = newRecord(tick, KindForfeit, actorID, opponentID)
		rec.Error = err.Error()
		e.publish(ctx, rec)
		return rec, nil
	}
	if err := ctx.Err(); err != nil {
		_ = cyc.cancel(fctx)
		return EventRecord{}, err
	}

	if err := cyc.fire(fctx, evCheck); err != nil {
		return EventRecord{}, err
	}
	rec = newRecord(tick, KindStrike, actorID, opponentID)
	rec.Move = atk.ID
	rec.MoveType = atk.Type
	rec.Override = override

	r := &resolution{
		engine: e,
		ctx:    fctx,
		rec:    &rec,
		actor:  actor,
		opp:    opp,
		atk:    atk,
		sit:    sit,
		roller: dice.NewLoggedRoller(src, e.logger),
		tick:   tick,
	}
	hit := r.run()

	next := evMiss
	rec.Phase = ResolvedMiss
	if hit {
		next = evHit
		rec.Phase = ResolvedHit
	}
	if err := cyc.fire(fctx, next); err != nil {
		return EventRecord{}, err
	}

	actor.SpendStamina(atk.StaminaCost)
	outcome := move.Fail
	switch {
	case rec.Check != nil:
		outcome = rec.Check.Outcome
	case hit:
		outcome = move.Pass
	}
	rec.Recovery = move.RecoveryTicks(atk, outcome)
	actor.busyUntil = tick + 1 + int64(rec.Recovery)
	if err := cyc.fire(fctx, evRecover); err != nil {
		return EventRecord{}, err
	}

	e.publish(ctx, rec)
	return rec, nil
}

// choose returns the first still-legal queued override, else the strategy's
// pick.
func (e *Engine) choose(actor *Actor, sit *ai.Situation, src dice.Source) (*move.Attack, bool, error) {
	for {
		id, ok := actor.popOverride()
		if !ok {
			break
		}
		atk, found := e.catalog.Attack(id)
		if found && overrideLegal(sit, actor, atk) {
			return atk, true, nil
		}
		e.logger.Debug("override discarded",
			zap.String("actor", actor.ID),
			zap.String("move", id),
			zap.Bool("known", found),
		)
	}
	atk, err := e.selector.Select(actor.Strategy, sit, e.catalog.Attacks(), src)
	return atk, false, err
}

// overrideLegal extends Situation.Legal: a manual trigger pull on an empty
// weapon is accepted and resolves to a click.
func overrideLegal(sit *ai.Situation, actor *Actor, atk *move.Attack) bool {
	if sit.Legal(atk) {
		return true
	}
	w := actor.weapon
	return atk.Type == move.RangedFire &&
		w != nil &&
		w.State() == ranged.Empty &&
		w.Profile().ID == atk.Ranged &&
		!sit.Engaged()
}

// situation snapshots actor and opp for the selector. Caller holds both
// actors' locks.
func (e *Engine) situation(actor, opp *Actor, tick int64) *ai.Situation {
	sit := &ai.Situation{
		Tick:         tick,
		Actor:        actor.state(),
		Opponent:     opp.state(),
		Range:        e.Range(actor.ID, opp.ID),
		Grapple:      grapple.Free,
		GrappleLegal: make(map[grapple.Transition]bool),
	}
	if m, ok := e.grapples.Get(actor.ID, opp.ID); ok {
		sit.Grapple = m.State()
		sit.Grappler = m.Grappler() == actor.ID
	}
	for _, t := range grapple.Transitions {
		req := grapple.Request{Actor: actor.ID, Opponent: opp.ID, Transition: t}
		if e.grapples.Legal(req) == nil {
			sit.GrappleLegal[t] = true
		}
	}
	if w := actor.weapon; w != nil {
		sit.Ranged = &ai.WeaponState{
			Profile:   w.Profile().ID,
			State:     w.State(),
			Aim:       w.Aim(),
			CanLoad:   w.CanLoad(tick, actor),
			CanReady:  w.CanReady(tick, actor),
			CanAim:    w.CanAim(tick),
			CanFire:   w.CanFire(tick, actor) && w.Profile().InRange(sit.Range),
			CanUnload: w.CanUnload(tick),
		}
	}
	return sit
}

func (e *Engine) publish(ctx context.Context, rec EventRecord) {
	if e.sink == nil {
		return
	}
	if err := e.sink.Publish(context.WithoutCancel(ctx), rec); err != nil {
		e.logger.Warn("publishing event record",
			zap.String("id", rec.ID.String()),
			zap.String("actor", rec.Actor),
			zap.Int64("tick", rec.Tick),
			zap.Error(err),
		)
	}
}
