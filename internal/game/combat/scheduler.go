package combat

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// Engagement is one actor acting against one opponent each tick.
type Engagement struct {
	Actor    string
	Opponent string
}

// Encounter groups the engagements of one combat. Engagements within an
// encounter resolve in order; encounters resolve in parallel.
type Encounter struct {
	ID          string
	Engagements []Engagement
}

// Scheduler drives every registered encounter once per tick.
// All methods are safe for concurrent use.
type Scheduler struct {
	engine  *Engine
	workers int
	logger  *zap.Logger

	mu         sync.Mutex
	encounters map[string]Encounter
	afterTick  func(tick int64, recs map[string][]EventRecord)
}

// NewScheduler creates a Scheduler resolving at most workers encounters at
// once. workers <= 0 means no limit.
//
// Precondition: engine and logger must not be nil.
func NewScheduler(engine *Engine, workers int, logger *zap.Logger) *Scheduler {
	if engine == nil {
		panic("combat.NewScheduler: engine must not be nil")
	}
	if logger == nil {
		panic("combat.NewScheduler: logger must not be nil")
	}
	return &Scheduler{engine: engine, workers: workers, logger: logger, encounters: make(map[string]Encounter)}
}

// Add registers enc.
//
// Postcondition: returns an error if enc.ID is already registered.
func (s *Scheduler) Add(enc Encounter) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.encounters[enc.ID]; exists {
		return fmt.Errorf("combat: encounter %q already running", enc.ID)
	}
	s.encounters[enc.ID] = enc
	return nil
}

// Remove ends the encounter with id. Grapples between its actors persist
// until the actors are removed from the engine.
func (s *Scheduler) Remove(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.encounters, id)
}

// Encounters returns the registered encounter IDs, sorted.
func (s *Scheduler) Encounters() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]string, 0, len(s.encounters))
	for id := range s.encounters {
		out = append(out, id)
	}
	sort.Strings(out)
	return out
}

// RunTick resolves every encounter for tick and returns the records keyed by
// encounter ID. A failing actor is logged and skipped; it never stalls other
// encounters.
//
// Postcondition: returns ctx.Err() if ctx was cancelled before every
// encounter finished.
func (s *Scheduler) RunTick(ctx context.Context, tick int64) (map[string][]EventRecord, error) {
	s.mu.Lock()
	encs := make([]Encounter, 0, len(s.encounters))
	for _, enc := range s.encounters {
		encs = append(encs, enc)
	}
	s.mu.Unlock()
	sort.Slice(encs, func(i, j int) bool { return encs[i].ID < encs[j].ID })

	var (
		mu  sync.Mutex
		out = make(map[string][]EventRecord, len(encs))
	)
	g, gctx := errgroup.WithContext(ctx)
	if s.workers > 0 {
		g.SetLimit(s.workers)
	}
	for _, enc := range encs {
		g.Go(func() error {
			recs := s.runEncounter(gctx, enc, tick)
			mu.Lock()
			out[enc.ID] = recs
			mu.Unlock()
			return nil
		})
	}
	_ = g.Wait()
	return out, ctx.Err()
}

func (s *Scheduler) runEncounter(ctx context.Context, enc Encounter, tick int64) []EventRecord {
	var recs []EventRecord
	for _, eng := range enc.Engagements {
		if ctx.Err() != nil {
			break
		}
		rec, err := s.engine.SelectAndResolveMove(ctx, eng.Actor, eng.Opponent, tick)
		if err != nil {
			if ctx.Err() == nil {
				s.logger.Error("resolving engagement",
					zap.String("encounter", enc.ID),
					zap.String("actor", eng.Actor),
					zap.String("opponent", eng.Opponent),
					zap.Int64("tick", tick),
					zap.Error(err),
				)
			}
			continue
		}
		recs = append(recs, rec)
	}
	return recs
}

// AfterTick sets a callback Run invokes once each tick has fully resolved,
// outside every actor lock. nil clears it.
func (s *Scheduler) AfterTick(fn func(tick int64, recs map[string][]EventRecord)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.afterTick = fn
}

// Run resolves a tick every interval, starting at first, until ctx is done.
//
// Postcondition: returns nil once ctx is cancelled and the in-flight tick
// has finished.
func (s *Scheduler) Run(ctx context.Context, interval time.Duration, first int64) error {
	tt := NewTickTimer(interval, first, func(tick int64) {
		recs, err := s.RunTick(ctx, tick)
		if err != nil {
			s.logger.Debug("tick interrupted", zap.Int64("tick", tick), zap.Error(err))
		}
		s.mu.Lock()
		after := s.afterTick
		s.mu.Unlock()
		if after != nil {
			after(tick, recs)
		}
	})
	<-ctx.Done()
	tt.Stop()
	tt.Wait()
	s.logger.Info("scheduler stopped", zap.Int64("next_tick", tt.Next()))
	return nil
}
