package main

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/cory-johannsen/melee/internal/config"
	"github.com/cory-johannsen/melee/internal/game/ai"
	"github.com/cory-johannsen/melee/internal/game/combat"
	"github.com/cory-johannsen/melee/internal/game/content"
	"github.com/cory-johannsen/melee/internal/game/damage"
	"github.com/cory-johannsen/melee/internal/game/dice"
	"github.com/cory-johannsen/melee/internal/scripting"
)

// daemon is the wired combat engine.
type daemon struct {
	content   *content.Content
	scripts   *scripting.Manager
	board     *scripting.ActorBoard
	engine    *combat.Engine
	scheduler *combat.Scheduler
}

// buildDaemon wires the engine from c and cfg. scripts is nil when scripting
// is disabled; sink may be nil.
//
// Precondition: c must be loaded; logger must not be nil.
// Postcondition: every actor and encounter in c is registered.
func buildDaemon(cfg config.EngineConfig, c *content.Content, scripts *scripting.Manager, sink combat.EventSink, logger *zap.Logger) (*daemon, error) {
	var wear damage.WearPolicy = damage.ProportionalWear{Factor: cfg.WearFactor}
	var caller ai.ScriptCaller
	if scripts != nil {
		caller = scripts
		if cfg.WearScript {
			if !scripts.Has(scripting.WearScope) {
				return nil, fmt.Errorf("wear_script set but no %q script scope under %s", scripting.WearScope, cfg.ScriptDir)
			}
			wear = scripting.NewLuaWearPolicy(scripts, wear, logger.Named("wear"))
		}
	} else if cfg.WearScript {
		return nil, errors.New("wear_script set but scripting is disabled")
	}

	opts := []combat.Option{combat.WithSources(combat.SeededSources(cfg.Seed))}
	if sink != nil {
		opts = append(opts, combat.WithSink(sink))
	}
	engine := combat.NewEngine(
		c.Catalog,
		ai.NewSelector(caller, logger.Named("ai")),
		damage.NewPipeline(wear, logger.Named("damage")),
		logger.Named("combat"),
		opts...,
	)
	scheduler := combat.NewScheduler(engine, cfg.Workers, logger.Named("scheduler"))
	if err := c.Populate(engine, scheduler); err != nil {
		return nil, fmt.Errorf("populating engine: %w", err)
	}

	d := &daemon{
		content:   c,
		scripts:   scripts,
		board:     scripting.NewActorBoard(),
		engine:    engine,
		scheduler: scheduler,
	}
	if scripts != nil {
		scripts.GetActor = d.board.Get
	}
	d.refreshBoard()
	scheduler.AfterTick(func(int64, map[string][]combat.EventRecord) { d.refreshBoard() })
	return d, nil
}

// refreshBoard copies every actor's snapshot onto the script board. It must
// run between ticks.
func (d *daemon) refreshBoard() {
	infos := make([]scripting.ActorInfo, 0, len(d.content.Actors))
	for i := range d.content.Actors {
		snap := d.engine.Snapshot(d.content.Actors[i].ID)
		if snap.ID == "" {
			continue
		}
		infos = append(infos, actorInfo(snap))
	}
	d.board.Replace(infos)
}

func actorInfo(s combat.Snapshot) scripting.ActorInfo {
	return scripting.ActorInfo{
		ID:            s.ID,
		Stamina:       s.Stamina,
		Prone:         s.Prone,
		Damage:        s.Totals.Damage,
		Pain:          s.Totals.Pain,
		Stun:          s.Totals.Stun,
		Incapacitated: s.Incapacitated,
	}
}

// run drives the scheduler until ctx is done.
func (d *daemon) run(ctx context.Context, interval time.Duration) error {
	return d.scheduler.Run(ctx, interval, 1)
}

// loadScripts loads the script tree at dir, or returns nil when dir is empty.
func loadScripts(dir string, limit int, seed uint64, logger *zap.Logger) (*scripting.Manager, error) {
	if dir == "" {
		return nil, nil
	}
	// Hooks draw from the calling resolution's source; this roller only
	// serves draws made at load time.
	roller := dice.NewLoggedRoller(dice.NewSeededSource(dice.DeriveSeed(seed, "scripts")), logger.Named("dice"))
	mgr := scripting.NewManager(roller, logger.Named("lua"))
	scopes, err := mgr.LoadTree(dir, limit)
	if err != nil {
		mgr.Close()
		return nil, err
	}
	logger.Info("scripts loaded", zap.String("dir", dir), zap.Strings("scopes", scopes))
	return mgr, nil
}
