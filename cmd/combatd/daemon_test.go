package main

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/cory-johannsen/melee/internal/config"
	"github.com/cory-johannsen/melee/internal/game/combat"
	"github.com/cory-johannsen/melee/internal/game/content"
)

func writeFiles(t *testing.T, files map[string]string) string {
	t.Helper()
	root := t.TempDir()
	for rel, body := range files {
		path := filepath.Join(root, rel)
		require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
		require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	}
	return root
}

func duelContent(t *testing.T) *content.Content {
	t.Helper()
	c, err := content.Load(writeFiles(t, map[string]string{
		"moves/basic.yaml": `
attacks:
  - id: punch
    verb: punches
    natural: true
    type: standard
    skill: brawling
    damage_type: crushing
    damage: "2"
`,
		"strategies/brawlers.yaml": `
- id: brawler
  natural_weight: 1
  eligibility_hook: always
`,
		"actors/duellists.yaml": `
- {id: a, strategy: brawler, stamina: 10, skills: {brawling: 40}}
- {id: b, strategy: brawler, stamina: 10, skills: {brawling: 40}}
`,
		"encounters/duel.yaml": `
- id: duel
  engagements:
    - {actor: a, opponent: b}
    - {actor: b, opponent: a}
`,
	}))
	require.NoError(t, err)
	return c
}

func engineConfig() config.EngineConfig {
	return config.EngineConfig{TickInterval: time.Millisecond, Seed: 11, ContentDir: "content", WearFactor: 0.01}
}

func TestBuildDaemon_WithoutScripts(t *testing.T) {
	var recs []combat.EventRecord
	sink := combat.SinkFunc(func(_ context.Context, rec combat.EventRecord) error {
		recs = append(recs, rec)
		return nil
	})
	d, err := buildDaemon(engineConfig(), duelContent(t), nil, sink, zap.NewNop())
	require.NoError(t, err)
	assert.Equal(t, []string{"duel"}, d.scheduler.Encounters())
	assert.Equal(t, 2, d.board.Len())

	got, err := d.scheduler.RunTick(context.Background(), 1)
	require.NoError(t, err)
	assert.Len(t, got["duel"], 2)
	assert.Len(t, recs, 2)
}

func TestBuildDaemon_WearScriptRequiresScripting(t *testing.T) {
	cfg := engineConfig()
	cfg.WearScript = true
	_, err := buildDaemon(cfg, duelContent(t), nil, nil, zap.NewNop())
	assert.Error(t, err)
}

func TestBuildDaemon_ScriptsSeeBoardBetweenTicks(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	logger := zap.New(core)
	scriptDir := writeFiles(t, map[string]string{
		"strategy/always.lua": `
function always(actor, opponent, move)
	local a = engine.actor.get(actor)
	if a ~= nil then
		engine.log.info("board")
	end
	return true
end
`,
		"wear/wear.lua": `
function wear(layer, kind, damage, pain, stun, quality)
	return 0
end
`,
	})
	scripts, err := loadScripts(scriptDir, 0, 11, logger)
	require.NoError(t, err)
	t.Cleanup(scripts.Close)

	cfg := engineConfig()
	cfg.ScriptDir = scriptDir
	cfg.WearScript = true
	d, err := buildDaemon(cfg, duelContent(t), scripts, nil, logger)
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- d.run(ctx, time.Millisecond) }()
	require.Eventually(t, func() bool {
		return logs.FilterMessage("board").Len() >= 2
	}, 5*time.Second, 5*time.Millisecond)
	cancel()
	require.NoError(t, <-done)
}

func TestBuildDaemon_RepositoryContent(t *testing.T) {
	c, err := content.Load(filepath.Join("..", "..", "content"))
	require.NoError(t, err)
	scripts, err := loadScripts(filepath.Join("..", "..", "content", "scripts"), 0, 3, zap.NewNop())
	require.NoError(t, err)
	t.Cleanup(scripts.Close)

	cfg := engineConfig()
	cfg.ScriptDir = "content/scripts"
	cfg.WearScript = true
	d, err := buildDaemon(cfg, c, scripts, nil, zap.NewNop())
	require.NoError(t, err)
	assert.Equal(t, []string{"butts", "practice_yard"}, d.scheduler.Encounters())

	for tick := int64(1); tick <= 20; tick++ {
		recs, err := d.scheduler.RunTick(context.Background(), tick)
		require.NoError(t, err)
		for id, rs := range recs {
			assert.Len(t, rs, 2, "encounter %s tick %d", id, tick)
		}
		d.refreshBoard()
	}
	assert.NotNil(t, d.board.Get("aldric"))
}
