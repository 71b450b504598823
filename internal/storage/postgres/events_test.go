package postgres_test

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cory-johannsen/melee/internal/game/combat"
	"github.com/cory-johannsen/melee/internal/game/damage"
	"github.com/cory-johannsen/melee/internal/storage/postgres"
	"github.com/cory-johannsen/melee/internal/testutil"
)

func TestEventRepository(t *testing.T) {
	pool := testutil.NewPool(t)
	repo := postgres.NewEventRepository(pool)
	ctx := context.Background()

	hit := combat.EventRecord{
		ID:     uuid.New(),
		Tick:   2,
		Kind:   combat.KindStrike,
		Actor:  "a",
		Target: "b",
		Move:   "slash",
		Phase:  combat.ResolvedHit,
		Damage: &damage.Result{Terminal: damage.Amounts{Damage: 3}},
	}
	miss := combat.EventRecord{
		Tick:   1,
		Kind:   combat.KindStrike,
		Actor:  "b",
		Target: "a",
		Move:   "slash",
		Phase:  combat.ResolvedMiss,
	}
	forfeit := combat.EventRecord{ID: uuid.New(), Tick: 3, Kind: combat.KindForfeit, Actor: "c"}

	require.NoError(t, repo.Publish(ctx, hit))
	require.NoError(t, repo.Publish(ctx, miss))
	require.NoError(t, repo.Publish(ctx, forfeit))

	t.Run("duplicate id", func(t *testing.T) {
		assert.ErrorIs(t, repo.Publish(ctx, hit), postgres.ErrEventExists)
	})

	t.Run("list by actor includes targeted records in tick order", func(t *testing.T) {
		recs, err := repo.ListByActor(ctx, "a", 0)
		require.NoError(t, err)
		require.Len(t, recs, 2)
		assert.Equal(t, int64(1), recs[0].Tick)
		assert.NotEqual(t, uuid.Nil, recs[0].ID, "a zero id is replaced on publish")
		assert.Equal(t, hit.ID, recs[1].ID)
		assert.True(t, recs[1].Hit())
		assert.Equal(t, 3.0, recs[1].Terminal().Damage)
	})

	t.Run("limit", func(t *testing.T) {
		recs, err := repo.ListByActor(ctx, "a", 1)
		require.NoError(t, err)
		assert.Len(t, recs, 1)
	})

	t.Run("hits against", func(t *testing.T) {
		n, err := repo.HitsAgainst(ctx, "b")
		require.NoError(t, err)
		assert.Equal(t, int64(1), n)
		n, err = repo.HitsAgainst(ctx, "a")
		require.NoError(t, err)
		assert.Zero(t, n)
	})

	t.Run("engine sink", func(t *testing.T) {
		var sink combat.EventSink = repo
		require.NoError(t, sink.Publish(ctx, combat.EventRecord{Tick: 9, Kind: combat.KindRecovering, Actor: "d"}))
		recs, err := repo.ListByActor(ctx, "d", 0)
		require.NoError(t, err)
		require.Len(t, recs, 1)
		assert.Equal(t, combat.KindRecovering, recs[0].Kind)
	})
}
