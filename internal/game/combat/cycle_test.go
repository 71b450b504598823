package combat

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cory-johannsen/melee/internal/game/fault"
)

func TestCycle_FullRound(t *testing.T) {
	ctx := context.Background()
	c := newCycle("a", "b")
	assert.Equal(t, Idle, c.Phase())
	for _, step := range []struct {
		event string
		want  Phase
	}{
		{evSelect, Selecting},
		{evCheck, Checking},
		{evHit, ResolvedHit},
		{evRecover, Recovering},
		{evReady, Idle},
		{evSelect, Selecting},
		{evCheck, Checking},
		{evMiss, ResolvedMiss},
		{evRecover, Recovering},
	} {
		require.NoError(t, c.fire(ctx, step.event), step.event)
		assert.Equal(t, step.want, c.Phase())
	}
}

func TestCycle_CancelOnlyWhileSelecting(t *testing.T) {
	ctx := context.Background()
	c := newCycle("a", "b")
	require.NoError(t, c.fire(ctx, evSelect))
	require.NoError(t, c.cancel(ctx))
	assert.Equal(t, Idle, c.Phase())

	require.NoError(t, c.fire(ctx, evSelect))
	require.NoError(t, c.fire(ctx, evCheck))
	err := c.cancel(ctx)
	assert.ErrorIs(t, err, fault.ErrIllegalTransition)
	assert.Equal(t, Checking, c.Phase())
}
