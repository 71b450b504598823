package combat_test

import (
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cory-johannsen/melee/internal/game/combat"
)

func TestTickTimer_FiresConsecutiveTicks(t *testing.T) {
	var (
		mu    sync.Mutex
		ticks []int64
	)
	tt := combat.NewTickTimer(5*time.Millisecond, 7, func(tick int64) {
		mu.Lock()
		defer mu.Unlock()
		ticks = append(ticks, tick)
	})
	require.Eventually(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return len(ticks) >= 3
	}, time.Second, time.Millisecond)
	tt.Stop()
	tt.Wait()

	mu.Lock()
	defer mu.Unlock()
	for i, tick := range ticks {
		assert.Equal(t, int64(7+i), tick)
	}
}

func TestTickTimer_Stop_PreventsCallback(t *testing.T) {
	var called atomic.Int32
	tt := combat.NewTickTimer(50*time.Millisecond, 1, func(int64) {
		called.Add(1)
	})
	tt.Stop()
	time.Sleep(80 * time.Millisecond)
	assert.Equal(t, int32(0), called.Load())
	assert.Equal(t, int64(1), tt.Next())
}

func TestTickTimer_CallbacksNeverOverlap(t *testing.T) {
	var inside, overlaps atomic.Int32
	tt := combat.NewTickTimer(time.Millisecond, 1, func(int64) {
		if inside.Add(1) > 1 {
			overlaps.Add(1)
		}
		time.Sleep(3 * time.Millisecond)
		inside.Add(-1)
	})
	time.Sleep(30 * time.Millisecond)
	tt.Stop()
	tt.Wait()
	assert.Equal(t, int32(0), overlaps.Load())
}

func TestTickTimer_StopIdempotent(t *testing.T) {
	tt := combat.NewTickTimer(50*time.Millisecond, 1, func(int64) {})
	tt.Stop()
	tt.Stop()
	tt.Stop()
}

func TestTickTimer_PanicsOnBadArguments(t *testing.T) {
	assert.Panics(t, func() { combat.NewTickTimer(0, 1, func(int64) {}) })
	assert.Panics(t, func() { combat.NewTickTimer(time.Millisecond, 1, nil) })
}
