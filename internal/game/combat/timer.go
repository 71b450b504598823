package combat

import (
	"sync"
	"time"
)

// TickTimer calls onTick with consecutive tick numbers every interval until
// stopped. The next tick is armed only after the previous callback returns,
// so callbacks never overlap. It is safe for concurrent use.
type TickTimer struct {
	mu       sync.Mutex
	timer    *time.Timer
	interval time.Duration
	next     int64
	stopped  bool
	onTick   func(tick int64)
	inflight sync.WaitGroup
}

// NewTickTimer creates and starts a timer whose first call, with tick first,
// happens after interval. onTick is called in a separate goroutine.
//
// Precondition: interval > 0; onTick must not be nil.
// Postcondition: Returns a running TickTimer.
func NewTickTimer(interval time.Duration, first int64, onTick func(tick int64)) *TickTimer {
	if interval <= 0 {
		panic("combat.NewTickTimer: interval must be > 0")
	}
	if onTick == nil {
		panic("combat.NewTickTimer: onTick must not be nil")
	}
	tt := &TickTimer{interval: interval, next: first, onTick: onTick}
	tt.mu.Lock()
	tt.timer = time.AfterFunc(interval, tt.fire)
	tt.mu.Unlock()
	return tt
}

func (tt *TickTimer) fire() {
	tt.mu.Lock()
	if tt.stopped {
		tt.mu.Unlock()
		return
	}
	tick := tt.next
	tt.next++
	tt.inflight.Add(1)
	tt.mu.Unlock()

	tt.onTick(tick)
	tt.inflight.Done()

	tt.mu.Lock()
	defer tt.mu.Unlock()
	if !tt.stopped {
		tt.timer = time.AfterFunc(tt.interval, tt.fire)
	}
}

// Reset changes the interval. The pending tick is rearmed with the new
// interval from now.
//
// Precondition: interval > 0.
func (tt *TickTimer) Reset(interval time.Duration) {
	tt.mu.Lock()
	defer tt.mu.Unlock()
	tt.interval = interval
	if tt.stopped {
		return
	}
	if tt.timer.Stop() {
		tt.timer = time.AfterFunc(interval, tt.fire)
	}
}

// Next returns the tick number the next callback will receive.
func (tt *TickTimer) Next() int64 {
	tt.mu.Lock()
	defer tt.mu.Unlock()
	return tt.next
}

// Stop prevents further callbacks. Safe to call multiple times.
//
// Postcondition: no callback starts after Stop returns.
func (tt *TickTimer) Stop() {
	tt.mu.Lock()
	defer tt.mu.Unlock()
	tt.stopped = true
	tt.timer.Stop()
}

// Wait blocks until a callback in flight when Stop was called returns. It
// must not be called from the callback.
func (tt *TickTimer) Wait() { tt.inflight.Wait() }
