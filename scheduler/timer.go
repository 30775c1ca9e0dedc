package scheduler

import (
	"sync"
	"sync/atomic"
	"time"
)

// Timer is a one-shot timer with an idempotent Cancel that is safe to call
// before, during or after firing. A cancelled timer never runs its callback.
type Timer struct {
	timer     *time.Timer
	once      sync.Once
	cancelled atomic.Bool
}

// AfterFunc arms a timer that calls fn after d unless cancelled first.
func AfterFunc(d time.Duration, fn func()) *Timer {
	t := &Timer{}
	t.timer = time.AfterFunc(d, func() {
		// Stop can race the firing goroutine; the flag is authoritative.
		if !t.cancelled.Load() {
			fn()
		}
	})
	return t
}

// Cancel stops the timer. Subsequent calls are no-ops.
func (t *Timer) Cancel() {
	t.once.Do(func() {
		t.cancelled.Store(true)
		t.timer.Stop()
	})
}

// Cancelled reports whether Cancel has been called.
func (t *Timer) Cancelled() bool { return t.cancelled.Load() }
