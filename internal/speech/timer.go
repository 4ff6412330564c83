package speech

import (
	"sync"
	"time"
)

// SleepTimer stops playback after a delay. Only one timer is armed at a
// time; scheduling again replaces the previous one.
type SleepTimer struct {
	unit time.Duration
	fire func()

	mu    sync.Mutex
	timer *time.Timer
	gen   uint64
}

// NewSleepTimer returns a timer that calls fire when it expires.
func NewSleepTimer(fire func()) *SleepTimer {
	return &SleepTimer{unit: time.Minute, fire: fire}
}

// Schedule arms the timer for minutes. Any pending timer is cancelled
// first; minutes <= 0 only cancels.
func (t *SleepTimer) Schedule(minutes float64) {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.stopLocked()
	if minutes <= 0 {
		return
	}

	gen := t.gen
	t.timer = time.AfterFunc(time.Duration(minutes*float64(t.unit)), func() {
		t.mu.Lock()
		if gen != t.gen {
			t.mu.Unlock()
			return
		}
		t.timer = nil
		t.gen++
		t.mu.Unlock()

		t.fire()
	})
}

// Clear cancels the pending timer, if any.
func (t *SleepTimer) Clear() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.stopLocked()
}

// Pending reports whether a timer is armed.
func (t *SleepTimer) Pending() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.timer != nil
}

func (t *SleepTimer) stopLocked() {
	if t.timer != nil {
		t.timer.Stop()
		t.timer = nil
	}
	// A callback that already left the runtime timer sees the new
	// generation and returns without firing.
	t.gen++
}
