package speech

import (
	"sync/atomic"
	"testing"
	"time"
)

func newTestTimer(fired *atomic.Int32) *SleepTimer {
	t := NewSleepTimer(func() { fired.Add(1) })
	t.unit = time.Millisecond
	return t
}

func TestSleepTimerFires(t *testing.T) {
	var fired atomic.Int32
	timer := newTestTimer(&fired)

	timer.Schedule(20)
	if !timer.Pending() {
		t.Fatal("expected timer to be pending")
	}

	time.Sleep(100 * time.Millisecond)

	if got := fired.Load(); got != 1 {
		t.Errorf("expected timer to fire once, fired %d times", got)
	}
	if timer.Pending() {
		t.Error("timer should not be pending after firing")
	}
}

func TestSleepTimerClear(t *testing.T) {
	var fired atomic.Int32
	timer := newTestTimer(&fired)

	timer.Schedule(30)
	timer.Clear()
	timer.Clear()

	time.Sleep(80 * time.Millisecond)

	if got := fired.Load(); got != 0 {
		t.Errorf("cleared timer fired %d times", got)
	}
	if timer.Pending() {
		t.Error("cleared timer reports pending")
	}
}

func TestSleepTimerRescheduleReplaces(t *testing.T) {
	var fired atomic.Int32
	timer := newTestTimer(&fired)

	timer.Schedule(20)
	timer.Schedule(40)
	timer.Schedule(60)

	time.Sleep(200 * time.Millisecond)

	if got := fired.Load(); got != 1 {
		t.Errorf("expected a single firing after rescheduling, got %d", got)
	}
}

func TestSleepTimerNonPositive(t *testing.T) {
	var fired atomic.Int32
	timer := newTestTimer(&fired)

	timer.Schedule(50)
	timer.Schedule(0)

	if timer.Pending() {
		t.Error("Schedule(0) should cancel the pending timer")
	}

	timer.Schedule(-1)
	time.Sleep(80 * time.Millisecond)

	if got := fired.Load(); got != 0 {
		t.Errorf("expected no firing, got %d", got)
	}
}
