package scheduler

import (
	"sync"
	"testing"
	"time"
)

// watchdogHarness drives the watchdog state machine with a manual clock
// and a controllable last-success time.
type watchdogHarness struct {
	mu         sync.Mutex
	now        time.Time
	last       time.Time
	recoveries int
	wd         *Watchdog
}

func newWatchdogHarness(threshold time.Duration) *watchdogHarness {
	h := &watchdogHarness{
		now: time.Date(2026, 1, 10, 12, 0, 0, 0, time.UTC),
	}
	h.wd = NewWatchdog(WatchdogOptions{
		Threshold: threshold,
		LastSuccess: func() time.Time {
			h.mu.Lock()
			defer h.mu.Unlock()
			return h.last
		},
		Recover: func() {
			h.mu.Lock()
			h.recoveries++
			h.mu.Unlock()
		},
	})
	h.wd.now = func() time.Time {
		h.mu.Lock()
		defer h.mu.Unlock()
		return h.now
	}
	h.wd.armedAt = h.now
	return h
}

func (h *watchdogHarness) advance(d time.Duration) {
	h.mu.Lock()
	h.now = h.now.Add(d)
	h.mu.Unlock()
}

func (h *watchdogHarness) pollSucceeded() {
	h.mu.Lock()
	h.last = h.now
	h.mu.Unlock()
}

func (h *watchdogHarness) recoveryCount() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.recoveries
}

func TestWatchdogFiresOncePerStallEpisode(t *testing.T) {
	h := newWatchdogHarness(1500 * time.Millisecond)
	h.pollSucceeded()

	// Healthy: within threshold.
	h.advance(time.Second)
	h.wd.check()
	if got := h.recoveryCount(); got != 0 {
		t.Fatalf("recoveries while healthy = %d, want 0", got)
	}

	// Stall: three consecutive ticks past the threshold must produce
	// exactly one forced restart, not one per tick.
	h.advance(time.Second)
	for i := 0; i < 3; i++ {
		h.wd.check()
		h.advance(time.Second)
	}
	if got := h.recoveryCount(); got != 1 {
		t.Errorf("recoveries during one stall = %d, want exactly 1", got)
	}
}

func TestWatchdogRearmsAfterRecovery(t *testing.T) {
	h := newWatchdogHarness(1500 * time.Millisecond)
	h.pollSucceeded()

	h.advance(2 * time.Second)
	h.wd.check()
	if got := h.recoveryCount(); got != 1 {
		t.Fatalf("first stall: recoveries = %d, want 1", got)
	}

	// A successful poll heals the loop implicitly; no separate
	// "recovered" notification exists.
	h.pollSucceeded()
	h.wd.check()

	// A later, second stall must fire recovery again.
	h.advance(2 * time.Second)
	h.wd.check()
	if got := h.recoveryCount(); got != 2 {
		t.Errorf("second stall: recoveries = %d, want 2", got)
	}
}

func TestWatchdogMeasuresFromArmTimeBeforeFirstSuccess(t *testing.T) {
	h := newWatchdogHarness(1500 * time.Millisecond)

	// No poll has ever succeeded. Immediately after arming the loop is
	// not considered stalled.
	h.wd.check()
	if got := h.recoveryCount(); got != 0 {
		t.Fatalf("recoveries right after arming = %d, want 0", got)
	}

	h.advance(2 * time.Second)
	h.wd.check()
	if got := h.recoveryCount(); got != 1 {
		t.Errorf("recoveries with no success past threshold = %d, want 1", got)
	}
}
