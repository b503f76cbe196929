package scheduler

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"
)

// Watchdog detects a stalled polling loop. It runs on its own tick,
// decoupled from the poll cadence, and fires the recovery action when no
// poll has succeeded within the threshold. Recovery fires exactly once
// per stall episode; the watchdog re-arms only after a poll succeeds
// again, so a loop that stays stuck does not cause a restart storm.
//
// The watchdog only reads the coordinator's clock — it never mutates
// poll state. Recovery manipulates the driver's timer, nothing else.
type Watchdog struct {
	threshold   time.Duration
	lastSuccess func() time.Time
	recover     func()
	logger      *zap.Logger

	mu      sync.Mutex
	armedAt time.Time
	stalled bool
	now     func() time.Time
}

// WatchdogOptions configures a Watchdog.
type WatchdogOptions struct {
	// Threshold is the maximum tolerated age of the last successful poll.
	Threshold time.Duration

	// LastSuccess reports when the last poll completed, zero if none has.
	LastSuccess func() time.Time

	// Recover is invoked on each Healthy -> Stalled transition.
	Recover func()

	Logger *zap.Logger
}

// NewWatchdog creates a watchdog. It does nothing until Run is called.
func NewWatchdog(opts WatchdogOptions) *Watchdog {
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Watchdog{
		threshold:   opts.Threshold,
		lastSuccess: opts.LastSuccess,
		recover:     opts.Recover,
		logger:      logger,
		now:         time.Now,
	}
}

// Run starts checking after startDelay, then on every tick, until the
// context is cancelled. The delay avoids false stall detections while
// initial hardware discovery is still running.
func (w *Watchdog) Run(ctx context.Context, tick, startDelay time.Duration) {
	select {
	case <-ctx.Done():
		return
	case <-time.After(startDelay):
	}

	w.mu.Lock()
	w.armedAt = w.now()
	w.mu.Unlock()

	ticker := time.NewTicker(tick)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			w.check()
		}
	}
}

// check performs one liveness evaluation. Split out from Run so tests
// can drive the state machine without real timers.
func (w *Watchdog) check() {
	last := w.lastSuccess()

	w.mu.Lock()
	base := last
	if base.IsZero() {
		// Nothing has ever succeeded; measure from when we armed.
		base = w.armedAt
	}
	age := w.now().Sub(base)

	if age <= w.threshold {
		if w.stalled {
			w.logger.Info("Polling loop recovered", zap.Duration("age", age))
		}
		w.stalled = false
		w.mu.Unlock()
		return
	}

	if w.stalled {
		// Still inside the same stall episode; recovery already fired.
		w.mu.Unlock()
		return
	}
	w.stalled = true
	w.mu.Unlock()

	w.logger.Warn("Polling loop stalled, forcing restart",
		zap.Duration("age", age),
		zap.Duration("threshold", w.threshold))
	if w.recover != nil {
		w.recover()
	}
}
