// Package scheduler implements the periodic poll driver and the liveness
// watchdog. The driver ticks at the nominal interval and hands each tick
// to the engine on a worker goroutine, so the driver loop itself never
// blocks on hardware I/O. The scheduler does NOT render data — it
// invokes a callback for every snapshot produced.
package scheduler

import (
	"context"
	"errors"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/hwpulse/monitor/internal/config"
	"github.com/hwpulse/monitor/internal/engine"
	"github.com/hwpulse/monitor/internal/models"
)

// Poller is the slice of the engine the driver needs. Satisfied by
// *engine.Engine.
type Poller interface {
	Poll(ctx context.Context, forceThorough bool) (*models.Snapshot, error)
	LastSuccess() time.Time
}

// Runner drives the engine on a fixed cadence and owns the watchdog that
// restarts the cadence when the loop stalls.
type Runner struct {
	poller Poller
	cfg    *config.Config
	logger *zap.Logger

	mu         sync.Mutex
	onSnapshot func(*models.Snapshot)

	restartCh chan struct{}
}

// New creates a Runner over the given poller.
func New(poller Poller, cfg *config.Config, logger *zap.Logger) *Runner {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Runner{
		poller:    poller,
		cfg:       cfg,
		logger:    logger,
		restartCh: make(chan struct{}, 1),
	}
}

// OnSnapshot sets the callback invoked with every snapshot the engine
// produces. The callback runs on the poll worker goroutine and must not
// block for long.
func (r *Runner) OnSnapshot(fn func(*models.Snapshot)) {
	r.mu.Lock()
	r.onSnapshot = fn
	r.mu.Unlock()
}

// Restart asks the driver loop to rebuild its ticker and issue an
// immediate poll. Non-blocking; coalesces with a pending restart.
func (r *Runner) Restart() {
	select {
	case r.restartCh <- struct{}{}:
	default:
	}
}

// Start runs the warm-up scans, launches the watchdog and enters the
// polling loop. It blocks until the context is cancelled.
func (r *Runner) Start(ctx context.Context) {
	r.warmup(ctx)

	wd := NewWatchdog(WatchdogOptions{
		Threshold:   r.cfg.Watchdog.Threshold(r.cfg.Polling.Interval.Duration),
		LastSuccess: r.poller.LastSuccess,
		Recover:     r.Restart,
		Logger:      r.logger,
	})
	go wd.Run(ctx, r.cfg.Watchdog.Interval.Duration, r.cfg.Watchdog.StartDelay.Duration)

	interval := r.cfg.Polling.Interval.Duration
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	r.logger.Info("Poll driver running", zap.Duration("interval", interval))

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			go r.pollOnce(ctx, false)
		case <-r.restartCh:
			// Watchdog recovery: rebuild the timer and poll out of band.
			r.logger.Warn("Poll driver restarting after stall")
			ticker.Reset(interval)
			go r.pollOnce(ctx, false)
		}
	}
}

// warmup runs the startup thorough scans. Slow sensor chips report
// garbage for the first seconds after power-on; a few spaced thorough
// scans let them settle before the nominal cadence takes over. Count and
// spacing are configuration, not contract.
func (r *Runner) warmup(ctx context.Context) {
	scans := r.cfg.Polling.WarmupScans
	if scans < 1 {
		scans = 1
	}
	for i := 0; i < scans; i++ {
		if i > 0 {
			select {
			case <-ctx.Done():
				return
			case <-time.After(r.cfg.Polling.WarmupSpacing.Duration):
			}
		}
		r.logger.Debug("Warm-up scan", zap.Int("n", i+1), zap.Int("of", scans))
		r.pollOnce(ctx, true)
	}
}

// pollOnce executes a single poll and forwards the snapshot. Skipped
// polls are routine on a timer cadence and logged at debug only.
func (r *Runner) pollOnce(ctx context.Context, force bool) {
	snap, err := r.poller.Poll(ctx, force)
	switch {
	case errors.Is(err, engine.ErrSkipped):
		r.logger.Debug("Poll skipped")
		return
	case errors.Is(err, engine.ErrClosed):
		return
	case err != nil:
		r.logger.Warn("Poll failed", zap.Error(err))
		return
	}

	r.mu.Lock()
	fn := r.onSnapshot
	r.mu.Unlock()
	if fn != nil {
		fn(snap)
	}
}
