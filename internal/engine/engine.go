// Package engine implements the telemetry polling core: single-flight
// poll coordination, staleness-based scan depth selection, hardware
// handle caching and disk name deduplication. It owns the hardware tree
// for its lifetime and exposes plain value snapshots to callers.
package engine

import (
	"context"
	"errors"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/hwpulse/monitor/internal/hardware"
	"github.com/hwpulse/monitor/internal/models"
)

// ErrSkipped is returned when a poll is dropped because another poll is
// in flight or the minimum poll gap has not elapsed. Callers on a timer
// cadence treat it as routine, not a failure.
var ErrSkipped = errors.New("poll skipped")

// ErrClosed is returned by Poll after Close has been called.
var ErrClosed = errors.New("engine is closed")

// Policy holds the coordinator's timing tunables.
type Policy struct {
	// MinPollGap is the minimum time between poll starts; polls arriving
	// sooner are skipped unless forced. Caps the hardware call rate.
	MinPollGap time.Duration

	// StaleAfter is how old the last successful poll may be before the
	// next poll runs thorough (double refresh passes, cache invalidation).
	StaleAfter time.Duration
}

// DefaultPolicy returns the production timing policy.
func DefaultPolicy() Policy {
	return Policy{
		MinPollGap: 750 * time.Millisecond,
		StaleAfter: time.Second,
	}
}

// Engine coordinates polls over a hardware tree. At most one poll
// executes at a time; extra callers get ErrSkipped immediately rather
// than queuing, so a timer-driven caller is never blocked on hardware.
type Engine struct {
	tree   hardware.Tree
	policy Policy
	logger *zap.Logger
	scan   *scanner
	cache  *handleCache

	mu          sync.Mutex
	inFlight    bool
	lastStart   time.Time
	lastSuccess time.Time
	closed      bool

	wg  sync.WaitGroup // in-flight polls, waited on by Close
	now func() time.Time
}

// New constructs an engine over an already-opened hardware tree.
// Construction is the only point where hardware failure is a hard error;
// everything after degrades to absent readings.
func New(tree hardware.Tree, policy Policy, logger *zap.Logger) (*Engine, error) {
	if tree == nil {
		return nil, errors.New("engine: nil hardware tree")
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	if policy.MinPollGap <= 0 {
		policy.MinPollGap = DefaultPolicy().MinPollGap
	}
	if policy.StaleAfter <= 0 {
		policy.StaleAfter = DefaultPolicy().StaleAfter
	}

	return &Engine{
		tree:   tree,
		policy: policy,
		logger: logger,
		scan:   &scanner{logger: logger},
		cache:  newHandleCache(),
		now:    time.Now,
	}, nil
}

// Poll runs one poll cycle and returns the resulting snapshot.
//
// The poll is skipped (ErrSkipped) when another poll is still in flight,
// or when less than MinPollGap has passed since the previous poll
// started and forceThorough is false. The scan runs thorough when forced
// or when the last successful poll is older than StaleAfter; a thorough
// scan re-enumerates storage, refreshes settle-prone categories twice
// and clears the handle cache.
//
// Individual sensor and node failures never fail the poll; they surface
// as absent values in the snapshot.
func (e *Engine) Poll(ctx context.Context, forceThorough bool) (*models.Snapshot, error) {
	e.mu.Lock()
	if e.closed {
		e.mu.Unlock()
		return nil, ErrClosed
	}
	if e.inFlight {
		e.mu.Unlock()
		return nil, ErrSkipped
	}
	now := e.now()
	if !forceThorough && !e.lastStart.IsZero() && now.Sub(e.lastStart) < e.policy.MinPollGap {
		e.mu.Unlock()
		return nil, ErrSkipped
	}
	thorough := forceThorough || e.lastSuccess.IsZero() ||
		now.Sub(e.lastSuccess) > e.policy.StaleAfter
	e.inFlight = true
	e.lastStart = now
	e.wg.Add(1)
	e.mu.Unlock()

	defer func() {
		e.mu.Lock()
		e.inFlight = false
		e.mu.Unlock()
		e.wg.Done()
	}()

	if thorough {
		// Storage topology may have changed (drives plugged/removed).
		if err := e.tree.Rescan(ctx); err != nil {
			e.logger.Warn("Hardware rescan failed", zap.Error(err))
		}
	}

	e.scan.run(ctx, e.tree.Roots(), thorough)
	if thorough {
		e.cache.invalidate()
	}
	snap := e.snapshot(thorough)

	e.mu.Lock()
	e.lastSuccess = e.now()
	e.mu.Unlock()

	e.logger.Debug("Poll completed",
		zap.Bool("thorough", thorough),
		zap.Int("disks", len(snap.Disks)))
	return snap, nil
}

// LastSuccess returns when the last poll completed successfully, zero if
// none has. The watchdog reads this; it never mutates engine state.
func (e *Engine) LastSuccess() time.Time {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.lastSuccess
}

// Close releases the hardware tree. It waits for any in-flight poll to
// finish, closes the tree exactly once and is safe to call repeatedly.
func (e *Engine) Close() error {
	e.mu.Lock()
	if e.closed {
		e.mu.Unlock()
		return nil
	}
	e.closed = true
	e.mu.Unlock()

	e.wg.Wait()
	e.cache.invalidate()
	return e.tree.Close()
}

// snapshot assembles the value snapshot from the freshly refreshed tree.
// Single-instance categories go through the handle cache; storage is
// multi-instance and read straight off the root list in enumeration
// order.
func (e *Engine) snapshot(thorough bool) *models.Snapshot {
	snap := &models.Snapshot{
		Timestamp: e.now().UTC(),
		Thorough:  thorough,
	}
	roots := e.tree.Roots()

	if cpu, ok := e.cache.lookup(roots, hardware.CategoryCPU); ok {
		snap.CPUTemp = sensorValue(cpu, hardware.SensorTemperature)
		snap.CPULoad = sensorValue(cpu, hardware.SensorLoad)
	}

	// Prefer the discrete NVIDIA card, fall back to AMD/integrated.
	for _, cat := range []hardware.Category{hardware.CategoryGPUNvidia, hardware.CategoryGPUAMD} {
		gpu, ok := e.cache.lookup(roots, cat)
		if !ok {
			continue
		}
		if snap.GPUTemp == nil {
			snap.GPUTemp = sensorValue(gpu, hardware.SensorTemperature)
		}
		if snap.GPULoad == nil {
			snap.GPULoad = sensorValue(gpu, hardware.SensorLoad)
		}
		if snap.GPUTemp != nil && snap.GPULoad != nil {
			break
		}
	}

	if mem, ok := e.cache.lookup(roots, hardware.CategoryMemory); ok {
		snap.MemoryTemp = sensorValue(mem, hardware.SensorTemperature)
	}

	var disks []hardware.Node
	var names []string
	for _, n := range roots {
		if n.Category() == hardware.CategoryStorage {
			disks = append(disks, n)
			names = append(names, n.Name())
		}
	}
	for i, name := range displayNames(names) {
		snap.Disks = append(snap.Disks, models.DiskTemp{
			Name: name,
			Temp: sensorValue(disks[i], hardware.SensorTemperature),
		})
	}

	return snap
}

// sensorValue returns the first reading of the given kind, nil when the
// node exposes none or the reading is currently absent.
func sensorValue(n hardware.Node, kind hardware.SensorKind) *float64 {
	for _, s := range n.Sensors() {
		if s.Kind == kind {
			return s.Value
		}
	}
	return nil
}
