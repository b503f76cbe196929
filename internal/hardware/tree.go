// System-backed hardware tree. Temperatures come from gopsutil host
// sensors, shared across nodes through a per-refresh sensor table;
// storage topology comes from ghw block enumeration.
package hardware

import (
	"context"
	"fmt"
	"os/exec"
	"strings"
	"sync"

	"github.com/shirou/gopsutil/v3/host"
	"go.uber.org/zap"
)

// minValidTemp is the minimum temperature (°C) considered valid.
const minValidTemp = 0.0

// maxValidTemp is the maximum temperature (°C) considered valid.
// Readings above this are likely sensor errors.
const maxValidTemp = 150.0

// systemTree implements Tree on top of gopsutil, ghw and nvidia-smi.
type systemTree struct {
	logger *zap.Logger

	mu     sync.Mutex
	roots  []Node
	temps  map[string]float64
	closed bool
}

// Open probes the machine's sensor sources and builds the hardware tree.
// It fails only when no source is usable at all; individual missing
// sensors are tolerated and surface later as absent readings.
func Open(ctx context.Context, logger *zap.Logger) (Tree, error) {
	if logger == nil {
		logger = zap.NewNop()
	}

	t := &systemTree{
		logger: logger,
		temps:  make(map[string]float64),
	}

	tempsErr := t.readTemps(ctx)
	disks, disksErr := enumerateDisks(t)
	if tempsErr != nil && disksErr != nil {
		return nil, fmt.Errorf("opening hardware tree: sensors: %v; block devices: %w", tempsErr, disksErr)
	}
	if tempsErr != nil {
		logger.Warn("Temperature sensors unavailable", zap.Error(tempsErr))
	}
	if disksErr != nil {
		logger.Warn("Block device enumeration unavailable", zap.Error(disksErr))
	}

	t.roots = append(t.roots, newCPUNode(t))
	if gpu := detectNvidiaGPU(t); gpu != nil {
		t.roots = append(t.roots, gpu)
	}
	t.roots = append(t.roots,
		newAMDGPUNode(t),
		newMemoryNode(t),
		newMotherboardNode(t),
	)
	t.roots = append(t.roots, disks...)

	logger.Info("Hardware tree opened", zap.Int("roots", len(t.roots)))
	return t, nil
}

// Roots returns the current root node list.
func (t *systemTree) Roots() []Node {
	t.mu.Lock()
	defer t.mu.Unlock()
	roots := make([]Node, len(t.roots))
	copy(roots, t.roots)
	return roots
}

// Rescan re-enumerates storage devices, picking up drives plugged or
// removed since the last enumeration. Non-storage roots are stable for
// the process lifetime and kept as-is.
func (t *systemTree) Rescan(ctx context.Context) error {
	disks, err := enumerateDisks(t)
	if err != nil {
		return fmt.Errorf("re-enumerating block devices: %w", err)
	}

	t.mu.Lock()
	defer t.mu.Unlock()
	if t.closed {
		return fmt.Errorf("hardware tree is closed")
	}

	kept := t.roots[:0]
	for _, n := range t.roots {
		if n.Category() != CategoryStorage {
			kept = append(kept, n)
		}
	}
	t.roots = append(kept, disks...)
	return nil
}

// Close releases the tree. Safe to call more than once.
func (t *systemTree) Close() error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.closed {
		return nil
	}
	t.closed = true
	t.roots = nil
	t.temps = nil
	return nil
}

// readTemps re-reads all host temperature sensors into the shared table.
// Keys are lowercased sensor names; implausible readings are dropped.
func (t *systemTree) readTemps(ctx context.Context) error {
	temps, err := host.SensorsTemperaturesWithContext(ctx)
	if err != nil {
		return err
	}

	table := make(map[string]float64, len(temps))
	for _, s := range temps {
		if s.Temperature <= minValidTemp || s.Temperature > maxValidTemp {
			continue
		}
		table[strings.ToLower(s.SensorKey)] = s.Temperature
	}

	t.mu.Lock()
	if !t.closed {
		t.temps = table
	}
	t.mu.Unlock()
	return nil
}

// tempFor returns the hottest reading whose sensor key contains any of
// the given substrings, or nil if none matches. Taking the maximum
// mirrors the worst-case thermal state across sibling sensors.
func (t *systemTree) tempFor(keys ...string) *float64 {
	t.mu.Lock()
	defer t.mu.Unlock()

	var max float64
	found := false
	for name, v := range t.temps {
		for _, key := range keys {
			if strings.Contains(name, key) {
				if !found || v > max {
					max = v
					found = true
				}
				break
			}
		}
	}
	if !found {
		return nil
	}
	return &max
}

// detectNvidiaGPU returns an NVIDIA GPU node when nvidia-smi is on PATH,
// nil otherwise.
func detectNvidiaGPU(t *systemTree) Node {
	if _, err := exec.LookPath("nvidia-smi"); err != nil {
		return nil
	}
	return newNvidiaGPUNode(t)
}
