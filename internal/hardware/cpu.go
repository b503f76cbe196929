// CPU node — package temperature via host sensors, utilization via
// gopsutil. Sensor key substrings cover coretemp/k10temp on Linux, SMC
// keys on macOS and "CPU Package" style names on Windows.
package hardware

import (
	"context"
	"sync"

	"github.com/shirou/gopsutil/v3/cpu"
)

var cpuSensorKeys = []string{
	"cpu", "core", "package",
	"tctl", "tdie", "k10temp", "coretemp",
	"tc0p", "tc0d", "tcxc",
	"zenpower",
}

type cpuNode struct {
	tree *systemTree

	mu   sync.Mutex
	temp *float64
	load *float64
}

func newCPUNode(t *systemTree) *cpuNode {
	return &cpuNode{tree: t}
}

func (n *cpuNode) Category() Category { return CategoryCPU }
func (n *cpuNode) Name() string       { return "CPU" }
func (n *cpuNode) Children() []Node   { return nil }

// Refresh re-reads the shared sensor table and the instantaneous CPU
// utilization. Previous values are cleared first so a failed refresh
// never leaves stale readings behind.
func (n *cpuNode) Refresh(ctx context.Context) error {
	n.mu.Lock()
	n.temp, n.load = nil, nil
	n.mu.Unlock()

	if err := n.tree.readTemps(ctx); err != nil {
		return err
	}
	temp := n.tree.tempFor(cpuSensorKeys...)

	// A failed load read is a per-sensor absence, not a node failure.
	var load *float64
	if percents, err := cpu.PercentWithContext(ctx, 0, false); err == nil && len(percents) > 0 {
		load = &percents[0]
	}

	n.mu.Lock()
	n.temp, n.load = temp, load
	n.mu.Unlock()
	return nil
}

func (n *cpuNode) Sensors() []Sensor {
	n.mu.Lock()
	defer n.mu.Unlock()
	return []Sensor{
		{Kind: SensorTemperature, Name: "CPU Package", Value: n.temp},
		{Kind: SensorLoad, Name: "CPU Total", Value: n.load},
	}
}
