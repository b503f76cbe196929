// Memory node. DIMM temperature sensors are rare outside servers, so
// the temperature is usually absent; utilization comes from gopsutil.
package hardware

import (
	"context"
	"sync"

	"github.com/shirou/gopsutil/v3/mem"
)

var memorySensorKeys = []string{"dimm", "memory", "spd", "sodimm"}

type memoryNode struct {
	tree *systemTree

	mu   sync.Mutex
	temp *float64
	load *float64
}

func newMemoryNode(t *systemTree) *memoryNode {
	return &memoryNode{tree: t}
}

func (n *memoryNode) Category() Category { return CategoryMemory }
func (n *memoryNode) Name() string       { return "Memory" }
func (n *memoryNode) Children() []Node   { return nil }

func (n *memoryNode) Refresh(ctx context.Context) error {
	n.mu.Lock()
	n.temp, n.load = nil, nil
	n.mu.Unlock()

	if err := n.tree.readTemps(ctx); err != nil {
		return err
	}
	temp := n.tree.tempFor(memorySensorKeys...)

	var load *float64
	if v, err := mem.VirtualMemoryWithContext(ctx); err == nil {
		load = &v.UsedPercent
	}

	n.mu.Lock()
	n.temp, n.load = temp, load
	n.mu.Unlock()
	return nil
}

func (n *memoryNode) Sensors() []Sensor {
	n.mu.Lock()
	defer n.mu.Unlock()
	return []Sensor{
		{Kind: SensorTemperature, Name: "Memory", Value: n.temp},
		{Kind: SensorLoad, Name: "Memory", Value: n.load},
	}
}
