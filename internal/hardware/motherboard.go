// Motherboard node — chipset and ambient board sensors (acpitz, PCH,
// Super I/O SYSTIN style keys).
package hardware

import (
	"context"
	"sync"
)

var motherboardSensorKeys = []string{
	"acpitz", "pch", "motherboard", "systin", "board", "ambient",
}

type motherboardNode struct {
	tree *systemTree

	mu   sync.Mutex
	temp *float64
}

func newMotherboardNode(t *systemTree) *motherboardNode {
	return &motherboardNode{tree: t}
}

func (n *motherboardNode) Category() Category { return CategoryMotherboard }
func (n *motherboardNode) Name() string       { return "Motherboard" }
func (n *motherboardNode) Children() []Node   { return nil }

func (n *motherboardNode) Refresh(ctx context.Context) error {
	n.mu.Lock()
	n.temp = nil
	n.mu.Unlock()

	if err := n.tree.readTemps(ctx); err != nil {
		return err
	}

	n.mu.Lock()
	n.temp = n.tree.tempFor(motherboardSensorKeys...)
	n.mu.Unlock()
	return nil
}

func (n *motherboardNode) Sensors() []Sensor {
	n.mu.Lock()
	defer n.mu.Unlock()
	return []Sensor{
		{Kind: SensorTemperature, Name: "Motherboard", Value: n.temp},
	}
}
