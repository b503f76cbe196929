// Storage nodes — one per physical drive enumerated through ghw.
// Controllers frequently report several drives of the same model under
// an identical string; callers deduplicate display names themselves.
package hardware

import (
	"context"
	"strings"
	"sync"

	"github.com/jaypipes/ghw"
	"github.com/jaypipes/ghw/pkg/block"
)

type storageNode struct {
	tree   *systemTree
	device string // kernel name, e.g. "sda", "nvme0n1"
	model  string // reported model string, may collide across drives

	mu   sync.Mutex
	temp *float64
}

// enumerateDisks lists the machine's physical drives. Optical and floppy
// drives carry no useful thermal data and are skipped.
func enumerateDisks(t *systemTree) ([]Node, error) {
	info, err := ghw.Block()
	if err != nil {
		return nil, err
	}

	var nodes []Node
	for _, d := range info.Disks {
		switch d.DriveType {
		case block.DRIVE_TYPE_ODD, block.DRIVE_TYPE_FDD:
			continue
		}
		model := strings.TrimSpace(d.Model)
		if model == "" || model == "unknown" {
			model = d.Name
		}
		nodes = append(nodes, &storageNode{
			tree:   t,
			device: d.Name,
			model:  model,
		})
	}
	return nodes, nil
}

func (n *storageNode) Category() Category { return CategoryStorage }
func (n *storageNode) Name() string       { return n.model }
func (n *storageNode) Children() []Node   { return nil }

// Refresh picks the drive's temperature out of the shared sensor table.
// NVMe drives report a composite sensor; SATA drives show up under
// drivetemp keyed by the kernel device name.
func (n *storageNode) Refresh(ctx context.Context) error {
	n.mu.Lock()
	n.temp = nil
	n.mu.Unlock()

	if err := n.tree.readTemps(ctx); err != nil {
		return err
	}

	keys := []string{strings.ToLower(n.device)}
	if strings.HasPrefix(n.device, "nvme") {
		keys = append(keys, "nvme_composite", "composite")
	} else {
		keys = append(keys, "drivetemp")
	}

	n.mu.Lock()
	n.temp = n.tree.tempFor(keys...)
	n.mu.Unlock()
	return nil
}

func (n *storageNode) Sensors() []Sensor {
	n.mu.Lock()
	defer n.mu.Unlock()
	return []Sensor{
		{Kind: SensorTemperature, Name: n.model, Value: n.temp},
	}
}
