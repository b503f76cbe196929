// Package hardware abstracts the machine's sensor hardware as a tree of
// refreshable nodes. The polling engine only sees the Node and Tree
// interfaces; the concrete implementation reads gopsutil host sensors,
// ghw block devices and nvidia-smi.
package hardware

import "context"

// Category identifies the kind of hardware a node represents.
type Category int

const (
	CategoryCPU Category = iota
	CategoryGPUNvidia
	CategoryGPUAMD
	CategoryMemory
	CategoryMotherboard
	CategoryStorage
)

// String returns a human-readable category name for logging.
func (c Category) String() string {
	switch c {
	case CategoryCPU:
		return "cpu"
	case CategoryGPUNvidia:
		return "gpu-nvidia"
	case CategoryGPUAMD:
		return "gpu-amd"
	case CategoryMemory:
		return "memory"
	case CategoryMotherboard:
		return "motherboard"
	case CategoryStorage:
		return "storage"
	default:
		return "unknown"
	}
}

// SensorKind identifies what a sensor measures.
type SensorKind int

const (
	SensorTemperature SensorKind = iota
	SensorLoad
	SensorFan
)

// Sensor is one reading exposed by a node after its last refresh.
// A nil Value means the reading is currently unavailable; the read may
// have failed or the sensor may report nothing. Callers must treat nil
// as "no data", never as zero.
type Sensor struct {
	Kind  SensorKind
	Name  string
	Value *float64
}

// Node is one hardware container in the tree. Refresh re-reads the
// node's sensor values; it may block on slow hardware calls and may fail
// at any time. Sensors returns the values captured by the most recent
// refresh.
type Node interface {
	Category() Category
	Name() string
	Refresh(ctx context.Context) error
	Children() []Node
	Sensors() []Sensor
}

// Tree is the root handle onto the hardware. Rescan re-enumerates the
// parts of the topology that can change at runtime (storage devices).
// Close releases the underlying handles; the tree is unusable afterwards.
type Tree interface {
	Roots() []Node
	Rescan(ctx context.Context) error
	Close() error
}
