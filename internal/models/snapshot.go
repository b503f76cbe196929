// Package models defines the sensor value types shared between the polling
// engine and the display layer. These structures are serialized to JSON for
// the headless output mode.
package models

import "time"

// Snapshot represents the readings produced by one successful poll cycle.
// Nil pointers mean the sensor is currently unavailable — a normal state,
// distinct from a measured zero. Snapshots are pure values with no identity
// retained across polls.
type Snapshot struct {
	Timestamp  time.Time  `json:"timestamp"`
	Thorough   bool       `json:"thorough"`
	CPUTemp    *float64   `json:"cpu_temp"`
	CPULoad    *float64   `json:"cpu_load"`
	GPUTemp    *float64   `json:"gpu_temp"`
	GPULoad    *float64   `json:"gpu_load"`
	MemoryTemp *float64   `json:"memory_temp"`
	Disks      []DiskTemp `json:"disks"`
}

// DiskTemp is one physical drive's temperature keyed by its display name.
// Names are unique within a Snapshot and ordered as the drives were
// enumerated.
type DiskTemp struct {
	Name string   `json:"name"`
	Temp *float64 `json:"temp"`
}

// Float returns a pointer to v, for building snapshots and test fixtures.
func Float(v float64) *float64 { return &v }
