// GPU nodes. NVIDIA cards are queried through nvidia-smi, which exposes
// temperature and utilization without any kernel sensor support. AMD and
// integrated GPUs surface through host sensors (amdgpu/radeon/nouveau).
package hardware

import (
	"context"
	"fmt"
	"os/exec"
	"strconv"
	"strings"
	"sync"
)

var amdGPUSensorKeys = []string{
	"gpu", "amdgpu", "radeon", "nouveau",
	"tg0p", "tg0d",
}

// nvidiaGPUNode reads through nvidia-smi and does not touch the shared
// sensor table.
type nvidiaGPUNode struct {
	mu   sync.Mutex
	temp *float64
	load *float64
}

func newNvidiaGPUNode(t *systemTree) *nvidiaGPUNode {
	return &nvidiaGPUNode{}
}

func (n *nvidiaGPUNode) Category() Category { return CategoryGPUNvidia }
func (n *nvidiaGPUNode) Name() string       { return "NVIDIA GPU" }
func (n *nvidiaGPUNode) Children() []Node   { return nil }

// Refresh queries nvidia-smi for temperature and core utilization.
func (n *nvidiaGPUNode) Refresh(ctx context.Context) error {
	n.mu.Lock()
	n.temp, n.load = nil, nil
	n.mu.Unlock()

	cmd := exec.CommandContext(ctx, "nvidia-smi",
		"--query-gpu=temperature.gpu,utilization.gpu",
		"--format=csv,noheader,nounits")
	output, err := cmd.Output()
	if err != nil {
		return fmt.Errorf("querying nvidia-smi: %w", err)
	}

	temp, load, err := parseNvidiaSMI(string(output))
	if err != nil {
		return err
	}

	n.mu.Lock()
	n.temp, n.load = temp, load
	n.mu.Unlock()
	return nil
}

func (n *nvidiaGPUNode) Sensors() []Sensor {
	n.mu.Lock()
	defer n.mu.Unlock()
	return []Sensor{
		{Kind: SensorTemperature, Name: "GPU Core", Value: n.temp},
		{Kind: SensorLoad, Name: "GPU Core", Value: n.load},
	}
}

// parseNvidiaSMI parses one "temp, util" CSV line. Either field may be
// "[N/A]" on cards that do not report it.
func parseNvidiaSMI(output string) (temp, load *float64, err error) {
	line := strings.TrimSpace(output)
	if i := strings.IndexByte(line, '\n'); i >= 0 {
		line = strings.TrimSpace(line[:i]) // first GPU only
	}
	fields := strings.Split(line, ",")
	if len(fields) != 2 {
		return nil, nil, fmt.Errorf("unexpected nvidia-smi output %q", line)
	}

	parse := func(s string) *float64 {
		v, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
		if err != nil {
			return nil
		}
		return &v
	}
	return parse(fields[0]), parse(fields[1]), nil
}

type amdGPUNode struct {
	tree *systemTree

	mu   sync.Mutex
	temp *float64
}

func newAMDGPUNode(t *systemTree) *amdGPUNode {
	return &amdGPUNode{tree: t}
}

func (n *amdGPUNode) Category() Category { return CategoryGPUAMD }
func (n *amdGPUNode) Name() string       { return "AMD GPU" }
func (n *amdGPUNode) Children() []Node   { return nil }

func (n *amdGPUNode) Refresh(ctx context.Context) error {
	n.mu.Lock()
	n.temp = nil
	n.mu.Unlock()

	if err := n.tree.readTemps(ctx); err != nil {
		return err
	}

	n.mu.Lock()
	n.temp = n.tree.tempFor(amdGPUSensorKeys...)
	n.mu.Unlock()
	return nil
}

func (n *amdGPUNode) Sensors() []Sensor {
	n.mu.Lock()
	defer n.mu.Unlock()
	return []Sensor{
		{Kind: SensorTemperature, Name: "GPU Core", Value: n.temp},
		// amdgpu exposes no utilization through host sensors
		{Kind: SensorLoad, Name: "GPU Core", Value: nil},
	}
}
