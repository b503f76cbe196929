package hardware

import (
	"context"
	"errors"
	"sync"
)

// MockNode is a configurable in-memory Node for tests and development.
// All fields may be mutated between polls; access is serialized.
type MockNode struct {
	mu sync.Mutex

	Cat        Category
	NodeName   string
	Subs       []Node
	Values     []Sensor
	FailReason error // Refresh returns this when set

	RefreshCount int
}

// NewMockNode creates a leaf mock node with the given category and name.
func NewMockNode(cat Category, name string, sensors ...Sensor) *MockNode {
	return &MockNode{Cat: cat, NodeName: name, Values: sensors}
}

func (m *MockNode) Category() Category { return m.Cat }
func (m *MockNode) Name() string       { return m.NodeName }

func (m *MockNode) Children() []Node {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.Subs
}

func (m *MockNode) Refresh(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.RefreshCount++
	return m.FailReason
}

func (m *MockNode) Sensors() []Sensor {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]Sensor, len(m.Values))
	copy(out, m.Values)
	return out
}

// SetValue replaces the value of the sensor with the given kind and name.
func (m *MockNode) SetValue(kind SensorKind, name string, v *float64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i := range m.Values {
		if m.Values[i].Kind == kind && m.Values[i].Name == name {
			m.Values[i].Value = v
			return
		}
	}
	m.Values = append(m.Values, Sensor{Kind: kind, Name: name, Value: v})
}

// SetFail configures Refresh to fail (nil clears the failure).
func (m *MockNode) SetFail(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.FailReason = err
}

// Refreshes returns how many times Refresh has been called.
func (m *MockNode) Refreshes() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.RefreshCount
}

// MockTree is a thread-safe in-memory Tree for tests.
type MockTree struct {
	mu       sync.Mutex
	roots    []Node
	rescans  int
	closes   int
	failScan error
}

// NewMockTree creates a mock tree over the given roots.
func NewMockTree(roots ...Node) *MockTree {
	return &MockTree{roots: roots}
}

func (m *MockTree) Roots() []Node {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]Node, len(m.roots))
	copy(out, m.roots)
	return out
}

// SetRoots replaces the root list, simulating a topology change.
func (m *MockTree) SetRoots(roots ...Node) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.roots = roots
}

func (m *MockTree) Rescan(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.rescans++
	return m.failScan
}

func (m *MockTree) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closes > 0 {
		return errors.New("mock tree closed twice")
	}
	m.closes++
	return nil
}

// Rescans returns how many times Rescan has been called.
func (m *MockTree) Rescans() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.rescans
}

// Closes returns how many times Close has been called.
func (m *MockTree) Closes() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.closes
}
