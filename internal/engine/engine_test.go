package engine

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/hwpulse/monitor/internal/hardware"
	"github.com/hwpulse/monitor/internal/models"
)

// fakeClock lets tests advance the engine's notion of time manually.
type fakeClock struct {
	mu  sync.Mutex
	cur time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{cur: time.Date(2026, 1, 10, 12, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.cur
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.cur = c.cur.Add(d)
	c.mu.Unlock()
}

func newTestEngine(t *testing.T, tree hardware.Tree) (*Engine, *fakeClock) {
	t.Helper()
	e, err := New(tree, DefaultPolicy(), nil)
	if err != nil {
		t.Fatal(err)
	}
	clock := newFakeClock()
	e.now = clock.Now
	return e, clock
}

func cpuMock() *hardware.MockNode {
	return hardware.NewMockNode(hardware.CategoryCPU, "CPU",
		hardware.Sensor{Kind: hardware.SensorTemperature, Name: "CPU Package", Value: models.Float(45.2)},
		hardware.Sensor{Kind: hardware.SensorLoad, Name: "CPU Total", Value: models.Float(12.5)},
	)
}

func diskMock(name string, temp float64) *hardware.MockNode {
	return hardware.NewMockNode(hardware.CategoryStorage, name,
		hardware.Sensor{Kind: hardware.SensorTemperature, Name: name, Value: models.Float(temp)},
	)
}

func TestPollEndToEnd(t *testing.T) {
	tree := hardware.NewMockTree(cpuMock(), diskMock("Disk", 31.0), diskMock("Disk", 38.5))
	e, _ := newTestEngine(t, tree)

	snap, err := e.Poll(context.Background(), true)
	if err != nil {
		t.Fatal(err)
	}

	if snap.CPUTemp == nil || *snap.CPUTemp != 45.2 {
		t.Errorf("CPUTemp = %v, want 45.2", snap.CPUTemp)
	}
	if snap.CPULoad == nil || *snap.CPULoad != 12.5 {
		t.Errorf("CPULoad = %v, want 12.5", snap.CPULoad)
	}
	if len(snap.Disks) != 2 {
		t.Fatalf("got %d disks, want 2", len(snap.Disks))
	}
	if snap.Disks[0].Name != "Disk" || snap.Disks[1].Name != "Disk #2" {
		t.Errorf("disk names = %q, %q; want \"Disk\", \"Disk #2\"",
			snap.Disks[0].Name, snap.Disks[1].Name)
	}
	if snap.Disks[0].Temp == nil || *snap.Disks[0].Temp != 31.0 {
		t.Errorf("Disk temp = %v, want 31.0", snap.Disks[0].Temp)
	}
	if snap.Disks[1].Temp == nil || *snap.Disks[1].Temp != 38.5 {
		t.Errorf("Disk #2 temp = %v, want 38.5", snap.Disks[1].Temp)
	}
}

func TestPollThrottleSkipsEarlyPolls(t *testing.T) {
	e, clock := newTestEngine(t, hardware.NewMockTree(cpuMock()))
	ctx := context.Background()

	if _, err := e.Poll(ctx, false); err != nil {
		t.Fatal(err)
	}

	clock.Advance(500 * time.Millisecond)
	if _, err := e.Poll(ctx, false); !errors.Is(err, ErrSkipped) {
		t.Errorf("poll before min gap: err = %v, want ErrSkipped", err)
	}

	clock.Advance(300 * time.Millisecond)
	if _, err := e.Poll(ctx, false); err != nil {
		t.Errorf("poll after min gap: err = %v, want nil", err)
	}
}

func TestPollForceThoroughIgnoresThrottle(t *testing.T) {
	e, _ := newTestEngine(t, hardware.NewMockTree(cpuMock()))
	ctx := context.Background()

	if _, err := e.Poll(ctx, false); err != nil {
		t.Fatal(err)
	}
	// No clock advance at all; forced polls always run.
	snap, err := e.Poll(ctx, true)
	if err != nil {
		t.Fatalf("forced poll: err = %v, want nil", err)
	}
	if !snap.Thorough {
		t.Error("forced poll produced a fast snapshot")
	}
}

func TestPollDepthFollowsStaleness(t *testing.T) {
	e, clock := newTestEngine(t, hardware.NewMockTree(cpuMock()))
	ctx := context.Background()

	// First poll has no prior success and runs thorough.
	snap, err := e.Poll(ctx, false)
	if err != nil {
		t.Fatal(err)
	}
	if !snap.Thorough {
		t.Error("first poll should be thorough")
	}

	clock.Advance(800 * time.Millisecond)
	snap, err = e.Poll(ctx, false)
	if err != nil {
		t.Fatal(err)
	}
	if snap.Thorough {
		t.Error("poll within StaleAfter should be fast")
	}

	clock.Advance(1500 * time.Millisecond)
	snap, err = e.Poll(ctx, false)
	if err != nil {
		t.Fatal(err)
	}
	if !snap.Thorough {
		t.Error("poll past StaleAfter should be thorough")
	}
}

func TestThoroughScanRefreshesSettleProneTwice(t *testing.T) {
	cpu := cpuMock()
	disk := diskMock("Disk", 30)
	tree := hardware.NewMockTree(cpu, disk)
	e, _ := newTestEngine(t, tree)

	if _, err := e.Poll(context.Background(), true); err != nil {
		t.Fatal(err)
	}

	if got := cpu.Refreshes(); got != 2 {
		t.Errorf("CPU refreshes on thorough scan = %d, want 2", got)
	}
	if got := disk.Refreshes(); got != 1 {
		t.Errorf("disk refreshes on thorough scan = %d, want 1", got)
	}
	if got := tree.Rescans(); got != 1 {
		t.Errorf("tree rescans = %d, want 1", got)
	}
}

func TestFastScanReusesCachedHandle(t *testing.T) {
	oldCPU := cpuMock()
	tree := hardware.NewMockTree(oldCPU)
	e, clock := newTestEngine(t, tree)
	ctx := context.Background()

	if _, err := e.Poll(ctx, false); err != nil {
		t.Fatal(err)
	}

	// Swap the root out from under the cache. A fast poll must keep
	// reading the memoized handle; a thorough poll must re-discover.
	newCPU := hardware.NewMockNode(hardware.CategoryCPU, "CPU",
		hardware.Sensor{Kind: hardware.SensorTemperature, Name: "CPU Package", Value: models.Float(99.0)},
	)
	tree.SetRoots(newCPU)

	clock.Advance(800 * time.Millisecond)
	snap, err := e.Poll(ctx, false)
	if err != nil {
		t.Fatal(err)
	}
	if snap.Thorough {
		t.Fatal("expected a fast poll")
	}
	if snap.CPUTemp == nil || *snap.CPUTemp != 45.2 {
		t.Errorf("fast poll CPUTemp = %v, want cached handle's 45.2", snap.CPUTemp)
	}

	snap, err = e.Poll(ctx, true)
	if err != nil {
		t.Fatal(err)
	}
	if snap.CPUTemp == nil || *snap.CPUTemp != 99.0 {
		t.Errorf("thorough poll CPUTemp = %v, want re-discovered 99.0", snap.CPUTemp)
	}
}

func TestSensorFailureIsolation(t *testing.T) {
	cpu := cpuMock()
	gpu := hardware.NewMockNode(hardware.CategoryGPUNvidia, "GPU",
		hardware.Sensor{Kind: hardware.SensorTemperature, Name: "GPU Core", Value: models.Float(60)},
	)
	gpu.SetFail(errors.New("gpu driver fault"))

	e, _ := newTestEngine(t, hardware.NewMockTree(cpu, gpu))
	snap, err := e.Poll(context.Background(), true)
	if err != nil {
		t.Fatalf("poll with a failing node: err = %v, want nil", err)
	}

	if snap.CPUTemp == nil || *snap.CPUTemp != 45.2 {
		t.Errorf("CPUTemp = %v, want 45.2 despite GPU failure", snap.CPUTemp)
	}
}

func TestAbsentSensorStaysAbsent(t *testing.T) {
	cpu := cpuMock()
	cpu.SetValue(hardware.SensorTemperature, "CPU Package", nil)

	e, _ := newTestEngine(t, hardware.NewMockTree(cpu))
	snap, err := e.Poll(context.Background(), true)
	if err != nil {
		t.Fatal(err)
	}
	if snap.CPUTemp != nil {
		t.Errorf("CPUTemp = %v, want nil for an absent sensor", *snap.CPUTemp)
	}
	if snap.CPULoad == nil || *snap.CPULoad != 12.5 {
		t.Errorf("CPULoad = %v, want 12.5 (sibling unaffected)", snap.CPULoad)
	}
}

// blockingNode parks inside Refresh until released, so tests can hold a
// poll in flight.
type blockingNode struct {
	entered chan struct{}
	release chan struct{}
	once    sync.Once
}

func newBlockingNode() *blockingNode {
	return &blockingNode{
		entered: make(chan struct{}),
		release: make(chan struct{}),
	}
}

func (b *blockingNode) Category() hardware.Category { return hardware.CategoryCPU }
func (b *blockingNode) Name() string                { return "CPU" }
func (b *blockingNode) Children() []hardware.Node   { return nil }
func (b *blockingNode) Sensors() []hardware.Sensor  { return nil }

func (b *blockingNode) Refresh(ctx context.Context) error {
	b.once.Do(func() { close(b.entered) })
	<-b.release
	return nil
}

func TestPollSingleFlight(t *testing.T) {
	node := newBlockingNode()
	e, _ := newTestEngine(t, hardware.NewMockTree(node))
	ctx := context.Background()

	done := make(chan error, 1)
	go func() {
		_, err := e.Poll(ctx, true)
		done <- err
	}()

	<-node.entered
	// A second caller must be dropped immediately, even when forced.
	if _, err := e.Poll(ctx, true); !errors.Is(err, ErrSkipped) {
		t.Errorf("concurrent poll: err = %v, want ErrSkipped", err)
	}

	close(node.release)
	if err := <-done; err != nil {
		t.Fatalf("first poll: %v", err)
	}
}

func TestCloseIsIdempotentAndWaitsForPolls(t *testing.T) {
	node := newBlockingNode()
	tree := hardware.NewMockTree(node)
	e, _ := newTestEngine(t, tree)

	polled := make(chan struct{})
	go func() {
		e.Poll(context.Background(), true)
		close(polled)
	}()
	<-node.entered

	closed := make(chan error, 1)
	go func() { closed <- e.Close() }()

	select {
	case <-closed:
		t.Fatal("Close returned while a poll was still in flight")
	case <-time.After(50 * time.Millisecond):
	}

	close(node.release)
	if err := <-closed; err != nil {
		t.Fatalf("Close: %v", err)
	}
	<-polled

	// Second close is a no-op; the mock tree errors on a double close.
	if err := e.Close(); err != nil {
		t.Errorf("second Close: %v, want nil", err)
	}
	if got := tree.Closes(); got != 1 {
		t.Errorf("tree closed %d times, want exactly 1", got)
	}

	if _, err := e.Poll(context.Background(), true); !errors.Is(err, ErrClosed) {
		t.Errorf("poll after close: err = %v, want ErrClosed", err)
	}
}
