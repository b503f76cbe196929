package scheduler

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/hwpulse/monitor/internal/config"
	"github.com/hwpulse/monitor/internal/models"
)

// fakePoller records poll requests and hands back canned snapshots.
type fakePoller struct {
	mu    sync.Mutex
	calls []bool // forceThorough flag per call
	last  time.Time
}

func (p *fakePoller) Poll(ctx context.Context, force bool) (*models.Snapshot, error) {
	p.mu.Lock()
	p.calls = append(p.calls, force)
	p.last = time.Now()
	p.mu.Unlock()
	return &models.Snapshot{Timestamp: time.Now(), Thorough: force}, nil
}

func (p *fakePoller) LastSuccess() time.Time {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.last
}

func (p *fakePoller) forcedCalls() []bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]bool, len(p.calls))
	copy(out, p.calls)
	return out
}

// quietConfig keeps the ticker and watchdog out of the way so tests only
// observe the behavior they drive explicitly.
func quietConfig() *config.Config {
	cfg := config.DefaultConfig()
	cfg.Polling.Interval = config.Duration{Duration: time.Hour}
	cfg.Polling.WarmupScans = 3
	cfg.Polling.WarmupSpacing = config.Duration{Duration: time.Millisecond}
	cfg.Watchdog.Interval = config.Duration{Duration: time.Hour}
	cfg.Watchdog.StartDelay = config.Duration{Duration: time.Hour}
	return cfg
}

func TestRunnerWarmupScansAreThorough(t *testing.T) {
	poller := &fakePoller{}
	r := New(poller, quietConfig(), nil)

	snaps := make(chan *models.Snapshot, 8)
	r.OnSnapshot(func(s *models.Snapshot) { snaps <- s })

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go r.Start(ctx)

	for i := 0; i < 3; i++ {
		select {
		case s := <-snaps:
			if !s.Thorough {
				t.Errorf("warm-up snapshot %d not thorough", i+1)
			}
		case <-time.After(2 * time.Second):
			t.Fatalf("timed out waiting for warm-up snapshot %d", i+1)
		}
	}

	for i, force := range poller.forcedCalls() {
		if !force {
			t.Errorf("warm-up poll %d was not forced", i+1)
		}
	}
}

func TestRunnerRestartForcesImmediatePoll(t *testing.T) {
	poller := &fakePoller{}
	cfg := quietConfig()
	cfg.Polling.WarmupScans = 1
	r := New(poller, cfg, nil)

	snaps := make(chan *models.Snapshot, 8)
	r.OnSnapshot(func(s *models.Snapshot) { snaps <- s })

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go r.Start(ctx)

	// Drain the single warm-up snapshot.
	select {
	case <-snaps:
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for warm-up snapshot")
	}

	// With a one-hour interval the ticker is silent; only a restart can
	// produce another poll.
	r.Restart()
	select {
	case s := <-snaps:
		if s.Thorough {
			t.Error("restart poll should be a normal fast poll, not forced thorough")
		}
	case <-time.After(2 * time.Second):
		t.Fatal("restart did not trigger an immediate poll")
	}
}
