package engine

import (
	"sync"

	"github.com/hwpulse/monitor/internal/hardware"
)

// handleCache memoizes the first root handle discovered per hardware
// category, so fast polls skip re-walking the root list. It never caches
// sensor values — those must always come from the latest refresh.
type handleCache struct {
	mu      sync.Mutex
	entries map[hardware.Category]hardware.Node
}

func newHandleCache() *handleCache {
	return &handleCache{
		entries: make(map[hardware.Category]hardware.Node),
	}
}

// lookup returns the memoized handle for cat, discovering it from roots
// on first use. Absent categories are not negatively cached; a handle
// can appear after the next invalidation.
func (c *handleCache) lookup(roots []hardware.Node, cat hardware.Category) (hardware.Node, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if n, ok := c.entries[cat]; ok {
		return n, true
	}
	for _, r := range roots {
		if r.Category() == cat {
			c.entries[cat] = r
			return r, true
		}
	}
	return nil, false
}

// invalidate drops all entries. Called after every thorough scan, the
// only point at which hardware topology is assumed to change.
func (c *handleCache) invalidate() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries = make(map[hardware.Category]hardware.Node)
}
