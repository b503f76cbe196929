// Depth-first scan over the hardware tree. The walk only refreshes
// container nodes; sensor values are read afterwards through the handle
// cache.
package engine

import (
	"context"

	"go.uber.org/zap"

	"github.com/hwpulse/monitor/internal/hardware"
)

type scanner struct {
	logger *zap.Logger
}

// run refreshes every node reachable from roots. A failing node is
// logged and its subtree skipped; siblings are unaffected.
func (s *scanner) run(ctx context.Context, roots []hardware.Node, thorough bool) {
	for _, n := range roots {
		s.visit(ctx, n, thorough)
	}
}

func (s *scanner) visit(ctx context.Context, n hardware.Node, thorough bool) {
	if err := n.Refresh(ctx); err != nil {
		s.logger.Warn("Node refresh failed",
			zap.String("node", n.Name()),
			zap.Stringer("category", n.Category()),
			zap.Error(err))
		return
	}

	// CPU, motherboard and GPU packages report transient zeros on the
	// first read after idle; a second pass stabilizes them. Only worth
	// the extra hardware calls on thorough scans.
	if thorough && settleProne(n.Category()) {
		if err := n.Refresh(ctx); err != nil {
			s.logger.Warn("Second refresh pass failed",
				zap.String("node", n.Name()),
				zap.Error(err))
		}
	}

	for _, child := range n.Children() {
		s.visit(ctx, child, thorough)
	}
}

func settleProne(cat hardware.Category) bool {
	switch cat {
	case hardware.CategoryCPU, hardware.CategoryMotherboard,
		hardware.CategoryGPUNvidia, hardware.CategoryGPUAMD:
		return true
	}
	return false
}
