// Package pipeline wires the otherwise-independent C1/C5 components
// together: one drain loop per stream, popping its ring and running each
// frame through the scheduler. Grounded on the teacher's websocket hub
// readPump — a single unbounded for{} loop guarded by a context.
package pipeline

import (
	"context"
	"time"

	"github.com/idlab-discover/Multi-path-XR/internal/framebuffer"
	"github.com/idlab-discover/Multi-path-XR/internal/scheduler"
)

// pollInterval bounds how long a frame can sit in an empty ring before its
// consumer notices it; rings are small (R=4) so this stays well under any
// realistic presentation-time-offset budget.
const pollInterval = 2 * time.Millisecond

// Consume starts a goroutine that drains ring and runs every frame through
// sched until ctx is cancelled. Intended to be started once per stream, the
// first time its ring is created.
func Consume(ctx context.Context, ring *framebuffer.Ring, sched *scheduler.Scheduler) {
	go func() {
		ticker := time.NewTicker(pollInterval)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				drain(ctx, ring, sched)
			}
		}
	}()
}

func drain(ctx context.Context, ring *framebuffer.Ring, sched *scheduler.Scheduler) {
	for {
		frame, ok := ring.Pop()
		if !ok {
			return
		}
		sched.ProcessFrame(ctx, frame)
	}
}
