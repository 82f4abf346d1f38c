package pipeline

import (
	"context"

	"github.com/idlab-discover/Multi-path-XR/internal/framebuffer"
	"github.com/idlab-discover/Multi-path-XR/internal/model"
	"github.com/idlab-discover/Multi-path-XR/internal/registry"
	"github.com/idlab-discover/Multi-path-XR/internal/scheduler"
)

// RingPusher is the one RingManager method Ingest needs; kept as a narrow
// interface here so this package doesn't need to import controlplane.
type RingPusher interface {
	GetOrCreate(streamID string) *framebuffer.Ring
}

// Ingest admits one newly-produced frame, honoring ring_buffer_bypass (spec.md
// §9 open question): when set, the frame skips the C1 ring entirely and is
// handed to the scheduler synchronously, forgoing the ring's overflow/drop
// counting. Otherwise it is pushed onto the stream's ring as usual, to be
// drained by that stream's Consume loop.
func Ingest(ctx context.Context, reg *registry.Registry, sched *scheduler.Scheduler, rings RingPusher, frame model.Frame) {
	settings, err := reg.ResolvedSettings(frame.StreamID)
	if err == nil && settings.RingBufferBypass != nil && *settings.RingBufferBypass {
		sched.ProcessFrame(ctx, frame)
		return
	}
	rings.GetOrCreate(frame.StreamID).Push(frame)
}
