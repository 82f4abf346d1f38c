// Package model defines the wire-level data model shared by every core
// component: frames, streams, jobs, egress channels and FEC blocks.
package model

import "time"

// DefaultStreamID denotes the settings-inheritance pseudo-stream.
const DefaultStreamID = "__default__"

// Point3 is an f32x3 position.
type Point3 struct {
	X, Y, Z float32
}

// ColorRGB is an optional u8x3 attribute.
type ColorRGB struct {
	R, G, B uint8
}

// Points is an ordered point cloud with optional per-point color.
type Points struct {
	Positions []Point3
	Colors    []ColorRGB // len(Colors) == len(Positions) or 0
}

// Len returns the number of points.
func (p Points) Len() int { return len(p.Positions) }

// Slice returns the half-open index range [lo, hi) as its own Points value,
// sharing no backing storage with the parent beyond read access.
func (p Points) Slice(lo, hi int) Points {
	out := Points{Positions: append([]Point3(nil), p.Positions[lo:hi]...)}
	if len(p.Colors) > 0 {
		out.Colors = append([]ColorRGB(nil), p.Colors[lo:hi]...)
	}
	return out
}

// LayerRange names one partitioned, non-overlapping slice of a frame's
// points. Layer 0 is always the broadcast base, per spec.
type LayerRange struct {
	Layer int
	Lo    int // inclusive
	Hi    int // exclusive
}

// Partitioning is the ordered list of layer_0..layer_k ranges that exactly
// cover a frame's points.
type Partitioning []LayerRange

// Frame is one ingested point-cloud sample for one stream.
type Frame struct {
	FrameID     uint64
	StreamID    string
	ArrivalTS   time.Time // producer monotonic clock, microsecond resolution conceptually
	DeadlineTS  time.Time // ArrivalTS + PresentationTimeOffset
	Points      Points
	Partition   Partitioning
	SequenceGap bool // true when frame_id does not immediately follow the prior dispatched id
}

// Deadline returns the remaining time until this frame's playout deadline.
func (f Frame) Deadline(now time.Time) time.Duration {
	return f.DeadlineTS.Sub(now)
}
