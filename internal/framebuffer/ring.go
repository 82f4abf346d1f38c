// Package framebuffer implements the C1 bounded per-stream ring buffer:
// at most R undispatched frames per stream, oldest-drop on overflow.
package framebuffer

import (
	"sync"

	"github.com/idlab-discover/Multi-path-XR/internal/model"
)

// R is the ring depth named in spec.md §4.1.
const R = 4

// DropReason explains why a frame never made it out of the ring.
type DropReason string

const (
	DropOverflow DropReason = "overflow"
)

// DropEvent is emitted whenever Push evicts a frame to make room.
type DropEvent struct {
	StreamID string
	FrameID  uint64
	Reason   DropReason
}

// Ring is a bounded FIFO of undispatched frames for one stream.
type Ring struct {
	mu       sync.Mutex
	streamID string
	buf      []model.Frame
	onDrop   func(DropEvent)
}

// NewRing creates an empty ring for one stream. onDrop, if non-nil, is
// invoked synchronously within Push whenever an overflow eviction occurs —
// callers use it to emit the "no silent gaps" Dropped event of spec.md §8.
func NewRing(streamID string, onDrop func(DropEvent)) *Ring {
	return &Ring{streamID: streamID, buf: make([]model.Frame, 0, R), onDrop: onDrop}
}

// Push appends a frame, evicting the oldest undispatched frame if full.
func (r *Ring) Push(f model.Frame) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if len(r.buf) >= R {
		dropped := r.buf[0]
		r.buf = r.buf[1:]
		if r.onDrop != nil {
			r.onDrop(DropEvent{StreamID: r.streamID, FrameID: dropped.FrameID, Reason: DropOverflow})
		}
	}
	r.buf = append(r.buf, f)
}

// Pop removes and returns the oldest buffered frame, if any.
func (r *Ring) Pop() (model.Frame, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if len(r.buf) == 0 {
		return model.Frame{}, false
	}
	f := r.buf[0]
	r.buf = r.buf[1:]
	return f, true
}

// Len reports the number of undispatched frames currently buffered.
func (r *Ring) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.buf)
}
