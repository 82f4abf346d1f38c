package controlplane

import (
	"sync"

	"github.com/idlab-discover/Multi-path-XR/internal/framebuffer"
)

// RingManager lazily creates and hands out one C1 ring per stream.
type RingManager struct {
	mu       sync.Mutex
	rings    map[string]*framebuffer.Ring
	onDrop   func(framebuffer.DropEvent)
	onCreate func(streamID string, r *framebuffer.Ring)
}

// NewRingManager constructs a manager whose rings all share onDrop.
func NewRingManager(onDrop func(framebuffer.DropEvent)) *RingManager {
	return &RingManager{rings: make(map[string]*framebuffer.Ring), onDrop: onDrop}
}

// OnCreate registers a hook invoked once, synchronously, the first time a
// stream's ring is created — callers use it to start that stream's consumer
// loop (see cmd/xrcore's pipeline wiring).
func (m *RingManager) OnCreate(fn func(streamID string, r *framebuffer.Ring)) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.onCreate = fn
}

// GetOrCreate returns streamID's ring, creating it on first use.
func (m *RingManager) GetOrCreate(streamID string) *framebuffer.Ring {
	m.mu.Lock()
	r, ok := m.rings[streamID]
	created := !ok
	if !ok {
		r = framebuffer.NewRing(streamID, m.onDrop)
		m.rings[streamID] = r
	}
	onCreate := m.onCreate
	m.mu.Unlock()

	if created && onCreate != nil {
		onCreate(streamID, r)
	}
	return r
}
