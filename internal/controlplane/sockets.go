package controlplane

import (
	"sync"

	"github.com/idlab-discover/Multi-path-XR/internal/egress"
)

// socketEntry pairs a connected unicast sender with the stream it serves,
// for the /sockets listing and /sockets/clean teardown endpoints.
type socketEntry struct {
	streamID string
	sender   egress.Sender
}

// SocketRegistry tracks every connected unicast client (WebSocket/WebRTC)
// by an opaque socket_id, independent of C3/C6 lifecycle.
type SocketRegistry struct {
	mu      sync.Mutex
	sockets map[string]socketEntry
}

// NewSocketRegistry constructs an empty registry.
func NewSocketRegistry() *SocketRegistry {
	return &SocketRegistry{sockets: make(map[string]socketEntry)}
}

// Register tracks sender under socketID, replacing any prior entry.
func (r *SocketRegistry) Register(socketID, streamID string, sender egress.Sender) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sockets[socketID] = socketEntry{streamID: streamID, sender: sender}
}

// Unregister removes socketID without closing its sender.
func (r *SocketRegistry) Unregister(socketID string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.sockets, socketID)
}

// SocketInfo is the /sockets listing projection.
type SocketInfo struct {
	SocketID string              `json:"socket_id"`
	StreamID string              `json:"stream_id"`
	Protocol string              `json:"protocol"`
}

// List returns every currently tracked socket.
func (r *SocketRegistry) List() []SocketInfo {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]SocketInfo, 0, len(r.sockets))
	for id, e := range r.sockets {
		out = append(out, SocketInfo{SocketID: id, StreamID: e.streamID, Protocol: string(e.sender.Protocol())})
	}
	return out
}

// Clean closes and removes the named sockets, returning the ones actually
// found (ignoring unknown ids — /sockets/clean is idempotent).
func (r *SocketRegistry) Clean(socketIDs []string) []string {
	r.mu.Lock()
	defer r.mu.Unlock()

	var cleaned []string
	for _, id := range socketIDs {
		if e, ok := r.sockets[id]; ok {
			_ = e.sender.Close()
			delete(r.sockets, id)
			cleaned = append(cleaned, id)
		}
	}
	return cleaned
}
