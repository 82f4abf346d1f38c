// Package egress implements the C4 Egress Dispatch Fabric: one Sender per
// active EgressChannel, each wrapping a distinct transport (spec.md §4.4).
package egress

import (
	"context"

	"github.com/idlab-discover/Multi-path-XR/internal/model"
)

// Sender delivers one encoded, optionally FEC-protected payload for one
// frame/layer to a single egress channel.
type Sender interface {
	// Send delivers payload for (frameID, layer). It blocks until the
	// transport accepts the write, or ctx's deadline expires, whichever
	// comes first. emit_with_ack senders additionally block for the peer's
	// acknowledgement within ctx's deadline.
	Send(ctx context.Context, frameID uint64, layer int, payload []byte) error

	// Backpressure reports whether this sender currently has queued/unacked
	// data above its high-watermark and should not be handed more work this
	// scheduling round (spec.md §4.5 step "Admit").
	Backpressure() bool

	// Protocol identifies which transport this sender wraps.
	Protocol() model.EgressProtocol

	// Close releases the sender's transport resources.
	Close() error
}
