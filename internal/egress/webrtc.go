package egress

import (
	"context"

	"github.com/pion/webrtc/v4"

	"github.com/idlab-discover/Multi-path-XR/internal/model"
)

// webrtcHighWatermark is the DataChannel buffered-amount threshold above
// which WebRTCSender reports Backpressure (spec.md §4.4).
const webrtcHighWatermark = 1 << 20 // 1 MiB

// WebRTCSender wraps one ordered, reliable pion DataChannel.
type WebRTCSender struct {
	dc *webrtc.DataChannel
}

// NewWebRTCSender wraps an already-open DataChannel. The channel must have
// been created with Ordered=true and no retransmit limits, matching
// spec.md §4.4's "ordered-reliable" requirement.
func NewWebRTCSender(dc *webrtc.DataChannel) *WebRTCSender {
	dc.SetBufferedAmountLowThreshold(webrtcHighWatermark / 2)
	return &WebRTCSender{dc: dc}
}

func (w *WebRTCSender) Protocol() model.EgressProtocol { return model.ProtocolWebRTC }

// Send writes payload to the DataChannel. It does not itself wait for
// BufferedAmount to drain; callers consult Backpressure before scheduling
// more work onto this sender.
func (w *WebRTCSender) Send(ctx context.Context, frameID uint64, layer int, payload []byte) error {
	if w.dc.ReadyState() != webrtc.DataChannelStateOpen {
		return model.NewError(model.ErrIO, "webrtc data channel not open (state=%s)", w.dc.ReadyState())
	}
	if err := w.dc.Send(payload); err != nil {
		return model.NewError(model.ErrIO, "webrtc send: %v", err)
	}
	return nil
}

// Backpressure reports true once the channel's outbound buffer exceeds the
// high-watermark, signaling the scheduler to stop admitting work for it.
func (w *WebRTCSender) Backpressure() bool {
	return w.dc.BufferedAmount() > webrtcHighWatermark
}

func (w *WebRTCSender) Close() error {
	return w.dc.Close()
}
