package egress

import (
	"context"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/idlab-discover/Multi-path-XR/internal/model"
)

// WebSocketSender wraps one gorilla/websocket connection. When EmitWithAck
// is set, Send blocks for a JSON ack frame from the peer (read by a
// background pump) before returning, bounded by ctx's deadline.
type WebSocketSender struct {
	conn        *websocket.Conn
	emitWithAck bool

	mu      sync.Mutex
	pending map[uint64]chan struct{}

	highWatermark int
	queued        int32 // approximate in-flight frame count
}

// NewWebSocketSender wraps conn. content_encoding (gzip) is applied once
// upstream in the scheduler before Send ever sees a payload (spec.md §9), so
// this sender writes whatever bytes it is given as a single binary frame.
func NewWebSocketSender(conn *websocket.Conn, ch model.EgressChannel) *WebSocketSender {
	s := &WebSocketSender{
		conn:          conn,
		emitWithAck:   ch.EmitWithAck,
		pending:       make(map[uint64]chan struct{}),
		highWatermark: 32,
	}
	if s.emitWithAck {
		go s.pumpAcks()
	}
	return s
}

func (s *WebSocketSender) Protocol() model.EgressProtocol { return model.ProtocolWebSocket }

type ackFrame struct {
	FrameID uint64 `json:"frame_id"`
}

func (s *WebSocketSender) pumpAcks() {
	for {
		var ack ackFrame
		if err := s.conn.ReadJSON(&ack); err != nil {
			// No ack can arrive any more; pending Sends run into their
			// deadline and report DeadlineExpired.
			return
		}
		s.mu.Lock()
		if ch, ok := s.pending[ack.FrameID]; ok {
			close(ch)
			delete(s.pending, ack.FrameID)
		}
		s.mu.Unlock()
	}
}

// Send writes payload as a binary frame, then — if EmitWithAck — waits for
// the matching ack until ctx is done.
func (s *WebSocketSender) Send(ctx context.Context, frameID uint64, layer int, payload []byte) error {
	var waiter chan struct{}
	if s.emitWithAck {
		waiter = make(chan struct{})
		s.mu.Lock()
		s.pending[frameID] = waiter
		s.queued++
		s.mu.Unlock()
	}

	if err := s.conn.WriteMessage(websocket.BinaryMessage, payload); err != nil {
		if s.emitWithAck {
			s.forget(frameID)
		}
		return model.NewError(model.ErrIO, "websocket write: %v", err)
	}

	if !s.emitWithAck {
		return nil
	}

	select {
	case <-waiter:
		s.mu.Lock()
		s.queued--
		s.mu.Unlock()
		return nil
	case <-ctx.Done():
		s.forget(frameID)
		return model.NewError(model.ErrDeadlineExpired, "websocket ack for frame %d not received before deadline", frameID)
	}
}

// forget drops frameID's ack waiter once its Send has given up on it, so it
// no longer counts as in flight.
func (s *WebSocketSender) forget(frameID uint64) {
	s.mu.Lock()
	delete(s.pending, frameID)
	s.queued--
	s.mu.Unlock()
}

// Backpressure reports true once the number of unacked in-flight frames
// reaches the sender's high-watermark (spec.md §4.4).
func (s *WebSocketSender) Backpressure() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return int(s.queued) >= s.highWatermark
}

func (s *WebSocketSender) Close() error {
	_ = s.conn.WriteControl(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""), time.Now().Add(time.Second))
	return s.conn.Close()
}
