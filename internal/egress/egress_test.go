package egress

import (
	"context"
	"encoding/binary"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"github.com/idlab-discover/Multi-path-XR/internal/model"
)

func TestFileSenderRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out.bin")
	fs, err := NewFileSender(path)
	if err != nil {
		t.Fatalf("NewFileSender: %v", err)
	}
	payload := []byte("hello frame")
	if err := fs.Send(context.Background(), 7, 0, payload); err != nil {
		t.Fatalf("Send: %v", err)
	}
	if err := fs.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("ReadFile: %v", err)
	}
	if len(data) != 12+len(payload) {
		t.Fatalf("unexpected file length %d", len(data))
	}
	if binary.LittleEndian.Uint64(data[0:]) != 7 {
		t.Fatalf("unexpected frame id in header")
	}
	if string(data[12:]) != string(payload) {
		t.Fatalf("unexpected payload bytes")
	}
}

var upgrader = websocket.Upgrader{}

func TestWebSocketSenderWithoutAck(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			t.Errorf("server upgrade: %v", err)
			return
		}
		defer conn.Close()
		if _, _, err := conn.ReadMessage(); err != nil {
			return
		}
	}))
	defer srv.Close()

	wsURL := "ws" + srv.URL[len("http"):]
	conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	sender := NewWebSocketSender(conn, model.EgressChannel{Protocol: model.ProtocolWebSocket})
	defer sender.Close()

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	if err := sender.Send(ctx, 1, 0, []byte("payload")); err != nil {
		t.Fatalf("Send: %v", err)
	}
	if sender.Backpressure() {
		t.Fatalf("expected no backpressure without emit_with_ack")
	}
}

func TestWebSocketSenderAckTimeout(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		// Never sends an ack back.
		_, _, _ = conn.ReadMessage()
		time.Sleep(200 * time.Millisecond)
		conn.Close()
	}))
	defer srv.Close()

	wsURL := "ws" + srv.URL[len("http"):]
	conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	sender := NewWebSocketSender(conn, model.EgressChannel{Protocol: model.ProtocolWebSocket, EmitWithAck: true})
	defer sender.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	err = sender.Send(ctx, 1, 0, []byte("payload"))
	if model.KindOf(err) != model.ErrDeadlineExpired {
		t.Fatalf("expected DeadlineExpired, got %v", err)
	}
}
