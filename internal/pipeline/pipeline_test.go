package pipeline

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/idlab-discover/Multi-path-XR/internal/codec"
	"github.com/idlab-discover/Multi-path-XR/internal/egress"
	"github.com/idlab-discover/Multi-path-XR/internal/framebuffer"
	"github.com/idlab-discover/Multi-path-XR/internal/model"
	"github.com/idlab-discover/Multi-path-XR/internal/registry"
	"github.com/idlab-discover/Multi-path-XR/internal/scheduler"
)

type recordingSender struct {
	mu  sync.Mutex
	got []uint64
}

func (r *recordingSender) Send(_ context.Context, frameID uint64, _ int, _ []byte) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.got = append(r.got, frameID)
	return nil
}
func (r *recordingSender) Backpressure() bool            { return false }
func (r *recordingSender) Protocol() model.EgressProtocol { return model.ProtocolFile }
func (r *recordingSender) Close() error                  { return nil }
func (r *recordingSender) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.got)
}

func TestConsumeDrainsRingThroughScheduler(t *testing.T) {
	reg := registry.New()
	sched := scheduler.New(reg, codec.NewPool(1), nil)
	sender := &recordingSender{}
	sched.RegisterSenders("s1", scheduler.StreamSenders{Broadcast: sender})

	var dropEvents []framebuffer.DropEvent
	ring := framebuffer.NewRing("s1", func(e framebuffer.DropEvent) { dropEvents = append(dropEvents, e) })

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	Consume(ctx, ring, sched)

	now := time.Now()
	for i := uint64(1); i <= 3; i++ {
		ring.Push(model.Frame{
			FrameID:    i,
			StreamID:   "s1",
			ArrivalTS:  now,
			DeadlineTS: now.Add(time.Second),
			Points:     model.Points{Positions: []model.Point3{{X: 1, Y: 2, Z: 3}}},
		})
	}

	deadline := time.Now().Add(time.Second)
	for sender.count() < 3 && time.Now().Before(deadline) {
		time.Sleep(time.Millisecond)
	}
	if sender.count() != 3 {
		t.Fatalf("expected 3 frames dispatched, got %d (drops: %v)", sender.count(), dropEvents)
	}
}

func TestIngestRingBufferBypassSkipsRing(t *testing.T) {
	reg := registry.New()
	bypass := true
	reg.Update("s1", model.Settings{RingBufferBypass: &bypass})

	sched := scheduler.New(reg, codec.NewPool(1), nil)
	sender := &recordingSender{}
	sched.RegisterSenders("s1", scheduler.StreamSenders{Broadcast: sender})

	ring := framebuffer.NewRing("s1", nil)
	Ingest(context.Background(), reg, sched, &fakeRingManager{ring: ring}, model.Frame{
		FrameID:    1,
		StreamID:   "s1",
		ArrivalTS:  time.Now(),
		DeadlineTS: time.Now().Add(time.Second),
		Points:     model.Points{Positions: []model.Point3{{X: 1, Y: 2, Z: 3}}},
	})

	if sender.count() != 1 {
		t.Fatalf("expected the bypassed frame to reach the sender directly, got %d sends", sender.count())
	}
	if ring.Len() != 0 {
		t.Fatalf("expected the ring to stay empty under ring_buffer_bypass, got %d", ring.Len())
	}
}

func TestIngestWithoutBypassUsesRing(t *testing.T) {
	reg := registry.New()
	reg.Update("s1", model.Settings{})

	sched := scheduler.New(reg, codec.NewPool(1), nil)
	ring := framebuffer.NewRing("s1", nil)
	Ingest(context.Background(), reg, sched, &fakeRingManager{ring: ring}, model.Frame{
		FrameID:  1,
		StreamID: "s1",
	})

	if ring.Len() != 1 {
		t.Fatalf("expected the frame to be pushed onto the ring, got %d", ring.Len())
	}
}

type fakeRingManager struct {
	ring *framebuffer.Ring
}

func (f *fakeRingManager) GetOrCreate(streamID string) *framebuffer.Ring {
	return f.ring
}
