package scheduler

import (
	"context"
	"testing"
	"time"

	"github.com/idlab-discover/Multi-path-XR/internal/codec"
	"github.com/idlab-discover/Multi-path-XR/internal/egress"
	"github.com/idlab-discover/Multi-path-XR/internal/model"
	"github.com/idlab-discover/Multi-path-XR/internal/registry"
)

type fakeSender struct {
	protocol     model.EgressProtocol
	fail         bool
	backpressure bool
	sent         [][]byte
}

func (f *fakeSender) Protocol() model.EgressProtocol { return f.protocol }
func (f *fakeSender) Backpressure() bool             { return f.backpressure }
func (f *fakeSender) Close() error                   { return nil }
func (f *fakeSender) Send(ctx context.Context, frameID uint64, layer int, payload []byte) error {
	if f.fail {
		return model.NewError(model.ErrIO, "simulated send failure")
	}
	f.sent = append(f.sent, payload)
	return nil
}

func samplePoints(n int) model.Points {
	pts := model.Points{Positions: make([]model.Point3, n)}
	for i := range pts.Positions {
		pts.Positions[i] = model.Point3{X: float32(i), Y: float32(i), Z: float32(i)}
	}
	return pts
}

func TestProcessFrameBaseOnlyDelivered(t *testing.T) {
	reg := registry.New()
	reg.Update("s1", model.Settings{})
	pool := codec.NewPool(1)
	defer pool.Close()

	sched := New(reg, pool, nil)
	base := &fakeSender{protocol: model.ProtocolFlute}
	sched.RegisterSenders("s1", StreamSenders{Broadcast: base})

	frame := model.Frame{
		FrameID:    1,
		StreamID:   "s1",
		ArrivalTS:  time.Now(),
		DeadlineTS: time.Now().Add(time.Second),
		Points:     samplePoints(10),
	}

	outcome := sched.ProcessFrame(context.Background(), frame)
	if outcome.State != StateDelivered {
		t.Fatalf("expected Delivered, got %+v", outcome)
	}
	if len(base.sent) != 1 {
		t.Fatalf("expected 1 base send, got %d", len(base.sent))
	}
}

func TestProcessFrameDeadlineExpiredPreSchedule(t *testing.T) {
	reg := registry.New()
	reg.Update("s1", model.Settings{})
	pool := codec.NewPool(1)
	defer pool.Close()

	sched := New(reg, pool, nil)
	sched.RegisterSenders("s1", StreamSenders{Broadcast: &fakeSender{protocol: model.ProtocolFlute}})

	frame := model.Frame{
		FrameID:    1,
		StreamID:   "s1",
		ArrivalTS:  time.Now().Add(-time.Second),
		DeadlineTS: time.Now().Add(-time.Millisecond),
		Points:     samplePoints(5),
	}

	outcome := sched.ProcessFrame(context.Background(), frame)
	if outcome.State != StateDropped || outcome.Reason != "DeadlineExpiredPreSchedule" {
		t.Fatalf("expected pre-schedule drop, got %+v", outcome)
	}
}

func TestProcessFrameBaseSendFailureDrops(t *testing.T) {
	reg := registry.New()
	reg.Update("s1", model.Settings{})
	pool := codec.NewPool(1)
	defer pool.Close()

	sched := New(reg, pool, nil)
	sched.RegisterSenders("s1", StreamSenders{Broadcast: &fakeSender{protocol: model.ProtocolFlute, fail: true}})

	frame := model.Frame{
		FrameID:    1,
		StreamID:   "s1",
		ArrivalTS:  time.Now(),
		DeadlineTS: time.Now().Add(time.Second),
		Points:     samplePoints(5),
	}

	outcome := sched.ProcessFrame(context.Background(), frame)
	if outcome.State != StateDropped {
		t.Fatalf("expected Dropped on base send failure, got %+v", outcome)
	}
}

func TestProcessFrameEnhancementShedUnderBackpressure(t *testing.T) {
	reg := registry.New()
	maxPct := []uint8{70, 30}
	reg.Update("s1", model.Settings{MaxPointPercentages: maxPct})
	pool := codec.NewPool(1)
	defer pool.Close()

	sched := New(reg, pool, nil)
	base := &fakeSender{protocol: model.ProtocolFlute}
	enh := &fakeSender{protocol: model.ProtocolWebSocket, backpressure: true}
	sched.RegisterSenders("s1", StreamSenders{Broadcast: base, Enhancements: []egress.Sender{enh}})

	frame := model.Frame{
		FrameID:    1,
		StreamID:   "s1",
		ArrivalTS:  time.Now(),
		DeadlineTS: time.Now().Add(time.Second),
		Points:     samplePoints(10),
	}

	outcome := sched.ProcessFrame(context.Background(), frame)
	if outcome.State != StateDelivered {
		t.Fatalf("expected Delivered with base only (enhancement shed), got %+v", outcome)
	}
	if len(base.sent) != 1 {
		t.Fatalf("expected only base layer sent, got %d sends", len(base.sent))
	}
}

func TestProcessFrameAggregatorBypassSkipsLayerBatching(t *testing.T) {
	reg := registry.New()
	bypass := true
	reg.Update("s1", model.Settings{MaxPointPercentages: []uint8{70, 30}, AggregatorBypass: &bypass})
	pool := codec.NewPool(1)
	defer pool.Close()

	sched := New(reg, pool, nil)
	base := &fakeSender{protocol: model.ProtocolFlute}
	enh := &fakeSender{protocol: model.ProtocolWebSocket}
	sched.RegisterSenders("s1", StreamSenders{Broadcast: base, Enhancements: []egress.Sender{enh}})

	frame := model.Frame{
		FrameID:    1,
		StreamID:   "s1",
		ArrivalTS:  time.Now(),
		DeadlineTS: time.Now().Add(time.Second),
		Points:     samplePoints(10),
	}

	outcome := sched.ProcessFrame(context.Background(), frame)
	if outcome.State != StateDelivered {
		t.Fatalf("expected Delivered, got %+v", outcome)
	}
	if len(base.sent) != 1 || len(enh.sent) != 0 {
		t.Fatalf("expected the whole frame on the base layer only (aggregator bypassed), got base=%d enh=%d", len(base.sent), len(enh.sent))
	}
}

func TestPartitionCoversAllPoints(t *testing.T) {
	pts := samplePoints(100)
	p := partition(pts, []uint8{50, 30, 20})
	if len(p) != 3 {
		t.Fatalf("expected 3 layers, got %d", len(p))
	}
	if p[0].Lo != 0 || p[len(p)-1].Hi != 100 {
		t.Fatalf("partition does not cover full range: %+v", p)
	}
	for i := 1; i < len(p); i++ {
		if p[i].Lo != p[i-1].Hi {
			t.Fatalf("partition has a gap/overlap: %+v", p)
		}
	}
}
