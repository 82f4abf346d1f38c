// Package scheduler implements the C5 Deadline Scheduler: the per-frame
// Snapshot/Budget/Partition/Admit/Commission/Dispatch/Completion pipeline
// of spec.md §4.5.
package scheduler

import (
	"context"
	"strconv"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/idlab-discover/Multi-path-XR/internal/codec"
	"github.com/idlab-discover/Multi-path-XR/internal/egress"
	"github.com/idlab-discover/Multi-path-XR/internal/model"
	"github.com/idlab-discover/Multi-path-XR/internal/registry"
)

// bytesPerPointEstimate is a conservative estimate of encoded size used by
// the Admit step, matching internal/codec's raw wire point encoding
// (12 bytes position + 3 bytes color + slack).
const bytesPerPointEstimate = 16

// encodeLatencyEstimate is a fixed per-layer encode latency budget used by
// the Admit inequality of spec.md §4.5 step 4.
const encodeLatencyEstimate = 2 * time.Millisecond

// FrameState names a point in the per-frame state machine of spec.md §4.5.
type FrameState string

const (
	StatePlanned     FrameState = "Planned"
	StateEncoding    FrameState = "Encoding"
	StateDispatching FrameState = "Dispatching"
	StateDelivered   FrameState = "Delivered"
	StatePartial     FrameState = "PartiallyDelivered"
	StateDropped     FrameState = "Dropped"
)

// FrameOutcome is the scheduler's terminal report for one frame.
type FrameOutcome struct {
	StreamID string
	FrameID  uint64
	State    FrameState
	Level    int // highest layer index delivered
	Reason   string
}

// StreamSenders binds the egress channels configured for one stream: the
// single broadcast (layer 0) sender and zero or more unicast enhancement
// senders in decreasing utility order (enhancement index i -> layer i+1).
type StreamSenders struct {
	Broadcast    egress.Sender
	Enhancements []egress.Sender
}

// Scheduler runs the per-frame admission/dispatch pipeline for every
// registered stream.
type Scheduler struct {
	reg  *registry.Registry
	pool *codec.Pool

	mu       sync.Mutex
	senders  map[string]StreamSenders
	goodput  map[string]*GoodputEstimator // keyed by streamID|layer
	onOutcome func(FrameOutcome)
}

// New constructs a Scheduler. onOutcome, if non-nil, is invoked once per
// frame with its terminal outcome (wired to C8 Telemetry off the hot path).
func New(reg *registry.Registry, pool *codec.Pool, onOutcome func(FrameOutcome)) *Scheduler {
	return &Scheduler{
		reg:       reg,
		pool:      pool,
		senders:   make(map[string]StreamSenders),
		goodput:   make(map[string]*GoodputEstimator),
		onOutcome: onOutcome,
	}
}

// RegisterSenders binds the egress fabric for streamID. Replaces any prior
// binding for that stream.
func (s *Scheduler) RegisterSenders(streamID string, senders StreamSenders) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.senders[streamID] = senders
}

// AddEnhancementSender appends one unicast sender to streamID's enhancement
// chain, used when a WebSocket/WebRTC peer connects after the stream's
// broadcast sender is already registered.
func (s *Scheduler) AddEnhancementSender(streamID string, sender egress.Sender) {
	s.mu.Lock()
	defer s.mu.Unlock()
	sd := s.senders[streamID]
	sd.Enhancements = append(sd.Enhancements, sender)
	s.senders[streamID] = sd
}

func (s *Scheduler) goodputFor(streamID string, layer int) *GoodputEstimator {
	key := streamID + "|" + strconv.Itoa(layer)
	s.mu.Lock()
	defer s.mu.Unlock()
	g, ok := s.goodput[key]
	if !ok {
		g = NewGoodputEstimator()
		s.goodput[key] = g
	}
	return g
}

// ProcessFrame runs the full 7-step pipeline for one ingested frame and
// returns its terminal outcome. ctx carries job-stop cancellation.
func (s *Scheduler) ProcessFrame(ctx context.Context, frame model.Frame) FrameOutcome {
	settings, err := s.snapshot(frame.StreamID)
	if err != nil {
		return s.report(FrameOutcome{StreamID: frame.StreamID, FrameID: frame.FrameID, State: StateDropped, Reason: err.Error()})
	}

	now := time.Now()
	delta := frame.Deadline(now)
	if delta <= 0 {
		return s.report(FrameOutcome{StreamID: frame.StreamID, FrameID: frame.FrameID, State: StateDropped, Reason: "DeadlineExpiredPreSchedule"})
	}

	frame.Partition = s.partitionFrame(frame, settings)

	s.mu.Lock()
	sd, ok := s.senders[frame.StreamID]
	s.mu.Unlock()
	if !ok {
		return s.report(FrameOutcome{StreamID: frame.StreamID, FrameID: frame.FrameID, State: StateDropped, Reason: "no egress senders registered"})
	}

	admitted := s.admit(frame, settings, sd, delta)
	encoded, err := s.commission(ctx, frame, settings, admitted)
	if err != nil {
		return s.report(FrameOutcome{StreamID: frame.StreamID, FrameID: frame.FrameID, State: StateDropped, Reason: err.Error()})
	}

	level, reason := s.dispatch(ctx, frame, sd, encoded, frame.DeadlineTS)

	state := StateDelivered
	switch {
	case level < 0:
		state = StateDropped
	case level < len(frame.Partition)-1:
		state = StatePartial
	}
	if level < 0 {
		level = 0
	}
	return s.report(FrameOutcome{StreamID: frame.StreamID, FrameID: frame.FrameID, State: state, Level: level, Reason: reason})
}

// snapshot is step 1: resolve the stream's effective (merged) settings.
func (s *Scheduler) snapshot(streamID string) (model.Settings, error) {
	return s.reg.ResolvedSettings(streamID)
}

// partitionFrame is step 3: slice points into layers per max_point_percentages.
// aggregator_bypass (spec.md §9 open question) skips that per-layer batching
// entirely: the whole frame passes through as a single un-batched layer 0.
func (s *Scheduler) partitionFrame(frame model.Frame, settings model.Settings) model.Partitioning {
	if settings.AggregatorBypass != nil && *settings.AggregatorBypass {
		return model.Partitioning{{Layer: 0, Lo: 0, Hi: frame.Points.Len()}}
	}
	return partition(frame.Points, settings.MaxPointPercentages)
}

// admittedLayer describes one layer cleared by the Admit step.
type admittedLayer struct {
	layer  model.LayerRange
	sender egress.Sender
}

// admit is step 4: the base layer (layer 0) is never shed; each enhancement
// layer is admitted only if the inequality of spec.md §4.5 step 4 holds.
func (s *Scheduler) admit(frame model.Frame, settings model.Settings, sd StreamSenders, delta time.Duration) []admittedLayer {
	out := make([]admittedLayer, 0, len(frame.Partition))
	for _, lr := range frame.Partition {
		if lr.Layer == 0 {
			out = append(out, admittedLayer{layer: lr, sender: sd.Broadcast})
			continue
		}

		idx := lr.Layer - 1
		if idx < 0 || idx >= len(sd.Enhancements) {
			continue // shed: no channel configured for this enhancement layer
		}
		sender := sd.Enhancements[idx]
		if sender.Backpressure() {
			continue // shed: channel already saturated
		}

		npoints := lr.Hi - lr.Lo
		estSize := float64(npoints * bytesPerPointEstimate)
		goodput := s.goodputFor(frame.StreamID, lr.Layer).Estimate()
		estTime := time.Duration(estSize/goodput*float64(time.Second)) + encodeLatencyEstimate
		if estTime < delta {
			out = append(out, admittedLayer{layer: lr, sender: sender})
		}
		// else: shed, enhancement layer is never retried this frame.
	}
	return out
}

type encodedLayer struct {
	layer  model.LayerRange
	sender egress.Sender
	bytes  []byte
}

// commission is step 5: encode every admitted layer in parallel.
func (s *Scheduler) commission(ctx context.Context, frame model.Frame, settings model.Settings, admitted []admittedLayer) ([]encodedLayer, error) {
	format := model.FormatPly
	if settings.EncodingFormat != nil {
		format = *settings.EncodingFormat
	}
	c, err := codec.ForFormat(format)
	if err != nil {
		return nil, err
	}

	maxPoints := 0
	if settings.MaxNumberOfPoints != nil {
		maxPoints = int(*settings.MaxNumberOfPoints)
	}

	results := make([]encodedLayer, len(admitted))
	g, _ := errgroup.WithContext(ctx)
	for i, a := range admitted {
		i, a := i, a
		g.Go(func() error {
			pts := frame.Points.Slice(a.layer.Lo, a.layer.Hi)
			encoded, err := s.pool.Encode(c, pts, codec.Options{Format: format, MaxPoints: maxPoints})
			if err != nil {
				return err
			}
			encoded, err = applyWireFormat(encoded, settings)
			if err != nil {
				return err
			}
			results[i] = encodedLayer{layer: a.layer, sender: a.sender, bytes: encoded}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return results, nil
}

// dispatch is step 6: base layer through the broadcast sender, enhancement
// layers through their unicast senders, each bound by the frame's deadline.
// Returns the highest layer index successfully dispatched, or -1 if even
// the base layer failed.
func (s *Scheduler) dispatch(ctx context.Context, frame model.Frame, sd StreamSenders, encoded []encodedLayer, deadline time.Time) (int, string) {
	dctx, cancel := context.WithDeadline(ctx, deadline)
	defer cancel()

	highest := -1
	var lastReason string
	for _, e := range encoded {
		start := time.Now()
		err := e.sender.Send(dctx, frame.FrameID, e.layer.Layer, e.bytes)
		if err != nil {
			lastReason = err.Error()
			if e.layer.Layer == 0 {
				return -1, lastReason
			}
			// enhancement layer lost: not retried (spec.md §4.5), continue
			// attempting any remaining (already-encoded) enhancement layers
			// whose deadlines may still hold.
			continue
		}
		s.goodputFor(frame.StreamID, e.layer.Layer).Observe(len(e.bytes), time.Since(start).Seconds())
		if e.layer.Layer > highest {
			highest = e.layer.Layer
		}
	}
	return highest, lastReason
}

func (s *Scheduler) report(outcome FrameOutcome) FrameOutcome {
	if s.onOutcome != nil {
		s.onOutcome(outcome)
	}
	return outcome
}
