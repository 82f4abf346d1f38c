// Package telemetry implements the C8 Telemetry Publisher: a thin
// franz-go producer that reports the scheduler's terminal frame outcomes,
// grounded on the corpus's own KafkaProducer wrapper (pkg/kafka/producer.go).
package telemetry

import (
	"context"
	"encoding/json"
	"strconv"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/twmb/franz-go/pkg/kgo"

	"github.com/idlab-discover/Multi-path-XR/internal/scheduler"
)

// DefaultTopic is used when XRCORE_TELEMETRY_TOPIC is unset.
const DefaultTopic = "xrcore_frame_events"

// frameEvent is the JSON payload produced for each terminal frame outcome.
// It never carries frame bytes — only the outcome metadata named in
// spec.md §7 ("data-plane losses never propagate to the control plane").
type frameEvent struct {
	StreamID  string `json:"stream_id"`
	FrameID   uint64 `json:"frame_id"`
	State     string `json:"state"`
	Level     int    `json:"level"`
	Reason    string `json:"reason,omitempty"`
	Timestamp int64  `json:"timestamp_unix_ms"`
}

// Publisher produces frame outcome events to a Kafka topic.
type Publisher struct {
	client *kgo.Client
	topic  string
	logger *logrus.Logger
	nowFn  func() time.Time
}

// New dials brokers and returns a Publisher for topic.
func New(brokers []string, topic string, logger *logrus.Logger) (*Publisher, error) {
	if topic == "" {
		topic = DefaultTopic
	}
	client, err := kgo.NewClient(
		kgo.SeedBrokers(brokers...),
		kgo.ClientID("xrcore"),
		kgo.ProducerBatchCompression(kgo.SnappyCompression()),
		kgo.ProducerLinger(10*time.Millisecond),
	)
	if err != nil {
		return nil, err
	}
	return &Publisher{client: client, topic: topic, logger: logger, nowFn: time.Now}, nil
}

// Close releases the underlying Kafka client.
func (p *Publisher) Close() error {
	p.client.Close()
	return nil
}

// Client exposes the underlying franz-go client for health checks.
func (p *Publisher) Client() *kgo.Client {
	return p.client
}

// buildRecord renders outcome into the Kafka record Publish produces. Split
// out from Publish so the rendering logic is testable without a broker.
func buildRecord(topic string, outcome scheduler.FrameOutcome, now time.Time) (*kgo.Record, error) {
	event := frameEvent{
		StreamID:  outcome.StreamID,
		FrameID:   outcome.FrameID,
		State:     string(outcome.State),
		Level:     outcome.Level,
		Reason:    outcome.Reason,
		Timestamp: now.UnixMilli(),
	}
	value, err := json.Marshal(event)
	if err != nil {
		return nil, err
	}
	return &kgo.Record{
		Topic: topic,
		Key:   []byte(event.StreamID),
		Value: value,
		Headers: []kgo.RecordHeader{
			{Key: "stream_id", Value: []byte(event.StreamID)},
			{Key: "frame_id", Value: []byte(strconv.FormatUint(event.FrameID, 10))},
		},
	}, nil
}

// Publish produces outcome asynchronously; publish failures are logged, not
// returned, since telemetry is explicitly off the hot dispatch path.
func (p *Publisher) Publish(outcome scheduler.FrameOutcome) {
	record, err := buildRecord(p.topic, outcome, p.nowFn())
	if err != nil {
		p.logger.WithError(err).Error("marshal frame telemetry event")
		return
	}

	p.client.Produce(context.Background(), record, func(r *kgo.Record, err error) {
		if err != nil {
			p.logger.WithError(err).WithField("stream_id", outcome.StreamID).Warn("telemetry publish failed")
		}
	})
}
