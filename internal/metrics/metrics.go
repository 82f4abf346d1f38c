// Package metrics holds the domain-specific Prometheus instrumentation for
// the core, mirroring api_realtime/internal/metrics's struct-of-vectors
// shape but registered through pkg/monitoring.MetricsCollector.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"

	"github.com/idlab-discover/Multi-path-XR/pkg/monitoring"
)

// Metrics holds every counter/gauge the scheduler, egress fabric and
// telemetry publisher report into.
type Metrics struct {
	FramesAdmitted  *prometheus.CounterVec
	FramesShed      *prometheus.CounterVec
	FramesDropped   *prometheus.CounterVec
	FECRecoveries   *prometheus.CounterVec
	GoodputBps      *prometheus.GaugeVec
	Backpressure    *prometheus.CounterVec
	KafkaPublished  *prometheus.CounterVec
}

// New registers every domain metric under mc's service namespace.
func New(mc *monitoring.MetricsCollector) *Metrics {
	return &Metrics{
		FramesAdmitted: mc.NewCounter("frames_admitted_total",
			"Layers admitted by the scheduler", []string{"stream_id", "layer"}),
		FramesShed: mc.NewCounter("frames_shed_total",
			"Enhancement layers shed by the admission step", []string{"stream_id", "layer"}),
		FramesDropped: mc.NewCounter("frames_dropped_total",
			"Frames dropped before or during dispatch", []string{"stream_id", "reason"}),
		FECRecoveries: mc.NewCounter("fec_recoveries_total",
			"FEC blocks successfully reconstructed from partial symbols", []string{"stream_id"}),
		GoodputBps: mc.NewGauge("goodput_estimate_bps",
			"Current EWMA goodput estimate per channel", []string{"stream_id", "layer"}),
		Backpressure: mc.NewCounter("egress_backpressure_total",
			"Times a sender reported backpressure at admission", []string{"stream_id", "protocol"}),
		KafkaPublished: mc.NewCounter("telemetry_events_published_total",
			"Frame outcome events produced to Kafka", []string{"state"}),
	}
}
