package main

import (
	"context"
	"strconv"
	"strings"

	"github.com/idlab-discover/Multi-path-XR/internal/codec"
	"github.com/idlab-discover/Multi-path-XR/internal/controlplane"
	"github.com/idlab-discover/Multi-path-XR/internal/framebuffer"
	"github.com/idlab-discover/Multi-path-XR/internal/metrics"
	"github.com/idlab-discover/Multi-path-XR/internal/model"
	"github.com/idlab-discover/Multi-path-XR/internal/pipeline"
	"github.com/idlab-discover/Multi-path-XR/internal/registry"
	"github.com/idlab-discover/Multi-path-XR/internal/scheduler"
	"github.com/idlab-discover/Multi-path-XR/internal/supervisor"
	"github.com/idlab-discover/Multi-path-XR/internal/telemetry"
	"github.com/idlab-discover/Multi-path-XR/pkg/config"
	"github.com/idlab-discover/Multi-path-XR/pkg/logging"
	"github.com/idlab-discover/Multi-path-XR/pkg/monitoring"
	"github.com/idlab-discover/Multi-path-XR/pkg/server"
)

const (
	serviceVersion = "0.1.0"
	serviceCommit  = "dev"
)

func main() {
	logger := logging.NewLoggerWithComponent("xrcore")
	config.LoadEnv(logger)

	logger.Info("starting xrcore transport core")

	healthChecker := monitoring.NewHealthChecker("xrcore", serviceVersion)
	metricsCollector := monitoring.NewMetricsCollector("xrcore", serviceVersion, serviceCommit)
	domainMetrics := metrics.New(metricsCollector)

	datasetsRoot := config.GetEnv("XRCORE_DATASETS_ROOT", "./datasets")
	outputDir := config.GetEnv("XRCORE_OUTPUT_DIR", "./output")
	broadcastAddr := config.GetEnv("XRCORE_BROADCAST_ADDR", "")
	telemetryTopic := config.GetEnv("XRCORE_TELEMETRY_TOPIC", telemetry.DefaultTopic)
	codecWorkers := config.GetEnvInt("XRCORE_CODEC_WORKERS", 4)

	var publisher *telemetry.Publisher
	if brokersEnv := config.GetEnv("KAFKA_BROKERS", ""); brokersEnv != "" {
		brokers := strings.Split(brokersEnv, ",")
		p, err := telemetry.New(brokers, telemetryTopic, logger)
		if err != nil {
			logger.WithError(err).Warn("telemetry publisher disabled: failed to dial Kafka brokers")
		} else {
			publisher = p
			defer publisher.Close()
			healthChecker.AddCheck("kafka", monitoring.KafkaHealthCheck(publisher.Client()))
		}
	} else {
		logger.Warn("KAFKA_BROKERS not set; frame outcome telemetry disabled")
	}

	healthChecker.AddCheck("config", monitoring.ConfigurationHealthCheck(map[string]string{
		"XRCORE_DATASETS_ROOT": datasetsRoot,
	}))

	reg := registry.New()
	pool := codec.NewPool(codecWorkers)

	onOutcome := func(outcome scheduler.FrameOutcome) {
		layer := outcomeLayerLabel(outcome.Level)
		switch outcome.State {
		case scheduler.StateDelivered:
			domainMetrics.FramesAdmitted.WithLabelValues(outcome.StreamID, layer).Inc()
		case scheduler.StatePartial:
			domainMetrics.FramesAdmitted.WithLabelValues(outcome.StreamID, layer).Inc()
			domainMetrics.FramesShed.WithLabelValues(outcome.StreamID, layer).Inc()
		case scheduler.StateDropped:
			domainMetrics.FramesDropped.WithLabelValues(outcome.StreamID, outcome.Reason).Inc()
		}
		if publisher != nil {
			publisher.Publish(outcome)
			domainMetrics.KafkaPublished.WithLabelValues(string(outcome.State)).Inc()
		}
	}
	sched := scheduler.New(reg, pool, onOutcome)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	rings := controlplane.NewRingManager(func(e framebuffer.DropEvent) {
		domainMetrics.FramesDropped.WithLabelValues(e.StreamID, string(e.Reason)).Inc()
		logger.WithFields(logging.Fields{"stream_id": e.StreamID, "frame_id": e.FrameID}).Warn("frame dropped from ring: overflow")
	})
	rings.OnCreate(func(streamID string, r *framebuffer.Ring) {
		pipeline.Consume(ctx, r, sched)
	})

	sup := supervisor.New(reg, func(f model.Frame) {
		pipeline.Ingest(ctx, reg, sched, rings, f)
	})

	sockets := controlplane.NewSocketRegistry()
	handlers := controlplane.New(reg, sup, sched, rings, sockets, datasetsRoot, outputDir, broadcastAddr, logger)

	router := server.SetupServiceRouter(logger, "xrcore", healthChecker, metricsCollector)
	handlers.RegisterRoutes(router)

	serverConfig := server.DefaultConfig("xrcore", "8080")
	if err := server.Start(serverConfig, router, logger); err != nil {
		logger.WithError(err).Fatal("server exited with error")
	}

	if err := sup.StopAllJobs(); err != nil {
		logger.WithError(err).Warn("error stopping jobs during shutdown")
	}
}

// outcomeLayerLabel renders a FrameOutcome's highest-delivered layer as a
// Prometheus label value.
func outcomeLayerLabel(level int) string {
	if level < 0 {
		return "none"
	}
	return strconv.Itoa(level)
}
