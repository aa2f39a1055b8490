package observability

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// MetricsRecorder records pipeline metrics.
// Use NewMetricsRecorder() for OTel metrics or NoopMetrics{} when disabled.
type MetricsRecorder interface {
	// RecordSynthesis records a synthesis run with its outcome and the
	// number of requirements created.
	RecordSynthesis(ctx context.Context, success bool, created int, duration time.Duration)

	// RecordGeneration records a flow generation run, including how many
	// nodes were placed and how many edges had to be dropped.
	RecordGeneration(ctx context.Context, success bool, nodes, droppedEdges int, duration time.Duration)

	// RecordPositionFlush records one debounced position write.
	RecordPositionFlush(ctx context.Context, nodeID string)
}

// otelMetrics implements MetricsRecorder using OpenTelemetry.
type otelMetrics struct {
	synthesisRuns     metric.Int64Counter
	synthesisLatency  metric.Float64Histogram
	requirementsMade  metric.Int64Counter
	generationRuns    metric.Int64Counter
	generationLatency metric.Float64Histogram
	nodesPlaced       metric.Int64Counter
	edgesDropped      metric.Int64Counter
	positionFlushes   metric.Int64Counter
}

var (
	defaultMetrics     *otelMetrics
	defaultMetricsOnce sync.Once
	defaultMetricsErr  error
)

// getDefaultMetrics returns the default OTel metrics instance.
// Lazily initializes the metrics on first call.
func getDefaultMetrics() (*otelMetrics, error) {
	defaultMetricsOnce.Do(func() {
		defaultMetrics, defaultMetricsErr = newOtelMetrics()
	})
	return defaultMetrics, defaultMetricsErr
}

// newOtelMetrics creates a new OTel metrics instance.
func newOtelMetrics() (*otelMetrics, error) {
	meter := otel.Meter("reqflow")

	synthesisRuns, err := meter.Int64Counter("reqflow.synthesis.runs",
		metric.WithDescription("Number of synthesis runs"),
	)
	if err != nil {
		return nil, err
	}

	synthesisLatency, err := meter.Float64Histogram("reqflow.synthesis.latency_ms",
		metric.WithDescription("Synthesis run latency in milliseconds"),
		metric.WithUnit("ms"),
	)
	if err != nil {
		return nil, err
	}

	requirementsMade, err := meter.Int64Counter("reqflow.synthesis.requirements",
		metric.WithDescription("Number of requirements created by synthesis"),
	)
	if err != nil {
		return nil, err
	}

	generationRuns, err := meter.Int64Counter("reqflow.generation.runs",
		metric.WithDescription("Number of flow generation runs"),
	)
	if err != nil {
		return nil, err
	}

	generationLatency, err := meter.Float64Histogram("reqflow.generation.latency_ms",
		metric.WithDescription("Flow generation latency in milliseconds"),
		metric.WithUnit("ms"),
	)
	if err != nil {
		return nil, err
	}

	nodesPlaced, err := meter.Int64Counter("reqflow.generation.nodes",
		metric.WithDescription("Number of flow nodes inserted by generation"),
	)
	if err != nil {
		return nil, err
	}

	edgesDropped, err := meter.Int64Counter("reqflow.generation.edges_dropped",
		metric.WithDescription("Number of edges dropped for unresolvable node references"),
	)
	if err != nil {
		return nil, err
	}

	positionFlushes, err := meter.Int64Counter("reqflow.session.position_flushes",
		metric.WithDescription("Number of debounced node position writes"),
	)
	if err != nil {
		return nil, err
	}

	return &otelMetrics{
		synthesisRuns:     synthesisRuns,
		synthesisLatency:  synthesisLatency,
		requirementsMade:  requirementsMade,
		generationRuns:    generationRuns,
		generationLatency: generationLatency,
		nodesPlaced:       nodesPlaced,
		edgesDropped:      edgesDropped,
		positionFlushes:   positionFlushes,
	}, nil
}

// NewMetricsRecorder returns a MetricsRecorder that uses OpenTelemetry.
// If metrics initialization fails, returns a no-op recorder.
//
// The recorder uses the global OTel meter provider. Configure the provider
// before calling this function:
//
//	import "go.opentelemetry.io/otel"
//	otel.SetMeterProvider(yourProvider)
func NewMetricsRecorder() MetricsRecorder {
	m, err := getDefaultMetrics()
	if err != nil {
		slog.Warn("metrics initialization failed, using no-op recorder",
			slog.String("error", err.Error()))
		return NoopMetrics{}
	}
	return m
}

// RecordSynthesis records a synthesis run.
func (m *otelMetrics) RecordSynthesis(ctx context.Context, success bool, created int, duration time.Duration) {
	attrs := []attribute.KeyValue{
		attribute.Bool("success", success),
	}
	m.synthesisRuns.Add(ctx, 1, metric.WithAttributes(attrs...))
	m.synthesisLatency.Record(ctx, float64(duration.Milliseconds()), metric.WithAttributes(attrs...))
	if created > 0 {
		m.requirementsMade.Add(ctx, int64(created))
	}
}

// RecordGeneration records a flow generation run.
func (m *otelMetrics) RecordGeneration(ctx context.Context, success bool, nodes, droppedEdges int, duration time.Duration) {
	attrs := []attribute.KeyValue{
		attribute.Bool("success", success),
	}
	m.generationRuns.Add(ctx, 1, metric.WithAttributes(attrs...))
	m.generationLatency.Record(ctx, float64(duration.Milliseconds()), metric.WithAttributes(attrs...))
	if nodes > 0 {
		m.nodesPlaced.Add(ctx, int64(nodes))
	}
	if droppedEdges > 0 {
		m.edgesDropped.Add(ctx, int64(droppedEdges))
	}
}

// RecordPositionFlush records one debounced position write.
func (m *otelMetrics) RecordPositionFlush(ctx context.Context, nodeID string) {
	m.positionFlushes.Add(ctx, 1, metric.WithAttributes(
		attribute.String("node_id", nodeID),
	))
}
