package observability_test

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"

	"github.com/reqflow/reqflow/pkg/reqflow/observability"
)

func TestLogHelpers_NilLoggerSafe(t *testing.T) {
	// Every helper must be a no-op on a nil logger, not a panic.
	assert.Nil(t, observability.EnrichLogger(nil, "f", "i"))
	observability.LogSynthesisStart(nil, "i", "append")
	observability.LogSynthesisComplete(nil, "i", 1, 10)
	observability.LogSynthesisError(nil, "i", errors.New("x"), 10)
	observability.LogGenerationStart(nil, "f", 3)
	observability.LogGenerationComplete(nil, "f", 3, 2, 0, 10)
	observability.LogGenerationError(nil, "f", errors.New("x"), 10)
	observability.LogShapeRejection(nil, "op", "raw", errors.New("x"))
	observability.LogPositionFlush(nil, "n", 1, 2)
}

func TestLogHelpers_EmitStructuredFields(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewJSONHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug}))

	observability.LogSynthesisComplete(logger, "in-1", 2, 12.5)
	out := buf.String()
	assert.Contains(t, out, `"input_id":"in-1"`)
	assert.Contains(t, out, `"requirements_created":2`)

	buf.Reset()
	observability.LogShapeRejection(logger, "synthesize", `{"bad": true}`, errors.New("expected a JSON array"))
	out = buf.String()
	assert.Contains(t, out, "expected a JSON array")
	// The offending raw output is carried for diagnosis.
	assert.Contains(t, out, "bad")

	buf.Reset()
	observability.LogPositionFlush(logger, "n1", 10, 20)
	assert.Contains(t, buf.String(), `"node_id":"n1"`)
}

func TestEnrichLogger(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewJSONHandler(&buf, nil))

	enriched := observability.EnrichLogger(logger, "flow-1", "in-1")
	require.NotNil(t, enriched)
	enriched.Info("hello")

	out := buf.String()
	assert.Contains(t, out, `"flow_id":"flow-1"`)
	assert.Contains(t, out, `"input_id":"in-1"`)
}

func TestNoopImplementations(t *testing.T) {
	ctx := context.Background()

	var m observability.MetricsRecorder = observability.NoopMetrics{}
	m.RecordSynthesis(ctx, true, 1, time.Second)
	m.RecordGeneration(ctx, false, 0, 0, time.Second)
	m.RecordPositionFlush(ctx, "n1")

	var sm observability.SpanManager = observability.NoopSpanManager{}
	spanCtx, span := sm.StartSynthesisSpan(ctx, "i", "append")
	assert.Equal(t, ctx, spanCtx)
	sm.EndSpanWithError(span, errors.New("x"))
	sm.AddSpanEvent(ctx, "event")
}

func TestMetricsRecorder_RecordsInstruments(t *testing.T) {
	reader := sdkmetric.NewManualReader()
	provider := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))
	otel.SetMeterProvider(provider)
	t.Cleanup(func() { _ = provider.Shutdown(context.Background()) })

	rec := observability.NewMetricsRecorder()
	ctx := context.Background()
	rec.RecordSynthesis(ctx, true, 3, 100*time.Millisecond)
	rec.RecordGeneration(ctx, true, 5, 1, 200*time.Millisecond)
	rec.RecordPositionFlush(ctx, "n1")

	var rm metricdata.ResourceMetrics
	require.NoError(t, reader.Collect(ctx, &rm))

	names := map[string]bool{}
	for _, scope := range rm.ScopeMetrics {
		for _, m := range scope.Metrics {
			names[m.Name] = true
		}
	}
	assert.True(t, names["reqflow.synthesis.runs"])
	assert.True(t, names["reqflow.synthesis.latency_ms"])
	assert.True(t, names["reqflow.synthesis.requirements"])
	assert.True(t, names["reqflow.generation.runs"])
	assert.True(t, names["reqflow.generation.nodes"])
	assert.True(t, names["reqflow.generation.edges_dropped"])
	assert.True(t, names["reqflow.session.position_flushes"])
}

func TestSpanManager_RecordsSpans(t *testing.T) {
	recorder := tracetest.NewSpanRecorder()
	provider := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(recorder))
	otel.SetTracerProvider(provider)
	t.Cleanup(func() { _ = provider.Shutdown(context.Background()) })

	sm := observability.NewSpanManager()
	ctx := context.Background()

	synthCtx, synthSpan := sm.StartSynthesisSpan(ctx, "in-1", "append")
	sm.AddSpanEvent(synthCtx, "parsed", attribute.Int("count", 2))
	sm.EndSpanWithError(synthSpan, nil)

	_, genSpan := sm.StartGenerationSpan(ctx, "flow-1")
	sm.EndSpanWithError(genSpan, errors.New("upstream down"))

	_, layoutSpan := sm.StartLayoutSpan(ctx, 7)
	sm.EndSpanWithError(layoutSpan, nil)

	ended := recorder.Ended()
	require.Len(t, ended, 3)

	byName := map[string]sdktrace.ReadOnlySpan{}
	for _, s := range ended {
		byName[s.Name()] = s
	}
	require.Contains(t, byName, "reqflow.synthesize")
	require.Contains(t, byName, "reqflow.generate")
	require.Contains(t, byName, "reqflow.layout")

	events := byName["reqflow.synthesize"].Events()
	require.Len(t, events, 1)
	assert.Equal(t, "parsed", events[0].Name)

	assert.Len(t, byName["reqflow.generate"].Events(), 1) // the recorded error
}
