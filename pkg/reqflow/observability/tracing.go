package observability

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// Tracer is the reqflow tracer instance.
// Uses the global OTel tracer provider.
var tracer = otel.Tracer("reqflow")

// SpanManager handles trace span lifecycle.
// Use NewSpanManager() for OTel tracing or NoopSpanManager{} when disabled.
type SpanManager interface {
	// StartSynthesisSpan starts a span for one synthesis run.
	StartSynthesisSpan(ctx context.Context, inputID, mode string) (context.Context, trace.Span)

	// StartGenerationSpan starts a span for one flow generation run.
	StartGenerationSpan(ctx context.Context, flowID string) (context.Context, trace.Span)

	// StartLayoutSpan starts a span for a layout pass.
	// The layout span should be a child of the generation span.
	StartLayoutSpan(ctx context.Context, nodeCount int) (context.Context, trace.Span)

	// EndSpanWithError completes a span, optionally recording an error.
	EndSpanWithError(span trace.Span, err error)

	// AddSpanEvent adds an event to the current span in context.
	AddSpanEvent(ctx context.Context, name string, attrs ...attribute.KeyValue)
}

// otelSpanManager implements SpanManager using OpenTelemetry.
type otelSpanManager struct{}

// NewSpanManager returns a SpanManager that uses OpenTelemetry.
//
// The span manager uses the global OTel tracer provider. Configure the
// provider before calling this function:
//
//	import "go.opentelemetry.io/otel"
//	otel.SetTracerProvider(yourProvider)
func NewSpanManager() SpanManager {
	return &otelSpanManager{}
}

// StartSynthesisSpan starts a span for one synthesis run.
func (m *otelSpanManager) StartSynthesisSpan(ctx context.Context, inputID, mode string) (context.Context, trace.Span) {
	return tracer.Start(ctx, "reqflow.synthesize",
		trace.WithAttributes(
			attribute.String("input.id", inputID),
			attribute.String("merge.mode", mode),
		),
		trace.WithSpanKind(trace.SpanKindInternal),
	)
}

// StartGenerationSpan starts a span for one flow generation run.
func (m *otelSpanManager) StartGenerationSpan(ctx context.Context, flowID string) (context.Context, trace.Span) {
	return tracer.Start(ctx, "reqflow.generate",
		trace.WithAttributes(
			attribute.String("flow.id", flowID),
		),
		trace.WithSpanKind(trace.SpanKindInternal),
	)
}

// StartLayoutSpan starts a span for a layout pass.
func (m *otelSpanManager) StartLayoutSpan(ctx context.Context, nodeCount int) (context.Context, trace.Span) {
	return tracer.Start(ctx, "reqflow.layout",
		trace.WithAttributes(
			attribute.Int("node.count", nodeCount),
		),
		trace.WithSpanKind(trace.SpanKindInternal),
	)
}

// EndSpanWithError completes a span, optionally recording an error.
func (m *otelSpanManager) EndSpanWithError(span trace.Span, err error) {
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	} else {
		span.SetStatus(codes.Ok, "")
	}
	span.End()
}

// AddSpanEvent adds an event to the current span in context.
func (m *otelSpanManager) AddSpanEvent(ctx context.Context, name string, attrs ...attribute.KeyValue) {
	span := trace.SpanFromContext(ctx)
	span.AddEvent(name, trace.WithAttributes(attrs...))
}
