// Package observability provides production-grade observability for the
// synthesis and generation pipelines: structured logging, metrics, and
// distributed tracing.
//
// Features:
//   - Structured logging via slog (Go stdlib)
//   - Metrics via OpenTelemetry
//   - Tracing via OpenTelemetry
//
// All features are opt-in and have no-op implementations when disabled.
package observability

import "log/slog"

// EnrichLogger adds pipeline context to a logger.
// Returns a new logger with flow_id and input_id fields.
func EnrichLogger(logger *slog.Logger, flowID, inputID string) *slog.Logger {
	if logger == nil {
		return nil
	}
	return logger.With(
		slog.String("flow_id", flowID),
		slog.String("input_id", inputID),
	)
}

// LogSynthesisStart logs the start of a synthesis run.
func LogSynthesisStart(logger *slog.Logger, inputID, mode string) {
	if logger == nil {
		return
	}
	logger.Info("synthesis starting",
		slog.String("input_id", inputID),
		slog.String("mode", mode),
	)
}

// LogSynthesisComplete logs successful synthesis completion.
func LogSynthesisComplete(logger *slog.Logger, inputID string, created int, durationMs float64) {
	if logger == nil {
		return
	}
	logger.Info("synthesis completed",
		slog.String("input_id", inputID),
		slog.Int("requirements_created", created),
		slog.Float64("duration_ms", durationMs),
	)
}

// LogSynthesisError logs synthesis failure.
func LogSynthesisError(logger *slog.Logger, inputID string, err error, durationMs float64) {
	if logger == nil {
		return
	}
	logger.Error("synthesis failed",
		slog.String("input_id", inputID),
		slog.String("error", err.Error()),
		slog.Float64("duration_ms", durationMs),
	)
}

// LogGenerationStart logs the start of a flow generation run.
func LogGenerationStart(logger *slog.Logger, flowID string, requirementCount int) {
	if logger == nil {
		return
	}
	logger.Info("flow generation starting",
		slog.String("flow_id", flowID),
		slog.Int("requirement_count", requirementCount),
	)
}

// LogGenerationComplete logs successful flow generation.
func LogGenerationComplete(logger *slog.Logger, flowID string, nodes, edges, droppedEdges int, durationMs float64) {
	if logger == nil {
		return
	}
	logger.Info("flow generation completed",
		slog.String("flow_id", flowID),
		slog.Int("nodes_inserted", nodes),
		slog.Int("edges_inserted", edges),
		slog.Int("edges_dropped", droppedEdges),
		slog.Float64("duration_ms", durationMs),
	)
}

// LogGenerationError logs flow generation failure.
func LogGenerationError(logger *slog.Logger, flowID string, err error, durationMs float64) {
	if logger == nil {
		return
	}
	logger.Error("flow generation failed",
		slog.String("flow_id", flowID),
		slog.String("error", err.Error()),
		slog.Float64("duration_ms", durationMs),
	)
}

// LogShapeRejection logs generation output that failed validation.
// The raw text is included so the malformed response can be diagnosed.
func LogShapeRejection(logger *slog.Logger, operation, raw string, err error) {
	if logger == nil {
		return
	}
	logger.Warn("generation output rejected",
		slog.String("operation", operation),
		slog.String("error", err.Error()),
		slog.String("raw_output", raw),
	)
}

// LogPositionFlush logs a debounced node position write.
func LogPositionFlush(logger *slog.Logger, nodeID string, x, y float64) {
	if logger == nil {
		return
	}
	logger.Debug("node position saved",
		slog.String("node_id", nodeID),
		slog.Float64("x", x),
		slog.Float64("y", y),
	)
}
