package reqflow

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	rferrors "github.com/reqflow/reqflow/pkg/reqflow/errors"
	"github.com/reqflow/reqflow/pkg/reqflow/llm"
	"github.com/reqflow/reqflow/pkg/reqflow/observability"
	"github.com/reqflow/reqflow/pkg/reqflow/schema"
)

// Synthesizer turns one research input into persisted requirement records.
// It drives a single generation call, validates the output through the
// schema boundary, and applies the requested merge policy. A parse failure
// is terminal for that invocation; the user retries manually.
type Synthesizer struct {
	store   Store
	client  llm.Client
	logger  *slog.Logger
	metrics observability.MetricsRecorder
	spans   observability.SpanManager
	model   string
}

// SynthesizerOption configures a Synthesizer.
type SynthesizerOption func(*Synthesizer)

// WithSynthesizerLogger attaches a structured logger.
func WithSynthesizerLogger(logger *slog.Logger) SynthesizerOption {
	return func(s *Synthesizer) { s.logger = logger }
}

// WithSynthesizerMetrics attaches a metrics recorder.
func WithSynthesizerMetrics(m observability.MetricsRecorder) SynthesizerOption {
	return func(s *Synthesizer) { s.metrics = m }
}

// WithSynthesizerSpans attaches a span manager.
func WithSynthesizerSpans(sm observability.SpanManager) SynthesizerOption {
	return func(s *Synthesizer) { s.spans = sm }
}

// WithSynthesizerModel overrides the generation model for synthesis calls.
func WithSynthesizerModel(model string) SynthesizerOption {
	return func(s *Synthesizer) { s.model = model }
}

// NewSynthesizer creates a Synthesizer. Both dependencies are required;
// their lifecycle belongs to the caller.
func NewSynthesizer(store Store, client llm.Client, opts ...SynthesizerOption) *Synthesizer {
	s := &Synthesizer{
		store:   store,
		client:  client,
		metrics: observability.NoopMetrics{},
		spans:   observability.NoopSpanManager{},
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// SynthesisResult reports what one synthesis run created.
type SynthesisResult struct {
	// Created holds the inserted requirements, in extraction order.
	// Empty when the input implied no requirements, which is success.
	Created []Requirement
}

// Synthesize extracts requirements from the input and persists them.
//
// In ModeReplace, every existing requirement sourced from the input is
// deleted before the new batch is inserted. In ModeAppend, the batch is
// inserted alongside whatever exists. The insert is one atomic batch.
// Nothing is written when the generation call fails or its output fails
// validation.
func (s *Synthesizer) Synthesize(ctx context.Context, inputID string, mode MergeMode) (*SynthesisResult, error) {
	if strings.TrimSpace(inputID) == "" {
		return nil, &rferrors.InputError{Field: "inputID", Message: "must not be empty"}
	}
	if mode != ModeAppend && mode != ModeReplace {
		return nil, &rferrors.InputError{Field: "mode", Message: "must be append or replace"}
	}

	start := time.Now()
	ctx, span := s.spans.StartSynthesisSpan(ctx, inputID, string(mode))

	result, err := s.synthesize(ctx, inputID, mode)

	duration := time.Since(start)
	s.spans.EndSpanWithError(span, err)
	if err != nil {
		s.metrics.RecordSynthesis(ctx, false, 0, duration)
		observability.LogSynthesisError(s.logger, inputID, err, float64(duration.Milliseconds()))
		return nil, err
	}
	s.metrics.RecordSynthesis(ctx, true, len(result.Created), duration)
	observability.LogSynthesisComplete(s.logger, inputID, len(result.Created), float64(duration.Milliseconds()))
	return result, nil
}

func (s *Synthesizer) synthesize(ctx context.Context, inputID string, mode MergeMode) (*SynthesisResult, error) {
	in, err := s.store.GetInput(ctx, inputID)
	if errors.Is(err, ErrNotFound) {
		return nil, &rferrors.InputError{Field: "inputID", Message: "input does not exist"}
	}
	if err != nil {
		return nil, &rferrors.PersistenceError{Operation: "get input", Err: err}
	}
	if strings.TrimSpace(in.Content) == "" {
		return nil, &rferrors.InputError{Field: "content", Message: "input has no content"}
	}

	observability.LogSynthesisStart(s.logger, inputID, string(mode))

	// One call, no retry. A malformed response is surfaced, not retried.
	resp, err := s.client.Generate(ctx, llm.Request{
		Prompt: synthesisPrompt(in),
		Model:  s.model,
	})
	if err != nil {
		return nil, &rferrors.UpstreamError{Operation: "synthesize", Err: err}
	}

	drafts, err := schema.ParseRequirements(resp.Text)
	if err != nil {
		observability.LogShapeRejection(s.logger, "synthesize", resp.Text, err)
		return nil, err
	}

	if mode == ModeReplace {
		if err := s.store.DeleteRequirementsBySource(ctx, in.ID); err != nil {
			return nil, &rferrors.PersistenceError{Operation: "delete requirements by source", Err: err}
		}
	}

	created := make([]Requirement, 0, len(drafts))
	for _, d := range drafts {
		created = append(created, Requirement{
			ProjectID:           in.ProjectID,
			FlowID:              in.FlowID,
			SourceInputIDs:      []string{in.ID},
			BusinessOpportunity: d.BusinessOpportunity,
			UserStory:           d.UserStory,
			AcceptanceCriteria:  d.AcceptanceCriteria,
			DFVTag:              DFVTag(d.DFVTag),
			Status:              StatusDraft,
		})
	}

	// Zero extracted requirements is a valid outcome: nothing to insert.
	if err := s.store.InsertRequirements(ctx, created); err != nil {
		return nil, &rferrors.PersistenceError{Operation: "insert requirements", Err: err}
	}
	return &SynthesisResult{Created: created}, nil
}
