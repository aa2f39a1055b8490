package reqflow

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"go.opentelemetry.io/otel/attribute"

	rferrors "github.com/reqflow/reqflow/pkg/reqflow/errors"
	"github.com/reqflow/reqflow/pkg/reqflow/layout"
	"github.com/reqflow/reqflow/pkg/reqflow/llm"
	"github.com/reqflow/reqflow/pkg/reqflow/observability"
	"github.com/reqflow/reqflow/pkg/reqflow/schema"
)

// Generator produces a flow's diagram from its full requirement set: one
// generation call, schema validation, server-side layout, then an atomic
// clear-and-replace of the stored graph. Manual edits made since the last
// generation do not survive a new run.
type Generator struct {
	store     Store
	client    llm.Client
	layoutCfg layout.Config
	logger    *slog.Logger
	metrics   observability.MetricsRecorder
	spans     observability.SpanManager
	model     string
}

// GeneratorOption configures a Generator.
type GeneratorOption func(*Generator)

// WithGeneratorLogger attaches a structured logger.
func WithGeneratorLogger(logger *slog.Logger) GeneratorOption {
	return func(g *Generator) { g.logger = logger }
}

// WithGeneratorMetrics attaches a metrics recorder.
func WithGeneratorMetrics(m observability.MetricsRecorder) GeneratorOption {
	return func(g *Generator) { g.metrics = m }
}

// WithGeneratorSpans attaches a span manager.
func WithGeneratorSpans(sm observability.SpanManager) GeneratorOption {
	return func(g *Generator) { g.spans = sm }
}

// WithGeneratorModel overrides the generation model for flow calls.
func WithGeneratorModel(model string) GeneratorOption {
	return func(g *Generator) { g.model = model }
}

// WithLayoutConfig overrides the layout constants.
func WithLayoutConfig(cfg layout.Config) GeneratorOption {
	return func(g *Generator) { g.layoutCfg = cfg }
}

// NewGenerator creates a Generator. Both dependencies are required; their
// lifecycle belongs to the caller.
func NewGenerator(store Store, client llm.Client, opts ...GeneratorOption) *Generator {
	g := &Generator{
		store:     store,
		client:    client,
		layoutCfg: layout.DefaultConfig(),
		metrics:   observability.NoopMetrics{},
		spans:     observability.NoopSpanManager{},
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// GenerationResult reports what one generation run inserted. A caller that
// needs stricter guarantees than best-effort can compare NodesInserted
// against NodesValidated to detect partial placement.
type GenerationResult struct {
	NodesValidated int
	NodesInserted  int
	EdgesInserted  int
	EdgesDropped   int
}

// Generate replaces the flow's stored diagram with a newly generated one.
//
// Nothing is mutated when the generation call fails or its output fails
// validation. Past that point the run is best-effort: a node whose insert
// fails is simply absent, and every edge referencing an unresolvable node
// id is dropped rather than failing the run.
func (g *Generator) Generate(ctx context.Context, flowID string) (*GenerationResult, error) {
	if strings.TrimSpace(flowID) == "" {
		return nil, &rferrors.InputError{Field: "flowID", Message: "must not be empty"}
	}

	start := time.Now()
	ctx, span := g.spans.StartGenerationSpan(ctx, flowID)

	result, err := g.generate(ctx, flowID)

	duration := time.Since(start)
	g.spans.EndSpanWithError(span, err)
	if err != nil {
		g.metrics.RecordGeneration(ctx, false, 0, 0, duration)
		observability.LogGenerationError(g.logger, flowID, err, float64(duration.Milliseconds()))
		return nil, err
	}
	g.metrics.RecordGeneration(ctx, true, result.NodesInserted, result.EdgesDropped, duration)
	observability.LogGenerationComplete(g.logger, flowID,
		result.NodesInserted, result.EdgesInserted, result.EdgesDropped,
		float64(duration.Milliseconds()))
	return result, nil
}

func (g *Generator) generate(ctx context.Context, flowID string) (*GenerationResult, error) {
	reqs, err := g.store.ListRequirements(ctx, flowID)
	if err != nil {
		return nil, &rferrors.PersistenceError{Operation: "list requirements", Err: err}
	}
	if len(reqs) == 0 {
		return nil, &rferrors.InputError{Field: "flowID", Message: "flow has no requirements to generate from"}
	}

	observability.LogGenerationStart(g.logger, flowID, len(reqs))

	resp, err := g.client.Generate(ctx, llm.Request{
		Prompt: generationPrompt(reqs),
		Model:  g.model,
	})
	if err != nil {
		return nil, &rferrors.UpstreamError{Operation: "generate flow", Err: err}
	}

	draft, err := schema.ParseFlow(resp.Text)
	if err != nil {
		observability.LogShapeRejection(g.logger, "generate flow", resp.Text, err)
		return nil, err
	}

	// Layout is always recomputed here; any coordinates in the response
	// are ignored.
	layoutNodes := make([]layout.Node, len(draft.Nodes))
	for i, n := range draft.Nodes {
		layoutNodes[i] = layout.Node{ID: n.ID, Type: n.Type}
	}
	layoutEdges := make([]layout.Edge, len(draft.Edges))
	for i, e := range draft.Edges {
		layoutEdges[i] = layout.Edge{Source: e.Source, Target: e.Target}
	}
	_, layoutSpan := g.spans.StartLayoutSpan(ctx, len(layoutNodes))
	positions := layout.Compute(layoutNodes, layoutEdges, g.layoutCfg)
	g.spans.EndSpanWithError(layoutSpan, nil)

	if err := g.store.ClearFlowGraph(ctx, flowID); err != nil {
		return nil, &rferrors.PersistenceError{Operation: "clear flow graph", Err: err}
	}

	result := &GenerationResult{NodesValidated: len(draft.Nodes)}

	// Insert nodes one by one, recording temp id -> persisted id. A failed
	// insert leaves its temp id unmapped; edges touching it drop below.
	idMap := make(map[string]string, len(draft.Nodes))
	for _, n := range draft.Nodes {
		pos := positions[n.ID]
		node := &FlowNode{
			FlowID: flowID,
			Type:   NodeType(n.Type),
			Label:  n.Label,
			X:      pos.X,
			Y:      pos.Y,
		}
		if err := g.store.InsertNode(ctx, node); err != nil {
			if g.logger != nil {
				g.logger.Warn("node insert failed, dropping node",
					slog.String("flow_id", flowID),
					slog.String("temp_id", n.ID),
					slog.String("error", err.Error()),
				)
			}
			continue
		}
		idMap[n.ID] = node.ID
		result.NodesInserted++
	}
	g.spans.AddSpanEvent(ctx, "nodes inserted",
		attribute.Int("count", result.NodesInserted))

	edges, dropped := remapEdges(flowID, draft.Edges, idMap)
	result.EdgesDropped = dropped
	for i := range edges {
		if err := g.store.InsertEdge(ctx, &edges[i]); err != nil {
			if g.logger != nil {
				g.logger.Warn("edge insert failed, dropping edge",
					slog.String("flow_id", flowID),
					slog.String("error", err.Error()),
				)
			}
			result.EdgesDropped++
			continue
		}
		result.EdgesInserted++
	}
	return result, nil
}

// remapEdges resolves draft edges through the temp-to-persisted id table.
// Edges whose source or target never mapped (a typo by the generation
// service, or a node whose insert failed) are dropped and counted. Pure:
// insertion side effects happen in the caller.
func remapEdges(flowID string, drafts []schema.EdgeDraft, idMap map[string]string) ([]FlowEdge, int) {
	edges := make([]FlowEdge, 0, len(drafts))
	dropped := 0
	for _, d := range drafts {
		source, okS := idMap[d.Source]
		target, okT := idMap[d.Target]
		if !okS || !okT {
			dropped++
			continue
		}
		var label *string
		if d.Label != nil && strings.TrimSpace(*d.Label) != "" {
			l := strings.TrimSpace(*d.Label)
			label = &l
		}
		edges = append(edges, FlowEdge{
			FlowID:       flowID,
			SourceNodeID: source,
			TargetNodeID: target,
			Label:        label,
		})
	}
	return edges, dropped
}
