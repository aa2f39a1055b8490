// Package session holds the live, client-resident graph model backing
// interactive diagram editing. The session mirrors the persisted node/edge
// set, diverges under local interaction, and re-persists deltas: node drags
// are debounced per node, edge creation is confirmed before it appears,
// edge deletion is fire-and-forget.
package session

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/reqflow/reqflow/pkg/reqflow"
	rferrors "github.com/reqflow/reqflow/pkg/reqflow/errors"
	"github.com/reqflow/reqflow/pkg/reqflow/observability"
)

// FlowGenerator regenerates a flow's diagram. *reqflow.Generator satisfies it.
type FlowGenerator interface {
	Generate(ctx context.Context, flowID string) (*reqflow.GenerationResult, error)
}

// Anchor names a node connection point for edge routing.
type Anchor string

// Connection anchors. Forward edges leave the bottom and enter the top;
// back edges are routed through the side anchors for legibility.
const (
	AnchorTop    Anchor = "top"
	AnchorBottom Anchor = "bottom"
	AnchorLeft   Anchor = "left"
	AnchorRight  Anchor = "right"
)

// Session is the in-memory edit model for one flow's diagram.
// All methods are safe for concurrent use.
type Session struct {
	flowID    string
	store     reqflow.Store
	generator FlowGenerator
	logger    *slog.Logger
	metrics   observability.MetricsRecorder
	threshold float64

	mu    sync.RWMutex
	nodes map[string]reqflow.FlowNode
	edges map[string]reqflow.FlowEdge

	saver *positionSaver
	bg    sync.WaitGroup
}

// Option configures a Session.
type Option func(*Session)

// WithLogger attaches a structured logger.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Session) { s.logger = logger }
}

// WithMetrics attaches a metrics recorder.
func WithMetrics(m observability.MetricsRecorder) Option {
	return func(s *Session) { s.metrics = m }
}

// WithGenerator attaches the generator Regenerate delegates to.
func WithGenerator(g FlowGenerator) Option {
	return func(s *Session) { s.generator = g }
}

// WithQuietPeriod overrides the 500 ms drag debounce window.
func WithQuietPeriod(d time.Duration) Option {
	return func(s *Session) { s.saver.quiet = d }
}

// WithBackEdgeThreshold overrides the 30 px back-edge threshold.
func WithBackEdgeThreshold(px float64) Option {
	return func(s *Session) { s.threshold = px }
}

// New creates a Session for one flow. Call Load before editing.
func New(flowID string, store reqflow.Store, opts ...Option) *Session {
	s := &Session{
		flowID:    flowID,
		store:     store,
		metrics:   observability.NoopMetrics{},
		threshold: 30,
		nodes:     make(map[string]reqflow.FlowNode),
		edges:     make(map[string]reqflow.FlowEdge),
	}
	s.saver = newPositionSaver(500*time.Millisecond, s.persistPosition)
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Load replaces the in-memory graph with the persisted one.
func (s *Session) Load(ctx context.Context) error {
	nodes, err := s.store.ListNodes(ctx, s.flowID)
	if err != nil {
		return &rferrors.PersistenceError{Operation: "list nodes", Err: err}
	}
	edges, err := s.store.ListEdges(ctx, s.flowID)
	if err != nil {
		return &rferrors.PersistenceError{Operation: "list edges", Err: err}
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.nodes = make(map[string]reqflow.FlowNode, len(nodes))
	for _, n := range nodes {
		s.nodes[n.ID] = n
	}
	s.edges = make(map[string]reqflow.FlowEdge, len(edges))
	for _, e := range edges {
		s.edges[e.ID] = e
	}
	return nil
}

// Nodes returns a snapshot of the in-memory nodes.
func (s *Session) Nodes() []reqflow.FlowNode {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]reqflow.FlowNode, 0, len(s.nodes))
	for _, n := range s.nodes {
		out = append(out, n)
	}
	return out
}

// Edges returns a snapshot of the in-memory edges.
func (s *Session) Edges() []reqflow.FlowEdge {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]reqflow.FlowEdge, 0, len(s.edges))
	for _, e := range s.edges {
		out = append(out, e)
	}
	return out
}

// MoveNode updates a node's in-memory position immediately and schedules a
// debounced persist. Rapid successive moves of the same node coalesce into
// one write carrying the final coordinates.
func (s *Session) MoveNode(nodeID string, x, y float64) {
	s.mu.Lock()
	n, ok := s.nodes[nodeID]
	if ok {
		n.X, n.Y = x, y
		s.nodes[nodeID] = n
	}
	s.mu.Unlock()
	if !ok {
		return
	}
	s.saver.schedule(nodeID, x, y)
}

// persistPosition is the debounce sink: one store write per flushed node.
func (s *Session) persistPosition(nodeID string, x, y float64) {
	ctx := context.Background()
	if err := s.store.UpdateNodePosition(ctx, nodeID, x, y); err != nil {
		if s.logger != nil {
			s.logger.Error("position save failed",
				slog.String("node_id", nodeID),
				slog.String("error", err.Error()),
			)
		}
		return
	}
	s.metrics.RecordPositionFlush(ctx, nodeID)
	observability.LogPositionFlush(s.logger, nodeID, x, y)
}

// Connect persists a new edge between two nodes and, only on success, adds
// it to the in-memory set. The edge never appears without a persisted
// identity.
func (s *Session) Connect(ctx context.Context, sourceID, targetID string) (*reqflow.FlowEdge, error) {
	s.mu.RLock()
	_, okS := s.nodes[sourceID]
	_, okT := s.nodes[targetID]
	s.mu.RUnlock()
	if !okS || !okT {
		return nil, &rferrors.InputError{Field: "nodeID", Message: "both edge endpoints must exist"}
	}

	edge := &reqflow.FlowEdge{
		FlowID:       s.flowID,
		SourceNodeID: sourceID,
		TargetNodeID: targetID,
	}
	if err := s.store.InsertEdge(ctx, edge); err != nil {
		return nil, &rferrors.PersistenceError{Operation: "insert edge", Err: err}
	}

	s.mu.Lock()
	s.edges[edge.ID] = *edge
	s.mu.Unlock()
	return edge, nil
}

// RemoveEdge removes an edge from the in-memory set immediately and issues
// the delete in the background. A failed delete leaves a visually-removed
// but still-persisted edge until the next reload; that window is accepted.
func (s *Session) RemoveEdge(edgeID string) {
	s.mu.Lock()
	delete(s.edges, edgeID)
	s.mu.Unlock()

	s.bg.Add(1)
	go func() {
		defer s.bg.Done()
		if err := s.store.DeleteEdge(context.Background(), edgeID); err != nil && s.logger != nil {
			s.logger.Error("edge delete failed",
				slog.String("edge_id", edgeID),
				slog.String("error", err.Error()),
			)
		}
	}()
}

// Regenerate delegates to the Flow Generator and, on success, discards the
// whole in-memory graph and reloads from the store. No incremental merge.
func (s *Session) Regenerate(ctx context.Context) error {
	if s.generator == nil {
		return &rferrors.InputError{Field: "generator", Message: "session has no generator"}
	}
	if _, err := s.generator.Generate(ctx, s.flowID); err != nil {
		return err
	}
	return s.Load(ctx)
}

// IsBackEdge reports whether the edge's target sits more than the threshold
// above its source in the current in-memory layout. The classification only
// affects which anchors the rendering uses, never persistence or layout.
func (s *Session) IsBackEdge(e reqflow.FlowEdge) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	source, okS := s.nodes[e.SourceNodeID]
	target, okT := s.nodes[e.TargetNodeID]
	if !okS || !okT {
		return false
	}
	return target.Y < source.Y-s.threshold
}

// Anchors returns the connection anchors an edge should render through:
// bottom-to-top for forward edges, right-to-left for back edges.
func (s *Session) Anchors(e reqflow.FlowEdge) (source, target Anchor) {
	if s.IsBackEdge(e) {
		return AnchorRight, AnchorLeft
	}
	return AnchorBottom, AnchorTop
}

// Flush forces every pending position save and waits for in-flight edge
// deletes. Intended for tests and orderly shutdown.
func (s *Session) Flush() {
	s.saver.flushAll()
	s.bg.Wait()
}

// Close flushes pending work. The session is not usable afterwards only by
// convention; no resources are held beyond timers.
func (s *Session) Close() {
	s.Flush()
}
