// Package store provides Store implementations: an in-memory store for
// tests and examples, and a SQLite-backed store for single-process
// production use. Both pass the same contract tests.
package store

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/reqflow/reqflow/pkg/reqflow"
)

// MemoryStore is an in-memory store. Data is lost when the process exits.
type MemoryStore struct {
	mu     sync.RWMutex
	inputs []reqflow.ResearchInput
	reqs   []reqflow.Requirement
	nodes  []reqflow.FlowNode
	edges  []reqflow.FlowEdge
	closed bool
}

// NewMemoryStore creates a new in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{}
}

// Compile-time interface check.
var _ reqflow.Store = (*MemoryStore)(nil)

// GetInput implements reqflow.Store.
func (m *MemoryStore) GetInput(_ context.Context, id string) (*reqflow.ResearchInput, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.closed {
		return nil, reqflow.ErrStoreClosed
	}
	for i := range m.inputs {
		if m.inputs[i].ID == id {
			in := m.inputs[i]
			return &in, nil
		}
	}
	return nil, reqflow.ErrNotFound
}

// InsertInput implements reqflow.Store.
func (m *MemoryStore) InsertInput(_ context.Context, in *reqflow.ResearchInput) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return reqflow.ErrStoreClosed
	}
	stampInput(in)
	m.inputs = append(m.inputs, *in)
	return nil
}

// UpdateInput implements reqflow.Store.
func (m *MemoryStore) UpdateInput(_ context.Context, in *reqflow.ResearchInput) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return reqflow.ErrStoreClosed
	}
	for i := range m.inputs {
		if m.inputs[i].ID == in.ID {
			in.UpdatedAt = time.Now().UTC()
			in.CreatedAt = m.inputs[i].CreatedAt
			m.inputs[i] = *in
			return nil
		}
	}
	return reqflow.ErrNotFound
}

// DeleteInput implements reqflow.Store.
func (m *MemoryStore) DeleteInput(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return reqflow.ErrStoreClosed
	}
	for i := range m.inputs {
		if m.inputs[i].ID == id {
			m.inputs = append(m.inputs[:i], m.inputs[i+1:]...)
			return nil
		}
	}
	return nil
}

// ListInputs implements reqflow.Store.
func (m *MemoryStore) ListInputs(_ context.Context, flowID string) ([]reqflow.ResearchInput, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.closed {
		return nil, reqflow.ErrStoreClosed
	}
	out := []reqflow.ResearchInput{}
	for i := range m.inputs {
		if m.inputs[i].FlowID == flowID {
			out = append(out, m.inputs[i])
		}
	}
	return out, nil
}

// ListRequirements implements reqflow.Store.
func (m *MemoryStore) ListRequirements(_ context.Context, flowID string) ([]reqflow.Requirement, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.closed {
		return nil, reqflow.ErrStoreClosed
	}
	out := []reqflow.Requirement{}
	for i := range m.reqs {
		if m.reqs[i].FlowID == flowID {
			out = append(out, copyRequirement(m.reqs[i]))
		}
	}
	return out, nil
}

// InsertRequirements implements reqflow.Store.
func (m *MemoryStore) InsertRequirements(_ context.Context, reqs []reqflow.Requirement) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return reqflow.ErrStoreClosed
	}
	// Stage first so the batch lands all-or-nothing.
	staged := make([]reqflow.Requirement, 0, len(reqs))
	for i := range reqs {
		stampRequirement(&reqs[i])
		staged = append(staged, copyRequirement(reqs[i]))
	}
	m.reqs = append(m.reqs, staged...)
	return nil
}

// DeleteRequirementsBySource implements reqflow.Store.
func (m *MemoryStore) DeleteRequirementsBySource(_ context.Context, inputID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return reqflow.ErrStoreClosed
	}
	kept := m.reqs[:0]
	for i := range m.reqs {
		if !m.reqs[i].HasSource(inputID) {
			kept = append(kept, m.reqs[i])
		}
	}
	m.reqs = kept
	return nil
}

// UpdateRequirementStatus implements reqflow.Store.
func (m *MemoryStore) UpdateRequirementStatus(_ context.Context, id string, status reqflow.RequirementStatus) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return reqflow.ErrStoreClosed
	}
	for i := range m.reqs {
		if m.reqs[i].ID == id {
			m.reqs[i].Status = status
			m.reqs[i].UpdatedAt = time.Now().UTC()
			return nil
		}
	}
	return reqflow.ErrNotFound
}

// CountRequirementsBySource implements reqflow.Store.
func (m *MemoryStore) CountRequirementsBySource(_ context.Context, inputID string) (int, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.closed {
		return 0, reqflow.ErrStoreClosed
	}
	count := 0
	for i := range m.reqs {
		if m.reqs[i].HasSource(inputID) {
			count++
		}
	}
	return count, nil
}

// ListNodes implements reqflow.Store.
func (m *MemoryStore) ListNodes(_ context.Context, flowID string) ([]reqflow.FlowNode, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.closed {
		return nil, reqflow.ErrStoreClosed
	}
	out := []reqflow.FlowNode{}
	for i := range m.nodes {
		if m.nodes[i].FlowID == flowID {
			out = append(out, m.nodes[i])
		}
	}
	return out, nil
}

// ListEdges implements reqflow.Store.
func (m *MemoryStore) ListEdges(_ context.Context, flowID string) ([]reqflow.FlowEdge, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.closed {
		return nil, reqflow.ErrStoreClosed
	}
	out := []reqflow.FlowEdge{}
	for i := range m.edges {
		if m.edges[i].FlowID == flowID {
			out = append(out, copyEdge(m.edges[i]))
		}
	}
	return out, nil
}

// InsertNode implements reqflow.Store.
func (m *MemoryStore) InsertNode(_ context.Context, n *reqflow.FlowNode) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return reqflow.ErrStoreClosed
	}
	if n.ID == "" {
		n.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	if n.CreatedAt.IsZero() {
		n.CreatedAt = now
	}
	n.UpdatedAt = now
	m.nodes = append(m.nodes, *n)
	return nil
}

// InsertEdge implements reqflow.Store.
func (m *MemoryStore) InsertEdge(_ context.Context, e *reqflow.FlowEdge) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return reqflow.ErrStoreClosed
	}
	if e.ID == "" {
		e.ID = uuid.NewString()
	}
	if e.CreatedAt.IsZero() {
		e.CreatedAt = time.Now().UTC()
	}
	m.edges = append(m.edges, copyEdge(*e))
	return nil
}

// UpdateNodePosition implements reqflow.Store.
func (m *MemoryStore) UpdateNodePosition(_ context.Context, nodeID string, x, y float64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return reqflow.ErrStoreClosed
	}
	for i := range m.nodes {
		if m.nodes[i].ID == nodeID {
			m.nodes[i].X = x
			m.nodes[i].Y = y
			m.nodes[i].UpdatedAt = time.Now().UTC()
			return nil
		}
	}
	return reqflow.ErrNotFound
}

// DeleteEdge implements reqflow.Store.
func (m *MemoryStore) DeleteEdge(_ context.Context, edgeID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return reqflow.ErrStoreClosed
	}
	for i := range m.edges {
		if m.edges[i].ID == edgeID {
			m.edges = append(m.edges[:i], m.edges[i+1:]...)
			return nil
		}
	}
	return nil
}

// ClearFlowGraph implements reqflow.Store.
func (m *MemoryStore) ClearFlowGraph(_ context.Context, flowID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return reqflow.ErrStoreClosed
	}
	nodes := m.nodes[:0]
	for i := range m.nodes {
		if m.nodes[i].FlowID != flowID {
			nodes = append(nodes, m.nodes[i])
		}
	}
	m.nodes = nodes

	edges := m.edges[:0]
	for i := range m.edges {
		if m.edges[i].FlowID != flowID {
			edges = append(edges, m.edges[i])
		}
	}
	m.edges = edges
	return nil
}

// Close implements reqflow.Store.
func (m *MemoryStore) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.closed = true
	return nil
}

func stampInput(in *reqflow.ResearchInput) {
	if in.ID == "" {
		in.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	if in.CreatedAt.IsZero() {
		in.CreatedAt = now
	}
	if in.UpdatedAt.IsZero() {
		in.UpdatedAt = in.CreatedAt
	}
}

func stampRequirement(r *reqflow.Requirement) {
	if r.ID == "" {
		r.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	if r.CreatedAt.IsZero() {
		r.CreatedAt = now
	}
	if r.UpdatedAt.IsZero() {
		r.UpdatedAt = r.CreatedAt
	}
}

// Copy helpers keep callers from mutating stored slices and pointers.

func copyRequirement(r reqflow.Requirement) reqflow.Requirement {
	r.SourceInputIDs = append([]string(nil), r.SourceInputIDs...)
	r.AcceptanceCriteria = append([]string(nil), r.AcceptanceCriteria...)
	return r
}

func copyEdge(e reqflow.FlowEdge) reqflow.FlowEdge {
	if e.Label != nil {
		label := *e.Label
		e.Label = &label
	}
	return e
}
