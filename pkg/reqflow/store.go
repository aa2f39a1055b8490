package reqflow

import (
	"context"
	"errors"
)

// Store is the persistence surface the pipelines depend on: row-oriented
// CRUD keyed by id and by parent foreign key. Implementations must be safe
// for concurrent use. The only multi-row guarantee required is that
// InsertRequirements either fully succeeds or fully fails.
type Store interface {
	// GetInput retrieves a research input by id.
	// Returns ErrNotFound if it doesn't exist.
	GetInput(ctx context.Context, id string) (*ResearchInput, error)

	// InsertInput stores a research input, assigning an id if empty.
	InsertInput(ctx context.Context, in *ResearchInput) error

	// UpdateInput rewrites an input's editable fields and advances UpdatedAt.
	UpdateInput(ctx context.Context, in *ResearchInput) error

	// DeleteInput removes an input. Requirements sourced from it are left
	// in place; orphaning is surfaced to the user, never auto-resolved.
	DeleteInput(ctx context.Context, id string) error

	// ListInputs returns a flow's inputs ordered by creation time.
	ListInputs(ctx context.Context, flowID string) ([]ResearchInput, error)

	// ListRequirements returns a flow's requirements ordered by creation time.
	ListRequirements(ctx context.Context, flowID string) ([]Requirement, error)

	// InsertRequirements stores a batch atomically: all rows or none.
	// Ids are assigned where empty. An empty batch is a no-op.
	InsertRequirements(ctx context.Context, reqs []Requirement) error

	// DeleteRequirementsBySource removes every requirement whose
	// SourceInputIDs contains inputID.
	DeleteRequirementsBySource(ctx context.Context, inputID string) error

	// UpdateRequirementStatus sets a requirement's lifecycle status.
	UpdateRequirementStatus(ctx context.Context, id string, status RequirementStatus) error

	// CountRequirementsBySource counts requirements tracing to an input.
	CountRequirementsBySource(ctx context.Context, inputID string) (int, error)

	// ListNodes returns a flow's nodes ordered by creation time.
	ListNodes(ctx context.Context, flowID string) ([]FlowNode, error)

	// ListEdges returns a flow's edges ordered by creation time.
	ListEdges(ctx context.Context, flowID string) ([]FlowEdge, error)

	// InsertNode stores one node, assigning an id if empty.
	InsertNode(ctx context.Context, n *FlowNode) error

	// InsertEdge stores one edge, assigning an id if empty.
	InsertEdge(ctx context.Context, e *FlowEdge) error

	// UpdateNodePosition moves a node to a new top-left-anchored position.
	UpdateNodePosition(ctx context.Context, nodeID string, x, y float64) error

	// DeleteEdge removes an edge. Returns nil if it doesn't exist.
	DeleteEdge(ctx context.Context, edgeID string) error

	// ClearFlowGraph removes every node and edge belonging to a flow.
	ClearFlowGraph(ctx context.Context, flowID string) error

	// Close releases any resources (connections, files).
	Close() error
}

// Sentinel errors for store operations.
var (
	// ErrNotFound indicates the requested row doesn't exist.
	ErrNotFound = errors.New("record not found")

	// ErrStoreClosed indicates the store has been closed.
	ErrStoreClosed = errors.New("store closed")
)
