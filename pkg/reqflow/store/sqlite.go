package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite" // Pure Go SQLite driver

	"github.com/reqflow/reqflow/pkg/reqflow"
)

// SQLiteStore persists the research/requirement/diagram rows to SQLite.
// It is suitable for single-process production use.
type SQLiteStore struct {
	db     *sql.DB
	mu     sync.RWMutex
	closed bool
}

// NewSQLiteStore opens (or creates) a SQLite store.
// The path should be a file path (e.g., "./reqflow.db") or ":memory:" for testing.
func NewSQLiteStore(path string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	// Enable WAL mode for better concurrent read performance
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("enable WAL mode: %w", err)
	}

	for _, stmt := range schemaStatements {
		if _, err := db.Exec(stmt); err != nil {
			db.Close()
			return nil, fmt.Errorf("create schema: %w", err)
		}
	}

	return &SQLiteStore{db: db}, nil
}

// Compile-time interface check.
var _ reqflow.Store = (*SQLiteStore)(nil)

var schemaStatements = []string{
	`CREATE TABLE IF NOT EXISTS research_inputs (
		id TEXT PRIMARY KEY,
		project_id TEXT NOT NULL DEFAULT '',
		flow_id TEXT NOT NULL DEFAULT '',
		type TEXT NOT NULL,
		content TEXT NOT NULL,
		source_label TEXT NOT NULL DEFAULT '',
		attachment_url TEXT NOT NULL DEFAULT '',
		created_at TEXT NOT NULL,
		updated_at TEXT NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS idx_inputs_flow ON research_inputs(flow_id)`,
	`CREATE TABLE IF NOT EXISTS requirements (
		id TEXT PRIMARY KEY,
		project_id TEXT NOT NULL DEFAULT '',
		flow_id TEXT NOT NULL DEFAULT '',
		source_input_ids TEXT NOT NULL,
		business_opportunity TEXT NOT NULL DEFAULT '',
		user_story TEXT NOT NULL,
		acceptance_criteria TEXT NOT NULL,
		dfv_tag TEXT NOT NULL DEFAULT '',
		status TEXT NOT NULL,
		created_at TEXT NOT NULL,
		updated_at TEXT NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS idx_requirements_flow ON requirements(flow_id)`,
	`CREATE TABLE IF NOT EXISTS flow_nodes (
		id TEXT PRIMARY KEY,
		flow_id TEXT NOT NULL,
		type TEXT NOT NULL,
		label TEXT NOT NULL DEFAULT '',
		position_x REAL NOT NULL DEFAULT 0,
		position_y REAL NOT NULL DEFAULT 0,
		created_at TEXT NOT NULL,
		updated_at TEXT NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS idx_nodes_flow ON flow_nodes(flow_id)`,
	`CREATE TABLE IF NOT EXISTS flow_edges (
		id TEXT PRIMARY KEY,
		flow_id TEXT NOT NULL,
		source_node_id TEXT NOT NULL,
		target_node_id TEXT NOT NULL,
		label TEXT,
		created_at TEXT NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS idx_edges_flow ON flow_edges(flow_id)`,
}

const timeLayout = time.RFC3339Nano

// GetInput implements reqflow.Store.
func (s *SQLiteStore) GetInput(ctx context.Context, id string) (*reqflow.ResearchInput, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return nil, reqflow.ErrStoreClosed
	}

	row := s.db.QueryRowContext(ctx, `
		SELECT id, project_id, flow_id, type, content, source_label, attachment_url, created_at, updated_at
		FROM research_inputs WHERE id = ?
	`, id)

	var in reqflow.ResearchInput
	var created, updated string
	err := row.Scan(&in.ID, &in.ProjectID, &in.FlowID, (*string)(&in.Type),
		&in.Content, &in.SourceLabel, &in.AttachmentURL, &created, &updated)
	if err == sql.ErrNoRows {
		return nil, reqflow.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get input: %w", err)
	}
	in.CreatedAt = parseTime(created)
	in.UpdatedAt = parseTime(updated)
	return &in, nil
}

// InsertInput implements reqflow.Store.
func (s *SQLiteStore) InsertInput(ctx context.Context, in *reqflow.ResearchInput) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return reqflow.ErrStoreClosed
	}

	stampInput(in)
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO research_inputs (id, project_id, flow_id, type, content, source_label, attachment_url, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, in.ID, in.ProjectID, in.FlowID, string(in.Type), in.Content, in.SourceLabel, in.AttachmentURL,
		in.CreatedAt.Format(timeLayout), in.UpdatedAt.Format(timeLayout))
	if err != nil {
		return fmt.Errorf("insert input: %w", err)
	}
	return nil
}

// UpdateInput implements reqflow.Store.
func (s *SQLiteStore) UpdateInput(ctx context.Context, in *reqflow.ResearchInput) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return reqflow.ErrStoreClosed
	}

	in.UpdatedAt = time.Now().UTC()
	res, err := s.db.ExecContext(ctx, `
		UPDATE research_inputs
		SET type = ?, content = ?, source_label = ?, attachment_url = ?, updated_at = ?
		WHERE id = ?
	`, string(in.Type), in.Content, in.SourceLabel, in.AttachmentURL,
		in.UpdatedAt.Format(timeLayout), in.ID)
	if err != nil {
		return fmt.Errorf("update input: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return reqflow.ErrNotFound
	}
	return nil
}

// DeleteInput implements reqflow.Store.
func (s *SQLiteStore) DeleteInput(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return reqflow.ErrStoreClosed
	}
	if _, err := s.db.ExecContext(ctx, `DELETE FROM research_inputs WHERE id = ?`, id); err != nil {
		return fmt.Errorf("delete input: %w", err)
	}
	return nil
}

// ListInputs implements reqflow.Store.
func (s *SQLiteStore) ListInputs(ctx context.Context, flowID string) ([]reqflow.ResearchInput, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return nil, reqflow.ErrStoreClosed
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT id, project_id, flow_id, type, content, source_label, attachment_url, created_at, updated_at
		FROM research_inputs WHERE flow_id = ? ORDER BY created_at, id
	`, flowID)
	if err != nil {
		return nil, fmt.Errorf("list inputs: %w", err)
	}
	defer rows.Close()

	out := []reqflow.ResearchInput{}
	for rows.Next() {
		var in reqflow.ResearchInput
		var created, updated string
		if err := rows.Scan(&in.ID, &in.ProjectID, &in.FlowID, (*string)(&in.Type),
			&in.Content, &in.SourceLabel, &in.AttachmentURL, &created, &updated); err != nil {
			return nil, fmt.Errorf("scan input: %w", err)
		}
		in.CreatedAt = parseTime(created)
		in.UpdatedAt = parseTime(updated)
		out = append(out, in)
	}
	return out, rows.Err()
}

// ListRequirements implements reqflow.Store.
func (s *SQLiteStore) ListRequirements(ctx context.Context, flowID string) ([]reqflow.Requirement, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return nil, reqflow.ErrStoreClosed
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT id, project_id, flow_id, source_input_ids, business_opportunity, user_story,
		       acceptance_criteria, dfv_tag, status, created_at, updated_at
		FROM requirements WHERE flow_id = ? ORDER BY created_at, id
	`, flowID)
	if err != nil {
		return nil, fmt.Errorf("list requirements: %w", err)
	}
	defer rows.Close()
	return scanRequirements(rows)
}

// InsertRequirements implements reqflow.Store.
// The batch runs inside one transaction: all rows land or none do.
func (s *SQLiteStore) InsertRequirements(ctx context.Context, reqs []reqflow.Requirement) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return reqflow.ErrStoreClosed
	}
	if len(reqs) == 0 {
		return nil
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin insert requirements: %w", err)
	}
	defer tx.Rollback()

	for i := range reqs {
		r := &reqs[i]
		stampRequirement(r)
		sources, err := json.Marshal(r.SourceInputIDs)
		if err != nil {
			return fmt.Errorf("encode source ids: %w", err)
		}
		criteria, err := json.Marshal(r.AcceptanceCriteria)
		if err != nil {
			return fmt.Errorf("encode acceptance criteria: %w", err)
		}
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO requirements (id, project_id, flow_id, source_input_ids, business_opportunity,
			                          user_story, acceptance_criteria, dfv_tag, status, created_at, updated_at)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		`, r.ID, r.ProjectID, r.FlowID, string(sources), r.BusinessOpportunity, r.UserStory,
			string(criteria), string(r.DFVTag), string(r.Status),
			r.CreatedAt.Format(timeLayout), r.UpdatedAt.Format(timeLayout)); err != nil {
			return fmt.Errorf("insert requirement: %w", err)
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit insert requirements: %w", err)
	}
	return nil
}

// DeleteRequirementsBySource implements reqflow.Store.
// Source ids are stored as a JSON array, so containment is resolved in Go
// and the matching rows deleted in one statement.
func (s *SQLiteStore) DeleteRequirementsBySource(ctx context.Context, inputID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return reqflow.ErrStoreClosed
	}

	rows, err := s.db.QueryContext(ctx, `SELECT id, source_input_ids FROM requirements`)
	if err != nil {
		return fmt.Errorf("scan requirement sources: %w", err)
	}
	var doomed []string
	for rows.Next() {
		var id, sources string
		if err := rows.Scan(&id, &sources); err != nil {
			rows.Close()
			return fmt.Errorf("scan requirement sources: %w", err)
		}
		var ids []string
		if err := json.Unmarshal([]byte(sources), &ids); err != nil {
			continue
		}
		for _, sid := range ids {
			if sid == inputID {
				doomed = append(doomed, id)
				break
			}
		}
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return fmt.Errorf("scan requirement sources: %w", err)
	}
	if len(doomed) == 0 {
		return nil
	}

	placeholders := strings.Repeat("?,", len(doomed))
	args := make([]any, len(doomed))
	for i, id := range doomed {
		args[i] = id
	}
	query := fmt.Sprintf(`DELETE FROM requirements WHERE id IN (%s)`, placeholders[:len(placeholders)-1])
	if _, err := s.db.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("delete requirements by source: %w", err)
	}
	return nil
}

// UpdateRequirementStatus implements reqflow.Store.
func (s *SQLiteStore) UpdateRequirementStatus(ctx context.Context, id string, status reqflow.RequirementStatus) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return reqflow.ErrStoreClosed
	}

	res, err := s.db.ExecContext(ctx, `
		UPDATE requirements SET status = ?, updated_at = ? WHERE id = ?
	`, string(status), time.Now().UTC().Format(timeLayout), id)
	if err != nil {
		return fmt.Errorf("update requirement status: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return reqflow.ErrNotFound
	}
	return nil
}

// CountRequirementsBySource implements reqflow.Store.
func (s *SQLiteStore) CountRequirementsBySource(ctx context.Context, inputID string) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return 0, reqflow.ErrStoreClosed
	}

	rows, err := s.db.QueryContext(ctx, `SELECT source_input_ids FROM requirements`)
	if err != nil {
		return 0, fmt.Errorf("count requirements by source: %w", err)
	}
	defer rows.Close()

	count := 0
	for rows.Next() {
		var sources string
		if err := rows.Scan(&sources); err != nil {
			return 0, fmt.Errorf("count requirements by source: %w", err)
		}
		var ids []string
		if err := json.Unmarshal([]byte(sources), &ids); err != nil {
			continue
		}
		for _, sid := range ids {
			if sid == inputID {
				count++
				break
			}
		}
	}
	return count, rows.Err()
}

// ListNodes implements reqflow.Store.
func (s *SQLiteStore) ListNodes(ctx context.Context, flowID string) ([]reqflow.FlowNode, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return nil, reqflow.ErrStoreClosed
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT id, flow_id, type, label, position_x, position_y, created_at, updated_at
		FROM flow_nodes WHERE flow_id = ? ORDER BY created_at, id
	`, flowID)
	if err != nil {
		return nil, fmt.Errorf("list nodes: %w", err)
	}
	defer rows.Close()

	out := []reqflow.FlowNode{}
	for rows.Next() {
		var n reqflow.FlowNode
		var created, updated string
		if err := rows.Scan(&n.ID, &n.FlowID, (*string)(&n.Type), &n.Label, &n.X, &n.Y, &created, &updated); err != nil {
			return nil, fmt.Errorf("scan node: %w", err)
		}
		n.CreatedAt = parseTime(created)
		n.UpdatedAt = parseTime(updated)
		out = append(out, n)
	}
	return out, rows.Err()
}

// ListEdges implements reqflow.Store.
func (s *SQLiteStore) ListEdges(ctx context.Context, flowID string) ([]reqflow.FlowEdge, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return nil, reqflow.ErrStoreClosed
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT id, flow_id, source_node_id, target_node_id, label, created_at
		FROM flow_edges WHERE flow_id = ? ORDER BY created_at, id
	`, flowID)
	if err != nil {
		return nil, fmt.Errorf("list edges: %w", err)
	}
	defer rows.Close()

	out := []reqflow.FlowEdge{}
	for rows.Next() {
		var e reqflow.FlowEdge
		var created string
		if err := rows.Scan(&e.ID, &e.FlowID, &e.SourceNodeID, &e.TargetNodeID, &e.Label, &created); err != nil {
			return nil, fmt.Errorf("scan edge: %w", err)
		}
		e.CreatedAt = parseTime(created)
		out = append(out, e)
	}
	return out, rows.Err()
}

// InsertNode implements reqflow.Store.
func (s *SQLiteStore) InsertNode(ctx context.Context, n *reqflow.FlowNode) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
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
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO flow_nodes (id, flow_id, type, label, position_x, position_y, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`, n.ID, n.FlowID, string(n.Type), n.Label, n.X, n.Y,
		n.CreatedAt.Format(timeLayout), n.UpdatedAt.Format(timeLayout))
	if err != nil {
		return fmt.Errorf("insert node: %w", err)
	}
	return nil
}

// InsertEdge implements reqflow.Store.
func (s *SQLiteStore) InsertEdge(ctx context.Context, e *reqflow.FlowEdge) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return reqflow.ErrStoreClosed
	}

	if e.ID == "" {
		e.ID = uuid.NewString()
	}
	if e.CreatedAt.IsZero() {
		e.CreatedAt = time.Now().UTC()
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO flow_edges (id, flow_id, source_node_id, target_node_id, label, created_at)
		VALUES (?, ?, ?, ?, ?, ?)
	`, e.ID, e.FlowID, e.SourceNodeID, e.TargetNodeID, e.Label, e.CreatedAt.Format(timeLayout))
	if err != nil {
		return fmt.Errorf("insert edge: %w", err)
	}
	return nil
}

// UpdateNodePosition implements reqflow.Store.
func (s *SQLiteStore) UpdateNodePosition(ctx context.Context, nodeID string, x, y float64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return reqflow.ErrStoreClosed
	}

	res, err := s.db.ExecContext(ctx, `
		UPDATE flow_nodes SET position_x = ?, position_y = ?, updated_at = ? WHERE id = ?
	`, x, y, time.Now().UTC().Format(timeLayout), nodeID)
	if err != nil {
		return fmt.Errorf("update node position: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return reqflow.ErrNotFound
	}
	return nil
}

// DeleteEdge implements reqflow.Store.
func (s *SQLiteStore) DeleteEdge(ctx context.Context, edgeID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return reqflow.ErrStoreClosed
	}
	if _, err := s.db.ExecContext(ctx, `DELETE FROM flow_edges WHERE id = ?`, edgeID); err != nil {
		return fmt.Errorf("delete edge: %w", err)
	}
	return nil
}

// ClearFlowGraph implements reqflow.Store.
func (s *SQLiteStore) ClearFlowGraph(ctx context.Context, flowID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return reqflow.ErrStoreClosed
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin clear flow graph: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM flow_edges WHERE flow_id = ?`, flowID); err != nil {
		return fmt.Errorf("clear edges: %w", err)
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM flow_nodes WHERE flow_id = ?`, flowID); err != nil {
		return fmt.Errorf("clear nodes: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit clear flow graph: %w", err)
	}
	return nil
}

// Close implements reqflow.Store.
func (s *SQLiteStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil
	}
	s.closed = true
	return s.db.Close()
}

func scanRequirements(rows *sql.Rows) ([]reqflow.Requirement, error) {
	out := []reqflow.Requirement{}
	for rows.Next() {
		var r reqflow.Requirement
		var sources, criteria, created, updated string
		if err := rows.Scan(&r.ID, &r.ProjectID, &r.FlowID, &sources, &r.BusinessOpportunity,
			&r.UserStory, &criteria, (*string)(&r.DFVTag), (*string)(&r.Status), &created, &updated); err != nil {
			return nil, fmt.Errorf("scan requirement: %w", err)
		}
		if err := json.Unmarshal([]byte(sources), &r.SourceInputIDs); err != nil {
			return nil, fmt.Errorf("decode source ids: %w", err)
		}
		if err := json.Unmarshal([]byte(criteria), &r.AcceptanceCriteria); err != nil {
			return nil, fmt.Errorf("decode acceptance criteria: %w", err)
		}
		r.CreatedAt = parseTime(created)
		r.UpdatedAt = parseTime(updated)
		out = append(out, r)
	}
	return out, rows.Err()
}

func parseTime(s string) time.Time {
	t, _ := time.Parse(timeLayout, s)
	return t
}
