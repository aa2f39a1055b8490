package reqflow_test

import (
	"context"
	"errors"

	"github.com/reqflow/reqflow/pkg/reqflow"
	"github.com/reqflow/reqflow/pkg/reqflow/llm"
)

// mockClient replays queued responses in order. A queued error is returned
// in place of its response. Requests are recorded for prompt assertions.
type mockClient struct {
	responses []string
	errs      []error
	calls     []llm.Request
}

func (m *mockClient) Generate(_ context.Context, req llm.Request) (*llm.Response, error) {
	i := len(m.calls)
	m.calls = append(m.calls, req)
	if i < len(m.errs) && m.errs[i] != nil {
		return nil, m.errs[i]
	}
	if i >= len(m.responses) {
		return nil, errors.New("mockClient: no response queued")
	}
	return &llm.Response{Text: m.responses[i], Model: req.Model}, nil
}

// flakyStore wraps a real Store and lets individual operations be forced
// to fail, so best-effort paths can be exercised.
type flakyStore struct {
	reqflow.Store

	insertReqsErr  error
	failNodeLabels map[string]bool
	insertEdgeErr  error
}

func (f *flakyStore) InsertRequirements(ctx context.Context, reqs []reqflow.Requirement) error {
	if f.insertReqsErr != nil {
		return f.insertReqsErr
	}
	return f.Store.InsertRequirements(ctx, reqs)
}

func (f *flakyStore) InsertNode(ctx context.Context, n *reqflow.FlowNode) error {
	if f.failNodeLabels[n.Label] {
		return errors.New("forced node insert failure")
	}
	return f.Store.InsertNode(ctx, n)
}

func (f *flakyStore) InsertEdge(ctx context.Context, e *reqflow.FlowEdge) error {
	if f.insertEdgeErr != nil {
		return f.insertEdgeErr
	}
	return f.Store.InsertEdge(ctx, e)
}

// seedInput stores a research input and returns it.
func seedInput(ctx context.Context, st reqflow.Store, flowID, content string) (*reqflow.ResearchInput, error) {
	in := &reqflow.ResearchInput{
		FlowID:  flowID,
		Type:    reqflow.InputInterviewNotes,
		Content: content,
	}
	if err := st.InsertInput(ctx, in); err != nil {
		return nil, err
	}
	return in, nil
}

// seedRequirements stores n minimal requirements sourced from inputID.
func seedRequirements(ctx context.Context, st reqflow.Store, flowID, inputID string, n int) error {
	reqs := make([]reqflow.Requirement, n)
	for i := range reqs {
		reqs[i] = reqflow.Requirement{
			FlowID:             flowID,
			SourceInputIDs:     []string{inputID},
			UserStory:          "As a shopper, I want something",
			AcceptanceCriteria: []string{"it works"},
			Status:             reqflow.StatusDraft,
		}
	}
	return st.InsertRequirements(ctx, reqs)
}
