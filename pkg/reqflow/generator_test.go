package reqflow_test

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/reqflow/reqflow/pkg/reqflow"
	rferrors "github.com/reqflow/reqflow/pkg/reqflow/errors"
	"github.com/reqflow/reqflow/pkg/reqflow/store"
)

const checkoutFlowJSON = `{
  "nodes": [
    {"id": "n1", "type": "step", "label": "Open cart"},
    {"id": "n2", "type": "decision", "label": "Shipping address known?"},
    {"id": "n3", "type": "step", "label": "Show shipping cost"}
  ],
  "edges": [
    {"source": "n1", "target": "n2"},
    {"source": "n2", "target": "n3", "label": "Yes"}
  ]
}`

func TestGenerate_BuildsFlowFromRequirements(t *testing.T) {
	ctx := context.Background()
	st := store.NewMemoryStore()
	defer st.Close()

	require.NoError(t, seedRequirements(ctx, st, "flow-1", "in-1", 2))

	client := &mockClient{responses: []string{checkoutFlowJSON}}
	gen := reqflow.NewGenerator(st, client)

	result, err := gen.Generate(ctx, "flow-1")
	require.NoError(t, err)
	assert.Equal(t, 3, result.NodesValidated)
	assert.Equal(t, 3, result.NodesInserted)
	assert.Equal(t, 2, result.EdgesInserted)
	assert.Equal(t, 0, result.EdgesDropped)

	nodes, err := st.ListNodes(ctx, "flow-1")
	require.NoError(t, err)
	require.Len(t, nodes, 3)

	nodeIDs := map[string]reqflow.FlowNode{}
	for _, n := range nodes {
		require.NotEmpty(t, n.ID)
		nodeIDs[n.ID] = n
	}

	edges, err := st.ListEdges(ctx, "flow-1")
	require.NoError(t, err)
	require.Len(t, edges, 2)

	// Every stored edge references stored nodes, not the response's temp ids.
	labeled := 0
	for _, e := range edges {
		_, okS := nodeIDs[e.SourceNodeID]
		_, okT := nodeIDs[e.TargetNodeID]
		assert.True(t, okS && okT)
		if e.Label != nil {
			labeled++
			assert.Equal(t, "Yes", *e.Label)
		}
	}
	assert.Equal(t, 1, labeled)
}

func TestGenerate_LayoutIsTopToBottom(t *testing.T) {
	ctx := context.Background()
	st := store.NewMemoryStore()
	defer st.Close()

	require.NoError(t, seedRequirements(ctx, st, "flow-1", "in-1", 1))

	client := &mockClient{responses: []string{checkoutFlowJSON}}
	gen := reqflow.NewGenerator(st, client)
	_, err := gen.Generate(ctx, "flow-1")
	require.NoError(t, err)

	nodes, err := st.ListNodes(ctx, "flow-1")
	require.NoError(t, err)

	byLabel := map[string]reqflow.FlowNode{}
	for _, n := range nodes {
		byLabel[n.Label] = n
	}
	assert.Less(t, byLabel["Open cart"].Y, byLabel["Shipping address known?"].Y)
	assert.Less(t, byLabel["Shipping address known?"].Y, byLabel["Show shipping cost"].Y)
	for _, n := range nodes {
		assert.GreaterOrEqual(t, n.X, 0.0)
	}
}

func TestGenerate_LayoutIsReproducible(t *testing.T) {
	ctx := context.Background()

	positionsOf := func(t *testing.T) map[string][2]float64 {
		st := store.NewMemoryStore()
		defer st.Close()
		require.NoError(t, seedRequirements(ctx, st, "flow-1", "in-1", 1))

		client := &mockClient{responses: []string{checkoutFlowJSON}}
		gen := reqflow.NewGenerator(st, client)
		_, err := gen.Generate(ctx, "flow-1")
		require.NoError(t, err)

		nodes, err := st.ListNodes(ctx, "flow-1")
		require.NoError(t, err)
		out := map[string][2]float64{}
		for _, n := range nodes {
			out[n.Label] = [2]float64{n.X, n.Y}
		}
		return out
	}

	assert.Equal(t, positionsOf(t), positionsOf(t))
}

func TestGenerate_ReplacesPriorGraph(t *testing.T) {
	ctx := context.Background()
	st := store.NewMemoryStore()
	defer st.Close()

	require.NoError(t, seedRequirements(ctx, st, "flow-1", "in-1", 1))

	// A manually added node must not survive regeneration.
	manual := &reqflow.FlowNode{FlowID: "flow-1", Type: reqflow.NodeStep, Label: "Manual leftover"}
	require.NoError(t, st.InsertNode(ctx, manual))

	client := &mockClient{responses: []string{checkoutFlowJSON}}
	gen := reqflow.NewGenerator(st, client)
	_, err := gen.Generate(ctx, "flow-1")
	require.NoError(t, err)

	nodes, err := st.ListNodes(ctx, "flow-1")
	require.NoError(t, err)
	require.Len(t, nodes, 3)
	for _, n := range nodes {
		assert.NotEqual(t, "Manual leftover", n.Label)
	}
}

func TestGenerate_DanglingEdgeDropped(t *testing.T) {
	ctx := context.Background()
	st := store.NewMemoryStore()
	defer st.Close()

	require.NoError(t, seedRequirements(ctx, st, "flow-1", "in-1", 1))

	flow := `{
	  "nodes": [{"id": "n1", "type": "step", "label": "Only node"}],
	  "edges": [{"source": "n1", "target": "ghost"}]
	}`
	client := &mockClient{responses: []string{flow}}
	gen := reqflow.NewGenerator(st, client)

	result, err := gen.Generate(ctx, "flow-1")
	require.NoError(t, err)
	assert.Equal(t, 1, result.NodesInserted)
	assert.Equal(t, 0, result.EdgesInserted)
	assert.Equal(t, 1, result.EdgesDropped)
}

func TestGenerate_NoRequirementsIsInputError(t *testing.T) {
	ctx := context.Background()
	st := store.NewMemoryStore()
	defer st.Close()

	client := &mockClient{}
	gen := reqflow.NewGenerator(st, client)

	_, err := gen.Generate(ctx, "flow-1")
	var ie *rferrors.InputError
	require.ErrorAs(t, err, &ie)
	assert.Empty(t, client.calls)
}

func TestGenerate_ParseFailureLeavesGraphUntouched(t *testing.T) {
	ctx := context.Background()
	st := store.NewMemoryStore()
	defer st.Close()

	require.NoError(t, seedRequirements(ctx, st, "flow-1", "in-1", 1))
	existing := &reqflow.FlowNode{FlowID: "flow-1", Type: reqflow.NodeStep, Label: "Existing"}
	require.NoError(t, st.InsertNode(ctx, existing))

	client := &mockClient{responses: []string{`{"nodes": []}`}}
	gen := reqflow.NewGenerator(st, client)

	_, err := gen.Generate(ctx, "flow-1")
	var se *rferrors.ShapeError
	require.ErrorAs(t, err, &se)

	nodes, err := st.ListNodes(ctx, "flow-1")
	require.NoError(t, err)
	require.Len(t, nodes, 1)
	assert.Equal(t, "Existing", nodes[0].Label)
}

func TestGenerate_NodeInsertFailureIsBestEffort(t *testing.T) {
	ctx := context.Background()
	base := store.NewMemoryStore()
	defer base.Close()
	st := &flakyStore{
		Store:          base,
		failNodeLabels: map[string]bool{"Shipping address known?": true},
	}

	require.NoError(t, seedRequirements(ctx, base, "flow-1", "in-1", 1))

	client := &mockClient{responses: []string{checkoutFlowJSON}}
	gen := reqflow.NewGenerator(st, client)

	result, err := gen.Generate(ctx, "flow-1")
	require.NoError(t, err)
	assert.Equal(t, 3, result.NodesValidated)
	assert.Equal(t, 2, result.NodesInserted)
	// Both edges touch the failed node, so both drop.
	assert.Equal(t, 0, result.EdgesInserted)
	assert.Equal(t, 2, result.EdgesDropped)
}

func TestGenerate_EdgeInsertFailureIsCounted(t *testing.T) {
	ctx := context.Background()
	base := store.NewMemoryStore()
	defer base.Close()
	st := &flakyStore{Store: base, insertEdgeErr: errors.New("forced edge failure")}

	require.NoError(t, seedRequirements(ctx, base, "flow-1", "in-1", 1))

	client := &mockClient{responses: []string{checkoutFlowJSON}}
	gen := reqflow.NewGenerator(st, client)

	result, err := gen.Generate(ctx, "flow-1")
	require.NoError(t, err)
	assert.Equal(t, 3, result.NodesInserted)
	assert.Equal(t, 0, result.EdgesInserted)
	assert.Equal(t, 2, result.EdgesDropped)
}
