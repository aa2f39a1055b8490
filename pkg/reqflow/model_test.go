package reqflow_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/reqflow/reqflow/pkg/reqflow"
)

func TestRequirement_HasSource(t *testing.T) {
	r := reqflow.Requirement{SourceInputIDs: []string{"a", "b"}}
	assert.True(t, r.HasSource("a"))
	assert.True(t, r.HasSource("b"))
	assert.False(t, r.HasSource("c"))

	empty := reqflow.Requirement{}
	assert.False(t, empty.HasSource("a"))
}

func TestRequirement_ModifiedSource(t *testing.T) {
	created := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	r := reqflow.Requirement{SourceInputIDs: []string{"in-1"}, CreatedAt: created}

	t.Run("source edited after creation", func(t *testing.T) {
		inputs := []reqflow.ResearchInput{{ID: "in-1", UpdatedAt: created.Add(time.Hour)}}
		assert.True(t, r.ModifiedSource(inputs))
	})

	t.Run("source untouched since creation", func(t *testing.T) {
		inputs := []reqflow.ResearchInput{{ID: "in-1", UpdatedAt: created.Add(-time.Hour)}}
		assert.False(t, r.ModifiedSource(inputs))
	})

	t.Run("unrelated input edits are ignored", func(t *testing.T) {
		inputs := []reqflow.ResearchInput{{ID: "other", UpdatedAt: created.Add(time.Hour)}}
		assert.False(t, r.ModifiedSource(inputs))
	})

	t.Run("no inputs", func(t *testing.T) {
		assert.False(t, r.ModifiedSource(nil))
	})
}

func TestOrphanedRequirements(t *testing.T) {
	inputs := []reqflow.ResearchInput{{ID: "in-1"}}
	reqs := []reqflow.Requirement{
		{ID: "r1", SourceInputIDs: []string{"in-1"}},
		{ID: "r2", SourceInputIDs: []string{"in-gone"}},
		{ID: "r3", SourceInputIDs: []string{"in-gone", "in-1"}},
	}

	orphans := reqflow.OrphanedRequirements(reqs, inputs)
	// Only r2 lost every source; r3 still traces to a live input.
	if assert.Len(t, orphans, 1) {
		assert.Equal(t, "r2", orphans[0].ID)
	}

	assert.Empty(t, reqflow.OrphanedRequirements(nil, inputs))
}
