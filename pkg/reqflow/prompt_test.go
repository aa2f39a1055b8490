package reqflow

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSynthesisPrompt(t *testing.T) {
	in := &ResearchInput{
		Type:        InputInterviewNotes,
		SourceLabel: "March user interviews",
		Content:     "Shoppers abandon carts at the shipping step.",
	}
	prompt := synthesisPrompt(in)

	assert.Contains(t, prompt, "interview_notes")
	assert.Contains(t, prompt, "March user interviews")
	assert.Contains(t, prompt, "Shoppers abandon carts")
	assert.Contains(t, prompt, "JSON array")
	assert.Contains(t, prompt, "Never invent requirements")

	// No source line when the label is empty.
	in.SourceLabel = ""
	assert.NotContains(t, synthesisPrompt(in), "Source:")
}

func TestRequirementSummary(t *testing.T) {
	r := Requirement{
		BusinessOpportunity: "Reduce abandonment",
		UserStory:           "As a shopper, I want early shipping costs",
		AcceptanceCriteria:  []string{"shown on cart page", "updates with address"},
		DFVTag:              TagDesirability,
	}
	summary := requirementSummary(r)
	assert.Contains(t, summary, "Reduce abandonment")
	assert.Contains(t, summary, "shown on cart page; updates with address")
	assert.Contains(t, summary, "desirability")

	r.DFVTag = TagNone
	assert.Contains(t, requirementSummary(r), "unclassified")
}

func TestGenerationPrompt(t *testing.T) {
	reqs := []Requirement{
		{UserStory: "story one", AcceptanceCriteria: []string{"a"}},
		{UserStory: "story two", AcceptanceCriteria: []string{"b"}},
	}
	prompt := generationPrompt(reqs)

	assert.Contains(t, prompt, "story one")
	assert.Contains(t, prompt, "story two")
	assert.Contains(t, prompt, "5 to 15 nodes")
	assert.Contains(t, prompt, "question mark")
	// Both requirements render as list entries.
	assert.Equal(t, 2, strings.Count(prompt, "- Opportunity:"))
}
