package reqflow

import (
	"fmt"
	"strings"
)

// synthesisPrompt builds the single prompt for one requirement extraction
// call. The service must answer with a bare JSON array; the schema package
// is the enforcement point for that shape.
func synthesisPrompt(in *ResearchInput) string {
	var b strings.Builder

	b.WriteString("You are extracting product requirements from research material.\n\n")
	fmt.Fprintf(&b, "Research input type: %s\n", in.Type)
	if in.SourceLabel != "" {
		fmt.Fprintf(&b, "Source: %s\n", in.SourceLabel)
	}
	b.WriteString("\nMaterial:\n")
	b.WriteString(in.Content)
	b.WriteString("\n\n")

	b.WriteString(`Extract all distinct requirements implied by this material. Never invent requirements the material does not support. Respond with ONLY a JSON array, no prose and no markdown fences. Each element must have exactly these fields:
- "business_opportunity": one sentence on the opportunity this addresses
- "user_story": "As a ..., I want ..., so that ..." form
- "acceptance_criteria": array of testable criteria strings, at least one
- "dfv_tag": "desirability", "feasibility", "viability", or null

If the material implies no requirements, respond with [].`)

	return b.String()
}

// requirementSummary renders one requirement as a compact text block for
// the flow generation prompt.
func requirementSummary(r Requirement) string {
	tag := string(r.DFVTag)
	if tag == "" {
		tag = "unclassified"
	}
	return fmt.Sprintf("- Opportunity: %s\n  Story: %s\n  Criteria: %s\n  Lens: %s",
		r.BusinessOpportunity, r.UserStory, strings.Join(r.AcceptanceCriteria, "; "), tag)
}

// generationPrompt builds the single prompt for one flow generation call.
func generationPrompt(reqs []Requirement) string {
	var b strings.Builder

	b.WriteString("You are designing a user flow diagram from product requirements.\n\nRequirements:\n")
	for _, r := range reqs {
		b.WriteString(requirementSummary(r))
		b.WriteString("\n")
	}
	b.WriteString("\n")

	b.WriteString(`Design the user's traversal through the product: the steps a user takes, not the requirements restated. Respond with ONLY a JSON object, no prose and no markdown fences, shaped as:
{"nodes": [{"id": "n1", "type": "step", "label": "..."}], "edges": [{"source": "n1", "target": "n2", "label": null}]}

Rules:
- 5 to 15 nodes
- "type" is "step" for a linear action or "decision" for a branching choice
- a decision node's label must end in a question mark
- every edge leaving a decision node must have a non-null label naming the branch condition (e.g. "Yes", "No")
- every edge leaving a step node must have a null label
- node ids are short temporary strings, unique within this response`)

	return b.String()
}
