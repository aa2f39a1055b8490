// Package schema is the trust boundary between the generation service and
// the rest of the system. Raw model output enters as text and leaves as a
// typed draft value, or not at all. Parsing is strict: one fence marker is
// tolerated on each side, nothing else is recovered.
package schema

import (
	"encoding/json"
	"strings"

	"github.com/reqflow/reqflow/pkg/reqflow/errors"
)

// DFV tags a requirement draft can carry. Anything else is coerced to "".
const (
	TagDesirability = "desirability"
	TagFeasibility  = "feasibility"
	TagViability    = "viability"
)

// Node kinds a flow draft can carry.
const (
	KindStep     = "step"
	KindDecision = "decision"
)

// RequirementDraft is one extracted requirement before persistence.
type RequirementDraft struct {
	BusinessOpportunity string   `json:"business_opportunity"`
	UserStory           string   `json:"user_story"`
	AcceptanceCriteria  []string `json:"acceptance_criteria"`
	DFVTag              string   `json:"dfv_tag"`
}

// NodeDraft is one abstract flow node before layout and persistence.
// ID is the temporary identifier assigned by the generation service.
type NodeDraft struct {
	ID    string `json:"id"`
	Type  string `json:"type"`
	Label string `json:"label"`
}

// EdgeDraft connects two NodeDrafts by temporary identifier.
type EdgeDraft struct {
	Source string  `json:"source"`
	Target string  `json:"target"`
	Label  *string `json:"label"`
}

// FlowDraft is the abstract graph produced by one generation call.
type FlowDraft struct {
	Nodes []NodeDraft
	Edges []EdgeDraft
}

// ParseRequirements validates raw generation output into requirement drafts.
// The top-level value must be a JSON array; each element must carry a
// non-empty user_story and at least one acceptance criterion. Unknown DFV
// tags are coerced to empty (unclassified).
func ParseRequirements(raw string) ([]RequirementDraft, error) {
	text := StripFences(raw)

	var drafts []RequirementDraft
	if err := json.Unmarshal([]byte(text), &drafts); err != nil {
		return nil, &errors.ShapeError{Raw: raw, Message: "expected a JSON array of requirements: " + err.Error()}
	}

	for i := range drafts {
		d := &drafts[i]
		d.BusinessOpportunity = strings.TrimSpace(d.BusinessOpportunity)
		d.UserStory = strings.TrimSpace(d.UserStory)
		if d.UserStory == "" {
			return nil, &errors.ShapeError{Raw: raw, Message: "requirement missing user_story"}
		}
		criteria := d.AcceptanceCriteria[:0]
		for _, c := range d.AcceptanceCriteria {
			if c = strings.TrimSpace(c); c != "" {
				criteria = append(criteria, c)
			}
		}
		d.AcceptanceCriteria = criteria
		if len(d.AcceptanceCriteria) == 0 {
			return nil, &errors.ShapeError{Raw: raw, Message: "requirement missing acceptance_criteria"}
		}
		switch d.DFVTag = strings.ToLower(strings.TrimSpace(d.DFVTag)); d.DFVTag {
		case TagDesirability, TagFeasibility, TagViability, "":
		default:
			d.DFVTag = ""
		}
	}
	return drafts, nil
}

// ParseFlow validates raw generation output into a flow draft.
// Both the nodes and edges keys must be present. Node ids must be non-empty
// and unique within the response; unknown node types are coerced to step.
func ParseFlow(raw string) (*FlowDraft, error) {
	text := StripFences(raw)

	var envelope struct {
		Nodes *[]NodeDraft `json:"nodes"`
		Edges *[]EdgeDraft `json:"edges"`
	}
	if err := json.Unmarshal([]byte(text), &envelope); err != nil {
		return nil, &errors.ShapeError{Raw: raw, Message: "expected a JSON object with nodes and edges: " + err.Error()}
	}
	if envelope.Nodes == nil {
		return nil, &errors.ShapeError{Raw: raw, Message: "flow response missing nodes"}
	}
	if envelope.Edges == nil {
		return nil, &errors.ShapeError{Raw: raw, Message: "flow response missing edges"}
	}

	draft := &FlowDraft{Nodes: *envelope.Nodes, Edges: *envelope.Edges}

	seen := make(map[string]bool, len(draft.Nodes))
	for i := range draft.Nodes {
		n := &draft.Nodes[i]
		n.ID = strings.TrimSpace(n.ID)
		if n.ID == "" {
			return nil, &errors.ShapeError{Raw: raw, Message: "flow node missing id"}
		}
		if seen[n.ID] {
			return nil, &errors.ShapeError{Raw: raw, Message: "duplicate flow node id: " + n.ID}
		}
		seen[n.ID] = true
		if n.Type = strings.ToLower(strings.TrimSpace(n.Type)); n.Type != KindDecision {
			n.Type = KindStep
		}
		n.Label = strings.TrimSpace(n.Label)
	}

	for i := range draft.Edges {
		e := &draft.Edges[i]
		e.Source = strings.TrimSpace(e.Source)
		e.Target = strings.TrimSpace(e.Target)
		if e.Source == "" || e.Target == "" {
			return nil, &errors.ShapeError{Raw: raw, Message: "flow edge missing source or target"}
		}
	}
	return draft, nil
}

// StripFences removes a single leading and trailing markdown fence line.
// The generation service is told not to use fences but wraps its output
// anyway often enough that tolerating one pair is worth it.
func StripFences(raw string) string {
	text := strings.TrimSpace(raw)

	if strings.HasPrefix(text, "```") {
		if idx := strings.IndexByte(text, '\n'); idx >= 0 {
			text = text[idx+1:]
		} else {
			text = strings.TrimPrefix(text, "```")
		}
	}
	if strings.HasSuffix(text, "```") {
		text = text[:len(text)-3]
	}
	return strings.TrimSpace(text)
}
