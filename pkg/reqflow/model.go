package reqflow

import "time"

// InputType classifies where a research input came from.
type InputType string

// Research input types.
const (
	InputInterviewNotes InputType = "interview_notes"
	InputTranscript     InputType = "transcript"
	InputScreenshot     InputType = "screenshot"
	InputBusinessReqs   InputType = "business_requirements"
	InputOther          InputType = "other"
)

// MergeMode controls how synthesis treats requirements previously produced
// from the same input.
type MergeMode string

// Merge modes.
const (
	// ModeAppend keeps existing requirements and adds the new batch.
	ModeAppend MergeMode = "append"

	// ModeReplace deletes every requirement sourced from the input before
	// inserting the new batch.
	ModeReplace MergeMode = "replace"
)

// DFVTag classifies a requirement's primary lens.
type DFVTag string

// DFV tags. TagNone marks an unclassified requirement.
const (
	TagNone         DFVTag = ""
	TagDesirability DFVTag = "desirability"
	TagFeasibility  DFVTag = "feasibility"
	TagViability    DFVTag = "viability"
)

// RequirementStatus is the requirement lifecycle state.
type RequirementStatus string

// Requirement statuses. Synthesis always inserts as StatusDraft.
const (
	StatusDraft      RequirementStatus = "draft"
	StatusActive     RequirementStatus = "active"
	StatusStale      RequirementStatus = "stale"
	StatusUnanchored RequirementStatus = "unanchored"
)

// NodeType is the diagram node kind.
type NodeType string

// Node kinds. Steps render as rectangles, decisions as diamonds; the two
// carry different bounding-box heights through layout.
const (
	NodeStep     NodeType = "step"
	NodeDecision NodeType = "decision"
)

// ResearchInput is one free-text research artifact attached to a flow.
// Content, type, and source label are editable; UpdatedAt advances on edit.
type ResearchInput struct {
	ID            string
	ProjectID     string
	FlowID        string
	Type          InputType
	Content       string
	SourceLabel   string
	AttachmentURL string
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

// Requirement is a structured, testable statement of user need derived from
// one or more research inputs. AcceptanceCriteria and UserStory are
// non-empty for every persisted requirement.
type Requirement struct {
	ID                  string
	ProjectID           string
	FlowID              string
	SourceInputIDs      []string
	BusinessOpportunity string
	UserStory           string
	AcceptanceCriteria  []string
	DFVTag              DFVTag
	Status              RequirementStatus
	CreatedAt           time.Time
	UpdatedAt           time.Time
}

// HasSource reports whether the requirement traces to the given input.
func (r *Requirement) HasSource(inputID string) bool {
	for _, id := range r.SourceInputIDs {
		if id == inputID {
			return true
		}
	}
	return false
}

// ModifiedSource reports whether any source input was edited after this
// requirement was created. It is a derived staleness signal for the caller
// UI, never stored and never enforced.
func (r *Requirement) ModifiedSource(inputs []ResearchInput) bool {
	for _, in := range inputs {
		if r.HasSource(in.ID) && in.UpdatedAt.After(r.CreatedAt) {
			return true
		}
	}
	return false
}

// OrphanedRequirements returns the requirements none of whose source inputs
// still exist. Deleting an input never cascades; the caller surfaces these
// as a warning instead.
func OrphanedRequirements(reqs []Requirement, inputs []ResearchInput) []Requirement {
	alive := make(map[string]bool, len(inputs))
	for _, in := range inputs {
		alive[in.ID] = true
	}

	var orphans []Requirement
	for _, r := range reqs {
		orphaned := true
		for _, id := range r.SourceInputIDs {
			if alive[id] {
				orphaned = false
				break
			}
		}
		if orphaned {
			orphans = append(orphans, r)
		}
	}
	return orphans
}

// FlowNode is one persisted diagram node. X and Y are top-left anchored.
type FlowNode struct {
	ID        string
	FlowID    string
	Type      NodeType
	Label     string
	X         float64
	Y         float64
	CreatedAt time.Time
	UpdatedAt time.Time
}

// FlowEdge is one persisted diagram edge. Label is nil for edges leaving a
// step node and a branch condition for edges leaving a decision node; that
// rule is enforced at generation time only, not on hand edits.
type FlowEdge struct {
	ID           string
	FlowID       string
	SourceNodeID string
	TargetNodeID string
	Label        *string
	CreatedAt    time.Time
}
