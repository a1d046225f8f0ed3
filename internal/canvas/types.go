package canvas

import (
	"encoding/json"
	"time"
)

// Assignment is a gradable assignment as returned by the assignments and
// assignment_groups endpoints.
type Assignment struct {
	ID              int64      `json:"id"`
	Name            string     `json:"name"`
	Published       bool       `json:"published"`
	DueAt           *time.Time `json:"due_at"`
	PointsPossible  float64    `json:"points_possible"`
	SubmissionTypes []string   `json:"submission_types"`
}

// AssignmentGroup groups assignments. The list endpoint embeds the
// assignments when asked with include[]=assignments.
type AssignmentGroup struct {
	ID          int64        `json:"id"`
	Name        string       `json:"name"`
	Assignments []Assignment `json:"assignments"`
}

// Quiz is a classic quiz. AssignmentID links it to the assignment that
// holds its submissions; ungraded surveys have none.
type Quiz struct {
	ID           int64      `json:"id"`
	Title        string     `json:"title"`
	Published    bool       `json:"published"`
	DueAt        *time.Time `json:"due_at"`
	AssignmentID int64      `json:"assignment_id"`
}

// DiscussionTopic is a discussion. Graded discussions carry the linked
// assignment, and with it the due date.
type DiscussionTopic struct {
	ID           int64       `json:"id"`
	Title        string      `json:"title"`
	Published    bool        `json:"published"`
	AssignmentID int64       `json:"assignment_id"`
	Assignment   *Assignment `json:"assignment"`
}

// Submission is one student's submission for one assignment.
type Submission struct {
	ID               int64       `json:"id"`
	AssignmentID     int64       `json:"assignment_id"`
	UserID           int64       `json:"user_id"`
	Late             bool        `json:"late"`
	Missing          bool        `json:"missing"`
	Excused          bool        `json:"excused"`
	Score            *float64    `json:"score"`
	Grade            *string     `json:"grade"`
	SubmittedAt      *time.Time  `json:"submitted_at"`
	LatePolicyStatus *string     `json:"late_policy_status"`
	CachedDueDate    *time.Time  `json:"cached_due_date"`
	WorkflowState    string      `json:"workflow_state"`
	PointsPossible   float64     `json:"points_possible,omitempty"`
	Assignment       *Assignment `json:"assignment,omitempty"`
}

// Points returns the points possible of the submission's assignment,
// preferring the embedded assignment when the response included it.
func (s Submission) Points() float64 {
	if s.Assignment != nil {
		return s.Assignment.PointsPossible
	}
	return s.PointsPossible
}

// LatePolicyChange selects what an update does to late_policy_status.
type LatePolicyChange int

const (
	// LatePolicyUnchanged leaves late_policy_status out of the request.
	LatePolicyUnchanged LatePolicyChange = iota
	// LatePolicyNone sets late_policy_status to "none", which stops the
	// host from applying late or missing penalties.
	LatePolicyNone
	// LatePolicyReset sends late_policy_status null, reverting to the
	// host's computed defaults.
	LatePolicyReset
)

// SubmissionUpdate is the body of a single-submission update.
type SubmissionUpdate struct {
	LatePolicy    LatePolicyChange
	WorkflowState string
}

// MarshalJSON renders the update as {"submission": {...}}.
func (u SubmissionUpdate) MarshalJSON() ([]byte, error) {
	fields := map[string]any{}
	switch u.LatePolicy {
	case LatePolicyNone:
		fields["late_policy_status"] = "none"
	case LatePolicyReset:
		fields["late_policy_status"] = nil
	}
	if u.WorkflowState != "" {
		fields["workflow_state"] = u.WorkflowState
	}
	return json.Marshal(map[string]any{"submission": fields})
}
