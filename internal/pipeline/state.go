package pipeline

import (
	"sync"
	"time"

	"gradefix/pkg/api"
)

// MaxReportedErrors is how many error messages a summary lists verbatim.
const MaxReportedErrors = 5

// Outcome is the terminal state of a run.
type Outcome string

const (
	OutcomeSucceeded       Outcome = "succeeded"
	OutcomeFailed          Outcome = "failed"
	OutcomePartiallyFailed Outcome = "partially_failed"
)

// Summary is the user-facing report of a finished run.
type Summary struct {
	RunID      string    `json:"run_id"`
	CourseID   int64     `json:"course_id"`
	Kind       string    `json:"kind"`
	Mode       string    `json:"mode"`
	ItemID     int64     `json:"item_id,omitempty"`
	Attempted  int       `json:"attempted"`
	Updated    int       `json:"updated"`
	Failed     int       `json:"failed"`
	Skipped    int       `json:"skipped"`
	Errors     []string  `json:"errors"`
	Suppressed int       `json:"suppressed_errors"`
	Outcome    Outcome   `json:"outcome"`
	StartedAt  time.Time `json:"started_at"`
	FinishedAt time.Time `json:"finished_at"`
}

// ErrorCount is the total number of errors, shown or not.
func (s Summary) ErrorCount() int {
	return len(s.Errors) + s.Suppressed
}

// RunState accumulates counters and errors for one run. It is safe for
// concurrent use by the fetch workers.
type RunState struct {
	mu        sync.Mutex
	attempted int
	updated   int
	failed    int
	skipped   int
	errors    []string
}

func newRunState() *RunState {
	return &RunState{}
}

func (s *RunState) attempt() {
	s.mu.Lock()
	s.attempted++
	s.mu.Unlock()
}

func (s *RunState) succeed() {
	s.mu.Lock()
	s.updated++
	s.mu.Unlock()
}

// failWrite records a failed update of one submission.
func (s *RunState) failWrite(message string) {
	s.mu.Lock()
	s.failed++
	s.errors = append(s.errors, message)
	s.mu.Unlock()
}

func (s *RunState) skip() {
	s.mu.Lock()
	s.skipped++
	s.mu.Unlock()
}

func (s *RunState) fail(message string) {
	s.mu.Lock()
	s.errors = append(s.errors, message)
	s.mu.Unlock()
}

// summarize fills the counters of summary and derives the outcome.
func (s *RunState) summarize(summary Summary) Summary {
	s.mu.Lock()
	defer s.mu.Unlock()

	summary.Attempted = s.attempted
	summary.Updated = s.updated
	summary.Failed = s.failed
	summary.Skipped = s.skipped

	shown := min(len(s.errors), MaxReportedErrors)
	summary.Errors = append([]string{}, s.errors[:shown]...)
	summary.Suppressed = len(s.errors) - shown

	switch {
	case len(s.errors) == 0:
		summary.Outcome = OutcomeSucceeded
	case s.updated == 0:
		summary.Outcome = OutcomeFailed
	default:
		summary.Outcome = OutcomePartiallyFailed
	}
	return summary
}

// Report converts the summary to its wire form.
func (s Summary) Report() api.RunSummary {
	errs := s.Errors
	if errs == nil {
		errs = []string{}
	}
	return api.RunSummary{
		RunID:            s.RunID,
		CourseID:         s.CourseID,
		Kind:             s.Kind,
		Mode:             s.Mode,
		ItemID:           s.ItemID,
		Outcome:          string(s.Outcome),
		Attempted:        s.Attempted,
		Updated:          s.Updated,
		Failed:           s.Failed,
		Skipped:          s.Skipped,
		Errors:           errs,
		SuppressedErrors: s.Suppressed,
		StartedAt:        s.StartedAt,
		FinishedAt:       s.FinishedAt,
	}
}
