// Package store contains the run history layer for gradefix.
package store

import (
	"fmt"
	"time"

	"github.com/google/uuid"

	"gradefix/internal/pipeline"
)

// Run is one finished correction run as kept in history.
type Run struct {
	ID         uuid.UUID
	CourseID   int64
	Kind       string
	Mode       string
	ItemID     int64
	Outcome    pipeline.Outcome
	Attempted  int
	Updated    int
	Failed     int
	Skipped    int
	Errors     []string
	Suppressed int
	StartedAt  time.Time
	FinishedAt time.Time
}

// NewRun converts a run summary into a history record.
func NewRun(summary pipeline.Summary) (*Run, error) {
	id, err := uuid.Parse(summary.RunID)
	if err != nil {
		return nil, fmt.Errorf("invalid run id %q: %w", summary.RunID, err)
	}
	errs := summary.Errors
	if errs == nil {
		errs = []string{}
	}
	return &Run{
		ID:         id,
		CourseID:   summary.CourseID,
		Kind:       summary.Kind,
		Mode:       summary.Mode,
		ItemID:     summary.ItemID,
		Outcome:    summary.Outcome,
		Attempted:  summary.Attempted,
		Updated:    summary.Updated,
		Failed:     summary.Failed,
		Skipped:    summary.Skipped,
		Errors:     errs,
		Suppressed: summary.Suppressed,
		StartedAt:  summary.StartedAt,
		FinishedAt: summary.FinishedAt,
	}, nil
}

// Summary converts the record back into a run summary.
func (r Run) Summary() pipeline.Summary {
	return pipeline.Summary{
		RunID:      r.ID.String(),
		CourseID:   r.CourseID,
		Kind:       r.Kind,
		Mode:       r.Mode,
		ItemID:     r.ItemID,
		Attempted:  r.Attempted,
		Updated:    r.Updated,
		Failed:     r.Failed,
		Skipped:    r.Skipped,
		Errors:     r.Errors,
		Suppressed: r.Suppressed,
		Outcome:    r.Outcome,
		StartedAt:  r.StartedAt,
		FinishedAt: r.FinishedAt,
	}
}

// RunFilter narrows a history listing.
type RunFilter struct {
	// CourseID limits the listing to one course. Zero lists all courses.
	CourseID int64
	Limit    int
}
