package store

import (
	"context"

	"gradefix/internal/pipeline"
)

// DefaultListLimit caps history listings that ask for no limit.
const DefaultListLimit = 20

// RunStore persists finished runs.
type RunStore interface {
	// CreateRun inserts a finished run.
	CreateRun(ctx context.Context, run *Run) error

	// ListRuns returns the most recent runs first.
	ListRuns(ctx context.Context, filter RunFilter) ([]Run, error)
}

// Recorder adapts a RunStore to the coordinator's run recorder.
type Recorder struct {
	Runs RunStore
}

func (r Recorder) RecordRun(ctx context.Context, summary pipeline.Summary) error {
	run, err := NewRun(summary)
	if err != nil {
		return err
	}
	return r.Runs.CreateRun(ctx, run)
}
