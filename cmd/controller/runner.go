package main

import (
	"context"
	"sync/atomic"

	"gradefix/internal/controller/handlers"
	"gradefix/internal/pipeline"
)

// trackedRunner counts runs in progress for the active runs gauge.
type trackedRunner struct {
	next   handlers.Runner
	active atomic.Int64
}

func newTrackedRunner(next handlers.Runner) *trackedRunner {
	return &trackedRunner{next: next}
}

func (r *trackedRunner) Run(ctx context.Context, action pipeline.Action) pipeline.Summary {
	r.active.Add(1)
	defer r.active.Add(-1)
	return r.next.Run(ctx, action)
}

func (r *trackedRunner) Active() int64 {
	return r.active.Load()
}
