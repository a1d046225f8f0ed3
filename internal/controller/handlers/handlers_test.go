package handlers

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"gradefix/internal/pipeline"
	"gradefix/internal/store"
)

// mockRunner records actions and answers with a canned summary.
type mockRunner struct {
	mu      sync.Mutex
	actions []pipeline.Action
	outcome pipeline.Outcome
	// block, when set, holds Run until it is closed.
	block   chan struct{}
	started chan struct{}
}

func (m *mockRunner) Run(ctx context.Context, action pipeline.Action) pipeline.Summary {
	m.mu.Lock()
	m.actions = append(m.actions, action)
	m.mu.Unlock()

	if m.started != nil {
		m.started <- struct{}{}
	}
	if m.block != nil {
		<-m.block
	}

	outcome := m.outcome
	if outcome == "" {
		outcome = pipeline.OutcomeSucceeded
	}
	now := time.Now().UTC()
	return pipeline.Summary{
		RunID:      uuid.NewString(),
		CourseID:   action.CourseID,
		Kind:       action.Kind.String(),
		Mode:       action.Mode.String(),
		ItemID:     action.ItemID,
		Attempted:  2,
		Updated:    2,
		Outcome:    outcome,
		StartedAt:  now,
		FinishedAt: now,
	}
}

// Mock history store
type mockHistory struct {
	pingErr error

	listResp []store.Run
	listErr  error

	// Spies (to verify arguments passed by handlers)
	capturedFilter store.RunFilter
}

func (m *mockHistory) Ping(ctx context.Context) error {
	return m.pingErr
}

func (m *mockHistory) CreateRun(ctx context.Context, run *store.Run) error {
	return nil
}

func (m *mockHistory) ListRuns(ctx context.Context, filter store.RunFilter) ([]store.Run, error) {
	m.capturedFilter = filter
	return m.listResp, m.listErr
}
