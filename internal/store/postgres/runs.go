package postgres

import (
	"context"
	"fmt"

	"github.com/lib/pq"

	"gradefix/internal/pipeline"
	"gradefix/internal/store"
)

func (s *Store) CreateRun(ctx context.Context, run *store.Run) error {
	query := `
	INSERT INTO runs (id, course_id, kind, mode, item_id, outcome, attempted, updated, failed, skipped, errors, suppressed_errors, started_at, finished_at)
	VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)
	`
	_, err := s.db.ExecContext(ctx, query,
		run.ID, run.CourseID, run.Kind, run.Mode, run.ItemID, string(run.Outcome),
		run.Attempted, run.Updated, run.Failed, run.Skipped,
		pq.Array(run.Errors), run.Suppressed, run.StartedAt, run.FinishedAt,
	)
	return err
}

func (s *Store) ListRuns(ctx context.Context, filter store.RunFilter) ([]store.Run, error) {
	limit := filter.Limit
	if limit <= 0 {
		limit = store.DefaultListLimit
	}

	query := `
	SELECT id, course_id, kind, mode, item_id, outcome, attempted, updated, failed, skipped, errors, suppressed_errors, started_at, finished_at
	FROM runs
	WHERE ($1::bigint = 0 OR course_id = $1::bigint)
	ORDER BY started_at DESC
	LIMIT $2
	`

	rows, err := s.db.QueryContext(ctx, query, filter.CourseID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var runs []store.Run
	for rows.Next() {
		var run store.Run
		var outcome string
		if err := rows.Scan(
			&run.ID, &run.CourseID, &run.Kind, &run.Mode, &run.ItemID, &outcome,
			&run.Attempted, &run.Updated, &run.Failed, &run.Skipped,
			pq.Array(&run.Errors), &run.Suppressed, &run.StartedAt, &run.FinishedAt,
		); err != nil {
			return nil, fmt.Errorf("failed to scan run: %w", err)
		}
		run.Outcome = pipeline.Outcome(outcome)
		runs = append(runs, run)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	return runs, nil
}
