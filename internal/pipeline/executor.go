package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/time/rate"

	"gradefix/internal/canvas"
	"gradefix/internal/logger"
)

// SubmissionWriter sends a single submission update to the host.
type SubmissionWriter interface {
	UpdateSubmission(ctx context.Context, courseID, assignmentID, userID int64, update canvas.SubmissionUpdate) (*canvas.Submission, error)
}

// Executor writes rule decisions back to the host, one submission at a
// time. A failed write is recorded and never stops the others.
type Executor struct {
	writer   SubmissionWriter
	courseID int64
	pacer    *rate.Limiter
	logger   *slog.Logger
	tracer   trace.Tracer
	metrics  *instruments
}

// NewExecutor creates an executor for courseID. A positive delay spaces
// consecutive writes at least that far apart.
func NewExecutor(writer SubmissionWriter, courseID int64, delay time.Duration, logger *slog.Logger) *Executor {
	var pacer *rate.Limiter
	if delay > 0 {
		pacer = rate.NewLimiter(rate.Every(delay), 1)
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Executor{
		writer:   writer,
		courseID: courseID,
		pacer:    pacer,
		logger:   logger,
		tracer:   tracer(),
		metrics:  newInstruments(),
	}
}

// Apply sends update for submission and records the result in state.
func (e *Executor) Apply(ctx context.Context, submission canvas.Submission, update canvas.SubmissionUpdate, state *RunState) bool {
	state.attempt()
	log := logger.FromContext(ctx, e.logger)

	if e.pacer != nil {
		if err := e.pacer.Wait(ctx); err != nil {
			state.failWrite(updateFailure(submission, err))
			e.metrics.failed.Add(ctx, 1)
			return false
		}
	}

	ctx, span := e.tracer.Start(ctx, "pipeline.UpdateSubmission", trace.WithAttributes(
		attribute.Int64("canvas.course_id", e.courseID),
		attribute.Int64("canvas.assignment_id", submission.AssignmentID),
		attribute.Int64("canvas.submission_id", submission.ID),
	))
	defer span.End()

	_, err := e.writer.UpdateSubmission(ctx, e.courseID, submission.AssignmentID, submission.UserID, update)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		log.Warn("submission update failed",
			"submission_id", submission.ID,
			"assignment_id", submission.AssignmentID,
			"user_id", submission.UserID,
			"error", err,
		)
		state.failWrite(updateFailure(submission, err))
		e.metrics.failed.Add(ctx, 1)
		return false
	}

	log.Debug("submission updated",
		"submission_id", submission.ID,
		"assignment_id", submission.AssignmentID,
		"user_id", submission.UserID,
	)
	state.succeed()
	e.metrics.updated.Add(ctx, 1)
	return true
}

func updateFailure(submission canvas.Submission, err error) string {
	return fmt.Sprintf("Failed to update submission %d: %s", submission.ID, Describe(err))
}

// Describe renders err as a short cause for the run summary.
func Describe(err error) string {
	var netErr *canvas.NetworkError
	var apiErr *canvas.APIError

	switch {
	case errors.Is(err, canvas.ErrMissingCSRFToken):
		return "missing CSRF token, write not attempted"
	case errors.Is(err, context.Canceled):
		return "canceled"
	case errors.Is(err, context.DeadlineExceeded):
		return "request timed out"
	case errors.As(err, &netErr):
		if netErr.Timeout() {
			return "request timed out"
		}
		return fmt.Sprintf("network error: %v", netErr.Err)
	case errors.As(err, &apiErr):
		var cause string
		switch {
		case canvas.IsPermissionDenied(apiErr):
			cause = fmt.Sprintf("permission denied (HTTP %d)", apiErr.StatusCode)
		case canvas.IsNotFound(apiErr):
			cause = "not found or deleted (HTTP 404)"
		default:
			cause = fmt.Sprintf("HTTP %d", apiErr.StatusCode)
		}
		if apiErr.Message != "" {
			cause += ": " + apiErr.Message
		}
		return cause
	default:
		return err.Error()
	}
}
