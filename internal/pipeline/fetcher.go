package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"gradefix/internal/canvas"
	"gradefix/internal/logger"
)

// DefaultFetchConcurrency bounds how many items have their submissions
// walked at the same time.
const DefaultFetchConcurrency = 10

// SubmissionSource lists submissions from the host.
type SubmissionSource interface {
	ListSubmissions(courseID, assignmentID int64) *canvas.PageIterator[canvas.Submission]
	ListStudentSubmissions(courseID int64, assignmentIDs []int64) *canvas.PageIterator[canvas.Submission]
}

// SubmissionHandler receives every fetched submission. It may be called
// from several goroutines at once.
type SubmissionHandler func(ctx context.Context, submission canvas.Submission)

// Fetcher walks the submissions of eligible items.
type Fetcher struct {
	source      SubmissionSource
	courseID    int64
	concurrency int
	logger      *slog.Logger
	tracer      trace.Tracer
}

// NewFetcher creates a fetcher for courseID. Concurrency below one falls
// back to DefaultFetchConcurrency.
func NewFetcher(source SubmissionSource, courseID int64, concurrency int, logger *slog.Logger) *Fetcher {
	if concurrency < 1 {
		concurrency = DefaultFetchConcurrency
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Fetcher{
		source:      source,
		courseID:    courseID,
		concurrency: concurrency,
		logger:      logger,
		tracer:      tracer(),
	}
}

// Fetch walks the submissions of every item and passes them to handle.
// Items run in parallel; the pages of one item are walked in order. A
// failed walk is recorded in state and leaves the other items running.
func (f *Fetcher) Fetch(ctx context.Context, items []Item, state *RunState, handle SubmissionHandler) {
	log := logger.FromContext(ctx, f.logger)

	sem := make(chan struct{}, f.concurrency)
	var wg sync.WaitGroup

	for _, item := range items {
		assignmentID, ok := item.submissionAssignmentID()
		if !ok {
			log.Info("skipping item without a linked assignment", "kind", item.Kind.String(), "item_id", item.ID)
			state.skip()
			continue
		}

		select {
		case sem <- struct{}{}:
		case <-ctx.Done():
			state.fail(fmt.Sprintf("fetching submissions for assignment %d: %s", assignmentID, Describe(ctx.Err())))
			continue
		}

		wg.Add(1)
		go func() {
			defer wg.Done()
			defer func() { <-sem }()
			f.walk(ctx, assignmentID, f.source.ListSubmissions(f.courseID, assignmentID), state, handle)
		}()
	}

	wg.Wait()
}

// FetchBatched walks the course-wide student submissions endpoint, asking
// for several assignments per request.
func (f *Fetcher) FetchBatched(ctx context.Context, items []Item, state *RunState, handle SubmissionHandler) {
	log := logger.FromContext(ctx, f.logger)

	var ids []int64
	for _, item := range items {
		assignmentID, ok := item.submissionAssignmentID()
		if !ok {
			log.Info("skipping item without a linked assignment", "kind", item.Kind.String(), "item_id", item.ID)
			state.skip()
			continue
		}
		ids = append(ids, assignmentID)
	}

	sem := make(chan struct{}, f.concurrency)
	var wg sync.WaitGroup

	for _, chunk := range chunkAssignmentIDs(ids) {
		select {
		case sem <- struct{}{}:
		case <-ctx.Done():
			state.fail(fmt.Sprintf("fetching submissions for assignments %v: %s", chunk, Describe(ctx.Err())))
			continue
		}

		wg.Add(1)
		go func() {
			defer wg.Done()
			defer func() { <-sem }()
			iterator := f.source.ListStudentSubmissions(f.courseID, chunk)
			f.walkBatch(ctx, chunk, iterator, state, handle)
		}()
	}

	wg.Wait()
}

func (f *Fetcher) walk(ctx context.Context, assignmentID int64, iterator *canvas.PageIterator[canvas.Submission], state *RunState, handle SubmissionHandler) {
	ctx, span := f.tracer.Start(ctx, "pipeline.FetchSubmissions", trace.WithAttributes(
		attribute.Int64("canvas.course_id", f.courseID),
		attribute.Int64("canvas.assignment_id", assignmentID),
	))
	defer span.End()

	if err := drain(ctx, iterator, handle); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		logger.FromContext(ctx, f.logger).Warn("fetching submissions failed", "assignment_id", assignmentID, "error", err)
		state.fail(fmt.Sprintf("fetching submissions for assignment %d: %s", assignmentID, Describe(err)))
	}
}

func (f *Fetcher) walkBatch(ctx context.Context, assignmentIDs []int64, iterator *canvas.PageIterator[canvas.Submission], state *RunState, handle SubmissionHandler) {
	ctx, span := f.tracer.Start(ctx, "pipeline.FetchStudentSubmissions", trace.WithAttributes(
		attribute.Int64("canvas.course_id", f.courseID),
		attribute.Int64Slice("canvas.assignment_ids", assignmentIDs),
	))
	defer span.End()

	if err := drain(ctx, iterator, handle); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		logger.FromContext(ctx, f.logger).Warn("fetching submissions failed", "assignment_ids", assignmentIDs, "error", err)
		state.fail(fmt.Sprintf("fetching submissions for assignments %v: %s", assignmentIDs, Describe(err)))
	}
}

func drain(ctx context.Context, iterator *canvas.PageIterator[canvas.Submission], handle SubmissionHandler) error {
	for submission, err := range canvas.Walk(ctx, iterator) {
		if err != nil {
			return err
		}
		handle(ctx, submission)
	}
	return nil
}

// chunkAssignmentIDs splits ids into about four requests, with at most ten
// ids each; ten or fewer ids share one request.
func chunkAssignmentIDs(ids []int64) [][]int64 {
	n := len(ids)
	if n == 0 {
		return nil
	}
	size := (n + 3) / 4
	if size > 10 || n <= 10 {
		size = 10
	}

	var chunks [][]int64
	for start := 0; start < n; start += size {
		end := min(start+size, n)
		chunks = append(chunks, ids[start:end])
	}
	return chunks
}
