package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"

	"gradefix/internal/canvas"
	"gradefix/internal/logger"
)

// Mode selects the decision rule of a run.
type Mode int

const (
	FixLate Mode = iota + 1
	RemoveMissing
	Legacy
)

func (m Mode) String() string {
	switch m {
	case FixLate:
		return "fix_late"
	case RemoveMissing:
		return "remove_missing"
	case Legacy:
		return "labels"
	default:
		return fmt.Sprintf("Mode(%d)", int(m))
	}
}

// ParseMode accepts the mode names used by the CLI and the service.
func ParseMode(s string) (Mode, error) {
	switch s {
	case "fix_late", "fix-late", "late":
		return FixLate, nil
	case "remove_missing", "remove-missing", "missing":
		return RemoveMissing, nil
	case "labels", "legacy":
		return Legacy, nil
	default:
		return 0, fmt.Errorf("unknown mode %q (want fix_late, remove_missing or labels)", s)
	}
}

// Action is one requested correction.
type Action struct {
	CourseID int64
	Kind     ListKind
	Mode     Mode
	// ItemID restricts the run to a single item. Zero means the whole list.
	ItemID int64
	// Legacy configures the labels mode and is ignored otherwise.
	Legacy LegacyOptions
}

// Host is the part of the Canvas client a run needs.
type Host interface {
	SubmissionSource
	SubmissionWriter
	ListAssignmentGroups(courseID int64) *canvas.PageIterator[canvas.AssignmentGroup]
	ListQuizzes(courseID int64) *canvas.PageIterator[canvas.Quiz]
	ListDiscussionTopics(courseID int64) *canvas.PageIterator[canvas.DiscussionTopic]
	Assignment(courseID, assignmentID int64) *canvas.PageIterator[canvas.Assignment]
	Quiz(courseID, quizID int64) *canvas.PageIterator[canvas.Quiz]
	DiscussionTopic(courseID, topicID int64) *canvas.PageIterator[canvas.DiscussionTopic]
	CheckWritePermission(ctx context.Context, courseID int64) (bool, error)
}

// RunRecorder keeps finished run summaries.
type RunRecorder interface {
	RecordRun(ctx context.Context, summary Summary) error
}

// Options tune a Coordinator.
type Options struct {
	// ExcludeExcused makes the late and missing rules skip excused
	// submissions. The labels mode always skips them.
	ExcludeExcused bool

	// StrictSubmissionTypes overrides the mode default for rejecting items
	// with non-gradable submission types. Nil keeps the default: on for
	// the labels mode, off otherwise.
	StrictSubmissionTypes *bool

	// SkipPermissionProbe disables the write permission check that
	// precedes late and missing runs.
	SkipPermissionProbe bool

	// WriteDelay spaces consecutive submission updates.
	WriteDelay time.Duration

	// FetchConcurrency bounds parallel item walks.
	FetchConcurrency int

	// Recorder, when set, receives every summary.
	Recorder RunRecorder

	Logger *slog.Logger
}

// Coordinator runs corrections end to end and reports a Summary.
type Coordinator struct {
	host    Host
	opts    Options
	logger  *slog.Logger
	tracer  trace.Tracer
	metrics *instruments
	now     func() time.Time
}

// NewCoordinator creates a coordinator over host.
func NewCoordinator(host Host, opts Options) *Coordinator {
	log := opts.Logger
	if log == nil {
		log = slog.Default()
	}
	return &Coordinator{
		host:    host,
		opts:    opts,
		logger:  log,
		tracer:  tracer(),
		metrics: newInstruments(),
		now:     time.Now,
	}
}

// Run executes action and returns its summary. Failures end up in the
// summary; Run itself never fails.
func (c *Coordinator) Run(ctx context.Context, action Action) Summary {
	runID := uuid.NewString()
	ctx = logger.WithRunID(ctx, runID)
	log := logger.FromContext(ctx, c.logger)

	ctx, span := c.tracer.Start(ctx, "pipeline.Run", trace.WithAttributes(
		attribute.String("gradefix.run_id", runID),
		attribute.Int64("canvas.course_id", action.CourseID),
		attribute.String("gradefix.kind", action.Kind.String()),
		attribute.String("gradefix.mode", action.Mode.String()),
		attribute.Int64("gradefix.item_id", action.ItemID),
	))
	defer span.End()

	summary := Summary{
		RunID:     runID,
		CourseID:  action.CourseID,
		Kind:      action.Kind.String(),
		Mode:      action.Mode.String(),
		ItemID:    action.ItemID,
		StartedAt: c.now().UTC(),
	}
	log.Info("run started", "course_id", action.CourseID, "kind", summary.Kind, "mode", summary.Mode, "item_id", action.ItemID)

	state := newRunState()
	if err := c.execute(ctx, action, state); err != nil {
		log.Error("run aborted", "error", err)
		span.RecordError(err)
		state.fail(err.Error())
	}

	summary.FinishedAt = c.now().UTC()
	summary = state.summarize(summary)

	if summary.Outcome != OutcomeSucceeded {
		span.SetStatus(codes.Error, string(summary.Outcome))
	}
	c.metrics.runs.Add(ctx, 1, metric.WithAttributes(
		attribute.String("mode", summary.Mode),
		attribute.String("outcome", string(summary.Outcome)),
	))
	log.Info("run finished",
		"outcome", summary.Outcome,
		"attempted", summary.Attempted,
		"updated", summary.Updated,
		"failed", summary.Failed,
		"skipped", summary.Skipped,
		"errors", summary.ErrorCount(),
		"duration", summary.FinishedAt.Sub(summary.StartedAt),
	)

	if c.opts.Recorder != nil {
		// Interrupted runs are recorded too.
		if err := c.opts.Recorder.RecordRun(context.WithoutCancel(ctx), summary); err != nil {
			log.Warn("recording run failed", "error", err)
		}
	}
	return summary
}

func (c *Coordinator) execute(ctx context.Context, action Action, state *RunState) error {
	if action.CourseID <= 0 {
		return fmt.Errorf("invalid course id %d", action.CourseID)
	}
	if action.ItemID < 0 {
		return fmt.Errorf("invalid item id %d", action.ItemID)
	}
	switch action.Kind {
	case Assignments, Quizzes, DiscussionTopics:
	default:
		return fmt.Errorf("unsupported item kind %s", action.Kind)
	}

	var rule Rule
	strict := false
	probe := !c.opts.SkipPermissionProbe
	switch action.Mode {
	case FixLate:
		rule = LateRule{ExcludeExcused: c.opts.ExcludeExcused}
	case RemoveMissing:
		rule = MissingRule{ExcludeExcused: c.opts.ExcludeExcused}
	case Legacy:
		rule = LegacyRule{Options: action.Legacy}
		strict = true
		probe = false
	default:
		return fmt.Errorf("unsupported mode %s", action.Mode)
	}
	if c.opts.StrictSubmissionTypes != nil {
		strict = *c.opts.StrictSubmissionTypes
	}

	if probe {
		allowed, err := c.host.CheckWritePermission(ctx, action.CourseID)
		if err != nil {
			return fmt.Errorf("permission check failed: %s", Describe(err))
		}
		if !allowed {
			return fmt.Errorf("permission check failed: not allowed to change grades in course %d", action.CourseID)
		}
	}

	filter := Filter{RequestedID: action.ItemID, StrictSubmissionTypes: strict}
	items, err := c.listItems(ctx, action, filter)
	if err != nil {
		if action.ItemID != 0 && canvas.IsNotFound(err) {
			return fmt.Errorf("%s %d not found in course %d", action.Kind, action.ItemID, action.CourseID)
		}
		return fmt.Errorf("listing %s: %s", action.Kind, Describe(err))
	}
	logger.FromContext(ctx, c.logger).Info("eligible items", "count", len(items))

	executor := NewExecutor(c.host, action.CourseID, c.opts.WriteDelay, c.logger)
	handle := func(ctx context.Context, submission canvas.Submission) {
		update, ok := rule.Evaluate(submission)
		if !ok {
			return
		}
		executor.Apply(ctx, submission, update, state)
	}

	fetcher := NewFetcher(c.host, action.CourseID, c.opts.FetchConcurrency, c.logger)
	if action.Mode == Legacy {
		fetcher.FetchBatched(ctx, items, state, handle)
	} else {
		fetcher.Fetch(ctx, items, state, handle)
	}

	if errors.Is(ctx.Err(), context.Canceled) {
		return errors.New("run interrupted before all items were processed")
	}
	return nil
}

// listItems walks the item list of action and keeps the eligible items.
func (c *Coordinator) listItems(ctx context.Context, action Action, filter Filter) ([]Item, error) {
	course, id := action.CourseID, action.ItemID

	switch action.Kind {
	case Assignments:
		if id != 0 {
			return eligibleItems(ctx, c.host.Assignment(course, id), filter, func(a canvas.Assignment) []Item {
				return []Item{itemFromAssignment(a)}
			})
		}
		return eligibleItems(ctx, c.host.ListAssignmentGroups(course), filter, func(g canvas.AssignmentGroup) []Item {
			items := make([]Item, 0, len(g.Assignments))
			for _, a := range g.Assignments {
				items = append(items, itemFromAssignment(a))
			}
			return items
		})
	case Quizzes:
		iterator := c.host.ListQuizzes(course)
		if id != 0 {
			iterator = c.host.Quiz(course, id)
		}
		return eligibleItems(ctx, iterator, filter, func(q canvas.Quiz) []Item {
			return []Item{itemFromQuiz(q)}
		})
	case DiscussionTopics:
		iterator := c.host.ListDiscussionTopics(course)
		if id != 0 {
			iterator = c.host.DiscussionTopic(course, id)
		}
		return eligibleItems(ctx, iterator, filter, func(d canvas.DiscussionTopic) []Item {
			return []Item{itemFromDiscussionTopic(d)}
		})
	default:
		return nil, fmt.Errorf("unsupported item kind %s", action.Kind)
	}
}

func eligibleItems[T any](ctx context.Context, iterator *canvas.PageIterator[T], filter Filter, convert func(T) []Item) ([]Item, error) {
	var items []Item
	for record, err := range canvas.Walk(ctx, iterator) {
		if err != nil {
			return nil, err
		}
		for _, item := range convert(record) {
			if _, ok := filter.Eligible(item); ok {
				items = append(items, item)
			}
		}
	}
	return items, nil
}
