package pipeline

import "gradefix/internal/canvas"

// Rule decides whether a submission needs an update and what to send.
type Rule interface {
	Evaluate(submission canvas.Submission) (canvas.SubmissionUpdate, bool)
}

// LateRule clears the late penalty of every late submission.
type LateRule struct {
	// ExcludeExcused leaves excused submissions alone.
	ExcludeExcused bool
}

func (r LateRule) Evaluate(submission canvas.Submission) (canvas.SubmissionUpdate, bool) {
	if !submission.Late {
		return canvas.SubmissionUpdate{}, false
	}
	if r.ExcludeExcused && submission.Excused {
		return canvas.SubmissionUpdate{}, false
	}
	return canvas.SubmissionUpdate{LatePolicy: canvas.LatePolicyNone}, true
}

// MissingRule clears the missing flag of submissions that were effectively
// graded: scored above zero, or zero on a zero-point assignment.
type MissingRule struct {
	ExcludeExcused bool
}

func (r MissingRule) Evaluate(submission canvas.Submission) (canvas.SubmissionUpdate, bool) {
	if !submission.Missing {
		return canvas.SubmissionUpdate{}, false
	}
	if r.ExcludeExcused && submission.Excused {
		return canvas.SubmissionUpdate{}, false
	}

	score := submission.Score
	zeroPoints := submission.Points() == 0
	scoredZeroOnZero := score != nil && *score == 0 && zeroPoints

	graded := submission.Grade != nil && *submission.Grade != "" &&
		((score != nil && *score > 0) || scoredZeroOnZero)
	placeholder := submission.SubmittedAt == nil && scoredZeroOnZero

	if !graded && !placeholder {
		return canvas.SubmissionUpdate{}, false
	}
	return canvas.SubmissionUpdate{LatePolicy: canvas.LatePolicyNone, WorkflowState: "graded"}, true
}

// LegacyOptions are the switches of the combined late/missing mode.
type LegacyOptions struct {
	// Missing clears missing labels.
	Missing bool
	// NullMissing counts an empty score as a score.
	NullMissing bool
	// ZeroMissing counts anything but a zero score as a score.
	ZeroMissing bool
	// Late clears late labels.
	Late bool
	// Reset reverts previously cleared labels to the host defaults instead
	// of clearing them.
	Reset bool
}

// DefaultLegacyOptions matches the combined mode's out-of-the-box behaviour.
func DefaultLegacyOptions() LegacyOptions {
	return LegacyOptions{Missing: true, ZeroMissing: true}
}

// LegacyRule handles both flags in one pass. Excused submissions are
// always skipped.
type LegacyRule struct {
	Options LegacyOptions
}

func (r LegacyRule) Evaluate(submission canvas.Submission) (canvas.SubmissionUpdate, bool) {
	if submission.Excused {
		return canvas.SubmissionUpdate{}, false
	}
	opts := r.Options

	if opts.Reset {
		if submission.LatePolicyStatus == nil || *submission.LatePolicyStatus != "none" {
			return canvas.SubmissionUpdate{}, false
		}
		isMissing := submission.SubmittedAt == nil
		isLate := submission.SubmittedAt != nil && submission.CachedDueDate != nil &&
			submission.SubmittedAt.After(*submission.CachedDueDate)
		if (opts.Missing && isMissing) || (opts.Late && isLate) {
			return canvas.SubmissionUpdate{LatePolicy: canvas.LatePolicyReset}, true
		}
		return canvas.SubmissionUpdate{}, false
	}

	if submission.LatePolicyStatus != nil {
		return canvas.SubmissionUpdate{}, false
	}

	scoredZero := submission.Score != nil && *submission.Score == 0
	hasScore := (opts.ZeroMissing && !scoredZero) || (opts.NullMissing && submission.Score == nil)
	if !hasScore {
		return canvas.SubmissionUpdate{}, false
	}

	if (opts.Missing && !submission.Late) || (opts.Late && submission.Late) {
		return canvas.SubmissionUpdate{LatePolicy: canvas.LatePolicyNone}, true
	}
	return canvas.SubmissionUpdate{}, false
}
