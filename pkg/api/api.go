// Package api contains shared JSON request/response structs.
// This package is shared between the CLI and the trigger service.
package api

import "time"

// LegacyOptions are the switches of the labels mode.
type LegacyOptions struct {
	Missing     bool `json:"missing"`
	NullMissing bool `json:"null_missing"`
	ZeroMissing bool `json:"zero_missing"`
	Late        bool `json:"late"`
	Reset       bool `json:"reset"`
}

// CreateRunRequest is the request body for starting a correction run.
type CreateRunRequest struct {
	// Mode is fix_late, remove_missing or labels.
	Mode string `json:"mode" validate:"required"`
	// Kind is assignments, quizzes or discussion_topics.
	Kind string `json:"kind" validate:"omitempty,oneof=assignments quizzes discussion_topics"`
	// ItemID restricts the run to one item.
	ItemID int64 `json:"item_id,omitempty" validate:"gte=0"`
	// Legacy configures the labels mode. Defaults apply when omitted.
	Legacy *LegacyOptions `json:"legacy,omitempty"`
}

// RunSummary is the report of a finished run.
type RunSummary struct {
	RunID            string    `json:"run_id"`
	CourseID         int64     `json:"course_id"`
	Kind             string    `json:"kind"`
	Mode             string    `json:"mode"`
	ItemID           int64     `json:"item_id,omitempty"`
	Outcome          string    `json:"outcome"`
	Attempted        int       `json:"attempted"`
	Updated          int       `json:"updated"`
	Failed           int       `json:"failed"`
	Skipped          int       `json:"skipped"`
	Errors           []string  `json:"errors"`
	SuppressedErrors int       `json:"suppressed_errors"`
	StartedAt        time.Time `json:"started_at"`
	FinishedAt       time.Time `json:"finished_at"`
}

// ListRunsResponse is the response body of the run history listing.
type ListRunsResponse struct {
	Runs []RunSummary `json:"runs"`
}

// ErrorResponse is the standard error body.
type ErrorResponse struct {
	Error string `json:"error"`
	Code  string `json:"code"`
}
