// Package handlers contains HTTP handlers for the trigger service.
package handlers

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"strconv"

	"gradefix/internal/pipeline"
	"gradefix/internal/store"
	"gradefix/pkg/api"
)

// Runner executes correction runs.
type Runner interface {
	Run(ctx context.Context, action pipeline.Action) pipeline.Summary
}

// HistoryStore is the run history the service reads from.
type HistoryStore interface {
	store.RunStore
	Ping(ctx context.Context) error
}

// Handlers holds all HTTP handlers and their dependencies.
type Handlers struct {
	runner  Runner
	guard   *pipeline.Guard
	history HistoryStore
	logger  *slog.Logger
}

// New creates a new Handlers instance. history may be nil, which disables
// the history endpoint.
func New(runner Runner, guard *pipeline.Guard, history HistoryStore, logger *slog.Logger) *Handlers {
	if guard == nil {
		guard = pipeline.NewGuard()
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Handlers{runner: runner, guard: guard, history: history, logger: logger}
}

// A helper function to write standard JSON responses.
func (h *Handlers) respondJson(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if payload != nil {
		json.NewEncoder(w).Encode(payload)
	}
}

// A helper function to return consistent error messages.
func (h *Handlers) httpError(w http.ResponseWriter, message string, code int) {
	h.respondJson(w, code, api.ErrorResponse{
		Error: message,
		Code:  strconv.Itoa(code),
	})
}
