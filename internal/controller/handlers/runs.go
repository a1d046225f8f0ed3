package handlers

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"

	"gradefix/internal/logger"
	"gradefix/internal/pipeline"
	"gradefix/internal/store"
	"gradefix/pkg/api"
)

const maxListLimit = 200

// CreateRun handles POST /courses/{course_id}/runs. The run executes
// synchronously and the response carries its summary.
func (h *Handlers) CreateRun(w http.ResponseWriter, r *http.Request) {
	courseID, err := strconv.ParseInt(r.PathValue("course_id"), 10, 64)
	if err != nil || courseID <= 0 {
		h.httpError(w, "Invalid course ID", http.StatusBadRequest)
		return
	}

	var req api.CreateRunRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.httpError(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	if err := validateRequest(req); err != nil {
		h.httpError(w, err.Error(), http.StatusBadRequest)
		return
	}

	action, err := actionFromRequest(courseID, req)
	if err != nil {
		h.httpError(w, err.Error(), http.StatusBadRequest)
		return
	}

	release, ok := h.guard.TryAcquire(action.CourseID, action.Mode)
	if !ok {
		h.httpError(w, fmt.Sprintf("A %s run is already in progress for course %d", action.Mode, action.CourseID), http.StatusConflict)
		return
	}
	defer release()

	logger.FromContext(r.Context(), h.logger).Info("run requested",
		"course_id", action.CourseID, "mode", action.Mode.String(), "kind", action.Kind.String(), "item_id", action.ItemID)

	// A client hanging up does not stop a run halfway.
	summary := h.runner.Run(context.WithoutCancel(r.Context()), action)
	h.respondJson(w, http.StatusOK, summary.Report())
}

func actionFromRequest(courseID int64, req api.CreateRunRequest) (pipeline.Action, error) {
	mode, err := pipeline.ParseMode(req.Mode)
	if err != nil {
		return pipeline.Action{}, err
	}

	kindName := req.Kind
	if kindName == "" {
		kindName = pipeline.Assignments.String()
	}
	kind, err := pipeline.ParseListKind(kindName)
	if err != nil {
		return pipeline.Action{}, err
	}

	action := pipeline.Action{CourseID: courseID, Kind: kind, Mode: mode, ItemID: req.ItemID}
	if mode == pipeline.Legacy {
		action.Legacy = pipeline.DefaultLegacyOptions()
		if req.Legacy != nil {
			action.Legacy = pipeline.LegacyOptions{
				Missing:     req.Legacy.Missing,
				NullMissing: req.Legacy.NullMissing,
				ZeroMissing: req.Legacy.ZeroMissing,
				Late:        req.Legacy.Late,
				Reset:       req.Legacy.Reset,
			}
		}
	}
	return action, nil
}

// ListRuns handles GET /runs?course_id=&limit=.
func (h *Handlers) ListRuns(w http.ResponseWriter, r *http.Request) {
	if h.history == nil {
		h.httpError(w, "Run history is not configured", http.StatusNotFound)
		return
	}

	filter := store.RunFilter{Limit: store.DefaultListLimit}
	query := r.URL.Query()

	if raw := query.Get("limit"); raw != "" {
		limit, err := strconv.Atoi(raw)
		if err != nil || limit < 1 {
			h.httpError(w, "Invalid limit", http.StatusBadRequest)
			return
		}
		filter.Limit = min(limit, maxListLimit)
	}
	if raw := query.Get("course_id"); raw != "" {
		courseID, err := strconv.ParseInt(raw, 10, 64)
		if err != nil || courseID <= 0 {
			h.httpError(w, "Invalid course ID", http.StatusBadRequest)
			return
		}
		filter.CourseID = courseID
	}

	runs, err := h.history.ListRuns(r.Context(), filter)
	if err != nil {
		logger.FromContext(r.Context(), h.logger).Error("listing runs failed", "error", err)
		h.httpError(w, "Failed to list runs", http.StatusInternalServerError)
		return
	}

	response := api.ListRunsResponse{Runs: make([]api.RunSummary, 0, len(runs))}
	for _, run := range runs {
		response.Runs = append(response.Runs, run.Summary().Report())
	}
	h.respondJson(w, http.StatusOK, response)
}
