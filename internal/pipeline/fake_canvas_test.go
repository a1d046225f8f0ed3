package pipeline

import (
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strconv"
	"sync"
	"testing"
	"time"

	"gradefix/internal/canvas"
)

// fakeCanvas is an in-memory Canvas course served over httptest.
type fakeCanvas struct {
	mu     sync.Mutex
	server *httptest.Server

	canManageGrades bool
	groupPages      [][]canvas.AssignmentGroup
	quizzes         []canvas.Quiz
	topics          []canvas.DiscussionTopic
	submissions     map[int64][]*canvas.Submission
	pageSize        int

	// rejectUsers answers updates for these users with the given status.
	rejectUsers map[int64]int
	// failLists answers submission lists for these assignments with the
	// given status.
	failLists map[int64]int

	updates        []recordedUpdate
	batchRequests  [][]string
	permissionHits int
}

type recordedUpdate struct {
	AssignmentID int64
	UserID       int64
	Fields       map[string]any
}

func newFakeCanvas(t *testing.T) *fakeCanvas {
	t.Helper()
	f := &fakeCanvas{
		canManageGrades: true,
		submissions:     make(map[int64][]*canvas.Submission),
		rejectUsers:     make(map[int64]int),
		failLists:       make(map[int64]int),
	}

	mux := http.NewServeMux()
	mux.HandleFunc("GET /api/v1/courses/{course}/permissions", f.handlePermissions)
	mux.HandleFunc("GET /api/v1/courses/{course}/assignment_groups", f.handleAssignmentGroups)
	mux.HandleFunc("GET /api/v1/courses/{course}/assignments/{assignment}", f.handleAssignment)
	mux.HandleFunc("GET /api/v1/courses/{course}/quizzes", f.handleQuizzes)
	mux.HandleFunc("GET /api/v1/courses/{course}/discussion_topics", f.handleTopics)
	mux.HandleFunc("GET /api/v1/courses/{course}/assignments/{assignment}/submissions", f.handleSubmissions)
	mux.HandleFunc("GET /api/v1/courses/{course}/students/submissions", f.handleStudentSubmissions)
	mux.HandleFunc("PUT /api/v1/courses/{course}/assignments/{assignment}/submissions/{user}", f.handleUpdate)

	f.server = httptest.NewServer(mux)
	t.Cleanup(f.server.Close)
	return f
}

func (f *fakeCanvas) client(t *testing.T) *canvas.Client {
	t.Helper()
	client, err := canvas.NewClient(canvas.Config{BaseURL: f.server.URL, Token: "test-token", Logger: discardLogger()})
	if err != nil {
		t.Fatalf("NewClient: %v", err)
	}
	return client
}

func (f *fakeCanvas) addSubmission(s canvas.Submission) {
	f.mu.Lock()
	defer f.mu.Unlock()
	sub := s
	f.submissions[s.AssignmentID] = append(f.submissions[s.AssignmentID], &sub)
}

func (f *fakeCanvas) recordedUpdates() []recordedUpdate {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]recordedUpdate(nil), f.updates...)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// writePage writes page number page (1-based) of items and links the next
// one when there is one.
func writePage[T any](f *fakeCanvas, w http.ResponseWriter, r *http.Request, pages [][]T) {
	page, _ := strconv.Atoi(r.URL.Query().Get("page"))
	if page < 1 {
		page = 1
	}
	if page > len(pages) {
		writeJSON(w, http.StatusOK, []T{})
		return
	}
	if page < len(pages) {
		w.Header().Set("Link", fmt.Sprintf(`<%s%s?page=%d>; rel="next"`, f.server.URL, r.URL.Path, page+1))
	}
	writeJSON(w, http.StatusOK, pages[page-1])
}

func (f *fakeCanvas) handlePermissions(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	f.permissionHits++
	allowed := f.canManageGrades
	f.mu.Unlock()
	writeJSON(w, http.StatusOK, map[string]bool{"manage_grades": allowed})
}

func (f *fakeCanvas) handleAssignmentGroups(w http.ResponseWriter, r *http.Request) {
	writePage(f, w, r, f.groupPages)
}

func (f *fakeCanvas) handleAssignment(w http.ResponseWriter, r *http.Request) {
	id, _ := strconv.ParseInt(r.PathValue("assignment"), 10, 64)
	for _, page := range f.groupPages {
		for _, group := range page {
			for _, a := range group.Assignments {
				if a.ID == id {
					writeJSON(w, http.StatusOK, a)
					return
				}
			}
		}
	}
	writeJSON(w, http.StatusNotFound, map[string]any{"errors": []map[string]string{{"message": "The specified resource does not exist."}}})
}

func (f *fakeCanvas) handleQuizzes(w http.ResponseWriter, r *http.Request) {
	writePage(f, w, r, [][]canvas.Quiz{f.quizzes})
}

func (f *fakeCanvas) handleTopics(w http.ResponseWriter, r *http.Request) {
	writePage(f, w, r, [][]canvas.DiscussionTopic{f.topics})
}

func (f *fakeCanvas) handleSubmissions(w http.ResponseWriter, r *http.Request) {
	id, _ := strconv.ParseInt(r.PathValue("assignment"), 10, 64)

	f.mu.Lock()
	if status, ok := f.failLists[id]; ok {
		f.mu.Unlock()
		writeJSON(w, status, map[string]string{"message": "list failed"})
		return
	}
	var subs []canvas.Submission
	for _, s := range f.submissions[id] {
		subs = append(subs, *s)
	}
	size := f.pageSize
	f.mu.Unlock()

	if size <= 0 {
		size = len(subs) + 1
	}
	pages := [][]canvas.Submission{{}}
	if len(subs) > 0 {
		pages = nil
		for start := 0; start < len(subs); start += size {
			pages = append(pages, subs[start:min(start+size, len(subs))])
		}
	}
	writePage(f, w, r, pages)
}

func (f *fakeCanvas) handleStudentSubmissions(w http.ResponseWriter, r *http.Request) {
	ids := r.URL.Query()["assignment_ids[]"]

	f.mu.Lock()
	f.batchRequests = append(f.batchRequests, ids)
	var subs []canvas.Submission
	for _, raw := range ids {
		id, _ := strconv.ParseInt(raw, 10, 64)
		for _, s := range f.submissions[id] {
			subs = append(subs, *s)
		}
	}
	f.mu.Unlock()

	writeJSON(w, http.StatusOK, subs)
}

func (f *fakeCanvas) handleUpdate(w http.ResponseWriter, r *http.Request) {
	assignmentID, _ := strconv.ParseInt(r.PathValue("assignment"), 10, 64)
	userID, _ := strconv.ParseInt(r.PathValue("user"), 10, 64)

	body, _ := io.ReadAll(r.Body)
	var payload struct {
		Submission map[string]any `json:"submission"`
	}
	if err := json.Unmarshal(body, &payload); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"message": "bad body"})
		return
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	f.updates = append(f.updates, recordedUpdate{AssignmentID: assignmentID, UserID: userID, Fields: payload.Submission})

	if status, ok := f.rejectUsers[userID]; ok {
		writeJSON(w, status, map[string]any{"errors": []map[string]string{{"message": "user not authorized to perform that action"}}})
		return
	}

	for _, s := range f.submissions[assignmentID] {
		if s.UserID != userID {
			continue
		}
		if value, ok := payload.Submission["late_policy_status"]; ok {
			if value == nil {
				s.LatePolicyStatus = nil
			} else {
				status := value.(string)
				s.LatePolicyStatus = &status
				if status == "none" {
					s.Late = false
					s.Missing = false
				}
			}
		}
		if state, ok := payload.Submission["workflow_state"].(string); ok {
			s.WorkflowState = state
		}
		writeJSON(w, http.StatusOK, s)
		return
	}
	writeJSON(w, http.StatusNotFound, map[string]string{"message": "submission not found"})
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func ptr[T any](v T) *T {
	return &v
}

var dueDate = time.Date(2024, time.March, 1, 23, 59, 0, 0, time.UTC)
