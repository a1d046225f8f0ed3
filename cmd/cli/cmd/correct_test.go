package cmd

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/spf13/viper"

	"gradefix/pkg/api"
)

// fakeCourse serves course 12 with one assignment holding a late and an
// on-time submission.
type fakeCourse struct {
	mu      sync.Mutex
	updates []string
	reject  bool
}

func (f *fakeCourse) start(t *testing.T) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("GET /api/v1/courses/12/permissions", func(w http.ResponseWriter, r *http.Request) {
		io.WriteString(w, `{"manage_grades":true}`)
	})
	mux.HandleFunc("GET /api/v1/courses/12/assignment_groups", func(w http.ResponseWriter, r *http.Request) {
		io.WriteString(w, `[{"id":1,"assignments":[{"id":100,"published":true,"due_at":"2024-01-01T00:00:00Z","points_possible":10,"submission_types":["online_upload"]}]}]`)
	})
	mux.HandleFunc("GET /api/v1/courses/12/assignments/100/submissions", func(w http.ResponseWriter, r *http.Request) {
		io.WriteString(w, `[{"id":1,"assignment_id":100,"user_id":5,"late":true},{"id":2,"assignment_id":100,"user_id":6,"late":false}]`)
	})
	mux.HandleFunc("PUT /api/v1/courses/12/assignments/100/submissions/{user}", func(w http.ResponseWriter, r *http.Request) {
		f.mu.Lock()
		f.updates = append(f.updates, r.PathValue("user"))
		reject := f.reject
		f.mu.Unlock()
		if reject {
			w.WriteHeader(http.StatusForbidden)
			io.WriteString(w, `{"errors":[{"message":"user not authorized to perform that action"}]}`)
			return
		}
		io.WriteString(w, `{"id":1,"assignment_id":100,"user_id":5,"late":false}`)
	})

	server := httptest.NewServer(mux)
	t.Cleanup(server.Close)
	return server
}

func useCanvas(server *httptest.Server) {
	viper.Set("canvas_url", server.URL)
	viper.Set("canvas_token", "test-token")
	viper.Set("session_cookie", "")
	viper.Set("database_url", "")
	viper.Set("server", "")
	viper.Set("write_delay", "0s")
	viper.Set("request_interval", "0s")
}

func TestFixLateCommand_Local(t *testing.T) {
	resetViper()
	course := &fakeCourse{}
	useCanvas(course.start(t))

	output, err := execute(t, "fix-late", "12")
	if err != nil {
		t.Fatalf("unexpected error: %v\n%s", err, output)
	}

	if len(course.updates) != 1 || course.updates[0] != "5" {
		t.Errorf("expected only user 5 to be updated, got %v", course.updates)
	}
	for _, want := range []string{"Run Summary", "succeeded", "fix_late", "Updated"} {
		if !strings.Contains(output, want) {
			t.Errorf("expected %q in output, got: %s", want, output)
		}
	}
}

func TestFixLateCommand_JSONFromURL(t *testing.T) {
	resetViper()
	course := &fakeCourse{}
	server := course.start(t)
	useCanvas(server)

	// The single-assignment endpoint is not served, so the run fails.
	output, err := execute(t, "fix-late", server.URL+"/courses/12/assignments/100", "--json")
	if !errors.Is(err, ErrRunNotSucceeded) {
		t.Fatalf("expected ErrRunNotSucceeded, got %v", err)
	}

	var summary api.RunSummary
	if err := json.Unmarshal([]byte(output), &summary); err != nil {
		t.Fatalf("expected JSON summary, got: %s", output)
	}
	if summary.CourseID != 12 || summary.ItemID != 100 || summary.Kind != "assignments" {
		t.Errorf("unexpected target in summary: %+v", summary)
	}
	if summary.Outcome != "failed" || len(summary.Errors) != 1 {
		t.Errorf("expected one top-level error, got %+v", summary)
	}
	if len(course.updates) != 0 {
		t.Errorf("expected no updates, got %v", course.updates)
	}
}

func TestFixLateCommand_FailedWritesExitNonZero(t *testing.T) {
	resetViper()
	course := &fakeCourse{reject: true}
	useCanvas(course.start(t))

	output, err := execute(t, "fix-late", "12")
	if !errors.Is(err, ErrRunNotSucceeded) {
		t.Fatalf("expected ErrRunNotSucceeded, got %v", err)
	}
	if !strings.Contains(output, "Failed to update submission 1") {
		t.Errorf("expected the failed submission in output, got: %s", output)
	}
}

func TestCorrectionCommand_MissingCredentials(t *testing.T) {
	resetViper()
	viper.Set("canvas_url", "https://canvas.test")
	viper.Set("canvas_token", "")
	viper.Set("session_cookie", "")
	viper.Set("server", "")

	_, err := execute(t, "remove-missing", "12")
	if err == nil || errors.Is(err, ErrRunNotSucceeded) {
		t.Fatalf("expected a configuration error, got %v", err)
	}
}

func TestCorrectionCommand_InvalidTarget(t *testing.T) {
	resetViper()

	if _, err := execute(t, "fix-late", "not-a-course"); err == nil {
		t.Fatal("expected error for an invalid course reference")
	}
	if _, err := execute(t, "fix-late", "12", "--kind", "pages"); err == nil {
		t.Fatal("expected error for an unknown kind")
	}
}

func TestLabelsCommand_Remote(t *testing.T) {
	resetViper()

	var received api.CreateRunRequest
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost || r.URL.Path != "/courses/12/runs" {
			t.Errorf("unexpected request %s %s", r.Method, r.URL.Path)
		}
		if r.Header.Get("Authorization") != "Bearer svc-token" {
			t.Errorf("expected Bearer token, got: %s", r.Header.Get("Authorization"))
		}
		json.NewDecoder(r.Body).Decode(&received)
		json.NewEncoder(w).Encode(api.RunSummary{
			RunID:     "run-1",
			CourseID:  12,
			Kind:      received.Kind,
			Mode:      received.Mode,
			Outcome:   "succeeded",
			Attempted: 3,
			Updated:   3,
			Errors:    []string{},
		})
	}))
	defer server.Close()

	viper.Set("server", server.URL)
	viper.Set("service_token", "svc-token")

	output, err := execute(t, "labels", "12", "--kind", "quizzes", "--late", "--missing=false")
	if err != nil {
		t.Fatalf("unexpected error: %v\n%s", err, output)
	}

	if received.Mode != "labels" || received.Kind != "quizzes" {
		t.Errorf("unexpected request: %+v", received)
	}
	if received.Legacy == nil {
		t.Fatal("expected legacy options in request")
	}
	want := api.LegacyOptions{Late: true, ZeroMissing: true}
	if *received.Legacy != want {
		t.Errorf("legacy options = %+v, want %+v", *received.Legacy, want)
	}
	if !strings.Contains(output, "run-1") {
		t.Errorf("expected run id in output, got: %s", output)
	}
}

func TestCorrectionCommand_RemoteConflict(t *testing.T) {
	resetViper()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusConflict)
		json.NewEncoder(w).Encode(api.ErrorResponse{Error: "a remove_missing run is already in progress for course 12", Code: "409"})
	}))
	defer server.Close()
	viper.Set("server", server.URL)

	_, err := execute(t, "remove-missing", "12")
	var apiErr *APIError
	if !errors.As(err, &apiErr) || apiErr.StatusCode != http.StatusConflict {
		t.Fatalf("expected a 409 APIError, got %v", err)
	}
	if !strings.Contains(apiErr.Message, "already in progress") {
		t.Errorf("unexpected message %q", apiErr.Message)
	}
}
