// Package controller contains the HTTP trigger service that runs
// corrections on request.
package controller

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"gradefix/internal/auth"
	"gradefix/internal/controller/handlers"
	"gradefix/internal/controller/middleware"
	"gradefix/internal/pipeline"
)

// Options configure the service routes.
type Options struct {
	// ServiceToken guards every route except the probes, in plain text or as
	// "sha256:<hex>". Empty disables auth.
	ServiceToken string

	// History serves GET /runs. Nil disables the endpoint.
	History handlers.HistoryStore

	// Metrics serves GET /metrics when set.
	Metrics http.Handler

	// RateLimiter throttles run requests per course. Nil uses the default.
	RateLimiter *middleware.RateLimiter

	Logger *slog.Logger
}

// Server is the HTTP server for the trigger service.
type Server struct {
	httpServer *http.Server
}

// New creates the trigger service on addr.
func New(addr string, runner handlers.Runner, opts Options) *Server {
	return &Server{
		httpServer: &http.Server{
			Addr:        addr,
			Handler:     NewHandler(runner, opts),
			ReadTimeout: 10 * time.Second,
			// Runs answer synchronously and can take minutes on large courses.
			WriteTimeout: 30 * time.Minute,
		},
	}
}

// NewHandler builds the routed handler of the service.
func NewHandler(runner handlers.Runner, opts Options) http.Handler {
	h := handlers.New(runner, pipeline.NewGuard(), opts.History, opts.Logger)
	authMW := middleware.BearerAuth(auth.ParseToken(opts.ServiceToken))

	limiter := opts.RateLimiter
	if limiter == nil {
		limiter = middleware.NewRateLimiter()
	}
	rateMW := limiter.Middleware()

	mux := http.NewServeMux()

	// Probes stay unauthenticated.
	mux.HandleFunc("GET /healthz", h.Healthz)
	mux.HandleFunc("GET /readyz", h.Readyz)
	if opts.Metrics != nil {
		mux.Handle("GET /metrics", opts.Metrics)
	}

	mux.Handle("POST /courses/{course_id}/runs", authMW(rateMW(http.HandlerFunc(h.CreateRun))))
	mux.Handle("GET /runs", authMW(http.HandlerFunc(h.ListRuns)))

	return middleware.RequestID(mux)
}

// Run starts the HTTP server. It blocks until the context is cancelled.
func (s *Server) Run(ctx context.Context) error {
	serverErr := make(chan error, 1)

	go func() {
		if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
	}()

	select {
	case err := <-serverErr:
		return err
	case <-ctx.Done():
		shutDownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()

		return s.Shutdown(shutDownCtx)
	}
}

// Shutdown gracefully shuts down the server.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}
