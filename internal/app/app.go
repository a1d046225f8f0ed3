// Package app wires configuration into a ready-to-use correction runner.
package app

import (
	"context"
	"fmt"
	"log/slog"

	"golang.org/x/time/rate"

	"gradefix/internal/canvas"
	"gradefix/internal/config"
	"gradefix/internal/pipeline"
	"gradefix/internal/store"
	"gradefix/internal/store/postgres"
)

// App bundles the Canvas client, the coordinator and the optional run
// history built from one Config.
type App struct {
	Client      *canvas.Client
	Coordinator *pipeline.Coordinator

	// History is nil when no database is configured.
	History *postgres.Store
}

// NewCanvasClient builds a Canvas client with the request spacing and
// concurrency cap of cfg.
func NewCanvasClient(cfg *config.Config, logger *slog.Logger) (*canvas.Client, error) {
	if err := cfg.ValidateCanvas(); err != nil {
		return nil, err
	}

	var limiter *rate.Limiter
	if cfg.RequestInterval > 0 {
		limiter = rate.NewLimiter(rate.Every(cfg.RequestInterval), 1)
	}

	return canvas.NewClient(canvas.Config{
		BaseURL:       cfg.CanvasURL,
		Token:         cfg.CanvasToken,
		SessionCookie: cfg.SessionCookie,
		CSRFToken:     cfg.CSRFToken,
		Timeout:       cfg.RequestTimeout,
		Limiter:       limiter,
		MaxConcurrent: cfg.MaxConcurrent,
		Logger:        logger,
	})
}

// New connects everything cfg describes. Close releases the history
// database.
func New(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*App, error) {
	client, err := NewCanvasClient(cfg, logger)
	if err != nil {
		return nil, err
	}

	a := &App{Client: client}

	opts := pipeline.Options{
		ExcludeExcused:        cfg.ExcludeExcused,
		StrictSubmissionTypes: cfg.StrictOverride(),
		SkipPermissionProbe:   cfg.SkipPermissionProbe,
		WriteDelay:            cfg.WriteDelay,
		FetchConcurrency:      cfg.FetchConcurrency,
		Logger:                logger,
	}

	if cfg.DatabaseURL != "" {
		history, err := postgres.New(ctx, cfg.DatabaseURL)
		if err != nil {
			return nil, fmt.Errorf("opening run history: %w", err)
		}
		a.History = history
		opts.Recorder = store.Recorder{Runs: history}
	}

	a.Coordinator = pipeline.NewCoordinator(client, opts)
	return a, nil
}

// Close releases resources held by the app.
func (a *App) Close() error {
	if a.History != nil {
		return a.History.Close()
	}
	return nil
}
