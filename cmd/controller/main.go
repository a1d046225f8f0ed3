// Package main is the entry point for the gradefix trigger service.
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"gradefix/internal/app"
	"gradefix/internal/auth"
	"gradefix/internal/config"
	"gradefix/internal/controller"
	"gradefix/internal/logger"
	"gradefix/internal/observability"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/metric"
)

func main() {
	configPath := flag.String("config", "", "Path to config file (default: none, env only)")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	level, err := logger.ParseLevel(cfg.LogLevel)
	if err != nil {
		log.Fatalf("Invalid log level: %v", err)
	}
	lg := logger.New(level)

	ctx := context.Background()

	// Tracing
	shutdownTracer, err := observability.InitTracer(ctx, "gradefix-service", cfg.OTELEndpoint)
	if err != nil {
		log.Fatalf("Failed to init tracing: %v", err)
	}
	defer func() {
		if err := shutdownTracer(context.Background()); err != nil {
			lg.Error("failed to shutdown tracer", "error", err)
		}
	}()

	// Metrics
	metricsHandler, shutdownMetrics, err := observability.InitMetrics()
	if err != nil {
		log.Fatalf("Failed to init metrics: %v", err)
	}
	defer func() {
		if err := shutdownMetrics(context.Background()); err != nil {
			lg.Error("failed to shutdown metrics", "error", err)
		}
	}()

	a, err := app.New(ctx, cfg, lg)
	if err != nil {
		log.Fatalf("Failed to set up: %v", err)
	}
	defer a.Close()

	runner := newTrackedRunner(a.Coordinator)

	// Observed only when scraped.
	meter := otel.Meter("gradefix-service")
	_, err = meter.Int64ObservableGauge("gradefix.runs.active",
		metric.WithDescription("Correction runs currently in progress"),
		metric.WithInt64Callback(func(ctx context.Context, obs metric.Int64Observer) error {
			obs.Observe(runner.Active())
			return nil
		}),
	)
	if err != nil {
		lg.Error("failed to register active runs metric", "error", err)
	}

	opts := controller.Options{
		ServiceToken: cfg.ServiceToken,
		Metrics:      metricsHandler,
		Logger:       lg,
	}
	if a.History != nil {
		opts.History = a.History
	}

	addr := fmt.Sprintf(":%d", cfg.HTTPPort)
	srv := controller.New(addr, runner, opts)

	go func() {
		lg.Info("gradefix service starting",
			"addr", addr,
			"canvas_url", cfg.CanvasURL,
			"history", a.History != nil,
			"token_fingerprint", auth.ParseToken(cfg.ServiceToken).Fingerprint(),
		)
		if err := srv.Run(ctx); err != nil {
			lg.Error("server stopped", "error", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	lg.Info("shutting down service")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Fatalf("Server forced to shutdown: %v", err)
	}
	lg.Info("server exited properly")
}
