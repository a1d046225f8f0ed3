package app

import (
	"context"
	"io"
	"log/slog"
	"testing"
	"time"

	"gradefix/internal/config"
)

func testConfig() *config.Config {
	return &config.Config{
		CanvasURL:             "https://canvas.test",
		CanvasToken:           "token",
		RequestTimeout:        time.Second,
		RequestInterval:       20 * time.Millisecond,
		MaxConcurrent:         10,
		FetchConcurrency:      4,
		StrictSubmissionTypes: "auto",
	}
}

func TestNew_WithoutDatabase(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	a, err := New(context.Background(), testConfig(), logger)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	defer a.Close()

	if a.Client == nil || a.Coordinator == nil {
		t.Fatal("expected client and coordinator")
	}
	if a.History != nil {
		t.Error("expected no history without a database url")
	}
	if a.Client.BaseURL() != "https://canvas.test" {
		t.Errorf("base url = %q", a.Client.BaseURL())
	}
}

func TestNewCanvasClient_RequiresCredentials(t *testing.T) {
	cfg := testConfig()
	cfg.CanvasToken = ""

	if _, err := NewCanvasClient(cfg, slog.Default()); err == nil {
		t.Fatal("expected an error without credentials")
	}
}

func TestNewCanvasClient_RejectsBothCredentials(t *testing.T) {
	cfg := testConfig()
	cfg.SessionCookie = "_session=abc"

	if _, err := NewCanvasClient(cfg, slog.Default()); err == nil {
		t.Fatal("expected an error with both token and session cookie")
	}
}
