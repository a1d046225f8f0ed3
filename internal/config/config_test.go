package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

// isolate points the .env lookup at a file that does not exist.
func isolate(t *testing.T) {
	t.Helper()
	t.Setenv("GRADEFIX_ENV_FILE", filepath.Join(t.TempDir(), "missing.env"))
}

func TestLoad_DefaultValues(t *testing.T) {
	isolate(t)
	t.Setenv("DATABASE_URL", "")
	t.Setenv("PORT", "")
	t.Setenv("OTEL_EXPORTER_OTLP_ENDPOINT", "")

	cfg, err := Load("")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if cfg.RequestTimeout != 5*time.Second {
		t.Errorf("expected RequestTimeout 5s, got %v", cfg.RequestTimeout)
	}
	if cfg.RequestInterval != 20*time.Millisecond {
		t.Errorf("expected RequestInterval 20ms, got %v", cfg.RequestInterval)
	}
	if cfg.MaxConcurrent != 10 {
		t.Errorf("expected MaxConcurrent 10, got %d", cfg.MaxConcurrent)
	}
	if cfg.WriteDelay != 100*time.Millisecond {
		t.Errorf("expected WriteDelay 100ms, got %v", cfg.WriteDelay)
	}
	if cfg.FetchConcurrency != 10 {
		t.Errorf("expected FetchConcurrency 10, got %d", cfg.FetchConcurrency)
	}
	if cfg.HTTPPort != 6161 {
		t.Errorf("expected HTTPPort 6161, got %d", cfg.HTTPPort)
	}
	if cfg.StrictSubmissionTypes != "auto" || cfg.StrictOverride() != nil {
		t.Errorf("expected strict_submission_types auto, got %q", cfg.StrictSubmissionTypes)
	}
	if cfg.ExcludeExcused || cfg.SkipPermissionProbe {
		t.Error("expected exclude_excused and skip_permission_probe to default to false")
	}
	if cfg.DatabaseURL != "" || cfg.OTELEndpoint != "" {
		t.Errorf("expected history and tracing disabled by default, got %q and %q", cfg.DatabaseURL, cfg.OTELEndpoint)
	}
}

func TestLoad_EnvVarOverrides(t *testing.T) {
	isolate(t)
	t.Setenv("GRADEFIX_CANVAS_URL", "https://school.instructure.com")
	t.Setenv("GRADEFIX_CANVAS_TOKEN", "secret")
	t.Setenv("GRADEFIX_WRITE_DELAY", "250ms")
	t.Setenv("GRADEFIX_FETCH_CONCURRENCY", "4")
	t.Setenv("GRADEFIX_EXCLUDE_EXCUSED", "true")
	t.Setenv("GRADEFIX_STRICT_SUBMISSION_TYPES", "false")
	t.Setenv("DATABASE_URL", "postgres://custom/db")
	t.Setenv("PORT", "9999")
	t.Setenv("OTEL_EXPORTER_OTLP_ENDPOINT", "otel-collector:4317")

	cfg, err := Load("")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if cfg.CanvasURL != "https://school.instructure.com" || cfg.CanvasToken != "secret" {
		t.Errorf("expected Canvas settings from env, got %q / %q", cfg.CanvasURL, cfg.CanvasToken)
	}
	if cfg.WriteDelay != 250*time.Millisecond {
		t.Errorf("expected WriteDelay 250ms, got %v", cfg.WriteDelay)
	}
	if cfg.FetchConcurrency != 4 {
		t.Errorf("expected FetchConcurrency 4, got %d", cfg.FetchConcurrency)
	}
	if !cfg.ExcludeExcused {
		t.Error("expected ExcludeExcused from env")
	}
	if strict := cfg.StrictOverride(); strict == nil || *strict {
		t.Errorf("expected strict override false, got %v", strict)
	}
	if cfg.DatabaseURL != "postgres://custom/db" {
		t.Errorf("expected DatabaseURL from env, got %s", cfg.DatabaseURL)
	}
	if cfg.HTTPPort != 9999 {
		t.Errorf("expected HTTPPort 9999, got %d", cfg.HTTPPort)
	}
	if cfg.OTELEndpoint != "otel-collector:4317" {
		t.Errorf("expected OTELEndpoint otel-collector:4317, got %s", cfg.OTELEndpoint)
	}
}

func TestLoad_InvalidValues(t *testing.T) {
	tests := []struct {
		name  string
		key   string
		value string
	}{
		{"strict mode", "GRADEFIX_STRICT_SUBMISSION_TYPES", "sometimes"},
		{"timeout", "GRADEFIX_REQUEST_TIMEOUT", "0s"},
		{"fetch concurrency", "GRADEFIX_FETCH_CONCURRENCY", "0"},
		{"port", "PORT", "70000"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			isolate(t)
			t.Setenv(tt.key, tt.value)
			if _, err := Load(""); err == nil {
				t.Errorf("expected error for %s=%s", tt.key, tt.value)
			}
		})
	}
}

func TestLoad_ConfigFile(t *testing.T) {
	isolate(t)
	path := filepath.Join(t.TempDir(), "gradefix.yaml")
	configContent := `
canvas_url: "https://from-file.instructure.com"
session_cookie: "canvas_session=abc"
csrf_token: "csrf"
write_delay: 0s
max_concurrent: 2
database_url: "postgres://config-file/db"
`
	if err := os.WriteFile(path, []byte(configContent), 0o600); err != nil {
		t.Fatalf("failed to write config: %v", err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if cfg.CanvasURL != "https://from-file.instructure.com" {
		t.Errorf("expected CanvasURL from config file, got %s", cfg.CanvasURL)
	}
	if cfg.SessionCookie != "canvas_session=abc" || cfg.CSRFToken != "csrf" {
		t.Errorf("expected session credentials from config file, got %q / %q", cfg.SessionCookie, cfg.CSRFToken)
	}
	if cfg.WriteDelay != 0 {
		t.Errorf("expected WriteDelay 0, got %v", cfg.WriteDelay)
	}
	if cfg.MaxConcurrent != 2 {
		t.Errorf("expected MaxConcurrent 2, got %d", cfg.MaxConcurrent)
	}
	if err := cfg.ValidateCanvas(); err != nil {
		t.Errorf("expected valid Canvas settings, got %v", err)
	}
}

func TestLoad_EnvOverridesConfigFile(t *testing.T) {
	isolate(t)
	path := filepath.Join(t.TempDir(), "gradefix.yaml")
	if err := os.WriteFile(path, []byte("database_url: \"postgres://from-file/db\"\nhttp_port: 7777\n"), 0o600); err != nil {
		t.Fatalf("failed to write config: %v", err)
	}

	t.Setenv("DATABASE_URL", "postgres://from-env/db")
	t.Setenv("GRADEFIX_HTTP_PORT", "8888")

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if cfg.DatabaseURL != "postgres://from-env/db" {
		t.Errorf("expected DatabaseURL from env, got %s", cfg.DatabaseURL)
	}
	if cfg.HTTPPort != 8888 {
		t.Errorf("expected HTTPPort 8888 from env, got %d", cfg.HTTPPort)
	}
}

func TestLoad_DotEnvFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "test.env")
	if err := os.WriteFile(path, []byte("GRADEFIX_CANVAS_URL=https://dotenv.instructure.com\nGRADEFIX_SERVICE_TOKEN=from-dotenv\n"), 0o600); err != nil {
		t.Fatalf("failed to write .env: %v", err)
	}
	t.Setenv("GRADEFIX_ENV_FILE", path)
	// Registered with t.Setenv so the values godotenv exports are undone.
	t.Setenv("GRADEFIX_CANVAS_URL", "")
	t.Setenv("GRADEFIX_SERVICE_TOKEN", "already-set")
	os.Unsetenv("GRADEFIX_CANVAS_URL")

	cfg, err := Load("")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if cfg.CanvasURL != "https://dotenv.instructure.com" {
		t.Errorf("expected CanvasURL from .env, got %s", cfg.CanvasURL)
	}
	if cfg.ServiceToken != "already-set" {
		t.Errorf("expected existing env to win over .env, got %s", cfg.ServiceToken)
	}
}

func TestLoad_InvalidConfigFile(t *testing.T) {
	isolate(t)

	_, err := Load("/nonexistent/path/to/config.yaml")
	if err == nil {
		t.Error("expected error for nonexistent config file")
	}
}

func TestValidateCanvas(t *testing.T) {
	tests := []struct {
		name    string
		cfg     Config
		wantErr bool
	}{
		{"token", Config{CanvasURL: "https://c.test", CanvasToken: "t"}, false},
		{"session", Config{CanvasURL: "https://c.test", SessionCookie: "s"}, false},
		{"no url", Config{CanvasToken: "t"}, true},
		{"no credentials", Config{CanvasURL: "https://c.test"}, true},
		{"both credentials", Config{CanvasURL: "https://c.test", CanvasToken: "t", SessionCookie: "s"}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if err := tt.cfg.ValidateCanvas(); (err != nil) != tt.wantErr {
				t.Errorf("ValidateCanvas() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}
