// Package config loads settings from defaults, an optional YAML file, a
// .env file and environment variables, in increasing order of precedence.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// EnvPrefix prefixes every environment variable read by Load.
const EnvPrefix = "GRADEFIX"

// Config holds all configuration values for the application.
type Config struct {
	// Canvas host and credentials. Exactly one of CanvasToken and
	// SessionCookie is used.
	CanvasURL     string
	CanvasToken   string
	SessionCookie string
	CSRFToken     string

	// Per-request timeout against Canvas.
	RequestTimeout time.Duration

	// Minimum spacing between Canvas requests. Zero disables spacing.
	RequestInterval time.Duration

	// Cap on in-flight Canvas requests. Zero disables the cap.
	MaxConcurrent int

	// Pause between submission updates.
	WriteDelay time.Duration

	// Items whose submissions are walked in parallel.
	FetchConcurrency int

	ExcludeExcused bool

	// StrictSubmissionTypes is "auto", "true" or "false". Auto lets the
	// mode decide.
	StrictSubmissionTypes string

	SkipPermissionProbe bool

	// Run history database. Empty disables history.
	DatabaseURL string

	// HTTP server port for the trigger service
	HTTPPort int

	// Static bearer token guarding the trigger service. Empty disables auth.
	ServiceToken string

	// OTLP gRPC collector address. Empty disables tracing.
	OTELEndpoint string

	LogLevel string
}

// SetDefaults registers default values on v.
func SetDefaults(v *viper.Viper) {
	v.SetDefault("request_timeout", 5*time.Second)
	v.SetDefault("request_interval", 20*time.Millisecond)
	v.SetDefault("max_concurrent", 10)
	v.SetDefault("write_delay", 100*time.Millisecond)
	v.SetDefault("fetch_concurrency", 10)
	v.SetDefault("exclude_excused", false)
	v.SetDefault("strict_submission_types", "auto")
	v.SetDefault("skip_permission_probe", false)
	v.SetDefault("http_port", 6161)
	v.SetDefault("log_level", "info")
}

// BindEnv maps configuration keys to environment variables. Every key reads
// GRADEFIX_<KEY>; a few also accept their conventional unprefixed names.
func BindEnv(v *viper.Viper) {
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	v.AutomaticEnv()

	_ = v.BindEnv("canvas_url", EnvPrefix+"_CANVAS_URL", EnvPrefix+"_URL", "CANVAS_URL")
	_ = v.BindEnv("canvas_token", EnvPrefix+"_CANVAS_TOKEN", EnvPrefix+"_TOKEN", "CANVAS_TOKEN")
	_ = v.BindEnv("database_url", EnvPrefix+"_DATABASE_URL", "DATABASE_URL")
	_ = v.BindEnv("http_port", EnvPrefix+"_HTTP_PORT", "PORT")
	_ = v.BindEnv("otel_endpoint", EnvPrefix+"_OTEL_ENDPOINT", "OTEL_EXPORTER_OTLP_ENDPOINT")
}

// LoadDotEnv exports the variables of a .env file into the process
// environment without overriding variables that are already set. The file
// is GRADEFIX_ENV_FILE or ./.env; a missing file is not an error.
func LoadDotEnv() error {
	path := os.Getenv(EnvPrefix + "_ENV_FILE")
	if path == "" {
		path = ".env"
	}
	if err := godotenv.Load(path); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("loading %s: %w", path, err)
	}
	return nil
}

// Load reads configuration from the YAML file at path (optional), the .env
// file and environment variables.
func Load(path string) (*Config, error) {
	if err := LoadDotEnv(); err != nil {
		return nil, err
	}

	v := viper.New()
	SetDefaults(v)
	BindEnv(v)

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("reading config file %s: %w", path, err)
		}
	}

	return FromViper(v)
}

// FromViper builds and validates a Config from an already prepared viper
// instance.
func FromViper(v *viper.Viper) (*Config, error) {
	cfg := &Config{
		CanvasURL:             strings.TrimSpace(v.GetString("canvas_url")),
		CanvasToken:           v.GetString("canvas_token"),
		SessionCookie:         v.GetString("session_cookie"),
		CSRFToken:             v.GetString("csrf_token"),
		RequestTimeout:        v.GetDuration("request_timeout"),
		RequestInterval:       v.GetDuration("request_interval"),
		MaxConcurrent:         v.GetInt("max_concurrent"),
		WriteDelay:            v.GetDuration("write_delay"),
		FetchConcurrency:      v.GetInt("fetch_concurrency"),
		ExcludeExcused:        v.GetBool("exclude_excused"),
		StrictSubmissionTypes: strings.ToLower(v.GetString("strict_submission_types")),
		SkipPermissionProbe:   v.GetBool("skip_permission_probe"),
		DatabaseURL:           v.GetString("database_url"),
		HTTPPort:              v.GetInt("http_port"),
		ServiceToken:          v.GetString("service_token"),
		OTELEndpoint:          v.GetString("otel_endpoint"),
		LogLevel:              v.GetString("log_level"),
	}

	if cfg.RequestTimeout <= 0 {
		return nil, fmt.Errorf("request_timeout must be positive, got %v", cfg.RequestTimeout)
	}
	if cfg.RequestInterval < 0 || cfg.WriteDelay < 0 {
		return nil, fmt.Errorf("request_interval and write_delay must not be negative")
	}
	if cfg.MaxConcurrent < 0 {
		return nil, fmt.Errorf("max_concurrent must not be negative, got %d", cfg.MaxConcurrent)
	}
	if cfg.FetchConcurrency < 1 {
		return nil, fmt.Errorf("fetch_concurrency must be at least 1, got %d", cfg.FetchConcurrency)
	}
	if cfg.HTTPPort < 1 || cfg.HTTPPort > 65535 {
		return nil, fmt.Errorf("invalid http_port %d", cfg.HTTPPort)
	}
	switch cfg.StrictSubmissionTypes {
	case "auto", "true", "false":
	default:
		return nil, fmt.Errorf("invalid strict_submission_types %q (want auto, true or false)", cfg.StrictSubmissionTypes)
	}

	return cfg, nil
}

// ValidateCanvas checks the settings needed to talk to Canvas.
func (c *Config) ValidateCanvas() error {
	if c.CanvasURL == "" {
		return fmt.Errorf("canvas_url is required (env: %s_CANVAS_URL)", EnvPrefix)
	}
	if c.CanvasToken == "" && c.SessionCookie == "" {
		return fmt.Errorf("canvas_token or session_cookie is required (env: %s_CANVAS_TOKEN)", EnvPrefix)
	}
	if c.CanvasToken != "" && c.SessionCookie != "" {
		return fmt.Errorf("set only one of canvas_token and session_cookie")
	}
	return nil
}

// StrictOverride turns StrictSubmissionTypes into a per-mode override; nil
// keeps the mode default.
func (c *Config) StrictOverride() *bool {
	switch c.StrictSubmissionTypes {
	case "true":
		strict := true
		return &strict
	case "false":
		strict := false
		return &strict
	default:
		return nil
	}
}
