package cmd

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/spf13/viper"
)

func TestRootCommand_EnvVarBinding(t *testing.T) {
	resetViper()

	t.Setenv("GRADEFIX_CANVAS_TOKEN", "env-token-value")
	t.Setenv("CANVAS_URL", "https://env.instructure.com")
	initConfig()

	if token := viper.GetString("canvas_token"); token != "env-token-value" {
		t.Errorf("expected token from env var, got: %s", token)
	}
	if url := viper.GetString("canvas_url"); url != "https://env.instructure.com" {
		t.Errorf("expected url from env var, got: %s", url)
	}
}

func TestRootCommand_FlagsBindToConfigKeys(t *testing.T) {
	resetViper()

	if err := rootCmd.PersistentFlags().Set("url", "https://flag.instructure.com"); err != nil {
		t.Fatalf("failed to set flag: %v", err)
	}
	initConfig()

	if url := viper.GetString("canvas_url"); url != "https://flag.instructure.com" {
		t.Errorf("expected url from flag, got: %s", url)
	}
	if interval := viper.GetDuration("write_delay"); interval == 0 {
		t.Error("expected defaults to be registered")
	}
}

func TestRootCommand_ExecuteReturnsNoError(t *testing.T) {
	resetViper()

	if _, err := execute(t, "--help"); err != nil {
		t.Errorf("root command should execute without error: %v", err)
	}
}

func TestRootCommand_HasSubcommands(t *testing.T) {
	want := map[string]bool{"fix-late": false, "remove-missing": false, "labels": false, "history": false}
	for _, cmd := range rootCmd.Commands() {
		if _, ok := want[cmd.Name()]; ok {
			want[cmd.Name()] = true
		}
	}
	for name, found := range want {
		if !found {
			t.Errorf("expected %q subcommand to be registered with root command", name)
		}
	}
}

func TestExecute_ReturnsError(t *testing.T) {
	resetViper()

	if _, err := execute(t, "unknown-command-xyz"); err == nil {
		t.Error("expected error for unknown command")
	}
}

func TestRootCommand_CustomConfigFile(t *testing.T) {
	resetViper()

	path := filepath.Join(t.TempDir(), "gradefix.yaml")
	content := "canvas_url: https://custom-from-config.test\ncanvas_token: config-token\nwrite_delay: 250ms\n"
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("failed to write config: %v", err)
	}

	cfgFile = path
	defer func() { cfgFile = "" }()
	initConfig()

	if url := viper.GetString("canvas_url"); url != "https://custom-from-config.test" {
		t.Errorf("expected url from config file, got: %s", url)
	}
	if token := viper.GetString("canvas_token"); token != "config-token" {
		t.Errorf("expected token from config file, got: %s", token)
	}
	if delay := viper.GetDuration("write_delay").String(); delay != "250ms" {
		t.Errorf("expected write delay from config file, got: %s", delay)
	}
}
