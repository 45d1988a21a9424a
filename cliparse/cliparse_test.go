// cliparse/cliparse_test.go
package cliparse

import (
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestParseFlags_EnvVars(t *testing.T) {
	t.Setenv("PORT", "9000")
	t.Setenv("DATABASE_URL", "postgres://test")
	t.Setenv("DATABASE_TYPE", "postgres")
	t.Setenv("CHANNEL_URL", "redis://localhost:6379/0")
	t.Setenv("STREAM_HEARTBEAT", "10s")

	cfg, err := ParseFlags([]string{})
	if err != nil {
		t.Fatal(err)
	}

	if cfg.Port != 9000 {
		t.Errorf("expected port 9000, got %d", cfg.Port)
	}
	if cfg.DatabaseType != "postgres" {
		t.Errorf("expected database type postgres, got %s", cfg.DatabaseType)
	}
	if cfg.ChannelURL != "redis://localhost:6379/0" {
		t.Errorf("expected channel URL from env, got %q", cfg.ChannelURL)
	}
	if cfg.Heartbeat != 10*time.Second {
		t.Errorf("expected heartbeat 10s, got %v", cfg.Heartbeat)
	}
}

func TestParseFlags_CLIOverridesEnv(t *testing.T) {
	t.Setenv("PORT", "9000")
	t.Setenv("DATABASE_URL", "")

	cfg, err := ParseFlags([]string{"-p", "8080", "-d", "file:test.db", "-retry", "2s"})
	if err != nil {
		t.Fatal(err)
	}

	// CLI should override env
	if cfg.Port != 8080 {
		t.Errorf("CLI should override env: expected 8080, got %d", cfg.Port)
	}
	if cfg.RetryDelay != 2*time.Second {
		t.Errorf("expected retry 2s, got %v", cfg.RetryDelay)
	}
}

func TestParseFlags_Defaults(t *testing.T) {
	t.Setenv("PORT", "")
	t.Setenv("DATABASE_TYPE", "")
	t.Setenv("CHANNEL_URL", "")
	t.Setenv("STREAM_HEARTBEAT", "")
	t.Setenv("STREAM_RETRY_DELAY", "")
	t.Setenv("LOG_LEVEL", "")

	cfg, err := ParseFlags([]string{"-d", ":memory:"})
	if err != nil {
		t.Fatal(err)
	}

	if cfg.Port != DefaultPort {
		t.Errorf("expected default port %d, got %d", DefaultPort, cfg.Port)
	}
	if cfg.DatabaseType != "sqlite" {
		t.Errorf("expected sqlite by default, got %s", cfg.DatabaseType)
	}
	if cfg.ChannelURL != "" {
		t.Errorf("expected in-process channel by default, got %q", cfg.ChannelURL)
	}
	if cfg.Heartbeat != 25*time.Second {
		t.Errorf("expected 25s heartbeat, got %v", cfg.Heartbeat)
	}
	if cfg.RetryDelay != time.Second {
		t.Errorf("expected 1s retry delay, got %v", cfg.RetryDelay)
	}
	if cfg.LogLevel != "info" {
		t.Errorf("expected info log level, got %s", cfg.LogLevel)
	}
}

func TestParseFlags_Errors(t *testing.T) {
	testCases := []struct {
		name string
		env  map[string]string
		args []string
	}{
		{"missing database URL", map[string]string{"DATABASE_URL": ""}, nil},
		{"bad port", map[string]string{"PORT": "abc"}, []string{"-d", "x"}},
		{"bad database type", nil, []string{"-d", "x", "-t", "mysql"}},
		{"bad heartbeat", map[string]string{"STREAM_HEARTBEAT": "soon"}, []string{"-d", "x"}},
		{"bad log level", nil, []string{"-d", "x", "-log-level", "loud"}},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			t.Setenv("PORT", "")
			t.Setenv("STREAM_HEARTBEAT", "")
			for k, v := range tc.env {
				t.Setenv(k, v)
			}

			if _, err := ParseFlags(tc.args); err == nil {
				t.Error("expected an error")
			}
		})
	}
}

func TestParseLevel(t *testing.T) {
	level, err := ParseLevel("debug")
	if err != nil {
		t.Fatal(err)
	}
	if level != slog.LevelDebug {
		t.Errorf("expected debug, got %v", level)
	}
}

func TestLoadDotEnv(t *testing.T) {
	path := filepath.Join(t.TempDir(), "test.env")
	if err := os.WriteFile(path, []byte("LIVEPOLL_DOTENV_CHECK=loaded\n"), 0o600); err != nil {
		t.Fatal(err)
	}
	t.Setenv("LIVEPOLL_DOTENV_CHECK", "")
	os.Unsetenv("LIVEPOLL_DOTENV_CHECK")

	if err := LoadDotEnv(path, filepath.Join(t.TempDir(), "missing.env")); err != nil {
		t.Fatalf("LoadDotEnv failed: %v", err)
	}

	if got := os.Getenv("LIVEPOLL_DOTENV_CHECK"); got != "loaded" {
		t.Errorf("expected value from file, got %q", got)
	}
}
