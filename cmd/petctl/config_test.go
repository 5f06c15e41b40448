package main

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/danmuck/petctl/internal/config"
	"github.com/danmuck/petctl/internal/logging"
	"github.com/danmuck/petctl/internal/testutil/testlog"
	"github.com/rs/zerolog"
)

func TestResolveConfigPath(t *testing.T) {
	testlog.Start(t)
	t.Setenv(envConfigPath, "")
	if got := resolveConfigPath(""); got != defaultConfigPath {
		t.Fatalf("unexpected default path: %q", got)
	}
	t.Setenv(envConfigPath, " /etc/petctl.toml ")
	if got := resolveConfigPath(""); got != "/etc/petctl.toml" {
		t.Fatalf("unexpected env path: %q", got)
	}
	if got := resolveConfigPath("local.toml"); got != "local.toml" {
		t.Fatalf("expected flag to win, got %q", got)
	}
}

func TestLoadConfigFallsBackOnlyForDefaultPath(t *testing.T) {
	testlog.Start(t)
	if _, err := os.Stat(defaultConfigPath); err == nil {
		t.Skip("default config present in working directory")
	}
	cfg, err := loadConfig(defaultConfigPath)
	if err != nil {
		t.Fatalf("load default path: %v", err)
	}
	if cfg.API.Addr != config.Default().API.Addr {
		t.Fatalf("expected defaults, got addr %q", cfg.API.Addr)
	}

	if _, err := loadConfig(filepath.Join(t.TempDir(), "missing.toml")); err == nil {
		t.Fatalf("expected error for explicit missing config")
	}
}

func TestLoadConfigFromFile(t *testing.T) {
	testlog.Start(t)
	path := filepath.Join(t.TempDir(), "config.toml")
	content := `
heartbeat = "1s"

[api]
addr = "127.0.0.1:9911"
`
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	cfg, err := loadConfig(path)
	if err != nil {
		t.Fatalf("load config: %v", err)
	}
	if cfg.Heartbeat.Duration != time.Second {
		t.Fatalf("unexpected heartbeat: %v", cfg.Heartbeat)
	}
	if cfg.API.Addr != "127.0.0.1:9911" {
		t.Fatalf("unexpected addr: %q", cfg.API.Addr)
	}
}

func TestApplyLogLevel(t *testing.T) {
	testlog.Start(t)
	prev := zerolog.GlobalLevel()
	t.Cleanup(func() { zerolog.SetGlobalLevel(prev) })

	t.Setenv(logging.EnvLogLevel, "")
	applyLogLevel("warn")
	if zerolog.GlobalLevel() != zerolog.WarnLevel {
		t.Fatalf("expected warn level, got %s", zerolog.GlobalLevel())
	}

	t.Setenv(logging.EnvLogLevel, "debug")
	applyLogLevel("error")
	if zerolog.GlobalLevel() != zerolog.WarnLevel {
		t.Fatalf("expected env level to take precedence, got %s", zerolog.GlobalLevel())
	}
}

func TestLoadExampleConfig(t *testing.T) {
	testlog.Start(t)
	cfg, err := loadConfig("ex.config.toml")
	if err != nil {
		t.Fatalf("load example config: %v", err)
	}
	if !cfg.Store.Enabled || cfg.Store.Path != "local/rounds" {
		t.Fatalf("unexpected store section: %+v", cfg.Store)
	}
	if cfg.Heartbeat.Duration != 5*time.Second {
		t.Fatalf("unexpected heartbeat: %v", cfg.Heartbeat)
	}
	if cfg.Pet.MinUpdate != 3 {
		t.Fatalf("unexpected min_update: %d", cfg.Pet.MinUpdate)
	}
	if len(cfg.API.CorsOrigins) != 1 {
		t.Fatalf("unexpected cors origins: %+v", cfg.API.CorsOrigins)
	}
}
