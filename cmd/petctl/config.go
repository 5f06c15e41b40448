package main

import (
	"errors"
	"io/fs"
	"os"
	"strings"

	"github.com/danmuck/petctl/internal/config"
	"github.com/danmuck/petctl/internal/logging"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

const (
	envConfigPath     = "PETCTL_CONFIG"
	defaultConfigPath = "cmd/petctl/config.toml"
)

// resolveConfigPath picks the flag value, then the environment, then the
// default location.
func resolveConfigPath(flagValue string) string {
	if v := strings.TrimSpace(flagValue); v != "" {
		return v
	}
	if v := strings.TrimSpace(os.Getenv(envConfigPath)); v != "" {
		return v
	}
	return defaultConfigPath
}

// loadConfig reads path. A missing file at the default location falls back
// to the built-in defaults.
func loadConfig(path string) (config.Config, error) {
	cfg, err := config.Load(path)
	if err == nil {
		return cfg, nil
	}
	if path == defaultConfigPath && errors.Is(err, fs.ErrNotExist) {
		log.Warn().Str("path", path).Msg("petctl: config not found, using defaults")
		return config.Default(), nil
	}
	return config.Config{}, err
}

// applyLogLevel installs the configured level unless the environment
// already chose one.
func applyLogLevel(raw string) {
	if strings.TrimSpace(os.Getenv(logging.EnvLogLevel)) != "" {
		return
	}
	if level, ok := logging.ParseLevel(raw); ok {
		zerolog.SetGlobalLevel(level)
	}
}
