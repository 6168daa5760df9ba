// Package config reads uiprobe defaults from the environment.
// Command-line flags override everything here.
package config

import (
	"os"
	"path/filepath"
	"strconv"
	"time"
)

// Config holds environment-provided defaults.
type Config struct {
	// BaseURL resolves relative scenario URLs.
	BaseURL string
	// OutDir receives screenshots and checkpoint reports.
	OutDir string
	// Journal is the SQLite journal path; empty disables journaling.
	Journal string
	// Headless runs the browser without a window.
	Headless bool
	// ChromePath overrides browser discovery.
	ChromePath string
	// ActionTimeout bounds a single locate, click or screenshot.
	ActionTimeout time.Duration
	// LogLevel is the minimum slog level ("debug", "info", "warn", "error").
	LogLevel string
}

// Load reads configuration from environment variables with defaults.
func Load() Config {
	return Config{
		BaseURL:       os.Getenv("UIPROBE_BASE_URL"),
		OutDir:        getenv("UIPROBE_OUT_DIR", filepath.Join(os.TempDir(), "uiprobe")),
		Journal:       os.Getenv("UIPROBE_JOURNAL"),
		Headless:      getenvBool("UIPROBE_HEADLESS", true),
		ChromePath:    os.Getenv("UIPROBE_CHROME"),
		ActionTimeout: getenvDuration("UIPROBE_ACTION_TIMEOUT", 10*time.Second),
		LogLevel:      getenv("UIPROBE_LOG_LEVEL", "info"),
	}
}

func getenv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getenvBool(key string, fallback bool) bool {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return fallback
	}
	return b
}

func getenvDuration(key string, fallback time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	d, err := time.ParseDuration(v)
	if err != nil || d <= 0 {
		return fallback
	}
	return d
}
