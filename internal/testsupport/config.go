// Package testsupport provides shared helpers for package tests.
package testsupport

import (
	"path/filepath"
	"testing"

	"chime/internal/config"
	"chime/internal/stats"
)

// ConfigOption allows callers to customize the generated test configuration.
type ConfigOption func(*config.Config)

// NewConfig produces a config seeded with unique temp directories per test.
// It defaults common fields and applies any provided options.
func NewConfig(t testing.TB, opts ...ConfigOption) *config.Config {
	t.Helper()

	base := t.TempDir()
	cfg := config.Default()
	cfg.Paths.DataDir = filepath.Join(base, "data")
	cfg.Paths.LogDir = filepath.Join(base, "logs")

	for _, opt := range opts {
		opt(&cfg)
	}
	return &cfg
}

// WithInterval overrides the bell interval on the test config.
func WithInterval(minutes int) ConfigOption {
	return func(c *config.Config) {
		c.Bell.IntervalMinutes = minutes
	}
}

// WithNtfyTopic enables push notifications against the given endpoint.
func WithNtfyTopic(topic string) ConfigOption {
	return func(c *config.Config) {
		c.Notifications.NtfyTopic = topic
	}
}

// MustOpenStats opens a statistics store for the config and registers a
// cleanup to close it.
func MustOpenStats(t testing.TB, cfg *config.Config) *stats.Store {
	t.Helper()

	store, err := stats.Open(cfg)
	if err != nil {
		t.Fatalf("open stats store: %v", err)
	}
	t.Cleanup(func() {
		if err := store.Close(); err != nil {
			t.Errorf("close stats store: %v", err)
		}
	})
	return store
}
