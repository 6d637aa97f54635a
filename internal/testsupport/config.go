package testsupport

import (
	"path/filepath"
	"testing"

	"callscribe/internal/config"
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
	cfg.Paths.StagingDir = filepath.Join(base, "staging")
	cfg.Paths.LogDir = filepath.Join(base, "logs")
	cfg.Paths.OutputDir = filepath.Join(base, "transcripts")
	cfg.STT.BaseURL = "http://127.0.0.1:0"
	cfg.STT.APIKey = "test"

	for _, opt := range opts {
		opt(&cfg)
	}
	if err := cfg.EnsureDirectories(); err != nil {
		t.Fatalf("EnsureDirectories: %v", err)
	}
	return &cfg
}

// WithSTTBaseURL points the test config at a (usually httptest) gateway.
func WithSTTBaseURL(url string) ConfigOption {
	return func(cfg *config.Config) {
		cfg.STT.BaseURL = url
	}
}

// WithFallbackStrategy overrides the fallback strategy on the test config.
func WithFallbackStrategy(strategy string) ConfigOption {
	return func(cfg *config.Config) {
		cfg.Fallback.Strategy = strategy
	}
}

// BaseDir returns the root temp directory backing the generated config.
func BaseDir(cfg *config.Config) string {
	return filepath.Dir(cfg.Paths.StagingDir)
}
