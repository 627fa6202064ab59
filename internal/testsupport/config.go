package testsupport

import (
	"os"
	"path/filepath"
	"testing"

	"storyloom/internal/config"
)

// ConfigOption adjusts the config built by NewConfig.
type ConfigOption func(*testConfig)

type testConfig struct {
	cfg           config.Config
	missingOutput bool
}

// NewConfig returns defaults rooted in a fresh temp directory with a dummy
// API key pointed at an unroutable endpoint. All directories exist unless
// WithoutDirectories is given.
func NewConfig(t testing.TB, opts ...ConfigOption) *config.Config {
	t.Helper()
	base := t.TempDir()

	tc := testConfig{cfg: config.Default()}
	tc.cfg.Paths = config.Paths{
		DataDir:   filepath.Join(base, "data"),
		OutputDir: filepath.Join(base, "stories"),
		LogDir:    filepath.Join(base, "logs"),
	}
	tc.cfg.Generation.APIKey = "test"
	tc.cfg.Generation.BaseURL = "http://127.0.0.1:0/v1"
	tc.cfg.Metrics.TextfilePath = filepath.Join(base, "metrics", "storyloom.prom")
	for _, opt := range opts {
		if opt != nil {
			opt(&tc)
		}
	}

	cfg := &tc.cfg
	if tc.missingOutput {
		// The store still needs somewhere to live.
		if err := os.MkdirAll(cfg.Paths.DataDir, 0o755); err != nil {
			t.Fatalf("mkdir data dir: %v", err)
		}
		return cfg
	}
	if err := cfg.EnsureDirectories(); err != nil {
		t.Fatalf("ensure directories: %v", err)
	}
	return cfg
}

// WithRefineCap sets workflow.max_refine_iterations.
func WithRefineCap(n int) ConfigOption {
	return func(tc *testConfig) { tc.cfg.Workflow.MaxRefineIterations = n }
}

// WithAssetConcurrency sets workflow.asset_concurrency.
func WithAssetConcurrency(n int) ConfigOption {
	return func(tc *testConfig) { tc.cfg.Workflow.AssetConcurrency = n }
}

// WithMetrics enables metrics before directories are created, so the
// textfile directory exists.
func WithMetrics() ConfigOption {
	return func(tc *testConfig) { tc.cfg.Metrics.Enabled = true }
}

// WithoutDirectories leaves the output and log directories uncreated.
func WithoutDirectories() ConfigOption {
	return func(tc *testConfig) { tc.missingOutput = true }
}
