package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// Paths contains directory configuration.
type Paths struct {
	DataDir   string `toml:"data_dir"`
	OutputDir string `toml:"output_dir"`
	LogDir    string `toml:"log_dir"`
}

// Generation contains connection settings for the OpenAI-compatible
// text, image and speech backend.
type Generation struct {
	APIKey         string `toml:"api_key"`
	BaseURL        string `toml:"base_url"`
	TextModel      string `toml:"text_model"`
	ImageModel     string `toml:"image_model"`
	ImageSize      string `toml:"image_size"`
	SpeechModel    string `toml:"speech_model"`
	Voice          string `toml:"voice"`
	TimeoutSeconds int    `toml:"timeout_seconds"`
}

// Workflow contains limits for the story generation workflow.
type Workflow struct {
	// MaxRefineIterations caps the number of refiner calls per story.
	MaxRefineIterations int `toml:"max_refine_iterations"`
	// AssetConcurrency bounds simultaneous image/audio tasks.
	AssetConcurrency int `toml:"asset_concurrency"`
}

// Logging contains configuration for log output.
type Logging struct {
	Format         string            `toml:"format"`
	Level          string            `toml:"level"`
	StageOverrides map[string]string `toml:"stage_overrides"`
}

// Metrics contains configuration for Prometheus export.
type Metrics struct {
	Enabled        bool   `toml:"enabled"`
	PushgatewayURL string `toml:"pushgateway_url"`
	TextfilePath   string `toml:"textfile_path"`
}

// Notifications contains ntfy settings. An empty topic disables them.
type Notifications struct {
	NtfyTopic             string `toml:"ntfy_topic"`
	RequestTimeoutSeconds int    `toml:"request_timeout_seconds"`
}

// Config encapsulates all configuration values for storyloom.
//
// Configuration sections by subsystem:
//   - Paths: database, asset output and log directories
//   - Generation: text/image/speech backend connection and models
//   - Workflow: refinement cap and asset concurrency
//   - Logging: log format and level
//   - Metrics: textfile and pushgateway export
//   - Notifications: ntfy alerts when a story finishes
type Config struct {
	Paths         Paths         `toml:"paths"`
	Generation    Generation    `toml:"generation"`
	Workflow      Workflow      `toml:"workflow"`
	Logging       Logging       `toml:"logging"`
	Metrics       Metrics       `toml:"metrics"`
	Notifications Notifications `toml:"notifications"`
}

// EnsureDirectories creates the data, output and log directories. The
// workflow never creates directories itself, so the CLI calls this before
// any story is generated.
func (c *Config) EnsureDirectories() error {
	for _, dir := range []string{c.Paths.DataDir, c.Paths.OutputDir, c.Paths.LogDir} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create directory %q: %w", dir, err)
		}
	}
	if c.Metrics.Enabled && strings.TrimSpace(c.Metrics.TextfilePath) != "" {
		if err := os.MkdirAll(filepath.Dir(c.Metrics.TextfilePath), 0o755); err != nil {
			return fmt.Errorf("create metrics directory: %w", err)
		}
	}
	return nil
}

// DatabasePath returns the SQLite database location.
func (c *Config) DatabasePath() string {
	return filepath.Join(c.Paths.DataDir, "storyloom.db")
}

// LocksDir returns the directory holding per-story retry locks.
func (c *Config) LocksDir() string {
	return filepath.Join(c.Paths.DataDir, "locks")
}

// GenerationTimeout returns the per-call timeout for the generation backend.
func (c *Config) GenerationTimeout() time.Duration {
	return time.Duration(c.Generation.TimeoutSeconds) * time.Second
}

// RequireGeneration reports whether generation credentials are configured.
// Read-only commands do not need them, so Validate leaves the check to callers.
func (c *Config) RequireGeneration() error {
	if strings.TrimSpace(c.Generation.APIKey) != "" {
		return nil
	}
	defaultPath, err := DefaultConfigPath()
	if err != nil {
		defaultPath = defaultConfigPath
	}
	return fmt.Errorf("generation.api_key is required. Set STORYLOOM_API_KEY or OPENAI_API_KEY, or edit %s (create with 'storyloom config init')", defaultPath)
}
