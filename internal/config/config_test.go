package config_test

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/pelletier/go-toml/v2"

	"storyloom/internal/config"
)

func TestLoadWithoutFileUsesDefaults(t *testing.T) {
	home := t.TempDir()
	t.Setenv("HOME", home)
	t.Setenv("STORYLOOM_API_KEY", "test-key")

	cfg, resolved, exists, err := config.Load("")
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if exists || resolved == "" {
		t.Fatalf("expected a missing default path, got %q exists=%v", resolved, exists)
	}

	data := filepath.Join(home, ".local", "share", "storyloom")
	checks := []struct {
		name      string
		got, want any
	}{
		{"data dir", cfg.Paths.DataDir, data},
		{"output dir", cfg.Paths.OutputDir, filepath.Join(data, "stories")},
		{"database", cfg.DatabasePath(), filepath.Join(data, "storyloom.db")},
		{"locks", cfg.LocksDir(), filepath.Join(data, "locks")},
		{"api key", cfg.Generation.APIKey, "test-key"},
		{"refine cap", cfg.Workflow.MaxRefineIterations, 5},
		{"asset concurrency", cfg.Workflow.AssetConcurrency, 4},
	}
	for _, c := range checks {
		if c.got != c.want {
			t.Errorf("%s = %v, want %v", c.name, c.got, c.want)
		}
	}

	if err := cfg.EnsureDirectories(); err != nil {
		t.Fatalf("EnsureDirectories failed: %v", err)
	}
	for _, dir := range []string{cfg.Paths.DataDir, cfg.Paths.OutputDir, cfg.Paths.LogDir} {
		if info, err := os.Stat(dir); err != nil || !info.IsDir() {
			t.Fatalf("expected directory %q: %v", dir, err)
		}
	}
}

func TestLoadPrefersProjectFileWhenNoUserConfig(t *testing.T) {
	t.Setenv("HOME", t.TempDir())
	project := t.TempDir()
	t.Chdir(project)
	if err := os.WriteFile("storyloom.toml", []byte("[workflow]\nasset_concurrency = 2\n"), 0o644); err != nil {
		t.Fatalf("write project config: %v", err)
	}
	cfg, resolved, exists, err := config.Load("")
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if !exists || filepath.Base(resolved) != "storyloom.toml" || cfg.Workflow.AssetConcurrency != 2 {
		t.Fatalf("expected project config, got %q exists=%v concurrency=%d", resolved, exists, cfg.Workflow.AssetConcurrency)
	}
}

func TestExpandPathHome(t *testing.T) {
	home := t.TempDir()
	t.Setenv("HOME", home)
	got, err := config.ExpandPath("~/stories/../tales")
	if err != nil {
		t.Fatalf("ExpandPath: %v", err)
	}
	if got != filepath.Join(home, "tales") {
		t.Fatalf("unexpected expansion %q", got)
	}
}

func TestLoadCustomPath(t *testing.T) {
	tempDir := t.TempDir()
	configPath := filepath.Join(tempDir, "storyloom.toml")

	type payload struct {
		Generation struct {
			APIKey    string `toml:"api_key"`
			BaseURL   string `toml:"base_url"`
			TextModel string `toml:"text_model"`
		} `toml:"generation"`
		Workflow struct {
			MaxRefineIterations int `toml:"max_refine_iterations"`
			AssetConcurrency    int `toml:"asset_concurrency"`
		} `toml:"workflow"`
	}
	custom := payload{}
	custom.Generation.APIKey = "abc123"
	custom.Generation.BaseURL = "http://localhost:8080/v1/"
	custom.Generation.TextModel = "local-model"
	custom.Workflow.MaxRefineIterations = 2
	custom.Workflow.AssetConcurrency = 1
	data, err := toml.Marshal(custom)
	if err != nil {
		t.Fatalf("marshal custom config: %v", err)
	}
	if err := os.WriteFile(configPath, data, 0o644); err != nil {
		t.Fatalf("write custom config: %v", err)
	}

	cfg, resolved, exists, err := config.Load(configPath)
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if !exists {
		t.Fatal("expected exists to be true")
	}
	if resolved != configPath {
		t.Fatalf("unexpected resolved path: got %q want %q", resolved, configPath)
	}
	if cfg.Generation.BaseURL != "http://localhost:8080/v1" {
		t.Fatalf("expected trailing slash trimmed, got %q", cfg.Generation.BaseURL)
	}
	if cfg.Generation.TextModel != "local-model" {
		t.Fatalf("unexpected text model %q", cfg.Generation.TextModel)
	}
	if cfg.Generation.ImageModel != config.Default().Generation.ImageModel {
		t.Fatalf("expected default image model, got %q", cfg.Generation.ImageModel)
	}
	if cfg.Workflow.MaxRefineIterations != 2 || cfg.Workflow.AssetConcurrency != 1 {
		t.Fatalf("unexpected workflow section: %+v", cfg.Workflow)
	}
}

func TestConfigFileKeyWinsOverEnv(t *testing.T) {
	t.Setenv("HOME", t.TempDir())
	t.Setenv("STORYLOOM_API_KEY", "env-key")
	configPath := filepath.Join(t.TempDir(), "storyloom.toml")
	if err := os.WriteFile(configPath, []byte("[generation]\napi_key = \"file-key\"\n"), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	cfg, _, _, err := config.Load(configPath)
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if cfg.Generation.APIKey != "file-key" {
		t.Fatalf("expected file key, got %q", cfg.Generation.APIKey)
	}
}

func TestOpenAIKeyFallback(t *testing.T) {
	t.Setenv("HOME", t.TempDir())
	t.Setenv("OPENAI_API_KEY", "openai-key")
	cfg, _, _, err := config.Load(filepath.Join(t.TempDir(), "missing.toml"))
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if cfg.Generation.APIKey != "openai-key" {
		t.Fatalf("expected OPENAI_API_KEY fallback, got %q", cfg.Generation.APIKey)
	}
	if err := cfg.RequireGeneration(); err != nil {
		t.Fatalf("RequireGeneration: %v", err)
	}
}

func TestRequireGenerationWithoutKey(t *testing.T) {
	cfg := config.Default()
	err := cfg.RequireGeneration()
	if err == nil {
		t.Fatal("expected missing key error")
	}
	if !strings.Contains(err.Error(), "generation.api_key") {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestLoadRejectsUnknownKeys(t *testing.T) {
	t.Setenv("HOME", t.TempDir())
	configPath := filepath.Join(t.TempDir(), "storyloom.toml")
	if err := os.WriteFile(configPath, []byte("[workflow]\nmax_iterations = 3\n"), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	if _, _, _, err := config.Load(configPath); err == nil {
		t.Fatal("expected unknown key to be rejected")
	}
}

func TestValidateRejectsBadValues(t *testing.T) {
	cases := []struct {
		name   string
		mutate func(*config.Config)
		want   string
	}{
		{"negative refine cap", func(c *config.Config) { c.Workflow.MaxRefineIterations = -1 }, "max_refine_iterations"},
		{"zero concurrency", func(c *config.Config) { c.Workflow.AssetConcurrency = 0 }, "asset_concurrency"},
		{"refine cap too high", func(c *config.Config) { c.Workflow.MaxRefineIterations = 21 }, "max_refine_iterations"},
		{"concurrency too high", func(c *config.Config) { c.Workflow.AssetConcurrency = 33 }, "asset_concurrency"},
		{"bad image size", func(c *config.Config) { c.Generation.ImageSize = "large" }, "image_size"},
		{"bad base url", func(c *config.Config) { c.Generation.BaseURL = "not a url" }, "base_url"},
		{"zero timeout", func(c *config.Config) { c.Generation.TimeoutSeconds = 0 }, "timeout_seconds"},
		{"bad level", func(c *config.Config) { c.Logging.Level = "loud" }, "logging.level"},
		{"relative ntfy topic", func(c *config.Config) { c.Notifications.NtfyTopic = "stories" }, "ntfy_topic"},
		{"metrics without sink", func(c *config.Config) {
			c.Metrics.Enabled = true
			c.Metrics.TextfilePath = ""
		}, "metrics"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			cfg := config.Default()
			tc.mutate(&cfg)
			err := cfg.Validate()
			if err == nil {
				t.Fatal("expected validation error")
			}
			if !strings.Contains(err.Error(), tc.want) {
				t.Fatalf("error %q does not mention %q", err, tc.want)
			}
		})
	}
}

func TestSampleConfigLoads(t *testing.T) {
	t.Setenv("HOME", t.TempDir())
	path := filepath.Join(t.TempDir(), "nested", "config.toml")
	if err := config.CreateSample(path); err != nil {
		t.Fatalf("CreateSample: %v", err)
	}
	cfg, _, exists, err := config.Load(path)
	if err != nil {
		t.Fatalf("Load sample: %v", err)
	}
	if !exists {
		t.Fatal("expected sample to exist")
	}
	if cfg.Logging.Format != "console" {
		t.Fatalf("unexpected log format %q", cfg.Logging.Format)
	}
}
