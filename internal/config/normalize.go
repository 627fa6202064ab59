package config

import (
	"fmt"
	"os"
	"strings"
)

func (c *Config) normalize() error {
	if err := c.normalizePaths(); err != nil {
		return err
	}
	c.normalizeGeneration()
	c.normalizeWorkflow()
	c.normalizeLogging()
	return c.normalizeMetrics()
}

func (c *Config) normalizePaths() error {
	var err error
	if strings.TrimSpace(c.Paths.DataDir) == "" {
		c.Paths.DataDir = defaultDataDir
	}
	if c.Paths.DataDir, err = expandPath(c.Paths.DataDir); err != nil {
		return fmt.Errorf("paths.data_dir: %w", err)
	}
	if strings.TrimSpace(c.Paths.OutputDir) == "" {
		c.Paths.OutputDir = defaultOutputDir
	}
	if c.Paths.OutputDir, err = expandPath(c.Paths.OutputDir); err != nil {
		return fmt.Errorf("paths.output_dir: %w", err)
	}
	if strings.TrimSpace(c.Paths.LogDir) == "" {
		c.Paths.LogDir = defaultLogDir
	}
	if c.Paths.LogDir, err = expandPath(c.Paths.LogDir); err != nil {
		return fmt.Errorf("paths.log_dir: %w", err)
	}
	return nil
}

func (c *Config) normalizeGeneration() {
	g := &c.Generation
	g.APIKey = strings.TrimSpace(g.APIKey)
	if g.APIKey == "" {
		if value, ok := os.LookupEnv("STORYLOOM_API_KEY"); ok {
			g.APIKey = strings.TrimSpace(value)
		} else if value, ok := os.LookupEnv("OPENAI_API_KEY"); ok {
			g.APIKey = strings.TrimSpace(value)
		}
	}
	g.BaseURL = strings.TrimRight(strings.TrimSpace(g.BaseURL), "/")
	if g.BaseURL == "" {
		g.BaseURL = defaultBaseURL
	}
	g.TextModel = strings.TrimSpace(g.TextModel)
	if g.TextModel == "" {
		g.TextModel = defaultTextModel
	}
	g.ImageModel = strings.TrimSpace(g.ImageModel)
	if g.ImageModel == "" {
		g.ImageModel = defaultImageModel
	}
	g.ImageSize = strings.ToLower(strings.TrimSpace(g.ImageSize))
	if g.ImageSize == "" {
		g.ImageSize = defaultImageSize
	}
	g.SpeechModel = strings.TrimSpace(g.SpeechModel)
	if g.SpeechModel == "" {
		g.SpeechModel = defaultSpeechModel
	}
	g.Voice = strings.ToLower(strings.TrimSpace(g.Voice))
	if g.Voice == "" {
		g.Voice = defaultVoice
	}
	if g.TimeoutSeconds <= 0 {
		g.TimeoutSeconds = defaultTimeoutSeconds
	}
}

func (c *Config) normalizeWorkflow() {
	if c.Workflow.AssetConcurrency == 0 {
		c.Workflow.AssetConcurrency = defaultAssetConcurrency
	}
}

func (c *Config) normalizeLogging() {
	c.Logging.Format = strings.ToLower(strings.TrimSpace(c.Logging.Format))
	switch c.Logging.Format {
	case "", "console":
		c.Logging.Format = "console"
	case "json":
	default:
		c.Logging.Format = "console"
	}
	c.Logging.Level = strings.ToLower(strings.TrimSpace(c.Logging.Level))
	if c.Logging.Level == "" {
		c.Logging.Level = defaultLogLevel
	}
	if c.Logging.StageOverrides == nil {
		c.Logging.StageOverrides = map[string]string{}
	}
}

func (c *Config) normalizeMetrics() error {
	c.Metrics.PushgatewayURL = strings.TrimSpace(c.Metrics.PushgatewayURL)
	if !c.Metrics.Enabled {
		return nil
	}
	var err error
	if c.Metrics.TextfilePath, err = expandPath(strings.TrimSpace(c.Metrics.TextfilePath)); err != nil {
		return fmt.Errorf("metrics.textfile_path: %w", err)
	}
	return nil
}
