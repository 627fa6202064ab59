package config

import (
	"errors"
	"fmt"
	"net/url"
	"strings"
)

// Validate ensures the configuration is usable.
func (c *Config) Validate() error {
	if err := c.validateGeneration(); err != nil {
		return err
	}
	if err := c.validateWorkflow(); err != nil {
		return err
	}
	if err := c.validateLogging(); err != nil {
		return err
	}
	if err := c.validateMetrics(); err != nil {
		return err
	}
	return c.validateNotifications()
}

func (c *Config) validateGeneration() error {
	if _, err := url.ParseRequestURI(c.Generation.BaseURL); err != nil {
		return fmt.Errorf("generation.base_url is not a valid URL: %w", err)
	}
	width, height, ok := strings.Cut(c.Generation.ImageSize, "x")
	if !ok || width == "" || height == "" {
		return fmt.Errorf("generation.image_size must look like 1024x1024, got %q", c.Generation.ImageSize)
	}
	return ensurePositiveMap(map[string]int{
		"generation.timeout_seconds": c.Generation.TimeoutSeconds,
	})
}

// Workflow limits bound backend cost and request bursts per story.
const (
	maxRefineIterationsLimit = 20
	assetConcurrencyLimit    = 32
)

func (c *Config) validateWorkflow() error {
	if n := c.Workflow.MaxRefineIterations; n < 0 || n > maxRefineIterationsLimit {
		return fmt.Errorf("workflow.max_refine_iterations must be between 0 and %d, got %d", maxRefineIterationsLimit, n)
	}
	if n := c.Workflow.AssetConcurrency; n < 1 || n > assetConcurrencyLimit {
		return fmt.Errorf("workflow.asset_concurrency must be between 1 and %d, got %d", assetConcurrencyLimit, n)
	}
	return nil
}

func (c *Config) validateLogging() error {
	switch c.Logging.Level {
	case "debug", "info", "warn", "warning", "error":
	default:
		return fmt.Errorf("logging.level %q is not one of debug, info, warn, error", c.Logging.Level)
	}
	return nil
}

func (c *Config) validateMetrics() error {
	if !c.Metrics.Enabled {
		return nil
	}
	if c.Metrics.TextfilePath == "" && c.Metrics.PushgatewayURL == "" {
		return errors.New("metrics.textfile_path or metrics.pushgateway_url must be set when metrics.enabled is true")
	}
	if c.Metrics.PushgatewayURL != "" {
		if _, err := url.ParseRequestURI(c.Metrics.PushgatewayURL); err != nil {
			return fmt.Errorf("metrics.pushgateway_url is not a valid URL: %w", err)
		}
	}
	return nil
}

func (c *Config) validateNotifications() error {
	topic := strings.TrimSpace(c.Notifications.NtfyTopic)
	if topic == "" {
		return nil
	}
	if _, err := url.ParseRequestURI(topic); err != nil {
		return fmt.Errorf("notifications.ntfy_topic must be a full URL (https://ntfy.sh/<topic>): %w", err)
	}
	return ensurePositiveMap(map[string]int{
		"notifications.request_timeout_seconds": c.Notifications.RequestTimeoutSeconds,
	})
}

func ensurePositiveMap(values map[string]int) error {
	for key, value := range values {
		if value <= 0 {
			return fmt.Errorf("%s must be positive", key)
		}
	}
	return nil
}
