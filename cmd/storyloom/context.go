package main

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"sync"

	"github.com/spf13/cobra"

	"storyloom/internal/config"
	"storyloom/internal/fileutil"
	"storyloom/internal/logging"
	"storyloom/internal/metrics"
	"storyloom/internal/notifications"
	"storyloom/internal/preflight"
	"storyloom/internal/services"
	"storyloom/internal/services/genai"
	"storyloom/internal/store"
	"storyloom/internal/workflow"
)

// generatorFactory builds the generation backend. Tests swap it for a fake.
type generatorFactory func(cfg *config.Config, recorder *metrics.Recorder) (workflow.Generator, error)

type commandContext struct {
	configFlag string

	// newGenerator and skipPreflight are overridden in tests.
	newGenerator  generatorFactory
	skipPreflight bool

	configOnce sync.Once
	config     *config.Config
	configErr  error

	store    *store.Store
	logger   *slog.Logger
	recorder *metrics.Recorder
}

func newCommandContext() *commandContext {
	return &commandContext{newGenerator: newGenAIGenerator}
}

func newGenAIGenerator(cfg *config.Config, recorder *metrics.Recorder) (workflow.Generator, error) {
	if err := cfg.RequireGeneration(); err != nil {
		return nil, err
	}
	var opts []genai.Option
	if recorder != nil {
		opts = append(opts, genai.WithObserver(recorder.ObserveGeneration))
	}
	client, err := genai.NewClient(genai.ConfigFrom(cfg), opts...)
	if err != nil {
		return nil, err
	}
	return client, nil
}

func (c *commandContext) ensureConfig() (*config.Config, error) {
	c.configOnce.Do(func() {
		cfg, _, _, err := config.Load(strings.TrimSpace(c.configFlag))
		if err != nil {
			c.configErr = err
			return
		}
		if err := cfg.EnsureDirectories(); err != nil {
			c.configErr = err
			return
		}
		c.config = cfg
	})
	return c.config, c.configErr
}

func (c *commandContext) openStore() (*store.Store, error) {
	if c.store != nil {
		return c.store, nil
	}
	cfg, err := c.ensureConfig()
	if err != nil {
		return nil, err
	}
	st, err := store.Open(cfg)
	if err != nil {
		return nil, err
	}
	c.store = st
	return st, nil
}

func (c *commandContext) ensureLogger() (*slog.Logger, error) {
	if c.logger != nil {
		return c.logger, nil
	}
	cfg, err := c.ensureConfig()
	if err != nil {
		return nil, err
	}
	logger, err := logging.NewFromConfig(cfg)
	if err != nil {
		return nil, err
	}
	c.logger = logger
	return logger, nil
}

// orchestrator wires the workflow for commands that generate content.
// Preflight runs first so a broken setup never creates a story row.
func (c *commandContext) orchestrator(ctx context.Context) (*workflow.Orchestrator, error) {
	cfg, err := c.ensureConfig()
	if err != nil {
		return nil, err
	}
	if !c.skipPreflight {
		if failed := preflight.Failed(preflight.RunAll(ctx, cfg)); len(failed) > 0 {
			return nil, services.Wrap(services.ErrConfiguration, "startup", "preflight", preflight.Summary(failed), nil)
		}
	}
	logger, err := c.ensureLogger()
	if err != nil {
		return nil, err
	}
	st, err := c.openStore()
	if err != nil {
		return nil, err
	}
	c.recorder = metrics.New(cfg.Metrics)
	generator, err := c.newGenerator(cfg, c.recorder)
	if err != nil {
		return nil, err
	}
	orch, err := workflow.New(workflow.Deps{
		Store:     st,
		Generator: generator,
		Writer:    fileutil.NewWriter(cfg.Paths.OutputDir),
		Metrics:   c.recorder,
		Notifier:  notifications.NewService(cfg),
		Logger:    logger,
	}, workflow.OptionsFromConfig(cfg))
	if err != nil {
		return nil, err
	}
	if recovered, err := orch.RecoverStale(ctx); err != nil {
		logger.Warn("stale story recovery failed", logging.Error(err))
	} else if recovered > 0 {
		logger.Info("recovered stale stories", logging.Int("count", recovered))
	}
	return orch, nil
}

// managementOrchestrator wires the workflow for archive and delete, which
// never call the generation backend and so work without an API key.
func (c *commandContext) managementOrchestrator() (*workflow.Orchestrator, error) {
	cfg, err := c.ensureConfig()
	if err != nil {
		return nil, err
	}
	logger, err := c.ensureLogger()
	if err != nil {
		return nil, err
	}
	st, err := c.openStore()
	if err != nil {
		return nil, err
	}
	return workflow.New(workflow.Deps{
		Store:     st,
		Generator: offlineGenerator{},
		Writer:    fileutil.NewWriter(cfg.Paths.OutputDir),
		Logger:    logger,
	}, workflow.OptionsFromConfig(cfg))
}

// offlineGenerator rejects every generation call.
type offlineGenerator struct{}

var errOffline = services.Wrap(services.ErrConfiguration, "cli", "generate", "generation is not available for this command", nil)

func (offlineGenerator) Complete(context.Context, string, string) (string, error) {
	return "", errOffline
}

func (offlineGenerator) CompleteJSON(context.Context, string, string) (string, error) {
	return "", errOffline
}

func (offlineGenerator) GenerateImage(context.Context, string) ([]byte, error) {
	return nil, errOffline
}

func (offlineGenerator) Synthesize(context.Context, string) ([]byte, error) {
	return nil, errOffline
}

// close flushes metrics and closes the store.
func (c *commandContext) close(ctx context.Context) error {
	var errs []error
	if c.recorder != nil {
		if ctx == nil {
			ctx = context.Background()
		}
		if err := c.recorder.Flush(context.WithoutCancel(ctx)); err != nil {
			errs = append(errs, err)
		}
		c.recorder = nil
	}
	if c.store != nil {
		errs = append(errs, c.store.Close())
		c.store = nil
	}
	return errors.Join(errs...)
}

func shouldSkipConfig(cmd *cobra.Command) bool {
	for c := cmd; c != nil; c = c.Parent() {
		if c.Annotations != nil && c.Annotations["skipConfigLoad"] == "true" {
			return true
		}
	}
	return false
}

func yesNo(value bool) string {
	if value {
		return "yes"
	}
	return "no"
}
