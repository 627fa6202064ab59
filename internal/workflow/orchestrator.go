package workflow

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"

	"storyloom/internal/assets"
	"storyloom/internal/config"
	"storyloom/internal/logging"
	"storyloom/internal/metrics"
	"storyloom/internal/notifications"
	"storyloom/internal/refine"
	"storyloom/internal/services"
	"storyloom/internal/store"
	"storyloom/internal/structure"
)

const stageName = "workflow"

// Generator is the generation backend consumed by the workflow.
type Generator interface {
	refine.Completer
	structure.JSONCompleter
	assets.ImageGenerator
	assets.SpeechSynthesizer
}

// Deps are the collaborators of an Orchestrator.
type Deps struct {
	Store     *store.Store
	Generator Generator
	Writer    assets.FileWriter
	Metrics   *metrics.Recorder
	Notifier  notifications.Service
	Logger    *slog.Logger
}

// Options tune an Orchestrator.
type Options struct {
	MaxRefineIterations int
	AssetConcurrency    int
	// LocksDir holds per-story lock files that keep two processes from
	// working on the same story.
	LocksDir string
}

// OptionsFromConfig maps the workflow config section to Options.
func OptionsFromConfig(cfg *config.Config) Options {
	return Options{
		MaxRefineIterations: cfg.Workflow.MaxRefineIterations,
		AssetConcurrency:    cfg.Workflow.AssetConcurrency,
		LocksDir:            cfg.LocksDir(),
	}
}

// Request is a story generation request.
type Request struct {
	Topic string  `validate:"required,max=500"`
	Age   float64 `validate:"gt=0,lte=18"`
}

// Orchestrator drives a story from draft to a terminal status.
type Orchestrator struct {
	store      *store.Store
	refiner    *refine.Loop
	structurer *structure.Structurer
	pipeline   *assets.Pipeline
	metrics    *metrics.Recorder
	notifier   notifications.Service
	validate   *validator.Validate
	locksDir   string
	logger     *slog.Logger
}

// New wires the refinement loop, structurer and asset pipeline around the
// store.
func New(deps Deps, opts Options) (*Orchestrator, error) {
	if deps.Store == nil {
		return nil, errors.New("workflow: store is required")
	}
	if deps.Generator == nil {
		return nil, errors.New("workflow: generator is required")
	}
	if deps.Writer == nil {
		return nil, errors.New("workflow: file writer is required")
	}
	if strings.TrimSpace(opts.LocksDir) == "" {
		return nil, errors.New("workflow: locks directory is required")
	}
	logger := deps.Logger
	if logger == nil {
		logger = logging.NewNop()
	}
	notifier := deps.Notifier
	if notifier == nil {
		notifier = notifications.NewService(nil)
	}

	o := &Orchestrator{
		store:      deps.Store,
		refiner:    refine.NewLoop(deps.Generator, opts.MaxRefineIterations, logger),
		structurer: structure.New(deps.Generator, logger),
		metrics:    deps.Metrics,
		notifier:   notifier,
		validate:   validator.New(),
		locksDir:   opts.LocksDir,
		logger:     logging.NewComponentLogger(logger, "workflow"),
	}
	o.pipeline = assets.New(deps.Generator, deps.Generator, deps.Writer, assets.Config{
		Concurrency: opts.AssetConcurrency,
		OnOutcome:   o.recordAsset,
	}, logger)
	return o, nil
}

// Run creates a story for req and generates it. A validation or store
// failure before the story exists returns a nil story. Once the story
// exists it is always returned, in its terminal status, alongside any error.
func (o *Orchestrator) Run(ctx context.Context, req Request) (*store.Story, error) {
	req.Topic = strings.TrimSpace(req.Topic)
	if err := o.validateRequest(req); err != nil {
		return nil, err
	}

	story, err := o.store.CreateStory(ctx, req.Topic, req.Age)
	if err != nil {
		return nil, err
	}
	ctx = services.WithRequestID(services.WithStoryID(ctx, story.ID), uuid.NewString())

	// The story is still a draft here and cannot move to failed.
	lock, err := acquireStoryLock(o.locksDir, story.ID)
	if err != nil {
		return story, err
	}
	defer lock.release()

	logging.WithContext(ctx, o.logger).Info("story started",
		logging.String(logging.FieldEventType, "story_start"),
		logging.String("topic", story.Topic),
		logging.Float64("target_age", story.TargetAge),
	)
	return o.generate(ctx, story)
}

func (o *Orchestrator) validateRequest(req Request) error {
	err := o.validate.Struct(req)
	if err == nil {
		return nil
	}
	var fieldErrs validator.ValidationErrors
	if errors.As(err, &fieldErrs) {
		parts := make([]string, 0, len(fieldErrs))
		for _, fe := range fieldErrs {
			parts = append(parts, describeField(fe))
		}
		return services.Wrap(services.ErrValidation, stageName, "validate request", strings.Join(parts, "; "), nil)
	}
	return services.Wrap(services.ErrValidation, stageName, "validate request", "", err)
}

func describeField(fe validator.FieldError) string {
	field := strings.ToLower(fe.Field())
	switch fe.Tag() {
	case "required":
		return field + " is required"
	case "max":
		return fmt.Sprintf("%s must be at most %s characters", field, fe.Param())
	case "gt":
		return fmt.Sprintf("%s must be greater than %s", field, fe.Param())
	case "lte":
		return fmt.Sprintf("%s must be at most %s", field, fe.Param())
	}
	return fmt.Sprintf("%s failed %s", field, fe.Tag())
}

// generate moves story to generating and runs whatever work is missing:
// the full pipeline when no pages exist, otherwise only the assets that have
// no ready row.
func (o *Orchestrator) generate(ctx context.Context, story *store.Story) (*store.Story, error) {
	started := time.Now()
	logger := logging.WithContext(ctx, o.logger)

	if err := o.store.UpdateStatus(ctx, story.ID, store.StatusGenerating, nil); err != nil {
		return story, err
	}

	pages, err := o.store.ListPages(ctx, story.ID)
	if err != nil {
		return o.fail(ctx, story, err, started)
	}

	var jobs []assets.Job
	if len(pages) == 0 {
		pages, err = o.compose(ctx, story)
		if err != nil {
			return o.fail(ctx, story, err, started)
		}
		jobs = make([]assets.Job, len(pages))
		for i, page := range pages {
			jobs[i] = assets.Job{Page: page, Kinds: store.AssetKinds()}
		}
	} else {
		jobs, err = o.missingAssets(ctx, story.ID)
		if err != nil {
			return o.fail(ctx, story, err, started)
		}
		logger.Info("resuming asset generation",
			logging.Int("pages", len(pages)),
			logging.Int("pages_with_missing_assets", len(jobs)),
		)
	}

	assetCtx := services.WithStage(ctx, "assets")
	results, err := o.pipeline.GenerateJobs(assetCtx, story.ID, jobs)
	if err != nil {
		return o.fail(ctx, story, err, started)
	}
	if err := ctx.Err(); err != nil {
		return o.fail(ctx, story, services.Wrap(services.ErrInterrupted, stageName, "generate assets", "run cancelled", err), started)
	}

	if err := o.store.UpdateStatus(ctx, story.ID, store.StatusCompleted, nil); err != nil {
		return o.fail(ctx, story, err, started)
	}
	ready, failed := assets.Counts(results)
	o.metrics.StoryFinished(string(store.StatusCompleted), "", time.Since(started))
	logger.Info("story completed",
		logging.String(logging.FieldEventType, "story_complete"),
		logging.Int("pages", len(pages)),
		logging.Int("assets_ready", ready),
		logging.Int("assets_failed", failed),
		logging.Duration("elapsed", time.Since(started)),
	)
	final := o.reload(ctx, story)
	o.notify(ctx, final, ready, failed, true)
	return final, nil
}

// compose refines the text, structures it and persists content and pages.
func (o *Orchestrator) compose(ctx context.Context, story *store.Story) ([]store.Page, error) {
	refineCtx := services.WithStage(ctx, "refine")
	draft, err := o.refiner.Refine(refineCtx, story.Topic, story.TargetAge)
	if err != nil {
		return nil, err
	}
	o.metrics.Refined(draft.Iterations)

	structureCtx := services.WithStage(ctx, "structure")
	result := o.structurer.Structure(structureCtx, draft.Text, story.TargetAge)
	if err := ctx.Err(); err != nil {
		return nil, services.Wrap(services.ErrInterrupted, stageName, "structure", "run cancelled", err)
	}
	o.metrics.Structured(string(result.Mode))

	title := result.Title
	if title == "" {
		title = structure.DefaultTitle(story.Topic)
	}
	if err := o.store.SaveContent(structureCtx, story.ID, store.Content{
		Title:            title,
		Text:             draft.Text,
		RefineIterations: draft.Iterations,
		StructureMode:    result.Mode,
	}); err != nil {
		return nil, err
	}
	pages, err := o.store.InsertPages(structureCtx, story.ID, result.Pages)
	if err != nil {
		return nil, err
	}
	logging.WithContext(structureCtx, o.logger).Info("pages stored",
		logging.String("title", title),
		logging.Int("pages", len(pages)),
		logging.String("structure_mode", string(result.Mode)),
		logging.Int("refine_iterations", draft.Iterations),
	)
	return pages, nil
}

// missingAssets lists the (page, kind) pairs without a ready asset.
func (o *Orchestrator) missingAssets(ctx context.Context, storyID string) ([]assets.Job, error) {
	graph, err := o.store.LoadGraph(ctx, storyID)
	if err != nil {
		return nil, err
	}
	if graph == nil {
		return nil, services.Wrap(services.ErrNotFound, stageName, "load story", "story "+storyID+" not found", nil)
	}
	var jobs []assets.Job
	for _, page := range graph.Pages {
		var kinds []store.AssetKind
		for _, kind := range store.AssetKinds() {
			if _, ok := page.ReadyAsset(kind); !ok {
				kinds = append(kinds, kind)
			}
		}
		if len(kinds) > 0 {
			jobs = append(jobs, assets.Job{Page: page.Page, Kinds: kinds})
		}
	}
	return jobs, nil
}

// recordAsset persists one pipeline outcome as soon as it lands.
func (o *Orchestrator) recordAsset(ctx context.Context, outcome assets.Outcome) error {
	if _, err := o.store.CreateAsset(ctx, outcome.NewAsset()); err != nil {
		return err
	}
	o.metrics.AssetRecorded(string(outcome.Kind), string(outcome.Status))
	return nil
}

// notify reports a finished story. Notification failures are logged only.
func (o *Orchestrator) notify(ctx context.Context, story *store.Story, ready, failed int, completed bool) {
	summary := notifications.StorySummary{
		ID:            story.ID,
		Title:         story.Title,
		Topic:         story.Topic,
		Pages:         story.PageCount,
		AssetsReady:   ready,
		AssetsFailed:  failed,
		FailureKind:   story.FailureKind,
		FailureReason: story.FailureReason,
	}
	notifyCtx := context.WithoutCancel(ctx)
	var err error
	if completed {
		err = o.notifier.NotifyStoryCompleted(notifyCtx, summary)
	} else {
		err = o.notifier.NotifyStoryFailed(notifyCtx, summary)
	}
	if err != nil {
		logging.WarnWithContext(logging.WithContext(ctx, o.logger), "story notification failed", "notification_failed",
			logging.Error(err),
			logging.String(logging.FieldImpact, "story status is unaffected"),
		)
	}
}

func (o *Orchestrator) reload(ctx context.Context, story *store.Story) *store.Story {
	updated, err := o.store.GetStory(context.WithoutCancel(ctx), story.ID)
	if err != nil || updated == nil {
		return story
	}
	return updated
}
