package assets

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"

	"storyloom/internal/logging"
	"storyloom/internal/services"
	"storyloom/internal/store"
)

const (
	stageName          = "assets"
	DefaultConcurrency = 4
)

// ImageGenerator renders an illustration prompt to image bytes.
type ImageGenerator interface {
	GenerateImage(ctx context.Context, prompt string) ([]byte, error)
}

// SpeechSynthesizer renders page text to audio bytes.
type SpeechSynthesizer interface {
	Synthesize(ctx context.Context, text string) ([]byte, error)
}

// FileWriter stores asset bytes and returns their path.
type FileWriter interface {
	Save(storyID string, pageIndex int, kind string, data []byte) (string, error)
}

// OutcomeFunc is called once for every attempted task as soon as it
// finishes. A returned error aborts the remaining work.
type OutcomeFunc func(ctx context.Context, outcome Outcome) error

// Config tunes a Pipeline.
type Config struct {
	Concurrency int
	OnOutcome   OutcomeFunc
}

// Pipeline generates an image and an audio clip per page with bounded
// concurrency. Generation and write failures are recorded per asset and
// never stop the other tasks.
type Pipeline struct {
	images      ImageGenerator
	speech      SpeechSynthesizer
	writer      FileWriter
	concurrency int
	onOutcome   OutcomeFunc
	logger      *slog.Logger
}

// New builds a Pipeline. A concurrency below one uses DefaultConcurrency.
func New(images ImageGenerator, speech SpeechSynthesizer, writer FileWriter, cfg Config, logger *slog.Logger) *Pipeline {
	if cfg.Concurrency < 1 {
		cfg.Concurrency = DefaultConcurrency
	}
	if logger == nil {
		logger = logging.NewNop()
	}
	return &Pipeline{
		images:      images,
		speech:      speech,
		writer:      writer,
		concurrency: cfg.Concurrency,
		onOutcome:   cfg.OnOutcome,
		logger:      logging.NewComponentLogger(logger, "assets"),
	}
}

// Concurrency returns the maximum number of simultaneous tasks.
func (p *Pipeline) Concurrency() int {
	return p.concurrency
}

// Job selects the asset kinds to generate for one page.
type Job struct {
	Page  store.Page
	Kinds []store.AssetKind
}

// Generate produces both assets for every page. It returns one result per
// page in input order.
func (p *Pipeline) Generate(ctx context.Context, storyID string, pages []store.Page) ([]PageResult, error) {
	jobs := make([]Job, len(pages))
	for i, page := range pages {
		jobs[i] = Job{Page: page, Kinds: store.AssetKinds()}
	}
	return p.GenerateJobs(ctx, storyID, jobs)
}

type task struct {
	slot *Outcome
	page store.Page
	kind store.AssetKind
}

// GenerateJobs runs the requested (page, kind) tasks. Every task writes only
// its own result slot, so results stay matched to pages regardless of
// completion order. Tasks that never start because ctx was cancelled are
// recorded as failed without being reported to OnOutcome. The only error
// returned is the first OnOutcome failure; all tasks are joined before
// Generate returns.
func (p *Pipeline) GenerateJobs(ctx context.Context, storyID string, jobs []Job) ([]PageResult, error) {
	ctx = services.WithStage(ctx, stageName)
	logger := logging.WithContext(ctx, p.logger)
	started := time.Now()

	results := make([]PageResult, len(jobs))
	var tasks []task
	for i, job := range jobs {
		results[i].Page = job.Page
		for _, kind := range job.Kinds {
			switch kind {
			case store.AssetKindImage:
				tasks = append(tasks, task{slot: &results[i].Image, page: job.Page, kind: kind})
			case store.AssetKindAudio:
				tasks = append(tasks, task{slot: &results[i].Audio, page: job.Page, kind: kind})
			}
		}
	}

	group, gctx := errgroup.WithContext(ctx)
	group.SetLimit(p.concurrency)
	for _, t := range tasks {
		if err := gctx.Err(); err != nil {
			*t.slot = skipped(t.page, t.kind, err)
			continue
		}
		group.Go(func() error {
			if err := gctx.Err(); err != nil {
				*t.slot = skipped(t.page, t.kind, err)
				return nil
			}
			outcome := p.run(gctx, storyID, t.page, t.kind)
			*t.slot = outcome
			p.logOutcome(logger, outcome)
			if p.onOutcome == nil {
				return nil
			}
			// Landed outcomes are persisted even while the run is being cancelled.
			if err := p.onOutcome(context.WithoutCancel(gctx), outcome); err != nil {
				return fmt.Errorf("record %s asset for page %d: %w", outcome.Kind, outcome.PageIndex, err)
			}
			return nil
		})
	}
	err := group.Wait()

	ready, failed := Counts(results)
	logger.Info("asset generation finished",
		logging.Int("ready", ready),
		logging.Int("failed", failed),
		logging.Int("tasks", len(tasks)),
		logging.Duration("elapsed", time.Since(started)),
	)
	return results, err
}

func (p *Pipeline) run(ctx context.Context, storyID string, page store.Page, kind store.AssetKind) Outcome {
	outcome := Outcome{PageID: page.ID, PageIndex: page.Index, Kind: kind}

	var (
		data []byte
		err  error
	)
	switch kind {
	case store.AssetKindImage:
		data, err = p.images.GenerateImage(ctx, page.IllustrationPrompt)
	case store.AssetKindAudio:
		data, err = p.speech.Synthesize(ctx, page.Text)
	}
	if err != nil {
		return outcome.fail(classify(kind, err))
	}

	path, err := p.writer.Save(storyID, page.Index, string(kind), data)
	if err != nil {
		return outcome.fail(err)
	}
	outcome.Status = store.AssetStatusReady
	outcome.FilePath = path
	outcome.SizeBytes = int64(len(data))
	return outcome
}

func (p *Pipeline) logOutcome(logger *slog.Logger, outcome Outcome) {
	attrs := []logging.Attr{
		logging.PageIndex(outcome.PageIndex),
		logging.AssetKind(string(outcome.Kind)),
	}
	if outcome.Status == store.AssetStatusReady {
		attrs = append(attrs, logging.String("file_path", outcome.FilePath), logging.Int64("size_bytes", outcome.SizeBytes))
		logger.Debug("asset ready", logging.Args(attrs...)...)
		return
	}
	attrs = append(attrs,
		logging.Error(outcome.Err),
		logging.String(logging.FieldErrorKind, services.Details(outcome.Err).Kind),
		logging.String(logging.FieldImpact, "page keeps its text; this asset stays missing"),
	)
	logging.WarnWithContext(logger, "asset generation failed", "asset_failed", attrs...)
}

func classify(kind store.AssetKind, err error) error {
	if errors.Is(err, services.ErrGeneration) || errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return err
	}
	return services.Wrap(services.ErrGeneration, stageName, "generate "+string(kind), "", err)
}

func skipped(page store.Page, kind store.AssetKind, err error) Outcome {
	outcome := Outcome{PageID: page.ID, PageIndex: page.Index, Kind: kind}
	return outcome.fail(services.Wrap(services.ErrInterrupted, stageName, "generate "+string(kind), "not started", err))
}
