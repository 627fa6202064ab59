package metrics

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/push"

	"storyloom/internal/config"
)

const (
	namespace = "storyloom"
	jobName   = "storyloom"
)

// Recorder collects workflow metrics in a private registry. A nil Recorder
// is valid and records nothing, which is what callers get when metrics are
// disabled.
type Recorder struct {
	registry *prometheus.Registry

	stories          *prometheus.CounterVec
	storyDuration    prometheus.Histogram
	structureModes   *prometheus.CounterVec
	refineIterations prometheus.Histogram
	assets           *prometheus.CounterVec
	generationCalls  *prometheus.HistogramVec

	textfilePath   string
	pushgatewayURL string
	instance       string
}

// New builds a Recorder from the metrics config section. It returns nil
// when metrics are disabled.
func New(cfg config.Metrics) *Recorder {
	if !cfg.Enabled {
		return nil
	}
	r := newRecorder()
	r.textfilePath = strings.TrimSpace(cfg.TextfilePath)
	r.pushgatewayURL = strings.TrimSpace(cfg.PushgatewayURL)
	return r
}

func newRecorder() *Recorder {
	registry := prometheus.NewRegistry()
	r := &Recorder{
		registry: registry,
		stories: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "stories_total",
			Help:      "Stories that reached a terminal status, by status and failure kind.",
		}, []string{"status", "failure_kind"}),
		storyDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "story_duration_seconds",
			Help:      "Wall time of a workflow run from generating to a terminal status.",
			Buckets:   prometheus.ExponentialBuckets(5, 2, 8),
		}),
		structureModes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "structure_results_total",
			Help:      "Structuring results by mode.",
		}, []string{"mode"}),
		refineIterations: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "refine_iterations",
			Help:      "Refiner calls needed per story.",
			Buckets:   prometheus.LinearBuckets(0, 1, 9),
		}),
		assets: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "assets_total",
			Help:      "Asset generation outcomes by kind and status.",
		}, []string{"kind", "status"}),
		generationCalls: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "generation_call_seconds",
			Help:      "Latency of generation backend calls by operation and outcome.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"operation", "outcome"}),
	}
	registry.MustRegister(r.stories, r.storyDuration, r.structureModes, r.refineIterations, r.assets, r.generationCalls)

	hostname, err := os.Hostname()
	if err != nil {
		hostname = "unknown"
	}
	r.instance = fmt.Sprintf("%s-%d", hostname, os.Getpid())
	return r
}

// Registry exposes the underlying registry.
func (r *Recorder) Registry() *prometheus.Registry {
	if r == nil {
		return nil
	}
	return r.registry
}

// ObserveGeneration records one backend call. Its signature matches the
// generation client's observer hook.
func (r *Recorder) ObserveGeneration(operation string, elapsed time.Duration, err error) {
	if r == nil {
		return
	}
	outcome := "ok"
	if err != nil {
		outcome = "error"
	}
	r.generationCalls.WithLabelValues(operation, outcome).Observe(elapsed.Seconds())
}

// StoryFinished records a terminal story status.
func (r *Recorder) StoryFinished(status, failureKind string, elapsed time.Duration) {
	if r == nil {
		return
	}
	if failureKind == "" {
		failureKind = "none"
	}
	r.stories.WithLabelValues(status, failureKind).Inc()
	if elapsed > 0 {
		r.storyDuration.Observe(elapsed.Seconds())
	}
}

// Structured records how a story's pages were produced.
func (r *Recorder) Structured(mode string) {
	if r == nil {
		return
	}
	r.structureModes.WithLabelValues(mode).Inc()
}

// Refined records the refiner call count of an approved story.
func (r *Recorder) Refined(iterations int) {
	if r == nil {
		return
	}
	r.refineIterations.Observe(float64(iterations))
}

// AssetRecorded counts one asset outcome.
func (r *Recorder) AssetRecorded(kind, status string) {
	if r == nil {
		return
	}
	r.assets.WithLabelValues(kind, status).Inc()
}

// Flush writes the textfile and pushes to the gateway, whichever are
// configured. Both are attempted; their errors are joined.
func (r *Recorder) Flush(ctx context.Context) error {
	if r == nil {
		return nil
	}
	var errs []error
	if r.textfilePath != "" {
		if err := prometheus.WriteToTextfile(r.textfilePath, r.registry); err != nil {
			errs = append(errs, fmt.Errorf("write metrics textfile: %w", err))
		}
	}
	if r.pushgatewayURL != "" {
		pusher := push.New(r.pushgatewayURL, jobName).Gatherer(r.registry).Grouping("instance", r.instance)
		if err := pusher.AddContext(ctx); err != nil {
			errs = append(errs, fmt.Errorf("push metrics: %w", err))
		}
	}
	return errors.Join(errs...)
}
