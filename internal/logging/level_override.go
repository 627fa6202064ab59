package logging

import (
	"context"
	"log/slog"
	"strings"

	"storyloom/internal/services"
)

// stageLevelHandler applies per-stage minimum levels. The wrapped handler
// must be configured with the most verbose level any stage needs.
type stageLevelHandler struct {
	next      slog.Handler
	base      slog.Level
	overrides map[string]slog.Level
	stage     string
}

func newStageLevelHandler(next slog.Handler, base slog.Level, overrides map[string]string) slog.Handler {
	parsed := make(map[string]slog.Level, len(overrides))
	for stage, level := range overrides {
		key := strings.ToLower(strings.TrimSpace(stage))
		if key == "" {
			continue
		}
		parsed[key] = parseLevel(level)
	}
	return &stageLevelHandler{next: next, base: base, overrides: parsed}
}

func (h *stageLevelHandler) threshold(ctx context.Context) slog.Level {
	stage := h.stage
	if stage == "" && ctx != nil {
		stage, _ = services.StageFromContext(ctx)
	}
	if lvl, ok := h.overrides[strings.ToLower(stage)]; ok {
		return lvl
	}
	return h.base
}

func (h *stageLevelHandler) Enabled(ctx context.Context, level slog.Level) bool {
	if level < h.threshold(ctx) {
		return false
	}
	return h.next.Enabled(ctx, level)
}

func (h *stageLevelHandler) Handle(ctx context.Context, record slog.Record) error {
	if record.Level < h.threshold(ctx) {
		return nil
	}
	return h.next.Handle(ctx, record)
}

func (h *stageLevelHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	clone := *h
	clone.next = h.next.WithAttrs(attrs)
	for _, attr := range attrs {
		if attr.Key == FieldStage {
			clone.stage = attr.Value.String()
		}
	}
	return &clone
}

func (h *stageLevelHandler) WithGroup(name string) slog.Handler {
	clone := *h
	clone.next = h.next.WithGroup(name)
	return &clone
}
