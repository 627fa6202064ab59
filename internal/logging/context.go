package logging

import (
	"context"
	"log/slog"

	"storyloom/internal/services"
)

// Attribute keys shared by every component so log queries can rely on them.
const (
	FieldComponent     = "component"
	FieldStoryID       = "story_id"
	FieldStage         = "stage"
	FieldCorrelationID = "correlation_id"

	FieldPageIndex = "page_index" // 0-based
	FieldAssetKind = "asset_kind" // image or audio

	// FieldEventType classifies a line for filtering, e.g. refine_exhausted.
	FieldEventType = "event_type"
	FieldErrorKind = "error_kind" // services.Details kind
	FieldErrorHint = "error_hint"
	// FieldImpact says what the reader of the story loses because of a warning.
	FieldImpact       = "impact"
	FieldDecisionType = "decision_type"
	FieldAlert        = "alert"
)

// ContextFields turns the story, stage and request IDs carried by ctx into
// log attributes.
func ContextFields(ctx context.Context) []slog.Attr {
	var fields []slog.Attr
	for _, src := range []struct {
		key    string
		lookup func(context.Context) (string, bool)
	}{
		{FieldStoryID, services.StoryIDFromContext},
		{FieldStage, services.StageFromContext},
		{FieldCorrelationID, services.RequestIDFromContext},
	} {
		if value, ok := src.lookup(ctx); ok {
			fields = append(fields, slog.String(src.key, value))
		}
	}
	return fields
}

// WithContext binds the IDs carried by ctx onto logger.
func WithContext(ctx context.Context, logger *slog.Logger) *slog.Logger {
	if logger == nil {
		logger = NewNop()
	}
	if fields := ContextFields(ctx); len(fields) > 0 {
		return logger.With(Args(fields...)...)
	}
	return logger
}
