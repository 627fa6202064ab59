package services

import "context"

// ctxKey namespaces the identifiers workflow code threads through contexts.
type ctxKey int

const (
	keyStoryID ctxKey = iota
	keyStage
	keyRequestID
)

func withString(ctx context.Context, key ctxKey, value string) context.Context {
	if value == "" {
		return ctx
	}
	return context.WithValue(ctx, key, value)
}

func stringFrom(ctx context.Context, key ctxKey) (string, bool) {
	if ctx == nil {
		return "", false
	}
	value, _ := ctx.Value(key).(string)
	return value, value != ""
}

// WithStoryID tags ctx with the story being generated. Empty IDs are ignored.
func WithStoryID(ctx context.Context, id string) context.Context {
	return withString(ctx, keyStoryID, id)
}

func StoryIDFromContext(ctx context.Context) (string, bool) { return stringFrom(ctx, keyStoryID) }

// WithStage tags ctx with the workflow stage (refine, structure, assets).
func WithStage(ctx context.Context, stage string) context.Context {
	return withString(ctx, keyStage, stage)
}

func StageFromContext(ctx context.Context) (string, bool) { return stringFrom(ctx, keyStage) }

// WithRequestID tags ctx with the correlation ID of one Run or Retry call.
func WithRequestID(ctx context.Context, id string) context.Context {
	return withString(ctx, keyRequestID, id)
}

func RequestIDFromContext(ctx context.Context) (string, bool) { return stringFrom(ctx, keyRequestID) }
