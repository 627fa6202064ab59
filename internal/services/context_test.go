package services_test

import (
	"context"
	"testing"

	"storyloom/internal/services"
)

func TestContextHelpers(t *testing.T) {
	ctx := context.Background()
	ctx = services.WithStoryID(ctx, "story-1")
	ctx = services.WithStage(ctx, "assets")
	ctx = services.WithRequestID(ctx, "req-123")

	if id, ok := services.StoryIDFromContext(ctx); !ok || id != "story-1" {
		t.Fatalf("unexpected story id: %v %v", id, ok)
	}
	if stage, ok := services.StageFromContext(ctx); !ok || stage != "assets" {
		t.Fatalf("unexpected stage: %v %v", stage, ok)
	}
	if rid, ok := services.RequestIDFromContext(ctx); !ok || rid != "req-123" {
		t.Fatalf("unexpected request id: %v %v", rid, ok)
	}
}

func TestBlankValuesPreserveContext(t *testing.T) {
	ctx := context.Background()
	ctx = services.WithStage(ctx, "")
	ctx = services.WithStoryID(ctx, "")
	if _, ok := services.StageFromContext(ctx); ok {
		t.Fatal("expected no stage value")
	}
	if _, ok := services.StoryIDFromContext(ctx); ok {
		t.Fatal("expected no story id value")
	}
}
