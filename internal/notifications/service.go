package notifications

import (
	"context"
	"strings"
	"time"

	"storyloom/internal/config"
)

// Service is what the workflow calls when a story reaches a final state.
type Service interface {
	NotifyStoryCompleted(ctx context.Context, story StorySummary) error
	NotifyStoryFailed(ctx context.Context, story StorySummary) error
	TestNotification(ctx context.Context) error
}

// StorySummary is the part of a finished story worth notifying about.
type StorySummary struct {
	ID            string
	Title         string
	Topic         string
	Pages         int
	AssetsReady   int
	AssetsFailed  int
	FailureKind   string
	FailureReason string
}

// displayName prefers the generated title; failed stories often have none.
func (s StorySummary) displayName() string {
	if title := strings.TrimSpace(s.Title); title != "" {
		return title
	}
	return strings.TrimSpace(s.Topic)
}

const defaultRequestTimeout = 10 * time.Second

// NewService returns an ntfy-backed service, or one that does nothing when
// cfg is nil or notifications.ntfy_topic is empty.
func NewService(cfg *config.Config) Service {
	if cfg == nil || strings.TrimSpace(cfg.Notifications.NtfyTopic) == "" {
		return disabled{}
	}
	timeout := time.Duration(cfg.Notifications.RequestTimeoutSeconds) * time.Second
	if timeout <= 0 {
		timeout = defaultRequestTimeout
	}
	return newNtfy(strings.TrimSpace(cfg.Notifications.NtfyTopic), timeout)
}

type disabled struct{}

func (disabled) NotifyStoryCompleted(context.Context, StorySummary) error { return nil }
func (disabled) NotifyStoryFailed(context.Context, StorySummary) error    { return nil }
func (disabled) TestNotification(context.Context) error                   { return nil }
