package workflow

import (
	"context"
	"errors"
	"strings"
	"time"

	"storyloom/internal/logging"
	"storyloom/internal/services"
	"storyloom/internal/store"
)

// fail records cause on the story and returns it with the error. The write
// uses a context detached from cancellation so an interrupted run still
// reaches the failed status.
func (o *Orchestrator) fail(ctx context.Context, story *store.Story, cause error, started time.Time) (*store.Story, error) {
	if ctxErr := ctx.Err(); ctxErr != nil && !errors.Is(cause, services.ErrInterrupted) {
		cause = services.Wrap(services.ErrInterrupted, stageName, "run", "run cancelled", errors.Join(cause, ctxErr))
	}
	details := services.Details(cause)
	message := strings.TrimSpace(details.Message)
	if message == "" {
		message = "workflow failed without error detail"
	}

	logger := logging.WithContext(ctx, o.logger)
	logging.ErrorWithContext(logger, "story failed", "story_failure",
		logging.String(logging.FieldErrorKind, details.Kind),
		logging.String("resolved_status", string(store.StatusFailed)),
		logging.Alert("story_failure"),
		logging.Error(cause),
	)

	persistCtx := context.WithoutCancel(ctx)
	failure := &store.Failure{Kind: details.Kind, Reason: message}
	if err := o.store.UpdateStatus(persistCtx, story.ID, store.StatusFailed, failure); err != nil {
		logger.Error("failed to persist story failure", logging.Error(err))
		cause = errors.Join(cause, err)
	}
	o.metrics.StoryFinished(string(store.StatusFailed), details.Kind, time.Since(started))
	final := o.reload(persistCtx, story)
	notified := *final
	notified.FailureKind, notified.FailureReason = failure.Kind, failure.Reason
	o.notify(persistCtx, &notified, 0, 0, false)
	return final, cause
}
