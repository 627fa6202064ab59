package workflow

import (
	"context"
	"errors"
	"fmt"
	"os"

	"storyloom/internal/fileutil"
	"storyloom/internal/logging"
	"storyloom/internal/services"
	"storyloom/internal/store"
)

// Retry regenerates a failed story. Stories without pages rerun the whole
// workflow; stories with pages only regenerate assets that have no ready
// row. Earlier asset rows are kept.
func (o *Orchestrator) Retry(ctx context.Context, id string) (*store.Story, error) {
	story, err := o.requireStory(ctx, id, "retry")
	if err != nil {
		return nil, err
	}
	if story.Status != store.StatusFailed {
		return story, services.Wrap(services.ErrValidation, stageName, "retry",
			fmt.Sprintf("only failed stories can be retried (story is %s)", story.Status), store.ErrInvalidTransition)
	}

	lock, err := acquireStoryLock(o.locksDir, story.ID)
	if err != nil {
		return story, err
	}
	defer lock.release()

	// Another process may have retried the story before we got the lock.
	story, err = o.requireStory(ctx, story.ID, "retry")
	if err != nil {
		return nil, err
	}
	if story.Status != store.StatusFailed {
		return story, services.Wrap(services.ErrValidation, stageName, "retry",
			fmt.Sprintf("story is %s", story.Status), store.ErrInvalidTransition)
	}

	ctx = services.WithStoryID(ctx, story.ID)
	logging.WithContext(ctx, o.logger).Info("story retry started",
		logging.String(logging.FieldEventType, "story_retry"),
		logging.String("previous_failure", story.FailureKind),
	)
	return o.generate(ctx, story)
}

// Archive moves a completed or failed story to archived.
func (o *Orchestrator) Archive(ctx context.Context, id string) (*store.Story, error) {
	story, err := o.requireStory(ctx, id, "archive")
	if err != nil {
		return nil, err
	}
	if err := o.store.UpdateStatus(ctx, story.ID, store.StatusArchived, nil); err != nil {
		return story, err
	}
	return o.reload(ctx, story), nil
}

// Delete removes a story, its rows and its asset files. Stories that another
// process is generating are refused.
func (o *Orchestrator) Delete(ctx context.Context, id string) error {
	story, err := o.requireStory(ctx, id, "delete")
	if err != nil {
		return err
	}
	lock, err := acquireStoryLock(o.locksDir, story.ID)
	if err != nil {
		return err
	}
	defer func() {
		lock.release()
		_ = os.Remove(lockPath(o.locksDir, story.ID))
	}()

	assetRows, err := o.store.ListAssets(ctx, story.ID)
	if err != nil {
		return err
	}
	if err := o.store.DeleteStory(ctx, story.ID); err != nil {
		return err
	}
	var paths []string
	for _, asset := range assetRows {
		paths = append(paths, asset.FilePath)
	}
	if err := fileutil.RemoveFiles(paths...); err != nil {
		logging.WarnWithContext(logging.WithContext(services.WithStoryID(ctx, story.ID), o.logger),
			"asset files not removed", "asset_cleanup_failed",
			logging.Error(err),
			logging.String(logging.FieldImpact, "orphaned files remain in the output directory"),
		)
	}
	return nil
}

// RecoverStale fails stories left in generating by a process that exited
// without finishing. Stories whose lock is held are still running and are
// left alone. It returns the number of stories recovered.
func (o *Orchestrator) RecoverStale(ctx context.Context) (int, error) {
	stories, err := o.store.ListStories(ctx, 0, store.StatusGenerating)
	if err != nil {
		return 0, err
	}
	recovered := 0
	for _, story := range stories {
		lock, err := acquireStoryLock(o.locksDir, story.ID)
		if err != nil {
			if errors.Is(err, ErrStoryBusy) {
				continue
			}
			return recovered, err
		}
		failure := &store.Failure{Kind: "interrupted", Reason: "process exited before the story finished"}
		err = o.store.UpdateStatus(ctx, story.ID, store.StatusFailed, failure)
		lock.release()
		if err != nil {
			return recovered, err
		}
		recovered++
		logging.WarnWithContext(logging.WithContext(services.WithStoryID(ctx, story.ID), o.logger),
			"stale story marked failed", "story_recovered",
			logging.String(logging.FieldImpact, "story can be retried"),
		)
	}
	return recovered, nil
}

func (o *Orchestrator) requireStory(ctx context.Context, id, op string) (*store.Story, error) {
	story, err := o.store.FindStory(ctx, id)
	if err != nil {
		return nil, err
	}
	if story == nil {
		return nil, services.Wrap(services.ErrNotFound, stageName, op, fmt.Sprintf("story %q not found", id), nil)
	}
	return story, nil
}
