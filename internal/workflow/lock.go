package workflow

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/gofrs/flock"

	"storyloom/internal/services"
	"storyloom/internal/textutil"
)

// ErrStoryBusy is returned when another process holds a story's lock.
var ErrStoryBusy = fmt.Errorf("story is being generated by another process")

type storyLock struct {
	lock *flock.Flock
}

func lockPath(dir, storyID string) string {
	return filepath.Join(dir, textutil.SanitizeToken(storyID)+".lock")
}

// acquireStoryLock takes the story's lock without waiting.
func acquireStoryLock(dir, storyID string) (*storyLock, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, services.Wrap(services.ErrConfiguration, stageName, "lock story", "create locks directory", err)
	}
	lock := flock.New(lockPath(dir, storyID))
	ok, err := lock.TryLock()
	if err != nil {
		return nil, services.Wrap(services.ErrConfiguration, stageName, "lock story", "", err)
	}
	if !ok {
		return nil, services.Wrap(services.ErrValidation, stageName, "lock story", storyID, ErrStoryBusy)
	}
	return &storyLock{lock: lock}, nil
}

func (l *storyLock) release() {
	if l == nil || l.lock == nil {
		return
	}
	_ = l.lock.Unlock()
}
