package fileutil

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"storyloom/internal/services"
	"storyloom/internal/textutil"
)

const stageName = "assets"

var extensions = map[string]string{
	"image": "png",
	"audio": "wav",
}

// Writer stores generated asset bytes under a root directory that must
// already exist.
type Writer struct {
	Root string
}

// NewWriter returns a Writer rooted at dir.
func NewWriter(dir string) *Writer {
	return &Writer{Root: dir}
}

// FileName returns the name used for a page asset, for example
// "<story>-page-03.png".
func FileName(storyID string, pageIndex int, kind string) (string, error) {
	ext, ok := extensions[kind]
	if !ok {
		return "", services.Wrap(services.ErrValidation, stageName, "asset file name", fmt.Sprintf("unknown asset kind %q", kind), nil)
	}
	return fmt.Sprintf("%s-page-%02d.%s", textutil.SanitizeToken(storyID), pageIndex, ext), nil
}

// Save writes data atomically and returns the final path. A retry for the
// same page and kind replaces the earlier file. Save never creates the root
// directory; a missing root is reported as an I/O write failure.
func (w *Writer) Save(storyID string, pageIndex int, kind string, data []byte) (string, error) {
	const op = "save asset"
	name, err := FileName(storyID, pageIndex, kind)
	if err != nil {
		return "", err
	}
	info, err := os.Stat(w.Root)
	if err != nil {
		return "", services.Wrap(services.ErrIOWrite, stageName, op, "output directory unavailable", err)
	}
	if !info.IsDir() {
		return "", services.Wrap(services.ErrIOWrite, stageName, op, fmt.Sprintf("output path %q is not a directory", w.Root), nil)
	}

	target := filepath.Join(w.Root, name)
	if err := WriteFileAtomic(target, data, 0o644); err != nil {
		return "", services.Wrap(services.ErrIOWrite, stageName, op, name, err)
	}
	return target, nil
}

// WriteFileAtomic writes data to a temp file beside path and renames it into
// place, so readers never observe a partial file.
func WriteFileAtomic(path string, data []byte, mode os.FileMode) error {
	tmp, err := os.CreateTemp(filepath.Dir(path), "."+filepath.Base(path)+".*.tmp")
	if err != nil {
		return err
	}
	tmpName := tmp.Name()
	cleanup := func() { _ = os.Remove(tmpName) }

	written, err := tmp.Write(data)
	if err == nil && written != len(data) {
		err = fmt.Errorf("short write: wrote %d of %d bytes", written, len(data))
	}
	if err == nil {
		err = tmp.Sync()
	}
	if closeErr := tmp.Close(); err == nil {
		err = closeErr
	}
	if err == nil {
		err = os.Chmod(tmpName, mode)
	}
	if err != nil {
		cleanup()
		return err
	}
	if err := os.Rename(tmpName, path); err != nil {
		cleanup()
		return err
	}
	return nil
}

// RemoveFiles deletes every path, ignoring ones that are already gone.
func RemoveFiles(paths ...string) error {
	var errs []error
	for _, path := range paths {
		if path == "" {
			continue
		}
		if err := os.Remove(path); err != nil && !errors.Is(err, fs.ErrNotExist) {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
