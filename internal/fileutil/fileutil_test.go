package fileutil

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"storyloom/internal/services"
)

func TestSaveWritesNamedFile(t *testing.T) {
	dir := t.TempDir()
	w := NewWriter(dir)

	path, err := w.Save("3f2a9c10-aaaa", 2, "image", []byte("png-bytes"))
	if err != nil {
		t.Fatalf("Save returned error: %v", err)
	}
	if path != filepath.Join(dir, "3f2a9c10-aaaa-page-02.png") {
		t.Fatalf("unexpected path %q", path)
	}
	got, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if string(got) != "png-bytes" {
		t.Fatalf("content mismatch: %q", got)
	}
	info, err := os.Stat(path)
	if err != nil {
		t.Fatal(err)
	}
	if info.Mode().Perm() != 0o644 {
		t.Fatalf("unexpected mode %v", info.Mode().Perm())
	}
}

func TestSaveReplacesExistingFile(t *testing.T) {
	w := NewWriter(t.TempDir())
	if _, err := w.Save("story", 0, "audio", []byte("first")); err != nil {
		t.Fatal(err)
	}
	path, err := w.Save("story", 0, "audio", []byte("second"))
	if err != nil {
		t.Fatal(err)
	}
	got, _ := os.ReadFile(path)
	if string(got) != "second" {
		t.Fatalf("expected replacement, got %q", got)
	}

	entries, err := os.ReadDir(w.Root)
	if err != nil {
		t.Fatal(err)
	}
	for _, entry := range entries {
		if strings.HasSuffix(entry.Name(), ".tmp") {
			t.Fatalf("temp file left behind: %s", entry.Name())
		}
	}
}

func TestSaveMissingDirectoryIsIOWriteError(t *testing.T) {
	w := NewWriter(filepath.Join(t.TempDir(), "missing"))
	_, err := w.Save("story", 1, "image", []byte("x"))
	if !errors.Is(err, services.ErrIOWrite) {
		t.Fatalf("expected io write error, got %v", err)
	}
	if _, statErr := os.Stat(w.Root); !errors.Is(statErr, os.ErrNotExist) {
		t.Fatal("Save must not create the output directory")
	}
}

func TestSaveUnknownKind(t *testing.T) {
	w := NewWriter(t.TempDir())
	if _, err := w.Save("story", 0, "video", []byte("x")); !errors.Is(err, services.ErrValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
}

func TestRemoveFilesIgnoresMissing(t *testing.T) {
	dir := t.TempDir()
	present := filepath.Join(dir, "a.png")
	if err := os.WriteFile(present, []byte("a"), 0o644); err != nil {
		t.Fatal(err)
	}
	if err := RemoveFiles(present, filepath.Join(dir, "gone.wav"), ""); err != nil {
		t.Fatalf("RemoveFiles returned error: %v", err)
	}
	if _, err := os.Stat(present); !errors.Is(err, os.ErrNotExist) {
		t.Fatal("expected file removed")
	}
}
