package preflight

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"storyloom/internal/testsupport"
)

func TestCheckDirectoryAccess_OK(t *testing.T) {
	dir := t.TempDir()
	result := CheckDirectoryAccess("test", dir)
	if !result.Passed {
		t.Fatalf("expected pass for temp dir, got: %s", result.Detail)
	}
}

func TestCheckDirectoryAccess_NotExist(t *testing.T) {
	result := CheckDirectoryAccess("test", filepath.Join(t.TempDir(), "nope"))
	if result.Passed {
		t.Fatal("expected failure for missing dir")
	}
	if !strings.Contains(result.Detail, "does not exist") {
		t.Fatalf("unexpected detail %q", result.Detail)
	}
}

func TestCheckDirectoryAccess_NotDir(t *testing.T) {
	f := filepath.Join(t.TempDir(), "file.txt")
	if err := os.WriteFile(f, []byte("x"), 0o644); err != nil {
		t.Fatal(err)
	}
	result := CheckDirectoryAccess("test", f)
	if result.Passed {
		t.Fatal("expected failure for file path")
	}
}

func healthServer(t *testing.T, status int, content string) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		if status != http.StatusOK {
			_, _ = w.Write([]byte(`{"error":{"message":"invalid api key","type":"auth"}}`))
			return
		}
		_ = json.NewEncoder(w).Encode(map[string]any{
			"choices": []any{map[string]any{
				"finish_reason": "stop",
				"message":       map[string]any{"role": "assistant", "content": content},
			}},
		})
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestCheckGeneration_OK(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	cfg.Generation.BaseURL = healthServer(t, http.StatusOK, `{"ok":true}`).URL

	result := CheckGeneration(context.Background(), cfg)
	if !result.Passed {
		t.Fatalf("expected pass, got: %s", result.Detail)
	}
}

func TestCheckGeneration_BadKey(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	cfg.Generation.BaseURL = healthServer(t, http.StatusUnauthorized, "").URL

	result := CheckGeneration(context.Background(), cfg)
	if result.Passed {
		t.Fatal("expected failure for rejected key")
	}
}

func TestCheckGeneration_MissingKey(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	cfg.Generation.APIKey = ""
	result := CheckGeneration(context.Background(), cfg)
	if result.Passed || result.Detail != "API key missing" {
		t.Fatalf("unexpected result %+v", result)
	}
}

func TestCheckDatabase(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	st := testsupport.MustOpenStore(t, cfg)
	testsupport.NewStory(t, st, "whales", 6)

	result := CheckDatabase(context.Background(), st)
	if !result.Passed {
		t.Fatalf("expected healthy database, got %s", result.Detail)
	}
	if !strings.Contains(result.Detail, "1 stories") {
		t.Fatalf("expected story count in detail, got %q", result.Detail)
	}
	if CheckDatabase(context.Background(), nil).Passed {
		t.Fatal("nil store should not pass")
	}
}

func TestRunAllReportsMissingOutputDirectory(t *testing.T) {
	cfg := testsupport.NewConfig(t, testsupport.WithoutDirectories())
	cfg.Generation.BaseURL = healthServer(t, http.StatusOK, `{"ok":true}`).URL

	results := RunAll(context.Background(), cfg)
	if len(results) != 3 {
		t.Fatalf("expected three checks, got %d", len(results))
	}
	failed := Failed(results)
	if len(failed) != 1 || failed[0].Name != "Output directory" {
		t.Fatalf("expected only the output directory to fail, got %+v", failed)
	}
	if !strings.HasPrefix(Summary(failed), "Output directory: ") {
		t.Fatalf("unexpected summary %q", Summary(failed))
	}
	if RunAll(context.Background(), nil) != nil {
		t.Fatal("nil config should produce no results")
	}
}
