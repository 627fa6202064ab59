package main

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"storyloom/internal/config"
	"storyloom/internal/metrics"
	"storyloom/internal/services"
	"storyloom/internal/testsupport"
	"storyloom/internal/workflow"
)

type cliEnv struct {
	configPath string
	base       string
	gen        *testsupport.FakeGenerator
}

func setupCLIEnv(t *testing.T, replies ...testsupport.Reply) *cliEnv {
	t.Helper()
	base := t.TempDir()
	t.Setenv("HOME", filepath.Join(base, "home"))
	t.Setenv("STORYLOOM_API_KEY", "")
	t.Setenv("OPENAI_API_KEY", "")

	configPath := filepath.Join(base, "storyloom.toml")
	body := fmt.Sprintf(`[paths]
data_dir = %q
output_dir = %q
log_dir = %q

[generation]
api_key = "test"

[logging]
level = "error"
`, filepath.Join(base, "data"), filepath.Join(base, "stories"), filepath.Join(base, "logs"))
	if err := os.WriteFile(configPath, []byte(body), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return &cliEnv{configPath: configPath, base: base, gen: testsupport.NewFakeGenerator(nil, replies...)}
}

// run executes one command the way a separate process invocation would.
func (e *cliEnv) run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	return e.runWith(t, context.Background(), e.gen, args...)
}

func (e *cliEnv) runWith(t *testing.T, runCtx context.Context, gen workflow.Generator, args ...string) (string, error) {
	t.Helper()
	ctx := newCommandContext()
	ctx.skipPreflight = true
	ctx.newGenerator = func(*config.Config, *metrics.Recorder) (workflow.Generator, error) {
		return gen, nil
	}
	cmd := newRootCommand(ctx)
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(append([]string{"--config", e.configPath}, args...))
	err := cmd.ExecuteContext(runCtx)
	err = errors.Join(err, ctx.close(context.Background()))
	return out.String(), err
}

func turtleScript(t *testing.T) []testsupport.Reply {
	return testsupport.Texts(
		"Tilly was a turtle.",
		"APPROVED",
		testsupport.PagesJSON(t, "Tilly the Brave", "Tilly woke.", "Tilly swam.", "Tilly helped.", "Tilly slept."),
	)
}

func TestGenerateListShowFlow(t *testing.T) {
	env := setupCLIEnv(t, turtleScript(t)...)

	out, err := env.run(t, "generate", "a", "brave", "turtle", "--age", "5", "--json")
	if err != nil {
		t.Fatalf("generate: %v\n%s", err, out)
	}
	var generated storyView
	if err := json.Unmarshal([]byte(out), &generated); err != nil {
		t.Fatalf("decode generate output: %v\n%s", err, out)
	}
	if generated.Status != "completed" || generated.Topic != "a brave turtle" || len(generated.Pages) != 4 {
		t.Fatalf("unexpected story %+v", generated)
	}
	for _, page := range generated.Pages {
		if len(page.Assets) != 2 {
			t.Fatalf("page %d has %d assets", page.Index, len(page.Assets))
		}
	}

	out, err = env.run(t, "list")
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if !strings.Contains(out, generated.ID[:8]) || !strings.Contains(out, "Tilly the Brave") {
		t.Fatalf("list output missing story:\n%s", out)
	}

	out, err = env.run(t, "list", "--status", "failed")
	if err != nil {
		t.Fatalf("list failed: %v", err)
	}
	if !strings.Contains(out, "No stories found") {
		t.Fatalf("expected empty failed list:\n%s", out)
	}

	out, err = env.run(t, "show", generated.ID[:8])
	if err != nil {
		t.Fatalf("show: %v", err)
	}
	for _, want := range []string{"Tilly the Brave", "Tilly swam.", "ready"} {
		if !strings.Contains(out, want) {
			t.Fatalf("show output missing %q:\n%s", want, out)
		}
	}
}

func TestGenerateFailureReportsRetryHint(t *testing.T) {
	env := setupCLIEnv(t, testsupport.Reply{Err: testsupport.GenerationError("backend down")})

	out, err := env.run(t, "generate", "owls")
	if !errors.Is(err, services.ErrGeneration) {
		t.Fatalf("expected generation error, got %v", err)
	}
	if !strings.Contains(out, "storyloom retry") {
		t.Fatalf("expected retry hint:\n%s", out)
	}

	env.gen.Script(turtleScript(t)...)
	out, err = env.run(t, "list", "--json")
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	var stories []storyView
	if err := json.Unmarshal([]byte(out), &stories); err != nil {
		t.Fatalf("decode list: %v", err)
	}
	if len(stories) != 1 || stories[0].FailureKind != "generation" {
		t.Fatalf("unexpected stories %+v", stories)
	}

	out, err = env.run(t, "retry", stories[0].ID)
	if err != nil {
		t.Fatalf("retry: %v\n%s", err, out)
	}
	if !strings.Contains(out, "completed") {
		t.Fatalf("expected completed after retry:\n%s", out)
	}
}

// interruptingGenerator cancels the run from inside the writer call, the way
// Ctrl-C lands while a request is in flight.
type interruptingGenerator struct {
	*testsupport.FakeGenerator
	cancel context.CancelFunc
}

func (g interruptingGenerator) Complete(ctx context.Context, _, _ string) (string, error) {
	g.cancel()
	return "", ctx.Err()
}

func TestGenerateInterruptedStillReportsFailure(t *testing.T) {
	env := setupCLIEnv(t)
	runCtx, cancel := context.WithCancel(context.Background())
	defer cancel()
	gen := interruptingGenerator{FakeGenerator: env.gen, cancel: cancel}

	out, err := env.runWith(t, runCtx, gen, "generate", "owls")
	if !errors.Is(err, services.ErrInterrupted) {
		t.Fatalf("expected interrupted error, got %v\n%s", err, out)
	}
	for _, want := range []string{"Failure: interrupted", "storyloom retry"} {
		if !strings.Contains(out, want) {
			t.Fatalf("expected %q after interrupt:\n%s", want, out)
		}
	}
	if exitCode(err) != 130 {
		t.Fatalf("expected exit code 130, got %d", exitCode(err))
	}
}

func TestGenerateRejectsInvalidAge(t *testing.T) {
	env := setupCLIEnv(t)
	if _, err := env.run(t, "generate", "cats", "--age", "0"); !errors.Is(err, services.ErrValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
}

func TestArchiveAndDeleteCommands(t *testing.T) {
	env := setupCLIEnv(t, turtleScript(t)...)
	out, err := env.run(t, "generate", "turtles", "--json")
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	var story storyView
	if err := json.Unmarshal([]byte(out), &story); err != nil {
		t.Fatalf("decode: %v", err)
	}

	if out, err = env.run(t, "archive", story.ID); err != nil || !strings.Contains(out, "archived") {
		t.Fatalf("archive: %v\n%s", err, out)
	}
	if out, err = env.run(t, "delete", story.ID); err != nil || !strings.Contains(out, "deleted") {
		t.Fatalf("delete: %v\n%s", err, out)
	}
	if _, err = env.run(t, "show", story.ID); !errors.Is(err, services.ErrNotFound) {
		t.Fatalf("expected not found after delete, got %v", err)
	}
}

func TestStatusOfflineJSON(t *testing.T) {
	env := setupCLIEnv(t)
	out, err := env.run(t, "status", "--offline", "--json")
	if err != nil {
		t.Fatalf("status: %v", err)
	}
	var report statusReport
	if err := json.Unmarshal([]byte(out), &report); err != nil {
		t.Fatalf("decode status: %v\n%s", err, out)
	}
	if len(report.Checks) != 3 {
		t.Fatalf("expected three offline checks, got %+v", report.Checks)
	}
	for _, check := range report.Checks {
		if !check.Passed {
			t.Fatalf("check %s failed: %s", check.Name, check.Detail)
		}
	}
	if report.Total != 0 {
		t.Fatalf("expected no stories, got %d", report.Total)
	}
}

func TestConfigInitWritesSample(t *testing.T) {
	env := setupCLIEnv(t)
	target := filepath.Join(env.base, "sample", "config.toml")
	out, err := env.run(t, "config", "init", "--path", target)
	if err != nil {
		t.Fatalf("config init: %v", err)
	}
	if !strings.Contains(out, target) {
		t.Fatalf("unexpected output %q", out)
	}
	if _, err := env.run(t, "config", "init", "--path", target); err == nil {
		t.Fatal("expected error when sample already exists")
	}
	if out, err := env.run(t, "config", "validate"); err != nil || !strings.Contains(out, "Configuration valid") {
		t.Fatalf("config validate: %v\n%s", err, out)
	}
}

func TestParseStatuses(t *testing.T) {
	got, err := parseStatuses([]string{"Failed", " archived "})
	if err != nil || len(got) != 2 || got[0] != "failed" || got[1] != "archived" {
		t.Fatalf("unexpected statuses %v err %v", got, err)
	}
	if _, err := parseStatuses([]string{"done"}); err == nil {
		t.Fatal("expected unknown status error")
	}
}

func TestConfigTestNotifyDisabled(t *testing.T) {
	env := setupCLIEnv(t)
	out, err := env.run(t, "config", "test-notify")
	if err != nil {
		t.Fatalf("test-notify: %v", err)
	}
	if !strings.Contains(out, "disabled") {
		t.Fatalf("unexpected output %q", out)
	}
}

func TestExitCode(t *testing.T) {
	cases := []struct {
		err  error
		want int
	}{
		{services.Wrap(services.ErrValidation, "cli", "generate", "age must be greater than 0", nil), 2},
		{services.Wrap(services.ErrNotFound, "cli", "show", "story missing", nil), 2},
		{fmt.Errorf("generate: %w", context.Canceled), 130},
		{services.Wrap(services.ErrGeneration, "genai", "complete", "request failed", context.DeadlineExceeded), 1},
		{errors.New("disk full"), 1},
	}
	for _, tc := range cases {
		if got := exitCode(tc.err); got != tc.want {
			t.Fatalf("exitCode(%v) = %d, want %d", tc.err, got, tc.want)
		}
	}
}
