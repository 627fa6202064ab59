package refine_test

import (
	"context"
	"errors"
	"strings"
	"testing"

	"storyloom/internal/refine"
	"storyloom/internal/services"
	"storyloom/internal/testsupport"
)

func countAgent(calls []testsupport.Call, system string) int {
	n := 0
	for _, call := range calls {
		if call.System == system {
			n++
		}
	}
	return n
}

func TestRefineApprovesFirstDraft(t *testing.T) {
	completer := testsupport.NewScriptedCompleter(testsupport.Texts("Draft one.", "APPROVED")...)
	loop := refine.NewLoop(completer, 5, nil)

	draft, err := loop.Refine(context.Background(), "a brave turtle", 5)
	if err != nil {
		t.Fatalf("Refine returned error: %v", err)
	}
	if draft.Text != "Draft one." || draft.Iterations != 0 {
		t.Fatalf("unexpected draft %+v", draft)
	}

	calls := completer.Calls()
	if len(calls) != 2 {
		t.Fatalf("expected writer and critic only, got %d calls", len(calls))
	}
	if !strings.Contains(calls[0].User, "Topic: a brave turtle") || !strings.Contains(calls[0].User, "Reader age: 5 years") {
		t.Fatalf("writer prompt missing request details: %q", calls[0].User)
	}
	if calls[1].System != refine.CriticInstruction || !strings.Contains(calls[1].User, "Draft one.") {
		t.Fatalf("critic did not receive draft: %+v", calls[1])
	}
}

func TestRefineIteratesUntilApproved(t *testing.T) {
	completer := testsupport.NewScriptedCompleter(testsupport.Texts(
		"Draft one.",
		"Give the turtle a name.",
		"Draft two with Shelly.",
		"Add an ending.",
		"Draft three, the end.",
		"**Approved.**",
	)...)
	loop := refine.NewLoop(completer, 5, nil)

	draft, err := loop.Refine(context.Background(), "a brave turtle", 5)
	if err != nil {
		t.Fatalf("Refine returned error: %v", err)
	}
	if draft.Text != "Draft three, the end." {
		t.Fatalf("expected latest draft, got %q", draft.Text)
	}
	if draft.Iterations != 2 {
		t.Fatalf("expected 2 iterations, got %d", draft.Iterations)
	}

	calls := completer.Calls()
	refinerCall := calls[2]
	if refinerCall.System != refine.RefinerInstruction {
		t.Fatalf("expected refiner call, got %q", refinerCall.System)
	}
	if !strings.Contains(refinerCall.User, "Draft one.") || !strings.Contains(refinerCall.User, "Give the turtle a name.") {
		t.Fatalf("refiner prompt missing draft or feedback: %q", refinerCall.User)
	}
}

func TestRefineStopsAtCapWhenCriticNeverApproves(t *testing.T) {
	const maxIterations = 3
	replies := []string{"Draft."}
	for i := 0; i < 10; i++ {
		replies = append(replies, "Needs more dragons.", "Draft with dragons.")
	}
	completer := testsupport.NewScriptedCompleter(testsupport.Texts(replies...)...)
	loop := refine.NewLoop(completer, maxIterations, nil)

	draft, err := loop.Refine(context.Background(), "dragons", 6)
	if !errors.Is(err, services.ErrRefinementExhausted) {
		t.Fatalf("expected refinement exhausted, got %v", err)
	}
	if draft.Iterations != maxIterations {
		t.Fatalf("expected %d iterations, got %d", maxIterations, draft.Iterations)
	}
	calls := completer.Calls()
	if got := countAgent(calls, refine.CriticInstruction); got != maxIterations+1 {
		t.Fatalf("expected %d critic calls, got %d", maxIterations+1, got)
	}
	if got := countAgent(calls, refine.RefinerInstruction); got != maxIterations {
		t.Fatalf("expected %d refiner calls, got %d", maxIterations, got)
	}
	if details := services.Details(err); details.Kind != "refinement_exhausted" {
		t.Fatalf("unexpected failure kind %q", details.Kind)
	}
}

func TestRefineZeroCapNeverCallsRefiner(t *testing.T) {
	completer := testsupport.NewScriptedCompleter(testsupport.Texts("Draft.", "Too short.")...)
	loop := refine.NewLoop(completer, 0, nil)

	_, err := loop.Refine(context.Background(), "owls", 4)
	if !errors.Is(err, services.ErrRefinementExhausted) {
		t.Fatalf("expected refinement exhausted, got %v", err)
	}
	if got := countAgent(completer.Calls(), refine.RefinerInstruction); got != 0 {
		t.Fatalf("expected no refiner calls, got %d", got)
	}
}

func TestRefineAbortsOnGenerationFailure(t *testing.T) {
	completer := testsupport.NewScriptedCompleter(
		testsupport.Reply{Text: "Draft."},
		testsupport.Reply{Err: testsupport.GenerationError("critic timed out")},
		testsupport.Reply{Text: "APPROVED"},
	)
	loop := refine.NewLoop(completer, 5, nil)

	_, err := loop.Refine(context.Background(), "owls", 4)
	if !errors.Is(err, services.ErrGeneration) {
		t.Fatalf("expected generation error, got %v", err)
	}
	if completer.Remaining() != 1 {
		t.Fatalf("loop must not retry or continue after a failure")
	}
}

func TestRefineEmptyDraftIsGenerationError(t *testing.T) {
	completer := testsupport.NewScriptedCompleter(testsupport.Texts("   ", "APPROVED")...)
	loop := refine.NewLoop(completer, 5, nil)

	if _, err := loop.Refine(context.Background(), "owls", 4); !errors.Is(err, services.ErrGeneration) {
		t.Fatalf("expected generation error for empty draft, got %v", err)
	}
}

func TestRefineUnclassifiedErrorBecomesGeneration(t *testing.T) {
	completer := testsupport.NewScriptedCompleter(testsupport.Reply{Err: errors.New("connection reset")})
	loop := refine.NewLoop(completer, 5, nil)

	_, err := loop.Refine(context.Background(), "owls", 4)
	if !errors.Is(err, services.ErrGeneration) {
		t.Fatalf("expected generation error, got %v", err)
	}
	if !strings.Contains(err.Error(), "connection reset") {
		t.Fatalf("expected cause preserved, got %v", err)
	}
}

func TestRefineCancelledContextIsInterrupted(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	completer := testsupport.NewScriptedCompleter(testsupport.Texts("Draft.", "APPROVED")...)
	loop := refine.NewLoop(completer, 5, nil)

	_, err := loop.Refine(ctx, "owls", 4)
	if details := services.Details(err); details.Kind != "interrupted" {
		t.Fatalf("expected interrupted, got %q (%v)", details.Kind, err)
	}
	if len(completer.Calls()) != 0 {
		t.Fatal("no agent should run after cancellation")
	}
}

func TestIsApproved(t *testing.T) {
	cases := map[string]bool{
		"APPROVED":                    true,
		"approved":                    true,
		"  \"Approved.\"  ":           true,
		"**APPROVED**":                true,
		"`approved`!":                 true,
		"Not approved":                false,
		"APPROVED, but add a dragon.": false,
		"":                            false,
	}
	for input, want := range cases {
		if got := refine.IsApproved(input); got != want {
			t.Fatalf("IsApproved(%q) = %v, want %v", input, got, want)
		}
	}
}
