package refine

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"storyloom/internal/logging"
	"storyloom/internal/services"
	"storyloom/internal/textutil"
)

const stageName = "refine"

// DefaultMaxIterations caps refiner calls when the caller passes a negative cap.
const DefaultMaxIterations = 5

// Completer produces text from a system instruction and a user prompt.
type Completer interface {
	Complete(ctx context.Context, system, user string) (string, error)
}

// Draft is the approved story text. Iterations counts refiner calls.
type Draft struct {
	Text       string
	Iterations int
}

// Loop runs the writer, critic and refiner agents until the critic approves
// or the refiner has been called maxIterations times.
type Loop struct {
	completer     Completer
	maxIterations int
	logger        *slog.Logger
}

// NewLoop builds a refinement loop. A zero cap accepts only a first draft the
// critic approves outright.
func NewLoop(completer Completer, maxIterations int, logger *slog.Logger) *Loop {
	if maxIterations < 0 {
		maxIterations = DefaultMaxIterations
	}
	if logger == nil {
		logger = logging.NewNop()
	}
	return &Loop{
		completer:     completer,
		maxIterations: maxIterations,
		logger:        logging.NewComponentLogger(logger, "refine"),
	}
}

// MaxIterations returns the refiner call cap.
func (l *Loop) MaxIterations() int {
	return l.maxIterations
}

// Refine produces an approved draft for topic and age. The critic is called
// at most MaxIterations+1 times. Any agent failure aborts the loop.
func (l *Loop) Refine(ctx context.Context, topic string, age float64) (Draft, error) {
	if l == nil || l.completer == nil {
		return Draft{}, services.Wrap(services.ErrConfiguration, stageName, "refine", "completer unavailable", nil)
	}
	logger := logging.WithContext(ctx, l.logger)

	draft, err := l.call(ctx, "writer", WriterInstruction, writerPrompt(topic, age))
	if err != nil {
		return Draft{}, err
	}
	logger.Debug("initial draft written", logging.Int("draft_chars", len(draft)))

	iterations := 0
	var lastFeedback string
	for {
		feedback, err := l.call(ctx, "critic", CriticInstruction, criticPrompt(draft))
		if err != nil {
			return Draft{}, err
		}
		if IsApproved(feedback) {
			logger.Info("draft approved",
				logging.String(logging.FieldDecisionType, "refine_approval"),
				logging.Int("iterations", iterations),
			)
			return Draft{Text: draft, Iterations: iterations}, nil
		}
		lastFeedback = feedback
		if iterations >= l.maxIterations {
			break
		}

		logger.Debug("critic requested changes",
			logging.Int("iteration", iterations+1),
			logging.String("feedback", feedback),
		)
		draft, err = l.call(ctx, "refiner", RefinerInstruction, refinerPrompt(draft, feedback))
		if err != nil {
			return Draft{}, err
		}
		iterations++
	}

	return Draft{Text: draft, Iterations: iterations}, services.Wrap(
		services.ErrRefinementExhausted,
		stageName,
		"refine",
		fmt.Sprintf("critic did not approve after %d refinements (last feedback: %s)", iterations, summarize(lastFeedback)),
		nil,
	)
}

func (l *Loop) call(ctx context.Context, agent, system, user string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", services.Wrap(services.ErrInterrupted, stageName, agent, "", err)
	}
	out, err := l.completer.Complete(ctx, system, user)
	if err != nil {
		if errors.Is(err, services.ErrGeneration) {
			return "", fmt.Errorf("%s: %s: %w", stageName, agent, err)
		}
		return "", services.Wrap(services.ErrGeneration, stageName, agent, "", err)
	}
	out = strings.TrimSpace(out)
	if out == "" {
		return "", services.Wrap(services.ErrGeneration, stageName, agent, "empty output", nil)
	}
	return out, nil
}

func summarize(feedback string) string {
	return textutil.Truncate(strings.Join(strings.Fields(feedback), " "), 120, "...")
}
