package structure

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"strings"

	"storyloom/internal/logging"
	"storyloom/internal/services"
	"storyloom/internal/services/genai"
	"storyloom/internal/store"
	"storyloom/internal/textutil"
)

const stageName = "structure"

// JSONCompleter produces a JSON document from a system instruction and a
// user prompt.
type JSONCompleter interface {
	CompleteJSON(ctx context.Context, system, user string) (string, error)
}

// Result is the page layout for an approved story.
type Result struct {
	Mode  store.StructureMode
	Title string
	Pages []store.NewPage
	// Degraded explains why the fallback ran. It wraps
	// services.ErrStructuringDegraded and is nil for structured results.
	Degraded error
}

// Structurer asks the editor agent for pages and falls back to a local split
// when the response is unusable.
type Structurer struct {
	completer JSONCompleter
	logger    *slog.Logger
}

// New builds a Structurer. A nil completer always uses the fallback.
func New(completer JSONCompleter, logger *slog.Logger) *Structurer {
	if logger == nil {
		logger = logging.NewNop()
	}
	return &Structurer{
		completer: completer,
		logger:    logging.NewComponentLogger(logger, "structure"),
	}
}

type editorPayload struct {
	Title string `json:"title"`
	Pages []struct {
		Text               string `json:"text"`
		IllustrationPrompt string `json:"illustration_prompt"`
	} `json:"pages"`
}

// Structure lays text out as MinPages..MaxPages pages. It never fails; a
// degraded result carries the reason in Result.Degraded.
func (s *Structurer) Structure(ctx context.Context, text string, age float64) Result {
	result, err := s.structured(ctx, text, age)
	if err == nil {
		return result
	}

	degraded := services.Wrap(services.ErrStructuringDegraded, stageName, "structure pages", "using fallback pages", err)
	logging.WarnWithContext(logging.WithContext(ctx, s.logger), "structuring degraded", "structure_fallback",
		logging.Error(err),
		logging.String(logging.FieldImpact, "pages split locally from the approved text"),
		logging.String(logging.FieldErrorHint, "check the text model's JSON output"),
	)
	return Result{
		Mode:     store.StructureModeFallback,
		Title:    result.Title,
		Pages:    Fallback(text),
		Degraded: degraded,
	}
}

func (s *Structurer) structured(ctx context.Context, text string, age float64) (Result, error) {
	if s.completer == nil {
		return Result{}, fmt.Errorf("no editor configured")
	}
	raw, err := s.completer.CompleteJSON(ctx, EditorInstruction, editorPrompt(text, age))
	if err != nil {
		return Result{}, err
	}

	var payload editorPayload
	if err := genai.DecodeJSON(raw, &payload); err != nil {
		return Result{}, fmt.Errorf("decode editor response: %w", err)
	}
	result := Result{Title: strings.Join(strings.Fields(payload.Title), " ")}
	if n := len(payload.Pages); n < store.MinPages || n > store.MaxPages {
		return result, fmt.Errorf("editor returned %d pages, want %d..%d", n, store.MinPages, store.MaxPages)
	}

	pages := make([]store.NewPage, len(payload.Pages))
	for i, page := range payload.Pages {
		pageText := strings.TrimSpace(page.Text)
		if pageText == "" {
			return result, fmt.Errorf("editor page %d has no text", i+1)
		}
		prompt := strings.TrimSpace(page.IllustrationPrompt)
		if prompt == "" {
			prompt = IllustrationPrompt(pageText)
		}
		pages[i] = store.NewPage{Index: i, Text: pageText, IllustrationPrompt: prompt}
	}

	result.Mode = store.StructureModeStructured
	result.Pages = pages
	s.logger.Debug("pages structured", logging.Int("pages", len(pages)))
	return result, nil
}

// DefaultTitle is used when the editor did not supply a title.
func DefaultTitle(topic string) string {
	topic = strings.TrimSpace(topic)
	if topic == "" {
		return "A Story"
	}
	return textutil.TitleCase("a story about " + topic)
}

func formatAge(age float64) string {
	return strconv.FormatFloat(age, 'f', -1, 64)
}
