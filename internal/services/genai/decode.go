package genai

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"storyloom/internal/textutil"
)

const snippetRunes = 160

// DecodeJSON unmarshals model output into target. Models often wrap the JSON
// in a ``` fence or a sentence of prose, so when the raw text does not parse
// the outermost object (or array) is cut out and tried once more.
func DecodeJSON(content string, target any) error {
	raw := strings.TrimSpace(content)
	if raw == "" {
		return errors.New("empty payload")
	}
	firstErr := json.Unmarshal([]byte(raw), target)
	if firstErr == nil {
		return nil
	}
	inner := extractJSON(raw)
	if inner == "" || inner == raw {
		return fmt.Errorf("%w (payload snippet: %s)", firstErr, Snippet(raw))
	}
	if err := json.Unmarshal([]byte(inner), target); err != nil {
		return fmt.Errorf("%w (sanitized payload snippet: %s)", err, Snippet(inner))
	}
	return nil
}

// extractJSON returns the fenced body if there is one, narrowed to the span
// between the first opening and last closing brace or bracket.
func extractJSON(s string) string {
	if _, after, ok := strings.Cut(s, "```"); ok {
		body, _, _ := strings.Cut(after, "```")
		body = strings.TrimSpace(body)
		if len(body) >= 4 && strings.EqualFold(body[:4], "json") {
			body = body[4:]
		}
		s = body
	}
	s = strings.TrimSpace(s)
	if s == "" || s[0] == '{' || s[0] == '[' {
		return s
	}
	for _, delims := range []string{"{}", "[]"} {
		open := strings.IndexByte(s, delims[0])
		closing := strings.LastIndexByte(s, delims[1])
		if open >= 0 && closing > open {
			return strings.TrimSpace(s[open : closing+1])
		}
	}
	return s
}

// Snippet flattens whitespace and shortens content for error messages.
func Snippet(content string) string {
	flat := strings.Join(strings.Fields(content), " ")
	if flat == "" {
		return "<empty>"
	}
	return textutil.Truncate(flat, snippetRunes, "...")
}
