package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

var (
	ErrGeneration          = errors.New("generation failed")
	ErrRefinementExhausted = errors.New("refinement exhausted")
	ErrStructuringDegraded = errors.New("structuring degraded")
	ErrPersistence         = errors.New("persistence error")
	ErrIOWrite             = errors.New("io write error")
	ErrValidation          = errors.New("validation error")
	ErrConfiguration       = errors.New("configuration error")
	ErrNotFound            = errors.New("not found")
	ErrInterrupted         = errors.New("interrupted")
)

// markerKinds is ordered so the most specific classification wins when an
// error chain carries more than one marker.
var markerKinds = []struct {
	marker error
	kind   string
}{
	{ErrInterrupted, "interrupted"},
	{ErrRefinementExhausted, "refinement_exhausted"},
	{ErrStructuringDegraded, "structuring_degraded"},
	{ErrValidation, "validation"},
	{ErrConfiguration, "configuration"},
	{ErrNotFound, "not_found"},
	{ErrIOWrite, "io_write"},
	{ErrPersistence, "persistence"},
	{ErrGeneration, "generation"},
}

// Wrap builds an error message that includes stage context while tagging it with
// the provided marker for later classification. The marker should be one
// of the exported sentinel errors above.
func Wrap(marker error, stage, operation, message string, err error) error {
	detail := buildDetail(stage, operation, message)
	if marker == nil {
		marker = ErrGeneration
	}
	if err != nil {
		return fmt.Errorf("%w: %s: %w", marker, detail, err)
	}
	return fmt.Errorf("%w: %s", marker, detail)
}

// ErrorDetails is the persisted classification of a failure.
type ErrorDetails struct {
	Kind    string
	Message string
}

// Details classifies err by its marker. A bare context error with no marker
// counts as an interruption; a marked one keeps its marker, so a backend call
// that hit its own deadline stays a generation failure.
func Details(err error) ErrorDetails {
	if err == nil {
		return ErrorDetails{}
	}
	details := ErrorDetails{Kind: "unknown", Message: strings.TrimSpace(err.Error())}
	for _, entry := range markerKinds {
		if errors.Is(err, entry.marker) {
			details.Kind = entry.kind
			return details
		}
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		details.Kind = "interrupted"
	}
	return details
}

func buildDetail(stage, operation, message string) string {
	parts := make([]string, 0, 3)
	if stage = strings.TrimSpace(stage); stage != "" {
		parts = append(parts, stage)
	}
	if operation = strings.TrimSpace(operation); operation != "" {
		parts = append(parts, operation)
	}
	if message = strings.TrimSpace(message); message != "" {
		parts = append(parts, message)
	}
	if len(parts) == 0 {
		return "service failure"
	}
	return strings.Join(parts, ": ")
}
