package logging

import (
	"cmp"
	"fmt"
	"log/slog"
	"slices"
	"strings"
	"time"
)

type infoField struct {
	label string
	value string
}

const infoAttrLimit = 8

// infoHighlightKeys are listed first, in this order, on info lines.
var infoHighlightKeys = []string{
	FieldAlert,
	FieldEventType,
	FieldDecisionType,
	"decision_result",
	"decision_reason",
	"error",
	FieldErrorKind,
	FieldErrorHint,
	FieldImpact,
	"status",
	"topic",
	"age",
	"title",
	"iterations",
	"structure_mode",
	"page_count",
	FieldPageIndex,
	FieldAssetKind,
	"assets_ready",
	"assets_failed",
	"size_bytes",
	"stage_duration",
}

// highlightRank orders highlighted keys before everything else.
var highlightRank = func() map[string]int {
	rank := make(map[string]int, len(infoHighlightKeys))
	for i, key := range infoHighlightKeys {
		rank[key] = i
	}
	return rank
}()

// selectInfoFields orders fields highlights first (then in record order),
// drops header and debug-only keys, and caps the result at limit. The second
// return value counts what was left out.
func selectInfoFields(fields fieldSet, limit int) ([]infoField, int) {
	ordered := slices.Clone(fields)
	slices.SortStableFunc(ordered, func(a, b field) int {
		ra, okA := highlightRank[a.key]
		rb, okB := highlightRank[b.key]
		switch {
		case okA && okB:
			return cmp.Compare(ra, rb)
		case okA:
			return -1
		case okB:
			return 1
		}
		return 0
	})

	var shown []infoField
	hidden := 0
	for _, f := range ordered {
		switch {
		case skipInfoKey(f.key):
		case isDebugOnlyKey(f.key), limit > 0 && len(shown) >= limit:
			hidden++
		default:
			shown = append(shown, infoField{label: displayLabel(f.key), value: formatValueForKey(f.key, f.val)})
		}
	}
	return shown, hidden
}

func formatValueForKey(key string, v slog.Value) string {
	v = v.Resolve()
	switch {
	case strings.HasSuffix(key, "_bytes") && v.Kind() == slog.KindInt64:
		return formatBytes(v.Int64())
	case v.Kind() == slog.KindDuration:
		return v.Duration().Round(time.Millisecond).String()
	case v.Kind() == slog.KindBool:
		if v.Bool() {
			return "yes"
		}
		return "no"
	}
	value := quotedValue(v)
	if key == "error" && len(value) > 200 {
		value = value[:200] + "…"
	}
	return value
}

func formatBytes(n int64) string {
	const unit = 1024
	if n < unit {
		return fmt.Sprintf("%d B", n)
	}
	div, exp := int64(unit), 0
	for value := n / unit; value >= unit; value /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.1f %ciB", float64(n)/float64(div), "KMGTPE"[exp])
}

func skipInfoKey(key string) bool {
	switch key {
	case "", FieldStoryID, FieldStage, FieldComponent:
		return true
	default:
		return false
	}
}

func isDebugOnlyKey(key string) bool {
	switch key {
	case FieldCorrelationID, "prompt", "file_path", "model":
		return true
	}
	return strings.HasSuffix(key, "_id") || strings.HasSuffix(key, "_path")
}

func displayLabel(key string) string {
	switch key {
	case FieldAlert:
		return "Alert"
	case FieldEventType:
		return "Event"
	case FieldDecisionType:
		return "Decision"
	case FieldErrorHint:
		return "Hint"
	case FieldPageIndex:
		return "Page"
	case FieldAssetKind:
		return "Asset"
	default:
		return titleizeKey(key)
	}
}

func titleizeKey(key string) string {
	parts := strings.FieldsFunc(key, func(r rune) bool {
		return r == '_' || r == '-' || r == '.'
	})
	for i, part := range parts {
		parts[i] = strings.ToUpper(part[:1]) + strings.ToLower(part[1:])
	}
	return strings.Join(parts, " ")
}
