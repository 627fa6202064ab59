package logging

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
	"time"
)

const consoleTimeLayout = "2006-01-02 15:04:05"

// lockedWriter serializes whole lines from every handler derived from one root.
type lockedWriter struct {
	mu sync.Mutex
	w  io.Writer
}

func (l *lockedWriter) write(p []byte) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	_, err := l.w.Write(p)
	return err
}

type field struct {
	key string
	val slog.Value
}

// fieldSet is a flattened view of record attributes; group names become
// dotted key prefixes.
type fieldSet []field

func (s *fieldSet) add(prefix string, attr slog.Attr) {
	if attr.Equal(slog.Attr{}) {
		return
	}
	val := attr.Value.Resolve()
	key := attr.Key
	if prefix != "" && key != "" {
		key = prefix + "." + key
	} else if prefix != "" {
		key = prefix
	}
	if val.Kind() == slog.KindGroup {
		for _, child := range val.Group() {
			s.add(key, child)
		}
		return
	}
	*s = append(*s, field{key: key, val: val})
}

// compact drops unnamed fields and collapses repeated keys: a key keeps the
// slot where it first appeared and the value it was last given.
func (s fieldSet) compact() fieldSet {
	slot := make(map[string]int, len(s))
	out := make(fieldSet, 0, len(s))
	for _, f := range s {
		if f.key == "" {
			continue
		}
		if i, seen := slot[f.key]; seen {
			out[i].val = f.val
			continue
		}
		slot[f.key] = len(out)
		out = append(out, f)
	}
	return out
}

func (s fieldSet) lookup(key string) string {
	for _, f := range s {
		if f.key == key {
			return plainValue(f.val)
		}
	}
	return ""
}

// consoleHandler writes a one-line header per record followed by indented
// fields. Info and above show a curated, capped field list; debug shows all.
type consoleHandler struct {
	out    *lockedWriter
	level  slog.Leveler
	source bool
	preset fieldSet
	group  string
}

func newConsoleHandler(w io.Writer, lvl slog.Leveler, addSource bool) slog.Handler {
	return &consoleHandler{out: &lockedWriter{w: w}, level: lvl, source: addSource}
}

func (h *consoleHandler) Enabled(_ context.Context, level slog.Level) bool {
	return level >= h.level.Level()
}

func (h *consoleHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	next := *h
	next.preset = append(fieldSet(nil), h.preset...)
	for _, attr := range attrs {
		next.preset.add(h.group, attr)
	}
	return &next
}

func (h *consoleHandler) WithGroup(name string) slog.Handler {
	if name == "" {
		return h
	}
	next := *h
	if next.group != "" {
		next.group += "." + name
	} else {
		next.group = name
	}
	return &next
}

func (h *consoleHandler) Handle(ctx context.Context, record slog.Record) error {
	if !h.Enabled(ctx, record.Level) {
		return nil
	}
	fields := append(fieldSet(nil), h.preset...)
	record.Attrs(func(attr slog.Attr) bool {
		fields.add(h.group, attr)
		return true
	})
	for _, attr := range ContextFields(ctx) {
		fields.add("", attr)
	}
	fields = fields.compact()

	var b strings.Builder
	h.writeHeader(&b, record, fields)
	if record.Level < slog.LevelInfo {
		writeDebugFields(&b, fields)
	} else {
		writeInfoFields(&b, fields)
	}
	return h.out.write([]byte(b.String()))
}

func (h *consoleHandler) writeHeader(b *strings.Builder, record slog.Record, fields fieldSet) {
	ts := record.Time
	if ts.IsZero() {
		ts = time.Now()
	}
	b.WriteString(ts.In(time.Local).Format(consoleTimeLayout))
	b.WriteByte(' ')
	b.WriteString(levelLabel(record.Level))
	if component := fields.lookup(FieldComponent); component != "" {
		fmt.Fprintf(b, " [%s]", component)
	}
	if subject := FormatSubject(fields.lookup(FieldStoryID), fields.lookup(FieldStage)); subject != "" {
		b.WriteByte(' ')
		b.WriteString(subject)
	}
	msg := strings.TrimSpace(record.Message)
	if msg == "" {
		msg = "(no message)"
	}
	b.WriteString(" – ")
	b.WriteString(msg)
	if h.source {
		if src := record.Source(); src != nil && src.File != "" {
			fmt.Fprintf(b, " [%s:%d]", filepath.Base(src.File), src.Line)
		}
	}
	b.WriteByte('\n')
}

func writeDebugFields(b *strings.Builder, fields fieldSet) {
	for _, f := range fields {
		if skipInfoKey(f.key) {
			continue
		}
		fmt.Fprintf(b, "    %s: %s\n", f.key, quotedValue(f.val))
	}
}

func writeInfoFields(b *strings.Builder, fields fieldSet) {
	shown, hidden := selectInfoFields(fields, infoAttrLimit)
	for _, f := range shown {
		fmt.Fprintf(b, "    - %s: %s\n", f.label, f.value)
	}
	switch {
	case hidden == 1:
		b.WriteString("    + 1 more field hidden\n")
	case hidden > 1:
		fmt.Fprintf(b, "    + %d more fields hidden\n", hidden)
	}
}

// FormatSubject builds the "Story <id> (<stage>)" part of a console header.
// Only the first UUID segment of the story ID is shown.
func FormatSubject(storyID, stage string) string {
	storyID = strings.TrimSpace(storyID)
	stage = strings.TrimSpace(stage)
	if head, _, ok := strings.Cut(storyID, "-"); ok && head != "" {
		storyID = head
	}
	switch {
	case storyID == "":
		return stage
	case stage == "":
		return "Story " + storyID
	default:
		return "Story " + storyID + " (" + stage + ")"
	}
}

func levelLabel(level slog.Level) string {
	switch {
	case level >= slog.LevelError:
		return "ERROR"
	case level >= slog.LevelWarn:
		return "WARN"
	case level >= slog.LevelInfo:
		return "INFO"
	}
	return "DEBUG"
}

// plainValue renders v without quoting; errors render as their message.
func plainValue(v slog.Value) string {
	v = v.Resolve()
	switch v.Kind() {
	case slog.KindString:
		return v.String()
	case slog.KindTime:
		if v.Time().IsZero() {
			return ""
		}
		return v.Time().In(time.Local).Format(consoleTimeLayout)
	case slog.KindFloat64:
		return strconv.FormatFloat(v.Float64(), 'f', -1, 64)
	case slog.KindAny:
		if err, ok := v.Any().(error); ok {
			return err.Error()
		}
		return fmt.Sprint(v.Any())
	}
	return v.String()
}

// quotedValue is plainValue with Go quoting for values that would otherwise
// be ambiguous on a key: value line.
func quotedValue(v slog.Value) string {
	s := plainValue(v)
	if s == "" || strings.ContainsFunc(s, func(r rune) bool { return r <= ' ' || r == '=' || r == '"' }) {
		return strconv.Quote(s)
	}
	return s
}
