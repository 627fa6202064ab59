package logging

import (
	"fmt"
	"io"
	"log/slog"
	"path/filepath"
	"strings"
	"time"
)

// jsonFieldRewrite shapes the JSON log for log shippers: "ts" in UTC
// RFC3339, lowercase levels, short file:line sources and errors as strings.
func jsonFieldRewrite(_ []string, attr slog.Attr) slog.Attr {
	val := attr.Value
	switch {
	case attr.Key == slog.TimeKey && val.Kind() == slog.KindTime:
		return slog.String("ts", val.Time().UTC().Format(time.RFC3339Nano))
	case attr.Key == slog.TimeKey:
		attr.Key = "ts"
	case attr.Key == slog.LevelKey:
		return slog.String(attr.Key, strings.ToLower(val.String()))
	case val.Kind() != slog.KindAny:
		return attr
	}
	switch v := val.Any().(type) {
	case *slog.Source:
		if v != nil {
			return slog.String(attr.Key, fmt.Sprintf("%s:%d", filepath.Base(v.File), v.Line))
		}
	case error:
		return slog.String(attr.Key, v.Error())
	}
	return attr
}

func newJSONHandler(w io.Writer, lvl slog.Leveler, addSource bool) slog.Handler {
	return slog.NewJSONHandler(w, &slog.HandlerOptions{
		Level:       lvl,
		AddSource:   addSource,
		ReplaceAttr: jsonFieldRewrite,
	})
}
