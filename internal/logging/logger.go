package logging

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"storyloom/internal/config"
)

// Options describes logger construction parameters.
type Options struct {
	Level            string
	Format           string
	OutputPaths      []string
	ErrorOutputPaths []string
	Development      bool
	// StageOverrides maps a workflow stage to its own minimum level.
	StageOverrides map[string]string
}

// logFileName is the JSON log kept under paths.log_dir.
const logFileName = "storyloom.log"

// New builds a logger writing to every distinct destination in OutputPaths
// and ErrorOutputPaths ("stdout", "stderr" or a file path). Source locations
// are attached at debug level or in development mode.
func New(opts Options) (*slog.Logger, error) {
	level := parseLevel(opts.Level)
	// The handler runs at the most verbose level any stage asks for; the
	// stage filter then raises it back per record.
	floor := new(slog.LevelVar)
	floor.Set(minLevel(level, opts.StageOverrides))

	outputs := opts.OutputPaths
	if len(outputs) == 0 {
		outputs = []string{"stdout"}
	}
	errOutputs := opts.ErrorOutputPaths
	if len(errOutputs) == 0 {
		errOutputs = []string{"stderr"}
	}
	w, err := openSinks(slices.Concat(outputs, errOutputs))
	if err != nil {
		return nil, err
	}

	withSource := opts.Development || level <= slog.LevelDebug
	var handler slog.Handler
	switch format := strings.ToLower(strings.TrimSpace(opts.Format)); format {
	case "json":
		handler = newJSONHandler(w, floor, withSource)
	case "console", "":
		handler = newConsoleHandler(w, floor, withSource)
	default:
		return nil, fmt.Errorf("log format: unsupported value %q", opts.Format)
	}
	if len(opts.StageOverrides) > 0 {
		handler = newStageLevelHandler(handler, level, opts.StageOverrides)
	}
	return slog.New(handler), nil
}

// NewFromConfig returns the CLI logger: human output on stderr in the
// configured format, teed into a JSON log file when paths.log_dir is set.
func NewFromConfig(cfg *config.Config) (*slog.Logger, error) {
	if cfg == nil {
		return New(Options{Level: "info", Format: "console", OutputPaths: []string{"stderr"}, ErrorOutputPaths: []string{"stderr"}})
	}
	base := Options{
		Level:            cfg.Logging.Level,
		Format:           cfg.Logging.Format,
		OutputPaths:      []string{"stderr"},
		ErrorOutputPaths: []string{"stderr"},
		StageOverrides:   cfg.Logging.StageOverrides,
	}
	console, err := New(base)
	if err != nil {
		return nil, err
	}
	logDir := strings.TrimSpace(cfg.Paths.LogDir)
	if logDir == "" {
		return console, nil
	}
	if err := os.MkdirAll(logDir, 0o755); err != nil {
		return nil, fmt.Errorf("ensure log directory: %w", err)
	}

	fileOpts := base
	fileOpts.Format = "json"
	fileOpts.OutputPaths = []string{filepath.Join(logDir, logFileName)}
	fileOpts.ErrorOutputPaths = fileOpts.OutputPaths
	file, err := New(fileOpts)
	if err != nil {
		return nil, err
	}
	return TeeLogger(console, file.Handler()), nil
}

func parseLevel(level string) slog.Level {
	switch strings.ToLower(strings.TrimSpace(level)) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	}
	return slog.LevelInfo
}

func minLevel(base slog.Level, overrides map[string]string) slog.Level {
	for _, value := range overrides {
		base = min(base, parseLevel(value))
	}
	return base
}

// openSinks opens each destination once. Files are appended to and their
// parent directories created.
func openSinks(destinations []string) (io.Writer, error) {
	var writers []io.Writer
	opened := make(map[string]bool, len(destinations))
	for _, dest := range destinations {
		dest = strings.TrimSpace(dest)
		if dest == "" || opened[dest] {
			continue
		}
		opened[dest] = true
		w, err := openSink(dest)
		if err != nil {
			return nil, err
		}
		writers = append(writers, w)
	}
	switch len(writers) {
	case 0:
		return os.Stderr, nil
	case 1:
		return writers[0], nil
	}
	return io.MultiWriter(writers...), nil
}

func openSink(dest string) (io.Writer, error) {
	switch dest {
	case "stdout":
		return os.Stdout, nil
	case "stderr":
		return os.Stderr, nil
	}
	if err := os.MkdirAll(filepath.Dir(dest), 0o755); err != nil {
		return nil, fmt.Errorf("create log directory for %s: %w", dest, err)
	}
	f, err := os.OpenFile(dest, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o664)
	if err != nil {
		return nil, fmt.Errorf("open log file %s: %w", dest, err)
	}
	return f, nil
}
