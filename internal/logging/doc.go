// Package logging assembles structured slog loggers and formatting helpers used
// across storyloom.
//
// It owns the configurable console/JSON handlers, per-stage level overrides,
// and context-aware helpers so workflow code can tag log lines with story IDs,
// stages, and correlation IDs without threading them through every call. A
// no-op logger is provided for tests and wiring code that cannot fail.
package logging
