// Package logging assembles structured slog loggers and formatting helpers used
// across watchlog.
//
// It owns the console and JSON handlers, centralizes level and output
// plumbing, and exposes context-aware helpers so API calls and upserts are
// tagged with the run's correlation id and target database. The package also
// provides a no-op logger for tests and wiring code that cannot fail.
package logging
