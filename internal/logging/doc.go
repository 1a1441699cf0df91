// Package logging assembles structured slog loggers and formatting helpers used
// across captionsync.
//
// It owns the console/JSON handlers, centralizes level and output plumbing,
// and exposes context-aware helpers so ingest and render code automatically
// tag log lines with the batch run ID and execution stage. The package also
// provides a no-op logger for tests and wiring code that cannot fail.
package logging
