// Package logging assembles structured slog loggers and formatting helpers used
// across adscribe.
//
// It owns the console and JSON handlers, centralizes level and output plumbing,
// and exposes context-aware helpers so pipeline code tags log lines with job
// IDs, stages, and correlation IDs. NewNop serves tests and wiring code that
// cannot fail.
package logging
