// Package logging assembles the structured slog loggers used across revoice.
//
// It owns the console and JSON handlers, level and output plumbing, and
// context-aware helpers so pipeline code tags log lines with job IDs, stage
// names and request correlation IDs. A no-op logger is provided for tests and
// wiring code that cannot fail.
package logging
