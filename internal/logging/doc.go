// Package logging assembles structured slog loggers and formatting helpers used
// across studyscribe.
//
// It owns the console and JSON handlers, centralizes level and output
// plumbing, and exposes context-aware helpers so pipeline code tags log lines
// with job IDs, stages, and correlation IDs. NewNop gives tests and wiring code
// a logger that cannot fail.
package logging
