// Package logging builds the slog loggers used across dcatwiz.
//
// It offers console and JSON output formats, multi-destination writers
// (stdout plus the daemon log file), and helpers that derive standardized
// structured fields (workflow_id, job_id, step, correlation_id) from a
// request context.
package logging
