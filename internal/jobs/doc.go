// Package jobs provides the ephemeral background-job machinery: a
// process-local registry mapping job identifiers to in-flight status,
// progress, and terminal results, plus a bounded worker pool that executes
// pipeline stages off the request path.
//
// The registry intentionally delivers terminal results at most once. The
// first poll that observes COMPLETE or FAILED consumes the entry, which
// forces callers to persist results into durable storage before the
// bookkeeping disappears. A process restart loses the registry; callers
// detect the resulting "job not found" as a stale workflow and restart the
// pipeline stage rather than failing hard.
package jobs
