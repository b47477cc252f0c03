// Package session implements the fast storage tier: a process-local,
// mutex-guarded key-value map scoped by workflow identifier with a small
// per-workflow capacity ceiling and idle-based eviction.
//
// The tier is deliberately non-durable. A process restart loses it entirely;
// the reconciler falls back to the durable tier or reports the workflow as
// expired.
package session
