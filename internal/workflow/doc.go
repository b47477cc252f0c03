// Package workflow implements the wizard's state reconciliation: per-field
// precedence merging across the request input, the fast in-memory tier and
// the durable blob tier, the stage state machine with its guard conditions,
// and publisher auto-detection.
package workflow
