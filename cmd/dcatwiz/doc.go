// Package main hosts the dcatwiz CLI entrypoint and command graph.
//
// The Cobra-based command tree translates terminal invocations into HTTP
// calls against the daemon's API: starting workflows, watching harvest
// progress, reviewing and translating metadata, assembling the dataset
// document, and submitting it to the catalog. Configuration resolution and
// API address discovery live here so subcommands stay declarative; the
// heavy lifting belongs to the internal packages.
package main
