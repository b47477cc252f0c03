// Package services provides shared plumbing for the external collaborator
// clients: sentinel error markers with wrap/classify helpers and context
// annotation for workflow, job, step, and correlation identifiers.
//
// Collaborator adapters live in subpackages (openapi, webpage, directory,
// textgen, translate, catalog). They never propagate raw transport errors
// for expected failure modes; each converts failures into either a result
// struct with an error field or an error tagged with one of the sentinels
// here so the reconciliation core's control flow stays exception-free.
package services
