// Package wizard holds the step controllers: thin orchestration layers that
// pull authoritative fields from the workflow manager, invoke one external
// collaborator each, and hand results back for persistence.
package wizard
