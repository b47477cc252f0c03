// Package blobstore implements the durable storage tier: JSON documents
// keyed by (workflow scope, logical name) in a local SQLite database.
//
// The store enforces per-key atomicity only; there are no cross-key
// transactions. Unreadable or corrupt entries degrade to "absent" so the
// reconciliation rules upstream can fall back instead of crashing. Retention
// is external housekeeping: the daemon periodically deletes entries older
// than a fixed window.
package blobstore
