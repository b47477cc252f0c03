// Package server hosts the dcatwiz daemon: the HTTP API the wizard frontend
// talks to, the background worker pool, and periodic housekeeping of the
// state tiers. A lock file keeps the daemon single-instance per machine.
package server
