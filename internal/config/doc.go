// Package config loads, normalizes, and validates dcatwiz configuration data.
//
// It supplies repository defaults, expands user paths (including tilde
// shortcuts), reads TOML files, and honours environment fallbacks such as
// DCATWIZ_GENERATOR_API_KEY. The Config type centralizes every knob the
// daemon and CLI need, so collaborator endpoints, worker pool sizing, and
// retention windows are discovered in one pass.
//
// Always obtain settings through this package so downstream code receives
// sanitized paths, canonical log formats, and clear validation errors.
package config
