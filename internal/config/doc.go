// Package config loads, normalizes, and validates retitle configuration data.
//
// It supplies repository defaults, expands user paths (including tilde
// shortcuts), reads TOML files, and honours environment fallbacks such as
// TVDB_API_KEY. The Config type centralizes every knob the CLI needs, from
// the decision cache location to name templates and catalog credentials.
//
// Always obtain settings through this package so downstream code receives
// sanitized paths, canonical enum values, and clear validation errors.
package config
