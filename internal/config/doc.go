// Package config loads, normalizes, and validates callscribe configuration.
//
// It supplies repository defaults, expands user paths (including tilde
// shortcuts), reads TOML files, and honours environment fallbacks such as
// CALLSCRIBE_STT_API_KEY. The Config type centralizes every knob the daemon
// and CLI need, allowing directories, gateway credentials, and pipeline
// thresholds to be discovered in one pass.
//
// Always obtain settings through this package so downstream code receives
// sanitized paths, canonical language tags, and clear validation errors.
package config
