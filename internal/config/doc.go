// Package config loads, normalizes, and validates Podmill configuration data.
//
// It supplies repository defaults, expands user paths (including tilde
// shortcuts), reads TOML files, and honours environment fallbacks such as
// PODMILL_LLM_API_KEY. The Config type centralizes every knob the CLI and
// pipeline need, allowing artifact directories and external service
// credentials to be discovered in one pass.
//
// Always obtain settings through this package so downstream code receives
// sanitized paths, canonical audio formats, and clear validation errors.
package config
