// Package config loads, normalizes, and validates shortsadmin configuration.
//
// It supplies repository defaults, expands user paths (including tilde
// shortcuts), reads TOML files, and honours the SHORTSADMIN_API_URL and
// SHORTSADMIN_TOKEN environment overrides. Polling intervals and page windows
// live here so every list view and watch loop reads the same knobs.
package config
