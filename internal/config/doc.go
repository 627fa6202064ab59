// Package config loads, normalizes, and validates storyloom configuration data.
//
// It supplies repository defaults, expands user paths (including tilde
// shortcuts), reads TOML files, and honours environment fallbacks such as
// STORYLOOM_API_KEY and OPENAI_API_KEY. The Config type centralizes every knob
// the CLI and workflow need: where the database and story assets live, which
// generation models to call, and how far the refinement loop may go.
//
// Always obtain settings through this package so downstream code receives
// sanitized paths, canonical log formats, and clear validation errors.
package config
