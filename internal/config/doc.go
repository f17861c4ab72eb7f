// Package config loads, normalizes, and validates voicecollect configuration data.
//
// It supplies repository defaults, expands user paths (including tilde
// shortcuts), reads TOML files, loads a .env file when present, and honours
// environment fallbacks such as DATABASE_URL and PORT. The Config type
// centralizes every knob the daemon and CLI need, so the database backend, the
// blob store, and the audio normalizer are all chosen in one pass at startup.
//
// Always obtain settings through this package so downstream code receives
// sanitized paths, canonical enum values, and clear validation errors.
package config
