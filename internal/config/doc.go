// Package config loads, normalizes, and validates scraibe configuration data.
//
// It supplies repository defaults, expands user paths (including tilde
// shortcuts), reads TOML files, and honours environment fallbacks such as
// HF_TOKEN and SCRAIBE_SMTP_PASSWORD. The Config type centralizes every knob
// the daemon and CLI need: worker capacity, engine settings, mail transport,
// and operator alerts.
//
// Always obtain settings through this package so downstream code receives
// sanitized paths, canonical log formats, and clear validation errors.
package config
