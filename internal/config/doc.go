// Package config loads, normalizes, and validates captionsync configuration data.
//
// It supplies repository defaults, expands user paths (including tilde
// shortcuts), reads TOML files, and honours environment fallbacks such as
// HF_TOKEN. The Config type centralizes every knob the CLI needs: where
// assets live, where the normalization workspace goes, how WhisperX is
// invoked, and how captions are laid onto a frame timeline.
//
// Always obtain settings through this package so downstream code receives
// sanitized paths, canonical log formats, and clear validation errors.
package config
