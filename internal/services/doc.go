// Package services defines shared utilities consumed by the ingest and render
// paths and by the wrappers around external tools.
//
// Key responsibilities:
//   - Context helpers that stamp stage names and correlation identifiers for
//     logging.
//   - Structured error markers plus the Wrap helper, so a failure can be
//     classified (external tool vs validation) when it is recorded.
//
// Subpackages wrap external capabilities such as WhisperX.
package services
