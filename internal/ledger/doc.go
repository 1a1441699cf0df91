// Package ledger records batch transcription runs in SQLite.
//
// Each run gets a row keyed by its correlation id plus one row per asset the
// run looked at, with the outcome (processed, skipped or failed) and the
// failing stage when there was one. The ledger is history for operators; the
// pipeline never reads it to decide whether an asset needs work.
package ledger
