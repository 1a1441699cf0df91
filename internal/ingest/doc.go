// Package ingest runs the batch transcription pipeline.
//
// A run walks each target path, skips assets whose caption artifact already
// exists, and for every remaining asset normalizes audio into a scratch
// workspace, transcribes it, merges tokens into captions and writes the
// artifact atomically. Assets are processed one at a time in scan order.
//
// Failures while normalizing, transcribing or merging are isolated to the
// asset: they are logged with the asset path, recorded in the ledger and the
// run moves on. A failure to write an artifact aborts the run. Scratch files
// are removed on every path; the workspace directory is removed only when
// the run created it.
package ingest
