// Package captions groups time-stamped transcription tokens into display
// captions.
//
// Tokens arrive in time order from the transcriber and are merged while the
// silence between one token's end and the next token's start stays below a
// millisecond threshold. The same tokens also reduce to a flat transcript
// that ignores caption boundaries.
package captions
