// Package whisperx wraps the external tools used to turn a media asset into
// word-level tokens.
//
// Normalize converts any supported asset into a mono 16kHz PCM WAV with
// ffmpeg. Transcribe runs WhisperX through uvx on that waveform and converts
// the aligned word timings in its JSON output into captions.Token values in
// time order. Both calls go through an injectable command runner so callers
// can test without the binaries installed.
package whisperx
