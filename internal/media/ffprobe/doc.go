// Package ffprobe resolves the playable duration of audio references.
//
// Key types:
//   - Result: parsed ffprobe output containing streams and format metadata
//   - Resolver: runs ffprobe against a path or URL and reports duration
//
// The container duration is authoritative; when a container does not carry
// one, the longest audio stream is used instead.
package ffprobe
