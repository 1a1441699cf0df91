// Package artifact persists caption artifacts: the JSON file written beside
// each transcribed asset.
//
// Writes go to a temporary sibling and are renamed into place, so a reader
// never observes a half-written file. Existence of the artifact is the only
// signal that an asset has been transcribed; Claim serializes writers across
// processes with a file lock and re-checks that signal under the lock.
package artifact
