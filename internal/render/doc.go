// Package render resolves caption timelines for an audio track.
//
// A render pass needs two inputs before any frame is computed: the playable
// duration of the audio and the caption artifact derived from the audio
// reference. Resolve fetches both concurrently and hands them to the timeline
// builder. A missing artifact is a valid state and yields a placeholder
// timeline; any other failure cancels the pass.
//
// A Session keeps one audio selection live. It owns a Handle per pass that
// the frame renderer waits on, and a single artifact subscription that
// triggers a fresh pass whenever the artifact changes on disk.
package render
