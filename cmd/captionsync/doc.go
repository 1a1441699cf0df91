// Command captionsync transcribes audio and video assets into caption
// artifacts and resolves those artifacts into frame-accurate timelines.
//
// "transcribe" runs the batch pipeline over files or directories (the
// configured assets root when no path is given). "timeline" and "watch"
// exercise the render path for one audio track; "watch" keeps the session
// open and re-prints whenever the artifact changes on disk.
package main
