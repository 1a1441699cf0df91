// Package timeline converts ordered captions into frame-quantized display
// windows for a renderer.
//
// Seconds convert to frames with ceiling rounding, so a caption never appears
// before its onset. Each caption ends at the earliest of the next caption's
// start, its own start plus the display cap, and the end of the audio.
// Windows that collapse to zero frames are dropped rather than stretched.
package timeline
