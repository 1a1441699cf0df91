package timeline

import (
	"errors"
	"fmt"
	"math"

	"captionsync/internal/captions"
)

// DefaultMaxCaptionSeconds caps how long a single caption stays on screen.
const DefaultMaxCaptionSeconds = 1.0

// frameEpsilon absorbs float error in seconds*fps products such as 0.9*30.
const frameEpsilon = 1e-6

var (
	// ErrInvalidFrameRate reports a non-positive frame rate.
	ErrInvalidFrameRate = errors.New("frame rate must be positive")
	// ErrCaptionsOutOfOrder reports captions whose starts are not strictly increasing.
	ErrCaptionsOutOfOrder = errors.New("captions out of order")
)

// Entry is a caption resolved to a concrete, non-overlapping frame window.
type Entry struct {
	Caption        captions.Caption `json:"caption"`
	StartFrame     int              `json:"startFrame"`
	DurationFrames int              `json:"durationFrames"`
}

// EndFrame returns the first frame after the entry.
func (e Entry) EndFrame() int {
	return e.StartFrame + e.DurationFrames
}

// Options tunes Build.
type Options struct {
	FPS               int
	MaxCaptionSeconds float64
}

// SecondsToFrames converts seconds to a frame index rounding up. Products that
// land within a millionth of a frame of an integer are treated as exact.
func SecondsToFrames(seconds float64, fps int) int {
	value := seconds * float64(fps)
	if rounded := math.Round(value); math.Abs(value-rounded) < frameEpsilon {
		return int(rounded)
	}
	return int(math.Ceil(value))
}

// Build lays captions onto a timeline of totalFrames frames.
func Build(list []captions.Caption, totalFrames int, opts Options) ([]Entry, error) {
	if opts.FPS <= 0 {
		return nil, fmt.Errorf("%w: %d", ErrInvalidFrameRate, opts.FPS)
	}
	maxSeconds := opts.MaxCaptionSeconds
	if maxSeconds <= 0 {
		maxSeconds = DefaultMaxCaptionSeconds
	}
	capFrames := SecondsToFrames(maxSeconds, opts.FPS)

	for i := 1; i < len(list); i++ {
		if list[i].StartInSeconds <= list[i-1].StartInSeconds {
			return nil, fmt.Errorf("%w: caption %d starts at %.3fs, previous at %.3fs",
				ErrCaptionsOutOfOrder, i, list[i].StartInSeconds, list[i-1].StartInSeconds)
		}
	}
	if len(list) > 0 && list[0].StartInSeconds < 0 {
		return nil, fmt.Errorf("%w: caption 0 starts at negative time %.3fs", ErrCaptionsOutOfOrder, list[0].StartInSeconds)
	}

	entries := make([]Entry, 0, len(list))
	for i, caption := range list {
		start := SecondsToFrames(caption.StartInSeconds, opts.FPS)
		end := min(start+capFrames, totalFrames)
		if i+1 < len(list) {
			end = min(end, SecondsToFrames(list[i+1].StartInSeconds, opts.FPS))
		}
		duration := end - start
		if duration <= 0 {
			continue
		}
		entries = append(entries, Entry{Caption: caption, StartFrame: start, DurationFrames: duration})
	}
	return entries, nil
}

// At returns the entry visible at frame, if any.
func At(entries []Entry, frame int) (Entry, bool) {
	lo, hi := 0, len(entries)
	for lo < hi {
		mid := (lo + hi) / 2
		if entries[mid].EndFrame() <= frame {
			lo = mid + 1
		} else {
			hi = mid
		}
	}
	if lo < len(entries) && entries[lo].StartFrame <= frame {
		return entries[lo], true
	}
	return Entry{}, false
}
