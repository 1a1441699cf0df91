package ffprobe

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"os/exec"
	"strconv"
	"strings"
)

// ErrNoDuration reports media whose duration could not be determined.
var ErrNoDuration = errors.New("media duration unavailable")

// Result represents the parsed output from an ffprobe inspection.
type Result struct {
	Streams []Stream `json:"streams"`
	Format  Format   `json:"format"`
}

// Stream describes a single stream in the media container.
type Stream struct {
	Index      int    `json:"index"`
	CodecName  string `json:"codec_name"`
	CodecType  string `json:"codec_type"`
	Duration   string `json:"duration"`
	SampleRate string `json:"sample_rate"`
	Channels   int    `json:"channels"`
}

// Format captures container-level metadata extracted by ffprobe.
type Format struct {
	Filename   string `json:"filename"`
	NBStreams  int    `json:"nb_streams"`
	Duration   string `json:"duration"`
	FormatName string `json:"format_name"`
}

// Parse decodes ffprobe JSON output.
func Parse(data []byte) (Result, error) {
	var result Result
	if err := json.Unmarshal(data, &result); err != nil {
		return Result{}, fmt.Errorf("ffprobe parse: %w", err)
	}
	return result, nil
}

// AudioStreamCount returns the number of audio streams discovered.
func (r Result) AudioStreamCount() int {
	count := 0
	for _, stream := range r.Streams {
		if strings.EqualFold(stream.CodecType, "audio") {
			count++
		}
	}
	return count
}

// DurationSeconds returns the container duration in seconds, falling back to
// the longest audio stream. Returns 0 when unavailable and NaN when malformed.
func (r Result) DurationSeconds() float64 {
	if d := parseFloat(r.Format.Duration); d != 0 {
		return d
	}
	var longest float64
	for _, stream := range r.Streams {
		if !strings.EqualFold(stream.CodecType, "audio") {
			continue
		}
		d := parseFloat(stream.Duration)
		if math.IsNaN(d) {
			return d
		}
		longest = max(longest, d)
	}
	return longest
}

// Resolver runs ffprobe to resolve durations.
type Resolver struct {
	binary string
	runner func(ctx context.Context, name string, args ...string) ([]byte, error)
}

// NewResolver returns a resolver using the given ffprobe binary.
func NewResolver(binary string) *Resolver {
	binary = strings.TrimSpace(binary)
	if binary == "" {
		binary = "ffprobe"
	}
	return &Resolver{binary: binary}
}

// WithRunner replaces command execution (for testing).
func (r *Resolver) WithRunner(runner func(ctx context.Context, name string, args ...string) ([]byte, error)) {
	r.runner = runner
}

// Inspect executes ffprobe against a path or URL and decodes the response.
func (r *Resolver) Inspect(ctx context.Context, ref string) (Result, error) {
	ref = strings.TrimSpace(ref)
	if ref == "" {
		return Result{}, errors.New("ffprobe inspect: empty reference")
	}
	args := []string{"-v", "error", "-hide_banner", "-show_format", "-show_streams", "-of", "json", "--", ref}

	var (
		output []byte
		err    error
	)
	if r.runner != nil {
		output, err = r.runner(ctx, r.binary, args...)
	} else {
		cmd := exec.CommandContext(ctx, r.binary, args...) //nolint:gosec
		output, err = cmd.Output()
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			output = exitErr.Stderr
		}
	}
	if err != nil {
		return Result{}, fmt.Errorf("ffprobe inspect: %w: %s", err, strings.TrimSpace(string(output)))
	}
	return Parse(output)
}

// Duration resolves the playable duration of ref in seconds.
func (r *Resolver) Duration(ctx context.Context, ref string) (float64, error) {
	result, err := r.Inspect(ctx, ref)
	if err != nil {
		return 0, err
	}
	seconds := result.DurationSeconds()
	if math.IsNaN(seconds) || math.IsInf(seconds, 0) || seconds <= 0 {
		return 0, fmt.Errorf("%w: %s", ErrNoDuration, ref)
	}
	return seconds, nil
}

func parseFloat(value string) float64 {
	cleaned := strings.TrimSpace(value)
	if cleaned == "" || cleaned == "N/A" {
		return 0
	}
	if parsed, err := strconv.ParseFloat(cleaned, 64); err == nil {
		return parsed
	}
	return math.NaN()
}
