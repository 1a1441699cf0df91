package whisperx

import (
	"context"
	"fmt"
	"os/exec"
	"strconv"
	"strings"
)

// buildNormalizeArgs maps the first audio stream of source to a mono 16kHz
// PCM WAV at dest, overwriting any existing file.
func buildNormalizeArgs(source, dest string) []string {
	return []string{
		"-y",
		"-hide_banner",
		"-loglevel", "error",
		"-i", source,
		"-map", "0:a:0",
		"-vn",
		"-sn",
		"-dn",
		"-ac", strconv.Itoa(Channels),
		"-ar", strconv.Itoa(SampleRate),
		"-c:a", "pcm_s16le",
		dest,
	}
}

// ExtractFullAudio converts the first audio stream of source into a mono
// 16kHz WAV file suitable for WhisperX.
func ExtractFullAudio(ctx context.Context, ffmpegBinary, source, dest string) error {
	if strings.TrimSpace(source) == "" || strings.TrimSpace(dest) == "" {
		return fmt.Errorf("extract audio: source and destination required")
	}
	cmd := exec.CommandContext(ctx, ffmpegBinary, buildNormalizeArgs(source, dest)...) //nolint:gosec
	if output, err := cmd.CombinedOutput(); err != nil {
		return fmt.Errorf("ffmpeg extract: %w: %s", err, strings.TrimSpace(string(output)))
	}
	return nil
}
