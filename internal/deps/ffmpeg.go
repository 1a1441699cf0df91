package deps

import (
	"os"
	"os/exec"
	"path/filepath"
	"runtime"
	"strings"
)

// ResolveFFmpegPath returns the ffmpeg executable to run. A configured value
// resolvable through PATH (or an absolute path) is returned in resolved form;
// otherwise the configured value is returned unchanged so error messages name
// what the user asked for.
func ResolveFFmpegPath(configured string) string {
	command := strings.TrimSpace(configured)
	if command == "" {
		command = "ffmpeg"
	}
	if resolved, err := exec.LookPath(command); err == nil {
		return resolved
	}
	return command
}

// ResolveFFprobePath returns the ffprobe executable to run.
//
// ffprobe is looked up on PATH first. Static ffmpeg builds usually ship the
// two tools side by side, so when PATH has no ffprobe the directory holding
// the resolved ffmpeg binary is tried next.
func ResolveFFprobePath(configured, ffmpegCommand string) string {
	command := strings.TrimSpace(configured)
	if command == "" {
		command = "ffprobe"
	}
	if resolved, err := exec.LookPath(command); err == nil {
		return resolved
	}
	if filepath.IsAbs(command) {
		return command
	}
	ffmpeg := ResolveFFmpegPath(ffmpegCommand)
	if filepath.IsAbs(ffmpeg) {
		candidate := filepath.Join(filepath.Dir(ffmpeg), executableName(command))
		if info, err := os.Stat(candidate); err == nil && isExecutable(info) {
			return candidate
		}
	}
	return command
}

func executableName(base string) string {
	if runtime.GOOS == "windows" && !strings.HasSuffix(base, ".exe") {
		return base + ".exe"
	}
	return base
}

func isExecutable(info os.FileInfo) bool {
	if info.IsDir() {
		return false
	}
	if runtime.GOOS == "windows" {
		return true
	}
	return info.Mode()&0o111 != 0
}
