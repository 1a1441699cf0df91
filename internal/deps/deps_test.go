package deps

import (
	"os"
	"path/filepath"
	"testing"
)

func TestCheckBinaries(t *testing.T) {
	present := writeStub(t, t.TempDir(), "present")
	reqs := []Requirement{
		{Name: "Present", Command: " " + present + " "},
		{Name: "Missing", Command: "clearly-not-present-binary"},
		{Name: "Blank", Command: "  ", Optional: true},
	}

	results := CheckBinaries(reqs)
	if len(results) != len(reqs) {
		t.Fatalf("expected %d results, got %d", len(reqs), len(results))
	}
	if !results[0].Available || results[0].Path != present || results[0].Detail != "" {
		t.Fatalf("expected first requirement to resolve to %s, got %#v", present, results[0])
	}
	if results[1].Available || results[1].Detail == "" {
		t.Fatalf("expected missing binary to be unavailable with detail, got %#v", results[1])
	}
	if results[1].Command != "clearly-not-present-binary" {
		t.Fatalf("unexpected command recorded: %s", results[1].Command)
	}
	if results[2].Detail != "command not configured" {
		t.Fatalf("unexpected detail for blank command: %q", results[2].Detail)
	}

	missing := Missing(results)
	if len(missing) != 1 || missing[0].Name != "Missing" {
		t.Fatalf("expected only the required missing binary, got %#v", missing)
	}
}

func TestResolveFFmpegPathPrefersPATH(t *testing.T) {
	binDir := t.TempDir()
	ffmpegPath := writeStub(t, binDir, "ffmpeg")
	t.Setenv("PATH", binDir)

	if got := ResolveFFmpegPath(""); got != ffmpegPath {
		t.Fatalf("expected %q, got %q", ffmpegPath, got)
	}
	if got := ResolveFFmpegPath("  ffmpeg "); got != ffmpegPath {
		t.Fatalf("expected trimmed lookup to resolve %q, got %q", ffmpegPath, got)
	}
}

func TestResolveFFmpegPathKeepsUnresolvedName(t *testing.T) {
	t.Setenv("PATH", "")
	if got := ResolveFFmpegPath("ffmpeg-custom"); got != "ffmpeg-custom" {
		t.Fatalf("expected unresolved name to be kept, got %q", got)
	}
}

func TestResolveFFprobePathUsesFFmpegSibling(t *testing.T) {
	tmp := t.TempDir()
	ffmpegPath := writeStub(t, tmp, "ffmpeg")
	ffprobePath := writeStub(t, tmp, "ffprobe")
	t.Setenv("PATH", "")

	if got := ResolveFFprobePath("", ffmpegPath); got != ffprobePath {
		t.Fatalf("expected sibling ffprobe %q, got %q", ffprobePath, got)
	}
}

func TestResolveFFprobePathPATHWins(t *testing.T) {
	tmp := t.TempDir()
	ffmpegPath := writeStub(t, tmp, "ffmpeg")
	writeStub(t, tmp, "ffprobe")

	binDir := filepath.Join(tmp, "bin")
	if err := os.MkdirAll(binDir, 0o755); err != nil {
		t.Fatalf("mkdir bin: %v", err)
	}
	onPath := writeStub(t, binDir, "ffprobe")
	t.Setenv("PATH", binDir)

	if got := ResolveFFprobePath("ffprobe", ffmpegPath); got != onPath {
		t.Fatalf("expected PATH ffprobe %q, got %q", onPath, got)
	}
}

func TestResolveFFprobePathNotFound(t *testing.T) {
	t.Setenv("PATH", "")
	if got := ResolveFFprobePath("", filepath.Join(t.TempDir(), "ffmpeg")); got != "ffprobe" {
		t.Fatalf("expected bare name when nothing resolves, got %q", got)
	}
}

func writeStub(t *testing.T, dir, name string) string {
	t.Helper()
	path := filepath.Join(dir, executableName(name))
	if err := os.WriteFile(path, []byte("#!/bin/sh\nexit 0\n"), 0o755); err != nil {
		t.Fatalf("write %s stub: %v", name, err)
	}
	return path
}
