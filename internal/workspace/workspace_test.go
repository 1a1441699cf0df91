package workspace

import (
	"os"
	"path/filepath"
	"testing"

	"captionsync/internal/logging"
)

func TestAcquireCreatesAndReleaseRemoves(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "temp")

	ws, err := Acquire(dir, logging.NewNop())
	if err != nil {
		t.Fatalf("Acquire: %v", err)
	}
	if !ws.CreatedByThisRun {
		t.Fatal("expected workspace to be owned by this run")
	}
	wav := ws.File("talk.wav")
	if err := os.WriteFile(wav, []byte("RIFF"), 0o644); err != nil {
		t.Fatal(err)
	}

	if err := ws.Release(); err != nil {
		t.Fatalf("Release: %v", err)
	}
	if _, err := os.Stat(dir); !os.IsNotExist(err) {
		t.Fatalf("expected workspace removed, stat err=%v", err)
	}
}

func TestReleaseKeepsPreexistingDirectory(t *testing.T) {
	dir := t.TempDir()
	keep := filepath.Join(dir, "keep.txt")
	if err := os.WriteFile(keep, []byte("x"), 0o644); err != nil {
		t.Fatal(err)
	}

	ws, err := Acquire(dir, nil)
	if err != nil {
		t.Fatalf("Acquire: %v", err)
	}
	if ws.CreatedByThisRun {
		t.Fatal("pre-existing directory must not be owned by this run")
	}
	wav := ws.File("clip.wav")
	if err := os.WriteFile(wav, []byte("RIFF"), 0o644); err != nil {
		t.Fatal(err)
	}
	if err := ws.Remove(wav); err != nil {
		t.Fatalf("Remove: %v", err)
	}
	if err := ws.Release(); err != nil {
		t.Fatalf("Release: %v", err)
	}
	if _, err := os.Stat(wav); !os.IsNotExist(err) {
		t.Fatal("scratch file should be removed")
	}
	if _, err := os.Stat(keep); err != nil {
		t.Fatalf("pre-existing content should survive: %v", err)
	}
}

func TestAcquireRejectsFileAndEmpty(t *testing.T) {
	file := filepath.Join(t.TempDir(), "file")
	if err := os.WriteFile(file, nil, 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := Acquire(file, nil); err == nil {
		t.Fatal("expected error for regular file")
	}
	if _, err := Acquire("  ", nil); err == nil {
		t.Fatal("expected error for empty path")
	}
}

func TestRemoveMissingIsNoop(t *testing.T) {
	ws, err := Acquire(t.TempDir(), nil)
	if err != nil {
		t.Fatal(err)
	}
	if err := ws.Remove(filepath.Join(ws.Path, "missing.wav")); err != nil {
		t.Fatalf("Remove missing: %v", err)
	}
}
