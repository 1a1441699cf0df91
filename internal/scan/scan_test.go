package scan

import (
	"errors"
	"os"
	"path/filepath"
	"runtime"
	"slices"
	"testing"
)

func touch(t *testing.T, path string) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	if err := os.WriteFile(path, []byte("x"), 0o644); err != nil {
		t.Fatalf("write %s: %v", path, err)
	}
}

func collect(t *testing.T, root string) ([]Asset, []error) {
	t.Helper()
	var assets []Asset
	var errs []error
	for asset, err := range Walk(root) {
		if err != nil {
			errs = append(errs, err)
			continue
		}
		assets = append(assets, asset)
	}
	return assets, errs
}

func TestWalkDepthFirstOrderAndFilters(t *testing.T) {
	root := t.TempDir()
	touch(t, filepath.Join(root, "a.mp3"))
	touch(t, filepath.Join(root, "b", "c.MOV"))
	touch(t, filepath.Join(root, "b", "d", "e.wav"))
	touch(t, filepath.Join(root, "b", "notes.txt"))
	touch(t, filepath.Join(root, "c.webm"))
	touch(t, filepath.Join(root, ".DS_Store"))
	touch(t, filepath.Join(root, "b", "c.json"))

	assets, errs := collect(t, root)
	if len(errs) != 0 {
		t.Fatalf("unexpected errors: %v", errs)
	}
	var rel []string
	for _, a := range assets {
		r, _ := filepath.Rel(root, a.Path)
		rel = append(rel, r)
	}
	want := []string{"a.mp3", filepath.Join("b", "c.MOV"), filepath.Join("b", "d", "e.wav"), "c.webm"}
	if !slices.Equal(rel, want) {
		t.Fatalf("order = %v, want %v", rel, want)
	}

	mov := assets[1]
	if mov.Ext != ".mov" || mov.Kind != KindVideo {
		t.Fatalf("unexpected classification: %+v", mov)
	}
	if !mov.Transcribed {
		t.Fatal("expected c.MOV to be marked transcribed by sibling c.json")
	}
	if assets[0].Transcribed || assets[0].Kind != KindAudio {
		t.Fatalf("unexpected a.mp3 asset: %+v", assets[0])
	}
}

func TestWalkStopsWhenConsumerStops(t *testing.T) {
	root := t.TempDir()
	touch(t, filepath.Join(root, "1.wav"))
	touch(t, filepath.Join(root, "2.wav"))

	count := 0
	for range Walk(root) {
		count++
		break
	}
	if count != 1 {
		t.Fatalf("expected one item before stop, got %d", count)
	}
}

func TestWalkReportsUnreadableDirectoryAndContinues(t *testing.T) {
	if runtime.GOOS == "windows" || os.Geteuid() == 0 {
		t.Skip("permission bits not enforced")
	}
	root := t.TempDir()
	locked := filepath.Join(root, "a-locked")
	touch(t, filepath.Join(locked, "hidden.wav"))
	touch(t, filepath.Join(root, "b.mp3"))
	if err := os.Chmod(locked, 0o000); err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { _ = os.Chmod(locked, 0o755) })

	assets, errs := collect(t, root)
	if len(errs) != 1 {
		t.Fatalf("expected one scan error, got %v", errs)
	}
	var dirErr *DirError
	if !errors.As(errs[0], &dirErr) || dirErr.Path != locked {
		t.Fatalf("expected DirError for %s, got %v", locked, errs[0])
	}
	if len(assets) != 1 || filepath.Base(assets[0].Path) != "b.mp3" {
		t.Fatalf("expected sibling asset to be scanned, got %+v", assets)
	}
}

func TestWalkMissingRoot(t *testing.T) {
	_, errs := collect(t, filepath.Join(t.TempDir(), "missing"))
	if len(errs) != 1 {
		t.Fatalf("expected one error, got %v", errs)
	}
}

func TestInspect(t *testing.T) {
	dir := t.TempDir()
	if _, ok, _ := Inspect(filepath.Join(dir, "readme.md")); ok {
		t.Fatal("unsupported extension accepted")
	}
	if _, ok, _ := Inspect(filepath.Join(dir, IgnoredName)); ok {
		t.Fatal("ignored name accepted")
	}
	asset, ok, err := Inspect(filepath.Join(dir, "talk.mkv"))
	if err != nil || !ok {
		t.Fatalf("Inspect: ok=%v err=%v", ok, err)
	}
	if asset.ArtifactPath != filepath.Join(dir, "talk.json") || asset.Transcribed {
		t.Fatalf("unexpected asset: %+v", asset)
	}
}

func TestSupportedExtensions(t *testing.T) {
	want := []string{".mkv", ".mov", ".mp3", ".mp4", ".wav", ".webm"}
	if got := SupportedExtensions(); !slices.Equal(got, want) {
		t.Fatalf("SupportedExtensions = %v", got)
	}
}
