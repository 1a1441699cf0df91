package preflight

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"captionsync/internal/testsupport"
)

func TestCheckDirectoryAccess_OK(t *testing.T) {
	dir := t.TempDir()
	result := CheckDirectoryAccess("test", dir)
	if !result.Passed {
		t.Fatalf("expected pass for temp dir, got: %s", result.Detail)
	}
}

func TestCheckDirectoryAccess_NotExist(t *testing.T) {
	result := CheckDirectoryAccess("test", filepath.Join(t.TempDir(), "nope"))
	if result.Passed {
		t.Fatal("expected failure for missing dir")
	}
	if !strings.Contains(result.Detail, "does not exist") {
		t.Fatalf("unexpected detail: %s", result.Detail)
	}
}

func TestCheckDirectoryAccess_NotDir(t *testing.T) {
	f := filepath.Join(t.TempDir(), "file.txt")
	if err := os.WriteFile(f, []byte("x"), 0o644); err != nil {
		t.Fatal(err)
	}
	result := CheckDirectoryAccess("test", f)
	if result.Passed {
		t.Fatal("expected failure for file path")
	}
}

func TestCheckFreeSpaceUsesExistingAncestor(t *testing.T) {
	missing := filepath.Join(t.TempDir(), "not", "created", "yet")
	result := CheckFreeSpace("scratch", missing, 1)
	if !result.Passed {
		t.Fatalf("expected pass for missing path under temp dir, got: %s", result.Detail)
	}
	if !strings.Contains(result.Detail, "free") {
		t.Fatalf("expected free space in detail, got: %s", result.Detail)
	}
}

func TestCheckFreeSpaceRejectsImpossibleMinimum(t *testing.T) {
	result := CheckFreeSpace("scratch", t.TempDir(), ^uint64(0))
	if result.Passed {
		t.Fatal("expected failure when requiring more space than exists")
	}
	if !strings.Contains(result.Detail, "need") {
		t.Fatalf("unexpected detail: %s", result.Detail)
	}
}

func TestRunAllReportsMissingAssetsDir(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	if err := os.MkdirAll(cfg.Paths.StateDir, 0o755); err != nil {
		t.Fatal(err)
	}

	results := RunAll(cfg)
	if len(results) != 3 {
		t.Fatalf("expected 3 results, got %d", len(results))
	}
	failed := Failed(results)
	if len(failed) != 1 || failed[0].Name != NameAssetsDir {
		t.Fatalf("expected only the assets directory to fail, got %#v", failed)
	}

	if err := os.MkdirAll(cfg.Paths.AssetsDir, 0o755); err != nil {
		t.Fatal(err)
	}
	if failed := Failed(RunAll(cfg)); len(failed) != 0 {
		t.Fatalf("expected all checks to pass, got %#v", failed)
	}
}

func TestRunAllChecksModelDirWhenConfigured(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	cfg.Transcription.ModelDir = filepath.Join(t.TempDir(), "models")

	results := RunAll(cfg)
	last := results[len(results)-1]
	if last.Name != NameModelDir || last.Passed {
		t.Fatalf("expected failing model directory check, got %#v", last)
	}
}

func TestCheckSystemDepsWithStubs(t *testing.T) {
	cfg := testsupport.NewConfig(t, testsupport.WithStubbedBinaries())
	for _, status := range CheckSystemDeps(cfg) {
		if !status.Available {
			t.Fatalf("expected %s to be available, got %q", status.Name, status.Detail)
		}
	}
}

func TestCheckSystemDepsMissing(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	t.Setenv("PATH", "")
	statuses := CheckSystemDeps(cfg)
	if len(statuses) != 3 {
		t.Fatalf("expected 3 statuses, got %d", len(statuses))
	}
	for _, status := range statuses {
		if status.Available {
			t.Fatalf("expected %s to be unavailable", status.Name)
		}
	}
}
