package ledger_test

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"captionsync/internal/ledger"
	"captionsync/internal/testsupport"
)

func TestRunLifecycle(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenLedger(t, cfg)
	ctx := context.Background()

	if err := store.BeginRun(ctx, ledger.Run{ID: "run-1", Language: "en", Roots: []string{"/media"}}); err != nil {
		t.Fatalf("BeginRun: %v", err)
	}
	records := []ledger.AssetRecord{
		{RunID: "run-1", Path: "/media/a.mp3", ArtifactPath: "/media/a.json", Status: ledger.AssetProcessed, Tokens: 12, Captions: 3, Duration: 1500 * time.Millisecond},
		{RunID: "run-1", Path: "/media/b.wav", ArtifactPath: "/media/b.json", Status: ledger.AssetSkipped},
		{RunID: "run-1", Path: "/media/c.mp4", Status: ledger.AssetFailed, Stage: "normalize", ErrorKind: "external_tool", Error: "ffmpeg exploded"},
	}
	for _, rec := range records {
		if err := store.RecordAsset(ctx, rec); err != nil {
			t.Fatalf("RecordAsset: %v", err)
		}
	}
	summary := ledger.Summary{Processed: 1, Skipped: 1, Failed: 1}
	if err := store.FinishRun(ctx, "run-1", ledger.RunFailed, summary, errors.New("1 asset failed")); err != nil {
		t.Fatalf("FinishRun: %v", err)
	}

	run, err := store.Run(ctx, "run-1")
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if run.Status != ledger.RunFailed || run.Total() != 3 || run.FinishedAt == nil {
		t.Fatalf("unexpected run: %+v", run)
	}
	if len(run.Roots) != 1 || run.Roots[0] != "/media" || run.Language != "en" || run.Error != "1 asset failed" {
		t.Fatalf("unexpected run metadata: %+v", run)
	}

	got, err := store.Assets(ctx, "run-1")
	if err != nil {
		t.Fatalf("Assets: %v", err)
	}
	if len(got) != 3 {
		t.Fatalf("expected 3 records, got %d", len(got))
	}
	if got[0].Duration != 1500*time.Millisecond || got[0].Captions != 3 {
		t.Fatalf("unexpected processed record: %+v", got[0])
	}
	if got[2].Stage != "normalize" || got[2].ErrorKind != "external_tool" || got[2].ArtifactPath != "" {
		t.Fatalf("unexpected failed record: %+v", got[2])
	}
}

func TestRunsNewestFirstWithLimit(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenLedger(t, cfg)
	ctx := context.Background()

	base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	for i, id := range []string{"old", "mid", "new"} {
		started := base.Add(time.Duration(i) * 100 * time.Millisecond)
		if err := store.BeginRun(ctx, ledger.Run{ID: id, StartedAt: started}); err != nil {
			t.Fatalf("BeginRun %s: %v", id, err)
		}
	}

	runs, err := store.Runs(ctx, 2)
	if err != nil {
		t.Fatalf("Runs: %v", err)
	}
	if len(runs) != 2 || runs[0].ID != "new" || runs[1].ID != "mid" {
		t.Fatalf("unexpected order: %+v", runs)
	}
	if runs[0].Status != ledger.RunRunning || runs[0].FinishedAt != nil {
		t.Fatalf("expected unfinished run, got %+v", runs[0])
	}

	all, err := store.Runs(ctx, 0)
	if err != nil || len(all) != 3 {
		t.Fatalf("expected all runs, got %d (%v)", len(all), err)
	}
}

func TestFinishUnknownRun(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenLedger(t, cfg)

	err := store.FinishRun(context.Background(), "missing", ledger.RunCompleted, ledger.Summary{}, nil)
	if !errors.Is(err, ledger.ErrRunNotFound) {
		t.Fatalf("expected ErrRunNotFound, got %v", err)
	}
	if _, err := store.Run(context.Background(), "missing"); !errors.Is(err, ledger.ErrRunNotFound) {
		t.Fatalf("expected ErrRunNotFound, got %v", err)
	}
}

func TestReopenKeepsHistory(t *testing.T) {
	path := filepath.Join(t.TempDir(), "state", "ledger.db")
	first, err := ledger.Open(path)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	if err := first.BeginRun(context.Background(), ledger.Run{ID: "persisted"}); err != nil {
		t.Fatal(err)
	}
	if err := first.Close(); err != nil {
		t.Fatal(err)
	}

	second, err := ledger.Open(path)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	defer second.Close()
	if _, err := second.Run(context.Background(), "persisted"); err != nil {
		t.Fatalf("expected persisted run: %v", err)
	}
}

func TestBeginRunRequiresID(t *testing.T) {
	store := testsupport.MustOpenLedger(t, testsupport.NewConfig(t))
	if err := store.BeginRun(context.Background(), ledger.Run{}); err == nil {
		t.Fatal("expected error for empty run id")
	}
}
