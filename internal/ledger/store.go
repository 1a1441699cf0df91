package ledger

import (
	"context"
	"database/sql"
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	_ "modernc.org/sqlite"
)

//go:embed schema.sql
var schemaSQL string

// schemaVersion is bumped whenever schema.sql changes incompatibly.
const schemaVersion = 1

// ErrSchemaMismatch indicates the database was written by an incompatible version.
var ErrSchemaMismatch = errors.New("ledger schema version mismatch")

// ErrRunNotFound reports an unknown run id.
var ErrRunNotFound = errors.New("run not found")

const (
	sqliteBusyCode          = 5
	busyRetryAttempts       = 5
	busyRetryInitialBackoff = 10 * time.Millisecond
	busyRetryMaxBackoff     = 200 * time.Millisecond
)

// Store persists run history in SQLite.
type Store struct {
	db   *sql.DB
	path string
}

// Open initializes or connects to the ledger database at path.
func Open(path string) (*Store, error) {
	if strings.TrimSpace(path) == "" {
		return nil, errors.New("ledger path not configured")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("ensure ledger dir: %w", err)
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}

	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA foreign_keys = ON",
		"PRAGMA busy_timeout = 5000",
	}
	for _, pragma := range pragmas {
		if _, execErr := db.Exec(pragma); execErr != nil {
			_ = db.Close()
			return nil, fmt.Errorf("apply pragma %q: %w", pragma, execErr)
		}
	}

	store := &Store{db: db, path: path}
	if err := store.initSchema(context.Background()); err != nil {
		_ = db.Close()
		return nil, err
	}
	return store, nil
}

// Path returns the database file location.
func (s *Store) Path() string {
	return s.path
}

// Close closes the underlying database connection.
func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

func (s *Store) initSchema(ctx context.Context) error {
	var tableExists int
	err := s.db.QueryRowContext(ctx,
		"SELECT COUNT(1) FROM sqlite_master WHERE type='table' AND name='schema_version'",
	).Scan(&tableExists)
	if err != nil {
		return fmt.Errorf("check schema_version table: %w", err)
	}
	if tableExists == 0 {
		return s.createSchema(ctx)
	}

	var version int
	if err := s.db.QueryRowContext(ctx, "SELECT version FROM schema_version LIMIT 1").Scan(&version); err != nil {
		return fmt.Errorf("read schema version: %w", err)
	}
	if version != schemaVersion {
		return fmt.Errorf("%w: database has version %d, expected %d (delete %s to reset history)",
			ErrSchemaMismatch, version, schemaVersion, s.path)
	}
	return nil
}

func (s *Store) createSchema(ctx context.Context) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin schema tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx, schemaSQL); err != nil {
		return fmt.Errorf("create schema: %w", err)
	}
	if _, err := tx.ExecContext(ctx, "INSERT INTO schema_version (version) VALUES (?)", schemaVersion); err != nil {
		return fmt.Errorf("record schema version: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit schema: %w", err)
	}
	return nil
}

func isSQLiteBusy(err error) bool {
	if err == nil {
		return false
	}
	var coder interface{ Code() int }
	if errors.As(err, &coder) && coder.Code()&0xff == sqliteBusyCode {
		return true
	}
	msg := err.Error()
	return strings.Contains(msg, "SQLITE_BUSY") || strings.Contains(msg, "database is locked")
}

func retryOnBusy(ctx context.Context, op func() error) error {
	delay := busyRetryInitialBackoff
	var lastErr error
	for attempt := range busyRetryAttempts {
		lastErr = op()
		if lastErr == nil {
			return nil
		}
		if !isSQLiteBusy(lastErr) || attempt == busyRetryAttempts-1 {
			break
		}
		select {
		case <-time.After(delay):
		case <-ctx.Done():
			return ctx.Err()
		}
		delay = min(delay*2, busyRetryMaxBackoff)
	}
	return lastErr
}

func (s *Store) exec(ctx context.Context, query string, args ...any) (sql.Result, error) {
	var (
		res     sql.Result
		execErr error
	)
	if err := retryOnBusy(ctx, func() error {
		res, execErr = s.db.ExecContext(ctx, query, args...)
		return execErr
	}); err != nil {
		return nil, err
	}
	return res, nil
}

// BeginRun inserts a new run in the running state.
func (s *Store) BeginRun(ctx context.Context, run Run) error {
	if strings.TrimSpace(run.ID) == "" {
		return errors.New("begin run: id required")
	}
	if run.StartedAt.IsZero() {
		run.StartedAt = time.Now()
	}
	roots, err := json.Marshal(run.Roots)
	if err != nil {
		return fmt.Errorf("marshal roots: %w", err)
	}
	_, err = s.exec(ctx,
		`INSERT INTO runs (id, started_at, status, language, roots_json) VALUES (?, ?, ?, ?, ?)`,
		run.ID,
		formatTime(run.StartedAt),
		RunRunning,
		nullableString(run.Language),
		string(roots),
	)
	if err != nil {
		return fmt.Errorf("insert run: %w", err)
	}
	return nil
}

// RecordAsset appends an asset outcome to a run.
func (s *Store) RecordAsset(ctx context.Context, rec AssetRecord) error {
	if rec.RecordedAt.IsZero() {
		rec.RecordedAt = time.Now()
	}
	_, err := s.exec(ctx,
		`INSERT INTO assets (
            run_id, path, artifact_path, status, stage, error_kind, error,
            tokens, captions, duration_ms, recorded_at
        ) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		rec.RunID,
		rec.Path,
		nullableString(rec.ArtifactPath),
		rec.Status,
		nullableString(rec.Stage),
		nullableString(rec.ErrorKind),
		nullableString(rec.Error),
		rec.Tokens,
		rec.Captions,
		rec.Duration.Milliseconds(),
		formatTime(rec.RecordedAt),
	)
	if err != nil {
		return fmt.Errorf("insert asset record: %w", err)
	}
	return nil
}

// FinishRun stores the final status and counts for a run.
func (s *Store) FinishRun(ctx context.Context, runID string, status RunStatus, summary Summary, runErr error) error {
	var errText string
	if runErr != nil {
		errText = runErr.Error()
	}
	res, err := s.exec(ctx,
		`UPDATE runs SET finished_at = ?, status = ?, processed = ?, skipped = ?, failed = ?, error = ?
         WHERE id = ?`,
		formatTime(time.Now()),
		status,
		summary.Processed,
		summary.Skipped,
		summary.Failed,
		nullableString(errText),
		runID,
	)
	if err != nil {
		return fmt.Errorf("finish run: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return fmt.Errorf("%w: %s", ErrRunNotFound, runID)
	}
	return nil
}

const runColumns = "id, started_at, finished_at, status, language, roots_json, processed, skipped, failed, error"

// Runs returns the most recent runs, newest first. limit <= 0 returns all.
func (s *Store) Runs(ctx context.Context, limit int) ([]Run, error) {
	query := `SELECT ` + runColumns + ` FROM runs ORDER BY started_at DESC, rowid DESC`
	args := []any{}
	if limit > 0 {
		query += ` LIMIT ?`
		args = append(args, limit)
	}
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list runs: %w", err)
	}
	defer rows.Close()

	var runs []Run
	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			return nil, err
		}
		runs = append(runs, run)
	}
	return runs, rows.Err()
}

// Run fetches a single run by id.
func (s *Store) Run(ctx context.Context, runID string) (Run, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+runColumns+` FROM runs WHERE id = ?`, runID)
	run, err := scanRun(row)
	if errors.Is(err, sql.ErrNoRows) {
		return Run{}, fmt.Errorf("%w: %s", ErrRunNotFound, runID)
	}
	if err != nil {
		return Run{}, fmt.Errorf("get run: %w", err)
	}
	return run, nil
}

// Assets returns the asset records of a run in the order they were recorded.
func (s *Store) Assets(ctx context.Context, runID string) ([]AssetRecord, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT run_id, path, artifact_path, status, stage, error_kind, error,
                tokens, captions, duration_ms, recorded_at
         FROM assets WHERE run_id = ? ORDER BY id`,
		runID,
	)
	if err != nil {
		return nil, fmt.Errorf("list assets: %w", err)
	}
	defer rows.Close()

	var records []AssetRecord
	for rows.Next() {
		var (
			rec          AssetRecord
			artifactPath sql.NullString
			stage        sql.NullString
			errorKind    sql.NullString
			errorText    sql.NullString
			status       string
			durationMS   int64
			recordedRaw  string
		)
		if err := rows.Scan(&rec.RunID, &rec.Path, &artifactPath, &status, &stage, &errorKind, &errorText,
			&rec.Tokens, &rec.Captions, &durationMS, &recordedRaw); err != nil {
			return nil, fmt.Errorf("scan asset: %w", err)
		}
		rec.ArtifactPath = artifactPath.String
		rec.Status = AssetStatus(status)
		rec.Stage = stage.String
		rec.ErrorKind = errorKind.String
		rec.Error = errorText.String
		rec.Duration = time.Duration(durationMS) * time.Millisecond
		if ts, err := parseTime(recordedRaw); err == nil {
			rec.RecordedAt = ts
		}
		records = append(records, rec)
	}
	return records, rows.Err()
}

func scanRun(scanner interface{ Scan(dest ...any) error }) (Run, error) {
	var (
		run         Run
		startedRaw  string
		finishedRaw sql.NullString
		status      string
		language    sql.NullString
		rootsRaw    sql.NullString
		errorText   sql.NullString
	)
	if err := scanner.Scan(&run.ID, &startedRaw, &finishedRaw, &status, &language, &rootsRaw,
		&run.Processed, &run.Skipped, &run.Failed, &errorText); err != nil {
		return Run{}, err
	}
	run.Status = RunStatus(status)
	run.Language = language.String
	run.Error = errorText.String
	if ts, err := parseTime(startedRaw); err == nil {
		run.StartedAt = ts
	}
	if finishedRaw.Valid {
		if ts, err := parseTime(finishedRaw.String); err == nil {
			run.FinishedAt = &ts
		}
	}
	if rootsRaw.Valid && rootsRaw.String != "" {
		if err := json.Unmarshal([]byte(rootsRaw.String), &run.Roots); err != nil {
			return Run{}, fmt.Errorf("decode run roots: %w", err)
		}
	}
	return run, nil
}

func nullableString(value string) any {
	if value == "" {
		return nil
	}
	return value
}

// timeLayout is fixed width so stored timestamps sort lexically.
const timeLayout = "2006-01-02T15:04:05.000000000Z07:00"

func formatTime(t time.Time) string {
	return t.UTC().Format(timeLayout)
}

func parseTime(value string) (time.Time, error) {
	if value == "" {
		return time.Time{}, errors.New("empty")
	}
	return time.Parse(time.RFC3339Nano, value)
}
