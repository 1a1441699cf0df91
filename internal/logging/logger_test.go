package logging_test

import (
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"captionsync/internal/config"
	"captionsync/internal/logging"
	"captionsync/internal/services"
)

func TestNewFromConfigWritesLogFile(t *testing.T) {
	cfg := config.Default()
	cfg.Paths.StateDir = t.TempDir()

	logger, err := logging.NewFromConfig(&cfg)
	if err != nil {
		t.Fatalf("NewFromConfig returned error: %v", err)
	}
	logger.Info("hello file")

	content, err := os.ReadFile(cfg.LogPath())
	if err != nil {
		t.Fatalf("read log file: %v", err)
	}
	if !strings.Contains(string(content), "hello file") {
		t.Fatalf("expected message in log file, got %q", content)
	}
}

func TestConsoleLoggerFormatsComponentAndStage(t *testing.T) {
	logPath := filepath.Join(t.TempDir(), "console.log")
	logger, err := logging.New(logging.Options{Format: "console", Level: "info", OutputPaths: []string{logPath}})
	if err != nil {
		t.Fatalf("New returned error: %v", err)
	}

	ctx := services.WithStage(context.Background(), "ingest")
	ctx = services.WithRequestID(ctx, "run-1")
	logging.WithContext(ctx, logging.NewComponentLogger(logger, "pipeline")).
		Info("asset processed", logging.String(logging.FieldAsset, "/a b/c.mp4"))

	content, err := os.ReadFile(logPath)
	if err != nil {
		t.Fatalf("read log file: %v", err)
	}
	line := string(content)
	if !strings.Contains(line, "INFO pipeline [ingest]: asset processed") {
		t.Fatalf("unexpected console line: %q", line)
	}
	if !strings.Contains(line, `asset="/a b/c.mp4"`) {
		t.Fatalf("expected quoted asset value, got %q", line)
	}
	if !strings.Contains(line, "correlation_id=run-1") {
		t.Fatalf("expected correlation id, got %q", line)
	}
	if strings.Contains(line, ".go:") {
		t.Fatalf("expected no caller information in info logs, got %q", line)
	}
}

func TestJSONLoggerUsesLowercaseLevel(t *testing.T) {
	logPath := filepath.Join(t.TempDir(), "json.log")
	logger, err := logging.New(logging.Options{Format: "json", Level: "debug", OutputPaths: []string{logPath}})
	if err != nil {
		t.Fatalf("New returned error: %v", err)
	}
	logging.WarnWithContext(logger, "normalization failed", "normalize_failed", logging.Error(errors.New("boom")))

	content, err := os.ReadFile(logPath)
	if err != nil {
		t.Fatalf("read log file: %v", err)
	}
	var payload map[string]any
	if err := json.Unmarshal([]byte(strings.TrimSpace(string(content))), &payload); err != nil {
		t.Fatalf("decode json log: %v (%q)", err, content)
	}
	if payload["level"] != "warn" {
		t.Fatalf("expected lowercase level, got %v", payload["level"])
	}
	if payload[logging.FieldEventType] != "normalize_failed" {
		t.Fatalf("expected event_type, got %v", payload[logging.FieldEventType])
	}
	if payload[logging.FieldImpact] == nil || payload[logging.FieldErrorHint] == nil {
		t.Fatalf("expected default impact and error_hint, got %v", payload)
	}
	if _, ok := payload["ts"]; !ok {
		t.Fatalf("expected ts key, got %v", payload)
	}
}

func TestNewRejectsUnknownFormat(t *testing.T) {
	if _, err := logging.New(logging.Options{Format: "xml"}); err == nil {
		t.Fatal("expected error for unsupported format")
	}
}

func TestNopLoggerDiscards(t *testing.T) {
	logger := logging.NewNop()
	if logger.Enabled(context.Background(), 12) {
		t.Fatal("expected nop logger to be disabled")
	}
	logging.ErrorWithContext(nil, "ignored", "noop")
}

func TestWarnWithContextKeepsCallerFields(t *testing.T) {
	logPath := filepath.Join(t.TempDir(), "warn.log")
	logger, err := logging.New(logging.Options{Format: "json", Level: "info", OutputPaths: []string{logPath}})
	if err != nil {
		t.Fatalf("New returned error: %v", err)
	}
	logging.WarnWithContext(logger, "asset failed", "asset_failed",
		logging.String(logging.FieldErrorHint, "grant read access"),
		logging.String(logging.FieldImpact, "no caption artifact"),
	)

	content, err := os.ReadFile(logPath)
	if err != nil {
		t.Fatalf("read log file: %v", err)
	}
	line := strings.TrimSpace(string(content))
	if strings.Count(line, `"error_hint"`) != 1 || strings.Count(line, `"impact"`) != 1 {
		t.Fatalf("expected a single hint and impact field, got %q", line)
	}
	var payload map[string]any
	if err := json.Unmarshal([]byte(line), &payload); err != nil {
		t.Fatalf("decode json log: %v (%q)", err, line)
	}
	if payload[logging.FieldErrorHint] != "grant read access" || payload[logging.FieldImpact] != "no caption artifact" {
		t.Fatalf("caller fields overwritten: %v", payload)
	}
	if payload[logging.FieldEventType] != "asset_failed" {
		t.Fatalf("expected event_type default, got %v", payload[logging.FieldEventType])
	}
}
