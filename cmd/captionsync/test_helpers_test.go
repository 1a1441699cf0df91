package main

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"captionsync/internal/config"
	"captionsync/internal/testsupport"
)

// fakeWhisperX writes a two-word WhisperX payload into --output_dir, named
// after the waveform passed to the whisperx subcommand.
const fakeWhisperX = `#!/bin/sh
wav=""
out=""
while [ $# -gt 0 ]; do
  case "$1" in
    whisperx) wav="$2"; shift ;;
    --output_dir) out="$2"; shift ;;
  esac
  shift
done
base=$(basename "$wav" .wav)
printf '%s' '{"language":"en","segments":[{"text":"Hello world","start":0,"end":1,"words":[{"word":"Hello","start":0.0,"end":0.4,"score":0.9},{"word":"world","start":0.9,"end":1.0,"score":0.8}]}]}' > "$out/$base.json"
`

// fakeFFprobe reports a two second audio stream for any input.
const fakeFFprobe = `#!/bin/sh
printf '%s\n' '{"streams":[{"index":0,"codec_type":"audio","duration":"2.000000"}],"format":{"duration":"2.000000"}}'
`

type cliTestEnv struct {
	cfg        *config.Config
	configPath string
	binDir     string
}

type envOption func(*testing.T, *cliTestEnv)

// withWorkingWhisperX replaces the uvx stub with one that produces output.
func withWorkingWhisperX() envOption {
	return func(t *testing.T, env *cliTestEnv) {
		writeScript(t, env.binDir, "uvx", fakeWhisperX)
	}
}

func setupCLITestEnv(t *testing.T, opts ...envOption) *cliTestEnv {
	t.Helper()

	cfg := testsupport.NewConfig(t, testsupport.WithStubbedBinaries())
	base := testsupport.BaseDir(cfg)
	homeDir := filepath.Join(base, "home")
	if err := os.MkdirAll(homeDir, 0o755); err != nil {
		t.Fatalf("mkdir home: %v", err)
	}
	t.Setenv("HOME", homeDir)
	if err := os.MkdirAll(cfg.Paths.AssetsDir, 0o755); err != nil {
		t.Fatalf("mkdir assets: %v", err)
	}

	env := &cliTestEnv{
		cfg:        cfg,
		configPath: filepath.Join(homeDir, ".config", "captionsync", "config.toml"),
		binDir:     filepath.Join(base, "bin"),
	}
	writeScript(t, env.binDir, "ffprobe", fakeFFprobe)
	for _, opt := range opts {
		opt(t, env)
	}
	writeTestConfig(t, env.configPath, cfg)
	return env
}

func writeScript(t *testing.T, dir, name, body string) {
	t.Helper()
	if err := os.WriteFile(filepath.Join(dir, name), []byte(body), 0o755); err != nil {
		t.Fatalf("write script %s: %v", name, err)
	}
}

func writeTestConfig(t *testing.T, path string, cfg *config.Config) {
	t.Helper()
	content := fmt.Sprintf(
		"[paths]\nassets_dir = %q\ntemp_dir = %q\nstate_dir = %q\n\n[watch]\ndebounce_ms = %d\n\n[logging]\nlevel = \"error\"\n",
		cfg.Paths.AssetsDir,
		cfg.Paths.TempDir,
		cfg.Paths.StateDir,
		cfg.Watch.DebounceMS,
	)
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatalf("mkdir config dir: %v", err)
	}
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
}

func runCLI(t *testing.T, args []string, configPath string) (string, string, error) {
	t.Helper()
	var stdout, stderr bytes.Buffer
	err := runCLIContext(context.Background(), args, configPath, &stdout, &stderr)
	return stdout.String(), stderr.String(), err
}

func runCLIContext(ctx context.Context, args []string, configPath string, stdout, stderr io.Writer) error {
	cmd := newRootCommand()
	cmd.SetOut(stdout)
	cmd.SetErr(stderr)
	var flags []string
	if configPath != "" {
		flags = append(flags, "--config", configPath)
	}
	cmd.SetArgs(append(flags, args...))
	return cmd.ExecuteContext(ctx)
}

// syncBuffer is a bytes.Buffer safe for the watch callback goroutine.
type syncBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *syncBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *syncBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}

func waitFor(t *testing.T, duration time.Duration, fn func() bool) {
	t.Helper()
	deadline := time.Now().Add(duration)
	for time.Now().Before(deadline) {
		if fn() {
			return
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatalf("condition not met within %s", duration)
}

func requireContains(t *testing.T, output, substr string) {
	t.Helper()
	if !strings.Contains(output, substr) {
		t.Fatalf("expected %q to contain %q", output, substr)
	}
}
