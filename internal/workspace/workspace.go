package workspace

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"captionsync/internal/logging"
)

// Workspace is a scratch directory scoped to one pipeline run.
type Workspace struct {
	Path             string
	CreatedByThisRun bool

	logger *slog.Logger
}

// Acquire ensures dir exists and reports whether this call created it.
func Acquire(dir string, logger *slog.Logger) (*Workspace, error) {
	dir = strings.TrimSpace(dir)
	if dir == "" {
		return nil, errors.New("workspace directory not configured")
	}
	abs, err := filepath.Abs(dir)
	if err != nil {
		return nil, fmt.Errorf("resolve workspace: %w", err)
	}
	if logger == nil {
		logger = logging.NewNop()
	}

	info, err := os.Stat(abs)
	switch {
	case err == nil:
		if !info.IsDir() {
			return nil, fmt.Errorf("workspace %s is not a directory", abs)
		}
		return &Workspace{Path: abs, logger: logger}, nil
	case !errors.Is(err, fs.ErrNotExist):
		return nil, fmt.Errorf("stat workspace: %w", err)
	}

	if err := os.Mkdir(abs, 0o755); err != nil {
		if errors.Is(err, fs.ErrExist) {
			// Lost a race with another process; the directory is not ours.
			return &Workspace{Path: abs, logger: logger}, nil
		}
		return nil, fmt.Errorf("create workspace: %w", err)
	}
	logger.Debug("created workspace",
		logging.String("path", abs),
		logging.String(logging.FieldEventType, "workspace_created"),
	)
	return &Workspace{Path: abs, CreatedByThisRun: true, logger: logger}, nil
}

// File returns the path of a scratch file inside the workspace.
func (w *Workspace) File(name string) string {
	return filepath.Join(w.Path, filepath.Base(name))
}

// Remove deletes a scratch file or directory inside the workspace. Missing
// entries are not an error.
func (w *Workspace) Remove(path string) error {
	if w == nil || strings.TrimSpace(path) == "" {
		return nil
	}
	if err := os.RemoveAll(path); err != nil {
		w.logger.Warn("failed to remove scratch file",
			logging.String("path", path),
			logging.Error(err),
			logging.String(logging.FieldEventType, "workspace_cleanup_failed"),
			logging.String(logging.FieldErrorHint, "check temp_dir permissions"),
			logging.String(logging.FieldImpact, "disk space not reclaimed"),
		)
		return fmt.Errorf("remove scratch file: %w", err)
	}
	return nil
}

// Release removes the workspace directory if this run created it.
func (w *Workspace) Release() error {
	if w == nil || !w.CreatedByThisRun {
		return nil
	}
	if err := os.RemoveAll(w.Path); err != nil {
		w.logger.Warn("failed to remove workspace",
			logging.String("path", w.Path),
			logging.Error(err),
			logging.String(logging.FieldEventType, "workspace_cleanup_failed"),
			logging.String(logging.FieldErrorHint, "check temp_dir permissions"),
			logging.String(logging.FieldImpact, "disk space not reclaimed"),
		)
		return fmt.Errorf("remove workspace: %w", err)
	}
	w.logger.Debug("removed workspace",
		logging.String("path", w.Path),
		logging.String(logging.FieldEventType, "workspace_removed"),
	)
	return nil
}
