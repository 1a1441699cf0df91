package artifact

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"time"

	"github.com/gofrs/flock"

	"captionsync/internal/captions"
)

// ErrNotFound reports that no artifact exists at the requested path.
var ErrNotFound = errors.New("caption artifact not found")

const claimRetryDelay = 100 * time.Millisecond

// Store reads and writes caption artifacts.
type Store struct {
	lockDir string
}

// NewStore returns a store that keeps write locks under lockDir.
func NewStore(lockDir string) *Store {
	return &Store{lockDir: lockDir}
}

// Exists reports whether an artifact is present at path.
func (s *Store) Exists(path string) (bool, error) {
	info, err := os.Stat(path)
	if err == nil {
		return !info.IsDir(), nil
	}
	if errors.Is(err, fs.ErrNotExist) {
		return false, nil
	}
	return false, fmt.Errorf("stat artifact: %w", err)
}

// Read decodes the artifact at path. A missing file yields ErrNotFound.
func (s *Store) Read(path string) (*Artifact, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s", ErrNotFound, path)
		}
		return nil, fmt.Errorf("read artifact: %w", err)
	}
	return Decode(data)
}

// Decode parses artifact JSON. Unknown fields are ignored.
func Decode(data []byte) (*Artifact, error) {
	var a Artifact
	if err := json.Unmarshal(data, &a); err != nil {
		return nil, fmt.Errorf("parse artifact json: %w", err)
	}
	return &a, nil
}

// Encode serializes an artifact with stable key order and two-space indents.
func Encode(a *Artifact) ([]byte, error) {
	if a == nil {
		return nil, errors.New("encode artifact: nil artifact")
	}
	normalized := *a
	if normalized.Transcription == nil {
		normalized.Transcription = []captions.Caption{}
	}
	if normalized.RawTokens == nil {
		normalized.RawTokens = []captions.Token{}
	}
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	if err := enc.Encode(&normalized); err != nil {
		return nil, fmt.Errorf("encode artifact: %w", err)
	}
	return buf.Bytes(), nil
}

// Write atomically replaces the artifact at path.
func (s *Store) Write(path string, a *Artifact) error {
	data, err := Encode(a)
	if err != nil {
		return err
	}
	return writeFileAtomic(path, data, 0o644)
}

func writeFileAtomic(path string, data []byte, mode os.FileMode) (err error) {
	dir := filepath.Dir(path)
	tmp, err := os.CreateTemp(dir, "."+filepath.Base(path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("create temp artifact: %w", err)
	}
	tmpName := tmp.Name()
	defer func() {
		if err != nil {
			_ = tmp.Close()
			_ = os.Remove(tmpName)
		}
	}()

	if _, err = tmp.Write(data); err != nil {
		return fmt.Errorf("write temp artifact: %w", err)
	}
	if err = tmp.Sync(); err != nil {
		return fmt.Errorf("sync temp artifact: %w", err)
	}
	if err = tmp.Close(); err != nil {
		return fmt.Errorf("close temp artifact: %w", err)
	}
	if err = os.Chmod(tmpName, mode); err != nil {
		return fmt.Errorf("chmod temp artifact: %w", err)
	}
	if err = os.Rename(tmpName, path); err != nil {
		return fmt.Errorf("publish artifact: %w", err)
	}
	return nil
}

// Claim is an exclusive right to produce the artifact at Path.
type Claim struct {
	Path string
	// Done is true when the artifact already existed once the lock was held;
	// the holder should skip the asset.
	Done bool
	lock *flock.Flock
}

// Release drops the write lock. Safe to call more than once.
func (c *Claim) Release() error {
	if c == nil || c.lock == nil {
		return nil
	}
	err := c.lock.Unlock()
	c.lock = nil
	return err
}

// Claim acquires the cross-process write lock for an artifact path, waiting
// for other holders until ctx is done, then re-checks existence.
func (s *Store) Claim(ctx context.Context, path string) (*Claim, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("resolve artifact path: %w", err)
	}
	if err := os.MkdirAll(s.lockDir, 0o755); err != nil {
		return nil, fmt.Errorf("ensure lock dir: %w", err)
	}
	sum := sha256.Sum256([]byte(abs))
	lock := flock.New(filepath.Join(s.lockDir, hex.EncodeToString(sum[:16])+".lock"))

	ok, err := lock.TryLockContext(ctx, claimRetryDelay)
	if err != nil {
		return nil, fmt.Errorf("lock artifact %s: %w", abs, err)
	}
	if !ok {
		return nil, fmt.Errorf("lock artifact %s: not acquired", abs)
	}

	exists, err := s.Exists(abs)
	if err != nil {
		_ = lock.Unlock()
		return nil, err
	}
	return &Claim{Path: abs, Done: exists, lock: lock}, nil
}
