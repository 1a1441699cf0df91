package scan

import (
	"errors"
	"fmt"
	"io/fs"
	"iter"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"captionsync/internal/artifact"
)

// IgnoredName is OS metadata that is never treated as an asset.
const IgnoredName = ".DS_Store"

// Kind classifies an asset.
type Kind string

const (
	KindAudio Kind = "audio"
	KindVideo Kind = "video"
)

var supported = map[string]Kind{
	".mp4":  KindVideo,
	".webm": KindVideo,
	".mkv":  KindVideo,
	".mov":  KindVideo,
	".mp3":  KindAudio,
	".wav":  KindAudio,
}

// SupportedExtensions lists the accepted extensions in sorted order.
func SupportedExtensions() []string {
	exts := make([]string, 0, len(supported))
	for ext := range supported {
		exts = append(exts, ext)
	}
	slices.Sort(exts)
	return exts
}

// Classify returns the asset kind for path and whether it is supported.
func Classify(path string) (Kind, bool) {
	kind, ok := supported[strings.ToLower(filepath.Ext(path))]
	return kind, ok
}

// Asset is a candidate media file.
type Asset struct {
	Path         string
	Ext          string
	Kind         Kind
	ArtifactPath string
	Transcribed  bool
}

// DirError reports a subtree that could not be listed.
type DirError struct {
	Path string
	Err  error
}

func (e *DirError) Error() string {
	return fmt.Sprintf("scan %s: %v", e.Path, e.Err)
}

func (e *DirError) Unwrap() error { return e.Err }

// Inspect builds an Asset for a single file. ok is false when the file has an
// unsupported extension or is ignored.
func Inspect(path string) (Asset, bool, error) {
	if filepath.Base(path) == IgnoredName {
		return Asset{}, false, nil
	}
	kind, ok := Classify(path)
	if !ok {
		return Asset{}, false, nil
	}
	out := artifact.PathFor(path)
	info, err := os.Stat(out)
	transcribed := err == nil && !info.IsDir()
	if err != nil && !errors.Is(err, fs.ErrNotExist) {
		return Asset{}, false, fmt.Errorf("stat artifact %s: %w", out, err)
	}
	return Asset{
		Path:         path,
		Ext:          strings.ToLower(filepath.Ext(path)),
		Kind:         kind,
		ArtifactPath: out,
		Transcribed:  transcribed,
	}, true, nil
}

type node struct {
	path  string
	isDir bool
}

// Walk yields supported assets under root in depth-first pre-order, matching
// directory-listing order. Symbolic links are treated as files and never
// followed. A directory that cannot be read yields a *DirError and traversal
// continues with its siblings. Iteration stops as soon as the consumer stops.
func Walk(root string) iter.Seq2[Asset, error] {
	return func(yield func(Asset, error) bool) {
		stack := []node{{path: root, isDir: true}}
		for len(stack) > 0 {
			n := stack[len(stack)-1]
			stack = stack[:len(stack)-1]

			if !n.isDir {
				asset, ok, err := Inspect(n.path)
				if err != nil {
					if !yield(Asset{}, err) {
						return
					}
					continue
				}
				if ok && !yield(asset, nil) {
					return
				}
				continue
			}

			entries, err := os.ReadDir(n.path)
			if err != nil {
				if !yield(Asset{}, &DirError{Path: n.path, Err: err}) {
					return
				}
				continue
			}
			// Push in reverse so the first listed entry is popped first.
			for _, entry := range slices.Backward(entries) {
				if entry.Name() == IgnoredName {
					continue
				}
				stack = append(stack, node{
					path:  filepath.Join(n.path, entry.Name()),
					isDir: entry.IsDir(),
				})
			}
		}
	}
}
