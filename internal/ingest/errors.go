package ingest

import (
	"errors"
	"fmt"
)

// Stages reported on per-asset failures.
const (
	StageScan       = "scan"
	StageClaim      = "claim"
	StageNormalize  = "normalize"
	StageTranscribe = "transcribe"
	StageMerge      = "merge"
	StageWrite      = "write"
)

// ErrAssetsFailed is returned when a run completed but some assets failed.
var ErrAssetsFailed = errors.New("one or more assets failed")

// AssetError is a failure isolated to one asset or scanned subtree.
type AssetError struct {
	Path  string
	Stage string
	Err   error
}

func (e *AssetError) Error() string {
	return fmt.Sprintf("%s %s: %v", e.Stage, e.Path, e.Err)
}

func (e *AssetError) Unwrap() error { return e.Err }

// FatalError aborts the whole run.
type FatalError struct {
	Path string
	Err  error
}

func (e *FatalError) Error() string {
	return fmt.Sprintf("write artifact %s: %v", e.Path, e.Err)
}

func (e *FatalError) Unwrap() error { return e.Err }
