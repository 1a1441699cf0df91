package preflight

import (
	"captionsync/internal/config"
)

// Result reports the outcome of a single preflight check.
type Result struct {
	Name   string
	Passed bool
	Detail string
}

// Check names reported by RunAll.
const (
	NameAssetsDir = "Assets directory"
	NameStateDir  = "State directory"
	NameScratch   = "Scratch space"
	NameModelDir  = "Model directory"
)

// RunAll executes the filesystem checks for the given config. Binary
// availability is reported separately by CheckSystemDeps.
func RunAll(cfg *config.Config) []Result {
	if cfg == nil {
		return nil
	}

	results := []Result{
		CheckDirectoryAccess(NameAssetsDir, cfg.Paths.AssetsDir),
		CheckDirectoryAccess(NameStateDir, cfg.Paths.StateDir),
		CheckFreeSpace(NameScratch, cfg.Paths.TempDir, MinScratchBytes),
	}

	// Model directory (when configured)
	if cfg.Transcription.ModelDir != "" {
		results = append(results, CheckDirectoryAccess(NameModelDir, cfg.Transcription.ModelDir))
	}
	return results
}

// Failed returns the results that did not pass.
func Failed(results []Result) []Result {
	var failed []Result
	for _, r := range results {
		if !r.Passed {
			failed = append(failed, r)
		}
	}
	return failed
}
