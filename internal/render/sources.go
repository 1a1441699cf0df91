package render

import (
	"errors"
	"path/filepath"

	"captionsync/internal/scan"
)

// Source is a selectable audio track.
type Source struct {
	Path         string
	Name         string
	ArtifactPath string
	HasCaptions  bool
}

// AudioSources lists the audio tracks under root in scan order. Unreadable
// subdirectories are reported in the joined error alongside the tracks that
// could be listed.
func AudioSources(root string) ([]Source, error) {
	var (
		sources []Source
		errs    []error
	)
	for asset, err := range scan.Walk(root) {
		if err != nil {
			errs = append(errs, err)
			continue
		}
		if asset.Kind != scan.KindAudio {
			continue
		}
		name, relErr := filepath.Rel(root, asset.Path)
		if relErr != nil {
			name = filepath.Base(asset.Path)
		}
		sources = append(sources, Source{
			Path:         asset.Path,
			Name:         filepath.ToSlash(name),
			ArtifactPath: asset.ArtifactPath,
			HasCaptions:  asset.Transcribed,
		})
	}
	return sources, errors.Join(errs...)
}
