package artifact

import (
	"net/url"
	"path"
	"path/filepath"
	"strings"

	"captionsync/internal/captions"
)

// Extension is the suffix that replaces a source asset's extension.
const Extension = ".json"

// Artifact is the persisted transcription of one source asset.
type Artifact struct {
	Transcription     []captions.Caption `json:"transcription"`
	FullTranscription string             `json:"fullTranscription"`
	Language          string             `json:"language,omitempty"`
	Model             string             `json:"model,omitempty"`
	RawTokens         []captions.Token   `json:"rawTokens"`
}

// PathFor returns the artifact path for a source asset: same directory and
// base name, extension replaced.
func PathFor(assetPath string) string {
	ext := filepath.Ext(assetPath)
	return strings.TrimSuffix(assetPath, ext) + Extension
}

// RefFor derives the artifact reference for an audio reference that may be a
// local path or a URL. Query strings and fragments are preserved.
func RefFor(audioRef string) string {
	u, err := url.Parse(audioRef)
	if err != nil || u.Scheme == "" || len(u.Scheme) == 1 {
		return PathFor(audioRef)
	}
	ext := path.Ext(u.Path)
	u.Path = strings.TrimSuffix(u.Path, ext) + Extension
	u.RawPath = ""
	return u.String()
}
