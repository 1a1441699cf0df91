package render

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"captionsync/internal/artifact"
	"captionsync/internal/services"
)

// ArtifactSource loads a caption artifact by reference. A missing artifact
// must be reported as artifact.ErrNotFound.
type ArtifactSource interface {
	Load(ctx context.Context, ref string) (*artifact.Artifact, error)
}

// DurationResolver reports the playable duration of an audio reference.
type DurationResolver interface {
	Duration(ctx context.Context, ref string) (float64, error)
}

// ArtifactPathFor derives the caption artifact reference from an audio
// reference, which may be a local path or a URL.
func ArtifactPathFor(audioRef string) string {
	return artifact.RefFor(audioRef)
}

const maxArtifactBytes = 64 << 20

// Loader reads artifacts from the local filesystem or over HTTP.
type Loader struct {
	store  *artifact.Store
	client *http.Client
}

// NewLoader returns a loader backed by store for local paths.
func NewLoader(store *artifact.Store) *Loader {
	return &Loader{
		store:  store,
		client: &http.Client{Timeout: 30 * time.Second},
	}
}

// Load implements ArtifactSource.
func (l *Loader) Load(ctx context.Context, ref string) (*artifact.Artifact, error) {
	if isHTTP(ref) {
		return l.fetch(ctx, ref)
	}
	return l.store.Read(ref)
}

func (l *Loader) fetch(ctx context.Context, ref string) (*artifact.Artifact, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, ref, nil)
	if err != nil {
		return nil, fmt.Errorf("build artifact request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	resp, err := l.client.Do(req)
	if err != nil {
		return nil, services.Wrap(services.ErrTransient, services.StageRender, "fetch artifact", ref, err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusNotFound:
		return nil, services.Wrap(services.ErrNotFound, services.StageRender, "fetch artifact", ref, artifact.ErrNotFound)
	case resp.StatusCode >= http.StatusInternalServerError:
		return nil, services.Wrap(services.ErrTransient, services.StageRender, "fetch artifact", "unexpected status "+resp.Status, nil)
	case resp.StatusCode != http.StatusOK:
		return nil, services.Wrap(services.ErrConfiguration, services.StageRender, "fetch artifact", "unexpected status "+resp.Status, nil)
	}
	data, err := io.ReadAll(io.LimitReader(resp.Body, maxArtifactBytes))
	if err != nil {
		return nil, fmt.Errorf("read artifact body: %w", err)
	}
	return artifact.Decode(data)
}

func isHTTP(ref string) bool {
	u, err := url.Parse(ref)
	if err != nil {
		return false
	}
	scheme := strings.ToLower(u.Scheme)
	return scheme == "http" || scheme == "https"
}
