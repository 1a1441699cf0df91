package render

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"

	"captionsync/internal/artifact"
	"captionsync/internal/logging"
	"captionsync/internal/services"
	"captionsync/internal/timeline"
)

// PlaceholderText is shown when the selected audio has no captions yet.
const PlaceholderText = "No captions available"

// Options configures timeline construction and change notification.
type Options struct {
	FPS               int
	MaxCaptionSeconds float64
	Debounce          time.Duration
}

// Timeline is the result of one render pass.
type Timeline struct {
	AudioRef        string
	ArtifactRef     string
	FPS             int
	DurationSeconds float64
	TotalFrames     int
	Entries         []timeline.Entry
	// Placeholder is set when no artifact exists for the audio.
	Placeholder bool
}

// At returns the caption visible at frame.
func (t *Timeline) At(frame int) (timeline.Entry, bool) {
	if t == nil {
		return timeline.Entry{}, false
	}
	return timeline.At(t.Entries, frame)
}

// Renderer resolves timelines for audio references.
type Renderer struct {
	durations DurationResolver
	source    ArtifactSource
	opts      Options
	logger    *slog.Logger
}

// New returns a renderer.
func New(durations DurationResolver, source ArtifactSource, logger *slog.Logger, opts Options) *Renderer {
	return &Renderer{
		durations: durations,
		source:    source,
		opts:      opts,
		logger:    logging.NewComponentLogger(logger, "render"),
	}
}

// Resolve runs one render pass: duration and artifact are resolved
// concurrently, then the timeline is built. A missing artifact yields a
// placeholder timeline with no entries.
func (r *Renderer) Resolve(ctx context.Context, audioRef string) (*Timeline, error) {
	if r.opts.FPS <= 0 {
		return nil, fmt.Errorf("%w: %d", timeline.ErrInvalidFrameRate, r.opts.FPS)
	}
	ctx = services.WithStage(ctx, services.StageRender)
	artifactRef := ArtifactPathFor(audioRef)
	logger := logging.WithContext(ctx, r.logger).With(
		logging.String(logging.FieldAsset, audioRef),
		logging.String(logging.FieldArtifact, artifactRef),
	)

	var (
		duration float64
		art      *artifact.Artifact
		missing  bool
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		d, err := r.durations.Duration(gctx, audioRef)
		if err != nil {
			return services.Wrap(services.ErrExternalTool, services.StageRender, "resolve duration", audioRef, err)
		}
		duration = d
		return nil
	})
	g.Go(func() error {
		a, err := r.source.Load(gctx, artifactRef)
		if errors.Is(err, artifact.ErrNotFound) {
			missing = true
			return nil
		}
		if errors.Is(err, services.ErrTransient) || errors.Is(err, services.ErrConfiguration) {
			return err
		}
		if err != nil {
			return services.Wrap(services.ErrValidation, services.StageRender, "read artifact", artifactRef, err)
		}
		art = a
		return nil
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	out := &Timeline{
		AudioRef:        audioRef,
		ArtifactRef:     artifactRef,
		FPS:             r.opts.FPS,
		DurationSeconds: duration,
		TotalFrames:     timeline.SecondsToFrames(duration, r.opts.FPS),
	}
	if missing {
		out.Placeholder = true
		logger.Info("no caption artifact; showing placeholder",
			logging.String(logging.FieldEventType, "captions_missing"),
		)
		return out, nil
	}

	entries, err := timeline.Build(art.Transcription, out.TotalFrames, timeline.Options{
		FPS:               r.opts.FPS,
		MaxCaptionSeconds: r.opts.MaxCaptionSeconds,
	})
	if err != nil {
		return nil, services.Wrap(services.ErrValidation, services.StageRender, "build timeline", artifactRef, err)
	}
	out.Entries = entries
	logger.Debug("timeline resolved",
		logging.Int("entries", len(entries)),
		logging.Int("total_frames", out.TotalFrames),
		logging.String(logging.FieldEventType, "timeline_resolved"),
	)
	return out, nil
}
