package render

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"sync"

	"captionsync/internal/logging"
	"captionsync/internal/services"
	"captionsync/internal/watch"
)

var (
	// ErrSessionClosed cancels passes still pending when a session closes.
	ErrSessionClosed = errors.New("render session closed")
	// ErrSuperseded cancels a pass replaced by a newer one.
	ErrSuperseded = errors.New("render pass superseded")
)

// UpdateFunc receives each completed pass. err wraps ErrCancelled when the
// pass failed, in which case tl is nil. It runs after the pass has settled and
// outside Close's wait, so it may call Select or Close on s.
type UpdateFunc func(s *Session, tl *Timeline, err error)

// Session keeps one audio selection rendered and reloads it when its
// artifact changes.
type Session struct {
	r        *Renderer
	ctx      context.Context
	cancel   context.CancelFunc
	onUpdate UpdateFunc
	logger   *slog.Logger

	// selectMu serializes Select and Close.
	selectMu sync.Mutex

	mu       sync.Mutex
	audioRef string
	videoRef string
	gen      uint64
	handle   *Handle
	current  *Timeline
	sub      watch.Unsubscriber
	closed   bool

	wg sync.WaitGroup
}

// Open starts a session for audioRef and begins the first pass. Wait on
// Handle before reading Timeline. videoRef is carried for the renderer.
func (r *Renderer) Open(ctx context.Context, audioRef, videoRef string, onUpdate UpdateFunc) (*Session, error) {
	if strings.TrimSpace(audioRef) == "" {
		return nil, errors.New("open render session: audio reference required")
	}
	ctx = services.WithStage(ctx, services.StageWatch)
	sctx, cancel := context.WithCancel(ctx)
	s := &Session{
		r:        r,
		ctx:      sctx,
		cancel:   cancel,
		onUpdate: onUpdate,
		logger:   logging.WithContext(sctx, r.logger),
		videoRef: videoRef,
	}
	if err := s.Select(audioRef); err != nil {
		cancel()
		return nil, err
	}
	return s, nil
}

// Select switches the session to a different audio track. The previous
// subscription is torn down before the new one is created.
func (s *Session) Select(audioRef string) error {
	s.selectMu.Lock()
	defer s.selectMu.Unlock()

	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return ErrSessionClosed
	}
	old := s.sub
	s.sub = nil
	s.audioRef = audioRef
	s.current = nil
	s.mu.Unlock()

	if old != nil {
		if err := old.Unsubscribe(); err != nil {
			s.logger.Debug("unsubscribe failed", logging.Error(err))
		}
	}

	sub := s.subscribe(audioRef)
	s.mu.Lock()
	s.sub = sub
	s.mu.Unlock()

	s.refresh()
	return nil
}

func (s *Session) subscribe(audioRef string) watch.Unsubscriber {
	ref := ArtifactPathFor(audioRef)
	if isHTTP(ref) {
		s.logger.Info("remote artifact; live reload disabled",
			logging.String(logging.FieldArtifact, ref),
			logging.String(logging.FieldEventType, "watch_skipped"),
		)
		return nil
	}
	sub, err := watch.Subscribe(ref, s.r.opts.Debounce, func() {
		s.logger.Info("caption artifact changed; rebuilding timeline",
			logging.String(logging.FieldArtifact, ref),
			logging.String(logging.FieldEventType, "artifact_changed"),
		)
		s.refresh()
	}, s.logger)
	if err != nil {
		logging.WarnWithContext(s.logger, "cannot watch caption artifact", "watch_failed",
			logging.String(logging.FieldArtifact, ref),
			logging.Error(err),
			logging.String(logging.FieldErrorHint, "ensure the artifact directory exists"),
			logging.String(logging.FieldImpact, "timeline will not reload on artifact changes"),
		)
		return nil
	}
	return sub
}

// refresh starts a new pass with a fresh handle. The previous handle is
// cancelled if it has not resolved yet.
func (s *Session) refresh() {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	s.gen++
	gen := s.gen
	ref := s.audioRef
	prev := s.handle
	h := NewHandle()
	s.handle = h
	s.wg.Add(1)
	s.mu.Unlock()

	if prev != nil {
		prev.Cancel(ErrSuperseded)
	}

	go func() {
		tl, deliver := s.runPass(gen, ref, h)
		if deliver && s.onUpdate != nil {
			s.onUpdate(s, tl, h.Err())
		}
	}()
}

// runPass resolves one pass and settles h. It reports whether the outcome
// should reach onUpdate; superseded and closed passes are dropped.
func (s *Session) runPass(gen uint64, ref string, h *Handle) (*Timeline, bool) {
	defer s.wg.Done()
	tl, err := s.r.Resolve(s.ctx, ref)

	s.mu.Lock()
	switch {
	case s.closed:
		s.mu.Unlock()
		h.Cancel(ErrSessionClosed)
		return nil, false
	case gen != s.gen:
		s.mu.Unlock()
		h.Cancel(ErrSuperseded)
		return nil, false
	case err != nil:
		s.current = nil
		h.Cancel(err)
	default:
		s.current = tl
		h.Continue()
	}
	s.mu.Unlock()

	if err != nil {
		logging.ErrorWithContext(s.logger, "render pass cancelled", "render_cancelled",
			logging.String(logging.FieldAsset, ref),
			logging.Error(err),
			logging.String(logging.FieldErrorHint, "check the audio reference and artifact JSON"),
		)
	}
	return tl, true
}

// Handle returns the handle of the most recent pass.
func (s *Session) Handle() *Handle {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.handle
}

// Timeline returns the timeline of the most recent successful pass, or nil
// while a pass is pending or after a cancelled pass.
func (s *Session) Timeline() *Timeline {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.current
}

// AudioRef returns the current audio selection.
func (s *Session) AudioRef() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.audioRef
}

// VideoRef returns the video reference supplied at Open.
func (s *Session) VideoRef() string {
	return s.videoRef
}

// Close ends the session: the subscription is released, in-flight passes are
// cancelled and waited for. An onUpdate call already under way may still be
// running when Close returns.
func (s *Session) Close() error {
	s.selectMu.Lock()
	defer s.selectMu.Unlock()

	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil
	}
	s.closed = true
	sub := s.sub
	s.sub = nil
	h := s.handle
	s.mu.Unlock()

	var err error
	if sub != nil {
		err = sub.Unsubscribe()
	}
	s.cancel()
	s.wg.Wait()
	if h != nil {
		h.Cancel(ErrSessionClosed)
	}
	return err
}
