package watch

import (
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"captionsync/internal/logging"
)

// DefaultDebounce is used when a non-positive debounce is requested.
const DefaultDebounce = 250 * time.Millisecond

// Unsubscriber tears down a subscription. Calling it more than once is safe.
type Unsubscriber interface {
	Unsubscribe() error
}

// Subscription delivers change callbacks for one file path.
type Subscription struct {
	path     string
	debounce time.Duration
	onChange func()
	watcher  *fsnotify.Watcher
	logger   *slog.Logger

	mu     sync.Mutex
	timer  *time.Timer
	closed bool

	loopDone chan struct{}
	once     sync.Once
	closeErr error
}

// Subscribe starts watching path. onChange runs on its own goroutine after
// the file has been quiet for debounce. The parent directory must exist.
func Subscribe(path string, debounce time.Duration, onChange func(), logger *slog.Logger) (*Subscription, error) {
	if onChange == nil {
		return nil, errors.New("watch: onChange callback required")
	}
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("watch: resolve path: %w", err)
	}
	if debounce <= 0 {
		debounce = DefaultDebounce
	}
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("watch: create watcher: %w", err)
	}
	if err := watcher.Add(filepath.Dir(abs)); err != nil {
		_ = watcher.Close()
		return nil, fmt.Errorf("watch: add %s: %w", filepath.Dir(abs), err)
	}

	s := &Subscription{
		path:     abs,
		debounce: debounce,
		onChange: onChange,
		watcher:  watcher,
		logger: logging.NewComponentLogger(logger, "watch").With(
			logging.String(logging.FieldArtifact, abs),
		),
		loopDone: make(chan struct{}),
	}
	go s.loop()
	s.logger.Debug("watching artifact", logging.String(logging.FieldEventType, "watch_started"))
	return s, nil
}

// Path returns the absolute path being watched.
func (s *Subscription) Path() string {
	return s.path
}

func (s *Subscription) loop() {
	defer close(s.loopDone)
	for {
		select {
		case event, ok := <-s.watcher.Events:
			if !ok {
				return
			}
			if filepath.Clean(event.Name) != s.path {
				continue
			}
			if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename|fsnotify.Remove) == 0 {
				continue
			}
			s.logger.Debug("artifact event",
				logging.String("op", event.Op.String()),
				logging.String(logging.FieldEventType, "watch_event"),
			)
			s.schedule()
		case err, ok := <-s.watcher.Errors:
			if !ok {
				return
			}
			logging.WarnWithContext(s.logger, "file watcher error", "watch_error",
				logging.Error(err),
				logging.String(logging.FieldErrorHint, "increase fs.inotify limits if events are dropped"),
				logging.String(logging.FieldImpact, "caption reload may be missed"),
			)
		}
	}
}

func (s *Subscription) schedule() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}
	if s.timer != nil {
		s.timer.Stop()
	}
	s.timer = time.AfterFunc(s.debounce, s.fire)
}

func (s *Subscription) fire() {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	s.timer = nil
	s.mu.Unlock()
	s.onChange()
}

// Unsubscribe stops watching. Pending debounced callbacks are discarded.
func (s *Subscription) Unsubscribe() error {
	s.once.Do(func() {
		s.mu.Lock()
		s.closed = true
		if s.timer != nil {
			s.timer.Stop()
			s.timer = nil
		}
		s.mu.Unlock()

		s.closeErr = s.watcher.Close()
		<-s.loopDone
		s.logger.Debug("stopped watching artifact", logging.String(logging.FieldEventType, "watch_stopped"))
	})
	return s.closeErr
}
