package render

import (
	"context"
	"errors"
	"fmt"
	"sync"
)

// ErrCancelled marks a render pass that must not produce frames.
var ErrCancelled = errors.New("render cancelled")

// Handle blocks frame rendering until a pass resolves. The first call to
// Continue or Cancel wins; later calls are ignored.
type Handle struct {
	once sync.Once
	done chan struct{}
	err  error
}

// NewHandle returns an unresolved handle.
func NewHandle() *Handle {
	return &Handle{done: make(chan struct{})}
}

// Continue unblocks the renderer. It reports whether this call resolved the handle.
func (h *Handle) Continue() bool {
	resolved := false
	h.once.Do(func() {
		resolved = true
		close(h.done)
	})
	return resolved
}

// Cancel aborts the render with cause attached. It reports whether this call
// resolved the handle.
func (h *Handle) Cancel(cause error) bool {
	resolved := false
	h.once.Do(func() {
		resolved = true
		if cause == nil {
			h.err = ErrCancelled
		} else {
			h.err = fmt.Errorf("%w: %w", ErrCancelled, cause)
		}
		close(h.done)
	})
	return resolved
}

// Done is closed once the handle resolves.
func (h *Handle) Done() <-chan struct{} {
	return h.done
}

// Err returns the cancellation error, or nil while unresolved or after Continue.
func (h *Handle) Err() error {
	select {
	case <-h.done:
		return h.err
	default:
		return nil
	}
}

// Wait blocks until the handle resolves or ctx is done. It returns nil after
// Continue and an error wrapping ErrCancelled after Cancel.
func (h *Handle) Wait(ctx context.Context) error {
	select {
	case <-h.done:
		return h.err
	case <-ctx.Done():
		return ctx.Err()
	}
}
