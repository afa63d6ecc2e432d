package session

import (
	"path/filepath"
	"sync"
	"time"

	"github.com/tabwell/backend/internal/shared/types"
)

// Factory produces session objects. Construction is pure and never fails:
// if the backing resource turns out to be unopenable, that failure belongs
// to the session's own later initialization, not to the factory, so the tab
// can still render a loading/failed state.
type Factory interface {
	Create(key int, backingResource *string) *types.Session
}

// DefaultFactory builds sessions whose display name derives from the backing
// resource path. The surrounding application substitutes its own factory to
// wire sessions to real backend operations.
type DefaultFactory struct{}

// NewFactory creates the default session factory.
func NewFactory() *DefaultFactory {
	return &DefaultFactory{}
}

// Create builds a session for key. A nil backingResource yields an untitled
// placeholder session.
func (f *DefaultFactory) Create(key int, backingResource *string) *types.Session {
	name := types.UntitledName
	if backingResource != nil && *backingResource != "" {
		name = filepath.Base(*backingResource)
	}

	return &types.Session{
		Key:             key,
		BackingResource: backingResource,
		DisplayName:     name,
		CreatedAt:       time.Now(),
		Handle:          newHandle(),
	}
}

// handle is the default session handle: it tracks open/closed state so a
// stray double close stays a no-op.
type handle struct {
	once sync.Once
	done chan struct{}
}

func newHandle() *handle {
	return &handle{done: make(chan struct{})}
}

// Close releases the handle. Safe to call more than once.
func (h *handle) Close() error {
	h.once.Do(func() { close(h.done) })
	return nil
}

// Done exposes the handle's closed signal for background work tied to the
// session's lifetime.
func (h *handle) Done() <-chan struct{} {
	return h.done
}
