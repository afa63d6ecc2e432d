package session

import (
	"context"

	"go.uber.org/zap"

	"github.com/tabwell/backend/internal/logging"
	"github.com/tabwell/backend/internal/shared/types"
)

// Disposer releases whatever resources a session holds. It is invoked
// exactly once per session, at removal time, by the mutation scheduler's
// worker. Failures must never block a tab from closing.
type Disposer interface {
	Dispose(ctx context.Context, session *types.Session) error
}

// DefaultDisposer closes the session's handle and logs failures.
type DefaultDisposer struct {
	logger *logging.Logger
}

// NewDisposer creates the default disposer.
func NewDisposer(logger *logging.Logger) *DefaultDisposer {
	return &DefaultDisposer{logger: logger}
}

// Dispose stops the session's background work by closing its handle. The
// error is returned for observability but callers are expected to log and
// continue; a session that fails to clean up perfectly must not keep its
// tab open.
func (d *DefaultDisposer) Dispose(ctx context.Context, session *types.Session) error {
	if session.Handle == nil {
		return nil
	}

	if err := session.Handle.Close(); err != nil {
		d.logger.Warn("session disposal failed",
			zap.Int("key", session.Key),
			zap.String("display_name", session.DisplayName),
			zap.Error(err),
		)
		return err
	}

	d.logger.Debug("session disposed", zap.Int("key", session.Key))
	return nil
}
