package port

import (
	"context"
	"time"

	"github.com/kidhack/bonfire/internal/core/domain"
)

// SessionRepository deals with cookie session storage.
type SessionRepository interface {
	Create(ctx context.Context, session domain.Session) error
	// GetActiveUser resolves a session identifier to its user when the
	// session expiry is strictly after the supplied moment. Returns
	// repository.ErrNotFound for absent or expired sessions.
	GetActiveUser(ctx context.Context, sessionID string, at time.Time) (*domain.User, error)
	// Delete removes a session row. Deleting zero rows is not an error.
	Delete(ctx context.Context, sessionID string) error
}
