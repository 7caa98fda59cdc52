package usecase

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/kidhack/bonfire/internal/core/domain"
	"github.com/kidhack/bonfire/internal/core/port"
	"github.com/kidhack/bonfire/internal/infra/security"
	"github.com/kidhack/bonfire/internal/repository"
)

// sessionTokenBytes sizes the random session identifier (256 bits).
const sessionTokenBytes = 32

// SessionService manages server-side cookie sessions.
type SessionService struct {
	sessions port.SessionRepository
	ttl      time.Duration
}

// NewSessionService constructs a session service with the configured TTL.
func NewSessionService(sessions port.SessionRepository, ttl time.Duration) *SessionService {
	return &SessionService{sessions: sessions, ttl: ttl}
}

// TTL returns the configured session lifetime.
func (s *SessionService) TTL() time.Duration {
	return s.ttl
}

// Create inserts a fresh session for the user. Existing sessions are left
// untouched; concurrent sessions per user are permitted.
func (s *SessionService) Create(ctx context.Context, userID string) (*domain.Session, error) {
	token, err := security.GenerateSecureToken(sessionTokenBytes)
	if err != nil {
		return nil, fmt.Errorf("generate session token: %w", err)
	}

	now := time.Now().UTC()
	session := domain.Session{
		ID:        token,
		UserID:    userID,
		CreatedAt: now,
		ExpiresAt: now.Add(s.ttl),
	}

	if err := s.sessions.Create(ctx, session); err != nil {
		return nil, fmt.Errorf("create session: %w", err)
	}

	return &session, nil
}

// CurrentUser resolves a session identifier to its user. Absent or expired
// sessions return (nil, nil); absence is a normal outcome, not an error.
func (s *SessionService) CurrentUser(ctx context.Context, sessionID string) (*domain.User, error) {
	if sessionID == "" {
		return nil, nil
	}

	user, err := s.sessions.GetActiveUser(ctx, sessionID, time.Now().UTC())
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("resolve session: %w", err)
	}

	return user, nil
}

// SignOut deletes the session row. Unknown identifiers are ignored so the
// operation stays idempotent.
func (s *SessionService) SignOut(ctx context.Context, sessionID string) error {
	if sessionID == "" {
		return nil
	}

	if err := s.sessions.Delete(ctx, sessionID); err != nil {
		return fmt.Errorf("delete session: %w", err)
	}

	return nil
}
