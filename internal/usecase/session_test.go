package usecase

import (
	"context"
	"encoding/base64"
	"errors"
	"testing"
	"time"

	"github.com/kidhack/bonfire/internal/core/domain"
	"github.com/kidhack/bonfire/internal/repository"
)

func TestSessionCreate(t *testing.T) {
	sessions := &mockSessionRepository{}
	service := NewSessionService(sessions, 720*time.Hour)

	session, err := service.Create(context.Background(), "user-1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if session.UserID != "user-1" || session.ID == "" {
		t.Fatalf("unexpected session %+v", session)
	}
	if got := session.ExpiresAt.Sub(session.CreatedAt); got != 720*time.Hour {
		t.Fatalf("expected 720h lifetime, got %s", got)
	}
	if len(sessions.created) != 1 {
		t.Fatalf("expected one persisted session, got %d", len(sessions.created))
	}
}

func TestSessionCreateTokenFormat(t *testing.T) {
	sessions := &mockSessionRepository{}
	service := NewSessionService(sessions, time.Hour)

	first, err := service.Create(context.Background(), "user-1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	// The id is stored in a TEXT column as-is, so it must be the raw
	// base64 form of the 32 random bytes, not a UUID.
	raw, err := base64.RawURLEncoding.DecodeString(first.ID)
	if err != nil {
		t.Fatalf("session id %q is not base64 RawURL: %v", first.ID, err)
	}
	if len(raw) != sessionTokenBytes {
		t.Fatalf("expected %d random bytes, got %d", sessionTokenBytes, len(raw))
	}

	second, err := service.Create(context.Background(), "user-1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if second.ID == first.ID {
		t.Fatalf("expected unique session ids, got %q twice", first.ID)
	}
}

func TestSessionCurrentUser(t *testing.T) {
	sessions := &mockSessionRepository{activeUser: &domain.User{ID: "user-1", Email: "known@example.com"}}
	service := NewSessionService(sessions, time.Hour)

	user, err := service.CurrentUser(context.Background(), "session-1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if user == nil || user.ID != "user-1" {
		t.Fatalf("unexpected user %+v", user)
	}
}

func TestSessionCurrentUserAbsent(t *testing.T) {
	service := NewSessionService(&mockSessionRepository{}, time.Hour)

	user, err := service.CurrentUser(context.Background(), "session-gone")
	if err != nil {
		t.Fatalf("absent session must not error, got %v", err)
	}
	if user != nil {
		t.Fatalf("expected nil user, got %+v", user)
	}
}

func TestSessionCurrentUserEmptyID(t *testing.T) {
	sessions := &mockSessionRepository{activeUser: &domain.User{ID: "user-1"}}
	service := NewSessionService(sessions, time.Hour)

	user, err := service.CurrentUser(context.Background(), "")
	if err != nil || user != nil {
		t.Fatalf("empty session id must resolve to (nil, nil), got (%+v, %v)", user, err)
	}
}

func TestSignOutIdempotent(t *testing.T) {
	sessions := &mockSessionRepository{}
	service := NewSessionService(sessions, time.Hour)

	if err := service.SignOut(context.Background(), "session-1"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := service.SignOut(context.Background(), "session-1"); err != nil {
		t.Fatalf("repeat sign-out must succeed, got %v", err)
	}
	if err := service.SignOut(context.Background(), ""); err != nil {
		t.Fatalf("empty session id must be a no-op, got %v", err)
	}
	if len(sessions.deleted) != 2 {
		t.Fatalf("expected two delete calls, got %d", len(sessions.deleted))
	}
}

func TestAccountReset(t *testing.T) {
	accounts := &mockAccountRepository{}
	records := &mockAuditRepository{}
	service := NewAccountResetService(accounts, NewAuditService(records, nil))

	if err := service.Reset(context.Background(), domain.User{ID: "user-1", Email: "known@example.com"}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if accounts.resetCalls != 1 || accounts.resetID != "user-1" {
		t.Fatalf("expected one reset for user-1, got %d calls on %q", accounts.resetCalls, accounts.resetID)
	}
	if got := records.actions(); len(got) != 1 || got[0] != domain.ActionUserReset {
		t.Fatalf("unexpected audit actions %v", got)
	}
}

func TestAccountResetUnknownUser(t *testing.T) {
	accounts := &mockAccountRepository{resetErr: repository.ErrNotFound}
	service := NewAccountResetService(accounts, NewAuditService(&mockAuditRepository{}, nil))

	err := service.Reset(context.Background(), domain.User{ID: "ghost"})
	if !errors.Is(err, ErrUserNotFound) {
		t.Fatalf("expected ErrUserNotFound, got %v", err)
	}
}
