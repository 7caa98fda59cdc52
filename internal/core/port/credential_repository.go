package port

import (
	"context"
	"time"

	"github.com/kidhack/bonfire/internal/core/domain"
)

// CredentialRepository deals with WebAuthn credential storage.
type CredentialRepository interface {
	Create(ctx context.Context, credential domain.Credential) error
	ListByUser(ctx context.Context, userID string) ([]domain.Credential, error)
	GetByCredentialID(ctx context.Context, userID string, credentialID []byte) (*domain.Credential, error)
	// AdvanceCounter persists a new signature counter only when it is
	// strictly greater than the stored one. Returns repository.ErrNotFound
	// when no row matched, which callers treat as a possible cloned
	// authenticator.
	AdvanceCounter(ctx context.Context, userID string, credentialID []byte, counter uint32, usedAt time.Time) error
}
