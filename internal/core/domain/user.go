package domain

import "time"

// User mirrors the persisted representation in the users table.
// A user owns credentials, backup codes, challenges, sessions and memberships;
// the account is created on first registration and removed only by a full reset.
type User struct {
	ID          string
	Email       string
	DisplayName string
	CreatedAt   time.Time
}

// Credential is a WebAuthn public-key credential bound to exactly one user.
// CredentialID is the authenticator-assigned identifier and is globally unique.
type Credential struct {
	ID           string
	UserID       string
	CredentialID []byte
	PublicKey    []byte
	Counter      uint32
	Transports   []string
	CreatedAt    time.Time
	LastUsedAt   *time.Time
}
