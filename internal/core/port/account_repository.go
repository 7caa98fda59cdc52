package port

import "context"

// AccountRepository covers operations that span several tables at once.
type AccountRepository interface {
	// Reset removes the user's credentials, challenges, backup codes,
	// sessions and memberships together with the user row itself in one
	// transaction. Returns repository.ErrNotFound when no such user exists.
	Reset(ctx context.Context, userID string) error
}
