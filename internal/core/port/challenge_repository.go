package port

import (
	"context"

	"github.com/kidhack/bonfire/internal/core/domain"
)

// ChallengeRepository persists single-use ceremony challenges.
type ChallengeRepository interface {
	Create(ctx context.Context, challenge domain.Challenge) error
	// ConsumeNewest selects the most recently created live challenge for the
	// (user, kind) pair and deletes it atomically with the read. Returns
	// repository.ErrNotFound when no live challenge exists, which covers both
	// "never requested" and "expired".
	ConsumeNewest(ctx context.Context, userID string, kind domain.ChallengeKind) (*domain.Challenge, error)
}
