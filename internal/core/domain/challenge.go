package domain

import "time"

// ChallengeKind distinguishes which ceremony a stored challenge belongs to.
type ChallengeKind string

const (
	ChallengeKindRegistration   ChallengeKind = "registration"
	ChallengeKindAuthentication ChallengeKind = "authentication"
)

// Challenge is a single-use random value bound to a user and ceremony kind.
// Several challenges may coexist for the same pair; consumption always takes
// the newest live one and deletes it atomically with the read. Expired rows
// are never matched and are left for lazy cleanup.
type Challenge struct {
	ID          string
	UserID      string
	Kind        ChallengeKind
	Challenge   string
	SessionData []byte
	CreatedAt   time.Time
	ExpiresAt   time.Time
}

// IsLive reports whether the challenge is still consumable at the supplied moment.
func (c Challenge) IsLive(at time.Time) bool {
	return c.ExpiresAt.After(at)
}
