package domain

import "time"

// Session maps an opaque cookie token to a user and an expiry. Multiple
// concurrent sessions per user are permitted; expired sessions are simply
// ignored on lookup rather than actively swept.
type Session struct {
	ID        string
	UserID    string
	CreatedAt time.Time
	ExpiresAt time.Time
}

// IsActive reports whether the session still resolves at the supplied moment.
func (s Session) IsActive(at time.Time) bool {
	return s.ExpiresAt.After(at)
}
