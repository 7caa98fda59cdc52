package domain

import "time"

// BackupCode is a single-use recovery credential stored as a salted hash.
// Codes are issued in one fixed-size batch per user; a code is spendable
// only while UsedAt is unset.
type BackupCode struct {
	ID        string
	UserID    string
	CodeHash  string
	CreatedAt time.Time
	UsedAt    *time.Time
}

// IsUsed reports whether the code has already been redeemed.
func (b BackupCode) IsUsed() bool {
	return b.UsedAt != nil
}
