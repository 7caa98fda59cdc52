package domain

import "time"

// Audit action names recorded for state-changing operations.
const (
	ActionUserCreate      = "auth.user.create"
	ActionPasskeyRegister = "auth.passkey.register"
	ActionPasskeySignin   = "auth.passkey.signin"
	ActionBackupGenerate  = "auth.backup.generate"
	ActionBackupRedeem    = "auth.backup.redeem"
	ActionUserReset       = "auth.user.reset"
	ActionOrgCreate       = "org.create"
)

// AuditEvent is an immutable append-only record of a named action. Written
// once per state-changing operation; never updated or deleted.
type AuditEvent struct {
	ID             string
	Action         string
	EntityType     string
	EntityID       string
	ActorUserID    *string
	OrganizationID *string
	Metadata       map[string]any
	CreatedAt      time.Time
}
