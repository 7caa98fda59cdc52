package domain

import "time"

// MembershipRole enumerates the roles a user can hold inside an organization.
type MembershipRole string

const (
	MembershipRoleOwner  MembershipRole = "OWNER"
	MembershipRoleMember MembershipRole = "MEMBER"
)

// Organization is a workspace created lazily on a user's first completed
// passkey registration.
type Organization struct {
	ID        string
	Name      string
	CreatedAt time.Time
}

// Membership links a user to an organization with a role.
type Membership struct {
	ID             string
	UserID         string
	OrganizationID string
	Role           MembershipRole
	CreatedAt      time.Time
}

// Entitlement captures an organization's plan and feature/limit maps.
type Entitlement struct {
	ID                 string
	OrganizationID     string
	Plan               string
	SubscriptionStatus string
	Features           map[string]any
	Limits             map[string]any
	CreatedAt          time.Time
}
