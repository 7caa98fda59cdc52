package port

import (
	"context"

	"github.com/kidhack/bonfire/internal/core/domain"
)

// OrganizationBootstrap is the bundle created on a user's first completed
// registration: a personal workspace, an OWNER membership, and a default
// entitlement record.
type OrganizationBootstrap struct {
	Organization domain.Organization
	Membership   domain.Membership
	Entitlement  domain.Entitlement
}

// OrganizationRepository deals with organizations and memberships.
type OrganizationRepository interface {
	HasMembership(ctx context.Context, userID string) (bool, error)
	// CreateBootstrap inserts the organization, membership and entitlement
	// rows as a single atomic unit.
	CreateBootstrap(ctx context.Context, bootstrap OrganizationBootstrap) error
}
