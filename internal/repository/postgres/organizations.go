package postgres

import (
	"context"
	"encoding/json"
	"fmt"

	squirrel "github.com/Masterminds/squirrel"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/kidhack/bonfire/internal/core/port"
)

// OrganizationRepository implements port.OrganizationRepository using PostgreSQL.
type OrganizationRepository struct {
	pool    *pgxpool.Pool
	exec    pgExecutor
	builder squirrel.StatementBuilderType
}

// NewOrganizationRepository constructs a repository backed by any executor that satisfies pgExecutor.
func NewOrganizationRepository(exec pgExecutor) *OrganizationRepository {
	repo := &OrganizationRepository{
		exec:    exec,
		builder: squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar),
	}
	if pool, ok := exec.(*pgxpool.Pool); ok {
		repo.pool = pool
	}
	return repo
}

// WithTx returns a repository instance operating within the supplied transaction.
func (r *OrganizationRepository) WithTx(tx pgx.Tx) *OrganizationRepository {
	if tx == nil {
		return r
	}
	return &OrganizationRepository{
		pool:    r.pool,
		exec:    tx,
		builder: r.builder,
	}
}

// HasMembership reports whether the user belongs to any organization.
func (r *OrganizationRepository) HasMembership(ctx context.Context, userID string) (bool, error) {
	stmt, args, err := r.builder.Select("COUNT(*)").
		From("memberships").
		Where(squirrel.Eq{"user_id": userID}).
		ToSql()
	if err != nil {
		return false, fmt.Errorf("build count memberships sql: %w", err)
	}

	row := r.exec.QueryRow(ctx, stmt, args...)

	var count int64
	if err := row.Scan(&count); err != nil {
		return false, fmt.Errorf("scan memberships count: %w", err)
	}

	return count > 0, nil
}

// CreateBootstrap inserts the organization, the owner membership and the
// default entitlement. When backed by a pool the three inserts run inside a
// single transaction.
func (r *OrganizationRepository) CreateBootstrap(ctx context.Context, bootstrap port.OrganizationBootstrap) error {
	if r.pool != nil {
		tx, err := r.pool.Begin(ctx)
		if err != nil {
			return fmt.Errorf("begin bootstrap tx: %w", err)
		}
		defer tx.Rollback(ctx)

		if err := r.WithTx(tx).insertBootstrap(ctx, bootstrap); err != nil {
			return err
		}

		if err := tx.Commit(ctx); err != nil {
			return fmt.Errorf("commit bootstrap tx: %w", err)
		}
		return nil
	}

	return r.insertBootstrap(ctx, bootstrap)
}

func (r *OrganizationRepository) insertBootstrap(ctx context.Context, bootstrap port.OrganizationBootstrap) error {
	org := bootstrap.Organization
	stmt, args, err := r.builder.Insert("organizations").
		Columns("id", "name", "created_at").
		Values(org.ID, org.Name, org.CreatedAt).
		ToSql()
	if err != nil {
		return fmt.Errorf("build insert organization sql: %w", err)
	}
	if _, err := r.exec.Exec(ctx, stmt, args...); err != nil {
		return fmt.Errorf("insert organization: %w", err)
	}

	membership := bootstrap.Membership
	stmt, args, err = r.builder.Insert("memberships").
		Columns("id", "user_id", "organization_id", "role", "created_at").
		Values(membership.ID, membership.UserID, membership.OrganizationID, string(membership.Role), membership.CreatedAt).
		ToSql()
	if err != nil {
		return fmt.Errorf("build insert membership sql: %w", err)
	}
	if _, err := r.exec.Exec(ctx, stmt, args...); err != nil {
		return fmt.Errorf("insert membership: %w", err)
	}

	entitlement := bootstrap.Entitlement
	features, err := json.Marshal(entitlement.Features)
	if err != nil {
		return fmt.Errorf("marshal entitlement features: %w", err)
	}
	limits, err := json.Marshal(entitlement.Limits)
	if err != nil {
		return fmt.Errorf("marshal entitlement limits: %w", err)
	}

	stmt, args, err = r.builder.Insert("entitlements").
		Columns("id", "organization_id", "plan", "subscription_status", "features", "limits", "created_at").
		Values(entitlement.ID, entitlement.OrganizationID, entitlement.Plan, entitlement.SubscriptionStatus, features, limits, entitlement.CreatedAt).
		ToSql()
	if err != nil {
		return fmt.Errorf("build insert entitlement sql: %w", err)
	}
	if _, err := r.exec.Exec(ctx, stmt, args...); err != nil {
		return fmt.Errorf("insert entitlement: %w", err)
	}

	return nil
}

var _ port.OrganizationRepository = (*OrganizationRepository)(nil)
