package postgres

import (
	"context"
	"encoding/json"
	"fmt"

	squirrel "github.com/Masterminds/squirrel"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/kidhack/bonfire/internal/core/domain"
	"github.com/kidhack/bonfire/internal/core/port"
)

// AuditRepository implements port.AuditRepository using PostgreSQL.
// The audit_events table is append-only; there are no update or delete paths.
type AuditRepository struct {
	pool    *pgxpool.Pool
	exec    pgExecutor
	builder squirrel.StatementBuilderType
}

// NewAuditRepository constructs a repository backed by any executor that satisfies pgExecutor.
func NewAuditRepository(exec pgExecutor) *AuditRepository {
	repo := &AuditRepository{
		exec:    exec,
		builder: squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar),
	}
	if pool, ok := exec.(*pgxpool.Pool); ok {
		repo.pool = pool
	}
	return repo
}

// WithTx returns a repository instance operating within the supplied transaction.
func (r *AuditRepository) WithTx(tx pgx.Tx) *AuditRepository {
	if tx == nil {
		return r
	}
	return &AuditRepository{
		pool:    r.pool,
		exec:    tx,
		builder: r.builder,
	}
}

// Create appends an audit event row.
func (r *AuditRepository) Create(ctx context.Context, event domain.AuditEvent) error {
	metadata, err := json.Marshal(event.Metadata)
	if err != nil {
		return fmt.Errorf("marshal audit metadata: %w", err)
	}

	stmt, args, err := r.builder.Insert("audit_events").
		Columns("id", "action", "entity_type", "entity_id", "actor_user_id", "organization_id", "metadata", "created_at").
		Values(
			event.ID,
			event.Action,
			event.EntityType,
			event.EntityID,
			event.ActorUserID,
			event.OrganizationID,
			metadata,
			event.CreatedAt,
		).
		ToSql()
	if err != nil {
		return fmt.Errorf("build insert audit event sql: %w", err)
	}

	if _, err := r.exec.Exec(ctx, stmt, args...); err != nil {
		return fmt.Errorf("insert audit event: %w", err)
	}

	return nil
}

var _ port.AuditRepository = (*AuditRepository)(nil)
