package postgres

import (
	"context"
	"fmt"

	squirrel "github.com/Masterminds/squirrel"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/kidhack/bonfire/internal/core/port"
	"github.com/kidhack/bonfire/internal/repository"
)

// AccountRepository implements port.AccountRepository using PostgreSQL.
type AccountRepository struct {
	pool    *pgxpool.Pool
	exec    pgExecutor
	builder squirrel.StatementBuilderType
}

// NewAccountRepository constructs a repository backed by any executor that satisfies pgExecutor.
func NewAccountRepository(exec pgExecutor) *AccountRepository {
	repo := &AccountRepository{
		exec:    exec,
		builder: squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar),
	}
	if pool, ok := exec.(*pgxpool.Pool); ok {
		repo.pool = pool
	}
	return repo
}

// WithTx returns a repository instance operating within the supplied transaction.
func (r *AccountRepository) WithTx(tx pgx.Tx) *AccountRepository {
	if tx == nil {
		return r
	}
	return &AccountRepository{
		pool:    r.pool,
		exec:    tx,
		builder: r.builder,
	}
}

// Reset removes every row owned by the user and finally the user itself.
// When backed by a pool the deletes run inside a single transaction so a
// partial reset is never observable.
func (r *AccountRepository) Reset(ctx context.Context, userID string) error {
	if r.pool != nil {
		tx, err := r.pool.Begin(ctx)
		if err != nil {
			return fmt.Errorf("begin reset tx: %w", err)
		}
		defer tx.Rollback(ctx)

		if err := r.WithTx(tx).deleteAccount(ctx, userID); err != nil {
			return err
		}

		if err := tx.Commit(ctx); err != nil {
			return fmt.Errorf("commit reset tx: %w", err)
		}
		return nil
	}

	return r.deleteAccount(ctx, userID)
}

func (r *AccountRepository) deleteAccount(ctx context.Context, userID string) error {
	ownedTables := []string{"credentials", "challenges", "backup_codes", "sessions", "memberships"}
	for _, table := range ownedTables {
		stmt, args, err := r.builder.Delete(table).
			Where(squirrel.Eq{"user_id": userID}).
			ToSql()
		if err != nil {
			return fmt.Errorf("build delete %s sql: %w", table, err)
		}
		if _, err := r.exec.Exec(ctx, stmt, args...); err != nil {
			return fmt.Errorf("delete %s: %w", table, err)
		}
	}

	stmt, args, err := r.builder.Delete("users").
		Where(squirrel.Eq{"id": userID}).
		ToSql()
	if err != nil {
		return fmt.Errorf("build delete user sql: %w", err)
	}

	ct, err := r.exec.Exec(ctx, stmt, args...)
	if err != nil {
		return fmt.Errorf("delete user: %w", err)
	}

	if ct.RowsAffected() == 0 {
		return repository.ErrNotFound
	}

	return nil
}

var _ port.AccountRepository = (*AccountRepository)(nil)
