package postgres

import (
	"context"
	"fmt"
	"time"

	squirrel "github.com/Masterminds/squirrel"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/kidhack/bonfire/internal/core/domain"
	"github.com/kidhack/bonfire/internal/core/port"
	"github.com/kidhack/bonfire/internal/repository"
)

// BackupCodeRepository implements port.BackupCodeRepository using PostgreSQL.
type BackupCodeRepository struct {
	pool    *pgxpool.Pool
	exec    pgExecutor
	builder squirrel.StatementBuilderType
}

// NewBackupCodeRepository constructs a repository backed by any executor that satisfies pgExecutor.
func NewBackupCodeRepository(exec pgExecutor) *BackupCodeRepository {
	repo := &BackupCodeRepository{
		exec:    exec,
		builder: squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar),
	}
	if pool, ok := exec.(*pgxpool.Pool); ok {
		repo.pool = pool
	}
	return repo
}

// WithTx returns a repository instance operating within the supplied transaction.
func (r *BackupCodeRepository) WithTx(tx pgx.Tx) *BackupCodeRepository {
	if tx == nil {
		return r
	}
	return &BackupCodeRepository{
		pool:    r.pool,
		exec:    tx,
		builder: r.builder,
	}
}

// CreateBatch inserts a full set of backup codes in one statement.
func (r *BackupCodeRepository) CreateBatch(ctx context.Context, codes []domain.BackupCode) error {
	if len(codes) == 0 {
		return nil
	}

	query := r.builder.Insert("backup_codes").
		Columns("id", "user_id", "code_hash", "created_at", "used_at")

	for _, code := range codes {
		query = query.Values(code.ID, code.UserID, code.CodeHash, code.CreatedAt, code.UsedAt)
	}

	stmt, args, err := query.ToSql()
	if err != nil {
		return fmt.Errorf("build insert backup codes sql: %w", err)
	}

	if _, err := r.exec.Exec(ctx, stmt, args...); err != nil {
		return fmt.Errorf("insert backup codes: %w", err)
	}

	return nil
}

// ExistsForUser reports whether the user already holds any backup codes,
// used or not.
func (r *BackupCodeRepository) ExistsForUser(ctx context.Context, userID string) (bool, error) {
	stmt, args, err := r.builder.Select("COUNT(*)").
		From("backup_codes").
		Where(squirrel.Eq{"user_id": userID}).
		ToSql()
	if err != nil {
		return false, fmt.Errorf("build count backup codes sql: %w", err)
	}

	row := r.exec.QueryRow(ctx, stmt, args...)

	var count int64
	if err := row.Scan(&count); err != nil {
		return false, fmt.Errorf("scan backup codes count: %w", err)
	}

	return count > 0, nil
}

// ListUnusedByUser returns the user's unredeemed codes, oldest first.
func (r *BackupCodeRepository) ListUnusedByUser(ctx context.Context, userID string) ([]domain.BackupCode, error) {
	stmt, args, err := r.builder.
		Select("id", "user_id", "code_hash", "created_at", "used_at").
		From("backup_codes").
		Where(squirrel.Eq{"user_id": userID}).
		Where("used_at IS NULL").
		OrderBy("created_at ASC").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build list backup codes sql: %w", err)
	}

	rows, err := r.exec.Query(ctx, stmt, args...)
	if err != nil {
		return nil, fmt.Errorf("query backup codes: %w", err)
	}
	defer rows.Close()

	codes := make([]domain.BackupCode, 0)
	for rows.Next() {
		var (
			code   domain.BackupCode
			usedAt *time.Time
		)
		if err := rows.Scan(&code.ID, &code.UserID, &code.CodeHash, &code.CreatedAt, &usedAt); err != nil {
			return nil, fmt.Errorf("scan backup code: %w", err)
		}
		code.UsedAt = usedAt
		codes = append(codes, code)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate backup codes: %w", err)
	}

	return codes, nil
}

// MarkUsed stamps a code as redeemed. The update is conditional on the code
// still being unused, so two concurrent redemptions of the same code cannot
// both succeed.
func (r *BackupCodeRepository) MarkUsed(ctx context.Context, id string, usedAt time.Time) error {
	stmt, args, err := r.builder.Update("backup_codes").
		Set("used_at", usedAt).
		Where(squirrel.Eq{"id": id}).
		Where("used_at IS NULL").
		ToSql()
	if err != nil {
		return fmt.Errorf("build mark backup code used sql: %w", err)
	}

	ct, err := r.exec.Exec(ctx, stmt, args...)
	if err != nil {
		return fmt.Errorf("mark backup code used: %w", err)
	}

	if ct.RowsAffected() == 0 {
		return repository.ErrNotFound
	}

	return nil
}

var _ port.BackupCodeRepository = (*BackupCodeRepository)(nil)
