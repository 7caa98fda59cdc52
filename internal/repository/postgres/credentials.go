package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	squirrel "github.com/Masterminds/squirrel"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/kidhack/bonfire/internal/core/domain"
	"github.com/kidhack/bonfire/internal/core/port"
	"github.com/kidhack/bonfire/internal/repository"
)

// CredentialRepository implements port.CredentialRepository using PostgreSQL.
type CredentialRepository struct {
	pool    *pgxpool.Pool
	exec    pgExecutor
	builder squirrel.StatementBuilderType
}

// NewCredentialRepository constructs a repository backed by any executor that satisfies pgExecutor.
func NewCredentialRepository(exec pgExecutor) *CredentialRepository {
	repo := &CredentialRepository{
		exec:    exec,
		builder: squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar),
	}
	if pool, ok := exec.(*pgxpool.Pool); ok {
		repo.pool = pool
	}
	return repo
}

// WithTx returns a repository instance operating within the supplied transaction.
func (r *CredentialRepository) WithTx(tx pgx.Tx) *CredentialRepository {
	if tx == nil {
		return r
	}
	return &CredentialRepository{
		pool:    r.pool,
		exec:    tx,
		builder: r.builder,
	}
}

// Create inserts a new credential row.
func (r *CredentialRepository) Create(ctx context.Context, credential domain.Credential) error {
	stmt, args, err := r.builder.Insert("credentials").
		Columns(
			"id",
			"user_id",
			"credential_id",
			"public_key",
			"counter",
			"transports",
			"created_at",
			"last_used_at",
		).
		Values(
			credential.ID,
			credential.UserID,
			credential.CredentialID,
			credential.PublicKey,
			int64(credential.Counter),
			credential.Transports,
			credential.CreatedAt,
			credential.LastUsedAt,
		).
		ToSql()
	if err != nil {
		return fmt.Errorf("build insert credential sql: %w", err)
	}

	if _, err := r.exec.Exec(ctx, stmt, args...); err != nil {
		return fmt.Errorf("insert credential: %w", err)
	}

	return nil
}

// ListByUser returns the credentials registered for a user, oldest first.
func (r *CredentialRepository) ListByUser(ctx context.Context, userID string) ([]domain.Credential, error) {
	stmt, args, err := r.builder.
		Select("id", "user_id", "credential_id", "public_key", "counter", "transports", "created_at", "last_used_at").
		From("credentials").
		Where(squirrel.Eq{"user_id": userID}).
		OrderBy("created_at ASC").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build list credentials sql: %w", err)
	}

	rows, err := r.exec.Query(ctx, stmt, args...)
	if err != nil {
		return nil, fmt.Errorf("query credentials: %w", err)
	}
	defer rows.Close()

	credentials := make([]domain.Credential, 0)
	for rows.Next() {
		credential, err := scanCredential(rows)
		if err != nil {
			return nil, err
		}
		credentials = append(credentials, credential)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate credentials: %w", err)
	}

	return credentials, nil
}

// GetByCredentialID retrieves a single credential by its authenticator-assigned identifier.
func (r *CredentialRepository) GetByCredentialID(ctx context.Context, userID string, credentialID []byte) (*domain.Credential, error) {
	stmt, args, err := r.builder.
		Select("id", "user_id", "credential_id", "public_key", "counter", "transports", "created_at", "last_used_at").
		From("credentials").
		Where(squirrel.Eq{"user_id": userID}).
		Where(squirrel.Eq{"credential_id": credentialID}).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build select credential sql: %w", err)
	}

	row := r.exec.QueryRow(ctx, stmt, args...)

	credential, err := scanCredential(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, repository.ErrNotFound
		}
		return nil, err
	}

	return &credential, nil
}

// AdvanceCounter moves the signature counter forward and stamps last_used_at.
// The update is conditional on the stored counter being strictly smaller, so a
// replayed or cloned-authenticator assertion matches zero rows and surfaces as
// repository.ErrNotFound.
func (r *CredentialRepository) AdvanceCounter(ctx context.Context, userID string, credentialID []byte, counter uint32, usedAt time.Time) error {
	stmt, args, err := r.builder.Update("credentials").
		Set("counter", int64(counter)).
		Set("last_used_at", usedAt).
		Where(squirrel.Eq{"user_id": userID}).
		Where(squirrel.Eq{"credential_id": credentialID}).
		Where(squirrel.Lt{"counter": int64(counter)}).
		ToSql()
	if err != nil {
		return fmt.Errorf("build advance counter sql: %w", err)
	}

	ct, err := r.exec.Exec(ctx, stmt, args...)
	if err != nil {
		return fmt.Errorf("advance counter: %w", err)
	}

	if ct.RowsAffected() == 0 {
		return repository.ErrNotFound
	}

	return nil
}

func scanCredential(row pgx.Row) (domain.Credential, error) {
	var (
		credential domain.Credential
		counter    int64
		lastUsedAt *time.Time
	)

	if err := row.Scan(
		&credential.ID,
		&credential.UserID,
		&credential.CredentialID,
		&credential.PublicKey,
		&counter,
		&credential.Transports,
		&credential.CreatedAt,
		&lastUsedAt,
	); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.Credential{}, pgx.ErrNoRows
		}
		return domain.Credential{}, fmt.Errorf("scan credential: %w", err)
	}

	credential.Counter = uint32(counter)
	credential.LastUsedAt = lastUsedAt

	return credential, nil
}

var _ port.CredentialRepository = (*CredentialRepository)(nil)
