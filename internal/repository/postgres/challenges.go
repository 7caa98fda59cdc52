package postgres

import (
	"context"
	"errors"
	"fmt"

	squirrel "github.com/Masterminds/squirrel"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/kidhack/bonfire/internal/core/domain"
	"github.com/kidhack/bonfire/internal/core/port"
	"github.com/kidhack/bonfire/internal/repository"
)

// ChallengeRepository implements port.ChallengeRepository using PostgreSQL.
type ChallengeRepository struct {
	pool    *pgxpool.Pool
	exec    pgExecutor
	builder squirrel.StatementBuilderType
}

// NewChallengeRepository constructs a repository backed by any executor that satisfies pgExecutor.
func NewChallengeRepository(exec pgExecutor) *ChallengeRepository {
	repo := &ChallengeRepository{
		exec:    exec,
		builder: squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar),
	}
	if pool, ok := exec.(*pgxpool.Pool); ok {
		repo.pool = pool
	}
	return repo
}

// WithTx returns a repository instance operating within the supplied transaction.
func (r *ChallengeRepository) WithTx(tx pgx.Tx) *ChallengeRepository {
	if tx == nil {
		return r
	}
	return &ChallengeRepository{
		pool:    r.pool,
		exec:    tx,
		builder: r.builder,
	}
}

// Create inserts a new ceremony challenge. Rows are append-only; re-requesting
// options adds a fresh row rather than touching earlier ones.
func (r *ChallengeRepository) Create(ctx context.Context, challenge domain.Challenge) error {
	stmt, args, err := r.builder.Insert("challenges").
		Columns("id", "user_id", "kind", "challenge", "session_data", "created_at", "expires_at").
		Values(
			challenge.ID,
			challenge.UserID,
			string(challenge.Kind),
			challenge.Challenge,
			challenge.SessionData,
			challenge.CreatedAt,
			challenge.ExpiresAt,
		).
		ToSql()
	if err != nil {
		return fmt.Errorf("build insert challenge sql: %w", err)
	}

	if _, err := r.exec.Exec(ctx, stmt, args...); err != nil {
		return fmt.Errorf("insert challenge: %w", err)
	}

	return nil
}

// ConsumeNewest deletes and returns the newest live challenge for the
// (user, kind) pair. The delete targets a single row selected by recency, so
// concurrent verifications cannot redeem the same challenge twice.
func (r *ChallengeRepository) ConsumeNewest(ctx context.Context, userID string, kind domain.ChallengeKind) (*domain.Challenge, error) {
	stmt := `
		DELETE FROM challenges
		 WHERE id = (
			SELECT id
			  FROM challenges
			 WHERE user_id = $1
			   AND kind = $2
			   AND expires_at > now()
			 ORDER BY created_at DESC
			 LIMIT 1
			 FOR UPDATE SKIP LOCKED
		 )
		RETURNING id, user_id, kind, challenge, session_data, created_at, expires_at
	`

	row := r.exec.QueryRow(ctx, stmt, userID, string(kind))

	var (
		challenge domain.Challenge
		kindValue string
	)
	if err := row.Scan(
		&challenge.ID,
		&challenge.UserID,
		&kindValue,
		&challenge.Challenge,
		&challenge.SessionData,
		&challenge.CreatedAt,
		&challenge.ExpiresAt,
	); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, repository.ErrNotFound
		}
		return nil, fmt.Errorf("consume challenge: %w", err)
	}

	challenge.Kind = domain.ChallengeKind(kindValue)

	return &challenge, nil
}

var _ port.ChallengeRepository = (*ChallengeRepository)(nil)
