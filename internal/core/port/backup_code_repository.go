package port

import (
	"context"
	"time"

	"github.com/kidhack/bonfire/internal/core/domain"
)

// BackupCodeRepository persists recovery codes.
type BackupCodeRepository interface {
	CreateBatch(ctx context.Context, codes []domain.BackupCode) error
	ExistsForUser(ctx context.Context, userID string) (bool, error)
	ListUnusedByUser(ctx context.Context, userID string) ([]domain.BackupCode, error)
	// MarkUsed stamps the code as redeemed only if it is still unused.
	// Returns repository.ErrNotFound when the conditional update matched no
	// row, which callers treat as "already redeemed".
	MarkUsed(ctx context.Context, id string, usedAt time.Time) error
}
