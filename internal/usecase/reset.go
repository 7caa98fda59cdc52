package usecase

import (
	"context"
	"errors"
	"fmt"

	"github.com/kidhack/bonfire/internal/core/domain"
	"github.com/kidhack/bonfire/internal/core/port"
	"github.com/kidhack/bonfire/internal/repository"
)

// AccountResetService removes an account and everything it owns.
type AccountResetService struct {
	accounts port.AccountRepository
	audit    *AuditService
}

// NewAccountResetService constructs an account reset service.
func NewAccountResetService(accounts port.AccountRepository, audit *AuditService) *AccountResetService {
	return &AccountResetService{accounts: accounts, audit: audit}
}

// Reset deletes the user's credentials, challenges, backup codes, sessions
// and memberships together with the user row in one transaction.
func (s *AccountResetService) Reset(ctx context.Context, user domain.User) error {
	if err := s.accounts.Reset(ctx, user.ID); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return ErrUserNotFound
		}
		return fmt.Errorf("reset account: %w", err)
	}

	s.audit.Record(ctx, domain.ActionUserReset, "user", user.ID, &user.ID, nil, map[string]any{
		"email": user.Email,
	})

	return nil
}
