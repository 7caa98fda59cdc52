package usecase

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	uuid "github.com/google/uuid"

	"github.com/kidhack/bonfire/internal/core/domain"
	"github.com/kidhack/bonfire/internal/core/port"
	"github.com/kidhack/bonfire/internal/infra/security"
	"github.com/kidhack/bonfire/internal/repository"
)

// BackupCodeService issues and redeems recovery codes.
type BackupCodeService struct {
	users   port.UserRepository
	codes   port.BackupCodeRepository
	audit   *AuditService
	count   int
	byteLen int
}

// NewBackupCodeService constructs a backup code service.
func NewBackupCodeService(users port.UserRepository, codes port.BackupCodeRepository, audit *AuditService, count, byteLen int) *BackupCodeService {
	return &BackupCodeService{
		users:   users,
		codes:   codes,
		audit:   audit,
		count:   count,
		byteLen: byteLen,
	}
}

// Generate issues one batch of plaintext codes for the user and stores only
// their hashes. A user holds at most one batch for the account's lifetime;
// repeat requests are rejected.
func (s *BackupCodeService) Generate(ctx context.Context, user domain.User) ([]string, error) {
	exists, err := s.codes.ExistsForUser(ctx, user.ID)
	if err != nil {
		return nil, fmt.Errorf("check existing codes: %w", err)
	}
	if exists {
		return nil, ErrBackupCodesExist
	}

	plaintexts, err := security.GenerateBackupCodes(s.count, s.byteLen)
	if err != nil {
		return nil, fmt.Errorf("generate codes: %w", err)
	}

	now := time.Now().UTC()
	batch := make([]domain.BackupCode, 0, len(plaintexts))
	for _, code := range plaintexts {
		hash, hashErr := security.HashBackupCode(code)
		if hashErr != nil {
			return nil, fmt.Errorf("hash code: %w", hashErr)
		}
		batch = append(batch, domain.BackupCode{
			ID:        uuid.NewString(),
			UserID:    user.ID,
			CodeHash:  hash,
			CreatedAt: now,
		})
	}

	if err := s.codes.CreateBatch(ctx, batch); err != nil {
		return nil, fmt.Errorf("persist codes: %w", err)
	}

	s.audit.Record(ctx, domain.ActionBackupGenerate, "user", user.ID, &user.ID, nil, map[string]any{
		"count": len(batch),
	})

	return plaintexts, nil
}

// Redeem scans the user's unused codes for a verifying match and stamps it
// used. The stamp is conditional; losing a concurrent race over the same
// code surfaces as an invalid code, never a double spend.
func (s *BackupCodeService) Redeem(ctx context.Context, email, code string) (*domain.User, error) {
	resolvedEmail, source := ResolveEmail(email, nil)
	if source == EmailMissing {
		return nil, ErrEmailRequired
	}

	normalized := NormalizeBackupCode(code)
	if normalized == "" {
		return nil, ErrInvalidBackupCode
	}

	user, err := s.users.GetByEmail(ctx, resolvedEmail)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("get user by email: %w", err)
	}

	unused, err := s.codes.ListUnusedByUser(ctx, user.ID)
	if err != nil {
		return nil, fmt.Errorf("list codes: %w", err)
	}

	for _, candidate := range unused {
		if !security.VerifyBackupCode(normalized, candidate.CodeHash) {
			continue
		}

		if err := s.codes.MarkUsed(ctx, candidate.ID, time.Now().UTC()); err != nil {
			if errors.Is(err, repository.ErrNotFound) {
				return nil, ErrInvalidBackupCode
			}
			return nil, fmt.Errorf("mark code used: %w", err)
		}

		s.audit.Record(ctx, domain.ActionBackupRedeem, "backup_code", candidate.ID, &user.ID, nil, map[string]any{
			"email": user.Email,
		})

		return user, nil
	}

	return nil, ErrInvalidBackupCode
}

// NormalizeBackupCode reduces raw input to the canonical code form: the
// first whitespace-separated token, stripped of non-hex characters,
// lowercased.
func NormalizeBackupCode(raw string) string {
	fields := strings.Fields(raw)
	if len(fields) == 0 {
		return ""
	}

	var b strings.Builder
	for _, r := range strings.ToLower(fields[0]) {
		if (r >= '0' && r <= '9') || (r >= 'a' && r <= 'f') {
			b.WriteRune(r)
		}
	}
	return b.String()
}
