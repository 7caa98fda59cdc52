package usecase

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/go-webauthn/webauthn/protocol"
	uuid "github.com/google/uuid"

	"github.com/kidhack/bonfire/internal/core/domain"
	"github.com/kidhack/bonfire/internal/core/port"
	"github.com/kidhack/bonfire/internal/repository"
)

// AuthenticationService orchestrates passkey sign-in ceremonies.
type AuthenticationService struct {
	users        port.UserRepository
	credentials  port.CredentialRepository
	challenges   port.ChallengeRepository
	ceremonies   ceremonyDriver
	audit        *AuditService
	challengeTTL time.Duration
}

// NewAuthenticationService constructs an authentication service.
func NewAuthenticationService(
	users port.UserRepository,
	credentials port.CredentialRepository,
	challenges port.ChallengeRepository,
	ceremonies ceremonyDriver,
	audit *AuditService,
	challengeTTL time.Duration,
) *AuthenticationService {
	return &AuthenticationService{
		users:        users,
		credentials:  credentials,
		challenges:   challenges,
		ceremonies:   ceremonies,
		audit:        audit,
		challengeTTL: challengeTTL,
	}
}

// BeginAuthentication returns assertion options listing the user's
// registered credentials. Users without credentials are indistinguishable
// from missing users to the caller.
func (s *AuthenticationService) BeginAuthentication(ctx context.Context, email, originHeader string) (*protocol.CredentialAssertion, error) {
	resolvedEmail, source := ResolveEmail(email, nil)
	if source == EmailMissing {
		return nil, ErrEmailRequired
	}

	user, err := s.users.GetByEmail(ctx, resolvedEmail)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("get user by email: %w", err)
	}

	creds, err := s.credentials.ListByUser(ctx, user.ID)
	if err != nil {
		return nil, fmt.Errorf("list credentials: %w", err)
	}
	if len(creds) == 0 {
		return nil, ErrNoCredentials
	}

	rp, err := s.ceremonies.ResolveRP(originHeader)
	if err != nil {
		return nil, fmt.Errorf("resolve relying party: %w", err)
	}

	options, sessionData, err := s.ceremonies.BeginAuthentication(*user, creds, rp)
	if err != nil {
		return nil, fmt.Errorf("begin authentication: %w", err)
	}

	now := time.Now().UTC()
	challenge := domain.Challenge{
		ID:          uuid.NewString(),
		UserID:      user.ID,
		Kind:        domain.ChallengeKindAuthentication,
		Challenge:   options.Response.Challenge.String(),
		SessionData: sessionData,
		CreatedAt:   now,
		ExpiresAt:   now.Add(s.challengeTTL),
	}
	if err := s.challenges.Create(ctx, challenge); err != nil {
		return nil, fmt.Errorf("persist challenge: %w", err)
	}

	return options, nil
}

// FinishAuthentication verifies the assertion response and advances the
// credential's counter watermark. A counter that fails to advance is treated
// as a possible cloned authenticator and rejected.
func (s *AuthenticationService) FinishAuthentication(ctx context.Context, email, originHeader string, response []byte) (*domain.User, error) {
	resolvedEmail, source := ResolveEmail(email, nil)
	if source == EmailMissing {
		return nil, ErrEmailRequired
	}

	user, err := s.users.GetByEmail(ctx, resolvedEmail)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("get user by email: %w", err)
	}

	challenge, err := s.challenges.ConsumeNewest(ctx, user.ID, domain.ChallengeKindAuthentication)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrChallengeExpired
		}
		return nil, fmt.Errorf("consume challenge: %w", err)
	}

	rp, err := s.ceremonies.ResolveRP(originHeader)
	if err != nil {
		return nil, fmt.Errorf("resolve relying party: %w", err)
	}

	creds, err := s.credentials.ListByUser(ctx, user.ID)
	if err != nil {
		return nil, fmt.Errorf("list credentials: %w", err)
	}
	if len(creds) == 0 {
		return nil, ErrNoCredentials
	}

	result, err := s.ceremonies.FinishAuthentication(*user, creds, rp, challenge.SessionData, response)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrVerificationFailed, err)
	}

	stored, err := s.credentials.GetByCredentialID(ctx, user.ID, result.CredentialID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrVerificationFailed
		}
		return nil, fmt.Errorf("get credential: %w", err)
	}

	// Authenticators without a counter always report zero; the watermark only
	// applies once either side has a non-zero value.
	if result.Counter != 0 || stored.Counter != 0 {
		err := s.credentials.AdvanceCounter(ctx, user.ID, result.CredentialID, result.Counter, time.Now().UTC())
		if err != nil {
			if errors.Is(err, repository.ErrNotFound) {
				return nil, ErrPossibleClone
			}
			return nil, fmt.Errorf("advance counter: %w", err)
		}
	}

	s.audit.Record(ctx, domain.ActionPasskeySignin, "credential", stored.ID, &user.ID, nil, map[string]any{
		"email": user.Email,
	})

	return user, nil
}
