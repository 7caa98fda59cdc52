package usecase

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-webauthn/webauthn/protocol"
	uuid "github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/kidhack/bonfire/internal/core/domain"
	"github.com/kidhack/bonfire/internal/core/port"
	"github.com/kidhack/bonfire/internal/infra/webauthn"
	"github.com/kidhack/bonfire/internal/repository"
)

// EmailSource tags where a resolved email came from, making the request-over-
// session precedence rule explicit.
type EmailSource int

const (
	EmailMissing EmailSource = iota
	EmailFromRequest
	EmailFromSession
)

// ResolveEmail picks the effective email for an operation: the request body
// value when present, otherwise the session user's email.
func ResolveEmail(requestEmail string, sessionUser *domain.User) (string, EmailSource) {
	if trimmed := strings.TrimSpace(requestEmail); trimmed != "" {
		return strings.ToLower(trimmed), EmailFromRequest
	}
	if sessionUser != nil && sessionUser.Email != "" {
		return sessionUser.Email, EmailFromSession
	}
	return "", EmailMissing
}

// ceremonyDriver is the subset of the WebAuthn adapter the services need.
type ceremonyDriver interface {
	ResolveRP(originHeader string) (webauthn.RelyingParty, error)
	BeginRegistration(user domain.User, credentials []domain.Credential, rp webauthn.RelyingParty) (*protocol.CredentialCreation, []byte, error)
	FinishRegistration(user domain.User, credentials []domain.Credential, rp webauthn.RelyingParty, sessionData, response []byte) (*webauthn.RegistrationResult, error)
	BeginAuthentication(user domain.User, credentials []domain.Credential, rp webauthn.RelyingParty) (*protocol.CredentialAssertion, []byte, error)
	FinishAuthentication(user domain.User, credentials []domain.Credential, rp webauthn.RelyingParty, sessionData, response []byte) (*webauthn.AuthenticationResult, error)
}

// RegistrationService orchestrates passkey registration ceremonies, creating
// user accounts and workspaces on the way.
type RegistrationService struct {
	users         port.UserRepository
	credentials   port.CredentialRepository
	challenges    port.ChallengeRepository
	organizations port.OrganizationRepository
	ceremonies    ceremonyDriver
	audit         *AuditService
	challengeTTL  time.Duration
}

// NewRegistrationService constructs a registration service.
func NewRegistrationService(
	users port.UserRepository,
	credentials port.CredentialRepository,
	challenges port.ChallengeRepository,
	organizations port.OrganizationRepository,
	ceremonies ceremonyDriver,
	audit *AuditService,
	challengeTTL time.Duration,
) *RegistrationService {
	return &RegistrationService{
		users:         users,
		credentials:   credentials,
		challenges:    challenges,
		organizations: organizations,
		ceremonies:    ceremonies,
		audit:         audit,
		challengeTTL:  challengeTTL,
	}
}

// BeginRegistration resolves or creates the account and returns creation
// options. An account that already holds credentials is only usable when the
// caller is signed in as that account; otherwise the conflict is surfaced.
func (s *RegistrationService) BeginRegistration(ctx context.Context, email, displayName, originHeader string, sessionUser *domain.User) (*protocol.CredentialCreation, error) {
	resolvedEmail, source := ResolveEmail(email, sessionUser)
	if source == EmailMissing {
		return nil, ErrEmailRequired
	}

	user, err := s.users.GetByEmail(ctx, resolvedEmail)
	switch {
	case err == nil:
		creds, credErr := s.credentials.ListByUser(ctx, user.ID)
		if credErr != nil {
			return nil, fmt.Errorf("list credentials: %w", credErr)
		}
		if len(creds) > 0 && (sessionUser == nil || sessionUser.ID != user.ID) {
			return nil, ErrAccountExists
		}
		return s.issueRegistrationChallenge(ctx, *user, creds, originHeader)

	case errors.Is(err, repository.ErrNotFound):
		created, createErr := s.createUser(ctx, resolvedEmail, displayName)
		if createErr != nil {
			return nil, createErr
		}
		return s.issueRegistrationChallenge(ctx, *created, nil, originHeader)

	default:
		return nil, fmt.Errorf("get user by email: %w", err)
	}
}

// FinishRegistration verifies the attestation response, persists the new
// credential, bootstraps the user's workspace on first membership and
// returns the account for session creation.
func (s *RegistrationService) FinishRegistration(ctx context.Context, email, originHeader string, sessionUser *domain.User, response []byte) (*domain.User, error) {
	resolvedEmail, source := ResolveEmail(email, sessionUser)
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

	challenge, err := s.challenges.ConsumeNewest(ctx, user.ID, domain.ChallengeKindRegistration)
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

	result, err := s.ceremonies.FinishRegistration(*user, creds, rp, challenge.SessionData, response)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrVerificationFailed, err)
	}

	credential := domain.Credential{
		ID:           uuid.NewString(),
		UserID:       user.ID,
		CredentialID: result.CredentialID,
		PublicKey:    result.PublicKey,
		Counter:      result.Counter,
		Transports:   result.Transports,
		CreatedAt:    time.Now().UTC(),
	}
	if err := s.credentials.Create(ctx, credential); err != nil {
		return nil, fmt.Errorf("persist credential: %w", err)
	}

	if err := s.bootstrapOrganization(ctx, *user); err != nil {
		return nil, err
	}

	s.audit.Record(ctx, domain.ActionPasskeyRegister, "credential", credential.ID, &user.ID, nil, map[string]any{
		"email": user.Email,
	})

	return user, nil
}

func (s *RegistrationService) createUser(ctx context.Context, email, displayName string) (*domain.User, error) {
	name := strings.TrimSpace(displayName)
	if name == "" {
		name = email
	}

	user := domain.User{
		ID:          uuid.NewString(),
		Email:       email,
		DisplayName: name,
		CreatedAt:   time.Now().UTC(),
	}

	if err := s.users.Create(ctx, user); err != nil {
		if isUniqueViolation(err) {
			return nil, ErrAccountExists
		}
		return nil, fmt.Errorf("create user: %w", err)
	}

	s.audit.Record(ctx, domain.ActionUserCreate, "user", user.ID, &user.ID, nil, map[string]any{
		"email": user.Email,
	})

	return &user, nil
}

func (s *RegistrationService) issueRegistrationChallenge(ctx context.Context, user domain.User, creds []domain.Credential, originHeader string) (*protocol.CredentialCreation, error) {
	rp, err := s.ceremonies.ResolveRP(originHeader)
	if err != nil {
		return nil, fmt.Errorf("resolve relying party: %w", err)
	}

	options, sessionData, err := s.ceremonies.BeginRegistration(user, creds, rp)
	if err != nil {
		return nil, fmt.Errorf("begin registration: %w", err)
	}

	now := time.Now().UTC()
	challenge := domain.Challenge{
		ID:          uuid.NewString(),
		UserID:      user.ID,
		Kind:        domain.ChallengeKindRegistration,
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

// bootstrapOrganization creates the personal workspace, OWNER membership and
// default entitlement the first time a user completes registration.
func (s *RegistrationService) bootstrapOrganization(ctx context.Context, user domain.User) error {
	hasMembership, err := s.organizations.HasMembership(ctx, user.ID)
	if err != nil {
		return fmt.Errorf("check membership: %w", err)
	}
	if hasMembership {
		return nil
	}

	now := time.Now().UTC()
	org := domain.Organization{
		ID:        uuid.NewString(),
		Name:      fmt.Sprintf("%s's Workspace", user.DisplayName),
		CreatedAt: now,
	}
	bootstrap := port.OrganizationBootstrap{
		Organization: org,
		Membership: domain.Membership{
			ID:             uuid.NewString(),
			UserID:         user.ID,
			OrganizationID: org.ID,
			Role:           domain.MembershipRoleOwner,
			CreatedAt:      now,
		},
		Entitlement: domain.Entitlement{
			ID:                 uuid.NewString(),
			OrganizationID:     org.ID,
			Plan:               "free",
			SubscriptionStatus: "active",
			Features:           map[string]any{},
			Limits:             map[string]any{},
			CreatedAt:          now,
		},
	}

	if err := s.organizations.CreateBootstrap(ctx, bootstrap); err != nil {
		return fmt.Errorf("bootstrap organization: %w", err)
	}

	s.audit.Record(ctx, domain.ActionOrgCreate, "organization", org.ID, &user.ID, &org.ID, map[string]any{
		"name": org.Name,
	})

	return nil
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}
