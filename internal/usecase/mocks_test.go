package usecase

import (
	"context"
	"time"

	"github.com/go-webauthn/webauthn/protocol"

	"github.com/kidhack/bonfire/internal/core/domain"
	"github.com/kidhack/bonfire/internal/core/port"
	"github.com/kidhack/bonfire/internal/infra/webauthn"
	"github.com/kidhack/bonfire/internal/repository"
)

type mockUserRepository struct {
	createErr   error
	createCalls int
	createdUser domain.User

	byEmail map[string]*domain.User
	byID    map[string]*domain.User
}

func newMockUserRepository() *mockUserRepository {
	return &mockUserRepository{
		byEmail: make(map[string]*domain.User),
		byID:    make(map[string]*domain.User),
	}
}

func (m *mockUserRepository) add(user domain.User) {
	u := user
	m.byEmail[user.Email] = &u
	m.byID[user.ID] = &u
}

func (m *mockUserRepository) Create(_ context.Context, user domain.User) error {
	m.createCalls++
	m.createdUser = user
	if m.createErr != nil {
		return m.createErr
	}
	m.add(user)
	return nil
}

func (m *mockUserRepository) GetByID(_ context.Context, id string) (*domain.User, error) {
	if user, ok := m.byID[id]; ok {
		copied := *user
		return &copied, nil
	}
	return nil, repository.ErrNotFound
}

func (m *mockUserRepository) GetByEmail(_ context.Context, email string) (*domain.User, error) {
	if user, ok := m.byEmail[email]; ok {
		copied := *user
		return &copied, nil
	}
	return nil, repository.ErrNotFound
}

type mockCredentialRepository struct {
	credentials []domain.Credential
	createErr   error
	createCalls int

	advanceErr    error
	advanceCalls  int
	advanceCount  uint32
	advanceCredID []byte
}

func (m *mockCredentialRepository) Create(_ context.Context, credential domain.Credential) error {
	m.createCalls++
	if m.createErr != nil {
		return m.createErr
	}
	m.credentials = append(m.credentials, credential)
	return nil
}

func (m *mockCredentialRepository) ListByUser(_ context.Context, userID string) ([]domain.Credential, error) {
	matched := make([]domain.Credential, 0)
	for _, credential := range m.credentials {
		if credential.UserID == userID {
			matched = append(matched, credential)
		}
	}
	return matched, nil
}

func (m *mockCredentialRepository) GetByCredentialID(_ context.Context, userID string, credentialID []byte) (*domain.Credential, error) {
	for _, credential := range m.credentials {
		if credential.UserID == userID && string(credential.CredentialID) == string(credentialID) {
			copied := credential
			return &copied, nil
		}
	}
	return nil, repository.ErrNotFound
}

func (m *mockCredentialRepository) AdvanceCounter(_ context.Context, _ string, credentialID []byte, counter uint32, _ time.Time) error {
	m.advanceCalls++
	m.advanceCredID = credentialID
	m.advanceCount = counter
	return m.advanceErr
}

type mockChallengeRepository struct {
	created    []domain.Challenge
	createErr  error
	consumeErr error
	challenge  *domain.Challenge
}

func (m *mockChallengeRepository) Create(_ context.Context, challenge domain.Challenge) error {
	if m.createErr != nil {
		return m.createErr
	}
	m.created = append(m.created, challenge)
	return nil
}

func (m *mockChallengeRepository) ConsumeNewest(_ context.Context, _ string, _ domain.ChallengeKind) (*domain.Challenge, error) {
	if m.consumeErr != nil {
		return nil, m.consumeErr
	}
	if m.challenge == nil {
		return nil, repository.ErrNotFound
	}
	copied := *m.challenge
	m.challenge = nil
	return &copied, nil
}

type mockBackupCodeRepository struct {
	exists     bool
	existsErr  error
	batch      []domain.BackupCode
	createErr  error
	unused     []domain.BackupCode
	markErr    error
	markCalls  int
	markLastID string
}

func (m *mockBackupCodeRepository) CreateBatch(_ context.Context, codes []domain.BackupCode) error {
	if m.createErr != nil {
		return m.createErr
	}
	m.batch = codes
	return nil
}

func (m *mockBackupCodeRepository) ExistsForUser(_ context.Context, _ string) (bool, error) {
	return m.exists, m.existsErr
}

func (m *mockBackupCodeRepository) ListUnusedByUser(_ context.Context, _ string) ([]domain.BackupCode, error) {
	return m.unused, nil
}

func (m *mockBackupCodeRepository) MarkUsed(_ context.Context, id string, _ time.Time) error {
	m.markCalls++
	m.markLastID = id
	return m.markErr
}

type mockSessionRepository struct {
	created    []domain.Session
	createErr  error
	activeUser *domain.User
	deleteErr  error
	deleted    []string
}

func (m *mockSessionRepository) Create(_ context.Context, session domain.Session) error {
	if m.createErr != nil {
		return m.createErr
	}
	m.created = append(m.created, session)
	return nil
}

func (m *mockSessionRepository) GetActiveUser(_ context.Context, _ string, _ time.Time) (*domain.User, error) {
	if m.activeUser == nil {
		return nil, repository.ErrNotFound
	}
	copied := *m.activeUser
	return &copied, nil
}

func (m *mockSessionRepository) Delete(_ context.Context, sessionID string) error {
	if m.deleteErr != nil {
		return m.deleteErr
	}
	m.deleted = append(m.deleted, sessionID)
	return nil
}

type mockOrganizationRepository struct {
	hasMembership bool
	bootstrap     *port.OrganizationBootstrap
	bootstrapErr  error
}

func (m *mockOrganizationRepository) HasMembership(_ context.Context, _ string) (bool, error) {
	return m.hasMembership, nil
}

func (m *mockOrganizationRepository) CreateBootstrap(_ context.Context, bootstrap port.OrganizationBootstrap) error {
	if m.bootstrapErr != nil {
		return m.bootstrapErr
	}
	m.bootstrap = &bootstrap
	return nil
}

type mockAccountRepository struct {
	resetErr   error
	resetCalls int
	resetID    string
}

func (m *mockAccountRepository) Reset(_ context.Context, userID string) error {
	m.resetCalls++
	m.resetID = userID
	return m.resetErr
}

type mockAuditRepository struct {
	events []domain.AuditEvent
}

func (m *mockAuditRepository) Create(_ context.Context, event domain.AuditEvent) error {
	m.events = append(m.events, event)
	return nil
}

func (m *mockAuditRepository) actions() []string {
	actions := make([]string, 0, len(m.events))
	for _, event := range m.events {
		actions = append(actions, event.Action)
	}
	return actions
}

type stubCeremonies struct {
	rpErr error

	beginRegErr  error
	finishRegErr error
	regResult    *webauthn.RegistrationResult

	beginAuthErr  error
	finishAuthErr error
	authResult    *webauthn.AuthenticationResult
}

func (s *stubCeremonies) ResolveRP(_ string) (webauthn.RelyingParty, error) {
	if s.rpErr != nil {
		return webauthn.RelyingParty{}, s.rpErr
	}
	return webauthn.RelyingParty{ID: "example.com", Origin: "https://example.com"}, nil
}

func (s *stubCeremonies) BeginRegistration(_ domain.User, _ []domain.Credential, _ webauthn.RelyingParty) (*protocol.CredentialCreation, []byte, error) {
	if s.beginRegErr != nil {
		return nil, nil, s.beginRegErr
	}
	options := &protocol.CredentialCreation{}
	options.Response.Challenge = protocol.URLEncodedBase64("registration-challenge")
	return options, []byte(`{"challenge":"registration-challenge"}`), nil
}

func (s *stubCeremonies) FinishRegistration(_ domain.User, _ []domain.Credential, _ webauthn.RelyingParty, _, _ []byte) (*webauthn.RegistrationResult, error) {
	if s.finishRegErr != nil {
		return nil, s.finishRegErr
	}
	if s.regResult != nil {
		return s.regResult, nil
	}
	return &webauthn.RegistrationResult{
		CredentialID: []byte{0x01},
		PublicKey:    []byte{0x02},
		Counter:      0,
		Transports:   []string{"internal"},
	}, nil
}

func (s *stubCeremonies) BeginAuthentication(_ domain.User, _ []domain.Credential, _ webauthn.RelyingParty) (*protocol.CredentialAssertion, []byte, error) {
	if s.beginAuthErr != nil {
		return nil, nil, s.beginAuthErr
	}
	options := &protocol.CredentialAssertion{}
	options.Response.Challenge = protocol.URLEncodedBase64("authentication-challenge")
	return options, []byte(`{"challenge":"authentication-challenge"}`), nil
}

func (s *stubCeremonies) FinishAuthentication(_ domain.User, _ []domain.Credential, _ webauthn.RelyingParty, _, _ []byte) (*webauthn.AuthenticationResult, error) {
	if s.finishAuthErr != nil {
		return nil, s.finishAuthErr
	}
	if s.authResult != nil {
		return s.authResult, nil
	}
	return &webauthn.AuthenticationResult{CredentialID: []byte{0x01}, Counter: 1}, nil
}

var (
	_ port.UserRepository         = (*mockUserRepository)(nil)
	_ port.CredentialRepository   = (*mockCredentialRepository)(nil)
	_ port.ChallengeRepository    = (*mockChallengeRepository)(nil)
	_ port.BackupCodeRepository   = (*mockBackupCodeRepository)(nil)
	_ port.SessionRepository      = (*mockSessionRepository)(nil)
	_ port.OrganizationRepository = (*mockOrganizationRepository)(nil)
	_ port.AccountRepository      = (*mockAccountRepository)(nil)
	_ port.AuditRepository        = (*mockAuditRepository)(nil)
	_ ceremonyDriver              = (*stubCeremonies)(nil)
)
