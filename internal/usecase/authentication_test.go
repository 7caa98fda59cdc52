package usecase

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/kidhack/bonfire/internal/core/domain"
	"github.com/kidhack/bonfire/internal/infra/webauthn"
	"github.com/kidhack/bonfire/internal/repository"
)

func newAuthenticationFixture(ceremonies *stubCeremonies) (*AuthenticationService, *mockUserRepository, *mockCredentialRepository, *mockChallengeRepository, *mockAuditRepository) {
	users := newMockUserRepository()
	credentials := &mockCredentialRepository{}
	challenges := &mockChallengeRepository{}
	records := &mockAuditRepository{}
	if ceremonies == nil {
		ceremonies = &stubCeremonies{}
	}
	service := NewAuthenticationService(users, credentials, challenges, ceremonies, NewAuditService(records, nil), 5*time.Minute)
	return service, users, credentials, challenges, records
}

func TestBeginAuthenticationHappyPath(t *testing.T) {
	service, users, credentials, challenges, _ := newAuthenticationFixture(nil)
	users.add(domain.User{ID: "user-1", Email: "known@example.com"})
	credentials.credentials = []domain.Credential{{ID: "cred-1", UserID: "user-1", CredentialID: []byte{0x01}}}

	options, err := service.BeginAuthentication(context.Background(), "Known@Example.com", "https://example.com")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if options == nil {
		t.Fatal("expected assertion options")
	}
	if len(challenges.created) != 1 {
		t.Fatalf("expected one challenge, got %d", len(challenges.created))
	}
	if challenges.created[0].Kind != domain.ChallengeKindAuthentication {
		t.Fatalf("unexpected challenge kind %q", challenges.created[0].Kind)
	}
}

func TestBeginAuthenticationUnknownUser(t *testing.T) {
	service, _, _, _, _ := newAuthenticationFixture(nil)

	_, err := service.BeginAuthentication(context.Background(), "ghost@example.com", "")
	if !errors.Is(err, ErrUserNotFound) {
		t.Fatalf("expected ErrUserNotFound, got %v", err)
	}
}

func TestBeginAuthenticationWithoutCredentials(t *testing.T) {
	service, users, _, _, _ := newAuthenticationFixture(nil)
	users.add(domain.User{ID: "user-1", Email: "empty@example.com"})

	_, err := service.BeginAuthentication(context.Background(), "empty@example.com", "")
	if !errors.Is(err, ErrNoCredentials) {
		t.Fatalf("expected ErrNoCredentials, got %v", err)
	}
}

func TestFinishAuthenticationAdvancesCounter(t *testing.T) {
	ceremonies := &stubCeremonies{authResult: &webauthn.AuthenticationResult{CredentialID: []byte{0x01}, Counter: 7}}
	service, users, credentials, challenges, records := newAuthenticationFixture(ceremonies)
	users.add(domain.User{ID: "user-1", Email: "known@example.com"})
	credentials.credentials = []domain.Credential{{ID: "cred-1", UserID: "user-1", CredentialID: []byte{0x01}, Counter: 6}}
	challenges.challenge = &domain.Challenge{ID: "ch-1", UserID: "user-1", Kind: domain.ChallengeKindAuthentication}

	user, err := service.FinishAuthentication(context.Background(), "known@example.com", "", []byte(`{}`))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if user.ID != "user-1" {
		t.Fatalf("unexpected user %q", user.ID)
	}
	if credentials.advanceCalls != 1 || credentials.advanceCount != 7 {
		t.Fatalf("expected counter advance to 7, got %d calls at %d", credentials.advanceCalls, credentials.advanceCount)
	}
	if got := records.actions(); len(got) != 1 || got[0] != domain.ActionPasskeySignin {
		t.Fatalf("unexpected audit actions %v", got)
	}
}

func TestFinishAuthenticationStaleCounter(t *testing.T) {
	ceremonies := &stubCeremonies{authResult: &webauthn.AuthenticationResult{CredentialID: []byte{0x01}, Counter: 3}}
	service, users, credentials, challenges, _ := newAuthenticationFixture(ceremonies)
	users.add(domain.User{ID: "user-1", Email: "known@example.com"})
	credentials.credentials = []domain.Credential{{ID: "cred-1", UserID: "user-1", CredentialID: []byte{0x01}, Counter: 5}}
	credentials.advanceErr = repository.ErrNotFound
	challenges.challenge = &domain.Challenge{ID: "ch-1", UserID: "user-1", Kind: domain.ChallengeKindAuthentication}

	_, err := service.FinishAuthentication(context.Background(), "known@example.com", "", []byte(`{}`))
	if !errors.Is(err, ErrPossibleClone) {
		t.Fatalf("expected ErrPossibleClone, got %v", err)
	}
}

func TestFinishAuthenticationZeroCounterAuthenticator(t *testing.T) {
	ceremonies := &stubCeremonies{authResult: &webauthn.AuthenticationResult{CredentialID: []byte{0x01}, Counter: 0}}
	service, users, credentials, challenges, _ := newAuthenticationFixture(ceremonies)
	users.add(domain.User{ID: "user-1", Email: "known@example.com"})
	credentials.credentials = []domain.Credential{{ID: "cred-1", UserID: "user-1", CredentialID: []byte{0x01}, Counter: 0}}
	challenges.challenge = &domain.Challenge{ID: "ch-1", UserID: "user-1", Kind: domain.ChallengeKindAuthentication}

	if _, err := service.FinishAuthentication(context.Background(), "known@example.com", "", []byte(`{}`)); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if credentials.advanceCalls != 0 {
		t.Fatal("zero-counter authenticators must not hit the watermark")
	}
}

func TestFinishAuthenticationUnknownCredential(t *testing.T) {
	ceremonies := &stubCeremonies{authResult: &webauthn.AuthenticationResult{CredentialID: []byte{0xFF}, Counter: 1}}
	service, users, credentials, challenges, _ := newAuthenticationFixture(ceremonies)
	users.add(domain.User{ID: "user-1", Email: "known@example.com"})
	credentials.credentials = []domain.Credential{{ID: "cred-1", UserID: "user-1", CredentialID: []byte{0x01}}}
	challenges.challenge = &domain.Challenge{ID: "ch-1", UserID: "user-1", Kind: domain.ChallengeKindAuthentication}

	_, err := service.FinishAuthentication(context.Background(), "known@example.com", "", []byte(`{}`))
	if !errors.Is(err, ErrVerificationFailed) {
		t.Fatalf("expected ErrVerificationFailed, got %v", err)
	}
}

func TestFinishAuthenticationWithoutChallenge(t *testing.T) {
	service, users, credentials, _, _ := newAuthenticationFixture(nil)
	users.add(domain.User{ID: "user-1", Email: "known@example.com"})
	credentials.credentials = []domain.Credential{{ID: "cred-1", UserID: "user-1", CredentialID: []byte{0x01}}}

	_, err := service.FinishAuthentication(context.Background(), "known@example.com", "", []byte(`{}`))
	if !errors.Is(err, ErrChallengeExpired) {
		t.Fatalf("expected ErrChallengeExpired, got %v", err)
	}
}

func TestFinishAuthenticationVerificationFailure(t *testing.T) {
	ceremonies := &stubCeremonies{finishAuthErr: errors.New("signature mismatch")}
	service, users, credentials, challenges, _ := newAuthenticationFixture(ceremonies)
	users.add(domain.User{ID: "user-1", Email: "known@example.com"})
	credentials.credentials = []domain.Credential{{ID: "cred-1", UserID: "user-1", CredentialID: []byte{0x01}}}
	challenges.challenge = &domain.Challenge{ID: "ch-1", UserID: "user-1", Kind: domain.ChallengeKindAuthentication}

	_, err := service.FinishAuthentication(context.Background(), "known@example.com", "", []byte(`{}`))
	if !errors.Is(err, ErrVerificationFailed) {
		t.Fatalf("expected ErrVerificationFailed, got %v", err)
	}
}
