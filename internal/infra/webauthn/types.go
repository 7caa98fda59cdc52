package webauthn

import (
	"github.com/go-webauthn/webauthn/protocol"
	"github.com/go-webauthn/webauthn/webauthn"

	"github.com/kidhack/bonfire/internal/core/domain"
)

// RegistrationResult captures the persisted outcome of a completed
// registration ceremony.
type RegistrationResult struct {
	CredentialID []byte
	PublicKey    []byte
	Counter      uint32
	Transports   []string
}

// AuthenticationResult captures the outcome of a completed authentication
// ceremony. CloneWarning is set when the authenticator reported a counter at
// or below the stored watermark.
type AuthenticationResult struct {
	CredentialID []byte
	Counter      uint32
	CloneWarning bool
}

// ceremonyUser adapts a domain user and its credentials to the webauthn.User
// interface the library ceremonies operate on.
type ceremonyUser struct {
	user        domain.User
	credentials []domain.Credential
}

func newCeremonyUser(user domain.User, credentials []domain.Credential) *ceremonyUser {
	return &ceremonyUser{user: user, credentials: credentials}
}

func (u *ceremonyUser) WebAuthnID() []byte {
	return []byte(u.user.ID)
}

func (u *ceremonyUser) WebAuthnName() string {
	return u.user.Email
}

func (u *ceremonyUser) WebAuthnDisplayName() string {
	return u.user.DisplayName
}

func (u *ceremonyUser) WebAuthnCredentials() []webauthn.Credential {
	credentials := make([]webauthn.Credential, 0, len(u.credentials))
	for _, credential := range u.credentials {
		transports := make([]protocol.AuthenticatorTransport, 0, len(credential.Transports))
		for _, transport := range credential.Transports {
			transports = append(transports, protocol.AuthenticatorTransport(transport))
		}

		credentials = append(credentials, webauthn.Credential{
			ID:        credential.CredentialID,
			PublicKey: credential.PublicKey,
			Transport: transports,
			Authenticator: webauthn.Authenticator{
				SignCount: credential.Counter,
			},
		})
	}
	return credentials
}

var _ webauthn.User = (*ceremonyUser)(nil)
