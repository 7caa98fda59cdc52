package webauthn

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/url"
	"sync"

	"github.com/go-webauthn/webauthn/protocol"
	"github.com/go-webauthn/webauthn/webauthn"

	"github.com/kidhack/bonfire/internal/core/domain"
	"github.com/kidhack/bonfire/internal/infra/config"
)

// RelyingParty identifies the WebAuthn relying party a ceremony is bound to.
type RelyingParty struct {
	ID     string
	Origin string
}

// Ceremonies drives WebAuthn registration and authentication ceremonies.
// Library instances are built per relying party because the browser Origin
// header decides which RP a request belongs to; instances are cached since
// deployments only ever see a handful of origins.
type Ceremonies struct {
	cfg config.WebAuthnSettings

	mu        sync.Mutex
	instances map[string]*webauthn.WebAuthn
}

// NewCeremonies constructs a ceremony driver from settings.
func NewCeremonies(cfg config.WebAuthnSettings) *Ceremonies {
	return &Ceremonies{
		cfg:       cfg,
		instances: make(map[string]*webauthn.WebAuthn),
	}
}

// ResolveRP derives the relying party from a request's Origin header. When
// origin resolution is disabled or no header is present the configured
// fallback identity is used.
func (c *Ceremonies) ResolveRP(originHeader string) (RelyingParty, error) {
	if !c.cfg.OriginFromRequest || originHeader == "" {
		if c.cfg.RPID == "" || len(c.cfg.Origins) == 0 {
			return RelyingParty{}, fmt.Errorf("relying party identity is not configured")
		}
		return RelyingParty{ID: c.cfg.RPID, Origin: c.cfg.Origins[0]}, nil
	}

	parsed, err := url.Parse(originHeader)
	if err != nil {
		return RelyingParty{}, fmt.Errorf("parse origin %q: %w", originHeader, err)
	}
	if parsed.Scheme != "http" && parsed.Scheme != "https" {
		return RelyingParty{}, fmt.Errorf("unsupported origin scheme %q", parsed.Scheme)
	}
	if parsed.Hostname() == "" {
		return RelyingParty{}, fmt.Errorf("origin %q has no host", originHeader)
	}

	return RelyingParty{ID: parsed.Hostname(), Origin: originHeader}, nil
}

// BeginRegistration produces creation options for the client and the opaque
// library session state the finish step needs.
func (c *Ceremonies) BeginRegistration(user domain.User, credentials []domain.Credential, rp RelyingParty) (*protocol.CredentialCreation, []byte, error) {
	instance, err := c.instance(rp)
	if err != nil {
		return nil, nil, err
	}

	excludeList := make([]protocol.CredentialDescriptor, 0, len(credentials))
	for _, credential := range credentials {
		excludeList = append(excludeList, protocol.CredentialDescriptor{
			Type:         protocol.PublicKeyCredentialType,
			CredentialID: credential.CredentialID,
		})
	}

	options, session, err := instance.BeginRegistration(
		newCeremonyUser(user, credentials),
		webauthn.WithExclusions(excludeList),
	)
	if err != nil {
		return nil, nil, fmt.Errorf("begin registration: %w", err)
	}

	sessionData, err := json.Marshal(session)
	if err != nil {
		return nil, nil, fmt.Errorf("marshal session data: %w", err)
	}

	return options, sessionData, nil
}

// FinishRegistration validates an attestation response against the stored
// ceremony state and returns the credential to persist.
func (c *Ceremonies) FinishRegistration(user domain.User, credentials []domain.Credential, rp RelyingParty, sessionData, response []byte) (*RegistrationResult, error) {
	instance, err := c.instance(rp)
	if err != nil {
		return nil, err
	}

	var session webauthn.SessionData
	if err := json.Unmarshal(sessionData, &session); err != nil {
		return nil, fmt.Errorf("unmarshal session data: %w", err)
	}

	parsed, err := protocol.ParseCredentialCreationResponseBody(bytes.NewReader(response))
	if err != nil {
		return nil, fmt.Errorf("parse attestation response: %w", err)
	}

	credential, err := instance.CreateCredential(newCeremonyUser(user, credentials), session, parsed)
	if err != nil {
		return nil, fmt.Errorf("create credential: %w", err)
	}

	transports := make([]string, 0, len(credential.Transport))
	for _, transport := range credential.Transport {
		transports = append(transports, string(transport))
	}

	return &RegistrationResult{
		CredentialID: credential.ID,
		PublicKey:    credential.PublicKey,
		Counter:      credential.Authenticator.SignCount,
		Transports:   transports,
	}, nil
}

// BeginAuthentication produces assertion options scoped to the user's
// registered credentials.
func (c *Ceremonies) BeginAuthentication(user domain.User, credentials []domain.Credential, rp RelyingParty) (*protocol.CredentialAssertion, []byte, error) {
	instance, err := c.instance(rp)
	if err != nil {
		return nil, nil, err
	}

	options, session, err := instance.BeginLogin(newCeremonyUser(user, credentials))
	if err != nil {
		return nil, nil, fmt.Errorf("begin authentication: %w", err)
	}

	sessionData, err := json.Marshal(session)
	if err != nil {
		return nil, nil, fmt.Errorf("marshal session data: %w", err)
	}

	return options, sessionData, nil
}

// FinishAuthentication validates an assertion response and reports the
// credential that signed it together with the authenticator's counter.
func (c *Ceremonies) FinishAuthentication(user domain.User, credentials []domain.Credential, rp RelyingParty, sessionData, response []byte) (*AuthenticationResult, error) {
	instance, err := c.instance(rp)
	if err != nil {
		return nil, err
	}

	var session webauthn.SessionData
	if err := json.Unmarshal(sessionData, &session); err != nil {
		return nil, fmt.Errorf("unmarshal session data: %w", err)
	}

	parsed, err := protocol.ParseCredentialRequestResponseBody(bytes.NewReader(response))
	if err != nil {
		return nil, fmt.Errorf("parse assertion response: %w", err)
	}

	credential, err := instance.ValidateLogin(newCeremonyUser(user, credentials), session, parsed)
	if err != nil {
		return nil, fmt.Errorf("validate authentication: %w", err)
	}

	return &AuthenticationResult{
		CredentialID: credential.ID,
		Counter:      credential.Authenticator.SignCount,
		CloneWarning: credential.Authenticator.CloneWarning,
	}, nil
}

func (c *Ceremonies) instance(rp RelyingParty) (*webauthn.WebAuthn, error) {
	if rp.ID == "" || rp.Origin == "" {
		return nil, fmt.Errorf("relying party is incomplete")
	}

	key := rp.ID + "|" + rp.Origin

	c.mu.Lock()
	defer c.mu.Unlock()

	if instance, ok := c.instances[key]; ok {
		return instance, nil
	}

	instance, err := webauthn.New(&webauthn.Config{
		RPID:          rp.ID,
		RPDisplayName: c.cfg.RPDisplayName,
		RPOrigins:     []string{rp.Origin},
		AuthenticatorSelection: protocol.AuthenticatorSelection{
			ResidentKey:      protocol.ResidentKeyRequirementPreferred,
			UserVerification: protocol.VerificationPreferred,
		},
	})
	if err != nil {
		return nil, fmt.Errorf("create webauthn instance: %w", err)
	}

	c.instances[key] = instance

	return instance, nil
}
