package usecase

import "errors"

// Sentinel errors shared across services. Transport maps these onto the
// response taxonomy: validation 400, not-found 404, conflict 409,
// verification failure 401.
var (
	// ErrEmailRequired indicates no email could be resolved from the request or session.
	ErrEmailRequired = errors.New("email is required")
	// ErrAccountExists indicates an account with credentials already exists for the email.
	ErrAccountExists = errors.New("account exists; sign in to add a passkey")
	// ErrUserNotFound indicates the referenced user does not exist.
	ErrUserNotFound = errors.New("user not found")
	// ErrNoCredentials indicates the user has no registered passkeys.
	ErrNoCredentials = errors.New("no passkeys registered")
	// ErrChallengeExpired indicates no live challenge exists for the ceremony.
	ErrChallengeExpired = errors.New("challenge missing or expired")
	// ErrVerificationFailed indicates the cryptographic ceremony check failed.
	ErrVerificationFailed = errors.New("verification failed")
	// ErrPossibleClone indicates the signature counter failed to advance.
	ErrPossibleClone = errors.New("credential counter did not advance; possible cloned authenticator")
	// ErrBackupCodesExist indicates the user already holds a backup code batch.
	ErrBackupCodesExist = errors.New("backup codes already generated")
	// ErrInvalidBackupCode indicates no unused code matched the candidate.
	ErrInvalidBackupCode = errors.New("invalid backup code")
)
