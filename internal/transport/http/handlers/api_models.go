package handlers

import (
	"encoding/json"

	"github.com/kidhack/bonfire/internal/core/domain"
)

// ErrorResponse is the envelope returned for every failed request.
type ErrorResponse struct {
	OK    bool   `json:"ok"`
	Error string `json:"error"`
}

// NewErrorResponse creates an error envelope.
func NewErrorResponse(message string) ErrorResponse {
	return ErrorResponse{OK: false, Error: message}
}

// OKResponse is the envelope returned by state-changing endpoints.
type OKResponse struct {
	OK bool `json:"ok"`
}

// UserPayload is the minimal user view returned by the API.
type UserPayload struct {
	ID          string `json:"id"`
	Email       string `json:"email"`
	DisplayName string `json:"displayName"`
}

func newUserPayload(user domain.User) *UserPayload {
	return &UserPayload{
		ID:          user.ID,
		Email:       user.Email,
		DisplayName: user.DisplayName,
	}
}

// SessionResponse describes the current session. User is null when no valid
// session exists.
type SessionResponse struct {
	User *UserPayload `json:"user"`
}

// BackupCodesResponse carries the plaintext codes, shown exactly once.
type BackupCodesResponse struct {
	OK    bool     `json:"ok"`
	Codes []string `json:"codes"`
}

// RegistrationOptionsRequest is the payload for the start-registration endpoint.
type RegistrationOptionsRequest struct {
	Email       string `json:"email"`
	DisplayName string `json:"displayName"`
}

// RegistrationVerifyRequest is the payload for the finish-registration endpoint.
type RegistrationVerifyRequest struct {
	Email    string          `json:"email"`
	Response json.RawMessage `json:"response" binding:"required"`
}

// AuthenticationOptionsRequest is the payload for the start-authentication endpoint.
type AuthenticationOptionsRequest struct {
	Email string `json:"email"`
}

// AuthenticationVerifyRequest is the payload for the finish-authentication endpoint.
type AuthenticationVerifyRequest struct {
	Email    string          `json:"email"`
	Response json.RawMessage `json:"response" binding:"required"`
}

// RedeemBackupCodeRequest is the payload for the backup-code redemption endpoint.
type RedeemBackupCodeRequest struct {
	Email string `json:"email"`
	Code  string `json:"code" binding:"required"`
}
