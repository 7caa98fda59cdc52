package handlers

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/go-webauthn/webauthn/protocol"
	"go.uber.org/zap"

	"github.com/kidhack/bonfire/internal/core/domain"
	"github.com/kidhack/bonfire/internal/infra/logger"
	"github.com/kidhack/bonfire/internal/transport/http/middleware"
	"github.com/kidhack/bonfire/internal/usecase"
)

type registrationService interface {
	BeginRegistration(ctx context.Context, email, displayName, originHeader string, sessionUser *domain.User) (*protocol.CredentialCreation, error)
	FinishRegistration(ctx context.Context, email, originHeader string, sessionUser *domain.User, response []byte) (*domain.User, error)
}

type authenticationService interface {
	BeginAuthentication(ctx context.Context, email, originHeader string) (*protocol.CredentialAssertion, error)
	FinishAuthentication(ctx context.Context, email, originHeader string, response []byte) (*domain.User, error)
}

type sessionIssuer interface {
	Create(ctx context.Context, userID string) (*domain.Session, error)
}

// AuthHandler serves the passkey registration and sign-in ceremonies.
type AuthHandler struct {
	registration   registrationService
	authentication authenticationService
	sessions       sessionIssuer
	cookie         middleware.SessionCookie
}

// NewAuthHandler builds the handler for the ceremony endpoints.
func NewAuthHandler(registration registrationService, authentication authenticationService, sessions sessionIssuer, cookie middleware.SessionCookie) *AuthHandler {
	return &AuthHandler{
		registration:   registration,
		authentication: authentication,
		sessions:       sessions,
		cookie:         cookie,
	}
}

// RegisterOptions handles POST /register/options.
func (h *AuthHandler) RegisterOptions(c *gin.Context) {
	var req RegistrationOptionsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, NewErrorResponse("invalid request body"))
		return
	}

	options, err := h.registration.BeginRegistration(
		c.Request.Context(),
		req.Email,
		req.DisplayName,
		c.GetHeader("Origin"),
		middleware.SessionUser(c),
	)
	if err != nil {
		RespondWithMappedError(c, err, []ErrorCase{
			{Err: usecase.ErrEmailRequired, Status: http.StatusBadRequest, Message: usecase.ErrEmailRequired.Error()},
			{Err: usecase.ErrAccountExists, Status: http.StatusConflict, Message: usecase.ErrAccountExists.Error()},
		})
		return
	}

	c.JSON(http.StatusOK, options)
}

// RegisterVerify handles POST /register/verify.
func (h *AuthHandler) RegisterVerify(c *gin.Context) {
	var req RegistrationVerifyRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, NewErrorResponse("invalid request body"))
		return
	}

	user, err := h.registration.FinishRegistration(
		c.Request.Context(),
		req.Email,
		c.GetHeader("Origin"),
		middleware.SessionUser(c),
		req.Response,
	)
	if err != nil {
		RespondWithMappedError(c, err, []ErrorCase{
			{Err: usecase.ErrEmailRequired, Status: http.StatusBadRequest, Message: usecase.ErrEmailRequired.Error()},
			{Err: usecase.ErrUserNotFound, Status: http.StatusNotFound, Message: usecase.ErrUserNotFound.Error()},
			{Err: usecase.ErrChallengeExpired, Status: http.StatusBadRequest, Message: usecase.ErrChallengeExpired.Error()},
			{Err: usecase.ErrVerificationFailed, Status: http.StatusBadRequest, Message: usecase.ErrVerificationFailed.Error()},
		})
		return
	}

	h.issueSession(c, *user)
}

// AuthenticateOptions handles POST /authenticate/options.
func (h *AuthHandler) AuthenticateOptions(c *gin.Context) {
	var req AuthenticationOptionsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, NewErrorResponse("invalid request body"))
		return
	}

	options, err := h.authentication.BeginAuthentication(c.Request.Context(), req.Email, c.GetHeader("Origin"))
	if err != nil {
		RespondWithMappedError(c, err, []ErrorCase{
			{Err: usecase.ErrEmailRequired, Status: http.StatusBadRequest, Message: usecase.ErrEmailRequired.Error()},
			{Err: usecase.ErrUserNotFound, Status: http.StatusNotFound, Message: usecase.ErrUserNotFound.Error()},
			{Err: usecase.ErrNoCredentials, Status: http.StatusNotFound, Message: usecase.ErrNoCredentials.Error()},
		})
		return
	}

	c.JSON(http.StatusOK, options)
}

// AuthenticateVerify handles POST /authenticate/verify.
func (h *AuthHandler) AuthenticateVerify(c *gin.Context) {
	var req AuthenticationVerifyRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, NewErrorResponse("invalid request body"))
		return
	}

	user, err := h.authentication.FinishAuthentication(c.Request.Context(), req.Email, c.GetHeader("Origin"), req.Response)
	if err != nil {
		RespondWithMappedError(c, err, []ErrorCase{
			{Err: usecase.ErrEmailRequired, Status: http.StatusBadRequest, Message: usecase.ErrEmailRequired.Error()},
			{Err: usecase.ErrUserNotFound, Status: http.StatusNotFound, Message: usecase.ErrUserNotFound.Error()},
			{Err: usecase.ErrNoCredentials, Status: http.StatusNotFound, Message: usecase.ErrNoCredentials.Error()},
			{Err: usecase.ErrChallengeExpired, Status: http.StatusUnauthorized, Message: usecase.ErrVerificationFailed.Error()},
			{Err: usecase.ErrPossibleClone, Status: http.StatusUnauthorized, Message: usecase.ErrVerificationFailed.Error()},
			{Err: usecase.ErrVerificationFailed, Status: http.StatusUnauthorized, Message: usecase.ErrVerificationFailed.Error()},
		})
		return
	}

	h.issueSession(c, *user)
}

// issueSession persists a session row, sets the cookie and responds {ok:true}.
func (h *AuthHandler) issueSession(c *gin.Context, user domain.User) {
	session, err := h.sessions.Create(c.Request.Context(), user.ID)
	if err != nil {
		logger.WithContext(c.Request.Context()).Error("create session", zap.Error(err))
		c.JSON(http.StatusInternalServerError, NewErrorResponse(internalErrorMessage))
		return
	}

	h.cookie.Set(c, session.ID)
	c.JSON(http.StatusOK, OKResponse{OK: true})
}
