package handlers

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/kidhack/bonfire/internal/core/domain"
	"github.com/kidhack/bonfire/internal/transport/http/middleware"
	"github.com/kidhack/bonfire/internal/usecase"
)

type backupCodeService interface {
	Generate(ctx context.Context, user domain.User) ([]string, error)
	Redeem(ctx context.Context, email, code string) (*domain.User, error)
}

// BackupCodeHandler serves recovery code generation and redemption.
type BackupCodeHandler struct {
	codes    backupCodeService
	sessions sessionIssuer
	cookie   middleware.SessionCookie
}

// NewBackupCodeHandler builds the backup code handler.
func NewBackupCodeHandler(codes backupCodeService, sessions sessionIssuer, cookie middleware.SessionCookie) *BackupCodeHandler {
	return &BackupCodeHandler{codes: codes, sessions: sessions, cookie: cookie}
}

// Generate handles POST /backup-codes. Requires a session; the plaintext
// codes appear in this response and nowhere else.
func (h *BackupCodeHandler) Generate(c *gin.Context) {
	user := middleware.SessionUser(c)
	if user == nil {
		c.JSON(http.StatusUnauthorized, NewErrorResponse("authentication required"))
		return
	}

	plaintexts, err := h.codes.Generate(c.Request.Context(), *user)
	if err != nil {
		RespondWithMappedError(c, err, []ErrorCase{
			{Err: usecase.ErrBackupCodesExist, Status: http.StatusConflict, Message: usecase.ErrBackupCodesExist.Error()},
		})
		return
	}

	c.JSON(http.StatusOK, BackupCodesResponse{OK: true, Codes: plaintexts})
}

// Redeem handles POST /backup-codes/verify. Email falls back to the session
// user when the body omits it.
func (h *BackupCodeHandler) Redeem(c *gin.Context) {
	var req RedeemBackupCodeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, NewErrorResponse("invalid request body"))
		return
	}

	email, source := usecase.ResolveEmail(req.Email, middleware.SessionUser(c))
	if source == usecase.EmailMissing {
		c.JSON(http.StatusBadRequest, NewErrorResponse(usecase.ErrEmailRequired.Error()))
		return
	}

	if usecase.NormalizeBackupCode(req.Code) == "" {
		c.JSON(http.StatusBadRequest, NewErrorResponse("backup code is required"))
		return
	}

	user, err := h.codes.Redeem(c.Request.Context(), email, req.Code)
	if err != nil {
		RespondWithMappedError(c, err, []ErrorCase{
			{Err: usecase.ErrUserNotFound, Status: http.StatusNotFound, Message: usecase.ErrUserNotFound.Error()},
			{Err: usecase.ErrInvalidBackupCode, Status: http.StatusUnauthorized, Message: usecase.ErrInvalidBackupCode.Error()},
		})
		return
	}

	session, err := h.sessions.Create(c.Request.Context(), user.ID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, NewErrorResponse(internalErrorMessage))
		return
	}

	h.cookie.Set(c, session.ID)
	c.JSON(http.StatusOK, OKResponse{OK: true})
}
