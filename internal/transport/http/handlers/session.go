package handlers

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/kidhack/bonfire/internal/core/domain"
	"github.com/kidhack/bonfire/internal/infra/logger"
	"github.com/kidhack/bonfire/internal/transport/http/middleware"
)

type sessionService interface {
	CurrentUser(ctx context.Context, sessionID string) (*domain.User, error)
	SignOut(ctx context.Context, sessionID string) error
}

// SessionHandler serves the session query and sign-out endpoints.
type SessionHandler struct {
	sessions sessionService
	cookie   middleware.SessionCookie
}

// NewSessionHandler builds the session handler.
func NewSessionHandler(sessions sessionService, cookie middleware.SessionCookie) *SessionHandler {
	return &SessionHandler{sessions: sessions, cookie: cookie}
}

// Current handles GET /session. It never fails: an unresolvable session is
// reported as a null user, with the cause only in the server log.
func (h *SessionHandler) Current(c *gin.Context) {
	sessionID := h.cookie.Read(c)
	if sessionID == "" {
		c.JSON(http.StatusOK, SessionResponse{User: nil})
		return
	}

	user, err := h.sessions.CurrentUser(c.Request.Context(), sessionID)
	if err != nil {
		logger.WithContext(c.Request.Context()).Error("resolve session", zap.Error(err))
		c.JSON(http.StatusOK, SessionResponse{User: nil})
		return
	}
	if user == nil {
		c.JSON(http.StatusOK, SessionResponse{User: nil})
		return
	}

	c.JSON(http.StatusOK, SessionResponse{User: newUserPayload(*user)})
}

// SignOut handles POST /sign-out. The cookie is overwritten with an expired
// value even when no session existed.
func (h *SessionHandler) SignOut(c *gin.Context) {
	sessionID := h.cookie.Read(c)
	if sessionID != "" {
		if err := h.sessions.SignOut(c.Request.Context(), sessionID); err != nil {
			logger.WithContext(c.Request.Context()).Error("sign out", zap.Error(err))
		}
	}

	h.cookie.Clear(c)
	c.JSON(http.StatusOK, OKResponse{OK: true})
}
