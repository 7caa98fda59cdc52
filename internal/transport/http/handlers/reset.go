package handlers

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/kidhack/bonfire/internal/core/domain"
	"github.com/kidhack/bonfire/internal/transport/http/middleware"
	"github.com/kidhack/bonfire/internal/usecase"
)

type resetService interface {
	Reset(ctx context.Context, user domain.User) error
}

// ResetHandler serves the full account reset endpoint.
type ResetHandler struct {
	reset  resetService
	cookie middleware.SessionCookie
}

// NewResetHandler builds the reset handler.
func NewResetHandler(reset resetService, cookie middleware.SessionCookie) *ResetHandler {
	return &ResetHandler{reset: reset, cookie: cookie}
}

// Reset handles POST /reset. Deletes the account and everything it owns;
// the session cookie is cleared so the deleted session cannot be replayed.
func (h *ResetHandler) Reset(c *gin.Context) {
	user := middleware.SessionUser(c)
	if user == nil {
		c.JSON(http.StatusUnauthorized, NewErrorResponse("authentication required"))
		return
	}

	if err := h.reset.Reset(c.Request.Context(), *user); err != nil {
		RespondWithMappedError(c, err, []ErrorCase{
			{Err: usecase.ErrUserNotFound, Status: http.StatusNotFound, Message: usecase.ErrUserNotFound.Error()},
		})
		return
	}

	h.cookie.Clear(c)
	c.JSON(http.StatusOK, OKResponse{OK: true})
}
