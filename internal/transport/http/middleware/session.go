package middleware

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/kidhack/bonfire/internal/core/domain"
)

// SessionUserKey is the gin context key under which the resolved session
// user is stored.
const SessionUserKey = "session_user"

// SessionResolver resolves a session cookie value to its user. Absent or
// expired sessions resolve to (nil, nil).
type SessionResolver interface {
	CurrentUser(ctx context.Context, sessionID string) (*domain.User, error)
}

// SessionCookie reads and writes the session cookie.
type SessionCookie struct {
	Name   string
	TTL    time.Duration
	Secure bool
}

// Read returns the cookie value or an empty string when absent.
func (sc SessionCookie) Read(c *gin.Context) string {
	value, err := c.Cookie(sc.Name)
	if err != nil {
		return ""
	}
	return value
}

// Set writes the session cookie with the configured lifetime.
func (sc SessionCookie) Set(c *gin.Context, sessionID string) {
	http.SetCookie(c.Writer, &http.Cookie{
		Name:     sc.Name,
		Value:    sessionID,
		Path:     "/",
		MaxAge:   int(sc.TTL.Seconds()),
		HttpOnly: true,
		Secure:   sc.Secure,
		SameSite: http.SameSiteLaxMode,
	})
}

// Clear overwrites the cookie with an already-expired empty value. Called
// unconditionally on sign-out, even when no session existed.
func (sc SessionCookie) Clear(c *gin.Context) {
	http.SetCookie(c.Writer, &http.Cookie{
		Name:     sc.Name,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   sc.Secure,
		SameSite: http.SameSiteLaxMode,
	})
}

// OptionalSession resolves the session cookie and stores the user on the
// context when one exists. Requests without a valid session proceed
// anonymously.
func OptionalSession(resolver SessionResolver, cookie SessionCookie, log *zap.Logger) gin.HandlerFunc {
	if log == nil {
		log = zap.NewNop()
	}

	return func(c *gin.Context) {
		sessionID := cookie.Read(c)
		if sessionID == "" {
			c.Next()
			return
		}

		user, err := resolver.CurrentUser(c.Request.Context(), sessionID)
		if err != nil {
			log.Warn("resolve session", zap.Error(err))
			c.Next()
			return
		}
		if user != nil {
			c.Set(SessionUserKey, user)
		}

		c.Next()
	}
}

// RequireSession rejects requests that do not carry a valid session.
func RequireSession(resolver SessionResolver, cookie SessionCookie, log *zap.Logger) gin.HandlerFunc {
	if log == nil {
		log = zap.NewNop()
	}

	return func(c *gin.Context) {
		sessionID := cookie.Read(c)
		if sessionID == "" {
			abortUnauthenticated(c)
			return
		}

		user, err := resolver.CurrentUser(c.Request.Context(), sessionID)
		if err != nil {
			log.Warn("resolve session", zap.Error(err))
			abortUnauthenticated(c)
			return
		}
		if user == nil {
			abortUnauthenticated(c)
			return
		}

		c.Set(SessionUserKey, user)
		c.Next()
	}
}

// SessionUser returns the user resolved by the session middleware, or nil.
func SessionUser(c *gin.Context) *domain.User {
	if value, exists := c.Get(SessionUserKey); exists {
		if user, ok := value.(*domain.User); ok {
			return user
		}
	}
	return nil
}

func abortUnauthenticated(c *gin.Context) {
	c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
		"ok":    false,
		"error": "authentication required",
	})
}
