package middleware

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// CORS reflects configured origins back with credentials enabled so browsers
// attach the session cookie on cross-origin API calls. A "*" entry reflects
// any origin; the wildcard itself is never written because it cannot be
// combined with credentialed requests.
func CORS(allowedOrigins []string) gin.HandlerFunc {
	allowed := make(map[string]bool, len(allowedOrigins))
	reflectAny := false

	for _, origin := range allowedOrigins {
		if origin == "*" {
			reflectAny = true
			continue
		}
		allowed[origin] = true
	}

	return func(c *gin.Context) {
		origin := c.Request.Header.Get("Origin")
		if origin != "" && (reflectAny || allowed[origin]) {
			c.Header("Access-Control-Allow-Origin", origin)
			c.Header("Access-Control-Allow-Credentials", "true")
			c.Header("Vary", "Origin")
		}

		if c.Request.Method == http.MethodOptions {
			c.Header("Access-Control-Allow-Methods", "GET,POST,OPTIONS")
			c.Header("Access-Control-Allow-Headers", "Content-Type,X-Request-ID,X-Trace-ID")
			c.Header("Access-Control-Max-Age", "86400")

			c.AbortWithStatus(http.StatusNoContent)
			return
		}

		c.Next()
	}
}
