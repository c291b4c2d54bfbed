package middleware

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"cv-tailor/internal/shared/telemetry"
)

// Logging emits one request.complete line per request.
func Logging() gin.HandlerFunc {
	return func(c *gin.Context) {
		if c.Request.Method == http.MethodOptions {
			c.Next()
			return
		}

		start := time.Now()
		c.Next()

		userID, _ := c.Get(userIDKey)
		isGuest, _ := c.Get(isGuestKey)
		sessionID, _ := c.Get(sessionIDKey)

		telemetry.Info("request.complete", map[string]any{
			"request_id":  RequestIDFromContext(c),
			"method":      c.Request.Method,
			"path":        c.Request.URL.Path,
			"route":       c.FullPath(),
			"status":      c.Writer.Status(),
			"duration_ms": float64(time.Since(start).Microseconds()) / 1000.0,
			"user_id":     userID,
			"session_id":  sessionID,
			"is_guest":    isGuest,
			"client_ip":   c.ClientIP(),
			"user_agent":  c.Request.UserAgent(),
		})
	}
}
