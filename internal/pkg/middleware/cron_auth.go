package middleware

import (
	"crypto/subtle"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"
)

// CronAuthMiddleware guards internally-triggered endpoints (the reminder
// scheduler run) with a shared secret header instead of a user JWT.
func CronAuthMiddleware(secret string, logger *slog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		provided := c.GetHeader("X-Cron-Secret")
		if provided == "" || subtle.ConstantTimeCompare([]byte(provided), []byte(secret)) != 1 {
			logger.Warn("Rejected cron trigger with bad secret",
				slog.String("path", c.Request.URL.Path),
				slog.String("ip", c.ClientIP()))
			c.JSON(http.StatusUnauthorized, gin.H{
				"error": "Invalid cron secret",
			})
			c.Abort()
			return
		}
		c.Next()
	}
}
