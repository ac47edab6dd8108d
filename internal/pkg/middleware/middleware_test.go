package middleware

import (
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestRouter() *gin.Engine {
	gin.SetMode(gin.TestMode)
	return gin.New()
}

func TestCronAuthMiddleware(t *testing.T) {
	const secret = "cron-secret"

	tests := []struct {
		name           string
		header         string
		expectedStatus int
	}{
		{name: "Valid secret", header: secret, expectedStatus: http.StatusOK},
		{name: "Missing header", header: "", expectedStatus: http.StatusUnauthorized},
		{name: "Wrong secret", header: "guess", expectedStatus: http.StatusUnauthorized},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			r := newTestRouter()
			r.POST("/run", CronAuthMiddleware(secret, slog.Default()), func(c *gin.Context) {
				c.Status(http.StatusOK)
			})

			req := httptest.NewRequest(http.MethodPost, "/run", nil)
			if tc.header != "" {
				req.Header.Set("X-Cron-Secret", tc.header)
			}
			w := httptest.NewRecorder()
			r.ServeHTTP(w, req)

			assert.Equal(t, tc.expectedStatus, w.Code)
		})
	}
}

func TestJWTAuthMiddleware(t *testing.T) {
	cfg := JWTConfig{
		SecretKey:       "test-secret-key",
		TokenExpiration: time.Hour,
		Logger:          slog.Default(),
	}

	token, err := GenerateToken(cfg, "user-123", "user@example.com")
	require.NoError(t, err)

	tests := []struct {
		name           string
		authHeader     string
		expectedStatus int
		expectedUserID string
	}{
		{name: "Valid token", authHeader: "Bearer " + token, expectedStatus: http.StatusOK, expectedUserID: "user-123"},
		{name: "Missing header", authHeader: "", expectedStatus: http.StatusUnauthorized},
		{name: "Malformed header", authHeader: "Token abc", expectedStatus: http.StatusUnauthorized},
		{name: "Garbage token", authHeader: "Bearer not.a.jwt", expectedStatus: http.StatusUnauthorized},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			r := newTestRouter()
			var gotUserID string
			r.GET("/protected", JWTAuthMiddleware(cfg), func(c *gin.Context) {
				gotUserID = GetUserIDFromContext(c)
				c.Status(http.StatusOK)
			})

			req := httptest.NewRequest(http.MethodGet, "/protected", nil)
			if tc.authHeader != "" {
				req.Header.Set("Authorization", tc.authHeader)
			}
			w := httptest.NewRecorder()
			r.ServeHTTP(w, req)

			assert.Equal(t, tc.expectedStatus, w.Code)
			if tc.expectedUserID != "" {
				assert.Equal(t, tc.expectedUserID, gotUserID)
			}
		})
	}
}

func TestJWTAuthMiddlewareRejectsExpiredToken(t *testing.T) {
	cfg := JWTConfig{
		SecretKey:       "test-secret-key",
		TokenExpiration: -time.Hour,
		Logger:          slog.Default(),
	}
	token, err := GenerateToken(cfg, "user-123", "")
	require.NoError(t, err)

	r := newTestRouter()
	r.GET("/protected", JWTAuthMiddleware(cfg), func(c *gin.Context) {
		c.Status(http.StatusOK)
	})

	req := httptest.NewRequest(http.MethodGet, "/protected", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusUnauthorized, w.Code)
}
