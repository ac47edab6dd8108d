package timer

import (
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/FACorreiaa/parkspot/internal/app/models"
	"github.com/FACorreiaa/parkspot/internal/pkg/middleware"
)

type Handler struct {
	service Service
	log     *zap.Logger
}

func NewHandler(service Service, log *zap.Logger) *Handler {
	return &Handler{
		service: service,
		log:     log,
	}
}

// Run handles POST /api/reminders/run, the cron trigger. Guarded by the
// cron secret middleware, not user auth.
func (h *Handler) Run(c *gin.Context) {
	report, err := h.service.Run(c.Request.Context())
	if err != nil {
		h.log.Error("Scheduler run failed", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{
			"error":  "Scheduler run failed",
			"report": report,
		})
		return
	}

	c.JSON(http.StatusOK, report)
}

type createTimerRequest struct {
	SessionID     string    `json:"session_id" binding:"required"`
	NotifyAt      time.Time `json:"notify_at" binding:"required"`
	BufferSeconds int       `json:"buffer_seconds"`
}

// CreateTimer handles POST /api/timers
func (h *Handler) CreateTimer(c *gin.Context) {
	userIDStr := middleware.GetUserIDFromContext(c)
	if userIDStr == "" {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
		return
	}
	callerID, err := uuid.Parse(userIDStr)
	if err != nil {
		h.log.Error("Invalid user ID", zap.String("userID", userIDStr), zap.Error(err))
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid user ID"})
		return
	}

	var req createTimerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body"})
		return
	}
	sessionID, err := uuid.Parse(req.SessionID)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid session_id"})
		return
	}

	timer, err := h.service.CreateTimer(c.Request.Context(), callerID, sessionID, req.NotifyAt, req.BufferSeconds)
	if err != nil {
		switch {
		case errors.Is(err, models.ErrNotFound):
			c.JSON(http.StatusNotFound, gin.H{"error": "Session not found"})
		case errors.Is(err, models.ErrForbidden):
			c.JSON(http.StatusForbidden, gin.H{"error": "Session not owned by caller"})
		case errors.Is(err, models.ErrBadRequest):
			c.JSON(http.StatusBadRequest, gin.H{"error": "notify_at must be in the future"})
		default:
			h.log.Error("Failed to create timer", zap.String("sessionID", sessionID.String()), zap.Error(err))
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to create timer"})
		}
		return
	}

	c.JSON(http.StatusCreated, timer)
}
