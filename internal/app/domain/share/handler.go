package share

import (
	"errors"
	"net/http"

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

type startShareRequest struct {
	SessionID      string  `json:"session_id" binding:"required"`
	TTLMinutes     int     `json:"ttl_minutes"`
	RecipientName  *string `json:"recipient_name,omitempty"`
	RecipientPhone *string `json:"recipient_phone,omitempty"`
}

// StartShare handles POST /api/shares
func (h *Handler) StartShare(c *gin.Context) {
	userIDStr := middleware.GetUserIDFromContext(c)
	if userIDStr == "" {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
		return
	}
	ownerID, err := uuid.Parse(userIDStr)
	if err != nil {
		h.log.Error("Invalid user ID", zap.String("userID", userIDStr), zap.Error(err))
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid user ID"})
		return
	}

	var req startShareRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body"})
		return
	}
	sessionID, err := uuid.Parse(req.SessionID)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid session_id"})
		return
	}

	result, err := h.service.StartShare(c.Request.Context(), sessionID, ownerID, req.TTLMinutes, req.RecipientName, req.RecipientPhone)
	if err != nil {
		switch {
		case errors.Is(err, models.ErrNotFound):
			c.JSON(http.StatusNotFound, gin.H{"error": "Session not found"})
		case errors.Is(err, models.ErrForbidden):
			c.JSON(http.StatusForbidden, gin.H{"error": "Session not owned by caller"})
		case errors.Is(err, models.ErrPremiumRequired):
			c.JSON(http.StatusPaymentRequired, gin.H{"error": "Premium subscription required"})
		case errors.Is(err, models.ErrBadRequest):
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid share duration"})
		default:
			h.log.Error("Failed to start share", zap.String("sessionID", sessionID.String()), zap.Error(err))
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to start share"})
		}
		return
	}

	c.JSON(http.StatusCreated, result)
}

type appendLocationRequest struct {
	Latitude  float64  `json:"latitude" binding:"required"`
	Longitude float64  `json:"longitude" binding:"required"`
	Speed     *float64 `json:"speed,omitempty"`
	Heading   *float64 `json:"heading,omitempty"`
	Accuracy  *float64 `json:"accuracy,omitempty"`
}

// AppendLocation handles POST /api/shares/:shareID/locations
func (h *Handler) AppendLocation(c *gin.Context) {
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

	shareID, err := uuid.Parse(c.Param("shareID"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid share ID"})
		return
	}

	var req appendLocationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body"})
		return
	}

	err = h.service.AppendLocation(c.Request.Context(), callerID, shareID, req.Latitude, req.Longitude, req.Speed, req.Heading, req.Accuracy)
	if err != nil {
		switch {
		case errors.Is(err, models.ErrNotFound):
			c.JSON(http.StatusNotFound, gin.H{"error": "Share not active"})
		case errors.Is(err, models.ErrForbidden):
			c.JSON(http.StatusForbidden, gin.H{"error": "Share not owned by caller"})
		default:
			h.log.Error("Failed to append location", zap.String("shareID", shareID.String()), zap.Error(err))
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to append location"})
		}
		return
	}

	c.Status(http.StatusAccepted)
}

// ResolveShare handles GET /shares/view?token=...
// The token is the only credential; the route is unauthenticated.
func (h *Handler) ResolveShare(c *gin.Context) {
	token := c.Query("token")
	if token == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "token query parameter required"})
		return
	}

	view, err := h.service.ResolveShare(c.Request.Context(), token)
	if err != nil {
		switch {
		case errors.Is(err, models.ErrNotFound):
			c.JSON(http.StatusNotFound, gin.H{"error": "Share not found"})
		case errors.Is(err, models.ErrShareExpired):
			c.JSON(http.StatusGone, gin.H{"error": "Share has expired"})
		default:
			h.log.Error("Failed to resolve share", zap.Error(err))
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to resolve share"})
		}
		return
	}

	c.JSON(http.StatusOK, view)
}
