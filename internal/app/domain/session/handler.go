package session

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

type saveSpotRequest struct {
	Latitude  float64 `json:"latitude" binding:"required"`
	Longitude float64 `json:"longitude" binding:"required"`
	VenueName *string `json:"venue_name,omitempty"`
	Notes     *string `json:"notes,omitempty"`
}

// SaveSpot handles POST /api/sessions
func (h *Handler) SaveSpot(c *gin.Context) {
	userID, ok := h.callerID(c)
	if !ok {
		return
	}

	var req saveSpotRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body"})
		return
	}

	session, err := h.service.SaveSpot(c.Request.Context(), userID, req.Latitude, req.Longitude, req.VenueName, req.Notes)
	if err != nil {
		if errors.Is(err, models.ErrBadRequest) {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid coordinates"})
			return
		}
		h.log.Error("Failed to save parking spot", zap.String("userID", userID.String()), zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to save parking spot"})
		return
	}

	c.JSON(http.StatusCreated, session)
}

// GetCurrent handles GET /api/sessions/current
func (h *Handler) GetCurrent(c *gin.Context) {
	userID, ok := h.callerID(c)
	if !ok {
		return
	}

	session, err := h.service.GetActiveSession(c.Request.Context(), userID)
	if err != nil {
		if errors.Is(err, models.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "No active parking session"})
			return
		}
		h.log.Error("Failed to get active session", zap.String("userID", userID.String()), zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to load session"})
		return
	}

	c.JSON(http.StatusOK, session)
}

func (h *Handler) callerID(c *gin.Context) (uuid.UUID, bool) {
	userIDStr := middleware.GetUserIDFromContext(c)
	if userIDStr == "" {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
		return uuid.Nil, false
	}
	userID, err := uuid.Parse(userIDStr)
	if err != nil {
		h.log.Error("Invalid user ID", zap.String("userID", userIDStr), zap.Error(err))
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid user ID"})
		return uuid.Nil, false
	}
	return userID, true
}
