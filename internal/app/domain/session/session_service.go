package session

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/FACorreiaa/parkspot/internal/app/models"
)

// Ensure implementation satisfies the interface
var _ Service = (*ServiceImpl)(nil)

// Service defines the business logic contract for parking sessions.
type Service interface {
	SaveSpot(ctx context.Context, userID uuid.UUID, latitude, longitude float64, venueName, notes *string) (*models.ParkingSession, error)
	GetActiveSession(ctx context.Context, userID uuid.UUID) (*models.ParkingSession, error)
}

// ServiceImpl provides the implementation for Service.
type ServiceImpl struct {
	logger *zap.Logger
	repo   Repository
}

// NewService creates a new session service instance.
func NewService(repo Repository, logger *zap.Logger) *ServiceImpl {
	return &ServiceImpl{
		logger: logger,
		repo:   repo,
	}
}

// SaveSpot records where the user parked. The previous active session for
// the user is superseded by the new one.
func (s *ServiceImpl) SaveSpot(ctx context.Context, userID uuid.UUID, latitude, longitude float64, venueName, notes *string) (*models.ParkingSession, error) {
	ctx, span := otel.Tracer("sessionService").Start(ctx, "SaveSpot", trace.WithAttributes(
		attribute.String("user.id", userID.String()),
	))
	defer span.End()

	l := s.logger.With(zap.String("method", "SaveSpot"), zap.String("userID", userID.String()))

	if latitude < -90 || latitude > 90 || longitude < -180 || longitude > 180 {
		return nil, models.ErrBadRequest
	}

	session := &models.ParkingSession{
		UserID:    userID,
		Latitude:  latitude,
		Longitude: longitude,
		VenueName: venueName,
		Notes:     notes,
	}
	if err := s.repo.CreateSession(ctx, session); err != nil {
		l.Error("Failed to save parking spot", zap.Error(err))
		span.RecordError(err)
		span.SetStatus(codes.Error, "Failed to save parking spot")
		return nil, fmt.Errorf("error saving parking spot: %w", err)
	}

	l.Info("Parking spot saved", zap.String("sessionID", session.ID.String()))
	span.SetStatus(codes.Ok, "Parking spot saved")
	return session, nil
}

// GetActiveSession returns the user's current parked-car session.
func (s *ServiceImpl) GetActiveSession(ctx context.Context, userID uuid.UUID) (*models.ParkingSession, error) {
	ctx, span := otel.Tracer("sessionService").Start(ctx, "GetActiveSession", trace.WithAttributes(
		attribute.String("user.id", userID.String()),
	))
	defer span.End()

	session, err := s.repo.GetActiveSession(ctx, userID)
	if err != nil {
		span.RecordError(err)
		return nil, err
	}
	return &session, nil
}
