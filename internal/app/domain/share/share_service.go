package share

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/FACorreiaa/parkspot/internal/app/models"
	"github.com/FACorreiaa/parkspot/internal/app/observability/metrics"
)

const (
	// tokenBytes yields 256 bits of entropy per token.
	tokenBytes = 32

	// maxLocationWindow bounds how many samples a resolve returns. Older
	// samples stay in storage for audit but are not served.
	maxLocationWindow = 50

	defaultTTLMinutes = 120
	maxTTLMinutes     = 24 * 60
)

// SessionReader is the narrow view of the session store this service needs.
type SessionReader interface {
	GetSession(ctx context.Context, sessionID uuid.UUID) (models.ParkingSession, error)
}

// EntitlementChecker answers whether a user holds the premium capability.
type EntitlementChecker interface {
	HasPremium(ctx context.Context, userID uuid.UUID) (bool, error)
}

// Ensure implementation satisfies the interface
var _ Service = (*ServiceImpl)(nil)

// Service defines the business logic contract for safety shares: creating
// and resolving token-addressable shares and recording location samples.
type Service interface {
	StartShare(ctx context.Context, sessionID, ownerID uuid.UUID, ttlMinutes int, recipientName, recipientPhone *string) (*models.StartShareResult, error)
	ResolveShare(ctx context.Context, token string) (*models.ShareView, error)
	AppendLocation(ctx context.Context, callerID, shareID uuid.UUID, latitude, longitude float64, speed, heading, accuracy *float64) error
}

// ServiceImpl provides the implementation for Service.
type ServiceImpl struct {
	logger       *zap.Logger
	repo         Repository
	sessions     SessionReader
	entitlements EntitlementChecker
	shareBaseURL string
}

// NewService creates a new share service instance.
func NewService(repo Repository, sessions SessionReader, entitlements EntitlementChecker, shareBaseURL string, logger *zap.Logger) *ServiceImpl {
	return &ServiceImpl{
		logger:       logger,
		repo:         repo,
		sessions:     sessions,
		entitlements: entitlements,
		shareBaseURL: shareBaseURL,
	}
}

// StartShare creates a new live-location share for a session the caller
// owns. Any previously active share for the session is deactivated in the
// same storage transaction; a partial failure there is fatal, not retried.
func (s *ServiceImpl) StartShare(ctx context.Context, sessionID, ownerID uuid.UUID, ttlMinutes int, recipientName, recipientPhone *string) (*models.StartShareResult, error) {
	ctx, span := otel.Tracer("shareService").Start(ctx, "StartShare", trace.WithAttributes(
		attribute.String("session.id", sessionID.String()),
		attribute.String("owner.id", ownerID.String()),
	))
	defer span.End()

	l := s.logger.With(zap.String("method", "StartShare"),
		zap.String("sessionID", sessionID.String()), zap.String("ownerID", ownerID.String()))

	if ttlMinutes <= 0 {
		ttlMinutes = defaultTTLMinutes
	}
	if ttlMinutes > maxTTLMinutes {
		return nil, models.ErrBadRequest
	}

	session, err := s.sessions.GetSession(ctx, sessionID)
	if err != nil {
		span.RecordError(err)
		return nil, err
	}
	if session.UserID != ownerID {
		l.Warn("Share attempt on session not owned by caller")
		return nil, models.ErrForbidden
	}

	premium, err := s.entitlements.HasPremium(ctx, ownerID)
	if err != nil {
		l.Error("Failed to check premium entitlement", zap.Error(err))
		span.RecordError(err)
		return nil, fmt.Errorf("error checking premium entitlement: %w", err)
	}
	if !premium {
		return nil, models.ErrPremiumRequired
	}

	token, err := generateShareToken()
	if err != nil {
		l.Error("Failed to generate share token", zap.Error(err))
		span.RecordError(err)
		return nil, fmt.Errorf("error generating share token: %w", err)
	}

	share := &models.SafetyShare{
		SessionID:      sessionID,
		CreatorID:      ownerID,
		ShareToken:     token,
		RecipientName:  recipientName,
		RecipientPhone: recipientPhone,
		ExpiresAt:      time.Now().Add(time.Duration(ttlMinutes) * time.Minute),
	}
	if err := s.repo.CreateShare(ctx, share); err != nil {
		l.Error("Failed to create share", zap.Error(err))
		span.RecordError(err)
		span.SetStatus(codes.Error, "Failed to create share")
		return nil, fmt.Errorf("error creating share: %w", err)
	}

	l.Info("Share started", zap.String("shareID", share.ID.String()),
		zap.Time("expiresAt", share.ExpiresAt))
	if m := metrics.Get(); m != nil {
		m.SharesStartedTotal.Add(ctx, 1)
	}
	span.SetStatus(codes.Ok, "Share started")
	return &models.StartShareResult{
		ShareID:   share.ID,
		Token:     token,
		ShareURL:  fmt.Sprintf("%s/view?token=%s", s.shareBaseURL, token),
		ExpiresAt: share.ExpiresAt,
	}, nil
}

// ResolveShare resolves a token to the live share view. Unknown tokens and
// unexpired inactive shares yield ErrNotFound; an elapsed TTL yields
// ErrShareExpired on every resolve and flips the share inactive on the first
// one, so expiry is enforced even without a sweep.
func (s *ServiceImpl) ResolveShare(ctx context.Context, token string) (*models.ShareView, error) {
	ctx, span := otel.Tracer("shareService").Start(ctx, "ResolveShare")
	defer span.End()

	l := s.logger.With(zap.String("method", "ResolveShare"))

	share, err := s.repo.GetShareByToken(ctx, token)
	if err != nil {
		span.RecordError(err)
		s.countResolution(ctx, "not_found")
		return nil, err
	}
	if time.Now().After(share.ExpiresAt) {
		// Expiry wins over the active flag so the token keeps answering
		// "expired" after the first resolve (or the sweep) flipped it
		// inactive. The deactivation write is only issued while the flag is
		// still set; if it fails the next resolve or the sweep retries it.
		if share.IsActive {
			if err := s.repo.DeactivateShare(ctx, share.ID); err != nil {
				l.Warn("Failed to deactivate expired share", zap.String("shareID", share.ID.String()), zap.Error(err))
			}
		}
		s.countResolution(ctx, "expired")
		return nil, models.ErrShareExpired
	}
	if !share.IsActive {
		s.countResolution(ctx, "not_found")
		return nil, models.ErrNotFound
	}

	session, err := s.sessions.GetSession(ctx, share.SessionID)
	if err != nil {
		l.Error("Failed to load session for share", zap.String("shareID", share.ID.String()), zap.Error(err))
		span.RecordError(err)
		return nil, fmt.Errorf("error loading session for share: %w", err)
	}

	locations, err := s.repo.GetRecentLocations(ctx, share.ID, maxLocationWindow)
	if err != nil {
		l.Error("Failed to load share locations", zap.String("shareID", share.ID.String()), zap.Error(err))
		span.RecordError(err)
		return nil, fmt.Errorf("error loading share locations: %w", err)
	}

	view := &models.ShareView{
		ShareID:   share.ID,
		Active:    true,
		ExpiresAt: share.ExpiresAt,
		Destination: models.Destination{
			Latitude:  session.Latitude,
			Longitude: session.Longitude,
			VenueName: session.VenueName,
			Notes:     session.Notes,
		},
		Locations: locations,
	}
	if len(locations) > 0 {
		view.LatestLocation = &locations[0]
	}
	s.countResolution(ctx, "ok")
	span.SetStatus(codes.Ok, "Share resolved")
	return view, nil
}

func (s *ServiceImpl) countResolution(ctx context.Context, outcome string) {
	if m := metrics.Get(); m != nil {
		metrics.CountOutcome(ctx, m.ShareResolutionsTotal, 1, outcome)
	}
}

// AppendLocation records one location sample against an active share.
// Storage failures are logged and swallowed; losing a single sample must
// never fail the tracking workflow that produced it.
func (s *ServiceImpl) AppendLocation(ctx context.Context, callerID, shareID uuid.UUID, latitude, longitude float64, speed, heading, accuracy *float64) error {
	ctx, span := otel.Tracer("shareService").Start(ctx, "AppendLocation", trace.WithAttributes(
		attribute.String("share.id", shareID.String()),
	))
	defer span.End()

	share, err := s.repo.GetShare(ctx, shareID)
	if err != nil {
		span.RecordError(err)
		return err
	}
	if share.CreatorID != callerID {
		return models.ErrForbidden
	}
	if !share.IsActive || time.Now().After(share.ExpiresAt) {
		return models.ErrNotFound
	}

	location := &models.ShareLocation{
		ShareID:   shareID,
		Latitude:  latitude,
		Longitude: longitude,
		Speed:     speed,
		Heading:   heading,
		Accuracy:  accuracy,
	}
	if err := s.repo.AppendLocation(ctx, location); err != nil {
		s.logger.Warn("Dropping location sample after append failure",
			zap.String("shareID", shareID.String()), zap.Error(err))
		span.RecordError(err)
		return nil
	}
	return nil
}

func generateShareToken() (string, error) {
	buf := make([]byte, tokenBytes)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("failed to read random bytes: %w", err)
	}
	return base64.RawURLEncoding.EncodeToString(buf), nil
}
