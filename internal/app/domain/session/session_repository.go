package session

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"

	"github.com/FACorreiaa/parkspot/internal/app/models"
)

// Ensure RepositoryImpl implements the Repository interface
var _ Repository = (*RepositoryImpl)(nil)

// Repository defines the interface for parking session persistence
type Repository interface {
	CreateSession(ctx context.Context, session *models.ParkingSession) error
	GetSession(ctx context.Context, sessionID uuid.UUID) (models.ParkingSession, error)
	GetActiveSession(ctx context.Context, userID uuid.UUID) (models.ParkingSession, error)
}

// RepositoryImpl struct holds the logger and database connection pool
type RepositoryImpl struct {
	logger *zap.Logger
	pgpool *pgxpool.Pool
}

func NewRepository(pgpool *pgxpool.Pool, logger *zap.Logger) *RepositoryImpl {
	return &RepositoryImpl{
		logger: logger,
		pgpool: pgpool,
	}
}

// CreateSession inserts a new parking session and deactivates the user's
// previous active session in the same transaction, keeping the one-active-
// session-per-user invariant.
func (r *RepositoryImpl) CreateSession(ctx context.Context, session *models.ParkingSession) error {
	if session.ID == uuid.Nil {
		session.ID = uuid.New()
	}
	if session.CreatedAt.IsZero() {
		session.CreatedAt = time.Now()
	}
	session.IsActive = true

	tx, err := r.pgpool.Begin(ctx)
	if err != nil {
		r.logger.Error("Failed to begin session transaction", zap.Error(err))
		return fmt.Errorf("failed to begin session transaction: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	deactivate := `
        UPDATE parking_sessions SET is_active = FALSE
        WHERE user_id = $1 AND is_active
    `
	if _, err = tx.Exec(ctx, deactivate, session.UserID); err != nil {
		r.logger.Error("Failed to deactivate previous session", zap.Error(err))
		return fmt.Errorf("failed to deactivate previous session: %w", err)
	}

	insert := `
        INSERT INTO parking_sessions (
            id, user_id, latitude, longitude, venue_name, notes, is_active, created_at
        ) VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
    `
	if _, err = tx.Exec(ctx, insert,
		session.ID, session.UserID, session.Latitude, session.Longitude,
		session.VenueName, session.Notes, session.IsActive, session.CreatedAt,
	); err != nil {
		r.logger.Error("Failed to create session", zap.Error(err))
		return fmt.Errorf("failed to create session: %w", err)
	}

	if err = tx.Commit(ctx); err != nil {
		r.logger.Error("Failed to commit session transaction", zap.Error(err))
		return fmt.Errorf("failed to commit session transaction: %w", err)
	}
	return nil
}

// GetSession retrieves a parking session by its ID
func (r *RepositoryImpl) GetSession(ctx context.Context, sessionID uuid.UUID) (models.ParkingSession, error) {
	query := `
        SELECT id, user_id, latitude, longitude, venue_name, notes, is_active, created_at
        FROM parking_sessions
        WHERE id = $1
    `
	row := r.pgpool.QueryRow(ctx, query, sessionID)
	var s models.ParkingSession
	err := row.Scan(
		&s.ID, &s.UserID, &s.Latitude, &s.Longitude, &s.VenueName, &s.Notes, &s.IsActive, &s.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return models.ParkingSession{}, models.ErrNotFound
		}
		r.logger.Error("Failed to get session", zap.Error(err))
		return models.ParkingSession{}, fmt.Errorf("failed to get session: %w", err)
	}
	return s, nil
}

// GetActiveSession retrieves the user's currently active parking session
func (r *RepositoryImpl) GetActiveSession(ctx context.Context, userID uuid.UUID) (models.ParkingSession, error) {
	query := `
        SELECT id, user_id, latitude, longitude, venue_name, notes, is_active, created_at
        FROM parking_sessions
        WHERE user_id = $1 AND is_active
        ORDER BY created_at DESC
        LIMIT 1
    `
	row := r.pgpool.QueryRow(ctx, query, userID)
	var s models.ParkingSession
	err := row.Scan(
		&s.ID, &s.UserID, &s.Latitude, &s.Longitude, &s.VenueName, &s.Notes, &s.IsActive, &s.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return models.ParkingSession{}, models.ErrNotFound
		}
		r.logger.Error("Failed to get active session", zap.Error(err))
		return models.ParkingSession{}, fmt.Errorf("failed to get active session: %w", err)
	}
	return s, nil
}
