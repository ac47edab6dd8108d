package share

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"go.uber.org/zap"

	"github.com/FACorreiaa/parkspot/internal/app/models"
)

// PGXPool is the subset of pgxpool.Pool this repository uses, narrow enough
// for tests to drive the SQL through pgxmock.
type PGXPool interface {
	Begin(ctx context.Context) (pgx.Tx, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Exec(ctx context.Context, sql string, arguments ...any) (pgconn.CommandTag, error)
}

// Ensure RepositoryImpl implements the Repository interface
var _ Repository = (*RepositoryImpl)(nil)

// Repository defines the interface for safety share and location persistence
type Repository interface {
	// CreateShare atomically deactivates every active share for the target
	// session and inserts the new one. Partial failure rolls back.
	CreateShare(ctx context.Context, share *models.SafetyShare) error
	GetShare(ctx context.Context, shareID uuid.UUID) (models.SafetyShare, error)
	GetShareByToken(ctx context.Context, token string) (models.SafetyShare, error)
	DeactivateShare(ctx context.Context, shareID uuid.UUID) error
	DeactivateExpired(ctx context.Context, now time.Time) (int64, error)

	AppendLocation(ctx context.Context, location *models.ShareLocation) error
	GetRecentLocations(ctx context.Context, shareID uuid.UUID, limit int) ([]models.ShareLocation, error)
}

// RepositoryImpl struct holds the logger and database connection pool
type RepositoryImpl struct {
	logger *zap.Logger
	pgpool PGXPool
}

func NewRepository(pgpool PGXPool, logger *zap.Logger) *RepositoryImpl {
	return &RepositoryImpl{
		logger: logger,
		pgpool: pgpool,
	}
}

// CreateShare supersedes prior active shares for the session and inserts the
// new share in one transaction. The single-active-share invariant depends on
// both statements committing together.
func (r *RepositoryImpl) CreateShare(ctx context.Context, share *models.SafetyShare) error {
	if share.ID == uuid.Nil {
		share.ID = uuid.New()
	}
	if share.CreatedAt.IsZero() {
		share.CreatedAt = time.Now()
	}
	share.IsActive = true

	tx, err := r.pgpool.Begin(ctx)
	if err != nil {
		r.logger.Error("Failed to begin share transaction", zap.Error(err))
		return fmt.Errorf("failed to begin share transaction: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	deactivate := `
        UPDATE safety_shares SET is_active = FALSE
        WHERE session_id = $1 AND is_active
    `
	if _, err = tx.Exec(ctx, deactivate, share.SessionID); err != nil {
		r.logger.Error("Failed to deactivate previous shares", zap.Error(err))
		return fmt.Errorf("failed to deactivate previous shares: %w", err)
	}

	insert := `
        INSERT INTO safety_shares (
            id, session_id, creator_id, share_token, recipient_name,
            recipient_phone, expires_at, is_active, created_at
        ) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
    `
	if _, err = tx.Exec(ctx, insert,
		share.ID, share.SessionID, share.CreatorID, share.ShareToken,
		share.RecipientName, share.RecipientPhone, share.ExpiresAt,
		share.IsActive, share.CreatedAt,
	); err != nil {
		r.logger.Error("Failed to create share", zap.Error(err))
		return fmt.Errorf("failed to create share: %w", err)
	}

	if err = tx.Commit(ctx); err != nil {
		r.logger.Error("Failed to commit share transaction", zap.Error(err))
		return fmt.Errorf("failed to commit share transaction: %w", err)
	}
	return nil
}

// GetShare retrieves a share by its ID
func (r *RepositoryImpl) GetShare(ctx context.Context, shareID uuid.UUID) (models.SafetyShare, error) {
	query := `
        SELECT id, session_id, creator_id, share_token, recipient_name,
               recipient_phone, expires_at, is_active, created_at
        FROM safety_shares
        WHERE id = $1
    `
	row := r.pgpool.QueryRow(ctx, query, shareID)
	var s models.SafetyShare
	err := row.Scan(
		&s.ID, &s.SessionID, &s.CreatorID, &s.ShareToken, &s.RecipientName,
		&s.RecipientPhone, &s.ExpiresAt, &s.IsActive, &s.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return models.SafetyShare{}, models.ErrNotFound
		}
		r.logger.Error("Failed to get share", zap.Error(err))
		return models.SafetyShare{}, fmt.Errorf("failed to get share: %w", err)
	}
	return s, nil
}

// GetShareByToken retrieves a share by its opaque token
func (r *RepositoryImpl) GetShareByToken(ctx context.Context, token string) (models.SafetyShare, error) {
	query := `
        SELECT id, session_id, creator_id, share_token, recipient_name,
               recipient_phone, expires_at, is_active, created_at
        FROM safety_shares
        WHERE share_token = $1
    `
	row := r.pgpool.QueryRow(ctx, query, token)
	var s models.SafetyShare
	err := row.Scan(
		&s.ID, &s.SessionID, &s.CreatorID, &s.ShareToken, &s.RecipientName,
		&s.RecipientPhone, &s.ExpiresAt, &s.IsActive, &s.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return models.SafetyShare{}, models.ErrNotFound
		}
		r.logger.Error("Failed to get share by token", zap.Error(err))
		return models.SafetyShare{}, fmt.Errorf("failed to get share by token: %w", err)
	}
	return s, nil
}

// DeactivateShare flips a single share inactive. Used by lazy expiry.
func (r *RepositoryImpl) DeactivateShare(ctx context.Context, shareID uuid.UUID) error {
	query := `UPDATE safety_shares SET is_active = FALSE WHERE id = $1`
	if _, err := r.pgpool.Exec(ctx, query, shareID); err != nil {
		r.logger.Error("Failed to deactivate share", zap.String("shareID", shareID.String()), zap.Error(err))
		return fmt.Errorf("failed to deactivate share: %w", err)
	}
	return nil
}

// DeactivateExpired sweeps shares whose TTL elapsed but were never resolved
// again. Lazy expiry at read time remains the primary mechanism.
func (r *RepositoryImpl) DeactivateExpired(ctx context.Context, now time.Time) (int64, error) {
	query := `
        UPDATE safety_shares SET is_active = FALSE
        WHERE is_active AND expires_at <= $1
    `
	tag, err := r.pgpool.Exec(ctx, query, now)
	if err != nil {
		r.logger.Error("Failed to sweep expired shares", zap.Error(err))
		return 0, fmt.Errorf("failed to sweep expired shares: %w", err)
	}
	return tag.RowsAffected(), nil
}

// AppendLocation inserts one location sample. Samples are independent
// append-only rows; ordering happens at read time.
func (r *RepositoryImpl) AppendLocation(ctx context.Context, location *models.ShareLocation) error {
	if location.ID == uuid.Nil {
		location.ID = uuid.New()
	}
	if location.RecordedAt.IsZero() {
		location.RecordedAt = time.Now()
	}

	query := `
        INSERT INTO share_locations (
            id, share_id, latitude, longitude, speed, heading, accuracy, recorded_at
        ) VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
    `
	_, err := r.pgpool.Exec(ctx, query,
		location.ID, location.ShareID, location.Latitude, location.Longitude,
		location.Speed, location.Heading, location.Accuracy, location.RecordedAt,
	)
	if err != nil {
		r.logger.Error("Failed to append share location", zap.Error(err))
		return fmt.Errorf("failed to append share location: %w", err)
	}
	return nil
}

// GetRecentLocations retrieves the newest samples for a share, newest first
func (r *RepositoryImpl) GetRecentLocations(ctx context.Context, shareID uuid.UUID, limit int) ([]models.ShareLocation, error) {
	query := `
        SELECT id, share_id, latitude, longitude, speed, heading, accuracy, recorded_at
        FROM share_locations
        WHERE share_id = $1
        ORDER BY recorded_at DESC
        LIMIT $2
    `
	rows, err := r.pgpool.Query(ctx, query, shareID, limit)
	if err != nil {
		r.logger.Error("Failed to get share locations", zap.Error(err))
		return nil, fmt.Errorf("failed to get share locations: %w", err)
	}
	defer rows.Close()

	var locations []models.ShareLocation
	for rows.Next() {
		var l models.ShareLocation
		err := rows.Scan(
			&l.ID, &l.ShareID, &l.Latitude, &l.Longitude,
			&l.Speed, &l.Heading, &l.Accuracy, &l.RecordedAt,
		)
		if err != nil {
			r.logger.Error("Failed to scan share location", zap.Error(err))
			return nil, fmt.Errorf("failed to scan share location: %w", err)
		}
		locations = append(locations, l)
	}
	if err = rows.Err(); err != nil {
		r.logger.Error("Error iterating share location rows", zap.Error(err))
		return nil, fmt.Errorf("error iterating share location rows: %w", err)
	}
	return locations, nil
}
