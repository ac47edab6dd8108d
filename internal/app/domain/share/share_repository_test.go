package share

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/FACorreiaa/parkspot/internal/app/models"
)

func TestCreateShareSupersedesPriorActive(t *testing.T) {
	mockPool, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mockPool.Close()

	repo := NewRepository(mockPool, zap.NewNop())

	share := &models.SafetyShare{
		SessionID:  uuid.New(),
		CreatorID:  uuid.New(),
		ShareToken: "token",
		ExpiresAt:  time.Now().Add(2 * time.Hour),
	}

	// Deactivation of the previous share and insertion of the new one must
	// commit together; anything else can leave two active shares.
	mockPool.ExpectBegin()
	mockPool.ExpectExec(`UPDATE safety_shares SET is_active = FALSE`).
		WithArgs(share.SessionID).
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))
	mockPool.ExpectExec(`INSERT INTO safety_shares`).
		WithArgs(pgxmock.AnyArg(), share.SessionID, share.CreatorID, share.ShareToken,
			share.RecipientName, share.RecipientPhone, share.ExpiresAt, true, pgxmock.AnyArg()).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))
	mockPool.ExpectCommit()
	mockPool.ExpectRollback()

	err = repo.CreateShare(context.Background(), share)

	require.NoError(t, err)
	assert.NotEqual(t, uuid.Nil, share.ID)
	assert.True(t, share.IsActive)
	assert.NoError(t, mockPool.ExpectationsWereMet())
}

func TestCreateShareRollsBackOnInsertFailure(t *testing.T) {
	mockPool, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mockPool.Close()

	repo := NewRepository(mockPool, zap.NewNop())

	share := &models.SafetyShare{
		SessionID:  uuid.New(),
		CreatorID:  uuid.New(),
		ShareToken: "token",
		ExpiresAt:  time.Now().Add(2 * time.Hour),
	}

	mockPool.ExpectBegin()
	mockPool.ExpectExec(`UPDATE safety_shares SET is_active = FALSE`).
		WithArgs(share.SessionID).
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))
	mockPool.ExpectExec(`INSERT INTO safety_shares`).
		WithArgs(pgxmock.AnyArg(), share.SessionID, share.CreatorID, share.ShareToken,
			share.RecipientName, share.RecipientPhone, share.ExpiresAt, true, pgxmock.AnyArg()).
		WillReturnError(pgx.ErrTxClosed)
	mockPool.ExpectRollback()

	err = repo.CreateShare(context.Background(), share)

	assert.Error(t, err)
	assert.NoError(t, mockPool.ExpectationsWereMet())
}

func TestGetShareByTokenNotFound(t *testing.T) {
	mockPool, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mockPool.Close()

	repo := NewRepository(mockPool, zap.NewNop())

	mockPool.ExpectQuery(`SELECT .+ FROM safety_shares WHERE share_token = \$1`).
		WithArgs("unknown").
		WillReturnError(pgx.ErrNoRows)

	_, err = repo.GetShareByToken(context.Background(), "unknown")

	assert.ErrorIs(t, err, models.ErrNotFound)
	assert.NoError(t, mockPool.ExpectationsWereMet())
}

func TestDeactivateExpiredReportsSweptCount(t *testing.T) {
	mockPool, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mockPool.Close()

	repo := NewRepository(mockPool, zap.NewNop())

	now := time.Now()
	mockPool.ExpectExec(`UPDATE safety_shares SET is_active = FALSE`).
		WithArgs(now).
		WillReturnResult(pgxmock.NewResult("UPDATE", 3))

	swept, err := repo.DeactivateExpired(context.Background(), now)

	require.NoError(t, err)
	assert.Equal(t, int64(3), swept)
	assert.NoError(t, mockPool.ExpectationsWereMet())
}

func TestGetRecentLocationsNewestFirst(t *testing.T) {
	mockPool, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mockPool.Close()

	repo := NewRepository(mockPool, zap.NewNop())

	shareID := uuid.New()
	newest := time.Now()
	older := newest.Add(-time.Minute)

	rows := pgxmock.NewRows([]string{
		"id", "share_id", "latitude", "longitude", "speed", "heading", "accuracy", "recorded_at",
	}).
		AddRow(uuid.New(), shareID, 38.71, -9.11, (*float64)(nil), (*float64)(nil), (*float64)(nil), newest).
		AddRow(uuid.New(), shareID, 38.70, -9.10, (*float64)(nil), (*float64)(nil), (*float64)(nil), older)

	mockPool.ExpectQuery(`SELECT .+ FROM share_locations WHERE share_id = \$1 ORDER BY recorded_at DESC LIMIT \$2`).
		WithArgs(shareID, 50).
		WillReturnRows(rows)

	locations, err := repo.GetRecentLocations(context.Background(), shareID, 50)

	require.NoError(t, err)
	require.Len(t, locations, 2)
	assert.True(t, locations[0].RecordedAt.After(locations[1].RecordedAt))
	assert.NoError(t, mockPool.ExpectationsWereMet())
}
