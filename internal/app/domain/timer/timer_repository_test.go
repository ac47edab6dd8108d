package timer

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/FACorreiaa/parkspot/internal/app/models"
)

func TestFindDueOnlySelectsScheduled(t *testing.T) {
	mockPool, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mockPool.Close()

	repo := NewRepository(mockPool, zap.NewNop())

	now := time.Now()
	timerID := uuid.New()
	sessionID := uuid.New()
	userID := uuid.New()
	notifyAt := now.Add(-time.Minute)
	createdAt := now.Add(-time.Hour)

	rows := pgxmock.NewRows([]string{
		"id", "session_id", "notify_at", "buffer_seconds", "status", "fired_at", "created_at",
		"s_id", "user_id", "latitude", "longitude", "venue_name", "notes", "is_active", "s_created_at",
	}).AddRow(
		timerID, sessionID, notifyAt, 600, models.TimerStatusScheduled, (*time.Time)(nil), createdAt,
		sessionID, userID, 38.7, -9.1, (*string)(nil), (*string)(nil), true, createdAt,
	)

	// The due-set query must gate on status; that gate is what prevents
	// double-firing across overlapping runs.
	mockPool.ExpectQuery(`SELECT .+ FROM timers t JOIN parking_sessions s ON s\.id = t\.session_id WHERE t\.status = \$1 AND t\.notify_at <= \$2`).
		WithArgs(models.TimerStatusScheduled, now).
		WillReturnRows(rows)

	due, err := repo.FindDue(context.Background(), now)

	require.NoError(t, err)
	require.Len(t, due, 1)
	assert.Equal(t, timerID, due[0].Timer.ID)
	assert.Equal(t, userID, due[0].Session.UserID)
	assert.Equal(t, 600, due[0].Timer.BufferSeconds)
	assert.NoError(t, mockPool.ExpectationsWereMet())
}

func TestMarkFiredGatesOnScheduledStatus(t *testing.T) {
	mockPool, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mockPool.Close()

	repo := NewRepository(mockPool, zap.NewNop())

	firedAt := time.Now()
	id1 := uuid.New()
	id2 := uuid.New()

	mockPool.ExpectExec(`UPDATE timers SET status = \$1, fired_at = \$2 WHERE id IN \(\$3,\$4\) AND status = \$5`).
		WithArgs(models.TimerStatusFired, firedAt, id1, id2, models.TimerStatusScheduled).
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))

	marked, err := repo.MarkFired(context.Background(), []uuid.UUID{id1, id2}, firedAt)

	require.NoError(t, err)
	// One of the two was already fired by a concurrent run; the update is a
	// no-op for it.
	assert.Equal(t, int64(1), marked)
	assert.NoError(t, mockPool.ExpectationsWereMet())
}

func TestMarkFiredEmptySetSkipsDatabase(t *testing.T) {
	mockPool, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mockPool.Close()

	repo := NewRepository(mockPool, zap.NewNop())

	marked, err := repo.MarkFired(context.Background(), nil, time.Now())

	require.NoError(t, err)
	assert.Equal(t, int64(0), marked)
	assert.NoError(t, mockPool.ExpectationsWereMet())
}

func TestCreateTimerDefaultsToScheduled(t *testing.T) {
	mockPool, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mockPool.Close()

	repo := NewRepository(mockPool, zap.NewNop())

	timer := &models.Timer{
		SessionID:     uuid.New(),
		NotifyAt:      time.Now().Add(time.Hour),
		BufferSeconds: 0,
	}

	mockPool.ExpectExec(`INSERT INTO timers`).
		WithArgs(pgxmock.AnyArg(), timer.SessionID, timer.NotifyAt, 0, models.TimerStatusScheduled, pgxmock.AnyArg()).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))

	err = repo.CreateTimer(context.Background(), timer)

	require.NoError(t, err)
	assert.NotEqual(t, uuid.Nil, timer.ID)
	assert.Equal(t, models.TimerStatusScheduled, timer.Status)
	assert.NoError(t, mockPool.ExpectationsWereMet())
}
