package timer

import (
	"context"
	"fmt"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"go.uber.org/zap"

	"github.com/FACorreiaa/parkspot/internal/app/models"
)

var psql = sq.StatementBuilder.PlaceholderFormat(sq.Dollar)

// PGXPool is the subset of pgxpool.Pool this repository uses, narrow enough
// for tests to drive the SQL through pgxmock.
type PGXPool interface {
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	Exec(ctx context.Context, sql string, arguments ...any) (pgconn.CommandTag, error)
}

// Ensure RepositoryImpl implements the Repository interface
var _ Repository = (*RepositoryImpl)(nil)

// Repository defines the interface for reminder timer persistence
type Repository interface {
	CreateTimer(ctx context.Context, timer *models.Timer) error
	// FindDue returns every scheduled timer whose notify_at has passed,
	// joined with its owning session. The status gate in the query is what
	// keeps overlapping scheduler runs from double-firing a timer.
	FindDue(ctx context.Context, now time.Time) ([]models.DueTimer, error)
	// MarkFired transitions the given timers to fired. The WHERE clause
	// re-checks status so a timer already fired by a concurrent run is a
	// no-op for the loser.
	MarkFired(ctx context.Context, timerIDs []uuid.UUID, firedAt time.Time) (int64, error)
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

// CreateTimer inserts a new reminder timer in the scheduled state
func (r *RepositoryImpl) CreateTimer(ctx context.Context, timer *models.Timer) error {
	if timer.ID == uuid.Nil {
		timer.ID = uuid.New()
	}
	if timer.CreatedAt.IsZero() {
		timer.CreatedAt = time.Now()
	}
	timer.Status = models.TimerStatusScheduled

	query, args, err := psql.Insert("timers").
		Columns("id", "session_id", "notify_at", "buffer_seconds", "status", "created_at").
		Values(timer.ID, timer.SessionID, timer.NotifyAt, timer.BufferSeconds, timer.Status, timer.CreatedAt).
		ToSql()
	if err != nil {
		return fmt.Errorf("failed to build timer insert: %w", err)
	}

	if _, err := r.pgpool.Exec(ctx, query, args...); err != nil {
		r.logger.Error("Failed to create timer", zap.Error(err))
		return fmt.Errorf("failed to create timer: %w", err)
	}
	return nil
}

// FindDue selects the due-set for one scheduler invocation
func (r *RepositoryImpl) FindDue(ctx context.Context, now time.Time) ([]models.DueTimer, error) {
	query, args, err := psql.Select(
		"t.id", "t.session_id", "t.notify_at", "t.buffer_seconds", "t.status", "t.fired_at", "t.created_at",
		"s.id", "s.user_id", "s.latitude", "s.longitude", "s.venue_name", "s.notes", "s.is_active", "s.created_at",
	).
		From("timers t").
		Join("parking_sessions s ON s.id = t.session_id").
		Where(sq.Eq{"t.status": models.TimerStatusScheduled}).
		Where(sq.LtOrEq{"t.notify_at": now}).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to build due-set query: %w", err)
	}

	rows, err := r.pgpool.Query(ctx, query, args...)
	if err != nil {
		r.logger.Error("Failed to query due timers", zap.Error(err))
		return nil, fmt.Errorf("failed to query due timers: %w", err)
	}
	defer rows.Close()

	var due []models.DueTimer
	for rows.Next() {
		var d models.DueTimer
		err := rows.Scan(
			&d.Timer.ID, &d.Timer.SessionID, &d.Timer.NotifyAt, &d.Timer.BufferSeconds,
			&d.Timer.Status, &d.Timer.FiredAt, &d.Timer.CreatedAt,
			&d.Session.ID, &d.Session.UserID, &d.Session.Latitude, &d.Session.Longitude,
			&d.Session.VenueName, &d.Session.Notes, &d.Session.IsActive, &d.Session.CreatedAt,
		)
		if err != nil {
			r.logger.Error("Failed to scan due timer", zap.Error(err))
			return nil, fmt.Errorf("failed to scan due timer: %w", err)
		}
		due = append(due, d)
	}
	if err = rows.Err(); err != nil {
		r.logger.Error("Error iterating due timer rows", zap.Error(err))
		return nil, fmt.Errorf("error iterating due timer rows: %w", err)
	}
	return due, nil
}

// MarkFired batch-updates processed timers, gated on status = scheduled
func (r *RepositoryImpl) MarkFired(ctx context.Context, timerIDs []uuid.UUID, firedAt time.Time) (int64, error) {
	if len(timerIDs) == 0 {
		return 0, nil
	}

	query, args, err := psql.Update("timers").
		Set("status", models.TimerStatusFired).
		Set("fired_at", firedAt).
		Where(sq.Eq{"id": timerIDs}).
		Where(sq.Eq{"status": models.TimerStatusScheduled}).
		ToSql()
	if err != nil {
		return 0, fmt.Errorf("failed to build mark-fired update: %w", err)
	}

	tag, err := r.pgpool.Exec(ctx, query, args...)
	if err != nil {
		r.logger.Error("Failed to mark timers fired", zap.Int("count", len(timerIDs)), zap.Error(err))
		return 0, fmt.Errorf("failed to mark timers fired: %w", err)
	}
	return tag.RowsAffected(), nil
}
