package notify

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"

	"github.com/FACorreiaa/parkspot/internal/app/models"
)

// Ensure DeviceRepositoryImpl implements the DeviceRepository interface
var _ DeviceRepository = (*DeviceRepositoryImpl)(nil)

// DeviceRepository resolves the devices registered for a user. Devices are
// looked up at dispatch time, never cached, so a device registered moments
// ago still receives pending reminders.
type DeviceRepository interface {
	ListActiveDevices(ctx context.Context, userID uuid.UUID) ([]models.Device, error)
}

// DeviceRepositoryImpl struct holds the logger and database connection pool
type DeviceRepositoryImpl struct {
	logger *zap.Logger
	pgpool *pgxpool.Pool
}

func NewDeviceRepository(pgpool *pgxpool.Pool, logger *zap.Logger) *DeviceRepositoryImpl {
	return &DeviceRepositoryImpl{
		logger: logger,
		pgpool: pgpool,
	}
}

// ListActiveDevices retrieves every active device registered to a user
func (r *DeviceRepositoryImpl) ListActiveDevices(ctx context.Context, userID uuid.UUID) ([]models.Device, error) {
	query := `
        SELECT id, user_id, push_token, platform, is_active, created_at
        FROM devices
        WHERE user_id = $1 AND is_active
        ORDER BY created_at
    `
	rows, err := r.pgpool.Query(ctx, query, userID)
	if err != nil {
		r.logger.Error("Failed to list devices", zap.Error(err))
		return nil, fmt.Errorf("failed to list devices: %w", err)
	}
	defer rows.Close()

	var devices []models.Device
	for rows.Next() {
		var d models.Device
		err := rows.Scan(&d.ID, &d.UserID, &d.PushToken, &d.Platform, &d.IsActive, &d.CreatedAt)
		if err != nil {
			r.logger.Error("Failed to scan device", zap.Error(err))
			return nil, fmt.Errorf("failed to scan device: %w", err)
		}
		devices = append(devices, d)
	}
	if err = rows.Err(); err != nil {
		r.logger.Error("Error iterating device rows", zap.Error(err))
		return nil, fmt.Errorf("error iterating device rows: %w", err)
	}
	return devices, nil
}
