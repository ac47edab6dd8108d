package billing

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"

	"github.com/FACorreiaa/parkspot/internal/app/models"
)

// Ensure RepositoryImpl implements the Repository interface
var _ Repository = (*RepositoryImpl)(nil)

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

// GetStripeCustomerID retrieves the Stripe customer mapped to a user
func (r *RepositoryImpl) GetStripeCustomerID(ctx context.Context, userID uuid.UUID) (string, error) {
	query := `SELECT stripe_customer_id FROM user_subscriptions WHERE user_id = $1`
	var customerID string
	err := r.pgpool.QueryRow(ctx, query, userID).Scan(&customerID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return "", models.ErrNotFound
		}
		r.logger.Error("Failed to get stripe customer", zap.Error(err))
		return "", fmt.Errorf("failed to get stripe customer: %w", err)
	}
	return customerID, nil
}
