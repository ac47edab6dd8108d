package billing

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"go.uber.org/zap"

	"github.com/FACorreiaa/parkspot/internal/app/models"
)

// MockbillingRepo is a mock implementation of Repository
type MockbillingRepo struct {
	mock.Mock
}

func (m *MockbillingRepo) GetStripeCustomerID(ctx context.Context, userID uuid.UUID) (string, error) {
	args := m.Called(ctx, userID)
	return args.String(0), args.Error(1)
}

func TestHasPremiumWithoutStripeMapping(t *testing.T) {
	ctx := context.Background()
	userID := uuid.New()

	mockRepo := new(MockbillingRepo)
	service := NewService(mockRepo, "", zap.NewNop())

	// A user the webhook processor never saw is simply not premium.
	mockRepo.On("GetStripeCustomerID", mock.Anything, userID).Return("", models.ErrNotFound).Once()

	premium, err := service.HasPremium(ctx, userID)

	assert.NoError(t, err)
	assert.False(t, premium)
	mockRepo.AssertExpectations(t)
}

func TestHasPremiumCachesResult(t *testing.T) {
	ctx := context.Background()
	userID := uuid.New()

	mockRepo := new(MockbillingRepo)
	service := NewService(mockRepo, "", zap.NewNop())

	mockRepo.On("GetStripeCustomerID", mock.Anything, userID).Return("", models.ErrNotFound).Once()

	for i := 0; i < 3; i++ {
		premium, err := service.HasPremium(ctx, userID)
		assert.NoError(t, err)
		assert.False(t, premium)
	}

	// Only the first call hits storage; the rest are cache hits.
	mockRepo.AssertExpectations(t)
	mockRepo.AssertNumberOfCalls(t, "GetStripeCustomerID", 1)
}

func TestHasPremiumSurfacesLookupFailure(t *testing.T) {
	ctx := context.Background()
	userID := uuid.New()

	mockRepo := new(MockbillingRepo)
	service := NewService(mockRepo, "", zap.NewNop())

	mockRepo.On("GetStripeCustomerID", mock.Anything, userID).Return("", errors.New("db down")).Once()

	premium, err := service.HasPremium(ctx, userID)

	// The caller refuses rather than silently granting or denying.
	assert.Error(t, err)
	assert.False(t, premium)
	mockRepo.AssertExpectations(t)
}
