package session

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

// MocksessionRepo is a mock implementation of Repository
type MocksessionRepo struct {
	mock.Mock
}

func (m *MocksessionRepo) CreateSession(ctx context.Context, session *models.ParkingSession) error {
	args := m.Called(ctx, session)
	return args.Error(0)
}

func (m *MocksessionRepo) GetSession(ctx context.Context, sessionID uuid.UUID) (models.ParkingSession, error) {
	args := m.Called(ctx, sessionID)
	return args.Get(0).(models.ParkingSession), args.Error(1)
}

func (m *MocksessionRepo) GetActiveSession(ctx context.Context, userID uuid.UUID) (models.ParkingSession, error) {
	args := m.Called(ctx, userID)
	return args.Get(0).(models.ParkingSession), args.Error(1)
}

func TestSaveSpot(t *testing.T) {
	ctx := context.Background()
	userID := uuid.New()
	venue := "Rossio Garage"

	tests := []struct {
		name        string
		latitude    float64
		longitude   float64
		setupMock   func(*MocksessionRepo)
		expectedErr error
	}{
		{
			name:      "Success",
			latitude:  38.7,
			longitude: -9.1,
			setupMock: func(repo *MocksessionRepo) {
				repo.On("CreateSession", mock.Anything, mock.MatchedBy(func(s *models.ParkingSession) bool {
					return s.UserID == userID && s.Latitude == 38.7
				})).Return(nil).Once()
			},
		},
		{
			name:        "Latitude out of range",
			latitude:    91,
			longitude:   -9.1,
			setupMock:   func(repo *MocksessionRepo) {},
			expectedErr: models.ErrBadRequest,
		},
		{
			name:        "Longitude out of range",
			latitude:    38.7,
			longitude:   -181,
			setupMock:   func(repo *MocksessionRepo) {},
			expectedErr: models.ErrBadRequest,
		},
		{
			name:      "Repository error",
			latitude:  38.7,
			longitude: -9.1,
			setupMock: func(repo *MocksessionRepo) {
				repo.On("CreateSession", mock.Anything, mock.Anything).Return(errors.New("db down")).Once()
			},
			expectedErr: errors.New("db down"),
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			mockRepo := new(MocksessionRepo)
			service := NewService(mockRepo, zap.NewNop())

			tc.setupMock(mockRepo)

			session, err := service.SaveSpot(ctx, userID, tc.latitude, tc.longitude, &venue, nil)

			if tc.expectedErr != nil {
				assert.Error(t, err)
				assert.Nil(t, session)
			} else {
				assert.NoError(t, err)
				assert.Equal(t, venue, *session.VenueName)
			}

			mockRepo.AssertExpectations(t)
		})
	}
}

func TestGetActiveSession(t *testing.T) {
	ctx := context.Background()
	userID := uuid.New()

	t.Run("Success", func(t *testing.T) {
		mockRepo := new(MocksessionRepo)
		service := NewService(mockRepo, zap.NewNop())

		stored := models.ParkingSession{ID: uuid.New(), UserID: userID, IsActive: true}
		mockRepo.On("GetActiveSession", mock.Anything, userID).Return(stored, nil).Once()

		session, err := service.GetActiveSession(ctx, userID)

		assert.NoError(t, err)
		assert.Equal(t, stored.ID, session.ID)
		mockRepo.AssertExpectations(t)
	})

	t.Run("No active session", func(t *testing.T) {
		mockRepo := new(MocksessionRepo)
		service := NewService(mockRepo, zap.NewNop())

		mockRepo.On("GetActiveSession", mock.Anything, userID).Return(models.ParkingSession{}, models.ErrNotFound).Once()

		session, err := service.GetActiveSession(ctx, userID)

		assert.ErrorIs(t, err, models.ErrNotFound)
		assert.Nil(t, session)
		mockRepo.AssertExpectations(t)
	})
}
