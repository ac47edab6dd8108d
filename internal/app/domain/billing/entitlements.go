// Package billing answers the premium capability check. Subscription
// lifecycle (checkout, webhooks) is owned by another system; this package
// only maps a user to a Stripe customer and asks Stripe whether an active
// subscription exists.
package billing

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	gocache "github.com/patrickmn/go-cache"
	"github.com/stripe/stripe-go/v83"
	"github.com/stripe/stripe-go/v83/subscription"
	"go.uber.org/zap"

	"github.com/FACorreiaa/parkspot/internal/app/models"
)

const (
	entitlementTTL     = 5 * time.Minute
	entitlementCleanup = 10 * time.Minute
	subscriptionStatus = "active"
)

// Ensure ServiceImpl implements the EntitlementChecker contract used by
// consumers (declared on their side, accept-interfaces style).
var _ interface {
	HasPremium(ctx context.Context, userID uuid.UUID) (bool, error)
} = (*ServiceImpl)(nil)

// Repository resolves the user -> Stripe customer mapping maintained by the
// external webhook processor.
type Repository interface {
	GetStripeCustomerID(ctx context.Context, userID uuid.UUID) (string, error)
}

// ServiceImpl checks premium entitlements against Stripe with a short-lived
// cache in front, so the scheduler and share paths do not hammer the API.
type ServiceImpl struct {
	logger *zap.Logger
	repo   Repository
	cache  *gocache.Cache
}

// NewService creates the entitlement checker. The Stripe key is set
// globally, matching how the rest of the stripe-go surface is used.
func NewService(repo Repository, stripeKey string, logger *zap.Logger) *ServiceImpl {
	if stripeKey != "" {
		stripe.Key = stripeKey
	}
	return &ServiceImpl{
		logger: logger,
		repo:   repo,
		cache:  gocache.New(entitlementTTL, entitlementCleanup),
	}
}

// HasPremium reports whether the user holds an active subscription. A user
// with no Stripe mapping is simply not premium; a Stripe API failure is
// surfaced so callers can refuse rather than silently grant or deny.
func (s *ServiceImpl) HasPremium(ctx context.Context, userID uuid.UUID) (bool, error) {
	key := userID.String()
	if cached, found := s.cache.Get(key); found {
		return cached.(bool), nil
	}

	customerID, err := s.repo.GetStripeCustomerID(ctx, userID)
	if err != nil {
		if errors.Is(err, models.ErrNotFound) {
			s.cache.SetDefault(key, false)
			return false, nil
		}
		return false, fmt.Errorf("error resolving stripe customer: %w", err)
	}

	params := &stripe.SubscriptionListParams{
		Customer: stripe.String(customerID),
		Status:   stripe.String(subscriptionStatus),
	}
	params.Limit = stripe.Int64(1)

	iter := subscription.List(params)
	premium := iter.Next()
	if err := iter.Err(); err != nil {
		s.logger.Error("Stripe subscription lookup failed",
			zap.String("userID", key), zap.Error(err))
		return false, fmt.Errorf("error listing subscriptions: %w", err)
	}

	s.cache.SetDefault(key, premium)
	return premium, nil
}
