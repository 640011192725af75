package usecase_test

import (
	"context"
	"time"

	"github.com/stretchr/testify/mock"
	"github.com/stripe/stripe-go/v79"

	"github.com/wekeepgrowing/resume-billing/internal/domain/entity"
	"github.com/wekeepgrowing/resume-billing/internal/domain/model"
	"github.com/wekeepgrowing/resume-billing/internal/usecase"
)

// MockSubscriptionRepository is a mock implementation of SubscriptionRepository
type MockSubscriptionRepository struct {
	mock.Mock
}

func (m *MockSubscriptionRepository) Upsert(ctx context.Context, subscription *model.Subscription) error {
	args := m.Called(ctx, subscription)
	return args.Error(0)
}

func (m *MockSubscriptionRepository) GetByStripeID(ctx context.Context, stripeSubscriptionID string) (*model.Subscription, error) {
	args := m.Called(ctx, stripeSubscriptionID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Subscription), args.Error(1)
}

func (m *MockSubscriptionRepository) GetLatestByUserID(ctx context.Context, userID string) (*model.Subscription, error) {
	args := m.Called(ctx, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Subscription), args.Error(1)
}

func (m *MockSubscriptionRepository) GetActiveByUserID(ctx context.Context, userID string, now time.Time) (*model.Subscription, error) {
	args := m.Called(ctx, userID, now)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Subscription), args.Error(1)
}

func (m *MockSubscriptionRepository) MarkCanceled(ctx context.Context, stripeSubscriptionID string, periodEnd *time.Time) (bool, error) {
	args := m.Called(ctx, stripeSubscriptionID, periodEnd)
	return args.Bool(0), args.Error(1)
}

// MockPurchaseRepository is a mock implementation of PurchaseRepository
type MockPurchaseRepository struct {
	mock.Mock
}

func (m *MockPurchaseRepository) CreateIfAbsent(ctx context.Context, purchase *model.Purchase) (bool, error) {
	args := m.Called(ctx, purchase)
	return args.Bool(0), args.Error(1)
}

func (m *MockPurchaseRepository) GetByPaymentIntentID(ctx context.Context, paymentIntentID string) (*model.Purchase, error) {
	args := m.Called(ctx, paymentIntentID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Purchase), args.Error(1)
}

func (m *MockPurchaseRepository) GetActiveByUserID(ctx context.Context, userID string, now time.Time) (*model.Purchase, error) {
	args := m.Called(ctx, userID, now)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Purchase), args.Error(1)
}

// MockWebhookEventRepository is a mock implementation of WebhookEventRepository
type MockWebhookEventRepository struct {
	mock.Mock
}

func (m *MockWebhookEventRepository) Record(ctx context.Context, eventID, eventType string) (*model.StripeWebhookEvent, error) {
	args := m.Called(ctx, eventID, eventType)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.StripeWebhookEvent), args.Error(1)
}

func (m *MockWebhookEventRepository) MarkCompleted(ctx context.Context, eventID string) error {
	return m.Called(ctx, eventID).Error(0)
}

func (m *MockWebhookEventRepository) MarkSkipped(ctx context.Context, eventID string, reason string) error {
	return m.Called(ctx, eventID, reason).Error(0)
}

func (m *MockWebhookEventRepository) MarkFailed(ctx context.Context, eventID string, err error) error {
	return m.Called(ctx, eventID, err).Error(0)
}

// MockUserDirectory is a mock implementation of UserDirectory
type MockUserDirectory struct {
	mock.Mock
}

func (m *MockUserDirectory) FindUserByEmail(ctx context.Context, email string) (*entity.User, error) {
	args := m.Called(ctx, email)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entity.User), args.Error(1)
}

// MockBillingProvider is a mock implementation of BillingProvider
type MockBillingProvider struct {
	mock.Mock
}

func (m *MockBillingProvider) GetSubscription(ctx context.Context, subscriptionID string) (*stripe.Subscription, error) {
	args := m.Called(ctx, subscriptionID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*stripe.Subscription), args.Error(1)
}

func (m *MockBillingProvider) CancelAtPeriodEnd(ctx context.Context, subscriptionID string) (*stripe.Subscription, error) {
	args := m.Called(ctx, subscriptionID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*stripe.Subscription), args.Error(1)
}

// MockAccessNotifier records published changes
type MockAccessNotifier struct {
	mock.Mock
}

func (m *MockAccessNotifier) NotifyAccessChanged(ctx context.Context, change usecase.AccessChange) error {
	return m.Called(ctx, change).Error(0)
}
