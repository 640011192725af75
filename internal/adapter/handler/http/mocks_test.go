package http_test

import (
	"context"

	"github.com/stretchr/testify/mock"
	"github.com/stripe/stripe-go/v79"

	"github.com/wekeepgrowing/resume-billing/internal/domain/dto"
	"github.com/wekeepgrowing/resume-billing/internal/domain/model"
	"github.com/wekeepgrowing/resume-billing/internal/usecase"
)

type MockWebhookProcessor struct {
	mock.Mock
}

func (m *MockWebhookProcessor) HandleEvent(ctx context.Context, event stripe.Event) (usecase.WebhookOutcome, error) {
	args := m.Called(ctx, event)
	return args.Get(0).(usecase.WebhookOutcome), args.Error(1)
}

type MockAccessChecker struct {
	mock.Mock
}

func (m *MockAccessChecker) Snapshot(ctx context.Context, userID string) (*dto.AccessSnapshot, error) {
	args := m.Called(ctx, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*dto.AccessSnapshot), args.Error(1)
}

type MockCanceller struct {
	mock.Mock
}

func (m *MockCanceller) CancelForUser(ctx context.Context, userID string) (*model.Subscription, error) {
	args := m.Called(ctx, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Subscription), args.Error(1)
}

type MockResyncer struct {
	mock.Mock
}

func (m *MockResyncer) ResyncSubscription(ctx context.Context, subscriptionID string) (*model.Subscription, error) {
	args := m.Called(ctx, subscriptionID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Subscription), args.Error(1)
}
