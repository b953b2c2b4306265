package tests

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"tiffinloop/internal/domain"
	"tiffinloop/internal/fulfillment"
	"tiffinloop/internal/mocks"
	"tiffinloop/internal/subscriptions"
)

func TestSubscriptionService_Create(t *testing.T) {
	start := time.Date(2025, 6, 2, 0, 0, 0, 0, time.UTC)

	tests := []struct {
		name    string
		sub     *domain.Subscription
		wantErr error
	}{
		{
			name: "valid range",
			sub:  &domain.Subscription{CustomerID: 1, PlanID: 2, StartDate: start, EndDate: start.AddDate(0, 1, 0)},
		},
		{
			name:    "end before start",
			sub:     &domain.Subscription{CustomerID: 1, PlanID: 2, StartDate: start, EndDate: start.AddDate(0, 0, -1)},
			wantErr: subscriptions.ErrBadRange,
		},
		{
			name:    "zero-length range",
			sub:     &domain.Subscription{CustomerID: 1, PlanID: 2, StartDate: start, EndDate: start},
			wantErr: subscriptions.ErrBadRange,
		},
	}

	for _, testCase := range tests {
		t.Run(testCase.name, func(t *testing.T) {
			repo := new(mocks.SubscriptionRepository)
			svc := subscriptions.NewService(repo, nil, nil)

			if testCase.wantErr == nil {
				repo.On("CreateSubscription", mock.Anything, testCase.sub).Return(nil).Once()
			}

			err := svc.Create(context.Background(), testCase.sub)

			if testCase.wantErr != nil {
				assert.ErrorIs(t, err, testCase.wantErr)
			} else {
				assert.NoError(t, err)
				assert.Equal(t, domain.SubscriptionPending, testCase.sub.Status)
			}
			repo.AssertExpectations(t)
		})
	}
}

func TestSubscriptionService_ActivateGeneratesOrders(t *testing.T) {
	repo := new(mocks.SubscriptionRepository)
	generator := new(mocks.Generator)
	svc := subscriptions.NewService(repo, generator, nil)

	sub := &domain.Subscription{ID: 3, CustomerID: 1, PlanID: 2, Status: domain.SubscriptionPending, AutoRenew: true}
	repo.On("GetSubscription", mock.Anything, 3).Return(sub, nil).Once()
	repo.On("UpdateSubscriptionStatus", mock.Anything, 3, domain.SubscriptionActive, true).Return(nil).Once()
	generator.On("Generate", mock.Anything, mock.MatchedBy(func(s *domain.Subscription) bool {
		return s.Status == domain.SubscriptionActive && s.PaymentRef == "pay_123"
	})).Return(fulfillment.Result{Resolved: 20, Created: 20}).Once()

	result, err := svc.Activate(context.Background(), 3, "pay_123")
	require.NoError(t, err)
	assert.Equal(t, 20, result.Created)
	repo.AssertExpectations(t)
	generator.AssertExpectations(t)
}

func TestSubscriptionService_ActivateCancelled(t *testing.T) {
	repo := new(mocks.SubscriptionRepository)
	svc := subscriptions.NewService(repo, nil, nil)

	repo.On("GetSubscription", mock.Anything, 3).
		Return(&domain.Subscription{ID: 3, Status: domain.SubscriptionCancelled}, nil).Once()

	_, err := svc.Activate(context.Background(), 3, "pay_123")
	assert.ErrorIs(t, err, subscriptions.ErrCancelled)
}

func TestSubscriptionService_ActivatePausedRequiresResume(t *testing.T) {
	repo := new(mocks.SubscriptionRepository)
	generator := new(mocks.Generator)
	svc := subscriptions.NewService(repo, generator, nil)

	repo.On("GetSubscription", mock.Anything, 3).
		Return(&domain.Subscription{ID: 3, Status: domain.SubscriptionPaused}, nil).Once()

	_, err := svc.Activate(context.Background(), 3, "pay_456")
	assert.ErrorIs(t, err, subscriptions.ErrPaused)
	repo.AssertNotCalled(t, "UpdateSubscriptionStatus", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
	generator.AssertNotCalled(t, "Generate", mock.Anything, mock.Anything)
}

func TestSubscriptionService_PauseResume(t *testing.T) {
	tests := []struct {
		name    string
		status  domain.SubscriptionStatus
		action  string
		next    domain.SubscriptionStatus
		wantErr error
	}{
		{"pause active", domain.SubscriptionActive, "pause", domain.SubscriptionPaused, nil},
		{"pause pending", domain.SubscriptionPending, "pause", "", subscriptions.ErrNotActive},
		{"pause paused", domain.SubscriptionPaused, "pause", "", subscriptions.ErrNotActive},
		{"resume paused", domain.SubscriptionPaused, "resume", domain.SubscriptionActive, nil},
		{"resume active", domain.SubscriptionActive, "resume", "", subscriptions.ErrNotPaused},
	}

	for _, testCase := range tests {
		t.Run(testCase.name, func(t *testing.T) {
			repo := new(mocks.SubscriptionRepository)
			svc := subscriptions.NewService(repo, nil, nil)

			repo.On("GetSubscription", mock.Anything, 1).
				Return(&domain.Subscription{ID: 1, Status: testCase.status, AutoRenew: true}, nil).Once()
			if testCase.wantErr == nil {
				repo.On("UpdateSubscriptionStatus", mock.Anything, 1, testCase.next, true).Return(nil).Once()
			}

			var err error
			if testCase.action == "pause" {
				err = svc.Pause(context.Background(), 1)
			} else {
				err = svc.Resume(context.Background(), 1)
			}

			if testCase.wantErr != nil {
				assert.ErrorIs(t, err, testCase.wantErr)
			} else {
				assert.NoError(t, err)
			}
			repo.AssertExpectations(t)
		})
	}
}

func TestSubscriptionService_CancelDisablesAutoRenew(t *testing.T) {
	repo := new(mocks.SubscriptionRepository)
	svc := subscriptions.NewService(repo, nil, nil)

	repo.On("GetSubscription", mock.Anything, 1).
		Return(&domain.Subscription{ID: 1, Status: domain.SubscriptionActive, AutoRenew: true}, nil).Once()
	repo.On("UpdateSubscriptionStatus", mock.Anything, 1, domain.SubscriptionCancelled, false).Return(nil).Once()

	require.NoError(t, svc.Cancel(context.Background(), 1))
	repo.AssertExpectations(t)
}

func TestSubscriptionService_CancelIsTerminal(t *testing.T) {
	repo := new(mocks.SubscriptionRepository)
	svc := subscriptions.NewService(repo, nil, nil)

	repo.On("GetSubscription", mock.Anything, 1).
		Return(&domain.Subscription{ID: 1, Status: domain.SubscriptionCancelled}, nil).Once()

	assert.ErrorIs(t, svc.Cancel(context.Background(), 1), subscriptions.ErrCancelled)
}

func TestSubscriptionService_RegenerateActiveOnly(t *testing.T) {
	repo := new(mocks.SubscriptionRepository)
	generator := new(mocks.Generator)
	svc := subscriptions.NewService(repo, generator, nil)

	repo.On("GetSubscription", mock.Anything, 1).
		Return(&domain.Subscription{ID: 1, Status: domain.SubscriptionPaused}, nil).Once()

	_, err := svc.Regenerate(context.Background(), 1)
	assert.ErrorIs(t, err, subscriptions.ErrNotActive)

	repo.On("GetSubscription", mock.Anything, 2).
		Return(&domain.Subscription{ID: 2, Status: domain.SubscriptionActive}, nil).Once()
	generator.On("Regenerate", mock.Anything, mock.Anything).
		Return(fulfillment.Result{Resolved: 10, Skipped: 10}).Once()

	result, err := svc.Regenerate(context.Background(), 2)
	require.NoError(t, err)
	assert.Equal(t, 10, result.Skipped)
	assert.Zero(t, result.Created)
}
