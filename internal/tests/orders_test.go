package tests

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"tiffinloop/internal/domain"
	"tiffinloop/internal/mocks"
	"tiffinloop/internal/orders"
)

func newOrderService(repo *mocks.OrderRepository, publisher *mocks.EventPublisher, qr *mocks.QRGenerator) orders.ServiceInterface {
	var pub orders.EventPublisher
	if publisher != nil {
		pub = publisher
	}
	var gen orders.QRGenerator
	if qr != nil {
		gen = qr
	}
	return orders.NewService(repo, pub, gen)
}

func TestOrderService_Create(t *testing.T) {
	tests := []struct {
		name    string
		order   *domain.Order
		wantErr error
	}{
		{
			name: "direct purchase with matching total",
			order: &domain.Order{
				CustomerID:  1,
				PartnerID:   2,
				Items:       []domain.OrderItem{{MealID: "thali", Name: "Thali", Quantity: 2, Price: 120}},
				TotalAmount: 270,
				DeliveryFee: 30,
			},
		},
		{
			name: "subscription order: fee-only total with zero-priced items",
			order: &domain.Order{
				CustomerID:     1,
				PartnerID:      2,
				SubscriptionID: 5,
				Items:          []domain.OrderItem{{MealID: "roti", Name: "Roti", Quantity: 4, Price: 0}},
				TotalAmount:    25,
				DeliveryFee:    25,
			},
		},
		{
			name:    "no items",
			order:   &domain.Order{CustomerID: 1, PartnerID: 2, TotalAmount: 100},
			wantErr: orders.ErrTotalMismatch,
		},
		{
			name: "total does not match items plus fee",
			order: &domain.Order{
				CustomerID:  1,
				PartnerID:   2,
				Items:       []domain.OrderItem{{MealID: "thali", Name: "Thali", Quantity: 1, Price: 120}},
				TotalAmount: 100,
				DeliveryFee: 30,
			},
			wantErr: orders.ErrTotalMismatch,
		},
	}

	for _, testCase := range tests {
		t.Run(testCase.name, func(t *testing.T) {
			repo := new(mocks.OrderRepository)
			publisher := new(mocks.EventPublisher)
			qr := new(mocks.QRGenerator)
			svc := newOrderService(repo, publisher, qr)

			if testCase.wantErr == nil {
				repo.On("CreateOrder", mock.Anything, testCase.order).Return(nil).Once()
				qr.On("Generate", mock.Anything).Return([]byte("png"), nil).Once()
				repo.On("SaveQRCode", mock.Anything, mock.Anything, []byte("png")).Return(nil).Once()
				publisher.On("PublishOrderEvent", mock.Anything, mock.MatchedBy(func(e domain.OrderEvent) bool {
					return e.Type == domain.EventOrderStatus && e.Status == domain.OrderPending
				})).Return(nil).Once()
			}

			err := svc.Create(context.Background(), testCase.order)

			if testCase.wantErr != nil {
				assert.ErrorIs(t, err, testCase.wantErr)
			} else {
				assert.NoError(t, err)
				assert.Equal(t, domain.OrderPending, testCase.order.Status)
			}
			repo.AssertExpectations(t)
			publisher.AssertExpectations(t)
		})
	}
}

func TestOrderService_CreateSurvivesPublishFailure(t *testing.T) {
	repo := new(mocks.OrderRepository)
	publisher := new(mocks.EventPublisher)
	svc := newOrderService(repo, publisher, nil)

	order := &domain.Order{
		CustomerID:  1,
		PartnerID:   2,
		Items:       []domain.OrderItem{{MealID: "thali", Name: "Thali", Quantity: 1, Price: 100}},
		TotalAmount: 100,
	}
	repo.On("CreateOrder", mock.Anything, order).Return(nil).Once()
	publisher.On("PublishOrderEvent", mock.Anything, mock.Anything).Return(errors.New("broker down")).Once()

	assert.NoError(t, svc.Create(context.Background(), order))
}

func TestOrderService_Transitions(t *testing.T) {
	tests := []struct {
		name    string
		from    domain.OrderStatus
		to      domain.OrderStatus
		wantErr bool
	}{
		{"pending to confirmed", domain.OrderPending, domain.OrderConfirmed, false},
		{"confirmed to preparing", domain.OrderConfirmed, domain.OrderPreparing, false},
		{"preparing to ready", domain.OrderPreparing, domain.OrderReady, false},
		{"ready to out_for_delivery", domain.OrderReady, domain.OrderOutForDelivery, false},
		{"ready straight to delivered", domain.OrderReady, domain.OrderDelivered, false},
		{"out_for_delivery to delivered", domain.OrderOutForDelivery, domain.OrderDelivered, false},
		{"preparing to cancelled", domain.OrderPreparing, domain.OrderCancelled, false},
		{"pending to ready skips steps", domain.OrderPending, domain.OrderReady, true},
		{"delivered is terminal", domain.OrderDelivered, domain.OrderPending, true},
		{"cancelled is terminal", domain.OrderCancelled, domain.OrderConfirmed, true},
		{"backwards move", domain.OrderReady, domain.OrderPreparing, true},
	}

	for _, testCase := range tests {
		t.Run(testCase.name, func(t *testing.T) {
			repo := new(mocks.OrderRepository)
			publisher := new(mocks.EventPublisher)
			svc := newOrderService(repo, publisher, nil)

			repo.On("GetOrder", mock.Anything, 1).Return(&domain.Order{ID: 1, Status: testCase.from}, nil).Once()
			if !testCase.wantErr {
				repo.On("UpdateOrderStatus", mock.Anything, mock.Anything).Return(nil).Once()
				publisher.On("PublishOrderEvent", mock.Anything, mock.Anything).Return(nil).Once()
			}

			updated, err := svc.Transition(context.Background(), 1, testCase.to, "")

			if testCase.wantErr {
				var invalid *orders.InvalidTransitionError
				require.ErrorAs(t, err, &invalid)
				assert.Equal(t, testCase.from, invalid.From)
				assert.Equal(t, testCase.to, invalid.To)
			} else {
				require.NoError(t, err)
				assert.Equal(t, testCase.to, updated.Status)
				if testCase.to == domain.OrderDelivered {
					assert.NotNil(t, updated.DeliveredAt)
				}
			}
			repo.AssertExpectations(t)
			publisher.AssertExpectations(t)
		})
	}
}

func TestOrderService_AcceptOwnership(t *testing.T) {
	repo := new(mocks.OrderRepository)
	publisher := new(mocks.EventPublisher)
	svc := newOrderService(repo, publisher, nil)

	repo.On("GetOrder", mock.Anything, 1).Return(&domain.Order{ID: 1, PartnerID: 9, Status: domain.OrderPending}, nil).Once()

	_, err := svc.Accept(context.Background(), 1, 8, nil)
	assert.ErrorIs(t, err, orders.ErrNotOwner)
	repo.AssertExpectations(t)
}

func TestOrderService_AcceptSetsETA(t *testing.T) {
	repo := new(mocks.OrderRepository)
	publisher := new(mocks.EventPublisher)
	svc := newOrderService(repo, publisher, nil)

	repo.On("GetOrder", mock.Anything, 1).Return(&domain.Order{ID: 1, PartnerID: 9, Status: domain.OrderPending}, nil).Once()
	repo.On("UpdateOrderStatus", mock.Anything, mock.Anything).Return(nil).Once()
	publisher.On("PublishOrderEvent", mock.Anything, mock.MatchedBy(func(e domain.OrderEvent) bool {
		return e.Status == domain.OrderConfirmed && e.ETA != nil
	})).Return(nil).Once()

	eta := 30 * time.Minute
	updated, err := svc.Accept(context.Background(), 1, 9, &eta)
	require.NoError(t, err)
	assert.Equal(t, domain.OrderConfirmed, updated.Status)
	require.NotNil(t, updated.EstimatedReadyAt)
	assert.WithinDuration(t, time.Now().Add(eta), *updated.EstimatedReadyAt, 5*time.Second)
	publisher.AssertExpectations(t)
}

func TestOrderService_PartnerActionsRequirePartnerID(t *testing.T) {
	repo := new(mocks.OrderRepository)
	publisher := new(mocks.EventPublisher)
	svc := newOrderService(repo, publisher, nil)

	_, err := svc.Accept(context.Background(), 1, 0, nil)
	assert.ErrorIs(t, err, orders.ErrPartnerRequired)

	_, err = svc.Reject(context.Background(), 1, 0, "late", "")
	assert.ErrorIs(t, err, orders.ErrPartnerRequired)

	_, err = svc.MarkReady(context.Background(), 1, 0, nil)
	assert.ErrorIs(t, err, orders.ErrPartnerRequired)

	// rejected before touching the store
	repo.AssertNotCalled(t, "GetOrder", mock.Anything, mock.Anything)
}

func TestOrderService_RejectOnlyBeforePreparation(t *testing.T) {
	tests := []struct {
		name    string
		from    domain.OrderStatus
		wantErr bool
	}{
		{"pending can be rejected", domain.OrderPending, false},
		{"confirmed can be rejected", domain.OrderConfirmed, false},
		{"preparing cannot", domain.OrderPreparing, true},
		{"ready cannot", domain.OrderReady, true},
		{"out_for_delivery cannot", domain.OrderOutForDelivery, true},
	}

	for _, testCase := range tests {
		t.Run(testCase.name, func(t *testing.T) {
			repo := new(mocks.OrderRepository)
			publisher := new(mocks.EventPublisher)
			svc := newOrderService(repo, publisher, nil)

			repo.On("GetOrder", mock.Anything, 1).
				Return(&domain.Order{ID: 1, PartnerID: 9, Status: testCase.from}, nil).Once()
			if !testCase.wantErr {
				repo.On("UpdateOrderStatus", mock.Anything, mock.Anything).Return(nil).Once()
				publisher.On("PublishOrderEvent", mock.Anything, mock.Anything).Return(nil).Once()
			}

			updated, err := svc.Reject(context.Background(), 1, 9, "late", "running behind")

			if testCase.wantErr {
				var invalid *orders.InvalidTransitionError
				require.ErrorAs(t, err, &invalid)
				assert.Equal(t, testCase.from, invalid.From)
				repo.AssertNotCalled(t, "UpdateOrderStatus", mock.Anything, mock.Anything)
			} else {
				require.NoError(t, err)
				assert.Equal(t, domain.OrderCancelled, updated.Status)
			}
			repo.AssertExpectations(t)
		})
	}
}

func TestOrderService_RejectRecordsReason(t *testing.T) {
	repo := new(mocks.OrderRepository)
	publisher := new(mocks.EventPublisher)
	svc := newOrderService(repo, publisher, nil)

	repo.On("GetOrder", mock.Anything, 1).Return(&domain.Order{ID: 1, PartnerID: 9, Status: domain.OrderPending}, nil).Once()
	repo.On("UpdateOrderStatus", mock.Anything, mock.MatchedBy(func(o *domain.Order) bool {
		return o.Status == domain.OrderCancelled && o.CancelReason == "out_of_stock"
	})).Return(nil).Once()
	publisher.On("PublishOrderEvent", mock.Anything, mock.Anything).Return(nil).Once()

	updated, err := svc.Reject(context.Background(), 1, 9, "out_of_stock", "Paneer unavailable today")
	require.NoError(t, err)
	assert.Equal(t, "Paneer unavailable today", updated.CancelMessage)
}

func TestOrderService_MarkPaid(t *testing.T) {
	tests := []struct {
		name    string
		order   *domain.Order
		amount  float64
		wantErr error
	}{
		{
			name:   "exact amount",
			order:  &domain.Order{ID: 1, TotalAmount: 100.00},
			amount: 100.00,
		},
		{
			name:    "one cent over is rejected",
			order:   &domain.Order{ID: 1, TotalAmount: 100.00},
			amount:  100.01,
			wantErr: orders.ErrAmountMismatch,
		},
		{
			name:    "already paid",
			order:   &domain.Order{ID: 1, TotalAmount: 100.00, IsPaid: true},
			amount:  100.00,
			wantErr: orders.ErrAlreadyPaid,
		},
	}

	for _, testCase := range tests {
		t.Run(testCase.name, func(t *testing.T) {
			repo := new(mocks.OrderRepository)
			svc := newOrderService(repo, nil, nil)

			repo.On("GetOrder", mock.Anything, 1).Return(testCase.order, nil).Once()
			if testCase.wantErr == nil {
				repo.On("MarkOrderPaid", mock.Anything, 1, mock.MatchedBy(func(p domain.PaymentDetail) bool {
					return p.Amount == testCase.amount
				})).Return(nil).Once()
			}

			updated, err := svc.MarkPaid(context.Background(), 1, "txn-1", "upi", testCase.amount)

			if testCase.wantErr != nil {
				assert.ErrorIs(t, err, testCase.wantErr)
			} else {
				require.NoError(t, err)
				assert.True(t, updated.IsPaid)
				assert.NotNil(t, updated.Payment)
			}
			repo.AssertExpectations(t)
		})
	}
}

func TestOrderService_MarkPaidLosesConcurrentRace(t *testing.T) {
	repo := new(mocks.OrderRepository)
	svc := newOrderService(repo, nil, nil)

	// the order looks unpaid, but the row guard says someone paid in between
	repo.On("GetOrder", mock.Anything, 1).Return(&domain.Order{ID: 1, TotalAmount: 100.00}, nil).Once()
	repo.On("MarkOrderPaid", mock.Anything, 1, mock.Anything).Return(domain.ErrNotFound).Once()

	_, err := svc.MarkPaid(context.Background(), 1, "txn-2", "upi", 100.00)
	assert.ErrorIs(t, err, orders.ErrAlreadyPaid)
	repo.AssertExpectations(t)
}

func TestOrderService_AddReview(t *testing.T) {
	delivered := &domain.Order{ID: 1, Status: domain.OrderDelivered}

	tests := []struct {
		name    string
		order   *domain.Order
		rating  int
		wantErr error
	}{
		{"valid review", delivered, 5, nil},
		{"rating too low", delivered, 0, orders.ErrInvalidRating},
		{"rating too high", delivered, 6, orders.ErrInvalidRating},
		{"not delivered yet", &domain.Order{ID: 1, Status: domain.OrderReady}, 4, orders.ErrNotDelivered},
		{
			"already reviewed",
			&domain.Order{ID: 1, Status: domain.OrderDelivered, Review: &domain.OrderReview{Rating: 3}},
			4,
			orders.ErrAlreadyReviewed,
		},
	}

	for _, testCase := range tests {
		t.Run(testCase.name, func(t *testing.T) {
			repo := new(mocks.OrderRepository)
			svc := newOrderService(repo, nil, nil)

			if testCase.wantErr != orders.ErrInvalidRating {
				order := *testCase.order
				repo.On("GetOrder", mock.Anything, 1).Return(&order, nil).Once()
			}
			if testCase.wantErr == nil {
				repo.On("SaveOrderReview", mock.Anything, 1, mock.Anything).Return(nil).Once()
			}

			updated, err := svc.AddReview(context.Background(), 1, testCase.rating, "tasty")

			if testCase.wantErr != nil {
				assert.ErrorIs(t, err, testCase.wantErr)
			} else {
				require.NoError(t, err)
				assert.Equal(t, testCase.rating, updated.Review.Rating)
			}
			repo.AssertExpectations(t)
		})
	}
}

func TestOrderService_AddReviewLosesConcurrentRace(t *testing.T) {
	repo := new(mocks.OrderRepository)
	svc := newOrderService(repo, nil, nil)

	repo.On("GetOrder", mock.Anything, 1).
		Return(&domain.Order{ID: 1, Status: domain.OrderDelivered}, nil).Once()
	repo.On("SaveOrderReview", mock.Anything, 1, mock.Anything).Return(domain.ErrNotFound).Once()

	_, err := svc.AddReview(context.Background(), 1, 4, "tasty")
	assert.ErrorIs(t, err, orders.ErrAlreadyReviewed)
	repo.AssertExpectations(t)
}

func TestOrderService_UpdateClosedOrder(t *testing.T) {
	repo := new(mocks.OrderRepository)
	svc := newOrderService(repo, nil, nil)

	repo.On("GetOrder", mock.Anything, 1).Return(&domain.Order{ID: 1, Status: domain.OrderDelivered}, nil).Once()

	err := svc.Update(context.Background(), &domain.Order{ID: 1, DeliveryAddress: "new addr"})
	assert.ErrorIs(t, err, orders.ErrOrderClosed)
}

func TestOrderService_UpdateReplacedItemsMustMatch(t *testing.T) {
	repo := new(mocks.OrderRepository)
	svc := newOrderService(repo, nil, nil)

	repo.On("GetOrder", mock.Anything, 1).Return(&domain.Order{ID: 1, Status: domain.OrderPending}, nil).Once()

	err := svc.Update(context.Background(), &domain.Order{
		ID:          1,
		Items:       []domain.OrderItem{{MealID: "thali", Name: "Thali", Quantity: 1, Price: 200}},
		TotalAmount: 100,
	})
	assert.ErrorIs(t, err, orders.ErrTotalMismatch)
}

func TestOrderService_HandoffQRRegenerates(t *testing.T) {
	repo := new(mocks.OrderRepository)
	qr := new(mocks.QRGenerator)
	svc := newOrderService(repo, nil, qr)

	repo.On("GetQRCode", mock.Anything, 1).Return([]byte{}, nil).Once()
	qr.On("Generate", 1).Return([]byte("fresh"), nil).Once()
	repo.On("SaveQRCode", mock.Anything, 1, []byte("fresh")).Return(nil).Once()

	code, err := svc.HandoffQR(context.Background(), 1)
	require.NoError(t, err)
	assert.Equal(t, []byte("fresh"), code)
	repo.AssertExpectations(t)
	qr.AssertExpectations(t)
}
