// Package mocks holds testify mocks for the service collaborators.
package mocks

import (
	"context"
	"time"

	"github.com/stretchr/testify/mock"

	"tiffinloop/internal/domain"
	"tiffinloop/internal/fulfillment"
	"tiffinloop/internal/notify"
)

type OrderRepository struct{ mock.Mock }

func (m *OrderRepository) CreateOrder(ctx context.Context, order *domain.Order) error {
	return m.Called(ctx, order).Error(0)
}

func (m *OrderRepository) GetOrder(ctx context.Context, id int) (*domain.Order, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Order), args.Error(1)
}

func (m *OrderRepository) UpdateOrder(ctx context.Context, order *domain.Order) error {
	return m.Called(ctx, order).Error(0)
}

func (m *OrderRepository) UpdateOrderStatus(ctx context.Context, order *domain.Order) error {
	return m.Called(ctx, order).Error(0)
}

func (m *OrderRepository) MarkOrderPaid(ctx context.Context, id int, payment domain.PaymentDetail) error {
	return m.Called(ctx, id, payment).Error(0)
}

func (m *OrderRepository) SaveOrderReview(ctx context.Context, id int, review domain.OrderReview) error {
	return m.Called(ctx, id, review).Error(0)
}

func (m *OrderRepository) SaveQRCode(ctx context.Context, id int, qr []byte) error {
	return m.Called(ctx, id, qr).Error(0)
}

func (m *OrderRepository) GetQRCode(ctx context.Context, id int) ([]byte, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]byte), args.Error(1)
}

func (m *OrderRepository) ListOrders(ctx context.Context, filter domain.OrderFilter) ([]domain.Order, error) {
	args := m.Called(ctx, filter)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.Order), args.Error(1)
}

type EventPublisher struct{ mock.Mock }

func (m *EventPublisher) PublishOrderEvent(ctx context.Context, event domain.OrderEvent) error {
	return m.Called(ctx, event).Error(0)
}

type QRGenerator struct{ mock.Mock }

func (m *QRGenerator) Generate(orderID int) ([]byte, error) {
	args := m.Called(orderID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]byte), args.Error(1)
}

type PlanReader struct{ mock.Mock }

func (m *PlanReader) GetPlan(ctx context.Context, id int) (*domain.Plan, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Plan), args.Error(1)
}

type OrderWriter struct{ mock.Mock }

func (m *OrderWriter) CreateOrder(ctx context.Context, order *domain.Order) error {
	return m.Called(ctx, order).Error(0)
}

type Generator struct{ mock.Mock }

func (m *Generator) Generate(ctx context.Context, sub *domain.Subscription) fulfillment.Result {
	return m.Called(ctx, sub).Get(0).(fulfillment.Result)
}

func (m *Generator) Regenerate(ctx context.Context, sub *domain.Subscription) fulfillment.Result {
	return m.Called(ctx, sub).Get(0).(fulfillment.Result)
}

type SubscriptionRepository struct{ mock.Mock }

func (m *SubscriptionRepository) CreateSubscription(ctx context.Context, sub *domain.Subscription) error {
	return m.Called(ctx, sub).Error(0)
}

func (m *SubscriptionRepository) GetSubscription(ctx context.Context, id int) (*domain.Subscription, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Subscription), args.Error(1)
}

func (m *SubscriptionRepository) UpdateSubscriptionStatus(ctx context.Context, id int, status domain.SubscriptionStatus, autoRenew bool) error {
	return m.Called(ctx, id, status, autoRenew).Error(0)
}

type Mailer struct{ mock.Mock }

func (m *Mailer) Send(ctx context.Context, userID int, subject, body string) error {
	return m.Called(ctx, userID, subject, body).Error(0)
}

type NotificationRepository struct{ mock.Mock }

func (m *NotificationRepository) CreateNotification(ctx context.Context, n *domain.Notification) error {
	return m.Called(ctx, n).Error(0)
}

func (m *NotificationRepository) UpdateNotificationStatus(ctx context.Context, id int, status domain.NotificationStatus) error {
	return m.Called(ctx, id, status).Error(0)
}

func (m *NotificationRepository) UpdateNotificationStats(ctx context.Context, id int, stats map[string]domain.ChannelStats) error {
	return m.Called(ctx, id, stats).Error(0)
}

func (m *NotificationRepository) MarkNotificationRead(ctx context.Context, id int, at time.Time) error {
	return m.Called(ctx, id, at).Error(0)
}

func (m *NotificationRepository) ClaimDue(ctx context.Context, now time.Time) ([]domain.Notification, error) {
	args := m.Called(ctx, now)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.Notification), args.Error(1)
}

func (m *NotificationRepository) ListUnread(ctx context.Context, userID int) ([]domain.Notification, error) {
	args := m.Called(ctx, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.Notification), args.Error(1)
}

type DeviceRegistry struct{ mock.Mock }

func (m *DeviceRegistry) UpsertDevice(ctx context.Context, d *domain.Device) error {
	return m.Called(ctx, d).Error(0)
}

type DeviceRepository struct{ mock.Mock }

func (m *DeviceRepository) ActiveDevices(ctx context.Context, userID int) ([]domain.Device, error) {
	args := m.Called(ctx, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.Device), args.Error(1)
}

func (m *DeviceRepository) DeactivateTokens(ctx context.Context, tokens []string) error {
	return m.Called(ctx, tokens).Error(0)
}

type PreferenceCache struct{ mock.Mock }

func (m *PreferenceCache) GetPrefs(ctx context.Context, userID int) (*domain.NotificationPrefs, bool) {
	args := m.Called(ctx, userID)
	if args.Get(0) == nil {
		return nil, args.Bool(1)
	}
	return args.Get(0).(*domain.NotificationPrefs), args.Bool(1)
}

func (m *PreferenceCache) SetPrefs(ctx context.Context, userID int, prefs domain.NotificationPrefs) error {
	return m.Called(ctx, userID, prefs).Error(0)
}

type DeliveryCounters struct{ mock.Mock }

func (m *DeliveryCounters) IncrDelivery(ctx context.Context, category domain.NotificationCategory, channel string, outcome string, n int) {
	m.Called(ctx, category, channel, outcome, n)
}

type TokenPusher struct{ mock.Mock }

func (m *TokenPusher) Push(ctx context.Context, tokens []string, title, body string, data map[string]interface{}) ([]notify.PushOutcome, error) {
	args := m.Called(ctx, tokens, title, body, data)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]notify.PushOutcome), args.Error(1)
}

type MulticastPusher struct{ mock.Mock }

func (m *MulticastPusher) Multicast(ctx context.Context, tokens []string, msg notify.WebMessage) (int, int, error) {
	args := m.Called(ctx, tokens, msg)
	return args.Int(0), args.Int(1), args.Error(2)
}

func (m *MulticastPusher) Subscribe(ctx context.Context, topic string, tokens []string) error {
	return m.Called(ctx, topic, tokens).Error(0)
}

func (m *MulticastPusher) Unsubscribe(ctx context.Context, topic string, tokens []string) error {
	return m.Called(ctx, topic, tokens).Error(0)
}

type LiveNotifier struct{ mock.Mock }

func (m *LiveNotifier) NotifyUser(userID int, n *domain.Notification) {
	m.Called(userID, n)
}

type Channel struct{ mock.Mock }

func (m *Channel) Name() string {
	return m.Called().String(0)
}

func (m *Channel) Send(ctx context.Context, devices []domain.Device, n *domain.Notification) domain.ChannelStats {
	return m.Called(ctx, devices, n).Get(0).(domain.ChannelStats)
}
