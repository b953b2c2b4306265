package orders

import (
	"context"
	"time"

	"tiffinloop/internal/domain"
)

type OrderRepository interface {
	CreateOrder(ctx context.Context, order *domain.Order) error
	GetOrder(ctx context.Context, id int) (*domain.Order, error)
	UpdateOrder(ctx context.Context, order *domain.Order) error
	UpdateOrderStatus(ctx context.Context, order *domain.Order) error
	MarkOrderPaid(ctx context.Context, id int, payment domain.PaymentDetail) error
	SaveOrderReview(ctx context.Context, id int, review domain.OrderReview) error
	SaveQRCode(ctx context.Context, id int, qr []byte) error
	GetQRCode(ctx context.Context, id int) ([]byte, error)
	ListOrders(ctx context.Context, filter domain.OrderFilter) ([]domain.Order, error)
}

type EventPublisher interface {
	PublishOrderEvent(ctx context.Context, event domain.OrderEvent) error
}

type QRGenerator interface {
	Generate(orderID int) ([]byte, error)
}

type ServiceInterface interface {
	Create(ctx context.Context, order *domain.Order) error
	Get(ctx context.Context, id int) (*domain.Order, error)
	List(ctx context.Context, filter domain.OrderFilter) ([]domain.Order, error)
	Update(ctx context.Context, order *domain.Order) error
	Transition(ctx context.Context, id int, to domain.OrderStatus, message string) (*domain.Order, error)
	Accept(ctx context.Context, id, partnerID int, eta *time.Duration) (*domain.Order, error)
	Reject(ctx context.Context, id, partnerID int, reason, message string) (*domain.Order, error)
	MarkReady(ctx context.Context, id, partnerID int, pickupETA *time.Duration) (*domain.Order, error)
	MarkPaid(ctx context.Context, id int, transactionID, method string, amount float64) (*domain.Order, error)
	AddReview(ctx context.Context, id, rating int, comment string) (*domain.Order, error)
	HandoffQR(ctx context.Context, id int) ([]byte, error)
}

var _ ServiceInterface = (*Service)(nil)
