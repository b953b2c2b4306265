package orders

import (
	"context"
	"errors"
	"fmt"
	"log"
	"math"
	"time"

	"tiffinloop/internal/domain"
)

// amountEpsilon is the tolerance for float money comparisons. Totals and
// payment amounts must agree within a cent.
const amountEpsilon = 0.01

var (
	ErrNotOwner        = errors.New("caller does not own this order")
	ErrPartnerRequired = errors.New("partner_id is required")
	ErrAlreadyPaid     = errors.New("order is already paid")
	ErrAlreadyReviewed = errors.New("order already has a review")
	ErrAmountMismatch  = errors.New("payment amount does not match order total")
	ErrNotDelivered    = errors.New("order has not been delivered yet")
	ErrInvalidRating   = errors.New("rating must be between 1 and 5")
	ErrOrderClosed     = errors.New("order is delivered or cancelled")
	ErrTotalMismatch   = errors.New("total amount does not match the sum of items")
)

// InvalidTransitionError identifies both the current and the requested
// status of a rejected transition.
type InvalidTransitionError struct {
	From domain.OrderStatus
	To   domain.OrderStatus
}

func (e *InvalidTransitionError) Error() string {
	return fmt.Sprintf("invalid order transition from %q to %q", e.From, e.To)
}

// transitions is the order state machine. delivered and cancelled are
// terminal. The courier hop (ready -> out_for_delivery -> delivered) is
// optional; partners without couriers mark delivered straight from ready.
var transitions = map[domain.OrderStatus][]domain.OrderStatus{
	domain.OrderPending:        {domain.OrderConfirmed, domain.OrderCancelled},
	domain.OrderConfirmed:      {domain.OrderPreparing, domain.OrderCancelled},
	domain.OrderPreparing:      {domain.OrderReady, domain.OrderCancelled},
	domain.OrderReady:          {domain.OrderOutForDelivery, domain.OrderDelivered, domain.OrderCancelled},
	domain.OrderOutForDelivery: {domain.OrderDelivered, domain.OrderCancelled},
	domain.OrderDelivered:      {},
	domain.OrderCancelled:      {},
}

func canTransition(from, to domain.OrderStatus) bool {
	return statusIn(to, transitions[from])
}

func statusIn(status domain.OrderStatus, set []domain.OrderStatus) bool {
	for _, s := range set {
		if s == status {
			return true
		}
	}
	return false
}

// Service owns the order lifecycle. Every accepted transition publishes
// exactly one OrderEvent in the same call path; publish failures are logged
// and never fail the state change.
type Service struct {
	repo      OrderRepository
	publisher EventPublisher
	qr        QRGenerator
	now       func() time.Time
}

func NewService(repo OrderRepository, publisher EventPublisher, qr QRGenerator) *Service {
	return &Service{repo: repo, publisher: publisher, qr: qr, now: time.Now}
}

// Create persists a new order after checking the total invariant. Used both
// for direct purchases and by the subscription generator.
func (s *Service) Create(ctx context.Context, order *domain.Order) error {
	if len(order.Items) == 0 || !totalMatches(order) {
		return ErrTotalMismatch
	}
	if order.Status == "" {
		order.Status = domain.OrderPending
	}

	if err := s.repo.CreateOrder(ctx, order); err != nil {
		return err
	}

	if s.qr != nil {
		if code, err := s.qr.Generate(order.ID); err == nil {
			_ = s.repo.SaveQRCode(ctx, order.ID, code)
		}
	}

	s.publish(ctx, order, "order placed", nil)
	return nil
}

func (s *Service) Get(ctx context.Context, id int) (*domain.Order, error) {
	return s.repo.GetOrder(ctx, id)
}

func (s *Service) List(ctx context.Context, filter domain.OrderFilter) ([]domain.Order, error) {
	return s.repo.ListOrders(ctx, filter)
}

// Update edits non-status fields. Forbidden once the order is terminal; a
// replaced item list must satisfy the total invariant again.
func (s *Service) Update(ctx context.Context, order *domain.Order) error {
	existing, err := s.repo.GetOrder(ctx, order.ID)
	if err != nil {
		return err
	}
	if existing.Status.Terminal() {
		return ErrOrderClosed
	}
	if len(order.Items) > 0 && !totalMatches(order) {
		return ErrTotalMismatch
	}
	order.Status = existing.Status
	return s.repo.UpdateOrder(ctx, order)
}

// Transition moves an order along the state machine without partner guards.
func (s *Service) Transition(ctx context.Context, id int, to domain.OrderStatus, message string) (*domain.Order, error) {
	return s.transition(ctx, id, 0, to, message, nil, nil)
}

// Accept confirms a pending order. Partner-gated; an optional ETA becomes an
// absolute estimated-ready timestamp.
func (s *Service) Accept(ctx context.Context, id, partnerID int, eta *time.Duration) (*domain.Order, error) {
	if partnerID <= 0 {
		return nil, ErrPartnerRequired
	}
	return s.transition(ctx, id, partnerID, domain.OrderConfirmed, "order accepted", eta, nil)
}

// Reject cancels an order with a structured reason, but only before
// preparation starts. Later cancellations go through Transition.
func (s *Service) Reject(ctx context.Context, id, partnerID int, reason, message string) (*domain.Order, error) {
	if partnerID <= 0 {
		return nil, ErrPartnerRequired
	}
	mutate := func(order *domain.Order) {
		order.CancelReason = reason
		order.CancelMessage = message
	}
	return s.transition(ctx, id, partnerID, domain.OrderCancelled, message, nil, mutate,
		domain.OrderPending, domain.OrderConfirmed)
}

// MarkReady flags a preparing order as ready for pickup.
func (s *Service) MarkReady(ctx context.Context, id, partnerID int, pickupETA *time.Duration) (*domain.Order, error) {
	if partnerID <= 0 {
		return nil, ErrPartnerRequired
	}
	return s.transition(ctx, id, partnerID, domain.OrderReady, "order ready", pickupETA, nil)
}

// transition applies one state change. partnerID 0 skips the ownership guard
// and is reserved for the internal Transition entry point; the partner-facing
// actions above always pass a positive id. A non-empty allowedFrom narrows
// the source statuses beyond what the table permits.
func (s *Service) transition(ctx context.Context, id, partnerID int, to domain.OrderStatus, message string, eta *time.Duration, mutate func(*domain.Order), allowedFrom ...domain.OrderStatus) (*domain.Order, error) {
	order, err := s.repo.GetOrder(ctx, id)
	if err != nil {
		return nil, err
	}
	if partnerID != 0 && order.PartnerID != partnerID {
		return nil, ErrNotOwner
	}
	if len(allowedFrom) > 0 && !statusIn(order.Status, allowedFrom) {
		return nil, &InvalidTransitionError{From: order.Status, To: to}
	}
	if !canTransition(order.Status, to) {
		return nil, &InvalidTransitionError{From: order.Status, To: to}
	}

	order.Status = to
	var absoluteETA *time.Time
	if eta != nil {
		at := s.now().Add(*eta)
		absoluteETA = &at
		order.EstimatedReadyAt = &at
	}
	if to == domain.OrderDelivered {
		at := s.now()
		order.DeliveredAt = &at
	}
	if mutate != nil {
		mutate(order)
	}

	if err := s.repo.UpdateOrderStatus(ctx, order); err != nil {
		return nil, err
	}

	s.publish(ctx, order, message, absoluteETA)
	return order, nil
}

// MarkPaid records payment exactly once. The amount must match the order
// total within amountEpsilon.
func (s *Service) MarkPaid(ctx context.Context, id int, transactionID, method string, amount float64) (*domain.Order, error) {
	order, err := s.repo.GetOrder(ctx, id)
	if err != nil {
		return nil, err
	}
	if order.IsPaid {
		return nil, ErrAlreadyPaid
	}
	if math.Abs(amount-order.TotalAmount) >= amountEpsilon {
		return nil, ErrAmountMismatch
	}

	payment := domain.PaymentDetail{
		TransactionID: transactionID,
		Method:        method,
		Amount:        amount,
		PaidAt:        s.now(),
	}
	if err := s.repo.MarkOrderPaid(ctx, id, payment); err != nil {
		// zero rows from the is_paid guard: a concurrent payment got there first
		if errors.Is(err, domain.ErrNotFound) {
			return nil, ErrAlreadyPaid
		}
		return nil, err
	}
	order.IsPaid = true
	order.Payment = &payment
	return order, nil
}

// AddReview attaches a 1-5 rating exactly once, and only after delivery.
func (s *Service) AddReview(ctx context.Context, id, rating int, comment string) (*domain.Order, error) {
	if rating < 1 || rating > 5 {
		return nil, ErrInvalidRating
	}
	order, err := s.repo.GetOrder(ctx, id)
	if err != nil {
		return nil, err
	}
	if order.Status != domain.OrderDelivered {
		return nil, ErrNotDelivered
	}
	if order.Review != nil {
		return nil, ErrAlreadyReviewed
	}

	review := domain.OrderReview{Rating: rating, Comment: comment, CreatedAt: s.now()}
	if err := s.repo.SaveOrderReview(ctx, id, review); err != nil {
		// same race as payments: the review IS NULL guard matched nothing
		if errors.Is(err, domain.ErrNotFound) {
			return nil, ErrAlreadyReviewed
		}
		return nil, err
	}
	order.Review = &review
	return order, nil
}

// HandoffQR returns the scannable handoff code, regenerating it on demand.
func (s *Service) HandoffQR(ctx context.Context, id int) ([]byte, error) {
	code, err := s.repo.GetQRCode(ctx, id)
	if err != nil {
		return nil, err
	}
	if len(code) == 0 && s.qr != nil {
		if regenerated, err := s.qr.Generate(id); err == nil {
			_ = s.repo.SaveQRCode(ctx, id, regenerated)
			return regenerated, nil
		}
	}
	return code, nil
}

func (s *Service) publish(ctx context.Context, order *domain.Order, message string, eta *time.Time) {
	if s.publisher == nil {
		return
	}
	event := domain.OrderEvent{
		Type:       domain.EventOrderStatus,
		OrderID:    order.ID,
		Status:     order.Status,
		CustomerID: order.CustomerID,
		PartnerID:  order.PartnerID,
		Message:    message,
		ETA:        eta,
		Timestamp:  s.now(),
	}
	if err := s.publisher.PublishOrderEvent(ctx, event); err != nil {
		log.Printf("[orders] publish event for order %d: %v", order.ID, err)
	}
}

// totalMatches enforces the money invariant: the total must equal the item
// sum plus the delivery fee within amountEpsilon. Subscription orders carry
// zero-priced items, so the fee is their only contribution.
func totalMatches(order *domain.Order) bool {
	return math.Abs(order.TotalAmount-(order.ItemsTotal()+order.DeliveryFee)) < amountEpsilon
}
