package domain

import "time"

type OrderStatus string

const (
	OrderPending        OrderStatus = "pending"
	OrderConfirmed      OrderStatus = "confirmed"
	OrderPreparing      OrderStatus = "preparing"
	OrderReady          OrderStatus = "ready"
	OrderOutForDelivery OrderStatus = "out_for_delivery"
	OrderDelivered      OrderStatus = "delivered"
	OrderCancelled      OrderStatus = "cancelled"
)

func (s OrderStatus) Terminal() bool {
	return s == OrderDelivered || s == OrderCancelled
}

type OrderItem struct {
	ID           int     `json:"id,omitempty"`
	OrderID      int     `json:"order_id,omitempty"`
	MealID       string  `json:"meal_id"`
	Name         string  `json:"name"`
	Quantity     int     `json:"quantity"`
	Price        float64 `json:"price"`
	Instructions string  `json:"instructions,omitempty"`
}

type PaymentDetail struct {
	TransactionID string    `json:"transaction_id"`
	Method        string    `json:"method"`
	Amount        float64   `json:"amount"`
	PaidAt        time.Time `json:"paid_at"`
}

type OrderReview struct {
	Rating    int       `json:"rating"` // 1..5
	Comment   string    `json:"comment"`
	CreatedAt time.Time `json:"created_at"`
}

type Order struct {
	ID                   int            `json:"id"`
	CustomerID           int            `json:"customer_id"`
	PartnerID            int            `json:"partner_id"`
	Items                []OrderItem    `json:"items"`
	TotalAmount          float64        `json:"total_amount"`
	DeliveryFee          float64        `json:"delivery_fee,omitempty"`
	Status               OrderStatus    `json:"status"`
	DeliveryAddress      string         `json:"delivery_address"`
	DeliveryInstructions string         `json:"delivery_instructions,omitempty"`
	IsPaid               bool           `json:"is_paid"`
	Payment              *PaymentDetail `json:"payment,omitempty"`
	ScheduledFor         time.Time      `json:"scheduled_for"`
	DeliveredAt          *time.Time     `json:"delivered_at,omitempty"`
	EstimatedReadyAt     *time.Time     `json:"estimated_ready_at,omitempty"`
	Review               *OrderReview   `json:"review,omitempty"`
	CancelReason         string         `json:"cancel_reason,omitempty"`
	CancelMessage        string         `json:"cancel_message,omitempty"`

	// Traceability back to the subscription that generated this order.
	// Zero values mean a direct purchase.
	SubscriptionID int    `json:"subscription_id,omitempty"`
	PlanID         int    `json:"plan_id,omitempty"`
	DayOfWeek      string `json:"day_of_week,omitempty"`
	Slot           Slot   `json:"slot,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// OrderFilter is the compound query contract the persistence layer accepts.
// Zero values mean "any".
type OrderFilter struct {
	CustomerID     int
	PartnerID      int
	SubscriptionID int
	Status         OrderStatus
	From           time.Time
	To             time.Time
}

// ItemsTotal is the sum of price*quantity across line items.
func (o *Order) ItemsTotal() float64 {
	var sum float64
	for _, item := range o.Items {
		sum += item.Price * float64(item.Quantity)
	}
	return sum
}
