package domain

import "time"

// EventOrderStatus is the message type published for every accepted order
// lifecycle transition.
const EventOrderStatus = "order_status"

// OrderEvent is the wire message carried on the order-events topic.
type OrderEvent struct {
	Type       string      `json:"type"`
	OrderID    int         `json:"order_id"`
	Status     OrderStatus `json:"status"`
	CustomerID int         `json:"customer_id"`
	PartnerID  int         `json:"partner_id"`
	Message    string      `json:"message,omitempty"`
	ETA        *time.Time  `json:"eta,omitempty"`
	Timestamp  time.Time   `json:"timestamp"`
}
