package domain

import "time"

type SubscriptionStatus string

const (
	SubscriptionPending   SubscriptionStatus = "pending"
	SubscriptionActive    SubscriptionStatus = "active"
	SubscriptionPaused    SubscriptionStatus = "paused"
	SubscriptionCancelled SubscriptionStatus = "cancelled"
)

type Subscription struct {
	ID              int                `json:"id"`
	CustomerID      int                `json:"customer_id"`
	PlanID          int                `json:"plan_id"`
	Status          SubscriptionStatus `json:"status"`
	StartDate       time.Time          `json:"start_date"`
	EndDate         time.Time          `json:"end_date"` // exclusive
	AutoRenew       bool               `json:"auto_renew"`
	Discount        float64            `json:"discount"`
	PaymentRef      string             `json:"payment_ref,omitempty"`
	DeliveryAddress string             `json:"delivery_address"`
	CreatedAt       time.Time          `json:"created_at"`
	UpdatedAt       time.Time          `json:"updated_at"`
}
