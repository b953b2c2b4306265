package domain

import "time"

type NotificationType string

const (
	NotifToast  NotificationType = "toast"
	NotifModal  NotificationType = "modal"
	NotifBanner NotificationType = "banner"
	NotifPush   NotificationType = "push"
)

type NotificationVariant string

const (
	VariantSuccess   NotificationVariant = "success"
	VariantError     NotificationVariant = "error"
	VariantWarning   NotificationVariant = "warning"
	VariantInfo      NotificationVariant = "info"
	VariantOrder     NotificationVariant = "order"
	VariantPromotion NotificationVariant = "promotion"
)

type NotificationCategory string

const (
	CategoryOrder     NotificationCategory = "order"
	CategoryPromotion NotificationCategory = "promotion"
	CategorySystem    NotificationCategory = "system"
	CategoryChat      NotificationCategory = "chat"
	CategoryReminder  NotificationCategory = "reminder"
)

// Categories lists every notification category.
var Categories = []NotificationCategory{
	CategoryOrder, CategoryPromotion, CategorySystem, CategoryChat, CategoryReminder,
}

type NotificationStatus string

const (
	NotificationPending NotificationStatus = "pending"
	NotificationSent    NotificationStatus = "sent"
	NotificationFailed  NotificationStatus = "failed"
)

// ChannelStats tracks per-channel delivery counts for one notification.
type ChannelStats struct {
	Sent    int `json:"sent"`
	Failed  int `json:"failed"`
	Skipped int `json:"skipped"`
}

type Notification struct {
	ID           int                     `json:"id"`
	Title        string                  `json:"title"`
	Message      string                  `json:"message"`
	Type         NotificationType        `json:"type"`
	Variant      NotificationVariant     `json:"variant"`
	Category     NotificationCategory    `json:"category"`
	UserID       int                     `json:"user_id,omitempty"`
	PartnerID    int                     `json:"partner_id,omitempty"`
	OrderID      int                     `json:"order_id,omitempty"`
	Data         map[string]interface{}  `json:"data,omitempty"`
	Channels     []string                `json:"channels,omitempty"`
	Status       NotificationStatus      `json:"status"`
	Read         bool                    `json:"read"`
	ReadAt       *time.Time              `json:"read_at,omitempty"`
	ScheduledFor *time.Time              `json:"scheduled_for,omitempty"`
	Stats        map[string]ChannelStats `json:"stats,omitempty"` // keyed by channel name
	CreatedAt    time.Time               `json:"created_at"`
}
