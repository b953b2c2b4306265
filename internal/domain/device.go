package domain

import "time"

type Platform string

const (
	PlatformIOS     Platform = "ios"
	PlatformAndroid Platform = "android"
	PlatformWeb     Platform = "web"
)

// NotificationPrefs holds per-category opt-in flags. The zero value is
// all-off; DefaultPrefs is the default-allow used when nothing is stored.
type NotificationPrefs struct {
	Order     bool `json:"order"`
	Promotion bool `json:"promotion"`
	System    bool `json:"system"`
	Chat      bool `json:"chat"`
	Reminder  bool `json:"reminder"`
}

var DefaultPrefs = NotificationPrefs{Order: true, Promotion: true, System: true, Chat: true, Reminder: true}

func (p NotificationPrefs) Allows(cat NotificationCategory) bool {
	switch cat {
	case CategoryOrder:
		return p.Order
	case CategoryPromotion:
		return p.Promotion
	case CategorySystem:
		return p.System
	case CategoryChat:
		return p.Chat
	case CategoryReminder:
		return p.Reminder
	}
	return true
}

// Device is one push registration. Devices are deactivated, never deleted.
type Device struct {
	ID         int               `json:"id"`
	UserID     int               `json:"user_id,omitempty"`
	Token      string            `json:"token"` // unique push token
	DeviceID   string            `json:"device_id,omitempty"`
	Platform   Platform          `json:"platform"`
	Active     bool              `json:"active"`
	Prefs      NotificationPrefs `json:"prefs"`
	QuietStart string            `json:"quiet_start,omitempty"` // local "HH:MM"
	QuietEnd   string            `json:"quiet_end,omitempty"`
	CreatedAt  time.Time         `json:"created_at"`
	UpdatedAt  time.Time         `json:"updated_at"`
}
