package notify

import (
	"context"
	"time"

	"tiffinloop/internal/domain"
)

type NotificationRepository interface {
	CreateNotification(ctx context.Context, n *domain.Notification) error
	UpdateNotificationStatus(ctx context.Context, id int, status domain.NotificationStatus) error
	UpdateNotificationStats(ctx context.Context, id int, stats map[string]domain.ChannelStats) error
	MarkNotificationRead(ctx context.Context, id int, at time.Time) error
	// ClaimDue atomically flips pending records whose scheduled time has
	// passed to sent and returns them, so concurrent sweeps never pick the
	// same record twice.
	ClaimDue(ctx context.Context, now time.Time) ([]domain.Notification, error)
	ListUnread(ctx context.Context, userID int) ([]domain.Notification, error)
}

type DeviceRepository interface {
	ActiveDevices(ctx context.Context, userID int) ([]domain.Device, error)
	DeactivateTokens(ctx context.Context, tokens []string) error
}

type PreferenceCache interface {
	GetPrefs(ctx context.Context, userID int) (*domain.NotificationPrefs, bool)
	SetPrefs(ctx context.Context, userID int, prefs domain.NotificationPrefs) error
}

// DeliveryCounters rolls per-send outcomes into daily category/platform
// counters for observability.
type DeliveryCounters interface {
	IncrDelivery(ctx context.Context, category domain.NotificationCategory, channel string, outcome string, n int)
}

// PushOutcome is the per-token result a token push provider reports.
type PushOutcome struct {
	Token        string
	OK           bool
	Reason       string
	Unregistered bool // provider says the device is permanently gone
}

// TokenPusher is the mobile push collaborator. One call handles at most
// maxPushChunk tokens; the dispatcher chunks.
type TokenPusher interface {
	Push(ctx context.Context, tokens []string, title, body string, data map[string]interface{}) ([]PushOutcome, error)
}

// WebMessage is the richer payload the web/multicast provider accepts.
type WebMessage struct {
	Title       string
	Body        string
	ImageURL    string
	ClickAction string
	Channel     string
	Category    string
	Data        map[string]interface{}
}

type MulticastPusher interface {
	Multicast(ctx context.Context, tokens []string, msg WebMessage) (sent, failed int, err error)
	Subscribe(ctx context.Context, topic string, tokens []string) error
	Unsubscribe(ctx context.Context, topic string, tokens []string) error
}

// LiveNotifier delivers to currently connected clients, best-effort.
type LiveNotifier interface {
	NotifyUser(userID int, n *domain.Notification)
}

// Channel is one concrete delivery path, selected by platform.
type Channel interface {
	Name() string
	Send(ctx context.Context, devices []domain.Device, n *domain.Notification) domain.ChannelStats
}
