package notify

import (
	"context"
	"log"
	"sync"
	"time"

	"tiffinloop/internal/domain"
)

// Request is one notification submission, from a lifecycle event or
// standalone. TemplateKey, when set, resolves title/message with TemplateVars.
type Request struct {
	Title        string
	Message      string
	TemplateKey  string
	TemplateVars map[string]string
	Type         domain.NotificationType
	Variant      domain.NotificationVariant
	Category     domain.NotificationCategory
	UserID       int
	PartnerID    int
	OrderID      int
	Data         map[string]interface{}
	ScheduledFor *time.Time
}

// Dispatcher persists one Notification per request and fans delivery out
// across the platform-keyed channels. Delivery failures never propagate to
// the caller; they land in stats, counters and logs.
type Dispatcher struct {
	repo     NotificationRepository
	devices  DeviceRepository
	prefs    PreferenceCache
	counters DeliveryCounters
	channels map[domain.Platform]Channel
	live     LiveNotifier
	now      func() time.Time
}

func NewDispatcher(
	repo NotificationRepository,
	devices DeviceRepository,
	prefs PreferenceCache,
	counters DeliveryCounters,
	channels map[domain.Platform]Channel,
	live LiveNotifier,
) *Dispatcher {
	return &Dispatcher{
		repo:     repo,
		devices:  devices,
		prefs:    prefs,
		counters: counters,
		channels: channels,
		live:     live,
		now:      time.Now,
	}
}

// Dispatch persists the notification and, unless it is scheduled for the
// future, delivers it immediately.
func (d *Dispatcher) Dispatch(ctx context.Context, req Request) (*domain.Notification, error) {
	n := d.build(req)

	if err := d.repo.CreateNotification(ctx, n); err != nil {
		return nil, err
	}
	if n.Status == domain.NotificationPending {
		return n, nil // the sweep promotes it when due
	}

	d.Deliver(ctx, n)
	return n, nil
}

func (d *Dispatcher) build(req Request) *domain.Notification {
	title, message := req.Title, req.Message
	if req.TemplateKey != "" {
		if t, m, ok := RenderTemplate(req.TemplateKey, req.TemplateVars); ok {
			title, message = t, m
		} else {
			log.Printf("[notify] unknown template %q, using literal text", req.TemplateKey)
		}
	}

	status := domain.NotificationSent
	if req.ScheduledFor != nil && req.ScheduledFor.After(d.now()) {
		status = domain.NotificationPending
	}

	return &domain.Notification{
		Title:        title,
		Message:      message,
		Type:         req.Type,
		Variant:      req.Variant,
		Category:     req.Category,
		UserID:       req.UserID,
		PartnerID:    req.PartnerID,
		OrderID:      req.OrderID,
		Data:         req.Data,
		Status:       status,
		ScheduledFor: req.ScheduledFor,
		CreatedAt:    d.now(),
	}
}

// Deliver fans one persisted notification out to the target user's devices
// and live connection. Never returns an error: each failure is absorbed into
// stats and counters.
func (d *Dispatcher) Deliver(ctx context.Context, n *domain.Notification) {
	if n.UserID == 0 {
		return
	}

	devices, err := d.devices.ActiveDevices(ctx, n.UserID)
	if err != nil {
		log.Printf("[notify] resolve devices for user %d: %v", n.UserID, err)
		_ = d.repo.UpdateNotificationStatus(ctx, n.ID, domain.NotificationFailed)
		return
	}

	prefs := d.loadPrefs(ctx, n.UserID, devices)
	if !prefs.Allows(n.Category) {
		d.count(ctx, n.Category, "all", "skipped", len(devices))
		return
	}

	stats := make(map[string]domain.ChannelStats)
	byPlatform := make(map[domain.Platform][]domain.Device)
	now := d.now()
	urgent := bypassesQuietHours(string(n.Variant), string(n.Category))

	for _, device := range devices {
		if !urgent && inQuietHours(now, device.QuietStart, device.QuietEnd) {
			channel := d.channelNameFor(device.Platform)
			s := stats[channel]
			s.Skipped++
			stats[channel] = s
			continue
		}
		byPlatform[device.Platform] = append(byPlatform[device.Platform], device)
	}

	// When every device is inside its quiet window the whole dispatch is
	// silenced, live delivery included; the record waits as unread history.
	quietedAll := !urgent && len(devices) > 0 && len(byPlatform) == 0

	for platform, targets := range byPlatform {
		channel, ok := d.channels[platform]
		if !ok {
			log.Printf("[notify] no channel for platform %q", platform)
			continue
		}
		sent := channel.Send(ctx, targets, n)
		s := stats[channel.Name()]
		s.Sent += sent.Sent
		s.Failed += sent.Failed
		s.Skipped += sent.Skipped
		stats[channel.Name()] = s
	}

	if d.live != nil && !quietedAll {
		d.live.NotifyUser(n.UserID, n)
	}

	n.Stats = stats
	if err := d.repo.UpdateNotificationStats(ctx, n.ID, stats); err != nil {
		log.Printf("[notify] update stats for notification %d: %v", n.ID, err)
	}
	for channel, s := range stats {
		d.count(ctx, n.Category, channel, "sent", s.Sent)
		d.count(ctx, n.Category, channel, "failed", s.Failed)
		d.count(ctx, n.Category, channel, "skipped", s.Skipped)
	}
}

// MarkRead acknowledges a notification for history/replay purposes.
func (d *Dispatcher) MarkRead(ctx context.Context, id int) error {
	return d.repo.MarkNotificationRead(ctx, id, d.now())
}

// DispatchBatch submits many requests in fixed-size chunks with a small
// inter-chunk delay to respect downstream rate limits. Failures are
// isolated per member; the aggregate counts are returned.
func (d *Dispatcher) DispatchBatch(ctx context.Context, reqs []Request, chunkSize int, delay time.Duration) (sent, failed int) {
	if chunkSize <= 0 {
		chunkSize = 10
	}

	for start := 0; start < len(reqs); start += chunkSize {
		end := start + chunkSize
		if end > len(reqs) {
			end = len(reqs)
		}

		var wg sync.WaitGroup
		var mu sync.Mutex
		for _, req := range reqs[start:end] {
			wg.Add(1)
			go func(req Request) {
				defer wg.Done()
				_, err := d.Dispatch(ctx, req)
				mu.Lock()
				if err != nil {
					failed++
					log.Printf("[notify] batch member failed: %v", err)
				} else {
					sent++
				}
				mu.Unlock()
			}(req)
		}
		wg.Wait()

		if end < len(reqs) && delay > 0 {
			time.Sleep(delay)
		}
	}
	return sent, failed
}

func (d *Dispatcher) loadPrefs(ctx context.Context, userID int, devices []domain.Device) domain.NotificationPrefs {
	if cached, ok := d.prefs.GetPrefs(ctx, userID); ok {
		return *cached
	}

	prefs := domain.DefaultPrefs
	if len(devices) > 0 {
		prefs = devices[0].Prefs
	}
	if err := d.prefs.SetPrefs(ctx, userID, prefs); err != nil {
		log.Printf("[notify] cache prefs for user %d: %v", userID, err)
	}
	return prefs
}

func (d *Dispatcher) channelNameFor(platform domain.Platform) string {
	if channel, ok := d.channels[platform]; ok {
		return channel.Name()
	}
	return string(platform)
}

func (d *Dispatcher) count(ctx context.Context, category domain.NotificationCategory, channel, outcome string, n int) {
	if d.counters == nil || n == 0 {
		return
	}
	d.counters.IncrDelivery(ctx, category, channel, outcome, n)
}
