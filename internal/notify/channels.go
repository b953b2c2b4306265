package notify

import (
	"context"
	"log"

	"tiffinloop/internal/domain"
)

// maxPushChunk is the provider's per-call token limit.
const maxPushChunk = 100

const (
	ChannelMobile = "push"
	ChannelWeb    = "web"
	ChannelLive   = "realtime"
)

// MobileChannel delivers through the token push provider in chunks of at
// most maxPushChunk, tracking per-token outcomes and collecting tokens the
// provider reports as permanently unregistered.
type MobileChannel struct {
	pusher  TokenPusher
	devices DeviceRepository
}

func NewMobileChannel(pusher TokenPusher, devices DeviceRepository) *MobileChannel {
	return &MobileChannel{pusher: pusher, devices: devices}
}

func (c *MobileChannel) Name() string { return ChannelMobile }

func (c *MobileChannel) Send(ctx context.Context, devices []domain.Device, n *domain.Notification) domain.ChannelStats {
	tokens := make([]string, 0, len(devices))
	for _, device := range devices {
		tokens = append(tokens, device.Token)
	}

	var stats domain.ChannelStats
	var dead []string
	for start := 0; start < len(tokens); start += maxPushChunk {
		end := start + maxPushChunk
		if end > len(tokens) {
			end = len(tokens)
		}

		outcomes, err := c.pusher.Push(ctx, tokens[start:end], n.Title, n.Message, n.Data)
		if err != nil {
			// Whole-chunk failure: count every token as failed and move on.
			stats.Failed += end - start
			log.Printf("[notify] push chunk failed (%d tokens): %v", end-start, err)
			continue
		}
		for _, outcome := range outcomes {
			if outcome.OK {
				stats.Sent++
				continue
			}
			stats.Failed++
			if outcome.Unregistered {
				dead = append(dead, outcome.Token)
			}
		}
	}

	if len(dead) > 0 {
		if err := c.devices.DeactivateTokens(ctx, dead); err != nil {
			log.Printf("[notify] deactivate %d dead tokens: %v", len(dead), err)
		}
	}
	return stats
}

// WebChannel delivers through the multicast provider with the rich payload
// (image, click target, category channel tag).
type WebChannel struct {
	pusher MulticastPusher
}

func NewWebChannel(pusher MulticastPusher) *WebChannel {
	return &WebChannel{pusher: pusher}
}

func (c *WebChannel) Name() string { return ChannelWeb }

func (c *WebChannel) Send(ctx context.Context, devices []domain.Device, n *domain.Notification) domain.ChannelStats {
	tokens := make([]string, 0, len(devices))
	for _, device := range devices {
		tokens = append(tokens, device.Token)
	}

	msg := WebMessage{
		Title:    n.Title,
		Body:     n.Message,
		Channel:  string(n.Category),
		Category: string(n.Category),
		Data:     n.Data,
	}
	if image, ok := n.Data["image_url"].(string); ok {
		msg.ImageURL = image
	}
	if click, ok := n.Data["click_action"].(string); ok {
		msg.ClickAction = click
	}

	sent, failed, err := c.pusher.Multicast(ctx, tokens, msg)
	if err != nil {
		log.Printf("[notify] web multicast (%d tokens): %v", len(tokens), err)
		return domain.ChannelStats{Failed: len(tokens)}
	}
	return domain.ChannelStats{Sent: sent, Failed: failed}
}

// ChannelsByPlatform builds the platform-keyed lookup the dispatcher uses
// instead of scattered platform branching.
func ChannelsByPlatform(mobile *MobileChannel, web *WebChannel) map[domain.Platform]Channel {
	return map[domain.Platform]Channel{
		domain.PlatformIOS:     mobile,
		domain.PlatformAndroid: mobile,
		domain.PlatformWeb:     web,
	}
}
