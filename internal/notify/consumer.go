package notify

import (
	"context"
	"encoding/json"
	"log"
	"strconv"

	"tiffinloop/internal/domain"

	"github.com/segmentio/kafka-go"
)

// statusTemplates maps an order status to the notification template sent to
// the customer.
var statusTemplates = map[domain.OrderStatus]string{
	domain.OrderPending:        "order_placed",
	domain.OrderConfirmed:      "order_confirmed",
	domain.OrderPreparing:      "order_preparing",
	domain.OrderReady:          "order_ready",
	domain.OrderOutForDelivery: "order_out_for_delivery",
	domain.OrderDelivered:      "order_delivered",
	domain.OrderCancelled:      "order_cancelled",
}

// Consumer turns order lifecycle events from Kafka into notification
// dispatches. Running it on its own goroutine is what keeps delivery
// asynchronous and non-blocking relative to the lifecycle transition.
type Consumer struct {
	Reader     *kafka.Reader
	Dispatcher *Dispatcher
}

func NewConsumer(reader *kafka.Reader, dispatcher *Dispatcher) *Consumer {
	return &Consumer{Reader: reader, Dispatcher: dispatcher}
}

func (c *Consumer) Start(ctx context.Context) {
	log.Println("[notify] starting order event consumer...")
	for {
		message, err := c.Reader.ReadMessage(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			log.Printf("[notify] read event: %v", err)
			continue
		}

		var event domain.OrderEvent
		if err := json.Unmarshal(message.Value, &event); err != nil {
			log.Printf("[notify] unmarshal event: %v", err)
			continue
		}
		if event.Type == domain.EventOrderStatus {
			c.ProcessOrderEvent(ctx, event)
		}
	}
}

// ProcessOrderEvent dispatches the customer-facing notification for one
// lifecycle event.
func (c *Consumer) ProcessOrderEvent(ctx context.Context, event domain.OrderEvent) {
	key, ok := statusTemplates[event.Status]
	if !ok {
		return
	}

	vars := map[string]string{
		"orderId": strconv.Itoa(event.OrderID),
		"reason":  event.Message,
	}
	if event.ETA != nil {
		vars["etaSuffix"] = " (pickup by " + event.ETA.Format("15:04") + ")"
	}

	variant := domain.VariantOrder
	if event.Status == domain.OrderCancelled {
		variant = domain.VariantError
	}

	_, err := c.Dispatcher.Dispatch(ctx, Request{
		TemplateKey:  key,
		TemplateVars: vars,
		Message:      event.Message,
		Type:         domain.NotifPush,
		Variant:      variant,
		Category:     domain.CategoryOrder,
		UserID:       event.CustomerID,
		PartnerID:    event.PartnerID,
		OrderID:      event.OrderID,
		Data: map[string]interface{}{
			"order_id": event.OrderID,
			"status":   string(event.Status),
		},
	})
	if err != nil {
		log.Printf("[notify] dispatch for order %d: %v", event.OrderID, err)
	}
}
