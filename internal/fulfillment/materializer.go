package fulfillment

import (
	"fmt"
	"strings"
	"time"

	"tiffinloop/internal/domain"
	"tiffinloop/internal/schedule"
)

// SlotHours maps a delivery slot to its representative delivery hour in the
// partner's local time. Configurable rather than hard-coded so operators can
// align it with the plan's advertised time ranges.
type SlotHours map[domain.Slot]int

func DefaultSlotHours() SlotHours {
	return SlotHours{
		domain.SlotMorning:   9,
		domain.SlotAfternoon: 13,
		domain.SlotEvening:   19,
	}
}

// Materializer turns one resolved delivery slot into an order draft.
type Materializer struct {
	Hours SlotHours
}

func NewMaterializer(hours SlotHours) Materializer {
	if hours == nil {
		hours = DefaultSlotHours()
	}
	return Materializer{Hours: hours}
}

// Draft builds an unpersisted order for one (date, slot) of a subscription.
// Meal components become zero-priced line items; the plan's delivery fee is
// the only monetary contribution to the total.
func (m Materializer) Draft(sub *domain.Subscription, plan *domain.Plan, slot schedule.DeliverySlot) *domain.Order {
	items := flattenMealSpec(plan.Meals)
	if len(items) == 0 {
		items = []domain.OrderItem{{MealID: "meal", Name: "Meal of the day", Quantity: 1, Price: 0}}
	}

	return &domain.Order{
		CustomerID:      sub.CustomerID,
		PartnerID:       plan.PartnerID,
		Items:           items,
		TotalAmount:     plan.DeliveryFee,
		DeliveryFee:     plan.DeliveryFee,
		Status:          domain.OrderPending,
		DeliveryAddress: sub.DeliveryAddress,
		ScheduledFor:    m.deliveryTime(slot),
		SubscriptionID:  sub.ID,
		PlanID:          plan.ID,
		DayOfWeek:       strings.ToLower(slot.Date.Weekday().String()),
		Slot:            slot.Slot,
	}
}

func (m Materializer) deliveryTime(slot schedule.DeliverySlot) time.Time {
	hour, ok := m.Hours[slot.Slot]
	if !ok {
		hour = DefaultSlotHours()[slot.Slot]
	}
	d := slot.Date
	return time.Date(d.Year(), d.Month(), d.Day(), hour, 0, 0, 0, d.Location())
}

func flattenMealSpec(spec domain.MealSpec) []domain.OrderItem {
	var items []domain.OrderItem
	add := func(mealID, name string, qty int) {
		items = append(items, domain.OrderItem{MealID: mealID, Name: name, Quantity: qty, Price: 0})
	}

	if spec.RotiCount > 0 {
		add("roti", "Roti", spec.RotiCount)
	}
	for i, sabzi := range spec.Sabzis {
		add(fmt.Sprintf("sabzi-%d", i+1), sabzi, 1)
	}
	if spec.Dal != "" {
		add("dal", spec.Dal, 1)
	}
	if spec.Rice {
		add("rice", "Rice", 1)
	}
	if spec.Salad {
		add("salad", "Salad", 1)
	}
	if spec.Curd {
		add("curd", "Curd", 1)
	}
	for i, extra := range spec.Extras {
		add(fmt.Sprintf("extra-%d", i+1), extra, 1)
	}
	return items
}
