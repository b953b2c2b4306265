package fulfillment

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"tiffinloop/internal/domain"
	"tiffinloop/internal/schedule"
)

func TestMaterializer_Draft(t *testing.T) {
	sub := &domain.Subscription{
		ID:              7,
		CustomerID:      42,
		PlanID:          3,
		DeliveryAddress: "12 MG Road",
	}
	plan := &domain.Plan{
		ID:          3,
		PartnerID:   9,
		DeliveryFee: 25,
		Meals: domain.MealSpec{
			RotiCount: 4,
			Sabzis:    []string{"Aloo Gobi", "Bhindi"},
			Dal:       "Dal Tadka",
			Rice:      true,
			Curd:      true,
		},
	}
	slot := schedule.DeliverySlot{
		Date: time.Date(2025, 6, 2, 0, 0, 0, 0, time.UTC),
		Slot: domain.SlotAfternoon,
	}

	order := NewMaterializer(nil).Draft(sub, plan, slot)

	assert.Equal(t, 42, order.CustomerID)
	assert.Equal(t, 9, order.PartnerID)
	assert.Equal(t, 7, order.SubscriptionID)
	assert.Equal(t, 3, order.PlanID)
	assert.Equal(t, "monday", order.DayOfWeek)
	assert.Equal(t, domain.SlotAfternoon, order.Slot)
	assert.Equal(t, domain.OrderPending, order.Status)
	assert.Equal(t, "12 MG Road", order.DeliveryAddress)

	// delivery fee is the only monetary contribution
	assert.Equal(t, 25.0, order.TotalAmount)
	assert.Equal(t, 25.0, order.DeliveryFee)
	assert.Equal(t, 0.0, order.ItemsTotal())

	// roti, two sabzis, dal, rice, curd
	assert.Len(t, order.Items, 6)
	assert.Equal(t, "Roti", order.Items[0].Name)
	assert.Equal(t, 4, order.Items[0].Quantity)

	// afternoon default delivery hour
	assert.Equal(t, 13, order.ScheduledFor.Hour())
	assert.Equal(t, slot.Date.Day(), order.ScheduledFor.Day())
}

func TestMaterializer_DraftEmptyMealSpec(t *testing.T) {
	sub := &domain.Subscription{ID: 1, CustomerID: 2}
	plan := &domain.Plan{ID: 1, PartnerID: 3, DeliveryFee: 10}
	slot := schedule.DeliverySlot{Date: time.Date(2025, 6, 3, 0, 0, 0, 0, time.UTC), Slot: domain.SlotMorning}

	order := NewMaterializer(nil).Draft(sub, plan, slot)

	assert.Len(t, order.Items, 1)
	assert.Equal(t, "Meal of the day", order.Items[0].Name)
}

func TestMaterializer_CustomSlotHours(t *testing.T) {
	hours := SlotHours{domain.SlotEvening: 20}
	slot := schedule.DeliverySlot{Date: time.Date(2025, 6, 4, 0, 0, 0, 0, time.UTC), Slot: domain.SlotEvening}

	order := NewMaterializer(hours).Draft(&domain.Subscription{}, &domain.Plan{}, slot)

	assert.Equal(t, 20, order.ScheduledFor.Hour())
}

func TestMaterializer_Deterministic(t *testing.T) {
	sub := &domain.Subscription{ID: 5, CustomerID: 6}
	plan := &domain.Plan{ID: 2, PartnerID: 4, DeliveryFee: 15, Meals: domain.MealSpec{RotiCount: 2, Dal: "Moong Dal"}}
	slot := schedule.DeliverySlot{Date: time.Date(2025, 6, 5, 0, 0, 0, 0, time.UTC), Slot: domain.SlotMorning}

	m := NewMaterializer(nil)
	first := m.Draft(sub, plan, slot)
	second := m.Draft(sub, plan, slot)

	assert.Equal(t, first, second)
}
