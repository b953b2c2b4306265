package schedule

import (
	"strings"
	"time"

	"tiffinloop/internal/domain"
)

// DeliverySlot is one concrete (date, slot) a subscription materializes into.
type DeliverySlot struct {
	Date      time.Time
	Slot      domain.Slot
	MealType  domain.MealType
	TimeRange string
}

// Resolve expands a plan over [start, end) into the ordered list of delivery
// slots. Pure function of its inputs: identical plan and range always yield
// the identical sequence, which is what makes batch regeneration safe.
//
// Days whose weekday name is not in the plan's operational set are skipped.
// An empty operational set or zero enabled slots yields an empty sequence.
func Resolve(plan *domain.Plan, start, end time.Time) []DeliverySlot {
	operational := make(map[string]bool, len(plan.OperationalDays))
	for _, day := range plan.OperationalDays {
		operational[strings.ToLower(day)] = true
	}

	enabled := plan.EnabledSlots()
	if len(operational) == 0 || len(enabled) == 0 {
		return nil
	}

	var out []DeliverySlot
	for day := truncateToDay(start); day.Before(end); day = day.AddDate(0, 0, 1) {
		if !operational[strings.ToLower(day.Weekday().String())] {
			continue
		}
		for _, slot := range enabled {
			out = append(out, DeliverySlot{
				Date:      day,
				Slot:      slot.Slot,
				MealType:  slot.MealType,
				TimeRange: slot.TimeRange,
			})
		}
	}
	return out
}

func truncateToDay(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
}
