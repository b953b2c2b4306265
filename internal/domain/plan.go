package domain

import "time"

type Slot string

const (
	SlotMorning   Slot = "morning"
	SlotAfternoon Slot = "afternoon"
	SlotEvening   Slot = "evening"
)

// SlotOrder is the stable materialization order. When a plan enables more
// slots than meals_per_day allows, the first meals_per_day slots in this
// order win.
var SlotOrder = []Slot{SlotMorning, SlotAfternoon, SlotEvening}

type MealType string

const (
	MealBreakfast MealType = "breakfast"
	MealLunch     MealType = "lunch"
	MealDinner    MealType = "dinner"
)

type MealSlot struct {
	Slot      Slot     `json:"slot"`
	Enabled   bool     `json:"enabled"`
	TimeRange string   `json:"time_range"` // partner-facing, e.g. "07:30-09:30"
	MealType  MealType `json:"meal_type"`
}

// MealSpec describes the composable contents of one plan meal.
type MealSpec struct {
	RotiCount int      `json:"roti_count"`
	Sabzis    []string `json:"sabzis"`
	Dal       string   `json:"dal"`
	Rice      bool     `json:"rice"`
	Salad     bool     `json:"salad"`
	Curd      bool     `json:"curd"`
	Extras    []string `json:"extras"`
}

type Plan struct {
	ID              int       `json:"id"`
	PartnerID       int       `json:"partner_id"`
	Name            string    `json:"name"`
	OperationalDays []string  `json:"operational_days"` // lowercase weekday names
	Slots           []MealSlot `json:"slots"`
	MealsPerDay     int       `json:"meals_per_day"`
	Meals           MealSpec  `json:"meals"`
	DeliveryFee     float64   `json:"delivery_fee"`
	CreatedAt       time.Time `json:"created_at"`
}

// EnabledSlots returns the plan's enabled slots in SlotOrder, truncated to
// MealsPerDay.
func (p *Plan) EnabledSlots() []MealSlot {
	byName := make(map[Slot]MealSlot, len(p.Slots))
	for _, s := range p.Slots {
		if s.Enabled {
			byName[s.Slot] = s
		}
	}

	var enabled []MealSlot
	for _, name := range SlotOrder {
		if s, ok := byName[name]; ok {
			enabled = append(enabled, s)
		}
	}
	if p.MealsPerDay >= 0 && len(enabled) > p.MealsPerDay {
		enabled = enabled[:p.MealsPerDay]
	}
	return enabled
}
