package notify

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestRenderTemplate(t *testing.T) {
	tests := []struct {
		name        string
		key         string
		vars        map[string]string
		wantOK      bool
		wantMessage string
	}{
		{
			name:        "substitutes variables",
			key:         "order_placed",
			vars:        map[string]string{"orderId": "101"},
			wantOK:      true,
			wantMessage: "Your order #101 has been placed.",
		},
		{
			name:        "drops unsupplied tokens",
			key:         "order_ready",
			vars:        map[string]string{"orderId": "7"},
			wantOK:      true,
			wantMessage: "Your order #7 is ready.",
		},
		{
			name:        "keeps optional suffix when supplied",
			key:         "order_ready",
			vars:        map[string]string{"orderId": "7", "etaSuffix": " (pickup by 18:30)"},
			wantOK:      true,
			wantMessage: "Your order #7 is ready (pickup by 18:30).",
		},
		{
			name:   "unknown key",
			key:    "no_such_template",
			wantOK: false,
		},
	}

	for _, testCase := range tests {
		t.Run(testCase.name, func(t *testing.T) {
			_, message, ok := RenderTemplate(testCase.key, testCase.vars)
			assert.Equal(t, testCase.wantOK, ok)
			if testCase.wantOK {
				assert.Equal(t, testCase.wantMessage, message)
			}
		})
	}
}

func TestInQuietHours(t *testing.T) {
	at := func(clock string) time.Time {
		parsed, _ := time.Parse("15:04", clock)
		return parsed
	}

	tests := []struct {
		name       string
		now        string
		start, end string
		want       bool
	}{
		{"inside simple window", "23:30", "22:00", "23:59", true},
		{"outside simple window", "12:00", "22:00", "23:59", false},
		{"wraps midnight, late evening", "23:30", "22:00", "06:00", true},
		{"wraps midnight, early morning", "05:00", "22:00", "06:00", true},
		{"wraps midnight, daytime", "12:00", "22:00", "06:00", false},
		{"end is exclusive", "06:00", "22:00", "06:00", false},
		{"no window configured", "03:00", "", "", false},
		{"degenerate equal bounds", "03:00", "03:00", "03:00", false},
	}

	for _, testCase := range tests {
		t.Run(testCase.name, func(t *testing.T) {
			assert.Equal(t, testCase.want, inQuietHours(at(testCase.now), testCase.start, testCase.end))
		})
	}
}

func TestBypassesQuietHours(t *testing.T) {
	assert.True(t, bypassesQuietHours("error", "system"))
	assert.True(t, bypassesQuietHours("info", "order"))
	assert.False(t, bypassesQuietHours("promotion", "promotion"))
}
