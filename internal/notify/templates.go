package notify

import "strings"

type template struct {
	Title   string
	Message string
}

// templates keyed by the name callers pass in Request.TemplateKey.
// Placeholders use {{var}} tokens substituted from Request.TemplateVars.
var templates = map[string]template{
	"order_placed":           {"Order placed", "Your order #{{orderId}} has been placed."},
	"order_confirmed":        {"Order confirmed", "{{partner}} accepted your order #{{orderId}}."},
	"order_preparing":        {"Order in the kitchen", "Your order #{{orderId}} is being prepared."},
	"order_ready":            {"Order ready", "Your order #{{orderId}} is ready{{etaSuffix}}."},
	"order_out_for_delivery": {"On the way", "Your order #{{orderId}} is out for delivery."},
	"order_delivered":        {"Delivered", "Your order #{{orderId}} has been delivered. Enjoy your meal!"},
	"order_cancelled":        {"Order cancelled", "Your order #{{orderId}} was cancelled. {{reason}}"},
	"subscription_confirmed": {"Subscription active", "Your meal plan is active from {{startDate}}."},
	"daily_reminder":         {"Meals today", "You have {{count}} deliveries scheduled today."},
}

// RenderTemplate resolves a template key with {{var}} substitution. Returns
// false when the key is unknown so callers can fall back to literal text.
func RenderTemplate(key string, vars map[string]string) (title, message string, ok bool) {
	tpl, ok := templates[key]
	if !ok {
		return "", "", false
	}
	return substitute(tpl.Title, vars), substitute(tpl.Message, vars), true
}

func substitute(text string, vars map[string]string) string {
	for key, value := range vars {
		text = strings.ReplaceAll(text, "{{"+key+"}}", value)
	}
	// Drop tokens nobody supplied a value for.
	for {
		start := strings.Index(text, "{{")
		if start < 0 {
			break
		}
		end := strings.Index(text[start:], "}}")
		if end < 0 {
			break
		}
		text = text[:start] + text[start+end+2:]
	}
	return text
}
