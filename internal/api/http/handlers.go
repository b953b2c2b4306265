package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"strconv"
	"time"

	"github.com/gorilla/mux"

	"tiffinloop/internal/domain"
	"tiffinloop/internal/notify"
	"tiffinloop/internal/orders"
	"tiffinloop/internal/subscriptions"
)

// Notifier is the slice of the dispatcher the HTTP layer needs.
type Notifier interface {
	Dispatch(ctx context.Context, req notify.Request) (*domain.Notification, error)
	MarkRead(ctx context.Context, id int) error
}

// PlanStore and DeviceRegistry are backed by the Postgres repository.
type PlanStore interface {
	CreatePlan(ctx context.Context, plan *domain.Plan) error
	GetPlan(ctx context.Context, id int) (*domain.Plan, error)
}

type DeviceRegistry interface {
	UpsertDevice(ctx context.Context, d *domain.Device) error
}

// TopicManager keeps web push topic membership aligned with device prefs.
type TopicManager interface {
	Subscribe(ctx context.Context, topic string, tokens []string) error
	Unsubscribe(ctx context.Context, topic string, tokens []string) error
}

type NotificationStore interface {
	ListNotifications(ctx context.Context, userID int, limit int) ([]domain.Notification, error)
}

type Handler struct {
	Orders        orders.ServiceInterface
	Subscriptions subscriptions.ServiceInterface
	Plans         PlanStore
	Devices       DeviceRegistry
	Topics        TopicManager
	Notifier      Notifier
	Notifications NotificationStore
	WS            http.HandlerFunc
}

func (h *Handler) RegisterRoutes(r *mux.Router) {
	r.HandleFunc("/health", h.healthCheck).Methods("GET")

	r.HandleFunc("/api/plans", h.createPlan).Methods("POST")
	r.HandleFunc("/api/plans/{id}", h.getPlan).Methods("GET")

	r.HandleFunc("/api/subscriptions", h.createSubscription).Methods("POST")
	r.HandleFunc("/api/subscriptions/{id}", h.getSubscription).Methods("GET")
	r.HandleFunc("/api/subscriptions/{id}/activate", h.activateSubscription).Methods("POST")
	r.HandleFunc("/api/subscriptions/{id}/pause", h.pauseSubscription).Methods("POST")
	r.HandleFunc("/api/subscriptions/{id}/resume", h.resumeSubscription).Methods("POST")
	r.HandleFunc("/api/subscriptions/{id}/cancel", h.cancelSubscription).Methods("POST")
	r.HandleFunc("/api/subscriptions/{id}/regenerate", h.regenerateSubscription).Methods("POST")

	r.HandleFunc("/api/orders", h.createOrder).Methods("POST")
	r.HandleFunc("/api/orders", h.listOrders).Methods("GET")
	r.HandleFunc("/api/orders/{id}", h.getOrder).Methods("GET")
	r.HandleFunc("/api/orders/{id}", h.updateOrder).Methods("PUT")
	r.HandleFunc("/api/orders/{id}/accept", h.acceptOrder).Methods("POST")
	r.HandleFunc("/api/orders/{id}/reject", h.rejectOrder).Methods("POST")
	r.HandleFunc("/api/orders/{id}/ready", h.markOrderReady).Methods("POST")
	r.HandleFunc("/api/orders/{id}/status", h.transitionOrder).Methods("POST")
	r.HandleFunc("/api/orders/{id}/pay", h.payOrder).Methods("POST")
	r.HandleFunc("/api/orders/{id}/review", h.reviewOrder).Methods("POST")
	r.HandleFunc("/api/orders/{id}/qrcode", h.getOrderQRCode).Methods("GET")

	r.HandleFunc("/api/devices", h.registerDevice).Methods("POST")

	r.HandleFunc("/api/notifications", h.listNotifications).Methods("GET")
	r.HandleFunc("/api/notifications", h.sendNotification).Methods("POST")
	r.HandleFunc("/api/notifications/{id}/read", h.markNotificationRead).Methods("POST")

	if h.WS != nil {
		r.HandleFunc("/ws", h.WS)
	}
}

func (h *Handler) healthCheck(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"status":    "healthy",
		"service":   "tiffinloop",
		"timestamp": time.Now().Format(time.RFC3339),
	})
}

func (h *Handler) createPlan(w http.ResponseWriter, r *http.Request) {
	var plan domain.Plan
	if err := json.NewDecoder(r.Body).Decode(&plan); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	if err := h.Plans.CreatePlan(r.Context(), &plan); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, plan)
}

func (h *Handler) getPlan(w http.ResponseWriter, r *http.Request) {
	id, _ := strconv.Atoi(mux.Vars(r)["id"])
	plan, err := h.Plans.GetPlan(r.Context(), id)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, plan)
}

func (h *Handler) createSubscription(w http.ResponseWriter, r *http.Request) {
	var sub domain.Subscription
	if err := json.NewDecoder(r.Body).Decode(&sub); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	if err := h.Subscriptions.Create(r.Context(), &sub); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, sub)
}

func (h *Handler) getSubscription(w http.ResponseWriter, r *http.Request) {
	id, _ := strconv.Atoi(mux.Vars(r)["id"])
	sub, err := h.Subscriptions.Get(r.Context(), id)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, sub)
}

func (h *Handler) activateSubscription(w http.ResponseWriter, r *http.Request) {
	id, _ := strconv.Atoi(mux.Vars(r)["id"])
	var body struct {
		PaymentRef string `json:"payment_ref"`
	}
	json.NewDecoder(r.Body).Decode(&body)

	result, err := h.Subscriptions.Activate(r.Context(), id, body.PaymentRef)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

func (h *Handler) pauseSubscription(w http.ResponseWriter, r *http.Request) {
	id, _ := strconv.Atoi(mux.Vars(r)["id"])
	if err := h.Subscriptions.Pause(r.Context(), id); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) resumeSubscription(w http.ResponseWriter, r *http.Request) {
	id, _ := strconv.Atoi(mux.Vars(r)["id"])
	if err := h.Subscriptions.Resume(r.Context(), id); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) cancelSubscription(w http.ResponseWriter, r *http.Request) {
	id, _ := strconv.Atoi(mux.Vars(r)["id"])
	if err := h.Subscriptions.Cancel(r.Context(), id); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) regenerateSubscription(w http.ResponseWriter, r *http.Request) {
	id, _ := strconv.Atoi(mux.Vars(r)["id"])
	result, err := h.Subscriptions.Regenerate(r.Context(), id)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

func (h *Handler) createOrder(w http.ResponseWriter, r *http.Request) {
	var order domain.Order
	if err := json.NewDecoder(r.Body).Decode(&order); err != nil {
		http.Error(w, "Invalid JSON format: "+err.Error(), http.StatusBadRequest)
		return
	}
	if err := h.Orders.Create(r.Context(), &order); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, order)
}

func (h *Handler) listOrders(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	filter := domain.OrderFilter{
		Status: domain.OrderStatus(q.Get("status")),
	}
	filter.CustomerID, _ = strconv.Atoi(q.Get("customer_id"))
	filter.PartnerID, _ = strconv.Atoi(q.Get("partner_id"))
	filter.SubscriptionID, _ = strconv.Atoi(q.Get("subscription_id"))
	if from := q.Get("from"); from != "" {
		filter.From, _ = time.Parse("2006-01-02", from)
	}
	if to := q.Get("to"); to != "" {
		filter.To, _ = time.Parse("2006-01-02", to)
	}

	list, err := h.Orders.List(r.Context(), filter)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, list)
}

func (h *Handler) getOrder(w http.ResponseWriter, r *http.Request) {
	id, _ := strconv.Atoi(mux.Vars(r)["id"])
	order, err := h.Orders.Get(r.Context(), id)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, order)
}

func (h *Handler) updateOrder(w http.ResponseWriter, r *http.Request) {
	id, _ := strconv.Atoi(mux.Vars(r)["id"])
	var order domain.Order
	if err := json.NewDecoder(r.Body).Decode(&order); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	order.ID = id
	if err := h.Orders.Update(r.Context(), &order); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, order)
}

func (h *Handler) acceptOrder(w http.ResponseWriter, r *http.Request) {
	id, _ := strconv.Atoi(mux.Vars(r)["id"])
	var body struct {
		PartnerID  int `json:"partner_id"`
		ETAMinutes int `json:"eta_minutes"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	var eta *time.Duration
	if body.ETAMinutes > 0 {
		d := time.Duration(body.ETAMinutes) * time.Minute
		eta = &d
	}
	order, err := h.Orders.Accept(r.Context(), id, body.PartnerID, eta)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, order)
}

func (h *Handler) rejectOrder(w http.ResponseWriter, r *http.Request) {
	id, _ := strconv.Atoi(mux.Vars(r)["id"])
	var body struct {
		PartnerID int    `json:"partner_id"`
		Reason    string `json:"reason"`
		Message   string `json:"message"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	order, err := h.Orders.Reject(r.Context(), id, body.PartnerID, body.Reason, body.Message)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, order)
}

func (h *Handler) markOrderReady(w http.ResponseWriter, r *http.Request) {
	id, _ := strconv.Atoi(mux.Vars(r)["id"])
	var body struct {
		PartnerID        int `json:"partner_id"`
		PickupETAMinutes int `json:"pickup_eta_minutes"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	var eta *time.Duration
	if body.PickupETAMinutes > 0 {
		d := time.Duration(body.PickupETAMinutes) * time.Minute
		eta = &d
	}
	order, err := h.Orders.MarkReady(r.Context(), id, body.PartnerID, eta)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, order)
}

func (h *Handler) transitionOrder(w http.ResponseWriter, r *http.Request) {
	id, _ := strconv.Atoi(mux.Vars(r)["id"])
	var body struct {
		Status  string `json:"status"`
		Message string `json:"message"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	order, err := h.Orders.Transition(r.Context(), id, domain.OrderStatus(body.Status), body.Message)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, order)
}

func (h *Handler) payOrder(w http.ResponseWriter, r *http.Request) {
	id, _ := strconv.Atoi(mux.Vars(r)["id"])
	var body struct {
		TransactionID string  `json:"transaction_id"`
		Method        string  `json:"method"`
		Amount        float64 `json:"amount"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	order, err := h.Orders.MarkPaid(r.Context(), id, body.TransactionID, body.Method, body.Amount)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, order)
}

func (h *Handler) reviewOrder(w http.ResponseWriter, r *http.Request) {
	id, _ := strconv.Atoi(mux.Vars(r)["id"])
	var body struct {
		Rating  int    `json:"rating"`
		Comment string `json:"comment"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	order, err := h.Orders.AddReview(r.Context(), id, body.Rating, body.Comment)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, order)
}

func (h *Handler) getOrderQRCode(w http.ResponseWriter, r *http.Request) {
	id, _ := strconv.Atoi(mux.Vars(r)["id"])
	qrCode, err := h.Orders.HandoffQR(r.Context(), id)
	if err != nil {
		writeError(w, err)
		return
	}
	w.Header().Set("Content-Type", "image/png")
	w.Header().Set("Cache-Control", "public, max-age=3600")
	w.WriteHeader(http.StatusOK)
	w.Write(qrCode)
}

func (h *Handler) registerDevice(w http.ResponseWriter, r *http.Request) {
	var device domain.Device
	if err := json.NewDecoder(r.Body).Decode(&device); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	if device.Token == "" {
		http.Error(w, "token is required", http.StatusBadRequest)
		return
	}
	switch device.Platform {
	case domain.PlatformIOS, domain.PlatformAndroid, domain.PlatformWeb:
	default:
		http.Error(w, "platform must be ios, android or web", http.StatusBadRequest)
		return
	}

	if err := h.Devices.UpsertDevice(r.Context(), &device); err != nil {
		writeError(w, err)
		return
	}
	if device.Platform == domain.PlatformWeb && h.Topics != nil {
		h.syncTopics(r.Context(), &device)
	}
	writeJSON(w, http.StatusOK, device)
}

// syncTopics subscribes the web token to every category the device allows
// and unsubscribes the rest. Best-effort: failures are logged, the
// registration itself has already succeeded.
func (h *Handler) syncTopics(ctx context.Context, device *domain.Device) {
	tokens := []string{device.Token}
	for _, category := range domain.Categories {
		var err error
		if device.Prefs.Allows(category) {
			err = h.Topics.Subscribe(ctx, string(category), tokens)
		} else {
			err = h.Topics.Unsubscribe(ctx, string(category), tokens)
		}
		if err != nil {
			log.Printf("[api] sync topic %s for device %s: %v", category, device.Token, err)
		}
	}
}

func (h *Handler) listNotifications(w http.ResponseWriter, r *http.Request) {
	userID, _ := strconv.Atoi(r.URL.Query().Get("user_id"))
	if userID <= 0 {
		http.Error(w, "user_id is required", http.StatusBadRequest)
		return
	}
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))

	list, err := h.Notifications.ListNotifications(r.Context(), userID, limit)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, list)
}

func (h *Handler) sendNotification(w http.ResponseWriter, r *http.Request) {
	var req notify.Request
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	if req.UserID <= 0 {
		http.Error(w, "user_id is required", http.StatusBadRequest)
		return
	}

	n, err := h.Notifier.Dispatch(r.Context(), req)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, n)
}

func (h *Handler) markNotificationRead(w http.ResponseWriter, r *http.Request) {
	id, _ := strconv.Atoi(mux.Vars(r)["id"])
	if err := h.Notifier.MarkRead(r.Context(), id); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func writeJSON(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(payload)
}

// writeError maps service errors onto HTTP statuses: unknown records are 404,
// guard violations are 4xx, everything else is a 500.
func writeError(w http.ResponseWriter, err error) {
	var invalid *orders.InvalidTransitionError
	switch {
	case errors.Is(err, domain.ErrNotFound):
		http.Error(w, err.Error(), http.StatusNotFound)
	case errors.As(err, &invalid):
		http.Error(w, err.Error(), http.StatusConflict)
	case errors.Is(err, orders.ErrNotOwner):
		http.Error(w, err.Error(), http.StatusForbidden)
	case errors.Is(err, orders.ErrPartnerRequired):
		http.Error(w, err.Error(), http.StatusBadRequest)
	case errors.Is(err, orders.ErrAlreadyPaid),
		errors.Is(err, orders.ErrAlreadyReviewed),
		errors.Is(err, orders.ErrOrderClosed),
		errors.Is(err, subscriptions.ErrNotActive),
		errors.Is(err, subscriptions.ErrCancelled),
		errors.Is(err, subscriptions.ErrPaused),
		errors.Is(err, subscriptions.ErrNotPaused):
		http.Error(w, err.Error(), http.StatusConflict)
	case errors.Is(err, orders.ErrAmountMismatch),
		errors.Is(err, orders.ErrTotalMismatch),
		errors.Is(err, orders.ErrInvalidRating),
		errors.Is(err, orders.ErrNotDelivered),
		errors.Is(err, subscriptions.ErrBadRange):
		http.Error(w, err.Error(), http.StatusUnprocessableEntity)
	case errors.Is(err, domain.ErrDuplicate):
		http.Error(w, err.Error(), http.StatusConflict)
	default:
		http.Error(w, err.Error(), http.StatusInternalServerError)
	}
}
