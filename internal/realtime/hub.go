package realtime

import (
	"context"
	"encoding/json"
	"log"
	"net/http"
	"strconv"
	"sync"

	"tiffinloop/internal/domain"

	"github.com/gorilla/websocket"
)

// HistorySource supplies the unread notifications replayed on (re)connect.
type HistorySource interface {
	ListUnread(ctx context.Context, userID int) ([]domain.Notification, error)
}

// Event is the wire frame sent to clients.
type Event struct {
	Event   string      `json:"event"`
	Payload interface{} `json:"payload"`
}

func UserRoom(userID int) string  { return "user:" + strconv.Itoa(userID) }
func RoleRoom(role string) string { return "role:" + role }
func OrderRoom(orderID int) string { return "order:" + strconv.Itoa(orderID) }

// clientCommand is what connected clients may send: joining or leaving an
// order room for shared/partner views.
type clientCommand struct {
	Action  string `json:"action"` // "join_order" | "leave_order"
	OrderID int    `json:"order_id"`
}

// Hub keeps one logical connection per authenticated user. A new connection
// from the same user supersedes the registry entry (last writer wins); the
// replaced socket is not force-closed, it simply stops receiving user
// events. All maps are guarded by mu.
type Hub struct {
	mu      sync.Mutex
	users   map[int]*websocket.Conn
	rooms   map[string]map[*websocket.Conn]bool
	history HistorySource

	upgrader websocket.Upgrader
}

func NewHub(history HistorySource) *Hub {
	return &Hub{
		users:   make(map[int]*websocket.Conn),
		rooms:   make(map[string]map[*websocket.Conn]bool),
		history: history,
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool { return true },
		},
	}
}

// HandleWS upgrades the request and serves the connection until the client
// goes away. Identity comes from the (already authenticated) user_id and
// role query parameters; auth itself lives in the HTTP layer.
func (h *Hub) HandleWS(w http.ResponseWriter, r *http.Request) {
	userID, err := strconv.Atoi(r.URL.Query().Get("user_id"))
	if err != nil || userID <= 0 {
		http.Error(w, "missing user_id", http.StatusBadRequest)
		return
	}
	role := r.URL.Query().Get("role")
	if role == "" {
		role = "customer"
	}

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("[realtime] upgrade: %v", err)
		return
	}
	defer conn.Close()

	// Replay before registering: gorilla permits one concurrent writer per
	// conn, and registration exposes it to the Emit paths, which write
	// under h.mu. Until Register runs, replay is the only writer.
	h.replay(r.Context(), userID, conn)

	h.Register(userID, conn)
	h.Join(UserRoom(userID), conn)
	h.Join(RoleRoom(role), conn)
	defer h.Unregister(userID, conn)

	for {
		_, raw, err := conn.ReadMessage()
		if err != nil {
			return
		}
		var cmd clientCommand
		if err := json.Unmarshal(raw, &cmd); err != nil {
			continue
		}
		switch cmd.Action {
		case "join_order":
			h.Join(OrderRoom(cmd.OrderID), conn)
		case "leave_order":
			h.Leave(OrderRoom(cmd.OrderID), conn)
		}
	}
}

// Register installs conn as the user's live connection, superseding any
// previous one.
func (h *Hub) Register(userID int, conn *websocket.Conn) {
	h.mu.Lock()
	h.users[userID] = conn
	h.mu.Unlock()
}

// Unregister removes the registry entry and all room memberships, but only
// if conn is still the current connection for the user.
func (h *Hub) Unregister(userID int, conn *websocket.Conn) {
	h.mu.Lock()
	if h.users[userID] == conn {
		delete(h.users, userID)
	}
	for room, members := range h.rooms {
		delete(members, conn)
		if len(members) == 0 {
			delete(h.rooms, room)
		}
	}
	h.mu.Unlock()
}

func (h *Hub) Join(room string, conn *websocket.Conn) {
	h.mu.Lock()
	if h.rooms[room] == nil {
		h.rooms[room] = make(map[*websocket.Conn]bool)
	}
	h.rooms[room][conn] = true
	h.mu.Unlock()
}

func (h *Hub) Leave(room string, conn *websocket.Conn) {
	h.mu.Lock()
	if members := h.rooms[room]; members != nil {
		delete(members, conn)
		if len(members) == 0 {
			delete(h.rooms, room)
		}
	}
	h.mu.Unlock()
}

// Connected reports whether the user currently has a live connection.
func (h *Hub) Connected(userID int) bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.users[userID] != nil
}

// EmitToRoom writes the event to every member of the room. Dead connections
// are closed and evicted on write failure.
func (h *Hub) EmitToRoom(room string, ev Event) {
	frame, err := json.Marshal(ev)
	if err != nil {
		log.Printf("[realtime] marshal event: %v", err)
		return
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	for conn := range h.rooms[room] {
		if err := conn.WriteMessage(websocket.TextMessage, frame); err != nil {
			conn.Close()
			delete(h.rooms[room], conn)
		}
	}
}

// EmitToUser delivers to the user's registered connection, best-effort. A
// user without a live connection simply misses the live event; the
// persisted notification record covers them on reconnect.
func (h *Hub) EmitToUser(userID int, ev Event) {
	frame, err := json.Marshal(ev)
	if err != nil {
		return
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	conn := h.users[userID]
	if conn == nil {
		return
	}
	if err := conn.WriteMessage(websocket.TextMessage, frame); err != nil {
		conn.Close()
		delete(h.users, userID)
	}
}

// NotifyUser implements the dispatcher's live channel: the event goes to
// the user's connection and, when order-scoped, to the order room.
func (h *Hub) NotifyUser(userID int, n *domain.Notification) {
	ev := Event{Event: "notification", Payload: n}
	h.EmitToUser(userID, ev)
	if n.OrderID != 0 {
		h.EmitToRoom(OrderRoom(n.OrderID), ev)
	}
}

func (h *Hub) replay(ctx context.Context, userID int, conn *websocket.Conn) {
	if h.history == nil {
		return
	}
	pending, err := h.history.ListUnread(ctx, userID)
	if err != nil {
		log.Printf("[realtime] replay for user %d: %v", userID, err)
		return
	}
	for i := range pending {
		frame, err := json.Marshal(Event{Event: "notification", Payload: &pending[i]})
		if err != nil {
			continue
		}
		if err := conn.WriteMessage(websocket.TextMessage, frame); err != nil {
			return
		}
	}
	if len(pending) > 0 {
		log.Printf("[realtime] replayed %d notifications to user %d", len(pending), userID)
	}
}
