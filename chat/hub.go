package chat

import (
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

const writeWait = 5 * time.Second

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

// Hub tracks live websocket connections per user and pushes events to
// them. A connection that fails a write is dropped; delivery never blocks
// on a dead client.
type Hub struct {
	log *slog.Logger

	mu    sync.Mutex
	conns map[string]*websocket.Conn
}

func NewHub(log *slog.Logger) *Hub {
	if log == nil {
		log = slog.Default()
	}
	return &Hub{
		log:   log,
		conns: make(map[string]*websocket.Conn),
	}
}

// Attach upgrades the request to a websocket and registers it as the
// user's live connection, replacing any previous one.
func (h *Hub) Attach(userID string, w http.ResponseWriter, r *http.Request) (*websocket.Conn, error) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		return nil, err
	}

	h.mu.Lock()
	if prev, ok := h.conns[userID]; ok {
		prev.Close()
	}
	h.conns[userID] = conn
	h.mu.Unlock()

	return conn, nil
}

// Detach closes the connection and forgets it if conn is still the user's
// registered one. It reports whether conn was the registered connection, so
// callers can tell a real departure from a replaced connection going away.
func (h *Hub) Detach(userID string, conn *websocket.Conn) bool {
	h.mu.Lock()
	current, ok := h.conns[userID]
	registered := ok && current == conn
	if registered {
		delete(h.conns, userID)
	}
	h.mu.Unlock()
	conn.Close()
	return registered
}

// Push sends an event to a single user. Missing or dead connections are
// not errors; the event is simply dropped.
func (h *Hub) Push(userID string, event *Event) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.push(userID, event)
}

// Broadcast sends an event to every connected user.
func (h *Hub) Broadcast(event *Event) {
	h.mu.Lock()
	defer h.mu.Unlock()

	for userID := range h.conns {
		h.push(userID, event)
	}
}

// ConnectedUsers returns the ids of users with a live connection.
func (h *Hub) ConnectedUsers() []string {
	h.mu.Lock()
	defer h.mu.Unlock()

	ids := make([]string, 0, len(h.conns))
	for id := range h.conns {
		ids = append(ids, id)
	}
	return ids
}

// push writes to one connection; callers hold h.mu, which also serializes
// writers per connection.
func (h *Hub) push(userID string, event *Event) {
	conn, ok := h.conns[userID]
	if !ok {
		return
	}

	conn.SetWriteDeadline(time.Now().Add(writeWait))
	if err := conn.WriteJSON(event); err != nil {
		h.log.Warn("Dropping dead websocket connection", "user", userID, "err", err)
		conn.Close()
		delete(h.conns, userID)
	}
}
