// Package ws implements the fan-out notifier on gorilla/websocket: one room
// per session, join/leave control messages, best-effort delivery with no
// backlog for late subscribers.
package ws

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"sync"

	"github.com/gorilla/websocket"

	"github.com/bryanwahyu/exewatch/internal/auth"
	"github.com/bryanwahyu/exewatch/internal/domain/events"
	"github.com/bryanwahyu/exewatch/internal/middleware"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  4096,
	WriteBufferSize: 4096,
	// The dashboard is served from another origin in development.
	CheckOrigin: func(r *http.Request) bool { return true },
}

// Hub tracks room membership. Membership lives and dies with the
// connection; there is no replay for subscribers that join after a publish.
type Hub struct {
	secret []byte

	mu    sync.RWMutex
	rooms map[string]map[*client]struct{}
}

// Compile-time check that Hub provides the fan-out capability.
var _ events.Notifier = (*Hub)(nil)

func NewHub(secret []byte) *Hub {
	return &Hub{
		secret: secret,
		rooms:  make(map[string]map[*client]struct{}),
	}
}

// outbound is the wire shape pushed to subscribers.
type outbound struct {
	Event     string `json:"event"`
	SessionID string `json:"sessionId"`
	Payload   any    `json:"payload"`
}

// Publish delivers to every current subscriber of the session's room.
// Slow subscribers whose send queue is full miss the message rather than
// blocking the ingest path.
func (h *Hub) Publish(sessionID, topic string, payload any) {
	data, err := json.Marshal(outbound{Event: topic, SessionID: sessionID, Payload: payload})
	if err != nil {
		slog.Warn("failed to encode fan-out message", "topic", topic, "error", err)
		return
	}

	h.mu.RLock()
	defer h.mu.RUnlock()
	for c := range h.rooms[sessionID] {
		select {
		case c.send <- data:
		default:
		}
	}
}

// Subscribers reports current room membership.
func (h *Hub) Subscribers(sessionID string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.rooms[sessionID])
}

// ServeHTTP authenticates the handshake with the same bearer credential the
// REST routes use (token query parameter), upgrades, and runs the client
// read loop until disconnect.
func (h *Hub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	token := r.URL.Query().Get("token")
	if token == "" {
		http.Error(w, "no token provided", http.StatusUnauthorized)
		return
	}
	if _, err := auth.GetUserIDFromToken(token, h.secret); err != nil {
		http.Error(w, "invalid token", http.StatusUnauthorized)
		return
	}

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		slog.Error("websocket upgrade failed", "error", err)
		return
	}

	c := &client{
		hub:   h,
		conn:  conn,
		send:  make(chan []byte, 32),
		rooms: make(map[string]struct{}),
	}
	middleware.AddWSConnection()
	slog.Info("websocket client connected", "remote", conn.RemoteAddr().String())

	go c.writePump()
	c.readPump()

	h.drop(c)
	middleware.RemoveWSConnection()
	slog.Info("websocket client disconnected", "remote", conn.RemoteAddr().String())
}

func (h *Hub) join(sessionID string, c *client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	room, ok := h.rooms[sessionID]
	if !ok {
		room = make(map[*client]struct{})
		h.rooms[sessionID] = room
	}
	room[c] = struct{}{}
	c.rooms[sessionID] = struct{}{}
}

func (h *Hub) leave(sessionID string, c *client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.removeLocked(sessionID, c)
}

// drop detaches the client from every room, then closes its send queue.
// Closing happens after removal under the exclusive lock, so no publisher
// can still be writing to it.
func (h *Hub) drop(c *client) {
	h.mu.Lock()
	for sessionID := range c.rooms {
		h.removeLocked(sessionID, c)
	}
	h.mu.Unlock()
	close(c.send)
}

func (h *Hub) removeLocked(sessionID string, c *client) {
	if room, ok := h.rooms[sessionID]; ok {
		delete(room, c)
		if len(room) == 0 {
			delete(h.rooms, sessionID)
		}
	}
	delete(c.rooms, sessionID)
}
