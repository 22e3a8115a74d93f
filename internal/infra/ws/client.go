package ws

import (
	"log/slog"

	"github.com/gorilla/websocket"
)

// Control actions the dashboard client sends after connecting.
const (
	actionJoin  = "join:session"
	actionLeave = "leave:session"
)

type control struct {
	Action    string `json:"action"`
	SessionID string `json:"sessionId"`
}

type client struct {
	hub  *Hub
	conn *websocket.Conn
	send chan []byte

	// rooms this client joined; guarded by hub.mu.
	rooms map[string]struct{}
}

// readPump consumes control messages until the connection drops.
func (c *client) readPump() {
	defer c.conn.Close()
	for {
		var msg control
		if err := c.conn.ReadJSON(&msg); err != nil {
			return
		}
		if msg.SessionID == "" {
			continue
		}
		switch msg.Action {
		case actionJoin:
			c.hub.join(msg.SessionID, c)
			slog.Debug("client joined session room", "sessionId", msg.SessionID)
		case actionLeave:
			c.hub.leave(msg.SessionID, c)
			slog.Debug("client left session room", "sessionId", msg.SessionID)
		}
	}
}

// writePump drains the send queue; it exits when the hub closes the channel
// on disconnect.
func (c *client) writePump() {
	defer c.conn.Close()
	for data := range c.send {
		if err := c.conn.WriteMessage(websocket.TextMessage, data); err != nil {
			return
		}
	}
}
