package broadcast

import (
	"encoding/json"
	"net/http"
	"sync"

	"github.com/gorilla/websocket"

	"codeberg.org/mutker/roadwatch/internal/alerting"
	"codeberg.org/mutker/roadwatch/internal/logger"
)

const sendBuffer = 16

// Hub fans published alerts out to websocket clients. It implements the
// external subscriber side of the alert pipeline; slow or gone clients are
// dropped rather than ever blocking publication.
type Hub struct {
	mu      sync.Mutex
	clients map[*client]struct{}
}

type client struct {
	conn *websocket.Conn
	send chan []byte
}

var upgrader = websocket.Upgrader{
	CheckOrigin: func(*http.Request) bool { return true },
}

// NewHub builds an empty hub.
func NewHub() *Hub {
	return &Hub{
		clients: make(map[*client]struct{}),
	}
}

// Subscriber returns the pipeline callback that broadcasts each alert as
// JSON. Delivery is fire-and-forget.
func (h *Hub) Subscriber() alerting.Subscriber {
	return func(alert alerting.Alert) {
		payload, err := json.Marshal(alert)
		if err != nil {
			logger.Error().Err(err).Msg("Failed to encode alert for broadcast")
			return
		}
		h.broadcast(payload)
	}
}

func (h *Hub) broadcast(payload []byte) {
	h.mu.Lock()
	defer h.mu.Unlock()

	for c := range h.clients {
		select {
		case c.send <- payload:
		default:
			// Client cannot keep up; drop it.
			delete(h.clients, c)
			close(c.send)
		}
	}
}

// ServeHTTP upgrades the request and streams alerts until the client goes
// away.
func (h *Hub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		logger.Warn().Err(err).Msg("Websocket upgrade failed")
		return
	}

	c := &client{
		conn: conn,
		send: make(chan []byte, sendBuffer),
	}

	h.mu.Lock()
	h.clients[c] = struct{}{}
	h.mu.Unlock()

	logger.Debug().Str("remote", conn.RemoteAddr().String()).Msg("Websocket client connected")

	go c.writePump()
	c.readPump(h)
}

// ClientCount reports the number of connected clients.
func (h *Hub) ClientCount() int {
	h.mu.Lock()
	defer h.mu.Unlock()

	return len(h.clients)
}

// Close disconnects all clients.
func (h *Hub) Close() {
	h.mu.Lock()
	defer h.mu.Unlock()

	for c := range h.clients {
		delete(h.clients, c)
		close(c.send)
	}
}

func (c *client) writePump() {
	defer c.conn.Close()

	for payload := range c.send {
		if err := c.conn.WriteMessage(websocket.TextMessage, payload); err != nil {
			return
		}
	}

	c.conn.WriteMessage(websocket.CloseMessage, []byte{})
}

// readPump discards inbound frames; its only job is detecting disconnect.
func (c *client) readPump(h *Hub) {
	defer func() {
		h.mu.Lock()
		if _, ok := h.clients[c]; ok {
			delete(h.clients, c)
			close(c.send)
		}
		h.mu.Unlock()
		c.conn.Close()
	}()

	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			return
		}
	}
}
