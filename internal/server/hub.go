package server

import (
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"DayScreener/internal/metrics"
	"DayScreener/internal/model"
)

const (
	writeWait  = 10 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = 30 * time.Second
	sendBuffer = 16
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool { return true },
}

// Hub fans every new dashboard view out to connected websocket clients.
type Hub struct {
	mu      sync.RWMutex
	clients map[*client]struct{}
	latest  []byte
	metrics *metrics.Metrics
	log     *zap.Logger
}

type client struct {
	conn *websocket.Conn
	send chan []byte
	hub  *Hub
	once sync.Once
}

// NewHub creates an empty hub.
func NewHub(m *metrics.Metrics, log *zap.Logger) *Hub {
	return &Hub{clients: make(map[*client]struct{}), metrics: m, log: log}
}

// Broadcast queues view for every client. Slow clients drop the message
// and catch up on the next one.
func (h *Hub) Broadcast(view model.DashboardView) {
	data, err := json.Marshal(view)
	if err != nil {
		h.log.Error("encode view for websocket", zap.Error(err))
		return
	}
	h.mu.Lock()
	h.latest = data
	for c := range h.clients {
		select {
		case c.send <- data:
		default:
			h.log.Debug("websocket client lagging, view dropped")
		}
	}
	h.mu.Unlock()
}

// ServeWS upgrades the request and sends the latest view straight away.
func (h *Hub) ServeWS(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.log.Warn("websocket upgrade failed", zap.Error(err))
		return
	}
	c := &client{conn: conn, send: make(chan []byte, sendBuffer), hub: h}

	h.mu.Lock()
	h.clients[c] = struct{}{}
	if h.latest != nil {
		c.send <- h.latest
	}
	count := len(h.clients)
	h.mu.Unlock()
	h.metrics.WSClients.Set(float64(count))
	h.log.Info("websocket client connected", zap.Int("clients", count))

	go c.writePump()
	go c.readPump()
}

// ClientCount returns the number of connected clients.
func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// Close disconnects every client.
func (h *Hub) Close() {
	h.mu.Lock()
	clients := make([]*client, 0, len(h.clients))
	for c := range h.clients {
		clients = append(clients, c)
	}
	h.mu.Unlock()
	for _, c := range clients {
		h.remove(c)
	}
}

func (h *Hub) remove(c *client) {
	c.once.Do(func() {
		h.mu.Lock()
		delete(h.clients, c)
		count := len(h.clients)
		close(c.send)
		h.mu.Unlock()
		h.metrics.WSClients.Set(float64(count))
	})
}

func (c *client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case msg, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, msg); err != nil {
				c.hub.remove(c)
				return
			}
		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				c.hub.remove(c)
				return
			}
		}
	}
}

// readPump only handles control frames; the feed is one-way.
func (c *client) readPump() {
	defer func() {
		c.hub.remove(c)
		c.conn.Close()
		c.hub.log.Info("websocket client disconnected")
	}()

	c.conn.SetReadLimit(512)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})
	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			return
		}
	}
}
