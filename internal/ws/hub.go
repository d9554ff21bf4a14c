// Package ws pushes leaderboard snapshots to connected Mini App clients.
package ws

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"

	"wolf-tap/internal/model"
	"wolf-tap/internal/pkg/metrics"
)

const (
	TypeLeaderboardUpdate  = "leaderboard_update"
	TypeRequestLeaderboard = "request_leaderboard"

	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = pongWait * 9 / 10
	maxMessageSize = 1024
	sendBuffer     = 8
)

// SnapshotSource produces a leaderboard on demand.
type SnapshotSource interface {
	Top(ctx context.Context, limit int) ([]model.LeaderboardEntry, error)
}

// Outbound is a message sent to clients.
type Outbound struct {
	Type string                   `json:"type"`
	Data []model.LeaderboardEntry `json:"data"`
}

// Inbound is a message received from clients.
type Inbound struct {
	Type  string `json:"type"`
	Limit int    `json:"limit"`
}

// Hub tracks connected clients and fans snapshots out to them.
type Hub struct {
	source   SnapshotSource
	upgrader websocket.Upgrader

	mu      sync.RWMutex
	clients map[*client]struct{}
	closed  bool
}

// NewHub creates a hub. An empty origins list accepts any origin.
func NewHub(source SnapshotSource, origins []string) *Hub {
	allowed := make(map[string]struct{}, len(origins))
	for _, o := range origins {
		allowed[o] = struct{}{}
	}
	return &Hub{
		source:  source,
		clients: make(map[*client]struct{}),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 4096,
			CheckOrigin: func(r *http.Request) bool {
				if len(allowed) == 0 {
					return true
				}
				_, ok := allowed[r.Header.Get("Origin")]
				return ok
			},
		},
	}
}

// ClientCount returns the number of connected clients.
func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// Broadcast sends entries to every client. Clients that cannot keep up
// are disconnected.
func (h *Hub) Broadcast(entries []model.LeaderboardEntry) {
	msg, err := encode(entries)
	if err != nil {
		log.Error().Err(err).Msg("Failed to encode leaderboard update")
		return
	}

	h.mu.RLock()
	var slow []*client
	for c := range h.clients {
		if !c.trySend(msg) {
			slow = append(slow, c)
		}
	}
	h.mu.RUnlock()

	for _, c := range slow {
		log.Warn().Str("remote", c.remote).Msg("Dropping slow websocket client")
		h.remove(c)
	}
}

// ServeHTTP upgrades the request and serves the client until it leaves.
func (h *Hub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Debug().Err(err).Msg("Websocket upgrade failed")
		return
	}
	c := &client{hub: h, conn: conn, send: make(chan []byte, sendBuffer), done: make(chan struct{}), remote: r.RemoteAddr}
	if !h.add(c) {
		_ = conn.Close()
		return
	}

	go c.writePump()
	c.reply(r.Context(), 0)
	c.readPump()
}

// Close disconnects every client and refuses new ones.
func (h *Hub) Close() {
	h.mu.Lock()
	h.closed = true
	clients := h.clients
	h.clients = make(map[*client]struct{})
	h.mu.Unlock()

	for c := range clients {
		c.stop()
	}
	metrics.LeaderboardClients.Set(0)
}

func (h *Hub) add(c *client) bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		return false
	}
	h.clients[c] = struct{}{}
	metrics.LeaderboardClients.Set(float64(len(h.clients)))
	log.Debug().Str("remote", c.remote).Int("clients", len(h.clients)).Msg("Websocket client connected")
	return true
}

func (h *Hub) remove(c *client) {
	h.mu.Lock()
	_, ok := h.clients[c]
	delete(h.clients, c)
	n := len(h.clients)
	h.mu.Unlock()

	if ok {
		c.stop()
		metrics.LeaderboardClients.Set(float64(n))
		log.Debug().Str("remote", c.remote).Int("clients", n).Msg("Websocket client disconnected")
	}
}

func encode(entries []model.LeaderboardEntry) ([]byte, error) {
	if entries == nil {
		entries = []model.LeaderboardEntry{}
	}
	return json.Marshal(Outbound{Type: TypeLeaderboardUpdate, Data: entries})
}

type client struct {
	hub    *Hub
	conn   *websocket.Conn
	send   chan []byte
	done   chan struct{}
	remote string
	once   sync.Once
}

// trySend queues msg without blocking. It reports false only when a live
// client's buffer is full.
func (c *client) trySend(msg []byte) bool {
	select {
	case <-c.done:
		return true
	default:
	}
	select {
	case c.send <- msg:
		return true
	default:
		return false
	}
}

func (c *client) stop() {
	c.once.Do(func() { close(c.done) })
}

// reply sends a fresh snapshot of limit entries to this client only.
func (c *client) reply(ctx context.Context, limit int) {
	entries, err := c.hub.source.Top(ctx, limit)
	if err != nil {
		log.Error().Err(err).Msg("Failed to read leaderboard for websocket client")
		return
	}
	msg, err := encode(entries)
	if err != nil {
		return
	}
	if !c.trySend(msg) {
		c.hub.remove(c)
	}
}

func (c *client) readPump() {
	defer func() {
		c.hub.remove(c)
		_ = c.conn.Close()
	}()
	c.conn.SetReadLimit(maxMessageSize)
	_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		var in Inbound
		if err := c.conn.ReadJSON(&in); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				log.Debug().Err(err).Str("remote", c.remote).Msg("Websocket read failed")
			}
			return
		}
		if in.Type == TypeRequestLeaderboard {
			ctx, cancel := context.WithTimeout(context.Background(), writeWait)
			c.reply(ctx, in.Limit)
			cancel()
		}
	}
}

func (c *client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		_ = c.conn.Close()
	}()

	for {
		select {
		case <-c.done:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			_ = c.conn.WriteMessage(websocket.CloseMessage, []byte{})
			return
		case msg := <-c.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.TextMessage, msg); err != nil {
				return
			}
		case <-ticker.C:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
