// Package ws pushes feed events from the signal bus to browser clients over
// WebSocket.
package ws

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/alanyoungcy/oddstream/internal/domain"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 4096
	sendBufferSize = 256
)

// busChannels are the bus channels the hub forwards.
var busChannels = []string{
	domain.ChannelPatchPrefix + "*",
	domain.ChannelStatus,
}

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 4096,
	CheckOrigin:     func(r *http.Request) bool { return true },
}

// StatusFunc returns the snapshot sent to a client right after it connects.
type StatusFunc func() any

// Hub fans bus messages out to connected clients, each filtered by the
// channels the client subscribed to.
type Hub struct {
	bus    domain.SignalBus
	status StatusFunc
	logger *slog.Logger

	mu      sync.RWMutex
	clients map[*client]struct{}

	broadcast  chan message
	register   chan *client
	unregister chan *client
	done       chan struct{}
}

type message struct {
	channel string
	data    []byte
}

// NewHub creates a Hub reading from bus. status may be nil.
func NewHub(bus domain.SignalBus, status StatusFunc, logger *slog.Logger) *Hub {
	return &Hub{
		bus:        bus,
		status:     status,
		logger:     logger.With(slog.String("component", "ws_hub")),
		clients:    make(map[*client]struct{}),
		broadcast:  make(chan message, 256),
		register:   make(chan *client),
		unregister: make(chan *client),
		done:       make(chan struct{}),
	}
}

// Run subscribes to the bus and serves clients until ctx is cancelled.
func (h *Hub) Run(ctx context.Context) error {
	defer close(h.done)
	for _, ch := range busChannels {
		if err := h.forward(ctx, ch); err != nil {
			return err
		}
	}

	for {
		select {
		case <-ctx.Done():
			h.mu.Lock()
			for c := range h.clients {
				close(c.send)
				delete(h.clients, c)
			}
			h.mu.Unlock()
			return nil

		case c := <-h.register:
			h.mu.Lock()
			h.clients[c] = struct{}{}
			n := len(h.clients)
			h.mu.Unlock()
			h.logger.Info("client connected", slog.Int("clients", n))

		case c := <-h.unregister:
			h.mu.Lock()
			if _, ok := h.clients[c]; ok {
				delete(h.clients, c)
				close(c.send)
			}
			n := len(h.clients)
			h.mu.Unlock()
			h.logger.Info("client disconnected", slog.Int("clients", n))

		case msg := <-h.broadcast:
			h.mu.RLock()
			for c := range h.clients {
				if !c.subscribed(msg.channel) {
					continue
				}
				select {
				case c.send <- msg.data:
				default:
					h.logger.Warn("dropping message for slow client", slog.String("channel", msg.channel))
				}
			}
			h.mu.RUnlock()
		}
	}
}

// forward subscribes to pattern and pumps its messages into the broadcast
// loop, tagged with the concrete channel they belong to.
func (h *Hub) forward(ctx context.Context, pattern string) error {
	in, err := h.bus.Subscribe(ctx, pattern)
	if err != nil {
		h.logger.Error("bus subscribe failed", slog.String("channel", pattern), slog.String("error", err.Error()))
		return err
	}
	h.logger.Info("subscribed", slog.String("channel", pattern))

	go func() {
		for {
			select {
			case <-ctx.Done():
				return
			case data, ok := <-in:
				if !ok {
					h.logger.Warn("bus subscription closed", slog.String("channel", pattern))
					return
				}
				select {
				case h.broadcast <- message{channel: channelOf(data), data: data}:
				case <-ctx.Done():
					return
				}
			}
		}
	}()
	return nil
}

// channelOf recovers the bus channel of a feed event payload.
func channelOf(data []byte) string {
	var env struct {
		Type  domain.FeedEventType `json:"type"`
		Sport string               `json:"sport"`
	}
	if err := json.Unmarshal(data, &env); err != nil || env.Type == domain.FeedEventStatus {
		return domain.ChannelStatus
	}
	return domain.PatchChannel(env.Sport)
}

// HandleWS upgrades the request and registers the client. Clients start
// subscribed to every forwarded channel.
// GET /ws
func (h *Hub) HandleWS(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Warn("upgrade failed", slog.String("error", err.Error()))
		return
	}

	c := &client{
		hub:  h,
		conn: conn,
		send: make(chan []byte, sendBufferSize),
		subs: make(map[string]bool, len(busChannels)),
	}
	for _, ch := range busChannels {
		c.subs[ch] = true
	}

	c.hello()

	select {
	case h.register <- c:
	case <-h.done:
		conn.Close()
		return
	}

	go c.writePump()
	go c.readPump()
}

// clientCount returns the number of connected clients.
func (h *Hub) clientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

type client struct {
	hub  *Hub
	conn *websocket.Conn
	send chan []byte

	mu   sync.RWMutex
	subs map[string]bool
}

// subscribeMsg changes a client's channel set, e.g.
// {"action":"subscribe","channels":["ch:patch:S"]}.
type subscribeMsg struct {
	Action   string   `json:"action"`
	Channels []string `json:"channels"`
}

func (c *client) readPump() {
	defer func() {
		select {
		case c.hub.unregister <- c:
		case <-c.hub.done:
		}
		c.conn.Close()
	}()

	c.conn.SetReadLimit(maxMessageSize)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		_, raw, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				c.hub.logger.Debug("unexpected close", slog.String("error", err.Error()))
			}
			return
		}
		var msg subscribeMsg
		if json.Unmarshal(raw, &msg) == nil {
			c.apply(msg)
		}
	}
}

func (c *client) apply(msg subscribeMsg) {
	c.mu.Lock()
	defer c.mu.Unlock()
	switch msg.Action {
	case "subscribe":
		for _, ch := range msg.Channels {
			c.subs[ch] = true
		}
	case "unsubscribe":
		for _, ch := range msg.Channels {
			delete(c.subs, ch)
		}
	}
}

// subscribed matches channel against the client's set; entries ending in
// "*" match by prefix.
func (c *client) subscribed(channel string) bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.subs[channel] {
		return true
	}
	for sub := range c.subs {
		if prefix, ok := strings.CutSuffix(sub, "*"); ok && strings.HasPrefix(channel, prefix) {
			return true
		}
	}
	return false
}

// hello queues the current service status as the first message.
func (c *client) hello() {
	var status any
	if c.hub.status != nil {
		status = c.hub.status()
	}
	data, err := json.Marshal(map[string]any{"type": "hello", "status": status})
	if err != nil {
		return
	}
	select {
	case c.send <- data:
	default:
	}
}

func (c *client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case data, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, data); err != nil {
				return
			}
		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
