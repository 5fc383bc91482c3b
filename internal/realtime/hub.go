package realtime

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/MikeSquared-Agency/lingo/internal/hermes"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 4096
	sendBuffer     = 64
)

// Watcher opens a per-subject subscription that lasts until cancel is called.
type Watcher interface {
	Watch(subject string, handler func(subject string, data []byte)) (func(), error)
}

type Publisher interface {
	Publish(subject string, data any) error
}

// Frame actions sent by browsers.
const (
	ActionSubscribe   = "subscribe"
	ActionUnsubscribe = "unsubscribe"
	ActionPublish     = "publish"
	ActionHeartbeat   = "heartbeat"
)

// Frame types sent to browsers.
const (
	FrameMessage      = "message"
	FrameSubscribed   = "subscribed"
	FrameUnsubscribed = "unsubscribed"
	FrameHeartbeat    = "heartbeat"
	FrameError        = "error"
)

type IncomingFrame struct {
	Action  string          `json:"action"`
	Channel string          `json:"channel,omitempty"`
	Name    string          `json:"name,omitempty"`
	Data    json.RawMessage `json:"data,omitempty"`
	ID      string          `json:"id,omitempty"`
}

type OutgoingFrame struct {
	Type    string          `json:"type"`
	Channel string          `json:"channel,omitempty"`
	Name    string          `json:"name,omitempty"`
	Data    json.RawMessage `json:"data,omitempty"`
	ID      string          `json:"id,omitempty"`
	Error   string          `json:"error,omitempty"`
}

// Hub bridges browser websocket clients to NATS transcription subjects.
// Each channel with at least one subscriber holds one NATS watch.
type Hub struct {
	watcher   Watcher
	publisher Publisher
	tokens    *TokenIssuer
	logger    *slog.Logger
	upgrader  websocket.Upgrader

	mu       sync.Mutex
	channels map[string]*channel
	clients  map[*client]struct{}
}

type channel struct {
	clients map[*client]struct{}
	cancel  func()
}

type client struct {
	hub        *Hub
	conn       *websocket.Conn
	id         string
	capability Capability
	send       chan []byte
	channels   map[string]struct{}
	closed     bool
}

// NewHub creates a hub. An empty allowedOrigins accepts any Origin header.
func NewHub(watcher Watcher, publisher Publisher, tokens *TokenIssuer, allowedOrigins []string, logger *slog.Logger) *Hub {
	allowed := make(map[string]struct{}, len(allowedOrigins))
	for _, o := range allowedOrigins {
		allowed[o] = struct{}{}
	}
	return &Hub{
		watcher:   watcher,
		publisher: publisher,
		tokens:    tokens,
		logger:    logger,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin: func(r *http.Request) bool {
				if len(allowed) == 0 {
					return true
				}
				origin := r.Header.Get("Origin")
				if origin == "" {
					return true
				}
				_, ok := allowed[origin]
				return ok
			},
		},
		channels: make(map[string]*channel),
		clients:  make(map[*client]struct{}),
	}
}

// ServeWS authenticates the token query parameter and upgrades the connection.
func (h *Hub) ServeWS(w http.ResponseWriter, r *http.Request) {
	tr, capability, err := h.tokens.Decode(r.URL.Query().Get("token"))
	if err != nil {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusUnauthorized)
		_ = json.NewEncoder(w).Encode(map[string]string{"error": err.Error()})
		return
	}

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Warn("websocket upgrade failed", "error", err)
		return
	}

	c := &client{
		hub:        h,
		conn:       conn,
		id:         tr.ClientID,
		capability: capability,
		send:       make(chan []byte, sendBuffer),
		channels:   make(map[string]struct{}),
	}
	h.mu.Lock()
	h.clients[c] = struct{}{}
	h.mu.Unlock()
	h.logger.Debug("realtime client connected", "client_id", c.id)

	go c.writePump()
	go c.readPump()
}

// ChannelCount returns the number of channels with live subscribers.
func (h *Hub) ChannelCount() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.channels)
}

// Close drops every client and cancels every watch.
func (h *Hub) Close() {
	h.mu.Lock()
	clients := make([]*client, 0, len(h.clients))
	for c := range h.clients {
		clients = append(clients, c)
	}
	h.mu.Unlock()
	for _, c := range clients {
		_ = c.conn.Close()
		h.remove(c)
	}
}

func (h *Hub) subscribe(c *client, name string) error {
	h.mu.Lock()
	defer h.mu.Unlock()

	if _, ok := c.channels[name]; ok {
		return nil
	}
	ch, ok := h.channels[name]
	if !ok {
		cancel, err := h.watcher.Watch(hermes.TranscriptionSubject(name), func(_ string, data []byte) {
			h.deliver(name, data)
		})
		if err != nil {
			return err
		}
		ch = &channel{clients: make(map[*client]struct{}), cancel: cancel}
		h.channels[name] = ch
	}
	ch.clients[c] = struct{}{}
	c.channels[name] = struct{}{}
	return nil
}

func (h *Hub) unsubscribe(c *client, name string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.detach(c, name)
}

// detach must be called with h.mu held.
func (h *Hub) detach(c *client, name string) {
	delete(c.channels, name)
	ch, ok := h.channels[name]
	if !ok {
		return
	}
	delete(ch.clients, c)
	if len(ch.clients) == 0 {
		ch.cancel()
		delete(h.channels, name)
	}
}

func (h *Hub) remove(c *client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if c.closed {
		return
	}
	for name := range c.channels {
		h.detach(c, name)
	}
	delete(h.clients, c)
	c.closed = true
	close(c.send)
}

// deliver forwards a NATS payload to every subscriber of the channel.
// Subscribers whose buffers are full are disconnected.
func (h *Hub) deliver(name string, data []byte) {
	var msg struct {
		Name string          `json:"name"`
		Data json.RawMessage `json:"data"`
	}
	if err := json.Unmarshal(data, &msg); err != nil {
		h.logger.Warn("dropping malformed channel message", "channel", name, "error", err)
		return
	}
	frame, err := json.Marshal(OutgoingFrame{Type: FrameMessage, Channel: name, Name: msg.Name, Data: msg.Data})
	if err != nil {
		return
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	ch, ok := h.channels[name]
	if !ok {
		return
	}
	for c := range ch.clients {
		if c.closed {
			continue
		}
		select {
		case c.send <- frame:
		default:
			h.logger.Warn("realtime client too slow, disconnecting", "client_id", c.id, "channel", name)
			_ = c.conn.Close()
		}
	}
}

func (h *Hub) handle(c *client, in IncomingFrame) {
	switch in.Action {
	case ActionHeartbeat:
		c.reply(OutgoingFrame{Type: FrameHeartbeat, ID: in.ID})

	case ActionSubscribe:
		if in.Channel == "" {
			c.reply(OutgoingFrame{Type: FrameError, ID: in.ID, Error: "channel is required"})
			return
		}
		if !c.capability.Allows(in.Channel, OpSubscribe) {
			c.reply(OutgoingFrame{Type: FrameError, Channel: in.Channel, ID: in.ID, Error: "subscribe not permitted"})
			return
		}
		if err := h.subscribe(c, in.Channel); err != nil {
			h.logger.Error("channel watch failed", "channel", in.Channel, "error", err)
			c.reply(OutgoingFrame{Type: FrameError, Channel: in.Channel, ID: in.ID, Error: "subscribe failed"})
			return
		}
		c.reply(OutgoingFrame{Type: FrameSubscribed, Channel: in.Channel, ID: in.ID})

	case ActionUnsubscribe:
		h.unsubscribe(c, in.Channel)
		c.reply(OutgoingFrame{Type: FrameUnsubscribed, Channel: in.Channel, ID: in.ID})

	case ActionPublish:
		if in.Channel == "" || in.Name == "" {
			c.reply(OutgoingFrame{Type: FrameError, ID: in.ID, Error: "channel and name are required"})
			return
		}
		if !c.capability.Allows(in.Channel, OpPublish) {
			c.reply(OutgoingFrame{Type: FrameError, Channel: in.Channel, ID: in.ID, Error: "publish not permitted"})
			return
		}
		if h.publisher == nil {
			c.reply(OutgoingFrame{Type: FrameError, Channel: in.Channel, ID: in.ID, Error: "publishing unavailable"})
			return
		}
		msg := hermes.ChannelMessage{Name: in.Name, Data: in.Data}
		if err := h.publisher.Publish(hermes.TranscriptionSubject(in.Channel), msg); err != nil {
			h.logger.Error("channel publish failed", "channel", in.Channel, "error", err)
			c.reply(OutgoingFrame{Type: FrameError, Channel: in.Channel, ID: in.ID, Error: "publish failed"})
		}

	default:
		c.reply(OutgoingFrame{Type: FrameError, ID: in.ID, Error: "unknown action"})
	}
}

func (c *client) reply(f OutgoingFrame) {
	data, err := json.Marshal(f)
	if err != nil {
		return
	}
	c.hub.mu.Lock()
	defer c.hub.mu.Unlock()
	if c.closed {
		return
	}
	select {
	case c.send <- data:
	default:
		_ = c.conn.Close()
	}
}

func (c *client) readPump() {
	defer func() {
		c.hub.remove(c)
		_ = c.conn.Close()
		c.hub.logger.Debug("realtime client disconnected", "client_id", c.id)
	}()
	c.conn.SetReadLimit(maxMessageSize)
	_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		_, data, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				c.hub.logger.Debug("realtime read failed", "client_id", c.id, "error", err)
			}
			return
		}
		var in IncomingFrame
		if err := json.Unmarshal(data, &in); err != nil {
			c.reply(OutgoingFrame{Type: FrameError, Error: "invalid frame"})
			continue
		}
		c.hub.handle(c, in)
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
		case msg, ok := <-c.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				_ = c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
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
