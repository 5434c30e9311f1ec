// Package realtime pushes collected metrics to WebSocket subscribers. Each
// client subscribes to topics ("system", "security:<org>"); Redis pub/sub
// relays published samples to the hubs of the other API instances.
package realtime

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

const (
	channelPrefix = "omnisec:realtime:"

	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = pongWait * 9 / 10
	maxMessageSize = 4096
	sendBuffer     = 64
)

// MessageType classifies hub messages.
type MessageType string

const (
	MessageTypeData        MessageType = "data"
	MessageTypeSubscribe   MessageType = "subscribe"
	MessageTypeUnsubscribe MessageType = "unsubscribe"
	MessageTypeError       MessageType = "error"
)

// Message is the JSON frame written to clients.
type Message struct {
	Type      MessageType `json:"type"`
	Topic     string      `json:"topic"`
	Payload   any         `json:"payload"`
	Timestamp time.Time   `json:"timestamp"`
	ClientID  string      `json:"client_id,omitempty"`
}

// SubscriptionRequest is the JSON frame clients send to change topics.
type SubscriptionRequest struct {
	Type   MessageType `json:"type"`
	Topics []string    `json:"topics"`
}

// relayed is the Redis envelope. Origin lets a hub skip its own messages.
type relayed struct {
	Origin string          `json:"origin"`
	Data   json.RawMessage `json:"data"`
}

// websocketClients sums connected clients across every hub in the process.
var websocketClients = promauto.NewGauge(prometheus.GaugeOpts{
	Name: "omnisec_websocket_clients",
	Help: "Connected realtime clients.",
})

type delivery struct {
	topic string
	data  []byte
}

type direct struct {
	client *Client
	data   []byte
}

// Hub owns the client set. Only Run mutates it.
type Hub struct {
	id         string
	clients    map[*Client]struct{}
	register   chan *Client
	unregister chan *Client
	deliver    chan delivery
	direct     chan direct
	done       chan struct{}
	count      atomic.Int64
	gauge      prometheus.Gauge
	redis      *redis.Client
	upgrader   websocket.Upgrader
	logger     *zap.Logger
}

// Client is one WebSocket connection.
type Client struct {
	ID     string
	hub    *Hub
	conn   *websocket.Conn
	send   chan []byte
	mu     sync.RWMutex
	topics map[string]struct{}
}

// NewHub creates a Hub. rdb may be nil for a single-instance deployment.
func NewHub(rdb *redis.Client, allowedOrigins []string, logger *zap.Logger) *Hub {
	h := &Hub{
		id:         uuid.NewString(),
		clients:    make(map[*Client]struct{}),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		deliver:    make(chan delivery, 256),
		direct:     make(chan direct, 64),
		done:       make(chan struct{}),
		gauge:      websocketClients,
		redis:      rdb,
		logger:     logger,
	}
	h.upgrader = websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin:     originChecker(allowedOrigins),
	}
	return h
}

func originChecker(allowed []string) func(*http.Request) bool {
	return func(r *http.Request) bool {
		origin := r.Header.Get("Origin")
		if origin == "" {
			return true
		}
		for _, a := range allowed {
			if a == "*" || strings.EqualFold(a, origin) {
				return true
			}
		}
		return false
	}
}

// Run serves register, unregister and delivery requests until ctx is done.
func (h *Hub) Run(ctx context.Context) {
	defer close(h.done)
	for {
		select {
		case c := <-h.register:
			h.clients[c] = struct{}{}
			h.count.Store(int64(len(h.clients)))
			h.gauge.Inc()
			h.logger.Debug("realtime: client connected", zap.String("client_id", c.ID))

		case c := <-h.unregister:
			h.drop(c)

		case d := <-h.deliver:
			for c := range h.clients {
				if !c.subscribed(d.topic) {
					continue
				}
				select {
				case c.send <- d.data:
				default:
					h.logger.Warn("realtime: slow client dropped", zap.String("client_id", c.ID))
					h.drop(c)
				}
			}

		case d := <-h.direct:
			if _, ok := h.clients[d.client]; !ok {
				continue
			}
			select {
			case d.client.send <- d.data:
			default:
				h.drop(d.client)
			}

		case <-ctx.Done():
			for c := range h.clients {
				h.drop(c)
			}
			return
		}
	}
}

func (h *Hub) drop(c *Client) {
	if _, ok := h.clients[c]; !ok {
		return
	}
	delete(h.clients, c)
	close(c.send)
	h.count.Store(int64(len(h.clients)))
	h.gauge.Dec()
	h.logger.Debug("realtime: client disconnected", zap.String("client_id", c.ID))
}

// ClientCount returns the number of connected clients.
func (h *Hub) ClientCount() int {
	return int(h.count.Load())
}

// Publish sends v to local subscribers of topic and relays it to the other
// instances when Redis is configured.
func (h *Hub) Publish(ctx context.Context, topic string, v any) error {
	data, err := json.Marshal(&Message{
		Type:      MessageTypeData,
		Topic:     topic,
		Payload:   v,
		Timestamp: time.Now().UTC(),
	})
	if err != nil {
		return fmt.Errorf("marshal message: %w", err)
	}

	select {
	case h.deliver <- delivery{topic: topic, data: data}:
	case <-h.done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}

	if h.redis == nil {
		return nil
	}
	env, err := json.Marshal(relayed{Origin: h.id, Data: data})
	if err != nil {
		return fmt.Errorf("marshal relay envelope: %w", err)
	}
	if err := h.redis.Publish(ctx, channelPrefix+topic, env).Err(); err != nil {
		return fmt.Errorf("relay %s: %w", topic, err)
	}
	return nil
}

// StartRelay subscribes to the other instances' messages. It returns once the
// subscription is confirmed and forwards messages until ctx is done.
func (h *Hub) StartRelay(ctx context.Context) error {
	if h.redis == nil {
		return nil
	}
	pubsub := h.redis.PSubscribe(ctx, channelPrefix+"*")
	if _, err := pubsub.Receive(ctx); err != nil {
		_ = pubsub.Close()
		return fmt.Errorf("subscribe realtime relay: %w", err)
	}

	go func() {
		defer pubsub.Close()
		ch := pubsub.Channel()
		for {
			select {
			case msg, ok := <-ch:
				if !ok {
					return
				}
				var env relayed
				if err := json.Unmarshal([]byte(msg.Payload), &env); err != nil {
					h.logger.Warn("realtime: bad relay payload", zap.String("channel", msg.Channel), zap.Error(err))
					continue
				}
				if env.Origin == h.id {
					continue
				}
				topic := strings.TrimPrefix(msg.Channel, channelPrefix)
				select {
				case h.deliver <- delivery{topic: topic, data: env.Data}:
				case <-ctx.Done():
					return
				}
			case <-ctx.Done():
				return
			}
		}
	}()
	return nil
}

// HandleWebSocket upgrades the request and serves the connection.
func (h *Hub) HandleWebSocket(c *gin.Context) {
	conn, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		// The upgrader has already written the error response.
		h.logger.Debug("realtime: upgrade failed", zap.Error(err))
		return
	}

	client := &Client{
		ID:     uuid.NewString(),
		hub:    h,
		conn:   conn,
		send:   make(chan []byte, sendBuffer),
		topics: make(map[string]struct{}),
	}
	select {
	case h.register <- client:
	case <-h.done:
		conn.Close()
		return
	}

	go client.writePump()
	go client.readPump()
}

func (c *Client) subscribed(topic string) bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	_, ok := c.topics[topic]
	return ok
}

func (c *Client) readPump() {
	defer func() {
		select {
		case c.hub.unregister <- c:
		case <-c.hub.done:
		}
		c.conn.Close()
	}()

	c.conn.SetReadLimit(maxMessageSize)
	_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		_, raw, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				c.hub.logger.Debug("realtime: read", zap.String("client_id", c.ID), zap.Error(err))
			}
			return
		}
		var req SubscriptionRequest
		if err := json.Unmarshal(raw, &req); err != nil {
			c.reply(MessageTypeError, "invalid subscription request")
			continue
		}
		c.handleSubscription(req)
	}
}

func (c *Client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
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

func (c *Client) handleSubscription(req SubscriptionRequest) {
	c.mu.Lock()
	switch req.Type {
	case MessageTypeSubscribe:
		for _, t := range req.Topics {
			c.topics[t] = struct{}{}
		}
	case MessageTypeUnsubscribe:
		for _, t := range req.Topics {
			delete(c.topics, t)
		}
	default:
		c.mu.Unlock()
		c.reply(MessageTypeError, fmt.Sprintf("unknown request type %q", req.Type))
		return
	}
	topics := make([]string, 0, len(c.topics))
	for t := range c.topics {
		topics = append(topics, t)
	}
	c.mu.Unlock()

	c.reply(req.Type, topics)
}

func (c *Client) reply(t MessageType, payload any) {
	data, err := json.Marshal(&Message{
		Type:      t,
		Topic:     "subscriptions",
		Payload:   payload,
		Timestamp: time.Now().UTC(),
		ClientID:  c.ID,
	})
	if err != nil {
		return
	}
	select {
	case c.hub.direct <- direct{client: c, data: data}:
	case <-c.hub.done:
	}
}
