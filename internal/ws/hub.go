package ws

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"
	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	"github.com/HerbHall/wavesight/pkg/plugin"
)

var (
	wsClients = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "wavesight_ws_clients",
		Help: "Connected stream clients.",
	})
	wsDelivered = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "wavesight_ws_messages_total",
		Help: "Messages written to stream clients.",
	})
	wsDropped = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "wavesight_ws_dropped_total",
		Help: "Events dropped from stream client inboxes.",
	})
)

func init() {
	prometheus.MustRegister(wsClients, wsDelivered, wsDropped)
}

// Client is one connected stream subscriber. It owns a bus inbox sized at
// connect time; publishers never block on it.
type Client struct {
	conn        *websocket.Conn
	subject     string
	topics      []string
	inbox       plugin.Inbox
	connectedAt time.Time
	logger      *zap.Logger

	delivered   atomic.Uint64
	lastDropped atomic.Uint64
}

// write sends one message under the write deadline.
func (c *Client) write(ctx context.Context, msg Message, deadline time.Duration) error {
	writeCtx, cancel := context.WithTimeout(ctx, deadline)
	defer cancel()
	return wsjson.Write(writeCtx, c.conn, msg)
}

// writePump drains the inbox to the socket. It returns nil when the inbox
// closes and the write error when a write fails or misses the deadline.
func (c *Client) writePump(ctx context.Context, deadline time.Duration) error {
	for {
		ev, ok := c.inbox.Next(ctx)
		if !ok {
			return nil
		}
		msg := Message{
			Type:      MessageEvent,
			Topic:     ev.Topic,
			Timestamp: ev.Timestamp,
			Data:      ev.Payload,
		}
		if err := c.write(ctx, msg, deadline); err != nil {
			return err
		}
		c.delivered.Add(1)
		wsDelivered.Inc()
		c.observeDrops()
	}
}

// readPump handles client requests until the connection drops. The only
// supported request is sys.stats; anything else gets an error message.
func (c *Client) readPump(ctx context.Context, deadline time.Duration) {
	for {
		var req ClientRequest
		if err := wsjson.Read(ctx, c.conn, &req); err != nil {
			return
		}
		var msg Message
		switch req.Type {
		case MessageStats:
			msg = Message{Type: MessageStats, Timestamp: time.Now().UTC(), Data: c.stats()}
		default:
			msg = Message{
				Type:      MessageError,
				Timestamp: time.Now().UTC(),
				Data:      ErrorData{Error: fmt.Sprintf("unsupported request type %q", req.Type)},
			}
		}
		if err := c.write(ctx, msg, deadline); err != nil {
			return
		}
	}
}

func (c *Client) stats() StatsData {
	return StatsData{
		Topics:      c.topics,
		Delivered:   c.delivered.Load(),
		Dropped:     c.inbox.Dropped(),
		Pending:     c.inbox.Len(),
		ConnectedAt: c.connectedAt,
	}
}

// observeDrops folds the inbox drop counter into the Prometheus total.
func (c *Client) observeDrops() {
	d := c.inbox.Dropped()
	if prev := c.lastDropped.Swap(d); d > prev {
		wsDropped.Add(float64(d - prev))
	}
}

// Hub tracks active stream clients. Fan-out itself happens on the event
// bus; the hub only owns registration and lifecycle.
type Hub struct {
	mu      sync.RWMutex
	clients map[*Client]struct{}
	logger  *zap.Logger
}

// NewHub creates an empty hub.
func NewHub(logger *zap.Logger) *Hub {
	return &Hub{
		clients: make(map[*Client]struct{}),
		logger:  logger,
	}
}

// Register adds a client to the hub.
func (h *Hub) Register(c *Client) {
	h.mu.Lock()
	h.clients[c] = struct{}{}
	h.mu.Unlock()

	wsClients.Inc()
	h.logger.Debug("stream client connected",
		zap.String("subject", c.subject),
		zap.Strings("topics", c.topics))
}

// Unregister removes a client and closes its inbox. It is safe to call
// more than once per client.
func (h *Hub) Unregister(c *Client) {
	h.mu.Lock()
	_, ok := h.clients[c]
	if ok {
		delete(h.clients, c)
	}
	h.mu.Unlock()
	if !ok {
		return
	}

	c.inbox.Close()
	c.observeDrops()
	wsClients.Dec()
	h.logger.Debug("stream client disconnected",
		zap.String("subject", c.subject),
		zap.Uint64("delivered", c.delivered.Load()),
		zap.Uint64("dropped", c.inbox.Dropped()))
}

// ClientCount returns the number of connected clients.
func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}
