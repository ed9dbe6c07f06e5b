package ws

import (
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/coder/websocket"
	"go.uber.org/zap"

	"github.com/HerbHall/wavesight/internal/auth"
	"github.com/HerbHall/wavesight/pkg/plugin"
)

// Config controls the stream surface.
type Config struct {
	// InboxCapacity bounds each client's event inbox. When a client falls
	// behind, the oldest queued events are dropped.
	InboxCapacity int `mapstructure:"inbox_capacity"`
	// WriteDeadline is the per-message write budget. A client that cannot
	// keep up is disconnected.
	WriteDeadline time.Duration `mapstructure:"write_deadline"`
}

// DefaultConfig returns the stream defaults.
func DefaultConfig() Config {
	return Config{
		InboxCapacity: 1024,
		WriteDeadline: time.Second,
	}
}

// Handler serves the WebSocket event stream.
type Handler struct {
	cfg    Config
	hub    *Hub
	tokens *auth.TokenService
	bus    plugin.EventBus
	logger *zap.Logger
}

// Compile-time check that Handler implements the server interface.
var _ interface {
	RegisterRoutes(mux *http.ServeMux)
} = (*Handler)(nil)

// NewHandler creates the stream handler. A nil token service disables
// authentication on the stream endpoint.
func NewHandler(cfg Config, tokens *auth.TokenService, bus plugin.EventBus, logger *zap.Logger) *Handler {
	if cfg.InboxCapacity <= 0 {
		cfg.InboxCapacity = DefaultConfig().InboxCapacity
	}
	if cfg.WriteDeadline <= 0 {
		cfg.WriteDeadline = DefaultConfig().WriteDeadline
	}
	return &Handler{
		cfg:    cfg,
		hub:    NewHub(logger),
		tokens: tokens,
		bus:    bus,
		logger: logger,
	}
}

// RegisterRoutes registers the stream route on the server mux.
func (h *Handler) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("GET /api/v1/stream", h.handleStream)
}

// ClientCount returns the number of connected stream clients.
func (h *Handler) ClientCount() int {
	return h.hub.ClientCount()
}

// handleStream upgrades the connection and streams bus events until the
// client disconnects or falls behind.
func (h *Handler) handleStream(w http.ResponseWriter, r *http.Request) {
	subject := "anonymous"
	if h.tokens != nil {
		// Validate JWT from query parameter (browser WS API doesn't
		// support headers).
		token := r.URL.Query().Get("token")
		if token == "" {
			http.Error(w, "missing token parameter", http.StatusUnauthorized)
			return
		}
		claims, err := h.tokens.ValidateToken(token)
		if err != nil {
			http.Error(w, "invalid or expired token", http.StatusUnauthorized)
			return
		}
		if claims.Scope != auth.ScopeSubscribe {
			http.Error(w, "token lacks subscribe scope", http.StatusUnauthorized)
			return
		}
		subject = claims.Subject
	}

	topics, err := parseTopics(r.URL.Query().Get("topics"))
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	conn, err := websocket.Accept(w, r, &websocket.AcceptOptions{
		// Allow any origin since access is gated by the query token.
		InsecureSkipVerify: true,
	})
	if err != nil {
		h.logger.Error("websocket accept failed", zap.Error(err))
		return
	}

	client := &Client{
		conn:        conn,
		subject:     subject,
		topics:      topics,
		inbox:       h.bus.SubscribeInbox(h.cfg.InboxCapacity, topics...),
		connectedAt: time.Now().UTC(),
		logger:      h.logger,
	}

	h.hub.Register(client)

	// Run read and write pumps. When either exits, clean up.
	ctx := r.Context()
	done := make(chan struct{})
	go func() {
		if err := client.writePump(ctx, h.cfg.WriteDeadline); err != nil {
			h.logger.Debug("stream write failed, dropping client",
				zap.String("subject", client.subject),
				zap.Error(err))
			conn.Close(websocket.StatusPolicyViolation, "write deadline exceeded")
		}
		close(done)
	}()

	// readPump blocks until the client disconnects.
	client.readPump(ctx, h.cfg.WriteDeadline)

	// Closing the inbox stops the write pump if it is still running.
	h.hub.Unregister(client)
	conn.Close(websocket.StatusNormalClosure, "")
	<-done
}

// parseTopics validates a comma-separated topic filter. An empty filter
// selects every topic.
func parseTopics(raw string) ([]string, error) {
	if raw == "" {
		return allTopics(), nil
	}
	seen := make(map[string]bool)
	var topics []string
	for _, t := range strings.Split(raw, ",") {
		t = strings.TrimSpace(t)
		if t == "" {
			continue
		}
		if !validTopics[t] {
			return nil, fmt.Errorf("unknown topic %q", t)
		}
		if seen[t] {
			continue
		}
		seen[t] = true
		topics = append(topics, t)
	}
	if len(topics) == 0 {
		return allTopics(), nil
	}
	return topics, nil
}
