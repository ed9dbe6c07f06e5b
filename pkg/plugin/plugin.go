// Package plugin is the SDK every WaveSight module is built against:
// the lifecycle interface, the injected dependencies, and the optional
// capability interfaces (HTTP routes, config validation, health, event
// subscriptions) the registry discovers by type assertion.
package plugin

import (
	"context"
	"database/sql"
	"net/http"
	"time"

	"go.uber.org/zap"
)

// Plugin API version range this server accepts. The registry refuses
// plugins outside [APIVersionMin, APIVersionCurrent].
const (
	APIVersionMin     = 1
	APIVersionCurrent = 1
)

// Plugin is the lifecycle every module implements. The registry calls
// Init on all plugins in dependency order, then Start in the same
// order, and Stop in reverse.
type Plugin interface {
	// Info returns static metadata and dependency declarations.
	Info() PluginInfo

	// Init receives the plugin's dependencies. No goroutines yet.
	Init(ctx context.Context, deps Dependencies) error

	// Start launches background work.
	Start(ctx context.Context) error

	// Stop winds the plugin down, honoring ctx as the deadline.
	Stop(ctx context.Context) error
}

// PluginInfo describes a plugin to the registry.
type PluginInfo struct {
	Name         string   // unique name, also the route and config prefix
	Version      string   // semantic version of the plugin itself
	Description  string   // one-line summary for /api/v1/plugins
	Dependencies []string // plugins that must initialize first
	Required     bool     // failure aborts startup instead of disabling
	Roles        []string // capability tags for ResolveByRole
	APIVersion   int      // plugin API version this plugin targets
}

// Dependencies is what the registry hands each plugin at Init.
type Dependencies struct {
	Config  Config      // this plugin's config subtree
	Logger  *zap.Logger // logger named after the plugin
	Store   Store       // shared durable store; nil when running storeless
	Bus     EventBus    // inter-plugin publish/subscribe
	Plugins PluginResolver
}

// Validator lets a plugin reject its configuration after Init. A
// failing optional plugin is disabled; a failing required one aborts
// startup.
type Validator interface {
	ValidateConfig() error
}

// HTTPProvider exposes plugin routes, mounted by the server under
// /api/v1/{plugin-name}{path}.
type HTTPProvider interface {
	Routes() []Route
}

// Route is one HTTP endpoint a plugin serves.
type Route struct {
	Method  string
	Path    string
	Handler http.HandlerFunc
}

// HealthChecker reports a plugin's own view of its health.
type HealthChecker interface {
	Health(ctx context.Context) HealthStatus
}

// HealthStatus is a plugin health report. Status is one of "healthy",
// "degraded", or "unhealthy".
type HealthStatus struct {
	Status  string            `json:"status"`
	Message string            `json:"message,omitempty"`
	Details map[string]string `json:"details,omitempty"`
}

// Config reads a plugin's configuration subtree. Backed by Viper in
// this server.
type Config interface {
	Unmarshal(target any) error
	Get(key string) any
	GetString(key string) string
	GetInt(key string) int
	GetBool(key string) bool
	GetFloat64(key string) float64
	GetDuration(key string) time.Duration
	IsSet(key string) bool
	Sub(key string) Config
}

// Store is the shared durable store. Each plugin owns its tables and
// registers schema migrations under its own name.
type Store interface {
	// DB returns the underlying database handle for direct queries.
	DB() *sql.DB

	// Migrate applies the plugin's pending migrations in version order.
	Migrate(ctx context.Context, pluginName string, migrations []Migration) error

	// Tx runs fn inside a transaction, committing on nil and rolling back
	// on error.
	Tx(ctx context.Context, fn func(tx *sql.Tx) error) error
}

// Migration is a single versioned schema change for one plugin.
type Migration struct {
	Version     int
	Description string
	Up          func(tx *sql.Tx) error
}

// Publisher is the emit-only slice of the bus, for code that never
// listens.
type Publisher interface {
	Publish(ctx context.Context, event Event) error
}

// Subscriber is the listen-only slice of the bus.
type Subscriber interface {
	Subscribe(topic string, handler EventHandler) (unsubscribe func())
}

// EventBus provides typed publish/subscribe for inter-plugin communication
// and external fan-out. Publishing never blocks: every subscription owns a
// bounded inbox and full inboxes drop their oldest event.
type EventBus interface {
	Publisher
	Subscriber

	// SubscribeInbox opens a raw bounded inbox for the given topics (all
	// topics when none are named). The caller drains it with Inbox.Next and
	// releases it with Inbox.Close.
	SubscribeInbox(capacity int, topics ...string) Inbox
}

// Inbox is a bounded per-subscriber mailbox. When a publish arrives on a
// full inbox the oldest queued event is discarded and the drop counter is
// incremented; delivery within one topic preserves publish order.
type Inbox interface {
	// Next blocks until an event is available, the context is done, or the
	// inbox is closed. The second return is false on context end or close.
	Next(ctx context.Context) (Event, bool)

	// TryNext returns immediately; false when the inbox is empty or closed.
	TryNext() (Event, bool)

	// Dropped returns the number of events discarded because the inbox was
	// full.
	Dropped() uint64

	// Len returns the number of events currently queued.
	Len() int

	// Close unsubscribes the inbox and wakes any blocked Next caller.
	Close()
}

// Event is one message on the bus. Payload's concrete type is fixed
// per topic.
type Event struct {
	Topic     string
	Source    string // name of the publishing plugin
	Timestamp time.Time
	Payload   any
}

// EventHandler processes events from the bus.
type EventHandler func(ctx context.Context, event Event)

// Subscription pairs a topic with its handler for EventSubscriber
// plugins.
type Subscription struct {
	Topic   string
	Handler EventHandler
}

// EventSubscriber declares bus subscriptions. The registry wires each
// one after a successful Init and removes it before the plugin's Stop.
type EventSubscriber interface {
	Subscriptions() []Subscription
}

// PluginResolver locates other active plugins by name or role.
type PluginResolver interface {
	Resolve(name string) (Plugin, bool)
	ResolveByRole(role string) []Plugin
}
