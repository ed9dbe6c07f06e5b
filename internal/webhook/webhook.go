// Package webhook forwards alert events to an external HTTP endpoint.
//
// The module subscribes to the shared alert topic that the telemetry,
// vitals, and atlas pipelines all publish on and POSTs each alert as a
// JSON envelope to the configured URL. Without a URL the module is a
// no-op.
package webhook

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"sync/atomic"
	"time"

	"github.com/HerbHall/wavesight/internal/telemetry"
	"github.com/HerbHall/wavesight/pkg/plugin"
	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"
)

// Prometheus delivery metrics.
var (
	webhookDelivered = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "wavesight_webhook_delivered_total",
		Help: "Alerts successfully delivered to the webhook endpoint.",
	})
	webhookFailed = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "wavesight_webhook_failures_total",
		Help: "Webhook deliveries that failed or were rejected.",
	})
)

func init() {
	prometheus.MustRegister(webhookDelivered, webhookFailed)
}

// Compile-time interface guards.
var (
	_ plugin.Plugin          = (*Module)(nil)
	_ plugin.EventSubscriber = (*Module)(nil)
	_ plugin.Validator       = (*Module)(nil)
	_ plugin.HealthChecker   = (*Module)(nil)
)

// failStreakLimit is how many consecutive failed deliveries flip the
// module's health to degraded.
const failStreakLimit = 3

// Config holds the webhook plugin configuration.
type Config struct {
	URL     string        `mapstructure:"url"`
	Timeout time.Duration `mapstructure:"timeout"`
	Enabled bool          `mapstructure:"enabled"`
}

// DefaultConfig returns the webhook defaults. The URL starts empty, so
// deliveries are skipped until one is configured.
func DefaultConfig() Config {
	return Config{
		Timeout: 10 * time.Second,
		Enabled: true,
	}
}

// Validate reports configuration errors.
func (c Config) Validate() error {
	if c.Timeout <= 0 {
		return errors.New("timeout must be positive")
	}
	if c.URL != "" {
		u, err := url.Parse(c.URL)
		if err != nil {
			return fmt.Errorf("url: %w", err)
		}
		if u.Scheme != "http" && u.Scheme != "https" {
			return fmt.Errorf("url scheme %q: want http or https", u.Scheme)
		}
	}
	return nil
}

// Module implements the webhook notifier plugin.
type Module struct {
	logger *zap.Logger
	cfg    Config
	client *http.Client

	// fails counts consecutive failed deliveries, reset on success.
	fails atomic.Uint32
}

// New creates a new webhook plugin instance.
func New() *Module {
	return &Module{}
}

func (m *Module) Info() plugin.PluginInfo {
	return plugin.PluginInfo{
		Name:        "webhook",
		Version:     "0.1.0",
		Description: "Sends HTTP POST notifications to a configurable webhook URL on alerts",
		Roles:       []string{"notification"},
		APIVersion:  plugin.APIVersionCurrent,
	}
}

func (m *Module) Init(_ context.Context, deps plugin.Dependencies) error {
	m.logger = deps.Logger

	m.cfg = DefaultConfig()
	if deps.Config != nil {
		if err := deps.Config.Unmarshal(&m.cfg); err != nil {
			return fmt.Errorf("unmarshal webhook config: %w", err)
		}
	}

	m.client = &http.Client{Timeout: m.cfg.Timeout}

	if m.cfg.URL == "" {
		m.logger.Warn("webhook URL not configured; alerts will be dropped")
	}

	m.logger.Info("webhook module initialized",
		zap.String("url", m.cfg.URL),
		zap.Duration("timeout", m.cfg.Timeout),
		zap.Bool("enabled", m.cfg.Enabled),
	)
	return nil
}

// ValidateConfig implements plugin.Validator.
func (m *Module) ValidateConfig() error {
	return m.cfg.Validate()
}

func (m *Module) Start(_ context.Context) error {
	m.logger.Info("webhook module started")
	return nil
}

func (m *Module) Stop(_ context.Context) error {
	m.logger.Info("webhook module stopped")
	return nil
}

// Health implements plugin.HealthChecker.
func (m *Module) Health(_ context.Context) plugin.HealthStatus {
	switch {
	case m.cfg.URL == "":
		return plugin.HealthStatus{
			Status:  "healthy",
			Message: "no URL configured (no-op mode)",
		}
	case m.fails.Load() >= failStreakLimit:
		return plugin.HealthStatus{
			Status:  "degraded",
			Message: fmt.Sprintf("last %d deliveries failed", m.fails.Load()),
		}
	default:
		return plugin.HealthStatus{
			Status:  "healthy",
			Message: "posting alerts to " + m.cfg.URL,
		}
	}
}

// Subscriptions implements plugin.EventSubscriber. The alert topic is
// shared by every alert publisher, so one subscription covers health,
// anomaly, and region alerts alike.
func (m *Module) Subscriptions() []plugin.Subscription {
	return []plugin.Subscription{
		{Topic: telemetry.TopicAlert, Handler: m.handleAlert},
	}
}

// Envelope is the JSON body posted to the webhook URL for each alert.
type Envelope struct {
	Event     string `json:"event"`
	Source    string `json:"source"`
	Timestamp string `json:"timestamp"`
	Data      any    `json:"data"`
}

func newEnvelope(event plugin.Event) Envelope {
	return Envelope{
		Event:     event.Topic,
		Source:    event.Source,
		Timestamp: event.Timestamp.UTC().Format(time.RFC3339),
		Data:      event.Payload,
	}
}

func (m *Module) handleAlert(ctx context.Context, event plugin.Event) {
	if !m.cfg.Enabled || m.cfg.URL == "" {
		return
	}

	body, err := json.Marshal(newEnvelope(event))
	if err != nil {
		m.logger.Error("failed to marshal webhook payload",
			zap.String("topic", event.Topic),
			zap.Error(err),
		)
		return
	}

	if err := m.deliver(ctx, body); err != nil {
		webhookFailed.Inc()
		m.fails.Add(1)
		m.logger.Warn("webhook delivery failed",
			zap.String("url", m.cfg.URL),
			zap.String("topic", event.Topic),
			zap.Error(err),
		)
		return
	}

	webhookDelivered.Inc()
	m.fails.Store(0)
	m.logger.Debug("webhook delivered", zap.String("topic", event.Topic))
}

func (m *Module) deliver(ctx context.Context, body []byte) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, m.cfg.URL, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("User-Agent", "WaveSight-Webhook/0.1")

	resp, err := m.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	// Drain so the connection can be reused.
	_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 4096))

	if resp.StatusCode >= 400 {
		return fmt.Errorf("endpoint returned %d", resp.StatusCode)
	}
	return nil
}
