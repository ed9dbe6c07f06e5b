// Package mqtt bridges bus events to an MQTT broker. Health snapshots land
// on retained per-device topics, anomalies, regions, and alerts on flat
// event topics, and optional Home Assistant discovery payloads turn every
// reporting device into an HA entity. Without a broker URL the bridge is a
// no-op.
package mqtt

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"sync"

	"github.com/HerbHall/wavesight/internal/atlas"
	"github.com/HerbHall/wavesight/internal/telemetry"
	"github.com/HerbHall/wavesight/internal/vitals"
	"github.com/HerbHall/wavesight/pkg/models"
	"github.com/HerbHall/wavesight/pkg/plugin"
	pahomqtt "github.com/eclipse/paho.mqtt.golang"
	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"
)

// Prometheus bridge metrics.
var (
	mqttPublished = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "wavesight_mqtt_published_total",
		Help: "Messages successfully published to the MQTT broker.",
	})
	mqttFailed = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "wavesight_mqtt_publish_failures_total",
		Help: "MQTT publishes that failed or timed out.",
	})
)

func init() {
	prometheus.MustRegister(mqttPublished, mqttFailed)
}

// Compile-time interface guards.
var (
	_ plugin.Plugin          = (*Module)(nil)
	_ plugin.EventSubscriber = (*Module)(nil)
	_ plugin.HealthChecker   = (*Module)(nil)
	_ plugin.Validator       = (*Module)(nil)
)

// Module implements the MQTT bridge plugin.
type Module struct {
	logger *zap.Logger
	cfg    Config

	mu     sync.RWMutex
	client pahomqtt.Client

	// announced tracks devices whose HA discovery configs were published.
	// Only touched from the health subscription goroutine.
	announced map[string]struct{}
}

// New creates a new MQTT bridge plugin instance.
func New() *Module {
	return &Module{}
}

func (m *Module) Info() plugin.PluginInfo {
	return plugin.PluginInfo{
		Name:        "mqtt",
		Version:     "0.1.0",
		Description: "Bridges health, anomaly, region, and alert events to an MQTT broker",
		Roles:       []string{"notification", "integration"},
		APIVersion:  plugin.APIVersionCurrent,
	}
}

func (m *Module) Init(_ context.Context, deps plugin.Dependencies) error {
	m.logger = deps.Logger

	m.cfg = DefaultConfig()
	if deps.Config != nil {
		if err := deps.Config.Unmarshal(&m.cfg); err != nil {
			return fmt.Errorf("unmarshal mqtt config: %w", err)
		}
	}
	m.announced = make(map[string]struct{})

	if m.cfg.BrokerURL == "" {
		m.logger.Warn("MQTT broker URL not configured; events will be dropped")
	}

	m.logger.Info("mqtt module initialized",
		zap.String("broker_url", m.cfg.BrokerURL),
		zap.String("client_id", m.cfg.ClientID),
		zap.String("topic_prefix", m.cfg.TopicPrefix),
		zap.Uint8("qos", m.cfg.QoS),
		zap.Bool("ha_discovery", m.cfg.HADiscovery),
	)
	return nil
}

// ValidateConfig implements plugin.Validator.
func (m *Module) ValidateConfig() error {
	return m.cfg.Validate()
}

func (m *Module) Start(_ context.Context) error {
	if m.cfg.BrokerURL == "" {
		m.logger.Info("mqtt module started (no-op: no broker configured)")
		return nil
	}

	opts := pahomqtt.NewClientOptions().
		AddBroker(m.cfg.BrokerURL).
		SetClientID(m.cfg.ClientID).
		SetAutoReconnect(true).
		SetConnectTimeout(m.cfg.Timeout)

	if m.cfg.Username != "" {
		opts.SetUsername(m.cfg.Username)
		opts.SetPassword(m.cfg.Password) //nolint:gosec // G101: config field
	}

	m.mu.Lock()
	m.client = pahomqtt.NewClient(opts)
	token := m.client.Connect()
	m.mu.Unlock()

	switch {
	case !token.WaitTimeout(m.cfg.Timeout):
		m.logger.Warn("mqtt connection timed out; will reconnect in background")
	case token.Error() != nil:
		m.logger.Warn("mqtt connection failed; will reconnect in background",
			zap.Error(token.Error()),
		)
	default:
		m.logger.Info("mqtt connected to broker",
			zap.String("broker_url", m.cfg.BrokerURL),
		)
	}
	return nil
}

func (m *Module) Stop(_ context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.client != nil && m.client.IsConnected() {
		m.client.Disconnect(250)
		m.logger.Info("mqtt disconnected")
	}
	return nil
}

// Subscriptions implements plugin.EventSubscriber.
func (m *Module) Subscriptions() []plugin.Subscription {
	return []plugin.Subscription{
		{Topic: vitals.TopicHealth, Handler: m.onHealth},
		{Topic: telemetry.TopicAnomaly, Handler: m.onAnomaly},
		{Topic: atlas.TopicRegion, Handler: m.onRegion},
		{Topic: telemetry.TopicAlert, Handler: m.onAlert},
	}
}

// Health implements plugin.HealthChecker.
func (m *Module) Health(_ context.Context) plugin.HealthStatus {
	if m.cfg.BrokerURL == "" {
		return plugin.HealthStatus{
			Status:  "healthy",
			Message: "no broker configured (no-op mode)",
		}
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.client == nil || !m.client.IsConnected() {
		return plugin.HealthStatus{
			Status:  "degraded",
			Message: "not connected to MQTT broker",
		}
	}
	return plugin.HealthStatus{
		Status:  "healthy",
		Message: "connected to " + m.cfg.BrokerURL,
	}
}

// onHealth mirrors a health snapshot to its retained device topic and keeps
// the HA entity states current.
func (m *Module) onHealth(_ context.Context, event plugin.Event) {
	snap, ok := decode[models.HealthSnapshot](event.Payload)
	if !ok || snap.DeviceID == "" {
		return
	}

	m.mu.RLock()
	defer m.mu.RUnlock()
	if !m.ready() {
		return
	}

	m.publishJSON(m.cfg.TopicPrefix+"/health/"+snap.DeviceID, m.cfg.Retain, snap)
	if m.cfg.HADiscovery {
		m.announceDevice(snap.DeviceID)
		m.publishHealthState(snap)
	}
}

func (m *Module) onAnomaly(_ context.Context, event plugin.Event) {
	ev, ok := decode[models.AnomalyEvent](event.Payload)
	if !ok || ev.DeviceID == "" {
		return
	}

	m.mu.RLock()
	defer m.mu.RUnlock()
	if !m.ready() {
		return
	}
	// Anomalies are point events; a retained one would read as current state.
	m.publishJSON(m.cfg.TopicPrefix+"/anomaly/"+ev.DeviceID, false, ev)
}

func (m *Module) onRegion(_ context.Context, event plugin.Event) {
	region, ok := decode[models.AnomalyRegion](event.Payload)
	if !ok || region.ID == "" {
		return
	}

	m.mu.RLock()
	defer m.mu.RUnlock()
	if !m.ready() {
		return
	}
	m.publishJSON(m.cfg.TopicPrefix+"/region", false, region)
}

func (m *Module) onAlert(_ context.Context, event plugin.Event) {
	alert, ok := decode[models.Alert](event.Payload)
	if !ok || alert.ID == "" {
		return
	}

	m.mu.RLock()
	defer m.mu.RUnlock()
	if !m.ready() {
		return
	}
	m.publishJSON(m.cfg.TopicPrefix+"/alert", false, alert)
}

// ready reports whether the client can publish. The caller holds m.mu.
func (m *Module) ready() bool {
	return m.client != nil && m.client.IsConnected()
}

// publishJSON marshals v and publishes it. The caller holds m.mu.
func (m *Module) publishJSON(topic string, retain bool, v any) {
	payload, err := json.Marshal(v)
	if err != nil {
		m.logger.Warn("marshal mqtt payload",
			zap.String("mqtt_topic", topic),
			zap.Error(err),
		)
		return
	}
	m.publishBytes(topic, retain, payload)
}

// publishBytes publishes a raw payload. The caller holds m.mu.
func (m *Module) publishBytes(topic string, retain bool, payload []byte) {
	token := m.client.Publish(topic, m.cfg.QoS, retain, payload)
	if !token.WaitTimeout(m.cfg.Timeout) {
		mqttFailed.Inc()
		m.logger.Warn("mqtt publish timed out", zap.String("mqtt_topic", topic))
		return
	}
	if err := token.Error(); err != nil {
		mqttFailed.Inc()
		m.logger.Warn("mqtt publish failed",
			zap.String("mqtt_topic", topic),
			zap.Error(err),
		)
		return
	}
	mqttPublished.Inc()
	m.logger.Debug("mqtt published", zap.String("mqtt_topic", topic))
}

// publishHealthState publishes the retained per-device scalars backing the
// HA entities. The caller holds m.mu.
func (m *Module) publishHealthState(snap models.HealthSnapshot) {
	prefix := m.cfg.TopicPrefix + "/device/" + snap.DeviceID
	m.publishBytes(prefix+"/score", true, []byte(strconv.FormatFloat(snap.Score, 'f', 1, 64)))
	m.publishBytes(prefix+"/risk", true, []byte(snap.Risk))
	m.publishBytes(prefix+"/problem", true, []byte(problemState(snap.Risk)))
}

// announceDevice publishes HA discovery configs the first time a device
// reports health. The caller holds m.mu.
func (m *Module) announceDevice(deviceID string) {
	if _, ok := m.announced[deviceID]; ok {
		return
	}
	m.announced[deviceID] = struct{}{}

	for _, cfg := range BuildDeviceDiscoveryConfigs(deviceID, m.cfg.TopicPrefix, m.cfg.HADiscoveryPrefix) {
		// Discovery configs are always retained so HA picks them up on restart.
		m.publishBytes(cfg.Topic, true, cfg.Payload)
	}
}

// problemState maps a risk level to the problem binary_sensor state. High
// and critical risk read as a problem.
func problemState(risk models.RiskLevel) string {
	if risk == models.RiskHigh || risk == models.RiskCritical {
		return "ON"
	}
	return "OFF"
}

// decode extracts a typed payload, accepting both direct struct values and
// payloads that crossed a serialization boundary.
func decode[T any](payload any) (T, bool) {
	var zero T
	switch v := payload.(type) {
	case T:
		return v, true
	case *T:
		if v == nil {
			return zero, false
		}
		return *v, true
	}

	data, err := json.Marshal(payload)
	if err != nil {
		return zero, false
	}
	var out T
	if err := json.Unmarshal(data, &out); err != nil {
		return zero, false
	}
	return out, true
}
