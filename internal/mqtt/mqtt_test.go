package mqtt

import (
	"context"
	"testing"
	"time"

	"github.com/HerbHall/wavesight/internal/atlas"
	"github.com/HerbHall/wavesight/internal/telemetry"
	"github.com/HerbHall/wavesight/internal/vitals"
	"github.com/HerbHall/wavesight/pkg/models"
	"github.com/HerbHall/wavesight/pkg/plugin"
	"github.com/HerbHall/wavesight/pkg/plugin/plugintest"
	"go.uber.org/zap"
)

func TestContract(t *testing.T) {
	plugintest.TestPluginContract(t, func() plugin.Plugin { return New() })
}

func TestInfo_ReturnsCorrectMetadata(t *testing.T) {
	m := New()
	info := m.Info()

	if info.Name != "mqtt" {
		t.Errorf("Name = %q, want mqtt", info.Name)
	}
	if info.Version != "0.1.0" {
		t.Errorf("Version = %q, want 0.1.0", info.Version)
	}
	if len(info.Roles) != 2 || info.Roles[0] != "notification" || info.Roles[1] != "integration" {
		t.Errorf("Roles = %v, want [notification integration]", info.Roles)
	}
	if info.APIVersion != plugin.APIVersionCurrent {
		t.Errorf("APIVersion = %d, want %d", info.APIVersion, plugin.APIVersionCurrent)
	}
}

func TestSubscriptions_ReturnsExpectedTopics(t *testing.T) {
	m := New()
	if err := m.Init(context.Background(), plugin.Dependencies{Logger: zap.NewNop()}); err != nil {
		t.Fatalf("Init: %v", err)
	}

	subs := m.Subscriptions()
	if len(subs) != 4 {
		t.Fatalf("Subscriptions() returned %d, want 4", len(subs))
	}

	topics := make(map[string]bool)
	for i, s := range subs {
		if s.Handler == nil {
			t.Errorf("Subscriptions()[%d].Handler is nil", i)
		}
		topics[s.Topic] = true
	}

	expected := []string{
		vitals.TopicHealth,
		telemetry.TopicAnomaly,
		atlas.TopicRegion,
		telemetry.TopicAlert,
	}
	for _, topic := range expected {
		if !topics[topic] {
			t.Errorf("missing subscription for topic %q", topic)
		}
	}
}

func TestHandlers_NoOpWhenClientNil(t *testing.T) {
	m := &Module{
		logger:    zap.NewNop(),
		cfg:       DefaultConfig(),
		announced: make(map[string]struct{}),
	}

	// client is nil -- none of these may panic.
	ctx := context.Background()
	m.onHealth(ctx, plugin.Event{Topic: vitals.TopicHealth, Payload: models.HealthSnapshot{DeviceID: "ap-1", Score: 42}})
	m.onAnomaly(ctx, plugin.Event{Topic: telemetry.TopicAnomaly, Payload: models.AnomalyEvent{ID: "ev-1", DeviceID: "ap-1"}})
	m.onRegion(ctx, plugin.Event{Topic: atlas.TopicRegion, Payload: models.AnomalyRegion{ID: "reg-1"}})
	m.onAlert(ctx, plugin.Event{Topic: telemetry.TopicAlert, Payload: models.Alert{ID: "al-1"}})
}

func TestHandlers_IgnoreMalformedPayloads(t *testing.T) {
	m := &Module{
		logger:    zap.NewNop(),
		cfg:       DefaultConfig(),
		announced: make(map[string]struct{}),
	}

	ctx := context.Background()
	m.onHealth(ctx, plugin.Event{Topic: vitals.TopicHealth, Payload: "not a snapshot"})
	m.onHealth(ctx, plugin.Event{Topic: vitals.TopicHealth, Payload: nil})
	m.onAnomaly(ctx, plugin.Event{Topic: telemetry.TopicAnomaly, Payload: 42})
	m.onAlert(ctx, plugin.Event{Topic: telemetry.TopicAlert, Payload: models.Alert{}}) // no ID
}

func TestStart_NoOpWithEmptyBrokerURL(t *testing.T) {
	m := New()
	if err := m.Init(context.Background(), plugin.Dependencies{Logger: zap.NewNop()}); err != nil {
		t.Fatalf("Init: %v", err)
	}

	// BrokerURL is empty by default; Start must not attempt a connection.
	if err := m.Start(context.Background()); err != nil {
		t.Fatalf("Start() error = %v, want nil", err)
	}
	if m.client != nil {
		t.Error("client should be nil when no broker URL is configured")
	}
}

func TestHealth_NoBrokerConfigured(t *testing.T) {
	m := New()
	if err := m.Init(context.Background(), plugin.Dependencies{Logger: zap.NewNop()}); err != nil {
		t.Fatalf("Init: %v", err)
	}

	status := m.Health(context.Background())
	if status.Status != "healthy" {
		t.Errorf("Health().Status = %q, want healthy", status.Status)
	}
	if status.Message != "no broker configured (no-op mode)" {
		t.Errorf("Health().Message = %q", status.Message)
	}
}

func TestHealth_DegradedWhenNotConnected(t *testing.T) {
	m := &Module{
		logger: zap.NewNop(),
		cfg:    Config{BrokerURL: "tcp://localhost:1883"},
		// client nil simulates "configured but not connected".
	}

	status := m.Health(context.Background())
	if status.Status != "degraded" {
		t.Errorf("Health().Status = %q, want degraded", status.Status)
	}
}

func TestProblemState(t *testing.T) {
	tests := []struct {
		risk models.RiskLevel
		want string
	}{
		{models.RiskLow, "OFF"},
		{models.RiskMedium, "OFF"},
		{models.RiskHigh, "ON"},
		{models.RiskCritical, "ON"},
	}
	for _, tt := range tests {
		t.Run(string(tt.risk), func(t *testing.T) {
			if got := problemState(tt.risk); got != tt.want {
				t.Errorf("problemState(%q) = %q, want %q", tt.risk, got, tt.want)
			}
		})
	}
}

func TestDecode(t *testing.T) {
	want := models.Alert{ID: "al-1", Severity: models.SeverityHigh, Title: "link down"}

	if got, ok := decode[models.Alert](want); !ok || got.ID != "al-1" {
		t.Errorf("decode(value) = %+v, %v", got, ok)
	}
	if got, ok := decode[models.Alert](&want); !ok || got.Title != "link down" {
		t.Errorf("decode(pointer) = %+v, %v", got, ok)
	}
	if _, ok := decode[models.Alert]((*models.Alert)(nil)); ok {
		t.Error("decode(nil pointer) = ok, want !ok")
	}

	// Payloads that crossed a serialization boundary arrive as maps.
	m := map[string]any{"id": "al-2", "severity": "low"}
	if got, ok := decode[models.Alert](m); !ok || got.ID != "al-2" || got.Severity != models.SeverityLow {
		t.Errorf("decode(map) = %+v, %v", got, ok)
	}

	if _, ok := decode[models.Alert](func() {}); ok {
		t.Error("decode(func) = ok, want !ok")
	}
}

func TestConfigValidate(t *testing.T) {
	if err := DefaultConfig().Validate(); err != nil {
		t.Fatalf("DefaultConfig().Validate() error = %v", err)
	}

	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"qos above 2", func(c *Config) { c.QoS = 3 }},
		{"zero timeout", func(c *Config) { c.Timeout = 0 }},
		{"empty topic prefix", func(c *Config) { c.TopicPrefix = "" }},
		{"discovery without prefix", func(c *Config) { c.HADiscovery = true; c.HADiscoveryPrefix = "" }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.mutate(&cfg)
			if err := cfg.Validate(); err == nil {
				t.Error("Validate() = nil, want error")
			}
		})
	}
}

func TestInit_AppliesConfigDefaults(t *testing.T) {
	m := New()
	if err := m.Init(context.Background(), plugin.Dependencies{Logger: zap.NewNop()}); err != nil {
		t.Fatalf("Init: %v", err)
	}

	if m.cfg.TopicPrefix != "wavesight" {
		t.Errorf("TopicPrefix = %q, want wavesight", m.cfg.TopicPrefix)
	}
	if m.cfg.QoS != 1 {
		t.Errorf("QoS = %d, want 1", m.cfg.QoS)
	}
	if m.cfg.Timeout != 10*time.Second {
		t.Errorf("Timeout = %v, want 10s", m.cfg.Timeout)
	}
	if m.cfg.HADiscoveryPrefix != "homeassistant" {
		t.Errorf("HADiscoveryPrefix = %q, want homeassistant", m.cfg.HADiscoveryPrefix)
	}
}
