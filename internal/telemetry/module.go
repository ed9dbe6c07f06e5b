// Package telemetry implements the WaveSight ingest plugin: the single
// entry point for field-agent measurements. Each measurement is smoothed,
// appended to the device's bounded history, scored for anomalies, located
// when enough anchors and samples exist, and fanned out on the event bus.
package telemetry

import (
	"context"
	"fmt"
	"strconv"
	"sync"
	"time"

	"github.com/HerbHall/wavesight/internal/telemetry/anomaly"
	"github.com/HerbHall/wavesight/internal/telemetry/ring"
	"github.com/HerbHall/wavesight/pkg/models"
	"github.com/HerbHall/wavesight/pkg/plugin"
	"go.uber.org/zap"
)

// Compile-time interface guards.
var (
	_ plugin.Plugin        = (*Module)(nil)
	_ plugin.HTTPProvider  = (*Module)(nil)
	_ plugin.HealthChecker = (*Module)(nil)
	_ plugin.Validator     = (*Module)(nil)
)

// Locator produces position estimates. Locate is the live fix from a
// device's recent mean smoothed RSSI; LocateAt recomputes a fix around a
// past instant. Satisfied by the atlas plugin; resolved during Start.
type Locator interface {
	Locate(deviceID string, meanRSSI float64, at time.Time) (*models.Position, bool)
	LocateAt(deviceID string, at time.Time) (*models.Position, bool)
}

// HealthRecomputer refreshes a device's health assessment from its history
// window. Satisfied by the vitals plugin; resolved during Start.
type HealthRecomputer interface {
	Recompute(ctx context.Context, deviceID string, window []ring.Entry, now time.Time)
}

// Module implements the telemetry ingest plugin.
type Module struct {
	logger  *zap.Logger
	cfg     TelemetryConfig
	store   *TelemetryStore
	bus     plugin.EventBus
	plugins plugin.PluginResolver
	states  *stateManager
	scorer  anomaly.Scorer

	locator Locator
	health  HealthRecomputer

	stats pipelineStats

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// New creates a new telemetry plugin instance.
func New() *Module {
	return &Module{}
}

func (m *Module) Info() plugin.PluginInfo {
	return plugin.PluginInfo{
		Name:        "telemetry",
		Version:     "0.1.0",
		Description: "Measurement ingest, smoothing, and anomaly scoring",
		Roles:       []string{"ingest"},
		Required:    true,
		APIVersion:  plugin.APIVersionCurrent,
	}
}

func (m *Module) Init(_ context.Context, deps plugin.Dependencies) error {
	m.logger = deps.Logger

	m.cfg = DefaultConfig()
	if deps.Config != nil {
		if err := deps.Config.Unmarshal(&m.cfg); err != nil {
			return fmt.Errorf("unmarshal telemetry config: %w", err)
		}
	}

	if deps.Store != nil {
		if err := deps.Store.Migrate(context.Background(), "telemetry", migrations()); err != nil {
			return fmt.Errorf("telemetry migrations: %w", err)
		}
		m.store = NewTelemetryStore(deps.Store.DB())
	}

	m.bus = deps.Bus
	m.plugins = deps.Plugins
	m.states = newStateManager(m.cfg)

	switch m.cfg.Scorer {
	case ScorerIsoForest:
		m.scorer = anomaly.NewIsolationForest()
	default:
		det := anomaly.NewDetector()
		det.ZCutoff = m.cfg.ZScoreCutoff
		det.DropThreshold = m.cfg.DropThreshold
		det.OscillationLimit = m.cfg.OscillationLimit
		m.scorer = det
	}

	m.logger.Info("telemetry module initialized",
		zap.Int("ring_capacity", m.cfg.RingCapacity),
		zap.Int("lanes", m.cfg.Lanes),
		zap.String("scorer", m.cfg.Scorer),
		zap.Int("health_stride", m.cfg.HealthStride),
		zap.Duration("idle_timeout", m.cfg.IdleTimeout),
	)
	return nil
}

// ValidateConfig implements plugin.Validator.
func (m *Module) ValidateConfig() error {
	return m.cfg.Validate()
}

func (m *Module) Start(_ context.Context) error {
	m.ctx, m.cancel = context.WithCancel(context.Background())

	// The locator and health recomputer are optional collaborators; the
	// pipeline skips those stages when the plugins are not loaded.
	if m.plugins != nil {
		if p, ok := m.plugins.Resolve("atlas"); ok {
			if loc, ok := p.(Locator); ok {
				m.locator = loc
			}
		}
		if p, ok := m.plugins.Resolve("vitals"); ok {
			if hr, ok := p.(HealthRecomputer); ok {
				m.health = hr
			}
		}
	}

	m.startSink()
	m.startMaintenance()
	m.logger.Info("telemetry module started",
		zap.Bool("locator", m.locator != nil),
		zap.Bool("health_recomputer", m.health != nil),
	)
	return nil
}

func (m *Module) Stop(_ context.Context) error {
	if m.cancel != nil {
		m.cancel()
	}
	m.wg.Wait()
	m.logger.Info("telemetry module stopped")
	return nil
}

// Health implements plugin.HealthChecker.
func (m *Module) Health(_ context.Context) plugin.HealthStatus {
	devices := 0
	if m.states != nil {
		devices = m.states.count()
	}
	return plugin.HealthStatus{
		Status: "healthy",
		Details: map[string]string{
			"devices":      strconv.Itoa(devices),
			"processed":    strconv.FormatUint(m.stats.processed.Load(), 10),
			"anomalies":    strconv.FormatUint(m.stats.anomalies.Load(), 10),
			"sink_dropped": strconv.FormatUint(m.stats.sinkDropped.Load(), 10),
		},
	}
}

// DeviceIDs lists tracked devices for collaborators such as the vitals
// sweep.
func (m *Module) DeviceIDs() []string {
	return m.states.deviceIDs()
}

// History returns a copy of the last k entries for a device (all when
// k <= 0 or k exceeds the stored count).
func (m *Module) History(deviceID string, k int) []ring.Entry {
	return m.states.tail(deviceID, k)
}

// Window returns a copy of the device's entries within span of now.
func (m *Module) Window(deviceID string, now time.Time, span time.Duration) []ring.Entry {
	return m.states.window(deviceID, now, span)
}
