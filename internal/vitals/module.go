// Package vitals assesses device health from telemetry history: a fixed
// feature map over the recent window, a rule-based score with risk
// buckets, and a trend-based failure-date projection.
package vitals

import (
	"context"
	"fmt"
	"sort"
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	"github.com/HerbHall/wavesight/internal/telemetry/ring"
	"github.com/HerbHall/wavesight/pkg/models"
	"github.com/HerbHall/wavesight/pkg/plugin"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"
)

var (
	_ plugin.Plugin        = (*Module)(nil)
	_ plugin.HTTPProvider  = (*Module)(nil)
	_ plugin.HealthChecker = (*Module)(nil)
	_ plugin.Validator     = (*Module)(nil)
)

var (
	recomputesTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "wavesight_health_recomputes_total",
		Help: "Health snapshot recomputations.",
	})
	criticalTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "wavesight_health_critical_transitions_total",
		Help: "Devices entering critical risk.",
	})
)

func init() {
	prometheus.MustRegister(recomputesTotal, criticalTotal)
}

// HistorySource is the telemetry surface the periodic sweep reads. The
// telemetry plugin satisfies it; the sweep is skipped when it is absent.
type HistorySource interface {
	DeviceIDs() []string
	History(deviceID string, k int) []ring.Entry
}

// Module is the vitals plugin. It keeps the current health snapshot per
// device in memory and persists snapshot changes through its sink.
type Module struct {
	logger  *zap.Logger
	cfg     VitalsConfig
	store   *VitalsStore
	bus     plugin.EventBus
	plugins plugin.PluginResolver

	mu        sync.RWMutex
	snapshots map[string]models.HealthSnapshot

	telemetry HistorySource

	stats vitalsStats

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

type vitalsStats struct {
	recomputes   atomic.Uint64
	changes      atomic.Uint64
	critical     atomic.Uint64
	sinkWrites   atomic.Uint64
	sinkFailures atomic.Uint64
	sinkDropped  atomic.Uint64
}

// New creates a new vitals plugin instance.
func New() *Module {
	return &Module{snapshots: make(map[string]models.HealthSnapshot)}
}

func (m *Module) Info() plugin.PluginInfo {
	return plugin.PluginInfo{
		Name:         "vitals",
		Version:      "0.1.0",
		Description:  "Rule-based device health scoring and failure projection",
		Dependencies: []string{"telemetry"},
		Roles:        []string{"health"},
		APIVersion:   plugin.APIVersionCurrent,
	}
}

func (m *Module) Init(_ context.Context, deps plugin.Dependencies) error {
	m.logger = deps.Logger

	m.cfg = DefaultConfig()
	if deps.Config != nil {
		if err := deps.Config.Unmarshal(&m.cfg); err != nil {
			return fmt.Errorf("unmarshal vitals config: %w", err)
		}
	}

	if deps.Store != nil {
		if err := deps.Store.Migrate(context.Background(), "vitals", migrations()); err != nil {
			return fmt.Errorf("vitals migrations: %w", err)
		}
		m.store = NewVitalsStore(deps.Store.DB())
	}

	m.bus = deps.Bus
	m.plugins = deps.Plugins

	m.logger.Info("vitals module initialized",
		zap.Duration("sweep_interval", m.cfg.SweepInterval),
		zap.Int("window_size", m.cfg.WindowSize),
	)
	return nil
}

// ValidateConfig implements plugin.Validator.
func (m *Module) ValidateConfig() error {
	return m.cfg.Validate()
}

func (m *Module) Start(_ context.Context) error {
	m.ctx, m.cancel = context.WithCancel(context.Background())

	if m.plugins != nil {
		if p, ok := m.plugins.Resolve("telemetry"); ok {
			if hs, ok := p.(HistorySource); ok {
				m.telemetry = hs
			}
		}
	}
	if m.telemetry == nil {
		m.logger.Warn("telemetry plugin unavailable, health sweep disabled")
	}

	m.startSink()
	m.startSweep()
	m.logger.Info("vitals module started")
	return nil
}

func (m *Module) Stop(_ context.Context) error {
	if m.cancel != nil {
		m.cancel()
	}
	m.wg.Wait()
	m.logger.Info("vitals module stopped")
	return nil
}

// Health implements plugin.HealthChecker.
func (m *Module) Health(_ context.Context) plugin.HealthStatus {
	m.mu.RLock()
	devices := len(m.snapshots)
	critical := 0
	for _, s := range m.snapshots {
		if s.Risk == models.RiskCritical {
			critical++
		}
	}
	m.mu.RUnlock()

	return plugin.HealthStatus{
		Status: "healthy",
		Details: map[string]string{
			"devices":      strconv.Itoa(devices),
			"critical":     strconv.Itoa(critical),
			"recomputes":   strconv.FormatUint(m.stats.recomputes.Load(), 10),
			"sink_dropped": strconv.FormatUint(m.stats.sinkDropped.Load(), 10),
		},
	}
}

// Recompute refreshes a device's health snapshot from its history
// window. It is called inline from the ingest pipeline and from the
// periodic sweep; a window of fewer than three samples yields no
// snapshot. Publishes `health` when the score or risk changed and
// `alert` when the device entered critical risk.
func (m *Module) Recompute(_ context.Context, deviceID string, window []ring.Entry, now time.Time) {
	feats := ExtractFeatures(window)
	if feats == nil {
		return
	}

	score := Score(feats)
	snap := models.HealthSnapshot{
		DeviceID:        deviceID,
		Score:           score,
		Risk:            models.RiskForScore(score),
		Factors:         Factors(feats),
		Recommendations: Recommendations(score, feats),
		SampleCount:     len(window),
		UpdatedAt:       now,
	}
	snap.PredictedFailureAt, snap.Confidence = Project(score, feats, now)

	m.mu.Lock()
	prev, had := m.snapshots[deviceID]
	m.snapshots[deviceID] = snap
	m.mu.Unlock()

	m.stats.recomputes.Add(1)
	recomputesTotal.Inc()

	if had && prev.Score == snap.Score && prev.Risk == snap.Risk {
		return
	}
	m.stats.changes.Add(1)
	m.publish(TopicHealth, snap)

	if snap.Risk == models.RiskCritical && (!had || prev.Risk != models.RiskCritical) {
		m.stats.critical.Add(1)
		criticalTotal.Inc()
		m.publish(TopicAlert, models.Alert{
			ID:        uuid.NewString(),
			Kind:      models.AlertHealth,
			Severity:  models.SeverityHigh,
			DeviceID:  deviceID,
			Title:     "Device health critical",
			Detail:    fmt.Sprintf("score %.0f, %d factors", snap.Score, len(snap.Factors)),
			CreatedAt: now,
		})
		m.logger.Warn("device entered critical health",
			zap.String("device_id", deviceID),
			zap.Float64("score", snap.Score),
			zap.Strings("factors", snap.Factors),
		)
	}
}

// Snapshot returns the current health snapshot for one device.
func (m *Module) Snapshot(deviceID string) (models.HealthSnapshot, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	s, ok := m.snapshots[deviceID]
	return s, ok
}

// Snapshots returns every device's current snapshot sorted by device ID.
func (m *Module) Snapshots() []models.HealthSnapshot {
	m.mu.RLock()
	out := make([]models.HealthSnapshot, 0, len(m.snapshots))
	for _, s := range m.snapshots {
		out = append(out, s)
	}
	m.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool { return out[i].DeviceID < out[j].DeviceID })
	return out
}

func (m *Module) publish(topic string, payload any) {
	if m.bus == nil {
		return
	}
	ctx := m.ctx
	if ctx == nil {
		ctx = context.Background()
	}
	_ = m.bus.Publish(ctx, plugin.Event{Topic: topic, Source: "vitals", Payload: payload})
}
