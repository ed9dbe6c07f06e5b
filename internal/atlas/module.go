// Package atlas is the WaveSight positioning plugin: anchor-based
// multilateration of device fixes, DBSCAN clustering of recently-anomalous
// devices into trouble regions, and an inverse-distance-weighted signal
// heatmap over the site.
package atlas

import (
	"context"
	"fmt"
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	"github.com/HerbHall/wavesight/internal/telemetry/ring"
	"github.com/HerbHall/wavesight/pkg/models"
	"github.com/HerbHall/wavesight/pkg/plugin"
	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"
)

// Compile-time interface guards.
var (
	_ plugin.Plugin        = (*Module)(nil)
	_ plugin.HTTPProvider  = (*Module)(nil)
	_ plugin.HealthChecker = (*Module)(nil)
	_ plugin.Validator     = (*Module)(nil)
)

var (
	fixesTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "wavesight_position_fixes_total",
		Help: "Successful live triangulation fixes.",
	})
	solverFailuresTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "wavesight_solver_failures_total",
		Help: "Triangulation solves declined for geometry or convergence.",
	})
	clusterRunsTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "wavesight_cluster_runs_total",
		Help: "Spatial clustering passes.",
	})
	regionsActive = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "wavesight_regions_active",
		Help: "Anomaly regions in the current set.",
	})
)

func init() {
	prometheus.MustRegister(fixesTotal, solverFailuresTotal, clusterRunsTotal, regionsActive)
}

// TelemetryHistory is the telemetry surface historical fixes read: the
// measurements around a past instant. Resolved during Start; LocateAt
// declines while it is absent.
type TelemetryHistory interface {
	Window(deviceID string, now time.Time, span time.Duration) []ring.Entry
}

// Module implements the atlas plugin.
type Module struct {
	logger  *zap.Logger
	cfg     AtlasConfig
	store   *AtlasStore
	bus     plugin.EventBus
	plugins plugin.PluginResolver

	anchors *anchorSet
	track   *tracker

	mu        sync.RWMutex
	regions   []models.AnomalyRegion
	regionsAt time.Time

	telemetry TelemetryHistory

	// fresh counts anomalies since the last clustering pass; crossing the
	// threshold kicks the pass early.
	fresh       atomic.Uint64
	clusterKick chan struct{}

	stats atlasStats

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

type atlasStats struct {
	fixes          atomic.Uint64
	solverFailures atomic.Uint64
	clusterRuns    atomic.Uint64
	trackDropped   atomic.Uint64
	sinkWrites     atomic.Uint64
	sinkFailures   atomic.Uint64
	sinkDropped    atomic.Uint64
}

// New creates a new atlas plugin instance.
func New() *Module {
	return &Module{
		anchors:     newAnchorSet(),
		track:       newTracker(),
		clusterKick: make(chan struct{}, 1),
	}
}

func (m *Module) Info() plugin.PluginInfo {
	return plugin.PluginInfo{
		Name:         "atlas",
		Version:      "0.1.0",
		Description:  "Device positioning, anomaly regions, and signal heatmaps",
		Dependencies: []string{"telemetry"},
		Roles:        []string{"location"},
		APIVersion:   plugin.APIVersionCurrent,
	}
}

func (m *Module) Init(_ context.Context, deps plugin.Dependencies) error {
	m.logger = deps.Logger

	m.cfg = DefaultConfig()
	if deps.Config != nil {
		if err := deps.Config.Unmarshal(&m.cfg); err != nil {
			return fmt.Errorf("unmarshal atlas config: %w", err)
		}
	}

	if deps.Store != nil {
		if err := deps.Store.Migrate(context.Background(), "atlas", migrations()); err != nil {
			return fmt.Errorf("atlas migrations: %w", err)
		}
		m.store = NewAtlasStore(deps.Store.DB())

		anchors, err := m.store.Anchors(context.Background())
		if err != nil {
			return fmt.Errorf("load anchors: %w", err)
		}
		for _, a := range anchors {
			m.anchors.put(a)
		}
	}

	m.bus = deps.Bus
	m.plugins = deps.Plugins

	m.logger.Info("atlas module initialized",
		zap.Int("anchors", m.anchors.count()),
		zap.Float64("path_loss_exponent", m.cfg.PathLossExponent),
		zap.Float64("cluster_eps", m.cfg.ClusterEps),
		zap.Duration("cluster_interval", m.cfg.ClusterInterval),
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
			if th, ok := p.(TelemetryHistory); ok {
				m.telemetry = th
			}
		}
	}
	if m.telemetry == nil {
		m.logger.Warn("telemetry plugin unavailable, historical fixes disabled")
	}

	m.startTracking()
	m.startSink()
	m.startMaintenance()
	m.logger.Info("atlas module started", zap.Int("anchors", m.anchors.count()))
	return nil
}

func (m *Module) Stop(_ context.Context) error {
	if m.cancel != nil {
		m.cancel()
	}
	m.wg.Wait()
	m.logger.Info("atlas module stopped")
	return nil
}

// Health implements plugin.HealthChecker.
func (m *Module) Health(_ context.Context) plugin.HealthStatus {
	m.mu.RLock()
	regions := len(m.regions)
	m.mu.RUnlock()

	return plugin.HealthStatus{
		Status: "healthy",
		Details: map[string]string{
			"anchors":         strconv.Itoa(m.anchors.count()),
			"regions":         strconv.Itoa(regions),
			"fixes":           strconv.FormatUint(m.stats.fixes.Load(), 10),
			"solver_failures": strconv.FormatUint(m.stats.solverFailures.Load(), 10),
			"sink_dropped":    strconv.FormatUint(m.stats.sinkDropped.Load(), 10),
		},
	}
}

func (m *Module) publish(topic string, payload any) {
	if m.bus == nil {
		return
	}
	ctx := m.ctx
	if ctx == nil {
		ctx = context.Background()
	}
	_ = m.bus.Publish(ctx, plugin.Event{Topic: topic, Source: "atlas", Payload: payload})
}
