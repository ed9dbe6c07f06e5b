package telemetry

import (
	"context"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/HerbHall/wavesight/internal/telemetry/ring"
	"github.com/HerbHall/wavesight/pkg/models"
	"github.com/HerbHall/wavesight/pkg/plugin"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"
)

// EventThreshold is the anomaly score above which a result is published as
// an anomaly event.
const EventThreshold = 0.5

// locateMinSamples is the minimum number of recent samples for a position
// attempt.
const locateMinSamples = 3

// Prometheus ingest metrics.
var (
	measurementsIngested = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "wavesight_ingest_measurements_total",
			Help: "Measurements accepted by the ingest pipeline.",
		},
	)
	measurementsRejected = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "wavesight_ingest_rejected_total",
			Help: "Measurements rejected as malformed.",
		},
	)
	ingestDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "wavesight_ingest_duration_seconds",
			Help:    "Wall time for one measurement through the pipeline, including lane wait.",
			Buckets: prometheus.ExponentialBuckets(0.0001, 4, 8),
		},
	)
	anomaliesDetected = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "wavesight_anomalies_total",
			Help: "Anomaly events published, by kind.",
		},
		[]string{"kind"},
	)
)

func init() {
	prometheus.MustRegister(measurementsIngested)
	prometheus.MustRegister(measurementsRejected)
	prometheus.MustRegister(ingestDuration)
	prometheus.MustRegister(anomaliesDetected)
}

// pipelineStats are the module's lifetime counters, served by GET /stats.
type pipelineStats struct {
	processed    atomic.Uint64
	rejected     atomic.Uint64
	anomalies    atomic.Uint64
	alerts       atomic.Uint64
	positions    atomic.Uint64
	healthRuns   atomic.Uint64
	sinkWrites   atomic.Uint64
	sinkFailures atomic.Uint64
	sinkDropped  atomic.Uint64
}

// IngestResult reports what the pipeline derived from one measurement.
type IngestResult struct {
	Entry    ring.Entry            `json:"entry"`
	Position *models.Position      `json:"position,omitempty"`
	Events   []models.AnomalyEvent `json:"events,omitempty"`
}

// Ingest runs one measurement through the pipeline: validate, smooth,
// append, score, locate, stride-gated health recompute, publish. Malformed
// input returns a models.ErrInvalidMeasurement wrap; well-formed input
// never fails. All stages for one device run under its lane lock, so
// per-device processing and event order match arrival order.
func (m *Module) Ingest(ctx context.Context, meas models.Measurement) (*IngestResult, error) {
	if err := meas.Validate(); err != nil {
		m.stats.rejected.Add(1)
		measurementsRejected.Inc()
		return nil, err
	}
	start := time.Now()
	defer func() { ingestDuration.Observe(time.Since(start).Seconds()) }()

	l := m.states.laneFor(meas.DeviceID)
	l.mu.Lock()
	defer l.mu.Unlock()

	st := l.getOrCreate(meas.DeviceID, m.cfg)
	st.lastSeen = time.Now()
	st.ingested++

	entry := ring.Entry{
		Measurement:  meas,
		SmoothedRSSI: st.kalman.Update(meas.RSSI),
		EWMARSSI:     st.ewma.Update(meas.RSSI),
	}
	st.history.Append(entry)

	var events []models.AnomalyEvent
	if m.scorer != nil {
		score, fired := m.scorer.Score(meas, st.history.All())
		st.history.SetLastScore(score)
		entry.AnomalyScore = score

		for _, r := range fired {
			if r.Score <= EventThreshold {
				continue
			}
			ev := models.AnomalyEvent{
				ID:          uuid.NewString(),
				DeviceID:    meas.DeviceID,
				Timestamp:   meas.Timestamp,
				Score:       r.Score,
				Kind:        r.Kind,
				Severity:    r.Severity,
				Value:       r.Value,
				Expected:    r.Expected,
				Description: r.Description,
			}
			events = append(events, ev)
			m.stats.anomalies.Add(1)
			anomaliesDetected.WithLabelValues(string(r.Kind)).Inc()
			m.logger.Info("anomaly detected",
				zap.String("device_id", ev.DeviceID),
				zap.String("kind", string(ev.Kind)),
				zap.String("severity", string(ev.Severity)),
				zap.Float64("score", ev.Score),
			)
		}
	}

	var pos *models.Position
	if m.locator != nil {
		recent := st.history.Tail(m.cfg.LocateWindow)
		if len(recent) >= locateMinSamples {
			vals := make([]float64, len(recent))
			for i, e := range recent {
				vals[i] = e.SmoothedRSSI
			}
			if p, ok := m.locator.Locate(meas.DeviceID, meanOf(vals), meas.Timestamp); ok {
				st.position = p
				pos = p
				m.stats.positions.Add(1)
			}
		}
	}

	if m.health != nil && st.ingested%uint64(m.cfg.HealthStride) == 0 {
		m.health.Recompute(ctx, meas.DeviceID, st.history.All(), time.Now())
		m.stats.healthRuns.Add(1)
	}

	m.publish(TopicMeasurement, entry)
	for _, ev := range events {
		m.publish(TopicAnomaly, ev)
		if ev.Severity == models.SeverityHigh {
			m.publish(TopicAlert, models.Alert{
				ID:        uuid.NewString(),
				Kind:      models.AlertAnomaly,
				Severity:  ev.Severity,
				DeviceID:  ev.DeviceID,
				Title:     ev.Description,
				Detail:    fmt.Sprintf("kind=%s score=%.2f", ev.Kind, ev.Score),
				CreatedAt: time.Now(),
			})
			m.stats.alerts.Add(1)
		}
	}

	m.stats.processed.Add(1)
	measurementsIngested.Inc()

	return &IngestResult{Entry: entry, Position: pos, Events: events}, nil
}

// publish sends to the bus; it is safe before Start and with no bus wired.
func (m *Module) publish(topic string, payload any) {
	if m.bus == nil {
		return
	}
	ctx := m.ctx
	if ctx == nil {
		ctx = context.Background()
	}
	_ = m.bus.Publish(ctx, plugin.Event{Topic: topic, Source: "telemetry", Payload: payload})
}
