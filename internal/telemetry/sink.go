package telemetry

import (
	"context"

	"github.com/HerbHall/wavesight/internal/telemetry/ring"
	"github.com/HerbHall/wavesight/pkg/models"
	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"
)

// Prometheus sink metrics.
var (
	sinkWrites = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "wavesight_sink_writes_total",
			Help: "Rows written by the persistence sink, by table.",
		},
		[]string{"table"},
	)
	sinkFailures = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "wavesight_sink_failures_total",
			Help: "Failed persistence sink writes, by table.",
		},
		[]string{"table"},
	)
)

func init() {
	prometheus.MustRegister(sinkWrites)
	prometheus.MustRegister(sinkFailures)
}

// startSink launches the persistence writer: a bus inbox drained into
// SQLite. The pipeline never writes the database directly, so a slow or
// failing store cannot stall ingest; the inbox drops its oldest events
// instead and the drops are counted.
func (m *Module) startSink() {
	if m.store == nil || m.bus == nil {
		return
	}
	inbox := m.bus.SubscribeInbox(m.cfg.SinkInboxCapacity, TopicMeasurement, TopicAnomaly)

	m.wg.Add(1)
	go func() {
		defer m.wg.Done()
		defer inbox.Close()
		for {
			ev, ok := inbox.Next(m.ctx)
			if !ok {
				return
			}
			m.sinkWrite(ev.Payload)
			m.stats.sinkDropped.Store(inbox.Dropped())
		}
	}()
}

// sinkWrite persists one event payload. Each write gets its own timeout;
// failures are counted and logged, never propagated.
func (m *Module) sinkWrite(payload any) {
	ctx, cancel := context.WithTimeout(context.Background(), m.cfg.SinkTimeout)
	defer cancel()

	switch p := payload.(type) {
	case ring.Entry:
		if err := m.store.InsertMeasurement(ctx, p); err != nil {
			m.stats.sinkFailures.Add(1)
			sinkFailures.WithLabelValues("measurements").Inc()
			m.logger.Warn("sink write failed",
				zap.String("table", "measurements"),
				zap.String("device_id", p.DeviceID),
				zap.Error(err),
			)
			return
		}
		m.stats.sinkWrites.Add(1)
		sinkWrites.WithLabelValues("measurements").Inc()
	case models.AnomalyEvent:
		if err := m.store.InsertAnomaly(ctx, p); err != nil {
			m.stats.sinkFailures.Add(1)
			sinkFailures.WithLabelValues("anomalies").Inc()
			m.logger.Warn("sink write failed",
				zap.String("table", "anomalies"),
				zap.String("device_id", p.DeviceID),
				zap.Error(err),
			)
			return
		}
		m.stats.sinkWrites.Add(1)
		sinkWrites.WithLabelValues("anomalies").Inc()
	}
}
