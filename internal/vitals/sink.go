package vitals

import (
	"context"

	"github.com/HerbHall/wavesight/pkg/models"
	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"
)

// Prometheus sink metrics.
var (
	snapshotsPersisted = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "wavesight_health_snapshots_persisted_total",
		Help: "Health snapshots written by the persistence sink.",
	})
	snapshotSinkFailures = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "wavesight_health_sink_failures_total",
		Help: "Failed health snapshot writes.",
	})
)

func init() {
	prometheus.MustRegister(snapshotsPersisted)
	prometheus.MustRegister(snapshotSinkFailures)
}

// startSink launches the snapshot writer: a bus inbox on the health
// topic drained into SQLite. Only changed snapshots reach the topic, so
// the table records each device's health transitions rather than every
// recompute.
func (m *Module) startSink() {
	if m.store == nil || m.bus == nil {
		return
	}
	inbox := m.bus.SubscribeInbox(m.cfg.SinkInboxCapacity, TopicHealth)

	m.wg.Add(1)
	go func() {
		defer m.wg.Done()
		defer inbox.Close()
		for {
			ev, ok := inbox.Next(m.ctx)
			if !ok {
				return
			}
			if snap, ok := ev.Payload.(models.HealthSnapshot); ok {
				m.sinkWrite(snap)
			}
			m.stats.sinkDropped.Store(inbox.Dropped())
		}
	}()
}

// sinkWrite persists one snapshot. Each write gets its own timeout;
// failures are counted and logged, never propagated.
func (m *Module) sinkWrite(snap models.HealthSnapshot) {
	ctx, cancel := context.WithTimeout(context.Background(), m.cfg.SinkTimeout)
	defer cancel()

	if err := m.store.InsertSnapshot(ctx, snap); err != nil {
		m.stats.sinkFailures.Add(1)
		snapshotSinkFailures.Inc()
		m.logger.Warn("snapshot sink write failed",
			zap.String("device_id", snap.DeviceID),
			zap.Error(err),
		)
		return
	}
	m.stats.sinkWrites.Add(1)
	snapshotsPersisted.Inc()
}
