package atlas

import (
	"context"

	"github.com/HerbHall/wavesight/pkg/models"
	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"
)

var (
	regionsPersisted = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "wavesight_regions_persisted_total",
		Help: "Region rows written by the persistence sink.",
	})
	regionSinkFailures = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "wavesight_region_sink_failures_total",
		Help: "Failed region sink writes.",
	})
)

func init() {
	prometheus.MustRegister(regionsPersisted, regionSinkFailures)
}

// startSink persists published regions through a bus inbox. Each
// clustering pass publishes its full region set, so the table is a
// pass-by-pass history of where trouble sat.
func (m *Module) startSink() {
	if m.store == nil || m.bus == nil {
		return
	}
	inbox := m.bus.SubscribeInbox(m.cfg.SinkInboxCapacity, TopicRegion)

	m.wg.Add(1)
	go func() {
		defer m.wg.Done()
		defer inbox.Close()
		for {
			ev, ok := inbox.Next(m.ctx)
			if !ok {
				return
			}
			if region, ok := ev.Payload.(models.AnomalyRegion); ok {
				m.sinkWrite(region)
			}
			m.stats.sinkDropped.Store(inbox.Dropped())
		}
	}()
}

// sinkWrite persists one region. Each write gets its own timeout;
// failures are counted and logged, never propagated.
func (m *Module) sinkWrite(region models.AnomalyRegion) {
	ctx, cancel := context.WithTimeout(context.Background(), m.cfg.SinkTimeout)
	defer cancel()

	if err := m.store.InsertRegion(ctx, region); err != nil {
		m.stats.sinkFailures.Add(1)
		regionSinkFailures.Inc()
		m.logger.Warn("region sink write failed",
			zap.String("region_id", region.ID),
			zap.Error(err),
		)
		return
	}
	m.stats.sinkWrites.Add(1)
	regionsPersisted.Inc()
}
