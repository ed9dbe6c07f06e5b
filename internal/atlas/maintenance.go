package atlas

import (
	"context"
	"time"

	"go.uber.org/zap"
)

// startMaintenance runs the clustering pass on its interval, or early when
// the tracking goroutine signals enough fresh anomalies. The ticker and
// the kick share one goroutine, so passes never overlap.
func (m *Module) startMaintenance() {
	m.wg.Add(1)
	go func() {
		defer m.wg.Done()
		ticker := time.NewTicker(m.cfg.ClusterInterval)
		defer ticker.Stop()

		for {
			select {
			case <-m.ctx.Done():
				return
			case <-ticker.C:
			case <-m.clusterKick:
			}
			m.runClusterPass(time.Now())
		}
	}()
}

// runClusterPass rebuilds the region set and performs the housekeeping
// that rides along: flushing fresh fixes, pruning aged rows, and evicting
// idle tracks.
func (m *Module) runClusterPass(now time.Time) {
	m.fresh.Store(0)

	regions := m.rebuildRegions(now)
	m.stats.clusterRuns.Add(1)
	clusterRunsTotal.Inc()
	regionsActive.Set(float64(len(regions)))

	if evicted := m.track.evictBefore(now.Add(-m.cfg.TrackRetention)); evicted > 0 {
		m.logger.Info("evicted idle device tracks", zap.Int("count", evicted))
	}

	m.flushPositions()
	m.pruneStore(now)
}

// flushPositions writes fixes produced since the last pass. Batching here
// keeps database writes off the ingest path entirely.
func (m *Module) flushPositions() {
	if m.store == nil {
		return
	}
	fixes := m.track.takeDirtyPositions()
	if len(fixes) == 0 {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := m.store.InsertPositions(ctx, fixes); err != nil {
		m.logger.Warn("failed to flush position fixes", zap.Int("count", len(fixes)), zap.Error(err))
	}
}

func (m *Module) pruneStore(now time.Time) {
	if m.store == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	deleted, err := m.store.DeleteOldPositions(ctx, now.Add(-m.cfg.PositionRetention))
	if err != nil {
		m.logger.Warn("failed to delete old positions", zap.Error(err))
	} else if deleted > 0 {
		m.logger.Info("purged old positions", zap.Int64("count", deleted))
	}

	deletedRegions, err := m.store.DeleteOldRegions(ctx, now.Add(-m.cfg.RegionRetention))
	if err != nil {
		m.logger.Warn("failed to delete old regions", zap.Error(err))
	} else if deletedRegions > 0 {
		m.logger.Info("purged old regions", zap.Int64("count", deletedRegions))
	}
}
