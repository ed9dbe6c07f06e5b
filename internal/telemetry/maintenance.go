package telemetry

import (
	"context"
	"time"

	"go.uber.org/zap"
)

// startMaintenance runs the eviction and retention loop until the module
// context is cancelled. Each tick drops in-memory state for idle devices and
// purges measurements and anomalies older than their retention windows.
func (m *Module) startMaintenance() {
	m.wg.Add(1)
	go func() {
		defer m.wg.Done()
		ticker := time.NewTicker(m.cfg.EvictionInterval)
		defer ticker.Stop()

		for {
			select {
			case <-m.ctx.Done():
				return
			case <-ticker.C:
				m.runMaintenance()
			}
		}
	}()
}

// runMaintenance performs one eviction and retention pass.
func (m *Module) runMaintenance() {
	if evicted := m.states.evictIdle(time.Now().Add(-m.cfg.IdleTimeout)); evicted > 0 {
		m.logger.Info("evicted idle devices", zap.Int("count", evicted))
	}

	if m.store == nil {
		return
	}
	ctx, cancel := context.WithTimeout(m.ctx, 30*time.Second)
	defer cancel()

	cutoff := time.Now().Add(-m.cfg.MeasurementRetention)
	deleted, err := m.store.DeleteOldMeasurements(ctx, cutoff)
	if err != nil {
		m.logger.Warn("failed to delete old measurements", zap.Error(err))
	} else if deleted > 0 {
		m.logger.Info("purged old measurements", zap.Int64("count", deleted))
	}

	anomalyCutoff := time.Now().Add(-m.cfg.AnomalyRetention)
	deletedAnomalies, err := m.store.DeleteOldAnomalies(ctx, anomalyCutoff)
	if err != nil {
		m.logger.Warn("failed to delete old anomalies", zap.Error(err))
	} else if deletedAnomalies > 0 {
		m.logger.Info("purged old anomalies", zap.Int64("count", deletedAnomalies))
	}
}
