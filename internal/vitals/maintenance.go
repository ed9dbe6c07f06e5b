package vitals

import (
	"context"
	"time"

	"go.uber.org/zap"
)

// startSweep launches the periodic fleet sweep: every device known to
// telemetry is rescored from its current history, which catches devices
// that went quiet and would otherwise never be re-evaluated by the
// ingest path.
func (m *Module) startSweep() {
	m.wg.Add(1)
	go func() {
		defer m.wg.Done()
		ticker := time.NewTicker(m.cfg.SweepInterval)
		defer ticker.Stop()

		for {
			select {
			case <-m.ctx.Done():
				return
			case <-ticker.C:
				m.runSweep(time.Now())
			}
		}
	}()
}

// runSweep executes a single sweep cycle: rescore every live device,
// drop snapshots for devices telemetry has evicted, and prune persisted
// snapshots past retention.
func (m *Module) runSweep(now time.Time) {
	if m.telemetry == nil {
		return
	}

	ids := m.telemetry.DeviceIDs()
	live := make(map[string]struct{}, len(ids))
	for _, id := range ids {
		select {
		case <-m.ctx.Done():
			return
		default:
		}
		live[id] = struct{}{}
		m.Recompute(m.ctx, id, m.telemetry.History(id, m.cfg.WindowSize), now)
	}

	m.mu.Lock()
	dropped := 0
	for id := range m.snapshots {
		if _, ok := live[id]; !ok {
			delete(m.snapshots, id)
			dropped++
		}
	}
	m.mu.Unlock()
	if dropped > 0 {
		m.logger.Info("dropped snapshots for evicted devices", zap.Int("count", dropped))
	}

	if m.store == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	cutoff := now.Add(-m.cfg.SnapshotRetention)
	deleted, err := m.store.DeleteOldSnapshots(ctx, cutoff)
	if err != nil {
		m.logger.Warn("failed to delete old snapshots", zap.Error(err))
	} else if deleted > 0 {
		m.logger.Info("purged old snapshots", zap.Int64("count", deleted))
	}
}
