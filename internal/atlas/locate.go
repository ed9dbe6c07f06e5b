package atlas

import (
	"time"

	"github.com/HerbHall/wavesight/pkg/models"
)

// historyHalfWindow bounds the measurements a historical fix may draw on:
// anything within 30 s either side of the requested instant.
const historyHalfWindow = 30 * time.Second

// Locate computes a live triangulation fix from a device's recent mean
// smoothed RSSI. It satisfies the ingest pipeline's Locator contract: no
// fix comes back with fewer than three anchors or when the solver
// declines the geometry. Successful fixes feed the clustering and heatmap
// tracks and are flushed to the store on the next maintenance pass.
func (m *Module) Locate(deviceID string, meanRSSI float64, at time.Time) (*models.Position, bool) {
	pos, ok := m.solveFor(deviceID, meanRSSI, at, models.PositionTriangulation)
	if !ok {
		return nil, false
	}
	m.track.setPosition(deviceID, *pos)
	m.stats.fixes.Add(1)
	fixesTotal.Inc()
	return pos, true
}

// LocateAt recomputes a fix around a past instant from the device's
// measurements within ±30 s, averaged. Historical fixes are query-time
// derivations; they do not touch the live position track.
func (m *Module) LocateAt(deviceID string, at time.Time) (*models.Position, bool) {
	if m.telemetry == nil {
		return nil, false
	}
	entries := m.telemetry.Window(deviceID, at.Add(historyHalfWindow), 2*historyHalfWindow)
	if len(entries) == 0 {
		return nil, false
	}
	var sum float64
	for _, e := range entries {
		sum += e.SmoothedRSSI
	}
	return m.solveFor(deviceID, sum/float64(len(entries)), at, models.PositionHistorical)
}

func (m *Module) solveFor(deviceID string, rssi float64, at time.Time, method models.PositionMethod) (*models.Position, bool) {
	anchors := m.anchors.list()
	if len(anchors) < 3 {
		return nil, false
	}
	dists := make([]float64, len(anchors))
	for i, a := range anchors {
		dists[i] = EstimateRange(rssi, a.RefRSSI, m.cfg.PathLossExponent)
	}
	pt, conf, ok := solvePosition(anchors, dists)
	if !ok {
		m.stats.solverFailures.Add(1)
		solverFailuresTotal.Inc()
		return nil, false
	}
	return &models.Position{
		DeviceID:   deviceID,
		X:          pt.X,
		Y:          pt.Y,
		Confidence: conf,
		Timestamp:  at,
		Method:     method,
	}, true
}

// DevicePosition returns the last live fix for a device.
func (m *Module) DevicePosition(deviceID string) (models.Position, bool) {
	return m.track.position(deviceID)
}
