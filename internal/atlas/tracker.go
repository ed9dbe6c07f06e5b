package atlas

import (
	"sync"
	"time"

	"github.com/HerbHall/wavesight/internal/telemetry"
	"github.com/HerbHall/wavesight/internal/telemetry/ring"
	"github.com/HerbHall/wavesight/pkg/models"
)

// clusterScoreWindow is how many trailing per-measurement anomaly scores
// gate cluster membership; a device qualifies when their mean exceeds
// clusterScoreGate.
const (
	clusterScoreWindow = 5
	clusterScoreGate   = 0.5
)

// deviceTrack is the clustering and heatmap view of one device: its last
// live fix, its latest smoothed RSSI, and the trailing anomaly scores.
type deviceTrack struct {
	position    models.Position
	hasPosition bool
	dirty       bool // fix not yet flushed to the store

	rssi     float64
	lastSeen time.Time

	scores  [clusterScoreWindow]float64
	nScores int
	cursor  int
}

func (t *deviceTrack) pushScore(s float64) {
	t.scores[t.cursor] = s
	t.cursor = (t.cursor + 1) % len(t.scores)
	if t.nScores < len(t.scores) {
		t.nScores++
	}
}

func (t *deviceTrack) meanScore() float64 {
	if t.nScores == 0 {
		return 0
	}
	var sum float64
	for i := 0; i < t.nScores; i++ {
		sum += t.scores[i]
	}
	return sum / float64(t.nScores)
}

// trackSnapshot is a value copy of one device's track, safe to use after
// the tracker lock is released.
type trackSnapshot struct {
	DeviceID    string
	Position    models.Position
	HasPosition bool
	RSSI        float64
	MeanScore   float64
	LastSeen    time.Time
}

// tracker aggregates per-device observations for the periodic passes. The
// inbox goroutine and live fixes write it; clustering and heatmaps read a
// snapshot.
type tracker struct {
	mu      sync.RWMutex
	devices map[string]*deviceTrack
}

func newTracker() *tracker {
	return &tracker{devices: make(map[string]*deviceTrack)}
}

func (tr *tracker) getOrCreate(deviceID string) *deviceTrack {
	t, ok := tr.devices[deviceID]
	if !ok {
		t = &deviceTrack{}
		tr.devices[deviceID] = t
	}
	return t
}

// observe records one measurement's smoothed RSSI and anomaly score.
func (tr *tracker) observe(deviceID string, rssi, score float64, at time.Time) {
	tr.mu.Lock()
	defer tr.mu.Unlock()
	t := tr.getOrCreate(deviceID)
	t.rssi = rssi
	t.pushScore(score)
	if at.After(t.lastSeen) {
		t.lastSeen = at
	}
}

// setPosition records a live fix and marks it for the next store flush.
func (tr *tracker) setPosition(deviceID string, pos models.Position) {
	tr.mu.Lock()
	defer tr.mu.Unlock()
	t := tr.getOrCreate(deviceID)
	t.position = pos
	t.hasPosition = true
	t.dirty = true
}

// position returns the last live fix for a device.
func (tr *tracker) position(deviceID string) (models.Position, bool) {
	tr.mu.RLock()
	defer tr.mu.RUnlock()
	t, ok := tr.devices[deviceID]
	if !ok || !t.hasPosition {
		return models.Position{}, false
	}
	return t.position, true
}

// snapshot copies every track for a periodic pass.
func (tr *tracker) snapshot() []trackSnapshot {
	tr.mu.RLock()
	defer tr.mu.RUnlock()
	out := make([]trackSnapshot, 0, len(tr.devices))
	for id, t := range tr.devices {
		out = append(out, trackSnapshot{
			DeviceID:    id,
			Position:    t.position,
			HasPosition: t.hasPosition,
			RSSI:        t.rssi,
			MeanScore:   t.meanScore(),
			LastSeen:    t.lastSeen,
		})
	}
	return out
}

// takeDirtyPositions drains the fixes not yet persisted.
func (tr *tracker) takeDirtyPositions() []models.Position {
	tr.mu.Lock()
	defer tr.mu.Unlock()
	var out []models.Position
	for _, t := range tr.devices {
		if t.dirty {
			out = append(out, t.position)
			t.dirty = false
		}
	}
	return out
}

// evictBefore drops tracks whose last observation predates the cutoff.
func (tr *tracker) evictBefore(cutoff time.Time) int {
	tr.mu.Lock()
	defer tr.mu.Unlock()
	evicted := 0
	for id, t := range tr.devices {
		if t.lastSeen.Before(cutoff) {
			delete(tr.devices, id)
			evicted++
		}
	}
	return evicted
}

// startTracking consumes measurement and anomaly events to keep the device
// tracks current. Measurements refresh RSSI and the trailing scores;
// anomalies advance the early-clustering trigger.
func (m *Module) startTracking() {
	if m.bus == nil {
		return
	}
	inbox := m.bus.SubscribeInbox(m.cfg.TrackInboxCapacity, telemetry.TopicMeasurement, telemetry.TopicAnomaly)

	m.wg.Add(1)
	go func() {
		defer m.wg.Done()
		defer inbox.Close()
		for {
			ev, ok := inbox.Next(m.ctx)
			if !ok {
				return
			}
			switch p := ev.Payload.(type) {
			case ring.Entry:
				m.track.observe(p.DeviceID, p.SmoothedRSSI, p.AnomalyScore, p.Timestamp)
			case models.AnomalyEvent:
				if int(m.fresh.Add(1)) >= m.cfg.ClusterAnomalyThreshold {
					select {
					case m.clusterKick <- struct{}{}:
					default:
					}
				}
			}
			m.stats.trackDropped.Store(inbox.Dropped())
		}
	}()
}
