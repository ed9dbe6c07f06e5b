package telemetry

import (
	"hash/fnv"
	"sort"
	"sync"
	"time"

	"github.com/HerbHall/wavesight/internal/telemetry/ring"
	"github.com/HerbHall/wavesight/internal/telemetry/smooth"
	"github.com/HerbHall/wavesight/pkg/models"
)

// deviceState is everything the pipeline tracks for one device. Access is
// serialised by the owning lane's mutex.
type deviceState struct {
	history  *ring.Buffer
	kalman   *smooth.Kalman
	ewma     *smooth.EWMA
	lastSeen time.Time
	position *models.Position
	ingested uint64 // lifetime count, drives the health stride
}

// lane is one shard of device states. A device's pipeline stages all run
// under its lane mutex, which is what guarantees per-device event order.
type lane struct {
	mu      sync.Mutex
	devices map[string]*deviceState
}

// getOrCreate returns the state for a device. Caller holds l.mu.
func (l *lane) getOrCreate(deviceID string, cfg TelemetryConfig) *deviceState {
	if st, ok := l.devices[deviceID]; ok {
		return st
	}
	st := &deviceState{
		history: ring.New(cfg.RingCapacity),
		kalman:  smooth.NewKalman(cfg.KalmanProcessVar, cfg.KalmanMeasurementVar),
		ewma:    smooth.NewEWMA(cfg.EWMAAlpha),
	}
	l.devices[deviceID] = st
	return st
}

// stateManager shards devices across lanes so unrelated devices never
// contend for a lock. The same device always hashes to the same lane.
type stateManager struct {
	lanes []*lane
	cfg   TelemetryConfig
}

func newStateManager(cfg TelemetryConfig) *stateManager {
	lanes := make([]*lane, cfg.Lanes)
	for i := range lanes {
		lanes[i] = &lane{devices: make(map[string]*deviceState)}
	}
	return &stateManager{lanes: lanes, cfg: cfg}
}

func (sm *stateManager) laneFor(deviceID string) *lane {
	h := fnv.New32a()
	h.Write([]byte(deviceID))
	return sm.lanes[h.Sum32()%uint32(len(sm.lanes))]
}

// count returns the number of tracked devices.
func (sm *stateManager) count() int {
	n := 0
	for _, l := range sm.lanes {
		l.mu.Lock()
		n += len(l.devices)
		l.mu.Unlock()
	}
	return n
}

// deviceIDs returns all tracked device IDs, sorted.
func (sm *stateManager) deviceIDs() []string {
	var ids []string
	for _, l := range sm.lanes {
		l.mu.Lock()
		for id := range l.devices {
			ids = append(ids, id)
		}
		l.mu.Unlock()
	}
	sort.Strings(ids)
	return ids
}

// tail returns a copy of the last k entries for a device. k <= 0 returns
// the full history.
func (sm *stateManager) tail(deviceID string, k int) []ring.Entry {
	l := sm.laneFor(deviceID)
	l.mu.Lock()
	defer l.mu.Unlock()
	st, ok := l.devices[deviceID]
	if !ok {
		return nil
	}
	if k <= 0 {
		return st.history.All()
	}
	return st.history.Tail(k)
}

// window returns a copy of the entries within span of now for a device.
func (sm *stateManager) window(deviceID string, now time.Time, span time.Duration) []ring.Entry {
	l := sm.laneFor(deviceID)
	l.mu.Lock()
	defer l.mu.Unlock()
	st, ok := l.devices[deviceID]
	if !ok {
		return nil
	}
	return st.history.Window(now, span)
}

// DeviceSummary is one row of the device list.
type DeviceSummary struct {
	DeviceID     string               `json:"device_id"`
	AgentID      string               `json:"agent_id"`
	LastSeen     time.Time            `json:"last_seen"`
	Samples      int                  `json:"samples"`
	RSSI         float64              `json:"rssi"`
	SmoothedRSSI float64              `json:"smoothed_rssi"`
	EWMARSSI     float64              `json:"ewma_rssi"`
	AnomalyScore float64              `json:"anomaly_score"`
	Quality      models.SignalQuality `json:"signal_quality"`
	Position     *models.Position     `json:"position,omitempty"`
}

// summaries builds the device list from live state, sorted by device ID.
func (sm *stateManager) summaries() []DeviceSummary {
	var out []DeviceSummary
	for _, l := range sm.lanes {
		l.mu.Lock()
		for id, st := range l.devices {
			s := DeviceSummary{
				DeviceID: id,
				LastSeen: st.lastSeen,
				Samples:  st.history.Len(),
				Position: st.position,
			}
			if last, ok := st.history.Last(); ok {
				s.AgentID = last.AgentID
				s.RSSI = last.RSSI
				s.SmoothedRSSI = last.SmoothedRSSI
				s.EWMARSSI = last.EWMARSSI
				s.AnomalyScore = last.AnomalyScore
				s.Quality = signalQuality(st.history.All())
			}
			out = append(out, s)
		}
		l.mu.Unlock()
	}
	sort.Slice(out, func(i, j int) bool { return out[i].DeviceID < out[j].DeviceID })
	return out
}

// evictIdle drops devices not seen since the cutoff. Persisted history is
// unaffected; only the in-memory state goes.
func (sm *stateManager) evictIdle(cutoff time.Time) int {
	evicted := 0
	for _, l := range sm.lanes {
		l.mu.Lock()
		for id, st := range l.devices {
			if st.lastSeen.Before(cutoff) {
				delete(l.devices, id)
				evicted++
			}
		}
		l.mu.Unlock()
	}
	return evicted
}
