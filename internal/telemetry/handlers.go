package telemetry

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/HerbHall/wavesight/pkg/models"
	"github.com/HerbHall/wavesight/pkg/plugin"
)

// Routes implements plugin.HTTPProvider.
func (m *Module) Routes() []plugin.Route {
	return []plugin.Route{
		{Method: "POST", Path: "/ingest", Handler: m.handleIngest},
		{Method: "GET", Path: "/devices", Handler: m.handleListDevices},
		{Method: "GET", Path: "/devices/{device_id}/trajectory", Handler: m.handleTrajectory},
		{Method: "GET", Path: "/anomalies", Handler: m.handleListAnomalies},
		{Method: "GET", Path: "/stats", Handler: m.handleStats},
	}
}

// BatchError reports one rejected measurement inside a batch.
type BatchError struct {
	Index  int    `json:"index"`
	Detail string `json:"detail"`
}

// BatchResult summarizes a batch ingest.
type BatchResult struct {
	Accepted int          `json:"accepted"`
	Rejected int          `json:"rejected"`
	Errors   []BatchError `json:"errors,omitempty"`
}

// handleIngest accepts a single measurement or a batch.
//
//	@Summary		Ingest measurements
//	@Description	Accepts a single measurement object or an array of them. Batch responses report per-item acceptance.
//	@Tags			telemetry
//	@Accept			json
//	@Produce		json
//	@Security		BearerAuth
//	@Param			body body models.Measurement true "Measurement or array of measurements"
//	@Success		202 {object} telemetry.BatchResult
//	@Failure		400 {object} map[string]any
//	@Router			/telemetry/ingest [post]
func (m *Module) handleIngest(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(io.LimitReader(r.Body, 8<<20))
	if err != nil {
		writeError(w, http.StatusBadRequest, "failed to read request body")
		return
	}

	if isJSONArray(body) {
		var batch []models.Measurement
		if err := json.Unmarshal(body, &batch); err != nil {
			writeError(w, http.StatusBadRequest, "invalid JSON body")
			return
		}
		res := BatchResult{}
		for i := range batch {
			if _, err := m.Ingest(r.Context(), batch[i]); err != nil {
				res.Rejected++
				res.Errors = append(res.Errors, BatchError{Index: i, Detail: err.Error()})
				continue
			}
			res.Accepted++
		}
		writeJSON(w, http.StatusAccepted, res)
		return
	}

	var meas models.Measurement
	if err := json.Unmarshal(body, &meas); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	result, err := m.Ingest(r.Context(), meas)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	writeJSON(w, http.StatusAccepted, result)
}

// handleListDevices returns the live device list.
//
//	@Summary		List devices
//	@Description	Returns every tracked device with its latest signal state.
//	@Tags			telemetry
//	@Produce		json
//	@Security		BearerAuth
//	@Success		200 {array} telemetry.DeviceSummary
//	@Router			/telemetry/devices [get]
func (m *Module) handleListDevices(w http.ResponseWriter, _ *http.Request) {
	devices := m.states.summaries()
	if devices == nil {
		devices = []DeviceSummary{}
	}
	writeJSON(w, http.StatusOK, devices)
}

// handleTrajectory reconstructs a device's recent movement and signal path.
//
//	@Summary		Device trajectory
//	@Description	Returns per-sample signal and position history for a device over a time window.
//	@Tags			telemetry
//	@Produce		json
//	@Security		BearerAuth
//	@Param			device_id path string true "Device ID"
//	@Param			window query string false "Time window (Go duration)" default(15m)
//	@Success		200 {array} models.TrajectoryPoint
//	@Failure		400 {object} map[string]any
//	@Router			/telemetry/devices/{device_id}/trajectory [get]
func (m *Module) handleTrajectory(w http.ResponseWriter, r *http.Request) {
	deviceID := r.PathValue("device_id")
	if deviceID == "" {
		writeError(w, http.StatusBadRequest, "device_id is required")
		return
	}
	span := 15 * time.Minute
	if s := r.URL.Query().Get("window"); s != "" {
		d, err := time.ParseDuration(s)
		if err != nil || d <= 0 {
			writeError(w, http.StatusBadRequest, "window must be a positive duration")
			return
		}
		span = d
	}

	entries := m.states.window(deviceID, time.Now(), span)
	points := make([]models.TrajectoryPoint, 0, len(entries))
	for i, e := range entries {
		p := models.TrajectoryPoint{
			Timestamp:    e.Timestamp,
			RSSI:         e.RSSI,
			SmoothedRSSI: e.SmoothedRSSI,
			Quality:      signalQuality(entries[:i+1]),
			AnomalyScore: e.AnomalyScore,
		}
		if m.locator != nil {
			if pos, ok := m.locator.LocateAt(deviceID, e.Timestamp); ok {
				p.Position = pos
			}
		}
		points = append(points, p)
	}
	writeJSON(w, http.StatusOK, points)
}

// handleListAnomalies returns persisted anomaly events.
//
//	@Summary		List anomalies
//	@Description	Returns detected anomalies, newest first, optionally filtered by device.
//	@Tags			telemetry
//	@Produce		json
//	@Security		BearerAuth
//	@Param			device_id query string false "Device ID filter"
//	@Param			limit query int false "Maximum results" default(50)
//	@Success		200 {array} models.AnomalyEvent
//	@Failure		500 {object} map[string]any
//	@Router			/telemetry/anomalies [get]
func (m *Module) handleListAnomalies(w http.ResponseWriter, r *http.Request) {
	if m.store == nil {
		writeJSON(w, http.StatusOK, []models.AnomalyEvent{})
		return
	}
	anomalies, err := m.store.ListAnomalies(r.Context(), r.URL.Query().Get("device_id"), parseLimit(r, 50))
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to list anomalies")
		return
	}
	if anomalies == nil {
		anomalies = []models.AnomalyEvent{}
	}
	writeJSON(w, http.StatusOK, anomalies)
}

// StatsSnapshot is the GET /stats payload.
type StatsSnapshot struct {
	Devices      int    `json:"devices"`
	Processed    uint64 `json:"measurements_processed"`
	Rejected     uint64 `json:"measurements_rejected"`
	Anomalies    uint64 `json:"anomalies_emitted"`
	Alerts       uint64 `json:"alerts_emitted"`
	Positions    uint64 `json:"positions_resolved"`
	HealthRuns   uint64 `json:"health_recomputes"`
	SinkWrites   uint64 `json:"sink_writes"`
	SinkFailures uint64 `json:"sink_failures"`
	SinkDropped  uint64 `json:"sink_dropped"`
	Scorer       string `json:"scorer"`
}

// handleStats returns pipeline processing counters.
//
//	@Summary		Pipeline stats
//	@Description	Returns lifetime ingest, anomaly, and sink counters.
//	@Tags			telemetry
//	@Produce		json
//	@Security		BearerAuth
//	@Success		200 {object} telemetry.StatsSnapshot
//	@Router			/telemetry/stats [get]
func (m *Module) handleStats(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, StatsSnapshot{
		Devices:      m.states.count(),
		Processed:    m.stats.processed.Load(),
		Rejected:     m.stats.rejected.Load(),
		Anomalies:    m.stats.anomalies.Load(),
		Alerts:       m.stats.alerts.Load(),
		Positions:    m.stats.positions.Load(),
		HealthRuns:   m.stats.healthRuns.Load(),
		SinkWrites:   m.stats.sinkWrites.Load(),
		SinkFailures: m.stats.sinkFailures.Load(),
		SinkDropped:  m.stats.sinkDropped.Load(),
		Scorer:       m.cfg.Scorer,
	})
}

// -- helpers --

// isJSONArray reports whether the body's first non-space byte opens an array.
func isJSONArray(body []byte) bool {
	trimmed := bytes.TrimLeft(body, " \t\r\n")
	return len(trimmed) > 0 && trimmed[0] == '['
}

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, status int, detail string) {
	title := http.StatusText(status)
	slug := strings.ToLower(strings.ReplaceAll(title, " ", "-"))
	w.Header().Set("Content-Type", "application/problem+json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]any{
		"type":   "https://wavesight.dev/problems/" + slug,
		"title":  title,
		"status": status,
		"detail": detail,
	})
}

func parseLimit(r *http.Request, defaultLimit int) int {
	if s := r.URL.Query().Get("limit"); s != "" {
		if n, err := strconv.Atoi(s); err == nil && n > 0 && n <= 1000 {
			return n
		}
	}
	return defaultLimit
}
