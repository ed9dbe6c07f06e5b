package vitals

import (
	"encoding/json"
	"fmt"
	"net/http"
	"sort"
	"strconv"
	"strings"

	"github.com/HerbHall/wavesight/pkg/models"
	"github.com/HerbHall/wavesight/pkg/plugin"
)

// Routes implements plugin.HTTPProvider.
func (m *Module) Routes() []plugin.Route {
	return []plugin.Route{
		{Method: "GET", Path: "/summary", Handler: m.handleSummary},
		{Method: "GET", Path: "/devices/{device_id}", Handler: m.handleDevice},
		{Method: "GET", Path: "/devices/{device_id}/history", Handler: m.handleHistory},
	}
}

// Summary aggregates current fleet health. AtRisk lists high and
// critical devices, worst score first.
type Summary struct {
	Devices   int                      `json:"devices"`
	MeanScore float64                  `json:"mean_score"`
	Risk      map[models.RiskLevel]int `json:"risk"`
	AtRisk    []models.HealthSnapshot  `json:"at_risk"`
}

// handleSummary reports fleet-wide health totals.
//
//	@Summary		Fleet health summary
//	@Description	Device counts per risk bucket, mean health score, and the at-risk device list.
//	@Tags			vitals
//	@Produce		json
//	@Security		BearerAuth
//	@Success		200 {object} vitals.Summary
//	@Router			/vitals/summary [get]
func (m *Module) handleSummary(w http.ResponseWriter, _ *http.Request) {
	sum := Summary{
		Risk: map[models.RiskLevel]int{
			models.RiskLow:      0,
			models.RiskMedium:   0,
			models.RiskHigh:     0,
			models.RiskCritical: 0,
		},
		AtRisk: []models.HealthSnapshot{},
	}

	m.mu.RLock()
	var total float64
	for _, s := range m.snapshots {
		sum.Devices++
		total += s.Score
		sum.Risk[s.Risk]++
		if s.Risk == models.RiskHigh || s.Risk == models.RiskCritical {
			sum.AtRisk = append(sum.AtRisk, s)
		}
	}
	m.mu.RUnlock()

	if sum.Devices > 0 {
		sum.MeanScore = total / float64(sum.Devices)
	}
	sort.Slice(sum.AtRisk, func(i, j int) bool { return sum.AtRisk[i].Score < sum.AtRisk[j].Score })

	writeJSON(w, http.StatusOK, sum)
}

// handleDevice returns one device's current health snapshot.
//
//	@Summary		Device health
//	@Description	Current health snapshot with factors and recommendations. 404 until the device has three samples.
//	@Tags			vitals
//	@Produce		json
//	@Security		BearerAuth
//	@Param			device_id path string true "Device ID"
//	@Success		200 {object} models.HealthSnapshot
//	@Failure		404 {object} map[string]any
//	@Router			/vitals/devices/{device_id} [get]
func (m *Module) handleDevice(w http.ResponseWriter, r *http.Request) {
	deviceID := r.PathValue("device_id")
	snap, ok := m.Snapshot(deviceID)
	if !ok {
		writeError(w, http.StatusNotFound, fmt.Sprintf("no health snapshot for device %q", deviceID))
		return
	}
	writeJSON(w, http.StatusOK, snap)
}

// handleHistory returns a device's persisted snapshot transitions.
//
//	@Summary		Device health history
//	@Description	Persisted snapshot changes, newest first.
//	@Tags			vitals
//	@Produce		json
//	@Security		BearerAuth
//	@Param			device_id path string true "Device ID"
//	@Param			limit query int false "Maximum rows" default(50)
//	@Success		200 {array} models.HealthSnapshot
//	@Router			/vitals/devices/{device_id}/history [get]
func (m *Module) handleHistory(w http.ResponseWriter, r *http.Request) {
	if m.store == nil {
		writeJSON(w, http.StatusOK, []models.HealthSnapshot{})
		return
	}

	history, err := m.store.SnapshotHistory(r.Context(), r.PathValue("device_id"), parseLimit(r, 50))
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to load snapshot history")
		return
	}
	if history == nil {
		history = []models.HealthSnapshot{}
	}
	writeJSON(w, http.StatusOK, history)
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
