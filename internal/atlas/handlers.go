package atlas

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/HerbHall/wavesight/pkg/models"
	"github.com/HerbHall/wavesight/pkg/plugin"
)

// Routes implements plugin.HTTPProvider.
func (m *Module) Routes() []plugin.Route {
	return []plugin.Route{
		{Method: "GET", Path: "/regions", Handler: m.handleRegions},
		{Method: "GET", Path: "/regions/history", Handler: m.handleRegionHistory},
		{Method: "GET", Path: "/heatmap", Handler: m.handleHeatmap},
		{Method: "GET", Path: "/devices/{device_id}/position", Handler: m.handlePosition},
		{Method: "GET", Path: "/devices/{device_id}/positions", Handler: m.handlePositionHistory},
		{Method: "GET", Path: "/anchors", Handler: m.handleAnchors},
		{Method: "PUT", Path: "/anchors/{anchor_id}", Handler: m.handleSetAnchor},
		{Method: "DELETE", Path: "/anchors/{anchor_id}", Handler: m.handleDeleteAnchor},
	}
}

// handleRegions returns the active anomaly regions.
//
//	@Summary		Active anomaly regions
//	@Description	Returns the region set from the most recent clustering pass.
//	@Tags			atlas
//	@Produce		json
//	@Security		BearerAuth
//	@Success		200 {array} models.AnomalyRegion
//	@Router			/atlas/regions [get]
func (m *Module) handleRegions(w http.ResponseWriter, _ *http.Request) {
	regions := m.Regions()
	if regions == nil {
		regions = []models.AnomalyRegion{}
	}
	writeJSON(w, http.StatusOK, regions)
}

// handleRegionHistory returns persisted regions from earlier passes.
//
//	@Summary		Region history
//	@Description	Returns persisted anomaly regions, newest first.
//	@Tags			atlas
//	@Produce		json
//	@Security		BearerAuth
//	@Param			limit query int false "Maximum results" default(50)
//	@Success		200 {array} models.AnomalyRegion
//	@Failure		500 {object} map[string]any
//	@Router			/atlas/regions/history [get]
func (m *Module) handleRegionHistory(w http.ResponseWriter, r *http.Request) {
	if m.store == nil {
		writeJSON(w, http.StatusOK, []models.AnomalyRegion{})
		return
	}
	regions, err := m.store.RegionHistory(r.Context(), parseLimit(r, 50))
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to list regions")
		return
	}
	if regions == nil {
		regions = []models.AnomalyRegion{}
	}
	writeJSON(w, http.StatusOK, regions)
}

// handleHeatmap builds the signal heatmap over the requested bounds.
//
//	@Summary		Signal heatmap
//	@Description	Interpolates the signal field over a bounding box and overlays active anomaly regions.
//	@Tags			atlas
//	@Produce		json
//	@Security		BearerAuth
//	@Param			x0 query number true "West bound (m)"
//	@Param			y0 query number true "South bound (m)"
//	@Param			x1 query number true "East bound (m)"
//	@Param			y1 query number true "North bound (m)"
//	@Param			resolution query int false "Grid edge length" default(100)
//	@Success		200 {object} atlas.Heatmap
//	@Failure		400 {object} map[string]any
//	@Router			/atlas/heatmap [get]
func (m *Module) handleHeatmap(w http.ResponseWriter, r *http.Request) {
	var b HeatmapBounds
	for name, dst := range map[string]*float64{"x0": &b.X0, "y0": &b.Y0, "x1": &b.X1, "y1": &b.Y1} {
		v, err := strconv.ParseFloat(r.URL.Query().Get(name), 64)
		if err != nil {
			writeError(w, http.StatusBadRequest, "bounds x0, y0, x1, y1 are required numbers")
			return
		}
		*dst = v
	}
	if b.X1 <= b.X0 || b.Y1 <= b.Y0 {
		writeError(w, http.StatusBadRequest, "bounds must span a positive area")
		return
	}

	resolution := 0
	if s := r.URL.Query().Get("resolution"); s != "" {
		n, err := strconv.Atoi(s)
		if err != nil || n < minHeatmapResolution || n > maxHeatmapResolution {
			writeError(w, http.StatusBadRequest,
				fmt.Sprintf("resolution must be between %d and %d", minHeatmapResolution, maxHeatmapResolution))
			return
		}
		resolution = n
	}
	writeJSON(w, http.StatusOK, m.HeatmapGrid(b, resolution))
}

// handlePosition returns a device's last live fix.
//
//	@Summary		Device position
//	@Description	Returns the most recent live triangulation fix for a device.
//	@Tags			atlas
//	@Produce		json
//	@Security		BearerAuth
//	@Param			device_id path string true "Device ID"
//	@Success		200 {object} models.Position
//	@Failure		404 {object} map[string]any
//	@Router			/atlas/devices/{device_id}/position [get]
func (m *Module) handlePosition(w http.ResponseWriter, r *http.Request) {
	deviceID := r.PathValue("device_id")
	pos, ok := m.DevicePosition(deviceID)
	if !ok {
		writeError(w, http.StatusNotFound, fmt.Sprintf("no position fix for device %q", deviceID))
		return
	}
	writeJSON(w, http.StatusOK, pos)
}

// handlePositionHistory returns a device's persisted fixes.
//
//	@Summary		Device position history
//	@Description	Returns persisted position fixes for a device, newest first.
//	@Tags			atlas
//	@Produce		json
//	@Security		BearerAuth
//	@Param			device_id path string true "Device ID"
//	@Param			limit query int false "Maximum results" default(50)
//	@Success		200 {array} models.Position
//	@Failure		500 {object} map[string]any
//	@Router			/atlas/devices/{device_id}/positions [get]
func (m *Module) handlePositionHistory(w http.ResponseWriter, r *http.Request) {
	if m.store == nil {
		writeJSON(w, http.StatusOK, []models.Position{})
		return
	}
	fixes, err := m.store.PositionHistory(r.Context(), r.PathValue("device_id"), parseLimit(r, 50))
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to list positions")
		return
	}
	if fixes == nil {
		fixes = []models.Position{}
	}
	writeJSON(w, http.StatusOK, fixes)
}

// handleAnchors lists the registered anchors.
//
//	@Summary		List anchors
//	@Description	Returns every registered triangulation anchor.
//	@Tags			atlas
//	@Produce		json
//	@Security		BearerAuth
//	@Success		200 {array} models.Anchor
//	@Router			/atlas/anchors [get]
func (m *Module) handleAnchors(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, m.Anchors())
}

// anchorRequest is the PUT /anchors/{anchor_id} body.
type anchorRequest struct {
	X       float64 `json:"x"`
	Y       float64 `json:"y"`
	RefRSSI float64 `json:"ref_rssi"`
}

// handleSetAnchor registers or moves an anchor.
//
//	@Summary		Set anchor
//	@Description	Creates or updates a triangulation anchor at a known position.
//	@Tags			atlas
//	@Accept			json
//	@Produce		json
//	@Security		BearerAuth
//	@Param			anchor_id path string true "Anchor ID"
//	@Param			body body atlas.anchorRequest true "Anchor position and 1 m reference RSSI"
//	@Success		200 {object} models.Anchor
//	@Failure		400 {object} map[string]any
//	@Failure		500 {object} map[string]any
//	@Router			/atlas/anchors/{anchor_id} [put]
func (m *Module) handleSetAnchor(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("anchor_id")
	if id == "" {
		writeError(w, http.StatusBadRequest, "anchor_id is required")
		return
	}
	var req anchorRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	a, err := m.SetAnchor(r.Context(), models.Anchor{ID: id, X: req.X, Y: req.Y, RefRSSI: req.RefRSSI})
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to save anchor")
		return
	}
	writeJSON(w, http.StatusOK, a)
}

// handleDeleteAnchor removes an anchor.
//
//	@Summary		Delete anchor
//	@Description	Removes a triangulation anchor.
//	@Tags			atlas
//	@Security		BearerAuth
//	@Param			anchor_id path string true "Anchor ID"
//	@Success		204 {string} string "no content"
//	@Failure		404 {object} map[string]any
//	@Router			/atlas/anchors/{anchor_id} [delete]
func (m *Module) handleDeleteAnchor(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("anchor_id")
	found, err := m.RemoveAnchor(r.Context(), id)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to delete anchor")
		return
	}
	if !found {
		writeError(w, http.StatusNotFound, fmt.Sprintf("no anchor %q", id))
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// -- helpers --

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
