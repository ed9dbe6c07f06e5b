package atlas

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/HerbHall/wavesight/pkg/models"
)

func TestRoutes_CoverSurface(t *testing.T) {
	routes := New().Routes()
	want := map[string]bool{
		"GET /regions":                       false,
		"GET /regions/history":               false,
		"GET /heatmap":                       false,
		"GET /devices/{device_id}/position":  false,
		"GET /devices/{device_id}/positions": false,
		"GET /anchors":                       false,
		"PUT /anchors/{anchor_id}":           false,
		"DELETE /anchors/{anchor_id}":        false,
	}
	for _, r := range routes {
		key := r.Method + " " + r.Path
		if _, ok := want[key]; !ok {
			t.Errorf("unexpected route %s", key)
			continue
		}
		want[key] = true
	}
	for key, seen := range want {
		if !seen {
			t.Errorf("missing route %s", key)
		}
	}
}

func TestHandleSetAnchorRoundTrip(t *testing.T) {
	m := newTestModule(t)

	req := httptest.NewRequest(http.MethodPut, "/anchors/corner-ne", strings.NewReader(`{"x":100,"y":80,"ref_rssi":-32}`))
	req.SetPathValue("anchor_id", "corner-ne")
	rec := httptest.NewRecorder()
	m.handleSetAnchor(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200 (body %s)", rec.Code, rec.Body.String())
	}
	var a models.Anchor
	if err := json.NewDecoder(rec.Body).Decode(&a); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if a.ID != "corner-ne" || a.X != 100 || a.Y != 80 || a.RefRSSI != -32 {
		t.Fatalf("anchor = %+v", a)
	}
	if a.UpdatedAt.IsZero() {
		t.Error("anchor UpdatedAt not stamped")
	}

	listReq := httptest.NewRequest(http.MethodGet, "/anchors", nil)
	listRec := httptest.NewRecorder()
	m.handleAnchors(listRec, listReq)
	var anchors []models.Anchor
	if err := json.NewDecoder(listRec.Body).Decode(&anchors); err != nil {
		t.Fatalf("decode list: %v", err)
	}
	if len(anchors) != 1 || anchors[0].ID != "corner-ne" {
		t.Fatalf("anchors = %v, want the saved anchor", anchors)
	}
}

func TestHandleSetAnchorRejectsBadRequests(t *testing.T) {
	m := newTestModule(t)

	req := httptest.NewRequest(http.MethodPut, "/anchors/a1", strings.NewReader(`{"x":`))
	req.SetPathValue("anchor_id", "a1")
	rec := httptest.NewRecorder()
	m.handleSetAnchor(rec, req)
	if rec.Code != http.StatusBadRequest {
		t.Errorf("truncated JSON: status = %d, want 400", rec.Code)
	}

	req = httptest.NewRequest(http.MethodPut, "/anchors/", strings.NewReader(`{"x":1,"y":1,"ref_rssi":-30}`))
	rec = httptest.NewRecorder()
	m.handleSetAnchor(rec, req)
	if rec.Code != http.StatusBadRequest {
		t.Errorf("missing id: status = %d, want 400", rec.Code)
	}
}

func TestHandleDeleteAnchor(t *testing.T) {
	m := newTestModule(t)
	if _, err := m.SetAnchor(context.Background(), models.Anchor{ID: "gone", X: 1, Y: 1, RefRSSI: -30}); err != nil {
		t.Fatalf("SetAnchor error = %v", err)
	}

	req := httptest.NewRequest(http.MethodDelete, "/anchors/gone", nil)
	req.SetPathValue("anchor_id", "gone")
	rec := httptest.NewRecorder()
	m.handleDeleteAnchor(rec, req)
	if rec.Code != http.StatusNoContent {
		t.Fatalf("status = %d, want 204", rec.Code)
	}

	rec = httptest.NewRecorder()
	m.handleDeleteAnchor(rec, req)
	if rec.Code != http.StatusNotFound {
		t.Fatalf("repeat delete: status = %d, want 404", rec.Code)
	}
}

func TestHandleAnchorsEmptyIsArray(t *testing.T) {
	m := newTestModule(t)
	rec := httptest.NewRecorder()
	m.handleAnchors(rec, httptest.NewRequest(http.MethodGet, "/anchors", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	if body := strings.TrimSpace(rec.Body.String()); body == "null" {
		t.Fatal("empty anchor list encoded as null, want []")
	}
}

func TestHandlePosition(t *testing.T) {
	m := newTestModule(t)

	req := httptest.NewRequest(http.MethodGet, "/devices/ghost/position", nil)
	req.SetPathValue("device_id", "ghost")
	rec := httptest.NewRecorder()
	m.handlePosition(rec, req)
	if rec.Code != http.StatusNotFound {
		t.Fatalf("unknown device: status = %d, want 404", rec.Code)
	}

	m.track.setPosition("ap-1", models.Position{
		DeviceID:   "ap-1",
		X:          12.5,
		Y:          7.5,
		Confidence: 0.9,
		Timestamp:  time.Now(),
		Method:     models.PositionTriangulation,
	})
	req = httptest.NewRequest(http.MethodGet, "/devices/ap-1/position", nil)
	req.SetPathValue("device_id", "ap-1")
	rec = httptest.NewRecorder()
	m.handlePosition(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	var pos models.Position
	if err := json.NewDecoder(rec.Body).Decode(&pos); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if pos.DeviceID != "ap-1" || pos.X != 12.5 || pos.Y != 7.5 {
		t.Fatalf("position = %+v", pos)
	}
}

func TestHandleRegionsEmptyIsArray(t *testing.T) {
	m := newTestModule(t)
	rec := httptest.NewRecorder()
	m.handleRegions(rec, httptest.NewRequest(http.MethodGet, "/regions", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	if body := strings.TrimSpace(rec.Body.String()); body == "null" {
		t.Fatal("empty region set encoded as null, want []")
	}
	var regions []models.AnomalyRegion
	if err := json.NewDecoder(rec.Body).Decode(&regions); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if len(regions) != 0 {
		t.Fatalf("got %d regions, want 0", len(regions))
	}
}

func TestHandleHistoryEndpointsStoreless(t *testing.T) {
	m := newTestModule(t)

	rec := httptest.NewRecorder()
	m.handleRegionHistory(rec, httptest.NewRequest(http.MethodGet, "/regions/history", nil))
	if rec.Code != http.StatusOK {
		t.Errorf("region history: status = %d, want 200", rec.Code)
	}

	req := httptest.NewRequest(http.MethodGet, "/devices/ap-1/positions", nil)
	req.SetPathValue("device_id", "ap-1")
	rec = httptest.NewRecorder()
	m.handlePositionHistory(rec, req)
	if rec.Code != http.StatusOK {
		t.Errorf("position history: status = %d, want 200", rec.Code)
	}
}

func TestHandleHeatmapValidatesQuery(t *testing.T) {
	m := newTestModule(t)
	tests := []struct {
		name  string
		query string
	}{
		{"missing bounds", "x0=0&y0=0&x1=10"},
		{"non-numeric bound", "x0=0&y0=0&x1=ten&y1=10"},
		{"zero area", "x0=0&y0=0&x1=0&y1=10"},
		{"inverted bounds", "x0=10&y0=0&x1=0&y1=10"},
		{"resolution too high", "x0=0&y0=0&x1=10&y1=10&resolution=9999"},
		{"resolution not a number", "x0=0&y0=0&x1=10&y1=10&resolution=abc"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			m.handleHeatmap(rec, httptest.NewRequest(http.MethodGet, "/heatmap?"+tt.query, nil))
			if rec.Code != http.StatusBadRequest {
				t.Errorf("status = %d, want 400", rec.Code)
			}
		})
	}
}

func TestHandleHeatmap(t *testing.T) {
	m := newTestModule(t)
	m.track.setPosition("ap-1", models.Position{DeviceID: "ap-1", X: 5, Y: 5, Timestamp: time.Now()})
	m.track.observe("ap-1", -50, 0, time.Now())

	rec := httptest.NewRecorder()
	m.handleHeatmap(rec, httptest.NewRequest(http.MethodGet, "/heatmap?x0=0&y0=0&x1=10&y1=10&resolution=3", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200 (body %s)", rec.Code, rec.Body.String())
	}
	var hm Heatmap
	if err := json.NewDecoder(rec.Body).Decode(&hm); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if hm.Resolution != 3 || len(hm.Signal) != 3 || len(hm.Signal[0]) != 3 {
		t.Fatalf("grid shape = %dx%d res %d, want 3x3", len(hm.Signal), len(hm.Signal[0]), hm.Resolution)
	}
	if hm.Devices != 1 {
		t.Errorf("Devices = %d, want 1", hm.Devices)
	}
	if hm.GeneratedAt.IsZero() {
		t.Error("GeneratedAt not stamped")
	}
}
