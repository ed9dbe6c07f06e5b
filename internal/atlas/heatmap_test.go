package atlas

import (
	"math"
	"testing"
	"time"

	"github.com/HerbHall/wavesight/pkg/models"
)

func square(x0, y0, x1, y1 float64) HeatmapBounds {
	return HeatmapBounds{X0: x0, Y0: y0, X1: x1, Y1: y1}
}

func TestBuildHeatmapEmpty(t *testing.T) {
	hm := buildHeatmap(square(0, 0, 10, 10), 3, nil, nil, time.Now())
	if hm.Devices != 0 || hm.Regions != 0 {
		t.Fatalf("counts = %d devices, %d regions, want 0, 0", hm.Devices, hm.Regions)
	}
	if len(hm.Signal) != 3 || len(hm.Signal[0]) != 3 {
		t.Fatalf("grid is %dx%d, want 3x3", len(hm.Signal), len(hm.Signal[0]))
	}
	for i := range hm.Signal {
		for j := range hm.Signal[i] {
			if hm.Signal[i][j] != 0 || hm.Anomaly[i][j] != 0 {
				t.Fatalf("cell (%d,%d) not zero with no sources", i, j)
			}
		}
	}
}

func TestBuildHeatmapSingleSource(t *testing.T) {
	sources := []fieldSource{{at: models.Point{X: 5, Y: 5}, rssi: -50}}
	hm := buildHeatmap(square(0, 0, 10, 10), 3, sources, nil, time.Now())
	if hm.Devices != 1 {
		t.Fatalf("devices = %d, want 1", hm.Devices)
	}
	// One source means every cell interpolates to its value, including
	// the cell on top of it where the weight is flattened.
	for i := range hm.Signal {
		for j := range hm.Signal[i] {
			if math.Abs(hm.Signal[i][j]-(-50)) > 1e-9 {
				t.Fatalf("cell (%d,%d) = %.4f, want -50", i, j, hm.Signal[i][j])
			}
		}
	}
}

func TestBuildHeatmapInverseSquareBlend(t *testing.T) {
	sources := []fieldSource{
		{at: models.Point{X: 0, Y: 0}, rssi: -40},
		{at: models.Point{X: 10, Y: 0}, rssi: -80},
	}
	hm := buildHeatmap(square(0, 0, 10, 10), 5, sources, nil, time.Now())

	// The cell at (2.5, 0) sits 2.5 m and 7.5 m from the sources, so the
	// near one carries weight 1/6.25 against 1/56.25: a 9:1 blend.
	got := hm.Signal[0][1]
	want := 0.9*(-40) + 0.1*(-80)
	if math.Abs(got-want) > 1e-9 {
		t.Fatalf("blended cell = %.6f, want %.6f", got, want)
	}
}

func TestBuildHeatmapFlattensWeightInsideOneMeter(t *testing.T) {
	// Both sources are within a meter of the origin cell; their weights
	// flatten to 1 and the cell becomes a plain average instead of being
	// captured by the nearer one.
	sources := []fieldSource{
		{at: models.Point{X: 0, Y: 0}, rssi: -40},
		{at: models.Point{X: 0.5, Y: 0}, rssi: -60},
	}
	hm := buildHeatmap(square(0, 0, 10, 10), 11, sources, nil, time.Now())
	if got := hm.Signal[0][0]; math.Abs(got-(-50)) > 1e-9 {
		t.Fatalf("origin cell = %.4f, want -50", got)
	}
}

func TestBuildHeatmapRegionOverlay(t *testing.T) {
	regions := []models.AnomalyRegion{{
		ID:         "r1",
		Centre:     models.Point{X: 5, Y: 5},
		Radius:     2,
		Confidence: 0.8,
	}}
	hm := buildHeatmap(square(0, 0, 10, 10), 11, nil, regions, time.Now())

	// Grid step is 1 m, so cell [i][j] sits at (j, i).
	if got := hm.Anomaly[5][5]; math.Abs(got-0.8) > 1e-9 {
		t.Fatalf("centre overlay = %.4f, want 0.8", got)
	}
	if got := hm.Anomaly[6][5]; math.Abs(got-0.4) > 1e-9 {
		t.Fatalf("mid-radius overlay = %.4f, want 0.4", got)
	}
	if got := hm.Anomaly[7][5]; got != 0 {
		t.Fatalf("rim overlay = %.4f, want 0", got)
	}
	if got := hm.Anomaly[0][0]; got != 0 {
		t.Fatalf("outside overlay = %.4f, want 0", got)
	}
}

func TestBuildHeatmapOverlayTakesStrongestRegion(t *testing.T) {
	regions := []models.AnomalyRegion{
		{ID: "weak", Centre: models.Point{X: 5, Y: 5}, Radius: 4, Confidence: 0.4},
		{ID: "strong", Centre: models.Point{X: 5, Y: 5}, Radius: 2, Confidence: 1.0},
	}
	hm := buildHeatmap(square(0, 0, 10, 10), 11, nil, regions, time.Now())

	// At the shared centre the strong region wins; at 3 m out only the
	// weak one still covers the cell.
	if got := hm.Anomaly[5][5]; math.Abs(got-1.0) > 1e-9 {
		t.Fatalf("centre overlay = %.4f, want 1.0", got)
	}
	if got := hm.Anomaly[8][5]; math.Abs(got-0.1) > 1e-9 {
		t.Fatalf("outer overlay = %.4f, want 0.1", got)
	}
}

func TestHeatmapGridFiltersStaleDevices(t *testing.T) {
	m := newTestModule(t)
	now := time.Now()
	seedTrack(m, "ap-old", 5, 5, 0, now.Add(-time.Hour))
	seedTrack(m, "ap-new", 6, 5, 0, now)

	hm := m.HeatmapGrid(square(0, 0, 10, 10), 3)
	if hm.Devices != 1 {
		t.Fatalf("devices = %d, want 1 after staleness filter", hm.Devices)
	}
	if hm.Resolution != 3 {
		t.Fatalf("resolution = %d, want 3", hm.Resolution)
	}
}

func TestHeatmapGridDefaultsResolution(t *testing.T) {
	m := newTestModule(t)
	hm := m.HeatmapGrid(square(0, 0, 10, 10), 0)
	if hm.Resolution != m.cfg.HeatmapResolution {
		t.Fatalf("resolution = %d, want configured default %d", hm.Resolution, m.cfg.HeatmapResolution)
	}
}
