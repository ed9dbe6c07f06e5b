package atlas

import (
	"time"

	"github.com/HerbHall/wavesight/pkg/models"
)

const (
	minHeatmapResolution = 2
	maxHeatmapResolution = 500
)

// HeatmapBounds is the rectangle a heatmap covers, in site coordinates.
type HeatmapBounds struct {
	X0 float64 `json:"x0"`
	Y0 float64 `json:"y0"`
	X1 float64 `json:"x1"`
	Y1 float64 `json:"y1"`
}

// Heatmap is the interpolated signal field with the anomaly-region
// overlay. Signal[i][j] and Anomaly[i][j] describe the grid point at
// (x0 + j*dx, y0 + i*dy); both axes span their bounds inclusively.
// Output is pure data; rendering belongs to the consumer.
type Heatmap struct {
	Bounds      HeatmapBounds `json:"bounds"`
	Resolution  int           `json:"resolution"`
	Signal      [][]float64   `json:"signal"`
	Anomaly     [][]float64   `json:"anomaly"`
	Devices     int           `json:"devices"`
	Regions     int           `json:"regions"`
	GeneratedAt time.Time     `json:"generated_at"`
}

// fieldSource is one device's contribution to the signal field.
type fieldSource struct {
	at   models.Point
	rssi float64
}

// HeatmapGrid builds the signal heatmap over the given bounds from
// devices with a known position and a measurement inside the recent
// window. Resolution falls back to the configured default when zero.
func (m *Module) HeatmapGrid(b HeatmapBounds, resolution int) Heatmap {
	if resolution == 0 {
		resolution = m.cfg.HeatmapResolution
	}
	now := time.Now()
	cutoff := now.Add(-m.cfg.RecentWindow)

	var sources []fieldSource
	for _, t := range m.track.snapshot() {
		if t.HasPosition && !t.LastSeen.Before(cutoff) {
			sources = append(sources, fieldSource{at: t.Position.Point(), rssi: t.RSSI})
		}
	}
	return buildHeatmap(b, resolution, sources, m.Regions(), now)
}

// buildHeatmap interpolates the signal field by inverse-distance
// weighting: w = 1/d^2, flattened to 1 inside one meter so a co-located
// device cannot dominate with an unbounded weight. Cells no source can
// reach stay zero. The anomaly layer takes, per cell, the strongest
// linear falloff (1 - d/radius) * confidence across the regions covering
// it.
func buildHeatmap(b HeatmapBounds, resolution int, sources []fieldSource, regions []models.AnomalyRegion, now time.Time) Heatmap {
	hm := Heatmap{
		Bounds:      b,
		Resolution:  resolution,
		Signal:      make([][]float64, resolution),
		Anomaly:     make([][]float64, resolution),
		Devices:     len(sources),
		Regions:     len(regions),
		GeneratedAt: now,
	}
	dx := (b.X1 - b.X0) / float64(resolution-1)
	dy := (b.Y1 - b.Y0) / float64(resolution-1)

	for i := 0; i < resolution; i++ {
		hm.Signal[i] = make([]float64, resolution)
		hm.Anomaly[i] = make([]float64, resolution)
		y := b.Y0 + float64(i)*dy

		for j := 0; j < resolution; j++ {
			cell := models.Point{X: b.X0 + float64(j)*dx, Y: y}

			var wSum, vSum float64
			for _, s := range sources {
				d := s.at.DistanceTo(cell)
				w := 1.0
				if d >= 1 {
					w = 1 / (d * d)
				}
				wSum += w
				vSum += w * s.rssi
			}
			if wSum > 0 {
				hm.Signal[i][j] = vSum / wSum
			}

			for _, r := range regions {
				d := r.Centre.DistanceTo(cell)
				if d > r.Radius {
					continue
				}
				falloff := 1.0
				if r.Radius > 0 {
					falloff = 1 - d/r.Radius
				}
				if v := falloff * r.Confidence; v > hm.Anomaly[i][j] {
					hm.Anomaly[i][j] = v
				}
			}
		}
	}
	return hm
}
