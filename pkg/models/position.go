package models

import "time"

// PositionMethod indicates how a position estimate was derived.
type PositionMethod string

const (
	// PositionTriangulation marks a live multilateration fix from the
	// device's recent mean RSSI.
	PositionTriangulation PositionMethod = "triangulation"
	// PositionHistorical marks a fix recomputed from measurements around a
	// past point in time.
	PositionHistorical PositionMethod = "historical"
)

// Position is an estimated device location in site coordinates.
type Position struct {
	DeviceID   string         `json:"device_id"`
	X          float64        `json:"x"`
	Y          float64        `json:"y"`
	Confidence float64        `json:"confidence"` // 0.0-1.0, from solver residuals
	Timestamp  time.Time      `json:"timestamp"`
	Method     PositionMethod `json:"method"`
}

// Point returns the position as a bare coordinate pair.
func (p Position) Point() Point {
	return Point{X: p.X, Y: p.Y}
}

// SignalQuality summarizes link quality for one sample window.
// All components are in [0,1].
type SignalQuality struct {
	Strength  float64 `json:"strength"`  // (rssi+100)/70, clamped
	Stability float64 `json:"stability"` // 1 - std(recent)/30, clamped
	Overall   float64 `json:"overall"`   // 0.6*strength + 0.4*stability
}

// TrajectoryPoint is one step of a device's reconstructed movement and
// signal history.
type TrajectoryPoint struct {
	Timestamp    time.Time     `json:"timestamp"`
	RSSI         float64       `json:"rssi"`
	SmoothedRSSI float64       `json:"smoothed_rssi"`
	Position     *Position     `json:"position,omitempty"`
	Quality      SignalQuality `json:"signal_quality"`
	AnomalyScore float64       `json:"anomaly_score"`
}
