// Package models defines the public domain types shared by WaveSight
// plugins, agents, and API consumers.
package models

import (
	"errors"
	"fmt"
	"math"
	"time"
)

// ErrInvalidMeasurement is returned when a measurement fails validation.
// Callers should treat it as a client error, not a pipeline fault.
var ErrInvalidMeasurement = errors.New("invalid measurement")

// Point is a position in the site's local coordinate system, in meters.
type Point struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// DistanceTo returns the Euclidean distance to another point.
func (p Point) DistanceTo(q Point) float64 {
	dx := p.X - q.X
	dy := p.Y - q.Y
	return math.Sqrt(dx*dx + dy*dy)
}

// Measurement is a single telemetry sample for a wireless device, reported
// by a field agent. Only DeviceID, Timestamp, and RSSI are mandatory; every
// other channel is optional and nil when the agent did not observe it.
// Measurements are immutable once ingested.
type Measurement struct {
	DeviceID  string    `json:"device_id" example:"aa:bb:cc:dd:ee:ff"`
	AgentID   string    `json:"agent_id,omitempty" example:"ranger-01"`
	Timestamp time.Time `json:"timestamp" example:"2026-01-15T10:30:00Z"`

	// RSSI is the received signal strength in dBm, typically -30 to -100.
	RSSI float64 `json:"rssi" example:"-62.5"`

	// Channel metadata.
	SNR       *float64 `json:"snr,omitempty"`
	Frequency *float64 `json:"frequency,omitempty"` // MHz
	Channel   *int     `json:"channel,omitempty"`

	// Observer position, diagnostics only. Not used for triangulation.
	Location *Point `json:"location,omitempty"`

	// Health channels.
	ResponseTimeMS *float64 `json:"response_time_ms,omitempty"`
	IsOnline       *bool    `json:"is_online,omitempty"`
	ErrorCount     *int     `json:"error_count,omitempty"`
	TemperatureC   *float64 `json:"temperature_c,omitempty"`
	PowerW         *float64 `json:"power_w,omitempty"`
	CPUPct         *float64 `json:"cpu_pct,omitempty"`
	MemPct         *float64 `json:"mem_pct,omitempty"`
	BatteryPct     *float64 `json:"battery_pct,omitempty"`
	BytesTx        *int64   `json:"bytes_tx,omitempty"`
	BytesRx        *int64   `json:"bytes_rx,omitempty"`
}

// Validate reports whether the measurement is well-formed. All numeric
// channels must be finite; DeviceID and Timestamp must be set.
func (m *Measurement) Validate() error {
	if m.DeviceID == "" {
		return fmt.Errorf("%w: missing device_id", ErrInvalidMeasurement)
	}
	if m.Timestamp.IsZero() {
		return fmt.Errorf("%w: missing timestamp", ErrInvalidMeasurement)
	}
	if !isFinite(m.RSSI) {
		return fmt.Errorf("%w: rssi must be finite", ErrInvalidMeasurement)
	}
	for name, v := range map[string]*float64{
		"snr":              m.SNR,
		"frequency":        m.Frequency,
		"response_time_ms": m.ResponseTimeMS,
		"temperature_c":    m.TemperatureC,
		"power_w":          m.PowerW,
		"cpu_pct":          m.CPUPct,
		"mem_pct":          m.MemPct,
		"battery_pct":      m.BatteryPct,
	} {
		if v != nil && !isFinite(*v) {
			return fmt.Errorf("%w: %s must be finite", ErrInvalidMeasurement, name)
		}
	}
	if m.Location != nil && (!isFinite(m.Location.X) || !isFinite(m.Location.Y)) {
		return fmt.Errorf("%w: location must be finite", ErrInvalidMeasurement)
	}
	if m.ErrorCount != nil && *m.ErrorCount < 0 {
		return fmt.Errorf("%w: error_count must be non-negative", ErrInvalidMeasurement)
	}
	return nil
}

func isFinite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}

// Anchor is a fixed reference emitter of known position used for
// triangulation. RefRSSI is the expected signal strength one meter from the
// anchor, in dBm. Anchors are static until explicitly updated.
type Anchor struct {
	ID        string    `json:"id" example:"anchor-ne-corner"`
	X         float64   `json:"x"`
	Y         float64   `json:"y"`
	RefRSSI   float64   `json:"ref_rssi" example:"-30"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Position returns the anchor's location as a Point.
func (a Anchor) Position() Point {
	return Point{X: a.X, Y: a.Y}
}
