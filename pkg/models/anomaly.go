package models

import "time"

// AnomalyKind classifies what a detector flagged.
type AnomalyKind string

const (
	AnomalyRSSIDeviation AnomalyKind = "rssi_deviation"
	AnomalyLatencySpike  AnomalyKind = "latency_spike"
	AnomalyDisconnect    AnomalyKind = "disconnect"
	AnomalyTempSpike     AnomalyKind = "temp_spike"
	AnomalyOscillation   AnomalyKind = "oscillation"
	AnomalyDrop          AnomalyKind = "drop"
)

// Severity grades an anomaly or region.
type Severity string

const (
	SeverityLow    Severity = "low"
	SeverityMedium Severity = "medium"
	SeverityHigh   Severity = "high"
)

// SeverityForScore maps a combined anomaly score to a severity:
// >0.7 high, >0.4 medium, else low.
func SeverityForScore(score float64) Severity {
	switch {
	case score > 0.7:
		return SeverityHigh
	case score > 0.4:
		return SeverityMedium
	default:
		return SeverityLow
	}
}

// AnomalyEvent records one detected anomaly on one device.
type AnomalyEvent struct {
	ID        string      `json:"id"`
	DeviceID  string      `json:"device_id"`
	Timestamp time.Time   `json:"timestamp"`
	Score     float64     `json:"score"` // 0.0-1.0
	Kind      AnomalyKind `json:"kind"`
	Severity  Severity    `json:"severity"`

	// Value and Expected give the observed reading and the baseline it was
	// judged against, when the detector has one.
	Value       float64 `json:"value,omitempty"`
	Expected    float64 `json:"expected,omitempty"`
	Description string  `json:"description,omitempty"`
}

// RegionKindSignal is the region kind for clusters of signal anomalies.
const RegionKindSignal = "signal_anomaly"

// AnomalyRegion is a spatial cluster of recently-anomalous devices.
// Regions reference member devices by ID only.
type AnomalyRegion struct {
	ID              string    `json:"id"`
	Centre          Point     `json:"centre"`
	Radius          float64   `json:"radius"` // meters
	Severity        Severity  `json:"severity"`
	Kind            string    `json:"kind"`
	Confidence      float64   `json:"confidence"` // mean member anomaly score
	MemberDeviceIDs []string  `json:"member_device_ids"`
	CreatedAt       time.Time `json:"created_at"`
}
