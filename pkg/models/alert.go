package models

import "time"

// AlertKind identifies what triggered an alert.
type AlertKind string

const (
	AlertAnomaly AlertKind = "anomaly"
	AlertHealth  AlertKind = "health"
	AlertRegion  AlertKind = "region"
)

// Alert is a high-severity notification fanned out to subscribers over
// WebSocket, MQTT, and webhooks.
type Alert struct {
	ID        string    `json:"id"`
	Kind      AlertKind `json:"kind"`
	Severity  Severity  `json:"severity"`
	DeviceID  string    `json:"device_id,omitempty"`
	RegionID  string    `json:"region_id,omitempty"`
	Title     string    `json:"title"`
	Detail    string    `json:"detail,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}
