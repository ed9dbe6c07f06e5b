package models

import "time"

// RiskLevel buckets a continuous health score into an operational label.
type RiskLevel string

const (
	RiskLow      RiskLevel = "low"
	RiskMedium   RiskLevel = "medium"
	RiskHigh     RiskLevel = "high"
	RiskCritical RiskLevel = "critical"
)

// RiskForScore maps a health score to its risk bucket. The mapping is a
// pure function of the score: >=80 low, >=60 medium, >=30 high, else
// critical.
func RiskForScore(score float64) RiskLevel {
	switch {
	case score >= 80:
		return RiskLow
	case score >= 60:
		return RiskMedium
	case score >= 30:
		return RiskHigh
	default:
		return RiskCritical
	}
}

// HealthSnapshot is the rolling health assessment for one device.
type HealthSnapshot struct {
	DeviceID string    `json:"device_id"`
	Score    float64   `json:"score"` // 0-100
	Risk     RiskLevel `json:"risk"`

	// PredictedFailureAt is set only when the score is low enough and at
	// least one trend feature is degrading. Confidence covers the
	// prediction, not the score.
	PredictedFailureAt *time.Time `json:"predicted_failure_at,omitempty"`
	Confidence         float64    `json:"confidence,omitempty"`

	Factors         []string `json:"factors,omitempty"`
	Recommendations []string `json:"recommendations,omitempty"`

	SampleCount int       `json:"sample_count"`
	UpdatedAt   time.Time `json:"updated_at"`
}
