package telemetry

import (
	"fmt"
	"time"
)

// Scorer selection values for TelemetryConfig.Scorer.
const (
	ScorerStatistical = "statistical"
	ScorerIsoForest   = "isoforest"
)

// TelemetryConfig holds configuration for the telemetry ingest plugin.
type TelemetryConfig struct {
	RingCapacity int `mapstructure:"ring_capacity"`
	Lanes        int `mapstructure:"lanes"`

	KalmanProcessVar     float64 `mapstructure:"kalman_process_var"`
	KalmanMeasurementVar float64 `mapstructure:"kalman_measurement_var"`
	EWMAAlpha            float64 `mapstructure:"ewma_alpha"`

	// Scorer selects the anomaly scorer: "statistical" or "isoforest".
	Scorer string `mapstructure:"scorer"`

	// Statistical detector thresholds: z-score cutoff in standard
	// deviations, sudden-drop threshold in dBm, oscillation stddev in dBm.
	ZScoreCutoff     float64 `mapstructure:"zscore_cutoff"`
	DropThreshold    float64 `mapstructure:"drop_threshold"`
	OscillationLimit float64 `mapstructure:"oscillation_limit"`

	// HealthStride recomputes device health every Nth measurement. 1 means
	// every measurement; larger values amortise scoring cost.
	HealthStride int `mapstructure:"health_stride"`

	// LocateWindow is how many trailing samples feed a live position fix.
	LocateWindow int `mapstructure:"locate_window"`

	IdleTimeout      time.Duration `mapstructure:"idle_timeout"`
	EvictionInterval time.Duration `mapstructure:"eviction_interval"`

	SinkInboxCapacity    int           `mapstructure:"sink_inbox_capacity"`
	SinkTimeout          time.Duration `mapstructure:"sink_timeout"`
	MeasurementRetention time.Duration `mapstructure:"measurement_retention"`
	AnomalyRetention     time.Duration `mapstructure:"anomaly_retention"`
}

// DefaultConfig returns sensible defaults for the telemetry module.
func DefaultConfig() TelemetryConfig {
	return TelemetryConfig{
		RingCapacity:         100,
		Lanes:                16,
		KalmanProcessVar:     1e-3,
		KalmanMeasurementVar: 0.1,
		EWMAAlpha:            0.3,
		Scorer:               ScorerStatistical,
		ZScoreCutoff:         2,
		DropThreshold:        20,
		OscillationLimit:     15,
		HealthStride:         1,
		LocateWindow:         5,
		IdleTimeout:          7 * 24 * time.Hour,
		EvictionInterval:     10 * time.Minute,
		SinkInboxCapacity:    4096,
		SinkTimeout:          2 * time.Second,
		MeasurementRetention: 7 * 24 * time.Hour,
		AnomalyRetention:     30 * 24 * time.Hour,
	}
}

// Validate checks the config for values the pipeline cannot run with.
func (c TelemetryConfig) Validate() error {
	if c.Scorer != ScorerStatistical && c.Scorer != ScorerIsoForest {
		return fmt.Errorf("scorer must be %q or %q, got %q", ScorerStatistical, ScorerIsoForest, c.Scorer)
	}
	if c.Lanes <= 0 {
		return fmt.Errorf("lanes must be positive, got %d", c.Lanes)
	}
	if c.RingCapacity <= 0 {
		return fmt.Errorf("ring_capacity must be positive, got %d", c.RingCapacity)
	}
	if c.ZScoreCutoff <= 0 {
		return fmt.Errorf("zscore_cutoff must be positive, got %g", c.ZScoreCutoff)
	}
	if c.HealthStride <= 0 {
		return fmt.Errorf("health_stride must be positive, got %d", c.HealthStride)
	}
	return nil
}
