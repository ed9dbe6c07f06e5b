package atlas

import (
	"fmt"
	"time"
)

// AtlasConfig holds configuration for the atlas plugin.
type AtlasConfig struct {
	// PathLossExponent is the n in the log-distance model. 2.0 is free
	// space; indoor sites typically sit between 2.5 and 4.
	PathLossExponent float64 `mapstructure:"path_loss_exponent"`

	// ClusterEps is the DBSCAN neighborhood radius in meters;
	// ClusterMinSamples the density threshold (the point itself counts).
	ClusterEps        float64 `mapstructure:"cluster_eps"`
	ClusterMinSamples int     `mapstructure:"cluster_min_samples"`

	// ClusterInterval paces the region rebuild. A rebuild also runs early
	// once ClusterAnomalyThreshold fresh anomalies accumulate.
	ClusterInterval         time.Duration `mapstructure:"cluster_interval"`
	ClusterAnomalyThreshold int           `mapstructure:"cluster_anomaly_threshold"`

	// RecentWindow is how fresh a device's last measurement must be for
	// it to contribute to the heatmap signal field.
	RecentWindow time.Duration `mapstructure:"recent_window"`

	// HeatmapResolution is the default grid edge when the request does
	// not name one.
	HeatmapResolution int `mapstructure:"heatmap_resolution"`

	TrackInboxCapacity int           `mapstructure:"track_inbox_capacity"`
	TrackRetention     time.Duration `mapstructure:"track_retention"`

	SinkInboxCapacity int           `mapstructure:"sink_inbox_capacity"`
	SinkTimeout       time.Duration `mapstructure:"sink_timeout"`
	PositionRetention time.Duration `mapstructure:"position_retention"`
	RegionRetention   time.Duration `mapstructure:"region_retention"`
}

// DefaultConfig returns sensible defaults for the atlas module.
func DefaultConfig() AtlasConfig {
	return AtlasConfig{
		PathLossExponent:        2.0,
		ClusterEps:              30,
		ClusterMinSamples:       2,
		ClusterInterval:         60 * time.Second,
		ClusterAnomalyThreshold: 5,
		RecentWindow:            5 * time.Minute,
		HeatmapResolution:       100,
		TrackInboxCapacity:      4096,
		TrackRetention:          time.Hour,
		SinkInboxCapacity:       1024,
		SinkTimeout:             2 * time.Second,
		PositionRetention:       7 * 24 * time.Hour,
		RegionRetention:         30 * 24 * time.Hour,
	}
}

// Validate checks the config for values the plugin cannot run with.
func (c AtlasConfig) Validate() error {
	if c.PathLossExponent <= 0 {
		return fmt.Errorf("path_loss_exponent must be positive, got %g", c.PathLossExponent)
	}
	if c.ClusterEps <= 0 {
		return fmt.Errorf("cluster_eps must be positive, got %g", c.ClusterEps)
	}
	if c.ClusterMinSamples < 1 {
		return fmt.Errorf("cluster_min_samples must be at least 1, got %d", c.ClusterMinSamples)
	}
	if c.ClusterInterval <= 0 {
		return fmt.Errorf("cluster_interval must be positive, got %s", c.ClusterInterval)
	}
	if c.HeatmapResolution < minHeatmapResolution || c.HeatmapResolution > maxHeatmapResolution {
		return fmt.Errorf("heatmap_resolution must be between %d and %d, got %d",
			minHeatmapResolution, maxHeatmapResolution, c.HeatmapResolution)
	}
	if c.SinkInboxCapacity <= 0 {
		return fmt.Errorf("sink_inbox_capacity must be positive, got %d", c.SinkInboxCapacity)
	}
	return nil
}
