package vitals

import (
	"fmt"
	"time"
)

// VitalsConfig holds configuration for the health assessment plugin.
type VitalsConfig struct {
	// SweepInterval is how often every known device is rescored from its
	// current history, catching devices that stopped reporting.
	SweepInterval time.Duration `mapstructure:"sweep_interval"`

	// WindowSize is how many trailing samples the sweep pulls per device.
	WindowSize int `mapstructure:"window_size"`

	SinkInboxCapacity int           `mapstructure:"sink_inbox_capacity"`
	SinkTimeout       time.Duration `mapstructure:"sink_timeout"`
	SnapshotRetention time.Duration `mapstructure:"snapshot_retention"`
}

// DefaultConfig returns sensible defaults for the vitals module.
func DefaultConfig() VitalsConfig {
	return VitalsConfig{
		SweepInterval:     5 * time.Minute,
		WindowSize:        100,
		SinkInboxCapacity: 1024,
		SinkTimeout:       2 * time.Second,
		SnapshotRetention: 30 * 24 * time.Hour,
	}
}

// Validate checks the config for values the sweep cannot run with.
func (c VitalsConfig) Validate() error {
	if c.SweepInterval <= 0 {
		return fmt.Errorf("sweep_interval must be positive, got %v", c.SweepInterval)
	}
	if c.WindowSize <= 0 {
		return fmt.Errorf("window_size must be positive, got %d", c.WindowSize)
	}
	if c.SinkInboxCapacity <= 0 {
		return fmt.Errorf("sink_inbox_capacity must be positive, got %d", c.SinkInboxCapacity)
	}
	return nil
}
