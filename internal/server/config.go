package server

import (
	"fmt"
	"strings"

	"github.com/spf13/viper"
)

// Config holds the server configuration.
type Config struct {
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	DataDir  string `mapstructure:"data_dir"`
	DevMode  bool   `mapstructure:"dev_mode"`
	DemoMode bool   `mapstructure:"demo_mode"`
}

// Addr returns the listen address as host:port.
func (c *Config) Addr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

// LoadConfig reads configuration from file and environment variables.
func LoadConfig(configPath string) (*viper.Viper, error) {
	v := viper.New()

	// Defaults
	v.SetDefault("server.host", "0.0.0.0")
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.data_dir", "./data")
	v.SetDefault("server.dev_mode", false)
	v.SetDefault("server.demo_mode", false)
	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "json")
	v.SetDefault("database.driver", "sqlite")
	v.SetDefault("database.dsn", "./data/wavesight.db")

	// Auth: empty jwt_secret disables authentication, empty
	// management_token disables the key-management surface.
	v.SetDefault("auth.jwt_secret", "")
	v.SetDefault("auth.management_token", "")
	v.SetDefault("auth.token_ttl", "1h")

	// Stream subscriber settings.
	v.SetDefault("subscribe.inbox_capacity", 1024)
	v.SetDefault("subscribe.write_deadline", "1s")

	// Plugin defaults
	v.SetDefault("plugins.telemetry.enabled", true)
	v.SetDefault("plugins.telemetry.ring_capacity", 100)
	v.SetDefault("plugins.telemetry.lanes", 16)
	v.SetDefault("plugins.telemetry.kalman_process_var", 1e-3)
	v.SetDefault("plugins.telemetry.kalman_measurement_var", 0.1)
	v.SetDefault("plugins.telemetry.ewma_alpha", 0.3)
	v.SetDefault("plugins.telemetry.scorer", "statistical")
	v.SetDefault("plugins.telemetry.zscore_cutoff", 2.0)
	v.SetDefault("plugins.telemetry.drop_threshold", 20.0)
	v.SetDefault("plugins.telemetry.oscillation_limit", 15.0)
	v.SetDefault("plugins.telemetry.health_stride", 1)
	v.SetDefault("plugins.telemetry.locate_window", 5)
	v.SetDefault("plugins.telemetry.idle_timeout", "168h")
	v.SetDefault("plugins.telemetry.eviction_interval", "10m")
	v.SetDefault("plugins.telemetry.sink_inbox_capacity", 4096)
	v.SetDefault("plugins.telemetry.sink_timeout", "2s")
	v.SetDefault("plugins.telemetry.measurement_retention", "168h")
	v.SetDefault("plugins.telemetry.anomaly_retention", "720h")
	v.SetDefault("plugins.vitals.enabled", true)
	v.SetDefault("plugins.vitals.sweep_interval", "5m")
	v.SetDefault("plugins.vitals.window_size", 100)
	v.SetDefault("plugins.vitals.sink_inbox_capacity", 1024)
	v.SetDefault("plugins.vitals.sink_timeout", "2s")
	v.SetDefault("plugins.vitals.snapshot_retention", "720h")
	v.SetDefault("plugins.atlas.enabled", true)
	v.SetDefault("plugins.atlas.path_loss_exponent", 2.0)
	v.SetDefault("plugins.atlas.cluster_eps", 30.0)
	v.SetDefault("plugins.atlas.cluster_min_samples", 2)
	v.SetDefault("plugins.atlas.cluster_interval", "60s")
	v.SetDefault("plugins.atlas.cluster_anomaly_threshold", 5)
	v.SetDefault("plugins.atlas.recent_window", "5m")
	v.SetDefault("plugins.atlas.heatmap_resolution", 100)
	v.SetDefault("plugins.atlas.track_inbox_capacity", 4096)
	v.SetDefault("plugins.atlas.track_retention", "1h")
	v.SetDefault("plugins.atlas.sink_inbox_capacity", 1024)
	v.SetDefault("plugins.atlas.sink_timeout", "2s")
	v.SetDefault("plugins.atlas.position_retention", "168h")
	v.SetDefault("plugins.atlas.region_retention", "720h")
	v.SetDefault("plugins.mqtt.enabled", false)
	v.SetDefault("plugins.mqtt.broker_url", "")
	v.SetDefault("plugins.mqtt.topic_prefix", "wavesight")
	v.SetDefault("plugins.mqtt.qos", 1)
	v.SetDefault("plugins.mqtt.retain", true)
	v.SetDefault("plugins.mqtt.timeout", "10s")
	v.SetDefault("plugins.mqtt.ha_discovery", false)
	v.SetDefault("plugins.mqtt.ha_discovery_prefix", "homeassistant")
	v.SetDefault("plugins.webhook.enabled", true)
	v.SetDefault("plugins.webhook.url", "")
	v.SetDefault("plugins.webhook.timeout", "10s")

	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		v.SetConfigName("wavesight")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("./configs")
		v.AddConfigPath("/etc/wavesight")
	}

	// Environment variable support: WV_SERVER_PORT=9090
	v.SetEnvPrefix("WV")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("reading config: %w", err)
		}
		// Config file not found is fine -- use defaults
	}

	return v, nil
}
