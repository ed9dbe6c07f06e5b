package ranger

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Target is one device the agent probes each cycle.
type Target struct {
	DeviceID string `mapstructure:"device_id"`
	Address  string `mapstructure:"address"`
}

// Config holds the ranger agent configuration.
type Config struct {
	ServerURL string `mapstructure:"server_url"`
	AgentKey  string `mapstructure:"agent_key"`
	AgentID   string `mapstructure:"agent_id"`

	// Interval is the probe cycle period; Timeout bounds each probe.
	Interval time.Duration `mapstructure:"interval"`
	Timeout  time.Duration `mapstructure:"timeout"`

	// PostTimeout bounds a single ingest POST.
	PostTimeout time.Duration `mapstructure:"post_timeout"`

	PingCount   int  `mapstructure:"ping_count"`
	Privileged  bool `mapstructure:"privileged"`
	Concurrency int  `mapstructure:"concurrency"`

	// FallbackRSSI is stamped on measurements when the host exposes no
	// wireless link, e.g. agents on wired hosts.
	FallbackRSSI float64 `mapstructure:"fallback_rssi"`

	Retries      int           `mapstructure:"retries"`
	RetryBackoff time.Duration `mapstructure:"retry_backoff"`

	Targets []Target `mapstructure:"targets"`
}

// DefaultConfig returns the default agent configuration.
func DefaultConfig() *Config {
	return &Config{
		ServerURL:    "http://localhost:8080",
		Interval:     15 * time.Second,
		Timeout:      3 * time.Second,
		PostTimeout:  10 * time.Second,
		PingCount:    3,
		Concurrency:  8,
		FallbackRSSI: -60,
		Retries:      3,
		RetryBackoff: 2 * time.Second,
	}
}

// LoadConfig reads agent configuration from file and environment
// variables. A missing config file is fine; defaults apply.
func LoadConfig(configPath string) (*Config, error) {
	v := viper.New()

	// Defaults
	v.SetDefault("server_url", "http://localhost:8080")
	v.SetDefault("interval", "15s")
	v.SetDefault("timeout", "3s")
	v.SetDefault("post_timeout", "10s")
	v.SetDefault("ping_count", 3)
	v.SetDefault("privileged", false)
	v.SetDefault("concurrency", 8)
	v.SetDefault("fallback_rssi", -60.0)
	v.SetDefault("retries", 3)
	v.SetDefault("retry_backoff", "2s")

	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		v.SetConfigName("ranger")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("./configs")
		v.AddConfigPath("/etc/wavesight")
	}

	// Environment variable support: RANGER_AGENT_KEY keeps the key out
	// of config files.
	v.SetEnvPrefix("RANGER")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("reading config: %w", err)
		}
		// Config file not found is fine -- use defaults
	}

	cfg := DefaultConfig()
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}
	if cfg.AgentID == "" {
		cfg.AgentID = hostname()
	}
	return cfg, nil
}

// Validate reports configuration errors.
func (c *Config) Validate() error {
	if c.ServerURL == "" {
		return errors.New("server_url is required")
	}
	if c.Interval <= 0 {
		return errors.New("interval must be positive")
	}
	if c.Timeout <= 0 {
		return errors.New("timeout must be positive")
	}
	if c.PostTimeout <= 0 {
		return errors.New("post_timeout must be positive")
	}
	if c.PingCount < 1 {
		return errors.New("ping_count must be at least 1")
	}
	if c.Concurrency < 1 {
		return errors.New("concurrency must be at least 1")
	}
	if c.Retries < 0 {
		return errors.New("retries must be non-negative")
	}
	if c.RetryBackoff <= 0 {
		return errors.New("retry_backoff must be positive")
	}
	for i, t := range c.Targets {
		if t.DeviceID == "" {
			return fmt.Errorf("target %d: device_id is required", i)
		}
		if t.Address == "" {
			return fmt.Errorf("target %d (%s): address is required", i, t.DeviceID)
		}
	}
	return nil
}

func hostname() string {
	h, _ := os.Hostname()
	if h == "" {
		return "ranger"
	}
	return h
}
