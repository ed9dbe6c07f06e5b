package mqtt

import (
	"errors"
	"time"
)

// Config holds MQTT bridge configuration.
type Config struct {
	BrokerURL   string        `mapstructure:"broker_url"`
	Username    string        `mapstructure:"username"`
	Password    string        `mapstructure:"password"` //nolint:gosec // G101: config field name, not a credential
	ClientID    string        `mapstructure:"client_id"`
	TopicPrefix string        `mapstructure:"topic_prefix"`
	QoS         byte          `mapstructure:"qos"`
	Retain      bool          `mapstructure:"retain"`
	Timeout     time.Duration `mapstructure:"timeout"`

	// Home Assistant MQTT auto-discovery settings.
	HADiscovery       bool   `mapstructure:"ha_discovery"`
	HADiscoveryPrefix string `mapstructure:"ha_discovery_prefix"`
}

// DefaultConfig returns the bridge defaults. The broker URL is empty, which
// leaves the bridge in no-op mode.
func DefaultConfig() Config {
	return Config{
		ClientID:          "wavesight",
		TopicPrefix:       "wavesight",
		QoS:               1,
		Retain:            true,
		Timeout:           10 * time.Second,
		HADiscovery:       false,
		HADiscoveryPrefix: "homeassistant",
	}
}

// Validate checks configuration invariants.
func (c Config) Validate() error {
	if c.QoS > 2 {
		return errors.New("qos must be 0, 1, or 2")
	}
	if c.Timeout <= 0 {
		return errors.New("timeout must be positive")
	}
	if c.TopicPrefix == "" {
		return errors.New("topic_prefix must not be empty")
	}
	if c.HADiscovery && c.HADiscoveryPrefix == "" {
		return errors.New("ha_discovery_prefix must not be empty when discovery is enabled")
	}
	return nil
}
