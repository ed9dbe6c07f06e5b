package mqtt

import (
	"encoding/json"
	"fmt"
	"regexp"
	"strings"
)

// nonAlphanumeric matches any character that is not alphanumeric or underscore.
var nonAlphanumeric = regexp.MustCompile(`[^a-zA-Z0-9_]`)

// DiscoveryConfig holds a single Home Assistant MQTT discovery payload.
// Discovery topics are always published retained so HA picks them up after
// a restart.
type DiscoveryConfig struct {
	Topic   string // full discovery topic (homeassistant/...)
	Payload []byte // JSON-encoded entity config
}

// HADevice is the "device" block shared by all of one device's entities in
// HA discovery payloads.
type HADevice struct {
	Identifiers []string `json:"identifiers"`
	Name        string   `json:"name"`
	ViaDevice   string   `json:"via_device,omitempty"`
}

// BinarySensorConfig is the HA discovery payload for binary_sensor.
type BinarySensorConfig struct {
	Name        string   `json:"name"`
	ObjectID    string   `json:"object_id"`
	UniqueID    string   `json:"unique_id"`
	StateTopic  string   `json:"state_topic"`
	DeviceClass string   `json:"device_class,omitempty"`
	PayloadOn   string   `json:"payload_on"`
	PayloadOff  string   `json:"payload_off"`
	Device      HADevice `json:"device"`
	Icon        string   `json:"icon,omitempty"`
}

// SensorConfig is the HA discovery payload for sensor.
type SensorConfig struct {
	Name       string   `json:"name"`
	ObjectID   string   `json:"object_id"`
	UniqueID   string   `json:"unique_id"`
	StateTopic string   `json:"state_topic"`
	Icon       string   `json:"icon,omitempty"`
	Device     HADevice `json:"device"`
}

// SafeObjectID sanitizes a string for use as an HA object_id. Replaces any
// non-alphanumeric character (except underscore) with underscore, lowercases,
// and trims leading/trailing underscores.
func SafeObjectID(s string) string {
	s = strings.ToLower(s)
	s = nonAlphanumeric.ReplaceAllString(s, "_")
	s = strings.Trim(s, "_")
	if s == "" {
		return "unknown"
	}
	return s
}

// buildHADevice creates the HA device block for a monitored device.
func buildHADevice(deviceID string) HADevice {
	return HADevice{
		Identifiers: []string{"wavesight_" + deviceID},
		Name:        deviceID,
		ViaDevice:   "wavesight",
	}
}

// BuildDeviceDiscoveryConfigs creates HA discovery payloads for one device:
// a health score sensor, a risk level sensor, and a problem binary_sensor.
// State topics sit under <topicPrefix>/device/<id>/ and are kept retained by
// the bridge.
func BuildDeviceDiscoveryConfigs(deviceID, topicPrefix, haPrefix string) []DiscoveryConfig {
	if deviceID == "" {
		return nil
	}

	safeID := SafeObjectID(deviceID)
	haDevice := buildHADevice(deviceID)
	stateBase := topicPrefix + "/device/" + deviceID

	configs := make([]DiscoveryConfig, 0, 3)

	scoreCfg := SensorConfig{
		Name:       deviceID + " Health",
		ObjectID:   "wavesight_" + safeID + "_health",
		UniqueID:   "wavesight_" + safeID + "_health",
		StateTopic: stateBase + "/score",
		Icon:       "mdi:heart-pulse",
		Device:     haDevice,
	}
	if payload, err := json.Marshal(scoreCfg); err == nil {
		configs = append(configs, DiscoveryConfig{
			Topic:   fmt.Sprintf("%s/sensor/wavesight_%s/health/config", haPrefix, safeID),
			Payload: payload,
		})
	}

	riskCfg := SensorConfig{
		Name:       deviceID + " Risk",
		ObjectID:   "wavesight_" + safeID + "_risk",
		UniqueID:   "wavesight_" + safeID + "_risk",
		StateTopic: stateBase + "/risk",
		Icon:       "mdi:gauge",
		Device:     haDevice,
	}
	if payload, err := json.Marshal(riskCfg); err == nil {
		configs = append(configs, DiscoveryConfig{
			Topic:   fmt.Sprintf("%s/sensor/wavesight_%s/risk/config", haPrefix, safeID),
			Payload: payload,
		})
	}

	problemCfg := BinarySensorConfig{
		Name:        deviceID + " Problem",
		ObjectID:    "wavesight_" + safeID + "_problem",
		UniqueID:    "wavesight_" + safeID + "_problem",
		StateTopic:  stateBase + "/problem",
		DeviceClass: "problem",
		PayloadOn:   "ON",
		PayloadOff:  "OFF",
		Device:      haDevice,
	}
	if payload, err := json.Marshal(problemCfg); err == nil {
		configs = append(configs, DiscoveryConfig{
			Topic:   fmt.Sprintf("%s/binary_sensor/wavesight_%s/problem/config", haPrefix, safeID),
			Payload: payload,
		})
	}

	return configs
}
