// Package config adapts Viper to the plugin.Config interface and builds
// the process logger from the loaded settings.
package config

import (
	"time"

	"github.com/HerbHall/wavesight/pkg/plugin"
	"github.com/spf13/viper"
)

var _ plugin.Config = (*Section)(nil)

// Section is one subtree of the loaded configuration. The composition
// root hands each plugin its own section, so a plugin never sees keys
// outside its namespace.
type Section struct {
	v *viper.Viper
}

// New wraps a Viper instance. A nil instance yields an empty section,
// which reads as zero values; plugins fall back to their defaults.
func New(v *viper.Viper) *Section {
	if v == nil {
		v = viper.New()
	}
	return &Section{v: v}
}

// Sub returns the named subtree. Missing keys yield an empty section
// rather than nil so callers can chain without checking.
func (s *Section) Sub(key string) plugin.Config {
	return New(s.v.Sub(key))
}

// Unmarshal decodes the section into target via mapstructure tags.
func (s *Section) Unmarshal(target any) error {
	return s.v.Unmarshal(target)
}

// IsSet reports whether the key was given explicitly, distinguishing an
// absent key from an explicit zero value.
func (s *Section) IsSet(key string) bool {
	return s.v.IsSet(key)
}

func (s *Section) Get(key string) any { return s.v.Get(key) }

func (s *Section) GetString(key string) string { return s.v.GetString(key) }

func (s *Section) GetInt(key string) int { return s.v.GetInt(key) }

func (s *Section) GetBool(key string) bool { return s.v.GetBool(key) }

func (s *Section) GetFloat64(key string) float64 { return s.v.GetFloat64(key) }

func (s *Section) GetDuration(key string) time.Duration { return s.v.GetDuration(key) }
