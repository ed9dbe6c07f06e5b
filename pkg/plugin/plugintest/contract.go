// Package plugintest holds the behavioral contract every plugin must
// satisfy before the registry will manage it. Each module runs it from
// its own test file.
package plugintest

import (
	"context"
	"testing"

	"github.com/HerbHall/wavesight/pkg/plugin"
	"go.uber.org/zap"
)

// TestPluginContract checks a plugin implementation against the
// lifecycle rules the registry relies on:
//
//	func TestContract(t *testing.T) {
//	    plugintest.TestPluginContract(t, func() plugin.Plugin { return telemetry.New() })
//	}
//
// The factory must return a fresh instance per call; checks do not
// share state.
func TestPluginContract(t *testing.T, factory func() plugin.Plugin) {
	t.Helper()

	checks := []struct {
		name string
		run  func(t *testing.T, p plugin.Plugin)
	}{
		{"info names the plugin", func(t *testing.T, p plugin.Plugin) {
			info := p.Info()
			if info.Name == "" {
				t.Error("Info().Name is empty")
			}
			if info.Version == "" {
				t.Error("Info().Version is empty")
			}
			if info.APIVersion < plugin.APIVersionMin {
				t.Errorf("Info().APIVersion = %d, want at least %d", info.APIVersion, plugin.APIVersionMin)
			}
		}},

		{"init accepts bare dependencies", func(t *testing.T, p plugin.Plugin) {
			if err := p.Init(context.Background(), bareDeps(p)); err != nil {
				t.Fatalf("Init: %v", err)
			}
		}},

		{"start follows init", func(t *testing.T, p plugin.Plugin) {
			ctx := context.Background()
			if err := p.Init(ctx, bareDeps(p)); err != nil {
				t.Fatalf("Init: %v", err)
			}
			if err := p.Start(ctx); err != nil {
				t.Fatalf("Start: %v", err)
			}
			p.Stop(ctx)
		}},

		{"stop before start is harmless", func(t *testing.T, p plugin.Plugin) {
			ctx := context.Background()
			if err := p.Init(ctx, bareDeps(p)); err != nil {
				t.Fatalf("Init: %v", err)
			}
			if err := p.Stop(ctx); err != nil {
				t.Fatalf("Stop without Start: %v", err)
			}
		}},

		{"info is stable", func(t *testing.T, p plugin.Plugin) {
			first, second := p.Info(), p.Info()
			if first.Name != second.Name || first.Version != second.Version {
				t.Errorf("Info changed between calls: %+v then %+v", first, second)
			}
		}},
	}

	for _, c := range checks {
		t.Run(c.name, func(t *testing.T) {
			c.run(t, factory())
		})
	}
}

// bareDeps is the minimum dependency set a plugin must cope with: a
// logger and nothing else.
func bareDeps(p plugin.Plugin) plugin.Dependencies {
	return plugin.Dependencies{
		Logger: zap.NewNop().Named(p.Info().Name),
	}
}
