// Package registry drives the plugin lifecycle: registration, dependency
// and API-version validation, ordered init/start, and reverse-order stop.
//
// A required plugin failing any phase aborts startup. An optional plugin
// failing is disabled, along with everything that depends on it, and the
// server comes up without them.
package registry

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/HerbHall/wavesight/pkg/plugin"
	"go.uber.org/zap"
)

// entry is everything the registry tracks for one plugin.
type entry struct {
	plugin   plugin.Plugin
	info     plugin.PluginInfo
	disabled bool
	unsubs   []func()
}

// Registry owns every registered plugin and its lifecycle state.
type Registry struct {
	mu      sync.RWMutex
	entries map[string]*entry
	order   []string // start order, valid after Validate
	logger  *zap.Logger
}

// New creates an empty registry.
func New(logger *zap.Logger) *Registry {
	return &Registry{
		entries: make(map[string]*entry),
		logger:  logger,
	}
}

// Register adds a plugin. All registration happens before Validate.
func (r *Registry) Register(p plugin.Plugin) error {
	info := p.Info()
	if info.Name == "" {
		return fmt.Errorf("plugin has no name")
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if _, dup := r.entries[info.Name]; dup {
		return fmt.Errorf("plugin %q registered twice", info.Name)
	}
	r.entries[info.Name] = &entry{plugin: p, info: info}

	r.logger.Info("plugin registered",
		zap.String("name", info.Name),
		zap.String("version", info.Version),
		zap.Int("api_version", info.APIVersion),
	)
	return nil
}

// disable marks a plugin unusable for the given reason. Required plugins
// turn the reason into a startup error instead.
func (r *Registry) disable(e *entry, reason string, err error) error {
	if e.info.Required {
		if err != nil {
			return fmt.Errorf("required plugin %q: %s: %w", e.info.Name, reason, err)
		}
		return fmt.Errorf("required plugin %q: %s", e.info.Name, reason)
	}
	e.disabled = true
	r.logger.Warn("plugin disabled",
		zap.String("name", e.info.Name),
		zap.String("reason", reason),
		zap.Error(err),
	)
	return nil
}

// Validate checks API versions, resolves the dependency graph, and fixes
// the start order. Independent plugins start in name order, so the order
// is stable across runs.
func (r *Registry) Validate() error {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, e := range r.sortedEntries() {
		if err := apiVersionErr(e.info); err != nil {
			if derr := r.disable(e, "incompatible plugin API", err); derr != nil {
				return derr
			}
			continue
		}
		if e.info.APIVersion < plugin.APIVersionCurrent && !e.disabled {
			r.logger.Warn("plugin targets an older plugin API",
				zap.String("name", e.info.Name),
				zap.Int("plugin_api", e.info.APIVersion),
				zap.Int("current_api", plugin.APIVersionCurrent),
			)
		}
	}

	for _, e := range r.sortedEntries() {
		if e.disabled {
			continue
		}
		for _, dep := range e.info.Dependencies {
			if _, ok := r.entries[dep]; !ok {
				if err := r.disable(e, fmt.Sprintf("dependency %q not registered", dep), nil); err != nil {
					return err
				}
				break
			}
		}
	}

	// Disabling one plugin takes down its dependents, transitively.
	for changed := true; changed; {
		changed = false
		for _, e := range r.sortedEntries() {
			if e.disabled {
				continue
			}
			for _, dep := range e.info.Dependencies {
				if d, ok := r.entries[dep]; ok && d.disabled {
					if err := r.disable(e, fmt.Sprintf("dependency %q is disabled", dep), nil); err != nil {
						return err
					}
					changed = true
					break
				}
			}
		}
	}

	order, err := r.startOrder()
	if err != nil {
		return err
	}
	r.order = order

	r.logger.Info("plugin graph resolved",
		zap.Strings("start_order", order),
		zap.Int("disabled", len(r.entries)-len(order)),
	)
	return nil
}

// InitAll initializes active plugins in start order, validating configs
// and wiring declared event subscriptions as it goes.
func (r *Registry) InitAll(ctx context.Context, depsFn func(name string) plugin.Dependencies) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, name := range r.order {
		e := r.entries[name]
		if e.disabled {
			continue
		}
		r.logger.Info("initializing plugin", zap.String("name", name))

		deps := depsFn(name)
		if err := guard(name, "Init", func() error { return e.plugin.Init(ctx, deps) }); err != nil {
			if derr := r.disable(e, "init failed", err); derr != nil {
				return derr
			}
			continue
		}
		if v, ok := e.plugin.(plugin.Validator); ok {
			if err := v.ValidateConfig(); err != nil {
				if derr := r.disable(e, "config rejected", err); derr != nil {
					return derr
				}
				continue
			}
		}

		if es, ok := e.plugin.(plugin.EventSubscriber); ok && deps.Bus != nil {
			for _, sub := range es.Subscriptions() {
				e.unsubs = append(e.unsubs, deps.Bus.Subscribe(sub.Topic, sub.Handler))
				r.logger.Debug("subscription wired",
					zap.String("plugin", name),
					zap.String("topic", sub.Topic),
				)
			}
		}
	}
	return nil
}

// StartAll starts initialized plugins in start order.
func (r *Registry) StartAll(ctx context.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, name := range r.order {
		e := r.entries[name]
		if e.disabled {
			continue
		}
		r.logger.Info("starting plugin", zap.String("name", name))
		if err := guard(name, "Start", func() error { return e.plugin.Start(ctx) }); err != nil {
			if derr := r.disable(e, "start failed", err); derr != nil {
				return derr
			}
		}
	}
	return nil
}

// StopAll stops active plugins in reverse start order. Each plugin's
// event subscriptions come off the bus before its Stop runs, so no
// handler fires into a plugin that is tearing down.
func (r *Registry) StopAll(ctx context.Context) {
	r.mu.Lock()
	defer r.mu.Unlock()

	for i := len(r.order) - 1; i >= 0; i-- {
		e := r.entries[r.order[i]]
		if e.disabled {
			continue
		}
		for _, unsub := range e.unsubs {
			unsub()
		}
		e.unsubs = nil

		r.logger.Info("stopping plugin", zap.String("name", e.info.Name))
		if err := guard(e.info.Name, "Stop", func() error { return e.plugin.Stop(ctx) }); err != nil {
			r.logger.Error("plugin stop failed", zap.String("name", e.info.Name), zap.Error(err))
		}
	}
}

// Get returns an active plugin by name.
func (r *Registry) Get(name string) (plugin.Plugin, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	e, ok := r.entries[name]
	if !ok || e.disabled {
		return nil, false
	}
	return e.plugin, true
}

// Resolve implements plugin.PluginResolver.
func (r *Registry) Resolve(name string) (plugin.Plugin, bool) {
	return r.Get(name)
}

// ResolveByRole implements plugin.PluginResolver, returning active
// plugins declaring the role in start order.
func (r *Registry) ResolveByRole(role string) []plugin.Plugin {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var out []plugin.Plugin
	for _, name := range r.order {
		e := r.entries[name]
		if e.disabled {
			continue
		}
		for _, have := range e.info.Roles {
			if have == role {
				out = append(out, e.plugin)
				break
			}
		}
	}
	return out
}

// All returns active plugins in start order.
func (r *Registry) All() []plugin.Plugin {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]plugin.Plugin, 0, len(r.order))
	for _, name := range r.order {
		if e := r.entries[name]; !e.disabled {
			out = append(out, e.plugin)
		}
	}
	return out
}

// AllRoutes collects HTTP routes from active plugins, keyed by plugin
// name.
func (r *Registry) AllRoutes() map[string][]plugin.Route {
	r.mu.RLock()
	defer r.mu.RUnlock()

	routes := make(map[string][]plugin.Route)
	for _, name := range r.order {
		e := r.entries[name]
		if e.disabled {
			continue
		}
		if hp, ok := e.plugin.(plugin.HTTPProvider); ok {
			if own := hp.Routes(); len(own) > 0 {
				routes[name] = own
			}
		}
	}
	return routes
}

// IsDisabled reports whether the named plugin was disabled.
func (r *Registry) IsDisabled(name string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	e, ok := r.entries[name]
	return ok && e.disabled
}

// sortedEntries returns entries in name order. Callers hold r.mu.
func (r *Registry) sortedEntries() []*entry {
	names := make([]string, 0, len(r.entries))
	for name := range r.entries {
		names = append(names, name)
	}
	sort.Strings(names)

	out := make([]*entry, len(names))
	for i, name := range names {
		out[i] = r.entries[name]
	}
	return out
}

// startOrder topologically sorts the active plugins, breaking ties by
// name. Callers hold r.mu.
func (r *Registry) startOrder() ([]string, error) {
	// waiting counts unstarted dependencies per plugin; blocks maps a
	// dependency to the plugins waiting on it.
	waiting := make(map[string]int)
	blocks := make(map[string][]string)

	for name, e := range r.entries {
		if e.disabled {
			continue
		}
		waiting[name] = 0
		for _, dep := range e.info.Dependencies {
			if d, ok := r.entries[dep]; ok && !d.disabled {
				waiting[name]++
				blocks[dep] = append(blocks[dep], name)
			}
		}
	}

	var ready []string
	for name, n := range waiting {
		if n == 0 {
			ready = append(ready, name)
		}
	}
	sort.Strings(ready)

	order := make([]string, 0, len(waiting))
	for len(ready) > 0 {
		name := ready[0]
		ready = ready[1:]
		order = append(order, name)

		released := blocks[name]
		sort.Strings(released)
		for _, dependent := range released {
			if waiting[dependent]--; waiting[dependent] == 0 {
				ready = append(ready, dependent)
			}
		}
		sort.Strings(ready)
	}

	if len(order) != len(waiting) {
		var stuck []string
		for name := range waiting {
			if waiting[name] > 0 {
				stuck = append(stuck, name)
			}
		}
		sort.Strings(stuck)
		return nil, fmt.Errorf("plugin dependency cycle: %v", stuck)
	}
	return order, nil
}

// apiVersionErr checks a plugin's API version against the supported
// range.
func apiVersionErr(info plugin.PluginInfo) error {
	switch {
	case info.APIVersion < plugin.APIVersionMin:
		return fmt.Errorf("plugin %q speaks plugin API v%d, below the supported minimum v%d",
			info.Name, info.APIVersion, plugin.APIVersionMin)
	case info.APIVersion > plugin.APIVersionCurrent:
		return fmt.Errorf("plugin %q speaks plugin API v%d, above the server's v%d",
			info.Name, info.APIVersion, plugin.APIVersionCurrent)
	}
	return nil
}

// guard runs one lifecycle call, converting a panic into an error so a
// single plugin cannot take the process down.
func guard(name, phase string, fn func() error) (err error) {
	defer func() {
		if rec := recover(); rec != nil {
			err = fmt.Errorf("plugin %q panicked in %s: %v", name, phase, rec)
		}
	}()
	return fn()
}
