package atlas

import (
	"context"
	"fmt"
	"math"
	"sort"
	"sync"
	"time"

	"github.com/HerbHall/wavesight/pkg/models"
)

// anchorSet is the in-memory anchor registry. Reads never touch the
// database; writes go through the store when one is wired.
type anchorSet struct {
	mu      sync.RWMutex
	anchors map[string]models.Anchor
}

func newAnchorSet() *anchorSet {
	return &anchorSet{anchors: make(map[string]models.Anchor)}
}

func (s *anchorSet) put(a models.Anchor) {
	s.mu.Lock()
	s.anchors[a.ID] = a
	s.mu.Unlock()
}

func (s *anchorSet) remove(id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.anchors[id]; !ok {
		return false
	}
	delete(s.anchors, id)
	return true
}

func (s *anchorSet) get(id string) (models.Anchor, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	a, ok := s.anchors[id]
	return a, ok
}

func (s *anchorSet) count() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.anchors)
}

// list returns all anchors sorted by ID.
func (s *anchorSet) list() []models.Anchor {
	s.mu.RLock()
	out := make([]models.Anchor, 0, len(s.anchors))
	for _, a := range s.anchors {
		out = append(out, a)
	}
	s.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// SetAnchor registers or moves a triangulation anchor and persists it. The
// registry is updated even when the store write fails, so a flaky disk
// degrades durability, not positioning.
func (m *Module) SetAnchor(ctx context.Context, a models.Anchor) (models.Anchor, error) {
	if a.ID == "" {
		return models.Anchor{}, fmt.Errorf("anchor id is required")
	}
	for name, v := range map[string]float64{"x": a.X, "y": a.Y, "ref_rssi": a.RefRSSI} {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return models.Anchor{}, fmt.Errorf("anchor %s must be finite", name)
		}
	}
	a.UpdatedAt = time.Now()
	m.anchors.put(a)

	if m.store != nil {
		if err := m.store.UpsertAnchor(ctx, a); err != nil {
			return a, fmt.Errorf("persist anchor: %w", err)
		}
	}
	return a, nil
}

// RemoveAnchor deletes an anchor. It reports whether the anchor existed.
func (m *Module) RemoveAnchor(ctx context.Context, id string) (bool, error) {
	if !m.anchors.remove(id) {
		return false, nil
	}
	if m.store != nil {
		if err := m.store.DeleteAnchor(ctx, id); err != nil {
			return true, fmt.Errorf("delete anchor: %w", err)
		}
	}
	return true, nil
}

// Anchors returns the registered anchors sorted by ID.
func (m *Module) Anchors() []models.Anchor {
	return m.anchors.list()
}
