package atlas

import (
	"fmt"
	"sort"
	"time"

	"github.com/HerbHall/wavesight/pkg/models"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// minPositionedDevices is the floor under any clustering pass: with fewer
// located devices than this, region shapes are meaningless.
const minPositionedDevices = 3

// rebuildRegions recomputes the anomaly region set from the current device
// tracks and swaps it in atomically. Every produced region is published;
// an alert fires only for high-severity regions appearing where the
// previous pass had none nearby.
func (m *Module) rebuildRegions(now time.Time) []models.AnomalyRegion {
	tracks := m.track.snapshot()

	var positioned []trackSnapshot
	for _, t := range tracks {
		if t.HasPosition {
			positioned = append(positioned, t)
		}
	}

	var regions []models.AnomalyRegion
	if len(positioned) >= minPositionedDevices {
		var qualifying []trackSnapshot
		for _, t := range positioned {
			if t.MeanScore > clusterScoreGate {
				qualifying = append(qualifying, t)
			}
		}
		if len(qualifying) >= m.cfg.ClusterMinSamples {
			regions = m.clusterRegions(qualifying, positioned, now)
		}
	}

	m.mu.Lock()
	prev := m.regions
	m.regions = regions
	m.regionsAt = now
	m.mu.Unlock()

	for _, region := range regions {
		m.publish(TopicRegion, region)
		if region.Severity == models.SeverityHigh && !nearExisting(prev, region.Centre, m.cfg.ClusterEps) {
			m.publish(TopicAlert, models.Alert{
				ID:        uuid.NewString(),
				Kind:      models.AlertRegion,
				Severity:  models.SeverityHigh,
				RegionID:  region.ID,
				Title:     "Anomaly region detected",
				Detail:    fmt.Sprintf("%d devices, confidence %.2f", len(region.MemberDeviceIDs), region.Confidence),
				CreatedAt: now,
			})
			m.logger.Warn("high-severity anomaly region",
				zap.String("region_id", region.ID),
				zap.Float64("centre_x", region.Centre.X),
				zap.Float64("centre_y", region.Centre.Y),
				zap.Float64("radius", region.Radius),
				zap.Strings("members", region.MemberDeviceIDs),
			)
		}
	}
	return regions
}

// clusterRegions runs DBSCAN over the qualifying devices and shapes each
// non-noise cluster into a region. Membership and confidence are judged
// against every positioned device, not just the cluster seeds: a healthy
// device sitting inside a trouble zone belongs in the report.
func (m *Module) clusterRegions(qualifying, positioned []trackSnapshot, now time.Time) []models.AnomalyRegion {
	points := make([]models.Point, len(qualifying))
	for i, t := range qualifying {
		points[i] = t.Position.Point()
	}
	labels := dbscan(points, m.cfg.ClusterEps, m.cfg.ClusterMinSamples)

	clusters := make(map[int][]models.Point)
	for i, label := range labels {
		if label >= 0 {
			clusters[label] = append(clusters[label], points[i])
		}
	}

	var regions []models.AnomalyRegion
	for _, pts := range clusters {
		var centre models.Point
		for _, p := range pts {
			centre.X += p.X
			centre.Y += p.Y
		}
		centre.X /= float64(len(pts))
		centre.Y /= float64(len(pts))

		radius := 0.0
		for _, p := range pts {
			if d := centre.DistanceTo(p); d > radius {
				radius = d
			}
		}

		var members []string
		var scoreSum float64
		for _, t := range positioned {
			if centre.DistanceTo(t.Position.Point()) <= radius {
				members = append(members, t.DeviceID)
				scoreSum += t.MeanScore
			}
		}
		sort.Strings(members)

		confidence := 0.0
		if len(members) > 0 {
			confidence = scoreSum / float64(len(members))
		}
		severity := models.SeverityMedium
		if confidence > 0.7 {
			severity = models.SeverityHigh
		}

		regions = append(regions, models.AnomalyRegion{
			ID:              uuid.NewString(),
			Centre:          centre,
			Radius:          radius,
			Severity:        severity,
			Kind:            models.RegionKindSignal,
			Confidence:      confidence,
			MemberDeviceIDs: members,
			CreatedAt:       now,
		})
	}

	sort.Slice(regions, func(i, j int) bool {
		if regions[i].Centre.X != regions[j].Centre.X {
			return regions[i].Centre.X < regions[j].Centre.X
		}
		return regions[i].Centre.Y < regions[j].Centre.Y
	})
	return regions
}

// nearExisting reports whether any previous region's centre lies within
// eps of the point. Used to tell a newly-formed region from a persisting
// one, which keeps a stable trouble zone from re-alerting every pass.
func nearExisting(regions []models.AnomalyRegion, p models.Point, eps float64) bool {
	for _, r := range regions {
		if r.Centre.DistanceTo(p) <= eps {
			return true
		}
	}
	return false
}

// Regions returns the active region set from the last clustering pass.
func (m *Module) Regions() []models.AnomalyRegion {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]models.AnomalyRegion, len(m.regions))
	copy(out, m.regions)
	return out
}
