// Package seed populates a fresh WaveSight server with a small demo
// fleet. Measurements flow through the real ingest pipeline rather than
// straight into storage, so smoothing, anomaly scoring, health
// assessment, and positioning all see the same data a live deployment
// would produce.
package seed

import (
	"context"
	"fmt"
	"math"
	"math/rand/v2"
	"time"

	"github.com/HerbHall/wavesight/internal/telemetry"
	"github.com/HerbHall/wavesight/pkg/models"
)

// Ingester is the slice of the telemetry pipeline the seeder drives.
// Satisfied by *telemetry.Module.
type Ingester interface {
	Ingest(ctx context.Context, m models.Measurement) (*telemetry.IngestResult, error)
	DeviceIDs() []string
}

// AnchorSetter registers triangulation anchors. Satisfied by
// *atlas.Module. A nil AnchorSetter skips anchor seeding, which leaves
// the fleet unpositioned but otherwise fully functional.
type AnchorSetter interface {
	SetAnchor(ctx context.Context, a models.Anchor) (models.Anchor, error)
}

const (
	fleetSpan = 45 * time.Minute
	fleetStep = 30 * time.Second
)

// SeedDemoFleet loads the demo fleet: four anchors framing the site and
// five devices with forty-five minutes of history each, covering
// healthy, degrading, roaming, flaky, and battery-constrained behavior.
//
// It is idempotent: when the pipeline already tracks devices, the seed
// is skipped. Call it after the plugins have started so positioning and
// health recompute engage.
func SeedDemoFleet(ctx context.Context, pipe Ingester, anchors AnchorSetter) error {
	if len(pipe.DeviceIDs()) > 0 {
		return nil // fleet already present, or live agents beat us to it
	}

	if anchors != nil {
		if err := seedAnchors(ctx, anchors); err != nil {
			return fmt.Errorf("seed anchors: %w", err)
		}
	}
	if err := seedFleetHistory(ctx, pipe); err != nil {
		return fmt.Errorf("seed fleet history: %w", err)
	}
	return nil
}

// demoAnchors frame a 60 x 40 meter site, one per corner.
func demoAnchors() []models.Anchor {
	return []models.Anchor{
		{ID: "anchor-sw", X: 0, Y: 0, RefRSSI: -40},
		{ID: "anchor-se", X: 60, Y: 0, RefRSSI: -40},
		{ID: "anchor-ne", X: 60, Y: 40, RefRSSI: -40},
		{ID: "anchor-nw", X: 0, Y: 40, RefRSSI: -40},
	}
}

func seedAnchors(ctx context.Context, anchors AnchorSetter) error {
	for _, a := range demoAnchors() {
		if _, err := anchors.SetAnchor(ctx, a); err != nil {
			return fmt.Errorf("set anchor %s: %w", a.ID, err)
		}
	}
	return nil
}

// fleetProfile describes the simulated radio and health behavior of one
// demo device. Drift and growth values are the total change from the
// first sample to the last.
type fleetProfile struct {
	deviceID  string
	agentID   string
	baseRSSI  float64 // dBm at span start
	rssiDrift float64 // dBm added across the span
	jitter    float64 // dBm standard deviation
	baseRTT   float64 // ms; 0 disables the channel
	rttGrowth float64 // ms added across the span
	errorRate float64 // per-sample error probability, scaled by progress
	baseTemp  float64 // C; 0 disables the channel
	tempDrift float64 // C added across the span
	batteryHi float64 // percent at span start; 0 means mains powered
	batteryLo float64 // percent at span end

	// path holds waypoints for roaming devices; the device walks the
	// full path over the span.
	path []models.Point

	// offlineFrom..offlineTo is a sample index range reported offline.
	// offlineTo 0 means always online.
	offlineFrom, offlineTo int
}

// demoFleet returns the seeded device profiles. The values are tuned
// against the health rule table so the fleet spans the status bands: the
// lobby AP scores healthy, the warehouse AP lands critical, and the
// cold-storage sensor sits in between.
func demoFleet() []fleetProfile {
	return []fleetProfile{
		{
			// Healthy access point: strong, quiet, cool.
			deviceID: "ap-lobby",
			agentID:  "ranger-lobby",
			baseRSSI: -48, jitter: 1.5,
			baseRTT:  3,
			baseTemp: 38,
		},
		{
			// Degrading access point: signal sliding, latency climbing,
			// errors and heat building toward failure.
			deviceID: "ap-warehouse",
			agentID:  "ranger-warehouse",
			baseRSSI: -62, rssiDrift: -20, jitter: 2.5,
			baseRTT: 180, rttGrowth: 700,
			errorRate: 0.2,
			baseTemp:  62, tempDrift: 17,
		},
		{
			// Roaming handheld: noisy signal and a draining battery on a
			// walking path across the site.
			deviceID: "scanner-07",
			agentID:  "ranger-floor",
			baseRSSI: -58, jitter: 5,
			baseRTT:   12,
			batteryHi: 96, batteryLo: 41,
			path: []models.Point{
				{X: 6, Y: 4}, {X: 28, Y: 10}, {X: 52, Y: 18},
				{X: 44, Y: 34}, {X: 14, Y: 30},
			},
		},
		{
			// Flaky camera: fine except a mid-span outage with an error
			// burst on either side.
			deviceID: "cam-dock",
			agentID:  "ranger-dock",
			baseRSSI: -63, jitter: 2,
			baseRTT:     25,
			baseTemp:    41,
			offlineFrom: 52, offlineTo: 57,
		},
		{
			// Cold-storage sensor: weak far link on a dying battery.
			deviceID: "sensor-cold",
			agentID:  "ranger-dock",
			baseRSSI: -77, jitter: 3,
			batteryHi: 19, batteryLo: 9,
			baseTemp: 4,
		},
	}
}

// seedFleetHistory walks each profile through the span, one measurement
// per step, pushing every sample through the real pipeline.
func seedFleetHistory(ctx context.Context, pipe Ingester) error {
	now := time.Now().UTC()
	steps := int(fleetSpan / fleetStep)
	start := now.Add(-time.Duration(steps) * fleetStep)

	for _, p := range demoFleet() {
		for i := 0; i < steps; i++ {
			ts := start.Add(time.Duration(i+1) * fleetStep)
			m := p.measurementAt(i, steps, ts)
			if _, err := pipe.Ingest(ctx, m); err != nil {
				return fmt.Errorf("ingest %s at %s: %w", p.deviceID, ts.Format(time.RFC3339), err)
			}
		}
	}
	return nil
}

// measurementAt synthesizes the profile's sample i of n at ts.
func (p fleetProfile) measurementAt(i, n int, ts time.Time) models.Measurement {
	progress := float64(i) / float64(n-1)
	offline := p.offlineTo > 0 && i >= p.offlineFrom && i <= p.offlineTo

	rssi := p.baseRSSI + p.rssiDrift*progress + rand.NormFloat64()*p.jitter //nolint:gosec // G404: demo data uses weak RNG intentionally
	if offline {
		rssi -= 12 // outages show up on the radio too
	}

	m := models.Measurement{
		DeviceID:  p.deviceID,
		AgentID:   p.agentID,
		Timestamp: ts,
		RSSI:      math.Round(rssi*10) / 10,
	}

	// Headroom over a -92 dBm noise floor.
	if snr := m.RSSI + 92; snr > 0 {
		m.SNR = &snr
	}

	online := !offline
	m.IsOnline = &online

	if p.baseRTT > 0 && online {
		rtt := p.baseRTT + p.rttGrowth*progress + rand.NormFloat64()*p.baseRTT*0.15 //nolint:gosec // G404: demo data
		rtt = math.Max(0.2, math.Round(rtt*100)/100)
		m.ResponseTimeMS = &rtt
	}

	// Degradation back-loads the errors; outages shed a burst on the way
	// down and the way back up.
	errRate := p.errorRate * progress
	if offline || (p.offlineTo > 0 && (i == p.offlineFrom-1 || i == p.offlineTo+1)) {
		errRate = 0.9
	}
	if errRate > 0 && rand.Float64() < errRate { //nolint:gosec // G404: demo data
		errs := 1 + rand.IntN(3) //nolint:gosec // G404: demo data
		m.ErrorCount = &errs
	}

	if p.baseTemp != 0 {
		temp := p.baseTemp + p.tempDrift*progress + rand.NormFloat64()*0.4 //nolint:gosec // G404: demo data
		temp = math.Round(temp*10) / 10
		m.TemperatureC = &temp
	}

	if p.batteryHi > 0 {
		batt := p.batteryHi + (p.batteryLo-p.batteryHi)*progress
		batt = math.Round(batt*10) / 10
		m.BatteryPct = &batt
	}

	if len(p.path) > 0 {
		loc := pathAt(p.path, progress)
		m.Location = &loc
	}

	return m
}

// pathAt linearly interpolates along the waypoint path. progress 0 is
// the first waypoint, 1 the last.
func pathAt(path []models.Point, progress float64) models.Point {
	if len(path) == 1 {
		return path[0]
	}
	pos := progress * float64(len(path)-1)
	seg := int(pos)
	if seg >= len(path)-1 {
		return path[len(path)-1]
	}
	frac := pos - float64(seg)
	a, b := path[seg], path[seg+1]
	return models.Point{
		X: a.X + (b.X-a.X)*frac,
		Y: a.Y + (b.Y-a.Y)*frac,
	}
}
