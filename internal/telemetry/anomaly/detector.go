package anomaly

import (
	"fmt"
	"math"

	"github.com/HerbHall/wavesight/internal/telemetry/ring"
	"github.com/HerbHall/wavesight/pkg/models"
)

const (
	// recentWindow is the number of trailing entries treated as "recent"
	// for the signal composite. Entries before it form the baseline.
	recentWindow = 10

	// minBaseline is the minimum baseline size for the signal composite.
	minBaseline = 5

	// deviceBaseline is how many entries before the current one the
	// latency, disconnect, and temperature checks compare against.
	deviceBaseline = 10

	// scoreDivisor normalises the summed composite contributions to [0,1].
	scoreDivisor = 5
)

// Detector is the statistical scorer. It combines a z-score of the raw RSSI
// against the smoothed baseline with drop and oscillation checks, then runs
// independent latency, disconnect, and temperature checks against the last
// measurements before the current one.
type Detector struct {
	ZCutoff          float64 // z-score considered significant on its own
	DropThreshold    float64 // dBm fall vs the previous smoothed sample
	OscillationLimit float64 // recent smoothed stddev considered unstable
}

var _ Scorer = (*Detector)(nil)

// NewDetector returns a Detector with the default thresholds.
func NewDetector() *Detector {
	return &Detector{
		ZCutoff:          2,
		DropThreshold:    20,
		OscillationLimit: 15,
	}
}

// Score implements Scorer.
func (d *Detector) Score(m models.Measurement, history []ring.Entry) (float64, []Result) {
	if len(history) < recentWindow {
		return 0, nil
	}

	var results []Result
	score := 0.0
	if r, ok := d.signalComposite(m, history); ok {
		score = r.Score
		results = append(results, r)
	}
	if r, ok := d.latencyCheck(m, history); ok {
		results = append(results, r)
	}
	if r, ok := d.disconnectCheck(m, history); ok {
		results = append(results, r)
	}
	if r, ok := d.temperatureCheck(m, history); ok {
		results = append(results, r)
	}
	return score, results
}

// signalComposite scores the raw RSSI against the smoothed baseline. The
// baseline is everything before the recent window and must hold at least
// minBaseline entries with non-zero spread.
func (d *Detector) signalComposite(m models.Measurement, history []ring.Entry) (Result, bool) {
	baseline := history[:len(history)-recentWindow]
	if len(baseline) < minBaseline {
		return Result{}, false
	}
	baseVals := make([]float64, len(baseline))
	for i, e := range baseline {
		baseVals[i] = e.SmoothedRSSI
	}
	baseMean := mean(baseVals)
	baseStd := stdPop(baseVals)
	if baseStd == 0 {
		return Result{}, false
	}

	recent := history[len(history)-recentWindow:]
	recentVals := make([]float64, len(recent))
	for i, e := range recent {
		recentVals[i] = e.SmoothedRSSI
	}

	z := math.Abs(m.RSSI-baseMean) / baseStd
	total := z

	prevSmoothed := recent[len(recent)-2].SmoothedRSSI
	drop := prevSmoothed-m.RSSI > d.DropThreshold
	if drop {
		total += 2
	}

	recentStd := stdPop(recentVals)
	oscillation := len(recent) >= minBaseline && recentStd > d.OscillationLimit
	if oscillation {
		total++
	}

	r := Result{
		Score:    math.Min(1, total/scoreDivisor),
		Kind:     models.AnomalyRSSIDeviation,
		Value:    m.RSSI,
		Expected: baseMean,
	}
	switch {
	case drop:
		r.Kind = models.AnomalyDrop
		r.Description = fmt.Sprintf("Sudden signal drop: %.1f dBm (was %.1f dBm)", m.RSSI, prevSmoothed)
	case oscillation && z <= d.ZCutoff:
		r.Kind = models.AnomalyOscillation
		r.Description = fmt.Sprintf("Signal oscillation: stddev %.1f dBm", recentStd)
	default:
		r.Description = fmt.Sprintf("Signal deviation: %.1f dBm (baseline %.1f dBm)", m.RSSI, baseMean)
	}
	r.Severity = models.SeverityForScore(r.Score)
	return r, true
}

// deviceWindow returns up to deviceBaseline entries immediately before the
// current one (the last history element is the current measurement).
func deviceWindow(history []ring.Entry) []ring.Entry {
	end := len(history) - 1
	start := end - deviceBaseline
	if start < 0 {
		start = 0
	}
	return history[start:end]
}

func (d *Detector) latencyCheck(m models.Measurement, history []ring.Entry) (Result, bool) {
	if m.ResponseTimeMS == nil {
		return Result{}, false
	}
	rt := *m.ResponseTimeMS
	var baseVals []float64
	for _, e := range deviceWindow(history) {
		if e.ResponseTimeMS != nil {
			baseVals = append(baseVals, *e.ResponseTimeMS)
		}
	}
	if len(baseVals) == 0 {
		return Result{}, false
	}
	baseMean := mean(baseVals)

	score := 1.0
	if baseMean > 0 {
		ratio := rt / baseMean
		if ratio <= 2 {
			return Result{}, false
		}
		score = math.Min(1, ratio/4)
	} else if rt <= 0 {
		return Result{}, false
	}
	return Result{
		Score:       score,
		Kind:        models.AnomalyLatencySpike,
		Severity:    models.SeverityForScore(score),
		Value:       rt,
		Expected:    baseMean,
		Description: fmt.Sprintf("Response time spike: %.0fms (baseline: %.1fms)", rt, baseMean),
	}, true
}

func (d *Detector) disconnectCheck(m models.Measurement, history []ring.Entry) (Result, bool) {
	if m.IsOnline == nil || *m.IsOnline {
		return Result{}, false
	}
	base := deviceWindow(history)
	if len(base) < 5 {
		return Result{}, false
	}
	// Only flag the transition: the device must have looked healthy just
	// before this measurement. A missing IsOnline counts as online.
	for _, e := range base[len(base)-5:] {
		if e.IsOnline != nil && !*e.IsOnline {
			return Result{}, false
		}
	}
	const score = 0.8
	return Result{
		Score:       score,
		Kind:        models.AnomalyDisconnect,
		Severity:    models.SeverityForScore(score),
		Value:       0,
		Expected:    1,
		Description: "Unexpected device disconnect",
	}, true
}

func (d *Detector) temperatureCheck(m models.Measurement, history []ring.Entry) (Result, bool) {
	if m.TemperatureC == nil {
		return Result{}, false
	}
	t := *m.TemperatureC
	baseMax := math.Inf(-1)
	for _, e := range deviceWindow(history) {
		if e.TemperatureC != nil && *e.TemperatureC > baseMax {
			baseMax = *e.TemperatureC
		}
	}
	if math.IsInf(baseMax, -1) || t <= baseMax+10 {
		return Result{}, false
	}
	score := math.Min(1, 0.5+(t-baseMax-10)/20)
	return Result{
		Score:       score,
		Kind:        models.AnomalyTempSpike,
		Severity:    models.SeverityForScore(score),
		Value:       t,
		Expected:    baseMax,
		Description: fmt.Sprintf("Temperature spike: %.1f°C (previous max: %.1f°C)", t, baseMax),
	}, true
}
