// Package anomaly scores measurements against a device's recent history.
//
// Two scorers implement the same contract: the statistical detector
// (z-score plus drop, oscillation, latency, disconnect, and temperature
// checks) and an isolation forest. The pipeline selects one per
// configuration; both are deterministic for identical inputs.
package anomaly

import (
	"math"

	"github.com/HerbHall/wavesight/internal/telemetry/ring"
	"github.com/HerbHall/wavesight/pkg/models"
)

// Result is one anomaly check that fired, ready to become an AnomalyEvent.
type Result struct {
	Score       float64
	Kind        models.AnomalyKind
	Severity    models.Severity
	Value       float64
	Expected    float64
	Description string
}

// Scorer evaluates one measurement against the device's history. history is
// the ring tail in append order and includes the entry for m as its last
// element. The returned score is the per-measurement anomaly score in [0,1];
// results carry every check that fired (callers emit events for results
// scoring above the alert threshold).
type Scorer interface {
	Score(m models.Measurement, history []ring.Entry) (float64, []Result)
}

func mean(xs []float64) float64 {
	if len(xs) == 0 {
		return 0
	}
	var sum float64
	for _, x := range xs {
		sum += x
	}
	return sum / float64(len(xs))
}

// stdPop is the population standard deviation (divides by n).
func stdPop(xs []float64) float64 {
	if len(xs) == 0 {
		return 0
	}
	m := mean(xs)
	var ss float64
	for _, x := range xs {
		d := x - m
		ss += d * d
	}
	return math.Sqrt(ss / float64(len(xs)))
}
