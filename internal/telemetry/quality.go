package telemetry

import (
	"math"

	"github.com/HerbHall/wavesight/internal/telemetry/ring"
	"github.com/HerbHall/wavesight/pkg/models"
)

// qualityWindow is how many trailing smoothed samples feed signal quality.
const qualityWindow = 10

// qualityMinSamples is the history size below which quality reads as zero.
const qualityMinSamples = 5

// signalQuality grades the link from the last smoothed samples. Strength
// maps [-100,-30] dBm onto [0,1]; stability penalises spread; overall
// weighs strength 60/40 over stability.
func signalQuality(history []ring.Entry) models.SignalQuality {
	if len(history) < qualityMinSamples {
		return models.SignalQuality{}
	}
	start := len(history) - qualityWindow
	if start < 0 {
		start = 0
	}
	vals := make([]float64, 0, qualityWindow)
	for _, e := range history[start:] {
		vals = append(vals, e.SmoothedRSSI)
	}

	strength := math.Max(0, math.Min(1, (meanOf(vals)+100)/70))
	stability := math.Max(0, 1-stdPopOf(vals)/30)
	return models.SignalQuality{
		Strength:  strength,
		Stability: stability,
		Overall:   0.6*strength + 0.4*stability,
	}
}

func meanOf(xs []float64) float64 {
	if len(xs) == 0 {
		return 0
	}
	var sum float64
	for _, x := range xs {
		sum += x
	}
	return sum / float64(len(xs))
}

func stdPopOf(xs []float64) float64 {
	if len(xs) == 0 {
		return 0
	}
	m := meanOf(xs)
	var ss float64
	for _, x := range xs {
		d := x - m
		ss += d * d
	}
	return math.Sqrt(ss / float64(len(xs)))
}
