package vitals

import (
	"math"
	"strings"
	"time"
)

// projectionHorizonDays is the window W in the degradation-rate formula
// r = (100 - score) / W.
const projectionHorizonDays = 30

// Project estimates when a degrading device will fail. There is no
// prediction for healthy devices (score > 70) or when no trend feature
// is negative; the confidence covers the prediction, not the score.
func Project(score float64, f Features, now time.Time) (*time.Time, float64) {
	if score > 70 {
		return nil, 0
	}

	neg := 0
	for name, v := range f {
		if strings.HasSuffix(name, "_trend") && v < 0 {
			neg++
		}
	}
	if neg == 0 {
		return nil, 0
	}

	rate := (100 - score) / projectionHorizonDays // points per day
	confidence := math.Min(0.9, 0.5+0.1*float64(neg))
	days := math.Max(1, (score-30)/rate)
	at := now.Add(time.Duration(days * 24 * float64(time.Hour)))
	return &at, confidence
}
