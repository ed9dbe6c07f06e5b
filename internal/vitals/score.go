package vitals

import "math"

// Score applies the health rule table to a feature map and returns a
// score in [0,100]. Scoring is a pure function of the features; absent
// channels simply skip their rules.
func Score(f Features) float64 {
	score := 100.0

	if v, ok := f["rssi_mean"]; ok {
		switch {
		case v < -70:
			score -= 20
		case v < -60:
			score -= 10
		}
	}
	if v, ok := f["rssi_std"]; ok && v > 10 {
		score -= 15
	}

	if v, ok := f["response_time_mean"]; ok {
		switch {
		case v > 1000:
			score -= 25
		case v > 500:
			score -= 15
		}
	}
	if v, ok := f["response_time_trend"]; ok && v > 0 {
		score -= 10
	}

	// The uptime multiplier applies before the remaining deductions.
	if v, ok := f["uptime_ratio"]; ok {
		score *= v
	}

	if v, ok := f["disconnect_events"]; ok && v > 0 {
		score -= math.Min(5*v, 30)
	}
	if v, ok := f["error_rate"]; ok && v > 0 {
		score -= math.Min(100*v, 40)
	}

	if v, ok := f["temp_max"]; ok {
		switch {
		case v > 85:
			score -= 20
		case v > 75:
			score -= 10
		}
	}
	if v, ok := f["power_trend"]; ok && v > 0 {
		score -= 10
	}

	return math.Max(0, math.Min(100, score))
}
