package atlas

import "math"

// Range estimates are clamped to the plausible site scale. Below one meter
// the log-distance model is meaningless; beyond a kilometer the signal
// would not have been heard at all.
const (
	minRange = 1.0
	maxRange = 1000.0
)

// EstimateRange converts a received signal strength to a distance estimate
// in meters using the log-distance path-loss model:
//
//	d = 10 ^ ((refRSSI - rssi) / (10 * exponent))
//
// refRSSI is the expected strength one meter from the emitter. A reading
// at or above the reference means the device is effectively on top of it.
func EstimateRange(rssi, refRSSI, exponent float64) float64 {
	if rssi >= refRSSI {
		return minRange
	}
	d := math.Pow(10, (refRSSI-rssi)/(10*exponent))
	return math.Min(maxRange, math.Max(minRange, d))
}
