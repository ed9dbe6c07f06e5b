package vitals

import (
	"math"

	"github.com/HerbHall/wavesight/internal/telemetry/ring"
)

// minChannelSamples is how many observations an optional channel needs
// before it contributes features. The window itself needs that many
// samples to produce any features at all.
const minChannelSamples = 3

// Features is a sparse feature map keyed by feature name. Channels
// observed fewer than three times contribute no keys; consumers test
// presence rather than assume it.
type Features map[string]float64

// ExtractFeatures reduces a device's history window to its feature map.
// Returns nil when the window holds fewer than three samples.
func ExtractFeatures(window []ring.Entry) Features {
	if len(window) < minChannelSamples {
		return nil
	}
	f := Features{}

	rssi := make([]float64, len(window))
	for i, e := range window {
		rssi[i] = e.RSSI
	}
	f["rssi_mean"] = mean(rssi)
	f["rssi_std"] = stdSample(rssi)
	f["rssi_trend"] = trend(rssi)

	rts := collect(window, func(e ring.Entry) (float64, bool) {
		if e.ResponseTimeMS == nil {
			return 0, false
		}
		return *e.ResponseTimeMS, true
	})
	if len(rts) >= minChannelSamples {
		f["response_time_mean"] = mean(rts)
		f["response_time_std"] = stdSample(rts)
		f["response_time_trend"] = trend(rts)
	}

	var online []bool
	for _, e := range window {
		if e.IsOnline != nil {
			online = append(online, *e.IsOnline)
		}
	}
	if len(online) >= minChannelSamples {
		up, drops := 0, 0
		for i, v := range online {
			if v {
				up++
			}
			if i > 0 && online[i-1] && !v {
				drops++
			}
		}
		f["uptime_ratio"] = float64(up) / float64(len(online))
		f["disconnect_events"] = float64(drops)
	}

	errs := collect(window, func(e ring.Entry) (float64, bool) {
		if e.ErrorCount == nil {
			return 0, false
		}
		return float64(*e.ErrorCount), true
	})
	if len(errs) >= minChannelSamples {
		f["error_rate"] = mean(errs)
		f["error_trend"] = trend(errs)
	}

	temps := collect(window, func(e ring.Entry) (float64, bool) {
		if e.TemperatureC == nil {
			return 0, false
		}
		return *e.TemperatureC, true
	})
	if len(temps) >= minChannelSamples {
		f["temp_mean"] = mean(temps)
		f["temp_max"] = maxOf(temps)
	}

	power := collect(window, func(e ring.Entry) (float64, bool) {
		if e.PowerW == nil {
			return 0, false
		}
		return *e.PowerW, true
	})
	if len(power) >= minChannelSamples {
		f["power_mean"] = mean(power)
		f["power_trend"] = trend(power)
	}

	// Traffic counts only samples reporting both directions.
	traffic := collect(window, func(e ring.Entry) (float64, bool) {
		if e.BytesTx == nil || e.BytesRx == nil {
			return 0, false
		}
		return float64(*e.BytesTx + *e.BytesRx), true
	})
	if len(traffic) >= minChannelSamples {
		f["traffic_volume"] = mean(traffic)
		f["traffic_variance"] = varSample(traffic)
	}

	return f
}

// collect gathers the present values of one optional channel in window
// order.
func collect(window []ring.Entry, pick func(ring.Entry) (float64, bool)) []float64 {
	var out []float64
	for _, e := range window {
		if v, ok := pick(e); ok {
			out = append(out, v)
		}
	}
	return out
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

// varSample is the unbiased sample variance (n-1 divisor).
func varSample(xs []float64) float64 {
	if len(xs) < 2 {
		return 0
	}
	m := mean(xs)
	var sum float64
	for _, x := range xs {
		d := x - m
		sum += d * d
	}
	return sum / float64(len(xs)-1)
}

func stdSample(xs []float64) float64 {
	return math.Sqrt(varSample(xs))
}

// trend is the slope of a degree-1 least-squares fit of the values
// against their indices 0..n-1. Returns 0 for fewer than two points.
func trend(xs []float64) float64 {
	n := len(xs)
	if n < 2 {
		return 0
	}
	xbar := float64(n-1) / 2
	ybar := mean(xs)
	var num, den float64
	for i, y := range xs {
		dx := float64(i) - xbar
		num += dx * (y - ybar)
		den += dx * dx
	}
	return num / den
}

func maxOf(xs []float64) float64 {
	m := xs[0]
	for _, x := range xs[1:] {
		if x > m {
			m = x
		}
	}
	return m
}
