// Package smooth provides the online RSSI filters: a one-dimensional scalar
// Kalman filter and an exponentially weighted moving average. Both are
// deterministic and keep no state beyond their struct fields.
package smooth

// Kalman filter defaults.
const (
	DefaultProcessVariance     = 1e-3
	DefaultMeasurementVariance = 0.1
)

// Kalman is a scalar Kalman filter for a slowly varying signal.
type Kalman struct {
	Q float64 // process variance
	R float64 // measurement variance

	Estimate float64 // current state estimate
	ErrCov   float64 // estimation error covariance
	Samples  int
}

// NewKalman creates a filter. Non-positive variances select the defaults.
func NewKalman(q, r float64) *Kalman {
	if q <= 0 {
		q = DefaultProcessVariance
	}
	if r <= 0 {
		r = DefaultMeasurementVariance
	}
	return &Kalman{Q: q, R: r}
}

// Update folds one measurement into the filter and returns the new estimate.
// The first measurement seeds the state directly.
func (k *Kalman) Update(z float64) float64 {
	k.Samples++
	if k.Samples == 1 {
		k.Estimate = z
		k.ErrCov = 1
		return z
	}

	p := k.ErrCov + k.Q
	gain := p / (p + k.R)
	k.Estimate += gain * (z - k.Estimate)
	k.ErrCov = (1 - gain) * p
	return k.Estimate
}
