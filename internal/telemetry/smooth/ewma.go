package smooth

// DefaultAlpha is the EWMA smoothing factor.
const DefaultAlpha = 0.3

// EWMA tracks an exponentially weighted moving average.
type EWMA struct {
	Alpha   float64
	Value   float64
	Samples int
}

// NewEWMA creates a tracker. Alpha outside (0, 1] selects DefaultAlpha.
func NewEWMA(alpha float64) *EWMA {
	if alpha <= 0 || alpha > 1 {
		alpha = DefaultAlpha
	}
	return &EWMA{Alpha: alpha}
}

// Update folds one value into the average and returns the new value. The
// first value seeds the average directly.
func (e *EWMA) Update(z float64) float64 {
	e.Samples++
	if e.Samples == 1 {
		e.Value = z
		return z
	}
	e.Value = e.Alpha*z + (1-e.Alpha)*e.Value
	return e.Value
}
