package smooth

import (
	"math"
	"testing"
)

func TestKalmanFirstMeasurementSeeds(t *testing.T) {
	k := NewKalman(0, 0)

	got := k.Update(-55)
	if got != -55 {
		t.Errorf("first Update(-55) = %v, want -55", got)
	}
	if k.ErrCov != 1 {
		t.Errorf("ErrCov after first update = %v, want 1", k.ErrCov)
	}
	if k.Q != DefaultProcessVariance || k.R != DefaultMeasurementVariance {
		t.Errorf("defaults not applied: Q=%v R=%v", k.Q, k.R)
	}
}

func TestKalmanUpdateStep(t *testing.T) {
	k := NewKalman(1e-3, 0.1)
	k.Update(-50)

	// Second step by hand: P' = 1 + 0.001, K = P'/(P'+0.1),
	// estimate = -50 + K*(-60 - -50).
	p := 1.0 + 1e-3
	gain := p / (p + 0.1)
	want := -50 + gain*(-10)

	got := k.Update(-60)
	if math.Abs(got-want) > 1e-12 {
		t.Errorf("second Update(-60) = %v, want %v", got, want)
	}
	wantCov := (1 - gain) * p
	if math.Abs(k.ErrCov-wantCov) > 1e-12 {
		t.Errorf("ErrCov = %v, want %v", k.ErrCov, wantCov)
	}
}

func TestKalmanConvergesToConstant(t *testing.T) {
	k := NewKalman(0, 0)

	const target = -62.0
	var est float64
	for i := 0; i < 200; i++ {
		est = k.Update(target)
	}

	if math.Abs(est-target) > 0.01 {
		t.Errorf("estimate after 200 constant inputs = %v, want within 0.01 of %v", est, target)
	}
}

func TestKalmanDeterministic(t *testing.T) {
	inputs := []float64{-50, -52, -48, -55, -60, -58, -61, -47, -53, -59}

	run := func() []float64 {
		k := NewKalman(0, 0)
		out := make([]float64, len(inputs))
		for i, z := range inputs {
			out[i] = k.Update(z)
		}
		return out
	}

	a, b := run(), run()
	for i := range a {
		if a[i] != b[i] {
			t.Fatalf("output %d differs between identical runs: %v vs %v", i, a[i], b[i])
		}
	}
}

func TestKalmanReducesNoise(t *testing.T) {
	// Fixed noisy sequence around -60.
	noise := []float64{2.1, -1.7, 3.4, -2.9, 0.8, -3.1, 2.6, -0.4, 1.9, -2.2,
		3.0, -1.1, 0.5, -2.6, 1.4, -0.9, 2.8, -3.3, 1.1, -0.6}

	k := NewKalman(0, 0)
	var inputs, outputs []float64
	for _, n := range noise {
		z := -60 + n
		inputs = append(inputs, z)
		outputs = append(outputs, k.Update(z))
	}

	// Skip the seeding sample, then compare spread.
	if s := std(outputs[1:]); s >= std(inputs[1:]) {
		t.Errorf("filter output std %v not below input std %v", s, std(inputs[1:]))
	}
}

func TestEWMAFirstValueSeeds(t *testing.T) {
	e := NewEWMA(0)
	if e.Alpha != DefaultAlpha {
		t.Errorf("Alpha = %v, want default %v", e.Alpha, DefaultAlpha)
	}

	got := e.Update(-70)
	if got != -70 {
		t.Errorf("first Update(-70) = %v, want -70", got)
	}
}

func TestEWMAUpdateFormula(t *testing.T) {
	e := NewEWMA(0.3)
	e.Update(-50)

	got := e.Update(-60)
	want := 0.3*(-60) + 0.7*(-50) // -53
	if math.Abs(got-want) > 1e-9 {
		t.Errorf("Update(-60) = %v, want %v", got, want)
	}
}

func TestEWMAConvergesToConstant(t *testing.T) {
	e := NewEWMA(0.3)

	const target = -45.0
	e.Update(-80)
	var v float64
	for i := 0; i < 100; i++ {
		v = e.Update(target)
	}

	if math.Abs(v-target) > 0.01 {
		t.Errorf("value after 100 constant inputs = %v, want within 0.01 of %v", v, target)
	}
}

func TestEWMAInvalidAlphaFallsBack(t *testing.T) {
	for _, alpha := range []float64{-0.5, 0, 1.5} {
		e := NewEWMA(alpha)
		if e.Alpha != DefaultAlpha {
			t.Errorf("NewEWMA(%v).Alpha = %v, want %v", alpha, e.Alpha, DefaultAlpha)
		}
	}
}

func std(xs []float64) float64 {
	if len(xs) == 0 {
		return 0
	}
	var sum float64
	for _, x := range xs {
		sum += x
	}
	mean := sum / float64(len(xs))
	var ss float64
	for _, x := range xs {
		d := x - mean
		ss += d * d
	}
	return math.Sqrt(ss / float64(len(xs)))
}
