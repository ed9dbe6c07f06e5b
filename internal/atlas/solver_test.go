package atlas

import (
	"math"
	"testing"

	"github.com/HerbHall/wavesight/pkg/models"
)

func anchor(id string, x, y, ref float64) models.Anchor {
	return models.Anchor{ID: id, X: x, Y: y, RefRSSI: ref}
}

func TestEstimateRange(t *testing.T) {
	tests := []struct {
		name     string
		rssi     float64
		ref      float64
		exponent float64
		want     float64
	}{
		{"at reference", -30, -30, 2.0, 1},
		{"above reference", -20, -30, 2.0, 1},
		{"ten meters", -50, -30, 2.0, 10},
		{"hundred meters", -70, -30, 2.0, 100},
		{"clamped far", -200, -30, 2.0, 1000},
		{"steeper exponent", -60, -30, 3.0, 10},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := EstimateRange(tt.rssi, tt.ref, tt.exponent)
			if math.Abs(got-tt.want) > 1e-9 {
				t.Fatalf("EstimateRange(%g, %g, %g) = %g, want %g", tt.rssi, tt.ref, tt.exponent, got, tt.want)
			}
		})
	}
}

func TestSolveExactGeometry(t *testing.T) {
	// Device truly at (30, 40); distances are exact, so the solve should
	// land on it with near-full confidence.
	anchors := []models.Anchor{
		anchor("a", 0, 0, -30),
		anchor("b", 100, 0, -30),
		anchor("c", 0, 100, -30),
		anchor("d", 100, 100, -30),
	}
	truth := models.Point{X: 30, Y: 40}
	dists := make([]float64, len(anchors))
	for i, a := range anchors {
		dists[i] = truth.DistanceTo(a.Position())
	}

	got, conf, ok := solvePosition(anchors, dists)
	if !ok {
		t.Fatal("solvePosition declined exact geometry")
	}
	if math.Abs(got.X-truth.X) > 1e-3 || math.Abs(got.Y-truth.Y) > 1e-3 {
		t.Fatalf("solved (%.4f, %.4f), want (%.4f, %.4f)", got.X, got.Y, truth.X, truth.Y)
	}
	if conf < 0.99 {
		t.Fatalf("confidence = %.4f, want near 1 for exact distances", conf)
	}
}

func TestSolveEquidistantAnchors(t *testing.T) {
	// Three anchors all reporting 50 m. The circles do not meet in a
	// single point, so the solve settles where the squared residuals
	// balance: on the x = 50 symmetry axis, y just above 36.
	anchors := []models.Anchor{
		anchor("a", 0, 0, -30),
		anchor("b", 100, 0, -30),
		anchor("c", 50, 100, -30),
	}
	got, conf, ok := solvePosition(anchors, []float64{50, 50, 50})
	if !ok {
		t.Fatal("solvePosition declined equidistant geometry")
	}
	if math.Abs(got.X-50) > 1e-6 {
		t.Fatalf("solved x = %.6f, want 50 by symmetry", got.X)
	}
	if math.Abs(got.Y-36.22) > 0.05 {
		t.Fatalf("solved y = %.4f, want about 36.22", got.Y)
	}
	if conf <= 0.8 {
		t.Fatalf("confidence = %.4f, want > 0.8", conf)
	}
}

func TestSolveColinearAnchors(t *testing.T) {
	anchors := []models.Anchor{
		anchor("a", 0, 0, -30),
		anchor("b", 50, 0, -30),
		anchor("c", 100, 0, -30),
	}
	if _, _, ok := solvePosition(anchors, []float64{10, 20, 30}); ok {
		t.Fatal("solvePosition accepted colinear anchors")
	}
}

func TestSolveNearlyColinearAnchors(t *testing.T) {
	// A nanometer of sag over a 100 m baseline is colinear for any
	// practical purpose.
	anchors := []models.Anchor{
		anchor("a", 0, 0, -30),
		anchor("b", 50, 1e-9, -30),
		anchor("c", 100, 0, -30),
	}
	if _, _, ok := solvePosition(anchors, []float64{10, 20, 30}); ok {
		t.Fatal("solvePosition accepted nearly colinear anchors")
	}
}

func TestSolveCoincidentAnchors(t *testing.T) {
	anchors := []models.Anchor{
		anchor("a", 5, 5, -30),
		anchor("b", 5, 5, -30),
		anchor("c", 5, 5, -30),
	}
	if _, _, ok := solvePosition(anchors, []float64{10, 10, 10}); ok {
		t.Fatal("solvePosition accepted coincident anchors")
	}
}

func TestSolveTooFewAnchors(t *testing.T) {
	anchors := []models.Anchor{
		anchor("a", 0, 0, -30),
		anchor("b", 100, 0, -30),
	}
	if _, _, ok := solvePosition(anchors, []float64{50, 50}); ok {
		t.Fatal("solvePosition accepted two anchors")
	}
}

func TestConfidenceDropsWithResidual(t *testing.T) {
	anchors := []models.Anchor{
		anchor("a", 0, 0, -30),
		anchor("b", 100, 0, -30),
		anchor("c", 50, 100, -30),
	}
	truth := models.Point{X: 50, Y: 40}
	exact := make([]float64, len(anchors))
	for i, a := range anchors {
		exact[i] = truth.DistanceTo(a.Position())
	}
	_, confExact, ok := solvePosition(anchors, exact)
	if !ok {
		t.Fatal("exact solve declined")
	}
	_, confRough, ok := solvePosition(anchors, []float64{50, 50, 50})
	if !ok {
		t.Fatal("rough solve declined")
	}
	if confRough >= confExact {
		t.Fatalf("confidence %0.4f with residuals not below exact %0.4f", confRough, confExact)
	}
}
