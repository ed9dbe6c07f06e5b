package atlas

import (
	"math"

	"github.com/HerbHall/wavesight/pkg/models"
)

const (
	solverTolerance  = 1e-6
	solverIterations = 200
	colinearEps      = 1e-6

	// confidenceScale maps mean residual meters onto [0,1]: zero residual
	// is full confidence, 100 m mean residual is none.
	confidenceScale = 100.0
)

// solvePosition finds the point q minimizing the sum of squared range
// residuals (|q - anchor_i| - dist_i)^2 by Levenberg-Marquardt, starting
// from the anchor centroid. It declines when fewer than three anchors are
// given, when the anchors are colinear, or when the solve does not
// converge within the iteration cap. The returned confidence derives from
// the mean absolute residual at the solution.
func solvePosition(anchors []models.Anchor, dists []float64) (models.Point, float64, bool) {
	if len(anchors) < 3 || len(anchors) != len(dists) || colinear(anchors) {
		return models.Point{}, 0, false
	}

	var q models.Point
	for _, a := range anchors {
		q.X += a.X
		q.Y += a.Y
	}
	q.X /= float64(len(anchors))
	q.Y /= float64(len(anchors))

	lambda := 1e-3
	cost := residualSumSq(q, anchors, dists)

	for iter := 0; iter < solverIterations; iter++ {
		var jtj00, jtj01, jtj11, jtr0, jtr1 float64
		for i, a := range anchors {
			dx := q.X - a.X
			dy := q.Y - a.Y
			dist := math.Hypot(dx, dy)
			if dist < 1e-9 {
				// The residual gradient is undefined on top of an
				// anchor; nudge off it.
				dist = 1e-9
			}
			r := dist - dists[i]
			jx := dx / dist
			jy := dy / dist
			jtj00 += jx * jx
			jtj01 += jx * jy
			jtj11 += jy * jy
			jtr0 += jx * r
			jtr1 += jy * r
		}

		a00 := jtj00 + lambda
		a11 := jtj11 + lambda
		det := a00*a11 - jtj01*jtj01
		if det == 0 {
			return models.Point{}, 0, false
		}
		stepX := (-jtr0*a11 + jtr1*jtj01) / det
		stepY := (-jtr1*a00 + jtr0*jtj01) / det

		next := models.Point{X: q.X + stepX, Y: q.Y + stepY}
		nextCost := residualSumSq(next, anchors, dists)
		if nextCost < cost {
			q, cost = next, nextCost
			lambda = math.Max(lambda*0.3, 1e-12)
			if math.Hypot(stepX, stepY) < solverTolerance {
				return q, confidenceAt(q, anchors, dists), true
			}
			continue
		}
		lambda *= 10
		if lambda > 1e12 {
			break
		}
	}
	return models.Point{}, 0, false
}

func residualSumSq(q models.Point, anchors []models.Anchor, dists []float64) float64 {
	var sum float64
	for i, a := range anchors {
		r := q.DistanceTo(a.Position()) - dists[i]
		sum += r * r
	}
	return sum
}

// confidenceAt scores a solution by its mean absolute residual.
func confidenceAt(q models.Point, anchors []models.Anchor, dists []float64) float64 {
	var total float64
	for i, a := range anchors {
		total += math.Abs(q.DistanceTo(a.Position()) - dists[i])
	}
	mean := total / float64(len(anchors))
	return clamp01(1 - mean/confidenceScale)
}

// colinear reports whether every anchor lies on a single line. Degenerate
// anchor sets make the range circles intersect in mirror-image pairs, so
// the solve has no unique answer.
func colinear(anchors []models.Anchor) bool {
	base := anchors[0].Position()
	var u models.Point
	uLen := 0.0
	for _, a := range anchors[1:] {
		u = models.Point{X: a.X - base.X, Y: a.Y - base.Y}
		uLen = math.Hypot(u.X, u.Y)
		if uLen > colinearEps {
			break
		}
	}
	if uLen <= colinearEps {
		// All anchors coincide.
		return true
	}
	for _, a := range anchors {
		v := models.Point{X: a.X - base.X, Y: a.Y - base.Y}
		vLen := math.Hypot(v.X, v.Y)
		if vLen <= colinearEps {
			continue
		}
		sin := math.Abs(u.X*v.Y-u.Y*v.X) / (uLen * vLen)
		if sin > colinearEps {
			return false
		}
	}
	return true
}

func clamp01(v float64) float64 {
	return math.Max(0, math.Min(1, v))
}
