package atlas

import "github.com/HerbHall/wavesight/pkg/models"

// DBSCAN labels. Points start undefined; density failures become noise.
const (
	labelUndefined = -2
	labelNoise     = -1
)

// dbscan assigns each point a cluster index, or labelNoise for outliers.
// eps is the neighborhood radius; minPoints the density threshold, with
// the point itself counted among its own neighbors. The scan is the plain
// quadratic algorithm; the fleet sizes here never justify an index.
func dbscan(points []models.Point, eps float64, minPoints int) []int {
	labels := make([]int, len(points))
	for i := range labels {
		labels[i] = labelUndefined
	}

	cluster := 0
	for i := range points {
		if labels[i] != labelUndefined {
			continue
		}
		neighbors := neighborsOf(points, i, eps)
		if len(neighbors) < minPoints {
			labels[i] = labelNoise
			continue
		}
		labels[i] = cluster

		// Seed expansion: border points join the cluster, core points
		// also extend the frontier.
		queue := append([]int(nil), neighbors...)
		for k := 0; k < len(queue); k++ {
			j := queue[k]
			if labels[j] == labelNoise {
				labels[j] = cluster
			}
			if labels[j] != labelUndefined {
				continue
			}
			labels[j] = cluster
			more := neighborsOf(points, j, eps)
			if len(more) >= minPoints {
				queue = append(queue, more...)
			}
		}
		cluster++
	}
	return labels
}

// neighborsOf returns the indexes within eps of points[i], i included.
func neighborsOf(points []models.Point, i int, eps float64) []int {
	var out []int
	for j := range points {
		if points[i].DistanceTo(points[j]) <= eps {
			out = append(out, j)
		}
	}
	return out
}
