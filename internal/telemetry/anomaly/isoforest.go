package anomaly

import (
	"fmt"
	"math"
	"math/rand/v2"

	"github.com/HerbHall/wavesight/internal/telemetry/ring"
	"github.com/HerbHall/wavesight/pkg/models"
)

// eulerMascheroni appears in the average unsuccessful-search depth of a BST.
const eulerMascheroni = 0.5772156649

// IsolationForest scores a measurement by how easily random axis-aligned
// splits isolate it from the device's history. The forest is rebuilt per
// call from the history it is handed, so it carries no state between
// measurements and identical inputs always produce identical scores.
type IsolationForest struct {
	Trees      int    // number of trees per forest
	Subsample  int    // per-tree sample size cap
	MinSamples int    // history entries required before scoring
	Seed       uint64 // base seed for the per-call generator
}

var _ Scorer = (*IsolationForest)(nil)

// NewIsolationForest returns a forest with the default shape.
func NewIsolationForest() *IsolationForest {
	return &IsolationForest{
		Trees:      100,
		Subsample:  256,
		MinSamples: 20,
		Seed:       0x57a7e,
	}
}

// Score implements Scorer.
func (f *IsolationForest) Score(m models.Measurement, history []ring.Entry) (float64, []Result) {
	n := len(history)
	if n < f.MinSamples {
		return 0, nil
	}

	data := make([][]float64, n)
	for i, e := range history {
		data[i] = featureVector(e)
	}
	target := data[n-1]

	psi := f.Subsample
	if psi > n {
		psi = n
	}
	maxDepth := int(math.Ceil(math.Log2(float64(psi))))
	rng := rand.New(rand.NewPCG(f.Seed, uint64(n)))

	var pathSum float64
	for range f.Trees {
		perm := rng.Perm(n)
		sample := make([][]float64, psi)
		for i := range sample {
			sample[i] = data[perm[i]]
		}
		root := buildTree(sample, 0, maxDepth, rng)
		pathSum += pathLength(target, root, 0)
	}
	avgPath := pathSum / float64(f.Trees)
	score := math.Pow(2, -avgPath/avgBSTDepth(psi))

	smoothed := make([]float64, n)
	for i, e := range history {
		smoothed[i] = e.SmoothedRSSI
	}
	r := Result{
		Score:       score,
		Kind:        isolationKind(m),
		Severity:    models.SeverityForScore(score),
		Value:       m.RSSI,
		Expected:    mean(smoothed),
		Description: fmt.Sprintf("Isolation score %.2f over %d samples", score, n),
	}
	return score, []Result{r}
}

// featureVector flattens an entry into the forest's input space. Absent
// channels take neutral defaults so sparse agents do not look anomalous
// merely for reporting less.
func featureVector(e ring.Entry) []float64 {
	rt, errs, power, cpu, memPct := 0.0, 0.0, 0.0, 0.0, 0.0
	temp := 25.0
	online := 1.0
	if e.ResponseTimeMS != nil {
		rt = *e.ResponseTimeMS
	}
	if e.ErrorCount != nil {
		errs = float64(*e.ErrorCount)
	}
	if e.TemperatureC != nil {
		temp = *e.TemperatureC
	}
	if e.PowerW != nil {
		power = *e.PowerW
	}
	if e.CPUPct != nil {
		cpu = *e.CPUPct
	}
	if e.MemPct != nil {
		memPct = *e.MemPct
	}
	if e.IsOnline != nil && !*e.IsOnline {
		online = 0
	}
	return []float64{e.RSSI, e.SmoothedRSSI - e.RSSI, rt, errs, temp, power, cpu, memPct, online}
}

// isolationKind labels a forest hit with the most plausible cause. The
// forest itself is kind-agnostic; this keeps downstream filtering usable.
func isolationKind(m models.Measurement) models.AnomalyKind {
	switch {
	case m.IsOnline != nil && !*m.IsOnline:
		return models.AnomalyDisconnect
	case m.TemperatureC != nil && *m.TemperatureC > 85:
		return models.AnomalyTempSpike
	case m.ResponseTimeMS != nil && *m.ResponseTimeMS > 1000:
		return models.AnomalyLatencySpike
	default:
		return models.AnomalyRSSIDeviation
	}
}

type treeNode struct {
	feature     int
	split       float64
	left, right *treeNode
	size        int // leaf population
}

func buildTree(sample [][]float64, depth, maxDepth int, rng *rand.Rand) *treeNode {
	if depth >= maxDepth || len(sample) <= 1 {
		return &treeNode{size: len(sample)}
	}
	dims := len(sample[0])
	feature, lo, hi := -1, 0.0, 0.0
	for _, f := range rng.Perm(dims) {
		mn, mx := sample[0][f], sample[0][f]
		for _, row := range sample[1:] {
			mn = math.Min(mn, row[f])
			mx = math.Max(mx, row[f])
		}
		if mx > mn {
			feature, lo, hi = f, mn, mx
			break
		}
	}
	if feature < 0 {
		// Every remaining point is identical.
		return &treeNode{size: len(sample)}
	}
	split := lo + rng.Float64()*(hi-lo)
	var left, right [][]float64
	for _, row := range sample {
		if row[feature] < split {
			left = append(left, row)
		} else {
			right = append(right, row)
		}
	}
	return &treeNode{
		feature: feature,
		split:   split,
		left:    buildTree(left, depth+1, maxDepth, rng),
		right:   buildTree(right, depth+1, maxDepth, rng),
	}
}

func pathLength(x []float64, node *treeNode, depth int) float64 {
	if node.left == nil {
		return float64(depth) + avgBSTDepth(node.size)
	}
	if x[node.feature] < node.split {
		return pathLength(x, node.left, depth+1)
	}
	return pathLength(x, node.right, depth+1)
}

// avgBSTDepth is c(n), the expected unsuccessful-search path length in a
// binary search tree of n nodes. It normalises raw path lengths.
func avgBSTDepth(n int) float64 {
	switch {
	case n > 2:
		nf := float64(n)
		return 2*(math.Log(nf-1)+eulerMascheroni) - 2*(nf-1)/nf
	case n == 2:
		return 1
	default:
		return 0
	}
}
