package anomaly

import (
	"math"
	"testing"

	"github.com/HerbHall/wavesight/internal/telemetry/ring"
	"github.com/HerbHall/wavesight/pkg/models"
)

// variedHistory builds n entries with a deterministic mild spread so tree
// splits have room to work.
func variedHistory(n int) []ring.Entry {
	out := make([]ring.Entry, n)
	for i := range out {
		rssi := -50 + float64(i%7) - 3
		e := smoothedEntry(rssi)
		e.ResponseTimeMS = fptr(80 + float64(i%5)*10)
		e.TemperatureC = fptr(40 + float64(i%3))
		out[i] = e
	}
	return out
}

func TestForestInsufficientHistory(t *testing.T) {
	f := NewIsolationForest()
	score, results := f.Score(models.Measurement{RSSI: 0}, variedHistory(f.MinSamples-1))
	if score != 0 {
		t.Errorf("score = %v, want 0", score)
	}
	if results != nil {
		t.Errorf("results = %v, want nil", results)
	}
}

func TestForestDeterministic(t *testing.T) {
	f := NewIsolationForest()
	history := variedHistory(60)
	m := models.Measurement{RSSI: -52}
	s1, _ := f.Score(m, history)
	s2, _ := f.Score(m, history)
	if s1 != s2 {
		t.Errorf("scores differ across identical calls: %v vs %v", s1, s2)
	}
}

func TestForestOutlierScoresHigher(t *testing.T) {
	f := NewIsolationForest()

	inlier := variedHistory(60)
	inScore, inResults := f.Score(models.Measurement{RSSI: -50}, inlier)
	if len(inResults) != 1 {
		t.Fatalf("inlier results = %d, want 1", len(inResults))
	}

	outlier := variedHistory(60)
	last := smoothedEntry(0)
	last.ResponseTimeMS = fptr(5000)
	last.TemperatureC = fptr(95)
	outlier[len(outlier)-1] = last
	outScore, outResults := f.Score(models.Measurement{RSSI: 0, ResponseTimeMS: fptr(5000), TemperatureC: fptr(95)}, outlier)
	if len(outResults) != 1 {
		t.Fatalf("outlier results = %d, want 1", len(outResults))
	}

	if outScore <= inScore {
		t.Errorf("outlier score %v must exceed inlier score %v", outScore, inScore)
	}
	if outScore <= 0.5 {
		t.Errorf("outlier score = %v, want > 0.5", outScore)
	}
}

func TestForestResultMirrorsScore(t *testing.T) {
	f := NewIsolationForest()
	history := variedHistory(40)
	score, results := f.Score(models.Measurement{RSSI: -51}, history)
	if len(results) != 1 {
		t.Fatalf("results = %d, want 1", len(results))
	}
	if results[0].Score != score {
		t.Errorf("result score %v != returned score %v", results[0].Score, score)
	}
	if results[0].Severity != models.SeverityForScore(score) {
		t.Errorf("severity = %v, want %v", results[0].Severity, models.SeverityForScore(score))
	}
}

func TestIsolationKind(t *testing.T) {
	tests := []struct {
		name string
		m    models.Measurement
		want models.AnomalyKind
	}{
		{"offline wins", models.Measurement{IsOnline: bptr(false), TemperatureC: fptr(90)}, models.AnomalyDisconnect},
		{"hot device", models.Measurement{TemperatureC: fptr(90)}, models.AnomalyTempSpike},
		{"slow device", models.Measurement{ResponseTimeMS: fptr(1500)}, models.AnomalyLatencySpike},
		{"default", models.Measurement{RSSI: -90}, models.AnomalyRSSIDeviation},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := isolationKind(tt.m); got != tt.want {
				t.Errorf("isolationKind = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestAvgBSTDepth(t *testing.T) {
	tests := []struct {
		n    int
		want float64
	}{
		{0, 0},
		{1, 0},
		{2, 1},
		{256, 10.2448},
	}
	for _, tt := range tests {
		if got := avgBSTDepth(tt.n); math.Abs(got-tt.want) > 0.01 {
			t.Errorf("avgBSTDepth(%d) = %v, want %v", tt.n, got, tt.want)
		}
	}
}
