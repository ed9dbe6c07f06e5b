package ranger

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/HerbHall/wavesight/pkg/models"
	"go.uber.org/zap"
)

// fakeProber returns canned results per address.
type fakeProber struct {
	results map[string]ProbeResult
}

func (f *fakeProber) Probe(_ context.Context, address string) ProbeResult {
	return f.results[address]
}

func testAgent(cfg *Config, prober Prober, link func() (LinkSample, bool)) *Agent {
	a := NewAgent(cfg, zap.NewNop())
	if prober != nil {
		a.prober = prober
	}
	if link != nil {
		a.link = link
	}
	return a
}

func noLink() (LinkSample, bool) {
	return LinkSample{}, false
}

func TestCollect_BuildsMeasurements(t *testing.T) {
	cfg := DefaultConfig()
	cfg.AgentID = "ranger-01"
	cfg.Targets = []Target{
		{DeviceID: "ap-lobby", Address: "10.0.0.10"},
		{DeviceID: "ap-roof", Address: "10.0.0.11"},
	}

	prober := &fakeProber{results: map[string]ProbeResult{
		"10.0.0.10": {Alive: true, RTT: 20 * time.Millisecond, Sent: 3},
		"10.0.0.11": {Alive: false, Sent: 3, Lost: 3},
	}}
	link := func() (LinkSample, bool) {
		return LinkSample{Interface: "wlan0", RSSI: -58, SNR: 35, HasSNR: true}, true
	}

	batch := testAgent(cfg, prober, link).collect(context.Background())
	if len(batch) != 2 {
		t.Fatalf("collect() returned %d measurements, want 2", len(batch))
	}

	lobby := batch[0]
	if lobby.DeviceID != "ap-lobby" {
		t.Errorf("DeviceID = %q, want ap-lobby", lobby.DeviceID)
	}
	if lobby.AgentID != "ranger-01" {
		t.Errorf("AgentID = %q, want ranger-01", lobby.AgentID)
	}
	if lobby.RSSI != -58 {
		t.Errorf("RSSI = %v, want -58 from the link sample", lobby.RSSI)
	}
	if lobby.SNR == nil || *lobby.SNR != 35 {
		t.Errorf("SNR = %v, want 35", lobby.SNR)
	}
	if lobby.IsOnline == nil || !*lobby.IsOnline {
		t.Error("IsOnline = false for a responding target, want true")
	}
	if lobby.ResponseTimeMS == nil || *lobby.ResponseTimeMS != 20 {
		t.Errorf("ResponseTimeMS = %v, want 20", lobby.ResponseTimeMS)
	}
	if lobby.ErrorCount != nil {
		t.Errorf("ErrorCount = %v for a lossless probe, want nil", lobby.ErrorCount)
	}

	roof := batch[1]
	if roof.IsOnline == nil || *roof.IsOnline {
		t.Error("IsOnline = true for a dead target, want false")
	}
	if roof.ResponseTimeMS != nil {
		t.Errorf("ResponseTimeMS = %v for a dead target, want nil", roof.ResponseTimeMS)
	}
	if roof.ErrorCount == nil || *roof.ErrorCount != 3 {
		t.Errorf("ErrorCount = %v, want 3 lost packets", roof.ErrorCount)
	}
	if !roof.Timestamp.Equal(lobby.Timestamp) {
		t.Error("measurements in one cycle must share a timestamp")
	}

	// Everything the agent sends must pass server-side validation.
	for i := range batch {
		if err := batch[i].Validate(); err != nil {
			t.Errorf("batch[%d].Validate() = %v", i, err)
		}
	}
}

func TestCollect_FallbackRSSIWithoutLink(t *testing.T) {
	cfg := DefaultConfig()
	cfg.FallbackRSSI = -63
	cfg.Targets = []Target{{DeviceID: "sw-core", Address: "10.0.0.1"}}

	prober := &fakeProber{results: map[string]ProbeResult{
		"10.0.0.1": {Alive: true, RTT: 2 * time.Millisecond, Sent: 3},
	}}

	batch := testAgent(cfg, prober, noLink).collect(context.Background())
	if len(batch) != 1 {
		t.Fatalf("collect() returned %d measurements, want 1", len(batch))
	}
	if batch[0].RSSI != -63 {
		t.Errorf("RSSI = %v, want fallback -63", batch[0].RSSI)
	}
	if batch[0].SNR != nil {
		t.Errorf("SNR = %v without a link sample, want nil", batch[0].SNR)
	}
}

func TestPostBatch_DeliversToIngest(t *testing.T) {
	var (
		mu   sync.Mutex
		path string
		auth string
		ua   string
		got  []models.Measurement
	)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		mu.Lock()
		defer mu.Unlock()
		path = r.URL.Path
		auth = r.Header.Get("Authorization")
		ua = r.Header.Get("User-Agent")
		if err := json.NewDecoder(r.Body).Decode(&got); err != nil {
			t.Errorf("decode batch: %v", err)
		}
		w.WriteHeader(http.StatusAccepted)
		_ = json.NewEncoder(w).Encode(map[string]int{"accepted": len(got)})
	}))
	defer srv.Close()

	cfg := DefaultConfig()
	cfg.ServerURL = srv.URL
	cfg.AgentKey = "wsk_test.secret"
	a := testAgent(cfg, nil, noLink)

	batch := []models.Measurement{
		{DeviceID: "ap-1", Timestamp: time.Now().UTC(), RSSI: -60},
	}
	if err := a.postBatch(context.Background(), batch); err != nil {
		t.Fatalf("postBatch() error = %v", err)
	}

	mu.Lock()
	defer mu.Unlock()
	if path != "/api/v1/telemetry/ingest" {
		t.Errorf("path = %q, want /api/v1/telemetry/ingest", path)
	}
	if auth != "Bearer wsk_test.secret" {
		t.Errorf("Authorization = %q, want bearer agent key", auth)
	}
	if ua != "WaveSight-Ranger/0.1" {
		t.Errorf("User-Agent = %q, want WaveSight-Ranger/0.1", ua)
	}
	if len(got) != 1 || got[0].DeviceID != "ap-1" {
		t.Errorf("server received %+v, want the posted batch", got)
	}
}

func TestPostBatch_NoRetryOnUnauthorized(t *testing.T) {
	var (
		mu    sync.Mutex
		calls int
	)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		mu.Lock()
		calls++
		mu.Unlock()
		w.WriteHeader(http.StatusUnauthorized)
	}))
	defer srv.Close()

	cfg := DefaultConfig()
	cfg.ServerURL = srv.URL
	cfg.Retries = 3
	cfg.RetryBackoff = time.Millisecond
	a := testAgent(cfg, nil, noLink)

	err := a.postBatch(context.Background(), []models.Measurement{
		{DeviceID: "ap-1", Timestamp: time.Now().UTC(), RSSI: -60},
	})
	if !errors.Is(err, errUnauthorized) {
		t.Fatalf("postBatch() error = %v, want errUnauthorized", err)
	}

	mu.Lock()
	defer mu.Unlock()
	if calls != 1 {
		t.Errorf("server called %d times, want 1 (no retry on rejected key)", calls)
	}
}

func TestPostBatch_RetriesOnServerError(t *testing.T) {
	var (
		mu    sync.Mutex
		calls int
	)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		mu.Lock()
		calls++
		n := calls
		mu.Unlock()
		if n < 3 {
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		w.WriteHeader(http.StatusAccepted)
		_ = json.NewEncoder(w).Encode(map[string]int{"accepted": 1})
	}))
	defer srv.Close()

	cfg := DefaultConfig()
	cfg.ServerURL = srv.URL
	cfg.Retries = 3
	cfg.RetryBackoff = time.Millisecond
	a := testAgent(cfg, nil, noLink)

	err := a.postBatch(context.Background(), []models.Measurement{
		{DeviceID: "ap-1", Timestamp: time.Now().UTC(), RSSI: -60},
	})
	if err != nil {
		t.Fatalf("postBatch() error = %v, want nil after retries", err)
	}

	mu.Lock()
	defer mu.Unlock()
	if calls != 3 {
		t.Errorf("server called %d times, want 3", calls)
	}
}

func TestPostBatch_GivesUpAfterRetries(t *testing.T) {
	var (
		mu    sync.Mutex
		calls int
	)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		mu.Lock()
		calls++
		mu.Unlock()
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	cfg := DefaultConfig()
	cfg.ServerURL = srv.URL
	cfg.Retries = 2
	cfg.RetryBackoff = time.Millisecond
	a := testAgent(cfg, nil, noLink)

	err := a.postBatch(context.Background(), []models.Measurement{
		{DeviceID: "ap-1", Timestamp: time.Now().UTC(), RSSI: -60},
	})
	if err == nil {
		t.Fatal("postBatch() = nil, want error after exhausting retries")
	}

	mu.Lock()
	defer mu.Unlock()
	if calls != 3 {
		t.Errorf("server called %d times, want 3 (initial + 2 retries)", calls)
	}
}

func TestRun_PostsBatchesUntilCancelled(t *testing.T) {
	var (
		mu    sync.Mutex
		calls int
	)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		mu.Lock()
		calls++
		mu.Unlock()
		w.WriteHeader(http.StatusAccepted)
		_ = json.NewEncoder(w).Encode(map[string]int{"accepted": 1})
	}))
	defer srv.Close()

	cfg := DefaultConfig()
	cfg.ServerURL = srv.URL
	cfg.Interval = 10 * time.Millisecond
	cfg.Targets = []Target{{DeviceID: "ap-1", Address: "10.0.0.1"}}

	prober := &fakeProber{results: map[string]ProbeResult{
		"10.0.0.1": {Alive: true, RTT: time.Millisecond, Sent: 1},
	}}
	a := testAgent(cfg, prober, noLink)

	ctx, cancel := context.WithTimeout(context.Background(), 150*time.Millisecond)
	defer cancel()
	if err := a.Run(ctx); err != nil {
		t.Fatalf("Run() error = %v", err)
	}

	mu.Lock()
	defer mu.Unlock()
	if calls == 0 {
		t.Error("server never received a batch")
	}
}
