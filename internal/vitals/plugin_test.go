package vitals

import (
	"context"
	"testing"
	"time"

	"github.com/HerbHall/wavesight/internal/config"
	"github.com/HerbHall/wavesight/internal/event"
	"github.com/HerbHall/wavesight/internal/store"
	"github.com/HerbHall/wavesight/internal/telemetry/ring"
	"github.com/HerbHall/wavesight/pkg/models"
	"github.com/HerbHall/wavesight/pkg/plugin"
	"github.com/HerbHall/wavesight/pkg/plugin/plugintest"
	"github.com/spf13/viper"
	"go.uber.org/zap"
)

func TestPluginContract(t *testing.T) {
	plugintest.TestPluginContract(t, func() plugin.Plugin { return New() })
}

func newTestModule(t *testing.T) *Module {
	t.Helper()
	m := New()
	err := m.Init(context.Background(), plugin.Dependencies{Logger: zap.NewNop()})
	if err != nil {
		t.Fatalf("Init() error = %v", err)
	}
	return m
}

// steadyWindow builds n healthy samples: strong signal, fast responses,
// always online, cool, error-free.
func steadyWindow(n int) []ring.Entry {
	base := time.Date(2026, 1, 15, 10, 30, 0, 0, time.UTC)
	out := make([]ring.Entry, n)
	for i := range out {
		e := entry(-55)
		e.Timestamp = base.Add(time.Duration(i) * time.Second)
		e.ResponseTimeMS = fptr(100)
		e.IsOnline = bptr(true)
		e.ErrorCount = iptr(0)
		e.TemperatureC = fptr(60)
		out[i] = e
	}
	return out
}

// failingWindow builds n samples from a device in deep trouble; the
// resulting score clamps to 0.
func failingWindow(n int) []ring.Entry {
	base := time.Date(2026, 1, 15, 10, 30, 0, 0, time.UTC)
	out := make([]ring.Entry, n)
	for i := range out {
		e := entry(-85)
		e.Timestamp = base.Add(time.Duration(i) * time.Second)
		e.ResponseTimeMS = fptr(1500)
		e.IsOnline = bptr(i%2 == 0)
		e.ErrorCount = iptr(2)
		e.TemperatureC = fptr(95)
		out[i] = e
	}
	return out
}

// strugglingWindow builds 20 samples that score 19.5: weak signal, slow
// responses, two disconnects, overheating. Critical, but not zero.
func strugglingWindow() []ring.Entry {
	base := time.Date(2026, 1, 15, 10, 30, 0, 0, time.UTC)
	out := make([]ring.Entry, 20)
	for i := range out {
		e := entry(-75)
		e.Timestamp = base.Add(time.Duration(i) * time.Second)
		e.ResponseTimeMS = fptr(1200)
		e.IsOnline = bptr(i != 5 && i != 15)
		e.ErrorCount = iptr(0)
		e.TemperatureC = fptr(90)
		out[i] = e
	}
	return out
}

func TestInit_WithConfig(t *testing.T) {
	v := viper.New()
	v.Set("sweep_interval", "1m")
	v.Set("window_size", 25)
	v.Set("sink_timeout", "5s")

	m := New()
	err := m.Init(context.Background(), plugin.Dependencies{
		Logger: zap.NewNop(),
		Config: config.New(v),
	})
	if err != nil {
		t.Fatalf("Init() error = %v", err)
	}
	if m.cfg.SweepInterval != time.Minute {
		t.Errorf("cfg.SweepInterval = %v, want 1m", m.cfg.SweepInterval)
	}
	if m.cfg.WindowSize != 25 {
		t.Errorf("cfg.WindowSize = %d, want 25", m.cfg.WindowSize)
	}
	if m.cfg.SinkTimeout != 5*time.Second {
		t.Errorf("cfg.SinkTimeout = %v, want 5s", m.cfg.SinkTimeout)
	}
}

func TestValidateConfig_RejectsZeroSweep(t *testing.T) {
	v := viper.New()
	v.Set("sweep_interval", "0s")

	m := New()
	if err := m.Init(context.Background(), plugin.Dependencies{
		Logger: zap.NewNop(),
		Config: config.New(v),
	}); err != nil {
		t.Fatalf("Init() error = %v", err)
	}
	if err := m.ValidateConfig(); err == nil {
		t.Error("ValidateConfig() = nil, want error for zero sweep_interval")
	}
}

func TestRecomputeBuildsSnapshot(t *testing.T) {
	m := newTestModule(t)
	now := time.Date(2026, 1, 15, 11, 0, 0, 0, time.UTC)

	m.Recompute(context.Background(), "ap-1", steadyWindow(50), now)

	snap, ok := m.Snapshot("ap-1")
	if !ok {
		t.Fatal("Snapshot() missing after Recompute")
	}
	if snap.Score != 100 {
		t.Errorf("score = %v, want 100", snap.Score)
	}
	if snap.Risk != models.RiskLow {
		t.Errorf("risk = %q, want low", snap.Risk)
	}
	if snap.PredictedFailureAt != nil {
		t.Errorf("predicted failure = %v, want none for a healthy device", snap.PredictedFailureAt)
	}
	if len(snap.Factors) != 0 || len(snap.Recommendations) != 0 {
		t.Errorf("factors/recommendations = %v/%v, want none", snap.Factors, snap.Recommendations)
	}
	if snap.SampleCount != 50 {
		t.Errorf("sample_count = %d, want 50", snap.SampleCount)
	}
	if !snap.UpdatedAt.Equal(now) {
		t.Errorf("updated_at = %v, want %v", snap.UpdatedAt, now)
	}
}

func TestRecomputeSkipsShortWindow(t *testing.T) {
	m := newTestModule(t)

	m.Recompute(context.Background(), "ap-1", steadyWindow(2), time.Now())

	if _, ok := m.Snapshot("ap-1"); ok {
		t.Error("Snapshot() present after two samples, want none")
	}
}

func TestRecomputePublishesOnlyOnChange(t *testing.T) {
	m := newTestModule(t)
	bus := event.NewBus(zap.NewNop(), 0)
	m.bus = bus
	inbox := bus.SubscribeInbox(16, TopicHealth)
	defer inbox.Close()

	window := steadyWindow(20)
	m.Recompute(context.Background(), "ap-1", window, time.Now())
	if _, ok := inbox.TryNext(); !ok {
		t.Fatal("no health event after first snapshot")
	}

	// Same window, same score: nothing new on the topic.
	m.Recompute(context.Background(), "ap-1", window, time.Now())
	if ev, ok := inbox.TryNext(); ok {
		t.Fatalf("unexpected health event for unchanged snapshot: %+v", ev)
	}

	m.Recompute(context.Background(), "ap-1", failingWindow(20), time.Now())
	if _, ok := inbox.TryNext(); !ok {
		t.Error("no health event after score change")
	}
}

func TestCriticalTransitionPublishesOneAlert(t *testing.T) {
	m := newTestModule(t)
	bus := event.NewBus(zap.NewNop(), 0)
	m.bus = bus
	inbox := bus.SubscribeInbox(16, TopicAlert)
	defer inbox.Close()

	m.Recompute(context.Background(), "ap-1", failingWindow(20), time.Now())
	ev, ok := inbox.TryNext()
	if !ok {
		t.Fatal("no alert after critical snapshot")
	}
	alert, ok := ev.Payload.(models.Alert)
	if !ok {
		t.Fatalf("alert payload = %T, want models.Alert", ev.Payload)
	}
	if alert.Kind != models.AlertHealth || alert.Severity != models.SeverityHigh {
		t.Errorf("alert kind/severity = %q/%q, want health/high", alert.Kind, alert.Severity)
	}
	if alert.DeviceID != "ap-1" {
		t.Errorf("alert device = %q, want ap-1", alert.DeviceID)
	}

	// Still critical with a different score: the snapshot changes, but
	// there is no second alert until the device leaves critical.
	m.Recompute(context.Background(), "ap-1", strugglingWindow(), time.Now())
	if ev, ok := inbox.TryNext(); ok {
		t.Errorf("second alert while already critical: %+v", ev)
	}
}

func TestDegradingDeviceScenario(t *testing.T) {
	m := newTestModule(t)
	now := time.Date(2026, 1, 15, 12, 0, 0, 0, time.UTC)

	// Twenty samples of steady decline: signal walks from -50 toward -90,
	// responses from 200ms to 800ms, disconnects begin after sample 15,
	// errors accumulate, temperature climbs from 65 to 88.
	base := now.Add(-20 * time.Minute)
	window := make([]ring.Entry, 20)
	for i := range window {
		e := entry(-50 - 2.11*float64(i))
		e.Timestamp = base.Add(time.Duration(i) * time.Minute)
		e.ResponseTimeMS = fptr(200 + 31.6*float64(i))
		online := i < 15 || i%2 == 0
		e.IsOnline = bptr(online)
		e.ErrorCount = iptr(i / 5)
		e.TemperatureC = fptr(65 + 23.0/19.0*float64(i))
		window[i] = e
	}

	m.Recompute(context.Background(), "ap-1", window, now)

	snap, ok := m.Snapshot("ap-1")
	if !ok {
		t.Fatal("Snapshot() missing")
	}
	if snap.Risk != models.RiskHigh && snap.Risk != models.RiskCritical {
		t.Errorf("risk = %q, want high or critical (score %v)", snap.Risk, snap.Score)
	}
	if snap.PredictedFailureAt == nil {
		t.Fatal("no failure prediction for a degrading device")
	}
	if days := snap.PredictedFailureAt.Sub(now).Hours() / 24; days > 30 {
		t.Errorf("failure predicted in %.1f days, want within ~30", days)
	}
	if snap.Confidence < 0.5 {
		t.Errorf("confidence = %v, want >= 0.5", snap.Confidence)
	}
	for _, want := range []string{"Poor signal strength", "Frequent disconnections", "Temperature concerns"} {
		found := false
		for _, f := range snap.Factors {
			if f == want {
				found = true
				break
			}
		}
		if !found {
			t.Errorf("factors %v missing %q", snap.Factors, want)
		}
	}
}

type fakeHistory struct {
	devices map[string][]ring.Entry
}

func (f *fakeHistory) DeviceIDs() []string {
	ids := make([]string, 0, len(f.devices))
	for id := range f.devices {
		ids = append(ids, id)
	}
	return ids
}

func (f *fakeHistory) History(deviceID string, k int) []ring.Entry {
	h := f.devices[deviceID]
	if k < len(h) {
		return h[len(h)-k:]
	}
	return h
}

func TestSweepScoresAndReconciles(t *testing.T) {
	m := newTestModule(t)
	m.ctx = context.Background()
	m.telemetry = &fakeHistory{devices: map[string][]ring.Entry{
		"ap-live": steadyWindow(20),
	}}

	// A snapshot for a device telemetry has since evicted.
	m.snapshots["ap-gone"] = models.HealthSnapshot{DeviceID: "ap-gone", Score: 50}

	m.runSweep(time.Now())

	if _, ok := m.Snapshot("ap-live"); !ok {
		t.Error("sweep did not score the live device")
	}
	if _, ok := m.Snapshot("ap-gone"); ok {
		t.Error("sweep kept the snapshot for an evicted device")
	}
}

func TestSweepWithoutTelemetryIsNoop(t *testing.T) {
	m := newTestModule(t)
	m.ctx = context.Background()
	m.runSweep(time.Now()) // must not panic
}

func TestSnapshotSinkPersists(t *testing.T) {
	db, err := store.New(":memory:")
	if err != nil {
		t.Fatalf("open test db: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	m := New()
	err = m.Init(context.Background(), plugin.Dependencies{
		Logger: zap.NewNop(),
		Store:  db,
		Bus:    event.NewBus(zap.NewNop(), 0),
	})
	if err != nil {
		t.Fatalf("Init() error = %v", err)
	}
	if err := m.Start(context.Background()); err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	t.Cleanup(func() { m.Stop(context.Background()) })

	m.Recompute(context.Background(), "ap-1", steadyWindow(20), time.Now())

	deadline := time.Now().Add(2 * time.Second)
	for {
		history, err := m.store.SnapshotHistory(context.Background(), "ap-1", 10)
		if err != nil {
			t.Fatalf("SnapshotHistory() error = %v", err)
		}
		if len(history) == 1 {
			if history[0].Score != 100 {
				t.Errorf("persisted score = %v, want 100", history[0].Score)
			}
			if history[0].Risk != models.RiskLow {
				t.Errorf("persisted risk = %q, want low", history[0].Risk)
			}
			return
		}
		if time.Now().After(deadline) {
			t.Fatalf("snapshot not persisted after 2s, rows = %d", len(history))
		}
		time.Sleep(10 * time.Millisecond)
	}
}
