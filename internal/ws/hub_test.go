package ws

import (
	"context"
	"sync"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/HerbHall/wavesight/internal/event"
	"github.com/HerbHall/wavesight/internal/telemetry"
	"github.com/HerbHall/wavesight/pkg/plugin"
)

func testLogger() *zap.Logger {
	return zap.NewNop()
}

// newTestClient opens a client on the given bus with a small inbox. No
// websocket connection is attached; hub tests never write to the socket.
func newTestClient(bus plugin.EventBus, subject string, topics ...string) *Client {
	if len(topics) == 0 {
		topics = allTopics()
	}
	return &Client{
		conn:        nil,
		subject:     subject,
		topics:      topics,
		inbox:       bus.SubscribeInbox(8, topics...),
		connectedAt: time.Now().UTC(),
		logger:      testLogger(),
	}
}

// TestNewHub verifies that NewHub creates a hub with no clients.
func TestNewHub(t *testing.T) {
	hub := NewHub(testLogger())

	if hub == nil {
		t.Fatal("NewHub() returned nil")
	}
	if hub.ClientCount() != 0 {
		t.Errorf("ClientCount() = %d, want 0", hub.ClientCount())
	}
}

// TestRegister verifies that Register adds a client and increments ClientCount.
func TestRegister(t *testing.T) {
	hub := NewHub(testLogger())
	bus := event.NewBus(zap.NewNop(), 0)
	client := newTestClient(bus, "dash-1")

	hub.Register(client)

	if hub.ClientCount() != 1 {
		t.Errorf("ClientCount() = %d, want 1", hub.ClientCount())
	}

	hub.mu.RLock()
	_, exists := hub.clients[client]
	hub.mu.RUnlock()

	if !exists {
		t.Error("client not found in hub.clients map")
	}
}

// TestUnregister verifies that Unregister removes a client and closes its inbox.
func TestUnregister(t *testing.T) {
	hub := NewHub(testLogger())
	bus := event.NewBus(zap.NewNop(), 0)
	client := newTestClient(bus, "dash-1")

	hub.Register(client)
	hub.Unregister(client)

	if hub.ClientCount() != 0 {
		t.Errorf("ClientCount() = %d, want 0", hub.ClientCount())
	}

	// A closed inbox returns false immediately.
	if _, ok := client.inbox.Next(context.Background()); ok {
		t.Error("inbox still open after unregister")
	}
}

// TestUnregisterNotRegistered verifies that unregistering an unknown client
// leaves its inbox open.
func TestUnregisterNotRegistered(t *testing.T) {
	hub := NewHub(testLogger())
	bus := event.NewBus(zap.NewNop(), 0)
	client := newTestClient(bus, "dash-1", telemetry.TopicAlert)

	hub.Unregister(client)

	if hub.ClientCount() != 0 {
		t.Errorf("ClientCount() = %d, want 0", hub.ClientCount())
	}

	// The inbox must still receive events.
	if err := bus.Publish(context.Background(), plugin.Event{Topic: telemetry.TopicAlert, Source: "test"}); err != nil {
		t.Fatalf("Publish() error = %v", err)
	}
	if _, ok := client.inbox.TryNext(); !ok {
		t.Error("inbox was closed for a client that was never registered")
	}
}

// TestUnregisterTwice verifies that unregistering the same client twice is safe.
func TestUnregisterTwice(t *testing.T) {
	hub := NewHub(testLogger())
	bus := event.NewBus(zap.NewNop(), 0)
	client := newTestClient(bus, "dash-1")

	hub.Register(client)
	hub.Unregister(client)

	defer func() {
		if r := recover(); r != nil {
			t.Errorf("second Unregister() panicked: %v", r)
		}
	}()

	hub.Unregister(client)

	if hub.ClientCount() != 0 {
		t.Errorf("ClientCount() = %d, want 0", hub.ClientCount())
	}
}

// TestInboxFiltersTopics verifies that a client only receives the topics it
// subscribed to.
func TestInboxFiltersTopics(t *testing.T) {
	bus := event.NewBus(zap.NewNop(), 0)
	client := newTestClient(bus, "dash-1", telemetry.TopicAnomaly)

	ctx := context.Background()
	if err := bus.Publish(ctx, plugin.Event{Topic: telemetry.TopicMeasurement, Source: "test"}); err != nil {
		t.Fatalf("Publish() error = %v", err)
	}
	if _, ok := client.inbox.TryNext(); ok {
		t.Error("received an event for a topic the client did not subscribe to")
	}

	if err := bus.Publish(ctx, plugin.Event{Topic: telemetry.TopicAnomaly, Source: "test"}); err != nil {
		t.Fatalf("Publish() error = %v", err)
	}
	ev, ok := client.inbox.TryNext()
	if !ok {
		t.Fatal("subscribed topic was not delivered")
	}
	if ev.Topic != telemetry.TopicAnomaly {
		t.Errorf("event topic = %q, want %q", ev.Topic, telemetry.TopicAnomaly)
	}
}

// TestClientStats verifies that stats reports queue depth and drops.
func TestClientStats(t *testing.T) {
	bus := event.NewBus(zap.NewNop(), 0)
	client := &Client{
		subject:     "dash-1",
		topics:      []string{telemetry.TopicAlert},
		inbox:       bus.SubscribeInbox(2, telemetry.TopicAlert),
		connectedAt: time.Now().UTC(),
		logger:      testLogger(),
	}

	ctx := context.Background()
	for i := 0; i < 3; i++ {
		if err := bus.Publish(ctx, plugin.Event{Topic: telemetry.TopicAlert, Source: "test"}); err != nil {
			t.Fatalf("Publish() error = %v", err)
		}
	}

	got := client.stats()
	if got.Pending != 2 {
		t.Errorf("stats Pending = %d, want 2", got.Pending)
	}
	if got.Dropped != 1 {
		t.Errorf("stats Dropped = %d, want 1", got.Dropped)
	}
	if got.Delivered != 0 {
		t.Errorf("stats Delivered = %d, want 0", got.Delivered)
	}
	if len(got.Topics) != 1 || got.Topics[0] != telemetry.TopicAlert {
		t.Errorf("stats Topics = %v, want [%s]", got.Topics, telemetry.TopicAlert)
	}
	if got.ConnectedAt.IsZero() {
		t.Error("stats ConnectedAt is zero")
	}
}

// TestObserveDrops verifies that drop observation tracks the inbox counter.
func TestObserveDrops(t *testing.T) {
	bus := event.NewBus(zap.NewNop(), 0)
	client := &Client{
		subject: "dash-1",
		topics:  []string{telemetry.TopicAlert},
		inbox:   bus.SubscribeInbox(1, telemetry.TopicAlert),
		logger:  testLogger(),
	}

	ctx := context.Background()
	for i := 0; i < 3; i++ {
		if err := bus.Publish(ctx, plugin.Event{Topic: telemetry.TopicAlert, Source: "test"}); err != nil {
			t.Fatalf("Publish() error = %v", err)
		}
	}

	client.observeDrops()
	if got := client.lastDropped.Load(); got != 2 {
		t.Errorf("lastDropped = %d, want 2", got)
	}

	// A second observation with no new drops must not move the marker.
	client.observeDrops()
	if got := client.lastDropped.Load(); got != 2 {
		t.Errorf("lastDropped after second observe = %d, want 2", got)
	}
}

// TestConcurrentRegisterUnregister verifies that concurrent hub operations
// are safe and leave the hub empty.
func TestConcurrentRegisterUnregister(t *testing.T) {
	hub := NewHub(testLogger())
	bus := event.NewBus(zap.NewNop(), 0)

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			client := newTestClient(bus, "dash")
			hub.Register(client)
			time.Sleep(time.Millisecond)
			hub.Unregister(client)
		}()
	}
	wg.Wait()

	if hub.ClientCount() != 0 {
		t.Errorf("ClientCount() = %d, want 0", hub.ClientCount())
	}
}
