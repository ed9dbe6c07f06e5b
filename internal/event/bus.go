// Package event provides the in-memory implementation of plugin.EventBus.
//
// Delivery model: every subscription owns a bounded inbox. Publish appends
// to each matching inbox in the caller's goroutine and returns; it never
// blocks. A full inbox discards its oldest event and counts the drop, so a
// slow subscriber can fall behind but can never stall ingest. Within one
// topic, events are delivered in publish order.
package event

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/HerbHall/wavesight/pkg/plugin"
	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"
)

// DefaultInboxCapacity is used when a subscriber does not request a size.
const DefaultInboxCapacity = 1024

// Prometheus bus metrics.
var (
	eventsPublished = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "wavesight_bus_published_total",
			Help: "Events published to the bus by topic.",
		},
		[]string{"topic"},
	)
	eventsDropped = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "wavesight_bus_dropped_total",
			Help: "Events discarded because a subscriber inbox was full.",
		},
		[]string{"topic"},
	)
)

func init() {
	prometheus.MustRegister(eventsPublished)
	prometheus.MustRegister(eventsDropped)
}

// Compile-time interface guards.
var (
	_ plugin.EventBus = (*Bus)(nil)
	_ plugin.Inbox    = (*subscription)(nil)
)

// Bus is the in-memory event bus implementing plugin.EventBus.
type Bus struct {
	mu         sync.RWMutex
	subs       map[string][]*subscription // topic -> subscriptions
	allSubs    []*subscription            // subscriptions matching every topic
	nextID     uint64
	defaultCap int
	logger     *zap.Logger
}

// NewBus creates an in-memory event bus. defaultCapacity sizes inboxes for
// subscribers that do not choose one; <=0 selects DefaultInboxCapacity.
func NewBus(logger *zap.Logger, defaultCapacity int) *Bus {
	if defaultCapacity <= 0 {
		defaultCapacity = DefaultInboxCapacity
	}
	return &Bus{
		subs:       make(map[string][]*subscription),
		defaultCap: defaultCapacity,
		logger:     logger,
	}
}

// Publish enqueues the event on every matching subscription and returns.
// A zero Timestamp is stamped with the current time.
func (b *Bus) Publish(_ context.Context, event plugin.Event) error {
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now().UTC()
	}

	b.mu.RLock()
	topicSubs := make([]*subscription, len(b.subs[event.Topic]))
	copy(topicSubs, b.subs[event.Topic])
	allSubs := make([]*subscription, len(b.allSubs))
	copy(allSubs, b.allSubs)
	b.mu.RUnlock()

	eventsPublished.WithLabelValues(event.Topic).Inc()

	for _, s := range topicSubs {
		s.push(event)
	}
	for _, s := range allSubs {
		s.push(event)
	}
	return nil
}

// Subscribe registers a handler for a topic. The handler runs on a
// dedicated goroutine fed by a default-capacity inbox, so a slow handler
// drops old events rather than blocking publishers. Returns an unsubscribe
// function.
func (b *Bus) Subscribe(topic string, handler plugin.EventHandler) (unsubscribe func()) {
	var topics []string
	if topic != "" {
		topics = []string{topic}
	}
	sub := b.addSubscription(b.defaultCap, topics)

	go func() {
		ctx := context.Background()
		for {
			ev, ok := sub.Next(ctx)
			if !ok {
				return
			}
			b.safeCall(ctx, handler, ev)
		}
	}()

	return sub.Close
}

// SubscribeInbox opens a raw bounded inbox for the given topics (all topics
// when none are named). The caller drains it with Next and releases it with
// Close.
func (b *Bus) SubscribeInbox(capacity int, topics ...string) plugin.Inbox {
	if capacity <= 0 {
		capacity = b.defaultCap
	}
	return b.addSubscription(capacity, topics)
}

func (b *Bus) addSubscription(capacity int, topics []string) *subscription {
	sub := &subscription{
		topics: topics,
		buf:    make([]plugin.Event, capacity),
		notify: make(chan struct{}, 1),
		done:   make(chan struct{}),
	}

	b.mu.Lock()
	sub.id = b.nextID
	b.nextID++
	if len(topics) == 0 {
		b.allSubs = append(b.allSubs, sub)
	} else {
		for _, t := range topics {
			b.subs[t] = append(b.subs[t], sub)
		}
	}
	b.mu.Unlock()

	sub.remove = func() { b.removeSubscription(sub) }
	return sub
}

func (b *Bus) removeSubscription(sub *subscription) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if len(sub.topics) == 0 {
		b.allSubs = deleteSub(b.allSubs, sub.id)
		return
	}
	for _, t := range sub.topics {
		b.subs[t] = deleteSub(b.subs[t], sub.id)
		if len(b.subs[t]) == 0 {
			delete(b.subs, t)
		}
	}
}

func deleteSub(entries []*subscription, id uint64) []*subscription {
	for i, e := range entries {
		if e.id == id {
			return append(entries[:i], entries[i+1:]...)
		}
	}
	return entries
}

func (b *Bus) safeCall(ctx context.Context, handler plugin.EventHandler, event plugin.Event) {
	defer func() {
		if r := recover(); r != nil {
			b.logger.Error("event handler panicked",
				zap.String("topic", event.Topic),
				zap.String("source", event.Source),
				zap.Any("panic", r),
			)
		}
	}()
	handler(ctx, event)
}

// subscription is a bounded drop-oldest mailbox. push is safe for many
// producers; Next/TryNext expect a single consumer.
type subscription struct {
	id     uint64
	topics []string
	remove func()

	mu     sync.Mutex
	buf    []plugin.Event // fixed-size ring
	head   int
	count  int
	closed bool

	dropped atomic.Uint64
	notify  chan struct{}
	done    chan struct{}
}

func (s *subscription) push(ev plugin.Event) {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	if s.count == len(s.buf) {
		// Full: discard the oldest queued event.
		s.head = (s.head + 1) % len(s.buf)
		s.count--
		s.dropped.Add(1)
		eventsDropped.WithLabelValues(ev.Topic).Inc()
	}
	s.buf[(s.head+s.count)%len(s.buf)] = ev
	s.count++
	s.mu.Unlock()

	select {
	case s.notify <- struct{}{}:
	default:
	}
}

// Next implements plugin.Inbox.
func (s *subscription) Next(ctx context.Context) (plugin.Event, bool) {
	for {
		if ev, ok := s.TryNext(); ok {
			return ev, true
		}

		s.mu.Lock()
		closed := s.closed
		s.mu.Unlock()
		if closed {
			return plugin.Event{}, false
		}

		select {
		case <-s.notify:
		case <-s.done:
			// Drain anything that arrived before the close.
			if ev, ok := s.TryNext(); ok {
				return ev, true
			}
			return plugin.Event{}, false
		case <-ctx.Done():
			return plugin.Event{}, false
		}
	}
}

// TryNext implements plugin.Inbox.
func (s *subscription) TryNext() (plugin.Event, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.count == 0 {
		return plugin.Event{}, false
	}
	ev := s.buf[s.head]
	s.buf[s.head] = plugin.Event{}
	s.head = (s.head + 1) % len(s.buf)
	s.count--
	return ev, true
}

// Dropped implements plugin.Inbox.
func (s *subscription) Dropped() uint64 {
	return s.dropped.Load()
}

// Len implements plugin.Inbox.
func (s *subscription) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.count
}

// Close implements plugin.Inbox. It detaches the subscription from the bus
// and wakes any blocked Next caller. Safe to call more than once.
func (s *subscription) Close() {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	s.closed = true
	s.mu.Unlock()

	if s.remove != nil {
		s.remove()
	}
	close(s.done)
}
