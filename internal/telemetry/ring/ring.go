// Package ring implements the bounded per-device measurement history.
//
// A Buffer is not safe for concurrent use; the ingest pipeline serialises
// access per device through its lane locks.
package ring

import (
	"time"

	"github.com/HerbHall/wavesight/pkg/models"
)

// DefaultCapacity bounds the per-device history.
const DefaultCapacity = 100

// Entry is one stored measurement with the values derived at ingest time.
// Entries travel the event bus as the `measurement` topic payload.
type Entry struct {
	models.Measurement

	// SmoothedRSSI is the Kalman estimate after this measurement.
	SmoothedRSSI float64 `json:"smoothed_rssi"`
	// EWMARSSI is the EWMA estimate after this measurement.
	EWMARSSI float64 `json:"ewma_rssi"`
	// AnomalyScore is the statistical score for this measurement, 0 when
	// the history was too short to score.
	AnomalyScore float64 `json:"anomaly_score"`
}

// Buffer is a fixed-capacity FIFO of entries. Appending to a full buffer
// evicts the oldest entry.
type Buffer struct {
	buf   []Entry
	head  int
	count int
}

// New creates a buffer. capacity <= 0 selects DefaultCapacity.
func New(capacity int) *Buffer {
	if capacity <= 0 {
		capacity = DefaultCapacity
	}
	return &Buffer{buf: make([]Entry, capacity)}
}

// Append adds an entry, evicting the oldest when full.
func (b *Buffer) Append(e Entry) {
	if b.count == len(b.buf) {
		b.buf[b.head] = e
		b.head = (b.head + 1) % len(b.buf)
		return
	}
	b.buf[(b.head+b.count)%len(b.buf)] = e
	b.count++
}

// Len returns the number of stored entries.
func (b *Buffer) Len() int { return b.count }

// Cap returns the fixed capacity.
func (b *Buffer) Cap() int { return len(b.buf) }

// Last returns the most recent entry.
func (b *Buffer) Last() (Entry, bool) {
	if b.count == 0 {
		return Entry{}, false
	}
	return b.at(b.count - 1), true
}

// SetLastScore attaches an anomaly score to the most recent entry.
func (b *Buffer) SetLastScore(score float64) {
	if b.count == 0 {
		return
	}
	b.buf[(b.head+b.count-1)%len(b.buf)].AnomalyScore = score
}

// Tail returns a copy of the last k entries in append order. k <= 0 returns
// nil; k beyond the stored count returns everything.
func (b *Buffer) Tail(k int) []Entry {
	if k <= 0 || b.count == 0 {
		return nil
	}
	if k > b.count {
		k = b.count
	}
	out := make([]Entry, k)
	for i := 0; i < k; i++ {
		out[i] = b.at(b.count - k + i)
	}
	return out
}

// All returns a copy of every stored entry in append order.
func (b *Buffer) All() []Entry {
	return b.Tail(b.count)
}

// Between returns entries with from <= Timestamp <= to, in append order.
func (b *Buffer) Between(from, to time.Time) []Entry {
	var out []Entry
	for i := 0; i < b.count; i++ {
		e := b.at(i)
		if e.Timestamp.Before(from) || e.Timestamp.After(to) {
			continue
		}
		out = append(out, e)
	}
	return out
}

// Window returns entries whose timestamp falls within span of now.
func (b *Buffer) Window(now time.Time, span time.Duration) []Entry {
	return b.Between(now.Add(-span), now)
}

func (b *Buffer) at(i int) Entry {
	return b.buf[(b.head+i)%len(b.buf)]
}
