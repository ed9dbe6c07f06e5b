// Package ws serves the live event stream over WebSocket.
//
// Each connected client owns a bounded event-bus inbox; the write pump
// drains that inbox to the socket under a write deadline, so a slow or
// dead client is disconnected without ever blocking publishers.
package ws

import (
	"time"

	"github.com/HerbHall/wavesight/internal/atlas"
	"github.com/HerbHall/wavesight/internal/telemetry"
	"github.com/HerbHall/wavesight/internal/vitals"
)

// MessageType identifies the kind of message on the stream.
type MessageType string

const (
	// MessageEvent carries a bus event; Topic names the bus topic.
	MessageEvent MessageType = "event"
	// MessageStats carries per-connection delivery statistics. Clients
	// request one by sending {"type":"sys.stats"}.
	MessageStats MessageType = "sys.stats"
	// MessageError reports a malformed or unsupported client request.
	MessageError MessageType = "error"
)

// Message is the envelope for everything written to a stream client.
type Message struct {
	Type      MessageType `json:"type"`
	Topic     string      `json:"topic,omitempty"`
	Timestamp time.Time   `json:"timestamp"`
	Data      any         `json:"data,omitempty"`
}

// StatsData is the sys.stats payload: what this connection has seen.
type StatsData struct {
	Topics      []string  `json:"topics"`
	Delivered   uint64    `json:"delivered"`
	Dropped     uint64    `json:"dropped"`
	Pending     int       `json:"pending"`
	ConnectedAt time.Time `json:"connected_at"`
}

// ErrorData is the error payload.
type ErrorData struct {
	Error string `json:"error"`
}

// ClientRequest is a message sent by a connected client.
type ClientRequest struct {
	Type MessageType `json:"type"`
}

// validTopics is the set of subscribable bus topics.
var validTopics = map[string]bool{
	telemetry.TopicMeasurement: true,
	telemetry.TopicAnomaly:     true,
	telemetry.TopicAlert:       true,
	vitals.TopicHealth:         true,
	atlas.TopicRegion:          true,
}

// allTopics returns the full topic set in a stable order.
func allTopics() []string {
	return []string{
		telemetry.TopicMeasurement,
		vitals.TopicHealth,
		telemetry.TopicAnomaly,
		atlas.TopicRegion,
		telemetry.TopicAlert,
	}
}
