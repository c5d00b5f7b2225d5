package logger

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/nats-io/nats.go"
)

// LogEntry is the wire form of a log message published to NATS, for
// dashboards and recorders subscribed to a running graph.
type LogEntry struct {
	Timestamp   string  `json:"timestamp"`
	Level       string  `json:"level"`
	Graph       string  `json:"graph"`
	Entity      string  `json:"entity"`
	Tick        int64   `json:"tick"`
	LogicalTime float64 `json:"logical_time"`
	Origin      string  `json:"origin,omitempty"`
	Message     string  `json:"message"`
}

// LogSubject returns the subject entries for one entity are published on.
func LogSubject(graph, entity string) string {
	return fmt.Sprintf("logs.%s.%s", graph, entity)
}

// NATSSink publishes entries as JSON on logs.{graph}.{entity}. Publishing
// is fire-and-forget: a failed publish is reported on the local logger
// and the message is dropped rather than stalling the control loop.
type NATSSink struct {
	graph   string
	nc      *nats.Conn
	local   *slog.Logger
	enabled bool
}

// NewNATSSink creates a sink for the named graph. A nil connection yields
// a disabled sink whose Emit is a no-op, so callers can wire it
// unconditionally. A nil local logger uses slog.Default.
func NewNATSSink(graph string, nc *nats.Conn, local *slog.Logger) *NATSSink {
	if local == nil {
		local = slog.Default()
	}
	return &NATSSink{
		graph:   graph,
		nc:      nc,
		local:   local,
		enabled: nc != nil,
	}
}

// Enabled reports whether the sink has a connection to publish on.
func (s *NATSSink) Enabled() bool { return s.enabled }

// Emit publishes the entry.
func (s *NATSSink) Emit(e Entry) {
	if !s.enabled || s.nc == nil {
		return
	}

	wire := LogEntry{
		Timestamp:   e.Wall.Format(time.RFC3339Nano),
		Level:       e.Level,
		Graph:       s.graph,
		Entity:      e.Entity,
		Tick:        int64(e.Tick),
		LogicalTime: e.Logical,
		Origin:      e.Origin(),
		Message:     e.Message,
	}

	data, err := json.Marshal(wire)
	if err != nil {
		s.local.Error("failed to marshal log entry",
			"entity", e.Entity,
			"error", err)
		return
	}

	if err := s.nc.Publish(LogSubject(s.graph, e.Entity), data); err != nil {
		s.local.Error("failed to publish log entry",
			"entity", e.Entity,
			"subject", LogSubject(s.graph, e.Entity),
			"error", err)
	}
}
