package logger

import (
	"context"
	"log/slog"
	"time"

	"github.com/nim65s/dynamic-graph/signal"
)

// Entry is one message after gating and throttling, carrying both wall
// and logical timestamps.
type Entry struct {
	Wall    time.Time
	Tick    signal.Time
	Logical float64
	Level   string
	Entity  string
	File    string
	Line    int
	Message string
}

// Origin returns the file:line the message was sent from, or "" when the
// caller could not be resolved.
func (e Entry) Origin() string {
	if e.File == "" {
		return ""
	}
	return originKey(e.File, e.Line)
}

// Sink receives gated, throttled entries. Implementations must not block
// for long: Emit runs on the caller's goroutine, which in an engine-driven
// graph is the control loop.
type Sink interface {
	Emit(e Entry)
}

// SlogSink writes entries to a structured logger.
type SlogSink struct {
	logger *slog.Logger
}

// NewSlogSink wraps logger; a nil logger uses slog.Default.
func NewSlogSink(logger *slog.Logger) *SlogSink {
	if logger == nil {
		logger = slog.Default()
	}
	return &SlogSink{logger: logger}
}

// Emit writes the entry at the slog level matching its severity.
func (s *SlogSink) Emit(e Entry) {
	attrs := []slog.Attr{
		slog.String("entity", e.Entity),
		slog.Int64("tick", int64(e.Tick)),
		slog.Float64("t", e.Logical),
	}
	if origin := e.Origin(); origin != "" {
		attrs = append(attrs, slog.String("origin", origin))
	}
	s.logger.LogAttrs(context.Background(), slogLevel(e.Level), e.Message, attrs...)
}

func slogLevel(level string) slog.Level {
	switch level {
	case "DEBUG":
		return slog.LevelDebug
	case "WARNING":
		return slog.LevelWarn
	case "ERROR":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// FuncSink adapts a function to the Sink interface, mainly for tests.
type FuncSink func(e Entry)

// Emit calls the function.
func (f FuncSink) Emit(e Entry) { f(e) }
