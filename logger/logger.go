package logger

import (
	"path/filepath"
	"runtime"
	"strconv"
	"sync/atomic"
	"time"

	"golang.org/x/time/rate"

	"github.com/nim65s/dynamic-graph/signal"
)

// MsgType classifies a message by severity and stream-ness. Stream
// variants are throttled by the stream print period; plain variants pass
// only the verbosity gate. Error messages of either variant are never
// throttled: a control loop must not lose its failure reports.
type MsgType int

const (
	MsgTypeDebug MsgType = iota
	MsgTypeInfo
	MsgTypeWarning
	MsgTypeError
	MsgTypeDebugStream
	MsgTypeInfoStream
	MsgTypeWarningStream
	MsgTypeErrorStream
)

// Level maps a stream variant to its base severity.
func (mt MsgType) Level() MsgType {
	if mt >= MsgTypeDebugStream {
		return mt - MsgTypeDebugStream
	}
	return mt
}

// IsStream reports whether the message is subject to the stream print
// period.
func (mt MsgType) IsStream() bool {
	return mt >= MsgTypeDebugStream
}

// String returns the severity name.
func (mt MsgType) String() string {
	switch mt.Level() {
	case MsgTypeDebug:
		return "DEBUG"
	case MsgTypeInfo:
		return "INFO"
	case MsgTypeWarning:
		return "WARNING"
	case MsgTypeError:
		return "ERROR"
	default:
		return "UNKNOWN"
	}
}

// Verbosity selects which severities a logger emits. Higher values admit
// more.
type Verbosity int

const (
	VerbosityNone Verbosity = iota
	VerbosityErrorOnly
	VerbosityWarningError
	VerbosityInfoWarningError
	VerbosityAll
)

// String returns the verbosity name used in configuration files.
func (v Verbosity) String() string {
	switch v {
	case VerbosityNone:
		return "none"
	case VerbosityErrorOnly:
		return "error"
	case VerbosityWarningError:
		return "warning"
	case VerbosityInfoWarningError:
		return "info"
	case VerbosityAll:
		return "all"
	default:
		return "unknown"
	}
}

// ParseVerbosity reads a configuration-file verbosity name.
func ParseVerbosity(s string) (Verbosity, bool) {
	switch s {
	case "none":
		return VerbosityNone, true
	case "error":
		return VerbosityErrorOnly, true
	case "warning":
		return VerbosityWarningError, true
	case "info":
		return VerbosityInfoWarningError, true
	case "all", "debug":
		return VerbosityAll, true
	default:
		return VerbosityNone, false
	}
}

// Clock is the logical time source an evaluation engine shares with the
// loggers of the entities it drives. It is safe for the engine to advance
// it while other goroutines read.
type Clock struct {
	tick atomic.Int64
}

// Now returns the current logical tick.
func (c *Clock) Now() signal.Time {
	return signal.Time(c.tick.Load())
}

// Advance moves the clock one tick forward and returns the new value.
func (c *Clock) Advance() signal.Time {
	return signal.Time(c.tick.Add(1))
}

// Set jumps the clock to t.
func (c *Clock) Set(t signal.Time) {
	c.tick.Store(int64(t))
}

const (
	defaultTimeSample        = 0.001 // seconds of logical time per tick
	defaultStreamPrintPeriod = 1.0   // seconds between emissions per origin
)

// Logger is the rate-limited, verbosity-gated diagnostic channel owned by
// one entity. Two independent throttles keep a chatty entity from
// starving a hard-real-time loop with I/O: the verbosity gate drops
// messages before any formatting work, and stream messages are emitted at
// most once per stream print period per origin (file:line). When a Clock
// is attached the period is measured in logical time (streamPrintPeriod /
// timeSample ticks); detached loggers fall back to a wall-clock limiter.
//
// Structural mutation (setters, sink changes) follows the single-threaded
// wiring discipline of the rest of the core; the counters are atomic so
// observers may read them from anywhere.
type Logger struct {
	entity            string
	verbosity         Verbosity
	timeSample        float64
	streamPrintPeriod float64
	clock             *Clock
	next              map[string]signal.Time
	limiters          map[string]*rate.Limiter
	sinks             []Sink
	observer          func(level string, suppressed bool)

	emitted    atomic.Int64
	suppressed atomic.Int64
}

// Option configures a Logger.
type Option func(*Logger)

// WithVerbosity sets the initial verbosity.
func WithVerbosity(v Verbosity) Option {
	return func(l *Logger) { l.verbosity = v }
}

// WithSink adds an output sink.
func WithSink(s Sink) Option {
	return func(l *Logger) { l.sinks = append(l.sinks, s) }
}

// WithClock attaches a logical clock for stream throttling.
func WithClock(c *Clock) Option {
	return func(l *Logger) { l.clock = c }
}

// WithTimeSample sets the seconds of logical time one tick represents.
// Non-positive values are ignored.
func WithTimeSample(dt float64) Option {
	return func(l *Logger) { l.SetTimeSample(dt) }
}

// WithStreamPrintPeriod sets the minimum seconds between emissions of one
// stream origin. Non-positive values are ignored.
func WithStreamPrintPeriod(p float64) Option {
	return func(l *Logger) { l.SetStreamPrintPeriod(p) }
}

// WithObserver installs a hook called once per message with its severity
// and whether the stream throttle suppressed it. Used to feed metrics.
func WithObserver(fn func(level string, suppressed bool)) Option {
	return func(l *Logger) { l.observer = fn }
}

// New creates a logger for the named entity. Without options it emits
// info and above to nowhere: attach sinks with WithSink or AddSink.
func New(entity string, opts ...Option) *Logger {
	l := &Logger{
		entity:            entity,
		verbosity:         VerbosityInfoWarningError,
		timeSample:        defaultTimeSample,
		streamPrintPeriod: defaultStreamPrintPeriod,
		next:              make(map[string]signal.Time),
		limiters:          make(map[string]*rate.Limiter),
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// Entity returns the owning entity's name.
func (l *Logger) Entity() string { return l.entity }

// AddSink attaches an output sink after construction.
func (l *Logger) AddSink(s Sink) { l.sinks = append(l.sinks, s) }

// SetClock attaches the engine's logical clock.
func (l *Logger) SetClock(c *Clock) { l.clock = c }

// SetObserver installs the per-message hook after construction, for
// loggers built inside an entity.
func (l *Logger) SetObserver(fn func(level string, suppressed bool)) { l.observer = fn }

// SetVerbosity changes which severities are emitted.
func (l *Logger) SetVerbosity(v Verbosity) { l.verbosity = v }

// Verbosity returns the current verbosity.
func (l *Logger) Verbosity() Verbosity { return l.verbosity }

// SetTimeSample sets the seconds of logical time one tick represents.
// Returns false and leaves the sample unchanged for non-positive values.
func (l *Logger) SetTimeSample(dt float64) bool {
	if dt <= 0 {
		return false
	}
	l.timeSample = dt
	return true
}

// TimeSample returns the seconds of logical time one tick represents.
func (l *Logger) TimeSample() float64 { return l.timeSample }

// SetStreamPrintPeriod sets the minimum seconds between emissions of one
// stream origin. Returns false and leaves the period unchanged for
// non-positive values.
func (l *Logger) SetStreamPrintPeriod(p float64) bool {
	if p <= 0 {
		return false
	}
	l.streamPrintPeriod = p
	return true
}

// StreamPrintPeriod returns the minimum seconds between emissions of one
// stream origin.
func (l *Logger) StreamPrintPeriod() float64 { return l.streamPrintPeriod }

// Emitted returns how many messages reached the sinks.
func (l *Logger) Emitted() int64 { return l.emitted.Load() }

// Suppressed returns how many stream messages the throttle dropped.
func (l *Logger) Suppressed() int64 { return l.suppressed.Load() }

// Send logs msg with the caller's file and line as origin.
func (l *Logger) Send(typ MsgType, msg string) {
	if !l.admits(typ) {
		return
	}
	file, line := "", 0
	if _, f, ln, ok := runtime.Caller(1); ok {
		file, line = filepath.Base(f), ln
	}
	l.deliver(typ, msg, file, line)
}

// SendWithOrigin logs msg with an explicit origin, for callers that
// capture their own location.
func (l *Logger) SendWithOrigin(typ MsgType, msg string, file string, line int) {
	if !l.admits(typ) {
		return
	}
	l.deliver(typ, msg, file, line)
}

// admits applies the verbosity gate. It runs before any formatting or
// caller lookup so dropped messages cost almost nothing.
func (l *Logger) admits(typ MsgType) bool {
	switch typ.Level() {
	case MsgTypeError:
		return l.verbosity >= VerbosityErrorOnly
	case MsgTypeWarning:
		return l.verbosity >= VerbosityWarningError
	case MsgTypeInfo:
		return l.verbosity >= VerbosityInfoWarningError
	default:
		return l.verbosity >= VerbosityAll
	}
}

func (l *Logger) deliver(typ MsgType, msg, file string, line int) {
	level := typ.Level().String()

	// Errors bypass the stream throttle.
	if typ.IsStream() && typ.Level() != MsgTypeError {
		if !l.allowStream(originKey(file, line)) {
			l.suppressed.Add(1)
			if l.observer != nil {
				l.observer(level, true)
			}
			return
		}
	}

	tick := signal.Time(0)
	if l.clock != nil {
		tick = l.clock.Now()
	}
	entry := Entry{
		Wall:    time.Now().UTC(),
		Tick:    tick,
		Logical: float64(tick) * l.timeSample,
		Level:   level,
		Entity:  l.entity,
		File:    file,
		Line:    line,
		Message: msg,
	}
	for _, s := range l.sinks {
		s.Emit(entry)
	}
	l.emitted.Add(1)
	if l.observer != nil {
		l.observer(level, false)
	}
}

// allowStream decides whether a stream origin may emit now. With a clock
// attached the decision is logical: one emission per
// streamPrintPeriod/timeSample ticks. Detached loggers use a per-origin
// wall-clock limiter.
func (l *Logger) allowStream(key string) bool {
	if l.clock != nil {
		interval := signal.Time(l.streamPrintPeriod / l.timeSample)
		if interval < 1 {
			interval = 1
		}
		now := l.clock.Now()
		if next, seen := l.next[key]; seen && now < next {
			return false
		}
		l.next[key] = now + interval
		return true
	}

	lim, ok := l.limiters[key]
	if !ok {
		lim = rate.NewLimiter(rate.Every(time.Duration(l.streamPrintPeriod*float64(time.Second))), 1)
		l.limiters[key] = lim
	}
	return lim.Allow()
}

func originKey(file string, line int) string {
	return file + ":" + strconv.Itoa(line)
}
