package metric

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics contains the platform-level metrics of a running graph process.
// Entity-specific metrics register separately through the registry.
type Metrics struct {
	// Engine metrics
	EngineStatus     *prometheus.GaugeVec
	TicksTotal       *prometheus.CounterVec
	TickDuration     *prometheus.HistogramVec
	TickOverruns     *prometheus.CounterVec
	EntitiesLive     *prometheus.GaugeVec
	Evaluations      *prometheus.CounterVec
	EvaluationErrors *prometheus.CounterVec

	// Command and remote-access metrics
	CommandsExecuted *prometheus.CounterVec
	RemoteRequests   *prometheus.CounterVec
	RemoteDuration   *prometheus.HistogramVec

	// Service lifecycle metrics
	ServiceStatus *prometheus.GaugeVec

	// Logger volume metrics
	LogMessages   *prometheus.CounterVec
	LogSuppressed *prometheus.CounterVec

	// NATS metrics
	NATSConnected      prometheus.Gauge
	NATSRTT            prometheus.Gauge
	NATSReconnects     prometheus.Counter
	NATSCircuitBreaker prometheus.Gauge
}

// NewMetrics creates a new Metrics instance with all platform metrics.
func NewMetrics() *Metrics {
	return &Metrics{
		EngineStatus: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: "dynamicgraph",
				Subsystem: "engine",
				Name:      "status",
				Help:      "Engine status (0=stopped, 1=starting, 2=running, 3=stopping, 4=failed)",
			},
			[]string{"graph"},
		),

		TicksTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "dynamicgraph",
				Subsystem: "engine",
				Name:      "ticks_total",
				Help:      "Total number of evaluation ticks",
			},
			[]string{"graph"},
		),

		TickDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: "dynamicgraph",
				Subsystem: "engine",
				Name:      "tick_duration_seconds",
				Help:      "Wall time one evaluation tick took",
				Buckets:   []float64{.0001, .00025, .0005, .001, .0025, .005, .01, .025, .05, .1, .25},
			},
			[]string{"graph"},
		),

		TickOverruns: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "dynamicgraph",
				Subsystem: "engine",
				Name:      "tick_overruns_total",
				Help:      "Ticks whose evaluation ran longer than the period",
			},
			[]string{"graph"},
		),

		EntitiesLive: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: "dynamicgraph",
				Subsystem: "registry",
				Name:      "entities_live",
				Help:      "Number of live entities in the registry",
			},
			[]string{"graph"},
		),

		Evaluations: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "dynamicgraph",
				Subsystem: "signals",
				Name:      "evaluations_total",
				Help:      "Total signal evaluations driven by the engine",
			},
			[]string{"graph", "signal"},
		),

		EvaluationErrors: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "dynamicgraph",
				Subsystem: "signals",
				Name:      "evaluation_errors_total",
				Help:      "Signal evaluations that returned an error",
			},
			[]string{"graph", "signal"},
		),

		CommandsExecuted: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "dynamicgraph",
				Subsystem: "commands",
				Name:      "executed_total",
				Help:      "Entity commands executed",
			},
			[]string{"graph", "status"},
		),

		RemoteRequests: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "dynamicgraph",
				Subsystem: "remote",
				Name:      "requests_total",
				Help:      "Remote API requests handled",
			},
			[]string{"operation", "status"},
		),

		RemoteDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: "dynamicgraph",
				Subsystem: "remote",
				Name:      "request_duration_seconds",
				Help:      "Remote API request handling duration in seconds",
				Buckets:   prometheus.DefBuckets,
			},
			[]string{"operation"},
		),

		ServiceStatus: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: "dynamicgraph",
				Subsystem: "service",
				Name:      "status",
				Help:      "Service status (0=stopped, 1=starting, 2=running, 3=stopping, 4=failed)",
			},
			[]string{"service"},
		),

		LogMessages: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "dynamicgraph",
				Subsystem: "logger",
				Name:      "messages_total",
				Help:      "Log messages emitted by entity loggers",
			},
			[]string{"graph", "level"},
		),

		LogSuppressed: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "dynamicgraph",
				Subsystem: "logger",
				Name:      "suppressed_total",
				Help:      "Stream log messages dropped by the throttle",
			},
			[]string{"graph"},
		),

		NATSConnected: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Namespace: "dynamicgraph",
				Subsystem: "nats",
				Name:      "connected",
				Help:      "NATS connection status (0=disconnected, 1=connected)",
			},
		),

		NATSRTT: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Namespace: "dynamicgraph",
				Subsystem: "nats",
				Name:      "rtt_milliseconds",
				Help:      "NATS round-trip time in milliseconds",
			},
		),

		NATSReconnects: prometheus.NewCounter(
			prometheus.CounterOpts{
				Namespace: "dynamicgraph",
				Subsystem: "nats",
				Name:      "reconnects_total",
				Help:      "Total number of NATS reconnections",
			},
		),

		NATSCircuitBreaker: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Namespace: "dynamicgraph",
				Subsystem: "nats",
				Name:      "circuit_breaker",
				Help:      "NATS circuit breaker status (0=closed, 1=open, 2=half-open)",
			},
		),
	}
}

// RecordEngineStatus updates the engine status gauge.
func (c *Metrics) RecordEngineStatus(graph string, status int) {
	c.EngineStatus.WithLabelValues(graph).Set(float64(status))
}

// RecordTick counts one evaluation tick and its duration.
func (c *Metrics) RecordTick(graph string, duration time.Duration) {
	c.TicksTotal.WithLabelValues(graph).Inc()
	c.TickDuration.WithLabelValues(graph).Observe(duration.Seconds())
}

// RecordTickOverrun counts a tick that blew its period.
func (c *Metrics) RecordTickOverrun(graph string) {
	c.TickOverruns.WithLabelValues(graph).Inc()
}

// RecordEntitiesLive updates the live entity gauge.
func (c *Metrics) RecordEntitiesLive(graph string, count int) {
	c.EntitiesLive.WithLabelValues(graph).Set(float64(count))
}

// RecordEvaluation counts one driven signal evaluation.
func (c *Metrics) RecordEvaluation(graph, sig string) {
	c.Evaluations.WithLabelValues(graph, sig).Inc()
}

// RecordEvaluationError counts one failed signal evaluation.
func (c *Metrics) RecordEvaluationError(graph, sig string) {
	c.EvaluationErrors.WithLabelValues(graph, sig).Inc()
}

// RecordCommandExecuted counts one command execution by outcome.
func (c *Metrics) RecordCommandExecuted(graph, status string) {
	c.CommandsExecuted.WithLabelValues(graph, status).Inc()
}

// RecordRemoteRequest counts one remote API request and its duration.
func (c *Metrics) RecordRemoteRequest(operation, status string, duration time.Duration) {
	c.RemoteRequests.WithLabelValues(operation, status).Inc()
	c.RemoteDuration.WithLabelValues(operation).Observe(duration.Seconds())
}

// RecordServiceStatus updates the lifecycle status gauge for a service.
func (c *Metrics) RecordServiceStatus(service string, status int) {
	c.ServiceStatus.WithLabelValues(service).Set(float64(status))
}

// RecordLogMessage counts one logger emission or suppression.
func (c *Metrics) RecordLogMessage(graph, level string, suppressed bool) {
	if suppressed {
		c.LogSuppressed.WithLabelValues(graph).Inc()
		return
	}
	c.LogMessages.WithLabelValues(graph, level).Inc()
}

// RecordNATSStatus updates the NATS connection status.
func (c *Metrics) RecordNATSStatus(connected bool) {
	value := 0.0
	if connected {
		value = 1.0
	}
	c.NATSConnected.Set(value)
}

// RecordNATSRTT updates the NATS round-trip time.
func (c *Metrics) RecordNATSRTT(rtt time.Duration) {
	c.NATSRTT.Set(float64(rtt.Milliseconds()))
}

// RecordNATSReconnect increments the reconnection counter.
func (c *Metrics) RecordNATSReconnect() {
	c.NATSReconnects.Inc()
}

// RecordCircuitBreakerState updates the circuit breaker status.
func (c *Metrics) RecordCircuitBreakerState(state int) {
	c.NATSCircuitBreaker.Set(float64(state))
}
