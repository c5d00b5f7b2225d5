// Package metric provides Prometheus-based metrics collection and an HTTP
// scrape endpoint for dynamic-graph monitoring.
//
// The package offers a centralized metrics registry managing both core
// graph metrics (engine ticks, signal evaluations, command executions,
// NATS health) and custom entity-specific metrics. It includes an HTTP
// server exposing metrics in Prometheus format.
//
// # Architecture
//
// The package follows a three-layer design:
//
//  1. Core metrics: graph-level metrics registered at construction (Metrics type)
//  2. Owner registry: extensible registration for entity-specific metrics (Registrar interface)
//  3. HTTP server: metrics endpoint with a health check (Server type)
//
// Core metrics cover what every running graph needs observed. Entities
// with their own instrumentation (a tracer counting rows written, a
// device counting control cycles) register additional collectors
// through the Registrar interface and share the same scrape endpoint.
//
// # Basic Usage
//
// Setting up metrics collection and the HTTP server:
//
//	registry := metric.NewMetricsRegistry()
//	server := metric.NewServer(9090, "/metrics", registry)
//
//	go func() {
//	    if err := server.Start(); err != nil {
//	        log.Printf("metrics server error: %v", err)
//	    }
//	}()
//
//	// Record core graph metrics
//	m := registry.CoreMetrics()
//	m.RecordEngineStatus("arm", 2)
//	m.RecordTick("arm", tickDuration)
//	m.RecordEvaluation("arm", "dynamics.torque")
//
// The server exposes Prometheus-formatted metrics at
// http://localhost:9090/metrics and a health check at /health.
//
// # Core Metrics
//
// All core metrics live under the "dynamicgraph" namespace:
//
//   - Engine: engine_status (0=stopped, 1=starting, 2=running, 3=stopping),
//     engine_ticks_total, engine_tick_duration_seconds, engine_tick_overruns_total
//   - Registry: registry_entities_live
//   - Signals: signals_evaluations_total, signals_evaluation_errors_total
//   - Commands: commands_executed_total (labeled by status)
//   - Remote access: remote_requests_total, remote_request_duration_seconds
//   - Logger: logger_messages_total (labeled by level), logger_suppressed_total
//   - NATS: nats_connected, nats_rtt_seconds, nats_reconnects_total,
//     nats_circuit_breaker_state
//
// Tick duration buckets run from 100µs to 25s so both kHz control loops
// and slow diagnostic graphs land in a useful bucket.
//
// # Entity-Specific Metrics
//
// Entities register custom collectors through the registry:
//
//	written := prometheus.NewCounter(prometheus.CounterOpts{
//	    Namespace: "dynamicgraph",
//	    Subsystem: "tracer",
//	    Name:      "rows_total",
//	    Help:      "Trace rows written",
//	})
//	if err := registry.RegisterCounter("tracer1", "rows_total", written); err != nil {
//	    return err
//	}
//
// Registration is keyed by owner and metric name, so two entities can
// never silently clobber each other's collectors: a duplicate key or a
// Prometheus-level name conflict both return an error. Unregister frees
// the key and removes the collector from the scrape output.
//
// Types that manage their own collectors implement the registration
// against the Registrar interface:
//
//	type Registrar interface {
//	    RegisterCounter(owner, name string, c prometheus.Counter) error
//	    // ... gauge, histogram, and Vec variants
//	}
//
// which keeps them testable without a full MetricsRegistry.
//
// # Thread Safety
//
// MetricsRegistry methods are safe for concurrent use. The underlying
// Prometheus collectors are themselves safe to update from any
// goroutine, so entities record values without further locking.
package metric
