// Package health provides health status values for services with thread-safe
// status tracking and aggregation.
//
// The health package enables tracking the health status of the individual
// services that make up a running graph process (evaluation engine, metrics
// server, remote access server) and aggregating process-wide health for
// monitoring and operational visibility.
//
// # Health States
//
// The package supports three health states:
//   - Healthy: service operating normally
//   - Degraded: service operating with reduced functionality
//   - Unhealthy: service not functioning properly
//
// This three-state model enables nuanced health reporting. For example, a
// remote access server that lost its NATS connection is degraded (the graph
// still evaluates), while an engine whose evaluation loop has stopped on an
// error is unhealthy.
//
// # Core Components
//
// Status: individual service health state containing status level, descriptive
// message, timestamp, optional metrics, and hierarchical sub-statuses.
//
// Monitor: thread-safe centralized tracking of multiple service health
// statuses with concurrent read/write access and automatic timestamp
// management.
//
// Helpers: convenience constructors for status objects and aggregation of
// process health.
//
// # Basic Usage
//
// Creating and tracking service health:
//
//	monitor := health.NewMonitor()
//
//	monitor.UpdateHealthy("engine", "Evaluation loop running")
//	monitor.UpdateDegraded("remote", "NATS reconnecting")
//
//	if status, exists := monitor.Get("engine"); exists {
//	    if status.IsHealthy() {
//	        log.Println("Engine is healthy")
//	    }
//	}
//
// # Process-Wide Aggregation
//
// Combining service statuses into a single indicator:
//
//	processHealth := monitor.AggregateHealth("dynamic-graph")
//	if processHealth.IsUnhealthy() {
//	    log.Printf("Process unhealthy: %s", processHealth.Message)
//	}
//
// Aggregation uses hierarchical "worst case" rules:
//   - Any unhealthy service marks the process unhealthy
//   - Any degraded service (with no unhealthy) marks the process degraded
//   - All healthy marks the process healthy
//
// # Thread Safety
//
// All Monitor operations are safe for concurrent use. The Monitor uses an
// RWMutex internally to allow concurrent reads while protecting writes.
// Status objects are immutable value types - methods like WithMetrics and
// WithSubStatus return new copies rather than modifying the original.
//
// # Error Handling Philosophy
//
// The health package does not return errors because it represents the
// *result* of error handling, not part of error propagation. Services should
// wrap failures with the errors package and surface the wrapped message in
// their health status.
package health
