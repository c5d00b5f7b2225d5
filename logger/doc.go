// Package logger provides the per-entity diagnostic channel of a
// dynamic-graph.
//
// # Overview
//
// Every entity owns one Logger. Messages carry a severity (DEBUG, INFO,
// WARNING, ERROR) and an origin (the file:line that sent them), and pass
// two filters before reaching any sink:
//
//   - the verbosity gate, which drops whole severities up front, before
//     formatting or caller lookup
//   - the stream throttle, which limits the *Stream message types to one
//     emission per stream print period per origin
//
// Errors are exempt from the throttle in both variants. A signal
// evaluator that fails every tick will report every failure.
//
// # Logical versus wall time
//
// An engine attaches its Clock to the loggers of the entities it drives.
// With a clock attached the stream print period is measured in logical
// ticks (period divided by time sample), so throttling stays
// deterministic under replay and is unaffected by how fast the loop
// actually runs. Loggers without a clock throttle against wall time with
// a per-origin rate limiter.
//
// # Sinks
//
// Entries fan out to any number of sinks: SlogSink for local structured
// output, NATSSink to publish JSON on logs.{graph}.{entity} for remote
// dashboards, FuncSink for tests.
package logger
