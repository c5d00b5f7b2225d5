// Package engine drives a computation graph through its control loop.
//
// # Overview
//
// The engine package owns the single evaluation goroutine of a graph. Once
// per control period it drains the submit queue, advances the shared
// logical clock and recomputes the configured terminal signals in order.
// The signal layer's time-stamp memoization turns those terminal reads
// into exactly one evaluation per reachable signal per tick, however many
// consumers share an upstream value.
//
// # Evaluation Model
//
// The graph itself is lock-free: evaluation and structural mutation are
// serialized by running on one goroutine. Three paths put work on it:
//
//   - the period ticker (normal operation),
//   - Step(), which runs one tick synchronously while the loop is stopped
//     (tests, interactive tooling),
//   - Submit(), which queues an operation from another goroutine and runs
//     it ahead of the next tick's recomputation (the remote API funnels
//     signal writes and graph mutations through this).
//
// A tick:
//
//	drain submit queue → advance clock → recompute terminals in order
//
// The first failing terminal aborts the tick; remaining terminals keep
// their previous memo. The failure is logged at error severity through the
// owning entity's diagnostic logger (bypassing the stream throttle) and
// through the engine's structured log. With StopOnError the loop then
// stops and the engine reports failed health; otherwise the next period
// retries.
//
// # Building a Graph
//
// FromConfig assembles everything from one configuration document:
//
//	reg := entity.NewRegistry()
//	if err := entities.Register(reg); err != nil {
//	    return err
//	}
//
//	eng, err := engine.FromConfig(cfg, reg, slog.Default(), metricsRegistry)
//	if err != nil {
//	    return err
//	}
//
//	ctx := context.Background()
//	if err := eng.Start(ctx); err != nil {
//	    return err
//	}
//	defer eng.Stop(5 * time.Second)
//
// Entities come from the registry's class table, plugs are resolved as
// dotted "entity.signal" paths, initial commands run after wiring, and
// every entity logger is attached to the engine clock with the configured
// verbosity, time sample and stream print period.
//
// Direct construction skips the config layer:
//
//	eng, err := engine.New("demo", reg,
//	    engine.WithPeriod(time.Millisecond),
//	    engine.WithTerminals("trace.trigger"),
//	    engine.WithStopOnError(true),
//	)
//
// # Stepping
//
// Step advances exactly one tick and returns its evaluation error, which
// is how tests assert memoization accounting:
//
//	require.NoError(t, eng.Step())
//	assert.Equal(t, int64(1), eng.Ticks())
//
// A running engine rejects Step: the loop owns the clock.
//
// # Lifecycle
//
// Engine embeds service.BaseService, so it carries the standard service
// contract: Start/Stop, Status, Health, GetStatus. The loop stops itself
// when the configured tick budget (MaxTicks) is reached. StopOnError
// failures surface as failed health until restart.
//
// # Metrics
//
// With a metrics registry attached the engine records, per graph: tick
// count and duration, period overruns, live entities, per-terminal
// evaluations and errors, engine status, and the submit queue depth and
// outcomes. Initial command executions count into the command metric.
//
// # Error Handling
//
// Following the errors package patterns:
//
//   - WrapInvalid: unknown classes/paths at build time, Submit on a
//     stopped engine, Step on a running one
//   - WrapTransient: submit queue timeouts, operations abandoned at
//     shutdown
//   - WrapFatal: panics recovered from submitted operations
//
// Evaluation errors keep their classification from the signal layer and
// gain engine context.
package engine
