// Package dynamicgraph provides a dataflow framework for control loops:
// entities expose time-stamped signals, signals are wired into a graph at
// runtime, and values are recomputed lazily against a logical clock.
//
// # Philosophy: Entities, Signals, Commands
//
// A program built on dynamic-graph is a set of named entities. Each entity
// owns two directories:
//
//   - Signals: typed, time-stamped values. A signal either holds a constant,
//     computes its value from a function of logical time, or delegates to
//     another entity's signal it has been plugged into.
//   - Commands: named string-argument operations (tuning parameters,
//     triggering actions) exposed for scripting and remote control.
//
// The graph between signals is dynamic: plugs and unplugs happen at runtime,
// by name, with runtime type checks. Evaluation is lazy and memoized. Asking
// a signal for its value at logical time t recomputes it only if t is newer
// than the memo; repeated reads at the same tick are free.
//
// The framework is domain agnostic. It ships no controllers, no dynamics, no
// device drivers. Concrete entity classes (oscillators, filters, robot
// models) belong to downstream modules that register them into the entity
// registry.
//
// # Architecture
//
//	┌─────────────────────────────────────┐
//	│            Engine                   │  logical clock, periodic ticks,
//	│   (evaluate terminals, submit)      │  serialized external requests
//	└─────────────────────────────────────┘
//	           ↓ recomputes
//	┌─────────────────────────────────────┐
//	│           Entities                  │  signal + command directories,
//	│   (registry: classes, instances)    │  per-entity throttled logger
//	└─────────────────────────────────────┘
//	           ↓ wired via
//	┌─────────────────────────────────────┐
//	│        Signal graph                 │  typed plugs, lazy memoized
//	│  (Of[T] computed, Input[T] plugged) │  recomputation, DOT export
//	└─────────────────────────────────────┘
//
// Around the core sit the operational surfaces: a NATS request-reply API for
// remote introspection and command execution, Prometheus metrics, and a
// config-driven daemon that assembles a graph from YAML or JSON.
//
// # Evaluation Model
//
// All signal evaluation happens on one goroutine. The engine owns it: each
// tick it drains the submit queue, advances the logical clock, and recomputes
// the configured terminal signals in dependency order. Code running on other
// goroutines (remote handlers, tests, operators) never touches signal state
// directly; it submits closures through Engine.Submit and they execute
// between ticks. This keeps the hot path lock-free and makes every observed
// (value, time, ready) triple consistent.
//
// Logical time is an int64 tick count, not wall-clock time. A signal's memo
// records the time it was computed at; reads at or before that time serve the
// memo, reads after it recompute. The engine maps ticks to wall time through
// its configured period.
//
// # Framework Packages
//
// Core model:
//   - entity: Entity base type, signal/command directories, Registry
//   - signal: Base contract, Of[T] computed signals, Input[T] plugs, Time
//   - command: Command interface, direct getters/setters, string codec
//   - entities: builtin classes (clock, tracer) and their registration
//
// Evaluation and export:
//   - engine: evaluation loop, submit queue, config-driven graph builder
//   - dot: DOT export, parser, and graph analysis for tooling
//
// Operational surface:
//   - remote: NATS request-reply API (list, describe, get, set, exec, dot)
//   - cmd/dg: daemon wiring flags, config, engine, metrics, remote server
//
// Infrastructure:
//   - config: typed configuration, YAML/JSON loader, schema validation
//   - logger: per-entity verbosity-gated, stream-throttled logging
//   - natsclient: NATS connection management
//   - metric: Prometheus metrics registry and HTTP server
//   - health: health status aggregation
//   - service: service lifecycle contract and BaseService
//   - errors: structured error handling with failure classes
//
// # Usage Patterns
//
// Building a graph in code:
//
//	reg := entity.NewRegistry()
//
//	osc, _ := entity.NewInRegistry(reg, "Oscillator", "osc")
//	out := signal.New[float64]("Oscillator(osc)::output(float64)::sout")
//	out.SetFunction(func(t signal.Time) (float64, error) {
//	    return math.Sin(0.01 * float64(t)), nil
//	})
//	osc.RegisterSignal(out)
//
//	gain, _ := entity.NewInRegistry(reg, "Gain", "gain")
//	in := signal.NewInput[float64]("Gain(gain)::input(float64)::sin")
//	gain.RegisterSignal(in)
//
//	reg.Plug("osc.sout", "gain.sin")
//
// Driving it with an engine:
//
//	eng, _ := engine.New("demo", reg,
//	    engine.WithPeriod(10*time.Millisecond),
//	    engine.WithTerminals("gain.sout"),
//	)
//	eng.Start(ctx)
//	defer eng.Stop(5 * time.Second)
//
// Or stepping manually in tests:
//
//	eng.Step() // one tick, synchronous
//
// Declaring the same graph in configuration:
//
//	graph:
//	  name: demo
//	  entities:
//	    - {name: osc, class: Oscillator}
//	    - {name: gain, class: Gain}
//	  plugs:
//	    - {from: osc.sout, to: gain.sin}
//	  terminals: [gain.sout]
//
// # Extension Points
//
// New entity classes register a factory:
//
//	func Register(reg *entity.Registry) error {
//	    return reg.RegisterClass("Oscillator", newOscillator)
//	}
//
// The factory builds the entity, its signals, and its commands; the registry
// handles naming, lookup, and lifecycle. Downstream modules follow the
// entities package as the template.
//
// # Design Principles
//
// Lazy over eager:
//   - Nothing recomputes until a terminal is asked for its value
//   - Memoization makes diamond-shaped graphs cost one evaluation per tick
//
// Names over references:
//   - Wiring, introspection, and remote control all address signals as
//     "entity.signal" strings
//   - The live graph is always exportable as DOT and parseable back
//
// One writer:
//   - A single evaluation goroutine owns all signal state
//   - Everything else goes through the submit queue
//
// # Binary
//
//	# Build and print the graph without running it
//	dg --config graph.yaml --dry-run | dot -Tsvg -o graph.svg
//
//	# Run the daemon: engine + metrics + remote API
//	dg --config graph.yaml
//
// The daemon exposes the remote API on NATS subjects under the configured
// prefix and Prometheus metrics on the configured port.
package dynamicgraph
