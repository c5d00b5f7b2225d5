// Package signal implements the typed, lazily evaluated dataflow edges of
// a dynamic-graph computation graph.
//
// # Overview
//
// A signal is a named, typed value endpoint stamped with a logical Time,
// the control loop's period counter. Signals come in two flavors:
//
//   - Of[T]: owns its value, either a constant (SetValue) or a computation
//     (SetFunction) with an explicit upstream dependency list.
//   - Input[T]: owns nothing; delegates reads to whatever output it is
//     plugged into, which is how values cross entity boundaries.
//
// Reading a signal at stamp t pulls its dependencies up to date for t,
// then computes at most once: the result is memoized by stamp, so any
// number of downstream consumers within the same control period share one
// computation. Advancing the stamp invalidates the memo; reading at an
// older stamp returns the memoized value unchanged.
//
// # Wiring
//
// Compile-time-typed wiring goes through Input.Plug:
//
//	out := signal.New[float64]("A::out")
//	out.SetFunction(func(t signal.Time) (float64, error) { return compute(t), nil })
//
//	in := signal.NewInput[float64]("B::in")
//	in.Plug(out)
//
// Runtime wiring from entity directories goes through Plug, which checks
// value-type compatibility and fails with ErrTypeMismatch instead of
// corrupting the graph:
//
//	src, _ := a.Signal("out")
//	dst, _ := b.Signal("in")
//	if err := signal.Plug(src, dst); err != nil { ... }
//
// # Registration tokens
//
// Entity directories hold signals without owning them. Each signal carries
// a registration token with three states: unbound (never registered, freely
// usable), bound (indexed by exactly one entity), and revoked (the owner
// deregistered it). Revocation is terminal: every later access fails with
// ErrUnregisteredAccess, so a stale reference left in another entity's
// wiring is detected instead of silently serving dead values. Construct a
// fresh signal to register again.
//
// # Concurrency
//
// Signals are single-threaded by contract. The evaluation path holds no
// locks and performs no allocation on the memo-hit path; callers must
// serialize structural mutation (plugging, SetFunction, binding) against
// evaluation, which the engine does by funneling both through one
// goroutine.
//
// # Naming
//
// Full signal names follow the "Class(instance)::direction(type)::short"
// convention inherited from the original robot-control stack. Only the
// text after the last ':' matters to directory lookup; the rest is
// carried for display and graph labels. Plain names work unchanged.
package signal
