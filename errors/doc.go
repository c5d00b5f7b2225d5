// Package errors provides standardized error handling for the dynamic-graph
// runtime.
//
// # Overview
//
// The package implements a three-class error classification system: Transient
// (temporary, retryable), Invalid (bad input or wiring, non-retryable), and
// Fatal (unrecoverable, stop the control loop). Classification lets callers
// make retry and abort decisions without string matching on error text.
//
// Graph construction and wiring errors are Invalid: duplicate entity, signal,
// command or class names, lookup misses, plug type mismatches. They are
// programming or configuration mistakes and are never retried. Access to a
// signal after its owning entity deregistered it is Fatal: it indicates a
// stale cross-reference that would have been a use-after-free in a language
// without memory safety, and must abort the affected control cycle rather
// than be swallowed. Connection-level failures from the NATS side are
// Transient.
//
// # Quick Start
//
// Return standard error variables for known conditions:
//
//	if _, ok := e.signals[name]; !ok {
//	    return errors.ErrSignalNotFound
//	}
//
// Wrap errors with component context using the standardized format
// "component.method: action failed: %w":
//
//	if err := reg.RegisterClass(name, factory); err != nil {
//	    return errors.WrapInvalid(err, "Registry", "RegisterClass", "class registration")
//	}
//
// Check classification at the control-loop boundary:
//
//	if err := sig.Recompute(t); err != nil {
//	    if errors.IsFatal(err) {
//	        return err // abort the cycle, surface to the failure handler
//	    }
//	}
//
// # Standard Error Variables
//
// Pre-defined variables cover the registry (ErrDuplicateEntityName,
// ErrEntityNotFound, ErrDuplicateClassName, ErrClassNotFound), the signal
// directory (ErrDuplicateSignalName, ErrSignalNotFound, ErrSignalAlreadyBound,
// ErrUnregisteredAccess, ErrSignalUnplugged, ErrSignalNotSet,
// ErrTypeMismatch), the command
// directory (ErrDuplicateCommandName, ErrCommandNotFound, ErrBadArgument),
// service lifecycle, connections, and configuration. All work with errors.Is
// through wrapping chains.
//
// # Retry Support
//
// RetryConfig holds exponential backoff parameters for callers that retry
// transient failures, such as connection setup against a broker that is
// still coming up. The evaluation path never retries: every error there is
// surfaced to the caller.
package errors
