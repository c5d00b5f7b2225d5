package signal

import (
	"fmt"

	"github.com/nim65s/dynamic-graph/errors"
)

// Typed is the read side of a signal carrying values of type T. Both
// *Of[T] and *Input[T] satisfy it.
type Typed[T any] interface {
	Base
	Get(t Time) (T, error)
}

// Input is a pluggable signal: it delegates reads to the upstream signal
// wired in with Plug, or serves a locally assigned constant while
// unplugged. It is how an entity consumes another entity's output without
// owning it. Memoization lives upstream; the input only records the stamp
// of its last successful read.
type Input[T any] struct {
	core
	src      Typed[T]
	value    T
	constant bool
}

// NewInput creates an unplugged input of type T. Reading it before Plug
// or SetValue fails with ErrSignalUnplugged.
func NewInput[T any](name string) *Input[T] {
	return &Input[T]{core: newCore(name, typeNameFor[T]())}
}

// Plug wires src as the upstream source. Plugging nil unplugs.
func (s *Input[T]) Plug(src Typed[T]) {
	s.src = src
	s.ready = false
}

// Unplug drops the upstream source.
func (s *Input[T]) Unplug() {
	s.src = nil
	s.ready = false
}

// Plugged reports whether an upstream source is wired.
func (s *Input[T]) Plugged() bool {
	return s.src != nil
}

// Source implements Base; graph export follows it to draw edges.
func (s *Input[T]) Source() Base {
	if s.src == nil {
		return nil
	}
	return s.src
}

// SetValue assigns a local constant and unplugs any source.
func (s *Input[T]) SetValue(v T) {
	s.src = nil
	s.value = v
	s.constant = true
	s.ready = true
}

// Get returns the value at stamp t from the plugged source, or the local
// constant while unplugged. A revoked source surfaces
// ErrUnregisteredAccess here, which is how stale wiring after an entity
// teardown is detected.
func (s *Input[T]) Get(t Time) (T, error) {
	var zero T
	if err := s.access(); err != nil {
		return zero, err
	}
	if s.src != nil {
		v, err := s.src.Get(t)
		if err != nil {
			return zero, err
		}
		s.stamp = t
		s.ready = true
		return v, nil
	}
	if s.constant {
		return s.value, nil
	}
	return zero, errors.WrapInvalid(errors.ErrSignalUnplugged, "Signal", "Get", s.name)
}

// Recompute implements Base.
func (s *Input[T]) Recompute(t Time) error {
	_, err := s.Get(t)
	return err
}

// plugBase implements dynamic wiring from directory references with a
// runtime value-type check.
func (s *Input[T]) plugBase(src Base) error {
	if src == nil {
		s.Unplug()
		return nil
	}
	typed, ok := src.(Typed[T])
	if !ok {
		return errors.WrapInvalid(errors.ErrTypeMismatch, "Signal", "Plug",
			fmt.Sprintf("plugging %s (%s) into %s (%s)", src.Name(), src.TypeName(), s.name, s.typeName))
	}
	s.Plug(typed)
	return nil
}
