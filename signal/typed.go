package signal

import (
	"reflect"

	"github.com/nim65s/dynamic-graph/errors"
)

// typeNameFor renders the display/compatibility name for a value type.
func typeNameFor[T any]() string {
	return reflect.TypeFor[T]().String()
}

// Of is a value-owning signal: either a constant assigned with SetValue or
// a computed value produced by the function installed with SetFunction.
// Computed values are memoized by time stamp: within one stamp the function
// runs at most once no matter how many downstream consumers read the
// signal, and advancing the stamp forces exactly one recomputation. Reads
// at a stamp older than the memo return the memoized value unchanged.
type Of[T any] struct {
	core
	value    T
	fn       func(Time) (T, error)
	deps     []Base
	constant bool
}

// New creates an unset signal of type T. Reading it before SetValue or
// SetFunction fails with ErrSignalNotSet.
func New[T any](name string) *Of[T] {
	return &Of[T]{core: newCore(name, typeNameFor[T]())}
}

// NewConstant creates a signal holding a fixed value.
func NewConstant[T any](name string, v T) *Of[T] {
	s := New[T](name)
	s.SetValue(v)
	return s
}

// SetValue turns the signal into a constant, discarding any installed
// function. Constants are always ready and never recompute.
func (s *Of[T]) SetValue(v T) {
	s.value = v
	s.fn = nil
	s.constant = true
	s.ready = true
}

// SetFunction installs the computation and invalidates the memo so the
// next read recomputes.
func (s *Of[T]) SetFunction(fn func(Time) (T, error)) {
	s.fn = fn
	s.constant = false
	s.ready = false
}

// AddDependency declares an upstream signal that must be brought up to
// date before the installed function runs.
func (s *Of[T]) AddDependency(dep Base) {
	s.deps = append(s.deps, dep)
}

// ClearDependencies drops all declared dependencies.
func (s *Of[T]) ClearDependencies() {
	s.deps = nil
}

// Dependencies returns a copy of the declared dependency list.
func (s *Of[T]) Dependencies() []Base {
	out := make([]Base, len(s.deps))
	copy(out, s.deps)
	return out
}

// Get returns the value at stamp t, recomputing only when the stamp
// advanced past the memo or no value has been computed yet.
func (s *Of[T]) Get(t Time) (T, error) {
	var zero T
	if err := s.access(); err != nil {
		return zero, err
	}
	if s.fn == nil {
		if !s.constant {
			return zero, errors.WrapInvalid(errors.ErrSignalNotSet, "Signal", "Get", s.name)
		}
		return s.value, nil
	}
	if !s.ready || t > s.stamp {
		for _, dep := range s.deps {
			if err := dep.Recompute(t); err != nil {
				return zero, err
			}
		}
		v, err := s.fn(t)
		if err != nil {
			return zero, errors.Wrap(err, "Signal", "Get", s.name)
		}
		s.value = v
		s.stamp = t
		s.ready = true
	}
	return s.value, nil
}

// Recompute implements Base.
func (s *Of[T]) Recompute(t Time) error {
	_, err := s.Get(t)
	return err
}
