package signal

import (
	"fmt"
	"io"
	"strings"

	"github.com/nim65s/dynamic-graph/errors"
)

// Time is the logical control-loop tick used to stamp signal values.
// It has no relation to wall-clock time: the evaluation loop advances it
// once per period, and signals memoize their last computed value by it.
type Time int64

// Base is the type-erased view of a signal held in entity directories.
// It carries everything introspection, wiring and graph export need
// without knowing the value type.
type Base interface {
	// Name returns the full declared name, e.g. "Clock(main)::output(float64)::time".
	Name() string
	// ShortName returns the text after the last ':' of Name. Entity
	// directories key signals by short name.
	ShortName() string
	// TypeName identifies the value type for display and plug checking.
	TypeName() string
	// Time returns the stamp of the memoized value.
	Time() Time
	// Ready reports whether a value has been computed or assigned.
	Ready() bool
	// Recompute brings the memoized value up to date for stamp t,
	// pulling upstream dependencies as needed.
	Recompute(t Time) error
	// Source returns the upstream signal a plugged input delegates to,
	// or nil for signals that own their value.
	Source() Base
	// Owner returns the name of the entity whose directory holds this
	// signal, or "" while unbound.
	Owner() string
	// Registered reports whether the signal is currently bound to an
	// entity directory.
	Registered() bool
	// Bind records the owning entity at directory registration time.
	// A signal binds to at most one entity; a second Bind fails.
	Bind(owner string) error
	// Unbind revokes the registration. A revoked signal fails every
	// further access with ErrUnregisteredAccess; it cannot be rebound.
	Unbind()
	// Display writes a one-line human-readable summary.
	Display(w io.Writer)
}

type bindState int

const (
	stateUnbound bindState = iota
	stateBound
	stateRevoked
)

// core carries the state shared by every signal in this package.
// Signals are single-threaded by contract: structural mutation and
// evaluation must be serialized by the caller (the control loop owns
// the evaluation path), so core holds no locks.
type core struct {
	name      string
	shortName string
	typeName  string
	stamp     Time
	ready     bool
	state     bindState
	owner     string
}

func newCore(name, typeName string) core {
	return core{
		name:      name,
		shortName: shortName(name),
		typeName:  typeName,
	}
}

// shortName extracts the directory key from a full signal name: the text
// after the last ':'. Plain names pass through unchanged.
func shortName(name string) string {
	if idx := strings.LastIndex(name, ":"); idx >= 0 {
		return name[idx+1:]
	}
	return name
}

func (c *core) Name() string      { return c.name }
func (c *core) ShortName() string { return c.shortName }
func (c *core) TypeName() string  { return c.typeName }
func (c *core) Time() Time        { return c.stamp }
func (c *core) Ready() bool       { return c.ready }
func (c *core) Owner() string     { return c.owner }

// Source is overridden by pluggable signals; value-owning signals have
// no upstream.
func (c *core) Source() Base { return nil }

func (c *core) Registered() bool { return c.state == stateBound }

func (c *core) Bind(owner string) error {
	switch c.state {
	case stateBound:
		return errors.WrapInvalid(errors.ErrSignalAlreadyBound, "Signal", "Bind",
			fmt.Sprintf("binding %s to %s while bound to %s", c.name, owner, c.owner))
	case stateRevoked:
		return errors.WrapFatal(errors.ErrUnregisteredAccess, "Signal", "Bind",
			fmt.Sprintf("rebinding revoked signal %s", c.name))
	}
	c.state = stateBound
	c.owner = owner
	return nil
}

func (c *core) Unbind() {
	if c.state == stateBound {
		c.state = stateRevoked
	}
}

// access gates every read against the registration token. Revoked means
// the owning entity deregistered this signal: the caller holds a stale
// reference.
func (c *core) access() error {
	if c.state == stateRevoked {
		return errors.WrapFatal(errors.ErrUnregisteredAccess, "Signal", "Get", c.name)
	}
	return nil
}

func (c *core) Display(w io.Writer) {
	fmt.Fprintf(w, "Sig:%s (type %s)", c.name, c.typeName)
}

// pluggable is satisfied by input signals that accept dynamic wiring.
type pluggable interface {
	plugBase(src Base) error
}

// Plug wires src into dst using directory references, checking value-type
// compatibility at runtime. dst must be an input signal.
func Plug(src, dst Base) error {
	p, ok := dst.(pluggable)
	if !ok {
		return errors.WrapInvalid(errors.ErrTypeMismatch, "Signal", "Plug",
			fmt.Sprintf("%s is not a pluggable input", dst.Name()))
	}
	return p.plugBase(src)
}

// IsInput reports whether s accepts dynamic wiring, distinguishing
// pluggable inputs from value-owning signals in directory listings and
// graph diagnostics.
func IsInput(s Base) bool {
	_, ok := s.(pluggable)
	return ok
}
