package entities

import (
	stderrors "errors"

	"github.com/nim65s/dynamic-graph/entity"
	"github.com/nim65s/dynamic-graph/errors"
)

// Register installs the builtin entity classes into reg:
//
//   - Clock: logical time source ("time" output in seconds)
//   - Tracer: per-tick signal recorder ("in0".."in3" inputs, "trigger"
//     output, open/close commands)
//
// Graph construction resolves config class names through this table, so
// a daemon calls Register once before building from config. Domain
// entity classes register through their own packages in the same way.
func Register(reg *entity.Registry) error {
	if reg == nil {
		return errors.WrapFatal(
			stderrors.New("registry cannot be nil"),
			"Entities", "Register", "registry validation")
	}

	if err := reg.RegisterClass(ClockClassName, func(name string) (*entity.Entity, error) {
		c, err := NewClock(reg, name)
		if err != nil {
			return nil, err
		}
		return c.Entity, nil
	}); err != nil {
		return errors.Wrap(err, "Entities", "Register", "registering Clock class")
	}

	if err := reg.RegisterClass(TracerClassName, func(name string) (*entity.Entity, error) {
		tr, err := NewTracer(reg, name)
		if err != nil {
			return nil, err
		}
		return tr.Entity, nil
	}); err != nil {
		return errors.Wrap(err, "Entities", "Register", "registering Tracer class")
	}

	return nil
}
