// Package command defines the named operations an entity exposes for
// runtime introspection and control. Commands take string-encoded
// arguments so that scripting front-ends and the remote API can invoke
// them without compile-time knowledge of the entity.
package command

import (
	"fmt"
	"strconv"

	"github.com/nim65s/dynamic-graph/errors"
)

// Command is a named, introspectable operation bound to one entity.
// Implementations must not block: commands run on the wiring path or
// between control periods.
type Command interface {
	// Execute runs the operation with string-encoded arguments and
	// returns a string-encoded result ("" when there is none).
	Execute(args []string) (string, error)
	// Doc returns the human-readable documentation string.
	Doc() string
}

// Func adapts a closure into a Command.
type Func struct {
	doc string
	fn  func(args []string) (string, error)
}

// NewFunc creates a command from a documentation string and a closure.
func NewFunc(doc string, fn func(args []string) (string, error)) *Func {
	return &Func{doc: doc, fn: fn}
}

// Execute implements Command.
func (c *Func) Execute(args []string) (string, error) {
	return c.fn(args)
}

// Doc implements Command.
func (c *Func) Doc() string {
	return c.doc
}

// Value enumerates the types the string-argument codec supports.
type Value interface {
	bool | int | int64 | float64 | string
}

// NewDirectGetter returns a command that reads *target. It takes no
// arguments and returns the formatted value.
func NewDirectGetter[T Value](target *T, doc string) Command {
	return NewFunc(doc, func(args []string) (string, error) {
		if len(args) != 0 {
			return "", errors.WrapInvalid(errors.ErrBadArgument, "Command", "Execute",
				fmt.Sprintf("expected no arguments, got %d", len(args)))
		}
		return FormatValue(*target), nil
	})
}

// NewDirectSetter returns a command that parses its single argument into
// *target.
func NewDirectSetter[T Value](target *T, doc string) Command {
	return NewFunc(doc, func(args []string) (string, error) {
		if len(args) != 1 {
			return "", errors.WrapInvalid(errors.ErrBadArgument, "Command", "Execute",
				fmt.Sprintf("expected 1 argument, got %d", len(args)))
		}
		v, err := ParseValue[T](args[0])
		if err != nil {
			return "", err
		}
		*target = v
		return "", nil
	})
}

// FormatValue renders a supported value for command results.
func FormatValue[T Value](v T) string {
	return fmt.Sprint(v)
}

// ParseValue decodes a string argument into a supported value type.
func ParseValue[T Value](s string) (T, error) {
	var zero T
	switch p := any(&zero).(type) {
	case *bool:
		b, err := strconv.ParseBool(s)
		if err != nil {
			return zero, badArgument(s, "bool")
		}
		*p = b
	case *int:
		i, err := strconv.Atoi(s)
		if err != nil {
			return zero, badArgument(s, "int")
		}
		*p = i
	case *int64:
		i, err := strconv.ParseInt(s, 10, 64)
		if err != nil {
			return zero, badArgument(s, "int64")
		}
		*p = i
	case *float64:
		f, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return zero, badArgument(s, "float64")
		}
		*p = f
	case *string:
		*p = s
	}
	return zero, nil
}

func badArgument(s, typeName string) error {
	return errors.WrapInvalid(errors.ErrBadArgument, "Command", "ParseValue",
		fmt.Sprintf("decoding %q as %s", s, typeName))
}
