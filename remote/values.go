package remote

import (
	"github.com/nim65s/dynamic-graph/command"
	"github.com/nim65s/dynamic-graph/errors"
	"github.com/nim65s/dynamic-graph/signal"
)

// getAs evaluates sig at t when its value type is T. The boolean
// reports whether the type matched, independent of evaluation errors.
func getAs[T command.Value](sig signal.Base, t signal.Time) (string, bool, error) {
	typed, ok := sig.(signal.Typed[T])
	if !ok {
		return "", false, nil
	}
	v, err := typed.Get(t)
	if err != nil {
		return "", true, err
	}
	return command.FormatValue(v), true, nil
}

// renderValue formats a signal's value at t with the command codec.
// Signals carrying types outside command.Value cannot cross the wire.
func renderValue(sig signal.Base, t signal.Time) (string, error) {
	if s, ok, err := getAs[float64](sig, t); ok {
		return s, err
	}
	if s, ok, err := getAs[int](sig, t); ok {
		return s, err
	}
	if s, ok, err := getAs[int64](sig, t); ok {
		return s, err
	}
	if s, ok, err := getAs[bool](sig, t); ok {
		return s, err
	}
	if s, ok, err := getAs[string](sig, t); ok {
		return s, err
	}
	return "", errors.WrapInvalid(errors.ErrTypeMismatch, "Remote", "signal.get",
		"reading "+sig.Name()+" of type "+sig.TypeName())
}

// setAs parses raw and assigns it when sig carries values of type T.
// Assignment turns the signal into a constant, same as SetValue from
// inside the process.
func setAs[T command.Value](sig signal.Base, raw string) (bool, error) {
	switch dst := sig.(type) {
	case *signal.Of[T]:
		v, err := command.ParseValue[T](raw)
		if err != nil {
			return true, err
		}
		dst.SetValue(v)
		return true, nil
	case *signal.Input[T]:
		v, err := command.ParseValue[T](raw)
		if err != nil {
			return true, err
		}
		dst.SetValue(v)
		return true, nil
	}
	return false, nil
}

// assignValue decodes raw with the command codec and stores it as the
// signal's constant value.
func assignValue(sig signal.Base, raw string) error {
	if ok, err := setAs[float64](sig, raw); ok {
		return err
	}
	if ok, err := setAs[int](sig, raw); ok {
		return err
	}
	if ok, err := setAs[int64](sig, raw); ok {
		return err
	}
	if ok, err := setAs[bool](sig, raw); ok {
		return err
	}
	if ok, err := setAs[string](sig, raw); ok {
		return err
	}
	return errors.WrapInvalid(errors.ErrTypeMismatch, "Remote", "signal.set",
		"assigning to "+sig.Name()+" of type "+sig.TypeName())
}
