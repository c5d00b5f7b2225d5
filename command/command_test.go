package command

import (
	"errors"
	"fmt"
	"testing"

	dgerrors "github.com/nim65s/dynamic-graph/errors"
)

func TestFunc(t *testing.T) {
	cmd := NewFunc("echoes its arguments", func(args []string) (string, error) {
		return fmt.Sprint(args), nil
	})

	if cmd.Doc() != "echoes its arguments" {
		t.Errorf("unexpected doc: %q", cmd.Doc())
	}

	result, err := cmd.Execute([]string{"a", "b"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result != "[a b]" {
		t.Errorf("unexpected result: %q", result)
	}
}

func TestDirectGetter(t *testing.T) {
	period := 0.005
	cmd := NewDirectGetter(&period, "returns the period in seconds")

	result, err := cmd.Execute(nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result != "0.005" {
		t.Errorf("expected 0.005, got %q", result)
	}

	// Getters reflect the current value, not a snapshot.
	period = 0.01
	result, err = cmd.Execute(nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result != "0.01" {
		t.Errorf("expected 0.01, got %q", result)
	}
}

func TestDirectGetterRejectsArguments(t *testing.T) {
	v := 1
	cmd := NewDirectGetter(&v, "doc")

	_, err := cmd.Execute([]string{"extra"})
	if !errors.Is(err, dgerrors.ErrBadArgument) {
		t.Errorf("expected ErrBadArgument, got %v", err)
	}
}

func TestDirectSetter(t *testing.T) {
	tests := []struct {
		name string
		run  func(t *testing.T)
	}{
		{"bool", func(t *testing.T) {
			var target bool
			cmd := NewDirectSetter(&target, "doc")
			if _, err := cmd.Execute([]string{"true"}); err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if !target {
				t.Error("expected true")
			}
		}},
		{"int", func(t *testing.T) {
			var target int
			cmd := NewDirectSetter(&target, "doc")
			if _, err := cmd.Execute([]string{"-3"}); err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if target != -3 {
				t.Errorf("expected -3, got %d", target)
			}
		}},
		{"int64", func(t *testing.T) {
			var target int64
			cmd := NewDirectSetter(&target, "doc")
			if _, err := cmd.Execute([]string{"9000000000"}); err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if target != 9000000000 {
				t.Errorf("expected 9000000000, got %d", target)
			}
		}},
		{"float64", func(t *testing.T) {
			var target float64
			cmd := NewDirectSetter(&target, "doc")
			if _, err := cmd.Execute([]string{"2.5"}); err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if target != 2.5 {
				t.Errorf("expected 2.5, got %f", target)
			}
		}},
		{"string", func(t *testing.T) {
			var target string
			cmd := NewDirectSetter(&target, "doc")
			if _, err := cmd.Execute([]string{"hello"}); err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if target != "hello" {
				t.Errorf("expected hello, got %q", target)
			}
		}},
	}

	for _, test := range tests {
		t.Run(test.name, test.run)
	}
}

func TestDirectSetterArgumentCount(t *testing.T) {
	var target int
	cmd := NewDirectSetter(&target, "doc")

	tests := []struct {
		name string
		args []string
	}{
		{"no arguments", nil},
		{"too many arguments", []string{"1", "2"}},
	}

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			_, err := cmd.Execute(test.args)
			if !errors.Is(err, dgerrors.ErrBadArgument) {
				t.Errorf("expected ErrBadArgument, got %v", err)
			}
		})
	}
}

func TestParseValueErrors(t *testing.T) {
	tests := []struct {
		name  string
		parse func() error
	}{
		{"bad bool", func() error { _, err := ParseValue[bool]("maybe"); return err }},
		{"bad int", func() error { _, err := ParseValue[int]("1.5"); return err }},
		{"bad int64", func() error { _, err := ParseValue[int64]("abc"); return err }},
		{"bad float64", func() error { _, err := ParseValue[float64]("x"); return err }},
	}

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			err := test.parse()
			if !errors.Is(err, dgerrors.ErrBadArgument) {
				t.Errorf("expected ErrBadArgument, got %v", err)
			}
			if !dgerrors.IsInvalid(err) {
				t.Error("parse failures should classify as invalid")
			}
		})
	}
}

func TestFormatValue(t *testing.T) {
	tests := []struct {
		name     string
		got      string
		expected string
	}{
		{"bool", FormatValue(true), "true"},
		{"int", FormatValue(42), "42"},
		{"float64", FormatValue(0.25), "0.25"},
		{"string", FormatValue("plain"), "plain"},
	}

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			if test.got != test.expected {
				t.Errorf("expected %q, got %q", test.expected, test.got)
			}
		})
	}
}
