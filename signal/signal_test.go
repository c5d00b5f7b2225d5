package signal

import (
	"errors"
	"strings"
	"testing"

	dgerrors "github.com/nim65s/dynamic-graph/errors"
)

func TestShortName(t *testing.T) {
	tests := []struct {
		name     string
		full     string
		expected string
	}{
		{"plain name", "out", "out"},
		{"single separator", "A::out", "out"},
		{"full convention", "Clock(main)::output(float64)::time", "time"},
		{"trailing separator", "broken::", ""},
	}

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			sig := New[int](test.full)
			if sig.ShortName() != test.expected {
				t.Errorf("expected short name %q, got %q", test.expected, sig.ShortName())
			}
			if sig.Name() != test.full {
				t.Errorf("expected full name %q, got %q", test.full, sig.Name())
			}
		})
	}
}

func TestTypeName(t *testing.T) {
	tests := []struct {
		name     string
		got      string
		expected string
	}{
		{"float64", New[float64]("x").TypeName(), "float64"},
		{"int slice", New[[]int]("x").TypeName(), "[]int"},
		{"string map", New[map[string]float64]("x").TypeName(), "map[string]float64"},
		{"input shares type", NewInput[float64]("x").TypeName(), "float64"},
	}

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			if test.got != test.expected {
				t.Errorf("expected type name %q, got %q", test.expected, test.got)
			}
		})
	}
}

func TestBindLifecycle(t *testing.T) {
	sig := NewConstant("A::out", 1.0)

	if sig.Registered() {
		t.Error("fresh signal should not be registered")
	}
	if sig.Owner() != "" {
		t.Errorf("fresh signal should have no owner, got %q", sig.Owner())
	}

	if err := sig.Bind("A"); err != nil {
		t.Fatalf("first bind failed: %v", err)
	}
	if !sig.Registered() {
		t.Error("bound signal should report registered")
	}
	if sig.Owner() != "A" {
		t.Errorf("expected owner A, got %q", sig.Owner())
	}

	// Second bind must fail: one directory at a time.
	err := sig.Bind("B")
	if !errors.Is(err, dgerrors.ErrSignalAlreadyBound) {
		t.Errorf("expected ErrSignalAlreadyBound, got %v", err)
	}
	if sig.Owner() != "A" {
		t.Errorf("failed bind must not change owner, got %q", sig.Owner())
	}
}

func TestUnbindRevokes(t *testing.T) {
	sig := NewConstant("A::out", 42)
	if err := sig.Bind("A"); err != nil {
		t.Fatalf("bind failed: %v", err)
	}

	sig.Unbind()

	if sig.Registered() {
		t.Error("revoked signal should not report registered")
	}

	_, err := sig.Get(1)
	if !errors.Is(err, dgerrors.ErrUnregisteredAccess) {
		t.Errorf("expected ErrUnregisteredAccess after unbind, got %v", err)
	}
	if !dgerrors.IsFatal(err) {
		t.Error("unregistered access should classify as fatal")
	}

	// Revocation is terminal.
	err = sig.Bind("B")
	if !errors.Is(err, dgerrors.ErrUnregisteredAccess) {
		t.Errorf("expected ErrUnregisteredAccess on rebind, got %v", err)
	}
}

func TestUnbindWithoutBindIsNoop(t *testing.T) {
	sig := NewConstant("free", 7)

	// A never-registered signal stays usable after a stray Unbind.
	sig.Unbind()

	v, err := sig.Get(1)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if v != 7 {
		t.Errorf("expected 7, got %d", v)
	}
}

func TestPlugRejectsNonInput(t *testing.T) {
	src := NewConstant("A::out", 1)
	dst := NewConstant("B::alsoOut", 2)

	err := Plug(src, dst)
	if !errors.Is(err, dgerrors.ErrTypeMismatch) {
		t.Errorf("expected ErrTypeMismatch when destination is not an input, got %v", err)
	}
}

func TestIsInput(t *testing.T) {
	if IsInput(NewConstant("A::out", 1)) {
		t.Error("value-owning signal reported as input")
	}
	if !IsInput(NewInput[int]("B::in")) {
		t.Error("pluggable input not reported as input")
	}
}

func TestDisplay(t *testing.T) {
	sig := New[float64]("Clock(main)::output(float64)::time")

	var sb strings.Builder
	sig.Display(&sb)

	out := sb.String()
	if !strings.Contains(out, "Sig:Clock(main)::output(float64)::time") {
		t.Errorf("display missing signal name: %q", out)
	}
	if !strings.Contains(out, "float64") {
		t.Errorf("display missing type name: %q", out)
	}
}
