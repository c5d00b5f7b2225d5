package entity

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nim65s/dynamic-graph/errors"
	"github.com/nim65s/dynamic-graph/signal"
)

func registerAdderClass(t *testing.T, reg *Registry) {
	t.Helper()
	err := reg.RegisterClass("Adder", func(name string) (*Entity, error) {
		ad, err := newAdder(reg, name)
		if err != nil {
			return nil, err
		}
		return ad.Entity, nil
	})
	require.NoError(t, err)
}

func TestRegisterClassDuplicate(t *testing.T) {
	reg := NewRegistry()
	registerAdderClass(t, reg)

	err := reg.RegisterClass("Adder", func(name string) (*Entity, error) {
		return NewInRegistry(reg, "Adder", name)
	})
	require.Error(t, err)
	assert.ErrorIs(t, err, errors.ErrDuplicateClassName)
}

func TestRegisterClassValidation(t *testing.T) {
	reg := NewRegistry()

	err := reg.RegisterClass("", func(name string) (*Entity, error) {
		return NewInRegistry(reg, "X", name)
	})
	require.Error(t, err)
	assert.ErrorIs(t, err, errors.ErrInvalidConfig)

	err = reg.RegisterClass("X", nil)
	require.Error(t, err)
	assert.ErrorIs(t, err, errors.ErrInvalidConfig)
}

func TestNewEntityDispatch(t *testing.T) {
	reg := NewRegistry()
	registerAdderClass(t, reg)

	e, err := reg.NewEntity("Adder", "a1")
	require.NoError(t, err)
	assert.Equal(t, "Adder", e.ClassName())
	assert.Equal(t, "a1", e.Name())
	assert.True(t, reg.Exists("a1"))

	// The factory built the whole directory before anything saw the entity.
	assert.ElementsMatch(t, []string{"a", "b", "sum"}, e.SignalNames())
	assert.Equal(t, []string{"reset"}, e.CommandList())
}

func TestNewEntityUnknownClass(t *testing.T) {
	reg := NewRegistry()

	_, err := reg.NewEntity("Integrator", "i1")
	require.Error(t, err)
	assert.ErrorIs(t, err, errors.ErrClassNotFound)
}

func TestNewEntityDuplicateInstance(t *testing.T) {
	reg := NewRegistry()
	registerAdderClass(t, reg)

	_, err := reg.NewEntity("Adder", "taken")
	require.NoError(t, err)

	_, err = reg.NewEntity("Adder", "taken")
	require.Error(t, err)
	assert.ErrorIs(t, err, errors.ErrDuplicateEntityName)
}

func TestNewEntityClassMismatch(t *testing.T) {
	reg := NewRegistry()
	err := reg.RegisterClass("Liar", func(name string) (*Entity, error) {
		return NewInRegistry(reg, "Truth", name)
	})
	require.NoError(t, err)

	_, err = reg.NewEntity("Liar", "l1")
	require.Error(t, err)
	assert.ErrorIs(t, err, errors.ErrInvalidConfig)

	// The mismatched orphan was destroyed, so the name is free again.
	assert.False(t, reg.Exists("l1"))
}

func TestUnregisterClass(t *testing.T) {
	reg := NewRegistry()
	registerAdderClass(t, reg)

	live, err := reg.NewEntity("Adder", "survivor")
	require.NoError(t, err)

	reg.UnregisterClass("Adder")
	assert.False(t, reg.HasClass("Adder"))

	// Removing the class does not touch live instances.
	assert.True(t, reg.Exists("survivor"))
	assert.True(t, live.Registered())

	_, err = reg.NewEntity("Adder", "late")
	require.Error(t, err)
	assert.ErrorIs(t, err, errors.ErrClassNotFound)

	// Unknown class names are a no-op.
	reg.UnregisterClass("NeverWas")
}

func TestRegistryLookups(t *testing.T) {
	reg := NewRegistry()
	registerAdderClass(t, reg)

	_, err := reg.NewEntity("Adder", "beta")
	require.NoError(t, err)
	_, err = reg.NewEntity("Adder", "alpha")
	require.NoError(t, err)

	assert.Equal(t, 2, reg.Size())
	assert.Equal(t, []string{"alpha", "beta"}, reg.Names())
	assert.Equal(t, []string{"Adder"}, reg.Classes())

	e, err := reg.Entity("alpha")
	require.NoError(t, err)
	assert.Equal(t, "alpha", e.Name())

	_, err = reg.Entity("gamma")
	require.Error(t, err)
	assert.ErrorIs(t, err, errors.ErrEntityNotFound)

	// The map accessor returns a snapshot, not the live pool.
	snapshot := reg.EntityMap()
	delete(snapshot, "alpha")
	assert.True(t, reg.Exists("alpha"))
}

func TestRegistrySignalPath(t *testing.T) {
	reg := NewRegistry()
	registerAdderClass(t, reg)
	_, err := reg.NewEntity("Adder", "node")
	require.NoError(t, err)

	s, err := reg.Signal("node.sum")
	require.NoError(t, err)
	assert.Equal(t, "sum", s.ShortName())

	tests := []struct {
		name    string
		path    string
		wantErr error
	}{
		{"missing entity", "ghost.sum", errors.ErrEntityNotFound},
		{"missing signal", "node.carry", errors.ErrSignalNotFound},
		{"no separator", "node", errors.ErrSignalNotFound},
		{"empty signal part", "node.", errors.ErrSignalNotFound},
		{"empty entity part", ".sum", errors.ErrSignalNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := reg.Signal(tt.path)
			require.Error(t, err)
			assert.ErrorIs(t, err, tt.wantErr)
		})
	}
}

func TestRegistryPlug(t *testing.T) {
	reg := NewRegistry()
	registerAdderClass(t, reg)
	upstream, err := reg.NewEntity("Adder", "up")
	require.NoError(t, err)
	_ = upstream
	down, err := reg.NewEntity("Adder", "down")
	require.NoError(t, err)

	require.NoError(t, reg.Plug("up.sum", "down.a"))

	s, err := down.Signal("a")
	require.NoError(t, err)
	require.NotNil(t, s.Source())
	assert.Equal(t, "up", s.Source().Owner())

	err = reg.Plug("up.sum", "ghost.a")
	require.Error(t, err)
	assert.ErrorIs(t, err, errors.ErrEntityNotFound)

	// Outputs are not plug targets.
	err = reg.Plug("up.sum", "down.sum")
	require.Error(t, err)
	assert.ErrorIs(t, err, errors.ErrTypeMismatch)
}

func TestRegistryPlugTypeMismatch(t *testing.T) {
	reg := NewRegistry()
	registerAdderClass(t, reg)
	down, err := reg.NewEntity("Adder", "sink")
	require.NoError(t, err)
	_ = down

	src, err := NewInRegistry(reg, "Labeler", "labels")
	require.NoError(t, err)
	name := signal.NewConstant("Labeler(labels)::output(string)::text", "hi")
	require.NoError(t, src.RegisterSignal(name))

	err = reg.Plug("labels.text", "sink.a")
	require.Error(t, err)
	assert.ErrorIs(t, err, errors.ErrTypeMismatch)
}

func TestClearDestroysInstancesKeepsClasses(t *testing.T) {
	reg := NewRegistry()
	registerAdderClass(t, reg)

	e1, err := reg.NewEntity("Adder", "one")
	require.NoError(t, err)
	_, err = reg.NewEntity("Adder", "two")
	require.NoError(t, err)

	reg.Clear()

	assert.Equal(t, 0, reg.Size())
	assert.False(t, e1.Registered())
	assert.True(t, reg.HasClass("Adder"))

	// The same graph can be rebuilt after a clear.
	_, err = reg.NewEntity("Adder", "one")
	require.NoError(t, err)
}

func TestRegistryWriteCompletionList(t *testing.T) {
	reg := NewRegistry()
	registerAdderClass(t, reg)
	_, err := reg.NewEntity("Adder", "b")
	require.NoError(t, err)
	_, err = reg.NewEntity("Adder", "a")
	require.NoError(t, err)

	var buf bytes.Buffer
	reg.WriteCompletionList(&buf)
	want := "a\na.a\na.b\na.sum\na.reset\n" +
		"b\nb.a\nb.b\nb.sum\nb.reset\n"
	assert.Equal(t, want, buf.String())
}

func TestDefaultRegistryConveniences(t *testing.T) {
	err := RegisterClass("registry-test-IntegratorTmp", func(name string) (*Entity, error) {
		return NewInRegistry(Default, "registry-test-IntegratorTmp", name)
	})
	require.NoError(t, err)
	t.Cleanup(func() { Default.UnregisterClass("registry-test-IntegratorTmp") })

	e, err := Default.NewEntity("registry-test-IntegratorTmp", "registry-test-instance")
	require.NoError(t, err)
	t.Cleanup(e.Destroy)

	got, err := Get("registry-test-instance")
	require.NoError(t, err)
	assert.Same(t, e, got)
}
