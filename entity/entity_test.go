package entity

import (
	"bytes"
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nim65s/dynamic-graph/command"
	"github.com/nim65s/dynamic-graph/errors"
	"github.com/nim65s/dynamic-graph/logger"
	"github.com/nim65s/dynamic-graph/signal"
)

// adder is the concrete entity type used across these tests: two pluggable
// inputs, one computed output that counts its own evaluations.
type adder struct {
	*Entity
	a, b         *signal.Input[float64]
	sum          *signal.Of[float64]
	computations int
}

func newAdder(reg *Registry, name string) (*adder, error) {
	base, err := NewInRegistry(reg, "Adder", name)
	if err != nil {
		return nil, err
	}
	ad := &adder{Entity: base}
	ad.a = signal.NewInput[float64](fmt.Sprintf("Adder(%s)::input(float64)::a", name))
	ad.b = signal.NewInput[float64](fmt.Sprintf("Adder(%s)::input(float64)::b", name))
	ad.sum = signal.New[float64](fmt.Sprintf("Adder(%s)::output(float64)::sum", name))
	ad.sum.SetFunction(func(t signal.Time) (float64, error) {
		ad.computations++
		av, err := ad.a.Get(t)
		if err != nil {
			return 0, err
		}
		bv, err := ad.b.Get(t)
		if err != nil {
			return 0, err
		}
		return av + bv, nil
	})
	if err := base.RegisterSignal(ad.a, ad.b, ad.sum); err != nil {
		base.Destroy()
		return nil, err
	}
	base.SetDocString("Sums its two inputs.")
	if err := base.AddCommand("reset", command.NewFunc("Reset both inputs to zero.",
		func([]string) (string, error) {
			ad.a.SetValue(0)
			ad.b.SetValue(0)
			return "", nil
		})); err != nil {
		base.Destroy()
		return nil, err
	}
	return ad, nil
}

func TestEntityIdentity(t *testing.T) {
	reg := NewRegistry()
	e, err := NewInRegistry(reg, "Tracer", "trace1")
	require.NoError(t, err)

	assert.Equal(t, "trace1", e.Name())
	assert.Equal(t, "Tracer", e.ClassName())
	assert.Equal(t, "Tracer(trace1): 0 signals, 0 commands", e.String())
	assert.True(t, e.Registered())

	var buf bytes.Buffer
	e.Display(&buf)
	assert.Equal(t, "Tracer(trace1): 0 signals, 0 commands", buf.String())
}

func TestEntityDefaultsClassAndName(t *testing.T) {
	reg := NewRegistry()
	e, err := NewInRegistry(reg, "", "")
	require.NoError(t, err)

	assert.Equal(t, "Entity", e.ClassName())
	assert.True(t, strings.HasPrefix(e.Name(), "entity-"),
		"generated name %q should start with the lowered class name", e.Name())
	assert.True(t, reg.Exists(e.Name()))
}

func TestDuplicateEntityNameRejectedWhileLive(t *testing.T) {
	reg := NewRegistry()
	first, err := NewInRegistry(reg, "Adder", "shared")
	require.NoError(t, err)

	_, err = NewInRegistry(reg, "Adder", "shared")
	require.Error(t, err)
	assert.ErrorIs(t, err, errors.ErrDuplicateEntityName)

	// Destroying the holder frees the name for reuse.
	first.Destroy()
	second, err := NewInRegistry(reg, "Adder", "shared")
	require.NoError(t, err)
	assert.True(t, second.Registered())
}

func TestSignalLookupReturnsRegisteredInstance(t *testing.T) {
	reg := NewRegistry()
	ad, err := newAdder(reg, "id")
	require.NoError(t, err)

	got, err := ad.Signal("sum")
	require.NoError(t, err)
	assert.Same(t, signal.Base(ad.sum), got)
	assert.Equal(t, "id", got.Owner())

	assert.True(t, ad.HasSignal("a"))
	assert.False(t, ad.HasSignal("carry"))

	_, err = ad.Signal("carry")
	require.Error(t, err)
	assert.ErrorIs(t, err, errors.ErrSignalNotFound)
}

func TestRegisterSignalDuplicateShortName(t *testing.T) {
	reg := NewRegistry()
	e, err := NewInRegistry(reg, "Adder", "dup")
	require.NoError(t, err)

	first := signal.NewConstant("Adder(dup)::output(float64)::out", 1.0)
	require.NoError(t, e.RegisterSignal(first))

	clash := signal.NewConstant("Adder(dup)::output(float64)::out", 2.0)
	err = e.RegisterSignal(clash)
	require.Error(t, err)
	assert.ErrorIs(t, err, errors.ErrDuplicateSignalName)

	// The original registration is untouched and the clash stays free.
	got, err := e.Signal("out")
	require.NoError(t, err)
	assert.Same(t, signal.Base(first), got)
	assert.False(t, clash.Registered())
}

func TestRegisterSignalBoundElsewhere(t *testing.T) {
	reg := NewRegistry()
	owner, err := NewInRegistry(reg, "Adder", "owner")
	require.NoError(t, err)
	thief, err := NewInRegistry(reg, "Adder", "thief")
	require.NoError(t, err)

	s := signal.NewConstant("Adder(owner)::output(float64)::out", 1.0)
	require.NoError(t, owner.RegisterSignal(s))

	err = thief.RegisterSignal(s)
	require.Error(t, err)
	assert.ErrorIs(t, err, errors.ErrSignalAlreadyBound)
	assert.Equal(t, "owner", s.Owner())
}

func TestDeregisterSignalIsIdempotent(t *testing.T) {
	reg := NewRegistry()
	ad, err := newAdder(reg, "dereg")
	require.NoError(t, err)

	ad.DeregisterSignal("sum")
	assert.False(t, ad.HasSignal("sum"))

	// A second deregistration of the same name changes nothing.
	ad.DeregisterSignal("sum")
	assert.False(t, ad.HasSignal("sum"))
	assert.ElementsMatch(t, []string{"a", "b"}, ad.SignalNames())

	// The stale reference is revoked, not silently stale.
	_, err = ad.sum.Get(1)
	require.Error(t, err)
	assert.ErrorIs(t, err, errors.ErrUnregisteredAccess)
}

func TestCommands(t *testing.T) {
	reg := NewRegistry()
	ad, err := newAdder(reg, "cmds")
	require.NoError(t, err)

	gain := 2.5
	require.NoError(t, ad.AddCommand("getGain", command.NewDirectGetter(&gain, "Return the gain.")))
	require.NoError(t, ad.AddCommand("setGain", command.NewDirectSetter(&gain, "Set the gain.")))

	err = ad.AddCommand("reset", command.NewFunc("clash", func([]string) (string, error) { return "", nil }))
	require.Error(t, err)
	assert.ErrorIs(t, err, errors.ErrDuplicateCommandName)

	_, err = ad.Command("unknown")
	require.Error(t, err)
	assert.ErrorIs(t, err, errors.ErrCommandNotFound)

	setGain, err := ad.Command("setGain")
	require.NoError(t, err)
	_, err = setGain.Execute([]string{"4.5"})
	require.NoError(t, err)
	assert.Equal(t, 4.5, gain)

	getGain, err := ad.Command("getGain")
	require.NoError(t, err)
	out, err := getGain.Execute(nil)
	require.NoError(t, err)
	assert.Equal(t, "4.5", out)

	assert.Equal(t, []string{"getGain", "reset", "setGain"}, ad.CommandList())
}

func TestEntityChainMemoization(t *testing.T) {
	reg := NewRegistry()
	src, err := NewInRegistry(reg, "Source", "src")
	require.NoError(t, err)
	out := signal.NewConstant("Source(src)::output(float64)::value", 3.0)
	require.NoError(t, src.RegisterSignal(out))

	ad, err := newAdder(reg, "chain")
	require.NoError(t, err)
	require.NoError(t, reg.Plug("src.value", "chain.a"))
	ad.b.SetValue(4)

	// First read at t=1 computes once.
	v, err := ad.sum.Get(1)
	require.NoError(t, err)
	assert.Equal(t, 7.0, v)
	assert.Equal(t, 1, ad.computations)

	// Re-reading at the same stamp serves the memo.
	v, err = ad.sum.Get(1)
	require.NoError(t, err)
	assert.Equal(t, 7.0, v)
	assert.Equal(t, 1, ad.computations)

	// Advancing the stamp recomputes exactly once.
	out.SetValue(10)
	v, err = ad.sum.Get(2)
	require.NoError(t, err)
	assert.Equal(t, 14.0, v)
	assert.Equal(t, 2, ad.computations)
}

func TestDestroyTearsDownDetectably(t *testing.T) {
	reg := NewRegistry()
	src, err := NewInRegistry(reg, "Source", "src")
	require.NoError(t, err)
	out := signal.NewConstant("Source(src)::output(float64)::value", 3.0)
	require.NoError(t, src.RegisterSignal(out))

	ad, err := newAdder(reg, "sink")
	require.NoError(t, err)
	require.NoError(t, reg.Plug("src.value", "sink.a"))
	ad.b.SetValue(1)

	_, err = ad.sum.Get(1)
	require.NoError(t, err)

	src.Destroy()

	assert.False(t, src.Registered())
	assert.False(t, reg.Exists("src"))

	// The downstream consumer now fails loudly through its plugged input.
	_, err = ad.sum.Get(2)
	require.Error(t, err)
	assert.ErrorIs(t, err, errors.ErrUnregisteredAccess)
	assert.True(t, errors.IsFatal(err))

	// Destroy is idempotent.
	src.Destroy()
	assert.False(t, reg.Exists("src"))
}

type closingCommand struct {
	command.Command
	closed *bool
}

func (c closingCommand) Close() error {
	*c.closed = true
	return nil
}

func TestDestroyClosesOwnedCommands(t *testing.T) {
	reg := NewRegistry()
	e, err := NewInRegistry(reg, "Tracer", "files")
	require.NoError(t, err)

	closed := false
	cmd := closingCommand{
		Command: command.NewFunc("Flush the trace file.", func([]string) (string, error) { return "", nil }),
		closed:  &closed,
	}
	require.NoError(t, e.AddCommand("flush", cmd))

	e.Destroy()
	assert.True(t, closed)
}

func TestDestroyedEntityRejectsNewMembers(t *testing.T) {
	reg := NewRegistry()
	e, err := NewInRegistry(reg, "Adder", "gone")
	require.NoError(t, err)
	e.Destroy()

	err = e.RegisterSignal(signal.NewConstant("Adder(gone)::output(float64)::out", 1.0))
	require.Error(t, err)
	assert.ErrorIs(t, err, errors.ErrUnregisteredAccess)

	err = e.AddCommand("late", command.NewFunc("too late", func([]string) (string, error) { return "", nil }))
	require.Error(t, err)
	assert.ErrorIs(t, err, errors.ErrUnregisteredAccess)
}

func TestDisplaySignalList(t *testing.T) {
	reg := NewRegistry()
	ad, err := newAdder(reg, "disp")
	require.NoError(t, err)

	var buf bytes.Buffer
	ad.DisplaySignalList(&buf)

	want := "--- <disp> signal list:\n" +
		"    |-- <Sig:Adder(disp)::input(float64)::a (type float64)>\n" +
		"    |-- <Sig:Adder(disp)::input(float64)::b (type float64)>\n" +
		"    `-- <Sig:Adder(disp)::output(float64)::sum (type float64)>\n"
	assert.Equal(t, want, buf.String())
}

func TestWriteCompletionList(t *testing.T) {
	reg := NewRegistry()
	ad, err := newAdder(reg, "comp")
	require.NoError(t, err)

	var buf bytes.Buffer
	ad.WriteCompletionList(&buf)
	assert.Equal(t, "comp\ncomp.a\ncomp.b\ncomp.sum\ncomp.reset\n", buf.String())
}

func TestWriteGraphEmitsPlugEdges(t *testing.T) {
	reg := NewRegistry()
	src, err := NewInRegistry(reg, "Source", "src")
	require.NoError(t, err)
	out := signal.NewConstant("Source(src)::output(float64)::value", 3.0)
	require.NoError(t, src.RegisterSignal(out))

	ad, err := newAdder(reg, "graph")
	require.NoError(t, err)
	require.NoError(t, reg.Plug("src.value", "graph.a"))

	var buf bytes.Buffer
	require.NoError(t, ad.WriteGraph(&buf))
	assert.Equal(t, "\t\"src\" -> \"graph\" [label=\"value -> a\"];\n", buf.String())

	// Unplugged inputs and owned outputs draw nothing.
	var empty bytes.Buffer
	require.NoError(t, src.WriteGraph(&empty))
	assert.Empty(t, empty.String())
}

func TestSendMsgCarriesOrigin(t *testing.T) {
	reg := NewRegistry()
	e, err := NewInRegistry(reg, "Adder", "talkative")
	require.NoError(t, err)

	var got logger.Entry
	e.Logger().AddSink(logger.FuncSink(func(entry logger.Entry) { got = entry }))

	e.SendMsg("joint limit reached", logger.MsgTypeWarning)

	assert.Equal(t, "WARNING", got.Level)
	assert.Equal(t, "talkative", got.Entity)
	assert.Equal(t, "entity_test.go", got.File)
	assert.NotZero(t, got.Line)
	assert.Equal(t, "joint limit reached", got.Message)
}

func TestLoggerPassthroughs(t *testing.T) {
	reg := NewRegistry()
	e, err := NewInRegistry(reg, "Adder", "tuned")
	require.NoError(t, err)

	e.SetLoggerVerbosity(logger.VerbosityErrorOnly)
	assert.Equal(t, logger.VerbosityErrorOnly, e.LoggerVerbosity())

	assert.True(t, e.SetTimeSample(0.002))
	assert.Equal(t, 0.002, e.TimeSample())
	assert.False(t, e.SetTimeSample(0))
	assert.Equal(t, 0.002, e.TimeSample())

	assert.True(t, e.SetStreamPrintPeriod(0.25))
	assert.Equal(t, 0.25, e.StreamPrintPeriod())
	assert.False(t, e.SetStreamPrintPeriod(-1))
	assert.Equal(t, 0.25, e.StreamPrintPeriod())
}
