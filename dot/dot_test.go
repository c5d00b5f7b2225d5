package dot

import (
	"bytes"
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nim65s/dynamic-graph/entity"
	"github.com/nim65s/dynamic-graph/errors"
	"github.com/nim65s/dynamic-graph/signal"
)

// buildChain wires clock.time -> filter.tick in a fresh registry, with a
// dangling second input on the filter.
func buildChain(t *testing.T) *entity.Registry {
	t.Helper()
	reg := entity.NewRegistry()

	clock, err := entity.NewInRegistry(reg, "Clock", "clock")
	require.NoError(t, err)
	timeSig := signal.NewConstant("Clock(clock)::output(float64)::time", 0.0)
	require.NoError(t, clock.RegisterSignal(timeSig))

	filter, err := entity.NewInRegistry(reg, "Filter", "filter")
	require.NoError(t, err)
	tick := signal.NewInput[float64]("Filter(filter)::input(float64)::tick")
	gain := signal.NewInput[float64]("Filter(filter)::input(float64)::gain")
	require.NoError(t, filter.RegisterSignal(tick, gain))

	require.NoError(t, reg.Plug("clock.time", "filter.tick"))
	return reg
}

func TestEdgeNotationRoundTrip(t *testing.T) {
	e := Edge{
		From: PortRef{Entity: "clock", Signal: "time"},
		To:   PortRef{Entity: "filter", Signal: "tick"},
	}
	assert.Equal(t, "(clock.time -> filter.tick)", e.String())

	parsed, err := ParseEdge(e.String())
	require.NoError(t, err)
	assert.Equal(t, e, parsed)

	// The parentheses are optional on input.
	parsed, err = ParseEdge("clock.time -> filter.tick")
	require.NoError(t, err)
	assert.Equal(t, e, parsed)
}

func TestParseEdgeErrors(t *testing.T) {
	tests := []struct {
		name string
		in   string
	}{
		{"no arrow", "(clock.time filter.tick)"},
		{"missing signal", "(clock -> filter.tick)"},
		{"missing target signal", "(clock.time -> filter.)"},
		{"empty", ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseEdge(tt.in)
			require.Error(t, err)
			assert.ErrorIs(t, err, errors.ErrInvalidConfig)
		})
	}
}

func TestFromRegistry(t *testing.T) {
	reg := buildChain(t)
	g := FromRegistry("robot", reg)

	assert.Equal(t, "robot", g.Name)
	assert.Equal(t, []string{"clock", "filter"}, g.NodeNames())
	assert.Equal(t, "Clock", g.Nodes()["clock"].Class)

	edges := g.Edges()
	require.Len(t, edges, 1)
	assert.Equal(t, "(clock.time -> filter.tick)", edges[0].String())

	dangling := g.Dangling()
	require.Len(t, dangling, 1)
	assert.Equal(t, "filter.gain", dangling[0].String())
}

func TestFromRegistrySkipsFedInputs(t *testing.T) {
	reg := buildChain(t)
	filter, err := reg.Entity("filter")
	require.NoError(t, err)
	gain, err := filter.Signal("gain")
	require.NoError(t, err)

	// Assigning a value makes the input fed, not dangling.
	gain.(*signal.Input[float64]).SetValue(2.0)
	g := FromRegistry("robot", reg)
	assert.Empty(t, g.Dangling())
}

func TestWriteFormat(t *testing.T) {
	reg := buildChain(t)
	var buf bytes.Buffer
	require.NoError(t, Write("robot", reg, &buf))

	want := "/* This graph has been automatically generated. */\n" +
		"digraph \"robot\" {\n" +
		"\trankdir=LR;\n" +
		"\tnode [shape=box];\n" +
		"\t\"clock\" [label=\"Clock(clock)\"];\n" +
		"\t\"filter\" [label=\"Filter(filter)\"];\n" +
		"\t\"clock\" -> \"filter\" [label=\"time -> tick\"];\n" +
		"}\n"
	assert.Equal(t, want, buf.String())
}

func TestWriteParseRoundTrip(t *testing.T) {
	reg := buildChain(t)
	var buf bytes.Buffer
	require.NoError(t, Write("robot", reg, &buf))

	parsed, err := Parse(&buf)
	require.NoError(t, err)

	assert.Equal(t, "robot", parsed.Name)
	assert.Equal(t, []string{"clock", "filter"}, parsed.NodeNames())
	assert.Equal(t, "Filter", parsed.Nodes()["filter"].Class)

	edges := parsed.Edges()
	require.Len(t, edges, 1)
	assert.Equal(t, Edge{
		From: PortRef{Entity: "clock", Signal: "time"},
		To:   PortRef{Entity: "filter", Signal: "tick"},
	}, edges[0])
}

func TestParseRejectsMalformedLines(t *testing.T) {
	tests := []struct {
		name string
		in   string
	}{
		{"bad node label", "digraph \"g\" {\n\t\"a\" [label=\"no-class\"];\n}"},
		{"bad edge label", "digraph \"g\" {\n\t\"a\" -> \"b\" [label=\"nosplit\"];\n}"},
		{"stray quoted token", "digraph \"g\" {\n\t\"orphan\";\n}"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse(strings.NewReader(tt.in))
			require.Error(t, err)
			assert.ErrorIs(t, err, errors.ErrInvalidConfig)
		})
	}
}

func TestParseSkipsDecorations(t *testing.T) {
	in := "/* a comment */\n" +
		"// another comment\n" +
		"digraph \"g\" {\n" +
		"\trankdir=LR;\n" +
		"\tnode [shape=box];\n" +
		"\n" +
		"}\n"
	g, err := Parse(strings.NewReader(in))
	require.NoError(t, err)
	assert.Equal(t, "g", g.Name)
	assert.Empty(t, g.NodeNames())
}

func TestWriteScalesWithFanOut(t *testing.T) {
	reg := entity.NewRegistry()
	src, err := entity.NewInRegistry(reg, "Clock", "clock")
	require.NoError(t, err)
	timeSig := signal.NewConstant("Clock(clock)::output(float64)::time", 0.0)
	require.NoError(t, src.RegisterSignal(timeSig))

	for i := 0; i < 3; i++ {
		name := fmt.Sprintf("sink%d", i)
		sink, err := entity.NewInRegistry(reg, "Sink", name)
		require.NoError(t, err)
		in := signal.NewInput[float64](fmt.Sprintf("Sink(%s)::input(float64)::tick", name))
		require.NoError(t, sink.RegisterSignal(in))
		require.NoError(t, reg.Plug("clock.time", name+".tick"))
	}

	g := FromRegistry("fan", reg)
	assert.Len(t, g.Edges(), 3)

	var buf bytes.Buffer
	require.NoError(t, g.Write(&buf))
	parsed, err := Parse(&buf)
	require.NoError(t, err)
	assert.Len(t, parsed.Edges(), 3)
}
