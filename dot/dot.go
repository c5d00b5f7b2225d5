// Package dot renders entity graphs to Graphviz dot and reads them back.
package dot

import (
	"bufio"
	"fmt"
	"io"
	"maps"
	"slices"
	"strings"

	"github.com/nim65s/dynamic-graph/entity"
	"github.com/nim65s/dynamic-graph/errors"
	"github.com/nim65s/dynamic-graph/signal"
)

// PortRef names one signal on one entity.
type PortRef struct {
	Entity string `json:"entity"`
	Signal string `json:"signal"`
}

// String returns "entity.signal", the dotted path the registry resolves.
func (p PortRef) String() string {
	return p.Entity + "." + p.Signal
}

// Edge is one plug: a source output feeding a target input.
type Edge struct {
	From PortRef `json:"from"`
	To   PortRef `json:"to"`
}

// String renders the edge in the canonical wiring notation.
func (e Edge) String() string {
	return fmt.Sprintf("(%s -> %s)", e.From, e.To)
}

// ParseEdge reads the canonical wiring notation back into an Edge:
// "(clock.time -> filter.tick)". The parentheses are optional.
func ParseEdge(s string) (Edge, error) {
	text := strings.TrimSpace(s)
	text = strings.TrimPrefix(text, "(")
	text = strings.TrimSuffix(text, ")")
	from, to, found := strings.Cut(text, "->")
	if !found {
		return Edge{}, errors.WrapInvalid(errors.ErrInvalidConfig, "Graph", "ParseEdge",
			fmt.Sprintf("parsing %q, want (entity.signal -> entity.signal)", s))
	}
	fromRef, err := parsePortRef(from)
	if err != nil {
		return Edge{}, err
	}
	toRef, err := parsePortRef(to)
	if err != nil {
		return Edge{}, err
	}
	return Edge{From: fromRef, To: toRef}, nil
}

func parsePortRef(s string) (PortRef, error) {
	text := strings.TrimSpace(s)
	idx := strings.LastIndex(text, ".")
	if idx <= 0 || idx == len(text)-1 {
		return PortRef{}, errors.WrapInvalid(errors.ErrInvalidConfig, "Graph", "ParseEdge",
			fmt.Sprintf("parsing port %q, want entity.signal", s))
	}
	return PortRef{Entity: text[:idx], Signal: text[idx+1:]}, nil
}

// Node is one entity in the graph.
type Node struct {
	Name  string `json:"name"`
	Class string `json:"class"`
}

// Graph is the wiring of a registry at one point in time: entities as
// nodes, plugs as edges, plus any inputs found dangling during capture.
type Graph struct {
	Name     string
	nodes    map[string]Node
	edges    []Edge
	dangling []PortRef
}

// NewGraph creates an empty graph.
func NewGraph(name string) *Graph {
	return &Graph{
		Name:  name,
		nodes: make(map[string]Node),
	}
}

// AddNode adds an entity node, replacing any node of the same name.
func (g *Graph) AddNode(n Node) {
	g.nodes[n.Name] = n
}

// AddEdge records one plug.
func (g *Graph) AddEdge(e Edge) {
	g.edges = append(g.edges, e)
}

// Nodes returns a copy of the node set.
func (g *Graph) Nodes() map[string]Node {
	result := make(map[string]Node, len(g.nodes))
	maps.Copy(result, g.nodes)
	return result
}

// NodeNames returns the node names in sorted order.
func (g *Graph) NodeNames() []string {
	return slices.Sorted(maps.Keys(g.nodes))
}

// Edges returns a copy of the edge list.
func (g *Graph) Edges() []Edge {
	result := make([]Edge, len(g.edges))
	copy(result, g.edges)
	return result
}

// Dangling returns the inputs that had neither a source nor a value when
// the graph was captured.
func (g *Graph) Dangling() []PortRef {
	result := make([]PortRef, len(g.dangling))
	copy(result, g.dangling)
	return result
}

// FromRegistry captures the wiring of every live entity. Plugs whose
// source signal has no owner are invisible: there is no node to draw
// them from.
func FromRegistry(name string, reg *entity.Registry) *Graph {
	g := NewGraph(name)
	pool := reg.EntityMap()
	for _, entityName := range slices.Sorted(maps.Keys(pool)) {
		e := pool[entityName]
		g.AddNode(Node{Name: e.Name(), Class: e.ClassName()})
		for _, sigName := range e.SignalNames() {
			s, err := e.Signal(sigName)
			if err != nil {
				continue
			}
			if src := s.Source(); src != nil {
				if src.Owner() == "" {
					continue
				}
				g.AddEdge(Edge{
					From: PortRef{Entity: src.Owner(), Signal: src.ShortName()},
					To:   PortRef{Entity: e.Name(), Signal: s.ShortName()},
				})
			} else if signal.IsInput(s) && !s.Ready() {
				g.dangling = append(g.dangling, PortRef{Entity: e.Name(), Signal: s.ShortName()})
			}
		}
	}
	return g
}

// Write renders the graph as Graphviz dot. Nodes come out in sorted
// order and edges in capture order, so the output is stable and
// Parse reads it back losslessly.
func (g *Graph) Write(w io.Writer) error {
	bw := bufio.NewWriter(w)
	fmt.Fprintln(bw, "/* This graph has been automatically generated. */")
	fmt.Fprintf(bw, "digraph \"%s\" {\n", g.Name)
	fmt.Fprintln(bw, "\trankdir=LR;")
	fmt.Fprintln(bw, "\tnode [shape=box];")
	for _, name := range g.NodeNames() {
		n := g.nodes[name]
		fmt.Fprintf(bw, "\t\"%s\" [label=\"%s(%s)\"];\n", n.Name, n.Class, n.Name)
	}
	for _, e := range g.edges {
		fmt.Fprintf(bw, "\t\"%s\" -> \"%s\" [label=\"%s -> %s\"];\n",
			e.From.Entity, e.To.Entity, e.From.Signal, e.To.Signal)
	}
	fmt.Fprintln(bw, "}")
	if err := bw.Flush(); err != nil {
		return errors.WrapTransient(err, "Graph", "Write", "flushing dot output")
	}
	return nil
}

// Write captures the registry and renders it in one step.
func Write(name string, reg *entity.Registry, w io.Writer) error {
	return FromRegistry(name, reg).Write(w)
}

// Parse reads a dot rendering produced by Write back into a Graph.
// It understands the subset Write emits: one node or edge per line,
// identified by their quoted parts.
func Parse(r io.Reader) (*Graph, error) {
	g := NewGraph("")
	scanner := bufio.NewScanner(r)
	lineNo := 0
	for scanner.Scan() {
		lineNo++
		line := strings.TrimSpace(scanner.Text())
		switch {
		case line == "" || line == "}" ||
			strings.HasPrefix(line, "/*") || strings.HasPrefix(line, "//") ||
			strings.HasPrefix(line, "rankdir") || strings.HasPrefix(line, "node "):
			continue
		case strings.HasPrefix(line, "digraph"):
			if parts := quotedParts(line); len(parts) == 1 {
				g.Name = parts[0]
			}
		default:
			parts := quotedParts(line)
			switch len(parts) {
			case 2:
				// "name" [label="Class(name)"];
				class, _, found := strings.Cut(parts[1], "(")
				if !found {
					return nil, errors.WrapInvalid(errors.ErrInvalidConfig, "Graph", "Parse",
						fmt.Sprintf("line %d: node label %q, want Class(name)", lineNo, parts[1]))
				}
				g.AddNode(Node{Name: parts[0], Class: class})
			case 3:
				// "src" -> "dst" [label="out -> in"];
				fromSig, toSig, found := strings.Cut(parts[2], " -> ")
				if !found {
					return nil, errors.WrapInvalid(errors.ErrInvalidConfig, "Graph", "Parse",
						fmt.Sprintf("line %d: edge label %q, want out -> in", lineNo, parts[2]))
				}
				g.AddEdge(Edge{
					From: PortRef{Entity: parts[0], Signal: fromSig},
					To:   PortRef{Entity: parts[1], Signal: toSig},
				})
			default:
				return nil, errors.WrapInvalid(errors.ErrInvalidConfig, "Graph", "Parse",
					fmt.Sprintf("line %d: unrecognized statement %q", lineNo, line))
			}
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, errors.WrapTransient(err, "Graph", "Parse", "reading dot input")
	}
	return g, nil
}

// quotedParts returns the contents of every double-quoted span on the
// line, in order.
func quotedParts(line string) []string {
	var parts []string
	rest := line
	for {
		start := strings.IndexByte(rest, '"')
		if start < 0 {
			return parts
		}
		rest = rest[start+1:]
		end := strings.IndexByte(rest, '"')
		if end < 0 {
			return parts
		}
		parts = append(parts, rest[:end])
		rest = rest[end+1:]
	}
}
