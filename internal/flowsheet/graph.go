// Package flowsheet connects a process simulation to an LCA calculation as a
// small directed graph of nodes. Each node has named input and output
// variables and a function that maps inputs to outputs. Edges copy output
// values of one node into input values of the next.
package flowsheet

import (
	"context"
	"errors"
	"fmt"
	"maps"
	"slices"
	"sync"

	"github.com/rshade/lcaprommis/internal/logging"
)

// Graph errors.
var (
	ErrDuplicateNode    = errors.New("duplicate node")
	ErrUnknownNode      = errors.New("unknown node")
	ErrDuplicateEdge    = errors.New("duplicate edge")
	ErrUnknownEdge      = errors.New("unknown edge")
	ErrAlreadyConnected = errors.New("nodes already connected")
	ErrDuplicateVar     = errors.New("duplicate variable")
	ErrUnknownVar       = errors.New("unknown variable")
	ErrCycle            = errors.New("flowsheet has a cycle")
)

// NodeFunc computes a node's outputs from its inputs. Returned names that are
// not declared outputs are added to the node; declared outputs that are not
// returned are set to 0.
type NodeFunc func(ctx context.Context, inputs map[string]float64) (map[string]float64, error)

// Node is one unit of the flowsheet.
type Node struct {
	Name    string
	inputs  *varSet
	outputs *varSet
	fn      NodeFunc
}

// Input returns the named input variable.
func (n *Node) Input(name string) (*NodeVar, bool) { return n.inputs.get(name) }

// Output returns the named output variable.
func (n *Node) Output(name string) (*NodeVar, bool) { return n.outputs.get(name) }

// Inputs returns the input variables in declaration order.
func (n *Node) Inputs() []*NodeVar { return n.inputs.list() }

// Outputs returns the output variables in declaration order.
func (n *Node) Outputs() []*NodeVar { return n.outputs.list() }

// AddVar declares a variable of the given kind.
func (n *Node) AddVar(kind VarKind, v NodeVar) (*NodeVar, error) {
	set := n.inputs
	if kind == Output {
		set = n.outputs
	}
	nv, err := set.add(v)
	if err != nil {
		return nil, fmt.Errorf("node %q %s: %w", n.Name, kind, err)
	}
	return nv, nil
}

// Connection links an output of the start node to an input of the end node.
type Connection struct {
	Output string
	Input  string
}

// Edge carries values from Start to End.
type Edge struct {
	Name        string
	Start       string
	End         string
	Connections []Connection
}

// Graph is a flowsheet. Runs are serialized.
type Graph struct {
	Name string

	mu    sync.Mutex
	nodes map[string]*Node
	order []string
	edges []*Edge
}

// NewGraph returns an empty flowsheet.
func NewGraph(name string) *Graph {
	return &Graph{Name: name, nodes: make(map[string]*Node)}
}

// AddNode adds a node with no variables.
func (g *Graph) AddNode(name string) (*Node, error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	if name == "" {
		return nil, errors.New("node name is empty")
	}
	if _, ok := g.nodes[name]; ok {
		return nil, fmt.Errorf("%w: %q", ErrDuplicateNode, name)
	}
	n := &Node{Name: name, inputs: newVarSet(), outputs: newVarSet()}
	g.nodes[name] = n
	g.order = append(g.order, name)
	return n, nil
}

// Node returns the named node.
func (g *Graph) Node(name string) (*Node, bool) {
	g.mu.Lock()
	defer g.mu.Unlock()
	n, ok := g.nodes[name]
	return n, ok
}

// Nodes returns the node names in the order they were added.
func (g *Graph) Nodes() []string {
	g.mu.Lock()
	defer g.mu.Unlock()
	return slices.Clone(g.order)
}

// Edges returns the edges in the order they were added.
func (g *Graph) Edges() []Edge {
	g.mu.Lock()
	defer g.mu.Unlock()
	out := make([]Edge, len(g.edges))
	for i, e := range g.edges {
		out[i] = *e
		out[i].Connections = slices.Clone(e.Connections)
	}
	return out
}

// AddEdge adds an edge from start to end. Two nodes are connected by at most
// one edge, in either direction.
func (g *Graph) AddEdge(name, start, end string) (*Edge, error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	for _, n := range []string{start, end} {
		if _, ok := g.nodes[n]; !ok {
			return nil, fmt.Errorf("edge %q: %w: %q", name, ErrUnknownNode, n)
		}
	}
	if start == end {
		return nil, fmt.Errorf("edge %q: node %q cannot feed itself", name, start)
	}
	for _, e := range g.edges {
		if e.Name == name {
			return nil, fmt.Errorf("%w: %q", ErrDuplicateEdge, name)
		}
		if (e.Start == start && e.End == end) || (e.Start == end && e.End == start) {
			return nil, fmt.Errorf("%w: %q and %q by edge %q", ErrAlreadyConnected, start, end, e.Name)
		}
	}
	e := &Edge{Name: name, Start: start, End: end}
	g.edges = append(g.edges, e)
	return e, nil
}

// Connect passes output out of the edge's start node to input in of its end
// node on every run.
func (g *Graph) Connect(edge, out, in string) error {
	g.mu.Lock()
	defer g.mu.Unlock()

	e := g.edge(edge)
	if e == nil {
		return fmt.Errorf("%w: %q", ErrUnknownEdge, edge)
	}
	if _, ok := g.nodes[e.Start].Output(out); !ok {
		return fmt.Errorf("edge %q: %w: output %q of %q", edge, ErrUnknownVar, out, e.Start)
	}
	if _, ok := g.nodes[e.End].Input(in); !ok {
		return fmt.Errorf("edge %q: %w: input %q of %q", edge, ErrUnknownVar, in, e.End)
	}
	e.Connections = append(e.Connections, Connection{Output: out, Input: in})
	return nil
}

// SetFunc sets the function of a node. A node without a function produces no
// outputs.
func (g *Graph) SetFunc(node string, fn NodeFunc) error {
	g.mu.Lock()
	defer g.mu.Unlock()

	n, ok := g.nodes[node]
	if !ok {
		return fmt.Errorf("%w: %q", ErrUnknownNode, node)
	}
	n.fn = fn
	return nil
}

func (g *Graph) edge(name string) *Edge {
	for _, e := range g.edges {
		if e.Name == name {
			return e
		}
	}
	return nil
}

// Run executes every node once in topological order. Before a node runs,
// values of connected upstream outputs are copied to its inputs. Run returns
// the outputs of every node keyed by node name.
func (g *Graph) Run(ctx context.Context) (map[string]map[string]float64, error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	order, err := g.topoSort()
	if err != nil {
		return nil, err
	}

	log := logging.FromContext(ctx).With().
		Str("component", "flowsheet").
		Str("flowsheet", g.Name).
		Logger()

	results := make(map[string]map[string]float64, len(order))
	for _, name := range order {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		n := g.nodes[name]
		for _, e := range g.edges {
			if e.End != name {
				continue
			}
			src := g.nodes[e.Start]
			for _, c := range e.Connections {
				o, _ := src.Output(c.Output)
				i, _ := n.Input(c.Input)
				i.Value = o.Value
			}
		}

		inputs := n.inputs.values()
		var outputs map[string]float64
		if n.fn != nil {
			log.Debug().Str("node", name).Int("inputs", len(inputs)).Msg("running node")
			outputs, err = n.fn(ctx, inputs)
			if err != nil {
				return nil, fmt.Errorf("node %q: %w", name, err)
			}
			for _, v := range n.outputs.list() {
				v.Value = 0
			}
		}
		for _, k := range slices.Sorted(maps.Keys(outputs)) {
			v, ok := n.outputs.get(k)
			if !ok {
				v, _ = n.outputs.add(NodeVar{Name: k})
			}
			v.Value = outputs[k]
		}
		results[name] = n.outputs.values()
	}
	return results, nil
}

// topoSort orders nodes so every edge points forward. Ties keep insertion
// order.
func (g *Graph) topoSort() ([]string, error) {
	indegree := make(map[string]int, len(g.nodes))
	for _, e := range g.edges {
		indegree[e.End]++
	}

	var (
		order []string
		done  = make(map[string]bool, len(g.nodes))
	)
	for len(order) < len(g.order) {
		progressed := false
		for _, name := range g.order {
			if done[name] || indegree[name] > 0 {
				continue
			}
			done[name] = true
			order = append(order, name)
			progressed = true
			for _, e := range g.edges {
				if e.Start == name {
					indegree[e.End]--
				}
			}
		}
		if !progressed {
			var stuck []string
			for _, name := range g.order {
				if !done[name] {
					stuck = append(stuck, name)
				}
			}
			return nil, fmt.Errorf("%w: %v", ErrCycle, stuck)
		}
	}
	return order, nil
}
