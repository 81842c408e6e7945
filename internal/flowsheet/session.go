package flowsheet

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"sync"

	"github.com/rshade/lcaprommis/internal/logging"
)

// ErrNotDecisionVar indicates a name that is not a decision variable.
var ErrNotDecisionVar = errors.New("not a decision variable")

// Session owns a flowsheet and the decision variables an optimizer may
// change between runs. Decision variables are inputs of the process node.
type Session struct {
	Graph *Graph

	processNode string
	lcaNode     string

	mu        sync.Mutex
	known     []string
	decisions *varSet
}

// NewSession creates a session over g. known lists the variables the process
// model accepts; only those can become decision variables.
func NewSession(g *Graph, processNode, lcaNode string, known []string) (*Session, error) {
	for _, n := range []string{processNode, lcaNode} {
		if _, ok := g.Node(n); !ok {
			return nil, fmt.Errorf("%w: %q", ErrUnknownNode, n)
		}
	}
	return &Session{
		Graph:       g,
		processNode: processNode,
		lcaNode:     lcaNode,
		known:       slices.Clone(known),
		decisions:   newVarSet(),
	}, nil
}

// Known returns the variable names the process model accepts.
func (s *Session) Known() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return slices.Clone(s.known)
}

// AddDecisionVariable makes a known variable a decision variable and an input
// of the process node. Adding it twice only logs a warning.
func (s *Session) AddDecisionVariable(ctx context.Context, v NodeVar) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !slices.Contains(s.known, v.Name) {
		return fmt.Errorf("%w: %q is not a process model variable", ErrUnknownVar, v.Name)
	}
	if _, ok := s.decisions.get(v.Name); ok {
		logging.FromContext(ctx).Warn().
			Str("component", "flowsheet").
			Str("variable", v.Name).
			Msg("decision variable already exists")
		return nil
	}

	node, _ := s.Graph.Node(s.processNode)
	nv, err := node.AddVar(Input, v)
	if err != nil {
		return err
	}
	return s.decisions.attach(nv)
}

// DecisionVariables returns the decision variables in the order they were
// added.
func (s *Session) DecisionVariables() []NodeVar {
	s.mu.Lock()
	defer s.mu.Unlock()
	vars := s.decisions.list()
	out := make([]NodeVar, len(vars))
	for i, v := range vars {
		out[i] = *v
	}
	return out
}

func (s *Session) decision(name string) (*NodeVar, error) {
	v, ok := s.decisions.get(name)
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrNotDecisionVar, name)
	}
	return v, nil
}

// SetMin sets the lower bound of a decision variable.
func (s *Session) SetMin(name string, v float64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	dv, err := s.decision(name)
	if err != nil {
		return err
	}
	dv.Min = v
	return nil
}

// SetMax sets the upper bound of a decision variable.
func (s *Session) SetMax(name string, v float64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	dv, err := s.decision(name)
	if err != nil {
		return err
	}
	dv.Max = v
	return nil
}

// SetValue sets the current value of a decision variable.
func (s *Session) SetValue(name string, v float64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	dv, err := s.decision(name)
	if err != nil {
		return err
	}
	dv.Value = v
	return nil
}

// SetDistribution sets how a decision variable is sampled.
func (s *Session) SetDistribution(name, dist string) error {
	d, err := ParseDistribution(dist)
	if err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	dv, err := s.decision(name)
	if err != nil {
		return err
	}
	dv.Dist = d
	return nil
}

// InitializeDecisionVariables takes each decision variable's value from
// values when present and sets its bounds to half and twice that value.
func (s *Session) InitializeDecisionVariables(values map[string]float64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, dv := range s.decisions.list() {
		if v, ok := values[dv.Name]; ok {
			dv.Value = v
		}
		dv.Min, dv.Max = 0.5*dv.Value, 2*dv.Value
		if dv.Min > dv.Max {
			dv.Min, dv.Max = dv.Max, dv.Min
		}
	}
}

// Evaluate sets the given decision variables, runs the flowsheet and returns
// the outputs of the LCA node. Decision variables not in values keep their
// current value.
func (s *Session) Evaluate(ctx context.Context, values map[string]float64) (map[string]float64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for name, v := range values {
		dv, err := s.decision(name)
		if err != nil {
			return nil, err
		}
		dv.Value = v
	}
	results, err := s.Graph.Run(ctx)
	if err != nil {
		return nil, err
	}
	return results[s.lcaNode], nil
}
