package flowsheet

import (
	"errors"
	"fmt"
	"strings"
)

// VarKind tells inputs from outputs.
type VarKind int

// Variable kinds.
const (
	Input VarKind = iota
	Output
)

func (k VarKind) String() string {
	if k == Output {
		return "output"
	}
	return "input"
}

// ParseVarKind accepts "input" or "output" in any case.
func ParseVarKind(s string) (VarKind, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "input":
		return Input, nil
	case "output":
		return Output, nil
	default:
		return Input, fmt.Errorf("variable kind %q: want input or output", s)
	}
}

// Distribution names how a decision variable is sampled.
type Distribution string

// Supported distributions. Uniform spans [Min, Max]; Normal and Lognormal use
// Value as the mean (of the log for Lognormal) and a sixth of the range as
// the standard deviation; Triangle peaks at Value.
const (
	Uniform   Distribution = "Uniform"
	Normal    Distribution = "Normal"
	Lognormal Distribution = "Lognormal"
	Triangle  Distribution = "Triangle"
)

// ErrUnknownDistribution indicates an unsupported distribution name.
var ErrUnknownDistribution = errors.New("unknown distribution")

// ParseDistribution matches a distribution name case-insensitively. The empty
// string means Uniform.
func ParseDistribution(s string) (Distribution, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "uniform":
		return Uniform, nil
	case "normal":
		return Normal, nil
	case "lognormal", "log-normal":
		return Lognormal, nil
	case "triangle", "triangular":
		return Triangle, nil
	default:
		return "", fmt.Errorf("%w: %q (want uniform, normal, lognormal or triangle)", ErrUnknownDistribution, s)
	}
}

// NodeVar is a named value on a node. Min, Max, Unit and Dist only matter for
// inputs that are decision variables.
type NodeVar struct {
	Name        string
	Value       float64
	Min         float64
	Max         float64
	Unit        string
	Dist        Distribution
	Description string
}

// varSet keeps variables in declaration order.
type varSet struct {
	byName map[string]*NodeVar
	names  []string
}

func newVarSet() *varSet {
	return &varSet{byName: make(map[string]*NodeVar)}
}

func (s *varSet) add(v NodeVar) (*NodeVar, error) {
	if v.Name == "" {
		return nil, errors.New("variable name is empty")
	}
	if _, ok := s.byName[v.Name]; ok {
		return nil, fmt.Errorf("%w: %q", ErrDuplicateVar, v.Name)
	}
	if v.Dist == "" {
		v.Dist = Uniform
	}
	nv := &v
	s.byName[v.Name] = nv
	s.names = append(s.names, v.Name)
	return nv, nil
}

// attach adds an existing variable so both holders share it.
func (s *varSet) attach(v *NodeVar) error {
	if _, ok := s.byName[v.Name]; ok {
		return fmt.Errorf("%w: %q", ErrDuplicateVar, v.Name)
	}
	s.byName[v.Name] = v
	s.names = append(s.names, v.Name)
	return nil
}

func (s *varSet) get(name string) (*NodeVar, bool) {
	v, ok := s.byName[name]
	return v, ok
}

func (s *varSet) list() []*NodeVar {
	out := make([]*NodeVar, len(s.names))
	for i, n := range s.names {
		out[i] = s.byName[n]
	}
	return out
}

func (s *varSet) values() map[string]float64 {
	out := make(map[string]float64, len(s.names))
	for _, n := range s.names {
		out[n] = s.byName[n].Value
	}
	return out
}
