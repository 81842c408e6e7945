package flowsheet

import (
	"context"
	"errors"
	"fmt"

	"github.com/rshade/lcaprommis/internal/analysis"
	"github.com/rshade/lcaprommis/internal/flowtable"
	"github.com/rshade/lcaprommis/internal/logging"
)

// Node names used by NewLCAFlowsheet.
const (
	ProcessNodeName = "process"
	LCANodeName     = "openlca"
	processEdgeName = "process-to-openlca"
)

// DefaultParameterSet is the parameter set LCANode updates when none is named.
const DefaultParameterSet = "Baseline"

// ProcessNode wraps a model. Its outputs are the flow amounts keyed by flow
// name; when a name repeats, the last row wins.
func ProcessNode(model ProcessModel) NodeFunc {
	return func(ctx context.Context, inputs map[string]float64) (map[string]float64, error) {
		tbl, err := model.Run(ctx, inputs)
		if err != nil {
			return nil, err
		}
		out := make(map[string]float64, len(tbl.Rows))
		for _, r := range tbl.Rows {
			if _, dup := out[r.FlowName]; dup {
				logging.FromContext(ctx).Warn().
					Str("component", "flowsheet").
					Str("flow", r.FlowName).
					Msg("flow appears more than once; keeping the last amount")
			}
			out[r.FlowName] = r.Amount
		}
		return out, nil
	}
}

// LCAConfig describes the calculation an LCA node runs.
type LCAConfig struct {
	Client   analysis.Client
	SystemID string
	MethodID string
	// SetName is the parameter set to update, DefaultParameterSet when empty.
	SetName    string
	Parameters *flowtable.ParameterTable
}

func (c LCAConfig) validate() error {
	switch {
	case c.Client == nil:
		return errors.New("lca node: no client")
	case c.SystemID == "":
		return errors.New("lca node: no product system")
	case c.MethodID == "":
		return errors.New("lca node: no impact method")
	case c.Parameters == nil || c.Parameters.Len() == 0:
		return errors.New("lca node: empty parameter table")
	}
	return nil
}

func (c LCAConfig) setName() string {
	if c.SetName == "" {
		return DefaultParameterSet
	}
	return c.SetName
}

// inputName is the node input a parameter reads from.
func inputName(p flowtable.Parameter) string {
	if p.Description == "" {
		return p.Name
	}
	return p.Description
}

// LCANode maps its inputs onto the parameter table by description, with 0 for
// any parameter that has no input, updates the parameter set, runs the
// calculation and outputs impact amounts by category name.
func LCANode(cfg LCAConfig) NodeFunc {
	return func(ctx context.Context, inputs map[string]float64) (map[string]float64, error) {
		values := make(map[string]float64, cfg.Parameters.Len())
		for _, p := range cfg.Parameters.Parameters {
			values[p.Name] = inputs[inputName(p)]
		}

		set, _, err := analysis.UpdateParameterSet(ctx, cfg.Client, cfg.SystemID, cfg.setName(), values)
		if err != nil {
			return nil, err
		}
		table, err := analysis.RunAndCollect(ctx, cfg.Client, cfg.SystemID, cfg.MethodID, set)
		if err != nil {
			return nil, err
		}
		return table.ByName(), nil
	}
}

// FlowsheetConfig describes the two-node flowsheet built by NewLCAFlowsheet.
type FlowsheetConfig struct {
	Name  string
	Model ProcessModel
	// Known lists the variables the model accepts.
	Known []string
	LCA   LCAConfig
}

// NewLCAFlowsheet builds a process node feeding an LCA node. Every parameter
// gets an LCA input named after its description, connected to the process
// output of the flow it describes. The description is either the flow name
// or ParameterDescription of it. Inputs start at 0, so a parameter without a
// description, or whose flow the model does not produce, is sent as 0.
func NewLCAFlowsheet(cfg FlowsheetConfig) (*Session, error) {
	if cfg.Model == nil {
		return nil, errors.New("flowsheet: no process model")
	}
	if err := cfg.LCA.validate(); err != nil {
		return nil, err
	}

	g := NewGraph(cfg.Name)
	proc, err := g.AddNode(ProcessNodeName)
	if err != nil {
		return nil, err
	}
	lca, err := g.AddNode(LCANodeName)
	if err != nil {
		return nil, err
	}
	if _, err := g.AddEdge(processEdgeName, ProcessNodeName, LCANodeName); err != nil {
		return nil, err
	}

	for _, p := range cfg.LCA.Parameters.Parameters {
		in := inputName(p)
		if _, ok := lca.Input(in); ok {
			continue
		}
		if _, err := lca.AddVar(Input, NodeVar{Name: in, Description: p.Name}); err != nil {
			return nil, err
		}
		if p.Description == "" {
			continue
		}
		flow := p.Description
		if name, ok := flowtable.FlowNameOf(flow); ok {
			flow = name
		}
		if _, ok := proc.Output(flow); !ok {
			if _, err := proc.AddVar(Output, NodeVar{Name: flow}); err != nil {
				return nil, err
			}
		}
		if err := g.Connect(processEdgeName, flow, in); err != nil {
			return nil, fmt.Errorf("connecting %q: %w", flow, err)
		}
	}

	if err := g.SetFunc(ProcessNodeName, ProcessNode(cfg.Model)); err != nil {
		return nil, err
	}
	if err := g.SetFunc(LCANodeName, LCANode(cfg.LCA)); err != nil {
		return nil, err
	}
	return NewSession(g, ProcessNodeName, LCANodeName, cfg.Known)
}
