// Package analysis keeps parameter sets on an openLCA product system in step
// with locally computed values, runs impact calculations against them and
// collects the total impacts.
package analysis

import (
	"context"
	"errors"
	"fmt"
	"math"
	"sort"

	"github.com/rshade/lcaprommis/internal/logging"
	"github.com/rshade/lcaprommis/internal/olca"
)

// Sentinel errors for parameter set handling.
var (
	ErrParameterSetNotFound    = errors.New("parameter set not found")
	ErrNoQuantitativeReference = errors.New("process has no quantitative reference")
	ErrInvalidValue            = errors.New("invalid parameter value")
)

// Client is the part of the IPC client this package uses.
type Client interface {
	GetProcess(ctx context.Context, id string) (*olca.Process, error)
	GetProductSystem(ctx context.Context, id string) (*olca.ProductSystem, error)
	Put(ctx context.Context, entity any) (*olca.Ref, error)
	Calculate(ctx context.Context, setup olca.CalculationSetup) (*olca.ResultState, error)
	WaitUntilReady(ctx context.Context, resultID string) (*olca.ResultState, error)
	TotalImpacts(ctx context.Context, resultID string) ([]olca.ImpactValue, error)
	Dispose(ctx context.Context, resultID string) error
}

// CreateParameterSet redefines every parameter of the process in a set named
// name on the product system. A set with the same name is replaced. When
// baseline is true every other set loses its baseline flag.
func CreateParameterSet(
	ctx context.Context,
	c Client,
	processID, systemID, name, description string,
	baseline bool,
) (*olca.ParameterRedefSet, error) {
	proc, err := c.GetProcess(ctx, processID)
	if err != nil {
		return nil, fmt.Errorf("loading process: %w", err)
	}
	refEx, ok := proc.QuantitativeReference()
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrNoQuantitativeReference, processID)
	}

	pctx := processContext(proc, refEx)
	set := olca.ParameterRedefSet{
		Name:        name,
		Description: description,
		IsBaseline:  baseline,
	}
	for _, p := range proc.Parameters {
		set.Parameters = append(set.Parameters, olca.ParameterRedef{
			Type:        "ParameterRedef",
			Context:     pctx,
			Description: p.Description,
			Name:        p.Name,
			Uncertainty: p.Uncertainty,
			Value:       p.Value,
		})
	}

	ps, err := c.GetProductSystem(ctx, systemID)
	if err != nil {
		return nil, fmt.Errorf("loading product system: %w", err)
	}

	replaced := false
	for i := range ps.ParameterSets {
		if ps.ParameterSets[i].Name == name {
			ps.ParameterSets[i] = set
			replaced = true
			continue
		}
		if baseline {
			ps.ParameterSets[i].IsBaseline = false
		}
	}
	if !replaced {
		ps.ParameterSets = append(ps.ParameterSets, set)
	}

	if _, err := c.Put(ctx, ps); err != nil {
		return nil, fmt.Errorf("storing product system: %w", err)
	}

	logging.FromContext(ctx).Info().
		Str("component", "analysis").
		Str("product_system", systemID).
		Str("parameter_set", name).
		Int("parameters", len(set.Parameters)).
		Bool("replaced", replaced).
		Bool("baseline", baseline).
		Msg("parameter set stored")
	return &set, nil
}

// processContext is the Process reference a redefinition points at.
func processContext(proc *olca.Process, refEx olca.Exchange) *olca.Ref {
	ref := &olca.Ref{
		Type:        olca.TypeProcess,
		ID:          proc.ID,
		Name:        proc.Name,
		Category:    proc.Category,
		Description: proc.Description,
		Library:     proc.Library,
		ProcessType: proc.ProcessType,
	}
	if proc.Location != nil {
		ref.Location = proc.Location.Name
	}
	if refEx.Flow != nil {
		ref.FlowType = refEx.Flow.FlowType
	}
	switch {
	case refEx.FlowProperty != nil && refEx.FlowProperty.RefUnit != "":
		ref.RefUnit = refEx.FlowProperty.RefUnit
	case refEx.Unit != nil:
		ref.RefUnit = refEx.Unit.Name
	}
	return ref
}

// Change is one updated redefinition.
type Change struct {
	Name string
	Old  float64
	New  float64
}

// Reconciliation reports what UpdateParameterSet did.
type Reconciliation struct {
	// Updated redefinitions whose value changed.
	Updated []Change
	// Unchanged redefinitions that were given their current value.
	Unchanged []string
	// Missing redefinitions that were not in the values and kept their value.
	Missing []string
	// Unknown names in the values that the set does not redefine.
	Unknown []string
}

// UpdateParameterSet sets the value of every redefinition of the named set
// that appears in values and stores the product system when anything
// changed. Non-finite values are rejected before anything is modified.
func UpdateParameterSet(
	ctx context.Context,
	c Client,
	systemID, name string,
	values map[string]float64,
) (*olca.ParameterRedefSet, *Reconciliation, error) {
	for n, v := range values {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return nil, nil, fmt.Errorf("%w: %s = %v", ErrInvalidValue, n, v)
		}
	}

	ps, err := c.GetProductSystem(ctx, systemID)
	if err != nil {
		return nil, nil, fmt.Errorf("loading product system: %w", err)
	}
	set := ps.ParameterSet(name)
	if set == nil {
		return nil, nil, fmt.Errorf("%w: %q on product system %s", ErrParameterSetNotFound, name, systemID)
	}

	rec := &Reconciliation{}
	known := make(map[string]bool, len(set.Parameters))
	for i := range set.Parameters {
		p := &set.Parameters[i]
		known[p.Name] = true
		v, ok := values[p.Name]
		switch {
		case !ok:
			rec.Missing = append(rec.Missing, p.Name)
		case v == p.Value:
			rec.Unchanged = append(rec.Unchanged, p.Name)
		default:
			rec.Updated = append(rec.Updated, Change{Name: p.Name, Old: p.Value, New: v})
			p.Value = v
		}
	}
	for n := range values {
		if !known[n] {
			rec.Unknown = append(rec.Unknown, n)
		}
	}
	sort.Strings(rec.Unknown)

	log := logging.FromContext(ctx).With().
		Str("component", "analysis").
		Str("product_system", systemID).
		Str("parameter_set", name).
		Logger()
	if len(rec.Unknown) > 0 {
		log.Warn().Strs("names", rec.Unknown).Msg("values for parameters the set does not redefine")
	}

	if len(rec.Updated) > 0 {
		if _, err := c.Put(ctx, ps); err != nil {
			return nil, nil, fmt.Errorf("storing product system: %w", err)
		}
	}
	log.Debug().
		Int("updated", len(rec.Updated)).
		Int("unchanged", len(rec.Unchanged)).
		Int("missing", len(rec.Missing)).
		Msg("parameter set reconciled")

	out := *set
	return &out, rec, nil
}
