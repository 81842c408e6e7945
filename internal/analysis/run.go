package analysis

import (
	"context"
	"fmt"
	"time"

	"github.com/rshade/lcaprommis/internal/logging"
	"github.com/rshade/lcaprommis/internal/olca"
)

const disposeTimeout = 10 * time.Second

// Setup builds the calculation setup used for every run: default
// allocation, no costs, no regionalization, no normalization set, and the
// functional unit of the product system (amount and unit omitted).
func Setup(systemID, methodID string, set *olca.ParameterRedefSet) olca.CalculationSetup {
	setup := olca.CalculationSetup{
		Target:              &olca.Ref{Type: olca.TypeProductSystem, ID: systemID},
		ImpactMethod:        &olca.Ref{Type: olca.TypeImpactMethod, ID: methodID},
		Allocation:          olca.UseDefaultAllocation,
		WithCosts:           false,
		WithRegionalization: false,
	}
	if set != nil {
		setup.Parameters = set.Parameters
	}
	return setup
}

// Run schedules a calculation of the product system with the parameter set.
func Run(ctx context.Context, c Client, systemID, methodID string, set *olca.ParameterRedefSet) (*olca.ResultState, error) {
	state, err := c.Calculate(ctx, Setup(systemID, methodID, set))
	if err != nil {
		return nil, fmt.Errorf("calculating product system %s: %w", systemID, err)
	}
	logging.FromContext(ctx).Debug().
		Str("component", "analysis").
		Str("result_id", state.ID).
		Str("product_system", systemID).
		Str("impact_method", methodID).
		Msg("calculation scheduled")
	return state, nil
}

// RunAndCollect runs a calculation, waits for it, reads the total impacts
// and disposes the result, also when waiting or reading fails.
func RunAndCollect(ctx context.Context, c Client, systemID, methodID string, set *olca.ParameterRedefSet) (*ImpactTable, error) {
	log := logging.FromContext(ctx)
	start := time.Now()

	state, err := Run(ctx, c, systemID, methodID, set)
	if err != nil {
		return nil, err
	}
	defer func() {
		dctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), disposeTimeout)
		defer cancel()
		if err := c.Dispose(dctx, state.ID); err != nil {
			log.Warn().Err(err).Str("result_id", state.ID).Msg("disposing result failed")
		}
	}()

	if _, err := c.WaitUntilReady(ctx, state.ID); err != nil {
		return nil, err
	}
	values, err := c.TotalImpacts(ctx, state.ID)
	if err != nil {
		return nil, fmt.Errorf("reading total impacts: %w", err)
	}

	table := NewImpactTable(values)
	log.Info().
		Str("component", "analysis").
		Str("result_id", state.ID).
		Int("impacts", len(table.Rows)).
		Dur("duration", time.Since(start)).
		Msg("calculation finished")
	return table, nil
}
