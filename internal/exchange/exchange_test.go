package exchange_test

import (
	"context"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rshade/lcaprommis/internal/exchange"
	"github.com/rshade/lcaprommis/internal/olca"
	"github.com/rshade/lcaprommis/internal/olca/olcatest"
	"github.com/rshade/lcaprommis/internal/units"
)

func setup(t *testing.T) (*olcatest.Server, *exchange.Builder) {
	t.Helper()
	srv := olcatest.NewServer(t)

	srv.Add(olca.TypeUnitGroup, olca.UnitGroup{
		Type: olca.TypeUnitGroup, ID: "ug-mass", Name: "Units of mass",
		DefaultFlowProperty: &olca.Ref{ID: "fp-mass", Name: "Mass"},
		Units: []olca.Unit{
			{ID: "u-kg", Name: "kg", IsRefUnit: true, ConversionFactor: 1},
			{ID: "u-g", Name: "g", ConversionFactor: 0.001},
		},
	})
	srv.Add(olca.TypeUnitGroup, olca.UnitGroup{
		Type: olca.TypeUnitGroup, ID: "ug-energy", Name: "Units of energy",
		DefaultFlowProperty: &olca.Ref{ID: "fp-energy", Name: "Energy"},
		Units:               []olca.Unit{{ID: "u-mj", Name: "MJ", IsRefUnit: true, ConversionFactor: 1}},
	})
	srv.Add(olca.TypeFlowProperty, olca.FlowProperty{
		Type: olca.TypeFlowProperty, ID: "fp-mass", Name: "Mass", UnitGroup: &olca.Ref{ID: "ug-mass"},
	})
	srv.Add(olca.TypeFlowProperty, olca.FlowProperty{
		Type: olca.TypeFlowProperty, ID: "fp-energy", Name: "Energy", UnitGroup: &olca.Ref{ID: "ug-energy"},
	})

	srv.Add(olca.TypeFlow, olca.Flow{Type: olca.TypeFlow, ID: "f-co2", Name: "Carbon dioxide", FlowType: olca.ElementaryFlow})
	srv.Add(olca.TypeFlow, olca.Flow{Type: olca.TypeFlow, ID: "f-elec", Name: "Electricity", FlowType: olca.ProductFlow})
	srv.Add(olca.TypeFlow, olca.Flow{Type: olca.TypeFlow, ID: "f-ww", Name: "Wastewater", FlowType: olca.WasteFlow})

	client := srv.Client(t)
	idx, err := units.Load(context.Background(), client)
	require.NoError(t, err)

	return srv, exchange.NewBuilder(client, idx, exchange.WithIDFunc(func() string { return "new-flow-id" }))
}

func TestElementary(t *testing.T) {
	_, b := setup(t)
	ctx := context.Background()

	ex, err := b.Elementary(ctx, exchange.Input{FlowID: "f-co2", Amount: 2.5, Unit: "KG", Formula: "p1"})
	require.NoError(t, err)
	assert.Equal(t, "f-co2", ex.Flow.ID)
	assert.Equal(t, "u-kg", ex.Unit.ID)
	assert.Equal(t, "fp-mass", ex.FlowProperty.ID)
	assert.InDelta(t, 2.5, ex.Amount, 1e-12)
	assert.Equal(t, "p1", ex.AmountFormula)
	assert.False(t, ex.IsInput)
	assert.False(t, ex.IsQuantitativeReference)
	assert.Nil(t, ex.DefaultProvider)
}

func TestElementary_Errors(t *testing.T) {
	_, b := setup(t)
	ctx := context.Background()

	tests := []struct {
		name    string
		in      exchange.Input
		wantErr error
	}{
		{"missing flow", exchange.Input{FlowID: "f-nope", Unit: "kg"}, exchange.ErrFlowNotFound},
		{"empty id", exchange.Input{Unit: "kg"}, exchange.ErrFlowNotFound},
		{"product flow", exchange.Input{FlowID: "f-elec", Unit: "MJ"}, exchange.ErrWrongFlowType},
		{"unknown unit", exchange.Input{FlowID: "f-co2", Unit: "furlong"}, units.ErrUnknownUnit},
		{"nan amount", exchange.Input{FlowID: "f-co2", Unit: "kg", Amount: math.NaN()}, exchange.ErrInvalidAmount},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := b.Elementary(ctx, tt.in)
			require.ErrorIs(t, err, tt.wantErr)
		})
	}
}

func TestProductOrWaste(t *testing.T) {
	_, b := setup(t)
	ctx := context.Background()

	ex, err := b.ProductOrWaste(ctx, exchange.Input{FlowID: "f-elec", ProviderID: "proc-grid", Amount: 40, Unit: "MJ", IsInput: true})
	require.NoError(t, err)
	require.NotNil(t, ex.DefaultProvider)
	assert.Equal(t, olca.TypeProcess, ex.DefaultProvider.Type)
	assert.Equal(t, "proc-grid", ex.DefaultProvider.ID)
	assert.True(t, ex.IsInput)
	assert.Equal(t, "fp-energy", ex.FlowProperty.ID)

	ww, err := b.ProductOrWaste(ctx, exchange.Input{FlowID: "f-ww", Amount: 1, Unit: "kg"})
	require.NoError(t, err)
	assert.Nil(t, ww.DefaultProvider)

	_, err = b.ProductOrWaste(ctx, exchange.Input{FlowID: "f-co2", Unit: "kg"})
	require.ErrorIs(t, err, exchange.ErrWrongFlowType)
}

func TestReferenceExisting(t *testing.T) {
	_, b := setup(t)

	ex, err := b.ReferenceExisting(context.Background(), exchange.Input{FlowID: "f-elec", Amount: 1, Unit: "MJ", IsInput: true})
	require.NoError(t, err)
	assert.True(t, ex.IsQuantitativeReference)
	assert.False(t, ex.IsInput)
	assert.Equal(t, "Electricity", ex.Flow.Name)
}

func TestReferenceNew_CreatesProductFlow(t *testing.T) {
	srv, b := setup(t)

	ex, err := b.ReferenceNew(context.Background(), exchange.Input{FlowName: "Hydrogen", Amount: 1.5, Unit: "g", Formula: "p1"})
	require.NoError(t, err)
	assert.Equal(t, "new-flow-id", ex.Flow.ID)
	assert.Equal(t, "Hydrogen", ex.Flow.Name)
	assert.True(t, ex.IsQuantitativeReference)
	assert.Equal(t, "u-g", ex.Unit.ID)
	assert.Equal(t, "fp-mass", ex.FlowProperty.ID)

	var stored olca.Flow
	require.True(t, srv.Stored(olca.TypeFlow, "new-flow-id", &stored))
	assert.Equal(t, olca.ProductFlow, stored.FlowType)
	assert.Equal(t, "Product flow for Hydrogen", stored.Description)
	require.Len(t, stored.FlowProperties, 1)
	assert.True(t, stored.FlowProperties[0].IsRefFlowProperty)
	assert.InDelta(t, 1.0, stored.FlowProperties[0].ConversionFactor, 1e-12)
	assert.Equal(t, "fp-mass", stored.FlowProperties[0].FlowProperty.ID)
}

func TestReferenceNew_UnknownUnitStoresNothing(t *testing.T) {
	srv, b := setup(t)
	before := srv.Count(olca.TypeFlow)

	_, err := b.ReferenceNew(context.Background(), exchange.Input{FlowName: "Hydrogen", Unit: "bushel"})
	require.ErrorIs(t, err, units.ErrUnknownUnit)
	assert.Equal(t, before, srv.Count(olca.TypeFlow))

	_, err = b.ReferenceNew(context.Background(), exchange.Input{Unit: "kg"})
	require.Error(t, err)
}
