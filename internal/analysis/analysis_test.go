package analysis_test

import (
	"context"
	"encoding/json"
	"math"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rshade/lcaprommis/internal/analysis"
	"github.com/rshade/lcaprommis/internal/olca"
	"github.com/rshade/lcaprommis/internal/olca/olcatest"
)

func seed(t *testing.T) (*olcatest.Server, *olca.Client) {
	t.Helper()
	srv := olcatest.NewServer(t)
	srv.Add(olca.TypeProcess, olca.Process{
		Type: olca.TypeProcess, ID: "proc-1", Name: "Hydrogen production",
		Category: "PrOMMiS", ProcessType: olca.UnitProcess,
		Location: &olca.Ref{ID: "loc-us", Name: "United States"},
		Exchanges: []olca.Exchange{
			{
				InternalID: 1, IsQuantitativeReference: true, Amount: 1, AmountFormula: "p1",
				Flow: &olca.Ref{Type: olca.TypeFlow, ID: "f-h2", Name: "Hydrogen", FlowType: olca.ProductFlow},
				Unit: &olca.Ref{ID: "u-kg", Name: "kg"},
			},
			{InternalID: 2, Amount: 50, AmountFormula: "p2", IsInput: true, Flow: &olca.Ref{ID: "f-elec"}},
		},
		Parameters: []olca.Parameter{
			{Name: "p1", Description: "Reference parameter for Hydrogen", Value: 1, IsInputParameter: true},
			{Name: "p2", Description: "Reference parameter for Electricity", Value: 50, IsInputParameter: true},
		},
	})
	srv.Add(olca.TypeProcess, olca.Process{Type: olca.TypeProcess, ID: "proc-noref", Name: "broken"})

	raw := json.RawMessage(`{
		"@type": "ProductSystem", "@id": "ps-1", "name": "H2 system",
		"refProcess": {"@type": "Process", "@id": "proc-1"},
		"processes": [{"@type": "Process", "@id": "proc-1"}, {"@type": "Process", "@id": "proc-grid"}],
		"processLinks": [{"provider": {"@id": "proc-grid"}, "process": {"@id": "proc-1"}, "exchange": {"internalId": 2}}],
		"parameterSets": [{"name": "Scenario A", "isBaseline": true, "parameters": []}]
	}`)
	srv.Add(olca.TypeProductSystem, raw)
	return srv, srv.Client(t)
}

func storedSystem(t *testing.T, srv *olcatest.Server) (olca.ProductSystem, map[string]any) {
	t.Helper()
	var ps olca.ProductSystem
	require.True(t, srv.Stored(olca.TypeProductSystem, "ps-1", &ps))
	var raw map[string]any
	require.True(t, srv.Stored(olca.TypeProductSystem, "ps-1", &raw))
	return ps, raw
}

func TestCreateParameterSet(t *testing.T) {
	srv, c := seed(t)
	ctx := context.Background()

	set, err := analysis.CreateParameterSet(ctx, c, "proc-1", "ps-1", "Baseline", "from flowsheet", true)
	require.NoError(t, err)
	require.Len(t, set.Parameters, 2)

	redef := set.Parameters[1]
	assert.Equal(t, "p2", redef.Name)
	assert.InDelta(t, 50.0, redef.Value, 1e-12)
	assert.Equal(t, "Reference parameter for Electricity", redef.Description)
	require.NotNil(t, redef.Context)
	assert.Equal(t, olca.TypeProcess, redef.Context.Type)
	assert.Equal(t, "proc-1", redef.Context.ID)
	assert.Equal(t, "PrOMMiS", redef.Context.Category)
	assert.Equal(t, olca.ProductFlow, redef.Context.FlowType)
	assert.Equal(t, "kg", redef.Context.RefUnit)
	assert.Equal(t, "United States", redef.Context.Location)
	assert.Equal(t, olca.UnitProcess, redef.Context.ProcessType)

	ps, raw := storedSystem(t, srv)
	require.Len(t, ps.ParameterSets, 2)
	assert.False(t, ps.ParameterSet("Scenario A").IsBaseline)
	assert.True(t, ps.ParameterSet("Baseline").IsBaseline)
	assert.Len(t, raw["processes"], 2)
	assert.Len(t, raw["processLinks"], 1)
}

func TestCreateParameterSet_ReplacesSameName(t *testing.T) {
	srv, c := seed(t)
	ctx := context.Background()

	_, err := analysis.CreateParameterSet(ctx, c, "proc-1", "ps-1", "Baseline", "first", false)
	require.NoError(t, err)
	_, err = analysis.CreateParameterSet(ctx, c, "proc-1", "ps-1", "Baseline", "second", false)
	require.NoError(t, err)

	ps, _ := storedSystem(t, srv)
	require.Len(t, ps.ParameterSets, 2)
	assert.Equal(t, "second", ps.ParameterSet("Baseline").Description)
	assert.True(t, ps.ParameterSet("Scenario A").IsBaseline)
}

func TestCreateParameterSet_Errors(t *testing.T) {
	_, c := seed(t)
	ctx := context.Background()

	_, err := analysis.CreateParameterSet(ctx, c, "proc-noref", "ps-1", "Baseline", "", false)
	require.ErrorIs(t, err, analysis.ErrNoQuantitativeReference)

	_, err = analysis.CreateParameterSet(ctx, c, "proc-1", "ps-missing", "Baseline", "", false)
	require.ErrorIs(t, err, olca.ErrNotFound)
}

func TestUpdateParameterSet_Reconciles(t *testing.T) {
	srv, c := seed(t)
	ctx := context.Background()
	_, err := analysis.CreateParameterSet(ctx, c, "proc-1", "ps-1", "Baseline", "", true)
	require.NoError(t, err)
	putsBefore := srv.Puts()

	set, rec, err := analysis.UpdateParameterSet(ctx, c, "ps-1", "Baseline", map[string]float64{
		"p2": 62.5,
		"p9": 3,
	})
	require.NoError(t, err)
	assert.Equal(t, putsBefore+1, srv.Puts())

	require.Len(t, rec.Updated, 1)
	assert.Equal(t, analysis.Change{Name: "p2", Old: 50, New: 62.5}, rec.Updated[0])
	assert.Equal(t, []string{"p1"}, rec.Missing)
	assert.Equal(t, []string{"p9"}, rec.Unknown)
	assert.InDelta(t, 62.5, set.Parameters[1].Value, 1e-12)

	ps, raw := storedSystem(t, srv)
	assert.InDelta(t, 62.5, ps.ParameterSet("Baseline").Parameters[1].Value, 1e-12)
	assert.InDelta(t, 1.0, ps.ParameterSet("Baseline").Parameters[0].Value, 1e-12)
	assert.Len(t, raw["processLinks"], 1)

	_, rec, err = analysis.UpdateParameterSet(ctx, c, "ps-1", "Baseline", map[string]float64{"p1": 1, "p2": 62.5})
	require.NoError(t, err)
	assert.Empty(t, rec.Updated)
	assert.Equal(t, []string{"p1", "p2"}, rec.Unchanged)
	assert.Equal(t, putsBefore+1, srv.Puts())
}

func TestUpdateParameterSet_Errors(t *testing.T) {
	srv, c := seed(t)
	ctx := context.Background()

	_, _, err := analysis.UpdateParameterSet(ctx, c, "ps-1", "Nope", map[string]float64{"p1": 1})
	require.ErrorIs(t, err, analysis.ErrParameterSetNotFound)

	puts := srv.Puts()
	_, _, err = analysis.UpdateParameterSet(ctx, c, "ps-1", "Scenario A", map[string]float64{"p1": math.Inf(1)})
	require.ErrorIs(t, err, analysis.ErrInvalidValue)
	assert.Equal(t, puts, srv.Puts())
}

func TestRun_Setup(t *testing.T) {
	srv, c := seed(t)
	set := &olca.ParameterRedefSet{Name: "Baseline", Parameters: []olca.ParameterRedef{{Name: "p1", Value: 2}}}

	state, err := analysis.Run(context.Background(), c, "ps-1", "method-1", set)
	require.NoError(t, err)
	assert.Equal(t, "result-1", state.ID)

	setups := srv.Setups()
	require.Len(t, setups, 1)
	s := setups[0]
	assert.Equal(t, "ps-1", s.Target.ID)
	assert.Equal(t, olca.TypeProductSystem, s.Target.Type)
	assert.Equal(t, "method-1", s.ImpactMethod.ID)
	assert.Equal(t, olca.UseDefaultAllocation, s.Allocation)
	assert.False(t, s.WithCosts)
	assert.False(t, s.WithRegionalization)
	assert.Nil(t, s.NwSet)
	assert.Nil(t, s.Amount)
	assert.Nil(t, s.Unit)
	require.Len(t, s.Parameters, 1)
	assert.InDelta(t, 2.0, s.Parameters[0].Value, 1e-12)
}

func TestRunAndCollect(t *testing.T) {
	srv, c := seed(t)
	srv.ReadyAfter = 3
	srv.SetImpacts([]olca.ImpactValue{
		{ImpactCategory: &olca.Ref{ID: "ic-gwp", Name: "Climate change", RefUnit: "kg CO2 eq"}, Amount: 1250},
		{ImpactCategory: &olca.Ref{ID: "ic-acid", Name: "Acidification", RefUnit: "mol H+ eq"}, Amount: 0.8},
	})

	table, err := analysis.RunAndCollect(context.Background(), c, "ps-1", "method-1", nil)
	require.NoError(t, err)
	require.Len(t, table.Rows, 2)

	gwp := table.Rows[0]
	assert.Equal(t, "Climate change", gwp.Name)
	assert.Equal(t, "kg CO2 eq", gwp.Units)
	require.NotNil(t, gwp.Equivalency)
	assert.Contains(t, gwp.Equivalency.DisplayText, "miles")
	assert.Nil(t, table.Rows[1].Equivalency)

	assert.Equal(t, map[string]float64{"Climate change": 1250, "Acidification": 0.8}, table.ByName())
	assert.Contains(t, srv.Calls(), "result/dispose")
}

func TestRunAndCollect_Failures(t *testing.T) {
	t.Run("calculation error", func(t *testing.T) {
		srv, c := seed(t)
		srv.CalcError = "matrix is singular"
		_, err := analysis.RunAndCollect(context.Background(), c, "ps-1", "m", nil)
		require.ErrorIs(t, err, olca.ErrCalculationFailed)
		assert.NotContains(t, srv.Calls(), "result/dispose")
	})

	t.Run("timeout still disposes", func(t *testing.T) {
		srv, c := seed(t)
		srv.ReadyAfter = math.MaxInt
		ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
		defer cancel()
		_, err := analysis.RunAndCollect(ctx, c, "ps-1", "m", nil)
		require.ErrorIs(t, err, context.DeadlineExceeded)
		assert.Contains(t, srv.Calls(), "result/dispose")
	})
}

func TestImpactTable_WriteCSV(t *testing.T) {
	table := analysis.NewImpactTable([]olca.ImpactValue{
		{ImpactCategory: &olca.Ref{ID: "ic-1", Name: "Climate change, fossil", RefUnit: "kg CO2 eq"}, Amount: 12.5},
		{Amount: 3},
	})
	dir := filepath.Join(t.TempDir(), "nested", "output")

	path, err := table.WriteCSV(dir)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, analysis.ImpactsFileName), path)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "amount,name,units,uuid\n12.5,\"Climate change, fossil\",kg CO2 eq,ic-1\n3,,,\n", string(data))
}
