package cli_test

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/rshade/lcaprommis/internal/cli"
	"github.com/rshade/lcaprommis/internal/config"
	"github.com/rshade/lcaprommis/internal/olca"
	"github.com/rshade/lcaprommis/internal/olca/olcatest"
)

const flowTable = `Flow_Name,Source,Category,LCA_Amount,LCA_Unit,Is_Input,Reference_Product,Flow_Type,UUID
Hydrogen,plant,,1,kg,False,True,Product,
Carbon dioxide,stack,Elementary flows,9.5,kg,False,False,Elementary,f-co2
Electricity,grid,Technosphere flows,50,MJ,True,False,Product,
`

// setupCLI isolates config, cache, logs and the working directory.
func setupCLI(t *testing.T) string {
	t.Helper()
	home := t.TempDir()
	t.Setenv("LCAPROMMIS_HOME", home)
	t.Setenv("LCAPROMMIS_LOG_LEVEL", "error")
	t.Setenv("LCAPROMMIS_LOG_FILE", "")
	t.Setenv("LCAPROMMIS_CACHE_DIR", filepath.Join(home, "cache"))
	for _, k := range []string{
		"LCAPROMMIS_OLCA_ENDPOINT", "LCAPROMMIS_PROJECT_DIR", "LCAPROMMIS_LOG_FORMAT",
		"LCAPROMMIS_PRODUCT_SYSTEM", "LCAPROMMIS_IMPACT_METHOD", "LCAPROMMIS_OUTPUT_DIR",
		"LCAPROMMIS_CACHE_ENABLED", "LCAPROMMIS_CACHE_TTL_SECONDS",
	} {
		t.Setenv(k, "")
	}
	t.Chdir(t.TempDir())
	t.Cleanup(func() {
		config.ResetGlobalConfigForTest()
		config.SetResolvedProjectDir("")
	})
	return home
}

// execute runs the root command with args and returns everything it printed.
func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var buf bytes.Buffer
	cmd := cli.NewRootCmd("test")
	cmd.SetOut(&buf)
	cmd.SetErr(&buf)
	cmd.SetIn(strings.NewReader(""))
	cmd.SetArgs(args)
	err := cmd.Execute()
	return buf.String(), err
}

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

// seedDatabase stores units, flows, providers, a process and a product
// system with a Baseline set.
func seedDatabase(srv *olcatest.Server) {
	srv.Add(olca.TypeUnitGroup, olca.UnitGroup{
		Type: olca.TypeUnitGroup, ID: "ug-mass", Name: "Units of mass",
		DefaultFlowProperty: &olca.Ref{ID: "fp-mass", Name: "Mass"},
		Units:               []olca.Unit{{ID: "u-kg", Name: "kg", IsRefUnit: true, ConversionFactor: 1}},
	})
	srv.Add(olca.TypeUnitGroup, olca.UnitGroup{
		Type: olca.TypeUnitGroup, ID: "ug-energy", Name: "Units of energy",
		DefaultFlowProperty: &olca.Ref{ID: "fp-energy", Name: "Energy"},
		Units:               []olca.Unit{{ID: "u-mj", Name: "MJ", IsRefUnit: true, ConversionFactor: 1}},
	})
	srv.Add(olca.TypeFlowProperty, olca.FlowProperty{Type: olca.TypeFlowProperty, ID: "fp-mass", Name: "Mass", UnitGroup: &olca.Ref{ID: "ug-mass"}})
	srv.Add(olca.TypeFlowProperty, olca.FlowProperty{Type: olca.TypeFlowProperty, ID: "fp-energy", Name: "Energy", UnitGroup: &olca.Ref{ID: "ug-energy"}})

	srv.Add(olca.TypeFlow, olca.Flow{Type: olca.TypeFlow, ID: "f-co2", Name: "Carbon dioxide", FlowType: olca.ElementaryFlow})
	srv.Add(olca.TypeFlow, olca.Flow{Type: olca.TypeFlow, ID: "f-elec", Name: "Electricity, medium voltage", FlowType: olca.ProductFlow})
	srv.AddProvider(olca.Ref{Type: olca.TypeProcess, ID: "p-grid", Name: "market for electricity"}, olca.Ref{ID: "f-elec"})

	srv.Add(olca.TypeProcess, olca.Process{
		Type: olca.TypeProcess, ID: "proc-1", Name: "Hydrogen production", ProcessType: olca.UnitProcess,
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
	srv.Add(olca.TypeProductSystem, json.RawMessage(`{
		"@type": "ProductSystem", "@id": "ps-1", "name": "H2 system",
		"refProcess": {"@type": "Process", "@id": "proc-1"},
		"parameterSets": [{"name": "Baseline", "isBaseline": true, "parameters": [
			{"name": "p1", "value": 1, "context": {"@type": "Process", "@id": "proc-1"}},
			{"name": "p2", "value": 50, "context": {"@type": "Process", "@id": "proc-1"}}
		]}]
	}`))
	srv.SetImpacts([]olca.ImpactValue{
		{ImpactCategory: &olca.Ref{ID: "ic-gwp", Name: "Climate change", RefUnit: "kg CO2 eq"}, Amount: 12.5},
		{ImpactCategory: &olca.Ref{ID: "ic-ap", Name: "Acidification", RefUnit: "mol H+ eq"}, Amount: 0.03},
	})
}
