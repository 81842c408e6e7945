package cli

import (
	"fmt"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/rshade/lcaprommis/internal/analysis"
	"github.com/rshade/lcaprommis/internal/flowtable"
)

// NewParamsetCreateCmd creates the paramset create command.
func NewParamsetCreateCmd() *cobra.Command {
	var (
		processID   string
		systemID    string
		name        string
		description string
		baseline    bool
	)

	cmd := &cobra.Command{
		Use:   "create",
		Short: "Create a parameter set redefining every process parameter",
		Long: `Creates a parameter set on a product system that redefines every parameter
of the process at its current value. A set with the same name is replaced.`,
		Example: `  lcaprommis paramset create --process <process-id> --system <system-id>
  lcaprommis paramset create --process <id> --system <id> --name "High yield" --baseline=false`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg := activeConfig()
			system, err := orConfig(systemID, cfg.Analysis.ProductSystem, "system")
			if err != nil {
				return err
			}
			if name == "" {
				name = cfg.Analysis.ParameterSet
			}
			client, err := newClient(cmd, cfg)
			if err != nil {
				return err
			}
			set, err := analysis.CreateParameterSet(cmd.Context(), client, processID, system, name, description, baseline)
			if err != nil {
				return err
			}
			cmd.Printf("Parameter set %q on %s redefines %d parameters\n", set.Name, system, len(set.Parameters))
			return nil
		},
	}

	cmd.Flags().StringVar(&processID, "process", "", "process ID (required)")
	cmd.Flags().StringVar(&systemID, "system", "", "product system ID (default from config)")
	cmd.Flags().StringVar(&name, "name", "", "parameter set name (default from config)")
	cmd.Flags().StringVar(&description, "description", "", "parameter set description")
	cmd.Flags().BoolVar(&baseline, "baseline", true, "mark the set as the baseline")
	_ = cmd.MarkFlagRequired("process")

	return cmd
}

// NewParamsetUpdateCmd creates the paramset update command.
func NewParamsetUpdateCmd() *cobra.Command {
	var (
		systemID string
		name     string
		params   string
	)

	cmd := &cobra.Command{
		Use:   "update",
		Short: "Update a parameter set from a parameter table",
		Long: `Sets the value of every redefinition of the named parameter set that appears
in the parameter table and stores the product system when anything changed.
Redefinitions missing from the table keep their value; names the set does not
redefine are reported.`,
		Example: `  lcaprommis paramset update --system <system-id> --params output/parameters.csv`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg := activeConfig()
			system, err := orConfig(systemID, cfg.Analysis.ProductSystem, "system")
			if err != nil {
				return err
			}
			if name == "" {
				name = cfg.Analysis.ParameterSet
			}
			if params == "" {
				params = filepath.Join(cfg.Analysis.OutputDir, ParametersFileName)
			}
			pt, err := flowtable.LoadParameterTable(params)
			if err != nil {
				return err
			}
			values, err := pt.Values()
			if err != nil {
				return err
			}
			client, err := newClient(cmd, cfg)
			if err != nil {
				return err
			}
			_, rec, err := analysis.UpdateParameterSet(cmd.Context(), client, system, name, values)
			if err != nil {
				return err
			}
			printReconciliation(cmd, name, rec)
			return nil
		},
	}

	cmd.Flags().StringVar(&systemID, "system", "", "product system ID (default from config)")
	cmd.Flags().StringVar(&name, "name", "", "parameter set name (default from config)")
	cmd.Flags().StringVar(&params, "params", "", "parameter table CSV (default <output_dir>/parameters.csv)")

	return cmd
}

func printReconciliation(cmd *cobra.Command, name string, rec *analysis.Reconciliation) {
	cmd.Printf("Parameter set %q: %d updated, %d unchanged, %d missing, %d unknown\n",
		name, len(rec.Updated), len(rec.Unchanged), len(rec.Missing), len(rec.Unknown))
	for _, c := range rec.Updated {
		cmd.Printf("  %s: %s -> %s\n", c.Name, fmtValue(c.Old), fmtValue(c.New))
	}
	for _, n := range rec.Unknown {
		cmd.Printf("  not in set: %s\n", n)
	}
}

func fmtValue(v float64) string {
	return fmt.Sprintf("%g", v)
}
