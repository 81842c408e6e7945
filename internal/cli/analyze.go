package cli

import (
	"github.com/spf13/cobra"

	"github.com/rshade/lcaprommis/internal/analysis"
	"github.com/rshade/lcaprommis/internal/olca"
	"github.com/rshade/lcaprommis/internal/tui"
)

type analyzeParams struct {
	systemID string
	methodID string
	setName  string
	noSet    bool
	output   string
	tui      bool
	plain    bool
	noColor  bool
}

// NewAnalyzeCmd creates the analyze command.
func NewAnalyzeCmd() *cobra.Command {
	var p analyzeParams

	cmd := &cobra.Command{
		Use:   "analyze",
		Short: "Calculate a product system and report total impacts",
		Long: `Calculates the product system with the impact method and the named parameter
set, writes total_impacts.csv to the output directory and prints the results.
Climate change rows also show everyday equivalencies.`,
		Example: `  lcaprommis analyze --system <system-id> --method <method-id>

  # Browse the results interactively
  lcaprommis analyze --tui`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runAnalyze(cmd, p)
		},
	}

	cmd.Flags().StringVar(&p.systemID, "system", "", "product system ID (default from config)")
	cmd.Flags().StringVar(&p.methodID, "method", "", "impact method ID (default from config)")
	cmd.Flags().StringVar(&p.setName, "set", "", "parameter set name (default from config)")
	cmd.Flags().BoolVar(&p.noSet, "no-set", false, "calculate without a parameter set")
	cmd.Flags().StringVar(&p.output, "output-dir", "", "directory for total_impacts.csv (default from config)")
	cmd.Flags().BoolVar(&p.tui, "tui", false, "browse results interactively when stdout is a terminal")
	cmd.Flags().BoolVar(&p.plain, "plain", false, "plain text output")
	cmd.Flags().BoolVar(&p.noColor, "no-color", false, "disable colors")

	return cmd
}

func runAnalyze(cmd *cobra.Command, p analyzeParams) error {
	ctx := cmd.Context()
	cfg := activeConfig()

	system, err := orConfig(p.systemID, cfg.Analysis.ProductSystem, "system")
	if err != nil {
		return err
	}
	method, err := orConfig(p.methodID, cfg.Analysis.ImpactMethod, "method")
	if err != nil {
		return err
	}
	client, err := newClient(cmd, cfg)
	if err != nil {
		return err
	}

	var set *olca.ParameterRedefSet
	if !p.noSet {
		name := p.setName
		if name == "" {
			name = cfg.Analysis.ParameterSet
		}
		ps, err := client.GetProductSystem(ctx, system)
		if err != nil {
			return err
		}
		if set = ps.ParameterSet(name); set == nil {
			logger.Warn().Str("parameter_set", name).Msg("parameter set not found; calculating without it")
		}
	}

	table, err := analysis.RunAndCollect(ctx, client, system, method, set)
	if err != nil {
		return err
	}

	dir := p.output
	if dir == "" {
		dir = cfg.Analysis.OutputDir
	}
	path, err := table.WriteCSV(dir)
	if err != nil {
		return err
	}
	logger.Info().Str("path", path).Int("categories", len(table.Rows)).Msg("impacts written")

	mode := tui.DetectOutputMode(p.tui, p.noColor, p.plain)
	if p.tui && mode == tui.OutputModeInteractive {
		return tui.RunImpacts(ctx, system, table)
	}
	if mode == tui.OutputModeInteractive {
		mode = tui.OutputModeStyled
	}
	if err := tui.RenderImpacts(cmd.OutOrStdout(), mode, "Total impacts: "+system, table); err != nil {
		return err
	}
	cmd.Printf("\nResults: %s\n", path)
	return nil
}
