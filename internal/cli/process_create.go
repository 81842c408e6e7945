package cli

import (
	"fmt"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/rshade/lcaprommis/internal/config"
	"github.com/rshade/lcaprommis/internal/flowtable"
	"github.com/rshade/lcaprommis/internal/process"
	"github.com/rshade/lcaprommis/internal/provider"
	"github.com/rshade/lcaprommis/internal/units"
)

// ParametersFileName is the parameter table process create writes.
const ParametersFileName = "parameters.csv"

type processCreateParams struct {
	table        string
	name         string
	description  string
	version      string
	newReference bool
	output       string
	noInput      bool
}

// NewProcessCreateCmd creates the process create command.
func NewProcessCreateCmd() *cobra.Command {
	var p processCreateParams

	cmd := &cobra.Command{
		Use:   "create",
		Short: "Create a unit process from a finalized flow table",
		Long: `Creates an openLCA unit process from a finalized flow table CSV.

Every row becomes a process parameter (p1, p2, ...) and an exchange whose
amount formula is that parameter. The parameter table is written to the output
directory so later runs can redefine the parameters.

Product and waste flow rows are matched against the database. Configured
provider pins are used first; in a terminal the remaining rows prompt for a
choice, otherwise the best match is taken.`,
		Example: `  # Create a process interactively
  lcaprommis process create --table flows.csv --name "Biochar production"

  # Non-interactive, always creating a new reference flow
  lcaprommis process create --table flows.csv --name Biochar --new-reference --no-input`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runProcessCreate(cmd, p)
		},
	}

	cmd.Flags().StringVar(&p.table, "table", "", "finalized flow table CSV (required)")
	cmd.Flags().StringVar(&p.name, "name", "", "process name (required)")
	cmd.Flags().StringVar(&p.description, "description", "", "process description")
	cmd.Flags().StringVar(&p.version, "version", "", "process version (default from config)")
	cmd.Flags().BoolVar(&p.newReference, "new-reference", false,
		"create a new reference flow even when the reference row has a UUID")
	cmd.Flags().StringVar(&p.output, "output", "", "parameter table path (default <output_dir>/parameters.csv)")
	cmd.Flags().BoolVar(&p.noInput, "no-input", false, "never prompt")
	_ = cmd.MarkFlagRequired("table")
	_ = cmd.MarkFlagRequired("name")

	return cmd
}

func runProcessCreate(cmd *cobra.Command, p processCreateParams) error {
	ctx := cmd.Context()
	cfg := activeConfig()

	table, err := flowtable.Load(p.table)
	if err != nil {
		return err
	}
	client, err := newClient(cmd, cfg)
	if err != nil {
		return err
	}
	store := openCache(cfg)

	idx, err := units.LoadCached(ctx, client, client.Endpoint(), store)
	if err != nil {
		return fmt.Errorf("loading units: %w", err)
	}
	providers, err := provider.BuildIndexCached(ctx, client, store)
	if err != nil {
		return fmt.Errorf("building provider index: %w", err)
	}

	version := p.version
	if version == "" {
		version = cfg.Process.Version
	}
	b := &process.Builder{
		Client:       client,
		Units:        idx,
		Providers:    providers,
		Cache:        store,
		Selector:     newSelector(cmd, cfg, providers),
		Prompter:     process.FailPrompter{},
		NewReference: p.newReference,
		Version:      version,
	}
	if interactive(cmd) {
		b.Prompter = &process.TerminalPrompter{In: cmd.InOrStdin(), Out: cmd.OutOrStdout()}
	}

	res, err := b.Create(ctx, table, p.name, p.description)
	if err != nil {
		return err
	}

	out := p.output
	if out == "" {
		out = filepath.Join(cfg.Analysis.OutputDir, ParametersFileName)
	}
	if err := res.Parameters.Save(out); err != nil {
		return err
	}

	cmd.Printf("Created process %q (%s) with %d exchanges\n", res.Process.Name, res.Process.ID, res.Exchanges)
	for _, s := range res.Skipped {
		cmd.Printf("  skipped: %s\n", s)
	}
	cmd.Printf("Parameter table: %s\n", out)
	return nil
}

// newSelector answers from configured pins, then prompts in a terminal or
// takes the best match otherwise.
func newSelector(cmd *cobra.Command, cfg *config.Config, idx *provider.Index) provider.Selector {
	chain := provider.ChainSelector{provider.PinnedSelector{Index: idx, Pins: cfg.Providers.Pins}}
	if interactive(cmd) {
		return append(chain, &provider.PromptSelector{In: cmd.InOrStdin(), Out: cmd.OutOrStdout()})
	}
	return append(chain, provider.FirstSelector{})
}
