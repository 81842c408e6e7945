package cli

import (
	"errors"
	"fmt"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/rshade/lcaprommis/internal/config"
	"github.com/rshade/lcaprommis/internal/flowsheet"
	"github.com/rshade/lcaprommis/internal/flowtable"
	"github.com/rshade/lcaprommis/internal/sweep"
)

type sweepParams struct {
	params    string
	table     string
	systemID  string
	methodID  string
	setName   string
	vars      []string
	mins      []string
	maxs      []string
	dists     []string
	samples   int
	seed      uint64
	batchSize int
	failFast  bool
	output    string
}

// NewSweepCmd creates the sweep command.
func NewSweepCmd() *cobra.Command {
	var p sweepParams

	cmd := &cobra.Command{
		Use:   "sweep",
		Short: "Sample decision variables through the process model and openLCA",
		Long: `Builds a flowsheet in which the process model feeds the LCA calculation,
draws samples of the decision variables and evaluates each one: the model is
run, its flow amounts are pushed into the parameter set and the product system
is calculated. Results are written to sweep_results.csv.

Decision variables start at the --var value with bounds of half and twice that
value; --min, --max and --dist adjust them. The process model is the
configured model command, or a fixed flow table with --table.`,
		Example: `  lcaprommis sweep --var feed_rate=10 --var temperature=350 --samples 50
  lcaprommis sweep --var feed_rate=10 --dist feed_rate=triangle --max feed_rate=15 --seed 7`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runSweep(cmd, &p)
		},
	}

	cmd.Flags().StringVar(&p.params, "params", "", "parameter table CSV (default <output_dir>/parameters.csv)")
	cmd.Flags().StringVar(&p.table, "table", "", "use a fixed flow table instead of the model command")
	cmd.Flags().StringVar(&p.systemID, "system", "", "product system ID (default from config)")
	cmd.Flags().StringVar(&p.methodID, "method", "", "impact method ID (default from config)")
	cmd.Flags().StringVar(&p.setName, "set", "", "parameter set name (default from config)")
	cmd.Flags().StringArrayVar(&p.vars, "var", nil, "decision variable and initial value, name=value (repeatable)")
	cmd.Flags().StringArrayVar(&p.mins, "min", nil, "lower bound, name=value (repeatable)")
	cmd.Flags().StringArrayVar(&p.maxs, "max", nil, "upper bound, name=value (repeatable)")
	cmd.Flags().StringArrayVar(&p.dists, "dist", nil,
		"distribution, name=uniform|normal|lognormal|triangle (repeatable)")
	cmd.Flags().IntVar(&p.samples, "samples", 0, "number of samples (default from config)")
	cmd.Flags().Uint64Var(&p.seed, "seed", 0, "random seed (default from config)")
	cmd.Flags().IntVar(&p.batchSize, "batch-size", 0, "samples per progress report (default from config)")
	cmd.Flags().BoolVar(&p.failFast, "fail-fast", false, "stop at the first failed sample")
	cmd.Flags().StringVar(&p.output, "output-dir", "", "directory for sweep_results.csv (default from config)")

	return cmd
}

func runSweep(cmd *cobra.Command, p *sweepParams) error {
	ctx := cmd.Context()
	cfg := activeConfig()
	applySweepDefaults(cmd, cfg, p)

	initial, names, err := parseAssignments(p.vars)
	if err != nil {
		return fmt.Errorf("--var: %w", err)
	}
	if len(names) == 0 {
		return fmt.Errorf("%w: at least one --var", ErrMissingFlag)
	}

	session, err := buildSweepSession(cmd, cfg, p, names)
	if err != nil {
		return err
	}
	for _, n := range names {
		if err := session.AddDecisionVariable(ctx, flowsheet.NodeVar{Name: n}); err != nil {
			return err
		}
	}
	session.InitializeDecisionVariables(initial)
	if err := applyBounds(session, p); err != nil {
		return err
	}

	vars := session.DecisionVariables()
	samples, err := sweep.Draw(vars, p.samples, p.seed)
	if err != nil {
		return err
	}

	res, runErr := sweep.Run(ctx, session, names, samples, sweep.Options{
		BatchSize: p.batchSize,
		FailFast:  p.failFast,
		OnProgress: func(s sweep.Snapshot) {
			_, _ = fmt.Fprintf(cmd.ErrOrStderr(), "  %d/%d samples (%.0f%%), %d failed, ~%s left\n",
				s.Processed, s.Total, s.PercentComplete, s.Failed, s.Remaining.Round(time.Second))
		},
	})
	if res == nil {
		return runErr
	}

	path, err := res.WriteCSV(p.output)
	if err != nil {
		return errors.Join(runErr, err)
	}
	cmd.Printf("Sweep %s: %d samples, %d failed\n", res.RunID, len(res.Outcomes), res.Failed())
	cmd.Printf("Results: %s\n", path)
	return runErr
}

func applySweepDefaults(cmd *cobra.Command, cfg *config.Config, p *sweepParams) {
	if p.samples <= 0 {
		p.samples = cfg.Sweep.Samples
	}
	if !cmd.Flags().Changed("seed") {
		p.seed = cfg.Sweep.Seed
	}
	if p.batchSize <= 0 {
		p.batchSize = cfg.Sweep.BatchSize
	}
	if !cmd.Flags().Changed("fail-fast") {
		p.failFast = cfg.Sweep.FailFast
	}
	if p.output == "" {
		p.output = cfg.Analysis.OutputDir
	}
	if p.params == "" {
		p.params = filepath.Join(cfg.Analysis.OutputDir, ParametersFileName)
	}
	if p.setName == "" {
		p.setName = cfg.Analysis.ParameterSet
	}
}

func buildSweepSession(cmd *cobra.Command, cfg *config.Config, p *sweepParams, names []string) (*flowsheet.Session, error) {
	system, err := orConfig(p.systemID, cfg.Analysis.ProductSystem, "system")
	if err != nil {
		return nil, err
	}
	method, err := orConfig(p.methodID, cfg.Analysis.ImpactMethod, "method")
	if err != nil {
		return nil, err
	}
	params, err := flowtable.LoadParameterTable(p.params)
	if err != nil {
		return nil, err
	}

	var model flowsheet.ProcessModel
	switch {
	case p.table != "":
		table, err := flowtable.Load(p.table)
		if err != nil {
			return nil, err
		}
		model = flowsheet.TableModel{Table: table}
	case cfg.Model.Command != "":
		model = flowsheet.ExecModel{Path: cfg.Model.Command, Args: cfg.Model.Args, Dir: cfg.Model.Dir}
	default:
		return nil, fmt.Errorf("%w: model.command in config or --table", ErrMissingFlag)
	}

	known := cfg.Model.Variables
	if len(known) == 0 {
		known = names
	}

	client, err := newClient(cmd, cfg)
	if err != nil {
		return nil, err
	}
	return flowsheet.NewLCAFlowsheet(flowsheet.FlowsheetConfig{
		Name:  system,
		Model: model,
		Known: known,
		LCA: flowsheet.LCAConfig{
			Client:     client,
			SystemID:   system,
			MethodID:   method,
			SetName:    p.setName,
			Parameters: params,
		},
	})
}

func applyBounds(s *flowsheet.Session, p *sweepParams) error {
	mins, _, err := parseAssignments(p.mins)
	if err != nil {
		return fmt.Errorf("--min: %w", err)
	}
	maxs, _, err := parseAssignments(p.maxs)
	if err != nil {
		return fmt.Errorf("--max: %w", err)
	}
	for n, v := range mins {
		if err := s.SetMin(n, v); err != nil {
			return err
		}
	}
	for n, v := range maxs {
		if err := s.SetMax(n, v); err != nil {
			return err
		}
	}
	for _, d := range p.dists {
		name, dist, ok := strings.Cut(d, "=")
		if !ok {
			return fmt.Errorf("--dist %q: want name=distribution", d)
		}
		if err := s.SetDistribution(strings.TrimSpace(name), dist); err != nil {
			return err
		}
	}
	return nil
}

// parseAssignments reads name=value pairs and returns the values and the
// names in flag order.
func parseAssignments(pairs []string) (map[string]float64, []string, error) {
	values := make(map[string]float64, len(pairs))
	var names []string
	for _, pair := range pairs {
		name, raw, ok := strings.Cut(pair, "=")
		name = strings.TrimSpace(name)
		if !ok || name == "" {
			return nil, nil, fmt.Errorf("%q: want name=value", pair)
		}
		v, err := strconv.ParseFloat(strings.TrimSpace(raw), 64)
		if err != nil {
			return nil, nil, fmt.Errorf("%q: %w", pair, err)
		}
		if _, dup := values[name]; !dup {
			names = append(names, name)
		}
		values[name] = v
	}
	return values, names, nil
}
