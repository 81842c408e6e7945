// Package cli implements the lcaprommis command tree.
package cli

import (
	"os"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/rshade/lcaprommis/internal/config"
	"github.com/rshade/lcaprommis/internal/logging"
)

// isTerminal checks if the given file is a terminal.
func isTerminal(f *os.File) bool {
	return term.IsTerminal(int(f.Fd()))
}

// logger is the package-level logger for CLI operations.
var logger zerolog.Logger //nolint:gochecknoglobals // Required for zerolog context integration

// NewRootCmd creates the root Cobra command for the lcaprommis CLI. It
// resolves the project directory, loads configuration, wires logging and
// tracing and adds the subcommands.
func NewRootCmd(ver string) *cobra.Command {
	var (
		logResult  *logging.LogPathResult
		projectDir string
	)

	cmd := &cobra.Command{
		Use:           "lcaprommis",
		Short:         "Life cycle assessment for process models via openLCA",
		Long:          "lcaprommis: build openLCA processes from flow tables and evaluate process models against LCA results",
		Version:       ver,
		Example:       rootCmdExample,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			wd, _ := os.Getwd()
			dir := config.ResolveProjectDir(cmd.Context(), projectDir, wd)
			config.SetResolvedProjectDir(dir)
			config.SetGlobalConfig(config.NewWithProjectDir(cmd.Context(), dir))

			result := setupLogging(cmd)
			logResult = &result
			return nil
		},
		PersistentPostRunE: func(cmd *cobra.Command, _ []string) error {
			return cleanupLogging(cmd, logResult)
		},
	}

	cmd.PersistentFlags().Bool("debug", false, "enable debug logging")
	cmd.PersistentFlags().StringVar(&projectDir, "project-dir", "",
		"project directory holding .lcaprommis/config.yaml (default: search upward from the working directory)")
	cmd.PersistentFlags().String("endpoint", "", "openLCA IPC endpoint (overrides config)")

	cmd.AddCommand(
		newProcessCmd(), newParamsetCmd(), NewAnalyzeCmd(), newProvidersCmd(),
		NewSweepCmd(), newCacheCmd(), newConfigCmd(),
	)
	return cmd
}

const rootCmdExample = `  # Create a unit process from a finalized flow table
  lcaprommis process create --table flows.csv --name "Biochar production"

  # Create the baseline parameter set on a product system
  lcaprommis paramset create --process <process-id> --system <system-id>

  # Push new values from a parameter table and calculate
  lcaprommis paramset update --system <system-id> --params output/parameters.csv
  lcaprommis analyze --system <system-id> --method <method-id> --tui

  # Sample decision variables through the process model
  lcaprommis sweep --params output/parameters.csv --var feed_rate=10 --samples 50

  # Initialize configuration
  lcaprommis config init`

// newProcessCmd creates the process command group.
func newProcessCmd() *cobra.Command {
	cmd := &cobra.Command{Use: "process", Short: "Process commands"}
	cmd.AddCommand(NewProcessCreateCmd())
	return cmd
}

// newParamsetCmd creates the parameter set command group.
func newParamsetCmd() *cobra.Command {
	cmd := &cobra.Command{Use: "paramset", Short: "Parameter set commands"}
	cmd.AddCommand(NewParamsetCreateCmd(), NewParamsetUpdateCmd())
	return cmd
}

// newProvidersCmd creates the providers command group.
func newProvidersCmd() *cobra.Command {
	cmd := &cobra.Command{Use: "providers", Short: "Product and waste flow provider commands"}
	cmd.AddCommand(NewProvidersSearchCmd())
	return cmd
}

// newCacheCmd creates the cache command group.
func newCacheCmd() *cobra.Command {
	cmd := &cobra.Command{Use: "cache", Short: "Cache management commands"}
	cmd.AddCommand(NewCacheClearCmd())
	return cmd
}

// newConfigCmd creates the config command group with configuration subcommands.
func newConfigCmd() *cobra.Command {
	cmd := &cobra.Command{Use: "config", Short: "Configuration management commands"}
	cmd.AddCommand(
		NewConfigInitCmd(), NewConfigSetCmd(), NewConfigGetCmd(),
		NewConfigListCmd(), NewConfigValidateCmd(),
	)
	return cmd
}
