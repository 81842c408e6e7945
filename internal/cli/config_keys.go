package cli

import (
	"fmt"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/rshade/lcaprommis/internal/config"
)

// NewConfigGetCmd creates the config get command.
func NewConfigGetCmd() *cobra.Command {
	return &cobra.Command{
		Use:     "get <key>",
		Short:   "Print one configuration value",
		Example: `  lcaprommis config get openlca.endpoint`,
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			v, err := activeConfig().Get(args[0])
			if err != nil {
				return err
			}
			cmd.Println(v)
			return nil
		},
	}
}

// NewConfigSetCmd creates the config set command. It edits the project
// config when a project directory is resolved and the global one otherwise.
func NewConfigSetCmd() *cobra.Command {
	var global bool

	cmd := &cobra.Command{
		Use:   "set <key> <value>",
		Short: "Set a configuration value",
		Long: `Sets a value by its dotted key and saves the file. Values are parsed as YAML,
so lists are written as [a, b] and durations as 30s.`,
		Example: `  lcaprommis config set analysis.product_system 7d3f...
  lcaprommis config set openlca.timeout 2m
  lcaprommis config set model.variables "[feed_rate, temperature]"`,
		Args: cobra.ExactArgs(2), //nolint:mnd // key and value.
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := config.Default()
			if dir := config.GetResolvedProjectDir(); dir != "" && !global {
				cfg.SetConfigPath(filepath.Join(dir, "config.yaml"))
			}
			if err := cfg.Load(); err != nil && !isNotExist(err) {
				return err
			}
			if err := cfg.Set(args[0], args[1]); err != nil {
				return err
			}
			if err := cfg.Validate(); err != nil {
				return err
			}
			if err := cfg.Save(); err != nil {
				return err
			}
			cmd.Printf("Set %s = %s in %s\n", args[0], args[1], cfg.ConfigPath())
			return nil
		},
	}

	cmd.Flags().BoolVar(&global, "global", false, "edit the global configuration even inside a project")
	return cmd
}

// NewConfigListCmd creates the config list command.
func NewConfigListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List the effective configuration",
		RunE: func(cmd *cobra.Command, _ []string) error {
			lines, err := activeConfig().List()
			if err != nil {
				return err
			}
			for _, l := range lines {
				cmd.Println(l)
			}
			return nil
		},
	}
}

// NewConfigValidateCmd creates the config validate command.
func NewConfigValidateCmd() *cobra.Command {
	var check bool
	cmd := &cobra.Command{
		Use:     "validate",
		Short:   "Validate the effective configuration",
		Example: `  lcaprommis config validate --check`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg := activeConfig()
			if err := cfg.Validate(); err != nil {
				return err
			}
			cmd.Println("Configuration is valid")
			if !check {
				return nil
			}
			client, err := newClient(cmd, cfg)
			if err != nil {
				return err
			}
			if err := client.Ping(cmd.Context()); err != nil {
				return fmt.Errorf("openLCA IPC server at %s: %w", client.Endpoint(), err)
			}
			cmd.Printf("openLCA IPC server at %s is reachable\n", client.Endpoint())
			return nil
		},
	}
	cmd.Flags().BoolVar(&check, "check", false, "also check that the openLCA IPC server answers")
	return cmd
}
