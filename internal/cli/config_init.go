package cli

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/rshade/lcaprommis/internal/config"
)

// NewConfigInitCmd creates the config init command for initializing configuration.
// Inside a project (a resolved .lcaprommis directory) it writes the project
// config and a .gitignore; otherwise, or with --global, the global
// ~/.lcaprommis/config.yaml.
func NewConfigInitCmd() *cobra.Command {
	var (
		force  bool
		global bool
	)

	cmd := &cobra.Command{
		Use:   "init",
		Short: "Initialize configuration file with default values",
		Long: `Creates a new configuration file with default values.

When a project directory is set (--project-dir, LCAPROMMIS_PROJECT_DIR or a
.lcaprommis directory above the working directory), creates
$PROJECT/.lcaprommis/config.yaml with a .gitignore for cache and output files.
Use --global to initialize the global configuration instead.`,
		Example: `  # Create project-local configuration
  lcaprommis config init --project-dir .

  # Create global configuration
  lcaprommis config init --global

  # Create configuration, overwriting existing
  lcaprommis config init --force`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			projectDir := config.GetResolvedProjectDir()

			if projectDir != "" && !global {
				return initProjectConfig(cmd, projectDir, force)
			}

			return initGlobalConfig(cmd, force)
		},
	}

	cmd.Flags().BoolVar(&force, "force", false, "overwrite existing configuration file")
	cmd.Flags().BoolVar(&global, "global", false, "initialize the global configuration even inside a project")

	return cmd
}

// checkWritable fails when path exists and force isn't set.
func checkWritable(path string, force bool) error {
	if force {
		return nil
	}
	_, err := os.Stat(path)
	if err == nil {
		return errors.New("configuration file already exists, use --force to overwrite")
	}
	if !os.IsNotExist(err) {
		return fmt.Errorf("cannot access config path %s: %w", path, err)
	}
	return nil
}

// initProjectConfig creates project-local config at projectDir/config.yaml with .gitignore.
func initProjectConfig(cmd *cobra.Command, projectDir string, force bool) error {
	configPath := filepath.Join(projectDir, "config.yaml")
	if err := checkWritable(configPath, force); err != nil {
		return err
	}

	if err := os.MkdirAll(projectDir, 0o750); err != nil {
		return fmt.Errorf("failed to create project config directory: %w", err)
	}

	cfg := config.Default()
	cfg.SetConfigPath(configPath)
	if err := cfg.Save(); err != nil {
		return fmt.Errorf("failed to save configuration: %w", err)
	}

	// Never overwrites an existing .gitignore.
	created, err := config.EnsureGitignore(projectDir)
	if err != nil {
		return fmt.Errorf("failed to create .gitignore: %w", err)
	}

	cmd.Printf("Configuration initialized at %s\n", configPath)
	if created {
		cmd.Printf("Created .gitignore for cache and output files\n")
	}

	return nil
}

// initGlobalConfig creates global config at ~/.lcaprommis/config.yaml.
func initGlobalConfig(cmd *cobra.Command, force bool) error {
	cfg := config.Default()
	if err := checkWritable(cfg.ConfigPath(), force); err != nil {
		return err
	}

	if err := cfg.Save(); err != nil {
		return fmt.Errorf("failed to save configuration: %w", err)
	}

	cmd.Printf("Configuration initialized successfully\n")
	cmd.Printf("Configuration file: %s\n", cfg.ConfigPath())

	return nil
}
