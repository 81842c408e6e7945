package cli

import (
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/rshade/lcaprommis/internal/cache"
	"github.com/rshade/lcaprommis/internal/config"
	"github.com/rshade/lcaprommis/internal/olca"
)

// ErrMissingFlag indicates a required value was neither flagged nor configured.
var ErrMissingFlag = errors.New("missing required value")

// activeConfig returns the configuration loaded by the root command.
func activeConfig() *config.Config {
	return config.GetGlobalConfig()
}

// newClient builds an IPC client from config and the --endpoint flag.
func newClient(cmd *cobra.Command, cfg *config.Config) (*olca.Client, error) {
	endpoint := cfg.OpenLCA.Endpoint
	if flag, _ := cmd.Flags().GetString("endpoint"); flag != "" {
		endpoint = flag
	}
	var opts []olca.Option
	if cfg.OpenLCA.Timeout > 0 {
		opts = append(opts, olca.WithTimeout(cfg.OpenLCA.Timeout))
	}
	if cfg.OpenLCA.PollInterval > 0 {
		opts = append(opts, olca.WithPollInterval(cfg.OpenLCA.PollInterval))
	}
	client, err := olca.NewClient(endpoint, opts...)
	if err != nil {
		return nil, fmt.Errorf("creating openLCA client: %w", err)
	}
	return client, nil
}

// openCache opens the file cache, or returns nil when caching is disabled
// or the directory cannot be used.
func openCache(cfg *config.Config) *cache.FileStore {
	if !cfg.Cache.Enabled {
		return nil
	}
	store, err := cache.NewFileStore(cfg.Cache.Directory, true, cfg.Cache.TTLSeconds)
	if err != nil {
		logger.Warn().Err(err).Str("directory", cfg.Cache.Directory).Msg("cache disabled")
		return nil
	}
	return store
}

// orConfig returns flag when set and fallback otherwise; an empty result is
// reported as a missing value named after the flag.
func orConfig(flag, fallback, name string) (string, error) {
	if flag != "" {
		return flag, nil
	}
	if fallback != "" {
		return fallback, nil
	}
	return "", fmt.Errorf("%w: --%s", ErrMissingFlag, name)
}

// interactive reports whether prompts may be shown.
func interactive(cmd *cobra.Command) bool {
	if noInput, _ := cmd.Flags().GetBool("no-input"); noInput {
		return false
	}
	if cmd.InOrStdin() != os.Stdin {
		return false
	}
	return isTerminal(os.Stdin)
}

func isNotExist(err error) bool {
	return errors.Is(err, os.ErrNotExist)
}
