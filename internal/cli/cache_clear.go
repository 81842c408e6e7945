package cli

import (
	"github.com/spf13/cobra"

	"github.com/rshade/lcaprommis/internal/cache"
)

// NewCacheClearCmd creates the cache clear command.
func NewCacheClearCmd() *cobra.Command {
	var expiredOnly bool

	cmd := &cobra.Command{
		Use:   "clear",
		Short: "Remove cached unit and provider indexes",
		Example: `  lcaprommis cache clear
  lcaprommis cache clear --expired`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg := activeConfig()
			store, err := cache.NewFileStore(cfg.Cache.Directory, true, cfg.Cache.TTLSeconds)
			if err != nil {
				return err
			}
			var n int
			if expiredOnly {
				n, err = store.CleanupExpired()
			} else {
				n, err = store.Clear()
			}
			if err != nil {
				return err
			}
			cmd.Printf("Removed %d cache entries from %s\n", n, store.Directory())
			return nil
		},
	}

	cmd.Flags().BoolVar(&expiredOnly, "expired", false, "only remove expired entries")
	return cmd
}
