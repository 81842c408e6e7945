package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/rshade/lcaprommis/internal/olca"
	"github.com/rshade/lcaprommis/internal/provider"
)

const defaultSearchLimit = 20

// NewProvidersSearchCmd creates the providers search command.
func NewProvidersSearchCmd() *cobra.Command {
	var (
		flowType string
		unit     string
		limit    int
	)

	cmd := &cobra.Command{
		Use:   "search <keywords>...",
		Short: "Search product or waste flows and their providers",
		Example: `  lcaprommis providers search electricity medium voltage
  lcaprommis providers search --type waste --unit kg municipal solid waste`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ft, err := parseFlowType(flowType)
			if err != nil {
				return err
			}
			cfg := activeConfig()
			client, err := newClient(cmd, cfg)
			if err != nil {
				return err
			}
			idx, err := provider.BuildIndexCached(cmd.Context(), client, openCache(cfg))
			if err != nil {
				return err
			}

			keywords := strings.Join(args, " ")
			candidates := idx.Search(provider.Query{FlowName: keywords, Keywords: keywords, FlowType: ft, Unit: unit})
			if len(candidates) == 0 {
				cmd.Println("No matches.")
				return nil
			}
			shown := candidates
			if limit > 0 && len(shown) > limit {
				shown = shown[:limit]
			}
			for i, c := range shown {
				cmd.Printf("%3d) %-60s %s  %s\n", i+1, c.Label(), c.Flow.ID, c.Provider.ID)
			}
			if len(candidates) > len(shown) {
				cmd.Printf("... %d more\n", len(candidates)-len(shown))
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&flowType, "type", "product", "flow type: product or waste")
	cmd.Flags().StringVar(&unit, "unit", "", "only flows whose reference unit matches")
	cmd.Flags().IntVar(&limit, "limit", defaultSearchLimit, "maximum results (0 = all)")

	return cmd
}

func parseFlowType(s string) (olca.FlowType, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "product", "products", "product flows":
		return olca.ProductFlow, nil
	case "waste", "wastes", "waste flows":
		return olca.WasteFlow, nil
	default:
		return "", fmt.Errorf("unknown flow type %q: use product or waste", s)
	}
}
