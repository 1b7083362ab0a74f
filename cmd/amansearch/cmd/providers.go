package cmd

import (
	"github.com/spf13/cobra"

	"github.com/Aman-CERP/amansearch/internal/config"
	"github.com/Aman-CERP/amansearch/internal/output"
	"github.com/Aman-CERP/amansearch/pkg/searcher"
)

func newProvidersCmd(g *globalOptions) *cobra.Command {
	var jsonOutput bool

	cmd := &cobra.Command{
		Use:   "providers",
		Short: "List search engines and routing",
		Long: `Providers shows which engines are configured, why any are unavailable,
the circuit breaker state of each, and which engines each mode routes to.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := config.Load(g.dir)
			if err != nil {
				return err
			}
			s, err := searcher.New(cmd.Context(), cfg)
			if err != nil {
				return err
			}
			defer func() { _ = s.Close() }()

			status := s.Status(cmd.Context())
			w := output.New(cmd.OutOrStdout())
			if jsonOutput {
				return w.JSON(status)
			}

			w.Providers(status.Providers)
			w.Newline()
			w.Routing(status.Routing)
			w.Newline()
			w.Statusf("", "Embeddings: %s", status.Embedder.Provider)
			if status.Cache.Enabled {
				w.Statusf("", "Cache: %d entries", status.Cache.Entries)
			} else {
				w.Status("", "Cache: disabled")
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Output status as JSON")
	return cmd
}
