package cmd

import (
	"github.com/spf13/cobra"

	amerrors "github.com/Aman-CERP/amansearch/internal/errors"
	"github.com/Aman-CERP/amansearch/internal/output"
	"github.com/Aman-CERP/amansearch/internal/preflight"
)

func newDoctorCmd(g *globalOptions) *cobra.Command {
	var (
		verbose    bool
		jsonOutput bool
		offline    bool
	)

	cmd := &cobra.Command{
		Use:   "doctor",
		Short: "Check configuration and diagnose issues",
		Long: `Run diagnostics to ensure AmanSearch can serve searches.

Checks:
  - Configuration loads and validates
  - At least one search provider can be built
  - SearXNG and Ollama endpoints answer (skipped with --offline)
  - Embedding backend prerequisites
  - Log directory is writable
  - File descriptor limits

Only configuration and provider failures are critical.`,
		Example: `  amansearch doctor
  amansearch doctor --verbose
  amansearch doctor --json --offline`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			checker := preflight.New(
				preflight.WithOffline(offline),
				preflight.WithVerbose(verbose),
				preflight.WithOutput(cmd.OutOrStdout()),
			)
			results := checker.RunAll(cmd.Context(), g.dir)

			if jsonOutput {
				report := doctorReport{Status: checker.SummaryStatus(results), Checks: results}
				if err := output.New(cmd.OutOrStdout()).JSON(report); err != nil {
					return err
				}
			} else {
				checker.PrintResults(results)
			}

			if checker.HasCriticalFailures(results) {
				return amerrors.New(amerrors.ErrCodeConfigInvalid, "system check failed", nil).
					WithSuggestion("Fix the errors listed above and run 'amansearch doctor' again")
			}
			return nil
		},
	}

	cmd.Flags().BoolVarP(&verbose, "verbose", "v", false, "Show detailed diagnostic info")
	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Output as JSON")
	cmd.Flags().BoolVar(&offline, "offline", false, "Skip network reachability probes")

	return cmd
}

// doctorReport is the JSON form of a doctor run.
type doctorReport struct {
	Status string                  `json:"status"`
	Checks []preflight.CheckResult `json:"checks"`
}
