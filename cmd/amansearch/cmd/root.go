// Package cmd provides the CLI commands for AmanSearch.
package cmd

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	amerrors "github.com/Aman-CERP/amansearch/internal/errors"
	"github.com/Aman-CERP/amansearch/internal/logging"
	"github.com/Aman-CERP/amansearch/internal/profiling"
	"github.com/Aman-CERP/amansearch/pkg/version"
)

// globalOptions holds the persistent flags shared by every command.
type globalOptions struct {
	dir          string
	debug        bool
	profileCPU   string
	profileMem   string
	profileTrace string

	profile *profiling.Session
}

// annotationOwnLogging marks commands that install their own logger.
const annotationOwnLogging = "own-logging"

// NewRootCmd creates the root command for the amansearch CLI.
func NewRootCmd() *cobra.Command {
	opts := &globalOptions{}

	cmd := &cobra.Command{
		Use:   "amansearch",
		Short: "Multi-engine web search for AI assistants",
		Long: `AmanSearch fans a query out to several web search engines in parallel,
deduplicates and ranks what comes back, optionally fetches full page content,
and summarizes the result set.

Use 'amansearch search' from a terminal, or 'amansearch serve' to expose the
same pipeline to MCP clients over stdio.`,
		Version:       version.Version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	cmd.SetVersionTemplate("amansearch version {{.Version}}\n")

	cmd.PersistentFlags().StringVarP(&opts.dir, "dir", "C", ".", "Project directory whose .amansearch.yaml applies")
	cmd.PersistentFlags().BoolVar(&opts.debug, "debug", false, "Enable debug logging to stderr")
	cmd.PersistentFlags().StringVar(&opts.profileCPU, "profile-cpu", "", "Write CPU profile to file")
	cmd.PersistentFlags().StringVar(&opts.profileMem, "profile-mem", "", "Write memory profile to file")
	cmd.PersistentFlags().StringVar(&opts.profileTrace, "profile-trace", "", "Write execution trace to file")

	cmd.PersistentPreRunE = func(cmd *cobra.Command, _ []string) error {
		return opts.start(cmd)
	}
	cmd.PersistentPostRunE = func(_ *cobra.Command, _ []string) error {
		return opts.stop()
	}

	cmd.AddCommand(newSearchCmd(opts))
	cmd.AddCommand(newServeCmd(opts))
	cmd.AddCommand(newProvidersCmd(opts))
	cmd.AddCommand(newConfigCmd(opts))
	cmd.AddCommand(newDoctorCmd(opts))
	cmd.AddCommand(newLogsCmd(opts))
	cmd.AddCommand(newVersionCmd())

	return cmd
}

// start installs CLI logging and begins any requested profiling.
func (o *globalOptions) start(cmd *cobra.Command) error {
	if cmd.Annotations[annotationOwnLogging] == "" {
		level := "warn"
		if o.debug {
			level = "debug"
		}
		logging.SetupCLI(level)
	}

	popts := profiling.Options{CPUPath: o.profileCPU, HeapPath: o.profileMem, TracePath: o.profileTrace}
	if !popts.Enabled() {
		return nil
	}
	s, err := profiling.Start(popts)
	if err != nil {
		return err
	}
	o.profile = s
	slog.Debug("profiling_started",
		slog.String("cpu", o.profileCPU),
		slog.String("mem", o.profileMem),
		slog.String("trace", o.profileTrace))
	return nil
}

// stop flushes profiles. Cobra skips it when the command fails.
func (o *globalOptions) stop() error {
	if o.profile == nil {
		return nil
	}
	err := o.profile.Stop()
	o.profile = nil
	return err
}

// Execute runs the root command with signal-aware cancellation and prints
// errors in the CLI format.
func Execute() error {
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	root := NewRootCmd()
	err := root.ExecuteContext(ctx)
	if err != nil {
		fmt.Fprint(os.Stderr, amerrors.FormatForCLI(err))
	}
	return err
}
