// Package cli is the command line of the monitoring helper.
package cli

import (
	"fmt"

	"github.com/benbjohnson/clock"
	"github.com/spf13/cobra"

	"github.com/j-veylop/rewardgate/internal/config"
	"github.com/j-veylop/rewardgate/internal/logger"
	"github.com/j-veylop/rewardgate/internal/monitor"
	"github.com/j-veylop/rewardgate/internal/sharedstore"
)

// RootOptions holds global flags for all commands.
type RootOptions struct {
	Verbose bool
	Format  string // "json" | "text"

	// Clock overrides the wall clock; tests only.
	Clock clock.Clock
}

// ValidFormats defines the allowed output formats.
var ValidFormats = []string{"text", "json"}

// NewRootCommand creates the root command of the helper.
func NewRootCommand() *cobra.Command {
	return newRootCommand(&RootOptions{})
}

func newRootCommand(opts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "usagemonitor",
		Short: "Usage monitoring helper for rewardgate",
		Long: `Records watchpoint crossings into the shared counter store and signals
the rewardgate process. It never touches the usage ledger.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if !isValidFormat(opts.Format) {
				return NewExitError(ExitCommandError,
					fmt.Sprintf("invalid format %q: must be one of %v", opts.Format, ValidFormats))
			}
			return nil
		},
	}

	cmd.PersistentFlags().BoolVarP(&opts.Verbose, "verbose", "v", false, "verbose output")
	cmd.PersistentFlags().StringVar(&opts.Format, "format", "text", "output format (json|text)")

	cmd.AddCommand(newStartCommand(opts))
	cmd.AddCommand(newFireCommand(opts))
	cmd.AddCommand(newReportCommand(opts))
	cmd.AddCommand(newStatusCommand(opts))

	return cmd
}

// withHelper loads configuration, opens the shared store and runs fn with
// a helper bound to it.
func withHelper(opts *RootOptions, cmd *cobra.Command, fn func(h *monitor.Helper) error) (err error) {
	cfg, err := config.Load()
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to load config", err)
	}

	level := cfg.LogLevel
	if opts.Verbose {
		level = "debug"
	}
	logger.Configure(cmd.ErrOrStderr(), level, cfg.LogFormat)

	store, err := sharedstore.OpenSQLite(cfg.SharedStorePath)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to open shared store", err)
	}
	defer func() {
		if cerr := store.Close(); cerr != nil && err == nil {
			err = cerr
		}
	}()

	h := monitor.New(store, monitor.Options{
		SignalPath:    cfg.SignalPath,
		ReportPath:    cfg.ReportPath,
		PhantomWindow: cfg.PhantomWindow,
		Clock:         opts.Clock,
	})
	return fn(h)
}

func isValidFormat(format string) bool {
	for _, f := range ValidFormats {
		if f == format {
			return true
		}
	}
	return false
}
