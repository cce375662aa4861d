// Package main is the entry point for rewardgate, the interactive process
// that owns the usage ledger. It runs the Bubble Tea dashboard by default or
// a headless reconciliation loop with --headless.
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"
	"go.uber.org/multierr"
	"golang.org/x/sync/errgroup"

	"github.com/j-veylop/rewardgate/internal/app"
	"github.com/j-veylop/rewardgate/internal/config"
	"github.com/j-veylop/rewardgate/internal/logger"
	"github.com/j-veylop/rewardgate/internal/metrics"
	"github.com/j-veylop/rewardgate/internal/services"
	"github.com/j-veylop/rewardgate/internal/ui/tabs/diagnostics"
	"github.com/j-veylop/rewardgate/internal/ui/tabs/history"
	"github.com/j-veylop/rewardgate/internal/ui/tabs/today"
	"github.com/j-veylop/rewardgate/internal/version"
)

type options struct {
	headless   bool
	resetToday bool
}

func main() {
	if err := newRootCommand().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func newRootCommand() *cobra.Command {
	opts := &options{}

	cmd := &cobra.Command{
		Use:   "rewardgate",
		Short: "Screen-time ledger and reward gate",
		Long: `rewardgate keeps the authoritative usage ledger. It credits threshold
fires relayed by usagemonitor, reconciles against the helper's counters and
unlocks rewards once today's learning goal is met.

Keyboard shortcuts (dashboard):
  1-3             Switch between tabs (Today, History, Diagnostics)
  Tab/Shift+Tab   Navigate between tabs
  j/k, Up/Down    Select entity
  r               Sync now
  X               Reset today's counters
  ?               Toggle help
  q, Ctrl+C       Quit`,
		Version:       version.Info("rewardgate"),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return run(cmd.Context(), opts, cmd.ErrOrStderr())
		},
	}
	cmd.SetVersionTemplate("{{.Version}}\n")

	cmd.Flags().BoolVar(&opts.headless, "headless", false, "run reconciliation without the dashboard")
	cmd.Flags().BoolVar(&opts.resetToday, "reset-today", false, "zero today's counters for every entity and exit")

	return cmd
}

func run(ctx context.Context, opts *options, stderr io.Writer) (err error) {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}

	// The dashboard owns the terminal, so logs go to a file next to the ledger.
	logOut := stderr
	if !opts.headless && !opts.resetToday {
		f, ferr := os.OpenFile(filepath.Join(filepath.Dir(cfg.DatabasePath), "rewardgate.log"),
			os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o600)
		if ferr != nil {
			return fmt.Errorf("failed to open log file: %w", ferr)
		}
		defer func() { err = multierr.Append(err, f.Close()) }()
		logOut = f
	}
	logger.Configure(logOut, cfg.LogLevel, cfg.LogFormat)

	mgr, err := services.NewManager(cfg)
	if err != nil {
		return fmt.Errorf("failed to initialize services: %w", err)
	}
	defer func() { err = multierr.Append(err, mgr.Close()) }()

	if opts.resetToday {
		if err := mgr.ResetToday(); err != nil {
			return fmt.Errorf("failed to reset today's counters: %w", err)
		}
		logger.Info("daily counters reset")
		return nil
	}

	if ctx == nil {
		ctx = context.Background()
	}
	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error { return mgr.Run(ctx) })

	if cfg.MetricsAddr != "" {
		g.Go(func() error { return metrics.Serve(ctx, cfg.MetricsAddr, mgr.Registry()) })
	}

	if opts.headless {
		logger.Info("running headless", "database", cfg.DatabasePath)
		if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
			return err
		}
		return nil
	}

	model := app.NewModel(mgr)
	state := model.GetState()
	model.SetTabs([]app.Tab{
		today.New(state),
		history.New(state, mgr),
		diagnostics.New(state, cfg),
	})

	ctx, quit := context.WithCancel(ctx)
	defer quit()

	p := tea.NewProgram(model, tea.WithAltScreen(), tea.WithContext(ctx))

	g.Go(func() error {
		// Quitting the dashboard stops the other loops.
		defer quit()
		_, err := p.Run()
		if errors.Is(err, tea.ErrProgramKilled) {
			return nil
		}
		return err
	})

	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		return fmt.Errorf("error running TUI: %w", err)
	}
	return nil
}
