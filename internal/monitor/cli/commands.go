package cli

import (
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/spf13/cobra"

	"github.com/j-veylop/rewardgate/internal/monitor"
	"github.com/j-veylop/rewardgate/internal/services/snapshot"
)

func newStartCommand(opts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "start",
		Short: "Record a monitoring activation",
		Long: `Marks the start of a monitoring session. Fires reported within the
phantom window that follows are ignored by rewardgate.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withHelper(opts, cmd, func(h *monitor.Helper) error {
				id, err := h.Start()
				if err != nil {
					return err
				}
				out := formatter{format: opts.Format, w: cmd.OutOrStdout()}
				return out.emit(map[string]string{"activation_id": id}, func(w io.Writer) {
					fmt.Fprintf(w, "monitoring started (%s)\n", id)
				})
			})
		},
	}
}

func newFireCommand(opts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "fire <watchpoint-id>",
		Short: "Report a watchpoint crossing",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withHelper(opts, cmd, func(h *monitor.Helper) error {
				res, err := h.Fire(args[0])
				if errors.Is(err, monitor.ErrUnknownWatchpoint) {
					return WrapExitError(ExitFailure, "fire not recorded", err)
				}
				if err != nil {
					return err
				}

				out := formatter{format: opts.Format, w: cmd.OutOrStdout()}
				data := map[string]any{
					"watchpoint": res.Watchpoint.ID,
					"entity":     res.Watchpoint.EntityID,
					"minute":     res.Watchpoint.Minute,
					"seq":        res.Seq,
					"today":      res.Today,
					"delta":      res.Delta,
					"signaled":   res.Signaled,
				}
				return out.emit(data, func(w io.Writer) {
					fmt.Fprintf(w, "%s minute %d: today=%ds (+%ds) seq=%d\n",
						res.Watchpoint.EntityID, res.Watchpoint.Minute, res.Today, res.Delta, res.Seq)
				})
			})
		},
	}
}

func newReportCommand(opts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "report",
		Short: "Write today's counters as a usage report",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withHelper(opts, cmd, func(h *monitor.Helper) error {
				report, err := h.Report()
				if err != nil {
					return err
				}
				out := formatter{format: opts.Format, w: cmd.OutOrStdout()}
				return out.emit(report, func(w io.Writer) {
					printReport(w, report)
				})
			})
		},
	}
}

func printReport(w io.Writer, report snapshot.ReportFile) {
	fmt.Fprintf(w, "report at %s: %d entries\n", report.GeneratedAt.Format(time.RFC3339), len(report.Entries))
	for _, e := range report.Entries {
		fmt.Fprintf(w, "  %-24s %6ds\n", e.EntityID, e.TodaySeconds)
	}
}

func newStatusCommand(opts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show counters and schedule size",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withHelper(opts, cmd, func(h *monitor.Helper) error {
				st, err := h.Status()
				if err != nil {
					return err
				}
				out := formatter{format: opts.Format, w: cmd.OutOrStdout()}
				return out.emit(st, func(w io.Writer) {
					printStatus(w, st)
				})
			})
		},
	}
}

func printStatus(w io.Writer, st monitor.Status) {
	activated := "never"
	if !st.ActivatedAt.IsZero() {
		activated = st.ActivatedAt.Format(time.RFC3339)
	}
	fmt.Fprintf(w, "activated:     %s\n", activated)
	fmt.Fprintf(w, "watchpoints:   %d\n", st.Watchpoints)
	fmt.Fprintf(w, "fires:         %d\n", st.FireSeq)
	fmt.Fprintf(w, "signals fired: %d\n", st.SignalsFired)
	fmt.Fprintf(w, "unknown fires: %d\n", st.UnknownFires)
	for _, c := range st.Counters {
		fmt.Fprintf(w, "  %-24s %s today=%ds total=%ds\n", c.EntityID, c.Day, c.TodaySeconds, c.TotalSeconds)
	}
}
