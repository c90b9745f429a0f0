// ABOUTME: Sync CLI commands
// ABOUTME: Runs cache syncs on demand, shows per-capability status and previews the schedule
package cli

import (
	"fmt"
	"io"
	"time"

	"github.com/spf13/cobra"

	"github.com/harperreed/deskhand/models"
	"github.com/harperreed/deskhand/provider"
	"github.com/harperreed/deskhand/sync"
)

func newSyncCommand(st *state) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "sync",
		Short: "Sync the local cache with your providers",
	}
	cmd.AddCommand(newSyncRunCommand(st), newSyncStatusCommand(st), newSyncScheduleCommand(st))
	return cmd
}

func newSyncRunCommand(st *state) *cobra.Command {
	var full bool

	cmd := &cobra.Command{
		Use:   "run [capability]",
		Short: "Sync one capability, or all of them",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := st.open(cmd)
			if err != nil {
				return err
			}
			ctx := cmd.Context()

			caps := sync.Synced()
			if len(args) == 1 {
				c, err := models.ParseCapability(args[0])
				if err != nil {
					return err
				}
				if _, ok := sync.StrategyFor(c); !ok {
					return fmt.Errorf("%s is not synced to the cache", c)
				}
				caps = []models.Capability{c}
			}

			if full {
				for _, c := range caps {
					if err := a.Store().ClearSyncCursor(ctx, st.userID, c); err != nil {
						return err
					}
				}
			}

			out := cmd.OutOrStdout()
			_, _ = fmt.Fprintln(out, titleStyle.Render("Syncing..."))

			var report sync.Report
			if len(args) == 1 {
				report = sync.Report{UserID: st.userID, Results: []sync.Result{a.Engine().RunSingle(ctx, st.userID, caps[0])}}
			} else {
				report = a.Engine().RunAll(ctx, st.userID)
			}
			printReport(out, report)

			if failed := report.Failed(); len(failed) > 0 {
				return fmt.Errorf("%d of %d capabilities failed to sync", len(failed), len(report.Results))
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&full, "full", false, "discard stored cursors and do a full pass")
	return cmd
}

func printReport(w io.Writer, report sync.Report) {
	for _, res := range report.Results {
		if res.OK() {
			_, _ = fmt.Fprintf(w, "  %s %-9s %s  %d written, %d unchanged, %d deleted  %s\n",
				check(true), res.Capability, dimStyle.Render(res.Strategy),
				res.Stats.Written, res.Stats.Unchanged, res.Stats.Deleted,
				dimStyle.Render(res.Duration.Round(time.Millisecond).String()))
			continue
		}
		_, _ = fmt.Fprintf(w, "  %s %-9s %s\n", check(false), res.Capability, failStyle.Render(res.Error))
		if provider.IsAuthExpired(res.Err) {
			_, _ = fmt.Fprintf(w, "    → run 'deskhand auth google' to reconnect\n")
		}
	}
}

func newSyncStatusCommand(st *state) *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show the last sync result per capability",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := st.open(cmd)
			if err != nil {
				return err
			}
			statuses, err := a.Store().ListSyncStatus(cmd.Context(), st.userID)
			if err != nil {
				return err
			}

			byCap := make(map[models.Capability]models.SyncStatus, len(statuses))
			for _, s := range statuses {
				byCap[s.Capability] = s
			}

			var rows [][]string
			for _, c := range sync.Synced() {
				s, ok := byCap[c]
				switch {
				case !ok:
					rows = append(rows, []string{string(c), "never", dimStyle.Render("-")})
				case s.OK():
					rows = append(rows, []string{string(c), formatTime(s.LastSync), check(true)})
				default:
					rows = append(rows, []string{string(c), formatTime(s.LastSync), check(false) + " " + *s.Error})
				}
			}
			_, _ = fmt.Fprint(cmd.OutOrStdout(), table([]string{"CAPABILITY", "LAST SYNC", "STATUS"}, rows))
			return nil
		},
	}
}

func formatTime(t *time.Time) string {
	if t == nil {
		return "never"
	}
	return t.Local().Format("2006-01-02 15:04:05")
}

func newSyncScheduleCommand(st *state) *cobra.Command {
	var count int

	cmd := &cobra.Command{
		Use:   "schedule",
		Short: "Preview the next scheduled sync runs",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := st.load(cmd); err != nil {
				return err
			}
			sched, err := sync.ParseSchedule(st.cfg.SyncSchedule)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			_, _ = fmt.Fprintf(out, "%s %s\n", titleStyle.Render("Schedule:"), st.cfg.SyncSchedule)
			next := time.Now()
			for i := 0; i < count; i++ {
				next = sched.Next(next)
				_, _ = fmt.Fprintf(out, "  → %s\n", next.Format(time.RFC1123))
			}
			return nil
		},
	}
	cmd.Flags().IntVarP(&count, "count", "n", 5, "number of upcoming runs to show")
	return cmd
}
