// ABOUTME: HTTP server subcommand with the scheduled background sync
// ABOUTME: Runs until interrupted, then stops the scheduler and drains the server
package cli

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/harperreed/deskhand/sync"
	"github.com/harperreed/deskhand/web"
)

const shutdownTimeout = 10 * time.Second

func newServeCommand(st *state) *cobra.Command {
	var addr string
	var noSync bool

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the HTTP API and scheduled sync",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := st.open(cmd)
			if err != nil {
				return err
			}
			if addr == "" {
				addr = st.cfg.HTTPAddr
			}

			if !noSync {
				sched, err := sync.NewScheduler(st.cfg.SyncSchedule, a.Engine(), []uuid.UUID{st.userID},
					st.log.With().Str("component", "scheduler").Logger())
				if err != nil {
					return err
				}
				sched.Start()
				defer func() {
					ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
					defer cancel()
					sched.Stop(ctx)
				}()
				st.log.Info().Str("schedule", st.cfg.SyncSchedule).Msg("scheduled sync started")
			}

			return web.NewServer(a, st.log.With().Str("component", "web").Logger()).
				ListenAndServe(cmd.Context(), addr)
		},
	}
	cmd.Flags().StringVar(&addr, "addr", "", "listen address (default HTTP_ADDR)")
	cmd.Flags().BoolVar(&noSync, "no-sync", false, "do not run the sync schedule")
	return cmd
}
