// ABOUTME: Charm notes backend commands
// ABOUTME: Shows link state, forces a sync, edits the host config and wipes the local store
package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/harperreed/deskhand/charm"
)

func newCharmCommand(st *state) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "charm",
		Short: "Manage the Charm notes backend",
	}
	cmd.AddCommand(
		newCharmStatusCommand(st),
		newCharmSyncCommand(st),
		newCharmConfigCommand(),
		newCharmWipeCommand(st),
	)
	return cmd
}

func openCharm(cmd *cobra.Command, st *state) (*charm.Client, error) {
	a, err := st.open(cmd)
	if err != nil {
		return nil, err
	}
	c := a.CharmClient()
	if c == nil {
		return nil, fmt.Errorf("charm store is unavailable, see the log for details")
	}
	return c, nil
}

func newCharmStatusCommand(st *state) *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show the Charm link and note count",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := openCharm(cmd, st)
			if err != nil {
				return err
			}
			cfg := c.Config()
			out := cmd.OutOrStdout()

			_, _ = fmt.Fprintln(out, titleStyle.Render("Charm"))
			_, _ = fmt.Fprintf(out, "  Host:      %s\n", cfg.Host)
			_, _ = fmt.Fprintf(out, "  Auto-sync: %t\n", cfg.AutoSync)
			_, _ = fmt.Fprintf(out, "  Linked:    %s\n", check(c.IsConnected()))

			n, err := charm.NewProvider(c, st.userID).CountNotes()
			if err != nil {
				return err
			}
			_, _ = fmt.Fprintf(out, "  Notes:     %d\n", n)
			return nil
		},
	}
}

func newCharmSyncCommand(st *state) *cobra.Command {
	return &cobra.Command{
		Use:   "sync",
		Short: "Push and pull notes with the Charm server",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := openCharm(cmd, st)
			if err != nil {
				return err
			}
			if err := c.Sync(); err != nil {
				return fmt.Errorf("failed to sync charm store: %w", err)
			}
			_, _ = fmt.Fprintln(cmd.OutOrStdout(), "✓ Charm notes synced")
			return nil
		},
	}
}

func newCharmConfigCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "config <" + charm.SettingHost + "|" + charm.SettingAutoSync + "> <value>",
		Short: "Change the Charm server or auto-sync setting",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := charm.LoadConfig()
			if err != nil {
				return fmt.Errorf("failed to load charm config: %w", err)
			}
			if err := cfg.Set(args[0], args[1]); err != nil {
				return err
			}
			if err := cfg.Save(); err != nil {
				return fmt.Errorf("failed to save charm config: %w", err)
			}
			_, _ = fmt.Fprintf(cmd.OutOrStdout(), "✓ %s = %s\n", args[0], args[1])
			return nil
		},
	}
}

func newCharmWipeCommand(st *state) *cobra.Command {
	var yes bool

	cmd := &cobra.Command{
		Use:   "wipe",
		Short: "Delete every note in the Charm store",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if !yes {
				return fmt.Errorf("wipe deletes all charm notes; re-run with --yes to confirm")
			}
			c, err := openCharm(cmd, st)
			if err != nil {
				return err
			}
			if err := c.Reset(); err != nil {
				return fmt.Errorf("failed to wipe charm store: %w", err)
			}
			_, _ = fmt.Fprintln(cmd.OutOrStdout(), "✓ Charm store wiped")
			return nil
		},
	}
	cmd.Flags().BoolVar(&yes, "yes", false, "confirm the wipe")
	return cmd
}
