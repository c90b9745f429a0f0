// ABOUTME: Capability binding commands
// ABOUTME: Lists which provider serves each capability and rebinds a capability to another provider
package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/harperreed/deskhand/models"
)

func newProvidersCommand(st *state) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "providers",
		Short: "Show or change which provider serves each capability",
	}
	cmd.AddCommand(newProvidersListCommand(st), newProvidersSetCommand(st))
	return cmd
}

func newProvidersListCommand(st *state) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List capability bindings",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := st.open(cmd)
			if err != nil {
				return err
			}
			m, err := a.CapabilityMap(cmd.Context(), st.userID)
			if err != nil {
				return err
			}

			rows := make([][]string, 0, len(models.AllCapabilities))
			for _, c := range models.AllCapabilities {
				id, ok := m[c]
				if !ok {
					id = dimStyle.Render("unbound")
				}
				rows = append(rows, []string{string(c), id})
			}
			out := cmd.OutOrStdout()
			_, _ = fmt.Fprint(out, table([]string{"CAPABILITY", "PROVIDER"}, rows))
			_, _ = fmt.Fprintf(out, "\n%s %v\n", dimStyle.Render("available:"), a.Registry(st.userID).IDs())
			return nil
		},
	}
}

func newProvidersSetCommand(st *state) *cobra.Command {
	return &cobra.Command{
		Use:   "set <capability> <provider>",
		Short: "Bind a capability to a provider",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := models.ParseCapability(args[0])
			if err != nil {
				return err
			}
			a, err := st.open(cmd)
			if err != nil {
				return err
			}
			if err := a.Bind(cmd.Context(), st.userID, c, args[1]); err != nil {
				return err
			}
			_, _ = fmt.Fprintf(cmd.OutOrStdout(), "✓ %s → %s\n", c, args[1])
			return nil
		},
	}
}
