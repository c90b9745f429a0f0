// ABOUTME: MCP server subcommand
// ABOUTME: Serves the assistant's tools, resources and prompts over stdio
package cli

import (
	"github.com/spf13/cobra"

	"github.com/harperreed/deskhand/handlers"
)

func newMCPCommand(st *state) *cobra.Command {
	return &cobra.Command{
		Use:   "mcp",
		Short: "Start the MCP server on stdio",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := st.open(cmd)
			if err != nil {
				return err
			}
			st.log.Info().Str("user_id", st.userID.String()).Msg("starting MCP server")
			return handlers.Serve(cmd.Context(), a, st.userID, st.version)
		},
	}
}
