// ABOUTME: Chat subcommand driving a conversation session from the terminal
// ABOUTME: Terminals get the full-screen chat; piped input is read line by line without prompts
package cli

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/harperreed/deskhand/dispatch"
	"github.com/harperreed/deskhand/session"
	"github.com/harperreed/deskhand/tui"
)

func newChatCommand(st *state) *cobra.Command {
	var plain bool

	cmd := &cobra.Command{
		Use:   "chat",
		Short: "Chat with the assistant",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := st.open(cmd)
			if err != nil {
				return err
			}
			sess, err := a.Session(cmd.Context(), st.userID)
			if err != nil {
				return err
			}

			in := cmd.InOrStdin()
			if !plain && isTerminal(in) {
				return tui.Run(cmd.Context(), sess)
			}
			return runLines(cmd, sess, in, cmd.OutOrStdout())
		},
	}
	cmd.Flags().BoolVar(&plain, "plain", false, "line mode even on a terminal")
	return cmd
}

func isTerminal(r io.Reader) bool {
	f, ok := r.(*os.File)
	return ok && term.IsTerminal(int(f.Fd()))
}

// runLines reads one prompt per line until EOF or /quit.
func runLines(cmd *cobra.Command, conv tui.Conversation, in io.Reader, out io.Writer) error {
	ctx := cmd.Context()

	var choices tui.Chooser
	scanner := bufio.NewScanner(in)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		if line == "/quit" || line == "/exit" {
			return nil
		}

		var msgs []dispatch.ResultMessage
		var err error
		if sel, ok := choices.Pick(line); ok {
			msgs, err = conv.Select(ctx, sel)
		} else {
			msgs, err = conv.Send(ctx, line)
		}

		switch {
		case errors.Is(err, session.ErrSuperseded):
			_, _ = fmt.Fprintln(out, tui.RenderNotice("(cancelled)"))
			continue
		case err != nil && ctx.Err() != nil:
			return nil
		case err != nil:
			_, _ = fmt.Fprintln(out, tui.RenderError(err))
			continue
		}

		_, _ = fmt.Fprint(out, tui.RenderMessages(msgs))
		choices.Observe(msgs)
	}
	return scanner.Err()
}
