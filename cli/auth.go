// ABOUTME: Provider authentication commands
// ABOUTME: Runs the Google consent flow, reports credential state and removes stored tokens
package cli

import (
	"fmt"
	"os/exec"
	"runtime"

	"github.com/spf13/cobra"

	"github.com/harperreed/deskhand/google"
	"github.com/harperreed/deskhand/provider"
)

func newAuthCommand(st *state) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "auth",
		Short: "Manage provider credentials",
	}
	cmd.AddCommand(newAuthGoogleCommand(st), newAuthStatusCommand(st), newAuthLogoutCommand(st))
	return cmd
}

func newAuthGoogleCommand(st *state) *cobra.Command {
	return &cobra.Command{
		Use:   "google",
		Short: "Sign in to Google",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := st.open(cmd)
			if err != nil {
				return err
			}
			if !st.cfg.HasGoogleCredentials() {
				return fmt.Errorf("GOOGLE_CLIENT_ID and GOOGLE_CLIENT_SECRET must be set")
			}

			p, ok := a.Registry(st.userID).Get(provider.GoogleID)
			if !ok {
				return fmt.Errorf("google provider is not registered")
			}
			g := p.(*google.Provider)

			out := cmd.OutOrStdout()
			_, _ = fmt.Fprintln(out, "Opening browser for Google OAuth...")
			if err := g.Authenticate(cmd.Context()); err != nil {
				return fmt.Errorf("OAuth flow failed: %w", err)
			}

			_, _ = fmt.Fprintf(out, "\n✓ Authenticated successfully\n")
			_, _ = fmt.Fprintf(out, "✓ Tokens saved to %s\n", a.Tokens().Path(st.userID))
			if profile, err := g.GetUserProfile(cmd.Context()); err == nil {
				_, _ = fmt.Fprintf(out, "✓ Signed in as %s\n", profile.Email)
			}
			_, _ = fmt.Fprintln(out, "\nReady to sync! Run 'deskhand sync run' to fill the cache.")
			return nil
		},
	}
}

func newAuthStatusCommand(st *state) *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show which providers hold credentials",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := st.open(cmd)
			if err != nil {
				return err
			}
			reg := a.Registry(st.userID)

			var rows [][]string
			for _, id := range reg.IDs() {
				p, _ := reg.Get(id)
				auth, ok := p.(provider.Authenticator)
				if !ok {
					rows = append(rows, []string{id, dimStyle.Render("local")})
					continue
				}
				if auth.IsAuthenticated(cmd.Context()) {
					rows = append(rows, []string{id, check(true) + " authenticated"})
				} else {
					rows = append(rows, []string{id, check(false) + " not authenticated"})
				}
			}
			_, _ = fmt.Fprint(cmd.OutOrStdout(), table([]string{"PROVIDER", "STATUS"}, rows))
			return nil
		},
	}
}

func newAuthLogoutCommand(st *state) *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "Delete the stored Google token",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := st.open(cmd)
			if err != nil {
				return err
			}
			if err := a.Tokens().Delete(st.userID); err != nil {
				return err
			}
			_, _ = fmt.Fprintln(cmd.OutOrStdout(), "✓ Signed out of Google")
			return nil
		},
	}
}

// openBrowser attempts to open URL in default browser
func openBrowser(url string) error {
	var cmd string
	var args []string

	switch runtime.GOOS {
	case "darwin":
		cmd = "open"
		args = []string{url}
	case "windows":
		cmd = "cmd"
		args = []string{"/c", "start", url}
	default:
		cmd = "xdg-open"
		args = []string{url}
	}

	command := exec.Command(cmd, args...)
	return command.Start()
}
