// ABOUTME: Network check command
// ABOUTME: Probes the model endpoint directly and through each configured proxy
package cli

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/harperreed/deskhand/netcheck"
)

func newNetcheckCommand(st *state) *cobra.Command {
	var endpoint string
	var proxies []string
	var attempts uint64

	cmd := &cobra.Command{
		Use:   "netcheck",
		Short: "Check connectivity to the model endpoint",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := st.load(cmd); err != nil {
				return err
			}
			if endpoint == "" {
				endpoint = st.cfg.ModelBaseURL
			}
			if len(proxies) == 0 {
				proxies = st.cfg.Proxies
			}

			prober := netcheck.NewProber(st.log.With().Str("component", "netcheck").Logger())
			if st.cfg.NetcheckCutoff > 0 {
				prober.Cutoff = st.cfg.NetcheckCutoff
			}
			if attempts > 0 {
				prober.Attempts = attempts
			}

			results := prober.Probe(cmd.Context(), netcheck.Targets(endpoint, proxies))
			printProbeResults(cmd, results)

			if !netcheck.AllOK(results) {
				return fmt.Errorf("one or more network paths failed")
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&endpoint, "endpoint", "", "URL to probe (default MODEL_BASE_URL or the Gemini API)")
	cmd.Flags().StringSliceVar(&proxies, "proxy", nil, "proxy URLs to test (default PROXIES)")
	cmd.Flags().Uint64Var(&attempts, "attempts", 0, "attempts per path")
	return cmd
}

func printProbeResults(cmd *cobra.Command, results []netcheck.Result) {
	out := cmd.OutOrStdout()
	for _, r := range results {
		if r.OK {
			_, _ = fmt.Fprintf(out, "%s %s  %s\n", check(true), r.Target.Name,
				dimStyle.Render(fmt.Sprintf("HTTP %d in %s (%d attempt(s))", r.Status, r.Latency.Round(time.Millisecond), r.Attempts)))
			continue
		}
		_, _ = fmt.Fprintf(out, "%s %s  %s\n", check(false), r.Target.Name,
			failStyle.Render(fmt.Sprintf("%s after %d attempt(s)", r.Error, r.Attempts)))
	}
}
