package cmd

import (
	"errors"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/jmylchreest/xtreamctl/internal/probe"
	"github.com/jmylchreest/xtreamctl/internal/service"
)

var refreshCmd = &cobra.Command{
	Use:   "refresh [n]",
	Short: "Fetch account details from player_api.php",
	Long: `Probe a saved server for a working endpoint and store the account
and server details it reports.

With --all every saved server is refreshed in order and the results are
saved once at the end.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runRefresh,
}

func init() {
	rootCmd.AddCommand(refreshCmd)
	refreshCmd.Flags().Bool("all", false, "refresh every saved server")
}

func runRefresh(cmd *cobra.Command, args []string) error {
	all, _ := cmd.Flags().GetBool("all")
	if all == (len(args) == 1) {
		return errors.New("give either a server number or --all")
	}

	mgr, err := newManager()
	if err != nil {
		return err
	}
	out := cmd.OutOrStdout()

	if all {
		outcomes, err := mgr.RefreshAll(cmd.Context())
		for i := range outcomes {
			printRefresh(out, &outcomes[i])
		}
		if len(outcomes) == 0 && err == nil {
			fmt.Fprintln(out, "No servers to refresh.")
		}
		return err
	}

	n, err := parseIndex(args[0])
	if err != nil {
		return err
	}
	outcome, err := mgr.Refresh(cmd.Context(), n)
	if outcome.Index > 0 {
		printRefresh(out, &outcome)
	}
	if errors.Is(err, probe.ErrNoValidResponse) {
		fmt.Fprint(cmd.ErrOrStderr(), probe.Summary(outcome.Account.Attempts))
		return fmt.Errorf("%w (debug files in %s)", err, mgr.DebugDir())
	}
	return err
}

func printRefresh(w io.Writer, o *service.RefreshOutcome) {
	if o.Err != nil {
		fmt.Fprintf(w, "%d. %s: failed\n", o.Index, o.Server.DisplayName())
		return
	}
	fmt.Fprintf(w, "%d. %s: %s via %s (%s)\n",
		o.Index, o.Server.DisplayName(), o.Server.Status(), o.Account.Endpoint, o.Account.Client)
}
