package cmd

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/jmylchreest/xtreamctl/pkg/format"
)

var debugCmd = &cobra.Command{
	Use:   "debug",
	Short: "Inspect responses saved from failed attempts",
}

var debugListCmd = &cobra.Command{
	Use:     "list",
	Aliases: []string{"ls"},
	Short:   "List diagnostic files, newest first",
	Args:    cobra.NoArgs,
	RunE:    runDebugList,
}

var debugShowCmd = &cobra.Command{
	Use:   "show <file>",
	Short: "Print a diagnostic file",
	Args:  cobra.ExactArgs(1),
	RunE:  runDebugShow,
}

func init() {
	rootCmd.AddCommand(debugCmd)
	debugCmd.AddCommand(debugListCmd, debugShowCmd)
}

func runDebugList(cmd *cobra.Command, _ []string) error {
	mgr, err := newManager()
	if err != nil {
		return err
	}
	entries, err := mgr.ListDebug()
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	if len(entries) == 0 {
		fmt.Fprintln(out, "No debug files.")
		return nil
	}

	tw := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "#\tFILE\tLABEL\tSAVED")
	for i, e := range entries {
		saved := "-"
		if !e.Created.IsZero() {
			saved = format.RelativeTime(e.Created)
		}
		fmt.Fprintf(tw, "%d\t%s\t%s\t%s\n", i+1, e.Name, e.Label, saved)
	}
	return tw.Flush()
}

func runDebugShow(cmd *cobra.Command, args []string) error {
	mgr, err := newManager()
	if err != nil {
		return err
	}
	content, err := mgr.ReadDebug(args[0])
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "--- DEBUG: %s ---\n", args[0])
	fmt.Fprintln(out, content)
	fmt.Fprintln(out, "--- end ---")
	return nil
}
