package cmd

import (
	"errors"
	"fmt"
	"io"
	"strconv"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/jmylchreest/xtreamctl/internal/service"
	"github.com/jmylchreest/xtreamctl/internal/store"
	"github.com/jmylchreest/xtreamctl/pkg/format"
	"github.com/jmylchreest/xtreamctl/pkg/xtream"
)

var serverCmd = &cobra.Command{
	Use:   "server",
	Short: "Manage saved servers",
	Long: `Add, list, inspect, edit and delete saved Xtream Codes servers.

Servers are addressed by their 1-based position as shown by "server list".`,
}

var serverAddCmd = &cobra.Command{
	Use:   "add",
	Short: "Save a new server",
	Example: `  xtreamctl server add --name "Living Room" --url panel.example.com:8080 \
    --username alice --password secret`,
	Args: cobra.NoArgs,
	RunE: runServerAdd,
}

var serverListCmd = &cobra.Command{
	Use:     "list",
	Aliases: []string{"ls"},
	Short:   "List saved servers",
	Args:    cobra.NoArgs,
	RunE:    runServerList,
}

var serverShowCmd = &cobra.Command{
	Use:   "show <n>",
	Short: "Show a server with its last account snapshot",
	Args:  cobra.ExactArgs(1),
	RunE:  runServerShow,
}

var serverEditCmd = &cobra.Command{
	Use:   "edit <n>",
	Short: "Change fields of a saved server",
	Long:  "Change fields of a saved server. Only the flags given are updated.",
	Args:  cobra.ExactArgs(1),
	RunE:  runServerEdit,
}

var serverDeleteCmd = &cobra.Command{
	Use:     "delete <n>",
	Aliases: []string{"rm"},
	Short:   "Delete a saved server",
	Args:    cobra.ExactArgs(1),
	RunE:    runServerDelete,
}

func init() {
	rootCmd.AddCommand(serverCmd)
	serverCmd.AddCommand(serverAddCmd, serverListCmd, serverShowCmd, serverEditCmd, serverDeleteCmd)

	serverAddCmd.Flags().String("name", "", "label for the server (defaults to the URL)")
	serverAddCmd.Flags().String("url", "", "server address, e.g. example.com or http://example.com:8080")
	serverAddCmd.Flags().String("username", "", "account username")
	serverAddCmd.Flags().String("password", "", "account password")
	_ = serverAddCmd.MarkFlagRequired("url")

	serverEditCmd.Flags().String("name", "", "new label")
	serverEditCmd.Flags().String("url", "", "new server address")
	serverEditCmd.Flags().String("username", "", "new username")
	serverEditCmd.Flags().String("password", "", "new password")

	serverDeleteCmd.Flags().Bool("yes", false, "confirm deletion")
}

// parseIndex converts a 1-based server position argument.
func parseIndex(arg string) (int, error) {
	n, err := strconv.Atoi(arg)
	if err != nil || n < 1 {
		return 0, fmt.Errorf("invalid server number %q", arg)
	}
	return n, nil
}

func runServerAdd(cmd *cobra.Command, _ []string) error {
	mgr, err := newManager()
	if err != nil {
		return err
	}

	name, _ := cmd.Flags().GetString("name")
	url, _ := cmd.Flags().GetString("url")
	username, _ := cmd.Flags().GetString("username")
	password, _ := cmd.Flags().GetString("password")

	rec, n, err := mgr.AddServer(name, url, username, password)
	if err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Saved server %d: %s\n", n, rec.Name)
	return nil
}

func runServerList(cmd *cobra.Command, _ []string) error {
	mgr, err := newManager()
	if err != nil {
		return err
	}

	servers := mgr.ListServers()
	out := cmd.OutOrStdout()
	if len(servers) == 0 {
		fmt.Fprintln(out, "No servers saved yet.")
		return nil
	}

	tw := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "#\tNAME\tURL\tSTATUS\tLAST CHECK")
	for i := range servers {
		s := &servers[i]
		fmt.Fprintf(tw, "%d\t%s\t%s\t%s\t%s\n", i+1, s.DisplayName(), s.ServerURL, s.Status(), format.Timestamp(s.LastCheckTime()))
	}
	return tw.Flush()
}

func runServerShow(cmd *cobra.Command, args []string) error {
	n, err := parseIndex(args[0])
	if err != nil {
		return err
	}
	mgr, err := newManager()
	if err != nil {
		return err
	}

	rec, err := mgr.GetServer(n)
	if err != nil {
		return err
	}
	return printServer(cmd.OutOrStdout(), &rec)
}

func printServer(w io.Writer, rec *store.ServerRecord) error {
	created := time.Unix(rec.CreatedAt, 0)

	fmt.Fprintf(w, "Name:       %s\n", rec.DisplayName())
	fmt.Fprintf(w, "URL:        %s\n", rec.ServerURL)
	fmt.Fprintf(w, "Username:   %s\n", rec.Username)
	fmt.Fprintf(w, "Created:    %s\n", format.Timestamp(&created))
	fmt.Fprintf(w, "Last check: %s\n", format.Timestamp(rec.LastCheckTime()))
	if rec.LastEndpoint != nil {
		client := ""
		if rec.LastClient != nil {
			client = *rec.LastClient
		}
		fmt.Fprintf(w, "Endpoint:   %s (client: %s)\n", *rec.LastEndpoint, client)
	}
	fmt.Fprintln(w)

	if rec.UserInfo.IsZero() {
		fmt.Fprintln(w, "No user_info fetched yet.")
	} else {
		ui := rec.UserInfo
		fmt.Fprintln(w, "User Info:")
		fmt.Fprintf(w, "  username: %s\n", ui.Username)
		fmt.Fprintf(w, "  status: %s\n", ui.Status)
		fmt.Fprintf(w, "  expire: %s\n", format.UnixTimestamp(ui.ExpDate.String()))
		fmt.Fprintf(w, "  active_cons: %s\n", ui.ActiveCons)
		fmt.Fprintf(w, "  max_connections: %s\n", ui.MaxConnections)
		fmt.Fprintln(w)
	}

	fields, err := xtream.ServerInfoFields(rec.ServerInfo)
	if err != nil {
		return err
	}
	if fields.Len() == 0 {
		fmt.Fprintln(w, "No server_info fetched yet.")
		return nil
	}
	fmt.Fprintln(w, "Server Info:")
	for pair := fields.Oldest(); pair != nil; pair = pair.Next() {
		fmt.Fprintf(w, "  %s: %v\n", pair.Key, pair.Value)
	}
	return nil
}

func runServerEdit(cmd *cobra.Command, args []string) error {
	n, err := parseIndex(args[0])
	if err != nil {
		return err
	}
	mgr, err := newManager()
	if err != nil {
		return err
	}

	var update service.ServerUpdate
	for flag, dst := range map[string]**string{
		"name":     &update.Name,
		"url":      &update.ServerURL,
		"username": &update.Username,
		"password": &update.Password,
	} {
		if cmd.Flags().Changed(flag) {
			v, _ := cmd.Flags().GetString(flag)
			*dst = &v
		}
	}

	rec, err := mgr.EditServer(n, update)
	if err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Updated server %d: %s\n", n, rec.DisplayName())
	return nil
}

func runServerDelete(cmd *cobra.Command, args []string) error {
	n, err := parseIndex(args[0])
	if err != nil {
		return err
	}
	if yes, _ := cmd.Flags().GetBool("yes"); !yes {
		return errors.New("refusing to delete without --yes")
	}
	mgr, err := newManager()
	if err != nil {
		return err
	}

	rec, err := mgr.DeleteServer(n)
	if err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Deleted server %d: %s\n", n, rec.DisplayName())
	return nil
}
