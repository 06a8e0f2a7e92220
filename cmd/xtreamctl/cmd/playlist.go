package cmd

import (
	"errors"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/jmylchreest/xtreamctl/internal/probe"
	"github.com/jmylchreest/xtreamctl/internal/service"
	"github.com/jmylchreest/xtreamctl/pkg/format"
)

var playlistCmd = &cobra.Command{
	Use:   "playlist",
	Short: "Download, parse, filter and inspect playlists",
	Long: `Download, parse, filter and inspect playlists.

File arguments are names inside the output directory, as shown by
"playlist list".`,
}

var playlistFetchCmd = &cobra.Command{
	Use:   "fetch <n>",
	Short: "Download the M3U playlist of a saved server",
	Long: `Download get.php from the first endpoint that returns an M3U playlist.

The raw playlist is written to {name}_{username}_playlist.m3u and, when it
holds channels, the parsed records to {name}_{username}_playlist.json.`,
	Args: cobra.ExactArgs(1),
	RunE: runPlaylistFetch,
}

var playlistListCmd = &cobra.Command{
	Use:     "list",
	Aliases: []string{"ls"},
	Short:   "List playlists in the output directory",
	Args:    cobra.NoArgs,
	RunE:    runPlaylistList,
}

var playlistParseCmd = &cobra.Command{
	Use:   "parse <file.m3u>",
	Short: "Convert an M3U file (plain, gzip, bzip2 or xz) to JSON",
	Args:  cobra.ExactArgs(1),
	RunE:  runPlaylistParse,
}

var playlistFilterCmd = &cobra.Command{
	Use:   "filter <file.json>",
	Short: "Write the channels matching a keyword as M3U and JSON",
	Long: `Write the channels of a parsed playlist whose field contains keyword
(case-insensitive) as both M3U and JSON.

Field is "title", "group" (group-title) or any attribute name such as
tvg-name or tvg-id. An empty keyword keeps every channel. Nothing is written
when no channel matches.`,
	Example: `  xtreamctl playlist filter Panel_alice_playlist.json --field group --keyword sports`,
	Args:    cobra.ExactArgs(1),
	RunE:    runPlaylistFilter,
}

var playlistShowCmd = &cobra.Command{
	Use:   "show <file.json>",
	Short: "Show the channel count and sample entries of a parsed playlist",
	Args:  cobra.ExactArgs(1),
	RunE:  runPlaylistShow,
}

func init() {
	rootCmd.AddCommand(playlistCmd)
	playlistCmd.AddCommand(playlistFetchCmd, playlistListCmd, playlistParseCmd, playlistFilterCmd, playlistShowCmd)

	playlistFetchCmd.Flags().String("type", "", "get.php type parameter (default from probe.playlist_type)")
	playlistFetchCmd.Flags().BoolP("quiet", "q", false, "do not print download progress")

	playlistFilterCmd.Flags().String("field", "title", "field to match: title, group or an attribute name")
	playlistFilterCmd.Flags().String("keyword", "", "substring to look for")
	playlistFilterCmd.Flags().String("output", "", "output base name without extension")

	playlistShowCmd.Flags().Int("samples", 5, "number of entries to show")
}

func runPlaylistFetch(cmd *cobra.Command, args []string) error {
	n, err := parseIndex(args[0])
	if err != nil {
		return err
	}
	mgr, err := newManager()
	if err != nil {
		return err
	}

	listType, _ := cmd.Flags().GetString("type")
	quiet, _ := cmd.Flags().GetBool("quiet")
	var progress probe.ProgressFunc
	if !quiet {
		progress = progressPrinter(cmd.ErrOrStderr())
	}

	outcome, err := mgr.FetchPlaylist(cmd.Context(), n, listType, progress)
	if progress != nil {
		fmt.Fprintln(cmd.ErrOrStderr())
	}
	if errors.Is(err, probe.ErrNoValidResponse) {
		return fmt.Errorf("%w (debug files in %s)", err, mgr.DebugDir())
	}
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Playlist saved: %s\n", outcome.M3UPath)
	if outcome.JSONPath != "" {
		fmt.Fprintf(out, "Parsed JSON saved: %s (%d channels)\n", outcome.JSONPath, outcome.Channels)
	} else {
		fmt.Fprintln(out, "Playlist has no channels; JSON not written.")
	}
	return nil
}

// progressPrinter redraws a single progress line on w, at most once per
// progressStep bytes and always on the final chunk.
func progressPrinter(w io.Writer) probe.ProgressFunc {
	const progressStep = 256 << 10
	var last int64 = -progressStep
	return func(done, total int64) {
		if done-last < progressStep && (total <= 0 || done < total) {
			return
		}
		last = done
		fmt.Fprintf(w, "\rDownloading: %s   ", format.Progress(done, total))
	}
}

func runPlaylistList(cmd *cobra.Command, _ []string) error {
	mgr, err := newManager()
	if err != nil {
		return err
	}
	files, err := mgr.ListPlaylists()
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	printFileList(out, "M3U files:", files.M3U)
	fmt.Fprintln(out)
	printFileList(out, "Parsed JSON playlists:", files.JSON)
	return nil
}

func printFileList(w io.Writer, title string, names []string) {
	fmt.Fprintln(w, title)
	if len(names) == 0 {
		fmt.Fprintln(w, "  (none)")
		return
	}
	for i, name := range names {
		fmt.Fprintf(w, " %d. %s\n", i+1, name)
	}
}

func runPlaylistParse(cmd *cobra.Command, args []string) error {
	mgr, err := newManager()
	if err != nil {
		return err
	}
	outcome, err := mgr.ParsePlaylistFile(args[0])
	if err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Saved JSON: %s (%d channels)\n", outcome.JSONPath, outcome.Channels)
	return nil
}

func runPlaylistFilter(cmd *cobra.Command, args []string) error {
	mgr, err := newManager()
	if err != nil {
		return err
	}

	field, _ := cmd.Flags().GetString("field")
	keyword, _ := cmd.Flags().GetString("keyword")
	output, _ := cmd.Flags().GetString("output")

	outcome, err := mgr.FilterPlaylist(service.FilterRequest{
		File:    args[0],
		Field:   field,
		Keyword: keyword,
		Output:  output,
	})
	if errors.Is(err, service.ErrNoMatches) {
		fmt.Fprintln(cmd.OutOrStdout(), "Found 0 matching channels.")
		return nil
	}
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Found %d matching channels.\n", outcome.Matched)
	fmt.Fprintf(out, "Created filtered M3U: %s\n", outcome.M3UPath)
	fmt.Fprintf(out, "Also saved JSON: %s\n", outcome.JSONPath)
	return nil
}

func runPlaylistShow(cmd *cobra.Command, args []string) error {
	mgr, err := newManager()
	if err != nil {
		return err
	}

	samples, _ := cmd.Flags().GetInt("samples")
	total, channels, err := mgr.ShowPlaylist(args[0], samples)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Loaded %d channels from %s\n", total, args[0])
	for i := range channels {
		ch := &channels[i]
		fmt.Fprintf(out, "\n[%d] Title: %s\n", i+1, ch.Title)
		fmt.Fprintf(out, "     URL: %s\n", ch.URL)
		fmt.Fprintf(out, "     Group: %s\n", ch.Group())
		fmt.Fprintf(out, "     tvg-name: %s\n", ch.Attr("tvg-name"))
	}
	return nil
}
