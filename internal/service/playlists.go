package service

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"path/filepath"
	"strings"

	"github.com/jmylchreest/xtreamctl/internal/probe"
	"github.com/jmylchreest/xtreamctl/pkg/m3u"
)

const (
	extM3U  = ".m3u"
	extJSON = ".json"
)

// compressedExts are stripped before the playlist extension when deriving
// names from an input file.
var compressedExts = []string{".gz", ".bz2", ".xz"}

// FetchOutcome describes a downloaded playlist.
type FetchOutcome struct {
	M3UPath  string
	JSONPath string // empty when the playlist had no channels
	Channels int
	Endpoint string
	Client   string
}

// PlaylistFiles lists the playlists in the output directory.
type PlaylistFiles struct {
	M3U  []string
	JSON []string
}

// FetchPlaylist downloads the playlist of the server at position n, saves
// the raw text and, when it holds channels, the parsed JSON. listType
// defaults to the configured type. progress may be nil.
func (m *Manager) FetchPlaylist(ctx context.Context, n int, listType string, progress probe.ProgressFunc) (FetchOutcome, error) {
	records := m.store.Load()
	idx, err := resolve(records, n)
	if err != nil {
		return FetchOutcome{}, err
	}
	rec := &records[idx]
	if listType == "" {
		listType = m.playlistType
	}

	result := m.prober.FetchPlaylist(ctx, rec.ServerURL, rec.Username, rec.Password, listType, progress)
	if ctx.Err() != nil {
		return FetchOutcome{}, ctx.Err()
	}
	if !result.OK {
		return FetchOutcome{}, fmt.Errorf("fetching playlist for %s: %w", rec.DisplayName(), result.Err())
	}

	base := fmt.Sprintf("%s_%s_playlist", rec.SafeName(), rec.Username)
	outcome := FetchOutcome{Endpoint: result.Endpoint, Client: result.Client}

	m3uName := base + extM3U
	if err := m.output.AtomicWrite(m3uName, []byte(result.Text)); err != nil {
		return FetchOutcome{}, fmt.Errorf("saving playlist: %w", err)
	}
	outcome.M3UPath = filepath.Join(m.output.BaseDir(), m3uName)

	channels := m3u.Parse(result.Text)
	outcome.Channels = len(channels)
	if len(channels) > 0 {
		jsonName := base + extJSON
		err := m.output.AtomicWriteFunc(jsonName, func(w io.Writer) error {
			return m3u.WriteJSON(w, channels)
		})
		if err != nil {
			return outcome, fmt.Errorf("saving parsed playlist: %w", err)
		}
		outcome.JSONPath = filepath.Join(m.output.BaseDir(), jsonName)
	}

	rec.MarkSuccess(m.now(), result.Endpoint, result.Client)
	if err := m.store.Save(records); err != nil {
		return outcome, fmt.Errorf("saving server: %w", err)
	}

	m.logger.Info("playlist saved",
		slog.String("name", rec.DisplayName()),
		slog.String("file", m3uName),
		slog.Int("channels", outcome.Channels),
	)
	return outcome, nil
}

// ListPlaylists returns the .m3u and .json files in the output directory,
// each sorted by name.
func (m *Manager) ListPlaylists() (PlaylistFiles, error) {
	names, err := m.output.List(".")
	if err != nil {
		return PlaylistFiles{}, fmt.Errorf("listing playlists: %w", err)
	}

	files := PlaylistFiles{M3U: []string{}, JSON: []string{}}
	for _, name := range names {
		switch strings.ToLower(filepath.Ext(name)) {
		case extM3U:
			files.M3U = append(files.M3U, name)
		case extJSON:
			files.JSON = append(files.JSON, name)
		}
	}
	return files, nil
}

// ParseOutcome describes a playlist converted to JSON.
type ParseOutcome struct {
	JSONPath string
	Channels int
}

// ParsePlaylistFile parses an M3U file from the output directory, plain or
// compressed, into {name}_{user}_playlist.json. name and user are the first
// two underscore-separated parts of the file name, or the whole base name
// and "user".
func (m *Manager) ParsePlaylistFile(file string) (ParseOutcome, error) {
	f, err := m.output.Open(file)
	if err != nil {
		return ParseOutcome{}, err
	}
	defer f.Close()

	name, user := playlistOwner(file)
	jsonName := fmt.Sprintf("%s_%s_playlist%s", name, user, extJSON)

	var count int
	err = m.output.AtomicWriteFunc(jsonName, func(w io.Writer) error {
		jw := m3u.NewJSONWriter(w)
		p := &m3u.Parser{OnChannel: jw.Write}
		if err := p.ParseCompressed(f); err != nil {
			return err
		}
		count = jw.Count()
		return jw.Close()
	})
	if err != nil {
		return ParseOutcome{}, fmt.Errorf("parsing %s: %w", file, err)
	}

	m.logger.Info("playlist parsed", slog.String("file", file), slog.Int("channels", count))
	return ParseOutcome{JSONPath: filepath.Join(m.output.BaseDir(), jsonName), Channels: count}, nil
}

func playlistOwner(file string) (name, user string) {
	base := filepath.Base(file)
	for _, ext := range compressedExts {
		base = strings.TrimSuffix(base, ext)
	}
	base = strings.TrimSuffix(base, filepath.Ext(base))

	parts := strings.Split(base, "_")
	if len(parts) >= 2 {
		return parts[0], parts[1]
	}
	return base, "user"
}

// LoadPlaylist reads a parsed JSON playlist from the output directory.
func (m *Manager) LoadPlaylist(file string) ([]m3u.Channel, error) {
	f, err := m.output.Open(file)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	channels, err := m3u.ReadJSON(f)
	if err != nil {
		return nil, fmt.Errorf("loading %s: %w", file, err)
	}
	return channels, nil
}

// ShowPlaylist returns the channel count of a parsed playlist and up to
// samples leading entries.
func (m *Manager) ShowPlaylist(file string, samples int) (int, []m3u.Channel, error) {
	channels, err := m.LoadPlaylist(file)
	if err != nil {
		return 0, nil, err
	}
	samples = max(0, min(samples, len(channels)))
	return len(channels), channels[:samples], nil
}

// FilterRequest selects channels from a parsed playlist.
type FilterRequest struct {
	File    string
	Field   string // defaults to title
	Keyword string
	// Output is the base name of the files to write. Empty derives
	// {base}_{field}-{keyword}_filtered.
	Output string
}

// FilterOutcome describes written filter results.
type FilterOutcome struct {
	M3UPath  string
	JSONPath string
	Matched  int
}

// FilterPlaylist writes the channels of a parsed playlist matching req as
// both M3U and JSON. When nothing matches no file is written and the error
// is ErrNoMatches.
func (m *Manager) FilterPlaylist(req FilterRequest) (FilterOutcome, error) {
	channels, err := m.LoadPlaylist(req.File)
	if err != nil {
		return FilterOutcome{}, err
	}

	field := strings.TrimSpace(req.Field)
	if field == "" {
		field = m3u.FieldTitle
	}
	keyword := strings.TrimSpace(req.Keyword)

	matched := m3u.Filter(channels, field, keyword)
	if len(matched) == 0 {
		return FilterOutcome{}, fmt.Errorf("%w: %s=%q", ErrNoMatches, field, keyword)
	}

	out := strings.TrimSpace(req.Output)
	if out == "" {
		out = filteredName(req.File, field, keyword)
	}
	m3uName, jsonName := out+extM3U, out+extJSON

	err = m.output.AtomicWriteFunc(m3uName, func(w io.Writer) error {
		mw := m3u.NewWriter(w)
		if err := mw.WriteHeader(); err != nil {
			return err
		}
		for i := range matched {
			if err := mw.WriteChannel(&matched[i]); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return FilterOutcome{}, fmt.Errorf("writing filtered playlist: %w", err)
	}

	err = m.output.AtomicWriteFunc(jsonName, func(w io.Writer) error {
		return m3u.WriteJSON(w, matched)
	})
	if err != nil {
		return FilterOutcome{}, fmt.Errorf("writing filtered JSON: %w", err)
	}

	m.logger.Info("playlist filtered",
		slog.String("file", req.File),
		slog.String("field", field),
		slog.Int("matched", len(matched)),
		slog.Int("total", len(channels)),
	)
	return FilterOutcome{
		M3UPath:  filepath.Join(m.output.BaseDir(), m3uName),
		JSONPath: filepath.Join(m.output.BaseDir(), jsonName),
		Matched:  len(matched),
	}, nil
}

func filteredName(file, field, keyword string) string {
	base := strings.TrimSuffix(filepath.Base(file), filepath.Ext(file))
	kw := "all"
	if keyword != "" {
		kw = strings.ReplaceAll(keyword, " ", "_")
	}
	return fmt.Sprintf("%s_%s-%s_filtered", base, field, kw)
}
