// Package diagnostics persists raw responses from failed probe attempts so
// they can be inspected later.
package diagnostics

import (
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"time"
	"unicode/utf8"

	"golang.org/x/text/encoding/unicode"
	"golang.org/x/text/transform"

	"github.com/jmylchreest/xtreamctl/internal/storage"
)

// Labels identifying the kind of failure a diagnostic file records.
const (
	LabelPlayerAPIError   = "player_api_error"
	LabelPlayerAPINon200  = "player_api_non200"
	LabelPlayerAPIBadJSON = "player_api_badjson"
	LabelPlaylistError    = "playlist_error"
	LabelPlaylistNon200   = "playlist_non200"
	LabelPlaylistNonM3U   = "playlist_nonm3u"
)

// DefaultMaxChars caps the body characters kept per file.
const DefaultMaxChars = 500000

const (
	fileSuffix    = "_debug"
	fileExt       = ".txt"
	maxCollisions = 1000
)

// FileSink writes one file per failed attempt into a sandboxed directory.
type FileSink struct {
	sandbox  *storage.Sandbox
	maxChars int
	logger   *slog.Logger
	now      func() time.Time
}

// Option configures a FileSink.
type Option func(*FileSink)

// WithLogger sets the logger used to report write failures.
func WithLogger(logger *slog.Logger) Option {
	return func(s *FileSink) {
		s.logger = logger
	}
}

// WithMaxChars overrides DefaultMaxChars.
func WithMaxChars(n int) Option {
	return func(s *FileSink) {
		if n > 0 {
			s.maxChars = n
		}
	}
}

// WithClock overrides the time source used for file names.
func WithClock(now func() time.Time) Option {
	return func(s *FileSink) {
		s.now = now
	}
}

// NewFileSink creates a sink writing into sandbox.
func NewFileSink(sandbox *storage.Sandbox, opts ...Option) *FileSink {
	s := &FileSink{
		sandbox:  sandbox,
		maxChars: DefaultMaxChars,
		logger:   slog.Default(),
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Save writes "Endpoint: {endpoint}\n\n" followed by body, truncated to the
// configured number of characters, to {unix}_{label}_debug.txt. A second
// file in the same second gets a _2, _3, ... suffix. Save returns the path
// written, or "" after logging a failure.
func (s *FileSink) Save(label, endpoint, body string) string {
	content := "Endpoint: " + endpoint + "\n\n" + truncateChars(validUTF8(body), s.maxChars)
	base := fmt.Sprintf("%d_%s%s", s.now().Unix(), strings.ReplaceAll(label, " ", "_"), fileSuffix)

	for n := 1; n <= maxCollisions; n++ {
		name := base + fileExt
		if n > 1 {
			name = fmt.Sprintf("%s_%d%s", base, n, fileExt)
		}

		f, err := s.sandbox.CreateExclusive(name)
		if errors.Is(err, storage.ErrExists) {
			continue
		}
		if err != nil {
			s.logger.Warn("failed to write diagnostic file",
				slog.String("label", label),
				slog.String("error", err.Error()),
			)
			return ""
		}

		_, writeErr := f.WriteString(content)
		closeErr := f.Close()
		if err := errors.Join(writeErr, closeErr); err != nil {
			s.logger.Warn("failed to write diagnostic file",
				slog.String("file", name),
				slog.String("error", err.Error()),
			)
			return ""
		}
		return filepath.Join(s.sandbox.BaseDir(), name)
	}

	s.logger.Warn("failed to write diagnostic file",
		slog.String("label", label),
		slog.String("error", "too many files in the same second"),
	)
	return ""
}

func truncateChars(s string, n int) string {
	if n <= 0 || utf8.RuneCountInString(s) <= n {
		return s
	}
	i := 0
	for pos := range s {
		if i == n {
			return s[:pos]
		}
		i++
	}
	return s
}

// Entry describes a stored diagnostic file.
type Entry struct {
	Name    string
	Label   string
	Created time.Time
}

// List returns the stored files, newest first (reverse name order).
func (s *FileSink) List() ([]Entry, error) {
	names, err := s.sandbox.List(".")
	if err != nil {
		return nil, fmt.Errorf("listing diagnostics: %w", err)
	}
	sort.Sort(sort.Reverse(sort.StringSlice(names)))

	entries := make([]Entry, 0, len(names))
	for _, name := range names {
		entries = append(entries, parseName(name))
	}
	return entries, nil
}

// Read returns the content of a stored file. name must be a bare file name.
func (s *FileSink) Read(name string) (string, error) {
	if name == "" || filepath.Base(name) != name {
		return "", fmt.Errorf("invalid diagnostic file name %q", name)
	}
	data, err := s.sandbox.ReadFile(name)
	if err != nil {
		return "", fmt.Errorf("reading diagnostic %s: %w", name, err)
	}
	return string(data), nil
}

// Dir returns the directory diagnostics are written to.
func (s *FileSink) Dir() string {
	return s.sandbox.BaseDir()
}

// parseName recovers the timestamp and label from {unix}_{label}_debug[_n].txt.
// Names that do not follow the pattern keep only Name.
func parseName(name string) Entry {
	e := Entry{Name: name}

	stem := strings.TrimSuffix(name, fileExt)
	ts, rest, ok := strings.Cut(stem, "_")
	if !ok {
		return e
	}
	secs, err := strconv.ParseInt(ts, 10, 64)
	if err != nil {
		return e
	}
	idx := strings.LastIndex(rest, fileSuffix)
	if idx < 0 {
		return e
	}

	e.Created = time.Unix(secs, 0)
	e.Label = rest[:idx]
	return e
}

// validUTF8 replaces each byte of an invalid sequence with U+FFFD.
func validUTF8(s string) string {
	out, _, err := transform.String(unicode.UTF8.NewDecoder(), s)
	if err != nil {
		return strings.ToValidUTF8(s, "\uFFFD")
	}
	return out
}
