package diagnostics

import (
	"bytes"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jmylchreest/xtreamctl/internal/storage"
)

func fixedClock(unix int64) func() time.Time {
	return func() time.Time { return time.Unix(unix, 0) }
}

func newTestSink(t *testing.T, opts ...Option) *FileSink {
	t.Helper()
	sb, err := storage.NewSandbox(t.TempDir())
	require.NoError(t, err)
	return NewFileSink(sb, opts...)
}

func TestFileSink_Save(t *testing.T) {
	sink := newTestSink(t, WithClock(fixedClock(1700000000)))

	path := sink.Save(LabelPlaylistNonM3U, "http://a.example", "<html>blocked</html>")
	require.NotEmpty(t, path)
	assert.Equal(t, "1700000000_playlist_nonm3u_debug.txt", filepath.Base(path))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "Endpoint: http://a.example\n\n<html>blocked</html>", string(data))
}

func TestFileSink_SaveTruncatesByCharacters(t *testing.T) {
	sink := newTestSink(t, WithClock(fixedClock(1)), WithMaxChars(3))

	path := sink.Save("x", "e", "héllo")
	require.NotEmpty(t, path)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "Endpoint: e\n\nhél", string(data))
}

func TestFileSink_SaveReplacesInvalidUTF8(t *testing.T) {
	sink := newTestSink(t, WithClock(fixedClock(1)))

	path := sink.Save("x", "e", "a\xffb\xfe\x80c")
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "Endpoint: e\n\na\uFFFDb\uFFFD\uFFFDc", string(data))
}

func TestFileSink_SaveSameSecond(t *testing.T) {
	sink := newTestSink(t, WithClock(fixedClock(42)))

	first := sink.Save(LabelPlayerAPINon200, "http://a", "one")
	second := sink.Save(LabelPlayerAPINon200, "http://b", "two")
	third := sink.Save(LabelPlayerAPINon200, "http://c", "three")

	assert.Equal(t, "42_player_api_non200_debug.txt", filepath.Base(first))
	assert.Equal(t, "42_player_api_non200_debug_2.txt", filepath.Base(second))
	assert.Equal(t, "42_player_api_non200_debug_3.txt", filepath.Base(third))

	data, err := os.ReadFile(first)
	require.NoError(t, err)
	assert.Contains(t, string(data), "one")
}

func TestFileSink_SaveFailureLogs(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, nil))

	if os.Geteuid() == 0 {
		t.Skip("permission checks do not apply to root")
	}

	sb, err := storage.NewSandbox(t.TempDir())
	require.NoError(t, err)
	require.NoError(t, os.Chmod(sb.BaseDir(), 0o500))
	t.Cleanup(func() { _ = os.Chmod(sb.BaseDir(), 0o750) })

	sink := NewFileSink(sb, WithLogger(logger), WithClock(fixedClock(1)))
	assert.Empty(t, sink.Save("x", "e", "body"))
	assert.Contains(t, buf.String(), "failed to write diagnostic file")
}

func TestFileSink_List(t *testing.T) {
	sink := newTestSink(t)

	empty, err := sink.List()
	require.NoError(t, err)
	assert.Empty(t, empty)

	sink.now = fixedClock(100)
	sink.Save(LabelPlaylistError, "e", "a")
	sink.now = fixedClock(300)
	sink.Save(LabelPlayerAPIBadJSON, "e", "b")
	sink.now = fixedClock(200)
	sink.Save(LabelPlaylistNon200, "e", "c")

	entries, err := sink.List()
	require.NoError(t, err)
	require.Len(t, entries, 3)

	assert.Equal(t, "300_player_api_badjson_debug.txt", entries[0].Name)
	assert.Equal(t, LabelPlayerAPIBadJSON, entries[0].Label)
	assert.Equal(t, int64(300), entries[0].Created.Unix())
	assert.Equal(t, "200_playlist_non200_debug.txt", entries[1].Name)
	assert.Equal(t, "100_playlist_error_debug.txt", entries[2].Name)
}

func TestFileSink_ListForeignFile(t *testing.T) {
	sink := newTestSink(t)
	require.NoError(t, os.WriteFile(filepath.Join(sink.Dir(), "notes.txt"), []byte("x"), 0o640))

	entries, err := sink.List()
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "notes.txt", entries[0].Name)
	assert.Empty(t, entries[0].Label)
	assert.True(t, entries[0].Created.IsZero())
}

func TestFileSink_Read(t *testing.T) {
	sink := newTestSink(t, WithClock(fixedClock(5)))
	path := sink.Save("lbl", "http://x", "payload")

	content, err := sink.Read(filepath.Base(path))
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(content, "Endpoint: http://x"))

	_, err = sink.Read("missing.txt")
	assert.Error(t, err)

	_, err = sink.Read("../servers.json")
	assert.Error(t, err)

	_, err = sink.Read("")
	assert.Error(t, err)
}

func TestParseName(t *testing.T) {
	e := parseName("1700000000_playlist_nonm3u_debug_2.txt")
	assert.Equal(t, "playlist_nonm3u", e.Label)
	assert.Equal(t, int64(1700000000), e.Created.Unix())

	e = parseName("abc_label_debug.txt")
	assert.Empty(t, e.Label)
}
