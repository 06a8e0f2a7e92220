package store

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jmylchreest/xtreamctl/internal/storage"
	"github.com/jmylchreest/xtreamctl/pkg/xtream"
)

func newTestStore(t *testing.T) (*Store, *bytes.Buffer) {
	t.Helper()
	sb, err := storage.NewSandbox(t.TempDir())
	require.NoError(t, err)
	var logs bytes.Buffer
	return New(sb, "", slog.New(slog.NewTextHandler(&logs, nil))), &logs
}

func TestStore_LoadMissingFile(t *testing.T) {
	s, logs := newTestStore(t)

	records := s.Load()
	assert.NotNil(t, records)
	assert.Empty(t, records)
	assert.Empty(t, logs.String())
}

func TestStore_SaveAndLoad(t *testing.T) {
	s, _ := newTestStore(t)

	rec := NewServerRecord("My Panel", "panel.example:8080", "alice", "p&ss<1>", time.Unix(1700000000, 0))
	rec.MarkSuccess(time.Unix(1700000100, 0), "http://panel.example:8080", "impersonate")
	rec.UserInfo = xtream.UserInfo{Username: "alice", Status: "Active", ExpDate: "1893456000", ActiveCons: "0", MaxConnections: "2"}
	rec.ServerInfo = json.RawMessage(`{"url":"panel.example","port":"8080"}`)

	require.NoError(t, s.Save([]ServerRecord{rec}))

	got := s.Load()
	require.Len(t, got, 1)
	assert.Equal(t, "My Panel", got[0].Name)
	assert.Equal(t, "p&ss<1>", got[0].Password)
	assert.Equal(t, int64(1700000000), got[0].CreatedAt)
	require.NotNil(t, got[0].LastCheck)
	assert.Equal(t, int64(1700000100), *got[0].LastCheck)
	require.NotNil(t, got[0].LastEndpoint)
	assert.Equal(t, "http://panel.example:8080", *got[0].LastEndpoint)
	assert.Equal(t, "impersonate", *got[0].LastClient)
	assert.Equal(t, rec.UserInfo, got[0].UserInfo)
	assert.JSONEq(t, `{"url":"panel.example","port":"8080"}`, string(got[0].ServerInfo))
}

func TestStore_FileLayout(t *testing.T) {
	s, _ := newTestStore(t)

	rec := NewServerRecord("", "panel.example", "bob", "pw", time.Unix(10, 0))
	require.NoError(t, s.Save([]ServerRecord{rec}))

	data, err := os.ReadFile(s.Path())
	require.NoError(t, err)
	content := string(data)

	assert.True(t, strings.HasPrefix(content, "[\n  {\n    \"name\": \"panel.example\",\n"))
	assert.Contains(t, content, `"last_check": null`)
	assert.Contains(t, content, `"last_endpoint": null`)
	assert.Contains(t, content, `"server_info": {}`)
	assert.True(t, strings.HasSuffix(content, "]\n"))
}

func TestStore_SaveEmpty(t *testing.T) {
	s, _ := newTestStore(t)

	require.NoError(t, s.Save(nil))
	data, err := os.ReadFile(s.Path())
	require.NoError(t, err)
	assert.Equal(t, "[]\n", string(data))
}

func TestStore_LoadCorrupt(t *testing.T) {
	s, logs := newTestStore(t)
	require.NoError(t, os.WriteFile(s.Path(), []byte("{not json"), 0o640))

	records := s.Load()
	assert.NotNil(t, records)
	assert.Empty(t, records)
	assert.Contains(t, logs.String(), "server store is corrupt")
}

func TestStore_LoadFillsDefaults(t *testing.T) {
	s, _ := newTestStore(t)
	legacy := `[
  {"name": "old", "server_url": "x.example", "username": "u", "password": "p",
   "user_info": {"status": "Active", "active_cons": 1, "max_connections": null}},
  {"name": "null info", "server_url": "y.example", "server_info": null, "user_info": {}}
]`
	require.NoError(t, os.WriteFile(s.Path(), []byte(legacy), 0o640))

	records := s.Load()
	require.Len(t, records, 2)

	assert.Nil(t, records[0].LastCheck)
	assert.Nil(t, records[0].LastEndpoint)
	assert.Equal(t, "1", records[0].UserInfo.ActiveCons.String())
	assert.Equal(t, "", records[0].UserInfo.MaxConnections.String())
	assert.Equal(t, "{}", string(records[0].ServerInfo))
	assert.Equal(t, "{}", string(records[1].ServerInfo))
	assert.True(t, records[1].UserInfo.IsZero())
}

func TestServerRecord_Helpers(t *testing.T) {
	rec := NewServerRecord("", "http://panel.example", "u", "p", time.Unix(5, 0))
	assert.Equal(t, "http://panel.example", rec.Name)
	assert.Equal(t, "-", rec.Status())
	assert.Nil(t, rec.LastCheckTime())

	rec.Name = "Living Room TV"
	assert.Equal(t, "Living_Room_TV", rec.SafeName())
	assert.Equal(t, "Living Room TV", rec.DisplayName())

	rec.MarkSuccess(time.Unix(100, 0), "http://panel.example:8080", "http")
	require.NotNil(t, rec.LastEndpoint)
	assert.Equal(t, int64(100), rec.LastCheckTime().Unix())

	rec.MarkFailure(time.Unix(200, 0))
	assert.Nil(t, rec.LastEndpoint)
	assert.Nil(t, rec.LastClient)
	assert.Equal(t, int64(200), *rec.LastCheck)

	rec.SetAccount(&xtream.AuthInfo{UserInfo: xtream.UserInfo{Status: "Banned"}})
	assert.Equal(t, "Banned", rec.Status())
	assert.Equal(t, "{}", string(rec.ServerInfo))
}
