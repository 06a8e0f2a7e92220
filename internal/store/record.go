// Package store persists saved server records as a JSON array.
package store

import (
	"bytes"
	"encoding/json"
	"strings"
	"time"

	"github.com/jmylchreest/xtreamctl/pkg/xtream"
)

// ServerRecord is one saved panel and the last account snapshot fetched
// from it.
type ServerRecord struct {
	Name      string `json:"name"`
	ServerURL string `json:"server_url"`
	Username  string `json:"username"`
	Password  string `json:"password"`
	// CreatedAt is unix seconds.
	CreatedAt    int64           `json:"created_at"`
	LastCheck    *int64          `json:"last_check"`
	LastEndpoint *string         `json:"last_endpoint"`
	LastClient   *string         `json:"last_client"`
	UserInfo     xtream.UserInfo `json:"user_info"`
	// ServerInfo is kept verbatim; it is always a JSON object.
	ServerInfo json.RawMessage `json:"server_info"`
}

// NewServerRecord creates a record with no snapshot. An empty name
// defaults to the server URL.
func NewServerRecord(name, serverURL, username, password string, now time.Time) ServerRecord {
	if name == "" {
		name = serverURL
	}
	return ServerRecord{
		Name:       name,
		ServerURL:  serverURL,
		Username:   username,
		Password:   password,
		CreatedAt:  now.Unix(),
		ServerInfo: json.RawMessage("{}"),
	}
}

// DisplayName returns the label, or the server URL when the label is empty.
func (r *ServerRecord) DisplayName() string {
	if r.Name != "" {
		return r.Name
	}
	return r.ServerURL
}

// SafeName is the label with spaces replaced by underscores, used in output
// file names.
func (r *ServerRecord) SafeName() string {
	name := r.Name
	if name == "" {
		name = "server"
	}
	return strings.ReplaceAll(name, " ", "_")
}

// Status returns the account status from the last snapshot, or "-".
func (r *ServerRecord) Status() string {
	if s := r.UserInfo.Status.String(); s != "" {
		return s
	}
	return "-"
}

// LastCheckTime returns the last check time, or nil if never checked.
func (r *ServerRecord) LastCheckTime() *time.Time {
	if r.LastCheck == nil {
		return nil
	}
	t := time.Unix(*r.LastCheck, 0)
	return &t
}

// MarkSuccess stamps a successful contact through endpoint.
func (r *ServerRecord) MarkSuccess(at time.Time, endpoint, client string) {
	ts := at.Unix()
	r.LastCheck = &ts
	r.LastEndpoint = &endpoint
	r.LastClient = &client
}

// MarkFailure stamps a failed check and forgets the last endpoint.
func (r *ServerRecord) MarkFailure(at time.Time) {
	ts := at.Unix()
	r.LastCheck = &ts
	r.LastEndpoint = nil
	r.LastClient = nil
}

// SetAccount replaces the user and server snapshots.
func (r *ServerRecord) SetAccount(info *xtream.AuthInfo) {
	r.UserInfo = info.UserInfo
	r.ServerInfo = info.ServerInfo
	r.normalize()
}

func (r *ServerRecord) normalize() {
	trimmed := bytes.TrimSpace(r.ServerInfo)
	if len(trimmed) == 0 || trimmed[0] != '{' {
		r.ServerInfo = json.RawMessage("{}")
	}
}
