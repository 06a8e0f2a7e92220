package xtream

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"

	orderedmap "github.com/wk8/go-ordered-map/v2"
)

// AuthInfo is the player_api.php response without an action parameter.
type AuthInfo struct {
	UserInfo   UserInfo        `json:"user_info"`
	ServerInfo json.RawMessage `json:"server_info"`
}

// UserInfo is the account snapshot kept for a server. Panels return these
// values as strings, numbers or null; all are normalised to strings.
type UserInfo struct {
	Username       FlexString `json:"username"`
	Status         FlexString `json:"status"`
	ExpDate        FlexString `json:"exp_date"`
	ActiveCons     FlexString `json:"active_cons"`
	MaxConnections FlexString `json:"max_connections"`
}

// IsZero reports whether no field has been populated.
func (u UserInfo) IsZero() bool {
	return u == UserInfo{}
}

// ExpirationTime returns the expiry as a time. ok is false when the panel
// reported no expiry or a non-numeric one.
func (u UserInfo) ExpirationTime() (t time.Time, ok bool) {
	secs, err := strconv.ParseInt(strings.TrimSpace(u.ExpDate.String()), 10, 64)
	if err != nil || secs <= 0 {
		return time.Time{}, false
	}
	return time.Unix(secs, 0), true
}

// emptyObject is stored when a panel omits server_info or sends null.
var emptyObject = json.RawMessage("{}")

// DecodeAuthInfo decodes a player_api.php body. Any valid JSON is accepted.
// Missing or null sections, and payloads that are not objects at all, decode
// to the empty forms.
func DecodeAuthInfo(data []byte) (*AuthInfo, error) {
	trimmed := bytes.TrimSpace(data)
	if !json.Valid(trimmed) {
		return nil, fmt.Errorf("invalid JSON")
	}

	info := &AuthInfo{ServerInfo: emptyObject}
	if !isObject(trimmed) {
		return info, nil
	}

	var raw struct {
		UserInfo   json.RawMessage `json:"user_info"`
		ServerInfo json.RawMessage `json:"server_info"`
	}
	if err := json.Unmarshal(trimmed, &raw); err != nil {
		return nil, fmt.Errorf("decoding auth info: %w", err)
	}

	if isObject(raw.UserInfo) {
		if err := json.Unmarshal(raw.UserInfo, &info.UserInfo); err != nil {
			return nil, fmt.Errorf("decoding user_info: %w", err)
		}
	}
	if isObject(raw.ServerInfo) {
		info.ServerInfo = raw.ServerInfo
	}
	return info, nil
}

func isObject(raw json.RawMessage) bool {
	trimmed := bytes.TrimSpace(raw)
	return len(trimmed) > 0 && trimmed[0] == '{'
}

// ServerInfoFields decodes a server_info snapshot preserving key order.
// Values keep their JSON types.
func ServerInfoFields(raw json.RawMessage) (*orderedmap.OrderedMap[string, any], error) {
	fields := orderedmap.New[string, any]()
	if len(bytes.TrimSpace(raw)) == 0 {
		return fields, nil
	}
	if err := json.Unmarshal(raw, fields); err != nil {
		return nil, fmt.Errorf("decoding server_info: %w", err)
	}
	return fields, nil
}

// FlexString handles JSON values that may be strings, numbers, booleans or
// null. Null decodes to "", any other non-string keeps its JSON text.
type FlexString string

// String returns the string value.
func (f FlexString) String() string {
	return string(f)
}

// UnmarshalJSON implements json.Unmarshaler.
func (f *FlexString) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err == nil {
		*f = FlexString(s)
		return nil
	}

	trimmed := string(bytes.TrimSpace(data))
	if trimmed == "null" {
		*f = ""
		return nil
	}
	*f = FlexString(trimmed)
	return nil
}
