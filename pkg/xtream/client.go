package xtream

import (
	"net/url"
	"strings"
)

// API endpoint paths.
const (
	PathPlayerAPI = "/player_api.php"
	PathGetM3U    = "/get.php"
)

// Query parameter names.
const (
	paramUsername = "username"
	paramPassword = "password"
	paramType     = "type"
)

// DefaultPlaylistType is the get.php type returning extended attributes.
const DefaultPlaylistType = "m3u_plus"

// Credentials identifies an account on an Xtream Codes panel.
type Credentials struct {
	Username string
	Password string
}

// PlayerAPIURL builds the player_api.php URL returning user and server info.
func PlayerAPIURL(base string, creds Credentials) string {
	return buildURL(base, PathPlayerAPI, creds)
}

// PlaylistURL builds the get.php URL for a playlist of the given type.
// An empty listType selects DefaultPlaylistType.
func PlaylistURL(base string, creds Credentials, listType string) string {
	if listType == "" {
		listType = DefaultPlaylistType
	}
	return buildURL(base, PathGetM3U, creds) + "&" + paramType + "=" + url.QueryEscape(listType)
}

// buildURL emits username before password.
func buildURL(base, path string, creds Credentials) string {
	var u strings.Builder
	u.WriteString(strings.TrimSuffix(base, "/"))
	u.WriteString(path)
	u.WriteString("?" + paramUsername + "=" + url.QueryEscape(creds.Username))
	u.WriteString("&" + paramPassword + "=" + url.QueryEscape(creds.Password))
	return u.String()
}
