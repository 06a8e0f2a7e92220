package httpclient

import (
	"bytes"
	"strings"
)

// cfResponseHeaders is the set of response headers that indicate Cloudflare.
var cfResponseHeaders = []string{
	"CF-RAY",
	"CF-Cache-Status",
	"CF-Request-ID",
	"CF-Worker",
}

// cfChallengeStatuses are the statuses Cloudflare answers with when it blocks
// or challenges a client, or cannot reach the origin.
var cfChallengeStatuses = MustParseStatusCodes("403,503,520-524")

// cfChallengeMarkers appear in Cloudflare interstitial pages.
var cfChallengeMarkers = [][]byte{
	[]byte("cf-browser-verification"),
	[]byte("cf_chl_opt"),
	[]byte("challenge-platform"),
	[]byte("<title>Just a moment...</title>"),
	[]byte("Attention Required! | Cloudflare"),
}

// CloudflareSignal describes what DetectCloudflare found.
type CloudflareSignal struct {
	// Fronted is true when the response passed through Cloudflare.
	Fronted bool
	// Challenged is true when Cloudflare blocked or challenged the request.
	Challenged bool
	// Header names the header that triggered detection.
	Header string
	Value  string
}

// DetectCloudflare inspects a response for Cloudflare. The body is only
// examined when it is already buffered, so streaming responses are left
// untouched.
func DetectCloudflare(resp *Response) CloudflareSignal {
	var sig CloudflareSignal
	if resp == nil {
		return sig
	}

	for _, h := range cfResponseHeaders {
		if v := resp.Header.Get(h); v != "" {
			sig.Fronted, sig.Header, sig.Value = true, h, v
			break
		}
	}
	if !sig.Fronted {
		if server := resp.Header.Get("Server"); strings.Contains(strings.ToLower(server), "cloudflare") {
			sig.Fronted, sig.Header, sig.Value = true, "Server", server
		}
	}
	if !sig.Fronted {
		return sig
	}

	if cfChallengeStatuses.Contains(resp.StatusCode) {
		sig.Challenged = true
		return sig
	}
	if resp.Buffered() {
		for _, marker := range cfChallengeMarkers {
			if bytes.Contains(resp.buffered, marker) {
				sig.Challenged = true
				break
			}
		}
	}
	return sig
}
