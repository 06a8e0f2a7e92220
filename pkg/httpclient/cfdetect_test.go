package httpclient

import (
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDetectCloudflare(t *testing.T) {
	tests := []struct {
		name           string
		status         int
		header         http.Header
		body           string
		wantFronted    bool
		wantChallenged bool
		wantHeader     string
	}{
		{
			name:   "plain origin",
			status: http.StatusOK,
			header: http.Header{"Server": {"nginx"}},
		},
		{
			name:        "cf-ray on success",
			status:      http.StatusOK,
			header:      http.Header{"Cf-Ray": {"8a1b2c3d4e5f-AMS"}},
			wantFronted: true,
			wantHeader:  "CF-RAY",
		},
		{
			name:           "server header with challenge status",
			status:         http.StatusServiceUnavailable,
			header:         http.Header{"Server": {"cloudflare"}},
			wantFronted:    true,
			wantChallenged: true,
			wantHeader:     "Server",
		},
		{
			name:           "origin unreachable",
			status:         522,
			header:         http.Header{"Cf-Ray": {"x"}},
			wantFronted:    true,
			wantChallenged: true,
			wantHeader:     "CF-RAY",
		},
		{
			name:           "interstitial body",
			status:         http.StatusOK,
			header:         http.Header{"Server": {"cloudflare"}},
			body:           "<html><title>Just a moment...</title></html>",
			wantFronted:    true,
			wantChallenged: true,
			wantHeader:     "Server",
		},
		{
			name:   "challenge status without cloudflare",
			status: http.StatusForbidden,
			header: http.Header{},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp := &Response{StatusCode: tt.status, Header: tt.header}
			resp.setBuffered([]byte(tt.body))

			sig := DetectCloudflare(resp)

			assert.Equal(t, tt.wantFronted, sig.Fronted)
			assert.Equal(t, tt.wantChallenged, sig.Challenged)
			assert.Equal(t, tt.wantHeader, sig.Header)
		})
	}
}

func TestDetectCloudflare_Nil(t *testing.T) {
	assert.Equal(t, CloudflareSignal{}, DetectCloudflare(nil))
}
