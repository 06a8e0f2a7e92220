package httpclient

import (
	"context"
	"fmt"
	"time"

	"github.com/imroc/req/v3"
)

// Impersonating performs requests with a Chrome TLS and HTTP/2 fingerprint.
type Impersonating struct {
	client  *req.Client
	timeout time.Duration
}

// NewImpersonating creates the Chrome-impersonating strategy.
func NewImpersonating(cfg Config) (*Impersonating, error) {
	cfg = cfg.withDefaults()

	proxyURL, err := cfg.proxy()
	if err != nil {
		return nil, err
	}

	client := req.C().
		ImpersonateChrome().
		SetUserAgent(cfg.UserAgent).
		SetTimeout(0).
		SetRedirectPolicy(req.MaxRedirectPolicy(cfg.MaxRedirects)).
		DisableAutoReadResponse().
		DisableAutoDecode()
	if proxyURL != nil {
		client.SetProxyURL(proxyURL.String())
	}

	return &Impersonating{client: client, timeout: cfg.Timeout}, nil
}

// Name implements Strategy.
func (s *Impersonating) Name() string {
	return ClientImpersonate
}

// Do implements Strategy.
func (s *Impersonating) Do(ctx context.Context, url string, opts Options) Result {
	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = s.timeout
	}
	reqCtx, wd := newWatchdog(ctx, timeout)

	resp, err := s.client.R().SetContext(reqCtx).Get(url)
	if err != nil {
		if resp != nil && resp.Response != nil && resp.Body != nil {
			resp.Body.Close()
		}
		err = wd.wrap(err)
		wd.stop()
		return failed(ClientImpersonate, err)
	}
	if resp.Response == nil {
		wd.stop()
		return failed(ClientImpersonate, fmt.Errorf("empty response"))
	}
	wd.kick()

	contentLength := resp.ContentLength
	if resp.Uncompressed || resp.Header.Get(HeaderContentEncoding) != "" {
		contentLength = -1
	}
	return finish(ClientImpersonate, wd, resp.Response, nil, contentLength, opts)
}
