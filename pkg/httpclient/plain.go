package httpclient

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"time"

	"golang.org/x/net/proxy"
)

// Plain performs requests with net/http.
type Plain struct {
	client    *http.Client
	userAgent string
	timeout   time.Duration
}

// NewPlain creates the net/http strategy.
func NewPlain(cfg Config) (*Plain, error) {
	cfg = cfg.withDefaults()

	transport, err := plainTransport(cfg)
	if err != nil {
		return nil, err
	}

	maxRedirects := cfg.MaxRedirects
	client := &http.Client{
		Transport: transport,
		CheckRedirect: func(req *http.Request, via []*http.Request) error {
			if len(via) > maxRedirects {
				return fmt.Errorf("stopped after %d redirects", maxRedirects)
			}
			return nil
		},
	}

	return &Plain{client: client, userAgent: cfg.UserAgent, timeout: cfg.Timeout}, nil
}

func plainTransport(cfg Config) (*http.Transport, error) {
	transport := http.DefaultTransport.(*http.Transport).Clone()
	transport.ResponseHeaderTimeout = 0

	proxyURL, err := cfg.proxy()
	if err != nil {
		return nil, err
	}
	if proxyURL == nil {
		return transport, nil
	}

	switch proxyURL.Scheme {
	case "socks5", "socks5h":
		dialer, err := proxy.FromURL(proxyURL, proxy.Direct)
		if err != nil {
			return nil, fmt.Errorf("creating socks5 dialer: %w", err)
		}
		transport.Proxy = nil
		if cd, ok := dialer.(proxy.ContextDialer); ok {
			transport.DialContext = cd.DialContext
		} else {
			transport.DialContext = func(_ context.Context, network, addr string) (net.Conn, error) {
				return dialer.Dial(network, addr)
			}
		}
	default:
		transport.Proxy = http.ProxyURL(proxyURL)
	}
	return transport, nil
}

// Name implements Strategy.
func (p *Plain) Name() string {
	return ClientPlain
}

// Do implements Strategy.
func (p *Plain) Do(ctx context.Context, url string, opts Options) Result {
	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = p.timeout
	}
	reqCtx, wd := newWatchdog(ctx, timeout)

	req, err := http.NewRequestWithContext(reqCtx, http.MethodGet, url, nil)
	if err != nil {
		wd.stop()
		return failed(ClientPlain, fmt.Errorf("creating request: %w", err))
	}
	req.Header.Set(HeaderUserAgent, p.userAgent)
	req.Header.Set(HeaderAcceptEncoding, DefaultAcceptEncoding)

	resp, err := p.client.Do(req)
	if err != nil {
		err = wd.wrap(err)
		wd.stop()
		return failed(ClientPlain, err)
	}
	wd.kick()

	body, decoded, err := decompressBody(resp)
	if err != nil {
		resp.Body.Close()
		wd.stop()
		return failed(ClientPlain, err)
	}

	contentLength := resp.ContentLength
	if decoded {
		contentLength = -1
	}
	return finish(ClientPlain, wd, resp, body, contentLength, opts)
}
