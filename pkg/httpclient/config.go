package httpclient

import (
	"fmt"
	"log/slog"
	"net/url"
	"time"
)

// Default configuration values.
const (
	DefaultTimeout      = 20 * time.Second
	DefaultMaxRedirects = 10

	// DefaultUserAgent is a desktop Chrome User-Agent.
	DefaultUserAgent = "Mozilla/5.0 (X11; Linux x86_64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/114 Safari/537.36"
)

// Config holds the settings shared by both strategies.
type Config struct {
	// Timeout is the default per-request progress timeout.
	Timeout time.Duration

	// UserAgent is sent with every request.
	UserAgent string

	// MaxRedirects bounds redirect following. Zero disables redirects.
	MaxRedirects int

	// ProxyURL routes requests through an http, https or socks5 proxy.
	ProxyURL string

	// Impersonate enables the Chrome-impersonating strategy ahead of net/http.
	Impersonate bool

	// Logger receives strategy fallback messages.
	Logger *slog.Logger
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() Config {
	return Config{
		Timeout:      DefaultTimeout,
		UserAgent:    DefaultUserAgent,
		MaxRedirects: DefaultMaxRedirects,
		Impersonate:  true,
		Logger:       slog.Default(),
	}
}

func (c Config) proxy() (*url.URL, error) {
	if c.ProxyURL == "" {
		return nil, nil
	}
	u, err := url.Parse(c.ProxyURL)
	if err != nil {
		return nil, fmt.Errorf("parsing proxy url: %w", err)
	}
	switch u.Scheme {
	case "http", "https", "socks5", "socks5h":
		return u, nil
	default:
		return nil, fmt.Errorf("unsupported proxy scheme %q", u.Scheme)
	}
}

func (c Config) withDefaults() Config {
	if c.Timeout <= 0 {
		c.Timeout = DefaultTimeout
	}
	if c.UserAgent == "" {
		c.UserAgent = DefaultUserAgent
	}
	if c.MaxRedirects < 0 {
		c.MaxRedirects = 0
	}
	if c.Logger == nil {
		c.Logger = slog.Default()
	}
	return c
}

// New builds the Selector described by cfg.
func New(cfg Config) (*Selector, error) {
	cfg = cfg.withDefaults()

	plain, err := NewPlain(cfg)
	if err != nil {
		return nil, err
	}

	var capable Strategy
	if cfg.Impersonate {
		imp, err := NewImpersonating(cfg)
		if err != nil {
			return nil, err
		}
		capable = imp
	}

	return NewSelector(capable, plain, cfg.Logger), nil
}
