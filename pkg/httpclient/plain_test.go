package httpclient

import (
	"bytes"
	"compress/gzip"
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/andybalholm/brotli"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestPlain(t *testing.T, mutate ...func(*Config)) *Plain {
	t.Helper()
	cfg := DefaultConfig()
	cfg.Timeout = 2 * time.Second
	for _, m := range mutate {
		m(&cfg)
	}
	p, err := NewPlain(cfg)
	require.NoError(t, err)
	return p
}

func TestPlain_Do_Buffered(t *testing.T) {
	var gotUA string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotUA = r.Header.Get(HeaderUserAgent)
		w.Write([]byte(`{"user_info":{}}`))
	}))
	defer server.Close()

	res := newTestPlain(t).Do(context.Background(), server.URL, Options{})

	require.NoError(t, res.Err)
	assert.Equal(t, ClientPlain, res.Client)
	assert.Equal(t, http.StatusOK, res.Response.StatusCode)
	assert.True(t, res.Response.Buffered())
	data, err := res.Response.Bytes()
	require.NoError(t, err)
	assert.Equal(t, `{"user_info":{}}`, string(data))
	assert.Equal(t, DefaultUserAgent, gotUA)
}

func TestPlain_Do_NonOKIsNotAnError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "forbidden", http.StatusForbidden)
	}))
	defer server.Close()

	res := newTestPlain(t).Do(context.Background(), server.URL, Options{})

	require.NoError(t, res.Err)
	assert.Equal(t, http.StatusForbidden, res.Response.StatusCode)
	data, _ := res.Response.Bytes()
	assert.Contains(t, string(data), "forbidden")
}

func TestPlain_Do_Stream(t *testing.T) {
	payload := bytes.Repeat([]byte("#EXTINF:-1,x\nhttp://a\n"), 1000)
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write(payload)
	}))
	defer server.Close()

	res := newTestPlain(t).Do(context.Background(), server.URL, Options{Stream: true})
	require.NoError(t, res.Err)
	defer res.Response.Close()

	assert.False(t, res.Response.Buffered())
	assert.Equal(t, int64(len(payload)), res.Response.ContentLength)
	data, err := io.ReadAll(res.Response.Body)
	require.NoError(t, err)
	assert.Equal(t, payload, data)
}

func TestPlain_Do_Decompression(t *testing.T) {
	const body = "#EXTM3U\n#EXTINF:-1,Channel\nhttp://example.com/1.ts\n"

	tests := []struct {
		name     string
		encoding string
		encode   func(w io.Writer) io.WriteCloser
	}{
		{"gzip", EncodingGzip, func(w io.Writer) io.WriteCloser { return gzip.NewWriter(w) }},
		{"brotli", EncodingBrotli, func(w io.Writer) io.WriteCloser { return brotli.NewWriter(w) }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var buf bytes.Buffer
			zw := tt.encode(&buf)
			_, err := zw.Write([]byte(body))
			require.NoError(t, err)
			require.NoError(t, zw.Close())

			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				assert.Contains(t, r.Header.Get(HeaderAcceptEncoding), tt.encoding)
				w.Header().Set(HeaderContentEncoding, tt.encoding)
				w.Write(buf.Bytes())
			}))
			defer server.Close()

			res := newTestPlain(t).Do(context.Background(), server.URL, Options{Stream: true})
			require.NoError(t, res.Err)
			defer res.Response.Close()

			assert.Equal(t, int64(-1), res.Response.ContentLength)
			data, err := io.ReadAll(res.Response.Body)
			require.NoError(t, err)
			assert.Equal(t, body, string(data))
		})
	}
}

func TestPlain_Do_RedirectLimit(t *testing.T) {
	var server *httptest.Server
	server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Redirect(w, r, server.URL+"/loop", http.StatusFound)
	}))
	defer server.Close()

	p := newTestPlain(t, func(c *Config) { c.MaxRedirects = 2 })
	res := p.Do(context.Background(), server.URL, Options{})

	require.Error(t, res.Err)
	var te *TransportError
	require.True(t, errors.As(res.Err, &te))
	assert.Equal(t, ClientPlain, te.Client)
	assert.Contains(t, te.Error(), "stopped after 2 redirects")
}

func TestPlain_Do_FollowsRedirect(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/old", func(w http.ResponseWriter, r *http.Request) {
		http.Redirect(w, r, "/new", http.StatusMovedPermanently)
	})
	mux.HandleFunc("/new", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("moved"))
	})
	server := httptest.NewServer(mux)
	defer server.Close()

	res := newTestPlain(t).Do(context.Background(), server.URL+"/old", Options{})

	require.NoError(t, res.Err)
	data, _ := res.Response.Bytes()
	assert.Equal(t, "moved", string(data))
}

func TestPlain_Do_HeaderTimeout(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-r.Context().Done():
		case <-time.After(2 * time.Second):
		}
	}))
	defer server.Close()

	res := newTestPlain(t).Do(context.Background(), server.URL, Options{Timeout: 50 * time.Millisecond})

	require.Error(t, res.Err)
	var te *TransportError
	require.True(t, errors.As(res.Err, &te))
	assert.True(t, te.Timeout())
	assert.True(t, errors.Is(res.Err, ErrTimeout))
}

func TestPlain_Do_StreamIdleTimeout(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("#EXTM3U\n"))
		w.(http.Flusher).Flush()
		select {
		case <-r.Context().Done():
		case <-time.After(2 * time.Second):
		}
	}))
	defer server.Close()

	res := newTestPlain(t).Do(context.Background(), server.URL, Options{Stream: true, Timeout: 100 * time.Millisecond})
	require.NoError(t, res.Err)
	defer res.Response.Close()

	_, err := io.ReadAll(res.Response.Body)
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrTimeout))
}

func TestPlain_Do_ConnectionRefused(t *testing.T) {
	server := httptest.NewServer(http.NotFoundHandler())
	url := server.URL
	server.Close()

	res := newTestPlain(t).Do(context.Background(), url, Options{})

	require.Error(t, res.Err)
	assert.Nil(t, res.Response)
	assert.Equal(t, ClientPlain, res.Client)
	var te *TransportError
	assert.True(t, errors.As(res.Err, &te))
}

func TestPlain_Do_InvalidURL(t *testing.T) {
	res := newTestPlain(t).Do(context.Background(), "http://[::1", Options{})
	assert.Error(t, res.Err)
}

func TestPlainTransport_Proxy(t *testing.T) {
	cfg := DefaultConfig()

	cfg.ProxyURL = "http://127.0.0.1:3128"
	tr, err := plainTransport(cfg)
	require.NoError(t, err)
	assert.NotNil(t, tr.Proxy)

	cfg.ProxyURL = "socks5://127.0.0.1:1080"
	tr, err = plainTransport(cfg)
	require.NoError(t, err)
	assert.Nil(t, tr.Proxy)
	assert.NotNil(t, tr.DialContext)

	cfg.ProxyURL = "ftp://127.0.0.1"
	_, err = plainTransport(cfg)
	assert.Error(t, err)
}
