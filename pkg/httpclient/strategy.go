// Package httpclient provides the HTTP strategies used to probe IPTV panels.
//
// A Strategy performs a single GET and never panics: every failure is
// returned in Result.Err as a *TransportError, alongside the identifier of
// the client that made the attempt. Non-2xx statuses are not errors.
//
// Two strategies exist. Impersonating presents a Chrome TLS and HTTP/2
// fingerprint and gets through most Cloudflare front-ends; Plain uses
// net/http. A Selector tries the former first and falls back to the latter
// on a transport error.
package httpclient

import (
	"bytes"
	"context"
	"io"
	"net/http"
	"time"
)

// Client identifiers recorded in Result.Client.
const (
	ClientImpersonate = "impersonate"
	ClientPlain       = "http"
)

// HTTP header constants.
const (
	HeaderAcceptEncoding  = "Accept-Encoding"
	HeaderContentEncoding = "Content-Encoding"
	HeaderContentType     = "Content-Type"
	HeaderUserAgent       = "User-Agent"

	EncodingGzip    = "gzip"
	EncodingDeflate = "deflate"
	EncodingBrotli  = "br"

	DefaultAcceptEncoding = "gzip, deflate, br"
)

// Options controls a single request.
type Options struct {
	// Timeout bounds the wait for response headers and, once streaming, the
	// gap between body reads. Zero uses the strategy's configured timeout.
	Timeout time.Duration

	// Stream leaves Response.Body unread for the caller. Otherwise the body
	// is read fully before Do returns.
	Stream bool
}

// Response is a received HTTP response.
type Response struct {
	StatusCode int
	Header     http.Header
	// ContentLength is -1 when unknown, including when the body was decompressed.
	ContentLength int64
	// Body must be closed by the caller.
	Body io.ReadCloser

	buffered []byte
	isRead   bool
}

// Bytes returns the whole body, reading it on first use.
func (r *Response) Bytes() ([]byte, error) {
	if r.isRead {
		return r.buffered, nil
	}
	data, err := io.ReadAll(r.Body)
	if err != nil {
		return data, err
	}
	r.setBuffered(data)
	return data, nil
}

// Buffered reports whether the body is already held in memory.
func (r *Response) Buffered() bool {
	return r.isRead
}

// Close releases the body.
func (r *Response) Close() error {
	if r.Body == nil {
		return nil
	}
	return r.Body.Close()
}

func (r *Response) setBuffered(data []byte) {
	r.buffered = data
	r.isRead = true
	r.Body = io.NopCloser(bytes.NewReader(data))
}

// Result is the outcome of Strategy.Do. Exactly one of Response and Err is set.
type Result struct {
	Response *Response
	Err      error
	Client   string
}

// Strategy performs GET requests.
type Strategy interface {
	// Name returns the client identifier recorded in results.
	Name() string
	Do(ctx context.Context, url string, opts Options) Result
}

func failed(client string, err error) Result {
	return Result{Err: transportError(client, err), Client: client}
}

// finish converts a received response into a Result, reading the body now
// unless streaming was requested. body replaces resp.Body when non-nil.
func finish(client string, wd *watchdog, resp *http.Response, body io.ReadCloser, contentLength int64, opts Options) Result {
	if body == nil {
		body = resp.Body
	}
	out := &Response{
		StatusCode:    resp.StatusCode,
		Header:        resp.Header,
		ContentLength: contentLength,
		Body:          &watchedBody{rc: body, wd: wd},
	}
	if opts.Stream {
		return Result{Response: out, Client: client}
	}

	data, err := io.ReadAll(out.Body)
	out.Body.Close()
	if err != nil {
		return failed(client, err)
	}
	out.setBuffered(data)
	return Result{Response: out, Client: client}
}
