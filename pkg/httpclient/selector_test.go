package httpclient

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeStrategy struct {
	name  string
	err   error
	calls int
}

func (f *fakeStrategy) Name() string { return f.name }

func (f *fakeStrategy) Do(_ context.Context, _ string, _ Options) Result {
	f.calls++
	if f.err != nil {
		return failed(f.name, f.err)
	}
	return Result{Response: &Response{StatusCode: http.StatusOK, Header: http.Header{}}, Client: f.name}
}

func TestSelector_PrefersCapable(t *testing.T) {
	capable := &fakeStrategy{name: ClientImpersonate}
	plain := &fakeStrategy{name: ClientPlain}

	res := NewSelector(capable, plain, nil).Do(context.Background(), "http://x", Options{})

	require.NoError(t, res.Err)
	assert.Equal(t, ClientImpersonate, res.Client)
	assert.Equal(t, 1, capable.calls)
	assert.Equal(t, 0, plain.calls)
}

func TestSelector_FallsBackOnTransportError(t *testing.T) {
	capable := &fakeStrategy{name: ClientImpersonate, err: errors.New("tls handshake failure")}
	plain := &fakeStrategy{name: ClientPlain}

	res := NewSelector(capable, plain, nil).Do(context.Background(), "http://x", Options{})

	require.NoError(t, res.Err)
	assert.Equal(t, ClientPlain, res.Client)
	assert.Equal(t, 1, plain.calls)
}

func TestSelector_BothFail(t *testing.T) {
	capable := &fakeStrategy{name: ClientImpersonate, err: errors.New("boom")}
	plain := &fakeStrategy{name: ClientPlain, err: errors.New("refused")}

	res := NewSelector(capable, plain, nil).Do(context.Background(), "http://x", Options{})

	require.Error(t, res.Err)
	assert.Equal(t, ClientPlain, res.Client)
	assert.Contains(t, res.Err.Error(), "refused")
}

func TestSelector_NoCapable(t *testing.T) {
	plain := &fakeStrategy{name: ClientPlain}
	sel := NewSelector(nil, plain, nil)

	assert.Equal(t, ClientPlain, sel.Name())
	res := sel.Do(context.Background(), "http://x", Options{})
	require.NoError(t, res.Err)
	assert.Equal(t, ClientPlain, res.Client)
}

func TestSelector_CancelledContextSkipsFallback(t *testing.T) {
	capable := &fakeStrategy{name: ClientImpersonate, err: context.Canceled}
	plain := &fakeStrategy{name: ClientPlain}
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	res := NewSelector(capable, plain, nil).Do(ctx, "http://x", Options{})

	require.Error(t, res.Err)
	assert.Equal(t, 0, plain.calls)
}

func TestNew_WithoutImpersonation(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("ok"))
	}))
	defer server.Close()

	cfg := DefaultConfig()
	cfg.Impersonate = false
	sel, err := New(cfg)
	require.NoError(t, err)
	assert.Equal(t, ClientPlain, sel.Name())

	res := sel.Do(context.Background(), server.URL, Options{Timeout: time.Second})
	require.NoError(t, res.Err)
	assert.Equal(t, ClientPlain, res.Client)
}

func TestNew_InvalidProxy(t *testing.T) {
	cfg := DefaultConfig()
	cfg.ProxyURL = "gopher://proxy"
	_, err := New(cfg)
	assert.Error(t, err)
}

func TestImpersonating_Do(t *testing.T) {
	var gotUA string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotUA = r.Header.Get(HeaderUserAgent)
		w.WriteHeader(http.StatusNotFound)
		w.Write([]byte("nope"))
	}))
	defer server.Close()

	cfg := DefaultConfig()
	cfg.UserAgent = "test-agent/1.0"
	s, err := NewImpersonating(cfg)
	require.NoError(t, err)

	res := s.Do(context.Background(), server.URL, Options{Timeout: 5 * time.Second})

	require.NoError(t, res.Err)
	assert.Equal(t, ClientImpersonate, res.Client)
	assert.Equal(t, http.StatusNotFound, res.Response.StatusCode)
	data, err := res.Response.Bytes()
	require.NoError(t, err)
	assert.Equal(t, "nope", string(data))
	assert.Equal(t, "test-agent/1.0", gotUA)
}

func TestTransportError_Timeout(t *testing.T) {
	assert.True(t, (&TransportError{Client: ClientPlain, Err: context.DeadlineExceeded}).Timeout())
	assert.True(t, (&TransportError{Client: ClientPlain, Err: ErrTimeout}).Timeout())
	assert.False(t, (&TransportError{Client: ClientPlain, Err: errors.New("refused")}).Timeout())
}
