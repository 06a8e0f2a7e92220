// Package probe discovers a working endpoint for an Xtream Codes panel.
//
// The engine walks the candidates produced by xtream.GenerateEndpoints in
// order, classifies each response and stops at the first usable one. Every
// failed attempt is written to the diagnostics sink.
package probe

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/oklog/ulid/v2"

	"github.com/jmylchreest/xtreamctl/internal/diagnostics"
	"github.com/jmylchreest/xtreamctl/internal/observability"
	"github.com/jmylchreest/xtreamctl/pkg/format"
	"github.com/jmylchreest/xtreamctl/pkg/httpclient"
	"github.com/jmylchreest/xtreamctl/pkg/m3u"
	"github.com/jmylchreest/xtreamctl/pkg/xtream"
)

const (
	// chunkSize is the read size used when streaming playlists.
	chunkSize = 8192

	// progressLogInterval throttles download progress logging.
	progressLogInterval = 1 << 20

	// maxErrorBody bounds how much of a non-200 body is kept.
	maxErrorBody = 8 << 20

	// maxPrealloc caps the buffer reserved up front from Content-Length.
	maxPrealloc = 64 << 20
)

// Sink persists the raw response of a failed attempt and returns the file
// written, or "" when nothing was written.
type Sink interface {
	Save(label, endpoint, body string) string
}

type discardSink struct{}

func (discardSink) Save(string, string, string) string { return "" }

// Engine probes candidate endpoints through a single HTTP strategy.
type Engine struct {
	strategy httpclient.Strategy
	sink     Sink
	logger   *slog.Logger
	timeout  time.Duration
}

// Option configures an Engine.
type Option func(*Engine)

// WithLogger sets the engine logger.
func WithLogger(logger *slog.Logger) Option {
	return func(e *Engine) {
		e.logger = logger
	}
}

// WithTimeout sets the per-request idle timeout. Zero defers to the strategy.
func WithTimeout(d time.Duration) Option {
	return func(e *Engine) {
		e.timeout = d
	}
}

// NewEngine creates an Engine. A nil sink discards diagnostics.
func NewEngine(strategy httpclient.Strategy, sink Sink, opts ...Option) *Engine {
	if sink == nil {
		sink = discardSink{}
	}
	e := &Engine{
		strategy: strategy,
		sink:     sink,
		logger:   slog.Default(),
	}
	for _, opt := range opts {
		opt(e)
	}
	e.logger = observability.WithComponent(e.logger, "probe")
	return e
}

// runLogger returns the logger for one probe run, keyed by the correlation
// id already on ctx or a new ULID. The logger is also stored on the returned
// context.
func (e *Engine) runLogger(ctx context.Context, operation string) (context.Context, *slog.Logger) {
	id := observability.CorrelationIDFromContext(ctx)
	if id == "" {
		id = ulid.Make().String()
		ctx = observability.ContextWithCorrelationID(ctx, id)
	}
	logger := observability.WithCorrelationID(observability.WithOperation(e.logger, operation), id)
	return observability.ContextWithLogger(ctx, logger), logger
}

// FetchAccount authenticates against player_api.php on each candidate until
// one answers 200 with valid JSON.
func (e *Engine) FetchAccount(ctx context.Context, address, username, password string) AccountResult {
	ctx, logger := e.runLogger(ctx, "fetch_account")
	creds := xtream.Credentials{Username: username, Password: password}
	var result AccountResult

	for _, endpoint := range xtream.GenerateEndpoints(address) {
		if ctx.Err() != nil {
			break
		}

		apiURL := xtream.PlayerAPIURL(endpoint, creds)
		logger.InfoContext(ctx, "trying endpoint", slog.String("endpoint", endpoint))

		res := e.strategy.Do(ctx, apiURL, httpclient.Options{Timeout: e.timeout})
		attempt := Attempt{Endpoint: endpoint, Client: res.Client}

		if res.Err != nil {
			attempt.Kind, attempt.Err = KindTransportError, res.Err
			if ctx.Err() == nil {
				logger.WarnContext(ctx, "request failed",
					slog.String("endpoint", endpoint),
					slog.String("client", res.Client),
					slog.String("error", res.Err.Error()),
				)
				attempt.DebugPath = e.save(logger, diagnostics.LabelPlayerAPIError, apiURL, res.Err.Error())
			}
			result.Attempts = append(result.Attempts, attempt)
			continue
		}

		resp := res.Response
		body, err := resp.Bytes()
		resp.Close()
		if err != nil {
			attempt.Kind, attempt.Err = KindTransportError, err
			attempt.DebugPath = e.save(logger, diagnostics.LabelPlayerAPIError, apiURL, string(body)+"\n\n"+err.Error())
			result.Attempts = append(result.Attempts, attempt)
			continue
		}
		attempt.Status = resp.StatusCode
		e.logCloudflare(ctx, logger, endpoint, resp)

		if resp.StatusCode != http.StatusOK {
			attempt.Kind, attempt.Err = KindHTTPStatus, &StatusError{Code: resp.StatusCode}
			logger.WarnContext(ctx, "unexpected status",
				slog.String("endpoint", endpoint),
				slog.String("client", res.Client),
				slog.Int("status", resp.StatusCode),
			)
			attempt.DebugPath = e.save(logger, diagnostics.LabelPlayerAPINon200, apiURL, string(body))
			result.Attempts = append(result.Attempts, attempt)
			continue
		}

		info, err := xtream.DecodeAuthInfo(body)
		if err != nil {
			attempt.Kind, attempt.Err = KindPayloadFormat, fmt.Errorf("%w: %w", ErrBadJSON, err)
			logger.WarnContext(ctx, "invalid account response",
				slog.String("endpoint", endpoint),
				slog.String("error", err.Error()),
			)
			attempt.DebugPath = e.save(logger, diagnostics.LabelPlayerAPIBadJSON, apiURL, string(body))
			result.Attempts = append(result.Attempts, attempt)
			continue
		}

		attempt.Kind = KindOK
		result.Attempts = append(result.Attempts, attempt)
		result.OK = true
		result.Endpoint = endpoint
		result.Client = res.Client
		result.Info = info
		result.Raw = body
		logger.InfoContext(ctx, "account fetched",
			slog.String("endpoint", endpoint),
			slog.String("client", res.Client),
			slog.String("status", info.UserInfo.Status.String()),
		)
		return result
	}

	logger.WarnContext(ctx, "no endpoint answered", slog.Int("attempts", len(result.Attempts)))
	return result
}

// FetchPlaylist downloads get.php from each candidate until one returns an
// M3U document. progress may be nil.
func (e *Engine) FetchPlaylist(ctx context.Context, address, username, password, listType string, progress ProgressFunc) PlaylistResult {
	ctx, logger := e.runLogger(ctx, "fetch_playlist")
	creds := xtream.Credentials{Username: username, Password: password}
	var result PlaylistResult

	for _, endpoint := range xtream.GenerateEndpoints(address) {
		if ctx.Err() != nil {
			break
		}

		playlistURL := xtream.PlaylistURL(endpoint, creds, listType)
		logger.InfoContext(ctx, "trying playlist endpoint", slog.String("endpoint", endpoint))

		res := e.strategy.Do(ctx, playlistURL, httpclient.Options{Timeout: e.timeout, Stream: true})
		attempt := Attempt{Endpoint: endpoint, Client: res.Client}

		if res.Err != nil {
			attempt.Kind, attempt.Err = KindTransportError, res.Err
			if ctx.Err() == nil {
				logger.WarnContext(ctx, "request failed",
					slog.String("endpoint", endpoint),
					slog.String("client", res.Client),
					slog.String("error", res.Err.Error()),
				)
				attempt.DebugPath = e.save(logger, diagnostics.LabelPlaylistError, playlistURL, res.Err.Error())
			}
			result.Attempts = append(result.Attempts, attempt)
			continue
		}

		resp := res.Response
		attempt.Status = resp.StatusCode

		if resp.StatusCode != http.StatusOK {
			body, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
			resp.Close()
			e.logCloudflare(ctx, logger, endpoint, resp)

			attempt.Kind, attempt.Err = KindHTTPStatus, &StatusError{Code: resp.StatusCode}
			logger.WarnContext(ctx, "unexpected status",
				slog.String("endpoint", endpoint),
				slog.String("client", res.Client),
				slog.Int("status", resp.StatusCode),
			)
			attempt.DebugPath = e.save(logger, diagnostics.LabelPlaylistNon200, playlistURL, decodeBody(body, resp.Header.Get(httpclient.HeaderContentType)))
			result.Attempts = append(result.Attempts, attempt)
			continue
		}
		e.logCloudflare(ctx, logger, endpoint, resp)

		raw, err := e.download(ctx, resp, progress)
		resp.Close()
		if err != nil {
			attempt.Kind, attempt.Err = KindTransportError, err
			if ctx.Err() == nil {
				logger.WarnContext(ctx, "download interrupted",
					slog.String("endpoint", endpoint),
					slog.String("received", format.Bytes(int64(len(raw)))),
					slog.String("error", err.Error()),
				)
				partial := decodeBody(raw, resp.Header.Get(httpclient.HeaderContentType))
				attempt.DebugPath = e.save(logger, diagnostics.LabelPlaylistError, playlistURL, partial+"\n\n"+err.Error())
			}
			result.Attempts = append(result.Attempts, attempt)
			continue
		}

		text := decodeBody(raw, resp.Header.Get(httpclient.HeaderContentType))
		if !m3u.HasHeader(text) {
			attempt.Kind, attempt.Err = KindPayloadFormat, ErrNotM3U
			logger.WarnContext(ctx, "response is not an M3U playlist",
				slog.String("endpoint", endpoint),
				slog.String("client", res.Client),
			)
			attempt.DebugPath = e.save(logger, diagnostics.LabelPlaylistNonM3U, playlistURL, text)
			result.Attempts = append(result.Attempts, attempt)
			continue
		}

		attempt.Kind = KindOK
		result.Attempts = append(result.Attempts, attempt)
		result.OK = true
		result.Endpoint = endpoint
		result.Client = res.Client
		result.Text = text
		logger.InfoContext(ctx, "playlist fetched",
			slog.String("endpoint", endpoint),
			slog.String("client", res.Client),
			slog.String("size", format.Bytes(int64(len(raw)))),
		)
		return result
	}

	logger.WarnContext(ctx, "no endpoint returned a playlist", slog.Int("attempts", len(result.Attempts)))
	return result
}

// download reads resp in chunkSize pieces, reporting progress after each.
// On error the bytes received so far are returned with it.
func (e *Engine) download(ctx context.Context, resp *httpclient.Response, progress ProgressFunc) ([]byte, error) {
	logger := observability.LoggerFromContext(ctx)
	total := resp.ContentLength
	if total <= 0 {
		total = -1
	}

	var (
		data    []byte
		nextLog int64 = progressLogInterval
	)
	if total > 0 && total <= maxPrealloc {
		data = make([]byte, 0, total)
	}

	buf := make([]byte, chunkSize)
	for {
		n, err := resp.Body.Read(buf)
		if n > 0 {
			data = append(data, buf[:n]...)
			done := int64(len(data))
			logger.Log(ctx, observability.LevelTrace, "playlist chunk",
				slog.Int("bytes", n),
				slog.Int64("received", done),
			)
			if progress != nil {
				progress(done, total)
			}
			if done >= nextLog {
				logger.DebugContext(ctx, "downloading playlist", slog.String("progress", format.Progress(done, total)))
				nextLog = (done/progressLogInterval + 1) * progressLogInterval
			}
		}
		if errors.Is(err, io.EOF) {
			return data, nil
		}
		if err != nil {
			return data, err
		}
	}
}

func (e *Engine) save(logger *slog.Logger, label, requestURL, body string) string {
	path := e.sink.Save(label, observability.RedactURL(requestURL), body)
	if path != "" {
		logger.Info("saved diagnostic", slog.String("label", label), slog.String("path", path))
	}
	return path
}

func (e *Engine) logCloudflare(ctx context.Context, logger *slog.Logger, endpoint string, resp *httpclient.Response) {
	sig := httpclient.DetectCloudflare(resp)
	if !sig.Fronted {
		return
	}
	logger.DebugContext(ctx, "cloudflare detected",
		slog.String("endpoint", endpoint),
		slog.String("header", sig.Header),
		slog.Bool("challenged", sig.Challenged),
	)
}

// Summary renders attempts as one line each, for error output.
func Summary(attempts []Attempt) string {
	var b strings.Builder
	for _, a := range attempts {
		fmt.Fprintf(&b, "%s [%s] %s", a.Endpoint, a.Client, a.Kind)
		if a.Err != nil {
			fmt.Fprintf(&b, ": %v", a.Err)
		}
		b.WriteByte('\n')
	}
	return b.String()
}
