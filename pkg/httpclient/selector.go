package httpclient

import (
	"context"
	"log/slog"
)

// Selector tries a Cloudflare-capable strategy first, when configured, and
// falls back to the plain strategy after any transport error from it.
type Selector struct {
	capable Strategy
	plain   Strategy
	logger  *slog.Logger
}

// NewSelector creates a Selector. capable may be nil.
func NewSelector(capable, plain Strategy, logger *slog.Logger) *Selector {
	if logger == nil {
		logger = slog.Default()
	}
	return &Selector{capable: capable, plain: plain, logger: logger}
}

// Name returns the identifier of the first strategy tried.
func (s *Selector) Name() string {
	if s.capable != nil {
		return s.capable.Name()
	}
	return s.plain.Name()
}

// Do implements Strategy.
func (s *Selector) Do(ctx context.Context, url string, opts Options) Result {
	if s.capable == nil {
		return s.plain.Do(ctx, url, opts)
	}

	res := s.capable.Do(ctx, url, opts)
	if res.Err == nil || ctx.Err() != nil {
		return res
	}

	s.logger.DebugContext(ctx, "falling back to plain client",
		slog.String("client", res.Client),
		slog.String("url", url),
		slog.String("error", res.Err.Error()),
	)
	return s.plain.Do(ctx, url, opts)
}
