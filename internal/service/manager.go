// Package service implements the xtreamctl operations on top of the server
// store, the probe engine and the output directories.
package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/jmylchreest/xtreamctl/internal/diagnostics"
	"github.com/jmylchreest/xtreamctl/internal/probe"
	"github.com/jmylchreest/xtreamctl/internal/storage"
	"github.com/jmylchreest/xtreamctl/internal/store"
	"github.com/jmylchreest/xtreamctl/pkg/xtream"
)

// Sentinel errors returned by Manager.
var (
	ErrServerNotFound = errors.New("server not found")
	ErrInvalidServer  = errors.New("invalid server")
	ErrNoMatches      = errors.New("no channels matched")
)

// Prober fetches account details and playlists from a panel.
type Prober interface {
	FetchAccount(ctx context.Context, address, username, password string) probe.AccountResult
	FetchPlaylist(ctx context.Context, address, username, password, listType string, progress probe.ProgressFunc) probe.PlaylistResult
}

// Manager coordinates server records, probing and playlist files.
type Manager struct {
	store        *store.Store
	prober       Prober
	output       *storage.Sandbox
	debug        *diagnostics.FileSink
	playlistType string
	logger       *slog.Logger
	now          func() time.Time
}

// NewManager creates a Manager.
func NewManager(st *store.Store, prober Prober, output *storage.Sandbox, debug *diagnostics.FileSink) *Manager {
	return &Manager{
		store:        st,
		prober:       prober,
		output:       output,
		debug:        debug,
		playlistType: xtream.DefaultPlaylistType,
		logger:       slog.Default(),
		now:          time.Now,
	}
}

// WithLogger sets the logger for the manager.
func (m *Manager) WithLogger(logger *slog.Logger) *Manager {
	m.logger = logger
	return m
}

// WithPlaylistType sets the get.php type used when none is given.
func (m *Manager) WithPlaylistType(listType string) *Manager {
	if listType != "" {
		m.playlistType = listType
	}
	return m
}

// WithClock overrides the time source used for timestamps.
func (m *Manager) WithClock(now func() time.Time) *Manager {
	m.now = now
	return m
}

// resolve converts a 1-based position into a slice index.
func resolve(records []store.ServerRecord, n int) (int, error) {
	if n < 1 || n > len(records) {
		return 0, fmt.Errorf("%w: #%d (have %d)", ErrServerNotFound, n, len(records))
	}
	return n - 1, nil
}
