package service

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/jmylchreest/xtreamctl/internal/observability"
	"github.com/jmylchreest/xtreamctl/internal/probe"
	"github.com/jmylchreest/xtreamctl/internal/store"
)

// ServerUpdate holds the fields to change on a record. Nil or blank fields
// keep their current value.
type ServerUpdate struct {
	Name      *string
	ServerURL *string
	Username  *string
	Password  *string
}

// RefreshOutcome is the result of refreshing one server.
type RefreshOutcome struct {
	// Index is the 1-based position of the server.
	Index   int
	Server  store.ServerRecord
	Account probe.AccountResult
	Err     error
}

// ListServers returns all saved servers in order.
func (m *Manager) ListServers() []store.ServerRecord {
	return m.store.Load()
}

// GetServer returns the server at 1-based position n.
func (m *Manager) GetServer(n int) (store.ServerRecord, error) {
	records := m.store.Load()
	idx, err := resolve(records, n)
	if err != nil {
		return store.ServerRecord{}, err
	}
	return records[idx], nil
}

// AddServer appends a server and returns it with its 1-based position.
func (m *Manager) AddServer(name, serverURL, username, password string) (store.ServerRecord, int, error) {
	serverURL = strings.TrimSpace(serverURL)
	if serverURL == "" {
		return store.ServerRecord{}, 0, fmt.Errorf("%w: server URL is required", ErrInvalidServer)
	}

	rec := store.NewServerRecord(strings.TrimSpace(name), serverURL, strings.TrimSpace(username), password, m.now())
	records := append(m.store.Load(), rec)
	if err := m.store.Save(records); err != nil {
		return store.ServerRecord{}, 0, fmt.Errorf("adding server: %w", err)
	}

	m.logger.Info("added server",
		slog.String("name", rec.Name),
		slog.String("server_url", rec.ServerURL),
	)
	return rec, len(records), nil
}

// EditServer applies update to the server at position n.
func (m *Manager) EditServer(n int, update ServerUpdate) (store.ServerRecord, error) {
	records := m.store.Load()
	idx, err := resolve(records, n)
	if err != nil {
		return store.ServerRecord{}, err
	}

	rec := &records[idx]
	apply := func(dst *string, v *string) {
		if v != nil && strings.TrimSpace(*v) != "" {
			*dst = strings.TrimSpace(*v)
		}
	}
	apply(&rec.Name, update.Name)
	apply(&rec.ServerURL, update.ServerURL)
	apply(&rec.Username, update.Username)
	if update.Password != nil && *update.Password != "" {
		rec.Password = *update.Password
	}

	if err := m.store.Save(records); err != nil {
		return store.ServerRecord{}, fmt.Errorf("updating server: %w", err)
	}

	m.logger.Info("updated server", slog.Int("index", n), slog.String("name", rec.Name))
	return *rec, nil
}

// DeleteServer removes the server at position n and returns it.
func (m *Manager) DeleteServer(n int) (store.ServerRecord, error) {
	records := m.store.Load()
	idx, err := resolve(records, n)
	if err != nil {
		return store.ServerRecord{}, err
	}

	removed := records[idx]
	records = append(records[:idx], records[idx+1:]...)
	if err := m.store.Save(records); err != nil {
		return store.ServerRecord{}, fmt.Errorf("deleting server: %w", err)
	}

	m.logger.Info("deleted server", slog.Int("index", n), slog.String("name", removed.Name))
	return removed, nil
}

// Refresh fetches account details for the server at position n and stores
// the snapshot. A failed probe still stamps last_check and clears the last
// endpoint; the returned error then wraps probe.ErrNoValidResponse.
func (m *Manager) Refresh(ctx context.Context, n int) (RefreshOutcome, error) {
	records := m.store.Load()
	idx, err := resolve(records, n)
	if err != nil {
		return RefreshOutcome{}, err
	}

	outcome := m.refreshRecord(ctx, &records[idx])
	outcome.Index = n
	if ctx.Err() != nil {
		return outcome, ctx.Err()
	}

	if err := m.store.Save(records); err != nil {
		return outcome, fmt.Errorf("saving refresh: %w", err)
	}
	return outcome, outcome.Err
}

// RefreshAll refreshes every server in order and saves once at the end.
// Individual failures are reported in the outcomes, not as an error.
func (m *Manager) RefreshAll(ctx context.Context) (outcomes []RefreshOutcome, err error) {
	done := observability.TimedOperationWithError(ctx, m.logger, "refresh_all", &err)
	defer done()

	records := m.store.Load()
	outcomes = make([]RefreshOutcome, 0, len(records))
	for i := range records {
		if ctx.Err() != nil {
			break
		}
		outcome := m.refreshRecord(ctx, &records[i])
		outcome.Index = i + 1
		outcomes = append(outcomes, outcome)
	}

	if len(records) > 0 {
		if saveErr := m.store.Save(records); saveErr != nil {
			return outcomes, fmt.Errorf("saving refresh: %w", saveErr)
		}
	}
	return outcomes, ctx.Err()
}

func (m *Manager) refreshRecord(ctx context.Context, rec *store.ServerRecord) RefreshOutcome {
	result := m.prober.FetchAccount(ctx, rec.ServerURL, rec.Username, rec.Password)
	outcome := RefreshOutcome{Account: result}

	switch {
	case result.OK:
		rec.SetAccount(result.Info)
		rec.MarkSuccess(m.now(), result.Endpoint, result.Client)
	case ctx.Err() != nil:
		outcome.Err = ctx.Err()
	default:
		rec.MarkFailure(m.now())
		outcome.Err = fmt.Errorf("refreshing %s: %w", rec.DisplayName(), result.Err())
		m.logger.Warn("refresh failed",
			slog.String("name", rec.DisplayName()),
			slog.Int("attempts", len(result.Attempts)),
		)
	}

	outcome.Server = *rec
	return outcome
}
