package cmd

import (
	"fmt"
	"log/slog"

	"github.com/jmylchreest/xtreamctl/internal/diagnostics"
	"github.com/jmylchreest/xtreamctl/internal/probe"
	"github.com/jmylchreest/xtreamctl/internal/service"
	"github.com/jmylchreest/xtreamctl/internal/storage"
	"github.com/jmylchreest/xtreamctl/internal/store"
	"github.com/jmylchreest/xtreamctl/pkg/httpclient"
)

// newManager wires the store, probe engine and output directories from the
// loaded configuration.
func newManager() (*service.Manager, error) {
	cfg := appConfig
	logger := slog.Default()

	root, err := storage.NewSandbox(cfg.Storage.BaseDir)
	if err != nil {
		return nil, fmt.Errorf("initializing storage: %w", err)
	}
	output, err := root.Sub(cfg.Storage.OutputDir)
	if err != nil {
		return nil, fmt.Errorf("initializing output directory: %w", err)
	}
	debugDir, err := root.Sub(cfg.Storage.DebugDir)
	if err != nil {
		return nil, fmt.Errorf("initializing debug directory: %w", err)
	}

	sink := diagnostics.NewFileSink(debugDir,
		diagnostics.WithLogger(logger),
		diagnostics.WithMaxChars(cfg.Diagnostics.MaxChars),
	)

	clientCfg := httpclient.DefaultConfig()
	clientCfg.Timeout = cfg.Probe.Timeout
	clientCfg.MaxRedirects = cfg.Probe.MaxRedirects
	clientCfg.ProxyURL = cfg.Probe.ProxyURL
	clientCfg.Impersonate = cfg.Probe.CloudflareClient
	clientCfg.Logger = logger
	if cfg.Probe.UserAgent != "" {
		clientCfg.UserAgent = cfg.Probe.UserAgent
	}

	selector, err := httpclient.New(clientCfg)
	if err != nil {
		return nil, fmt.Errorf("initializing http client: %w", err)
	}

	engine := probe.NewEngine(selector, sink,
		probe.WithLogger(logger),
		probe.WithTimeout(cfg.Probe.Timeout),
	)

	st := store.New(root, cfg.Storage.ServersFile, logger)

	return service.NewManager(st, engine, output, sink).
		WithLogger(logger).
		WithPlaylistType(cfg.Probe.PlaylistType), nil
}
