package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func validTestConfig() *Config {
	return &Config{
		Storage: StorageConfig{BaseDir: "./xtream_data", ServersFile: "servers.json", OutputDir: "output", DebugDir: "debug"},
		Probe: ProbeConfig{
			Timeout:      20 * time.Second,
			UserAgent:    DefaultUserAgent,
			MaxRedirects: 10,
			PlaylistType: "m3u_plus",
		},
		Diagnostics: DiagnosticsConfig{MaxChars: 500000},
		Logging:     LoggingConfig{Level: "info", Format: "text"},
		Watch:       WatchConfig{Schedule: "0 0 */6 * * *"},
	}
}

func TestLoad_Defaults(t *testing.T) {
	t.Chdir(t.TempDir())

	cfg, err := Load("")
	require.NoError(t, err)
	require.NotNil(t, cfg)

	assert.Equal(t, "./xtream_data", cfg.Storage.BaseDir)
	assert.Equal(t, "servers.json", cfg.Storage.ServersFile)
	assert.Equal(t, "output", cfg.Storage.OutputDir)
	assert.Equal(t, "debug", cfg.Storage.DebugDir)

	assert.Equal(t, 20*time.Second, cfg.Probe.Timeout)
	assert.Equal(t, DefaultUserAgent, cfg.Probe.UserAgent)
	assert.True(t, cfg.Probe.CloudflareClient)
	assert.Empty(t, cfg.Probe.ProxyURL)
	assert.Equal(t, 10, cfg.Probe.MaxRedirects)
	assert.Equal(t, "m3u_plus", cfg.Probe.PlaylistType)

	assert.Equal(t, 500000, cfg.Diagnostics.MaxChars)

	assert.Equal(t, "info", cfg.Logging.Level)
	assert.Equal(t, "text", cfg.Logging.Format)
	assert.Empty(t, cfg.Logging.File)
	assert.Equal(t, 10, cfg.Logging.MaxSizeMB)

	assert.Equal(t, "0 0 */6 * * *", cfg.Watch.Schedule)
	assert.Equal(t, 30*time.Minute, cfg.Watch.JobTimeout)
}

func TestLoad_FromFile(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "config.yaml")

	configContent := `
storage:
  base_dir: /var/lib/xtreamctl
probe:
  timeout: 45s
  cloudflare_client: false
  proxy_url: socks5://127.0.0.1:1080
diagnostics:
  max_chars: 1000
logging:
  level: debug
  format: json
`
	require.NoError(t, os.WriteFile(configPath, []byte(configContent), 0o600))

	cfg, err := Load(configPath)
	require.NoError(t, err)

	assert.Equal(t, "/var/lib/xtreamctl", cfg.Storage.BaseDir)
	assert.Equal(t, "servers.json", cfg.Storage.ServersFile)
	assert.Equal(t, 45*time.Second, cfg.Probe.Timeout)
	assert.False(t, cfg.Probe.CloudflareClient)
	assert.Equal(t, "socks5://127.0.0.1:1080", cfg.Probe.ProxyURL)
	assert.Equal(t, 1000, cfg.Diagnostics.MaxChars)
	assert.Equal(t, "debug", cfg.Logging.Level)
	assert.Equal(t, "json", cfg.Logging.Format)
}

func TestLoad_EnvOverride(t *testing.T) {
	t.Chdir(t.TempDir())
	t.Setenv("XTREAMCTL_PROBE_TIMEOUT", "5s")
	t.Setenv("XTREAMCTL_STORAGE_BASE_DIR", "/tmp/xc")
	t.Setenv("XTREAMCTL_LOGGING_LEVEL", "warn")

	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, 5*time.Second, cfg.Probe.Timeout)
	assert.Equal(t, "/tmp/xc", cfg.Storage.BaseDir)
	assert.Equal(t, "warn", cfg.Logging.Level)
}

func TestLoad_EnvOverridesFile(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "config.yaml")
	require.NoError(t, os.WriteFile(configPath, []byte("probe:\n  max_redirects: 3\n"), 0o600))

	t.Setenv("XTREAMCTL_PROBE_MAX_REDIRECTS", "7")

	cfg, err := Load(configPath)
	require.NoError(t, err)
	assert.Equal(t, 7, cfg.Probe.MaxRedirects)
}

func TestLoad_InvalidFile(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "config.yaml")
	require.NoError(t, os.WriteFile(configPath, []byte("logging:\n  level: chatty\n"), 0o600))

	_, err := Load(configPath)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "logging.level")
}

func TestFromViper(t *testing.T) {
	v := viper.New()
	SetDefaults(v)
	v.Set("probe.playlist_type", "m3u")

	cfg, err := FromViper(v)
	require.NoError(t, err)
	assert.Equal(t, "m3u", cfg.Probe.PlaylistType)
}

func TestValidate_ValidConfig(t *testing.T) {
	require.NoError(t, validTestConfig().Validate())
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(c *Config)
		wantErr string
	}{
		{"empty base dir", func(c *Config) { c.Storage.BaseDir = "" }, "storage.base_dir"},
		{"empty servers file", func(c *Config) { c.Storage.ServersFile = "" }, "storage.servers_file"},
		{"zero timeout", func(c *Config) { c.Probe.Timeout = 0 }, "probe.timeout"},
		{"negative redirects", func(c *Config) { c.Probe.MaxRedirects = -1 }, "probe.max_redirects"},
		{"empty playlist type", func(c *Config) { c.Probe.PlaylistType = "" }, "probe.playlist_type"},
		{"bad proxy scheme", func(c *Config) { c.Probe.ProxyURL = "ftp://proxy:21" }, "probe.proxy_url"},
		{"zero max chars", func(c *Config) { c.Diagnostics.MaxChars = 0 }, "diagnostics.max_chars"},
		{"bad log level", func(c *Config) { c.Logging.Level = "verbose" }, "logging.level"},
		{"bad log format", func(c *Config) { c.Logging.Format = "xml" }, "logging.format"},
		{"bad schedule", func(c *Config) { c.Watch.Schedule = "every day" }, "watch.schedule"},
		{"five field schedule", func(c *Config) { c.Watch.Schedule = "0 */6 * * *" }, "watch.schedule"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validTestConfig()
			tt.mutate(cfg)
			err := cfg.Validate()
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestValidate_ProxySchemes(t *testing.T) {
	for _, proxy := range []string{"http://p:3128", "https://p:443", "socks5://p:1080", "socks5h://p:1080"} {
		cfg := validTestConfig()
		cfg.Probe.ProxyURL = proxy
		assert.NoError(t, cfg.Validate(), proxy)
	}
}

func TestStorageConfig_Paths(t *testing.T) {
	cfg := StorageConfig{BaseDir: "/data", OutputDir: "output", DebugDir: "debug"}

	assert.Equal(t, filepath.Join("/data", "output"), cfg.OutputPath())
	assert.Equal(t, filepath.Join("/data", "debug"), cfg.DebugPath())
}
