// Package config provides configuration management for xtreamctl using Viper.
// It supports configuration from files, environment variables, and defaults.
package config

import (
	"errors"
	"fmt"
	"net/url"
	"path/filepath"
	"strings"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/spf13/viper"

	"github.com/jmylchreest/xtreamctl/pkg/httpclient"
)

// EnvPrefix is the prefix for environment variable overrides.
// Example: XTREAMCTL_PROBE_TIMEOUT=30s.
const EnvPrefix = "XTREAMCTL"

// DefaultUserAgent is a desktop Chrome User-Agent. Many panels reject
// requests that do not look like they come from a browser.
const DefaultUserAgent = httpclient.DefaultUserAgent

// Default configuration values.
const (
	defaultProbeTimeout    = httpclient.DefaultTimeout
	defaultMaxRedirects    = httpclient.DefaultMaxRedirects
	defaultPlaylistType    = "m3u_plus"
	defaultDiagnosticChars = 500000
	defaultLogMaxSizeMB    = 10
	defaultLogMaxBackups   = 3
	defaultLogMaxAgeDays   = 28
	defaultWatchSchedule   = "0 0 */6 * * *"
	defaultWatchTimeout    = 30 * time.Minute
)

// Config holds all configuration for the application.
type Config struct {
	Storage     StorageConfig     `mapstructure:"storage" yaml:"storage"`
	Probe       ProbeConfig       `mapstructure:"probe" yaml:"probe"`
	Diagnostics DiagnosticsConfig `mapstructure:"diagnostics" yaml:"diagnostics"`
	Logging     LoggingConfig     `mapstructure:"logging" yaml:"logging"`
	Watch       WatchConfig       `mapstructure:"watch" yaml:"watch"`
}

// StorageConfig holds the data directory layout.
type StorageConfig struct {
	BaseDir     string `mapstructure:"base_dir" yaml:"base_dir"`
	ServersFile string `mapstructure:"servers_file" yaml:"servers_file"`
	OutputDir   string `mapstructure:"output_dir" yaml:"output_dir"`
	DebugDir    string `mapstructure:"debug_dir" yaml:"debug_dir"`
}

// ProbeConfig controls how remote panels are contacted.
type ProbeConfig struct {
	Timeout time.Duration `mapstructure:"timeout" yaml:"timeout"`
	// UserAgent is sent on every request, including impersonated ones.
	UserAgent string `mapstructure:"user_agent" yaml:"user_agent"`
	// CloudflareClient enables the browser-impersonating client, tried before plain net/http.
	CloudflareClient bool   `mapstructure:"cloudflare_client" yaml:"cloudflare_client"`
	ProxyURL         string `mapstructure:"proxy_url" yaml:"proxy_url"` // http, https or socks5
	MaxRedirects     int    `mapstructure:"max_redirects" yaml:"max_redirects"`
	PlaylistType     string `mapstructure:"playlist_type" yaml:"playlist_type"`
}

// DiagnosticsConfig controls raw response dumps.
type DiagnosticsConfig struct {
	MaxChars int `mapstructure:"max_chars" yaml:"max_chars"`
}

// LoggingConfig holds logging configuration.
type LoggingConfig struct {
	Level      string `mapstructure:"level" yaml:"level"`   // trace, debug, info, warn, error
	Format     string `mapstructure:"format" yaml:"format"` // json, text
	AddSource  bool   `mapstructure:"add_source" yaml:"add_source"`
	TimeFormat string `mapstructure:"time_format" yaml:"time_format"`

	// File enables a rotated log file in addition to stderr.
	File       string `mapstructure:"file" yaml:"file"`
	MaxSizeMB  int    `mapstructure:"max_size_mb" yaml:"max_size_mb"`
	MaxBackups int    `mapstructure:"max_backups" yaml:"max_backups"`
	MaxAgeDays int    `mapstructure:"max_age_days" yaml:"max_age_days"`
	Compress   bool   `mapstructure:"compress" yaml:"compress"`
}

// WatchConfig holds the scheduled refresh configuration.
type WatchConfig struct {
	Schedule   string        `mapstructure:"schedule" yaml:"schedule"` // 6-field cron expression
	JobTimeout time.Duration `mapstructure:"job_timeout" yaml:"job_timeout"`
}

// Load reads configuration from file and environment variables.
// Environment variables take precedence over file configuration.
func Load(configPath string) (*Config, error) {
	v := viper.New()

	SetDefaults(v)

	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		v.SetConfigName(".xtreamctl")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("$HOME")
		v.AddConfigPath("/etc/xtreamctl")
	}

	BindEnv(v)

	if err := v.ReadInConfig(); err != nil {
		var configFileNotFoundError viper.ConfigFileNotFoundError
		if !errors.As(err, &configFileNotFoundError) {
			return nil, fmt.Errorf("reading config file: %w", err)
		}
	}

	return FromViper(v)
}

// BindEnv enables XTREAMCTL_ prefixed environment overrides on v.
func BindEnv(v *viper.Viper) {
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	v.AutomaticEnv()
}

// FromViper unmarshals and validates the configuration held by v.
func FromViper(v *viper.Viper) (*Config, error) {
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshaling config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}

	return &cfg, nil
}

// SetDefaults configures default values for all configuration options.
func SetDefaults(v *viper.Viper) {
	// Storage defaults
	v.SetDefault("storage.base_dir", "./xtream_data")
	v.SetDefault("storage.servers_file", "servers.json")
	v.SetDefault("storage.output_dir", "output")
	v.SetDefault("storage.debug_dir", "debug")

	// Probe defaults
	v.SetDefault("probe.timeout", defaultProbeTimeout)
	v.SetDefault("probe.user_agent", DefaultUserAgent)
	v.SetDefault("probe.cloudflare_client", true)
	v.SetDefault("probe.proxy_url", "")
	v.SetDefault("probe.max_redirects", defaultMaxRedirects)
	v.SetDefault("probe.playlist_type", defaultPlaylistType)

	v.SetDefault("diagnostics.max_chars", defaultDiagnosticChars)

	// Logging defaults
	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "text")
	v.SetDefault("logging.add_source", false)
	v.SetDefault("logging.time_format", time.RFC3339)
	v.SetDefault("logging.file", "")
	v.SetDefault("logging.max_size_mb", defaultLogMaxSizeMB)
	v.SetDefault("logging.max_backups", defaultLogMaxBackups)
	v.SetDefault("logging.max_age_days", defaultLogMaxAgeDays)
	v.SetDefault("logging.compress", false)

	v.SetDefault("watch.schedule", defaultWatchSchedule)
	v.SetDefault("watch.job_timeout", defaultWatchTimeout)
}

// Validate checks the configuration for errors.
func (c *Config) Validate() error {
	if c.Storage.BaseDir == "" {
		return fmt.Errorf("storage.base_dir is required")
	}
	if c.Storage.ServersFile == "" {
		return fmt.Errorf("storage.servers_file is required")
	}

	if c.Probe.Timeout <= 0 {
		return fmt.Errorf("probe.timeout must be positive")
	}
	if c.Probe.MaxRedirects < 0 {
		return fmt.Errorf("probe.max_redirects must not be negative")
	}
	if c.Probe.PlaylistType == "" {
		return fmt.Errorf("probe.playlist_type is required")
	}
	if c.Probe.ProxyURL != "" {
		u, err := url.Parse(c.Probe.ProxyURL)
		if err != nil {
			return fmt.Errorf("probe.proxy_url: %w", err)
		}
		switch u.Scheme {
		case "http", "https", "socks5", "socks5h":
		default:
			return fmt.Errorf("probe.proxy_url scheme must be one of: http, https, socks5")
		}
	}

	if c.Diagnostics.MaxChars < 1 {
		return fmt.Errorf("diagnostics.max_chars must be at least 1")
	}

	validLevels := map[string]bool{"trace": true, "debug": true, "info": true, "warn": true, "error": true}
	if !validLevels[c.Logging.Level] {
		return fmt.Errorf("logging.level must be one of: trace, debug, info, warn, error")
	}
	validFormats := map[string]bool{"json": true, "text": true}
	if !validFormats[c.Logging.Format] {
		return fmt.Errorf("logging.format must be one of: json, text")
	}

	if _, err := ParseSchedule(c.Watch.Schedule); err != nil {
		return fmt.Errorf("watch.schedule: %w", err)
	}
	if c.Watch.JobTimeout < 0 {
		return fmt.Errorf("watch.job_timeout must not be negative")
	}

	return nil
}

// ParseSchedule parses a 6-field cron expression (seconds first) or a
// descriptor such as "@every 1h".
func ParseSchedule(expr string) (cron.Schedule, error) {
	parser := cron.NewParser(cron.Second | cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow | cron.Descriptor)
	schedule, err := parser.Parse(expr)
	if err != nil {
		return nil, fmt.Errorf("parsing cron expression %q: %w", expr, err)
	}
	return schedule, nil
}

// OutputPath returns the full path to the playlist output directory.
func (c *StorageConfig) OutputPath() string {
	return filepath.Join(c.BaseDir, c.OutputDir)
}

// DebugPath returns the full path to the diagnostics directory.
func (c *StorageConfig) DebugPath() string {
	return filepath.Join(c.BaseDir, c.DebugDir)
}
