// Package cmd implements the CLI commands for xtreamctl.
package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/jmylchreest/xtreamctl/internal/config"
	"github.com/jmylchreest/xtreamctl/internal/observability"
	"github.com/jmylchreest/xtreamctl/internal/version"
)

var (
	// cfgFile holds the config file path from CLI flag.
	cfgFile string

	// appConfig is the validated configuration, set before any command runs.
	appConfig *config.Config

	// logCloser releases the rotated log file, if any.
	logCloser io.Closer
)

// rootCmd represents the base command when called without any subcommands.
var rootCmd = &cobra.Command{
	Use:     "xtreamctl",
	Short:   "Xtream Codes IPTV credential and playlist manager",
	Version: version.Short(),
	Long: `xtreamctl keeps a list of Xtream Codes panels and their credentials.

It discovers a working endpoint for each panel by trying common scheme and
port combinations, records the account status reported by player_api.php,
downloads M3U playlists and converts, filters and rebuilds them.

Failed attempts are saved to the debug directory for inspection.`,
	SilenceUsage: true,
	// PersistentPreRunE is set in init() to avoid initialization cycle
}

// Execute runs the root command. Interrupt and terminate signals cancel the
// command's context.
func Execute() error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	err := rootCmd.ExecuteContext(ctx)
	if logCloser != nil {
		_ = logCloser.Close()
	}
	if err != nil {
		return fmt.Errorf("executing root command: %w", err)
	}
	return nil
}

func init() {
	cobra.OnInitialize(initConfig)

	// Set PersistentPreRunE here to avoid initialization cycle
	// (initLogging references rootCmd.PersistentFlags)
	rootCmd.PersistentPreRunE = func(_ *cobra.Command, _ []string) error {
		return initLogging()
	}

	// Global flags
	// These flags are not bound to viper. They only override config/env
	// values when explicitly set, preserving flag > env > config > default.
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is $HOME/.xtreamctl.yaml)")
	rootCmd.PersistentFlags().String("log-level", "info", "log level (trace, debug, info, warn, error)")
	rootCmd.PersistentFlags().String("log-format", "text", "log format (text, json)")
}

// initConfig loads .env, then reads in config file and ENV variables if set.
func initConfig() {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		fmt.Fprintln(os.Stderr, "Ignoring .env:", err)
	}

	// Set default configuration values before reading config file
	config.SetDefaults(viper.GetViper())

	if cfgFile != "" {
		// Use config file from the flag.
		viper.SetConfigFile(cfgFile)
	} else {
		if home, err := os.UserHomeDir(); err == nil {
			viper.AddConfigPath(home)
		}
		viper.AddConfigPath(".")
		viper.AddConfigPath("/etc/xtreamctl")
		viper.SetConfigType("yaml")
		viper.SetConfigName(".xtreamctl")
	}

	config.BindEnv(viper.GetViper())

	if err := viper.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if cfgFile != "" || !errors.As(err, &notFound) {
			fmt.Fprintln(os.Stderr, "Error reading config file:", err)
		}
	}
}

// initLogging validates the configuration and installs the default logger.
//
// Priority order (highest to lowest):
//  1. CLI flags (--log-level, --log-format), only if explicitly provided
//  2. Environment variables (XTREAMCTL_LOGGING_LEVEL, XTREAMCTL_LOGGING_FORMAT)
//  3. Config file values
//  4. Built-in defaults (info, text)
func initLogging() error {
	if rootCmd.PersistentFlags().Changed("log-level") {
		level, _ := rootCmd.PersistentFlags().GetString("log-level")
		level = strings.ToLower(level)
		// Handle "warning" as an alias for "warn"
		if level == "warning" {
			level = "warn"
		}
		viper.Set("logging.level", level)
	}
	if rootCmd.PersistentFlags().Changed("log-format") {
		format, _ := rootCmd.PersistentFlags().GetString("log-format")
		viper.Set("logging.format", strings.ToLower(format))
	}

	cfg, err := config.FromViper(viper.GetViper())
	if err != nil {
		return err
	}

	logger, closer := observability.NewLogger(cfg.Logging)
	observability.SetDefault(logger)

	appConfig = cfg
	logCloser = closer
	if used := viper.ConfigFileUsed(); used != "" {
		logger.Debug("using config file", "path", used)
	}
	return nil
}
