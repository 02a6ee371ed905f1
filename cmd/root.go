package cmd

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/KaramelBytes/titanic-analytics/internal/api"
	cfgpkg "github.com/KaramelBytes/titanic-analytics/internal/config"
	"github.com/KaramelBytes/titanic-analytics/internal/logging"
	"github.com/spf13/cobra"
)

var (
	// Global flags (wired later to config/viper)
	cfgFile string
	debug   bool
	// Backend selection (override config if set)
	flagBackendURL string
	flagSource     string
	flagSnapshot   string
	// Retry/HTTP flags (override config if set)
	flagHTTPTimeoutSec   int
	flagRetryMaxAttempts int
	flagRetryBaseDelayMs int
	flagRetryMaxDelayMs  int

	// Loaded configuration
	cfg *cfgpkg.Global
)

var rootCmd = &cobra.Command{
	Use:   "titanic",
	Short: "Titanic Analytics: survival dashboard and AI copilot",
	Long: `Titanic Analytics explores the Titanic passenger dataset served by an analytics backend.
It runs the web dashboard (serve) and offers the same views in the terminal: summary metrics,
survival breakdowns, the correlation matrix, model results, a paginated data browser and
a chat with the AI copilot that falls back to local answers when the backend is down.`,
	SilenceUsage: true,
}

// Execute is the entry point called by main.main()
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "✗ Error:", err)
		os.Exit(1)
	}
}

func init() {
	// Initialize configuration before executing commands
	cobra.OnInitialize(loadConfig)
	// Persistent global flags available to all subcommands
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is ~/.titanic/config.yaml)")
	rootCmd.PersistentFlags().BoolVar(&debug, "debug", false, "enable debug output")
	rootCmd.PersistentFlags().StringVar(&flagBackendURL, "backend", "", "analytics backend base URL (overrides config)")
	rootCmd.PersistentFlags().StringVar(&flagSource, "source", "", "data source: http | snapshot (overrides config)")
	rootCmd.PersistentFlags().StringVar(&flagSnapshot, "snapshot", "", "snapshot file for --source snapshot (overrides config)")
	rootCmd.PersistentFlags().IntVar(&flagHTTPTimeoutSec, "http-timeout", 0, "HTTP client timeout in seconds (overrides config)")
	rootCmd.PersistentFlags().IntVar(&flagRetryMaxAttempts, "retry-max", 0, "max retry attempts on 429/5xx (overrides config)")
	rootCmd.PersistentFlags().IntVar(&flagRetryBaseDelayMs, "retry-base-ms", 0, "base retry backoff in ms (overrides config)")
	rootCmd.PersistentFlags().IntVar(&flagRetryMaxDelayMs, "retry-max-ms", 0, "max retry backoff cap in ms (overrides config)")
}

func loadConfig() {
	c, err := cfgpkg.Load(cfgFile)
	if err != nil {
		// Non-fatal: allow running commands that don't need config
		fmt.Fprintf(os.Stderr, "⚠ Warning: failed to load config: %v\n", err)
		c = cfgpkg.Default()
	}
	cfg = c

	// Apply CLI overrides if provided
	f := rootCmd.PersistentFlags()
	if f.Changed("backend") && flagBackendURL != "" {
		cfg.BackendURL = flagBackendURL
	}
	if f.Changed("source") && flagSource != "" {
		cfg.Source = flagSource
	}
	if f.Changed("snapshot") && flagSnapshot != "" {
		cfg.SnapshotPath = flagSnapshot
		if !f.Changed("source") {
			cfg.Source = api.SourceSnapshot
		}
	}
	if f.Changed("http-timeout") && flagHTTPTimeoutSec > 0 {
		cfg.HTTPTimeoutSec = flagHTTPTimeoutSec
	}
	if f.Changed("retry-max") && flagRetryMaxAttempts > 0 {
		cfg.RetryMaxAttempts = flagRetryMaxAttempts
	}
	if f.Changed("retry-base-ms") && flagRetryBaseDelayMs > 0 {
		cfg.RetryBaseDelayMs = flagRetryBaseDelayMs
	}
	if f.Changed("retry-max-ms") && flagRetryMaxDelayMs > 0 {
		cfg.RetryMaxDelayMs = flagRetryMaxDelayMs
	}
	if debug {
		cfg.LogLevel = "debug"
	}
}

// newLogger writes leveled logs to stderr so command output stays clean.
func newLogger() *slog.Logger {
	if cfg == nil {
		return logging.New(os.Stderr, "info")
	}
	return logging.New(os.Stderr, cfg.LogLevel)
}

func timeouts() api.Timeouts {
	return api.Timeouts{
		Health:  cfg.HealthTimeout(),
		Context: cfg.ContextTimeout(),
		Chat:    cfg.ChatTimeout(),
	}
}

// openSource builds the configured backend.
func openSource(logger *slog.Logger) (api.Source, error) {
	return api.OpenSource(cfg.Source, api.SourceConfig{
		BaseURL:     cfg.BackendURL,
		HTTPTimeout: cfg.HTTPTimeout(),
		RetryMax:    cfg.RetryMaxAttempts,
		BaseDelay:   cfg.RetryBaseDelay(),
		MaxDelay:    cfg.RetryMaxDelay(),
		Timeouts:    timeouts(),
		Path:        cfg.SnapshotPath,
		Logger:      logger,
	})
}
