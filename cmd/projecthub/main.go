// Package main is the entry point for the projecthub CLI.
//
// projecthub can be embedded as a library (SDK) or run as a standalone
// binary with YAML configuration. This CLI provides the standalone binary.
//
// Usage:
//
//	projecthub serve -c config.yaml      # Start the monitor and HTTP API
//	projecthub validate -c config.yaml   # Validate configuration
//	projecthub project list              # Show stored projects
//	projecthub version                   # Show version info
package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/jpalmerr/projecthub"
	"github.com/jpalmerr/projecthub/config"
	"github.com/jpalmerr/projecthub/internal/logging"
)

// Version information - set at build time via ldflags.
// Example: go build -ldflags "-X main.version=1.0.0"
var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

// loaded by the root PersistentPreRunE for every subcommand
var (
	cfg    *config.Config
	logger *slog.Logger
)

// rootCmd is the base command when called without subcommands.
var rootCmd = &cobra.Command{
	Use:   "projecthub",
	Short: "Track whether your projects are reachable",
	Long: `projecthub keeps a list of projects, each with an optional local
and cloud URL, and periodically checks whether those URLs respond.

Quick start:
  1. Create a config file (projecthub.yaml)
  2. Run: projecthub serve -c projecthub.yaml
  3. Query http://localhost:8080/api/projects

Example config:
  port: 8080
  sweep_interval: 60s
  storage:
    driver: sqlite
    path: ./projecthub.db
  projects:
    - name: Billing
      local_url: http://localhost:3000
      cloud_url: https://billing.example.com`,
	SilenceUsage:      true,
	PersistentPreRunE: loadConfig,
}

func init() {
	rootCmd.PersistentFlags().StringP("config", "c", "", "path to config file")
	rootCmd.PersistentFlags().String("log-level", "", "log level: debug, info, warn, error")
	rootCmd.PersistentFlags().String("log-format", "", "log format: text, json")

	rootCmd.AddCommand(versionCmd)
}

// loadConfig reads the config file, or the defaults when none is given,
// and builds the logger. Flags override config values.
func loadConfig(cmd *cobra.Command, args []string) error {
	configFile, _ := cmd.Flags().GetString("config")
	if configFile == "" {
		cfg = config.Default()
	} else {
		loaded, err := config.Load(configFile)
		if err != nil {
			return fmt.Errorf("failed to load config: %w", err)
		}
		cfg = loaded
	}

	if cmd.Flags().Changed("log-level") {
		cfg.LogLevel, _ = cmd.Flags().GetString("log-level")
	}
	if cmd.Flags().Changed("log-format") {
		cfg.LogFormat, _ = cmd.Flags().GetString("log-format")
	}
	if err := logging.Validate(cfg.LogLevel, cfg.LogFormat); err != nil {
		return err
	}

	logger = logging.New(cfg.LogLevel, cfg.LogFormat, cmd.ErrOrStderr())
	return nil
}

// openHub opens the configured storage and builds a Hub on it. The
// returned cleanup closes both.
func openHub(ctx context.Context) (*projecthub.Hub, func(), error) {
	b, err := config.OpenBackend(ctx, cfg)
	if err != nil {
		return nil, nil, err
	}

	opts, err := config.HubOptions(cfg, b, logger)
	if err != nil {
		_ = b.Close()
		return nil, nil, err
	}

	hub, err := projecthub.New(opts...)
	if err != nil {
		_ = b.Close()
		return nil, nil, fmt.Errorf("failed to create hub: %w", err)
	}

	cleanup := func() {
		hub.Close()
		if err := b.Close(); err != nil {
			logger.Warn("failed to close storage", "error", err)
		}
	}
	return hub, cleanup, nil
}

// Execute runs the root command.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		// Cobra already prints the error, just exit with code 1
		os.Exit(1)
	}
}

func main() {
	Execute()
}

// versionCmd prints version information.
var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Long:  `Print the version, commit hash, and build date of this projecthub binary.`,
	// skip config loading
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error { return nil },
	Run: func(cmd *cobra.Command, args []string) {
		out := cmd.OutOrStdout()
		fmt.Fprintf(out, "projecthub %s\n", version)
		fmt.Fprintf(out, "  commit: %s\n", commit)
		fmt.Fprintf(out, "  built:  %s\n", date)
	},
}
