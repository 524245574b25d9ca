package main

import (
	"context"
	"fmt"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
)

const (
	shutdownTimeout = 10 * time.Second
)

// serveCmd starts the monitor and HTTP API.
var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the monitor and HTTP API",
	Long: `Start projecthub.

The server will:
  - Open the configured storage
  - Register any configured projects not already stored
  - Check every project on the sweep interval
  - Serve the REST API and event stream on the configured port

The server runs until interrupted (Ctrl+C) or receives SIGTERM.

Example:
  projecthub serve -c config.yaml
  projecthub serve --config /etc/projecthub/config.yaml --log-format json`,
	RunE: runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)

	serveCmd.Flags().IntP("port", "p", 0, "override the configured HTTP port")
}

func runServe(cmd *cobra.Command, args []string) error {
	if cmd.Flags().Changed("port") {
		cfg.Port, _ = cmd.Flags().GetInt("port")
		if err := cfg.Validate(); err != nil {
			return fmt.Errorf("invalid configuration: %w", err)
		}
	}

	// set up context with signal handling - cancel on SIGINT/SIGTERM
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	hub, cleanup, err := openHub(ctx)
	if err != nil {
		return err
	}
	defer cleanup()

	logger.Info("config loaded",
		"storage", cfg.Storage.Driver,
		"configured_projects", len(cfg.Projects),
	)

	added, err := hub.Seed(ctx, cfg.Drafts())
	if err != nil {
		return err
	}
	if added > 0 {
		logger.Info("projects registered from config", "count", added)
	}

	// run hub - blocks until context cancelled
	errChan := make(chan error, 1)
	go func() {
		errChan <- hub.Run(ctx)
	}()

	select {
	case err := <-errChan:
		if err != nil {
			return fmt.Errorf("server error: %w", err)
		}
		logger.Info("shutdown complete")
		return nil

	case <-ctx.Done():
		// signal received, wait for graceful shutdown with timeout
		select {
		case err := <-errChan:
			if err != nil {
				return fmt.Errorf("server error: %w", err)
			}
			logger.Info("shutdown complete")
			return nil
		case <-time.After(shutdownTimeout):
			logger.Warn("shutdown timed out",
				"timeout", shutdownTimeout.String(),
				"action", "forcing exit",
			)
			return nil
		}
	}
}
