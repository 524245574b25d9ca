package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jpalmerr/projecthub"
)

func main() {
	// start mock services (see mock_server.go)
	go StartMockServer(":9999")
	time.Sleep(100 * time.Millisecond)

	hub, err := projecthub.New(
		projecthub.WithSweepInterval(5*time.Second),
		projecthub.WithProbeTimeout(2*time.Second),
		projecthub.WithPort(8080),
		projecthub.WithStatusCallback(func(r projecthub.StatusResult) {
			if r.Changed() {
				fmt.Printf("  %-8s %-5s %s -> %s\n", r.ProjectName, r.Endpoint, r.Previous, r.Status)
			}
		}),
	)
	if err != nil {
		slog.Error("failed to create hub", "error", err)
		os.Exit(1)
	}

	// set up context with signal handling for graceful shutdown
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	_, err = hub.Seed(ctx, []projecthub.Draft{
		{
			Name:        "users",
			Description: "account service",
			LocalURL:    "http://localhost:9999/svc/users-local",
			CloudURL:    "http://localhost:9999/svc/users-cloud",
		},
		{
			Name:     "orders",
			LocalURL: "http://localhost:9999/svc/orders-local",
		},
		{
			Name:     "GitHub",
			CloudURL: "https://api.github.com",
		},
	})
	if err != nil {
		slog.Error("failed to register projects", "error", err)
		os.Exit(1)
	}

	fmt.Println()
	fmt.Println("  ╔═══════════════════════════════════════════════════════╗")
	fmt.Println("  ║                                                       ║")
	fmt.Println("  ║   projecthub demo                                     ║")
	fmt.Println("  ║                                                       ║")
	fmt.Println("  ║   API:    http://localhost:8080/api/projects          ║")
	fmt.Println("  ║   Events: http://localhost:8080/api/sse               ║")
	fmt.Println("  ║                                                       ║")
	fmt.Println("  ║   Projects:                                           ║")
	fmt.Println("  ║   • users, orders (mock services that flap)           ║")
	fmt.Println("  ║   • GitHub (cloud only)                               ║")
	fmt.Println("  ║                                                       ║")
	fmt.Println("  ║   Press Ctrl+C to stop                                ║")
	fmt.Println("  ║                                                       ║")
	fmt.Println("  ╚═══════════════════════════════════════════════════════╝")
	fmt.Println()

	if err := hub.Run(ctx); err != nil {
		slog.Error("projecthub error", "error", err)
		os.Exit(1)
	}
}
