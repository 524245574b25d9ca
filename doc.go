// Package projecthub tracks whether registered projects are reachable.
//
// Each project optionally exposes a local-environment URL and a
// cloud-environment URL. projecthub probes those URLs on demand and on a
// fixed interval, and keeps the last known status of each in a persistent
// store.
//
// # Quick Start
//
//	hub, _ := projecthub.New(projecthub.WithPort(8080))
//
//	p, err := hub.Add(ctx, projecthub.Draft{
//	    Name:     "billing",
//	    LocalURL: "http://localhost:3000",
//	})
//
//	// Set up graceful shutdown on SIGINT/SIGTERM
//	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
//	defer stop()
//
//	hub.Run(ctx) // blocks until context is cancelled
//
// # Endpoint states
//
// An endpoint without a URL is [StatusDisabled] and is never probed. A newly
// configured URL is [StatusPending] until its first check, after which it is
// [StatusOnline] or [StatusOffline]. A probe is a HEAD request with a bounded
// timeout; any completed response counts as online unless
// [WithStrictStatus] is set.
//
// # Concurrency
//
// Manual refreshes and the background sweep are not mutually excluded. Every
// write to the store is atomic, and by default the last write wins even when
// its probe started earlier. [RejectStale] discards such out-of-order results.
//
// # Architecture
//
// projecthub consists of several internal packages (under internal/):
//
//   - internal/backend: Keyed blob storage (memory, file, SQLite, Postgres, Redis)
//   - internal/store: Project records, validation and change notifications
//   - internal/prober: HEAD-based reachability checks
//   - internal/monitor: Per-project checks and the periodic sweep
//   - internal/server: REST API and Server-Sent Events
//   - internal/logging: slog handler construction for the CLI
//
// The internal packages are not part of the public API and may change
// without notice.
package projecthub
