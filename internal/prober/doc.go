// Package prober provides reachability checks for project endpoints.
//
// This package is internal to projecthub. A [Prober] answers one question for
// a URL: did a lightweight request complete without a transport failure?
// Failures are reported as data in [Result], never as errors or panics, so the
// monitor loop stays resilient to flaky endpoints.
//
// The main components are:
//
//   - [Prober]: the interface consumed by the monitor
//   - [HTTPProber]: HEAD-based implementation with per-probe timeouts
//   - [Func]: adapter turning a plain function into a Prober
package prober
