package prober

import (
	"context"
	"time"
)

// Result is the outcome of probing one URL.
type Result struct {
	// Reachable is true when the request completed without a transport failure.
	Reachable bool

	// StatusCode is the HTTP status code, zero if no response was received.
	StatusCode int

	// Latency is the time taken by the probe.
	Latency time.Duration

	// Err describes why the URL was judged unreachable. nil when Reachable.
	Err error
}

// Prober checks whether a URL is reachable.
//
// Implementations must never panic and must honour ctx cancellation.
type Prober interface {
	Probe(ctx context.Context, url string) Result
}

// Func adapts an ordinary function to the [Prober] interface.
type Func func(ctx context.Context, url string) Result

// Probe calls f(ctx, url).
func (f Func) Probe(ctx context.Context, url string) Result {
	return f(ctx, url)
}
