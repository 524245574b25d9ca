package prober

import (
	"context"
	"fmt"
	"net/http"
	"time"
)

// DefaultTimeout bounds a single probe when no timeout is configured.
const DefaultTimeout = 5 * time.Second

// connection pooling limits to prevent resource exhaustion when probing many projects
const (
	defaultMaxIdleConns        = 100
	defaultMaxIdleConnsPerHost = 4
	defaultMaxConnsPerHost     = 4
	defaultIdleConnTimeout     = 60 * time.Second
)

// HTTPProber probes URLs with an HTTP HEAD request.
//
// By default a URL is reachable whenever the request completes, whatever the
// status code: like an opaque cross-origin fetch, only transport failures
// (DNS, refused connection, TLS, timeout) count as unreachable. Use
// [WithStatusCheck] to also treat 4xx/5xx responses as unreachable.
type HTTPProber struct {
	httpClient  *http.Client
	timeout     time.Duration
	statusCheck bool
}

// Option configures an [HTTPProber].
type Option func(*HTTPProber)

// WithTimeout sets the per-probe timeout. Non-positive values are ignored.
func WithTimeout(d time.Duration) Option {
	return func(p *HTTPProber) {
		if d > 0 {
			p.timeout = d
		}
	}
}

// WithStatusCheck makes responses with status >= 400 count as unreachable.
func WithStatusCheck() Option {
	return func(p *HTTPProber) {
		p.statusCheck = true
	}
}

// WithHTTPClient replaces the underlying HTTP client.
func WithHTTPClient(c *http.Client) Option {
	return func(p *HTTPProber) {
		if c != nil {
			p.httpClient = c
		}
	}
}

// NewHTTPProber creates an [HTTPProber].
//
// Timeouts are applied per probe via the request context, not as a global
// client timeout.
func NewHTTPProber(opts ...Option) *HTTPProber {
	p := &HTTPProber{
		httpClient: &http.Client{
			// no default timeout - we use per-request timeouts via context
			Transport: &http.Transport{
				Proxy:               http.ProxyFromEnvironment,
				MaxIdleConns:        defaultMaxIdleConns,
				MaxIdleConnsPerHost: defaultMaxIdleConnsPerHost,
				MaxConnsPerHost:     defaultMaxConnsPerHost,
				IdleConnTimeout:     defaultIdleConnTimeout,
			},
		},
		timeout: DefaultTimeout,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Timeout returns the per-probe timeout.
func (p *HTTPProber) Timeout() time.Duration {
	return p.timeout
}

// Probe sends a HEAD request to url and reports whether it completed.
//
// Probe always returns a Result; failures are captured in Result.Err rather
// than returned separately. The response body is never read.
func (p *HTTPProber) Probe(ctx context.Context, url string) Result {
	ctx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()

	start := time.Now()

	req, err := http.NewRequestWithContext(ctx, http.MethodHead, url, nil)
	if err != nil {
		return Result{
			Latency: time.Since(start),
			Err:     fmt.Errorf("failed to create request: %w", err),
		}
	}
	req.Header.Set("Cache-Control", "no-cache")

	resp, err := p.httpClient.Do(req)
	if err != nil {
		return Result{
			Latency: time.Since(start),
			Err:     fmt.Errorf("request failed: %w", err),
		}
	}
	_ = resp.Body.Close()

	result := Result{
		Reachable:  true,
		StatusCode: resp.StatusCode,
		Latency:    time.Since(start),
	}
	if p.statusCheck && resp.StatusCode >= http.StatusBadRequest {
		result.Reachable = false
		result.Err = fmt.Errorf("unexpected status %d", resp.StatusCode)
	}
	return result
}

// Close closes all idle connections in the prober's connection pool.
// Safe to call multiple times and on a nil receiver.
func (p *HTTPProber) Close() {
	if p == nil || p.httpClient == nil {
		return
	}
	p.httpClient.CloseIdleConnections()
}
