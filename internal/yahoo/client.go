// Package yahoo implements the quote/options provider client: rate-limited
// JSON GETs with per-attempt timeouts, bounded retry with exponential
// backoff, and typed failures so callers can tell terminal from transient
// causes.
package yahoo

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"net/url"
	"time"

	"marketetl/internal/util"
)

const userAgent = "marketetl/1.0"

// ErrNoData marks a symbol for which the provider has no records. It is a
// no-data outcome, not a failure.
var ErrNoData = errors.New("no data for symbol")

// ErrorKind classifies a fetch failure.
type ErrorKind int

const (
	KindTransport ErrorKind = iota
	KindTimeout
	KindRateLimited
	KindHTTP
	KindParse
)

// String returns the kind name for logs.
func (k ErrorKind) String() string {
	switch k {
	case KindTransport:
		return "transport"
	case KindTimeout:
		return "timeout"
	case KindRateLimited:
		return "rate_limited"
	case KindHTTP:
		return "http"
	case KindParse:
		return "parse"
	}
	return "unknown"
}

// Error is a typed fetch failure. Status is set for KindHTTP.
type Error struct {
	Kind   ErrorKind
	Status int
	URL    string
	Err    error
}

func (e *Error) Error() string {
	switch e.Kind {
	case KindHTTP:
		return fmt.Sprintf("fetch %s: http %d", e.URL, e.Status)
	default:
		return fmt.Sprintf("fetch %s: %s: %v", e.URL, e.Kind, e.Err)
	}
}

func (e *Error) Unwrap() error { return e.Err }

// Retryable reports whether the failure is transient: timeouts, server-side
// rate limiting, and 5xx responses. Everything else is terminal for the
// call.
func (e *Error) Retryable() bool {
	switch e.Kind {
	case KindTimeout, KindRateLimited:
		return true
	case KindHTTP:
		return e.Status >= 500
	}
	return false
}

// ClientConfig holds construction parameters for Client.
type ClientConfig struct {
	BaseURL     string
	Timeout     time.Duration // per attempt
	MaxRetries  int           // retries after the first attempt
	BackoffBase time.Duration // attempt i waits BackoffBase * 2^i
	Limiter     util.Limiter
	Logger      *slog.Logger
}

// Client performs rate-limited, retrying GETs against the quote provider.
// Safe for concurrent use.
type Client struct {
	httpc       *http.Client
	baseURL     string
	timeout     time.Duration
	maxRetries  int
	backoffBase time.Duration
	limiter     util.Limiter
	log         *slog.Logger
}

// NewClient creates a Client from cfg, filling in usable defaults for any
// zero field.
func NewClient(cfg ClientConfig) *Client {
	if cfg.BaseURL == "" {
		cfg.BaseURL = "https://query1.finance.yahoo.com"
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 30 * time.Second
	}
	if cfg.MaxRetries < 0 {
		cfg.MaxRetries = 0
	}
	if cfg.BackoffBase <= 0 {
		cfg.BackoffBase = time.Second
	}
	if cfg.Limiter == nil {
		cfg.Limiter = util.NewIntervalLimiter(0)
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	transport := &http.Transport{
		Proxy:               http.ProxyFromEnvironment,
		DialContext:         (&net.Dialer{Timeout: 5 * time.Second, KeepAlive: 30 * time.Second}).DialContext,
		MaxIdleConns:        100,
		MaxIdleConnsPerHost: 50,
		ForceAttemptHTTP2:   true,
		IdleConnTimeout:     90 * time.Second,
	}
	return &Client{
		httpc:       &http.Client{Transport: transport},
		baseURL:     cfg.BaseURL,
		timeout:     cfg.Timeout,
		maxRetries:  cfg.MaxRetries,
		backoffBase: cfg.BackoffBase,
		limiter:     cfg.Limiter,
		log:         cfg.Logger.With("component", "yahoo"),
	}
}

// getJSON fetches baseURL+path with params and decodes the body into out.
// Transient failures are retried up to MaxRetries times; the returned error
// is a *Error (or a context error).
func (c *Client) getJSON(ctx context.Context, path string, params url.Values, out any) error {
	u := c.baseURL + path
	if len(params) > 0 {
		u += "?" + params.Encode()
	}

	var lastErr *Error
	for attempt := 0; attempt <= c.maxRetries; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(util.Backoff(c.backoffBase, attempt-1)):
			}
		}
		if err := c.limiter.Wait(ctx); err != nil {
			return err
		}

		lastErr = c.attempt(ctx, u, out)
		if lastErr == nil {
			return nil
		}
		if !lastErr.Retryable() {
			return lastErr
		}
		c.log.Warn("transient fetch failure",
			"url", u,
			"attempt", attempt+1,
			"kind", lastErr.Kind.String(),
			"status", lastErr.Status,
		)
	}
	return lastErr
}

// attempt performs one GET with the per-attempt timeout and classifies the
// outcome.
func (c *Client) attempt(ctx context.Context, u string, out any) *Error {
	actx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(actx, http.MethodGet, u, nil)
	if err != nil {
		return &Error{Kind: KindTransport, URL: u, Err: err}
	}
	req.Header.Set("User-Agent", userAgent)
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpc.Do(req)
	if err != nil {
		var ne net.Error
		if errors.Is(err, context.DeadlineExceeded) || (errors.As(err, &ne) && ne.Timeout()) {
			return &Error{Kind: KindTimeout, URL: u, Err: err}
		}
		return &Error{Kind: KindTransport, URL: u, Err: err}
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusOK:
		// fall through to decode
	case resp.StatusCode == http.StatusTooManyRequests:
		io.Copy(io.Discard, resp.Body)
		return &Error{Kind: KindRateLimited, Status: resp.StatusCode, URL: u}
	default:
		io.Copy(io.Discard, resp.Body)
		return &Error{Kind: KindHTTP, Status: resp.StatusCode, URL: u}
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return &Error{Kind: KindParse, URL: u, Err: err}
	}
	return nil
}
