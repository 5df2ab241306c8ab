// Package resilience wraps outbound adapter calls with rate limiting, a
// circuit breaker and retry logic so that one misbehaving external service
// cannot stall or abort the enrichment pipeline.
package resilience

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/sony/gobreaker/v2"
)

// Predefined errors for resilient calls.
var (
	// ErrCircuitOpen is returned when the circuit breaker short-circuits a
	// call without touching the network.
	ErrCircuitOpen = errors.New("circuit breaker is open")
)

// ClientError is a non-retryable HTTP 4xx response.
type ClientError struct {
	StatusCode int
}

func (e *ClientError) Error() string {
	return fmt.Sprintf("client error: %d %s", e.StatusCode, http.StatusText(e.StatusCode))
}

// ServerError is a retryable HTTP 5xx response.
type ServerError struct {
	StatusCode int
}

func (e *ServerError) Error() string {
	return fmt.Sprintf("server error: %d %s", e.StatusCode, http.StatusText(e.StatusCode))
}

// CallerConfig configures a resilient Caller. One Caller is created per
// adapter; its rate limiter and breaker state are shared by every call to
// that adapter.
type CallerConfig struct {
	// Name identifies the adapter in logs and health reports.
	Name string

	// Timeout bounds each individual HTTP attempt. Default: 10s.
	Timeout time.Duration

	// MinInterval is the minimum spacing between network calls to the
	// adapter. Callers wait their turn. Default: 1s.
	MinInterval time.Duration

	// MaxRetries bounds retry attempts for transient failures. Default: 3.
	MaxRetries uint64

	// InitialInterval and MaxInterval shape the exponential backoff.
	// Defaults: 100ms and 5s.
	InitialInterval time.Duration
	MaxInterval     time.Duration

	// FailureThreshold is the number of consecutive failures after which
	// the circuit opens. Default: 3.
	FailureThreshold uint32

	// OpenTimeout is how long the circuit stays open before a half-open
	// probe is allowed. Default: 30s.
	OpenTimeout time.Duration

	// Observer, if set, receives the outcome of every call for health
	// tracking. A Registry satisfies this.
	Observer Observer
}

// Observer receives call outcomes.
type Observer interface {
	RecordSuccess(name string)
	RecordFailure(name string, err error)
}

// DefaultCallerConfig returns the defaults used by the enrichment adapters.
func DefaultCallerConfig(name string) CallerConfig {
	return CallerConfig{
		Name:             name,
		Timeout:          10 * time.Second,
		MinInterval:      time.Second,
		MaxRetries:       3,
		InitialInterval:  100 * time.Millisecond,
		MaxInterval:      5 * time.Second,
		FailureThreshold: 3,
		OpenTimeout:      30 * time.Second,
	}
}

func (c *CallerConfig) applyDefaults() {
	if c.Timeout == 0 {
		c.Timeout = 10 * time.Second
	}
	if c.MaxRetries == 0 {
		c.MaxRetries = 3
	}
	if c.InitialInterval == 0 {
		c.InitialInterval = 100 * time.Millisecond
	}
	if c.MaxInterval == 0 {
		c.MaxInterval = 5 * time.Second
	}
	if c.FailureThreshold == 0 {
		c.FailureThreshold = 3
	}
	if c.OpenTimeout == 0 {
		c.OpenTimeout = 30 * time.Second
	}
}

// Caller is a rate-limited, circuit-broken, retrying HTTP executor.
type Caller struct {
	httpClient *http.Client
	breaker    *gobreaker.CircuitBreaker[*http.Response]
	config     CallerConfig

	mu       sync.Mutex
	lastCall time.Time
}

// NewCaller creates a Caller from cfg, filling in defaults.
func NewCaller(cfg CallerConfig) *Caller {
	cfg.applyDefaults()

	breaker := gobreaker.NewCircuitBreaker[*http.Response](gobreaker.Settings{
		Name:        cfg.Name,
		MaxRequests: 1, // single half-open probe
		Timeout:     cfg.OpenTimeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= cfg.FailureThreshold
		},
	})

	return &Caller{
		httpClient: &http.Client{Timeout: cfg.Timeout},
		breaker:    breaker,
		config:     cfg,
	}
}

// Do executes req with rate limiting, circuit breaking and retries.
// Transient failures (network errors, 5xx) retry with exponential backoff;
// 4xx responses and an open circuit fail immediately. The response body is
// the caller's to close on success.
func (c *Caller) Do(req *http.Request) (*http.Response, error) {
	ctx := req.Context()

	bo := backoff.NewExponentialBackOff()
	bo.InitialInterval = c.config.InitialInterval
	bo.MaxInterval = c.config.MaxInterval
	bo.MaxElapsedTime = 0 // retries are bounded by WithMaxRetries

	policy := backoff.WithContext(backoff.WithMaxRetries(bo, c.config.MaxRetries), ctx)

	var resp *http.Response
	operation := func() error {
		r, err := c.breaker.Execute(func() (*http.Response, error) { //nolint:bodyclose // closed below on error paths
			if waitErr := c.waitTurn(ctx); waitErr != nil {
				return nil, waitErr
			}
			return c.attempt(ctx, req)
		})

		if err != nil {
			if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
				return backoff.Permanent(ErrCircuitOpen)
			}
			var clientErr *ClientError
			if errors.As(err, &clientErr) {
				return backoff.Permanent(err)
			}
			return err
		}

		resp = r
		return nil
	}

	if err := backoff.Retry(operation, policy); err != nil {
		if c.config.Observer != nil {
			c.config.Observer.RecordFailure(c.config.Name, err)
		}
		return nil, err
	}
	if c.config.Observer != nil {
		c.config.Observer.RecordSuccess(c.config.Name)
	}
	return resp, nil
}

// attempt performs one HTTP exchange, classifying the status for the breaker:
// 4xx is a permanent client error, 5xx a retryable server error.
func (c *Caller) attempt(ctx context.Context, req *http.Request) (*http.Response, error) {
	r, err := c.httpClient.Do(req.Clone(ctx))
	if err != nil {
		return nil, err
	}

	switch {
	case r.StatusCode >= 500:
		r.Body.Close()
		return nil, &ServerError{StatusCode: r.StatusCode}
	case r.StatusCode >= 400:
		r.Body.Close()
		return nil, &ClientError{StatusCode: r.StatusCode}
	default:
		return r, nil
	}
}

// waitTurn blocks until the adapter's minimum inter-call interval has
// elapsed. Concurrent callers reserve successive slots, so calls to one
// adapter are spaced MinInterval apart regardless of which goroutine issues
// them.
func (c *Caller) waitTurn(ctx context.Context) error {
	if c.config.MinInterval <= 0 {
		return nil
	}

	c.mu.Lock()
	now := time.Now()
	next := c.lastCall.Add(c.config.MinInterval)
	var wait time.Duration
	if next.After(now) {
		wait = next.Sub(now)
		c.lastCall = next
	} else {
		c.lastCall = now
	}
	c.mu.Unlock()

	if wait <= 0 {
		return nil
	}

	timer := time.NewTimer(wait)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// State returns the current circuit breaker state.
func (c *Caller) State() gobreaker.State {
	return c.breaker.State()
}

// Counts returns the current circuit breaker counters.
func (c *Caller) Counts() gobreaker.Counts {
	return c.breaker.Counts()
}

// Name returns the adapter name this caller guards.
func (c *Caller) Name() string {
	return c.config.Name
}
