// Package profilelib is the environment-agnostic core of the profile API:
// the upstream fetcher with its retry policy, username handling, and the
// response envelope shared by every entry point.
package profilelib

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"net"
	"net/http"
	"time"
)

// Fetcher looks up a single profile: structured endpoint first, HTML page
// as fallback, both wrapped in a bounded retry loop. It holds no
// per-request state and is safe for concurrent use.
type Fetcher struct {
	cfg    Config
	client *http.Client
	logger *slog.Logger
	rand   Random
	sleep  Sleeper
}

// Option configures a Fetcher.
type Option func(*Fetcher)

// WithHTTPClient sets the client used for upstream calls.
func WithHTTPClient(c *http.Client) Option {
	return func(f *Fetcher) { f.client = c }
}

// WithLogger sets a custom logger.
func WithLogger(l *slog.Logger) Option {
	return func(f *Fetcher) { f.logger = l }
}

// WithRandom replaces the jitter/user-agent randomness source.
func WithRandom(r Random) Option {
	return func(f *Fetcher) { f.rand = r }
}

// WithSleeper replaces the function used for backoff and delays.
func WithSleeper(s Sleeper) Option {
	return func(f *Fetcher) { f.sleep = s }
}

// NewFetcher creates a Fetcher for the given configuration.
func NewFetcher(cfg Config, opts ...Option) (*Fetcher, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	f := &Fetcher{
		cfg:    cfg,
		client: NewHTTPClient(),
		logger: slog.Default(),
		rand:   globalRand{},
		sleep:  sleepContext,
	}
	for _, opt := range opts {
		opt(f)
	}
	return f, nil
}

// NewHTTPClient returns a client tuned for short scraping calls. Per-call
// deadlines come from the request context, not the client.
func NewHTTPClient() *http.Client {
	transport := &http.Transport{
		Proxy: http.ProxyFromEnvironment,
		DialContext: (&net.Dialer{
			Timeout:   5 * time.Second,
			KeepAlive: 30 * time.Second,
		}).DialContext,
		MaxIdleConns:          100,
		IdleConnTimeout:       90 * time.Second,
		TLSHandshakeTimeout:   5 * time.Second,
		ExpectContinueTimeout: 1 * time.Second,
	}
	return &http.Client{Transport: transport}
}

// Config returns the configuration the fetcher was built with.
func (f *Fetcher) Config() Config {
	return f.cfg
}

// Backoff is the wait before the given 1-based attempt, excluding jitter
// and the rate-limit penalty. The first attempt never waits; later waits
// double and saturate instead of overflowing.
func (p RetryPolicy) Backoff(attempt int) time.Duration {
	if attempt <= 1 {
		return 0
	}
	d := p.BaseDelay
	for i := 2; i < attempt; i++ {
		if d > math.MaxInt64/2 {
			return time.Duration(math.MaxInt64)
		}
		d *= 2
	}
	return d
}

// Fetch runs up to Retry.MaxAttempts attempts for an already validated
// username. Terminal classifications stop the loop immediately.
func (f *Fetcher) Fetch(ctx context.Context, username string) Result {
	policy := f.cfg.Retry
	logger := f.logger.With("username", username)

	var errs []AttemptError
	onlyRateLimited := true

	for attempt := 1; attempt <= policy.MaxAttempts; attempt++ {
		if attempt > 1 {
			wait := policy.Backoff(attempt) + randomBetween(f.rand, 0, policy.MaxJitter)
			if err := f.wait(ctx, wait); err != nil {
				errs = append(errs, AttemptError{Attempt: attempt, Error: err.Error()})
				onlyRateLimited = false
				break
			}
		}

		fetchAttempts.Add(1)
		out, err := f.attempt(ctx, username)
		if err == nil {
			if out.Found {
				logger.Debug("profile fetched", "method", out.Method, "attempt", attempt)
				return Result{Success: true, Data: out.Profile, Method: out.Method, Attempt: attempt}
			}
			logger.Debug("profile classified", "code", out.Code, "attempt", attempt)
			return Result{Code: out.Code, Message: out.Message}
		}

		logger.Warn("profile fetch attempt failed", "attempt", attempt, "error", err)
		errs = append(errs, AttemptError{Attempt: attempt, Error: err.Error()})

		rateLimited := errors.Is(err, ErrRateLimited)
		if !rateLimited {
			onlyRateLimited = false
		}
		if rateLimited && attempt < policy.MaxAttempts {
			penalty := randomBetween(f.rand, policy.RateLimitPenalty, policy.RateLimitPenalty+policy.RateLimitJitter)
			if err := f.wait(ctx, penalty); err != nil {
				errs = append(errs, AttemptError{Attempt: attempt, Error: err.Error()})
				onlyRateLimited = false
				break
			}
		}
	}

	code := CodeFetchFailed
	if onlyRateLimited && len(errs) > 0 {
		code = CodeRateLimited
	}
	if len(errs) > policy.ErrorLimit {
		errs = errs[:policy.ErrorLimit]
	}
	return Result{Code: code, Message: code.Message(), Errors: errs}
}

// attempt is one API call followed, when needed, by one HTML call.
func (f *Fetcher) attempt(ctx context.Context, username string) (Outcome, error) {
	policy := f.cfg.Retry
	if err := f.wait(ctx, randomBetween(f.rand, policy.HumanDelayMin, policy.HumanDelayMax)); err != nil {
		return Outcome{}, err
	}

	out, decided, apiErr := f.fetchAPI(ctx, username)
	if decided {
		return out, nil
	}
	if apiErr != nil {
		f.logger.Debug("structured endpoint failed, falling back to profile page", "username", username, "error", apiErr)
	}

	out, err := f.scrapeHTML(ctx, username)
	if err != nil {
		if errors.Is(apiErr, ErrRateLimited) && !errors.Is(err, ErrRateLimited) {
			err = fmt.Errorf("%w (api: %w)", err, ErrRateLimited)
		}
		return Outcome{}, err
	}
	return out, nil
}

func (f *Fetcher) wait(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	return f.sleep(ctx, d)
}
