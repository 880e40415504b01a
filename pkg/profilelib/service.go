package profilelib

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/andesco/igproxy/pkg/cache"
)

// Service is the environment-agnostic entry point shared by the server,
// the Lambda handler and the edge worker: it validates the username,
// consults the optional cache, coalesces concurrent lookups and builds the
// response envelope.
type Service struct {
	fetcher *Fetcher
	cache   cache.Backend
	ttl     time.Duration
	missTTL time.Duration
	edge    string
	credits map[string]string
	group   singleflight.Group
	logger  *slog.Logger
	now     func() time.Time
}

// NewService wires a fetcher to an optional cache backend (nil disables
// caching).
func NewService(f *Fetcher, backend cache.Backend) *Service {
	cfg := f.Config()
	return &Service{
		fetcher: f,
		cache:   backend,
		ttl:     cfg.Cache.TTL,
		missTTL: cfg.Cache.NotFoundTTL,
		edge:    cfg.EdgeLocation,
		credits: cfg.Docs.Credits,
		logger:  f.logger,
		now:     time.Now,
	}
}

// OpenCache builds the backend named by the config, or nil for "none".
func OpenCache(ctx context.Context, cfg CacheConfig) (cache.Backend, error) {
	switch strings.ToLower(cfg.Backend) {
	case "", "none":
		return nil, nil
	case "memory":
		return cache.NewMemoryCache(cfg.MaxEntries, time.Minute), nil
	case "redis":
		rc, err := cache.NewRedisCache(ctx, cfg.RedisURL, cfg.Prefix)
		if err != nil {
			return nil, err
		}
		return rc, nil
	default:
		return nil, fmt.Errorf("unknown cache backend: %s", cfg.Backend)
	}
}

// Fetcher exposes the underlying fetcher.
func (s *Service) Fetcher() *Fetcher {
	return s.fetcher
}

// Close releases the cache backend.
func (s *Service) Close() error {
	if s.cache == nil {
		return nil
	}
	return s.cache.Close()
}

// Lookup handles a raw username from a request and returns the HTTP status
// and body to send.
func (s *Service) Lookup(ctx context.Context, raw string) (int, Response) {
	start := s.now()

	username, err := ParseUsername(raw)
	if err != nil {
		lookupsRejected.Add(1)
		resp := ErrorResponse(err.Error())
		if errors.Is(err, ErrInvalidUsername) {
			resp.Message = "Usernames are 1-30 characters of a-z, 0-9, '.' and '_'"
		}
		return http.StatusBadRequest, resp
	}

	res, cached := s.Resolve(ctx, username)
	status, resp := Envelope(res, s.now().Sub(start))
	resp.Cached = cached
	if resp.Success {
		resp.Edge = s.edge
		resp.Credits = s.credits
	}
	return status, resp
}

// Resolve returns the result for a validated username and whether it came
// from the cache. The fetch itself is detached from ctx cancellation: once
// started, a retry loop runs to completion.
func (s *Service) Resolve(ctx context.Context, username string) (Result, bool) {
	if res, ok := s.cached(ctx, username); ok {
		return res, true
	}

	v, _, shared := s.group.Do(username, func() (any, error) {
		res := s.fetcher.Fetch(context.WithoutCancel(ctx), username)
		s.store(context.WithoutCancel(ctx), username, res)
		return res, nil
	})
	if shared {
		lookupsCoalesced.Add(1)
		s.logger.Debug("singleflight: shared profile fetch", "username", username)
	}

	res := v.(Result)
	switch {
	case res.Success:
		lookupsFound.Add(1)
	case res.Code.Terminal():
		lookupsTerminal.Add(1)
	default:
		lookupsFailed.Add(1)
	}
	return res, false
}

func cacheKey(username string) string {
	return "user:" + username
}

func (s *Service) cached(ctx context.Context, username string) (Result, bool) {
	if s.cache == nil {
		return Result{}, false
	}
	raw, ok, err := s.cache.Get(ctx, cacheKey(username))
	if err != nil {
		cacheErrorsTotal.Add(1)
		s.logger.Warn("cache read failed", "username", username, "error", err)
		return Result{}, false
	}
	if !ok {
		cacheMissesTotal.Add(1)
		return Result{}, false
	}
	var res Result
	if err := json.Unmarshal(raw, &res); err != nil {
		cacheErrorsTotal.Add(1)
		s.logger.Warn("cache entry corrupt", "username", username, "error", err)
		return Result{}, false
	}
	cacheHitsTotal.Add(1)
	return res, true
}

// store keeps successes and terminal classifications; transient failures
// are never cached.
func (s *Service) store(ctx context.Context, username string, res Result) {
	if s.cache == nil {
		return
	}
	var ttl time.Duration
	switch {
	case res.Success:
		ttl = s.ttl
	case res.Code.Terminal():
		ttl = s.missTTL
	}
	if ttl <= 0 {
		return
	}
	raw, err := json.Marshal(res)
	if err != nil {
		return
	}
	if err := s.cache.Set(ctx, cacheKey(username), raw, ttl); err != nil {
		cacheErrorsTotal.Add(1)
		s.logger.Warn("cache write failed", "username", username, "error", err)
	}
}
