package profilelib

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// #############################################################################
// # Config structs
// #############################################################################

type Config struct {
	Upstream     Upstream    `yaml:"upstream"`
	UserAgents   []string    `yaml:"userAgents"`
	Retry        RetryPolicy `yaml:"retry"`
	Cache        CacheConfig `yaml:"cache"`
	Docs         Docs        `yaml:"docs"`
	ExposeConfig bool        `yaml:"exposeConfig"`
	LogURLs      bool        `yaml:"logURLs"`
	EdgeLocation string      `yaml:"edgeLocation,omitempty"`
}

type Upstream struct {
	BaseURL string        `yaml:"baseURL"`
	AppID   string        `yaml:"appID"`
	ASBDID  string        `yaml:"asbdID"`
	Timeout time.Duration `yaml:"timeout"`
}

// RetryPolicy drives the attempt loop. A zero HumanDelayMax disables the
// pre-attempt delay.
type RetryPolicy struct {
	MaxAttempts      int           `yaml:"maxAttempts"`
	ErrorLimit       int           `yaml:"errorLimit"`
	BaseDelay        time.Duration `yaml:"baseDelay"`
	MaxJitter        time.Duration `yaml:"maxJitter"`
	RateLimitPenalty time.Duration `yaml:"rateLimitPenalty"`
	RateLimitJitter  time.Duration `yaml:"rateLimitJitter"`
	HumanDelayMin    time.Duration `yaml:"humanDelayMin"`
	HumanDelayMax    time.Duration `yaml:"humanDelayMax"`
}

type CacheConfig struct {
	Backend     string        `yaml:"backend"` // none, memory or redis
	RedisURL    string        `yaml:"redisURL,omitempty"`
	Prefix      string        `yaml:"prefix"`
	MaxEntries  int           `yaml:"maxEntries"`
	TTL         time.Duration `yaml:"ttl"`
	NotFoundTTL time.Duration `yaml:"notFoundTTL"`
}

type Docs struct {
	Name     string            `yaml:"name"`
	Version  string            `yaml:"version"`
	Platform string            `yaml:"platform,omitempty"`
	Features []string          `yaml:"features"`
	Credits  map[string]string `yaml:"credits,omitempty"`
}

var defaultUserAgents = []string{
	"Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/122.0.0.0 Safari/537.36",
	"Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/122.0.0.0 Safari/537.36",
	"Mozilla/5.0 (Windows NT 10.0; Win64; x64; rv:123.0) Gecko/20100101 Firefox/123.0",
	"Mozilla/5.0 (X11; Linux x86_64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/122.0.0.0 Safari/537.36",
}

// DefaultConfig returns the built-in policy used when no config file is given.
func DefaultConfig() Config {
	return Config{
		Upstream: Upstream{
			BaseURL: "https://www.instagram.com",
			AppID:   "936619743392459",
			ASBDID:  "129477",
			Timeout: 2500 * time.Millisecond,
		},
		UserAgents: append([]string(nil), defaultUserAgents...),
		Retry: RetryPolicy{
			MaxAttempts:      3,
			ErrorLimit:       3,
			BaseDelay:        time.Second,
			MaxJitter:        500 * time.Millisecond,
			RateLimitPenalty: 2 * time.Second,
			RateLimitJitter:  time.Second,
			HumanDelayMin:    100 * time.Millisecond,
			HumanDelayMax:    400 * time.Millisecond,
		},
		Cache: CacheConfig{
			Backend:     "none",
			Prefix:      "igproxy:",
			MaxEntries:  1024,
			TTL:         10 * time.Minute,
			NotFoundTTL: time.Minute,
		},
		Docs: Docs{
			Name:    "Instagram Profile Info API",
			Version: "2.0.0",
			Features: []string{
				"Structured API with HTML fallback",
				"Account status detection",
				"Smart retry logic",
				"Rate limit handling",
			},
		},
	}
}

// #############################################################################
// # Loading
// #############################################################################

// LoadConfig reads the YAML file at path on top of the defaults and then
// applies environment overrides. An empty path means defaults + env only.
func LoadConfig(path string) (Config, error) {
	cfg := DefaultConfig()

	if path == "" {
		slog.Warn("no config file specified, using built-in defaults. Set CONFIG to load one.")
	} else {
		raw, err := os.ReadFile(path)
		if err != nil {
			return Config{}, fmt.Errorf("failed to read config file '%s': %w", path, err)
		}
		if err := yaml.Unmarshal(raw, &cfg); err != nil {
			return Config{}, fmt.Errorf("syntax error in config file '%s': %w", path, err)
		}
	}

	if err := cfg.applyEnv(); err != nil {
		return Config{}, err
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c *Config) applyEnv() error {
	var errs []error

	c.Upstream.BaseURL = getenv("UPSTREAM_BASE_URL", c.Upstream.BaseURL)
	if v := os.Getenv("HTTP_TIMEOUT_MS"); v != "" {
		ms, err := strconv.Atoi(v)
		if err != nil {
			errs = append(errs, fmt.Errorf("HTTP_TIMEOUT_MS: %w", err))
		} else {
			c.Upstream.Timeout = time.Duration(ms) * time.Millisecond
		}
	}
	if v := os.Getenv("MAX_RETRIES"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			errs = append(errs, fmt.Errorf("MAX_RETRIES: %w", err))
		} else {
			c.Retry.MaxAttempts = n
		}
	}
	if v := os.Getenv("ERROR_LIMIT"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			errs = append(errs, fmt.Errorf("ERROR_LIMIT: %w", err))
		} else {
			c.Retry.ErrorLimit = n
		}
	}
	if os.Getenv("HUMAN_DELAY") == "false" {
		c.Retry.HumanDelayMin, c.Retry.HumanDelayMax = 0, 0
	}

	c.Cache.Backend = getenv("CACHE_BACKEND", c.Cache.Backend)
	c.Cache.RedisURL = getenv("REDIS_URL", c.Cache.RedisURL)
	for key, dst := range map[string]*time.Duration{
		"CACHE_TTL":           &c.Cache.TTL,
		"CACHE_NOT_FOUND_TTL": &c.Cache.NotFoundTTL,
	} {
		if v := os.Getenv(key); v != "" {
			d, err := time.ParseDuration(v)
			if err != nil {
				errs = append(errs, fmt.Errorf("%s: %w", key, err))
				continue
			}
			*dst = d
		}
	}

	if v := os.Getenv("EXPOSE_CONFIG"); v != "" {
		c.ExposeConfig = v == "true"
	}
	if v := os.Getenv("LOG_URLS"); v != "" {
		c.LogURLs = v == "true"
	}
	c.EdgeLocation = getenv("EDGE_LOCATION", c.EdgeLocation)

	if len(errs) > 0 {
		return fmt.Errorf("invalid environment overrides: %w", errors.Join(errs...))
	}
	return nil
}

// maxRetryAttempts caps retry.maxAttempts.
const maxRetryAttempts = 10

// Validate rejects configurations the fetcher cannot run with.
func (c Config) Validate() error {
	if c.Upstream.BaseURL == "" {
		return errors.New("upstream.baseURL required")
	}
	if c.Upstream.Timeout <= 0 {
		return errors.New("upstream.timeout must be > 0")
	}
	if len(c.UserAgents) == 0 {
		return errors.New("userAgents must not be empty")
	}
	if c.Retry.MaxAttempts <= 0 || c.Retry.MaxAttempts > maxRetryAttempts {
		return fmt.Errorf("retry.maxAttempts must be between 1 and %d", maxRetryAttempts)
	}
	if c.Retry.ErrorLimit <= 0 {
		return errors.New("retry.errorLimit must be > 0")
	}
	if c.Retry.HumanDelayMax < c.Retry.HumanDelayMin {
		return errors.New("retry.humanDelayMax must be >= retry.humanDelayMin")
	}
	switch strings.ToLower(c.Cache.Backend) {
	case "", "none", "memory":
	case "redis":
		if c.Cache.RedisURL == "" {
			return errors.New("cache.redisURL required for the redis backend")
		}
	default:
		return fmt.Errorf("unknown cache backend: %s", c.Cache.Backend)
	}
	return nil
}

// YAML renders the effective configuration.
func (c Config) YAML() ([]byte, error) {
	redacted := c
	if redacted.Cache.RedisURL != "" {
		redacted.Cache.RedisURL = "<redacted>"
	}
	return yaml.Marshal(redacted)
}

func getenv(key, fallback string) string {
	if value, ok := os.LookupEnv(key); ok {
		return value
	}
	return fallback
}
