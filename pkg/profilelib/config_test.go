package profilelib

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	return path
}

func TestLoadConfigDefaults(t *testing.T) {
	cfg, err := LoadConfig("")
	require.NoError(t, err)
	assert.Equal(t, DefaultConfig(), cfg)
	assert.Equal(t, 3, cfg.Retry.MaxAttempts)
	assert.Equal(t, 3, cfg.Retry.ErrorLimit)
}

func TestLoadConfigFile(t *testing.T) {
	path := writeConfig(t, `
upstream:
  baseURL: http://upstream.test
  timeout: 1s
retry:
  maxAttempts: 5
  baseDelay: 250ms
cache:
  backend: memory
  ttl: 30s
docs:
  platform: Test rig
`)
	cfg, err := LoadConfig(path)
	require.NoError(t, err)
	assert.Equal(t, "http://upstream.test", cfg.Upstream.BaseURL)
	assert.Equal(t, time.Second, cfg.Upstream.Timeout)
	assert.Equal(t, 5, cfg.Retry.MaxAttempts)
	assert.Equal(t, 250*time.Millisecond, cfg.Retry.BaseDelay)
	assert.Equal(t, "memory", cfg.Cache.Backend)
	assert.Equal(t, 30*time.Second, cfg.Cache.TTL)
	// untouched keys keep their defaults
	assert.Equal(t, "936619743392459", cfg.Upstream.AppID)
	assert.Equal(t, 3, cfg.Retry.ErrorLimit)
	assert.Equal(t, "Test rig", cfg.DocsFor("Go server").Platform)
}

func TestLoadConfigEnvOverrides(t *testing.T) {
	t.Setenv("UPSTREAM_BASE_URL", "http://env.test")
	t.Setenv("HTTP_TIMEOUT_MS", "750")
	t.Setenv("MAX_RETRIES", "4")
	t.Setenv("HUMAN_DELAY", "false")
	t.Setenv("CACHE_TTL", "2m")
	t.Setenv("EXPOSE_CONFIG", "true")
	t.Setenv("EDGE_LOCATION", "FRA")

	cfg, err := LoadConfig("")
	require.NoError(t, err)
	assert.Equal(t, "http://env.test", cfg.Upstream.BaseURL)
	assert.Equal(t, 750*time.Millisecond, cfg.Upstream.Timeout)
	assert.Equal(t, 4, cfg.Retry.MaxAttempts)
	assert.Zero(t, cfg.Retry.HumanDelayMin)
	assert.Zero(t, cfg.Retry.HumanDelayMax)
	assert.Equal(t, 2*time.Minute, cfg.Cache.TTL)
	assert.True(t, cfg.ExposeConfig)
	assert.Equal(t, "FRA", cfg.EdgeLocation)
}

func TestLoadConfigErrors(t *testing.T) {
	t.Run("missing file", func(t *testing.T) {
		_, err := LoadConfig(filepath.Join(t.TempDir(), "nope.yaml"))
		assert.ErrorContains(t, err, "failed to read config file")
	})
	t.Run("bad yaml", func(t *testing.T) {
		_, err := LoadConfig(writeConfig(t, "retry: [\n"))
		assert.ErrorContains(t, err, "syntax error in config file")
	})
	t.Run("bad env", func(t *testing.T) {
		t.Setenv("MAX_RETRIES", "many")
		t.Setenv("CACHE_TTL", "soon")
		_, err := LoadConfig("")
		assert.ErrorContains(t, err, "MAX_RETRIES")
		assert.ErrorContains(t, err, "CACHE_TTL")
	})
	t.Run("redis without url", func(t *testing.T) {
		t.Setenv("CACHE_BACKEND", "redis")
		_, err := LoadConfig("")
		assert.ErrorContains(t, err, "cache.redisURL")
	})
}

func TestValidate(t *testing.T) {
	mutations := map[string]func(*Config){
		"no base url":       func(c *Config) { c.Upstream.BaseURL = "" },
		"zero timeout":      func(c *Config) { c.Upstream.Timeout = 0 },
		"no user agents":    func(c *Config) { c.UserAgents = nil },
		"zero attempts":     func(c *Config) { c.Retry.MaxAttempts = 0 },
		"zero error limit":  func(c *Config) { c.Retry.ErrorLimit = 0 },
		"too many attempts": func(c *Config) { c.Retry.MaxAttempts = maxRetryAttempts + 1 },
		"inverted delay":    func(c *Config) { c.Retry.HumanDelayMin = time.Second },
		"unknown cache":     func(c *Config) { c.Cache.Backend = "memcached" },
	}
	for name, mutate := range mutations {
		t.Run(name, func(t *testing.T) {
			cfg := DefaultConfig()
			mutate(&cfg)
			assert.Error(t, cfg.Validate())
		})
	}
	assert.NoError(t, DefaultConfig().Validate())
}

func TestConfigYAMLRedactsRedisURL(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Cache.RedisURL = "redis://:secret@localhost:6379/0"

	raw, err := cfg.YAML()
	require.NoError(t, err)
	assert.NotContains(t, string(raw), "secret")

	var back Config
	require.NoError(t, yaml.Unmarshal(raw, &back))
	assert.Equal(t, "<redacted>", back.Cache.RedisURL)
	assert.Equal(t, cfg.Retry, back.Retry)
}
