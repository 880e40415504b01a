package handlers

import (
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/andesco/igproxy/pkg/profilelib"
	"github.com/andesco/igproxy/pkg/profilelib/upstreamtest"
)

func newTestApp(t *testing.T, up *upstreamtest.Server, mutate func(*profilelib.Config)) *fiber.App {
	t.Helper()
	cfg := profilelib.DefaultConfig()
	cfg.Upstream.BaseURL = up.URL
	cfg.Retry.MaxAttempts = 1
	cfg.Retry.HumanDelayMin, cfg.Retry.HumanDelayMax = 0, 0
	if mutate != nil {
		mutate(&cfg)
	}
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	f, err := profilelib.NewFetcher(cfg, profilelib.WithLogger(logger))
	require.NoError(t, err)
	return NewApp(profilelib.NewService(f, nil), AppConfig{Logger: logger})
}

func do(t *testing.T, app *fiber.App, method, target string) (*http.Response, []byte) {
	t.Helper()
	resp, err := app.Test(httptest.NewRequest(method, target, nil), -1)
	require.NoError(t, err)
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return resp, body
}

func decode(t *testing.T, body []byte) map[string]any {
	t.Helper()
	var m map[string]any
	require.NoError(t, json.Unmarshal(body, &m), string(body))
	return m
}

func TestDocs(t *testing.T) {
	up := upstreamtest.NewServer(nil, nil)
	defer up.Close()
	app := newTestApp(t, up, nil)

	for _, path := range []string{"/", "/api"} {
		resp, body := do(t, app, http.MethodGet, path)
		assert.Equal(t, http.StatusOK, resp.StatusCode, path)
		doc := decode(t, body)
		assert.Equal(t, "Instagram Profile Info API", doc["name"])
		assert.Equal(t, "/api/user?username=zuck", doc["example"])
		assert.Equal(t, "Go server", doc["platform"])
	}
	assert.Equal(t, int64(0), up.APICalls.Load())
}

func TestCORSAndPreflight(t *testing.T) {
	up := upstreamtest.NewServer(nil, nil)
	defer up.Close()
	app := newTestApp(t, up, nil)

	resp, body := do(t, app, http.MethodOptions, "/api/user")
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Empty(t, body)
	assert.Equal(t, "*", resp.Header.Get("Access-Control-Allow-Origin"))
	assert.Equal(t, "GET, OPTIONS", resp.Header.Get("Access-Control-Allow-Methods"))
	assert.Equal(t, "Content-Type", resp.Header.Get("Access-Control-Allow-Headers"))

	resp, _ = do(t, app, http.MethodGet, "/api")
	assert.Equal(t, "*", resp.Header.Get("Access-Control-Allow-Origin"))
	assert.Contains(t, resp.Header.Get("Content-Type"), "application/json")
	assert.NotEmpty(t, resp.Header.Get("X-Request-ID"))
}

func TestMethodNotAllowed(t *testing.T) {
	up := upstreamtest.NewServer(nil, nil)
	defer up.Close()
	app := newTestApp(t, up, nil)

	for _, method := range []string{http.MethodPost, http.MethodPut, http.MethodDelete} {
		resp, body := do(t, app, method, "/api/user?username=zuck")
		assert.Equal(t, http.StatusMethodNotAllowed, resp.StatusCode, method)
		assert.Equal(t, "Method not allowed", decode(t, body)["error"])
	}
	assert.Equal(t, int64(0), up.APICalls.Load())
}

func TestUnknownRoute(t *testing.T) {
	up := upstreamtest.NewServer(nil, nil)
	defer up.Close()
	app := newTestApp(t, up, nil)

	resp, body := do(t, app, http.MethodGet, "/nope")
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	m := decode(t, body)
	assert.Equal(t, false, m["success"])
	assert.Equal(t, "Not found", m["error"])
}

func TestLookupBadInput(t *testing.T) {
	up := upstreamtest.NewServer(nil, nil)
	defer up.Close()
	app := newTestApp(t, up, nil)

	resp, body := do(t, app, http.MethodGet, "/api/user")
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Equal(t, "Username required", decode(t, body)["error"])

	resp, body = do(t, app, http.MethodGet, "/api/user?username=bad-name")
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Equal(t, "Invalid username", decode(t, body)["error"])

	assert.Equal(t, int64(0), up.APICalls.Load())
}

func TestLookupQueryAndPathForms(t *testing.T) {
	up := upstreamtest.NewServer(upstreamtest.JSON(upstreamtest.UserJSON("zuck")), nil)
	defer up.Close()
	app := newTestApp(t, up, nil)

	for _, target := range []string{"/api/user?username=zuck", "/api/user/zuck", "/api/user/%40Zuck"} {
		resp, body := do(t, app, http.MethodGet, target)
		require.Equal(t, http.StatusOK, resp.StatusCode, target)
		m := decode(t, body)
		assert.Equal(t, true, m["success"])
		assert.Equal(t, "API", m["method"])
		assert.Equal(t, float64(1), m["attempt"])
		data := m["data"].(map[string]any)
		assert.Equal(t, "zuck", data["username"])
		assert.Regexp(t, `^\d+ms$`, m["responseTime"])
		assert.NotContains(t, m, "code")
	}
	assert.Equal(t, int64(3), up.APICalls.Load())
}

func TestLookupTerminalAndTransient(t *testing.T) {
	t.Run("not found", func(t *testing.T) {
		up := upstreamtest.NewServer(upstreamtest.Status(http.StatusNotFound, ""), nil)
		defer up.Close()
		app := newTestApp(t, up, nil)

		resp, body := do(t, app, http.MethodGet, "/api/user?username=ghost")
		assert.Equal(t, http.StatusNotFound, resp.StatusCode)
		m := decode(t, body)
		assert.Equal(t, "USER_NOT_FOUND", m["code"])
		assert.NotContains(t, m, "data")
	})

	t.Run("exhausted", func(t *testing.T) {
		up := upstreamtest.NewServer(nil, nil)
		defer up.Close()
		app := newTestApp(t, up, nil)

		resp, body := do(t, app, http.MethodGet, "/api/user?username=flaky")
		assert.Equal(t, http.StatusServiceUnavailable, resp.StatusCode)
		m := decode(t, body)
		assert.Equal(t, "FETCH_FAILED", m["code"])
		assert.Len(t, m["debug"], 1)
	})
}

func TestExposeConfig(t *testing.T) {
	up := upstreamtest.NewServer(nil, nil)
	defer up.Close()

	resp, body := do(t, newTestApp(t, up, nil), http.MethodGet, "/config")
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)
	assert.Equal(t, "Config exposure disabled", decode(t, body)["error"])

	app := newTestApp(t, up, func(c *profilelib.Config) {
		c.ExposeConfig = true
		c.Cache.RedisURL = "redis://:hunter2@localhost:6379"
	})
	resp, body = do(t, app, http.MethodGet, "/config")
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "application/x-yaml", resp.Header.Get("Content-Type"))
	assert.Contains(t, string(body), "maxAttempts: 1")
	assert.NotContains(t, string(body), "hunter2")
}

func TestPanicBecomesInternalError(t *testing.T) {
	up := upstreamtest.NewServer(nil, nil)
	defer up.Close()
	app := newTestApp(t, up, nil)
	app.Get("/boom", func(c *fiber.Ctx) error { panic("boom") })

	resp, body := do(t, app, http.MethodGet, "/boom")
	assert.Equal(t, http.StatusInternalServerError, resp.StatusCode)
	m := decode(t, body)
	assert.Equal(t, "INTERNAL_ERROR", m["code"])
	assert.Equal(t, "boom", m["message"])
}

func TestHealthAndMetrics(t *testing.T) {
	up := upstreamtest.NewServer(nil, nil)
	defer up.Close()
	app := newTestApp(t, up, nil)

	resp, body := do(t, app, http.MethodGet, "/health")
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "ok", decode(t, body)["status"])

	resp, body = do(t, app, http.MethodGet, "/metrics")
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, resp.Header.Get("Content-Type"), "text/plain")
	assert.Contains(t, string(body), "igproxy_upstream_api_calls_total")
	assert.Contains(t, string(body), `cache_backend="none"`)
}
