//go:build js && wasm

package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"syscall/js"

	"github.com/andesco/igproxy/pkg/profilelib"
)

var serviceInstance *profilelib.Service

// envKeys are copied from the worker bindings into the process environment
// so the regular config overrides apply.
var envKeys = []string{
	"UPSTREAM_BASE_URL", "HTTP_TIMEOUT_MS", "MAX_RETRIES", "ERROR_LIMIT",
	"HUMAN_DELAY", "CACHE_BACKEND", "CACHE_TTL", "CACHE_NOT_FOUND_TTL",
	"EXPOSE_CONFIG", "LOG_URLS",
}

func initService(env js.Value) (*profilelib.Service, error) {
	if serviceInstance != nil {
		return serviceInstance, nil
	}

	for _, key := range envKeys {
		if v := getEnvVar(env, key, ""); v != "" {
			os.Setenv(key, v)
		}
	}

	cfg, err := profilelib.LoadConfig("")
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	// Workers cannot open TCP sockets to Redis; keep results in isolate memory.
	if cfg.Cache.Backend == "redis" {
		slog.Warn("redis cache is not available in workers, using memory")
		cfg.Cache.Backend = "memory"
	}

	// The default transport is backed by the JS fetch API under js/wasm;
	// a custom dialer would bypass it.
	fetcher, err := profilelib.NewFetcher(cfg, profilelib.WithHTTPClient(&http.Client{}))
	if err != nil {
		return nil, fmt.Errorf("failed to initialize fetcher: %w", err)
	}
	backend, err := profilelib.OpenCache(context.Background(), cfg.Cache)
	if err != nil {
		return nil, fmt.Errorf("failed to open cache: %w", err)
	}

	serviceInstance = profilelib.NewService(fetcher, backend)
	return serviceInstance, nil
}

func createJSONResponse(status int, body any) js.Value {
	raw, err := json.Marshal(body)
	if err != nil {
		status = http.StatusInternalServerError
		raw, _ = json.Marshal(profilelib.InternalError(err))
	}
	return createResponse(status, raw, "application/json")
}

// createResponse builds a Workers Response carrying the CORS headers.
func createResponse(status int, body []byte, contentType string) js.Value {
	headers := js.Global().Get("Object").New()
	headers.Set("Access-Control-Allow-Origin", "*")
	headers.Set("Access-Control-Allow-Methods", "GET, OPTIONS")
	headers.Set("Access-Control-Allow-Headers", "Content-Type")
	if contentType == "" {
		contentType = "application/json"
	}
	headers.Set("Content-Type", contentType)

	responseInit := js.Global().Get("Object").New()
	responseInit.Set("status", status)
	responseInit.Set("headers", headers)

	if body == nil {
		return js.Global().Get("Response").New(js.Null(), responseInit)
	}
	return js.Global().Get("Response").New(string(body), responseInit)
}

func getEnvVar(env js.Value, key, fallback string) string {
	if !env.IsUndefined() && !env.Get(key).IsUndefined() {
		return env.Get(key).String()
	}
	return fallback
}
