package handlers

import (
	"fmt"
	"runtime"
	"sync/atomic"
	"time"

	"github.com/andesco/igproxy/pkg/profilelib"

	"github.com/gofiber/fiber/v2"
)

// HTTP metrics
var (
	httpRequestsTotal atomic.Int64
	httpErrorsTotal   atomic.Int64
)

var serverStartTime = time.Now()

type metric struct {
	name, help, kind string
	value            int64
}

// Metrics serves Prometheus-compatible text metrics.
func Metrics(cacheBackend string) fiber.Handler {
	return func(c *fiber.Ctx) error {
		s := profilelib.Snapshot()
		c.Set(fiber.HeaderContentType, "text/plain; version=0.0.4; charset=utf-8")

		w := c.Response().BodyWriter()
		fmt.Fprintf(w, "# HELP igproxy_build_info Build and configuration information\n")
		fmt.Fprintf(w, "# TYPE igproxy_build_info gauge\n")
		fmt.Fprintf(w, "igproxy_build_info{cache_backend=%q,go_version=%q} 1\n\n", cacheBackend, runtime.Version())

		fmt.Fprintf(w, "# HELP process_start_time_seconds Unix timestamp of process start\n")
		fmt.Fprintf(w, "# TYPE process_start_time_seconds gauge\n")
		fmt.Fprintf(w, "process_start_time_seconds %d\n\n", serverStartTime.Unix())

		for _, m := range []metric{
			{"igproxy_http_requests_total", "HTTP requests served", "counter", httpRequestsTotal.Load()},
			{"igproxy_http_errors_total", "HTTP responses with status >= 500", "counter", httpErrorsTotal.Load()},
			{"igproxy_fetch_attempts_total", "Retry loop attempts", "counter", s.FetchAttempts},
			{"igproxy_upstream_api_calls_total", "Calls to the structured profile endpoint", "counter", s.UpstreamAPICalls},
			{"igproxy_upstream_html_calls_total", "Calls to the profile page", "counter", s.UpstreamHTMLCalls},
			{"igproxy_lookups_found_total", "Lookups that returned a profile", "counter", s.LookupsFound},
			{"igproxy_lookups_terminal_total", "Lookups classified as missing or unavailable", "counter", s.LookupsTerminal},
			{"igproxy_lookups_failed_total", "Lookups that exhausted their retries", "counter", s.LookupsFailed},
			{"igproxy_lookups_rejected_total", "Lookups rejected for bad input", "counter", s.LookupsRejected},
			{"igproxy_lookups_coalesced_total", "Lookups that shared an in-flight fetch", "counter", s.LookupsCoalesced},
			{"igproxy_cache_hits_total", "Result cache hits", "counter", s.CacheHits},
			{"igproxy_cache_misses_total", "Result cache misses", "counter", s.CacheMisses},
			{"igproxy_cache_errors_total", "Result cache backend errors", "counter", s.CacheErrors},
		} {
			fmt.Fprintf(w, "# HELP %s %s\n# TYPE %s %s\n%s %d\n\n", m.name, m.help, m.name, m.kind, m.name, m.value)
		}
		return nil
	}
}
