package profilelib

import "sync/atomic"

// Upstream metrics
var (
	fetchAttempts     atomic.Int64
	upstreamAPICalls  atomic.Int64
	upstreamHTMLCalls atomic.Int64
)

// Lookup metrics
var (
	lookupsFound     atomic.Int64
	lookupsTerminal  atomic.Int64
	lookupsFailed    atomic.Int64
	lookupsRejected  atomic.Int64
	lookupsCoalesced atomic.Int64
)

// Cache metrics
var (
	cacheHitsTotal   atomic.Int64
	cacheMissesTotal atomic.Int64
	cacheErrorsTotal atomic.Int64
)

// Stats is a point-in-time copy of the package counters.
type Stats struct {
	FetchAttempts     int64
	UpstreamAPICalls  int64
	UpstreamHTMLCalls int64
	LookupsFound      int64
	LookupsTerminal   int64
	LookupsFailed     int64
	LookupsRejected   int64
	LookupsCoalesced  int64
	CacheHits         int64
	CacheMisses       int64
	CacheErrors       int64
}

// Snapshot returns the current counter values.
func Snapshot() Stats {
	return Stats{
		FetchAttempts:     fetchAttempts.Load(),
		UpstreamAPICalls:  upstreamAPICalls.Load(),
		UpstreamHTMLCalls: upstreamHTMLCalls.Load(),
		LookupsFound:      lookupsFound.Load(),
		LookupsTerminal:   lookupsTerminal.Load(),
		LookupsFailed:     lookupsFailed.Load(),
		LookupsRejected:   lookupsRejected.Load(),
		LookupsCoalesced:  lookupsCoalesced.Load(),
		CacheHits:         cacheHitsTotal.Load(),
		CacheMisses:       cacheMissesTotal.Load(),
		CacheErrors:       cacheErrorsTotal.Load(),
	}
}
