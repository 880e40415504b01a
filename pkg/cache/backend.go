// Package cache holds the result cache backends used by the lookup service.
package cache

import (
	"context"
	"time"
)

// Backend stores serialized lookup results.
type Backend interface {
	// Get returns (value, found, error).
	Get(ctx context.Context, key string) ([]byte, bool, error)

	// Set stores a value with the given TTL.
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error

	Delete(ctx context.Context, key string) error

	Close() error
}
