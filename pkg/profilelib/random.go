package profilelib

import (
	"context"
	"math/rand"
	"strings"
	"time"
)

// Random is the source of jitter, delays, user agent picks and cookie
// tokens. *rand.Rand satisfies it; tests plug in fixed values.
type Random interface {
	Float64() float64
	Intn(n int) int
}

// Sleeper waits for d or until ctx is done.
type Sleeper func(ctx context.Context, d time.Duration) error

// globalRand uses the package-level math/rand source, which is safe for
// concurrent use unlike a private *rand.Rand.
type globalRand struct{}

func (globalRand) Float64() float64 { return rand.Float64() }
func (globalRand) Intn(n int) int   { return rand.Intn(n) }

func sleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

// randomBetween returns a duration in [min, max).
func randomBetween(r Random, min, max time.Duration) time.Duration {
	if max <= min {
		return min
	}
	return min + time.Duration(r.Float64()*float64(max-min))
}

func pick(r Random, pool []string) string {
	return pool[r.Intn(len(pool))]
}

const tokenAlphabet = "0123456789abcdefghijklmnopqrstuvwxyz"

// randomToken mimics the short base36 ids browsers get as first-visit cookies.
func randomToken(r Random) string {
	var sb strings.Builder
	for i := 0; i < 11; i++ {
		sb.WriteByte(tokenAlphabet[r.Intn(len(tokenAlphabet))])
	}
	return sb.String()
}
