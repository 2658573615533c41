package httpserver

import (
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// failureLimiter gates requests per remote address after repeated failed
// logins, per SPEC_FULL.md §2. Each address gets its own token bucket that
// refills at rate tokens/sec up to burst; a failed login consumes one
// token, and an address whose bucket is empty is refused before a helper
// is ever spawned. Buckets unused for more than evictAfter are dropped on
// the next sweep, bounding memory under a sustained scan from many
// addresses.
type failureLimiter struct {
	rate       rate.Limit
	burst      int
	evictAfter time.Duration

	mu      sync.Mutex
	buckets map[string]*bucket
}

type bucket struct {
	limiter *rate.Limiter
	seen    time.Time
}

// newFailureLimiter returns nil if perSecond is zero, signaling "disabled"
// to its callers.
func newFailureLimiter(perSecond float64) *failureLimiter {
	if perSecond <= 0 {
		return nil
	}
	return &failureLimiter{
		rate:       rate.Limit(perSecond),
		burst:      5,
		evictAfter: 10 * time.Minute,
		buckets:    make(map[string]*bucket),
	}
}

func (f *failureLimiter) get(addr string) *rate.Limiter {
	f.mu.Lock()
	defer f.mu.Unlock()
	b, ok := f.buckets[addr]
	if !ok {
		b = &bucket{limiter: rate.NewLimiter(f.rate, f.burst)}
		f.buckets[addr] = b
	}
	b.seen = time.Now()
	f.evictLocked()
	return b.limiter
}

func (f *failureLimiter) evictLocked() {
	cutoff := time.Now().Add(-f.evictAfter)
	for addr, b := range f.buckets {
		if b.seen.Before(cutoff) {
			delete(f.buckets, addr)
		}
	}
}

// blocked reports whether addr's bucket currently holds less than one
// token, without consuming a token.
func (f *failureLimiter) blocked(addr string) bool {
	if f == nil {
		return false
	}
	return f.get(addr).Tokens() < 1
}

// recordFailure consumes one token from addr's bucket, registering a
// failed login attempt.
func (f *failureLimiter) recordFailure(addr string) {
	if f == nil {
		return
	}
	f.get(addr).Allow()
}
