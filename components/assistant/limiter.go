package assistant

import (
	"sync"

	"golang.org/x/time/rate"

	"github.com/yanizio/adept-admin/internal/cache"
)

// maxBrowsers bounds how many per-browser buckets are kept.  An evicted
// browser starts again with a full bucket.
const maxBrowsers = 4096

// limiter hands each browser its own token bucket.
type limiter struct {
	every rate.Limit
	burst int

	mu      sync.Mutex
	buckets *cache.LRU[string, *rate.Limiter]
}

// newLimiter returns nil when perMinute is not positive, which disables
// throttling.
func newLimiter(perMinute float64, burst int) *limiter {
	if perMinute <= 0 {
		return nil
	}
	if burst < 1 {
		burst = 1
	}
	return &limiter{
		every:   rate.Limit(perMinute / 60),
		burst:   burst,
		buckets: cache.New[string, *rate.Limiter](maxBrowsers),
	}
}

func (l *limiter) allow(browser string) bool {
	if l == nil {
		return true
	}
	l.mu.Lock()
	b, ok := l.buckets.Get(browser)
	if !ok {
		b = rate.NewLimiter(l.every, l.burst)
		l.buckets.Add(browser, b)
	}
	l.mu.Unlock()
	return b.Allow()
}
