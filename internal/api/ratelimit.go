package api

import (
	"math"
	"net"
	"net/http"
	"strconv"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"github.com/opensource-wellbeing/pulse/internal/domain"
)

const (
	defaultMaxEntries = 10000
	clientMultiplier  = 4
	minIdleTTL        = time.Minute
)

// bucket is a token bucket and the last time it was used.
type bucket struct {
	lim      *rate.Limiter
	lastSeen time.Time
}

// keyedLimiter holds one token bucket per key. Buckets idle long enough to
// have refilled completely are dropped, since a fresh bucket behaves the same.
type keyedLimiter struct {
	buckets   map[string]*bucket
	limit     rate.Limit
	burst     int
	idleTTL   time.Duration
	max       int
	lastSweep time.Time
}

func newKeyedLimiter(rps float64, burst, maxEntries int) *keyedLimiter {
	if burst <= 0 {
		burst = max(1, int(rps))
	}
	ttl := time.Duration(float64(burst) / rps * float64(time.Second))
	if ttl < minIdleTTL {
		ttl = minIdleTTL
	}
	return &keyedLimiter{
		buckets: make(map[string]*bucket),
		limit:   rate.Limit(rps),
		burst:   burst,
		idleTTL: ttl,
		max:     maxEntries,
	}
}

func (k *keyedLimiter) get(key string, now time.Time) *rate.Limiter {
	if now.Sub(k.lastSweep) >= k.idleTTL/2 {
		k.sweep(now)
	}

	b, ok := k.buckets[key]
	if !ok {
		if len(k.buckets) >= k.max {
			k.sweep(now)
			if len(k.buckets) >= k.max {
				k.evictOldest()
			}
		}
		b = &bucket{lim: rate.NewLimiter(k.limit, k.burst)}
		k.buckets[key] = b
	}
	b.lastSeen = now
	return b.lim
}

func (k *keyedLimiter) sweep(now time.Time) {
	for key, b := range k.buckets {
		if now.Sub(b.lastSeen) >= k.idleTTL {
			delete(k.buckets, key)
		}
	}
	k.lastSweep = now
}

func (k *keyedLimiter) evictOldest() {
	var oldest string
	var seen time.Time
	for key, b := range k.buckets {
		if oldest == "" || b.lastSeen.Before(seen) {
			oldest, seen = key, b.lastSeen
		}
	}
	delete(k.buckets, oldest)
}

// RateLimiter throttles each institution and, independently, each client
// address, so rotating X-Institution-ID does not lift the limit.
type RateLimiter struct {
	mu           sync.Mutex
	institutions *keyedLimiter
	clients      *keyedLimiter
	now          func() time.Time
}

// NewRateLimiter returns nil when limiting is disabled.
func NewRateLimiter(cfg domain.RateLimitConfig) *RateLimiter {
	if !cfg.Enabled || cfg.RequestsPerSecond <= 0 {
		return nil
	}
	maxEntries := cfg.MaxEntries
	if maxEntries <= 0 {
		maxEntries = defaultMaxEntries
	}

	institutions := newKeyedLimiter(cfg.RequestsPerSecond, cfg.Burst, maxEntries)

	clientRPS := cfg.ClientRequestsPerSecond
	if clientRPS <= 0 {
		clientRPS = cfg.RequestsPerSecond * clientMultiplier
	}
	clientBurst := cfg.ClientBurst
	if clientBurst <= 0 {
		clientBurst = institutions.burst * clientMultiplier
	}

	return &RateLimiter{
		institutions: institutions,
		clients:      newKeyedLimiter(clientRPS, clientBurst, maxEntries),
		now:          time.Now,
	}
}

// Allow reports whether the institution, calling from clientAddr, may make
// another request now.
func (l *RateLimiter) Allow(institutionID, clientAddr string) bool {
	l.mu.Lock()
	now := l.now()
	inst := l.institutions.get(institutionID, now)
	client := l.clients.get(clientAddr, now)
	l.mu.Unlock()

	return inst.AllowN(now, 1) && client.AllowN(now, 1)
}

// Len returns the number of tracked institutions and clients.
func (l *RateLimiter) Len() (institutions, clients int) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.institutions.buckets), len(l.clients.buckets)
}

// Middleware rejects requests over the limit with 429. It must run after
// InstitutionMiddleware and middleware.RealIP. A nil limiter passes
// everything through.
func (l *RateLimiter) Middleware(next http.Handler) http.Handler {
	if l == nil {
		return next
	}
	retryAfter := strconv.Itoa(int(math.Ceil(1 / float64(l.institutions.limit))))
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !l.Allow(GetInstitutionID(r.Context()), clientHost(r.RemoteAddr)) {
			w.Header().Set("Retry-After", retryAfter)
			writeJSON(w, http.StatusTooManyRequests, map[string]string{
				"error": "rate limit exceeded",
			})
			return
		}
		next.ServeHTTP(w, r)
	})
}

func clientHost(addr string) string {
	if host, _, err := net.SplitHostPort(addr); err == nil {
		return host
	}
	return addr
}
