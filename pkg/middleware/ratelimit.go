package middleware

import (
	"log/slog"
	"net/http"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"github.com/utafrali/ContactsGo/pkg/httputil"
)

type visitor struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// FloodGuard is a per-IP token bucket that sheds bursts before they reach the
// credential endpoints. It complements the per-identity quota, which is
// enforced further down the chain.
type FloodGuard struct {
	mu       sync.Mutex
	visitors map[string]*visitor
	limit    rate.Limit
	burst    int
	ttl      time.Duration
	now      func() time.Time
	stop     chan struct{}
	stopOnce sync.Once
}

// NewFloodGuard starts a guard allowing rps requests per second per IP with
// the given burst. Visitors idle for longer than ttl are evicted.
func NewFloodGuard(rps float64, burst int, ttl time.Duration) *FloodGuard {
	g := &FloodGuard{
		visitors: make(map[string]*visitor),
		limit:    rate.Limit(rps),
		burst:    burst,
		ttl:      ttl,
		now:      time.Now,
		stop:     make(chan struct{}),
	}
	go g.cleanupLoop()
	return g
}

// Stop ends the eviction loop. Safe to call more than once.
func (g *FloodGuard) Stop() {
	g.stopOnce.Do(func() { close(g.stop) })
}

func (g *FloodGuard) limiterFor(ip string) *rate.Limiter {
	g.mu.Lock()
	defer g.mu.Unlock()

	v, ok := g.visitors[ip]
	if !ok {
		v = &visitor{limiter: rate.NewLimiter(g.limit, g.burst)}
		g.visitors[ip] = v
	}
	v.lastSeen = g.now()
	return v.limiter
}

func (g *FloodGuard) cleanupLoop() {
	ticker := time.NewTicker(g.ttl)
	defer ticker.Stop()
	for {
		select {
		case <-g.stop:
			return
		case <-ticker.C:
			g.evictIdle()
		}
	}
}

func (g *FloodGuard) evictIdle() {
	g.mu.Lock()
	defer g.mu.Unlock()

	cutoff := g.now().Add(-g.ttl)
	for ip, v := range g.visitors {
		if v.lastSeen.Before(cutoff) {
			delete(g.visitors, ip)
		}
	}
}

func (g *FloodGuard) size() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return len(g.visitors)
}

// Middleware rejects requests over the per-IP budget with 429.
func (g *FloodGuard) Middleware(l *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ip := ClientIP(r)
			if !g.limiterFor(ip).AllowN(g.now(), 1) {
				l.WarnContext(r.Context(), "flood guard rejected request",
					slog.String("ip", ip),
					slog.String("path", r.URL.Path),
				)
				httputil.WriteRateLimited(w, 1)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
