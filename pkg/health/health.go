package health

import (
	"context"
	"errors"
	"net/http"
	"sync"
	"time"

	"github.com/utafrali/ContactsGo/pkg/httputil"
)

// Checker probes one dependency. A nil error means it is usable.
type Checker func(ctx context.Context) error

type Status string

const (
	StatusUp       Status = "up"
	StatusDown     Status = "down"
	StatusDegraded Status = "degraded"
)

const defaultTimeout = 5 * time.Second

// ErrUnknownCheck is returned by Check for a name that was never registered.
var ErrUnknownCheck = errors.New("unknown health check")

// Response is the body of /health/live and /health/ready.
type Response struct {
	Status    Status                 `json:"status"`
	Timestamp time.Time              `json:"timestamp"`
	Checks    map[string]CheckResult `json:"checks,omitempty"`
}

// CheckResult reports one dependency probe.
type CheckResult struct {
	Status    Status  `json:"status"`
	Critical  bool    `json:"critical"`
	LatencyMS float64 `json:"latency_ms"`
	Error     string  `json:"error,omitempty"`
}

type probe struct {
	check    Checker
	critical bool
}

// Handler owns the dependency probes. Postgres is registered critical, so
// losing it takes the instance out of rotation; caches and brokers are
// non-critical and only degrade it.
type Handler struct {
	mu      sync.RWMutex
	probes  map[string]probe
	timeout time.Duration
	now     func() time.Time
}

func NewHandler() *Handler {
	return &Handler{
		probes:  make(map[string]probe),
		timeout: defaultTimeout,
		now:     time.Now,
	}
}

// RegisterCritical adds a probe whose failure fails readiness.
func (h *Handler) RegisterCritical(name string, c Checker) { h.add(name, c, true) }

// RegisterNonCritical adds a probe whose failure only degrades readiness.
func (h *Handler) RegisterNonCritical(name string, c Checker) { h.add(name, c, false) }

func (h *Handler) add(name string, c Checker, critical bool) {
	h.mu.Lock()
	h.probes[name] = probe{check: c, critical: critical}
	h.mu.Unlock()
}

// Check runs the named probe on its own, bounded by the probe timeout.
func (h *Handler) Check(ctx context.Context, name string) error {
	h.mu.RLock()
	p, ok := h.probes[name]
	h.mu.RUnlock()
	if !ok {
		return ErrUnknownCheck
	}
	ctx, cancel := context.WithTimeout(ctx, h.timeout)
	defer cancel()
	return p.check(ctx)
}

func (h *Handler) LivenessHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, _ *http.Request) {
		httputil.WriteJSON(w, http.StatusOK, Response{Status: StatusUp, Timestamp: h.now().UTC()})
	}
}

// ReadinessHandler probes every dependency in parallel. It answers 503 only
// when a critical probe fails.
func (h *Handler) ReadinessHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		results := h.runAll(r.Context())

		overall := summarize(results)
		code := http.StatusOK
		if overall == StatusDown {
			code = http.StatusServiceUnavailable
		}
		httputil.WriteJSON(w, code, Response{Status: overall, Timestamp: h.now().UTC(), Checks: results})
	}
}

func (h *Handler) runAll(ctx context.Context) map[string]CheckResult {
	ctx, cancel := context.WithTimeout(ctx, h.timeout)
	defer cancel()

	h.mu.RLock()
	probes := make(map[string]probe, len(h.probes))
	for name, p := range h.probes {
		probes[name] = p
	}
	h.mu.RUnlock()

	var (
		mu      sync.Mutex
		wg      sync.WaitGroup
		results = make(map[string]CheckResult, len(probes))
	)
	for name, p := range probes {
		wg.Add(1)
		go func() {
			defer wg.Done()
			start := h.now()
			err := p.check(ctx)
			res := CheckResult{
				Status:    StatusUp,
				Critical:  p.critical,
				LatencyMS: float64(h.now().Sub(start).Microseconds()) / 1000,
			}
			if err != nil {
				res.Status = StatusDown
				res.Error = err.Error()
			}
			mu.Lock()
			results[name] = res
			mu.Unlock()
		}()
	}
	wg.Wait()
	return results
}

func summarize(results map[string]CheckResult) Status {
	overall := StatusUp
	for _, res := range results {
		switch {
		case res.Status != StatusDown:
		case res.Critical:
			return StatusDown
		default:
			overall = StatusDegraded
		}
	}
	return overall
}
