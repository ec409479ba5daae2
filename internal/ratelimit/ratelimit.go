// Package ratelimit implements the per-key write quota: at most Limit
// admitted events in any rolling Window.
package ratelimit

import (
	"context"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// DefaultWindow is the rolling window the quota is measured over.
const DefaultWindow = time.Minute

// Limiter decides whether one more event for key is admitted.
type Limiter interface {
	Allow(ctx context.Context, key string) (bool, error)
}

var decisionsTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Name: "ratelimit_decisions_total",
		Help: "Quota decisions by backend and result.",
	},
	[]string{"backend", "result"},
)

func recordDecision(backend string, allowed bool) {
	result := "allowed"
	if !allowed {
		result = "rejected"
	}
	decisionsTotal.WithLabelValues(backend, result).Inc()
}
