// Package cache holds the user summary cache consulted by GET /users/me.
// The database stays authoritative: callers log and ignore cache errors.
package cache

import (
	"context"
	"errors"
	"strconv"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/utafrali/ContactsGo/internal/domain"
)

// ErrMiss is returned by Get when no entry exists for the id.
var ErrMiss = errors.New("cache miss")

// UserCache stores user summaries for a fixed TTL.
type UserCache interface {
	Get(ctx context.Context, id int64) (*domain.UserSummary, error)
	Set(ctx context.Context, u *domain.UserSummary) error
	Invalidate(ctx context.Context, id int64) error
}

var lookupsTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Name: "user_cache_lookups_total",
		Help: "User cache lookups by backend and result.",
	},
	[]string{"backend", "result"},
)

func recordLookup(backend string, err error) {
	result := "hit"
	switch {
	case errors.Is(err, ErrMiss):
		result = "miss"
	case err != nil:
		result = "error"
	}
	lookupsTotal.WithLabelValues(backend, result).Inc()
}

func userKey(id int64) string {
	return "user:" + strconv.FormatInt(id, 10)
}
