package health

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var (
	up   Checker = func(context.Context) error { return nil }
	down Checker = func(context.Context) error { return errors.New("connection refused") }
)

func ready(t *testing.T, h *Handler) (int, Response) {
	t.Helper()
	rec := httptest.NewRecorder()
	h.ReadinessHandler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health/ready", nil))

	var resp Response
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
	return rec.Code, resp
}

func TestLiveness(t *testing.T) {
	h := NewHandler()
	fixed := time.Date(2026, 3, 10, 9, 30, 0, 0, time.UTC)
	h.now = func() time.Time { return fixed }
	h.RegisterCritical("postgres", down)

	rec := httptest.NewRecorder()
	h.LivenessHandler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health/live", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
	var resp Response
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
	assert.Equal(t, StatusUp, resp.Status)
	assert.True(t, fixed.Equal(resp.Timestamp))
	assert.Empty(t, resp.Checks, "liveness never runs dependency probes")
}

func TestReadiness(t *testing.T) {
	tests := []struct {
		name        string
		postgres    Checker
		redis       Checker
		kafka       Checker
		wantCode    int
		wantOverall Status
	}{
		{"all up", up, up, up, http.StatusOK, StatusUp},
		{"cache down", up, down, up, http.StatusOK, StatusDegraded},
		{"cache and broker down", up, down, down, http.StatusOK, StatusDegraded},
		{"database down", down, up, up, http.StatusServiceUnavailable, StatusDown},
		{"everything down", down, down, down, http.StatusServiceUnavailable, StatusDown},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := NewHandler()
			h.RegisterCritical("postgres", tt.postgres)
			h.RegisterNonCritical("redis", tt.redis)
			h.RegisterNonCritical("kafka", tt.kafka)

			code, resp := ready(t, h)

			assert.Equal(t, tt.wantCode, code)
			assert.Equal(t, tt.wantOverall, resp.Status)
			require.Len(t, resp.Checks, 3)
			assert.True(t, resp.Checks["postgres"].Critical)
			assert.False(t, resp.Checks["redis"].Critical)
			for _, res := range resp.Checks {
				if res.Status == StatusDown {
					assert.Equal(t, "connection refused", res.Error)
				}
			}
		})
	}
}

func TestReadiness_NoProbes(t *testing.T) {
	code, resp := ready(t, NewHandler())
	assert.Equal(t, http.StatusOK, code)
	assert.Equal(t, StatusUp, resp.Status)
}

func TestReadiness_ReRegisterReplaces(t *testing.T) {
	h := NewHandler()
	h.RegisterCritical("postgres", down)
	h.RegisterCritical("postgres", up)

	code, _ := ready(t, h)
	assert.Equal(t, http.StatusOK, code)
}

func TestReadiness_ProbesRunInParallel(t *testing.T) {
	h := NewHandler()
	release := make(chan struct{})
	started := make(chan struct{}, 2)
	slow := func(ctx context.Context) error {
		started <- struct{}{}
		select {
		case <-release:
			return nil
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	h.RegisterCritical("postgres", slow)
	h.RegisterNonCritical("redis", slow)

	go func() {
		<-started
		<-started
		close(release)
	}()

	code, _ := ready(t, h)
	assert.Equal(t, http.StatusOK, code)
}

func TestCheck(t *testing.T) {
	h := NewHandler()
	h.timeout = 50 * time.Millisecond
	h.RegisterCritical("postgres", func(ctx context.Context) error {
		if _, ok := ctx.Deadline(); !ok {
			return errors.New("probe ran without a deadline")
		}
		return nil
	})
	h.RegisterNonCritical("redis", down)

	assert.NoError(t, h.Check(context.Background(), "postgres"))
	assert.EqualError(t, h.Check(context.Background(), "redis"), "connection refused")
	assert.ErrorIs(t, h.Check(context.Background(), "smtp"), ErrUnknownCheck)
}
