package database

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func redisSamples(t *testing.T, command, outcome string) uint64 {
	t.Helper()
	var m dto.Metric
	require.NoError(t, redisCommandSeconds.WithLabelValues(command, outcome).(prometheus.Metric).Write(&m))
	return m.GetHistogram().GetSampleCount()
}

func TestNewRedisClient_InstrumentsCommands(t *testing.T) {
	srv := miniredis.RunT(t)
	ctx := context.Background()

	client, err := NewRedisClient(ctx, RedisConfig{URL: "redis://" + srv.Addr()})
	require.NoError(t, err)
	t.Cleanup(func() { _ = client.Close() })

	setBefore := redisSamples(t, "set", outcomeOK)
	missBefore := redisSamples(t, "get", outcomeMiss)
	pipeBefore := redisSamples(t, "pipeline", outcomeOK)

	require.NoError(t, client.Set(ctx, "user:1", "x", 0).Err())
	assert.ErrorIs(t, client.Get(ctx, "user:2").Err(), redis.Nil)
	_, err = client.Pipelined(ctx, func(p redis.Pipeliner) error {
		p.Incr(ctx, "quota:1")
		p.Expire(ctx, "quota:1", time.Minute)
		return nil
	})
	require.NoError(t, err)

	assert.Equal(t, setBefore+1, redisSamples(t, "set", outcomeOK))
	assert.Equal(t, missBefore+1, redisSamples(t, "get", outcomeMiss))
	assert.Equal(t, pipeBefore+1, redisSamples(t, "pipeline", outcomeOK))
}

func TestNewRedisClient_Unreachable(t *testing.T) {
	srv := miniredis.RunT(t)
	addr := srv.Addr()
	srv.Close()

	_, err := NewRedisClient(context.Background(), RedisConfig{URL: "redis://" + addr})
	require.Error(t, err)
	assert.Contains(t, err.Error(), addr)
}

func TestRedisConfig_Defaults(t *testing.T) {
	opts, err := RedisConfig{Host: "::1", Port: 6379}.Options()
	require.NoError(t, err)
	assert.Equal(t, "[::1]:6379", opts.Addr)
	assert.Equal(t, "contacts", opts.ClientName)
	assert.NotZero(t, opts.DialTimeout)
}
