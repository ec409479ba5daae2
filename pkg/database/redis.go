package database

import (
	"context"
	"errors"
	"fmt"
	"net"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/redis/go-redis/v9"
)

// RedisConfig locates the Redis server. URL, when set, wins over the
// individual fields.
type RedisConfig struct {
	URL      string
	Host     string
	Port     int
	Password string
	DB       int
}

func (c RedisConfig) Enabled() bool {
	return c.URL != "" || c.Host != ""
}

func (c RedisConfig) Addr() string {
	return net.JoinHostPort(c.Host, strconv.Itoa(c.Port))
}

// Options builds go-redis options. Connections are named "contacts" so they
// can be told apart in CLIENT LIST.
func (c RedisConfig) Options() (*redis.Options, error) {
	opts := &redis.Options{Addr: c.Addr(), Password: c.Password, DB: c.DB}
	if c.URL != "" {
		var err error
		if opts, err = redis.ParseURL(c.URL); err != nil {
			return nil, fmt.Errorf("parse redis url: %w", err)
		}
	}
	if opts.ClientName == "" {
		opts.ClientName = "contacts"
	}
	if opts.DialTimeout == 0 {
		opts.DialTimeout = 3 * time.Second
	}
	return opts, nil
}

// NewRedisClient connects, instruments and pings a client.
func NewRedisClient(ctx context.Context, cfg RedisConfig) (*redis.Client, error) {
	opts, err := cfg.Options()
	if err != nil {
		return nil, err
	}

	client := redis.NewClient(opts)
	client.AddHook(commandMetrics{})
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("ping redis %s: %w", opts.Addr, err)
	}
	return client, nil
}

var redisCommandSeconds = promauto.NewHistogramVec(prometheus.HistogramOpts{
	Name:    "redis_command_duration_seconds",
	Help:    "Redis command latency by command name and outcome.",
	Buckets: []float64{.0005, .001, .0025, .005, .01, .025, .05, .1, .25},
}, []string{"command", "outcome"})

// commandMetrics times every command. Pipelines (the rate limiter's
// INCR+EXPIRE) are recorded once under "pipeline". A redis.Nil reply is a
// miss, not an error.
type commandMetrics struct{}

func (commandMetrics) DialHook(next redis.DialHook) redis.DialHook { return next }

func (commandMetrics) ProcessHook(next redis.ProcessHook) redis.ProcessHook {
	return func(ctx context.Context, cmd redis.Cmder) error {
		start := time.Now()
		err := next(ctx, cmd)
		redisCommandSeconds.WithLabelValues(cmd.Name(), redisOutcome(err)).Observe(time.Since(start).Seconds())
		return err
	}
}

func (commandMetrics) ProcessPipelineHook(next redis.ProcessPipelineHook) redis.ProcessPipelineHook {
	return func(ctx context.Context, cmds []redis.Cmder) error {
		start := time.Now()
		err := next(ctx, cmds)
		redisCommandSeconds.WithLabelValues("pipeline", redisOutcome(err)).Observe(time.Since(start).Seconds())
		return err
	}
}

func redisOutcome(err error) string {
	switch {
	case err == nil:
		return outcomeOK
	case errors.Is(err, redis.Nil):
		return outcomeMiss
	default:
		return outcomeError
	}
}
