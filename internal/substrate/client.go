// Package substrate is the single choke point for all persistence in the
// pipeline: a thin wrapper over Redis Streams and Redis keys. No other
// package talks to Redis directly.
package substrate

import (
	"context"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/sony/gobreaker"

	"github.com/sonicx222/arbitrage-new-sub015/common/mlog"
	"github.com/sonicx222/arbitrage-new-sub015/internal/domain"
	"github.com/sonicx222/arbitrage-new-sub015/pkg/mcircuitbreaker"
	"github.com/sonicx222/arbitrage-new-sub015/pkg/mretry"
)

// Client is a hub which deals with the Redis connection backing every
// stream and key operation the pipeline needs. Modeled on the teacher's
// mredis.RedisConnection, generalized from a single-purpose DB handle into
// the full substrate surface spec.md §4.1 requires.
type Client struct {
	ConnectionStringSource string
	Logger                 mlog.Logger
	RetryConfig            mretry.Config
	BreakerListener        mcircuitbreaker.StateListener

	redisClient *redis.Client
	breaker     *gobreaker.CircuitBreaker
}

// NewClient builds a Client. Call Connect before use.
func NewClient(connectionString string, logger mlog.Logger, retryConfig mretry.Config, listener mcircuitbreaker.StateListener) *Client {
	return &Client{
		ConnectionStringSource: connectionString,
		Logger:                 logger,
		RetryConfig:            retryConfig,
		BreakerListener:        listener,
	}
}

// Connect establishes the singleton Redis connection and arms the circuit
// breaker that guards every call this Client makes afterward.
func (c *Client) Connect(ctx context.Context) error {
	c.Logger.Info("substrate: connecting to redis...")

	opts, err := redis.ParseURL(c.ConnectionStringSource)
	if err != nil {
		return err
	}

	rdb := redis.NewClient(opts)

	if _, err := rdb.Ping(ctx).Result(); err != nil {
		c.Logger.Infof("substrate: initial ping failed: %v", err)
		return err
	}

	c.redisClient = rdb

	adapter := mcircuitbreaker.NewGobreakerAdapter(c.BreakerListener)
	c.breaker = gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        "substrate-redis",
		MaxRequests: 1,
		Interval:    0,
		Timeout:     30 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.Requests >= 5 && counts.ConsecutiveFailures >= 5
		},
		OnStateChange: adapter.OnStateChange,
	})

	c.Logger.Info("substrate: connected to redis")

	return nil
}

// withRetry runs op under the substrate's capped-exponential-backoff policy
// and circuit breaker, surfacing domain.SubstrateUnavailableError once the
// retry budget (spec.md §4.1: 100ms→30s, 20 attempts, ~5 min) is exhausted.
func (c *Client) withRetry(ctx context.Context, op string, fn func() error) error {
	var lastErr error

	for attempt := 1; attempt <= c.RetryConfig.MaxRetries; attempt++ {
		_, err := c.breaker.Execute(func() (any, error) {
			return nil, fn()
		})
		if err == nil {
			return nil
		}

		lastErr = err

		if attempt == c.RetryConfig.MaxRetries {
			break
		}

		backoff := c.RetryConfig.NextBackoff(attempt, 0)

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(backoff):
		}
	}

	return domain.SubstrateUnavailableError{Op: op, Err: lastErr}
}

// isBusyGroup reports whether err is Redis's "group already exists"
// response to XGROUP CREATE, which spec.md §4.1 treats as success, not error.
func isBusyGroup(err error) bool {
	return err != nil && strings.Contains(err.Error(), "BUSYGROUP")
}
