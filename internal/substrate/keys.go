package substrate

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"
)

// compareAndSetScript re-sets key to newValue with the given TTL only if
// its current value still equals expected (leader lease renewal, §4.2).
var compareAndSetScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	redis.call("SET", KEYS[1], ARGV[2], "PX", ARGV[3])
	return 1
else
	return 0
end
`)

// compareAndDeleteScript deletes key only if its current value still
// equals expected (lease/lock release, §4.2/§4.4).
var compareAndDeleteScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
else
	return 0
end
`)

// SetNX attempts atomic set-if-absent on key with value and ttl. Returns
// true if this call won the key (lease acquisition / distributed lock).
func (c *Client) SetNX(ctx context.Context, key, value string, ttl time.Duration) (bool, error) {
	var won bool

	err := c.withRetry(ctx, "setnx:"+key, func() error {
		ok, err := c.redisClient.SetNX(ctx, key, value, ttl).Result()
		if err != nil {
			return err
		}

		won = ok

		return nil
	})

	return won, err
}

// CompareAndSet re-sets key to newValue with ttl only if its current value
// equals expected. Returns false on compare failure, not on Redis error.
func (c *Client) CompareAndSet(ctx context.Context, key, expected, newValue string, ttl time.Duration) (bool, error) {
	var ok bool

	err := c.withRetry(ctx, "cas:"+key, func() error {
		res, err := compareAndSetScript.Run(ctx, c.redisClient, []string{key}, expected, newValue, ttl.Milliseconds()).Int64()
		if err != nil {
			return err
		}

		ok = res == 1

		return nil
	})

	return ok, err
}

// CompareAndDelete deletes key only if its current value equals expected.
func (c *Client) CompareAndDelete(ctx context.Context, key, expected string) (bool, error) {
	var ok bool

	err := c.withRetry(ctx, "cad:"+key, func() error {
		res, err := compareAndDeleteScript.Run(ctx, c.redisClient, []string{key}, expected).Int64()
		if err != nil {
			return err
		}

		ok = res == 1

		return nil
	})

	return ok, err
}

// Get returns the current value of key, "" if it does not exist.
func (c *Client) Get(ctx context.Context, key string) (string, error) {
	var value string

	err := c.withRetry(ctx, "get:"+key, func() error {
		v, err := c.redisClient.Get(ctx, key).Result()
		if err == redis.Nil {
			value = ""
			return nil
		}
		if err != nil {
			return err
		}

		value = v

		return nil
	})

	return value, err
}
