package security

import (
	"context"
	"log"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisRateLimiter is a fixed-window limiter backed by shared Redis counters,
// for deployments with more than one server process. Each key gets one
// counter per window bucket; INCR and EXPIRE keep it bounded.
type RedisRateLimiter struct {
	client *redis.Client
	rate   int
	window time.Duration
	prefix string
}

// NewRedisRateLimiter creates a limiter allowing rate attempts per window,
// with counters shared through the given Redis client
func NewRedisRateLimiter(client *redis.Client, prefix string, rate int, window time.Duration) *RedisRateLimiter {
	return &RedisRateLimiter{
		client: client,
		rate:   rate,
		window: window,
		prefix: prefix,
	}
}

// Allow checks if one more attempt for the key should be allowed. Redis
// failures allow the request through: the guard protects against abuse, it
// must not become a login outage.
func (rl *RedisRateLimiter) Allow(key string) bool {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	bucket := time.Now().Unix() / int64(rl.window/time.Second)
	counterKey := rl.prefix + ":" + key + ":" + strconv.FormatInt(bucket, 10)

	pipe := rl.client.TxPipeline()
	incr := pipe.Incr(ctx, counterKey)
	pipe.Expire(ctx, counterKey, rl.window)
	if _, err := pipe.Exec(ctx); err != nil {
		log.Printf("rate limiter: redis error for key %s: %v", rl.prefix, err)
		return true
	}

	return incr.Val() <= int64(rl.rate)
}
