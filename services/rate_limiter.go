package services

import (
	"context"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/google/uuid"

	"github.com/HSouheill/alumni_backend/utils"
)

const issueKeyPrefix = "otp:issue:"

// slidingWindowScript trims the window, counts, and records in one round trip.
// It returns -1 when the issuance was recorded, otherwise the score (unix ms)
// of the oldest issuance still inside the window.
var slidingWindowScript = redis.NewScript(`
local key = KEYS[1]
local now = tonumber(ARGV[1])
local window = tonumber(ARGV[2])
local limit = tonumber(ARGV[3])

redis.call('ZREMRANGEBYSCORE', key, '-inf', now - window)
local count = redis.call('ZCARD', key)
if count >= limit then
	local oldest = redis.call('ZRANGE', key, 0, 0, 'WITHSCORES')
	return tonumber(oldest[2])
end
redis.call('ZADD', key, now, ARGV[4])
redis.call('PEXPIRE', key, window)
return -1
`)

// RedisIssueLimiter is a sliding-window limiter over a sorted set per identifier.
type RedisIssueLimiter struct {
	client *redis.Client
	limit  int
	window time.Duration
	now    func() time.Time
}

func NewRedisIssueLimiter(client *redis.Client, limit int, window time.Duration) *RedisIssueLimiter {
	return &RedisIssueLimiter{
		client: client,
		limit:  limit,
		window: window,
		now:    time.Now,
	}
}

func (l *RedisIssueLimiter) CheckAndIncrement(ctx context.Context, identifier string) error {
	now := l.now()
	nowMs := now.UnixMilli()

	res, err := slidingWindowScript.Run(ctx, l.client,
		[]string{issueKeyPrefix + identifier},
		nowMs, l.window.Milliseconds(), l.limit, uuid.NewString(),
	).Int64()
	if err != nil {
		return storeError("issue limiter", err)
	}
	if res < 0 {
		return nil
	}

	retryAfter := time.UnixMilli(res).Add(l.window).Sub(now)
	utils.Logger.WithField("identifier", utils.MaskEmail(identifier)).Info("Code issuance rate limited")
	return RateLimitedError(clampRetry(retryAfter))
}

// MongoIssueLimiter keeps a capped window document per identifier. Used when
// Redis is not reachable.
type MongoIssueLimiter struct {
	log    IssuanceLog
	limit  int
	window time.Duration
	now    func() time.Time
}

func NewMongoIssueLimiter(log IssuanceLog, limit int, window time.Duration) *MongoIssueLimiter {
	return &MongoIssueLimiter{
		log:    log,
		limit:  limit,
		window: window,
		now:    time.Now,
	}
}

func (l *MongoIssueLimiter) CheckAndIncrement(ctx context.Context, identifier string) error {
	now := l.now()

	oldest, ok, err := l.log.Reserve(ctx, identifier, now, now.Add(-l.window), l.limit)
	if err != nil {
		return storeError("issue limiter", err)
	}
	if ok {
		return nil
	}

	utils.Logger.WithField("identifier", utils.MaskEmail(identifier)).Info("Code issuance rate limited")
	return RateLimitedError(clampRetry(oldest.Add(l.window).Sub(now)))
}

func clampRetry(d time.Duration) time.Duration {
	if d < time.Second {
		return time.Second
	}
	return d
}
