package middleware

import (
	"context"
	"fmt"
	"math"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/redis/go-redis/v9"

	"github.com/iliyamo/mission-control/internal/config"
	"github.com/iliyamo/mission-control/internal/logging"
)

// limiterScript refills and takes one token atomically.  It returns
// {allowed, remaining, retry_after_ms}.
var limiterScript = redis.NewScript(`
	local key = KEYS[1]
	local now_ms = tonumber(ARGV[1])
	local capacity = tonumber(ARGV[2])
	local refill_tokens = tonumber(ARGV[3])
	local interval_ms = tonumber(ARGV[4])
	local ttl_seconds = tonumber(ARGV[5])

	local state = redis.call('HMGET', key, 'tokens', 'last_refill_ms')
	local tokens = tonumber(state[1])
	local last_refill = tonumber(state[2])

	if tokens == nil or last_refill == nil then
		tokens = capacity
		last_refill = now_ms
	end

	if interval_ms > 0 and refill_tokens > 0 then
		local elapsed = math.max(0, now_ms - last_refill)
		local intervals = math.floor(elapsed / interval_ms)
		if intervals > 0 then
			tokens = math.min(capacity, tokens + (intervals * refill_tokens))
			last_refill = last_refill + (intervals * interval_ms)
		end
	end

	local allowed = 0
	local retry_after_ms = 0
	if tokens > 0 then
		allowed = 1
		tokens = tokens - 1
	else
		local until_next = interval_ms - (now_ms - last_refill)
		if until_next < 0 then until_next = 0 end
		retry_after_ms = until_next
	end

	redis.call('HSET', key, 'tokens', tokens, 'last_refill_ms', last_refill)
	redis.call('EXPIRE', key, ttl_seconds)

	return { allowed, tokens, retry_after_ms }
`)

// bucketState is the reply of limiterScript.
type bucketState struct {
	allowed   bool
	remaining int64
	retry     time.Duration
}

// take spends one token of key's bucket.
func take(ctx context.Context, rdb *redis.Client, cfg config.RateLimitConfig, key string, now time.Time) (bucketState, error) {
	vals, err := limiterScript.Run(ctx, rdb, []string{key},
		now.UnixMilli(),
		cfg.Capacity,
		cfg.RefillTokens,
		cfg.RefillInterval.Milliseconds(),
		int64(cfg.TTL/time.Second),
	).Slice()
	if err != nil {
		return bucketState{}, err
	}
	if len(vals) != 3 {
		return bucketState{}, fmt.Errorf("unexpected script reply %v", vals)
	}
	return bucketState{
		allowed:   asInt64(vals[0]) == 1,
		remaining: asInt64(vals[1]),
		retry:     time.Duration(asInt64(vals[2])) * time.Millisecond,
	}, nil
}

// NewTokenBucket limits requests per key with a Redis-backed token bucket.
// With rate limiting disabled or without Redis it passes every request
// through; a Redis error also fails open so a cache outage never blocks
// agents from reporting.
func NewTokenBucket(cfg config.RateLimitConfig, rdb *redis.Client) echo.MiddlewareFunc {
	if !cfg.Enabled || rdb == nil {
		return passThrough
	}

	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			key := buildRateKey(cfg, c)
			st, err := take(c.Request().Context(), rdb, cfg, key, time.Now())
			if err != nil {
				if cfg.Debug {
					logging.Warn().Err(err).Str("key", key).Msg("ratelimit: redis error")
				}
				return next(c)
			}

			h := c.Response().Header()
			h.Set("X-RateLimit-Limit", strconv.Itoa(cfg.Capacity))
			h.Set("X-RateLimit-Remaining", strconv.FormatInt(st.remaining, 10))
			if cfg.Debug {
				h.Set("X-RateLimit-Key", key)
			}
			if st.allowed {
				return next(c)
			}

			secs := int(math.Ceil(st.retry.Seconds()))
			h.Set("Retry-After", strconv.Itoa(secs))
			logging.Info().Str("key", key).Dur("retry", st.retry).Msg("ratelimit: blocked")
			return c.JSON(http.StatusTooManyRequests, echo.Map{
				"error":       "too_many_requests",
				"message":     "rate limit exceeded",
				"retry_after": secs,
			})
		}
	}
}

func passThrough(next echo.HandlerFunc) echo.HandlerFunc { return next }

func asInt64(v any) int64 {
	switch t := v.(type) {
	case int64:
		return t
	case string:
		n, _ := strconv.ParseInt(t, 10, 64)
		return n
	}
	return 0
}

// rateKeyParts maps a key strategy token to the request attribute it adds.
var rateKeyParts = map[string]func(c echo.Context) string{
	"ip": func(c echo.Context) string {
		if ip := c.RealIP(); ip != "" {
			return ip
		}
		return "unknown"
	},
	"user":  currentUserID,
	"route": func(c echo.Context) string { return c.Request().Method + " " + c.Path() },
}

// buildRateKey joins the attributes named by cfg.KeyStrategy, for example
// "user_route" gives "<prefix>:user:<id>:route:<method path>".  An empty or
// unknown strategy keys on ip, user and route together.
func buildRateKey(cfg config.RateLimitConfig, c echo.Context) string {
	parts := []string{cfg.Prefix}
	for _, name := range strings.Split(strings.ToLower(cfg.KeyStrategy), "_") {
		if part, ok := rateKeyParts[name]; ok {
			parts = append(parts, name, part(c))
		}
	}
	if len(parts) == 1 {
		for _, name := range []string{"ip", "user", "route"} {
			parts = append(parts, name, rateKeyParts[name](c))
		}
	}
	return strings.Join(parts, ":")
}
