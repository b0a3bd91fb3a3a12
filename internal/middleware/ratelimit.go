package middleware

import (
	"math"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/redis/go-redis/v9"

	"github.com/reshamsu/dlink-colombo/internal/config"
	"github.com/reshamsu/dlink-colombo/internal/logging"
)

// takeToken refills the bucket in whole intervals, then tries to take one
// token.  Returns {allowed, remaining, retry_after_ms}.
var takeToken = redis.NewScript(`
local key        = KEYS[1]
local now        = tonumber(ARGV[1])
local capacity   = tonumber(ARGV[2])
local refill     = tonumber(ARGV[3])
local every      = tonumber(ARGV[4])
local ttl        = tonumber(ARGV[5])

local tokens = tonumber(redis.call('HGET', key, 'tokens'))
local last   = tonumber(redis.call('HGET', key, 'last'))
if tokens == nil or last == nil then
	tokens, last = capacity, now
end

local steps = math.floor(math.max(0, now - last) / every)
if steps > 0 then
	tokens = math.min(capacity, tokens + steps * refill)
	last = last + steps * every
end

local allowed, wait = 0, 0
if tokens > 0 then
	allowed, tokens = 1, tokens - 1
else
	wait = math.max(0, every - (now - last))
end

redis.call('HSET', key, 'tokens', tokens, 'last', last)
redis.call('EXPIRE', key, ttl)
return {allowed, tokens, wait}
`)

// bucketState is the decoded script reply.
type bucketState struct {
	allowed   bool
	remaining int64
	retry     time.Duration
}

func parseBucket(v any) (bucketState, bool) {
	arr, ok := v.([]any)
	if !ok || len(arr) != 3 {
		return bucketState{}, false
	}
	nums := make([]int64, 3)
	for i, x := range arr {
		n, ok := x.(int64)
		if !ok {
			return bucketState{}, false
		}
		nums[i] = n
	}
	return bucketState{allowed: nums[0] == 1, remaining: nums[1], retry: time.Duration(nums[2]) * time.Millisecond}, true
}

// NewTokenBucket limits requests with a token bucket kept in a Redis hash.
// Buckets are keyed by cfg.KeyStrategy.  Redis errors let the request
// through; without Redis the middleware is a pass-through.
func NewTokenBucket(cfg config.RateLimitConfig, rdb *redis.Client) echo.MiddlewareFunc {
	if !cfg.Enabled || rdb == nil {
		return func(next echo.HandlerFunc) echo.HandlerFunc { return next }
	}
	every := cfg.RefillInterval
	if every <= 0 {
		every = time.Second
	}
	ttl := int64(math.Ceil(cfg.TTL.Seconds()))
	if ttl < 1 {
		ttl = 1
	}

	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			ctx := c.Request().Context()
			key := rateKey(cfg, c)

			reply, err := takeToken.Run(ctx, rdb, []string{key},
				time.Now().UnixMilli(), cfg.Capacity, cfg.RefillTokens, every.Milliseconds(), ttl).Result()
			if err != nil {
				logging.FromContext(ctx).Warn("rate limit unavailable", "key", key, "error", err)
				return next(c)
			}
			st, ok := parseBucket(reply)
			if !ok {
				logging.FromContext(ctx).Warn("rate limit reply not understood", "key", key, "reply", reply)
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
			if cfg.Debug {
				logging.FromContext(ctx).Info("rate limited", "key", key, "retry_after", st.retry)
			}
			return c.JSON(http.StatusTooManyRequests, echo.Map{
				"error":       "too_many_requests",
				"message":     "rate limit exceeded",
				"retry_after": secs,
			})
		}
	}
}

// rateKey joins the parts named by the strategy: ip, user, route or an
// underscore-joined combination such as "ip_route".  Unknown strategies
// fall back to all three.
func rateKey(cfg config.RateLimitConfig, c echo.Context) string {
	strategy := strings.ToLower(cfg.KeyStrategy)
	parts := strings.Split(strategy, "_")
	known := map[string]bool{"ip": true, "user": true, "route": true}
	for _, p := range parts {
		if !known[p] {
			parts = []string{"ip", "user", "route"}
			break
		}
	}

	key := []string{cfg.Prefix}
	for _, p := range parts {
		switch p {
		case "ip":
			ip := c.RealIP()
			if ip == "" {
				ip = "unknown"
			}
			key = append(key, "ip", ip)
		case "user":
			key = append(key, "user", userKey(c))
		case "route":
			key = append(key, "route", c.Request().Method+" "+c.Path())
		}
	}
	return strings.Join(key, ":")
}
