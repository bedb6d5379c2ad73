package middleware

import (
	"context"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/redis/go-redis/v9"

	"github.com/iliyamo/cinema-ticketing/internal/config"
)

// takeToken refills the bucket for the time elapsed since the last refill
// and spends one token.  It returns {allowed, remaining, retry_after_ms}.
var takeToken = redis.NewScript(`
local now, capacity, refill, every, ttl = tonumber(ARGV[1]), tonumber(ARGV[2]), tonumber(ARGV[3]), tonumber(ARGV[4]), tonumber(ARGV[5])
local tokens = tonumber(redis.call('HGET', KEYS[1], 'tokens'))
local last = tonumber(redis.call('HGET', KEYS[1], 'last'))
if tokens == nil or last == nil then
  tokens, last = capacity, now
end
local steps = math.floor(math.max(0, now - last) / every)
if steps > 0 then
  tokens = math.min(capacity, tokens + steps * refill)
  last = last + steps * every
end
local allowed, retry = 0, 0
if tokens > 0 then
  allowed, tokens = 1, tokens - 1
else
  retry = math.max(0, every - (now - last))
end
redis.call('HSET', KEYS[1], 'tokens', tokens, 'last', last)
redis.call('EXPIRE', KEYS[1], ttl)
return {allowed, tokens, retry}
`)

type bucketResult struct {
	allowed   bool
	remaining int64
	retry     time.Duration
}

// NewTokenBucket limits request rates per client with a token bucket kept
// in Redis, so every API instance shares the same budget.  Without Redis,
// or when a script call fails, requests pass unthrottled.
func NewTokenBucket(cfg config.RateLimitConfig, rdb *redis.Client) echo.MiddlewareFunc {
	if !cfg.Enabled || rdb == nil {
		return passThrough
	}
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			res, err := spend(c.Request().Context(), rdb, cfg, bucketKey(cfg, c), time.Now())
			if err != nil {
				return next(c)
			}
			h := c.Response().Header()
			h.Set("X-RateLimit-Limit", strconv.Itoa(cfg.Capacity))
			h.Set("X-RateLimit-Remaining", strconv.FormatInt(res.remaining, 10))
			if !res.allowed {
				secs := int((res.retry + time.Second - 1) / time.Second)
				h.Set(echo.HeaderRetryAfter, strconv.Itoa(secs))
				return c.JSON(http.StatusTooManyRequests, echo.Map{
					"error":     "too many requests, please slow down",
					"retryable": true,
				})
			}
			return next(c)
		}
	}
}

func spend(ctx context.Context, rdb *redis.Client, cfg config.RateLimitConfig, key string, now time.Time) (bucketResult, error) {
	vals, err := takeToken.Run(ctx, rdb, []string{key},
		now.UnixMilli(), cfg.Capacity, cfg.Refill, cfg.Every.Milliseconds(), int64(cfg.TTL/time.Second),
	).Int64Slice()
	if err != nil {
		return bucketResult{}, err
	}
	if len(vals) != 3 {
		return bucketResult{}, redis.Nil
	}
	return bucketResult{
		allowed:   vals[0] == 1,
		remaining: vals[1],
		retry:     time.Duration(vals[2]) * time.Millisecond,
	}, nil
}

func bucketKey(cfg config.RateLimitConfig, c echo.Context) string {
	who := c.RealIP()
	if who == "" {
		who = "unknown"
	}
	route := c.Request().Method + " " + c.Path()
	switch strings.ToLower(cfg.Scope) {
	case "ip":
		return cfg.Prefix + ":ip:" + who
	case "user_route":
		if uid := currentUserID(c); uid != "anon" {
			who = "u" + uid
		}
	}
	return cfg.Prefix + ":" + who + ":" + route
}

func passThrough(next echo.HandlerFunc) echo.HandlerFunc { return next }
