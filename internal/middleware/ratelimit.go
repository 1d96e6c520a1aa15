package middleware

import (
	"fmt"
	"math"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/iliyamo/script-review-portal/internal/config"
	"github.com/iliyamo/script-review-portal/internal/metrics"
)

// tokenBucket refills whole intervals lazily and takes one token per call.
// Returns {allowed, remaining, retry_after_ms}.
var tokenBucket = redis.NewScript(`
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
  local intervals = math.floor(math.max(0, now_ms - last_refill) / interval_ms)
  if intervals > 0 then
    tokens = math.min(capacity, tokens + intervals * refill_tokens)
    last_refill = last_refill + intervals * interval_ms
  end
end

local allowed = 0
local retry_after_ms = 0
if tokens > 0 then
  allowed = 1
  tokens = tokens - 1
else
  retry_after_ms = math.max(0, interval_ms - (now_ms - last_refill))
end

redis.call('HSET', key, 'tokens', tokens, 'last_refill_ms', last_refill)
redis.call('EXPIRE', key, ttl_seconds)
return { allowed, tokens, retry_after_ms }
`)

func passThrough(next echo.HandlerFunc) echo.HandlerFunc { return next }

// NewTokenBucket limits requests per key with a Redis token bucket, one
// bucket family per cfg.Scope. The limiter fails open: a Redis error lets
// the request through.
func NewTokenBucket(cfg config.RateLimitConfig, rdb *redis.Client, log *zap.Logger) echo.MiddlewareFunc {
	if !cfg.Enabled || rdb == nil {
		return passThrough
	}
	if log == nil {
		log = zap.NewNop()
	}
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			key := rateKey(cfg, c)
			args := []any{
				time.Now().UnixMilli(),
				cfg.Capacity,
				cfg.RefillTokens,
				cfg.RefillInterval.Milliseconds(),
				int64(cfg.TTL / time.Second),
			}
			vals, err := tokenBucket.Run(c.Request().Context(), rdb, []string{key}, args...).Result()
			if err != nil {
				log.Warn("rate limiter unavailable", zap.String("key", key), zap.Error(err))
				return next(c)
			}
			arr, ok := vals.([]any)
			if !ok || len(arr) != 3 {
				log.Warn("unexpected limiter result", zap.String("key", key), zap.Any("result", vals))
				return next(c)
			}
			allowed := fmt.Sprint(arr[0]) == "1"
			remaining := asInt64(arr[1])
			retryMs := asInt64(arr[2])

			h := c.Response().Header()
			h.Set("X-RateLimit-Limit", strconv.Itoa(cfg.Capacity))
			h.Set("X-RateLimit-Remaining", strconv.FormatInt(remaining, 10))
			if cfg.Debug {
				h.Set("X-RateLimit-Key", key)
			}
			if !allowed {
				secs := int(math.Ceil(float64(retryMs) / 1000))
				h.Set("Retry-After", strconv.Itoa(secs))
				metrics.RateLimited.WithLabelValues(cfg.Scope).Inc()
				if cfg.Debug {
					log.Info("rate limited", zap.String("scope", cfg.Scope), zap.String("key", key), zap.Int64("retry_ms", retryMs))
				}
				return c.JSON(http.StatusTooManyRequests, echo.Map{
					"error":       "too many requests",
					"retry_after": secs,
				})
			}
			return next(c)
		}
	}
}

func asInt64(v any) int64 {
	switch t := v.(type) {
	case int64:
		return t
	case int:
		return int64(t)
	case float64:
		return int64(t)
	case string:
		n, _ := strconv.ParseInt(t, 10, 64)
		return n
	}
	return 0
}

// rateKey builds the bucket key. Anonymous callers share the "anon" user.
func rateKey(cfg config.RateLimitConfig, c echo.Context) string {
	ip := c.RealIP()
	if ip == "" {
		ip = "unknown"
	}
	route := c.Request().Method + " " + c.Path()

	parts := []string{cfg.Prefix}
	switch strings.ToLower(cfg.KeyStrategy) {
	case "ip":
		parts = append(parts, "ip", ip)
	case "user":
		parts = append(parts, "user", currentUserID(c))
	case "route":
		parts = append(parts, "route", route)
	default:
		parts = append(parts, "ip", ip, "route", route)
	}
	return strings.Join(parts, ":")
}
