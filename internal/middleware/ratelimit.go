package middleware

import (
	"math"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
	"golang.org/x/time/rate"

	"github.com/iliyamo/venuex-ticketing/internal/config"
)

// tokenBucket refills RefillTokens every interval up to capacity and
// takes one token per request.  Returns {allowed, remaining, retry_ms}.
var tokenBucket = redis.NewScript(`
local key = KEYS[1]
local now_ms = tonumber(ARGV[1])
local capacity = tonumber(ARGV[2])
local refill = tonumber(ARGV[3])
local interval_ms = tonumber(ARGV[4])
local ttl = tonumber(ARGV[5])

local state = redis.call('HMGET', key, 'tokens', 'ts')
local tokens = tonumber(state[1])
local ts = tonumber(state[2])
if tokens == nil or ts == nil then
	tokens = capacity
	ts = now_ms
end

local steps = math.floor(math.max(0, now_ms - ts) / interval_ms)
if steps > 0 then
	tokens = math.min(capacity, tokens + steps * refill)
	ts = ts + steps * interval_ms
end

local allowed = 0
local retry_ms = 0
if tokens > 0 then
	allowed = 1
	tokens = tokens - 1
else
	retry_ms = math.max(0, interval_ms - (now_ms - ts))
end

redis.call('HSET', key, 'tokens', tokens, 'ts', ts)
redis.call('EXPIRE', key, ttl)
return {allowed, tokens, retry_ms}
`)

// localBuckets is the in-process fallback used when Redis is missing or
// failing.  Idle buckets are dropped after the configured TTL.
type localBuckets struct {
	mu      sync.Mutex
	cfg     config.RateLimitConfig
	buckets map[string]*localBucket
	swept   time.Time
}

type localBucket struct {
	lim  *rate.Limiter
	seen time.Time
}

func newLocalBuckets(cfg config.RateLimitConfig) *localBuckets {
	return &localBuckets{cfg: cfg, buckets: make(map[string]*localBucket)}
}

func (l *localBuckets) take(key string, now time.Time) (bool, int, time.Duration) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if now.Sub(l.swept) > l.cfg.TTL {
		for k, b := range l.buckets {
			if now.Sub(b.seen) > l.cfg.TTL {
				delete(l.buckets, k)
			}
		}
		l.swept = now
	}
	b, ok := l.buckets[key]
	if !ok {
		b = &localBucket{lim: rate.NewLimiter(rate.Limit(l.cfg.PerSecond()), l.cfg.Capacity)}
		l.buckets[key] = b
	}
	b.seen = now
	r := b.lim.ReserveN(now, 1)
	if d := r.DelayFrom(now); d > 0 {
		r.CancelAt(now)
		return false, 0, d
	}
	return true, int(b.lim.TokensAt(now)), 0
}

// NewTokenBucket limits requests per caller.  Buckets live in Redis when
// rdb is set so every replica shares them; otherwise, and whenever Redis
// errors, each process limits on its own.
func NewTokenBucket(cfg config.RateLimitConfig, rdb redis.Scripter) echo.MiddlewareFunc {
	if !cfg.Enabled {
		return func(next echo.HandlerFunc) echo.HandlerFunc { return next }
	}
	local := newLocalBuckets(cfg)

	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			key := rateKey(cfg, c)
			now := time.Now()

			var (
				allowed   bool
				remaining int
				retry     time.Duration
				err       error = errNoRedis
			)
			if rdb != nil {
				allowed, remaining, retry, err = redisTake(c, rdb, cfg, key, now)
				if err != nil && cfg.Debug {
					logrus.WithError(err).WithField("key", key).Warn("redis rate limit failed, using local bucket")
				}
			}
			if err != nil {
				allowed, remaining, retry = local.take(key, now)
			}

			h := c.Response().Header()
			h.Set("X-RateLimit-Limit", strconv.Itoa(cfg.Capacity))
			h.Set("X-RateLimit-Remaining", strconv.Itoa(remaining))
			if !allowed {
				secs := int(math.Ceil(retry.Seconds()))
				h.Set("Retry-After", strconv.Itoa(secs))
				return c.JSON(http.StatusTooManyRequests, echo.Map{
					"error":      "rate limit exceeded",
					"code":       "too_many_requests",
					"retryAfter": secs,
				})
			}
			return next(c)
		}
	}
}

var errNoRedis = redis.Nil

func redisTake(c echo.Context, rdb redis.Scripter, cfg config.RateLimitConfig, key string, now time.Time) (bool, int, time.Duration, error) {
	vals, err := tokenBucket.Run(c.Request().Context(), rdb, []string{key},
		now.UnixMilli(), cfg.Capacity, cfg.RefillTokens, cfg.RefillInterval.Milliseconds(), int64(cfg.TTL/time.Second),
	).Int64Slice()
	if err != nil {
		return false, 0, 0, err
	}
	if len(vals) != 3 {
		return false, 0, 0, redis.Nil
	}
	return vals[0] == 1, int(vals[1]), time.Duration(vals[2]) * time.Millisecond, nil
}

func rateKey(cfg config.RateLimitConfig, c echo.Context) string {
	ip := c.RealIP()
	if ip == "" {
		ip = "unknown"
	}
	user := identityKey(c)
	route := c.Request().Method + " " + c.Path()

	parts := []string{cfg.Prefix}
	switch strings.ToLower(cfg.KeyStrategy) {
	case "ip":
		parts = append(parts, "ip", ip)
	case "user":
		parts = append(parts, "user", user)
	case "route":
		parts = append(parts, "route", route)
	case "ip_user":
		parts = append(parts, "ip", ip, "user", user)
	case "ip_route":
		parts = append(parts, "ip", ip, "route", route)
	case "user_route":
		parts = append(parts, "user", user, "route", route)
	default:
		parts = append(parts, "ip", ip, "user", user, "route", route)
	}
	return strings.Join(parts, ":")
}
