package middleware // token-bucket rate limiting backed by Redis or in-process limiters

import (
	"fmt"
	"math"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/iliyamo/manufacturer-api/internal/config"
	"github.com/iliyamo/manufacturer-api/internal/logger"
)

// limiterScript refills and takes one token atomically. It returns
// {allowed, remaining tokens, milliseconds until the next refill}.
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

// decision is the outcome of one bucket check.
type decision struct {
	allowed   bool
	remaining int64
	retry     time.Duration
}

// NewTokenBucket limits requests per caller with a token bucket. Buckets live
// in Redis so every instance shares them; without Redis each process keeps
// its own buckets in memory. A Redis failure lets the request through.
//
// The middleware is installed globally, ahead of route-level JWTAuth, so the
// user part of the key comes from parsing the bearer token with secret.
func NewTokenBucket(cfg config.RateLimitConfig, rdb *redis.Client, secret string) echo.MiddlewareFunc {
	if !cfg.Enabled {
		return passthrough
	}
	// Pick the bucket store once; the handler below only calls take.
	var take func(c echo.Context, key string) (decision, error)
	if rdb != nil {
		take = redisTake(cfg, rdb)
	} else {
		take = newLocalBuckets(cfg).take
	}

	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			key := buildRateKey(cfg, c, secret)
			d, err := take(c, key)
			// Fail open: a broken limiter must not take the API down.
			if err != nil {
				logger.FromCtx(c.Request().Context()).Warn("rate limit check failed", zap.String("key", key), zap.Error(err))
				return next(c)
			}

			// Expose the bucket state on every response, allowed or not.
			h := c.Response().Header()
			h.Set("X-RateLimit-Limit", strconv.Itoa(cfg.Capacity))
			h.Set("X-RateLimit-Remaining", strconv.FormatInt(d.remaining, 10))
			if cfg.Debug {
				h.Set("X-RateLimit-Key", key)
			}

			// Blocked: tell the client when the next token arrives, never
			// less than one second.
			if !d.allowed {
				secs := int(math.Ceil(d.retry.Seconds()))
				if secs < 1 {
					secs = 1
				}
				h.Set("Retry-After", strconv.Itoa(secs))
				return c.JSON(http.StatusTooManyRequests, echo.Map{
					"error":       "too_many_requests",
					"message":     "rate limit exceeded",
					"retry_after": secs,
				})
			}
			return next(c)
		}
	}
}

// redisTake runs the limiter script against the shared bucket for key.
func redisTake(cfg config.RateLimitConfig, rdb *redis.Client) func(echo.Context, string) (decision, error) {
	return func(c echo.Context, key string) (decision, error) {
		vals, err := limiterScript.Run(c.Request().Context(), rdb, []string{key},
			time.Now().UnixMilli(),
			cfg.Capacity,
			cfg.RefillTokens,
			cfg.RefillInterval.Milliseconds(),
			int64(cfg.TTL/time.Second),
		).Slice()
		if err != nil {
			return decision{}, err
		}
		if len(vals) != 3 {
			return decision{}, fmt.Errorf("unexpected limiter result %v", vals)
		}
		return decision{
			allowed:   asInt64(vals[0]) == 1,
			remaining: asInt64(vals[1]),
			retry:     time.Duration(asInt64(vals[2])) * time.Millisecond,
		}, nil
	}
}

// asInt64 normalizes the Lua reply values, which arrive as int64 or string
// depending on the client.
func asInt64(v interface{}) int64 {
	switch t := v.(type) {
	case int64:
		return t
	case int:
		return int64(t)
	case string:
		n, _ := strconv.ParseInt(t, 10, 64)
		return n
	}
	return 0
}

// localBuckets is the in-process fallback: one rate.Limiter per key, dropped
// once idle for longer than the configured TTL.
type localBuckets struct {
	cfg      config.RateLimitConfig
	limit    rate.Limit
	mu       sync.Mutex
	visitors map[string]*visitor
	lastGC   time.Time
}

type visitor struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

func newLocalBuckets(cfg config.RateLimitConfig) *localBuckets {
	per := cfg.RefillInterval / time.Duration(cfg.RefillTokens)
	return &localBuckets{
		cfg:      cfg,
		limit:    rate.Every(per),
		visitors: make(map[string]*visitor),
		lastGC:   time.Now(),
	}
}

func (b *localBuckets) take(_ echo.Context, key string) (decision, error) {
	now := time.Now()

	// Sweep idle visitors at most once per TTL, under the same lock that
	// guards lookups.
	b.mu.Lock()
	if now.Sub(b.lastGC) > b.cfg.TTL {
		for k, v := range b.visitors {
			if now.Sub(v.lastSeen) > b.cfg.TTL {
				delete(b.visitors, k)
			}
		}
		b.lastGC = now
	}
	v, ok := b.visitors[key]
	if !ok {
		v = &visitor{limiter: rate.NewLimiter(b.limit, b.cfg.Capacity)}
		b.visitors[key] = v
	}
	v.lastSeen = now
	b.mu.Unlock()

	// Reserve a token; give it back when it would require waiting.
	r := v.limiter.ReserveN(now, 1)
	if delay := r.DelayFrom(now); delay > 0 {
		r.CancelAt(now)
		return decision{allowed: false, retry: delay}, nil
	}
	remaining := int64(v.limiter.TokensAt(now))
	if remaining < 0 {
		remaining = 0
	}
	return decision{allowed: true, remaining: remaining}, nil
}

// buildRateKey joins the key parts selected by cfg.KeyStrategy, e.g.
// "rl:ip:10.0.0.1:user:a@x.com:route:GET /order" for the default strategy.
func buildRateKey(cfg config.RateLimitConfig, c echo.Context, secret string) string {
	ip := c.RealIP()
	if ip == "" {
		ip = "unknown"
	}
	uid := callerKey(c, secret)
	route := c.Request().Method + " " + c.Path()

	parts := []string{cfg.Prefix}
	switch strings.ToLower(cfg.KeyStrategy) {
	case "ip":
		parts = append(parts, "ip", ip)
	case "user":
		parts = append(parts, "user", uid)
	case "route":
		parts = append(parts, "route", route)
	case "ip_user":
		parts = append(parts, "ip", ip, "user", uid)
	case "ip_route":
		parts = append(parts, "ip", ip, "route", route)
	case "user_route":
		parts = append(parts, "user", uid, "route", route)
	default:
		parts = append(parts, "ip", ip, "user", uid, "route", route)
	}
	return strings.Join(parts, ":")
}
