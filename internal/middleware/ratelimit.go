package middleware

import (
	"context"
	"fmt"
	"math"
	"net"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/go-redis/redis/v8"
	"golang.org/x/time/rate"

	"github.com/dukerupert/haat/internal/domain"
)

// Limiter decides whether one more request under key is allowed. When it
// is not, retryAfter says how long the caller should wait.
type Limiter interface {
	Allow(ctx context.Context, key string) (allowed bool, retryAfter time.Duration, err error)
}

// RateLimiterConfig configures a limiter tier.
type RateLimiterConfig struct {
	// Name separates quotas of different tiers for the same caller.
	Name string

	// RequestsPerSecond is the sustained rate.
	RequestsPerSecond float64

	// BurstSize is the maximum number of requests allowed in a burst.
	BurstSize int
}

// DefaultRateLimiterConfig is applied to the whole API.
func DefaultRateLimiterConfig() RateLimiterConfig {
	return RateLimiterConfig{Name: "general", RequestsPerSecond: 10, BurstSize: 20}
}

// StrictRateLimiterConfig is applied to OTP and payment endpoints.
func StrictRateLimiterConfig() RateLimiterConfig {
	return RateLimiterConfig{Name: "strict", RequestsPerSecond: 0.2, BurstSize: 5}
}

// ============================================================================
// In-memory limiter
// ============================================================================

type visitor struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// MemoryLimiter keeps one token bucket per key in process memory.
type MemoryLimiter struct {
	config   RateLimiterConfig
	visitors map[string]*visitor
	mu       sync.Mutex
	idle     time.Duration
	stop     chan struct{}
	once     sync.Once
}

var _ Limiter = (*MemoryLimiter)(nil)

// NewMemoryLimiter creates a limiter and starts evicting keys idle for
// three minutes. Call Stop to end the eviction goroutine.
func NewMemoryLimiter(config RateLimiterConfig) *MemoryLimiter {
	l := &MemoryLimiter{
		config:   config,
		visitors: make(map[string]*visitor),
		idle:     3 * time.Minute,
		stop:     make(chan struct{}),
	}
	go l.cleanup()
	return l
}

func (l *MemoryLimiter) visitor(key string) *rate.Limiter {
	l.mu.Lock()
	defer l.mu.Unlock()

	v, ok := l.visitors[key]
	if !ok {
		v = &visitor{limiter: rate.NewLimiter(rate.Limit(l.config.RequestsPerSecond), l.config.BurstSize)}
		l.visitors[key] = v
	}
	v.lastSeen = time.Now()
	return v.limiter
}

// Allow implements Limiter.
func (l *MemoryLimiter) Allow(ctx context.Context, key string) (bool, time.Duration, error) {
	r := l.visitor(key).Reserve()
	if !r.OK() {
		return false, time.Second, nil
	}
	delay := r.Delay()
	if delay == 0 {
		return true, 0, nil
	}
	// Give the token back; the request is rejected, not queued.
	r.Cancel()
	return false, delay, nil
}

func (l *MemoryLimiter) cleanup() {
	ticker := time.NewTicker(time.Minute)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			l.mu.Lock()
			for key, v := range l.visitors {
				if time.Since(v.lastSeen) > l.idle {
					delete(l.visitors, key)
				}
			}
			l.mu.Unlock()
		case <-l.stop:
			return
		}
	}
}

// Stop ends the eviction goroutine.
func (l *MemoryLimiter) Stop() {
	l.once.Do(func() { close(l.stop) })
}

// ============================================================================
// Redis limiter
// ============================================================================

// RedisLimiter counts requests per key in fixed windows shared by every
// instance. The window is sized so that BurstSize requests fit in it at
// RequestsPerSecond.
type RedisLimiter struct {
	client *redis.Client
	config RateLimiterConfig
	window time.Duration
	prefix string
}

var _ Limiter = (*RedisLimiter)(nil)

// NewRedisLimiter creates a limiter backed by client.
func NewRedisLimiter(client *redis.Client, config RateLimiterConfig) *RedisLimiter {
	window := time.Second
	if config.RequestsPerSecond > 0 {
		window = time.Duration(float64(config.BurstSize) / config.RequestsPerSecond * float64(time.Second))
	}
	if window < time.Second {
		window = time.Second
	}
	return &RedisLimiter{
		client: client,
		config: config,
		window: window,
		prefix: "haat:ratelimit:",
	}
}

// Allow implements Limiter. The INCR and EXPIRE run in one transaction so a
// crash cannot leave a counter without a TTL.
func (l *RedisLimiter) Allow(ctx context.Context, key string) (bool, time.Duration, error) {
	now := time.Now()
	slot := now.UnixNano() / int64(l.window)
	redisKey := fmt.Sprintf("%s%s:%d", l.prefix, key, slot)

	var incr *redis.IntCmd
	_, err := l.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		incr = pipe.Incr(ctx, redisKey)
		pipe.Expire(ctx, redisKey, 2*l.window)
		return nil
	})
	if err != nil {
		return true, 0, fmt.Errorf("failed to increment rate limit counter: %w", err)
	}

	if incr.Val() <= int64(l.config.BurstSize) {
		return true, 0, nil
	}
	windowEnd := time.Unix(0, (slot+1)*int64(l.window))
	return false, windowEnd.Sub(now), nil
}

// ============================================================================
// Middleware
// ============================================================================

// RateLimit rejects requests over the limiter's quota with 429. Keys combine
// the tier name with the caller: the user id when authenticated, else the
// client IP. Limiter errors fail open.
func RateLimit(limiter Limiter, tier string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			key := tier + ":" + rateLimitIdentity(r)

			allowed, retryAfter, err := limiter.Allow(r.Context(), key)
			if err != nil {
				GetLogger(r.Context()).Warn("rate limiter unavailable", "error", err)
				next.ServeHTTP(w, r)
				return
			}
			if !allowed {
				seconds := int(math.Ceil(retryAfter.Seconds()))
				if seconds < 1 {
					seconds = 1
				}
				w.Header().Set("Retry-After", strconv.Itoa(seconds))
				writeError(w, r, domain.Errorf(domain.ERATELIMIT, "", "Too many requests"))
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

func rateLimitIdentity(r *http.Request) string {
	if user := domain.UserFromContext(r.Context()); user != nil {
		return "user:" + user.ID.String()
	}
	return "ip:" + GetClientIP(r)
}

// GetClientIP extracts the client IP from the request
// It checks X-Forwarded-For and X-Real-IP headers first (for proxied requests)
func GetClientIP(r *http.Request) string {
	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		first, _, _ := strings.Cut(xff, ",")
		return strings.TrimSpace(first)
	}

	if xri := r.Header.Get("X-Real-IP"); xri != "" {
		return xri
	}

	ip, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return ip
}
