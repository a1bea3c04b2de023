package http

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"net/netip"
	"strconv"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/tair/listing-ledger/pkg/logger"
)

// RateDecision is the outcome of one rate limit check
type RateDecision struct {
	Allowed   bool
	Limit     int
	Remaining int
	Reset     time.Time
}

// RateLimiter decides whether a client identified by key may make another request
type RateLimiter interface {
	Allow(ctx context.Context, key string) (RateDecision, error)
}

// RedisRateLimiter is a sliding-window limiter shared by every service
// instance through one sorted set per client
type RedisRateLimiter struct {
	client      redis.UniversalClient
	maxRequests int
	window      time.Duration
	now         func() time.Time
}

// NewRedisRateLimiter allows maxRequests per window per client
func NewRedisRateLimiter(client redis.UniversalClient, maxRequests int, window time.Duration) *RedisRateLimiter {
	return &RedisRateLimiter{
		client:      client,
		maxRequests: maxRequests,
		window:      window,
		now:         time.Now,
	}
}

// Allow records the request and reports whether it fits the window
func (l *RedisRateLimiter) Allow(ctx context.Context, key string) (RateDecision, error) {
	redisKey := "listing:ratelimit:" + key
	now := l.now()
	windowStart := now.Add(-l.window)

	pipe := l.client.Pipeline()
	pipe.ZRemRangeByScore(ctx, redisKey, "0", strconv.FormatInt(windowStart.UnixNano(), 10))
	countCmd := pipe.ZCard(ctx, redisKey)
	pipe.ZAdd(ctx, redisKey, redis.Z{
		Score:  float64(now.UnixNano()),
		Member: now.UnixNano(),
	})
	pipe.Expire(ctx, redisKey, l.window+time.Minute)

	if _, err := pipe.Exec(ctx); err != nil {
		return RateDecision{}, fmt.Errorf("rate limit check for %s: %w", key, err)
	}

	count := int(countCmd.Val())
	remaining := l.maxRequests - count - 1
	if remaining < 0 {
		remaining = 0
	}

	return RateDecision{
		Allowed:   count < l.maxRequests,
		Limit:     l.maxRequests,
		Remaining: remaining,
		Reset:     now.Add(l.window),
	}, nil
}

// ClientKeyFunc identifies the client a request is counted against
type ClientKeyFunc func(r *http.Request) string

// RateLimitMiddleware rejects clients over their limit with 429. Limiter
// errors let the request through. A nil clientKey counts by RemoteHost.
func RateLimitMiddleware(limiter RateLimiter, clientKey ClientKeyFunc) func(http.Handler) http.Handler {
	if clientKey == nil {
		clientKey = RemoteHost
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			key := clientKey(r)

			decision, err := limiter.Allow(r.Context(), key)
			if err != nil {
				logger.Error(r.Context()).
					Err(err).
					Str("client", key).
					Msg("Rate limiter error")
				next.ServeHTTP(w, r)
				return
			}

			w.Header().Set("X-RateLimit-Limit", strconv.Itoa(decision.Limit))
			w.Header().Set("X-RateLimit-Remaining", strconv.Itoa(decision.Remaining))
			w.Header().Set("X-RateLimit-Reset", strconv.FormatInt(decision.Reset.Unix(), 10))

			if !decision.Allowed {
				retryAfter := time.Until(decision.Reset).Round(time.Second)
				if retryAfter < 0 {
					retryAfter = 0
				}
				logger.Warn(r.Context()).
					Str("client", key).
					Int("limit", decision.Limit).
					Msg("Rate limit exceeded")

				w.Header().Set("Retry-After", strconv.Itoa(int(retryAfter.Seconds())))
				respondError(w, http.StatusTooManyRequests, fmt.Sprintf("Too many requests. Try again in %v", retryAfter))
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

// RemoteHost identifies the caller by the connection's remote host.
// Forwarding headers are ignored.
func RemoteHost(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}

// ParseTrustedProxies parses proxy addresses given as IPs or CIDR prefixes
func ParseTrustedProxies(entries []string) ([]netip.Prefix, error) {
	prefixes := make([]netip.Prefix, 0, len(entries))
	for _, entry := range entries {
		if strings.Contains(entry, "/") {
			prefix, err := netip.ParsePrefix(entry)
			if err != nil {
				return nil, fmt.Errorf("invalid trusted proxy %q: %w", entry, err)
			}
			prefixes = append(prefixes, prefix.Masked())
			continue
		}
		addr, err := netip.ParseAddr(entry)
		if err != nil {
			return nil, fmt.Errorf("invalid trusted proxy %q: %w", entry, err)
		}
		prefixes = append(prefixes, netip.PrefixFrom(addr.Unmap(), addr.Unmap().BitLen()))
	}
	return prefixes, nil
}

// TrustedProxyKey reads X-Forwarded-For only on connections from one of
// proxies. The client is the rightmost forwarded address that is not itself
// a trusted proxy, since entries to its left are supplied by the caller.
func TrustedProxyKey(proxies []netip.Prefix) ClientKeyFunc {
	trusted := func(raw string) bool {
		addr, err := netip.ParseAddr(raw)
		if err != nil {
			return false
		}
		addr = addr.Unmap()
		for _, p := range proxies {
			if p.Contains(addr) {
				return true
			}
		}
		return false
	}

	return func(r *http.Request) string {
		remote := RemoteHost(r)
		if !trusted(remote) {
			return remote
		}

		hops := strings.Split(strings.Join(r.Header.Values("X-Forwarded-For"), ","), ",")
		for i := len(hops) - 1; i >= 0; i-- {
			hop := strings.TrimSpace(hops[i])
			if hop == "" || trusted(hop) {
				continue
			}
			if _, err := netip.ParseAddr(hop); err != nil {
				// unparseable hop; the proxy is the last address known to be real
				return remote
			}
			return hop
		}
		return remote
	}
}
