package http

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type countingLimiter struct {
	max  int
	seen map[string]int
	err  error
}

func (l *countingLimiter) Allow(ctx context.Context, key string) (RateDecision, error) {
	if l.err != nil {
		return RateDecision{}, l.err
	}
	count := l.seen[key]
	l.seen[key]++
	remaining := l.max - count - 1
	if remaining < 0 {
		remaining = 0
	}
	return RateDecision{
		Allowed:   count < l.max,
		Limit:     l.max,
		Remaining: remaining,
		Reset:     time.Now().Add(time.Minute),
	}, nil
}

func okHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
}

func TestRateLimitMiddleware(t *testing.T) {
	limiter := &countingLimiter{max: 2, seen: map[string]int{}}
	handler := RateLimitMiddleware(limiter, nil)(okHandler())

	send := func(remote string) *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodGet, "/api/products", nil)
		req.RemoteAddr = remote
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)
		return rec
	}

	rec := send("10.0.0.1:5000")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "2", rec.Header().Get("X-RateLimit-Limit"))
	assert.Equal(t, "1", rec.Header().Get("X-RateLimit-Remaining"))

	require.Equal(t, http.StatusOK, send("10.0.0.1:5001").Code)

	rec = send("10.0.0.1:5002")
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.NotEmpty(t, rec.Header().Get("Retry-After"))
	assert.Contains(t, rec.Body.String(), "Too many requests")

	assert.Equal(t, http.StatusOK, send("10.0.0.2:5000").Code)
}

func TestRateLimitMiddleware_FailsOpen(t *testing.T) {
	limiter := &countingLimiter{err: errors.New("redis down")}
	rec := httptest.NewRecorder()
	RateLimitMiddleware(limiter, nil)(okHandler()).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestRedisRateLimiter_Unreachable(t *testing.T) {
	client := redis.NewClient(&redis.Options{
		Addr:        "127.0.0.1:1",
		DialTimeout: 50 * time.Millisecond,
		MaxRetries:  -1,
	})
	defer client.Close()

	_, err := NewRedisRateLimiter(client, 10, time.Minute).Allow(context.Background(), "10.0.0.1")
	assert.Error(t, err)
}

func TestRateLimitMiddleware_IgnoresForwardedForFromClients(t *testing.T) {
	limiter := &countingLimiter{max: 1, seen: map[string]int{}}
	handler := RateLimitMiddleware(limiter, nil)(okHandler())

	allowed := 0
	for i := 0; i < 5; i++ {
		req := httptest.NewRequest(http.MethodGet, "/api/products", nil)
		req.RemoteAddr = "198.51.100.4:40000"
		req.Header.Set("X-Forwarded-For", fmt.Sprintf("203.0.113.%d", i))
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)
		if rec.Code == http.StatusOK {
			allowed++
		}
	}
	assert.Equal(t, 1, allowed)
}

func TestRemoteHost(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.RemoteAddr = "192.0.2.7:4242"
	req.Header.Set("X-Forwarded-For", "203.0.113.9")
	assert.Equal(t, "192.0.2.7", RemoteHost(req))

	req.RemoteAddr = "not-a-host-port"
	assert.Equal(t, "not-a-host-port", RemoteHost(req))
}

func TestTrustedProxyKey(t *testing.T) {
	proxies, err := ParseTrustedProxies([]string{"10.0.0.0/8", "192.0.2.1"})
	require.NoError(t, err)
	key := TrustedProxyKey(proxies)

	tests := []struct {
		name      string
		remote    string
		forwarded []string
		want      string
	}{
		{"untrusted peer header ignored", "198.51.100.4:1", []string{"203.0.113.9"}, "198.51.100.4"},
		{"trusted proxy without header", "10.1.2.3:1", nil, "10.1.2.3"},
		{"client behind proxy", "10.1.2.3:1", []string{"203.0.113.9"}, "203.0.113.9"},
		{"spoofed left entries skipped", "10.1.2.3:1", []string{"1.1.1.1, 203.0.113.9"}, "203.0.113.9"},
		{"proxy chain", "192.0.2.1:1", []string{"203.0.113.9, 10.0.0.5"}, "203.0.113.9"},
		{"repeated headers", "10.1.2.3:1", []string{"1.1.1.1", "203.0.113.9"}, "203.0.113.9"},
		{"garbage hop", "10.1.2.3:1", []string{"nonsense"}, "10.1.2.3"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/", nil)
			req.RemoteAddr = tt.remote
			for _, v := range tt.forwarded {
				req.Header.Add("X-Forwarded-For", v)
			}
			assert.Equal(t, tt.want, key(req))
		})
	}
}

func TestParseTrustedProxies(t *testing.T) {
	proxies, err := ParseTrustedProxies([]string{"10.0.0.1/8", "::1"})
	require.NoError(t, err)
	require.Len(t, proxies, 2)
	assert.Equal(t, "10.0.0.0/8", proxies[0].String())

	_, err = ParseTrustedProxies([]string{"10.0.0.0/40"})
	assert.Error(t, err)
	_, err = ParseTrustedProxies([]string{"proxy.internal"})
	assert.Error(t, err)
}
