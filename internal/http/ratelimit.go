package http

import (
	"context"
	"net/http"
	"time"

	"github.com/redis/go-redis/v9"
)

const rateLimitScript = `
local current = redis.call("INCR", KEYS[1])
if current == 1 then
  redis.call("PEXPIRE", KEYS[1], ARGV[1])
end
if current > tonumber(ARGV[2]) then
  return 0
end
return 1
`

// RateLimiter is a fixed-window limiter keyed per caller. It fails open:
// Redis trouble never blocks traffic.
type RateLimiter struct {
	client *redis.Client
	script *redis.Script
	limit  int
	window time.Duration
}

func NewRateLimiter(client *redis.Client, limit int, window time.Duration) *RateLimiter {
	if client == nil {
		return nil
	}
	return &RateLimiter{
		client: client,
		script: redis.NewScript(rateLimitScript),
		limit:  limit,
		window: window,
	}
}

func (l *RateLimiter) allow(key string) bool {
	if l == nil || key == "" || l.limit <= 0 || l.window <= 0 {
		return true
	}
	ctx, cancel := context.WithTimeout(context.Background(), 250*time.Millisecond)
	defer cancel()
	allowed, err := l.script.Run(ctx, l.client, []string{"ratelimit:" + key}, l.window.Milliseconds(), l.limit).Int64()
	if err != nil {
		return true
	}
	return allowed == 1
}

func (l *RateLimiter) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		key := r.Header.Get("X-User-Id")
		if key == "" {
			key = r.RemoteAddr
		}
		if !l.allow(key) {
			writeError(w, http.StatusTooManyRequests, "RATE_LIMITED", "too many requests")
			return
		}
		next.ServeHTTP(w, r)
	})
}
