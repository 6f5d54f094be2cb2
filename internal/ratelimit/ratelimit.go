// Package ratelimit throttles abuse-prone API routes with Redis-backed
// fixed windows, counted per route and client address.
package ratelimit

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
)

// incrWindow bumps the window counter and arms its expiry on first hit,
// atomically, so concurrent requests never leave an immortal key.
var incrWindow = redis.NewScript(`
local n = redis.call("INCR", KEYS[1])
if n == 1 then
  redis.call("PEXPIRE", KEYS[1], ARGV[1])
end
return n
`)

// Client holds the shared Redis connection behind all route limiters.
type Client struct {
	rdb    *redis.Client
	prefix string
}

// NewClient connects the limiter backend. The prefix namespaces counter
// keys so several deployments can share one Redis.
func NewClient(addr, password, prefix string) (*Client, error) {
	addr = strings.TrimSpace(addr)
	if addr == "" {
		return nil, errors.New("ratelimit: redis addr is required")
	}
	prefix = strings.TrimSpace(prefix)
	if prefix == "" {
		prefix = "bloodbridge:ratelimit"
	}
	return &Client{
		rdb: redis.NewClient(&redis.Options{
			Addr:     addr,
			Password: password,
		}),
		prefix: prefix,
	}, nil
}

// PerMinute returns a limiter for a named route allowing limit requests
// per client per minute. A nil client or non-positive limit yields a nil
// limiter, and a nil limiter allows everything.
func (c *Client) PerMinute(route string, limit int) *RouteLimiter {
	if c == nil || limit <= 0 {
		return nil
	}
	return &RouteLimiter{
		client: c,
		route:  route,
		limit:  limit,
		window: time.Minute,
	}
}

// RouteLimiter enforces one route's quota. Counters for different routes
// never collide, so exhausting login attempts leaves SOS alerts usable.
type RouteLimiter struct {
	client *Client
	route  string
	limit  int
	window time.Duration
}

// AllowIP reports whether the client address is within quota for the
// current window. Redis failures fail closed.
func (l *RouteLimiter) AllowIP(ip string) bool {
	if l == nil {
		return true
	}
	ip = strings.TrimSpace(ip)
	if ip == "" {
		ip = "unknown"
	}
	windowMs := l.window.Milliseconds()
	slot := time.Now().UTC().UnixMilli() / windowMs
	key := fmt.Sprintf("%s:%s:%s:%d", l.client.prefix, l.route, ip, slot)

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	n, err := incrWindow.Run(ctx, l.client.rdb, []string{key}, windowMs).Int64()
	if err != nil {
		return false
	}
	return n <= int64(l.limit)
}
