package presence

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

// onlineWindow is how long a user counts as online after their last request.
const onlineWindow = 5 * time.Minute

// Tracker records user activity and counts recently active users.
type Tracker interface {
	Touch(userID string)
	OnlineCount() int
}

// RedisTracker marks activity with TTL keys so presence expires on its own.
type RedisTracker struct {
	client *redis.Client
	prefix string
}

// NewRedisTracker builds a Redis-backed presence tracker.
func NewRedisTracker(addr, password string) *RedisTracker {
	addr = strings.TrimSpace(addr)
	if addr == "" {
		return nil
	}
	return &RedisTracker{
		client: redis.NewClient(&redis.Options{
			Addr:     addr,
			Password: password,
		}),
		prefix: "bloodbridge:online:",
	}
}

// Touch refreshes the user's online marker. Failures are ignored; presence
// is advisory.
func (t *RedisTracker) Touch(userID string) {
	if t == nil || userID == "" {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	_ = t.client.Set(ctx, t.prefix+userID, time.Now().UTC().Format(time.RFC3339), onlineWindow).Err()
}

// OnlineCount counts users active within the online window.
func (t *RedisTracker) OnlineCount() int {
	if t == nil {
		return 0
	}
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	var cursor uint64
	count := 0
	for {
		keys, next, err := t.client.Scan(ctx, cursor, t.prefix+"*", 100).Result()
		if err != nil {
			return count
		}
		count += len(keys)
		cursor = next
		if cursor == 0 {
			return count
		}
	}
}

// MemoryTracker is the in-process fallback when Redis is not configured.
type MemoryTracker struct {
	mu       sync.Mutex
	lastSeen map[string]time.Time
}

// NewMemoryTracker builds an in-memory presence tracker.
func NewMemoryTracker() *MemoryTracker {
	return &MemoryTracker{lastSeen: make(map[string]time.Time)}
}

func (t *MemoryTracker) Touch(userID string) {
	if t == nil || userID == "" {
		return
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	t.lastSeen[userID] = time.Now()
}

func (t *MemoryTracker) OnlineCount() int {
	if t == nil {
		return 0
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	cutoff := time.Now().Add(-onlineWindow)
	count := 0
	for id, seen := range t.lastSeen {
		if seen.After(cutoff) {
			count++
		} else {
			delete(t.lastSeen, id)
		}
	}
	return count
}
