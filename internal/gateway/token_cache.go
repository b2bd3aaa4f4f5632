package gateway

import (
	"context"
	"sync"
	"time"

	"github.com/Intruder289/maishaap-backend-sub002/pkg/logger"
	"github.com/go-redis/redis/v8"
)

// TokenCache stores short-lived provider access tokens.
type TokenCache interface {
	Get(ctx context.Context, key string) (string, bool)
	Set(ctx context.Context, key, token string, ttl time.Duration)
}

type memoryEntry struct {
	token   string
	expires time.Time
}

// MemoryTokenCache keeps tokens in process.
type MemoryTokenCache struct {
	mu      sync.Mutex
	entries map[string]memoryEntry
	now     func() time.Time
}

// NewMemoryTokenCache creates an empty in-process cache
func NewMemoryTokenCache() *MemoryTokenCache {
	return &MemoryTokenCache{entries: make(map[string]memoryEntry), now: time.Now}
}

func (c *MemoryTokenCache) Get(_ context.Context, key string) (string, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	e, ok := c.entries[key]
	if !ok || !c.now().Before(e.expires) {
		delete(c.entries, key)
		return "", false
	}
	return e.token, true
}

func (c *MemoryTokenCache) Set(_ context.Context, key, token string, ttl time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[key] = memoryEntry{token: token, expires: c.now().Add(ttl)}
}

// RedisTokenCache shares tokens between API and job processes.
type RedisTokenCache struct {
	client *redis.Client
}

// NewRedisTokenCache creates a redis-backed cache
func NewRedisTokenCache(client *redis.Client) *RedisTokenCache {
	return &RedisTokenCache{client: client}
}

func (c *RedisTokenCache) Get(ctx context.Context, key string) (string, bool) {
	tok, err := c.client.Get(ctx, key).Result()
	if err != nil {
		if err != redis.Nil {
			logger.Warn("Token cache read failed", "error", err)
		}
		return "", false
	}
	return tok, true
}

func (c *RedisTokenCache) Set(ctx context.Context, key, token string, ttl time.Duration) {
	if err := c.client.Set(ctx, key, token, ttl).Err(); err != nil {
		logger.Warn("Token cache write failed", "error", err)
	}
}
