package resolver

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/learnquest/learnquest/internal/curriculum"
)

// SessionCache holds generated topic content for one learner session.
// Entries are ephemeral by design: the shared curriculum document is never
// written, so abandoning a session simply lets its entries expire.
type SessionCache interface {
	Get(ctx context.Context, sessionID, curriculumID string, pos int) (curriculum.Topic, bool, error)
	Put(ctx context.Context, sessionID, curriculumID string, pos int, t curriculum.Topic) error
}

func sessionKey(sessionID, curriculumID string, pos int) string {
	return fmt.Sprintf("session:%s:topic:%s:%d", sessionID, curriculumID, pos)
}

// MemorySessionCache is an in-process SessionCache for tests and local runs.
type MemorySessionCache struct {
	mu      sync.RWMutex
	entries map[string]curriculum.Topic
}

// NewMemorySessionCache creates an empty in-memory session cache.
func NewMemorySessionCache() *MemorySessionCache {
	return &MemorySessionCache{entries: make(map[string]curriculum.Topic)}
}

func (c *MemorySessionCache) Get(_ context.Context, sessionID, curriculumID string, pos int) (curriculum.Topic, bool, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	t, ok := c.entries[sessionKey(sessionID, curriculumID, pos)]
	return t, ok, nil
}

func (c *MemorySessionCache) Put(_ context.Context, sessionID, curriculumID string, pos int, t curriculum.Topic) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.entries[sessionKey(sessionID, curriculumID, pos)] = t
	return nil
}

const defaultSessionTTL = 2 * time.Hour

// RedisSessionCache stores session content in Redis with a TTL, so generated
// content survives a page reload within the session but never outlives it.
type RedisSessionCache struct {
	client *redis.Client
	ttl    time.Duration
}

// NewRedisSessionCache creates a Redis-backed session cache.
func NewRedisSessionCache(client *redis.Client, ttl time.Duration) *RedisSessionCache {
	if ttl <= 0 {
		ttl = defaultSessionTTL
	}
	return &RedisSessionCache{client: client, ttl: ttl}
}

func (c *RedisSessionCache) Get(ctx context.Context, sessionID, curriculumID string, pos int) (curriculum.Topic, bool, error) {
	raw, err := c.client.Get(ctx, sessionKey(sessionID, curriculumID, pos)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return curriculum.Topic{}, false, nil
		}
		return curriculum.Topic{}, false, fmt.Errorf("session cache get: %w", err)
	}

	var t curriculum.Topic
	if err := json.Unmarshal(raw, &t); err != nil {
		return curriculum.Topic{}, false, fmt.Errorf("decode cached topic: %w", err)
	}
	return t, true, nil
}

func (c *RedisSessionCache) Put(ctx context.Context, sessionID, curriculumID string, pos int, t curriculum.Topic) error {
	raw, err := json.Marshal(t)
	if err != nil {
		return fmt.Errorf("encode cached topic: %w", err)
	}
	if err := c.client.Set(ctx, sessionKey(sessionID, curriculumID, pos), raw, c.ttl).Err(); err != nil {
		return fmt.Errorf("session cache put: %w", err)
	}
	return nil
}
