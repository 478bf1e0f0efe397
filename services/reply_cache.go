// services/reply_cache.go
package services

import (
	"context"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

// ReplyCache remembers comments the bot has answered so HasReplied can skip
// walking the reply tree.
type ReplyCache interface {
	Seen(ctx context.Context, commentID string) bool
	Mark(ctx context.Context, commentID string)
}

const replyCacheTTL = 7 * 24 * time.Hour

type MemoryReplyCache struct {
	mu   sync.Mutex
	ttl  time.Duration
	seen map[string]time.Time
	now  func() time.Time
}

func NewMemoryReplyCache() *MemoryReplyCache {
	return &MemoryReplyCache{ttl: replyCacheTTL, seen: make(map[string]time.Time), now: time.Now}
}

func (c *MemoryReplyCache) Seen(_ context.Context, commentID string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	expires, ok := c.seen[commentID]
	if !ok {
		return false
	}
	if c.now().After(expires) {
		delete(c.seen, commentID)
		return false
	}
	return true
}

func (c *MemoryReplyCache) Mark(_ context.Context, commentID string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.seen[commentID] = c.now().Add(c.ttl)
}

// RedisReplyCache shares the replied set across restarts. Redis errors count
// as a cache miss.
type RedisReplyCache struct {
	rdb *redis.Client
	ttl time.Duration
}

func NewRedisReplyCache(rdb *redis.Client) *RedisReplyCache {
	return &RedisReplyCache{rdb: rdb, ttl: replyCacheTTL}
}

func replyCacheKey(commentID string) string {
	return "picturegame:replied:" + commentID
}

func (c *RedisReplyCache) Seen(ctx context.Context, commentID string) bool {
	n, err := c.rdb.Exists(ctx, replyCacheKey(commentID)).Result()
	return err == nil && n > 0
}

func (c *RedisReplyCache) Mark(ctx context.Context, commentID string) {
	_ = c.rdb.Set(ctx, replyCacheKey(commentID), 1, c.ttl).Err()
}
