package cache

import (
	"context"
	"encoding/json"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9" // Redis client
	"github.com/sirupsen/logrus"
)

// Cache is a read-through cache over Redis. It is never a source of
// truth: every miss falls back to the database, and writes invalidate
// entries instead of updating them. A nil or unreachable client degrades
// to always-miss, never to an error on the read path.
type Cache struct {
	rdb *redis.Client
}

func New(rdb *redis.Client) *Cache {
	return &Cache{rdb: rdb}
}

// Ready reports whether the cache backend is reachable.
func (c *Cache) Ready(ctx context.Context) bool {
	if c == nil || c.rdb == nil {
		return false
	}
	return c.rdb.Ping(ctx).Err() == nil
}

// Get retrieves a value and unmarshals it into dest. The bool reports a
// hit; a cold or unreachable cache is a miss, not an error.
func (c *Cache) Get(ctx context.Context, key string, dest any) bool {
	if c == nil || c.rdb == nil {
		return false
	}
	val, err := c.rdb.Get(ctx, key).Result()
	if err == redis.Nil {
		return false
	} else if err != nil {
		logrus.WithField("key", key).Debug("Cache read failed")
		return false
	}
	return json.Unmarshal([]byte(val), dest) == nil
}

// Set stores a value with a TTL. Failures are logged and dropped.
func (c *Cache) Set(ctx context.Context, key string, value any, ttl time.Duration) {
	if c == nil || c.rdb == nil {
		return
	}
	b, err := json.Marshal(value)
	if err != nil {
		return
	}
	if err := c.rdb.Set(ctx, key, b, ttl).Err(); err != nil {
		logrus.WithField("key", key).Debug("Cache write failed")
	}
}

// Invalidate removes keys after a write that could make them stale.
func (c *Cache) Invalidate(ctx context.Context, keys ...string) {
	if c == nil || c.rdb == nil || len(keys) == 0 {
		return
	}
	if err := c.rdb.Del(ctx, keys...).Err(); err != nil {
		logrus.WithField("keys", keys).Debug("Cache invalidation failed")
	}
}

// InvalidatePattern removes every key matching a glob pattern, scanning
// in batches.
func (c *Cache) InvalidatePattern(ctx context.Context, pattern string) {
	if c == nil || c.rdb == nil {
		return
	}
	var cursor uint64
	for {
		keys, next, err := c.rdb.Scan(ctx, cursor, pattern, 100).Result()
		if err != nil {
			logrus.WithField("pattern", pattern).Debug("Cache scan failed")
			return
		}
		if len(keys) > 0 {
			_ = c.rdb.Del(ctx, keys...).Err()
		}
		if next == 0 {
			return
		}
		cursor = next
	}
}

// Key builders for the hot read paths.

func ProductKey(id uint) string  { return "product:" + strconv.Itoa(int(id)) }
func VendorKey(id uint) string   { return "vendor:" + strconv.Itoa(int(id)) }
func CategoryKey(id uint) string { return "category:" + strconv.Itoa(int(id)) }
func CartKey(userID uint) string { return "cart:user:" + strconv.Itoa(int(userID)) }
