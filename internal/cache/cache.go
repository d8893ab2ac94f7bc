// Package cache stores extracted file text in Redis with count-based LRU
// eviction, for deployments that run several examprep instances.
package cache

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/redis/go-redis/v9"
)

// DefaultPrefix namespaces the cache keys.
const DefaultPrefix = "doc_cache"

// FileTextCache implements the file-text cache on Redis. Each text lives
// under <prefix>:<fileID>; a sorted set <prefix>:lru ranks file IDs by a
// recency counter <prefix>:seq.
type FileTextCache struct {
	rdb    redis.UniversalClient
	prefix string
	max    int
}

// New returns a cache holding at most maxEntries texts.
func New(rdb redis.UniversalClient, prefix string, maxEntries int) *FileTextCache {
	if prefix == "" {
		prefix = DefaultPrefix
	}
	return &FileTextCache{rdb: rdb, prefix: prefix, max: maxEntries}
}

// Connect parses a redis:// URL and pings the server.
func Connect(ctx context.Context, url string) (*redis.Client, error) {
	opt, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("parse redis URL: %w", err)
	}
	rdb := redis.NewClient(opt)
	if err := rdb.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("ping redis: %w", err)
	}
	slog.Info("redis connected", "addr", opt.Addr, "db", opt.DB)
	return rdb, nil
}

func (c *FileTextCache) key(fileID string) string { return c.prefix + ":" + fileID }
func (c *FileTextCache) lruKey() string           { return c.prefix + ":lru" }
func (c *FileTextCache) seqKey() string           { return c.prefix + ":seq" }

func (c *FileTextCache) touch(ctx context.Context, fileID string) error {
	seq, err := c.rdb.Incr(ctx, c.seqKey()).Result()
	if err != nil {
		return err
	}
	return c.rdb.ZAdd(ctx, c.lruKey(), redis.Z{Score: float64(seq), Member: fileID}).Err()
}

// Get returns the cached text and marks it as recently used.
func (c *FileTextCache) Get(ctx context.Context, fileID string) (string, bool, error) {
	text, err := c.rdb.Get(ctx, c.key(fileID)).Result()
	if errors.Is(err, redis.Nil) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("get %s: %w", fileID, err)
	}
	if err := c.touch(ctx, fileID); err != nil {
		return "", false, fmt.Errorf("touch %s: %w", fileID, err)
	}
	return text, true, nil
}

// Put stores text and evicts the least recently used entries beyond the bound.
func (c *FileTextCache) Put(ctx context.Context, fileID, text string) error {
	if err := c.rdb.Set(ctx, c.key(fileID), text, 0).Err(); err != nil {
		return fmt.Errorf("set %s: %w", fileID, err)
	}
	if err := c.touch(ctx, fileID); err != nil {
		return fmt.Errorf("touch %s: %w", fileID, err)
	}
	return c.evict(ctx)
}

func (c *FileTextCache) evict(ctx context.Context) error {
	if c.max <= 0 {
		return nil
	}
	n, err := c.rdb.ZCard(ctx, c.lruKey()).Result()
	if err != nil {
		return fmt.Errorf("zcard: %w", err)
	}
	excess := n - int64(c.max)
	if excess <= 0 {
		return nil
	}
	victims, err := c.rdb.ZRange(ctx, c.lruKey(), 0, excess-1).Result()
	if err != nil {
		return fmt.Errorf("zrange: %w", err)
	}

	_, err = c.rdb.TxPipelined(ctx, func(p redis.Pipeliner) error {
		for _, id := range victims {
			p.Del(ctx, c.key(id))
			p.ZRem(ctx, c.lruKey(), id)
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("evict: %w", err)
	}
	return nil
}

// Len returns the number of tracked entries.
func (c *FileTextCache) Len(ctx context.Context) (int, error) {
	n, err := c.rdb.ZCard(ctx, c.lruKey()).Result()
	return int(n), err
}
