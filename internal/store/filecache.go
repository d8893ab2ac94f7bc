package store

import (
	"context"
	"database/sql"
	"fmt"
	"sync"
	"time"
)

// DefaultFileCacheEntries bounds the file-text cache when no limit is configured.
const DefaultFileCacheEntries = 500

// FileTextCache persists extracted document text by Drive file ID with
// count-based LRU eviction.
type FileTextCache struct {
	s   *Store
	max int

	mu   sync.Mutex
	last int64
}

// NewFileTextCache returns a cache holding at most maxEntries texts.
func (s *Store) NewFileTextCache(maxEntries int) *FileTextCache {
	if maxEntries <= 0 {
		maxEntries = DefaultFileCacheEntries
	}
	return &FileTextCache{s: s, max: maxEntries}
}

// tick returns a strictly increasing recency stamp.
func (c *FileTextCache) tick() int64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	now := time.Now().UnixNano()
	if now <= c.last {
		now = c.last + 1
	}
	c.last = now
	return now
}

// Get returns the cached text for fileID and marks it as recently used.
func (c *FileTextCache) Get(ctx context.Context, fileID string) (string, bool, error) {
	var text string
	err := c.s.db.QueryRowContext(ctx, `SELECT text FROM file_texts WHERE file_id = ?`, fileID).Scan(&text)
	if err == sql.ErrNoRows {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}
	if _, err := c.s.db.ExecContext(ctx,
		`UPDATE file_texts SET last_used_at = ? WHERE file_id = ?`, c.tick(), fileID); err != nil {
		return "", false, err
	}
	return text, true, nil
}

// Put stores text for fileID and evicts the least recently used entries
// beyond the configured bound.
func (c *FileTextCache) Put(ctx context.Context, fileID, text string) error {
	tx, err := c.s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	stamp := c.tick()
	if _, err := tx.ExecContext(ctx,
		`INSERT INTO file_texts (file_id, text, size, last_used_at) VALUES (?, ?, ?, ?)
		 ON CONFLICT(file_id) DO UPDATE SET text = ?, size = ?, last_used_at = ?`,
		fileID, text, len(text), stamp, text, len(text), stamp,
	); err != nil {
		return fmt.Errorf("upsert file text: %w", err)
	}
	if _, err := tx.ExecContext(ctx,
		`DELETE FROM file_texts WHERE file_id IN (
			SELECT file_id FROM file_texts ORDER BY last_used_at DESC LIMIT -1 OFFSET ?
		)`, c.max,
	); err != nil {
		return fmt.Errorf("evict file texts: %w", err)
	}
	return tx.Commit()
}

// Len returns the number of cached texts.
func (c *FileTextCache) Len(ctx context.Context) (int, error) {
	var n int
	err := c.s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM file_texts`).Scan(&n)
	return n, err
}
