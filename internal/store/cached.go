package store

import (
	"context"
	"crypto/sha256"
	"fmt"
	"log"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/voyagen/watchvault/internal/cache"
	"github.com/voyagen/watchvault/internal/models"
)

// Cache TTLs.
const (
	ttlList  = 1 * time.Minute
	ttlMedia = 5 * time.Minute
)

const listPattern = "media:list:*"

// CachedStore wraps a Store with a Redis caching layer.
// Reads are served from cache when possible; every write drops the entry's
// key and all cached lists, since any write can change list membership.
type CachedStore struct {
	inner Store
	cache *cache.Redis
}

// NewCachedStore creates a CachedStore that wraps inner with Redis caching.
func NewCachedStore(inner Store, c *cache.Redis) *CachedStore {
	return &CachedStore{inner: inner, cache: c}
}

func mediaKey(id string) string { return "media:" + id }

// --- cached reads ---

func (c *CachedStore) ListMedia(ctx context.Context, filter MediaFilter) ([]models.Media, error) {
	key := "media:list:" + filterHash(filter)
	if v, err := cache.Get[[]models.Media](ctx, c.cache, key); err == nil {
		return v, nil
	}
	items, err := c.inner.ListMedia(ctx, filter)
	if err != nil {
		return nil, err
	}
	if err := cache.Set(ctx, c.cache, key, items, ttlList); err != nil {
		log.Printf("cache: set %s: %v", key, err)
	}
	return items, nil
}

func (c *CachedStore) GetMedia(ctx context.Context, id string) (*models.Media, error) {
	key := mediaKey(id)
	if v, err := cache.Get[models.Media](ctx, c.cache, key); err == nil {
		return &v, nil
	}
	m, err := c.inner.GetMedia(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := cache.Set(ctx, c.cache, key, m, ttlMedia); err != nil {
		log.Printf("cache: set %s: %v", key, err)
	}
	return m, nil
}

// --- writes with invalidation ---

func (c *CachedStore) InsertMedia(ctx context.Context, in models.MediaCreate) (*models.Media, error) {
	m, err := c.inner.InsertMedia(ctx, in)
	if err != nil {
		return nil, err
	}
	c.invalidatePattern(ctx, listPattern)
	return m, nil
}

func (c *CachedStore) UpdateMedia(ctx context.Context, id string, fields models.MediaUpdate) (*models.Media, error) {
	m, err := c.inner.UpdateMedia(ctx, id, fields)
	if err != nil {
		return nil, err
	}
	c.invalidate(ctx, mediaKey(id))
	c.invalidatePattern(ctx, listPattern)
	return m, nil
}

func (c *CachedStore) DeleteMedia(ctx context.Context, id string) error {
	if err := c.inner.DeleteMedia(ctx, id); err != nil {
		return err
	}
	c.invalidate(ctx, mediaKey(id))
	c.invalidatePattern(ctx, listPattern)
	return nil
}

func (c *CachedStore) MarkWatched(ctx context.Context, id string, in models.WatchedInput) (*models.Media, error) {
	m, err := c.inner.MarkWatched(ctx, id, in)
	if err != nil {
		return nil, err
	}
	c.invalidate(ctx, mediaKey(id))
	c.invalidatePattern(ctx, listPattern)
	return m, nil
}

// --- helpers ---

// invalidate deletes exact cache keys, logging any errors.
func (c *CachedStore) invalidate(ctx context.Context, keys ...string) {
	if err := cache.Del(ctx, c.cache, keys...); err != nil && err != redis.Nil {
		log.Printf("cache: del %v: %v", keys, err)
	}
}

// invalidatePattern deletes all keys matching the given glob patterns.
func (c *CachedStore) invalidatePattern(ctx context.Context, patterns ...string) {
	for _, p := range patterns {
		if err := cache.DelPattern(ctx, c.cache, p); err != nil {
			log.Printf("cache: del pattern %s: %v", p, err)
		}
	}
}

// filterHash produces a short deterministic hash for a MediaFilter so it
// can be used as part of a cache key.
func filterHash(f MediaFilter) string {
	watched, mediaType := "any", "any"
	if f.Watched != nil {
		watched = fmt.Sprintf("%t", *f.Watched)
	}
	if f.MediaType != nil {
		mediaType = string(*f.MediaType)
	}
	raw := fmt.Sprintf("%s|%s|%s|%s", watched, mediaType, f.Title, f.sortValue())
	h := sha256.Sum256([]byte(raw))
	return fmt.Sprintf("%x", h[:8])
}
