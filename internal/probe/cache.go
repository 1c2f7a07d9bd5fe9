package probe

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/mydia/mydia/internal/models"
)

// ──────────────────── Probe Cache ────────────────────

// Cache keeps technical profiles in Redis so repeat candidate requests do
// not shell out to ffprobe again. A miss is not an error; callers fall
// back to probing.
type Cache struct {
	rdb *redis.Client
	ttl time.Duration
}

func NewCache(rdb *redis.Client, ttl time.Duration) *Cache {
	return &Cache{rdb: rdb, ttl: ttl}
}

func cacheKey(fileID uuid.UUID) string {
	return "probe:" + fileID.String()
}

// Get returns the cached profile for a file, or (nil, nil) on a miss.
func (c *Cache) Get(ctx context.Context, fileID uuid.UUID) (*models.TechnicalProfile, error) {
	raw, err := c.rdb.Get(ctx, cacheKey(fileID)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	var profile models.TechnicalProfile
	if err := json.Unmarshal(raw, &profile); err != nil {
		// A corrupt entry is as good as a miss; drop it.
		c.rdb.Del(ctx, cacheKey(fileID))
		return nil, nil
	}
	return &profile, nil
}

// Set stores a profile with the cache TTL.
func (c *Cache) Set(ctx context.Context, fileID uuid.UUID, profile *models.TechnicalProfile) error {
	raw, err := json.Marshal(profile)
	if err != nil {
		return err
	}
	return c.rdb.Set(ctx, cacheKey(fileID), raw, c.ttl).Err()
}

// Invalidate drops the cached profile, used after a re-probe.
func (c *Cache) Invalidate(ctx context.Context, fileID uuid.UUID) error {
	return c.rdb.Del(ctx, cacheKey(fileID)).Err()
}
