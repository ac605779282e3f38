package preferences

import (
	"context"
	"encoding/json"
	stderrors "errors"
	"time"

	"marketplace-matching/internal/common/logger"

	"github.com/redis/go-redis/v9"
)

const cacheKeyPrefix = "match:prefs:"

// CachedStore is a read-through Redis cache in front of another Store.
// Each user has one hash keyed by category, so a Save for any category
// drops every cached lookup that could have fallen back to it. Redis
// failures are logged and bypassed.
type CachedStore struct {
	inner  Store
	redis  redis.Cmdable
	ttl    time.Duration
	logger logger.Logger
}

func NewCachedStore(inner Store, rdb redis.Cmdable, ttl time.Duration, log logger.Logger) *CachedStore {
	return &CachedStore{
		inner:  inner,
		redis:  rdb,
		ttl:    ttl,
		logger: log.WithFields(map[string]interface{}{"component": "preferences-cache"}),
	}
}

func cacheKey(userID string) string {
	return cacheKeyPrefix + userID
}

func (c *CachedStore) Get(ctx context.Context, userID, category string) (*Profile, error) {
	key := cacheKey(userID)

	cached := true
	val, err := c.redis.HGet(ctx, key, category).Result()
	switch {
	case err == nil:
		var profile Profile
		if jsonErr := json.Unmarshal([]byte(val), &profile); jsonErr == nil {
			return &profile, nil
		}
		c.logger.Warn("discarding unreadable cache entry", map[string]interface{}{
			"key":      key,
			"category": category,
		})
	case stderrors.Is(err, redis.Nil):
	default:
		cached = false
		c.logger.Warn("preferences cache unavailable", map[string]interface{}{
			"key":   key,
			"error": err,
		})
	}

	profile, err := c.inner.Get(ctx, userID, category)
	if err != nil {
		return nil, err
	}

	if cached {
		c.store(ctx, key, category, profile)
	}
	return profile, nil
}

func (c *CachedStore) store(ctx context.Context, key, category string, profile *Profile) {
	data, err := json.Marshal(profile)
	if err != nil {
		return
	}
	if err := c.redis.HSet(ctx, key, category, string(data)).Err(); err != nil {
		c.logger.Warn("failed to cache preferences", map[string]interface{}{
			"key":   key,
			"error": err,
		})
		return
	}
	if c.ttl > 0 {
		c.redis.Expire(ctx, key, c.ttl)
	}
}

func (c *CachedStore) Save(ctx context.Context, userID, category string, profile Profile) error {
	if err := c.inner.Save(ctx, userID, category, profile); err != nil {
		return err
	}
	if err := c.redis.Del(ctx, cacheKey(userID)).Err(); err != nil {
		c.logger.Warn("failed to invalidate preferences cache", map[string]interface{}{
			"userId": userID,
			"error":  err,
		})
	}
	return nil
}
