package redis_repository

import (
	"context"
	"encoding/json"
	"errors"

	"github.com/redis/go-redis/v9"

	"github.com/discourselab/cosmos/internal/cosmos"
)

const layoutKeyPrefix = "cosmos:layout:"

// layoutCache implements cosmos.ResultCache on Redis. Records are stored
// as JSON values under content-addressed keys, with no expiry: a layout
// for a given source never goes stale by itself.
type layoutCache struct {
	client *redis.Client
}

// NewLayoutCache wraps a Redis client as a ResultCache.
func NewLayoutCache(client *redis.Client) *layoutCache {
	return &layoutCache{client: client}
}

func (c *layoutCache) Get(ctx context.Context, key string) (*cosmos.CachedLayout, error) {
	val, err := c.client.Get(ctx, layoutKeyPrefix+key).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, nil
		}
		return nil, err
	}

	var rec cosmos.CachedLayout
	if err := json.Unmarshal([]byte(val), &rec); err != nil {
		return nil, err
	}
	return &rec, nil
}

func (c *layoutCache) Set(ctx context.Context, key string, rec *cosmos.CachedLayout) error {
	data, err := json.Marshal(rec)
	if err != nil {
		return err
	}
	return c.client.Set(ctx, layoutKeyPrefix+key, data, 0).Err()
}
