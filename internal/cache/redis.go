package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/momohouse/pos/internal/model"
)

const menuKey = "menu:items"

// Redis shares the cached menu between server instances.
type Redis struct {
	rdb *redis.Client
	key string
	ttl time.Duration
}

// NewRedis caches under "<prefix>menu:items". Use a prefix per shop when
// several share a Redis.
func NewRedis(rdb *redis.Client, prefix string, ttl time.Duration) *Redis {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &Redis{rdb: rdb, key: prefix + menuKey, ttl: ttl}
}

func (r *Redis) Get(ctx context.Context) ([]model.MenuItem, bool, error) {
	raw, err := r.rdb.Get(ctx, r.key).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, false, nil
		}
		return nil, false, fmt.Errorf("read menu cache: %w", err)
	}

	var items []model.MenuItem
	if err := json.Unmarshal([]byte(raw), &items); err != nil {
		return nil, false, fmt.Errorf("decode menu cache: %w", err)
	}
	return items, true, nil
}

func (r *Redis) Set(ctx context.Context, items []model.MenuItem) error {
	if items == nil {
		items = []model.MenuItem{}
	}
	b, err := json.Marshal(items)
	if err != nil {
		return fmt.Errorf("encode menu cache: %w", err)
	}
	if err := r.rdb.Set(ctx, r.key, b, r.ttl).Err(); err != nil {
		return fmt.Errorf("write menu cache: %w", err)
	}
	return nil
}

func (r *Redis) Invalidate(ctx context.Context) error {
	if err := r.rdb.Del(ctx, r.key).Err(); err != nil {
		return fmt.Errorf("invalidate menu cache: %w", err)
	}
	return nil
}
