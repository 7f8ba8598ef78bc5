package cache

import (
	"context"
	"encoding/json"
	"time"

	"github.com/pkg/errors"
	"github.com/redis/go-redis/v9"

	"ecommerce/pkg/domain/model"
)

type redisCache struct {
	client redis.Cmdable
	prefix string
	ttl    time.Duration
}

// NewRedisCache stores JSON encoded values under prefix with a fixed ttl.
func NewRedisCache(client redis.Cmdable, prefix string, ttl time.Duration) model.Cache {
	return &redisCache{client: client, prefix: prefix, ttl: ttl}
}

func (c *redisCache) key(k string) string {
	if c.prefix == "" {
		return k
	}
	return c.prefix + ":" + k
}

func (c *redisCache) Get(ctx context.Context, key string, dest any) (bool, error) {
	raw, err := c.client.Get(ctx, c.key(key)).Bytes()
	if errors.Is(err, redis.Nil) {
		return false, nil
	}
	if err != nil {
		return false, errors.Wrapf(err, "cache get %s", key)
	}
	if err := json.Unmarshal(raw, dest); err != nil {
		return false, errors.Wrapf(err, "cache decode %s", key)
	}
	return true, nil
}

func (c *redisCache) Set(ctx context.Context, key string, value any) error {
	raw, err := json.Marshal(value)
	if err != nil {
		return errors.Wrapf(err, "cache encode %s", key)
	}
	return errors.Wrapf(c.client.Set(ctx, c.key(key), raw, c.ttl).Err(), "cache set %s", key)
}

func (c *redisCache) Delete(ctx context.Context, key string) error {
	return errors.Wrapf(c.client.Del(ctx, c.key(key)).Err(), "cache delete %s", key)
}

type nopCache struct{}

// NewNopCache never stores anything. Used when REDIS_ADDR is empty.
func NewNopCache() model.Cache { return nopCache{} }

func (nopCache) Get(context.Context, string, any) (bool, error) { return false, nil }

func (nopCache) Set(context.Context, string, any) error { return nil }

func (nopCache) Delete(context.Context, string) error { return nil }
