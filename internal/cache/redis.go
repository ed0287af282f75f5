package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"golang.org/x/sync/singleflight"
)

// Redis is a shared Cacher storing JSON values under a key prefix, so
// several server processes can share one catalogue cache.
type Redis[T any] struct {
	client *redis.Client
	prefix string
	group  singleflight.Group
}

func NewRedis[T any](client *redis.Client, prefix string) *Redis[T] {
	return &Redis[T]{client: client, prefix: prefix}
}

// NewRedisClient connects and pings a redis server.
func NewRedisClient(ctx context.Context, addr string) (*redis.Client, error) {
	client := redis.NewClient(&redis.Options{Addr: addr})
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("could not connect to redis at %s: %w", addr, err)
	}
	return client, nil
}

func (c *Redis[T]) GetOrFetch(ctx context.Context, key string, ttl time.Duration, fetch FetchFunc[T]) (T, error) {
	var zero T
	full := c.prefix + key

	if v, ok, err := c.get(ctx, full); err != nil {
		return zero, err
	} else if ok {
		return v, nil
	}

	v, err, _ := c.group.Do(full, func() (any, error) {
		fetched, err := fetch(ctx)
		if err != nil {
			return zero, err
		}
		data, err := json.Marshal(fetched)
		if err != nil {
			return zero, fmt.Errorf("failed to marshal cache value: %w", err)
		}
		if err := c.client.Set(ctx, full, data, ttl).Err(); err != nil {
			return zero, fmt.Errorf("failed to cache result: %w", err)
		}
		return fetched, nil
	})
	if err != nil {
		return zero, err
	}
	return v.(T), nil
}

func (c *Redis[T]) get(ctx context.Context, key string) (T, bool, error) {
	var out T
	raw, err := c.client.Get(ctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		return out, false, nil
	}
	if err != nil {
		return out, false, fmt.Errorf("redis get error: %w", err)
	}
	if err := json.Unmarshal(raw, &out); err != nil {
		return out, false, fmt.Errorf("failed to unmarshal cached value: %w", err)
	}
	return out, true, nil
}

func (c *Redis[T]) Delete(ctx context.Context, key string) error {
	if err := c.client.Del(ctx, c.prefix+key).Err(); err != nil {
		return fmt.Errorf("failed to delete key: %w", err)
	}
	return nil
}

func (c *Redis[T]) DeleteByPrefix(ctx context.Context, prefix string) (int, error) {
	var keys []string
	iter := c.client.Scan(ctx, 0, c.prefix+prefix+"*", 0).Iterator()
	for iter.Next(ctx) {
		keys = append(keys, iter.Val())
	}
	if err := iter.Err(); err != nil {
		return 0, fmt.Errorf("failed to scan keys: %w", err)
	}
	if len(keys) == 0 {
		return 0, nil
	}
	n, err := c.client.Del(ctx, keys...).Result()
	if err != nil {
		return 0, fmt.Errorf("failed to delete keys: %w", err)
	}
	return int(n), nil
}
