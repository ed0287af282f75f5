package cache

import (
	"context"
	"fmt"
	"strings"
	"time"

	gocache "github.com/patrickmn/go-cache"
	"golang.org/x/sync/singleflight"
)

// Memory is a process-local Cacher backed by go-cache.
type Memory[T any] struct {
	store *gocache.Cache
	group singleflight.Group
}

func NewMemory[T any](defaultTTL, cleanup time.Duration) *Memory[T] {
	if cleanup <= 0 {
		cleanup = time.Minute
	}
	return &Memory[T]{store: gocache.New(defaultTTL, cleanup)}
}

func (c *Memory[T]) GetOrFetch(ctx context.Context, key string, ttl time.Duration, fetch FetchFunc[T]) (T, error) {
	var zero T
	if v, ok := c.lookup(key); ok {
		return v, nil
	}

	v, err, _ := c.group.Do(key, func() (any, error) {
		if v, ok := c.lookup(key); ok {
			return v, nil
		}
		fetched, err := fetch(ctx)
		if err != nil {
			return zero, err
		}
		c.store.Set(key, fetched, ttl)
		return fetched, nil
	})
	if err != nil {
		return zero, err
	}
	typed, ok := v.(T)
	if !ok {
		return zero, fmt.Errorf("unexpected type in cache for key %s", key)
	}
	return typed, nil
}

func (c *Memory[T]) lookup(key string) (T, bool) {
	var zero T
	raw, found := c.store.Get(key)
	if !found {
		return zero, false
	}
	v, ok := raw.(T)
	return v, ok
}

func (c *Memory[T]) Delete(ctx context.Context, key string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	c.store.Delete(key)
	return nil
}

func (c *Memory[T]) DeleteByPrefix(ctx context.Context, prefix string) (int, error) {
	deleted := 0
	for key := range c.store.Items() {
		if err := ctx.Err(); err != nil {
			return deleted, err
		}
		if strings.HasPrefix(key, prefix) {
			c.store.Delete(key)
			deleted++
		}
	}
	return deleted, nil
}

// Len reports the number of live entries.
func (c *Memory[T]) Len() int {
	return c.store.ItemCount()
}
