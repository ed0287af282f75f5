// Package cache memoizes read-mostly catalogue rows (lessons, exercises,
// exams, game items) in front of the repositories.
package cache

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// FetchFunc loads a value on a miss.
type FetchFunc[T any] func(ctx context.Context) (T, error)

// Cacher is a typed read-through cache. Implementations collapse
// concurrent misses for one key into a single fetch.
type Cacher[T any] interface {
	GetOrFetch(ctx context.Context, key string, ttl time.Duration, fetch FetchFunc[T]) (T, error)
	Delete(ctx context.Context, key string) error
	DeleteByPrefix(ctx context.Context, prefix string) (int, error)
}

// Backend names accepted by New.
const (
	BackendMemory = "memory"
	BackendRedis  = "redis"
	BackendNone   = "none"
)

// Options selects and configures a backend.
type Options struct {
	Backend string
	TTL     time.Duration
	Prefix  string
	Redis   *redis.Client
}

// New builds a Cacher for the configured backend. The redis backend needs
// a connected client in opts.
func New[T any](opts Options) (Cacher[T], error) {
	switch opts.Backend {
	case BackendMemory, "":
		return NewMemory[T](opts.TTL, 2*opts.TTL), nil
	case BackendRedis:
		if opts.Redis == nil {
			return nil, fmt.Errorf("redis cache backend requires a client")
		}
		return NewRedis[T](opts.Redis, opts.Prefix), nil
	case BackendNone:
		return Noop[T]{}, nil
	default:
		return nil, fmt.Errorf("unknown cache backend %q", opts.Backend)
	}
}

// Key joins a namespace and an id into a cache key.
func Key(namespace string, id int64) string {
	return fmt.Sprintf("%s:%d", namespace, id)
}

// Noop never stores anything.
type Noop[T any] struct{}

func (Noop[T]) GetOrFetch(ctx context.Context, _ string, _ time.Duration, fetch FetchFunc[T]) (T, error) {
	return fetch(ctx)
}

func (Noop[T]) Delete(context.Context, string) error { return nil }

func (Noop[T]) DeleteByPrefix(context.Context, string) (int, error) { return 0, nil }
