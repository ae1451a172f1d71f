// Package cache keeps normalized reference sets warm across batch passes.
// Values live in a small in-process LRU in front of an optional shared Store.
package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/Gobusters/ectologger"
	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/Ramsey-B/clover/pkg/normalizers"
	"github.com/Ramsey-B/clover/pkg/tracing"
)

const keyPrefix = "clover:refs"

// ReferenceKey names a normalized reference set. The tables fingerprint makes
// every table change a cache miss.
func ReferenceKey(kind normalizers.Kind, source, fingerprint string) string {
	return strings.Join([]string{keyPrefix, string(kind), source, fingerprint}, ":")
}

// Cache is a two-tier read-through cache of JSON values
type Cache[T any] struct {
	local  *lru.Cache[string, T]
	store  Store
	ttl    time.Duration
	logger ectologger.Logger
}

// New creates a cache. A nil store disables caching entirely.
func New[T any](store Store, size int, ttl time.Duration, logger ectologger.Logger) (*Cache[T], error) {
	c := &Cache[T]{store: store, ttl: ttl, logger: logger}
	if store == nil {
		return c, nil
	}
	if size < 1 {
		size = 1
	}
	local, err := lru.New[string, T](size)
	if err != nil {
		return nil, fmt.Errorf("failed to create local cache: %w", err)
	}
	c.local = local
	return c, nil
}

// Enabled reports whether values are cached at all
func (c *Cache[T]) Enabled() bool {
	return c.store != nil
}

// GetOrLoad returns the cached value for key, calling load on a miss.
// Shared store failures are logged and fall through to load.
func (c *Cache[T]) GetOrLoad(ctx context.Context, key string, load func(context.Context) (T, error)) (T, error) {
	if !c.Enabled() {
		return load(ctx)
	}

	ctx, span := tracing.StartSpan(ctx, "cache.GetOrLoad")
	defer span.End()

	if value, ok := c.local.Get(key); ok {
		return value, nil
	}

	log := c.logger.WithContext(ctx).WithField("key", key)

	data, err := c.store.Get(ctx, key)
	switch {
	case err == nil:
		var value T
		if err := json.Unmarshal(data, &value); err == nil {
			c.local.Add(key, value)
			log.Debug("Reference cache hit")
			return value, nil
		}
		log.Warn("Discarding undecodable cache entry")
	case !errors.Is(err, ErrMiss):
		log.WithError(err).Warn("Reference cache read failed")
	}

	value, err := load(ctx)
	if err != nil {
		var zero T
		return zero, err
	}

	c.local.Add(key, value)
	data, err = json.Marshal(value)
	if err != nil {
		log.WithError(err).Warn("Failed to encode cache entry")
		return value, nil
	}
	if err := c.store.Set(ctx, key, data, c.ttl); err != nil {
		log.WithError(err).Warn("Reference cache write failed")
	}
	return value, nil
}

// Invalidate drops key from both tiers
func (c *Cache[T]) Invalidate(ctx context.Context, key string) error {
	if !c.Enabled() {
		return nil
	}
	c.local.Remove(key)
	return c.store.Del(ctx, key)
}
