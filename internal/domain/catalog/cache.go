// internal/domain/catalog/cache.go
package catalog

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/singleflight"
)

const (
	featuredKey = "catalog:featured"
	loadTimeout = 5 * time.Second
)

// CachedLookup is a cache-aside Lookup over redis. Concurrent misses for the
// same key share one call to the underlying Lookup. Redis failures are
// logged and fall through to the source.
type CachedLookup struct {
	next   Lookup
	client *redis.Client
	ttl    time.Duration
	logger *logrus.Logger
	sfg    singleflight.Group
}

// NewCachedLookup wraps next with a redis cache
func NewCachedLookup(next Lookup, client *redis.Client, ttl time.Duration, logger *logrus.Logger) *CachedLookup {
	return &CachedLookup{
		next:   next,
		client: client,
		ttl:    ttl,
		logger: logger,
	}
}

// GetProduct returns the product from cache or the source
func (c *CachedLookup) GetProduct(ctx context.Context, id string) (*Product, error) {
	key := productKey(id)

	var cached Product
	if c.get(ctx, key, &cached) {
		return &cached, nil
	}

	v, err := c.load(ctx, key, func(ctx context.Context) (interface{}, error) {
		product, err := c.next.GetProduct(ctx, id)
		if err != nil {
			return nil, err
		}
		c.set(ctx, key, product)
		return product, nil
	})
	if err != nil {
		return nil, err
	}

	product := *v.(*Product)
	return &product, nil
}

// GetFeaturedProducts returns the featured listing from cache or the source
func (c *CachedLookup) GetFeaturedProducts(ctx context.Context) ([]Summary, error) {
	var cached []Summary
	if c.get(ctx, featuredKey, &cached) {
		return cached, nil
	}

	v, err := c.load(ctx, featuredKey, func(ctx context.Context) (interface{}, error) {
		summaries, err := c.next.GetFeaturedProducts(ctx)
		if err != nil {
			return nil, err
		}
		c.set(ctx, featuredKey, summaries)
		return summaries, nil
	})
	if err != nil {
		return nil, err
	}

	shared := v.([]Summary)
	out := make([]Summary, len(shared))
	copy(out, shared)
	return out, nil
}

// Invalidate drops cached entries for the given product ids and the
// featured listing
func (c *CachedLookup) Invalidate(ctx context.Context, ids ...string) error {
	keys := make([]string, 0, len(ids)+1)
	for _, id := range ids {
		keys = append(keys, productKey(id))
	}
	keys = append(keys, featuredKey)

	if err := c.client.Del(ctx, keys...).Err(); err != nil {
		return fmt.Errorf("redis delete failed: %w", err)
	}
	return nil
}

// load runs fn once for all concurrent callers of key. The shared call is
// detached from any one caller's context; each caller still stops waiting
// when its own context ends.
func (c *CachedLookup) load(ctx context.Context, key string, fn func(context.Context) (interface{}, error)) (interface{}, error) {
	ch := c.sfg.DoChan(key, func() (interface{}, error) {
		loadCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), loadTimeout)
		defer cancel()
		return fn(loadCtx)
	})

	select {
	case res := <-ch:
		return res.Val, res.Err
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

func (c *CachedLookup) get(ctx context.Context, key string, dest any) bool {
	data, err := c.client.Get(ctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		return false
	}
	if err != nil {
		c.logger.WithError(err).WithField("key", key).Warn("catalog cache get failed")
		return false
	}
	if err := json.Unmarshal(data, dest); err != nil {
		c.logger.WithError(err).WithField("key", key).Warn("catalog cache entry is corrupt")
		return false
	}
	return true
}

func (c *CachedLookup) set(ctx context.Context, key string, value any) {
	data, err := json.Marshal(value)
	if err != nil {
		c.logger.WithError(err).WithField("key", key).Warn("catalog cache marshal failed")
		return
	}
	if err := c.client.Set(ctx, key, data, c.ttl).Err(); err != nil {
		c.logger.WithError(err).WithField("key", key).Warn("catalog cache set failed")
	}
}

func productKey(id string) string {
	return fmt.Sprintf("catalog:product:%s", id)
}
