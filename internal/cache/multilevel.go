package cache

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sync"
	"time"
)

// Cache is what the services depend on. Every error is advisory: callers fall
// back to the store on any failure.
type Cache interface {
	Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error
	SetWithTags(ctx context.Context, key string, value interface{}, ttl time.Duration, tags []string) error
	Get(ctx context.Context, key string, dest interface{}) error
	Delete(ctx context.Context, keys ...string) error
	DeletePattern(ctx context.Context, pattern string) error
	InvalidateByTag(ctx context.Context, tag string) error
	Generation(ctx context.Context, scope string) (string, error)
	Bump(ctx context.Context, scope string) error
	Stats() map[string]interface{}
	Health(ctx context.Context) error
	Close() error
}

const defaultL1TTL = 30 * time.Second

// MultiLevelCache keeps a short-lived in-process copy in front of Redis. The
// L1 TTL bounds how long another instance's invalidation can go unseen. Redis
// calls go through a circuit breaker so an outage degrades to L1 plus store.
type MultiLevelCache struct {
	l1      *MemoryCache
	l2      *RedisCache
	l1TTL   time.Duration
	breaker *CircuitBreaker
	metrics *cacheCounters

	genMu  sync.Mutex
	gens   map[string]*scopeGen
	genSeq int64
	now    func() time.Time
}

// NewMultiLevelCache builds the cache; redisCache may be nil for an L1-only
// setup.
func NewMultiLevelCache(redisCache *RedisCache, l1TTL time.Duration) *MultiLevelCache {
	if l1TTL <= 0 {
		l1TTL = defaultL1TTL
	}
	return &MultiLevelCache{
		l1:      NewMemoryCache(),
		l2:      redisCache,
		l1TTL:   l1TTL,
		breaker: NewCircuitBreaker(nil),
		metrics: newCacheCounters(),
		gens:    make(map[string]*scopeGen),
		now:     time.Now,
	}
}

func (c *MultiLevelCache) localTTL(ttl time.Duration) time.Duration {
	if ttl <= 0 || ttl > c.l1TTL {
		return c.l1TTL
	}
	return ttl
}

func (c *MultiLevelCache) remote(fn func() error) error {
	if c.l2 == nil {
		return nil
	}
	err := c.breaker.Execute(fn)
	if err != nil {
		c.metrics.errors.Add(1)
		if errors.Is(err, ErrCircuitBreakerOpen) {
			return fmt.Errorf("%w: %v", ErrCacheDown, err)
		}
	}
	return err
}

func (c *MultiLevelCache) Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error {
	return c.SetWithTags(ctx, key, value, ttl, nil)
}

func (c *MultiLevelCache) SetWithTags(ctx context.Context, key string, value interface{}, ttl time.Duration, tags []string) error {
	if err := c.l1.Set(key, value, c.localTTL(ttl)); err != nil {
		return err
	}
	if len(tags) > 0 {
		c.l1.Tag(key, tags...)
	}
	c.metrics.sets.Add(1)

	return c.remote(func() error {
		return c.l2.SetWithTags(ctx, key, value, ttl, tags)
	})
}

func (c *MultiLevelCache) Get(ctx context.Context, key string, dest interface{}) error {
	if err := c.l1.Get(key, dest); err == nil {
		c.metrics.hit(LevelMemory)
		return nil
	}

	if c.l2 == nil {
		c.metrics.misses.Add(1)
		return ErrCacheMiss
	}

	var found bool
	err := c.remote(func() error {
		err := c.l2.Get(ctx, key, dest)
		if errors.Is(err, ErrCacheMiss) {
			return nil
		}
		found = err == nil
		return err
	})
	if err != nil {
		return err
	}
	if !found {
		c.metrics.misses.Add(1)
		return ErrCacheMiss
	}

	c.metrics.hit(LevelRedis)
	if err := c.l1.Set(key, dest, c.l1TTL); err != nil {
		log.Printf("cache: failed to promote %s to L1: %v", key, err)
	}
	return nil
}

func (c *MultiLevelCache) Delete(ctx context.Context, keys ...string) error {
	c.l1.Delete(keys...)
	c.metrics.invalidations.Add(1)
	return c.remote(func() error {
		return c.l2.Delete(ctx, keys...)
	})
}

func (c *MultiLevelCache) DeletePattern(ctx context.Context, pattern string) error {
	c.l1.DeletePattern(pattern)
	c.metrics.invalidations.Add(1)
	return c.remote(func() error {
		return c.l2.DeletePattern(ctx, pattern)
	})
}

func (c *MultiLevelCache) InvalidateByTag(ctx context.Context, tag string) error {
	c.l1.InvalidateTag(tag)
	c.metrics.invalidations.Add(1)
	return c.remote(func() error {
		return c.l2.InvalidateByTag(ctx, tag)
	})
}

// Sweep removes expired L1 entries, publishes generation bumps Redis missed
// and forgets idle generations until ctx is done.
func (c *MultiLevelCache) Sweep(ctx context.Context, every time.Duration) {
	ticker := time.NewTicker(every)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			c.l1.Cleanup()
			c.publishPending(ctx)
			c.pruneGenerations()
		}
	}
}

func (c *MultiLevelCache) Metrics() CacheSnapshot {
	return c.metrics.snapshot()
}

func (c *MultiLevelCache) Stats() map[string]interface{} {
	m := c.metrics.snapshot()
	stats := map[string]interface{}{
		"l1":            c.l1.Stats(),
		"l1_hits":       m.L1Hits,
		"l2_hits":       m.L2Hits,
		"misses":        m.Misses,
		"errors":        m.Errors,
		"invalidations": m.Invalidations,
		"hit_rate":      m.HitRate(),
		"breaker":       c.breaker.GetStats(),
	}
	if c.l2 != nil {
		stats["l2"] = c.l2.Stats()
	}
	return stats
}

func (c *MultiLevelCache) Health(ctx context.Context) error {
	if c.l2 != nil {
		return c.l2.Health(ctx)
	}
	return nil
}

func (c *MultiLevelCache) Close() error {
	if c.l2 != nil {
		return c.l2.Close()
	}
	return nil
}
