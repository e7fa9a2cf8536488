package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

var (
	ErrCacheMiss = errors.New("cache miss")
	ErrCacheDown = errors.New("cache unavailable")
)

const (
	opTimeout   = 3 * time.Second
	scanTimeout = 10 * time.Second
	scanBatch   = 200
)

// invalidateTag drops the tag set and every key listed in it in one round
// trip, so a concurrent SetWithTags cannot slip a key in between.
var invalidateTag = redis.NewScript(`
local members = redis.call('SMEMBERS', KEYS[1])
for _, k in ipairs(members) do
	redis.call('DEL', k)
end
redis.call('DEL', KEYS[1])
return #members
`)

type CacheConfig struct {
	Addr         string
	Password     string
	DB           int
	PoolSize     int
	MinIdleConns int
	MaxRetries   int
	DialTimeout  time.Duration
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	// KeyPrefix namespaces every key this cache writes.
	KeyPrefix string
}

func DefaultCacheConfig() *CacheConfig {
	return &CacheConfig{
		Addr:         "localhost:6379",
		PoolSize:     10,
		MinIdleConns: 5,
		MaxRetries:   3,
		DialTimeout:  5 * time.Second,
		ReadTimeout:  3 * time.Second,
		WriteTimeout: 3 * time.Second,
		KeyPrefix:    "tracker:",
	}
}

// RedisCache stores JSON values in Redis under a shared prefix.
type RedisCache struct {
	client *redis.Client
	prefix string
}

func NewRedisCache(config *CacheConfig) *RedisCache {
	if config == nil {
		config = DefaultCacheConfig()
	}

	rdb := redis.NewClient(&redis.Options{
		Addr:         config.Addr,
		Password:     config.Password,
		DB:           config.DB,
		PoolSize:     config.PoolSize,
		MinIdleConns: config.MinIdleConns,
		MaxRetries:   config.MaxRetries,
		DialTimeout:  config.DialTimeout,
		ReadTimeout:  config.ReadTimeout,
		WriteTimeout: config.WriteTimeout,
	})

	return &RedisCache{client: rdb, prefix: config.KeyPrefix}
}

// Client exposes the underlying connection so the job queue shares one pool.
func (r *RedisCache) Client() *redis.Client {
	return r.client
}

func (r *RedisCache) key(k string) string {
	return r.prefix + k
}

func (r *RedisCache) tagKey(tag string) string {
	return r.prefix + "tag:" + tag
}

func (r *RedisCache) genKey(scope string) string {
	return r.prefix + "gen:" + scope
}

func (r *RedisCache) Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error {
	data, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("marshal %s: %w", key, err)
	}

	ctx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()

	if err := r.client.Set(ctx, r.key(key), data, ttl).Err(); err != nil {
		return fmt.Errorf("set %s: %w", key, err)
	}
	return nil
}

func (r *RedisCache) Get(ctx context.Context, key string, dest interface{}) error {
	ctx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()

	data, err := r.client.Get(ctx, r.key(key)).Bytes()
	switch {
	case errors.Is(err, redis.Nil):
		return ErrCacheMiss
	case err != nil:
		return fmt.Errorf("get %s: %w", key, err)
	}

	if err := json.Unmarshal(data, dest); err != nil {
		// A value we cannot decode is as good as absent; drop it.
		r.client.Del(ctx, r.key(key))
		return fmt.Errorf("%w: undecodable value for %s", ErrCacheMiss, key)
	}
	return nil
}

func (r *RedisCache) Delete(ctx context.Context, keys ...string) error {
	if len(keys) == 0 {
		return nil
	}

	full := make([]string, len(keys))
	for i, k := range keys {
		full[i] = r.key(k)
	}

	ctx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()
	return r.client.Del(ctx, full...).Err()
}

// DeletePattern removes every key matching the glob pattern, walking the
// keyspace with SCAN in batches.
func (r *RedisCache) DeletePattern(ctx context.Context, pattern string) error {
	ctx, cancel := context.WithTimeout(ctx, scanTimeout)
	defer cancel()

	iter := r.client.Scan(ctx, 0, r.key(pattern), scanBatch).Iterator()
	batch := make([]string, 0, scanBatch)
	flush := func() error {
		if len(batch) == 0 {
			return nil
		}
		err := r.client.Del(ctx, batch...).Err()
		batch = batch[:0]
		return err
	}

	for iter.Next(ctx) {
		batch = append(batch, iter.Val())
		if len(batch) == scanBatch {
			if err := flush(); err != nil {
				return err
			}
		}
	}
	if err := iter.Err(); err != nil {
		return fmt.Errorf("scan %s: %w", pattern, err)
	}
	return flush()
}

// SetWithTags stores value and records key under each tag, so a later
// InvalidateByTag drops it together with its siblings.
func (r *RedisCache) SetWithTags(ctx context.Context, key string, value interface{}, ttl time.Duration, tags []string) error {
	if err := r.Set(ctx, key, value, ttl); err != nil {
		return err
	}
	if len(tags) == 0 {
		return nil
	}

	ctx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()

	_, err := r.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		for _, tag := range tags {
			pipe.SAdd(ctx, r.tagKey(tag), r.key(key))
			if ttl > 0 {
				pipe.Expire(ctx, r.tagKey(tag), ttl)
			}
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("tag %s: %w", key, err)
	}
	return nil
}

func (r *RedisCache) InvalidateByTag(ctx context.Context, tag string) error {
	ctx, cancel := context.WithTimeout(ctx, scanTimeout)
	defer cancel()

	if err := invalidateTag.Run(ctx, r.client, []string{r.tagKey(tag)}).Err(); err != nil && !errors.Is(err, redis.Nil) {
		return fmt.Errorf("invalidate tag %s: %w", tag, err)
	}
	return nil
}

// Generation reads the version counter of scope. An unset counter is zero.
// Counters never expire: a reset would make retired keys readable again.
func (r *RedisCache) Generation(ctx context.Context, scope string) (int64, error) {
	ctx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()

	n, err := r.client.Get(ctx, r.genKey(scope)).Int64()
	switch {
	case errors.Is(err, redis.Nil):
		return 0, nil
	case err != nil:
		return 0, fmt.Errorf("generation %s: %w", scope, err)
	}
	return n, nil
}

// Bump advances the version counter of scope and returns the new value.
func (r *RedisCache) Bump(ctx context.Context, scope string) (int64, error) {
	ctx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()

	n, err := r.client.Incr(ctx, r.genKey(scope)).Result()
	if err != nil {
		return 0, fmt.Errorf("bump %s: %w", scope, err)
	}
	return n, nil
}

func (r *RedisCache) Health(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()

	return r.client.Ping(ctx).Err()
}

func (r *RedisCache) Stats() map[string]interface{} {
	pool := r.client.PoolStats()
	return map[string]interface{}{
		"prefix":        r.prefix,
		"pool_hits":     pool.Hits,
		"pool_misses":   pool.Misses,
		"pool_timeouts": pool.Timeouts,
		"pool_total":    pool.TotalConns,
		"pool_idle":     pool.IdleConns,
		"pool_stale":    pool.StaleConns,
	}
}

func (r *RedisCache) Close() error {
	return r.client.Close()
}
