package data

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"

	"github.com/trendgate/trendgate/internal/domain"
)

// Cache is a byte-level TTL cache. The memory implementation backs tests and
// single-node runs; the Redis implementation shares candle history between
// restarts so a cold start does not re-pull full klines for every pair.
type Cache interface {
	Get(ctx context.Context, key string) ([]byte, bool)
	Set(ctx context.Context, key string, val []byte, ttl time.Duration)
}

type memoryCache struct {
	mu sync.Mutex
	m  map[string]memoryEntry
}

type memoryEntry struct {
	b   []byte
	exp time.Time
}

// NewMemoryCache returns an in-process Cache
func NewMemoryCache() Cache {
	return &memoryCache{m: make(map[string]memoryEntry)}
}

func (c *memoryCache) Get(_ context.Context, key string) ([]byte, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	e, ok := c.m[key]
	if !ok || (!e.exp.IsZero() && time.Now().After(e.exp)) {
		delete(c.m, key)
		return nil, false
	}
	return e.b, true
}

func (c *memoryCache) Set(_ context.Context, key string, val []byte, ttl time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	e := memoryEntry{b: append([]byte(nil), val...)}
	if ttl > 0 {
		e.exp = time.Now().Add(ttl)
	}
	c.m[key] = e
}

type redisCache struct {
	client *redis.Client
}

// NewRedisCache returns a Cache backed by the given Redis address
func NewRedisCache(addr string) Cache {
	return &redisCache{client: redis.NewClient(&redis.Options{Addr: addr})}
}

func (c *redisCache) Get(ctx context.Context, key string) ([]byte, bool) {
	ctx, cancel := context.WithTimeout(ctx, 500*time.Millisecond)
	defer cancel()
	v, err := c.client.Get(ctx, key).Bytes()
	if err != nil {
		if err != redis.Nil {
			log.Debug().Err(err).Str("key", key).Msg("redis get failed")
		}
		return nil, false
	}
	return v, true
}

func (c *redisCache) Set(ctx context.Context, key string, val []byte, ttl time.Duration) {
	ctx, cancel := context.WithTimeout(ctx, 500*time.Millisecond)
	defer cancel()
	if err := c.client.Set(ctx, key, val, ttl).Err(); err != nil {
		log.Debug().Err(err).Str("key", key).Msg("redis set failed")
	}
}

// CachedCandleProvider wraps a CandleProvider with a read-through Cache.
// Fresh series are cached for one candle interval; cache failures fall back
// to the upstream, never to an error.
type CachedCandleProvider struct {
	upstream CandleProvider
	cache    Cache
	now      func() time.Time
}

// NewCachedCandleProvider wraps upstream with the cache
func NewCachedCandleProvider(upstream CandleProvider, cache Cache) *CachedCandleProvider {
	return &CachedCandleProvider{upstream: upstream, cache: cache, now: time.Now}
}

// GetCandles serves the cached series when present and still inside its last
// candle's interval, otherwise pulls from the upstream and caches the result.
// An entry whose last close has aged past one interval is a miss even before
// its TTL runs out, so a newly closed candle is never hidden by the cache.
func (p *CachedCandleProvider) GetCandles(ctx context.Context, symbol string, tf domain.Timeframe) ([]domain.Candle, error) {
	key := candleKey(symbol, tf)
	if b, ok := p.cache.Get(ctx, key); ok {
		var candles []domain.Candle
		if err := json.Unmarshal(b, &candles); err == nil {
			if n := len(candles); n > 0 && p.now().Before(candles[n-1].CloseTime.Add(tf.Duration())) {
				return candles, nil
			}
		} else {
			log.Warn().Str("key", key).Msg("discarding corrupt cached series")
		}
	}

	candles, err := p.upstream.GetCandles(ctx, symbol, tf)
	if err != nil {
		return nil, err
	}
	if b, err := json.Marshal(candles); err == nil {
		p.cache.Set(ctx, key, b, tf.Duration())
	}
	return candles, nil
}

func candleKey(symbol string, tf domain.Timeframe) string {
	return fmt.Sprintf("candles:%s:%s", symbol, tf)
}
