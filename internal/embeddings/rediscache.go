package embeddings

import (
	"context"
	"crypto/sha256"
	"encoding/json"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/redis/go-redis/v9"

	memerrors "github.com/lerianstudio/memory-retrieval/internal/errors"
	"github.com/lerianstudio/memory-retrieval/internal/logging"
)

// CacheStats counts hits and misses for the redis-backed decorator (no
// in-process size/eviction counters, since Redis owns expiry).
type CacheStats struct {
	Hits   int64
	Misses int64
}

// RedisCachedClient decorates a Client with a Redis-backed cache keyed by a
// SHA-256 hash of the input text, backed by a shared, out-of-process store
// instead of an in-memory LRU.
type RedisCachedClient struct {
	inner  Client
	rdb    *redis.Client
	ttl    time.Duration
	log    logging.Logger
	hits   int64
	misses int64
}

// NewRedisCachedClient wraps inner with a Redis cache at addr.
func NewRedisCachedClient(inner Client, addr string, ttl time.Duration, log logging.Logger) *RedisCachedClient {
	rdb := redis.NewClient(&redis.Options{Addr: addr})
	if ttl <= 0 {
		ttl = 15 * time.Minute
	}
	return &RedisCachedClient{inner: inner, rdb: rdb, ttl: ttl, log: log.WithComponent("embeddings.rediscache")}
}

func (c *RedisCachedClient) Dimension() int { return c.inner.Dimension() }

func (c *RedisCachedClient) Embed(ctx context.Context, text string) ([]float32, error) {
	key := cacheKey(text)

	if v, err := c.rdb.Get(ctx, key).Result(); err == nil {
		var vec []float32
		if jsonErr := json.Unmarshal([]byte(v), &vec); jsonErr == nil {
			atomic.AddInt64(&c.hits, 1)
			return vec, nil
		}
	}
	atomic.AddInt64(&c.misses, 1)

	vec, err := c.inner.Embed(ctx, text)
	if err != nil {
		return nil, err
	}

	if data, jsonErr := json.Marshal(vec); jsonErr == nil {
		if setErr := c.rdb.Set(ctx, key, data, c.ttl).Err(); setErr != nil {
			c.log.Warn("embedding cache write failed", "error", setErr)
		}
	}
	return vec, nil
}

func (c *RedisCachedClient) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, len(texts))
	missing := make([]string, 0, len(texts))
	missingIdx := make([]int, 0, len(texts))

	for i, t := range texts {
		key := cacheKey(t)
		v, err := c.rdb.Get(ctx, key).Result()
		if err != nil {
			missing = append(missing, t)
			missingIdx = append(missingIdx, i)
			atomic.AddInt64(&c.misses, 1)
			continue
		}
		var vec []float32
		if jsonErr := json.Unmarshal([]byte(v), &vec); jsonErr != nil {
			missing = append(missing, t)
			missingIdx = append(missingIdx, i)
			atomic.AddInt64(&c.misses, 1)
			continue
		}
		out[i] = vec
		atomic.AddInt64(&c.hits, 1)
	}

	if len(missing) == 0 {
		return out, nil
	}

	fresh, err := c.inner.EmbedBatch(ctx, missing)
	if err != nil {
		return nil, err
	}
	for j, idx := range missingIdx {
		out[idx] = fresh[j]
		if data, jsonErr := json.Marshal(fresh[j]); jsonErr == nil {
			_ = c.rdb.Set(ctx, cacheKey(missing[j]), data, c.ttl).Err()
		}
	}
	return out, nil
}

// Stats returns hit/miss counters accumulated since construction.
func (c *RedisCachedClient) Stats() CacheStats {
	return CacheStats{Hits: atomic.LoadInt64(&c.hits), Misses: atomic.LoadInt64(&c.misses)}
}

// Close releases the underlying Redis connection.
func (c *RedisCachedClient) Close() error {
	if err := c.rdb.Close(); err != nil {
		return memerrors.New(memerrors.KindEmbedding, "rediscache.Close", err)
	}
	return nil
}

func cacheKey(text string) string {
	sum := sha256.Sum256([]byte(text))
	return fmt.Sprintf("embedding:%x", sum)
}
